// Package charger reads the board's BQ2579x buck-boost battery charger.
package charger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"palx/internal/model"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the fixed 7-bit I2C address of the BQ25792/BQ25798.
const DefaultAddress = 0x6B

// Registers used by this driver.
const (
	regChargerControl1 = 0x10 // bits 2:0 watchdog timer
	regNTCControl0     = 0x17 // JEITA high temperature limits
	regChargerStatus1  = 0x1C // bits 7:5 charge status
	regADCControl      = 0x2E // bit 7 ADC_EN, bit 6 one-shot
	regVBUSADC         = 0x35 // 16 bit, 1 mV/LSB
	regVBATADC         = 0x3B // 16 bit, 1 mV/LSB
	regTDIEADC         = 0x41 // 16 bit two's complement, 0.5 °C/LSB
)

const (
	watchdogMask = 0x07
	adcEnable    = 0x80
	adcOneShot   = 0x40

	// Above the warm threshold charge at VREG-400mV and 40% of ICHG.
	jeitaVSetMask    = 0xE0
	jeitaVSet400mV   = 0x60
	jeitaISetHMask   = 0x18
	jeitaISetH40Pct  = 0x10
	chargeStatusMask = 0xE0
)

var chargeStatus = [8]string{
	"not charging",
	"trickle charge",
	"pre-charge",
	"fast charge",
	"taper charge",
	"reserved",
	"top-off",
	"charge done",
}

// Reader abstracts how we obtain charger information. This allows a mock
// implementation for development and the real I2C-backed driver on the
// board.
type Reader interface {
	Read(ctx context.Context) (model.Charger, error)
}

// mockReader is used for demo/development. It returns plausible values with
// a little noise.
type mockReader struct {
	rnd *rand.Rand
}

// NewMock constructs a mock Reader.
func NewMock() Reader {
	return &mockReader{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *mockReader) Read(_ context.Context) (model.Charger, error) {
	return model.Charger{
		VBusMV:   12000 + m.rnd.Intn(200),
		VBatMV:   3700 + m.rnd.Intn(500),
		DieTempC: 30 + float64(m.rnd.Intn(20))/2,
		Status:   "mock",
	}, nil
}

// BQ2579x talks to the charger over I2C.
type BQ2579x struct {
	dev *i2c.Dev
}

// New configures the charger at addr on b: the I2C watchdog is disabled so
// settings survive without periodic host writes, the JEITA warm-range limits
// are lowered, and the ADC is put in continuous mode.
func New(b i2c.Bus, addr uint16) (*BQ2579x, error) {
	if addr == 0 {
		addr = DefaultAddress
	}
	c := &BQ2579x{dev: &i2c.Dev{Bus: b, Addr: addr}}

	if err := c.update(regChargerControl1, watchdogMask, 0); err != nil {
		return nil, fmt.Errorf("charger: disable watchdog: %w", err)
	}
	if err := c.update(regNTCControl0, jeitaVSetMask|jeitaISetHMask, jeitaVSet400mV|jeitaISetH40Pct); err != nil {
		return nil, fmt.Errorf("charger: set temperature limits: %w", err)
	}
	if err := c.update(regADCControl, adcEnable|adcOneShot, adcEnable); err != nil {
		return nil, fmt.Errorf("charger: enable adc: %w", err)
	}
	return c, nil
}

func (c *BQ2579x) String() string {
	return fmt.Sprintf("bq2579x@%#x", c.dev.Addr)
}

// Read implements Reader.
func (c *BQ2579x) Read(_ context.Context) (model.Charger, error) {
	vbus, err := c.read16(regVBUSADC)
	if err != nil {
		return model.Charger{}, fmt.Errorf("charger: read vbus: %w", err)
	}
	vbat, err := c.read16(regVBATADC)
	if err != nil {
		return model.Charger{}, fmt.Errorf("charger: read vbat: %w", err)
	}
	tdie, err := c.read16(regTDIEADC)
	if err != nil {
		return model.Charger{}, fmt.Errorf("charger: read die temperature: %w", err)
	}
	st, err := c.read8(regChargerStatus1)
	if err != nil {
		return model.Charger{}, fmt.Errorf("charger: read status: %w", err)
	}

	return model.Charger{
		VBusMV:   int(vbus),
		VBatMV:   int(vbat),
		DieTempC: float64(int16(tdie)) / 2,
		Status:   chargeStatus[(st&chargeStatusMask)>>5],
	}, nil
}

func (c *BQ2579x) read8(reg byte) (byte, error) {
	var buf [1]byte
	if err := c.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// read16 reads a big-endian register pair starting at reg.
func (c *BQ2579x) read16(reg byte) (uint16, error) {
	var buf [2]byte
	if err := c.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

// update replaces the bits of reg selected by mask with value.
func (c *BQ2579x) update(reg, mask, value byte) error {
	cur, err := c.read8(reg)
	if err != nil {
		return err
	}
	_, err = c.dev.Write([]byte{reg, cur&^mask | value&mask})
	return err
}

// Default returns the I2C driver when the charger at addr answers a first
// read, and the mock otherwise. The error explains the fallback.
func Default(ctx context.Context, b i2c.Bus, addr uint16) (Reader, error) {
	c, err := New(b, addr)
	if err != nil {
		return NewMock(), err
	}
	if _, err := c.Read(ctx); err != nil {
		return NewMock(), err
	}
	return c, nil
}
