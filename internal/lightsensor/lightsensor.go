// Package lightsensor drives the ROHM RPR-0521RS ambient light and
// proximity sensor.
package lightsensor

import (
	"errors"
	"fmt"

	"palx/internal/model"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the sensor's 7-bit I2C address.
const DefaultAddress = 0x38

const (
	regSysCtrl    = 0x40
	regModeCtrl   = 0x41
	regALSPSCtrl  = 0x42
	regPSCtrl     = 0x43
	regPSDataLSB  = 0x44
	regPSDataMSB  = 0x45
	regManufactID = 0x92
)

const (
	partID     = 0x0A
	partIDMask = 0x3F

	// ManufacturerID is what ID returns for a genuine part.
	ManufacturerID = 0xE0

	modeALSOn       = 0x80
	modePSOn        = 0x40
	modeMeas50ms50  = 0x0C
	alsData0Gain2   = 0x10
	alsData1Gain2   = 0x04
	ledCurrent100mA = 0x02
	psGain1         = 0x00

	alsGain       = 2
	alsMeasureMs  = 50
	burstReadSize = 6
)

// ErrWrongPart is returned by Init when SYS_CTRL does not carry the
// RPR-0521RS part ID.
var ErrWrongPart = errors.New("lightsensor: unexpected part id")

// Dev is a handle to one sensor.
type Dev struct {
	dev *i2c.Dev
}

// New returns a handle to the sensor at addr on b. No bus traffic happens
// until Init or a read.
func New(b i2c.Bus, addr uint16) *Dev {
	if addr == 0 {
		addr = DefaultAddress
	}
	return &Dev{dev: &i2c.Dev{Bus: b, Addr: addr}}
}

func (d *Dev) String() string {
	return fmt.Sprintf("rpr0521rs@%#x", d.dev.Addr)
}

// ID returns the manufacturer ID register.
func (d *Dev) ID() (byte, error) {
	id, err := d.readReg(regManufactID)
	if err != nil {
		return 0, fmt.Errorf("lightsensor: read id: %w", err)
	}
	return id, nil
}

// Init checks the part ID and starts continuous ALS and PS measurement at
// 50 ms each.
func (d *Dev) Init() error {
	sys, err := d.readReg(regSysCtrl)
	if err != nil {
		return fmt.Errorf("lightsensor: read sys_ctrl: %w", err)
	}
	if sys&partIDMask != partID {
		return fmt.Errorf("%w %#02x", ErrWrongPart, sys&partIDMask)
	}

	if err := d.writeReg(regALSPSCtrl, alsData0Gain2|alsData1Gain2|ledCurrent100mA); err != nil {
		return fmt.Errorf("lightsensor: write als_ps_ctrl: %w", err)
	}
	if err := d.setBits(regPSCtrl, psGain1, 5, 4); err != nil {
		return fmt.Errorf("lightsensor: write ps_ctrl: %w", err)
	}
	if err := d.writeReg(regModeCtrl, modeALSOn|modePSOn|modeMeas50ms50); err != nil {
		return fmt.Errorf("lightsensor: write mode_ctrl: %w", err)
	}
	return nil
}

// Proximity returns the raw PS count. It has no unit; larger means closer.
func (d *Dev) Proximity() (uint16, error) {
	msb, err := d.readReg(regPSDataMSB)
	if err != nil {
		return 0, fmt.Errorf("lightsensor: read proximity: %w", err)
	}
	lsb, err := d.readReg(regPSDataLSB)
	if err != nil {
		return 0, fmt.Errorf("lightsensor: read proximity: %w", err)
	}
	return uint16(msb)<<8 | uint16(lsb), nil
}

// Read fetches PS and both ALS channels in one burst and estimates lux.
func (d *Dev) Read() (model.Light, error) {
	var buf [burstReadSize]byte
	if err := d.dev.Tx([]byte{regPSDataLSB}, buf[:]); err != nil {
		return model.Light{}, fmt.Errorf("lightsensor: read data: %w", err)
	}
	l := model.Light{
		Proximity: uint16(buf[0]) | uint16(buf[1])<<8,
		ALS0:      uint16(buf[2]) | uint16(buf[3])<<8,
		ALS1:      uint16(buf[4]) | uint16(buf[5])<<8,
	}
	l.Lux = Lux(l.ALS0, l.ALS1)
	return l, nil
}

// Lux converts raw ALS counts taken at gain x2 and 50 ms into lux using the
// datasheet's piecewise approximation on the DATA1/DATA0 ratio.
func Lux(als0, als1 uint16) float64 {
	scale := 100.0 / alsMeasureMs / alsGain
	d0 := float64(als0) * scale
	d1 := float64(als1) * scale
	if d0 == 0 {
		return 0
	}

	var lux float64
	switch ratio := d1 / d0; {
	case ratio < 0.595:
		lux = 1.682*d0 - 1.877*d1
	case ratio < 1.015:
		lux = 0.644*d0 - 0.132*d1
	case ratio < 1.352:
		lux = 0.756*d0 - 0.243*d1
	case ratio < 3.053:
		lux = 0.766*d0 - 0.25*d1
	default:
		return 0
	}
	return max(lux, 0)
}

// setBits replaces bits msb..lsb of reg with value, leaving the others.
// value must already be shifted into place.
func (d *Dev) setBits(reg, value byte, msb, lsb uint) error {
	if msb > 7 || lsb > 7 || lsb > msb {
		return fmt.Errorf("lightsensor: invalid bit range %d..%d", msb, lsb)
	}
	cur, err := d.readReg(reg)
	if err != nil {
		return err
	}
	keep := byte(0xFF<<(msb+1)) | byte(0xFF>>(8-lsb))
	return d.writeReg(reg, cur&keep|value)
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var buf [1]byte
	if err := d.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Dev) writeReg(reg, v byte) error {
	_, err := d.dev.Write([]byte{reg, v})
	return err
}
