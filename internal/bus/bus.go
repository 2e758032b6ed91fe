// Package bus opens the byte sink the OLED controller is reached through.
package bus

import (
	"errors"
	"fmt"
	"io"

	"palx/internal/config"
	"palx/internal/oled"
	"palx/internal/preview"

	"github.com/tarm/serial"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Open returns the sink selected by cfg.Bus. Closing it releases the
// underlying bus or port.
func Open(cfg config.Display) (io.WriteCloser, error) {
	switch cfg.Bus {
	case config.BusI2C, "":
		b, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("bus: open i2c %q: %w", cfg.I2CBus, err)
		}
		return NewI2C(b, cfg.Address), nil

	case config.BusSerial:
		port, err := serial.OpenPort(&serial.Config{Name: cfg.SerialPort, Baud: cfg.SerialBaud})
		if err != nil {
			return nil, fmt.Errorf("bus: open serial %s: %w", cfg.SerialPort, err)
		}
		return NewBridge(port, cfg.Address), nil

	case config.BusEmulator:
		panel, err := oled.ParsePanel(cfg.Panel)
		if err != nil {
			return nil, fmt.Errorf("bus: %w", err)
		}
		return preview.NewEmulator(oled.RAMWidth, panel.Height()), nil

	default:
		return nil, fmt.Errorf("bus: unknown kind %q", cfg.Bus)
	}
}

// I2C writes each packet as one I2C transaction to a fixed address.
type I2C struct {
	dev *i2c.Dev
	bus io.Closer // nil when the bus belongs to someone else
}

// NewI2C wraps b and takes ownership of it. Address 0 selects
// oled.DefaultAddress.
func NewI2C(b i2c.BusCloser, addr uint16) *I2C {
	s := Shared(b, addr)
	s.bus = b
	return s
}

// Shared wraps a bus other devices also use. Closing the result leaves b
// open.
func Shared(b i2c.Bus, addr uint16) *I2C {
	if addr == 0 {
		addr = oled.DefaultAddress
	}
	return &I2C{dev: &i2c.Dev{Bus: b, Addr: addr}}
}

func (s *I2C) Write(p []byte) (int, error) { return s.dev.Write(p) }

// Close closes the bus if it is owned.
func (s *I2C) Close() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Close()
}

func (s *I2C) String() string { return s.dev.String() }

// Bridge frames packets for an SC18IM700 style UART to I2C bridge:
// 'S', the write address, the byte count, the payload and 'P'.
type Bridge struct {
	port io.WriteCloser
	addr byte
	buf  []byte
}

const (
	bridgeStart = 'S'
	bridgeStop  = 'P'

	maxBridgePayload = 255
)

// ErrPacketTooLong is returned for packets the bridge's length byte cannot
// describe.
var ErrPacketTooLong = errors.New("bus: packet longer than 255 bytes")

// NewBridge sends packets for the 7-bit address addr over port.
func NewBridge(port io.WriteCloser, addr uint16) *Bridge {
	if addr == 0 {
		addr = oled.DefaultAddress
	}
	return &Bridge{port: port, addr: byte(addr << 1)}
}

// Write sends p as one framed I2C write. It reports len(p) on success.
func (b *Bridge) Write(p []byte) (int, error) {
	if len(p) > maxBridgePayload {
		return 0, ErrPacketTooLong
	}
	b.buf = append(b.buf[:0], bridgeStart, b.addr, byte(len(p)))
	b.buf = append(b.buf, p...)
	b.buf = append(b.buf, bridgeStop)
	if _, err := b.port.Write(b.buf); err != nil {
		return 0, fmt.Errorf("bus: bridge write: %w", err)
	}
	return len(p), nil
}

// Close closes the port.
func (b *Bridge) Close() error { return b.port.Close() }
