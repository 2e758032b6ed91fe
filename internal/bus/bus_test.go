package bus

import (
	"bytes"
	"errors"
	"testing"

	"palx/internal/config"
	"palx/internal/oled"
	"palx/internal/preview"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

// portBuffer is an in-memory serial port.
type portBuffer struct {
	bytes.Buffer
	closed bool
	err    error
}

func (p *portBuffer) Write(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.Buffer.Write(b)
}

func (p *portBuffer) Close() error {
	p.closed = true
	return nil
}

func TestBridgeFraming(t *testing.T) {
	port := &portBuffer{}
	b := NewBridge(port, 0x3C)

	n, err := b.Write([]byte{0x00, 0xAE})
	if err != nil || n != 2 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if _, err := b.Write([]byte{0x40, 0xFF}); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		'S', 0x78, 2, 0x00, 0xAE, 'P',
		'S', 0x78, 2, 0x40, 0xFF, 'P',
	}
	if !bytes.Equal(port.Bytes(), want) {
		t.Errorf("wire = % x, want % x", port.Bytes(), want)
	}

	if err := b.Close(); err != nil || !port.closed {
		t.Errorf("Close = %v, closed %v", err, port.closed)
	}
}

func TestBridgeFullPage(t *testing.T) {
	port := &portBuffer{}
	b := NewBridge(port, 0)
	page := make([]byte, 1+oled.RAMWidth)
	page[0] = 0x40

	if _, err := b.Write(page); err != nil {
		t.Fatal(err)
	}
	got := port.Bytes()
	if len(got) != len(page)+4 || got[1] != 0x78 || got[2] != byte(len(page)) || got[len(got)-1] != 'P' {
		t.Errorf("frame header/trailer wrong: % x ... % x", got[:3], got[len(got)-1:])
	}
}

func TestBridgeErrors(t *testing.T) {
	port := &portBuffer{}
	b := NewBridge(port, 0x3D)
	if _, err := b.Write(make([]byte, 256)); !errors.Is(err, ErrPacketTooLong) {
		t.Errorf("oversized Write = %v", err)
	}
	if port.Len() != 0 {
		t.Error("oversized packet reached the port")
	}

	boom := errors.New("uart gone")
	port.err = boom
	if n, err := b.Write([]byte{0x00}); !errors.Is(err, boom) || n != 0 {
		t.Errorf("Write = %d, %v", n, err)
	}
}

func TestI2CSink(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x3D, W: []byte{0x00, 0xAF}},
		},
		DontPanic: true,
	}
	s := NewI2C(bus, 0x3D)
	if n, err := s.Write([]byte{0x00, 0xAF}); err != nil || n != 2 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}

// closingBus records writes and counts Close calls.
type closingBus struct {
	i2ctest.Record
	closes int
}

func (c *closingBus) Close() error {
	c.closes++
	return nil
}

func TestI2CSinkOwnership(t *testing.T) {
	owned := &closingBus{}
	if err := NewI2C(owned, 0).Close(); err != nil || owned.closes != 1 {
		t.Errorf("owned Close = %v, bus closed %d times", err, owned.closes)
	}

	shared := &closingBus{}
	s := Shared(shared, 0)
	if _, err := s.Write([]byte{0x00, 0xAE}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil || shared.closes != 0 {
		t.Errorf("shared Close = %v, bus closed %d times", err, shared.closes)
	}
	if len(shared.Ops) != 1 || shared.Ops[0].Addr != oled.DefaultAddress {
		t.Errorf("ops = %+v", shared.Ops)
	}
}

func TestOpenEmulator(t *testing.T) {
	w, err := Open(config.Display{Bus: config.BusEmulator, Panel: "128x32"})
	if err != nil {
		t.Fatal(err)
	}
	emu, ok := w.(*preview.Emulator)
	if !ok {
		t.Fatalf("Open returned %T", w)
	}

	d, err := oled.New(emu, &oled.Opts{Panel: oled.Panel128x32})
	if err != nil {
		t.Fatal(err)
	}
	if !emu.On() || emu.Bounds().Dy() != 32 || emu.Bounds().Dx() != d.Bounds().Dx() {
		t.Errorf("emulator state: on %v bounds %v", emu.On(), emu.Bounds())
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(config.Display{Bus: "spi"}); err == nil {
		t.Error("unknown bus kind accepted")
	}
	if _, err := Open(config.Display{Bus: config.BusEmulator, Panel: "96x16"}); err == nil {
		t.Error("unknown panel accepted")
	}
}
