package board

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"palx/internal/config"
	"palx/internal/log"
	"palx/internal/oled"
	"palx/internal/preview"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func init() {
	log.SetOutput(io.Discard)
	hostInit = func() error { return nil }
}

func registerPin(t *testing.T, name string) *gpiotest.Pin {
	t.Helper()
	p := &gpiotest.Pin{N: name, Num: -1, EdgesChan: make(chan gpio.Level)}
	if err := gpioreg.Register(p); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { gpioreg.Unregister(name) })
	return p
}

func registerBus(t *testing.T, name string, opens *int) {
	t.Helper()
	err := i2creg.Register(name, nil, -1, func() (i2c.BusCloser, error) {
		*opens++
		return &i2ctest.Playback{DontPanic: true}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { i2creg.Unregister(name) })
}

func writeChannel(t *testing.T, dir, name, v string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(v), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenDisplayEmulator(t *testing.T) {
	contrast := 0x20
	d, sink, err := OpenDisplay(config.Display{
		Panel:    "128x32",
		Bus:      config.BusEmulator,
		Contrast: &contrast,
		Invert:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	emu := sink.(*preview.Emulator)
	if d.Height() != 32 || !emu.On() || !emu.Inverted() || emu.Contrast() != 0x20 {
		t.Errorf("display %v: on %v inverted %v contrast %#x", d, emu.On(), emu.Inverted(), emu.Contrast())
	}
}

func TestOpenDisplayBadPanel(t *testing.T) {
	if _, _, err := OpenDisplay(config.Display{Panel: "64x48", Bus: config.BusEmulator}); err == nil {
		t.Error("unknown panel accepted")
	}
}

func TestOpen(t *testing.T) {
	var opens int
	registerBus(t, "palxtest-open", &opens)
	btn := registerPin(t, "PALX_TEST_BTN")
	spk := registerPin(t, "PALX_TEST_SPK")

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Display.Bus = config.BusEmulator
	cfg.Charger.I2CBus = "palxtest-open"
	cfg.LightSensor.I2CBus = "palxtest-open"
	cfg.ADC = config.ADC{
		VBat:        writeChannel(t, dir, "vbat", "3000"),
		PCBTemp:     writeChannel(t, dir, "pcb", "2768"),
		MCUTemp:     writeChannel(t, dir, "mcu", "4210"),
		Samples:     2,
		SamplePause: "1ms",
	}
	cfg.Buttons = []config.Button{{Name: "user", Pin: "PALX_TEST_BTN"}, {Name: "ghost", Pin: "PALX_NO_SUCH_PIN"}}
	cfg.Buzzer.Pin = "PALX_TEST_SPK"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, err := Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if opens != 1 {
		t.Errorf("bus opened %d times, want once", opens)
	}
	if r, err := b.Charger.Read(ctx); err != nil || r.Status != "mock" {
		t.Errorf("charger fallback = %+v, %v", r, err)
	}
	if b.Light != nil {
		t.Error("light sensor set although it never answered")
	}
	if b.ADC == nil {
		t.Fatal("adc not opened")
	}
	a, err := b.ADC.Read(ctx)
	if err != nil || a.MCUTempC != 42.1 {
		t.Errorf("adc = %+v, %v", a, err)
	}
	if b.Speaker == nil {
		t.Error("speaker not resolved")
	}

	btn.EdgesChan <- gpio.Low
	select {
	case ev := <-b.Buttons:
		if ev.Name != "user" {
			t.Errorf("button event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no button event")
	}

	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if spk.Read() != gpio.Low {
		t.Error("speaker left high")
	}
}

// sharedBus accepts every write and counts Close calls.
type sharedBus struct {
	i2ctest.Record
	closes int
}

func (s *sharedBus) Close() error {
	s.closes++
	return nil
}

func TestOpenSharesDisplayBus(t *testing.T) {
	var opens int
	bb := &sharedBus{}
	err := i2creg.Register("palxtest-shared", nil, -1, func() (i2c.BusCloser, error) {
		opens++
		return bb, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer i2creg.Unregister("palxtest-shared")

	cfg := config.DefaultConfig()
	cfg.Display.Bus = config.BusI2C
	cfg.Display.I2CBus = "palxtest-shared"
	cfg.Charger.I2CBus = "palxtest-shared"
	cfg.LightSensor.I2CBus = "palxtest-shared"
	cfg.ADC.VBat = filepath.Join(t.TempDir(), "missing")
	cfg.Buttons = []config.Button{{Name: "x", Pin: "PALX_NO_SUCH_PIN"}}
	cfg.Buzzer.Enabled = false

	b, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opens != 1 {
		t.Errorf("bus opened %d times, want once", opens)
	}
	if len(bb.Ops) == 0 || bb.Ops[0].Addr != oled.DefaultAddress {
		t.Errorf("display init not sent on the shared bus: %+v", bb.Ops)
	}

	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if bb.closes != 1 {
		t.Errorf("shared bus closed %d times, want once", bb.closes)
	}
}

func TestOpenOptionalPeripheralsMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Display.Bus = config.BusEmulator
	cfg.Charger.I2CBus = "palxtest-no-such-bus"
	cfg.LightSensor.Enabled = false
	cfg.ADC.VBat = filepath.Join(t.TempDir(), "missing")
	cfg.Buttons = []config.Button{{Name: "x", Pin: "PALX_NO_SUCH_PIN"}}
	cfg.Buzzer.Pin = "PALX_NO_SUCH_PIN"

	b, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if b.Charger == nil {
		t.Error("missing charger bus should fall back to the mock")
	}
	if b.Light != nil || b.ADC != nil || b.Buttons != nil || b.Speaker != nil {
		t.Errorf("optional peripherals set: %+v", b)
	}
}

func TestResolveButtons(t *testing.T) {
	registerPin(t, "PALX_TEST_A")

	pins, err := ResolveButtons([]config.Button{{Name: "a", Pin: "PALX_TEST_A"}, {Name: "b", Pin: "PALX_MISSING"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(pins) != 1 || pins["a"] == nil {
		t.Errorf("pins = %v", pins)
	}

	if _, err := ResolveButtons([]config.Button{{Name: "a", Pin: "PALX_TEST_A"}, {Name: "a", Pin: "PALX_TEST_A"}}); err == nil {
		t.Error("duplicate button name accepted")
	}
}
