// Package board wires the carrier board's peripherals together.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"palx/internal/adc"
	"palx/internal/bus"
	"palx/internal/buttons"
	"palx/internal/charger"
	"palx/internal/config"
	"palx/internal/lightsensor"
	"palx/internal/log"
	"palx/internal/oled"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Pinout. GPIO names are BCM numbers as registered by periph's host drivers.
const (
	ButtonBoot1      = "GPIO5"
	ButtonDiagnostic = "GPIO6"
	ButtonWake       = "GPIO13"
	ButtonUserWake   = "GPIO19"
	PWMSpeaker       = "GPIO12"

	ADCVBat    = "iio:device0/in_voltage0_raw"
	ADCPCBTemp = "iio:device0/in_voltage1_raw"
	ADCMCUTemp = "iio:device0/in_voltage2_raw"
)

// DefaultButtons is used when the configuration lists none.
var DefaultButtons = []config.Button{
	{Name: "boot1", Pin: ButtonBoot1},
	{Name: "diagnostic", Pin: ButtonDiagnostic},
	{Name: "wake", Pin: ButtonWake},
	{Name: "user_wake", Pin: ButtonUserWake},
}

// hostInit loads periph's host drivers.
var hostInit = func() error {
	_, err := host.Init()
	return err
}

// Board holds every peripheral that could be opened. Optional peripherals
// that are disabled or missing are nil.
type Board struct {
	Display *oled.Dev

	Charger charger.Reader
	Light   *lightsensor.Dev
	ADC     *adc.Monitor
	Buttons <-chan buttons.Event
	Speaker gpio.PinOut

	sink  io.Closer
	buses map[string]i2c.BusCloser
}

// OpenDisplay opens the sink described by cfg, initializes the panel on it
// and applies the optional panel settings. The returned closer releases the
// sink.
func OpenDisplay(cfg config.Display) (*oled.Dev, io.WriteCloser, error) {
	sink, err := bus.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("board: %w", err)
	}
	return setupDisplay(sink, cfg)
}

// setupDisplay initializes the panel behind sink. sink is closed on error.
func setupDisplay(sink io.WriteCloser, cfg config.Display) (*oled.Dev, io.WriteCloser, error) {
	panel, err := oled.ParsePanel(cfg.Panel)
	if err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("board: %w", err)
	}
	d, err := oled.New(sink, &oled.Opts{Panel: panel})
	if err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("board: display init: %w", err)
	}

	if cfg.Contrast != nil {
		err = d.SetContrast(byte(*cfg.Contrast))
	}
	if err == nil && cfg.Rotate {
		err = d.Rotate(true)
	}
	if err == nil && cfg.Invert {
		err = d.Invert(true)
	}
	if err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("board: display setup: %w", err)
	}
	return d, sink, nil
}

// openDisplay is OpenDisplay with I2C buses taken from the board's cache, so
// the panel and the sensors share one handle per bus.
func (b *Board) openDisplay(cfg config.Display) (*oled.Dev, io.WriteCloser, error) {
	if cfg.Bus != config.BusI2C && cfg.Bus != "" {
		return OpenDisplay(cfg)
	}
	bb, err := b.i2cBus(cfg.I2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("board: open i2c %q: %w", cfg.I2CBus, err)
	}
	return setupDisplay(bus.Shared(bb, cfg.Address), cfg)
}

// Open initializes the host and every configured peripheral. Only the
// display is mandatory; other failures are logged and the peripheral is left
// nil. Button watchers stop when ctx is done.
func Open(ctx context.Context, cfg *config.Config) (*Board, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("board: periph host init failed: %w", err)
	}

	b := &Board{buses: map[string]i2c.BusCloser{}}
	d, sink, err := b.openDisplay(cfg.Display)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Display, b.sink = d, sink
	log.Info("board: display ready", "display", d.String(), "bus", cfg.Display.Bus)

	if cfg.Charger.Enabled {
		b.openCharger(ctx, cfg.Charger)
	}
	if cfg.LightSensor.Enabled {
		b.openLight(cfg.LightSensor)
	}
	b.openADC(cfg.ADC)

	if err := b.openButtons(ctx, cfg.Buttons); err != nil {
		log.Warn("board: buttons unavailable", "error", err.Error())
	}

	if cfg.Buzzer.Enabled {
		name := cfg.Buzzer.Pin
		if name == "" {
			name = PWMSpeaker
		}
		if p := gpioreg.ByName(name); p != nil {
			b.Speaker = p
		} else {
			log.Warn("board: speaker pin not found", "pin", name)
		}
	}
	return b, nil
}

// i2cBus opens name once and shares it between peripherals.
func (b *Board) i2cBus(name string) (i2c.Bus, error) {
	if bb, ok := b.buses[name]; ok {
		return bb, nil
	}
	bb, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	b.buses[name] = bb
	return bb, nil
}

func (b *Board) openCharger(ctx context.Context, cfg config.Charger) {
	bb, err := b.i2cBus(cfg.I2CBus)
	if err != nil {
		log.Warn("board: charger bus unavailable, using mock", "bus", cfg.I2CBus, "error", err.Error())
		b.Charger = charger.NewMock()
		return
	}
	r, err := charger.Default(ctx, bb, cfg.Address)
	if err != nil {
		log.Warn("board: charger not responding, using mock", "address", fmt.Sprintf("%#x", cfg.Address), "error", err.Error())
	}
	b.Charger = r
}

func (b *Board) openLight(cfg config.LightSensor) {
	bb, err := b.i2cBus(cfg.I2CBus)
	if err != nil {
		log.Warn("board: light sensor bus unavailable", "bus", cfg.I2CBus, "error", err.Error())
		return
	}
	l := lightsensor.New(bb, cfg.Address)
	if err := l.Init(); err != nil {
		log.Warn("board: light sensor unavailable", "sensor", l.String(), "error", err.Error())
		return
	}
	b.Light = l
}

func (b *Board) openADC(cfg config.ADC) {
	names := [3]string{cfg.VBat, cfg.PCBTemp, cfg.MCUTemp}
	defaults := [3]string{ADCVBat, ADCPCBTemp, ADCMCUTemp}
	var chans [3]adc.Channel
	for i := range names {
		if names[i] == "" {
			names[i] = defaults[i]
		}
		ch, err := adc.OpenSysfs(names[i])
		if err != nil {
			log.Warn("board: adc unavailable", "channel", names[i], "error", err.Error())
			return
		}
		chans[i] = ch
	}
	b.ADC = &adc.Monitor{
		VBat:    chans[0],
		PCBTemp: chans[1],
		MCUTemp: chans[2],
		Samples: cfg.Samples,
		Pause:   cfg.Pause(),
	}
}

func (b *Board) openButtons(ctx context.Context, list []config.Button) error {
	pins, err := ResolveButtons(list)
	if err != nil {
		return err
	}
	if len(pins) == 0 {
		return nil
	}
	ch, err := buttons.Watch(ctx, pins)
	if err != nil {
		return err
	}
	b.Buttons = ch
	return nil
}

// ResolveButtons looks up every button pin, using DefaultButtons when list
// is empty. Unknown pins are logged and skipped; duplicate names are an
// error.
func ResolveButtons(list []config.Button) (map[string]gpio.PinIn, error) {
	if len(list) == 0 {
		list = DefaultButtons
	}
	pins := make(map[string]gpio.PinIn, len(list))
	for _, btn := range list {
		if _, dup := pins[btn.Name]; dup {
			return nil, fmt.Errorf("board: button %q listed twice", btn.Name)
		}
		p := gpioreg.ByName(btn.Pin)
		if p == nil {
			log.Warn("board: button pin not found", "button", btn.Name, "pin", btn.Pin)
			continue
		}
		pins[btn.Name] = p
	}
	return pins, nil
}

// Close turns the panel off and releases every bus.
func (b *Board) Close() error {
	var errs []error
	if b.Speaker != nil {
		errs = append(errs, b.Speaker.Out(gpio.Low))
	}
	if b.Display != nil {
		errs = append(errs, b.Display.Halt())
	}
	if b.sink != nil {
		errs = append(errs, b.sink.Close())
	}
	names := make([]string, 0, len(b.buses))
	for name := range b.buses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		errs = append(errs, b.buses[name].Close())
	}
	return errors.Join(errs...)
}
