package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Hardware defaults that depend on the board (pins, ADC
// channels) are left empty here and filled in by package board.

// Display bus kinds.
const (
	BusI2C      = "i2c"
	BusSerial   = "serial"
	BusEmulator = "emulator"
)

// Preview modes for rendered frames.
const (
	PreviewNone     = "none"
	PreviewTerminal = "terminal"
	PreviewBMP      = "bmp"
)

// Display describes the OLED panel and how it is reached.
type Display struct {
	// Panel is "128x64" (default) or "128x32".
	Panel string `yaml:"panel" json:"panel"`

	// Bus selects the transport:
	//   - "i2c" (default): a periph I2C bus
	//   - "serial": a UART to I2C bridge on SerialPort
	//   - "emulator": no hardware, frames are decoded in memory
	Bus string `yaml:"bus" json:"bus"`

	// I2CBus is the periph bus name; empty picks the first bus.
	I2CBus string `yaml:"i2c_bus" json:"i2c_bus"`

	// Address is the 7-bit I2C address of the panel.
	Address uint16 `yaml:"address" json:"address"`

	SerialPort string `yaml:"serial_port" json:"serial_port"`
	SerialBaud int    `yaml:"serial_baud" json:"serial_baud"`

	// Contrast, if set, overrides the contrast programmed at init.
	Contrast *int `yaml:"contrast,omitempty" json:"contrast,omitempty"`

	Rotate bool `yaml:"rotate" json:"rotate"`
	Invert bool `yaml:"invert" json:"invert"`
}

// Charger configures the battery charger on the I2C bus.
type Charger struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	I2CBus  string `yaml:"i2c_bus" json:"i2c_bus"`
	Address uint16 `yaml:"address" json:"address"`
}

// LightSensor configures the ambient light / proximity sensor.
type LightSensor struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	I2CBus  string `yaml:"i2c_bus" json:"i2c_bus"`
	Address uint16 `yaml:"address" json:"address"`
}

// ADC names the analog channels: Linux IIO raw value files, absolute or
// relative to /sys/bus/iio/devices. Empty names use the board pinout.
type ADC struct {
	VBat    string `yaml:"vbat" json:"vbat"`
	PCBTemp string `yaml:"pcb_temp" json:"pcb_temp"`
	MCUTemp string `yaml:"mcu_temp" json:"mcu_temp"`

	// Samples is the number of readings averaged for the input voltage.
	Samples int `yaml:"samples" json:"samples"`

	// SamplePause is the delay between two averaged readings (e.g. "50ms").
	SamplePause string `yaml:"sample_pause" json:"sample_pause"`
}

// Button maps a logical button name to a GPIO pin name.
type Button struct {
	Name string `yaml:"name" json:"name"`
	Pin  string `yaml:"pin" json:"pin"`
}

// Note is one tone of a buzzer melody.
type Note struct {
	FreqHz int `yaml:"freq_hz" json:"freq_hz"`
	Beats  int `yaml:"beats" json:"beats"`
}

// Buzzer configures the PWM speaker.
type Buzzer struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Pin     string `yaml:"pin" json:"pin"`

	// Melody replaces the start-up tune when non-empty.
	Melody []Note `yaml:"melody,omitempty" json:"melody,omitempty"`
}

// Screens configures the status screen loop.
type Screens struct {
	// Refresh is a cron-style schedule (robfig/cron "standard" syntax, with
	// descriptors such as "@every 10s").
	Refresh string `yaml:"refresh" json:"refresh"`

	// SplashDelay is how long each start-up screen stays up (e.g. "2s").
	SplashDelay string `yaml:"splash_delay" json:"splash_delay"`

	// Preview mirrors each frame: "none" (default), "terminal" or "bmp".
	Preview string `yaml:"preview" json:"preview"`

	// PreviewPath is the BMP file written in "bmp" mode.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`
}

// Config is the top-level application configuration.
type Config struct {
	// LogLevel is one of "debug", "info" (default), "warn", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Display     Display     `yaml:"display" json:"display"`
	Charger     Charger     `yaml:"charger" json:"charger"`
	LightSensor LightSensor `yaml:"light_sensor" json:"light_sensor"`
	ADC         ADC         `yaml:"adc" json:"adc"`

	// Buttons lists the watched buttons. Empty uses the board pinout.
	Buttons []Button `yaml:"buttons" json:"buttons"`

	Buzzer  Buzzer  `yaml:"buzzer" json:"buzzer"`
	Screens Screens `yaml:"screens" json:"screens"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Display: Display{
			Panel:      "128x64",
			Bus:        BusI2C,
			Address:    0x3C,
			SerialPort: "/dev/ttyUSB0",
			SerialBaud: 9600,
		},
		Charger: Charger{
			Enabled: true,
			Address: 0x6B,
		},
		LightSensor: LightSensor{
			Enabled: true,
			Address: 0x38,
		},
		ADC: ADC{
			Samples:     5,
			SamplePause: "50ms",
		},
		Buttons: []Button{},
		Buzzer: Buzzer{
			Enabled: true,
		},
		Screens: Screens{
			Refresh:     "@every 10s",
			SplashDelay: "2s",
			Preview:     PreviewNone,
			PreviewPath: "frame.bmp",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	switch c.Display.Panel {
	case "128x64", "128x32":
		// ok
	default:
		c.Display.Panel = "128x64"
	}
	switch c.Display.Bus {
	case BusI2C, BusSerial, BusEmulator:
		// ok
	default:
		// Unknown value; fall back to the plain I2C bus.
		c.Display.Bus = BusI2C
	}
	if c.Display.Address == 0 {
		c.Display.Address = 0x3C
	}
	if c.Display.SerialPort == "" {
		c.Display.SerialPort = "/dev/ttyUSB0"
	}
	if c.Display.SerialBaud <= 0 {
		c.Display.SerialBaud = 9600
	}
	if c.Display.Contrast != nil {
		v := min(max(*c.Display.Contrast, 0), 255)
		c.Display.Contrast = &v
	}

	if c.Charger.Address == 0 {
		c.Charger.Address = 0x6B
	}
	if c.LightSensor.Address == 0 {
		c.LightSensor.Address = 0x38
	}

	if c.ADC.Samples <= 0 {
		c.ADC.Samples = 5
	}
	if _, err := time.ParseDuration(c.ADC.SamplePause); err != nil {
		c.ADC.SamplePause = "50ms"
	}

	if c.Buttons == nil {
		c.Buttons = []Button{}
	}

	if c.Screens.Refresh == "" {
		c.Screens.Refresh = "@every 10s"
	}
	if _, err := time.ParseDuration(c.Screens.SplashDelay); err != nil {
		c.Screens.SplashDelay = "2s"
	}
	switch c.Screens.Preview {
	case PreviewNone, PreviewTerminal, PreviewBMP:
		// ok
	default:
		c.Screens.Preview = PreviewNone
	}
	if c.Screens.PreviewPath == "" {
		c.Screens.PreviewPath = "frame.bmp"
	}
}

// Pause returns SamplePause as a duration.
func (a ADC) Pause() time.Duration {
	d, err := time.ParseDuration(a.SamplePause)
	if err != nil {
		return 50 * time.Millisecond
	}
	return d
}

// Splash returns SplashDelay as a duration.
func (s Screens) Splash() time.Duration {
	d, err := time.ParseDuration(s.SplashDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".palx-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
