package adc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/analog"
)

// IIODir is where relative channel names are looked up.
const IIODir = "/sys/bus/iio/devices"

// Sysfs is a Linux IIO channel read through its raw value file, e.g.
// iio:device0/in_voltage0_raw.
type Sysfs struct {
	path string
}

// OpenSysfs resolves name against IIODir unless it is absolute and checks
// that the file exists.
func OpenSysfs(name string) (*Sysfs, error) {
	if name == "" {
		return nil, errors.New("adc: empty channel name")
	}
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(IIODir, name)
	}
	if _, err := os.Stat(p); err != nil {
		return nil, fmt.Errorf("adc: open channel: %w", err)
	}
	return &Sysfs{path: p}, nil
}

func (s *Sysfs) String() string { return s.path }

// Read implements Channel. Only Raw is set.
func (s *Sysfs) Read() (analog.Sample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return analog.Sample{}, fmt.Errorf("adc: read %s: %w", s.path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return analog.Sample{}, fmt.Errorf("adc: parse %s: %w", s.path, err)
	}
	return analog.Sample{Raw: int32(v)}, nil
}
