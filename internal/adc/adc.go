// Package adc turns the board's analog channels into engineering values.
package adc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"palx/internal/model"

	"periph.io/x/conn/v3/analog"
)

const (
	refMillivolts = 3300
	maxCount      = 4095

	// The input divider gives 4 mV per ADC millivolt; the offset trims the
	// drop across the protection diode.
	vinPerMillivolt = 0.004
	vinOffset       = 0.25
)

// Channel is one analog input. analog.PinADC satisfies it.
type Channel interface {
	Read() (analog.Sample, error)
}

// Average reads n samples from ch, sleeping pause between two reads, and
// returns the integer mean of their raw counts.
func Average(ctx context.Context, ch Channel, n int, pause time.Duration) (int32, error) {
	if n <= 0 {
		return 0, fmt.Errorf("adc: sample count %d must be positive", n)
	}
	var sum int64
	for i := 0; i < n; i++ {
		if i > 0 && pause > 0 {
			t := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return 0, ctx.Err()
			case <-t.C:
			}
		}
		s, err := ch.Read()
		if err != nil {
			return 0, fmt.Errorf("adc: read sample %d: %w", i, err)
		}
		sum += int64(s.Raw)
	}
	return int32(sum / int64(n)), nil
}

// millivolts converts a raw count to millivolts at the pin, truncating.
func millivolts(raw int32) int32 {
	return refMillivolts * raw / maxCount
}

// InputVoltage returns the unregulated supply input in volts for a raw
// count of the VBAT divider.
func InputVoltage(raw int32) float64 {
	return float64(millivolts(raw))*vinPerMillivolt + vinOffset
}

// PCBTemperature returns the board temperature in °C for a raw count of the
// LMT87 sensor, using the datasheet's parabolic transfer function.
func PCBTemperature(raw int32) float64 {
	mv := float64(millivolts(raw))
	return (13.582-math.Sqrt(184.470724+0.01732*(2230.8-mv)))/-0.00866 + 30
}

// MCUTemperature returns the MCU die temperature in °C. The channel reports
// hundredths of a degree.
func MCUTemperature(raw int32) float64 {
	return float64(raw) / 100
}

// CelsiusToFahrenheit converts c to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return 9.0/5.0*c + 32
}

// Monitor samples the three board channels.
type Monitor struct {
	VBat    Channel
	PCBTemp Channel
	MCUTemp Channel

	Samples int           // averaged VBAT reads
	Pause   time.Duration // between two VBAT reads
}

var errNoChannel = errors.New("adc: channel not configured")

// Read takes one reading of every channel.
func (m *Monitor) Read(ctx context.Context) (model.Analog, error) {
	if m.VBat == nil || m.PCBTemp == nil || m.MCUTemp == nil {
		return model.Analog{}, errNoChannel
	}

	vbat, err := Average(ctx, m.VBat, m.Samples, m.Pause)
	if err != nil {
		return model.Analog{}, err
	}
	pcb, err := m.PCBTemp.Read()
	if err != nil {
		return model.Analog{}, fmt.Errorf("adc: read pcb temperature: %w", err)
	}
	mcu, err := m.MCUTemp.Read()
	if err != nil {
		return model.Analog{}, fmt.Errorf("adc: read mcu temperature: %w", err)
	}

	return model.Analog{
		InputVoltage: InputVoltage(vbat),
		PCBTempC:     PCBTemperature(pcb.Raw),
		MCUTempC:     MCUTemperature(mcu.Raw),
	}, nil
}
