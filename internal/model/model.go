package model

import "time"

// Charger is one snapshot of the battery charger's ADC and status.
type Charger struct {
	VBusMV   int     // input (VBUS) voltage in millivolts
	VBatMV   int     // battery voltage in millivolts
	DieTempC float64 // charger die temperature in °C

	// Status is the decoded charge state, e.g. "fast charge" or
	// "not charging".
	Status string
}

// Light is one ambient light / proximity reading.
type Light struct {
	Proximity uint16
	ALS0      uint16 // visible + infrared channel
	ALS1      uint16 // infrared channel
	Lux       float64
}

// Analog holds the board's own analog measurements.
type Analog struct {
	InputVoltage float64 // supply input in volts
	PCBTempC     float64
	MCUTempC     float64
}

// Readings is everything the status screens show for one frame. A nil
// pointer means the peripheral is missing or its read failed.
type Readings struct {
	Time    time.Time
	Analog  *Analog
	Charger *Charger
	Light   *Light
}
