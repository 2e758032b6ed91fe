package charger

import (
	"context"
	"testing"

	"palx/internal/model"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

// initOps is the register traffic of New starting from power-on values.
var initOps = []i2ctest.IO{
	{Addr: DefaultAddress, W: []byte{0x10}, R: []byte{0x85}},
	{Addr: DefaultAddress, W: []byte{0x10, 0x80}},
	{Addr: DefaultAddress, W: []byte{0x17}, R: []byte{0x7A}},
	{Addr: DefaultAddress, W: []byte{0x17, 0x72}},
	{Addr: DefaultAddress, W: []byte{0x2E}, R: []byte{0x70}},
	{Addr: DefaultAddress, W: []byte{0x2E, 0xB0}},
}

func TestNewConfigures(t *testing.T) {
	bus := &i2ctest.Playback{Ops: initOps, DontPanic: true}
	if _, err := New(bus, 0); err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name   string
		status byte
		tdie   []byte
		want   model.Charger
	}{
		{
			name:   "fast charge",
			status: 0x60,
			tdie:   []byte{0x00, 0x50},
			want:   model.Charger{VBusMV: 5000, VBatMV: 4000, DieTempC: 40, Status: "fast charge"},
		},
		{
			name:   "done below zero",
			status: 0xE3,
			tdie:   []byte{0xFF, 0xFB},
			want:   model.Charger{VBusMV: 5000, VBatMV: 4000, DieTempC: -2.5, Status: "charge done"},
		},
		{
			name:   "not charging",
			status: 0x1F,
			tdie:   []byte{0x00, 0x01},
			want:   model.Charger{VBusMV: 5000, VBatMV: 4000, DieTempC: 0.5, Status: "not charging"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := append([]i2ctest.IO{}, initOps...)
			ops = append(ops,
				i2ctest.IO{Addr: DefaultAddress, W: []byte{0x35}, R: []byte{0x13, 0x88}},
				i2ctest.IO{Addr: DefaultAddress, W: []byte{0x3B}, R: []byte{0x0F, 0xA0}},
				i2ctest.IO{Addr: DefaultAddress, W: []byte{0x41}, R: tt.tdie},
				i2ctest.IO{Addr: DefaultAddress, W: []byte{0x1C}, R: []byte{tt.status}},
			)
			bus := &i2ctest.Playback{Ops: ops, DontPanic: true}

			c, err := New(bus, DefaultAddress)
			if err != nil {
				t.Fatal(err)
			}
			got, err := c.Read(context.Background())
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got != tt.want {
				t.Errorf("Read() = %+v, want %+v", got, tt.want)
			}
			if err := bus.Close(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestReadError(t *testing.T) {
	ops := append([]i2ctest.IO{}, initOps...)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	c, err := New(bus, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Read(context.Background()); err == nil {
		t.Error("Read succeeded with no bus traffic scripted")
	}
}

func TestNewError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := New(bus, DefaultAddress); err == nil {
		t.Error("New succeeded on a silent bus")
	}
}

func TestMock(t *testing.T) {
	r := NewMock()
	for i := 0; i < 20; i++ {
		got, err := r.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got.VBatMV < 3700 || got.VBatMV >= 4200 || got.VBusMV < 12000 {
			t.Errorf("mock reading out of range: %+v", got)
		}
	}
}

func TestString(t *testing.T) {
	bus := &i2ctest.Playback{Ops: initOps, DontPanic: true}
	c, err := New(bus, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "bq2579x@0x6b" {
		t.Errorf("String() = %q", got)
	}
}

func TestDefault(t *testing.T) {
	ops := append([]i2ctest.IO{}, initOps...)
	ops = append(ops,
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x35}, R: []byte{0x13, 0x88}},
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x3B}, R: []byte{0x0F, 0xA0}},
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x41}, R: []byte{0x00, 0x50}},
		i2ctest.IO{Addr: DefaultAddress, W: []byte{0x1C}, R: []byte{0x00}},
	)
	r, err := Default(context.Background(), &i2ctest.Playback{Ops: ops, DontPanic: true}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*BQ2579x); !ok {
		t.Errorf("Default returned %T, want *BQ2579x", r)
	}

	r, err = Default(context.Background(), &i2ctest.Playback{DontPanic: true}, 0)
	if err == nil {
		t.Error("fallback did not report why")
	}
	if _, ok := r.(*mockReader); !ok {
		t.Errorf("fallback returned %T, want the mock", r)
	}
}
