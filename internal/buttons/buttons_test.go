package buttons

import (
	"context"
	"io"
	"testing"
	"time"

	"palx/internal/log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func init() {
	log.SetOutput(io.Discard)
}

func newPin(name string) *gpiotest.Pin {
	return &gpiotest.Pin{N: name, EdgesChan: make(chan gpio.Level)}
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a button event")
	}
	return Event{}
}

func TestWatchConfiguresPins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPin("GPIO5")
	if _, err := Watch(ctx, map[string]gpio.PinIn{"boot1": p}); err != nil {
		t.Fatal(err)
	}
	if p.Pull() != gpio.PullUp {
		t.Errorf("pull = %v, want PullUp", p.Pull())
	}
	if p.Read() != gpio.High {
		t.Errorf("idle level = %v, want High", p.Read())
	}
}

func TestWatchDeliversPresses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boot := newPin("GPIO5")
	wake := newPin("GPIO13")
	events, err := Watch(ctx, map[string]gpio.PinIn{"boot1": boot, "wake": wake})
	if err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	wake.EdgesChan <- gpio.Low
	if ev := recv(t, events); ev.Name != "wake" || ev.At.Before(before) {
		t.Errorf("event = %+v", ev)
	}

	boot.EdgesChan <- gpio.Low
	if ev := recv(t, events); ev.Name != "boot1" {
		t.Errorf("event = %+v, want boot1", ev)
	}
}

func TestWatchDebounces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPin("GPIO6")
	events, err := Watch(ctx, map[string]gpio.PinIn{"diag": p})
	if err != nil {
		t.Fatal(err)
	}

	p.EdgesChan <- gpio.Low
	p.EdgesChan <- gpio.Low
	recv(t, events)
	select {
	case ev := <-events:
		t.Errorf("bounce delivered as %+v", ev)
	case <-time.After(debounce):
	}

	time.Sleep(debounce)
	p.EdgesChan <- gpio.Low
	recv(t, events)
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := Watch(ctx, map[string]gpio.PinIn{"wake": newPin("GPIO13")})
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestWatchConfigureError(t *testing.T) {
	// Edge detection needs EdgesChan on the fake pin.
	p := &gpiotest.Pin{N: "GPIO19"}
	if _, err := Watch(context.Background(), map[string]gpio.PinIn{"user": p}); err == nil {
		t.Error("Watch accepted a pin without edge support")
	}
}

func TestWatchNoPins(t *testing.T) {
	events, err := Watch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case _, ok := <-events:
		if ok {
			t.Error("event from no pins")
		}
	case <-time.After(time.Second):
		t.Fatal("channel for no pins not closed")
	}
}
