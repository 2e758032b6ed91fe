// Package buzzer plays simple melodies on a PWM-driven piezo speaker.
package buzzer

import (
	"context"
	"fmt"
	"time"

	"palx/internal/config"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Note is one tone. Beats scales both the tone and the silence after it.
type Note struct {
	Freq  physic.Frequency
	Beats int
}

// DefaultMelody is the start-up tune.
var DefaultMelody = []Note{
	{330 * physic.Hertz, 8},
	{330 * physic.Hertz, 4},
	{330 * physic.Hertz, 4},
	{262 * physic.Hertz, 8},
	{330 * physic.Hertz, 4},
	{392 * physic.Hertz, 2},
}

const (
	defaultBeat = 40 * time.Millisecond
	defaultRest = 5 * time.Millisecond
)

// Melody converts configured notes, falling back to DefaultMelody when
// notes is empty. Notes with a non-positive frequency or length are skipped.
func Melody(notes []config.Note) []Note {
	if len(notes) == 0 {
		return DefaultMelody
	}
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.FreqHz <= 0 || n.Beats <= 0 {
			continue
		}
		out = append(out, Note{Freq: physic.Frequency(n.FreqHz) * physic.Hertz, Beats: n.Beats})
	}
	return out
}

// Player drives one speaker pin.
type Player struct {
	Pin  gpio.PinOut
	Beat time.Duration // tone length per beat
	Rest time.Duration // silence per beat
}

// Play runs melody on pin with the board's timing.
func Play(ctx context.Context, pin gpio.PinOut, melody []Note) error {
	p := &Player{Pin: pin, Beat: defaultBeat, Rest: defaultRest}
	return p.Play(ctx, melody)
}

// Play blocks until melody has finished or ctx is done. The piezo is
// driven at twice the note frequency with a 50% duty cycle. The pin is left
// low on return.
func (p *Player) Play(ctx context.Context, melody []Note) error {
	defer p.Pin.Out(gpio.Low)

	for i, n := range melody {
		if err := p.Pin.PWM(gpio.DutyHalf, 2*n.Freq); err != nil {
			return fmt.Errorf("buzzer: note %d: %w", i, err)
		}
		if err := sleep(ctx, time.Duration(n.Beats)*p.Beat); err != nil {
			return err
		}
		if err := p.Pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("buzzer: note %d: %w", i, err)
		}
		if err := sleep(ctx, time.Duration(n.Beats)*p.Rest); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
