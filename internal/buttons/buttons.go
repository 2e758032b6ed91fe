// Package buttons turns active-low GPIO buttons into a stream of press
// events.
package buttons

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"palx/internal/log"

	"periph.io/x/conn/v3/gpio"
)

// Event is one button press.
type Event struct {
	Name string
	At   time.Time
}

const (
	// pollTimeout bounds how long a watcher blocks before checking ctx.
	pollTimeout = 200 * time.Millisecond

	// Edges closer together than this are contact bounce.
	debounce = 50 * time.Millisecond
)

// Watch configures every pin as a pulled-up input with falling-edge
// detection and reports presses on the returned channel until ctx is done.
// The channel is closed once every watcher has stopped. Events are dropped
// while the consumer is not receiving.
func Watch(ctx context.Context, pins map[string]gpio.PinIn) (<-chan Event, error) {
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := pins[name].In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("buttons: configure %s: %w", name, err)
		}
	}

	events := make(chan Event, len(pins))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string, p gpio.PinIn) {
			defer wg.Done()
			watch(ctx, name, p, events)
		}(name, pins[name])
	}
	go func() {
		wg.Wait()
		close(events)
	}()

	log.Info("buttons: watching", "count", len(names))
	return events, nil
}

func watch(ctx context.Context, name string, p gpio.PinIn, events chan<- Event) {
	var last time.Time
	for ctx.Err() == nil {
		if !p.WaitForEdge(pollTimeout) {
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < debounce {
			continue
		}
		last = now

		log.Debug("buttons: pressed", "button", name)
		select {
		case events <- Event{Name: name, At: now}:
		case <-ctx.Done():
			return
		default:
			log.Debug("buttons: event dropped", "button", name)
		}
	}
}
