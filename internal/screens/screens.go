// Package screens runs the status display: start-up splash screens, then a
// set of pages refreshed on a cron schedule and cycled by button presses.
package screens

import (
	"context"
	"fmt"
	"image"
	"time"

	"palx/internal/adc"
	"palx/internal/buttons"
	"palx/internal/config"
	"palx/internal/log"
	"palx/internal/model"
	"palx/internal/oled"

	"github.com/robfig/cron/v3"
)

// Page identifies one status page.
type Page int

const (
	PageTemperatures Page = iota
	PagePower
	PageLight

	pageCount
)

func (p Page) String() string {
	switch p {
	case PageTemperatures:
		return "temperatures"
	case PagePower:
		return "power"
	case PageLight:
		return "light"
	}
	return fmt.Sprintf("Page(%d)", int(p))
}

// ChargerReader is satisfied by charger.Reader.
type ChargerReader interface {
	Read(ctx context.Context) (model.Charger, error)
}

// AnalogReader is satisfied by *adc.Monitor.
type AnalogReader interface {
	Read(ctx context.Context) (model.Analog, error)
}

// LightReader is satisfied by *lightsensor.Dev.
type LightReader interface {
	Read() (model.Light, error)
}

// Layout in pixels.
const (
	marginX    = 2
	titleY     = 2
	firstLineY = 14
	lineStep   = 10
	na         = "n/a"
)

// Loop draws on Display. Peripheral readers and Buttons are optional.
type Loop struct {
	Display *oled.Dev

	Charger ChargerReader
	Analog  AnalogReader
	Light   LightReader
	Buttons <-chan buttons.Event

	// Schedule decides when the readings are refreshed.
	Schedule cron.Schedule

	// SplashDelay is how long each start-up screen stays up.
	SplashDelay time.Duration

	// Preview, if set, gets the framebuffer after every flush.
	Preview func(image.Image) error

	page Page
	last model.Readings
	now  func() time.Time
}

// New returns a Loop for d configured from cfg.
func New(d *oled.Dev, cfg config.Screens) (*Loop, error) {
	sched, err := cron.ParseStandard(cfg.Refresh)
	if err != nil {
		return nil, fmt.Errorf("screens: refresh %q: %w", cfg.Refresh, err)
	}
	return &Loop{
		Display:     d,
		Schedule:    sched,
		SplashDelay: cfg.Splash(),
		now:         time.Now,
	}, nil
}

// Page returns the page currently shown.
func (l *Loop) Page() Page { return l.page }

// Splash shows the two start-up screens, SplashDelay apart. The second one
// stays up until the next frame.
func (l *Loop) Splash(ctx context.Context) error {
	d := l.Display
	mid := d.Height()/2 + marginX

	d.Clear()
	if err := d.DrawString(marginX, titleY, "PalX", 2, true); err != nil {
		return err
	}
	if err := d.DrawString(marginX, mid, "status display", 1, true); err != nil {
		return err
	}
	if err := l.flush(); err != nil {
		return err
	}

	t := time.NewTimer(l.SplashDelay)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C:
	}

	d.Clear()
	if err := d.DrawString(marginX, titleY, "Orgpal", 2, true); err != nil {
		return err
	}
	if err := d.DrawString(marginX, mid, "PalX", 1, true); err != nil {
		return err
	}
	if d.Height() >= 64 {
		if err := d.DrawLogo(0, d.Height()-8); err != nil {
			return err
		}
	}
	return l.flush()
}

// Read takes one reading from every present peripheral. Failed reads are
// logged and left nil.
func (l *Loop) Read(ctx context.Context) model.Readings {
	r := model.Readings{Time: l.clock()}
	if l.Analog != nil {
		if a, err := l.Analog.Read(ctx); err != nil {
			log.Warn("screens: analog read failed", "error", err.Error())
		} else {
			r.Analog = &a
		}
	}
	if l.Charger != nil {
		if c, err := l.Charger.Read(ctx); err != nil {
			log.Warn("screens: charger read failed", "error", err.Error())
		} else {
			r.Charger = &c
		}
	}
	if l.Light != nil {
		if lt, err := l.Light.Read(); err != nil {
			log.Warn("screens: light read failed", "error", err.Error())
		} else {
			r.Light = &lt
		}
	}
	return r
}

// Once reads the peripherals and draws the current page.
func (l *Loop) Once(ctx context.Context) error {
	l.last = l.Read(ctx)
	return l.Draw(l.last)
}

// Draw renders the current page for r and flushes it.
func (l *Loop) Draw(r model.Readings) error {
	d := l.Display
	lines := Lines(l.page, r)

	d.Clear()
	if err := d.DrawString(marginX, titleY, lines[0], 1, false); err != nil {
		return err
	}
	for i, s := range lines[1:] {
		y := firstLineY + i*lineStep
		if y+d.Font().Height() > d.Height() {
			break
		}
		if err := d.DrawString(marginX, y, s, 1, false); err != nil {
			return err
		}
	}
	return l.flush()
}

// Run draws a first frame, then refreshes on Schedule and moves to the next
// page on every button press until ctx is done. Button presses do not move
// the next refresh.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Once(ctx); err != nil {
		log.Error("screens: draw failed", err, "page", l.page.String())
	}

	// A schedule with no next activation only reacts to buttons.
	next := l.nextRefresh()
	btns := l.Buttons
	for {
		var tick <-chan time.Time
		var timer *time.Timer
		if !next.IsZero() {
			timer = time.NewTimer(next.Sub(l.clock()))
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			log.Info("screens: loop stopped")
			return nil

		case ev, ok := <-btns:
			stopTimer(timer)
			if !ok {
				btns = nil
				continue
			}
			l.page = (l.page + 1) % pageCount
			log.Debug("screens: next page", "button", ev.Name, "page", l.page.String())
			if err := l.Draw(l.last); err != nil {
				log.Error("screens: draw failed", err, "page", l.page.String())
			}

		case <-tick:
			if err := l.Once(ctx); err != nil {
				log.Error("screens: draw failed", err, "page", l.page.String())
			}
			next = l.nextRefresh()
		}
	}
}

func (l *Loop) nextRefresh() time.Time {
	if l.Schedule == nil {
		return time.Time{}
	}
	return l.Schedule.Next(l.clock())
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (l *Loop) flush() error {
	if err := l.Display.Flush(); err != nil {
		return err
	}
	if l.Preview != nil {
		if err := l.Preview(l.Display.Framebuffer); err != nil {
			log.Warn("screens: preview failed", "error", err.Error())
		}
	}
	return nil
}

func (l *Loop) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}

// Lines returns the title and the text lines of page p for r. Missing
// readings show as "n/a".
func Lines(p Page, r model.Readings) []string {
	switch p {
	case PagePower:
		in, vbus, vbat, status := na, na, na, na
		if r.Analog != nil {
			in = fmt.Sprintf("%.2fV", r.Analog.InputVoltage)
		}
		if c := r.Charger; c != nil {
			vbus = fmt.Sprintf("%.2fV", float64(c.VBusMV)/1000)
			vbat = fmt.Sprintf("%.2fV", float64(c.VBatMV)/1000)
			status = c.Status
		}
		return []string{
			"Power:",
			"in:   " + in,
			"vbus: " + vbus,
			"vbat: " + vbat,
			status,
		}

	case PageLight:
		lux, ps, als := na, na, na
		if lt := r.Light; lt != nil {
			lux = fmt.Sprintf("%.1f", lt.Lux)
			ps = fmt.Sprint(lt.Proximity)
			als = fmt.Sprintf("%d/%d", lt.ALS0, lt.ALS1)
		}
		return []string{
			"Light:",
			"lux:  " + lux,
			"prox: " + ps,
			"als:  " + als,
		}

	default:
		pcb, mcu, chg := na, na, na
		if a := r.Analog; a != nil {
			pcb = temperature(a.PCBTempC)
			mcu = temperature(a.MCUTempC)
		}
		if c := r.Charger; c != nil {
			chg = temperature(c.DieTempC)
		}
		return []string{
			"Temperatures:",
			"pcb: " + pcb,
			"mcu: " + mcu,
			"chg: " + chg,
		}
	}
}

func temperature(c float64) string {
	return fmt.Sprintf("%.1fC/%.0fF", c, adc.CelsiusToFahrenheit(c))
}
