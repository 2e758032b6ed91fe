// Package oled drives SH1106/SSD1306 class monochrome OLED panels.
//
// A Dev owns a page-packed framebuffer and pushes it to the panel over any
// byte sink: every packet passed to Write is one bus transaction, starting
// with a control byte (0x00 for commands, 0x40 for display data). Drawing
// never touches the bus; only Flush and the panel controls do.
//
// Dev is not safe for concurrent use.
package oled

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// RAMWidth is the column count of the controller RAM. The SH1106 has 132
// columns for a 128 pixel wide glass; both panel sizes use the full width.
const RAMWidth = 132

// DefaultAddress is the usual 7-bit I2C address of the panel.
const DefaultAddress = 0x3C

const (
	ctrlCommand = 0x00
	ctrlData    = 0x40

	cmdDisplayOff  = 0xAE
	cmdDisplayOn   = 0xAF
	cmdNormal      = 0xA6
	cmdInverse     = 0xA7
	cmdSegRemap0   = 0xA0
	cmdSegRemap1   = 0xA1
	cmdComScanInc  = 0xC0
	cmdComScanDec  = 0xC8
	cmdSetContrast = 0x81
	cmdPageAddr    = 0xB0
)

// Panel selects the glass geometry.
type Panel int

const (
	Panel128x64 Panel = iota
	Panel128x32
)

// ParsePanel accepts "128x64" or "128x32".
func ParsePanel(s string) (Panel, error) {
	switch s {
	case "128x64", "":
		return Panel128x64, nil
	case "128x32":
		return Panel128x32, nil
	default:
		return Panel128x64, fmt.Errorf("oled: unknown panel %q", s)
	}
}

func (p Panel) String() string {
	if p == Panel128x32 {
		return "128x32"
	}
	return "128x64"
}

// Height returns the panel height in pixels.
func (p Panel) Height() int {
	if p == Panel128x32 {
		return 32
	}
	return 64
}

func (p Panel) initSequence() []byte {
	mux, comPins, contrast := byte(0x3F), byte(0x12), byte(0xCF)
	if p == Panel128x32 {
		mux, comPins, contrast = 0x1F, 0x02, 0x8F
	}
	return []byte{
		ctrlCommand,
		cmdDisplayOff,
		0xD5, 0x80, // clock divide ratio / oscillator
		0xA8, mux,  // multiplex ratio
		0xD3, 0x00, // display offset
		0x40,       // start line 0
		0x8D, 0x14, // charge pump on
		0x20, 0x00, // memory addressing mode
		cmdSegRemap1,
		cmdComScanDec,
		0xDA, comPins,
		cmdSetContrast, contrast,
		0xD9, 0xF1, // pre-charge period
		0xDB, 0x40, // VCOMH deselect level
		0xA4,       // output follows RAM
		cmdNormal,
		cmdDisplayOn,
	}
}

// ErrIO is matched by every *IOError.
var ErrIO = errors.New("oled: bus write failed")

// IOError reports a failed write to the byte sink. The framebuffer is left
// untouched; calling Flush again resends the whole frame.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("oled: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// Opts configures a Dev. A nil *Opts means a 128x64 panel with Font8x8.
type Opts struct {
	Panel Panel
	Font  Font
}

// Dev is an OLED panel with its framebuffer. Drawing methods come from the
// embedded Canvas.
type Dev struct {
	*Canvas

	w        io.Writer
	panel    Panel
	pageCmd  [4]byte
	pageData []byte
	halted   bool
}

var _ display.Drawer = (*Dev)(nil)

// New initializes the panel behind w, then blanks it.
func New(w io.Writer, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{w: w, panel: opts.Panel}
	if _, err := w.Write(opts.Panel.initSequence()); err != nil {
		return nil, &IOError{Op: "init", Err: err}
	}

	fb, err := NewFramebuffer(RAMWidth, opts.Panel.Height())
	if err != nil {
		return nil, err
	}
	c, err := NewCanvas(fb, opts.Font)
	if err != nil {
		return nil, err
	}
	d.Canvas = c
	d.pageCmd = [4]byte{ctrlCommand, cmdPageAddr, 0x00, 0x10}
	d.pageData = make([]byte, RAMWidth+1)
	d.pageData[0] = ctrlData

	if err := d.ClearScreen(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewI2C returns a Dev talking to the panel at addr on b.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if addr == 0 {
		addr = DefaultAddress
	}
	return New(&i2c.Dev{Bus: b, Addr: addr}, opts)
}

func (d *Dev) Panel() Panel { return d.panel }

func (d *Dev) String() string {
	return fmt.Sprintf("oled.Dev{%dx%d}", d.Width(), d.Height())
}

// Flush copies the whole framebuffer to the panel, one page at a time.
func (d *Dev) Flush() error {
	if d.halted {
		if err := d.command(cmdDisplayOn); err != nil {
			return err
		}
		d.halted = false
	}
	for i := 0; i < d.Pages(); i++ {
		d.pageCmd[1] = cmdPageAddr + byte(i)
		if _, err := d.w.Write(d.pageCmd[:]); err != nil {
			return &IOError{Op: fmt.Sprintf("flush page %d", i), Err: err}
		}
		copy(d.pageData[1:], d.Page(i))
		if _, err := d.w.Write(d.pageData); err != nil {
			return &IOError{Op: fmt.Sprintf("flush page %d data", i), Err: err}
		}
	}
	return nil
}

// ClearScreen blanks the framebuffer and the panel.
func (d *Dev) ClearScreen() error {
	d.Clear()
	return d.Flush()
}

// DisplayText draws text wrapped over several lines and flushes. The
// framebuffer is not cleared first.
func (d *Dev) DisplayText(text string, x, y, scale int) error {
	if err := d.ShowWrapped(x, y, text, scale); err != nil {
		return err
	}
	return d.Flush()
}

// ShowText replaces the screen content with a single line of text.
func (d *Dev) ShowText(text string, x, y, scale int) error {
	d.Clear()
	if err := d.DrawString(x, y, text, scale, false); err != nil {
		return err
	}
	return d.Flush()
}

// SetPower switches the panel on or off. Framebuffer content is kept.
func (d *Dev) SetPower(on bool) error {
	if on {
		if err := d.command(cmdDisplayOn); err != nil {
			return err
		}
		d.halted = false
		return nil
	}
	if err := d.command(cmdDisplayOff); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// Invert swaps lit and dark pixels in hardware.
func (d *Dev) Invert(on bool) error {
	if on {
		return d.command(cmdInverse)
	}
	return d.command(cmdNormal)
}

// Rotate turns the picture by 180 degrees. Off is the power-on orientation
// programmed by the init sequence.
func (d *Dev) Rotate(on bool) error {
	if on {
		return d.command(cmdSegRemap0, cmdComScanInc)
	}
	return d.command(cmdSegRemap1, cmdComScanDec)
}

func (d *Dev) SetContrast(level byte) error {
	return d.command(cmdSetContrast, level)
}

// Halt turns the panel off. The next Flush turns it back on.
func (d *Dev) Halt() error {
	return d.SetPower(false)
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model { return image1bit.BitModel }

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle { return d.Framebuffer.Bounds() }

// Draw implements display.Drawer. src is converted with image1bit's color
// model, where anything not black or transparent is lit; the result is
// flushed right away.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if dst.Intersect(d.Bounds()).Empty() {
		return nil
	}
	draw.Draw(d.VerticalLSB, dst, src, sp, draw.Src)
	return d.Flush()
}

func (d *Dev) command(cmds ...byte) error {
	p := make([]byte, 0, len(cmds)+1)
	p = append(p, ctrlCommand)
	p = append(p, cmds...)
	if _, err := d.w.Write(p); err != nil {
		return &IOError{Op: fmt.Sprintf("command %#02x", cmds[0]), Err: err}
	}
	return nil
}
