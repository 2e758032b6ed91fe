// Package preview shows OLED frames without the hardware: an emulated
// controller that decodes the bus traffic, a text renderer for terminals and
// a BMP dump.
package preview

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// argCount lists the commands that take parameter bytes.
var argCount = map[byte]int{
	0x20: 1, // memory addressing mode
	0x81: 1, // contrast
	0x8D: 1, // charge pump
	0xA8: 1, // multiplex ratio
	0xD3: 1, // display offset
	0xD5: 1, // clock divide
	0xD9: 1, // pre-charge period
	0xDA: 1, // COM pins
	0xDB: 1, // VCOMH level
}

// Emulator is an io.Writer that behaves like the panel controller: each Write
// is one bus packet, either commands (control byte 0x00) or display data
// (control byte 0x40). The decoded display RAM is readable as an image.
type Emulator struct {
	width int
	pages int
	ram   *image1bit.VerticalLSB

	page, col int
	on        bool
	inverted  bool
	contrast  byte
	commands  int
}

// NewEmulator returns a controller with width columns and height/8 pages.
func NewEmulator(width, height int) *Emulator {
	pages := height / 8
	return &Emulator{
		width:    width,
		pages:    pages,
		ram:      image1bit.NewVerticalLSB(image.Rect(0, 0, width, pages*8)),
		contrast: 0x7F,
	}
}

// Write decodes one packet.
func (e *Emulator) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	switch p[0] {
	case 0x00:
		if err := e.command(p[1:]); err != nil {
			return 0, err
		}
	case 0x40:
		for _, b := range p[1:] {
			if e.page < e.pages {
				e.ram.Pix[e.page*e.width+e.col] = b
			}
			e.col = (e.col + 1) % e.width
		}
	default:
		return 0, fmt.Errorf("preview: unknown control byte %#02x", p[0])
	}
	return len(p), nil
}

func (e *Emulator) command(cmds []byte) error {
	for i := 0; i < len(cmds); i++ {
		c := cmds[i]
		e.commands++
		if n := argCount[c]; n > 0 {
			if i+n >= len(cmds) {
				return fmt.Errorf("preview: command %#02x is missing its argument", c)
			}
			if c == 0x81 {
				e.contrast = cmds[i+1]
			}
			i += n
			continue
		}
		switch {
		case c == 0xAE:
			e.on = false
		case c == 0xAF:
			e.on = true
		case c == 0xA6:
			e.inverted = false
		case c == 0xA7:
			e.inverted = true
		case c >= 0xB0 && c <= 0xB7:
			e.page = int(c - 0xB0)
		case c <= 0x0F:
			e.col = (e.col &^ 0x0F) | int(c)
		case c >= 0x10 && c <= 0x1F:
			e.col = (e.col & 0x0F) | int(c-0x10)<<4
		}
		// Start line, remap, scan direction and A4/A5 do not change the
		// picture of a lit/unlit preview.
	}
	if e.col >= e.width {
		e.col %= e.width
	}
	return nil
}

func (e *Emulator) On() bool       { return e.on }
func (e *Emulator) Inverted() bool { return e.inverted }
func (e *Emulator) Contrast() byte { return e.contrast }

// Commands returns how many command bytes were decoded, arguments excluded.
func (e *Emulator) Commands() int { return e.commands }

// Page returns the display RAM of page i.
func (e *Emulator) Page(i int) []byte {
	return e.ram.Pix[i*e.width : (i+1)*e.width]
}

// Lit reports whether the panel shows (x, y) lit, taking power and
// inversion into account.
func (e *Emulator) Lit(x, y int) bool {
	if !e.on || !image.Pt(x, y).In(e.ram.Rect) {
		return false
	}
	return bool(e.ram.BitAt(x, y)) != e.inverted
}

// Close implements io.Closer.
func (e *Emulator) Close() error { return nil }

func (e *Emulator) ColorModel() color.Model { return image1bit.BitModel }

func (e *Emulator) Bounds() image.Rectangle { return e.ram.Rect }

// At implements image.Image with what the panel shows.
func (e *Emulator) At(x, y int) color.Color {
	return image1bit.Bit(e.Lit(x, y))
}
