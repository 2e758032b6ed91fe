package oled

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFont is returned by NewCanvas for fonts whose cells are not
// 8 pixels wide; a glyph row has to fit one bitmap byte.
var ErrUnsupportedFont = errors.New("oled: font width must be 8")

// Canvas draws text onto a Framebuffer.
type Canvas struct {
	*Framebuffer
	font Font
}

// NewCanvas binds font to fb. A nil font selects Font8x8.
func NewCanvas(fb *Framebuffer, font Font) (*Canvas, error) {
	if font == nil {
		font = Font8x8
	}
	if font.Width() != 8 || font.Height() < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrUnsupportedFont, font.Width(), font.Height())
	}
	return &Canvas{Framebuffer: fb, font: font}, nil
}

func (c *Canvas) Font() Font { return c.font }

// TextBitmap lays the glyphs of text out as one row-major bitmap, one byte
// per rune per glyph row: row seg of rune i lands at index i+seg*n.
func (c *Canvas) TextBitmap(text string) []byte {
	runes := []rune(text)
	n := len(runes)
	h := c.font.Height()
	out := make([]byte, n*h)
	for i, r := range runes {
		g := c.font.Glyph(r)
		for seg := 0; seg < h && seg < len(g); seg++ {
			out[i+seg*n] = g[seg]
		}
	}
	return out
}

// DrawString renders text with its top-left corner at (x, y). With center
// set, the text is left-padded with spaces so that it sits in the middle of
// the buffer width at the given scale.
func (c *Canvas) DrawString(x, y int, text string, scale int, center bool) error {
	if center {
		if scale < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidScale, scale)
		}
		pad := (c.Width()/scale/c.font.Width() - len([]rune(text))) / 2
		if pad > 0 {
			text = strings.Repeat(" ", pad) + text
		}
	}
	bm := c.TextBitmap(text)
	return c.DrawBitmap(x, y, len([]rune(text)), c.font.Height(), bm, scale)
}

// ShowWrapped draws text over several lines. Scale 1 wraps every 16 runes,
// 10 pixels apart, for at most 6 lines. Scale 2 wraps every 8 runes, 16
// pixels apart, for at most 4 lines. Runes past the last line are dropped.
// Any other scale draws text on a single line.
func (c *Canvas) ShowWrapped(x, y int, text string, scale int) error {
	var chunk, step, maxLines int
	switch scale {
	case 1:
		chunk, step, maxLines = 16, 10, 6
	case 2:
		chunk, step, maxLines = 8, 16, 4
	default:
		return c.DrawString(x, y, text, scale, false)
	}

	runes := []rune(text)
	for line := 0; line < maxLines && len(runes) > 0; line++ {
		n := min(chunk, len(runes))
		if err := c.DrawString(x, y, string(runes[:n]), scale, false); err != nil {
			return err
		}
		runes = runes[n:]
		y += step
	}
	return nil
}

// WriteText draws text at a character cell position instead of pixels.
func (c *Canvas) WriteText(col, row int, text string, scale int, center bool) error {
	return c.DrawString(col*c.font.Width(), row*c.font.Height(), text, scale, center)
}
