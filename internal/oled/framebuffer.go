package oled

import (
	"fmt"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Framebuffer is a 1 bit per pixel buffer in the controller's page layout:
// byte x+page*width holds column x of that page and bit k of it is row
// page*8+k. It is an image1bit.VerticalLSB, so it can be used with
// image/draw directly.
//
// Coordinates are expected to be non-negative. Values past the right or
// bottom edge are ignored.
type Framebuffer struct {
	*image1bit.VerticalLSB

	width  int
	height int
	pages  int
}

// NewFramebuffer returns a cleared buffer. height must be a positive multiple
// of 8.
func NewFramebuffer(width, height int) (*Framebuffer, error) {
	if width <= 0 {
		return nil, fmt.Errorf("oled: width %d must be positive", width)
	}
	if height <= 0 || height%8 != 0 {
		return nil, fmt.Errorf("oled: height %d must be a positive multiple of 8", height)
	}
	return &Framebuffer{
		VerticalLSB: image1bit.NewVerticalLSB(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		pages:       height / 8,
	}, nil
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }
func (f *Framebuffer) Pages() int  { return f.pages }

// Bytes returns the backing buffer. It is not a copy.
func (f *Framebuffer) Bytes() []byte { return f.Pix }

// Page returns the width bytes of page i.
func (f *Framebuffer) Page(i int) []byte {
	return f.Pix[i*f.Stride : (i+1)*f.Stride]
}

// SetPixel turns the pixel at (x, y) on or off.
func (f *Framebuffer) SetPixel(x, y int, on bool) {
	if x >= f.width || y >= f.height {
		return
	}
	f.SetBit(x, y, image1bit.Bit(on))
}

// Pixel reports whether (x, y) is lit. Out of range pixels are dark.
func (f *Framebuffer) Pixel(x, y int) bool {
	return bool(f.BitAt(x, y))
}

func (f *Framebuffer) Clear() {
	clear(f.Pix)
}
