package oled

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed drawing requests. Nothing
	// is drawn when it is returned.
	ErrInvalidArgument = errors.New("oled: invalid argument")

	ErrBitmapSize   = fmt.Errorf("%w: bitmap length does not match dimensions", ErrInvalidArgument)
	ErrInvalidScale = fmt.Errorf("%w: scale must be at least 1", ErrInvalidArgument)
)

// DrawBitmap blits a row-major bitmap of widthCols bytes by heightRows rows
// with its top-left corner at (x, y). Each byte carries 8 horizontal pixels,
// bit 0 leftmost. Set bits light pixels and clear bits darken them.
//
// With scale > 1 every source pixel becomes a filled scale x scale block at
// ((x+8c+p)*scale, (y/scale+r)*scale).
func (f *Framebuffer) DrawBitmap(x, y, widthCols, heightRows int, bitmap []byte, scale int) error {
	if widthCols*heightRows != len(bitmap) {
		return fmt.Errorf("%w: got %d bytes for %dx%d", ErrBitmapSize, len(bitmap), widthCols, heightRows)
	}
	if scale < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidScale, scale)
	}

	for r := 0; r < heightRows; r++ {
		for c := 0; c < widthCols; c++ {
			b := bitmap[r*widthCols+c]
			for p := 0; p < 8; p++ {
				on := b&(1<<uint(p)) != 0
				px := x + 8*c + p
				if scale == 1 {
					f.SetPixel(px, y+r, on)
					continue
				}
				f.DrawFilledRectangle(px*scale, (y/scale+r)*scale, scale, scale, on)
			}
		}
	}
	return nil
}
