package convert

import (
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Mono converts img to a 1 bit image in the OLED controller's page layout.
// The result starts at (0, 0) and has the size of img.
//
// A pixel is lit when Lit reports true for it.
func Mono(img image.Image) *image1bit.VerticalLSB {
	b := img.Bounds()
	m := image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), img, b.Min, draw.Src)
	return m
}

// Lit decides whether a pixel should be on for a monochrome panel, using
// image1bit's color model: anything not black or transparent is on, with
// the switch at half intensity of the brightest premultiplied channel.
func Lit(c color.Color) bool {
	return bool(image1bit.BitModel.Convert(c).(image1bit.Bit))
}
