package convert

import (
	"image"
	"image/color"
	"testing"
)

func TestLit(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want bool
	}{
		{"white", color.White, true},
		{"black", color.Black, false},
		{"transparent white", color.NRGBA{R: 255, G: 255, B: 255, A: 10}, false},
		{"mid gray", color.Gray{Y: 0x80}, true},
		{"dark gray", color.Gray{Y: 0x7F}, false},
		{"pure red", color.NRGBA{R: 255, A: 255}, true},
		{"dim blue", color.NRGBA{B: 0x70, A: 255}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lit(tt.c); got != tt.want {
				t.Errorf("Lit(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}

func TestMonoLayout(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 16))
	img.Set(0, 0, color.White)
	img.Set(3, 7, color.White)
	img.Set(1, 9, color.White)

	m := Mono(img)
	want := []byte{
		0x01, 0x00, 0x00, 0x80, // page 0
		0x00, 0x02, 0x00, 0x00, // page 1
	}
	if string(m.Pix) != string(want) {
		t.Errorf("Mono = % x, want % x", m.Pix, want)
	}
}

func TestMonoOffsetImage(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 7, 7))
	img.SetGray(5, 5, color.Gray{Y: 0xFF})
	img.SetGray(6, 6, color.Gray{Y: 0xFF})

	m := Mono(img)
	if got, want := m.Bounds(), image.Rect(0, 0, 2, 2); got != want {
		t.Fatalf("Bounds() = %v, want %v", got, want)
	}
	if !m.BitAt(0, 0) || !m.BitAt(1, 1) || m.BitAt(1, 0) || m.BitAt(0, 1) {
		t.Errorf("Mono pixels = % x", m.Pix)
	}
}

func TestMonoMatchesLit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 10; x++ {
			v := uint8((x*31 + y*17) % 256)
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}

	m := Mono(img)
	for y := 0; y < 8; y++ {
		for x := 0; x < 10; x++ {
			if bool(m.BitAt(x, y)) != Lit(img.At(x, y)) {
				t.Fatalf("pixel (%d, %d): Mono %v, Lit %v", x, y, m.BitAt(x, y), Lit(img.At(x, y)))
			}
		}
	}
}
