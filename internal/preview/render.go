package preview

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"palx/internal/convert"

	"golang.org/x/image/bmp"
	"golang.org/x/term"
)

// Render writes img as text, two pixel rows per line. With unicode set it
// uses half block characters, otherwise ASCII.
func Render(w io.Writer, img image.Image, unicode bool) error {
	m := convert.Mono(img)
	b := m.Bounds()
	bw := bufio.NewWriter(w)

	glyphs := [4]string{" ", "'", ".", ":"}
	if unicode {
		glyphs = [4]string{" ", "▀", "▄", "█"}
	}

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := 0
			if m.BitAt(x, y) {
				i |= 1
			}
			if m.BitAt(x, y+1) {
				i |= 2
			}
			bw.WriteString(glyphs[i])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal behind f, or 0 when it
// cannot be determined.
func Width(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// Crop limits img to its leftmost cols columns. cols <= 0 returns img as is.
func Crop(img image.Image, cols int) image.Image {
	b := img.Bounds()
	if cols <= 0 || b.Dx() <= cols {
		return img
	}
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	r := image.Rect(b.Min.X, b.Min.Y, b.Min.X+cols, b.Max.Y)
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	return cropped{img, r}
}

type cropped struct {
	image.Image
	r image.Rectangle
}

func (c cropped) Bounds() image.Rectangle { return c.r }

// DumpBMP writes img to path as a BMP file. The file is replaced atomically.
func DumpBMP(path string, img image.Image) error {
	if path == "" {
		return errors.New("preview: empty bmp path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("preview: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".palx-frame-*.bmp")
	if err != nil {
		return fmt.Errorf("preview: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := bmp.Encode(tmp, toGray(img)); err != nil {
		return fmt.Errorf("preview: encode bmp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("preview: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("preview: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("preview: rename: %w", err)
	}
	return nil
}

// toGray flattens img to black and white so the BMP stays 8 bit paletted.
func toGray(img image.Image) *image.Gray {
	m := convert.Mono(img)
	b := m.Bounds()
	g := image.NewGray(b)
	for y := 0; y < b.Max.Y; y++ {
		for x := 0; x < b.Max.X; x++ {
			if m.BitAt(x, y) {
				g.Pix[y*g.Stride+x] = 0xFF
			}
		}
	}
	return g
}

// Terminal returns a frame callback that prints each frame on w, cropped to
// cols columns. With ansi set the screen is cleared first and half blocks
// are used.
func Terminal(w io.Writer, ansi bool, cols int) func(image.Image) error {
	return func(img image.Image) error {
		if ansi {
			if _, err := io.WriteString(w, "\x1b[H\x1b[2J"); err != nil {
				return err
			}
		}
		return Render(w, Crop(img, cols), ansi)
	}
}

// BMP returns a frame callback that keeps the latest frame in path.
func BMP(path string) func(image.Image) error {
	return func(img image.Image) error {
		return DumpBMP(path, img)
	}
}
