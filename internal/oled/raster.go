package oled

// DrawPixel sets a single pixel.
func (f *Framebuffer) DrawPixel(x, y int, on bool) {
	f.SetPixel(x, y, on)
}

// DrawLine draws a straight line between (x0, y0) and (x1, y1), both
// endpoints included, with Bresenham's integer algorithm.
func (f *Framebuffer) DrawLine(x0, y0, x1, y1 int, on bool) {
	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}

	dx := x1 - x0
	dy := abs(y1 - y0)
	err := dx / 2
	ystep := -1
	if y0 < y1 {
		ystep = 1
	}

	for ; x0 <= x1; x0++ {
		if steep {
			f.SetPixel(y0, x0, on)
		} else {
			f.SetPixel(x0, y0, on)
		}
		err -= dy
		if err < 0 {
			y0 += ystep
			err += dx
		}
	}
}

// DrawRectangle draws the outline of a w x h rectangle whose top-left corner
// is (x0, y0). Nothing is drawn when w or h is below 1.
func (f *Framebuffer) DrawRectangle(x0, y0, w, h int, on bool) {
	w--
	h--
	if w < 0 || h < 0 {
		return
	}
	f.DrawLine(x0, y0, x0+w, y0, on)
	f.DrawLine(x0, y0+h, x0+w, y0+h, on)
	f.DrawLine(x0, y0, x0, y0+h, on)
	f.DrawLine(x0+w, y0, x0+w, y0+h, on)
}

// DrawFilledRectangle fills a w x h rectangle whose top-left corner is
// (x0, y0).
func (f *Framebuffer) DrawFilledRectangle(x0, y0, w, h int, on bool) {
	w--
	h--
	if w < 0 || h < 0 {
		return
	}
	for y := y0; y <= y0+h; y++ {
		f.DrawLine(x0, y, x0+w, y, on)
	}
}

// DrawTriangle draws the outline of the triangle with the given corners.
func (f *Framebuffer) DrawTriangle(x0, y0, x1, y1, x2, y2 int, on bool) {
	f.DrawLine(x0, y0, x1, y1, on)
	f.DrawLine(x1, y1, x2, y2, on)
	f.DrawLine(x2, y2, x0, y0, on)
}

// DrawCircle draws a circle outline of radius r centered on (x0, y0) using
// the midpoint algorithm. The outermost ring plotted has radius r-1; a
// radius below 1 draws nothing.
func (f *Framebuffer) DrawCircle(x0, y0, r int, on bool) {
	r--
	if r < 0 {
		return
	}
	x, y := 0, r
	d := (5 - 4*r) / 4
	for {
		f.SetPixel(x0+x, y0+y, on)
		f.SetPixel(x0+x, y0-y, on)
		f.SetPixel(x0-x, y0+y, on)
		f.SetPixel(x0-x, y0-y, on)
		f.SetPixel(x0+y, y0+x, on)
		f.SetPixel(x0+y, y0-x, on)
		f.SetPixel(x0-y, y0+x, on)
		f.SetPixel(x0-y, y0-x, on)
		if d < 0 {
			d += 2*x + 1
		} else {
			d += 2*(x-y) + 1
			y--
		}
		x++
		if x > y {
			return
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
