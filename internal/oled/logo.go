package oled

// logoBitmap spells ORGPAL / TELEMETRY in a 4x5 pixel font, 8 bytes per row.
var logoBitmap = []byte{
	0x22, 0x36, 0x12, 0x70, 0x17, 0x57, 0x77, 0x52,
	0x55, 0x51, 0x15, 0x20, 0x11, 0x71, 0x21, 0x55,
	0x55, 0x51, 0x15, 0x20, 0x13, 0x73, 0x23, 0x75,
	0x35, 0x35, 0x17, 0x20, 0x11, 0x51, 0x21, 0x23,
	0x55, 0x15, 0x15, 0x20, 0x11, 0x51, 0x21, 0x25,
	0x52, 0x13, 0x75, 0x20, 0x77, 0x57, 0x27, 0x25,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// DrawLogo blits the 64x8 board logo with its top-left corner at (x, y).
// The framebuffer is not flushed.
func (c *Canvas) DrawLogo(x, y int) error {
	return c.DrawBitmap(x, y, len(logoBitmap)/8, 8, logoBitmap, 1)
}
