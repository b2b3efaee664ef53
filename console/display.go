package console

import (
	"image/color"

	"minos/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts an RGB565 framebuffer to the drivers.Displayer family
// tinyterm draws on.
type fbDisplay struct {
	fb hal.Framebuffer
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= d.fb.Width() || int(y) >= d.fb.Height() {
		return
	}
	d.put(d.fb.Buffer(), int(y)*d.fb.StrideBytes()+int(x)*2, hal.RGB565(c.R, c.G, c.B))
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	w, h := d.fb.Width(), d.fb.Height()
	x0, x1 := clamp(int(x), w), clamp(int(x)+int(width), w)
	y0, y1 := clamp(int(y), h), clamp(int(y)+int(height), h)
	pixel := hal.RGB565(c.R, c.G, c.B)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			d.put(buf, py*stride+px*2, pixel)
		}
	}
	return nil
}

// SetScroll is a no-op: a framebuffer has no hardware scroll, so the
// terminal wraps back to the top row when it runs out of lines.
func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	if rotation != drivers.Rotation0 {
		return hal.ErrNotImplemented
	}
	return nil
}

func (d *fbDisplay) put(buf []byte, off int, pixel uint16) {
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
