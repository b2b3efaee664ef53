// Package console renders text, typically the kernel trace, on the board
// framebuffer through a VT100 terminal.
package console

import (
	"sync"

	"minos/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Console is an io.Writer onto a framebuffer. Writes only draw into the
// back buffer; Flush presents them.
type Console struct {
	mu    sync.Mutex
	fb    hal.Framebuffer
	d     *fbDisplay
	t     *tinyterm.Terminal
	dirty bool
}

// New returns a console on disp, or nil when the board has no RGB565
// framebuffer.
func New(disp hal.Display) *Console {
	if disp == nil {
		return nil
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Buffer() == nil {
		return nil
	}
	c := &Console{fb: fb, d: &fbDisplay{fb: fb}}
	c.Reset()
	return c
}

// Reset clears the screen and homes the cursor.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	c.fb.ClearRGB(0, 0, 0)
	c.dirty = true
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.t.Write(p)
	if n > 0 {
		c.dirty = true
	}
	return n, err
}

// Flush presents what was written since the last flush.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	c.dirty = false
	return c.fb.Present()
}
