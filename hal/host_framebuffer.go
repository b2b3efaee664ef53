//go:build !tinygo

package hal

import "sync"

// hostFramebuffer is drawn by the kernel side into back and shown by the
// window from front; Present copies one into the other.
type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	back   []byte
	front  []byte
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		back:   make([]byte, stride*height),
		front:  make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.stride }
func (f *hostFramebuffer) Buffer() []byte      { return f.back }

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.front, f.back)
	return nil
}

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := RGB565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.back); i += 2 {
		f.back[i] = lo
		f.back[i+1] = hi
	}
}

// SnapshotRGBA converts the presented frame into dst (4 bytes per pixel).
func SnapshotRGBA(fb Framebuffer, dst []byte) {
	f, ok := fb.(*hostFramebuffer)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i+1 < len(f.front) && i/2*4+3 < len(dst); i += 2 {
		r, g, b := rgb888From565(uint16(f.front[i]) | uint16(f.front[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xFF
	}
}
