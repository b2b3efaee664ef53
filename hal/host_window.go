//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// WindowConfig controls the desktop window.
type WindowConfig struct {
	Title string
	// Scale is the window size in screen pixels per framebuffer pixel.
	Scale int
	// Frame runs on the window goroutine before every redraw.
	Frame func() error
}

// RunWindow runs the system on a background goroutine and shows the
// framebuffer in a desktop window. It returns when the run ends, or cancels
// the run and waits for it when the window closes.
func RunWindow(ctx context.Context, run func(context.Context, HAL) error, sc SimConfig, wc WindowConfig) error {
	h := New(sc).(*hostHAL)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := &hostGame{h: h, frame: wc.Frame, done: make(chan error, 1)}
	go func() { g.done <- run(ctx, h) }()

	scale := wc.Scale
	if scale <= 0 {
		scale = 2
	}
	ebiten.SetWindowTitle(wc.Title)
	ebiten.SetWindowSize(h.fb.width*scale, h.fb.height*scale)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)
	if g.finished {
		return g.err
	}
	cancel()
	if runErr := <-g.done; !errors.Is(runErr, context.Canceled) && runErr != nil {
		return runErr
	}
	return err
}

type hostGame struct {
	h     *hostHAL
	img   *image.RGBA
	fbImg *ebiten.Image
	frame func() error

	done     chan error
	finished bool
	err      error
}

func (g *hostGame) Update() error {
	select {
	case err := <-g.done:
		g.finished = true
		g.err = err
		return ebiten.Termination
	default:
	}
	if g.frame != nil {
		return g.frame()
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	SnapshotRGBA(fb, g.img.Pix)
	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
