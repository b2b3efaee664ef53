//go:build !tinygo && !cgo

package hal

import (
	"context"
	"errors"
)

// WindowConfig controls the desktop window.
type WindowConfig struct {
	Title string
	Scale int
	Frame func() error
}

func RunWindow(_ context.Context, _ func(context.Context, HAL) error, _ SimConfig, _ WindowConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
