package hal

import (
	"context"
	"errors"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// State is a saved interrupt mask (PRIMASK): 0 means interrupts enabled.
type State uint32

// Mask is the global interrupt mask primitive.
type Mask interface {
	// Disable returns the current mask state and disables interrupts.
	Disable() State
	// Restore puts back a state returned by Disable.
	Restore(s State)
}

// Timer is the periodic context-switch interrupt source.
type Timer interface {
	// Arm fires the switch interrupt every interval cycles at the given priority.
	Arm(interval uint32, priority uint8)
	// Pend requests one extra firing now without resetting the period.
	Pend()
}

// Context is the part of a thread descriptor the trampoline touches.
type Context interface {
	ID() uint8
	// Stack returns the private stack region of the thread.
	Stack() []uint32
	// SP returns the word index of the saved frame (the context pointer).
	SP() uint32
	SetSP(sp uint32)
}

// Scheduler is called by the trampoline between save and restore.
type Scheduler interface {
	Current() Context
	Advance()
}

// Core is the processor collaborator: mask, timer and context-switch trampoline.
type Core interface {
	Mask
	Timer

	// Link returns the code address the trampoline branches to when a frame
	// holding it in the PC slot is restored for the first time.
	Link(entry func()) uint32

	// Start restores s.Current() and runs threads until the core halts.
	Start(ctx context.Context, s Scheduler) error

	// Burn executes n cycles of thread code.
	Burn(n uint32)

	// Halt stops the core. It must be called from a running thread and does not return.
	Halt(err error)

	// Cycles returns the number of cycles executed so far.
	Cycles() uint64
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Core() Core
}
