//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"testing"
)

type fakeThread struct {
	id    uint8
	stack [48]uint32
	sp    uint32
}

func (t *fakeThread) ID() uint8       { return t.id }
func (t *fakeThread) Stack() []uint32 { return t.stack[:] }
func (t *fakeThread) SP() uint32      { return t.sp }
func (t *fakeThread) SetSP(sp uint32) { t.sp = sp }

type fakeSched struct {
	threads []*fakeThread
	run     int
}

func (s *fakeSched) Current() Context { return s.threads[s.run] }
func (s *fakeSched) Advance()         { s.run = (s.run + 1) % len(s.threads) }

func newFakeSched(c *SimCore, entries ...func()) *fakeSched {
	s := &fakeSched{}
	for i, fn := range entries {
		t := &fakeThread{id: uint8(i)}
		t.sp = InitialFrame(t.stack[:], c.Link(fn))
		s.threads = append(s.threads, t)
	}
	return s
}

func TestInitialFrame(t *testing.T) {
	stack := make([]uint32, 32)
	sp := InitialFrame(stack, 0x08000240)
	if sp != 16 {
		t.Fatalf("sp = %d, want 16", sp)
	}
	frame := stack[sp:]
	if frame[FramePC] != 0x08000240 || frame[FrameXPSR] != XPSRThumb {
		t.Fatalf("pc %#x xpsr %#x", frame[FramePC], frame[FrameXPSR])
	}
	if frame[FrameR0] != 0 || frame[FrameR1] != 0x01010101 || frame[FrameR11] != 0x11111111 {
		t.Fatalf("sentinels = % x", frame)
	}
	for i := 0; i < int(sp); i++ {
		if stack[i] != 0 {
			t.Fatalf("word %d below the frame was written", i)
		}
	}
}

func TestMaskNesting(t *testing.T) {
	c := NewSimCore(SimConfig{})
	outer := c.Disable()
	inner := c.Disable()
	if outer != 0 || inner != 1 {
		t.Fatalf("states = %d, %d, want 0, 1", outer, inner)
	}
	c.Restore(inner)
	if c.primask != 1 {
		t.Fatal("inner restore unmasked interrupts")
	}
	c.Restore(outer)
	if c.primask != 0 {
		t.Fatal("outer restore left interrupts masked")
	}
}

func TestTickPendedWhileMaskedTakenAtRestore(t *testing.T) {
	c := NewSimCore(SimConfig{})
	var (
		ticksMasked    uint64
		switchesMasked uint64
		order          []string
	)
	s := newFakeSched(c,
		func() {
			st := c.Disable()
			c.Burn(25)
			ticksMasked, switchesMasked = c.Ticks(), c.Switches()
			order = append(order, "restore")
			c.Restore(st)
			for {
				c.Burn(1)
			}
		},
		func() {
			order = append(order, "t1")
			c.Halt(nil)
		},
	)
	c.Arm(10, 14)
	if err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if ticksMasked < 2 || switchesMasked != 0 {
		t.Fatalf("masked: %d ticks, %d switches", ticksMasked, switchesMasked)
	}
	if len(order) != 2 || order[0] != "restore" || order[1] != "t1" {
		t.Fatalf("order = %q", order)
	}
	if c.Switches() != 1 {
		t.Fatalf("switches = %d, want 1", c.Switches())
	}
}

func TestSavedFrame(t *testing.T) {
	c := NewSimCore(SimConfig{})
	var (
		saved   [FrameWords]uint32
		savedSP uint32
		resumed bool
	)
	var s *fakeSched
	s = newFakeSched(c,
		func() {
			c.Pend()
			resumed = true
			c.Halt(nil)
		},
		func() {
			t0 := s.threads[0]
			savedSP = t0.sp
			copy(saved[:], t0.stack[t0.sp:])
			c.Pend()
			for {
				c.Burn(1)
			}
		},
	)
	if err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !resumed {
		t.Fatal("thread 0 never resumed")
	}
	if savedSP != 48-FrameWords {
		t.Fatalf("saved sp = %d, want %d", savedSP, 48-FrameWords)
	}
	if saved[FramePC] != resumeBase || saved[FrameXPSR] != XPSRThumb {
		t.Fatalf("saved pc %#x xpsr %#x", saved[FramePC], saved[FrameXPSR])
	}
	if s.threads[0].sp != 48 {
		t.Fatalf("sp after resume = %d, want 48", s.threads[0].sp)
	}
}

func TestMaxTicksHalts(t *testing.T) {
	c := NewSimCore(SimConfig{MaxTicks: 5})
	burn := func() {
		for {
			c.Burn(1)
		}
	}
	s := newFakeSched(c, burn, burn, burn)
	c.Arm(20, 14)
	if err := c.Start(context.Background(), s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Ticks() != 5 {
		t.Fatalf("ticks = %d, want 5", c.Ticks())
	}
	if c.Switches() != 4 {
		t.Fatalf("switches = %d, want 4", c.Switches())
	}
	if err := c.Start(context.Background(), s); !errors.Is(err, ErrStarted) {
		t.Fatalf("second Start error = %v, want ErrStarted", err)
	}
}

func TestBadFrames(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(frame []uint32)
	}{
		{"no thumb bit", func(frame []uint32) { frame[FrameXPSR] = 0 }},
		{"unlinked pc", func(frame []uint32) { frame[FramePC] = 0x1234 }},
		{"misaligned pc", func(frame []uint32) { frame[FramePC] += 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSimCore(SimConfig{})
			s := newFakeSched(c, func() { c.Halt(nil) })
			th := s.threads[0]
			tt.corrupt(th.stack[th.sp:])
			if err := c.Start(context.Background(), s); !errors.Is(err, ErrBadFrame) {
				t.Fatalf("Start error = %v, want ErrBadFrame", err)
			}
		})
	}
}

func TestStackOverflowHalts(t *testing.T) {
	c := NewSimCore(SimConfig{})
	var s *fakeSched
	s = newFakeSched(c,
		func() {
			s.threads[0].sp = FrameWords - 1
			c.Pend()
		},
		func() { c.Halt(nil) },
	)
	if err := c.Start(context.Background(), s); !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("Start error = %v, want ErrStackOverflow", err)
	}
}

func TestThreadReturnHalts(t *testing.T) {
	c := NewSimCore(SimConfig{})
	s := newFakeSched(c, func() {})
	if err := c.Start(context.Background(), s); !errors.Is(err, ErrThreadReturned) {
		t.Fatalf("Start error = %v, want ErrThreadReturned", err)
	}
}

func TestCancelHalts(t *testing.T) {
	c := NewSimCore(SimConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	s := newFakeSched(c, func() {
		cancel()
		for {
			c.Burn(1)
		}
	})
	if err := c.Start(ctx, s); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start error = %v, want context.Canceled", err)
	}
}
