//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrThreadReturned = errors.New("thread entry returned")
	ErrBadFrame       = errors.New("bad exception frame")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStarted        = errors.New("core already started")
)

const (
	codeBase   uint32 = 0x08000200
	codeAlign  uint32 = 0x40
	resumeBase uint32 = 0x08010000
)

// SimConfig controls the host core.
type SimConfig struct {
	// MaxTicks halts the core after that many periodic ticks (0 = run forever).
	MaxTicks uint64
	// Pace sleeps on every periodic tick so a window can follow along.
	Pace time.Duration
}

type simThread struct {
	resume  chan struct{}
	pc      uint32
	started bool
}

// SimCore is a deterministic single-core processor.
//
// Every thread runs on its own goroutine but only the goroutine holding the
// core executes; the trampoline passes the core along when it restores a
// different thread. Disable, Restore and each Burn cycle are instruction
// boundaries: the tick counter advances there and a pending interrupt is
// taken when the mask allows it.
type SimCore struct {
	cfg SimConfig

	primask   uint32
	inHandler bool
	pending   bool

	armed    bool
	interval uint32
	priority uint8
	count    uint32

	cycles   uint64
	ticks    uint64
	switches uint64

	code    []func()
	threads map[Context]*simThread
	sched   Scheduler

	stop    atomic.Bool
	stopErr error

	halted   chan struct{}
	haltOnce sync.Once
	done     bool
	err      error
}

// NewSimCore returns a core with interrupts enabled and the timer disarmed.
func NewSimCore(cfg SimConfig) *SimCore {
	return &SimCore{
		cfg:     cfg,
		threads: make(map[Context]*simThread),
		halted:  make(chan struct{}),
	}
}

func (c *SimCore) Disable() State {
	c.step()
	s := State(c.primask)
	c.primask = 1
	return s
}

func (c *SimCore) Restore(s State) {
	c.primask = uint32(s) & 1
	c.step()
}

func (c *SimCore) Arm(interval uint32, priority uint8) {
	c.interval = interval
	c.priority = priority
	c.count = 0
	c.armed = interval > 0
}

func (c *SimCore) Pend() {
	c.pending = true
	c.poll()
}

func (c *SimCore) Burn(n uint32) {
	for ; n > 0; n-- {
		c.step()
	}
}

func (c *SimCore) Link(entry func()) uint32 {
	pc := codeBase + uint32(len(c.code))*codeAlign
	c.code = append(c.code, entry)
	return pc
}

func (c *SimCore) Cycles() uint64 { return c.cycles }

// Ticks returns the number of periodic interrupts raised.
func (c *SimCore) Ticks() uint64 { return c.ticks }

// Switches returns the number of context switches performed.
func (c *SimCore) Switches() uint64 { return c.switches }

// Priority returns the armed interrupt priority.
func (c *SimCore) Priority() uint8 { return c.priority }

func (c *SimCore) Start(ctx context.Context, s Scheduler) error {
	if c.sched != nil {
		return ErrStarted
	}
	c.sched = s
	if err := c.restore(s.Current()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-c.halted
		return c.err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			if err := ctx.Err(); err != nil {
				c.stopErr = err
				c.stop.Store(true)
			}
		case <-c.halted:
		}
		return nil
	})
	return g.Wait()
}

func (c *SimCore) Halt(err error) {
	c.haltOnce.Do(func() {
		c.done = true
		c.err = err
		close(c.halted)
	})
	runtime.Goexit()
}

func (c *SimCore) step() {
	if c.done {
		return
	}
	if c.stop.Load() {
		c.Halt(c.stopErr)
	}
	c.cycles++
	if c.armed {
		c.count++
		if c.count >= c.interval {
			c.count = 0
			c.ticks++
			c.pending = true
			if c.cfg.Pace > 0 {
				time.Sleep(c.cfg.Pace)
			}
			if c.cfg.MaxTicks > 0 && c.ticks >= c.cfg.MaxTicks {
				c.Halt(nil)
			}
		}
	}
	c.poll()
}

func (c *SimCore) poll() {
	if !c.pending || c.primask != 0 || c.inHandler || c.sched == nil || c.done {
		return
	}
	c.pending = false
	c.exception()
}

// exception is the trampoline: save, Advance, restore.
func (c *SimCore) exception() {
	c.inHandler = true
	c.primask = 1

	cur := c.sched.Current()
	self := c.thread(cur)
	if err := c.save(cur, self); err != nil {
		c.Halt(err)
	}
	c.sched.Advance()

	if next := c.sched.Current(); next != cur {
		c.switches++
		if err := c.restore(next); err != nil {
			c.Halt(err)
		}
		select {
		case <-self.resume:
		case <-c.halted:
			runtime.Goexit()
		}
	}

	pc, err := c.unstack(cur)
	if err == nil && pc != self.pc {
		err = fmt.Errorf("%w: thread %d resumes at %#08x, saved %#08x", ErrBadFrame, cur.ID(), pc, self.pc)
	}
	if err != nil {
		c.Halt(err)
	}
	c.primask = 0
	c.inHandler = false
}

func (c *SimCore) thread(ctx Context) *simThread {
	th, ok := c.threads[ctx]
	if !ok {
		th = &simThread{
			resume: make(chan struct{}, 1),
			pc:     resumeBase + uint32(ctx.ID())*codeAlign,
		}
		c.threads[ctx] = th
	}
	return th
}

func (c *SimCore) save(ctx Context, th *simThread) error {
	sp := ctx.SP()
	if sp < FrameWords {
		return fmt.Errorf("%w: thread %d sp=%d", ErrStackOverflow, ctx.ID(), sp)
	}
	sp -= FrameWords
	frame := ctx.Stack()[sp : sp+FrameWords]
	for i := range frame {
		frame[i] = 0
	}
	frame[FramePC] = th.pc
	frame[FrameXPSR] = XPSRThumb
	ctx.SetSP(sp)
	return nil
}

// restore hands the core to ctx. A thread that never ran branches to the
// entry in its initial frame; a suspended one is woken and pops its own frame.
func (c *SimCore) restore(ctx Context) error {
	th := c.thread(ctx)
	if th.started {
		th.resume <- struct{}{}
		return nil
	}

	pc, err := c.unstack(ctx)
	if err != nil {
		return err
	}
	idx := (pc - codeBase) / codeAlign
	if pc < codeBase || (pc-codeBase)%codeAlign != 0 || idx >= uint32(len(c.code)) {
		return fmt.Errorf("%w: thread %d branches to unlinked %#08x", ErrBadFrame, ctx.ID(), pc)
	}
	th.started = true
	go c.run(ctx, c.code[idx])
	return nil
}

func (c *SimCore) unstack(ctx Context) (uint32, error) {
	sp := ctx.SP()
	stack := ctx.Stack()
	if int(sp)+FrameWords > len(stack) {
		return 0, fmt.Errorf("%w: thread %d sp=%d outside stack", ErrBadFrame, ctx.ID(), sp)
	}
	frame := stack[sp : sp+FrameWords]
	if frame[FrameXPSR]&XPSRThumb == 0 {
		return 0, fmt.Errorf("%w: thread %d xPSR=%#08x", ErrBadFrame, ctx.ID(), frame[FrameXPSR])
	}
	ctx.SetSP(sp + FrameWords)
	return frame[FramePC], nil
}

func (c *SimCore) run(ctx Context, entry func()) {
	c.primask = 0
	c.inHandler = false
	entry()
	c.Halt(fmt.Errorf("%w: thread %d", ErrThreadReturned, ctx.ID()))
}
