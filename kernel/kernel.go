package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"minos/hal"
	"minos/trace"
)

const (
	// MaxThreads is the number of TCB slots.
	MaxThreads = 8
	// NumThreads is the classic board configuration.
	NumThreads = 3
	// StackWords is the size of each thread's stack region in words.
	StackWords = 100
	// FifoSize is the largest FIFO capacity.
	FifoSize = 100
)

var (
	ErrConfig      = errors.New("kernel: bad configuration")
	ErrThreadCount = errors.New("kernel: thread count out of range")
	ErrNoWaiter    = errors.New("kernel: signal found no blocked thread")
	ErrAllBlocked  = errors.New("kernel: every thread is blocked")
)

// Entry is a thread body. It must never return.
type Entry func()

// Config is fixed for the lifetime of a kernel.
type Config struct {
	// TickInterval is the time slice in core cycles.
	TickInterval uint32
	// TickPriority is the priority of the context-switch interrupt.
	TickPriority uint8
	// FifoCapacity is the number of words the FIFO holds.
	FifoCapacity int

	Trace        trace.Sink
	PanicHandler func(PanicInfo)
}

// DefaultConfig matches a 16 MHz core switching threads at 1 kHz.
func DefaultConfig() Config {
	return Config{
		TickInterval: 16000,
		TickPriority: 14,
		FifoCapacity: FifoSize,
	}
}

func (c Config) Validate() error {
	if c.TickInterval == 0 {
		return fmt.Errorf("%w: tick interval must be positive", ErrConfig)
	}
	if c.FifoCapacity < 1 || c.FifoCapacity > FifoSize {
		return fmt.Errorf("%w: fifo capacity %d not in [1,%d]", ErrConfig, c.FifoCapacity, FifoSize)
	}
	return nil
}

// Kernel owns every piece of shared state: the TCB ring, the stacks, the run
// cursor, the mailbox and the FIFO.
type Kernel struct {
	core hal.Core
	cfg  Config

	st   state
	mail Mailbox
	fifo Fifo

	panicActive atomic.Bool
	panicOnce   sync.Once
}

// New creates a kernel on top of core.
func New(core hal.Core, cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Kernel{core: core, cfg: cfg}, nil
}

// Init masks interrupts for the setup phase and initializes the mailbox and
// the FIFO. Interrupts come back on when Launch restores the first thread.
func (k *Kernel) Init() {
	k.core.Disable()
	k.mail.init(k)
	k.FifoInit()
}

// AddThreads links one TCB per entry into a ring, builds each initial stack
// frame and makes the first entry current.
func (k *Kernel) AddThreads(entries ...Entry) error {
	n := len(entries)
	if n == 0 || n > MaxThreads {
		return fmt.Errorf("%w: %d threads, %d slots", ErrThreadCount, n, MaxThreads)
	}
	if k.st.count != 0 {
		return fmt.Errorf("%w: threads already added", ErrThreadCount)
	}

	var pcs [MaxThreads]uint32
	for i, fn := range entries {
		pcs[i] = k.core.Link(k.guard(uint8(i), fn))
	}

	k.locked(func(st *state) {
		for i := uint8(0); i < uint8(n); i++ {
			t := &st.tcbs[i]
			t.id = i
			t.next = (i + 1) % uint8(n)
			t.blocked = nil
			t.stack = st.stacks[i][:]
			t.sp = hal.InitialFrame(t.stack, pcs[i])
		}
		st.count = uint8(n)
		st.run = 0
	})
	return nil
}

// Launch arms the context-switch interrupt and starts the first thread.
// On hardware it never returns; on the host core it returns when the core
// halts, with the halt reason.
func (k *Kernel) Launch(ctx context.Context) error {
	if k.st.count == 0 {
		return fmt.Errorf("%w: no threads added", ErrThreadCount)
	}
	k.core.Arm(k.cfg.TickInterval, k.cfg.TickPriority)
	k.emit(trace.Event{Kind: trace.Launch, Thread: k.st.run})
	err := k.core.Start(ctx, k)
	k.emit(trace.Event{Kind: trace.Halt, Thread: k.st.run})
	return err
}

// Core returns the processor the kernel runs on.
func (k *Kernel) Core() hal.Core { return k.core }

// Threads returns the number of threads in the ring.
func (k *Kernel) Threads() int { return int(k.st.count) }

// Thread returns TCB i, or nil.
func (k *Kernel) Thread(i int) *TCB {
	if i < 0 || i >= int(k.st.count) {
		return nil
	}
	return &k.st.tcbs[i]
}

// Running returns the ID of the current thread.
func (k *Kernel) Running() uint8 {
	var id uint8
	k.locked(func(st *state) { id = st.run })
	return id
}

// BlockedOn returns the semaphore thread id waits on, or nil if it is runnable.
func (k *Kernel) BlockedOn(id uint8) *Semaphore {
	var s *Semaphore
	k.locked(func(st *state) {
		if id < st.count {
			s = st.tcbs[id].blocked
		}
	})
	return s
}

func (k *Kernel) emit(e trace.Event) {
	if k.cfg.Trace == nil {
		return
	}
	e.Cycle = k.core.Cycles()
	k.cfg.Trace.Emit(e)
}

// guard runs a thread entry and turns a panic into a core halt.
func (k *Kernel) guard(id uint8, fn Entry) func() {
	return func() {
		defer func() {
			if v := recover(); v != nil {
				k.triggerPanic(PanicInfo{Thread: id, Value: v})
				k.core.Halt(&ThreadFault{Thread: id, Value: v})
			}
		}()
		fn()
	}
}
