// Package trace records what the kernel does: launches, context switches,
// threads blocking on and being woken from semaphores.
package trace

import "fmt"

// Kind identifies an event.
type Kind uint8

const (
	Launch Kind = iota + 1
	Switch
	Block
	Wake
	Halt
)

func (k Kind) String() string {
	switch k {
	case Launch:
		return "launch"
	case Switch:
		return "switch"
	case Block:
		return "block"
	case Wake:
		return "wake"
	case Halt:
		return "halt"
	default:
		return "unknown"
	}
}

// Event is one kernel occurrence stamped with the core cycle counter.
//
// Thread is the subject: the thread launched, switched to, blocked or woken.
// Other is the previous thread for Switch and the signalling thread for Wake.
// Sem and Count describe the semaphore for Block and Wake.
type Event struct {
	Cycle  uint64
	Kind   Kind
	Thread uint8
	Other  uint8
	Sem    uint8
	Count  int32
}

func (e Event) String() string {
	switch e.Kind {
	case Switch:
		return fmt.Sprintf("%10d switch  t%d -> t%d", e.Cycle, e.Other, e.Thread)
	case Block:
		return fmt.Sprintf("%10d block   t%d on sem%d (count %d)", e.Cycle, e.Thread, e.Sem, e.Count)
	case Wake:
		return fmt.Sprintf("%10d wake    t%d on sem%d by t%d (count %d)", e.Cycle, e.Thread, e.Sem, e.Other, e.Count)
	default:
		return fmt.Sprintf("%10d %-7s t%d", e.Cycle, e.Kind, e.Thread)
	}
}

// Sink consumes events. Emit is called with interrupts masked, so it must
// not block on anything the kernel threads provide.
type Sink interface {
	Emit(e Event)
}

// Multi fans events out to every non-nil sink.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder keeps the most recent events in a fixed ring.
type Recorder struct {
	buf  []Event
	next int
	full bool
}

// NewRecorder returns a recorder holding up to n events.
func NewRecorder(n int) *Recorder {
	if n <= 0 {
		n = 1
	}
	return &Recorder{buf: make([]Event, n)}
}

func (r *Recorder) Emit(e Event) {
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	if !r.full {
		return append([]Event(nil), r.buf[:r.next]...)
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Filter returns the recorded events of one kind, oldest first.
func (r *Recorder) Filter(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
