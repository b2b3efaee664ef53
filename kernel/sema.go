package kernel

import (
	"fmt"

	"minos/trace"
)

// Semaphore is a counting semaphore. A negative count is the number of
// threads blocked on it; the threads themselves are found through the ring.
type Semaphore struct {
	Name string

	count int32
	id    uint8
}

func (s *Semaphore) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("sem%d", s.id)
}

// TraceID is the identifier events carry for s, assigned on first init.
// Zero means untracked.
func (s *Semaphore) TraceID() uint8 { return s.id }

// InitSemaphore sets the count of s.
func (k *Kernel) InitSemaphore(s *Semaphore, value int32) {
	k.locked(func(st *state) {
		s.count = value
		if s.id == 0 && len(st.sems) < 255 {
			st.sems = append(st.sems, s)
			s.id = uint8(len(st.sems))
		}
	})
}

// Semaphores returns every semaphore initialized on this kernel, in trace id
// order.
func (k *Kernel) Semaphores() []*Semaphore {
	var out []*Semaphore
	k.locked(func(st *state) { out = append(out, st.sems...) })
	return out
}

// Count returns the current count of s.
func (k *Kernel) Count(s *Semaphore) int32 {
	var n int32
	k.locked(func(*state) { n = s.count })
	return n
}

// Wait takes one unit of s, blocking the calling thread while none is left.
func (k *Kernel) Wait(s *Semaphore) {
	blocked := false
	k.locked(func(st *state) {
		s.count--
		if s.count < 0 {
			st.tcbs[st.run].blocked = s
			blocked = true
			k.emit(trace.Event{Kind: trace.Block, Thread: st.run, Sem: s.id, Count: s.count})
		}
	})
	if blocked {
		k.core.Pend()
	}
}

// Signal releases one unit of s. If threads are waiting, the first one found
// walking the ring from the caller's successor becomes runnable; the caller
// keeps the core.
func (k *Kernel) Signal(s *Semaphore) {
	k.locked(func(st *state) {
		s.count++
		if s.count > 0 {
			return
		}
		id := st.run
		for i := uint8(0); i < st.count; i++ {
			id = st.tcbs[id].next
			if st.tcbs[id].blocked == s {
				st.tcbs[id].blocked = nil
				k.emit(trace.Event{Kind: trace.Wake, Thread: id, Other: st.run, Sem: s.id, Count: s.count})
				return
			}
		}
		panic(fmt.Errorf("%w: %v count=%d", ErrNoWaiter, s, s.count))
	})
}
