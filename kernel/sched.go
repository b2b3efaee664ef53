package kernel

import (
	"minos/hal"
	"minos/trace"
)

// Current returns the TCB the trampoline restores next.
func (k *Kernel) Current() hal.Context {
	return &k.st.tcbs[k.st.run]
}

// Advance moves the run cursor to the next thread in the ring that is not
// blocked. It runs inside the context-switch exception with interrupts
// masked.
func (k *Kernel) Advance() {
	st := &k.st
	from := st.run
	for i := uint8(0); i < st.count; i++ {
		st.run = st.tcbs[st.run].next
		if st.tcbs[st.run].blocked == nil {
			if st.run != from {
				k.emit(trace.Event{Kind: trace.Switch, Thread: st.run, Other: from})
			}
			return
		}
	}
	panic(ErrAllBlocked)
}

// Suspend gives up the rest of the time slice without blocking.
func (k *Kernel) Suspend() {
	k.core.Pend()
}
