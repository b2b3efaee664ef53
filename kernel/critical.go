package kernel

// state is everything the critical section protects.
type state struct {
	tcbs   [MaxThreads]TCB
	stacks [MaxThreads][StackWords]uint32
	count  uint8
	run    uint8
	// sems lists initialized semaphores; a semaphore's trace id is its
	// position plus one.
	sems []*Semaphore
}

// locked runs fn with interrupts masked and restores the previous mask
// afterwards. It is the only way kernel code reaches st outside the
// context-switch exception.
func (k *Kernel) locked(fn func(st *state)) {
	s := k.core.Disable()
	fn(&k.st)
	k.core.Restore(s)
}
