package kernel

// TCB is a thread control block.
type TCB struct {
	id      uint8
	sp      uint32
	next    uint8
	blocked *Semaphore
	stack   []uint32
}

// ID returns the ring position of the thread.
func (t *TCB) ID() uint8 { return t.id }

// Next returns the ID of the following TCB in the ring.
func (t *TCB) Next() uint8 { return t.next }

// Stack returns the thread's private stack region.
func (t *TCB) Stack() []uint32 { return t.stack }

// SP returns the context pointer: the word index of the saved frame.
func (t *TCB) SP() uint32 { return t.sp }

// SetSP is for the context-switch trampoline only.
func (t *TCB) SetSP(sp uint32) { t.sp = sp }
