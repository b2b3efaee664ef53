package kernel

import "fmt"

// PanicInfo contains details about a recovered thread panic.
type PanicInfo struct {
	Thread uint8
	Value  any
	Stack  []byte
}

// ThreadFault is the halt reason when a thread panics, including kernel
// invariant violations raised on its behalf.
type ThreadFault struct {
	Thread uint8
	Value  any
}

func (f *ThreadFault) Error() string {
	return fmt.Sprintf("thread %d fault: %v", f.Thread, f.Value)
}

func (f *ThreadFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// InPanicMode reports whether a thread of this kernel has panicked.
func (k *Kernel) InPanicMode() bool {
	return k.panicActive.Load()
}

// triggerPanic invokes the configured handler at most once (on the first
// panic). The handler must not panic.
func (k *Kernel) triggerPanic(info PanicInfo) {
	k.panicOnce.Do(func() {
		k.panicActive.Store(true)
		info.Stack = captureStack()
		if fn := k.cfg.PanicHandler; fn != nil {
			fn(info)
		}
	})
}
