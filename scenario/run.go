package scenario

import (
	"fmt"

	"minos/hal"
	"minos/kernel"
)

// Env is what a script touches besides the kernel. Nil members turn the
// corresponding commands into no-ops.
type Env struct {
	Log hal.Logger
	LED hal.LED
}

// Program is a script bound to a kernel.
type Program struct {
	Entries []kernel.Entry
	Sems    map[string]*kernel.Semaphore
	Names   []string
}

// Compile initializes the script's semaphores on k and builds one thread
// entry per thread section, in order. Call it after k.Init and pass
// Entries to k.AddThreads.
func (s *Script) Compile(k *kernel.Kernel, env Env) (*Program, error) {
	if len(s.Threads) > kernel.MaxThreads {
		return nil, fmt.Errorf("%w: %d threads, at most %d", kernel.ErrThreadCount, len(s.Threads), kernel.MaxThreads)
	}
	p := &Program{Sems: make(map[string]*kernel.Semaphore, len(s.Sems))}
	for _, d := range s.Sems {
		sem := &kernel.Semaphore{Name: d.Name}
		k.InitSemaphore(sem, d.Value)
		p.Sems[d.Name] = sem
	}
	for i := range s.Threads {
		th := &s.Threads[i]
		r := &runner{k: k, env: env, sems: p.Sems, name: th.Name}
		body := th.Body
		p.Entries = append(p.Entries, func() {
			r.exec(body)
			r.idle()
		})
		p.Names = append(p.Names, th.Name)
	}
	return p, nil
}

type runner struct {
	k    *kernel.Kernel
	env  Env
	sems map[string]*kernel.Semaphore
	name string
}

func (r *runner) exec(ops []Op) {
	for i := range ops {
		op := &ops[i]
		switch op.Kind {
		case OpPut:
			r.k.FifoPut(op.Value)
		case OpGet:
			v := r.k.FifoGet()
			if op.Check && v != op.Value {
				r.fail(op, "get %d, want %d", v, op.Value)
			}
		case OpSend:
			r.k.Send(op.Value)
		case OpRecv:
			v := r.k.Receive()
			if op.Check && v != op.Value {
				r.fail(op, "recv %d, want %d", v, op.Value)
			}
		case OpWait:
			r.k.Wait(r.sems[op.Name])
		case OpSignal:
			r.k.Signal(r.sems[op.Name])
		case OpBurn:
			r.k.Core().Burn(uint32(op.Value))
		case OpYield:
			r.k.Suspend()
		case OpLED:
			if r.env.LED == nil {
				break
			}
			if op.Value != 0 {
				r.env.LED.High()
			} else {
				r.env.LED.Low()
			}
		case OpLog:
			if r.env.Log != nil {
				r.env.Log.WriteLineString(r.name + ": " + op.Text)
			}
		case OpExpect:
			if got := r.count(op.Name); got != op.Value {
				r.fail(op, "%s is %d, want %d", op.Name, got, op.Value)
			}
		case OpLoop:
			for n := int32(0); op.Value == 0 || n < op.Value; n++ {
				r.exec(op.Body)
			}
		case OpIdle:
			r.idle()
		case OpHalt:
			r.k.Core().Halt(nil)
		}
	}
}

func (r *runner) count(name string) int32 {
	switch name {
	case "fifo.len":
		return r.k.Fifo().Len()
	case "fifo.room":
		return r.k.Fifo().Room()
	}
	return r.k.Count(r.sems[name])
}

func (r *runner) fail(op *Op, format string, args ...any) {
	r.k.Core().Halt(fmt.Errorf("%w: %s line %d: %s", ErrExpect, r.name, op.Line, fmt.Sprintf(format, args...)))
}

func (r *runner) idle() {
	for {
		r.k.Core().Burn(1)
	}
}
