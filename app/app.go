// Package app assembles a runnable system: kernel, threads (the built-in
// demo or a scenario script), trace and panic reporting.
package app

import (
	"context"
	"fmt"

	"minos/config"
	"minos/console"
	"minos/hal"
	"minos/internal/buildinfo"
	"minos/kernel"
	"minos/scenario"
	"minos/trace"
)

type Config struct {
	Board config.Board
	// Script replaces the demo threads when set.
	Script  *scenario.Script
	Trace   trace.Sink
	Console *console.Console
}

// System is a kernel with its threads added, ready to launch.
type System struct {
	h     hal.HAL
	k     *kernel.Kernel
	names []string
}

// New builds the system on h.
func New(h hal.HAL, cfg Config) (*System, error) {
	kc := cfg.Board.Kernel()
	kc.Trace = cfg.Trace
	kc.PanicHandler = panicHandler(h.Logger(), cfg.Console)
	k, err := kernel.New(h.Core(), kc)
	if err != nil {
		return nil, err
	}
	k.Init()

	s := &System{h: h, k: k}
	var entries []kernel.Entry
	if cfg.Script != nil {
		p, err := cfg.Script.Compile(k, scenario.Env{Log: h.Logger(), LED: h.LED()})
		if err != nil {
			return nil, err
		}
		entries, s.names = p.Entries, p.Names
	} else {
		entries, s.names = demo(k, h, kc.TickInterval)
	}
	if err := k.AddThreads(entries...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) Kernel() *kernel.Kernel { return s.k }

// Names returns the thread names by ID.
func (s *System) Names() []string { return s.names }

// SemNames labels every semaphore initialized so far by trace id.
func (s *System) SemNames() map[uint8]string {
	m := make(map[uint8]string)
	for _, sem := range s.k.Semaphores() {
		m[sem.TraceID()] = sem.String()
	}
	return m
}

// Run launches the kernel and returns the halt reason.
func (s *System) Run(ctx context.Context) error {
	log := s.h.Logger()
	log.WriteLineString(fmt.Sprintf("minos: %s launching %d threads", buildinfo.Short(), s.k.Threads()))
	err := s.k.Launch(ctx)
	if err != nil {
		log.WriteLineString("minos: halted: " + err.Error())
	} else {
		log.WriteLineString("minos: halted")
	}
	return err
}
