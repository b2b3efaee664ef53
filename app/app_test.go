package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"minos/config"
	"minos/console"
	"minos/hal"
	"minos/kernel"
	"minos/scenario"
	"minos/trace"
)

func testBoard() config.Board {
	b := config.Default()
	b.ClockHz = 200_000
	b.FifoSize = 8
	return b
}

func runSystem(t *testing.T, s *System) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return s.Run(ctx)
}

func TestDemo(t *testing.T) {
	var out bytes.Buffer
	h := hal.NewWithWriter(&out, hal.SimConfig{MaxTicks: 300})
	rec := trace.NewRecorder(1 << 14)
	s, err := New(h, Config{Board: testBoard(), Trace: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Names(); len(got) != 3 || got[2] != "heartbeat" {
		t.Fatalf("Names = %q", got)
	}
	if err := runSystem(t, s); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}

	log := out.String()
	for _, want := range []string{" launching 3 threads", "heartbeat: word 8 ", "led: HIGH", "led: LOW", "minos: halted"} {
		if !strings.Contains(log, want) {
			t.Fatalf("log lacks %q:\n%s", want, log)
		}
	}
	if len(rec.Filter(trace.Switch)) == 0 || len(rec.Filter(trace.Block)) == 0 {
		t.Fatal("no switches or blocks traced")
	}
	if names := s.SemNames(); names[1] != "mail.send" || names[5] != "fifo.mutex" {
		t.Fatalf("SemNames = %v", names)
	}
}

func TestScript(t *testing.T) {
	script, err := scenario.Parse(strings.NewReader(`
sem go 0
thread a
  signal go
  idle
thread b
  wait go
  log done
  halt
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var out bytes.Buffer
	h := hal.NewWithWriter(&out, hal.SimConfig{})
	s, err := New(h, Config{Board: testBoard(), Script: script})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Kernel().Threads() != 2 || s.Names()[1] != "b" {
		t.Fatalf("threads %d names %q", s.Kernel().Threads(), s.Names())
	}
	if names := s.SemNames(); names[6] != "go" {
		t.Fatalf("SemNames = %v", names)
	}
	if err := runSystem(t, s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "b: done") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestBadBoard(t *testing.T) {
	b := testBoard()
	b.FifoSize = 0
	if _, err := New(hal.NewWithWriter(&bytes.Buffer{}, hal.SimConfig{}), Config{Board: b}); err == nil {
		t.Fatal("New accepted a zero FIFO")
	}
}

func TestPanicHandler(t *testing.T) {
	var out bytes.Buffer
	h := hal.NewWithWriter(&out, hal.SimConfig{})
	con := console.New(h.Display())
	if con == nil {
		t.Fatal("no console on the host display")
	}
	panicHandler(h.Logger(), con)(kernel.PanicInfo{Thread: 2, Value: "boom", Stack: []byte("frame a\n\nframe b\n")})

	want := "minos panic:\nthread: 2\npanic: boom\nstack:\nframe a\nframe b\n"
	if out.String() != want {
		t.Fatalf("log = %q, want %q", out.String(), want)
	}

	fb := h.Display().Framebuffer()
	pix := make([]byte, fb.Width()*fb.Height()*4)
	hal.SnapshotRGBA(fb, pix)
	lit := false
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != 0 || pix[i+1] != 0 || pix[i+2] != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatal("panic report not presented on the console")
	}
}
