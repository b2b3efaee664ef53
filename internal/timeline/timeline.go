// Package timeline draws a schedule chart from kernel trace events: one row
// per thread, a bar while it holds the core and a thin bar while it is
// blocked on a semaphore.
package timeline

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"minos/trace"
)

// State is what a thread is doing during a segment.
type State uint8

const (
	Running State = iota + 1
	Blocked
)

// Segment is a half-open cycle interval [Start, End).
type Segment struct {
	Thread uint8
	State  State
	Start  uint64
	End    uint64
	Sem    uint8
}

// Segments turns an event stream into intervals. Intervals still open at the
// last event end there.
func Segments(events []trace.Event) []Segment {
	var (
		out     []Segment
		running = -1
		since   uint64
		blocked = map[uint8]Segment{}
		last    uint64
	)
	closeRun := func(at uint64) {
		if running >= 0 && at > since {
			out = append(out, Segment{Thread: uint8(running), State: Running, Start: since, End: at})
		}
	}
	for _, e := range events {
		last = e.Cycle
		switch e.Kind {
		case trace.Launch, trace.Switch:
			closeRun(e.Cycle)
			running, since = int(e.Thread), e.Cycle
		case trace.Block:
			blocked[e.Thread] = Segment{Thread: e.Thread, State: Blocked, Start: e.Cycle, Sem: e.Sem}
		case trace.Wake:
			if s, ok := blocked[e.Thread]; ok {
				s.End = e.Cycle
				out = append(out, s)
				delete(blocked, e.Thread)
			}
		case trace.Halt:
			closeRun(e.Cycle)
			running = -1
		}
	}
	closeRun(last)
	for id := uint8(0); len(blocked) > 0; id++ {
		if s, ok := blocked[id]; ok {
			s.End = last
			out = append(out, s)
			delete(blocked, id)
		}
	}
	return out
}

// Options sizes the chart.
type Options struct {
	Width     int
	RowHeight int
	// Names labels the rows; missing names fall back to t<id>.
	Names []string
}

const labelWidth = 90

var palette = []string{"#4e79a7", "#f28e2b", "#59a14f", "#e15759", "#76b7b2", "#edc948", "#b07aa1", "#ff9da7"}

// Draw renders events for threads rows.
func Draw(events []trace.Event, threads int, opt Options) *gg.Context {
	if opt.Width <= labelWidth {
		opt.Width = 1200
	}
	if opt.RowHeight <= 0 {
		opt.RowHeight = 28
	}
	height := opt.RowHeight*threads + opt.RowHeight
	dc := gg.NewContext(opt.Width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	segs := Segments(events)
	var first, last uint64
	if len(events) > 0 {
		first, last = events[0].Cycle, events[len(events)-1].Cycle
	}
	span := float64(last - first)
	if span == 0 {
		span = 1
	}
	plot := float64(opt.Width - labelWidth - 10)
	x := func(c uint64) float64 { return labelWidth + plot*float64(c-first)/span }
	rh := float64(opt.RowHeight)

	for i := 0; i < threads; i++ {
		y := rh * float64(i)
		dc.SetHexColor("#000000")
		dc.DrawStringAnchored(rowName(opt.Names, i), 8, y+rh/2, 0, 0.5)
		dc.SetHexColor("#e0e0e0")
		dc.DrawLine(labelWidth, y+rh, float64(opt.Width-10), y+rh)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
	for _, s := range segs {
		if int(s.Thread) >= threads {
			continue
		}
		y := rh * float64(s.Thread)
		w := x(s.End) - x(s.Start)
		if w < 1 {
			w = 1
		}
		switch s.State {
		case Running:
			dc.SetHexColor(palette[int(s.Thread)%len(palette)])
			dc.DrawRectangle(x(s.Start), y+4, w, rh-8)
		case Blocked:
			dc.SetHexColor("#9e9e9e")
			dc.DrawRectangle(x(s.Start), y+rh/2-2, w, 4)
		}
		dc.Fill()
	}

	dc.SetHexColor("#000000")
	axis := rh * float64(threads)
	dc.DrawStringAnchored(fmt.Sprintf("%d", first), labelWidth, axis+rh/2, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d cycles", last), float64(opt.Width-10), axis+rh/2, 1, 0.5)
	return dc
}

// WritePNG renders events and encodes the chart as PNG.
func WritePNG(w io.Writer, events []trace.Event, threads int, opt Options) error {
	return Draw(events, threads, opt).EncodePNG(w)
}

func rowName(names []string, i int) string {
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("t%d", i)
}
