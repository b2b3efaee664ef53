package trace

import (
	"fmt"
	"io"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Text writes one line per event. With Color set, lines carry ANSI colours;
// on Windows wrap the writer with go-colorable first.
type Text struct {
	W     io.Writer
	Color bool
	// Names labels semaphores by trace id.
	Names map[uint8]string
}

func (t *Text) Emit(e Event) {
	line := e.String()
	if name, ok := t.Names[e.Sem]; ok && (e.Kind == Block || e.Kind == Wake) {
		line += " " + name
	}
	if t.Color {
		line = colorFor(e.Kind) + line + ansiReset
	}
	fmt.Fprintln(t.W, line)
}

func colorFor(k Kind) string {
	switch k {
	case Switch:
		return ansiDim
	case Block:
		return ansiYellow
	case Wake:
		return ansiGreen
	case Halt:
		return ansiRed
	default:
		return ansiCyan
	}
}
