//go:build !tinygo

// Command minostrace decodes the binary kernel trace a board streams over
// its UART, or that the host writes with -trace-file, prints it and can
// render the schedule as a PNG timeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.bug.st/serial"

	"minos/internal/timeline"
	"minos/trace"
)

func main() {
	var inPath string
	var port string
	var baud int
	var list bool
	var pngPath string
	var threads int
	var quiet bool
	flag.StringVar(&inPath, "in", "", "Binary trace file ('-' for stdin).")
	flag.StringVar(&port, "serial", "", "Serial port to read the trace from.")
	flag.IntVar(&baud, "baud", 115200, "Serial port baud rate.")
	flag.BoolVar(&list, "list", false, "List serial ports and exit.")
	flag.StringVar(&pngPath, "timeline", "", "Render the schedule to this PNG file.")
	flag.IntVar(&threads, "threads", 0, "Rows in the timeline (0 = highest thread seen).")
	flag.BoolVar(&quiet, "q", false, "Do not print events.")
	flag.Parse()

	if list {
		ports, err := serial.GetPortsList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	if (inPath == "") == (port == "") {
		fmt.Fprintln(os.Stderr, "error: exactly one of -in and -serial is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := open(ctx, inPath, port, baud)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer src.Close()

	var sinks trace.Multi
	if !quiet {
		fd := os.Stdout.Fd()
		color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		sinks = append(sinks, &trace.Text{W: colorable.NewColorableStdout(), Color: color})
	}
	var rec *trace.Recorder
	if pngPath != "" {
		rec = trace.NewRecorder(1 << 20)
		sinks = append(sinks, rec)
	}

	st, err := decode(src, sinks)
	if err != nil && !(port != "" && ctx.Err() != nil) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d events, %d bad records\n", st.events, st.bad)

	if rec != nil {
		events := rec.Events()
		if threads <= 0 {
			threads = st.threads
		}
		if err := writePNG(pngPath, events, threads); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
}

func open(ctx context.Context, path, port string, baud int) (io.ReadCloser, error) {
	if port != "" {
		p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", port, err)
		}
		// Closing the port unblocks the pending read on interrupt.
		go func() {
			<-ctx.Done()
			_ = p.Close()
		}()
		return p, nil
	}
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

type stats struct {
	events  int
	bad     int
	threads int
}

// decode feeds every valid record to sink until the input ends. Corrupt
// records are counted and skipped.
func decode(r io.Reader, sink trace.Sink) (stats, error) {
	var st stats
	dec := trace.NewDecoder(r)
	for {
		e, err := dec.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return st, nil
		case errors.Is(err, trace.ErrChecksum), errors.Is(err, trace.ErrKind):
			st.bad++
			continue
		default:
			return st, err
		}
		st.events++
		if n := int(e.Thread) + 1; n > st.threads {
			st.threads = n
		}
		sink.Emit(e)
	}
}

func writePNG(path string, events []trace.Event, threads int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := timeline.WritePNG(f, events, threads, timeline.Options{}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
