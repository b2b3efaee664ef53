//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.bug.st/serial"

	"minos/app"
	"minos/config"
	"minos/console"
	"minos/hal"
	"minos/internal/buildinfo"
	"minos/internal/memdump"
	"minos/internal/timeline"
	"minos/scenario"
	"minos/trace"
)

type options struct {
	board    config.Board
	script   *scenario.Script
	dump     string
	timeline string
	mem      bool
}

func main() {
	var (
		boardPath  string
		scriptPath string
		headless   bool
		scale      int
		hz         int
		ticks      uint64
		traceText  bool
		traceColor string
		traceFile  string
		serialPort string
		baud       int
		opts       options
	)
	flag.StringVar(&boardPath, "board", "", "Board file (YAML).")
	flag.StringVar(&scriptPath, "script", "", "Scenario script to run instead of the demo.")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&scale, "scale", 2, "Window pixels per framebuffer pixel.")
	flag.IntVar(&hz, "hz", 0, "Time slices per wall-clock second (0 = as fast as possible).")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N time slices (0 = run forever).")
	flag.BoolVar(&traceText, "trace", false, "Print kernel events.")
	flag.StringVar(&traceColor, "trace-color", "auto", "Colour printed events: auto, always or never.")
	flag.StringVar(&traceFile, "trace-file", "", "Write binary kernel events to a file.")
	flag.StringVar(&serialPort, "trace-serial", "", "Stream binary kernel events to a serial port.")
	flag.IntVar(&baud, "baud", 115200, "Serial port baud rate.")
	flag.StringVar(&opts.dump, "dump", "", "Write the stacks as Intel HEX on exit.")
	flag.StringVar(&opts.timeline, "timeline", "", "Render the schedule as PNG on exit.")
	flag.BoolVar(&opts.mem, "mem", false, "Print the memory footprint on exit.")
	flag.Parse()

	opts.board = config.Default()
	if boardPath != "" {
		b, err := config.Load(boardPath)
		if err != nil {
			fail(err)
		}
		opts.board = b
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hz":
			opts.board.Run.Hz = hz
		case "ticks":
			opts.board.Run.Ticks = ticks
		case "trace":
			opts.board.Trace.Text = traceText
		case "trace-color":
			opts.board.Trace.Color = traceColor
		case "trace-file":
			opts.board.Trace.File = traceFile
		case "trace-serial":
			opts.board.Trace.Serial = serialPort
		case "baud":
			opts.board.Trace.Baud = baud
		}
	})
	if err := opts.board.Validate(); err != nil {
		fail(err)
	}
	if scriptPath != "" {
		s, err := scenario.Load(scriptPath)
		if err != nil {
			fail(err)
		}
		opts.script = s
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if headless {
		err = hal.RunHeadless(ctx, func(ctx context.Context, h hal.HAL) error {
			return run(ctx, h, nil, opts)
		}, opts.board.Headless())
	} else {
		sc, scErr := opts.board.Headless().SimConfig()
		if scErr != nil {
			fail(scErr)
		}
		var con atomic.Pointer[console.Console]
		err = hal.RunWindow(ctx, func(ctx context.Context, h hal.HAL) error {
			c := console.New(h.Display())
			con.Store(c)
			return run(ctx, h, c, opts)
		}, sc, hal.WindowConfig{
			Title: "minos (" + buildinfo.Short() + ")",
			Scale: scale,
			Frame: func() error {
				if c := con.Load(); c != nil {
					return c.Flush()
				}
				return nil
			},
		})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fail(err)
	}
}

func run(ctx context.Context, h hal.HAL, con *console.Console, opts options) error {
	board := opts.board
	names := make(map[uint8]string)
	var sinks trace.Multi

	if board.Trace.Text {
		w, color := stdout(board.Trace.Color)
		sinks = append(sinks, &trace.Text{W: w, Color: color, Names: names})
	}
	if con != nil {
		sinks = append(sinks, &trace.Text{W: con, Names: names})
	}
	var encoders []*trace.Encoder
	if board.Trace.File != "" {
		f, err := os.Create(board.Trace.File)
		if err != nil {
			return err
		}
		defer f.Close()
		encoders = append(encoders, trace.NewEncoder(f))
	}
	if board.Trace.Serial != "" {
		port, err := serial.Open(board.Trace.Serial, &serial.Mode{BaudRate: board.Trace.Baud})
		if err != nil {
			return fmt.Errorf("trace serial %s: %w", board.Trace.Serial, err)
		}
		defer port.Close()
		encoders = append(encoders, trace.NewEncoder(port))
	}
	for _, enc := range encoders {
		sinks = append(sinks, enc)
	}
	var rec *trace.Recorder
	if opts.timeline != "" {
		rec = trace.NewRecorder(1 << 16)
		sinks = append(sinks, rec)
	}

	sys, err := app.New(h, app.Config{
		Board:   board,
		Script:  opts.script,
		Trace:   sinks,
		Console: con,
	})
	if err != nil {
		return err
	}
	for id, name := range sys.SemNames() {
		names[id] = name
	}

	runErr := sys.Run(ctx)
	for _, enc := range encoders {
		if err := enc.Err(); err != nil {
			h.Logger().WriteLineString("trace: " + err.Error())
		}
	}
	if err := report(h, sys, rec, opts); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func report(h hal.HAL, sys *app.System, rec *trace.Recorder, opts options) error {
	k := sys.Kernel()
	if opts.mem {
		h.Logger().WriteLineString(memdump.Footprint(k).String())
	}
	if opts.dump != "" {
		if err := writeFile(opts.dump, func(w io.Writer) error {
			return memdump.WriteHex(w, memdump.Stacks(k))
		}); err != nil {
			return err
		}
	}
	if rec != nil {
		return writeFile(opts.timeline, func(w io.Writer) error {
			return timeline.WritePNG(w, rec.Events(), k.Threads(), timeline.Options{Names: sys.Names()})
		})
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// stdout returns the writer for printed events and whether to colour them.
func stdout(mode string) (io.Writer, bool) {
	fd := os.Stdout.Fd()
	switch mode {
	case "always":
		return colorable.NewColorableStdout(), true
	case "never":
		return os.Stdout, false
	}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return colorable.NewColorableStdout(), true
	}
	return os.Stdout, false
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
