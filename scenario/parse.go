// Package scenario describes a kernel workload as a small script: a set of
// semaphores and one program per thread.
//
//	# producer/consumer through the FIFO
//	sem ready 0
//
//	thread producer
//	  loop 3
//	    put 7
//	  end
//	  signal ready
//	  idle
//
//	thread consumer
//	  wait ready
//	  get 7
//	  expect fifo.len 2
//	  halt
//
// Words are split shell style, so quoted log text keeps its spaces and '#'
// starts a comment. A thread whose program runs out idles.
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

var (
	ErrSyntax = errors.New("scenario: syntax error")
	ErrExpect = errors.New("scenario: expectation failed")
)

// OpKind is a script command.
type OpKind uint8

const (
	OpPut OpKind = iota + 1
	OpGet
	OpSend
	OpRecv
	OpWait
	OpSignal
	OpBurn
	OpYield
	OpLED
	OpLog
	OpExpect
	OpLoop
	OpIdle
	OpHalt
)

var opNames = map[string]OpKind{
	"put":    OpPut,
	"get":    OpGet,
	"send":   OpSend,
	"recv":   OpRecv,
	"wait":   OpWait,
	"signal": OpSignal,
	"burn":   OpBurn,
	"yield":  OpYield,
	"led":    OpLED,
	"log":    OpLog,
	"expect": OpExpect,
	"loop":   OpLoop,
	"idle":   OpIdle,
	"halt":   OpHalt,
}

func (k OpKind) String() string {
	for name, v := range opNames {
		if v == k {
			return name
		}
	}
	return "op" + strconv.Itoa(int(k))
}

// Op is one command. Which fields are set depends on Kind:
//
//	put, send, burn, loop  Value
//	get, recv              Value when Check is set
//	wait, signal           Name
//	led                    Value (0 or 1)
//	log                    Text
//	expect                 Name and Value
//	loop                   Body (Value 0 repeats forever)
type Op struct {
	Line  int
	Kind  OpKind
	Name  string
	Value int32
	Check bool
	Text  string
	Body  []Op
}

// Sem is a semaphore declaration.
type Sem struct {
	Line  int
	Name  string
	Value int32
}

// Thread is one thread's program.
type Thread struct {
	Line int
	Name string
	Body []Op
}

// Script is a parsed scenario.
type Script struct {
	Sems    []Sem
	Threads []Thread
}

// Load parses the script at path.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

type parser struct {
	s      *Script
	sems   map[string]bool
	thread *Thread
	// stack holds the open loop ops of the current thread.
	stack []*Op
}

// Parse reads a script.
func Parse(r io.Reader) (*Script, error) {
	p := &parser{s: &Script{}, sems: make(map[string]bool)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		words, err := shlex.Split(sc.Text())
		if err != nil {
			return nil, syntaxErr(line, "%v", err)
		}
		if len(words) == 0 {
			continue
		}
		if err := p.line(line, words); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := p.closeThread(line); err != nil {
		return nil, err
	}
	if len(p.s.Threads) == 0 {
		return nil, syntaxErr(line, "no threads")
	}
	return p.s, nil
}

func syntaxErr(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

func (p *parser) line(line int, words []string) error {
	switch words[0] {
	case "sem":
		if p.thread != nil {
			return syntaxErr(line, "sem must come before the first thread")
		}
		if len(words) != 3 {
			return syntaxErr(line, "usage: sem NAME VALUE")
		}
		if p.sems[words[1]] || isBuiltin(words[1]) {
			return syntaxErr(line, "semaphore %q declared twice", words[1])
		}
		v, err := number(line, words[2])
		if err != nil {
			return err
		}
		p.sems[words[1]] = true
		p.s.Sems = append(p.s.Sems, Sem{Line: line, Name: words[1], Value: v})
		return nil
	case "thread":
		if len(words) != 2 {
			return syntaxErr(line, "usage: thread NAME")
		}
		if err := p.closeThread(line); err != nil {
			return err
		}
		p.s.Threads = append(p.s.Threads, Thread{Line: line, Name: words[1]})
		p.thread = &p.s.Threads[len(p.s.Threads)-1]
		return nil
	case "end":
		if len(words) != 1 || len(p.stack) == 0 {
			return syntaxErr(line, "end without loop")
		}
		if top := p.stack[len(p.stack)-1]; len(top.Body) == 0 {
			return syntaxErr(line, "empty loop")
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	}

	if p.thread == nil {
		return syntaxErr(line, "%q outside a thread", words[0])
	}
	op, err := p.op(line, words)
	if err != nil {
		return err
	}
	body := &p.thread.Body
	if n := len(p.stack); n > 0 {
		body = &p.stack[n-1].Body
	}
	*body = append(*body, op)
	if op.Kind == OpLoop {
		p.stack = append(p.stack, &(*body)[len(*body)-1])
	}
	return nil
}

func (p *parser) closeThread(line int) error {
	if len(p.stack) > 0 {
		return syntaxErr(line, "loop opened on line %d has no end", p.stack[len(p.stack)-1].Line)
	}
	p.thread = nil
	return nil
}

func (p *parser) op(line int, words []string) (Op, error) {
	kind, ok := opNames[words[0]]
	if !ok {
		return Op{}, syntaxErr(line, "unknown command %q", words[0])
	}
	op := Op{Line: line, Kind: kind}
	args := words[1:]
	var err error
	switch kind {
	case OpPut, OpSend, OpBurn, OpLoop:
		if len(args) != 1 {
			return Op{}, syntaxErr(line, "usage: %s N", kind)
		}
		op.Value, err = number(line, args[0])
		if err == nil && (kind == OpBurn || kind == OpLoop) && op.Value < 0 {
			err = syntaxErr(line, "%s count %d is negative", kind, op.Value)
		}
	case OpGet, OpRecv:
		switch len(args) {
		case 0:
		case 1:
			op.Check = true
			op.Value, err = number(line, args[0])
		default:
			return Op{}, syntaxErr(line, "usage: %s [WANT]", kind)
		}
	case OpWait, OpSignal:
		if len(args) != 1 {
			return Op{}, syntaxErr(line, "usage: %s SEM", kind)
		}
		if !p.sems[args[0]] {
			return Op{}, syntaxErr(line, "undeclared semaphore %q", args[0])
		}
		op.Name = args[0]
	case OpLED:
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return Op{}, syntaxErr(line, "usage: led on|off")
		}
		if args[0] == "on" {
			op.Value = 1
		}
	case OpLog:
		if len(args) == 0 {
			return Op{}, syntaxErr(line, "usage: log TEXT")
		}
		op.Text = strings.Join(args, " ")
	case OpExpect:
		if len(args) != 2 {
			return Op{}, syntaxErr(line, "usage: expect SEM|fifo.len|fifo.room N")
		}
		if !p.sems[args[0]] && !isBuiltin(args[0]) {
			return Op{}, syntaxErr(line, "undeclared semaphore %q", args[0])
		}
		op.Name = args[0]
		op.Value, err = number(line, args[1])
	case OpYield, OpIdle, OpHalt:
		if len(args) != 0 {
			return Op{}, syntaxErr(line, "%s takes no arguments", kind)
		}
	}
	if err != nil {
		return Op{}, err
	}
	return op, nil
}

func isBuiltin(name string) bool {
	return name == "fifo.len" || name == "fifo.room"
}

func number(line int, s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, syntaxErr(line, "bad number %q", s)
	}
	return int32(v), nil
}
