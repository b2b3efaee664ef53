// Package memdump writes the thread stacks as an Intel HEX RAM image and
// summarizes the kernel's memory footprint, FIFO buffer included.
package memdump

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/marcinbor85/gohex"

	"minos/kernel"
)

// SRAMBase is the address of the first stack in the board's memory map.
const SRAMBase uint32 = 0x20000000

const stackBytes = kernel.StackWords * 4

// Region is a run of words at a fixed address.
type Region struct {
	Name  string
	Addr  uint32
	Words []uint32
}

// Bytes returns the region in little-endian order.
func (r Region) Bytes() []byte {
	b := make([]byte, len(r.Words)*4)
	for i, w := range r.Words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// Stacks returns one region per thread, laid out back to back from SRAMBase.
func Stacks(k *kernel.Kernel) []Region {
	out := make([]Region, 0, k.Threads())
	for i := 0; i < k.Threads(); i++ {
		out = append(out, Region{
			Name:  fmt.Sprintf("stack%d", i),
			Addr:  SRAMBase + uint32(i)*stackBytes,
			Words: k.Thread(i).Stack(),
		})
	}
	return out
}

// WriteHex dumps regions as Intel HEX records of 16 data bytes.
func WriteHex(w io.Writer, regions []Region) error {
	mem := gohex.NewMemory()
	for _, r := range regions {
		if err := mem.AddBinary(r.Addr, r.Bytes()); err != nil {
			return fmt.Errorf("memdump: %s at %#08x: %w", r.Name, r.Addr, err)
		}
	}
	return mem.DumpIntelHex(w, 16)
}

// ReadHex parses an Intel HEX image and returns size bytes from addr,
// padding holes with 0xFF.
func ReadHex(r io.Reader, addr, size uint32) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("memdump: %w", err)
	}
	return mem.ToBinary(addr, size, 0xFF), nil
}

// Usage is the stack use of one thread.
type Usage struct {
	Thread uint8
	// Peak is the deepest the stack has been written, in bytes.
	Peak int
	// Frame is the saved context size at the time of the report.
	Frame int
}

// Report summarizes kernel memory.
type Report struct {
	Stacks []Usage
	Fifo   int
}

// Footprint measures k. Stack regions start zeroed, so the lowest non-zero
// word marks the deepest write.
func Footprint(k *kernel.Kernel) Report {
	var r Report
	for i := 0; i < k.Threads(); i++ {
		tcb := k.Thread(i)
		stack := tcb.Stack()
		low := len(stack)
		for j, w := range stack {
			if w != 0 {
				low = j
				break
			}
		}
		r.Stacks = append(r.Stacks, Usage{
			Thread: tcb.ID(),
			Peak:   (len(stack) - low) * 4,
			Frame:  (len(stack) - int(tcb.SP())) * 4,
		})
	}
	r.Fifo = k.Fifo().Cap() * 4
	return r
}

// Total is the RAM the stacks and the FIFO buffer take.
func (r Report) Total() int {
	return len(r.Stacks)*stackBytes + r.Fifo
}

func (r Report) String() string {
	var b strings.Builder
	for _, u := range r.Stacks {
		fmt.Fprintf(&b, "t%d stack %s, peak %s, saved %s\n", u.Thread,
			bytesize.New(stackBytes), bytesize.New(float64(u.Peak)), bytesize.New(float64(u.Frame)))
	}
	fmt.Fprintf(&b, "fifo %s\n", bytesize.New(float64(r.Fifo)))
	fmt.Fprintf(&b, "total %s", bytesize.New(float64(r.Total())))
	return b.String()
}
