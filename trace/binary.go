package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sigurn/crc16"
)

// Binary records are what a board streams over its UART:
//
//	magic(1) kind(1) thread(1) other(1) sem(1) cycle(8) count(4) crc(2)
//
// Multi-byte fields are little endian; the CRC is CRC-16/CCITT-FALSE over
// everything before it.
const (
	recordMagic = 0xA5
	RecordSize  = 19
)

var (
	ErrChecksum = errors.New("trace: record checksum mismatch")
	ErrKind     = errors.New("trace: unknown record kind")
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// MarshalRecord encodes e into a fixed-size record.
func MarshalRecord(e Event) [RecordSize]byte {
	var rec [RecordSize]byte
	rec[0] = recordMagic
	rec[1] = byte(e.Kind)
	rec[2] = e.Thread
	rec[3] = e.Other
	rec[4] = e.Sem
	binary.LittleEndian.PutUint64(rec[5:13], e.Cycle)
	binary.LittleEndian.PutUint32(rec[13:17], uint32(e.Count))
	binary.LittleEndian.PutUint16(rec[17:19], crc16.Checksum(rec[:17], crcTable))
	return rec
}

// UnmarshalRecord decodes and verifies one record.
func UnmarshalRecord(rec []byte) (Event, error) {
	if len(rec) != RecordSize || rec[0] != recordMagic {
		return Event{}, fmt.Errorf("trace: malformed record % x", rec)
	}
	want := binary.LittleEndian.Uint16(rec[17:19])
	if got := crc16.Checksum(rec[:17], crcTable); got != want {
		return Event{}, fmt.Errorf("%w: got %#04x want %#04x", ErrChecksum, got, want)
	}
	e := Event{
		Kind:   Kind(rec[1]),
		Thread: rec[2],
		Other:  rec[3],
		Sem:    rec[4],
		Cycle:  binary.LittleEndian.Uint64(rec[5:13]),
		Count:  int32(binary.LittleEndian.Uint32(rec[13:17])),
	}
	if e.Kind < Launch || e.Kind > Halt {
		return Event{}, fmt.Errorf("%w: %d", ErrKind, rec[1])
	}
	return e, nil
}

// Encoder writes binary records. The first write error is kept and later
// events are dropped.
type Encoder struct {
	w   io.Writer
	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Emit(ev Event) {
	if e.err != nil {
		return
	}
	rec := MarshalRecord(ev)
	_, e.err = e.w.Write(rec[:])
}

// Err returns the first write error.
func (e *Encoder) Err() error { return e.err }

// Decoder reads binary records, resynchronising on the magic byte after
// line noise.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF at the end of input and
// ErrChecksum (wrapped) for a corrupted record, after which decoding can
// continue.
func (d *Decoder) Next() (Event, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		if b == recordMagic {
			break
		}
	}
	var rec [RecordSize]byte
	rec[0] = recordMagic
	if _, err := io.ReadFull(d.r, rec[1:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, err
	}
	return UnmarshalRecord(rec[:])
}
