//go:build !tinygo

package main

import (
	"bytes"
	"io"
	"testing"

	"minos/trace"
)

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	enc := trace.NewEncoder(&buf)
	enc.Emit(trace.Event{Kind: trace.Launch})
	enc.Emit(trace.Event{Cycle: 10, Kind: trace.Switch, Thread: 2, Other: 0})
	enc.Emit(trace.Event{Cycle: 20, Kind: trace.Halt, Thread: 2})
	raw := buf.Bytes()
	raw[trace.RecordSize+8] ^= 0xff

	rec := trace.NewRecorder(8)
	st, err := decode(bytes.NewReader(raw), rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.events != 2 || st.bad != 1 || st.threads != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if got := rec.Events(); got[1].Kind != trace.Halt {
		t.Fatalf("events = %+v", got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	rec := trace.MarshalRecord(trace.Event{Kind: trace.Launch})
	_, err := decode(bytes.NewReader(rec[:5]), trace.NewRecorder(1))
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("decode error = %v, want io.ErrUnexpectedEOF", err)
	}
}
