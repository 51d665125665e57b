package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// slowReader returns at most len(p) bytes per Read, so callers control the
// split points with their buffer size.
type slowReader struct {
	data []byte
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDecoder_SplitMultiByteCharacter(t *testing.T) {
	d := NewDecoder()
	e := []byte("é") // 0xC3 0xA9

	if got := d.Decode(e[:1]); got != "" {
		t.Errorf("expected no output for a partial character, got %q", got)
	}
	if got := d.Decode(e[1:]); got != "é" {
		t.Errorf("expected %q, got %q", "é", got)
	}
}

func TestDecoder_FourByteCharacterByteByByte(t *testing.T) {
	d := NewDecoder()
	var out strings.Builder
	for _, b := range []byte("a🚀b") {
		out.WriteString(d.Decode([]byte{b}))
	}
	out.WriteString(d.Flush())
	if out.String() != "a🚀b" {
		t.Errorf("got %q", out.String())
	}
}

func TestDecoder_TruncatedCharacterAtEOF(t *testing.T) {
	d := NewDecoder()
	if got := d.Decode([]byte{'x', 0xE2, 0x9C}); got != "x" {
		t.Errorf("got %q, want %q", got, "x")
	}
	if got := d.Flush(); got != "�" {
		t.Errorf("flush = %q, want replacement character", got)
	}
}

func TestDecoder_LargeInput(t *testing.T) {
	d := NewDecoder()
	in := strings.Repeat("ü", 10000)
	got := d.Decode([]byte(in)) + d.Flush()
	if got != in {
		t.Errorf("large input not round-tripped: got %d bytes, want %d", len(got), len(in))
	}
}

func TestReaderSource_ReassemblesText(t *testing.T) {
	in := "===CODE_START===<p>日本語</p>===CODE_END==="
	for size := 1; size <= 8; size++ {
		src := NewReaderSource(&slowReader{data: []byte(in)}, size)
		var out strings.Builder
		for {
			chunk, err := src.Next(context.Background())
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("size %d: unexpected error: %v", size, err)
			}
			if chunk == "" {
				t.Fatalf("size %d: empty chunk returned with nil error", size)
			}
			out.WriteString(chunk)
		}
		if out.String() != in {
			t.Errorf("size %d: got %q", size, out.String())
		}
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestReaderSource_PropagatesReadError(t *testing.T) {
	boom := errors.New("stream aborted")
	src := NewReaderSource(errReader{err: boom}, 0)
	if _, err := src.Next(context.Background()); err != boom {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestChunks(t *testing.T) {
	src := Chunks("a", "b")
	ctx := context.Background()
	for _, want := range []string{"a", "b"} {
		got, err := src.Next(ctx)
		if err != nil || got != want {
			t.Fatalf("Next() = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
