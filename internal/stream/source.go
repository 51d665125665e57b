package stream

import (
	"context"
	"io"
)

// Source supplies reply text in arrival order. Next returns io.EOF once the
// stream has ended; any other error is a transport failure. The returned
// chunk is only meaningful when err is nil.
type Source interface {
	Next(ctx context.Context) (string, error)
}

type chunkSource struct {
	chunks []string
}

// Chunks returns a Source that yields the given chunks and then io.EOF.
func Chunks(chunks ...string) Source {
	return &chunkSource{chunks: chunks}
}

func (s *chunkSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

const defaultReadSize = 4096

// ReaderSource decodes an underlying byte stream into text chunks. Chunk
// boundaries follow the reads of the underlying reader, never the markers.
type ReaderSource struct {
	r    io.Reader
	dec  *Decoder
	buf  []byte
	done bool
}

// NewReaderSource reads r in reads of up to size bytes.
func NewReaderSource(r io.Reader, size int) *ReaderSource {
	if size <= 0 {
		size = defaultReadSize
	}
	return &ReaderSource{
		r:   r,
		dec: NewDecoder(),
		buf: make([]byte, size),
	}
}

func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.r.Read(s.buf)
		text := s.dec.Decode(s.buf[:n])
		if err == io.EOF {
			s.done = true
			text += s.dec.Flush()
			if text == "" {
				return "", io.EOF
			}
			return text, nil
		}
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
}
