package stream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns a byte stream into text incrementally. Bytes of a
// multi-byte character split across calls are held back until the
// character is complete. Invalid sequences decode to U+FFFD.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, 4096),
	}
}

// Decode appends p to the pending bytes and returns every complete
// character decoded so far.
func (d *Decoder) Decode(p []byte) string {
	return d.decode(p, false)
}

// Flush decodes whatever is still pending as the end of the stream and
// resets the decoder.
func (d *Decoder) Flush() string {
	s := d.decode(nil, true)
	d.pending = nil
	d.t.Reset()
	return s
}

func (d *Decoder) decode(p []byte, atEOF bool) string {
	d.pending = append(d.pending, p...)

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, d.pending, atEOF)
		out.Write(d.dst[:nDst])
		d.pending = d.pending[nSrc:]
		if err != transform.ErrShortDst {
			break
		}
	}
	return out.String()
}
