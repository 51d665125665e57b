package analysis

import (
	"errors"
	"time"
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 20 << 20

// ErrInvalidUpload reports an upload that is empty, too large, corrupt or
// of a type the analyzer does not accept.
var ErrInvalidUpload = errors.New("invalid upload")

// Kind is the upload category.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Analysis is the description of one upload, ready to drive a generation.
type Analysis struct {
	Kind        Kind      `json:"kind"`
	Filename    string    `json:"filename"`
	MediaType   string    `json:"media_type"`
	Digest      string    `json:"digest"` // sha256 of the content, hex
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Cached      bool      `json:"-"`
}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

var documentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
}
