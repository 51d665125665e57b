// Package analysis turns uploaded images and documents into text
// descriptions that a generation can be driven from.
package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "golang.org/x/image/webp"

	"github.com/MikeSquared-Agency/sitesmith/internal/cache"
	"github.com/MikeSquared-Agency/sitesmith/internal/llm"
	"github.com/MikeSquared-Agency/sitesmith/internal/prompts"
)

// Describer runs a vision completion. *llm.Generator implements it.
type Describer interface {
	Describe(ctx context.Context, prompt string, att *llm.Attachment) (string, error)
}

// Cache stores analyses by content digest. *cache.Store implements it.
type Cache interface {
	GetJSON(ctx context.Context, key cache.Key, v any) error
	SetJSON(ctx context.Context, key cache.Key, v any) error
}

type Analyzer struct {
	llm    Describer
	cache  Cache
	logger *slog.Logger
}

// New creates an analyzer. c may be nil to disable caching.
func New(describer Describer, c Cache, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: describer, cache: c, logger: logger}
}

// Analyze validates an upload and describes it. Identical content is served
// from the cache without calling the model.
func (a *Analyzer) Analyze(ctx context.Context, kind Kind, filename string, data []byte) (*Analysis, error) {
	mediaType, err := validate(kind, filename, data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := cache.Key{"analysis", string(kind), digest}

	if a.cache != nil {
		var cached Analysis
		err := a.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			a.logger.Info("analysis cache hit", "kind", kind, "filename", filename, "digest", digest[:12])
			cached.Filename = filename
			cached.Cached = true
			return &cached, nil
		case !errors.Is(err, cache.ErrNotFound):
			a.logger.Warn("analysis cache read failed", "error", err)
		}
	}

	res := &Analysis{
		Kind:      kind,
		Filename:  filename,
		MediaType: mediaType,
		Digest:    digest,
		CreatedAt: time.Now().UTC(),
	}

	var (
		prompt string
		att    *llm.Attachment
	)
	switch {
	case kind == KindImage:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode image: %v", ErrInvalidUpload, err)
		}
		res.Width, res.Height = cfg.Width, cfg.Height
		prompt = prompts.ImageAnalysis
		att = &llm.Attachment{Filename: filename, MediaType: mediaType, Data: data}
	case mediaType == "application/pdf":
		prompt = prompts.DocumentAnalysis(filename, "(the document is attached)")
		att = &llm.Attachment{Filename: filename, MediaType: mediaType, Data: data}
	default:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: document is not valid UTF-8 text", ErrInvalidUpload)
		}
		prompt = prompts.DocumentAnalysis(filename, string(data))
	}

	a.logger.Info("analyzing upload",
		"kind", kind,
		"filename", filename,
		"media_type", mediaType,
		"size", len(data),
	)

	desc, err := a.llm.Describe(ctx, prompt, att)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", kind, err)
	}
	if desc == "" {
		return nil, fmt.Errorf("describe %s: empty description", kind)
	}
	res.Description = desc

	if a.cache != nil {
		if err := a.cache.SetJSON(ctx, key, res); err != nil {
			a.logger.Warn("analysis cache write failed", "error", err)
		}
	}

	a.logger.Info("analysis complete", "kind", kind, "filename", filename, "description_len", len(desc))
	return res, nil
}

// validate checks size and type and returns the media type of the upload.
func validate(kind Kind, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("%w: file exceeds %d MB", ErrInvalidUpload, MaxUploadSize>>20)
	}

	mediaType := DetectMediaType(filename, data)
	switch kind {
	case KindImage:
		if !imageTypes[mediaType] {
			return "", fmt.Errorf("%w: unsupported image type %q", ErrInvalidUpload, mediaType)
		}
	case KindDocument:
		if !documentTypes[mediaType] {
			return "", fmt.Errorf("%w: only PDF files are allowed, got %q", ErrInvalidUpload, mediaType)
		}
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidUpload, kind)
	}
	return mediaType, nil
}

// DetectMediaType sniffs the content and falls back to the file extension
// when sniffing only finds generic text or binary.
func DetectMediaType(filename string, data []byte) string {
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	ext := strings.ToLower(filepath.Ext(filename))

	if sniffed == "text/plain" && (ext == ".md" || ext == ".markdown") {
		return "text/markdown"
	}
	if sniffed != "application/octet-stream" && sniffed != "" {
		return sniffed
	}
	if byExt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
		return byExt
	}
	return sniffed
}
