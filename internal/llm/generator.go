// Package llm talks to OpenAI-compatible chat completion providers. A primary
// provider is tried first; an optional fallback takes over when the primary
// rejects the credentials.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	generateTemperature = 0.2
	describeTemperature = 0.7
	describeMaxTokens   = 1000

	DefaultMaxTokens = 85000
)

// Provider is one OpenAI-compatible endpoint.
type Provider struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string
}

type upstream struct {
	Provider
	client openai.Client
}

func newUpstream(p Provider, opts ...option.RequestOption) *upstream {
	base := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		base = append(base, option.WithBaseURL(strings.TrimRight(p.BaseURL, "/")+"/"))
	}
	return &upstream{Provider: p, client: openai.NewClient(append(base, opts...)...)}
}

// Generator streams website generations and describes attachments.
type Generator struct {
	primary   *upstream
	fallback  *upstream
	maxTokens int
	logger    *slog.Logger
}

// New creates a generator. fallback may be nil; it is ignored when its key
// is empty or equal to the primary key.
func New(primary Provider, fallback *Provider, maxTokens int, logger *slog.Logger, opts ...option.RequestOption) *Generator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		primary:   newUpstream(primary, opts...),
		maxTokens: maxTokens,
		logger:    logger,
	}
	if fallback != nil && fallback.APIKey != "" && fallback.APIKey != primary.APIKey {
		g.fallback = newUpstream(*fallback, opts...)
	}
	return g
}

// HasFallback reports whether a usable fallback provider is configured.
func (g *Generator) HasFallback() bool {
	return g.fallback != nil
}

// Stream opens a streaming completion. The first delta is read before
// returning so that credential failures can be retried on the fallback.
func (g *Generator) Stream(ctx context.Context, system, user string) (*Stream, error) {
	s, err := g.openStream(ctx, g.primary, system, user)
	if err == nil {
		return s, nil
	}
	if !g.canFallback(err) {
		return nil, fmt.Errorf("open stream on %s: %w", g.primary.Name, err)
	}

	g.logger.Warn("primary generation failed, trying fallback",
		"primary", g.primary.Name,
		"fallback", g.fallback.Name,
		"error", err,
	)
	s, err = g.openStream(ctx, g.fallback, system, user)
	if err != nil {
		g.logger.Error("fallback generation failed", "fallback", g.fallback.Name, "error", err)
		return nil, fmt.Errorf("open stream on %s: %w", g.fallback.Name, err)
	}
	g.logger.Info("fallback generation opened", "fallback", g.fallback.Name)
	return s, nil
}

func (g *Generator) openStream(ctx context.Context, up *upstream, system, user string) (*Stream, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       up.Model,
		Temperature: param.NewOpt(generateTemperature),
		MaxTokens:   param.NewOpt(int64(g.maxTokens)),
	}

	s := &Stream{raw: up.client.Chat.Completions.NewStreaming(ctx, params), provider: up.Name}
	if s.advance() {
		s.primed = true
		return s, nil
	}
	if err := s.raw.Err(); err != nil {
		s.raw.Close()
		return nil, err
	}
	return s, nil
}

// Attachment is a file handed to Describe.
type Attachment struct {
	Filename  string
	MediaType string
	Data      []byte
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MediaType, "image/")
}

func (a Attachment) dataURL() string {
	return "data:" + a.MediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Describe runs a single vision completion over prompt and an optional
// attachment and returns the model's text.
func (g *Generator) Describe(ctx context.Context, prompt string, att *Attachment) (string, error) {
	text, err := g.describe(ctx, g.primary, prompt, att)
	if err == nil {
		return text, nil
	}
	if !g.canFallback(err) {
		return "", fmt.Errorf("describe on %s: %w", g.primary.Name, err)
	}

	g.logger.Warn("primary analysis failed, trying fallback",
		"primary", g.primary.Name,
		"fallback", g.fallback.Name,
		"error", err,
	)
	text, err = g.describe(ctx, g.fallback, prompt, att)
	if err != nil {
		return "", fmt.Errorf("describe on %s: %w", g.fallback.Name, err)
	}
	return text, nil
}

func (g *Generator) describe(ctx context.Context, up *upstream, prompt string, att *Attachment) (string, error) {
	contents := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(prompt)}
	if att != nil {
		if att.IsImage() {
			contents = append(contents, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: att.dataURL(),
			}))
		} else {
			contents = append(contents, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: param.NewOpt(att.dataURL()),
				Filename: param.NewOpt(att.Filename),
			}))
		}
	}

	model := up.VisionModel
	if model == "" {
		model = up.Model
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: contents},
			},
		}},
		Model:       model,
		Temperature: param.NewOpt(describeTemperature),
		MaxTokens:   param.NewOpt(int64(describeMaxTokens)),
	}

	resp, err := up.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *Generator) canFallback(err error) bool {
	return g.fallback != nil && IsAuthError(err)
}

// IsAuthError reports whether err is an upstream 401 or 403.
func IsAuthError(err error) bool {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// Stream yields the text deltas of one completion. Empty deltas are skipped.
type Stream struct {
	provider string
	raw      *ssestream.Stream[openai.ChatCompletionChunk]
	text     string
	primed   bool
}

// Next advances to the next non-empty delta.
func (s *Stream) Next() bool {
	if s.primed {
		s.primed = false
		return true
	}
	return s.advance()
}

func (s *Stream) advance() bool {
	for s.raw.Next() {
		chunk := s.raw.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			s.text = delta
			return true
		}
	}
	return false
}

// Provider names the provider serving the stream.
func (s *Stream) Provider() string {
	return s.provider
}

// Text returns the current delta.
func (s *Stream) Text() string {
	return s.text
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.raw.Err()
}

func (s *Stream) Close() error {
	return s.raw.Close()
}
