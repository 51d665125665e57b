package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
)

// HeaderGenerationID carries the server-side generation id on stream responses.
const HeaderGenerationID = "X-Generation-ID"

// Client talks to the sitesmith generation service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the service at baseURL. Requests carry no
// overall timeout because generation streams run as long as the upstream
// model keeps writing; use the request context to bound them.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// GenerateRequest is the body of a prompt generation. PreviousHTML and
// PreviousPrompt carry the last result when refining it.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	PreviousHTML   string `json:"previous_html,omitempty"`
	PreviousPrompt string `json:"previous_prompt,omitempty"`
}

// DescriptionRequest is the body of an image- or document-derived generation.
type DescriptionRequest struct {
	Description string `json:"description"`
}

// AnalysisResponse is returned by the analyze endpoints.
type AnalysisResponse struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Message     string `json:"message"`
}

// ErrorResponse is the error body written by the service.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StreamErrorPrefix starts the line the service appends to a 200 stream
// when the upstream breaks after the response has begun.
const StreamErrorPrefix = "\n[ERROR]: Stream interrupted - "

// StreamError is returned from a stream body that ended with the service's
// interruption line.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "stream interrupted: " + e.Message
}

// Generate opens a prompt generation stream. The caller must close the body.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/generate", req)
}

// GenerateFromImage opens a generation stream from an image description.
func (c *Client) GenerateFromImage(ctx context.Context, description string) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/generate-website-from-image", DescriptionRequest{Description: description})
}

// GenerateFromDocument opens a generation stream from a document description.
func (c *Client) GenerateFromDocument(ctx context.Context, description string) (io.ReadCloser, error) {
	return c.stream(ctx, "/api/generate-website-from-pdf", DescriptionRequest{Description: description})
}

// AnalyzeImage uploads an image and returns the service's description of it.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, data []byte) (string, error) {
	return c.analyze(ctx, "/api/analyze-image", filename, data)
}

// AnalyzeDocument uploads a document and returns the service's description of it.
func (c *Client) AnalyzeDocument(ctx context.Context, filename string, data []byte) (string, error) {
	return c.analyze(ctx, "/api/analyze-pdf", filename, data)
}

func (c *Client) stream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readError(resp)
	}
	return &streamBody{body: resp.Body}, nil
}

func (c *Client) analyze(ctx context.Context, path, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", ContentType(filename, data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readError(resp)
	}

	var out AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if !out.Success || out.Description == "" {
		return "", fmt.Errorf("analysis returned no description")
	}
	return out.Description, nil
}

// ContentType guesses the media type of an upload from its name, falling
// back to sniffing the content.
func ContentType(filename string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
		return ct
	}
	ct := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

func readError(resp *http.Response) error {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var errResp ErrorResponse
	if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
		return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
}

const streamReadSize = 4096

// maxStreamErrorLen bounds how much of the body is read for the message
// after the interruption prefix.
const maxStreamErrorLen = 4096

// streamBody passes the generation text through and turns the interruption
// line into a *StreamError. Bytes that could begin the prefix are held back
// until the next read decides them.
type streamBody struct {
	body    io.ReadCloser
	pending []byte
	err     error
}

func (s *streamBody) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	prefix := []byte(StreamErrorPrefix)
	for {
		if i := bytes.Index(s.pending, prefix); i >= 0 {
			if i > 0 {
				n := copy(p, s.pending[:i])
				s.pending = s.pending[n:]
				return n, nil
			}
			msg := s.pending[len(prefix):]
			if s.err == nil {
				rest, _ := io.ReadAll(io.LimitReader(s.body, maxStreamErrorLen))
				msg = append(msg, rest...)
			}
			s.pending = nil
			s.err = &StreamError{Message: strings.TrimSpace(string(msg))}
			return 0, s.err
		}

		safe := len(s.pending)
		if s.err == nil {
			safe -= partialPrefix(s.pending, prefix)
		}
		if safe > 0 {
			n := copy(p, s.pending[:safe])
			s.pending = s.pending[n:]
			return n, nil
		}
		if s.err != nil {
			return 0, s.err
		}

		buf := make([]byte, streamReadSize)
		n, err := s.body.Read(buf)
		s.pending = append(s.pending, buf[:n]...)
		if err != nil {
			s.err = err
		}
	}
}

func (s *streamBody) Close() error {
	return s.body.Close()
}

// partialPrefix is the length of the longest suffix of b that is a proper
// prefix of prefix.
func partialPrefix(b, prefix []byte) int {
	for k := min(len(b), len(prefix)-1); k > 0; k-- {
		if bytes.HasSuffix(b, prefix[:k]) {
			return k
		}
	}
	return 0
}
