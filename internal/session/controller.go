// Package session drives one generation request at a time: it validates the
// user's descriptors, opens the matching backend stream, and maps the phase
// machine's output onto the view the user sees.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sitesmith/internal/sections"
	"github.com/MikeSquared-Agency/sitesmith/internal/stream"
	"github.com/MikeSquared-Agency/sitesmith/internal/transport"
)

// ErrorPlaceholder replaces the code output when a generation fails.
const ErrorPlaceholder = "<!-- Error occurred while generating code -->"

// Backend opens generation streams. *transport.Client implements it.
type Backend interface {
	Generate(ctx context.Context, req transport.GenerateRequest) (io.ReadCloser, error)
	GenerateFromImage(ctx context.Context, description string) (io.ReadCloser, error)
	GenerateFromDocument(ctx context.Context, description string) (io.ReadCloser, error)
}

// Analyzer describes uploads. *transport.Client implements it.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, filename string, data []byte) (string, error)
	AnalyzeDocument(ctx context.Context, filename string, data []byte) (string, error)
}

// Listener receives a copy of the view after every change. It is called with
// the controller's lock held and must not call back into the Controller.
type Listener func(View)

type Tab int

const (
	TabPrompt Tab = iota
	TabCode
)

func (t Tab) String() string {
	if t == TabCode {
		return "code"
	}
	return "prompt"
}

type UploadKind int

const (
	UploadImage UploadKind = iota
	UploadDocument
)

func (k UploadKind) String() string {
	if k == UploadDocument {
		return "PDF"
	}
	return "image"
}

// Upload is an attached file and, once analysed, its description.
type Upload struct {
	Name        string
	Description string
	Analyzed    bool
}

// Ticket identifies one attach so late analysis results for a replaced
// upload are ignored.
type Ticket struct {
	kind UploadKind
	seq  uint64
}

// View is everything the user sees.
type View struct {
	Phase      sections.Phase
	ActiveTab  Tab
	Request    string
	Analysis   string
	Code       string
	Summary    string
	Error      string
	Generating bool
	Prompt     string
	Image      *Upload
	Document   *Upload
}

type upload struct {
	Upload
	seq uint64
}

type generation struct {
	id     string
	cancel context.CancelFunc
}

type descriptorKind int

const (
	descPrompt descriptorKind = iota
	descImage
	descDocument
)

type descriptor struct {
	kind  descriptorKind
	text  string
	label string
}

// Controller owns the user's descriptors and at most one in-flight generation.
type Controller struct {
	backend  Backend
	analyzer Analyzer
	listener Listener
	logger   *slog.Logger

	mu         sync.Mutex
	view       View
	uploads    [2]*upload
	seq        uint64
	current    *generation
	lastCode   string
	lastPrompt string
}

// New creates a controller. analyzer may be nil when analysis results are
// reported through Complete and Fail instead of Analyze.
func New(backend Backend, analyzer Analyzer, listener Listener, logger *slog.Logger) *Controller {
	if listener == nil {
		listener = func(View) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend:  backend,
		analyzer: analyzer,
		listener: listener,
		logger:   logger,
	}
}

// View returns a copy of the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// SetPrompt replaces the prompt text.
func (c *Controller) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Prompt = prompt
	c.emit()
}

// Attach records an upload whose analysis is pending. Attaching one kind
// clears the other kind along with its analysis.
func (c *Controller) Attach(kind UploadKind, name string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.uploads[kind] = &upload{Upload: Upload{Name: name}, seq: c.seq}
	c.uploads[other(kind)] = nil
	c.view.Error = ""
	c.emit()
	return Ticket{kind: kind, seq: c.seq}
}

// Complete stores the analysis for the upload identified by t. It reports
// false when that upload has since been replaced or cleared.
func (c *Controller) Complete(t Ticket, description string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.uploads[t.kind]
	if u == nil || u.seq != t.seq {
		return false
	}
	u.Description = description
	u.Analyzed = true
	c.emit()
	return true
}

// Fail clears the upload identified by t and surfaces err.
func (c *Controller) Fail(t Ticket, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.uploads[t.kind]
	if u == nil || u.seq != t.seq {
		return false
	}
	c.uploads[t.kind] = nil
	c.view.Error = fmt.Sprintf("%s analysis failed: %v", capitalize(t.kind.String()), err)
	c.emit()
	return true
}

// Detach removes an upload of the given kind and clears any error.
func (c *Controller) Detach(kind UploadKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads[kind] = nil
	c.view.Error = ""
	c.emit()
}

// Analyze attaches a file and runs it through the analyzer, recording the
// outcome. It blocks until the analysis finishes.
func (c *Controller) Analyze(ctx context.Context, kind UploadKind, name string, data []byte) error {
	if c.analyzer == nil {
		return fmt.Errorf("no analyzer configured")
	}
	t := c.Attach(kind, name)

	var (
		desc string
		err  error
	)
	switch kind {
	case UploadImage:
		desc, err = c.analyzer.AnalyzeImage(ctx, name, data)
	default:
		desc, err = c.analyzer.AnalyzeDocument(ctx, name, data)
	}
	if err != nil {
		c.logger.Warn("upload analysis failed", "kind", kind.String(), "name", name, "error", err)
		c.Fail(t, err)
		return err
	}
	c.Complete(t, desc)
	return nil
}

// Validate checks that a generation could start with the current descriptors.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.descriptor()
	return err
}

// Start runs one generation to completion. It returns ErrGenerating if one
// is already running, a *ValidationError if the descriptors are incomplete,
// a *TransportError if the stream fails, and ErrReset if Reset abandoned it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrGenerating
	}
	desc, err := c.descriptor()
	if err != nil {
		c.view.Error = err.Error()
		c.emit()
		c.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g := &generation{id: uuid.New().String(), cancel: cancel}
	c.current = g
	c.view.Request = desc.label
	c.view.Error = ""
	c.view.Analysis = ""
	c.view.Code = ""
	c.view.Summary = ""
	c.view.Phase = sections.PhaseInput
	c.view.Generating = true
	req := transport.GenerateRequest{Prompt: desc.text, PreviousHTML: c.lastCode, PreviousPrompt: c.lastPrompt}
	c.emit()
	c.mu.Unlock()

	logger := c.logger.With("generation_id", g.id)
	logger.Info("generation started", "descriptor", desc.kind.String())

	err = c.run(ctx, g, desc, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != g {
		logger.Info("generation abandoned by reset")
		return ErrReset
	}
	c.current = nil
	c.view.Generating = false

	if err != nil {
		logger.Error("generation failed", "error", err)
		c.view.Error = err.Error()
		c.view.Code = ErrorPlaceholder
		c.view.Phase = sections.PhaseInput
		c.emit()
		return &TransportError{Err: err}
	}

	if desc.kind == descPrompt {
		c.lastCode = c.view.Code
		c.lastPrompt = desc.text
	}
	logger.Info("generation complete", "phase", c.view.Phase.String(), "code_len", len(c.view.Code))
	c.emit()
	return nil
}

// Reset abandons any in-flight generation and clears every descriptor.
// Once it returns, nothing from the abandoned generation reaches the listener.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.uploads = [2]*upload{}
	c.lastCode = ""
	c.lastPrompt = ""
	c.view = View{Phase: sections.PhaseInput, ActiveTab: TabPrompt}
	c.emit()
}

func (c *Controller) run(ctx context.Context, g *generation, desc descriptor, req transport.GenerateRequest) error {
	var (
		body io.ReadCloser
		err  error
	)
	switch desc.kind {
	case descImage:
		body, err = c.backend.GenerateFromImage(ctx, desc.text)
	case descDocument:
		body, err = c.backend.GenerateFromDocument(ctx, desc.text)
	default:
		body, err = c.backend.Generate(ctx, req)
	}
	if err != nil {
		return err
	}
	defer body.Close()

	m := stream.NewMachine(stream.ObserverFuncs{
		OnPhase: func(_, to sections.Phase) {
			c.apply(g, func(v *View) {
				v.Phase = to
				if to >= sections.PhaseGenerating {
					v.ActiveTab = TabCode
				}
			})
		},
		OnSection: func(kind sections.Kind, res sections.Result, _ bool) {
			if res.State == sections.Absent {
				return
			}
			c.apply(g, func(v *View) {
				switch kind {
				case sections.Analysis:
					v.Analysis = res.Text
				case sections.Code:
					v.Code = res.Text
				case sections.Summary:
					v.Summary = res.Text
				}
			})
		},
	})
	return m.Run(ctx, stream.NewReaderSource(body, 0))
}

// apply mutates the view only while g is still the current generation.
func (c *Controller) apply(g *generation, fn func(*View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != g {
		return
	}
	fn(&c.view)
	c.emit()
}

func (c *Controller) descriptor() (descriptor, error) {
	img, doc := c.uploads[UploadImage], c.uploads[UploadDocument]
	prompt := strings.TrimSpace(c.view.Prompt)

	if img == nil && doc == nil && prompt == "" {
		return descriptor{}, &ValidationError{Msg: "Please enter a prompt, upload an image, or upload a PDF"}
	}
	if img != nil && !img.Analyzed {
		return descriptor{}, &ValidationError{Msg: "Please wait for image analysis to complete"}
	}
	if doc != nil && !doc.Analyzed {
		return descriptor{}, &ValidationError{Msg: "Please wait for PDF analysis to complete"}
	}

	switch {
	case img != nil:
		return descriptor{kind: descImage, text: img.Description, label: "Generate website from uploaded image: " + img.Name}, nil
	case doc != nil:
		return descriptor{kind: descDocument, text: doc.Description, label: "Generate website from uploaded PDF: " + doc.Name}, nil
	default:
		return descriptor{kind: descPrompt, text: c.view.Prompt, label: c.view.Prompt}, nil
	}
}

func (c *Controller) snapshot() View {
	v := c.view
	if u := c.uploads[UploadImage]; u != nil {
		cp := u.Upload
		v.Image = &cp
	}
	if u := c.uploads[UploadDocument]; u != nil {
		cp := u.Upload
		v.Document = &cp
	}
	return v
}

func (c *Controller) emit() {
	c.listener(c.snapshot())
}

func (k descriptorKind) String() string {
	switch k {
	case descImage:
		return "image"
	case descDocument:
		return "document"
	default:
		return "prompt"
	}
}

func other(kind UploadKind) UploadKind {
	if kind == UploadImage {
		return UploadDocument
	}
	return UploadImage
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
