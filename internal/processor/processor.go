// Package processor runs server-side generations: it opens the upstream
// completion, forwards its text to the client, follows the reply through the
// phase machine, and records and announces the outcome.
package processor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/sitesmith/internal/hermes"
	"github.com/MikeSquared-Agency/sitesmith/internal/sections"
	"github.com/MikeSquared-Agency/sitesmith/internal/store"
	"github.com/MikeSquared-Agency/sitesmith/internal/stream"
)

// Stream is an open upstream completion. *llm.Stream implements it.
type Stream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
	Provider() string
}

// OpenFunc opens an upstream completion for the given messages.
type OpenFunc func(ctx context.Context, system, user string) (Stream, error)

// Recorder persists generations. *store.Store implements it.
type Recorder interface {
	SaveGeneration(ctx context.Context, g *store.Generation) error
}

// Publisher announces generation events. *hermes.Client implements it.
type Publisher interface {
	PublishPhase(evt hermes.PhaseEvent) error
	PublishCompleted(evt hermes.CompletedEvent) error
	PublishFailed(evt hermes.FailedEvent) error
}

const persistTimeout = 5 * time.Second

// Processor orchestrates generation requests. Recorder and Publisher are
// optional.
type Processor struct {
	open     OpenFunc
	recorder Recorder
	hermes   Publisher
	logger   *slog.Logger
}

func New(open OpenFunc, rec Recorder, pub Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		open:     open,
		recorder: rec,
		hermes:   pub,
		logger:   logger,
	}
}

// Run is one opened generation waiting to be streamed.
type Run struct {
	p       *Processor
	ctx     context.Context
	req     Request
	up      Stream
	gen     *store.Generation
	started time.Time
	logger  *slog.Logger
}

// Start validates req and opens the upstream completion. It returns a
// *ValidationError for bad requests; any other error means the upstream
// could not be opened and has already been recorded as a failure.
func (p *Processor) Start(ctx context.Context, req Request) (*Run, error) {
	system, user, err := gate(req)
	if err != nil {
		return nil, err
	}

	gen := &store.Generation{
		ID:        uuid.New(),
		Kind:      string(req.Kind),
		Request:   req.label(),
		Phase:     sections.PhaseInput.String(),
		Status:    store.StatusStreaming,
		CreatedAt: time.Now().UTC(),
	}
	r := &Run{
		p:       p,
		ctx:     ctx,
		req:     req,
		gen:     gen,
		started: time.Now(),
		logger:  p.logger.With("generation_id", gen.ID.String(), "kind", string(req.Kind)),
	}

	r.logger.Info("generation requested", "request_len", len(gen.Request), "refining", req.PreviousHTML != "")

	up, err := p.open(ctx, system, user)
	if err != nil {
		r.fail(err)
		return nil, fmt.Errorf("open upstream: %w", err)
	}
	r.up = up
	gen.Provider = up.Provider()
	r.save()
	return r, nil
}

// ID returns the generation id.
func (r *Run) ID() uuid.UUID {
	return r.gen.ID
}

// Stream forwards the upstream text to w until it ends, flushing after each
// delta when w is an http.Flusher. An upstream failure mid-stream appends an
// error line to w and is returned after being recorded.
func (r *Run) Stream(w io.Writer) (*store.Generation, error) {
	defer r.up.Close()

	flusher, _ := w.(http.Flusher)
	m := stream.NewMachine(stream.ObserverFuncs{
		OnPhase: r.phaseChanged,
	})

	for r.up.Next() {
		text := r.up.Text()
		if _, err := io.WriteString(w, text); err != nil {
			err = fmt.Errorf("write to client: %w", err)
			r.fail(err)
			return r.gen, err
		}
		if flusher != nil {
			flusher.Flush()
		}
		m.Feed(text)
	}

	if err := r.up.Err(); err != nil {
		r.logger.Error("stream interrupted", "error", err)
		fmt.Fprintf(w, "\n[ERROR]: Stream interrupted - %v", err)
		if flusher != nil {
			flusher.Flush()
		}
		r.capture(m)
		r.fail(err)
		return r.gen, fmt.Errorf("stream interrupted: %w", err)
	}

	m.Finish()
	r.capture(m)
	r.complete(m.Snapshot())
	return r.gen, nil
}

func (r *Run) phaseChanged(from, to sections.Phase) {
	r.gen.Phase = to.String()
	r.logger.Debug("phase changed", "from", from.String(), "to", to.String())
	evt := hermes.PhaseEvent{
		GenerationID: r.gen.ID.String(),
		From:         from.String(),
		To:           to.String(),
		At:           time.Now().UTC(),
	}
	r.p.publish("phase", func(pub Publisher) error { return pub.PublishPhase(evt) })
}

// capture copies the machine's best-known sections onto the record.
func (r *Run) capture(m *stream.Machine) {
	snap := m.Snapshot()
	r.gen.Phase = snap.Phase.String()
	r.gen.Analysis = snap.Result(sections.Analysis).Text
	r.gen.Code = snap.Result(sections.Code).Text
	r.gen.Summary = snap.Result(sections.Summary).Text
}

func (r *Run) complete(snap stream.Snapshot) {
	now := time.Now().UTC()
	r.gen.Status = store.StatusComplete
	r.gen.CompletedAt = &now
	r.save()

	code := snap.Result(sections.Code)
	evt := hermes.CompletedEvent{
		GenerationID: r.gen.ID.String(),
		Kind:         string(r.req.Kind),
		Provider:     r.gen.Provider,
		Phase:        r.gen.Phase,
		AnalysisLen:  len(r.gen.Analysis),
		CodeLen:      len(r.gen.Code),
		SummaryLen:   len(r.gen.Summary),
		CodeComplete: code.State == sections.Complete,
		DurationMS:   time.Since(r.started).Milliseconds(),
	}
	r.p.publish("completed", func(pub Publisher) error { return pub.PublishCompleted(evt) })

	r.logger.Info("generation complete",
		"provider", r.gen.Provider,
		"phase", r.gen.Phase,
		"code_len", evt.CodeLen,
		"code_complete", evt.CodeComplete,
		"duration_ms", evt.DurationMS,
	)
}

func (r *Run) fail(err error) {
	now := time.Now().UTC()
	r.gen.Status = store.StatusFailed
	r.gen.Error = err.Error()
	r.gen.CompletedAt = &now
	r.save()

	evt := hermes.FailedEvent{
		GenerationID: r.gen.ID.String(),
		Kind:         string(r.req.Kind),
		Phase:        r.gen.Phase,
		Error:        err.Error(),
		DurationMS:   time.Since(r.started).Milliseconds(),
	}
	r.p.publish("failed", func(pub Publisher) error { return pub.PublishFailed(evt) })
	r.logger.Warn("generation failed", "phase", r.gen.Phase, "error", err)
}

// save persists the record. It outlives a cancelled request context so a
// client disconnect is still recorded.
func (r *Run) save() {
	if r.p.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), persistTimeout)
	defer cancel()
	if err := r.p.recorder.SaveGeneration(ctx, r.gen); err != nil {
		r.logger.Error("failed to persist generation", "status", r.gen.Status, "error", err)
	}
}

func (p *Processor) publish(event string, send func(Publisher) error) {
	if p.hermes == nil {
		return
	}
	if err := send(p.hermes); err != nil {
		p.logger.Warn("failed to publish event", "event", event, "error", err)
	}
}
