package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/sitesmith/internal/sections"
)

// Observer receives the machine's output. Calls happen synchronously on the
// goroutine feeding the machine, in the order the events occur.
type Observer interface {
	PhaseChanged(from, to sections.Phase)
	SectionUpdated(kind sections.Kind, res sections.Result, final bool)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnPhase   func(from, to sections.Phase)
	OnSection func(kind sections.Kind, res sections.Result, final bool)
}

func (o ObserverFuncs) PhaseChanged(from, to sections.Phase) {
	if o.OnPhase != nil {
		o.OnPhase(from, to)
	}
}

func (o ObserverFuncs) SectionUpdated(kind sections.Kind, res sections.Result, final bool) {
	if o.OnSection != nil {
		o.OnSection(kind, res, final)
	}
}

// Snapshot is the machine state at one instant.
type Snapshot struct {
	Phase   sections.Phase
	Results [len(sections.Kinds)]sections.Result
}

// Result returns the last known result for kind.
func (s Snapshot) Result(kind sections.Kind) sections.Result {
	return s.Results[kind]
}

// Machine consumes one generation reply. It owns the reply buffer for the
// lifetime of a single request; use a new Machine per request.
type Machine struct {
	obs      Observer
	buf      strings.Builder
	phase    sections.Phase
	results  [len(sections.Kinds)]sections.Result
	finished bool
}

func NewMachine(obs Observer) *Machine {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	return &Machine{obs: obs}
}

// Feed appends one chunk and emits the resulting transitions and updates.
// Feeding after Finish is a no-op.
func (m *Machine) Feed(chunk string) {
	if m.finished {
		return
	}
	m.buf.WriteString(chunk)
	buf := m.buf.String()

	if m.phase == sections.PhaseInput && sections.HasStart(buf, sections.Analysis) {
		m.advance(sections.PhaseAnalysis)
	}
	if m.phase < sections.PhaseGenerating && sections.HasStart(buf, sections.Code) {
		m.advance(sections.PhaseGenerating)
		m.update(sections.Analysis, buf, true)
	}
	if m.phase < sections.PhaseSummary && sections.HasStart(buf, sections.Summary) {
		m.advance(sections.PhaseSummary)
		m.update(sections.Code, buf, true)
	}

	if kind, ok := sections.KindFor(m.phase); ok {
		m.update(kind, buf, false)
	}
}

// Finish marks the end of the stream and emits final results for every
// section, including those never started. It is idempotent.
func (m *Machine) Finish() {
	if m.finished {
		return
	}
	m.finished = true
	buf := m.buf.String()
	for _, kind := range sections.Kinds {
		m.update(kind, buf, true)
	}
}

// Run drains src until it ends or fails. On io.EOF the machine is
// finished and Run returns nil; any other error is returned unchanged and
// the machine is left unfinished.
func (m *Machine) Run(ctx context.Context, src Source) error {
	for {
		chunk, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			m.Finish()
			return nil
		}
		if err != nil {
			return err
		}
		m.Feed(chunk)
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() sections.Phase {
	return m.phase
}

// Finished reports whether the end of the stream has been observed.
func (m *Machine) Finished() bool {
	return m.finished
}

// Snapshot returns the current phase and section results.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{Phase: m.phase, Results: m.results}
}

func (m *Machine) advance(to sections.Phase) {
	from := m.phase
	next, ok := Advance(from, to)
	if !ok {
		return
	}
	m.phase = next
	m.obs.PhaseChanged(from, next)
}

func (m *Machine) update(kind sections.Kind, buf string, final bool) {
	res := m.results[kind]
	if res.State != sections.Complete {
		res = sections.Extract(buf, kind)
		m.results[kind] = res
	}
	m.obs.SectionUpdated(kind, res, final)
}
