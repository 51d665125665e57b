package hermes

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	SubjectPhase      = "swarm.sitesmith.generation.phase"
	SubjectCompleted  = "swarm.sitesmith.generation.completed"
	SubjectFailed     = "swarm.sitesmith.generation.failed"
	SubjectRegistered = "swarm.agent.sitesmith.registered"

	// SubjectGenerationAll matches every generation event.
	SubjectGenerationAll = "swarm.sitesmith.generation.>"
)

// PhaseEvent is published each time a generation enters a new phase.
type PhaseEvent struct {
	GenerationID string    `json:"generation_id"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	At           time.Time `json:"at"`
}

// CompletedEvent is published when a generation stream ends normally.
type CompletedEvent struct {
	GenerationID string `json:"generation_id"`
	Kind         string `json:"kind"` // prompt | image | document
	Provider     string `json:"provider"`
	Phase        string `json:"phase"`
	AnalysisLen  int    `json:"analysis_len"`
	CodeLen      int    `json:"code_len"`
	SummaryLen   int    `json:"summary_len"`
	CodeComplete bool   `json:"code_complete"`
	DurationMS   int64  `json:"duration_ms"`
}

// FailedEvent is published when a generation cannot be opened or breaks
// mid-stream.
type FailedEvent struct {
	GenerationID string `json:"generation_id"`
	Kind         string `json:"kind"`
	Phase        string `json:"phase"`
	Error        string `json:"error"`
	DurationMS   int64  `json:"duration_ms"`
}

// Registration is published once when the service is ready.
type Registration struct {
	Timestamp time.Time `json:"timestamp"`
	Port      int       `json:"port"`
	Provider  string    `json:"provider"`
	History   bool      `json:"history"`
}

// Event is one decoded generation event. Exactly one of the pointers is set.
type Event struct {
	Subject   string
	Phase     *PhaseEvent
	Completed *CompletedEvent
	Failed    *FailedEvent
}

// GenerationID returns the id of the generation the event belongs to.
func (e Event) GenerationID() string {
	switch {
	case e.Phase != nil:
		return e.Phase.GenerationID
	case e.Completed != nil:
		return e.Completed.GenerationID
	case e.Failed != nil:
		return e.Failed.GenerationID
	}
	return ""
}

// DecodeEvent parses a message received on one of the generation subjects.
func DecodeEvent(subject string, data []byte) (Event, error) {
	evt := Event{Subject: subject}
	var target any
	switch subject {
	case SubjectPhase:
		evt.Phase = &PhaseEvent{}
		target = evt.Phase
	case SubjectCompleted:
		evt.Completed = &CompletedEvent{}
		target = evt.Completed
	case SubjectFailed:
		evt.Failed = &FailedEvent{}
		target = evt.Failed
	default:
		return Event{}, fmt.Errorf("unknown subject %s", subject)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", subject, err)
	}
	return evt, nil
}
