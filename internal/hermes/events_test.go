package hermes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCompletedEventParsing(t *testing.T) {
	raw := `{
		"generation_id": "gen-001",
		"kind": "image",
		"provider": "openrouter",
		"phase": "summary",
		"analysis_len": 42,
		"code_len": 1800,
		"summary_len": 120,
		"code_complete": true,
		"duration_ms": 5300
	}`

	var evt CompletedEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("failed to parse CompletedEvent: %v", err)
	}

	if evt.GenerationID != "gen-001" {
		t.Errorf("expected generation_id 'gen-001', got '%s'", evt.GenerationID)
	}
	if evt.Kind != "image" {
		t.Errorf("expected kind 'image', got '%s'", evt.Kind)
	}
	if evt.Provider != "openrouter" {
		t.Errorf("expected provider 'openrouter', got '%s'", evt.Provider)
	}
	if evt.CodeLen != 1800 || !evt.CodeComplete {
		t.Errorf("unexpected code fields: %+v", evt)
	}
	if evt.DurationMS != 5300 {
		t.Errorf("expected duration 5300, got %d", evt.DurationMS)
	}
}

func TestPhaseEventRoundTrip(t *testing.T) {
	evt := PhaseEvent{
		GenerationID: "gen-rt",
		From:         "analysis",
		To:           "generating",
		At:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var parsed PhaseEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if parsed != evt {
		t.Errorf("round-trip mismatch: got %+v, want %+v", parsed, evt)
	}
}

func TestSubjects(t *testing.T) {
	for _, s := range []string{SubjectPhase, SubjectCompleted, SubjectFailed} {
		if !strings.HasPrefix(s, strings.TrimSuffix(SubjectGenerationAll, ">")) {
			t.Errorf("subject %q is not matched by %q", s, SubjectGenerationAll)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	evt, err := DecodeEvent(SubjectFailed, []byte(`{"generation_id":"gen-9","kind":"prompt","phase":"generating","error":"upstream reset"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Failed == nil || evt.Phase != nil || evt.Completed != nil {
		t.Fatalf("expected only the failed event set, got %+v", evt)
	}
	if evt.GenerationID() != "gen-9" || evt.Failed.Error != "upstream reset" {
		t.Errorf("unexpected event %+v", evt.Failed)
	}

	evt, err = DecodeEvent(SubjectPhase, []byte(`{"generation_id":"gen-1","from":"input","to":"analysis"}`))
	if err != nil || evt.Phase == nil || evt.Phase.To != "analysis" {
		t.Errorf("unexpected phase decode %+v, %v", evt, err)
	}

	if _, err := DecodeEvent(SubjectRegistered, []byte(`{}`)); err == nil {
		t.Error("expected error for a non-generation subject")
	}
	if _, err := DecodeEvent(SubjectCompleted, []byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
