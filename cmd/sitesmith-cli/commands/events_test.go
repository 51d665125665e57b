package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/sitesmith/internal/hermes"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		evt  hermes.Event
		want string
	}{
		{
			hermes.Event{Subject: hermes.SubjectPhase, Phase: &hermes.PhaseEvent{GenerationID: "g1", From: "input", To: "analysis"}},
			"09:30:00 g1 phase input -> analysis",
		},
		{
			hermes.Event{Subject: hermes.SubjectFailed, Failed: &hermes.FailedEvent{GenerationID: "g2", Kind: "prompt", Phase: "generating", Error: "upstream reset"}},
			"09:30:00 g2 failed kind=prompt phase=generating: upstream reset",
		},
	}
	for _, tt := range tests {
		if got := formatEvent(at, tt.evt); got != tt.want {
			t.Errorf("formatEvent = %q, want %q", got, tt.want)
		}
	}

	got := formatEvent(at, hermes.Event{Subject: hermes.SubjectCompleted, Completed: &hermes.CompletedEvent{GenerationID: "g3", CodeLen: 10, CodeComplete: true}})
	if !strings.Contains(got, "g3 completed") || !strings.Contains(got, "code=10 complete=true") {
		t.Errorf("unexpected completed line %q", got)
	}
}
