package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MikeSquared-Agency/sitesmith/internal/render"
	"github.com/MikeSquared-Agency/sitesmith/internal/session"
	"github.com/MikeSquared-Agency/sitesmith/internal/transport"
)

func newTestREPL(t *testing.T, handler http.HandlerFunc) (*repl, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var out bytes.Buffer
	r, split := newRenderer(120)
	live := render.NewLive(io.Discard, r, 120, false)
	client := transport.NewClient(server.URL)
	ctrl := session.New(client, client, live.Update, slog.Default())
	return &repl{ctrl: ctrl, split: split, live: live, out: &out}, &out
}

func TestREPL_GenerateAndSave(t *testing.T) {
	rp, out := newTestREPL(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "===ANALYSIS_START===plan===ANALYSIS_END======CODE_START===<p>hi</p>===CODE_END===")
	})
	path := filepath.Join(t.TempDir(), "site.html")

	in := strings.NewReader("a bakery\n/save " + path + "\n/quit\n")
	if err := rp.run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "done:") {
		t.Errorf("expected completion message, got:\n%s", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected saved file: %v", err)
	}
	if string(data) != "<p>hi</p>" {
		t.Errorf("unexpected saved HTML %q", data)
	}
}

func TestREPL_Commands(t *testing.T) {
	rp, out := newTestREPL(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})

	in := strings.NewReader("/width 50\n/bogus\n/save\n/save x.html\n/reset\n")
	if err := rp.run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"sidebar is 50 columns", "unknown command /bogus", "usage: /save <path>", "nothing generated yet"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	if rp.split.Dragging() {
		t.Error("resize should release the drag")
	}
}

func TestREPL_AnalysisFailureShownInView(t *testing.T) {
	rp, _ := newTestREPL(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unsupported image type"}`)
	})
	path := filepath.Join(t.TempDir(), "mock.png")
	os.WriteFile(path, []byte("PNG"), 0o644)

	if err := rp.command(context.Background(), "/image "+path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := rp.ctrl.View()
	if v.Image != nil {
		t.Error("failed upload should be cleared")
	}
	if !strings.Contains(v.Error, "Image analysis failed") {
		t.Errorf("expected analysis error in view, got %q", v.Error)
	}
}

type interruptWatch struct {
	mu      sync.Mutex
	sig     chan os.Signal
	watched int
	stopped int
}

func (w *interruptWatch) watch() (<-chan os.Signal, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched++
	return w.sig, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.stopped++
	}
}

func TestREPL_InterruptOnlyWatchedWhileGenerating(t *testing.T) {
	w := &interruptWatch{sig: make(chan os.Signal, 1)}
	started := make(chan struct{})
	rp, out := newTestREPL(t, func(rw http.ResponseWriter, r *http.Request) {
		io.WriteString(rw, "===ANALYSIS_START===plan")
		rw.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	})
	rp.interrupts = w.watch

	go func() {
		<-started
		w.sig <- os.Interrupt
	}()

	in := strings.NewReader("/width 50\na bakery\n/width 40\n")
	if err := rp.run(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.watched != 1 || w.stopped != 1 {
		t.Errorf("expected one watch for the one generation, got watched=%d stopped=%d", w.watched, w.stopped)
	}
	if !strings.Contains(out.String(), "generation reset") {
		t.Errorf("expected interrupt to reset the generation, got:\n%s", out.String())
	}
	if v := rp.ctrl.View(); v.Generating || v.Analysis != "" {
		t.Errorf("expected a cleared view after reset, got %+v", v)
	}
}
