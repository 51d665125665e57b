package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
)

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept text/event-stream, got %q", r.Header.Get("Accept"))
		}

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Prompt != "a bakery" || req.PreviousHTML != "<p>old</p>" || req.PreviousPrompt != "a cafe" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "===CODE_START===<p>hi</p>===CODE_END===")
	}))
	defer server.Close()

	c := NewClient(server.URL + "/")
	body, err := c.Generate(context.Background(), GenerateRequest{
		Prompt:         "a bakery",
		PreviousHTML:   "<p>old</p>",
		PreviousPrompt: "a cafe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	got, _ := io.ReadAll(body)
	if string(got) != "===CODE_START===<p>hi</p>===CODE_END===" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestGenerate_OmitsEmptyRefinement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if _, ok := raw["previous_html"]; ok {
			t.Error("previous_html should be omitted")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	body, err := NewClient(server.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body.Close()
}

func TestGenerateFromDescriptions_Paths(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var req DescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Description != "a red landing page" {
			t.Errorf("unexpected description %q", req.Description)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	ctx := context.Background()
	if body, err := c.GenerateFromImage(ctx, "a red landing page"); err != nil {
		t.Fatalf("image: %v", err)
	} else {
		body.Close()
	}
	if body, err := c.GenerateFromDocument(ctx, "a red landing page"); err != nil {
		t.Fatalf("document: %v", err)
	} else {
		body.Close()
	}

	want := []string{"/api/generate-website-from-image", "/api/generate-website-from-pdf"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("expected paths %v, got %v", want, paths)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"prompt is required"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Generate(context.Background(), GenerateRequest{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadRequest || se.Message != "prompt is required" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestGenerate_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Message != "upstream down" {
		t.Errorf("expected trimmed body, got %q", se.Message)
	}
}

func TestAnalyzeImage_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze-image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("expected file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "mock.png" {
			t.Errorf("expected filename mock.png, got %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("expected image/png, got %q", ct)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "PNGDATA" {
			t.Errorf("unexpected data %q", data)
		}
		json.NewEncoder(w).Encode(AnalysisResponse{
			Success:     true,
			Description: "a hero banner",
			Filename:    header.Filename,
		})
	}))
	defer server.Close()

	desc, err := NewClient(server.URL).AnalyzeImage(context.Background(), "/tmp/mock.png", []byte("PNGDATA"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc != "a hero banner" {
		t.Errorf("expected description, got %q", desc)
	}
}

func TestAnalyzeDocument_NoDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze-pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(AnalysisResponse{Success: false})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeDocument(context.Background(), "brief.pdf", []byte("%PDF-1.4"))
	if err == nil {
		t.Fatal("expected error for empty analysis")
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"a.PNG", nil, "image/png"},
		{"brief.pdf", nil, "application/pdf"},
		{"noext", []byte("%PDF-1.7\n"), "application/pdf"},
		{"noext", []byte("hello"), "text/plain"},
	}
	for _, tt := range tests {
		if got := ContentType(tt.name, tt.data); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStreamBody_InterruptionLineBecomesError(t *testing.T) {
	raw := "===CODE_START===<div>half" + StreamErrorPrefix + "upstream reset"
	tests := []struct {
		name string
		r    io.Reader
	}{
		{"whole", strings.NewReader(raw)},
		{"byte by byte", iotest.OneByteReader(strings.NewReader(raw))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &streamBody{body: io.NopCloser(tt.r)}
			got, err := io.ReadAll(body)

			var se *StreamError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StreamError, got %v", err)
			}
			if se.Message != "upstream reset" {
				t.Errorf("unexpected message %q", se.Message)
			}
			if string(got) != "===CODE_START===<div>half" {
				t.Errorf("interruption line leaked into text: %q", got)
			}
			if _, err := body.Read(make([]byte, 8)); !errors.As(err, &se) {
				t.Errorf("expected error to persist, got %v", err)
			}
		})
	}
}

func TestStreamBody_PassesLookalikesThrough(t *testing.T) {
	raw := "<p>\n[ERROR]: not ours</p>\n[ERR"
	body := &streamBody{body: io.NopCloser(iotest.OneByteReader(strings.NewReader(raw)))}

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != raw {
		t.Errorf("expected %q, got %q", raw, got)
	}
}

func TestGenerate_InterruptedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "===CODE_START===<p>")
		w.(http.Flusher).Flush()
		io.WriteString(w, StreamErrorPrefix+"model overloaded")
	}))
	defer server.Close()

	body, err := NewClient(server.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()

	_, err = io.ReadAll(body)
	var se *StreamError
	if !errors.As(err, &se) || se.Message != "model overloaded" {
		t.Errorf("expected stream error, got %v", err)
	}
}
