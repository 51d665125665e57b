package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/sitesmith/internal/processor"
)

// HeaderGenerationID carries the generation id on stream responses.
const HeaderGenerationID = "X-Generation-ID"

type generateRequest struct {
	Prompt         string `json:"prompt"`
	PreviousHTML   string `json:"previous_html"`
	PreviousPrompt string `json:"previous_prompt"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// generate handles POST /api/generate
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.stream(w, r, processor.Request{
		Kind:           processor.KindPrompt,
		Prompt:         body.Prompt,
		PreviousHTML:   body.PreviousHTML,
		PreviousPrompt: body.PreviousPrompt,
	})
}

// generateFromDescription handles the image and document generation routes.
func (s *Server) generateFromDescription(kind processor.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body descriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		s.stream(w, r, processor.Request{Kind: kind, Description: body.Description})
	}
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, req processor.Request) {
	run, err := s.deps.Generator.Start(r.Context(), req)
	var ve *processor.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
		return
	case err != nil:
		s.logger.Error("generation error", "kind", string(req.Kind), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(HeaderGenerationID, run.ID().String())
	w.WriteHeader(http.StatusOK)

	if _, err := run.Stream(w); err != nil {
		s.logger.Warn("generation stream ended with error", "generation_id", run.ID().String(), "error", err)
	}
}
