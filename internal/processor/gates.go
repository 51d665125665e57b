package processor

import (
	"strings"

	"github.com/MikeSquared-Agency/sitesmith/internal/prompts"
)

// Kind is the entry point a generation came through.
type Kind string

const (
	KindPrompt   Kind = "prompt"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Request describes one generation. Prompt and the refinement fields apply
// to KindPrompt; Description applies to KindImage and KindDocument.
type Request struct {
	Kind           Kind
	Prompt         string
	PreviousHTML   string
	PreviousPrompt string
	Description    string
}

// ValidationError rejects a request before any upstream call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// gate checks a request and returns the system and user messages for it.
func gate(req Request) (system, user string, err error) {
	switch req.Kind {
	case KindPrompt:
		if strings.TrimSpace(req.Prompt) == "" {
			return "", "", &ValidationError{Msg: "Prompt is required"}
		}
		return prompts.System, prompts.User(req.Prompt, req.PreviousHTML, req.PreviousPrompt), nil
	case KindImage, KindDocument:
		desc := strings.TrimSpace(req.Description)
		if desc == "" {
			return "", "", &ValidationError{Msg: "Description is required"}
		}
		// Failed analyses come back as text starting with "Error"; never
		// generate a site from one.
		if strings.HasPrefix(desc, "Error") {
			return "", "", &ValidationError{Msg: "Invalid or missing description"}
		}
		return prompts.System, prompts.FromDescription(desc), nil
	default:
		return "", "", &ValidationError{Msg: "Unknown generation kind " + string(req.Kind)}
	}
}

// label is the request text recorded for a generation.
func (r Request) label() string {
	if r.Kind == KindPrompt {
		return strings.TrimSpace(r.Prompt)
	}
	return strings.TrimSpace(r.Description)
}
