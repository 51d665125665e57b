package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MikeSquared-Agency/sitesmith/internal/analysis"
)

type analyzeResponse struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Message     string `json:"message"`
}

// multipartOverhead leaves room for form boundaries and headers around the file.
const multipartOverhead = 1 << 20

// analyze handles POST /api/analyze-image and /api/analyze-pdf
func (s *Server) analyze(kind analysis.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, analysis.MaxUploadSize+multipartOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusBadRequest, sizeMessage())
				return
			}
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, analysis.MaxUploadSize+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		if len(data) > analysis.MaxUploadSize {
			writeError(w, http.StatusBadRequest, sizeMessage())
			return
		}

		res, err := s.deps.Analyzer.Analyze(r.Context(), kind, header.Filename, data)
		switch {
		case errors.Is(err, analysis.ErrInvalidUpload):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			s.logger.Error("analysis failed", "kind", string(kind), "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error analyzing %s: %v", kind, err))
			return
		}

		label := "Image"
		if kind == analysis.KindDocument {
			label = "PDF"
		}
		writeJSON(w, http.StatusOK, analyzeResponse{
			Success:     true,
			Description: res.Description,
			Filename:    header.Filename,
			Message:     label + " analyzed successfully.",
		})
	}
}

func sizeMessage() string {
	return fmt.Sprintf("File size too large. Maximum size: %dMB", analysis.MaxUploadSize>>20)
}
