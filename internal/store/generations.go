package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// Generation is one persisted generation request and its outcome.
type Generation struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Request     string     `json:"request"`
	Provider    string     `json:"provider,omitempty"`
	Analysis    string     `json:"analysis"`
	Code        string     `json:"code"`
	Summary     string     `json:"summary"`
	Phase       string     `json:"phase"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GenerationSummary is a listing row; the generated code is left out.
type GenerationSummary struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Request   string    `json:"request"`
	Phase     string    `json:"phase"`
	Status    string    `json:"status"`
	CodeLen   int       `json:"code_len"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveGeneration inserts g or updates the row with the same id.
func (s *Store) SaveGeneration(ctx context.Context, g *Generation) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO generations (id, kind, request, provider, analysis, code, summary, phase, status, error, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider,
			analysis = EXCLUDED.analysis,
			code = EXCLUDED.code,
			summary = EXCLUDED.summary,
			phase = EXCLUDED.phase,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at`,
		g.ID, g.Kind, g.Request, g.Provider, g.Analysis, g.Code, g.Summary, g.Phase, g.Status, g.Error, g.CreatedAt, g.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save generation: %w", err)
	}
	return nil
}

// GetGeneration returns the generation with the given id.
func (s *Store) GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error) {
	var g Generation
	err := s.pool.QueryRow(ctx, `
		SELECT id, kind, request, provider, analysis, code, summary, phase, status, error, created_at, completed_at
		FROM generations WHERE id = $1`, id,
	).Scan(&g.ID, &g.Kind, &g.Request, &g.Provider, &g.Analysis, &g.Code, &g.Summary, &g.Phase, &g.Status, &g.Error, &g.CreatedAt, &g.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return &g, nil
}

// ListGenerations returns the most recent generations, newest first.
func (s *Store) ListGenerations(ctx context.Context, limit int) ([]GenerationSummary, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, request, phase, status, length(code), created_at
		FROM generations ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []GenerationSummary
	for rows.Next() {
		var g GenerationSummary
		if err := rows.Scan(&g.ID, &g.Kind, &g.Request, &g.Phase, &g.Status, &g.CodeLen, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
