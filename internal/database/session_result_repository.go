package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/reptrainer/pkg/models"
)

// SessionResultRepository handles database operations for training session history
type SessionResultRepository struct{}

// NewSessionResultRepository creates a new repository instance
func NewSessionResultRepository() *SessionResultRepository {
	return &SessionResultRepository{}
}

// Create inserts a new session result
func (r *SessionResultRepository) Create(ctx context.Context, result *models.SessionResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	_, err := DB.ExecContext(ctx, rebind(`
		INSERT INTO session_results (
			id, repertoire_id, chapter_id, mode, lines_total,
			lines_completed, mistakes, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		result.ID,
		result.RepertoireID,
		result.ChapterID,
		result.Mode,
		result.LinesTotal,
		result.LinesCompleted,
		result.Mistakes,
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session result: %w", err)
	}
	return nil
}

// GetRecent returns the latest session results of a repertoire, newest first
func (r *SessionResultRepository) GetRecent(ctx context.Context, repertoireID string, limit int) ([]models.SessionResult, error) {
	if limit <= 0 {
		limit = 10
	}
	var results []models.SessionResult
	err := DB.SelectContext(ctx, &results, rebind(`
		SELECT id, repertoire_id, chapter_id, mode, lines_total, lines_completed, mistakes, started_at, finished_at
		FROM session_results
		WHERE repertoire_id = ?
		ORDER BY finished_at DESC
		LIMIT ?
	`), repertoireID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session results: %w", err)
	}
	return results, nil
}
