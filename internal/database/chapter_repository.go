package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/reptrainer/pkg/models"
)

const chapterColumns = "id, repertoire_id, name, position, tree_json, created_at, updated_at"

// ChapterRepository handles database operations for chapters
type ChapterRepository struct{}

// NewChapterRepository creates a new repository instance
func NewChapterRepository() *ChapterRepository {
	return &ChapterRepository{}
}

// GetByRepertoire returns the chapters of a repertoire in their display order
func (r *ChapterRepository) GetByRepertoire(ctx context.Context, repertoireID string) ([]models.Chapter, error) {
	var chapters []models.Chapter
	query := rebind("SELECT " + chapterColumns + " FROM chapters WHERE repertoire_id = ? ORDER BY position, name")
	if err := DB.SelectContext(ctx, &chapters, query, repertoireID); err != nil {
		return nil, fmt.Errorf("failed to get chapters by repertoire: %w", err)
	}
	return chapters, nil
}

// GetByID returns a chapter by ID
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	var ch models.Chapter
	err := DB.GetContext(ctx, &ch, rebind("SELECT "+chapterColumns+" FROM chapters WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter by ID: %w", err)
	}
	return &ch, nil
}

// GetByName returns the chapter of a repertoire with the given name
func (r *ChapterRepository) GetByName(ctx context.Context, repertoireID, name string) (*models.Chapter, error) {
	var ch models.Chapter
	err := DB.GetContext(ctx, &ch, rebind("SELECT "+chapterColumns+" FROM chapters WHERE repertoire_id = ? AND name = ?"), repertoireID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chapter %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter by name: %w", err)
	}
	return &ch, nil
}

// Create inserts a new chapter at the end of its repertoire
func (r *ChapterRepository) Create(ctx context.Context, ch *models.Chapter) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	var last sql.NullInt64
	if err := DB.GetContext(ctx, &last, rebind("SELECT MAX(position) FROM chapters WHERE repertoire_id = ?"), ch.RepertoireID); err != nil {
		return fmt.Errorf("failed to get chapter position: %w", err)
	}
	if last.Valid {
		ch.Position = int(last.Int64) + 1
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	_, err := DB.ExecContext(ctx, rebind(`
		INSERT INTO chapters (id, repertoire_id, name, position, tree_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), ch.ID, ch.RepertoireID, ch.Name, ch.Position, ch.TreeJSON, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// Update stores the name, position and tree of an existing chapter
func (r *ChapterRepository) Update(ctx context.Context, ch *models.Chapter) error {
	ch.UpdatedAt = time.Now().UTC()
	result, err := DB.ExecContext(ctx, rebind(`
		UPDATE chapters SET
			name = ?,
			position = ?,
			tree_json = ?,
			updated_at = ?
		WHERE id = ?
	`), ch.Name, ch.Position, ch.TreeJSON, ch.UpdatedAt, ch.ID)
	if err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("chapter %s: %w", ch.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a chapter and the statistics of its lines
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM line_stats WHERE chapter_id = ?"), id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete line statistics: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM chapters WHERE id = ?"), id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		tx.Rollback()
		return fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
