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

// RepertoireRepository handles database operations for repertoires
type RepertoireRepository struct{}

// NewRepertoireRepository creates a new repository instance
func NewRepertoireRepository() *RepertoireRepository {
	return &RepertoireRepository{}
}

// GetAll returns all repertoires ordered by name
func (r *RepertoireRepository) GetAll(ctx context.Context) ([]models.Repertoire, error) {
	var reps []models.Repertoire
	err := DB.SelectContext(ctx, &reps, "SELECT id, name, color, created_at, updated_at FROM repertoires ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get repertoires: %w", err)
	}
	return reps, nil
}

// GetByID returns a repertoire by ID
func (r *RepertoireRepository) GetByID(ctx context.Context, id string) (*models.Repertoire, error) {
	var rep models.Repertoire
	err := DB.GetContext(ctx, &rep, rebind("SELECT id, name, color, created_at, updated_at FROM repertoires WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repertoire %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repertoire: %w", err)
	}
	return &rep, nil
}

// GetByName returns a repertoire by its unique name
func (r *RepertoireRepository) GetByName(ctx context.Context, name string) (*models.Repertoire, error) {
	var rep models.Repertoire
	err := DB.GetContext(ctx, &rep, rebind("SELECT id, name, color, created_at, updated_at FROM repertoires WHERE name = ?"), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repertoire %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repertoire: %w", err)
	}
	return &rep, nil
}

// Create inserts a new repertoire, assigning an ID if it has none
func (r *RepertoireRepository) Create(ctx context.Context, rep *models.Repertoire) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rep.CreatedAt = now
	rep.UpdatedAt = now

	_, err := DB.ExecContext(ctx, rebind(`
		INSERT INTO repertoires (id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), rep.ID, rep.Name, rep.Color, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create repertoire: %w", err)
	}
	return nil
}

// Delete removes a repertoire with its chapters, line statistics and session history
func (r *RepertoireRepository) Delete(ctx context.Context, id string) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	// Delete related rows explicitly, postgres and sqlite differ on cascade defaults
	for _, q := range []string{
		"DELETE FROM line_stats WHERE repertoire_id = ?",
		"DELETE FROM session_results WHERE repertoire_id = ?",
		"DELETE FROM chapters WHERE repertoire_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), id); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to delete repertoire data: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM repertoires WHERE id = ?"), id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete repertoire: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return fmt.Errorf("repertoire %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
