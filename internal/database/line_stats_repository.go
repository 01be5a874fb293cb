package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/reptrainer/pkg/models"
)

const lineStatsColumns = `line_id, repertoire_id, chapter_id, ease_factor, interval_days, repetitions,
	last_quality, next_review_date, last_review_date, total_drills, correct_first_try,
	total_mistakes, created_at, updated_at`

// LineStatsRepository handles database operations for line scheduling records
type LineStatsRepository struct{}

// NewLineStatsRepository creates a new repository instance
func NewLineStatsRepository() *LineStatsRepository {
	return &LineStatsRepository{}
}

// GetByLineID returns the record of one line
func (r *LineStatsRepository) GetByLineID(ctx context.Context, lineID string) (*models.LineStats, error) {
	var stats models.LineStats
	err := DB.GetContext(ctx, &stats, rebind("SELECT "+lineStatsColumns+" FROM line_stats WHERE line_id = ?"), lineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line %s: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line stats: %w", err)
	}
	return &stats, nil
}

// GetByRepertoire returns every record of a repertoire keyed by line ID
func (r *LineStatsRepository) GetByRepertoire(ctx context.Context, repertoireID string) (map[string]models.LineStats, error) {
	var rows []models.LineStats
	err := DB.SelectContext(ctx, &rows, rebind("SELECT "+lineStatsColumns+" FROM line_stats WHERE repertoire_id = ?"), repertoireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get line stats: %w", err)
	}
	out := make(map[string]models.LineStats, len(rows))
	for _, s := range rows {
		out[s.LineID] = s
	}
	return out, nil
}

// GetByLineIDs returns the records of the given lines that exist
func (r *LineStatsRepository) GetByLineIDs(ctx context.Context, lineIDs []string) ([]models.LineStats, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+lineStatsColumns+" FROM line_stats WHERE line_id IN (?)", lineIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	var stats []models.LineStats
	if err := DB.SelectContext(ctx, &stats, rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get line stats: %w", err)
	}
	return stats, nil
}

// GetDue returns the records of a repertoire due at now, most overdue first.
// An empty repertoireID selects every repertoire.
func (r *LineStatsRepository) GetDue(ctx context.Context, repertoireID string, now time.Time) ([]models.LineStats, error) {
	query := "SELECT " + lineStatsColumns + " FROM line_stats WHERE next_review_date <= ?"
	args := []interface{}{now.UTC()}
	if repertoireID != "" {
		query += " AND repertoire_id = ?"
		args = append(args, repertoireID)
	}
	query += " ORDER BY next_review_date ASC"

	var stats []models.LineStats
	if err := DB.SelectContext(ctx, &stats, rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get due lines: %w", err)
	}
	return stats, nil
}

// CountDue returns the number of due lines per repertoire ID
func (r *LineStatsRepository) CountDue(ctx context.Context, now time.Time) (map[string]int, error) {
	var rows []struct {
		RepertoireID string `db:"repertoire_id"`
		Count        int    `db:"count"`
	}
	err := DB.SelectContext(ctx, &rows, rebind(`
		SELECT repertoire_id, COUNT(*) AS count
		FROM line_stats
		WHERE next_review_date <= ?
		GROUP BY repertoire_id
	`), now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count due lines: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.RepertoireID] = row.Count
	}
	return out, nil
}

// CreateOrUpdate stores a record keyed by its line ID
func (r *LineStatsRepository) CreateOrUpdate(ctx context.Context, stats *models.LineStats) error {
	now := time.Now().UTC()
	if stats.CreatedAt.IsZero() {
		stats.CreatedAt = now
	}
	stats.UpdatedAt = now

	var lastReview *time.Time
	if stats.LastReviewDate != nil {
		t := stats.LastReviewDate.UTC()
		lastReview = &t
	}

	// ON CONFLICT works on both SQLite (3.24+) and PostgreSQL
	_, err := DB.ExecContext(ctx, rebind(`
		INSERT INTO line_stats (
			line_id, repertoire_id, chapter_id, ease_factor, interval_days, repetitions,
			last_quality, next_review_date, last_review_date, total_drills, correct_first_try,
			total_mistakes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (line_id) DO UPDATE SET
			ease_factor = EXCLUDED.ease_factor,
			interval_days = EXCLUDED.interval_days,
			repetitions = EXCLUDED.repetitions,
			last_quality = EXCLUDED.last_quality,
			next_review_date = EXCLUDED.next_review_date,
			last_review_date = EXCLUDED.last_review_date,
			total_drills = EXCLUDED.total_drills,
			correct_first_try = EXCLUDED.correct_first_try,
			total_mistakes = EXCLUDED.total_mistakes,
			updated_at = EXCLUDED.updated_at
	`),
		stats.LineID,
		stats.RepertoireID,
		stats.ChapterID,
		stats.EaseFactor,
		stats.Interval,
		stats.Repetitions,
		stats.LastQuality,
		stats.NextReviewDate.UTC(),
		lastReview,
		stats.TotalDrills,
		stats.CorrectFirstTry,
		stats.TotalMistakes,
		stats.CreatedAt.UTC(),
		stats.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save line stats: %w", err)
	}
	return nil
}

// DeleteByChapter removes the records of every line of a chapter
func (r *LineStatsRepository) DeleteByChapter(ctx context.Context, chapterID string) error {
	if _, err := DB.ExecContext(ctx, rebind("DELETE FROM line_stats WHERE chapter_id = ?"), chapterID); err != nil {
		return fmt.Errorf("failed to delete line stats: %w", err)
	}
	return nil
}
