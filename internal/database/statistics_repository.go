package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/reptrainer/pkg/models"
)

// StatisticsRepository computes aggregate statistics over line records
type StatisticsRepository struct{}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository() *StatisticsRepository {
	return &StatisticsRepository{}
}

// GetRepertoireSummary returns statistics about the tracked lines of a repertoire
func (r *StatisticsRepository) GetRepertoireSummary(ctx context.Context, repertoireID string, now time.Time) (*models.StatsSummary, error) {
	summary := &models.StatsSummary{RepertoireID: repertoireID}

	// Totals and averages
	err := DB.GetContext(ctx, summary, rebind(`
		SELECT
			COUNT(*) AS total_lines,
			COALESCE(SUM(total_drills), 0) AS total_drills,
			COALESCE(SUM(total_mistakes), 0) AS total_mistakes,
			COALESCE(AVG(ease_factor), 2.5) AS avg_ease_factor,
			COALESCE(AVG(interval_days), 0) AS avg_interval_days,
			0 AS due_lines,
			0 AS mastered_lines
		FROM line_stats
		WHERE repertoire_id = ?
	`), repertoireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get repertoire statistics: %w", err)
	}

	// Lines due now
	err = DB.GetContext(ctx, &summary.DueLines, rebind(
		"SELECT COUNT(*) FROM line_stats WHERE repertoire_id = ? AND next_review_date <= ?"),
		repertoireID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count due lines: %w", err)
	}

	// Lines mastered (recalled at least 5 times in a row with a high rating and a long interval)
	err = DB.GetContext(ctx, &summary.MasteredLines, rebind(
		"SELECT COUNT(*) FROM line_stats WHERE repertoire_id = ? AND repetitions >= 5 AND last_quality >= 4 AND interval_days >= 30"),
		repertoireID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mastered lines: %w", err)
	}

	return summary, nil
}
