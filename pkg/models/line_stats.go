package models

import "time"

// LineStats tracks the spaced-repetition state of one drillable line using the SM-2 algorithm
type LineStats struct {
	LineID          string     `json:"line_id" db:"line_id"`
	RepertoireID    string     `json:"repertoire_id" db:"repertoire_id"`
	ChapterID       string     `json:"chapter_id" db:"chapter_id"`
	EaseFactor      float64    `json:"ease_factor" db:"ease_factor"`           // SM-2 EF parameter, never below 1.3
	Interval        int        `json:"interval" db:"interval_days"`            // Current interval in days
	Repetitions     int        `json:"repetitions" db:"repetitions"`           // Consecutive successful reviews
	LastQuality     int        `json:"last_quality" db:"last_quality"`         // 0-5 rating of last recall
	NextReviewDate  time.Time  `json:"next_review_date" db:"next_review_date"` // When the line is due again
	LastReviewDate  *time.Time `json:"last_review_date" db:"last_review_date"`
	TotalDrills     int        `json:"total_drills" db:"total_drills"`
	CorrectFirstTry int        `json:"correct_first_try" db:"correct_first_try"` // Drills completed without a mistake
	TotalMistakes   int        `json:"total_mistakes" db:"total_mistakes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsDue reports whether the line should be drilled at now
func (s *LineStats) IsDue(now time.Time) bool {
	return !s.NextReviewDate.After(now)
}
