package models

// StatsSummary aggregates line statistics of a repertoire
type StatsSummary struct {
	RepertoireID    string  `json:"repertoire_id" db:"repertoire_id"`
	TotalLines      int     `json:"total_lines" db:"total_lines"`
	DueLines        int     `json:"due_lines" db:"due_lines"`
	MasteredLines   int     `json:"mastered_lines" db:"mastered_lines"`
	TotalDrills     int     `json:"total_drills" db:"total_drills"`
	TotalMistakes   int     `json:"total_mistakes" db:"total_mistakes"`
	AvgEaseFactor   float64 `json:"avg_ease_factor" db:"avg_ease_factor"`
	AvgIntervalDays float64 `json:"avg_interval_days" db:"avg_interval_days"`
}
