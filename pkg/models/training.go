package models

import "time"

// TrainingMode is the order in which lines are drilled
type TrainingMode string

const (
	// DepthFirst completes each line before moving to the next one
	DepthFirst TrainingMode = "depth-first"
	// WidthFirst tests every line at one depth before going deeper
	WidthFirst TrainingMode = "width-first"
	// BreadthFirst asks every decision of the repertoire level by level, shallowest first
	BreadthFirst TrainingMode = "breadth-first"
)

// TrainingConfig selects what a training session drills
type TrainingConfig struct {
	RepertoireID string       `json:"repertoire_id"`
	ChapterID    string       `json:"chapter_id,omitempty"` // Empty means all chapters
	Mode         TrainingMode `json:"mode"`
	MaxDepth     int          `json:"max_depth,omitempty"` // Maximum plies per line, 0 for no limit
	DueOnly      bool         `json:"due_only,omitempty"`
}

// SessionResult records a finished or abandoned training session
type SessionResult struct {
	ID             string       `json:"id" db:"id"`
	RepertoireID   string       `json:"repertoire_id" db:"repertoire_id"`
	ChapterID      string       `json:"chapter_id" db:"chapter_id"`
	Mode           TrainingMode `json:"mode" db:"mode"`
	LinesTotal     int          `json:"lines_total" db:"lines_total"`
	LinesCompleted int          `json:"lines_completed" db:"lines_completed"`
	Mistakes       int          `json:"mistakes" db:"mistakes"`
	StartedAt      time.Time    `json:"started_at" db:"started_at"`
	FinishedAt     time.Time    `json:"finished_at" db:"finished_at"`
}
