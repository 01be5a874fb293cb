package models

import (
	"strings"
	"time"
)

// Color is the side a repertoire is played with
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ParseColor accepts "white"/"w" and "black"/"b" in any case
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	}
	return "", false
}

// Repertoire is a named collection of chapters trained with one color
type Repertoire struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     Color     `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Chapter holds one variation tree of a repertoire in its serialized form
type Chapter struct {
	ID           string    `json:"id" db:"id"`
	RepertoireID string    `json:"repertoire_id" db:"repertoire_id"`
	Name         string    `json:"name" db:"name"`
	Position     int       `json:"position" db:"position"`   // Ordering inside the repertoire
	TreeJSON     string    `json:"tree_json" db:"tree_json"` // Serialized variation tree
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
