package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Connect establishes a connection to the database.
// driver is "sqlite3" or "postgres"; dsn is a file path for sqlite3.
func Connect(driver, dsn string) error {
	if driver == "sqlite3" && isFilePath(dsn) {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}

		// SQLite doesn't support multiple writers, and every
		// connection to :memory: would open a new database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	// Initialize schema
	return initializeSchema()
}

func isFilePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"repertoires", `
		CREATE TABLE IF NOT EXISTS repertoires (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`},
		{"chapters", `
		CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			repertoire_id TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			tree_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (repertoire_id) REFERENCES repertoires(id) ON DELETE CASCADE,
			UNIQUE(repertoire_id, name)
		)`},
		{"line_stats", `
		CREATE TABLE IF NOT EXISTS line_stats (
			line_id TEXT PRIMARY KEY,
			repertoire_id TEXT NOT NULL,
			chapter_id TEXT NOT NULL,
			ease_factor REAL NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 0,
			repetitions INTEGER NOT NULL DEFAULT 0,
			last_quality INTEGER NOT NULL DEFAULT 0,
			next_review_date TIMESTAMP NOT NULL,
			last_review_date TIMESTAMP,
			total_drills INTEGER NOT NULL DEFAULT 0,
			correct_first_try INTEGER NOT NULL DEFAULT 0,
			total_mistakes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (chapter_id) REFERENCES chapters(id) ON DELETE CASCADE
		)`},
		{"session_results", `
		CREATE TABLE IF NOT EXISTS session_results (
			id TEXT PRIMARY KEY,
			repertoire_id TEXT NOT NULL,
			chapter_id TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			lines_total INTEGER NOT NULL DEFAULT 0,
			lines_completed INTEGER NOT NULL DEFAULT 0,
			mistakes INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			FOREIGN KEY (repertoire_id) REFERENCES repertoires(id) ON DELETE CASCADE
		)`},
	}

	for _, t := range tables {
		if _, err := DB.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	if _, err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_line_stats_due ON line_stats (repertoire_id, next_review_date)"); err != nil {
		return fmt.Errorf("failed to create line_stats index: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to the driver's bind type
func rebind(query string) string {
	return DB.Rebind(query)
}
