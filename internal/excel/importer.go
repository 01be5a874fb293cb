package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/reptrainer/internal/pgn"
	"github.com/example/reptrainer/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath          string       // Path to the Excel or CSV file
	RepertoireColumn  string       // Column with the repertoire name
	ColorColumn       string       // Column with the trained color
	ChapterColumn     string       // Column with the chapter name
	MovesColumn       string       // Column with the movetext of the line
	CommentColumn     string       // Column with a comment on the last move
	SheetName         string       // Name of the sheet to import, empty for the first sheet
	StartRow          int          // The row to start importing from (1-based index)
	DefaultRepertoire string       // Used when the repertoire cell is empty
	DefaultColor      models.Color // Used when the color cell is empty
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		RepertoireColumn: "A",
		ColorColumn:      "B",
		ChapterColumn:    "C",
		MovesColumn:      "D",
		CommentColumn:    "E",
		StartRow:         2, // By default, start from the second row (skip header)
		DefaultColor:     models.White,
	}
}

// LineRow is one line read from a sheet
type LineRow struct {
	Row        int
	Repertoire string
	Color      models.Color
	Chapter    string
	Moves      []string
	Comment    string
}

// Sink stores imported lines
type Sink interface {
	// ImportLine adds the line and reports whether it extended the repertoire.
	ImportLine(ctx context.Context, row LineRow) (bool, error)
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Existing       int
	Skipped        int
	Errors         []string
}

var errSkipRow = errors.New("skipping row")

// ImportLines imports repertoire lines from an Excel or CSV file
func ImportLines(ctx context.Context, config ImportConfig, sink Sink) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors: make([]string, 0),
	}
	for _, row := range rows {
		result.TotalProcessed++
		if err := row.err; err != nil {
			if errors.Is(err, errSkipRow) {
				result.Skipped++
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Row, err))
			}
			continue
		}
		created, err := sink.ImportLine(ctx, row.LineRow)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Row, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}
	return result, nil
}

type parsedRow struct {
	LineRow
	err error
}

// readRows reads the lines of a file without storing them
func readRows(config ImportConfig) ([]parsedRow, error) {
	if config.StartRow < 1 {
		config.StartRow = 1
	}
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config)
	}
	return readExcel(config)
}

// readExcel reads rows from an Excel file
func readExcel(config ImportConfig) ([]parsedRow, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var result []parsedRow
	chapter := ""
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		if heading, ok := chapterHeading(row, config); ok {
			chapter = heading
			continue
		}
		result = append(result, processRow(row, config, i+1, chapter))
	}
	return result, nil
}

// readCSV reads rows from a CSV file
func readCSV(config ImportConfig) ([]parsedRow, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var result []parsedRow
	rowNum := 0
	chapter := ""
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		if heading, ok := chapterHeading(row, config); ok {
			chapter = heading
			continue
		}
		result = append(result, processRow(row, config, rowNum, chapter))
	}
	return result, nil
}

// chapterHeading recognizes a row holding only a chapter title in its first
// cell, such as "Najdorf,,,". Following rows without a chapter use it.
func chapterHeading(row []string, config ImportConfig) (string, bool) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" || columnToIndex(config.MovesColumn) == 0 {
		return "", false
	}
	for _, cell := range row[1:] {
		if strings.TrimSpace(cell) != "" {
			return "", false
		}
	}
	return strings.Trim(strings.TrimSpace(row[0]), "\""), true
}

// processRow converts a single row into a line
func processRow(row []string, config ImportConfig, rowNum int, chapter string) parsedRow {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if colIdx := columnToIndex(column); colIdx >= 0 && colIdx < len(row) {
			return strings.TrimSpace(row[colIdx])
		}
		return ""
	}

	line := LineRow{
		Row:        rowNum,
		Repertoire: cell(config.RepertoireColumn),
		Chapter:    cell(config.ChapterColumn),
		Comment:    cell(config.CommentColumn),
	}
	movetext := cell(config.MovesColumn)
	if movetext == "" {
		return parsedRow{LineRow: line, err: errSkipRow}
	}
	line.Moves = pgn.MainLine(pgn.ParsePgnBody(movetext))
	if len(line.Moves) == 0 {
		return parsedRow{LineRow: line, err: fmt.Errorf("no moves in %q", movetext)}
	}

	if line.Repertoire == "" {
		line.Repertoire = config.DefaultRepertoire
	}
	if line.Repertoire == "" {
		return parsedRow{LineRow: line, err: errors.New("repertoire cannot be empty")}
	}
	if line.Chapter == "" {
		line.Chapter = chapter
	}
	if line.Chapter == "" {
		line.Chapter = line.Repertoire
	}

	line.Color = config.DefaultColor
	if raw := cell(config.ColorColumn); raw != "" {
		color, ok := models.ParseColor(raw)
		if !ok {
			return parsedRow{LineRow: line, err: fmt.Errorf("unknown color %q", raw)}
		}
		line.Color = color
	}
	return parsedRow{LineRow: line}
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
