package repertoire

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/example/reptrainer/internal/excel"
	"github.com/example/reptrainer/internal/pgn"
	"github.com/example/reptrainer/internal/review"
	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

// PGNImport selects where imported games go.
type PGNImport struct {
	Repertoire string
	Color      models.Color
	// Chapter receives every game when set. Otherwise games are grouped by
	// their Event tag, falling back to the file name.
	Chapter string
	// Replace drops the moves and line statistics of every chapter the file
	// writes to instead of merging into them.
	Replace bool
}

// PGNImportResult holds the result of a PGN import.
type PGNImportResult struct {
	Games    int
	Imported int
	Chapters []string // chapters that received games, in import order
	Errors   []string
}

// ImportLine implements excel.Sink.
func (s *Service) ImportLine(ctx context.Context, row excel.LineRow) (bool, error) {
	rep, err := s.EnsureRepertoire(ctx, row.Repertoire, row.Color)
	if err != nil {
		return false, err
	}
	return s.AddLine(ctx, rep.ID, row.Chapter, row.Moves, row.Comment)
}

// ImportSheet imports the lines of an Excel or CSV file.
func (s *Service) ImportSheet(ctx context.Context, cfg excel.ImportConfig) (*excel.ImportResult, error) {
	res, err := excel.ImportLines(ctx, cfg, s)
	if err != nil {
		return nil, err
	}
	s.log.Info("sheet imported",
		"file", cfg.FilePath,
		"rows", res.TotalProcessed,
		"created", res.Created,
		"errors", len(res.Errors),
	)
	return res, nil
}

// ImportPGN merges every game of a PGN file, variations and comments
// included, into the chapters of a repertoire. A game with an illegal move
// is reported and skipped as a whole.
func (s *Service) ImportPGN(ctx context.Context, path string, opts PGNImport) (*PGNImportResult, error) {
	rep, err := s.EnsureRepertoire(ctx, opts.Repertoire, opts.Color)
	if err != nil {
		return nil, err
	}

	type target struct {
		chapter *models.Chapter
		tree    *tree.VariationTree
	}
	var targets = make(map[string]*target)
	var result = &PGNImportResult{}

	var fallback = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	err = pgn.WalkPgnFile(path, func(game pgn.GameRaw) error {
		result.Games++
		var name = chapterName(&game, opts.Chapter, fallback)
		var startFEN = game.StartFEN()
		var tokens = pgn.ParsePgnBody(game.BodyRaw)

		// validate on a scratch tree so a bad game leaves the chapter untouched
		if _, err := pgn.BuildTree(s.oracle, startFEN, tokens); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Game %d: %v", result.Games, err))
			return nil
		}

		tg, ok := targets[name]
		if !ok {
			ch, err := s.EnsureChapter(ctx, rep.ID, name, startFEN)
			if err != nil {
				return err
			}
			t, err := s.LoadTree(ch)
			if err != nil {
				return err
			}
			if opts.Replace {
				t = tree.New(s.oracle, startFEN)
			}
			tg = &target{chapter: ch, tree: t}
			targets[name] = tg
			result.Chapters = append(result.Chapters, name)
		}

		if startFEN == "" {
			startFEN = rules.StartFEN
		}
		if !rules.SamePosition(tg.tree.StartFEN(), startFEN) {
			result.Errors = append(result.Errors, fmt.Sprintf("Game %d: %v", result.Games, ErrStartPosition))
			return nil
		}
		if err := pgn.AddToTree(tg.tree, tokens); err != nil {
			return err
		}
		result.Imported++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	for _, name := range result.Chapters {
		tg := targets[name]
		if opts.Replace {
			if err := s.lineStats.DeleteByChapter(ctx, tg.chapter.ID); err != nil {
				return nil, err
			}
		}
		if err := s.SaveTree(ctx, tg.chapter, tg.tree); err != nil {
			return nil, err
		}
	}
	s.log.Info("pgn imported",
		"file", path,
		"repertoire", rep.Name,
		"games", result.Games,
		"imported", result.Imported,
		"chapters", len(result.Chapters),
		"replace", opts.Replace,
	)
	return result, nil
}

func chapterName(game *pgn.GameRaw, chapter, fallback string) string {
	if chapter != "" {
		return chapter
	}
	if event, ok := game.TagValue("Event"); ok && event != "" && event != "?" {
		return event
	}
	return fallback
}

// GameReport is the review of one game of a PGN file.
type GameReport struct {
	Index  int
	White  string
	Black  string
	Review review.GameReview
	Err    error // set when the game has an illegal move; Review holds the plies before it
}

// PositionMap indexes every chapter of every repertoire trained with the
// color of rep, so that a game leaving rep for a sibling repertoire is still
// recognized.
func (s *Service) PositionMap(ctx context.Context, rep *models.Repertoire) (review.PositionMap, error) {
	reps, err := s.repertoires.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var sources []review.Source
	for _, r := range reps {
		if r.Color != rep.Color {
			continue
		}
		loaded, err := s.loadChapters(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, lc := range loaded {
			sources = append(sources, review.Source{Color: r.Color, Tree: lc.tree})
		}
	}

	m := review.BuildRepertoirePositionMap(s.oracle, sources, rep.Color)
	s.log.Debug("position map built",
		"color", rep.Color,
		"chapters", len(sources),
		"positions", m.Positions(),
	)
	return m, nil
}

// ReviewGame checks a game given as movetext against a repertoire.
func (s *Service) ReviewGame(ctx context.Context, rep *models.Repertoire, startFEN, movetext string) (review.GameReview, error) {
	m, err := s.PositionMap(ctx, rep)
	if err != nil {
		return review.GameReview{}, err
	}
	var sans = pgn.MainLine(pgn.ParsePgnBody(movetext))
	return review.ReviewGame(s.oracle, startFEN, sans, rep.Color, m)
}

// ReviewPGN checks every game of a PGN file against a repertoire.
func (s *Service) ReviewPGN(ctx context.Context, rep *models.Repertoire, path string) ([]GameReport, error) {
	m, err := s.PositionMap(ctx, rep)
	if err != nil {
		return nil, err
	}

	var reports []GameReport
	err = pgn.WalkPgnFile(path, func(game pgn.GameRaw) error {
		var report = GameReport{Index: len(reports) + 1}
		report.White, _ = game.TagValue("White")
		report.Black, _ = game.TagValue("Black")
		var sans = pgn.MainLine(pgn.ParsePgnBody(game.BodyRaw))
		report.Review, report.Err = review.ReviewGame(s.oracle, game.StartFEN(), sans, rep.Color, m)
		reports = append(reports, report)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to review %s: %w", path, err)
	}
	s.log.Info("games reviewed", "file", path, "repertoire", rep.Name, "games", len(reports))
	return reports, nil
}
