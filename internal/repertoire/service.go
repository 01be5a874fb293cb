// Package repertoire ties the training engine to storage: it loads and saves
// chapter trees, starts training sessions from stored statistics, persists
// ratings and reviews games against a stored repertoire.
package repertoire

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/reptrainer/internal/database"
	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/logger"
	"github.com/example/reptrainer/internal/rules"
	sr "github.com/example/reptrainer/internal/spaced_repetition"
	"github.com/example/reptrainer/internal/training"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

var (
	// ErrColorMismatch is returned when lines are added to an existing
	// repertoire with another color.
	ErrColorMismatch = errors.New("repertoire color mismatch")
	// ErrStartPosition is returned when a game does not start from the
	// start position of the chapter it is merged into.
	ErrStartPosition = errors.New("start position differs from chapter")
)

// Service is the application layer over the repositories.
type Service struct {
	oracle rules.Oracle
	sm2    *sr.SM2
	log    *logger.Logger
	now    func() time.Time

	repertoires *database.RepertoireRepository
	chapters    *database.ChapterRepository
	lineStats   *database.LineStatsRepository
	statistics  *database.StatisticsRepository
	results     *database.SessionResultRepository
}

// NewService creates a service on the global database connection.
func NewService(oracle rules.Oracle, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		oracle:      oracle,
		sm2:         sr.NewSM2(),
		log:         log,
		now:         time.Now,
		repertoires: database.NewRepertoireRepository(),
		chapters:    database.NewChapterRepository(),
		lineStats:   database.NewLineStatsRepository(),
		statistics:  database.NewStatisticsRepository(),
		results:     database.NewSessionResultRepository(),
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Oracle returns the rules oracle trees are built with.
func (s *Service) Oracle() rules.Oracle {
	return s.oracle
}

// Repertoires returns every repertoire ordered by name.
func (s *Service) Repertoires(ctx context.Context) ([]models.Repertoire, error) {
	return s.repertoires.GetAll(ctx)
}

// FindRepertoire looks a repertoire up by id, then by name.
func (s *Service) FindRepertoire(ctx context.Context, ref string) (*models.Repertoire, error) {
	ref = strings.TrimSpace(ref)
	rep, err := s.repertoires.GetByID(ctx, ref)
	if err == nil || !errors.Is(err, database.ErrNotFound) {
		return rep, err
	}
	return s.repertoires.GetByName(ctx, ref)
}

// EnsureRepertoire returns the repertoire called name, creating it with
// color when it does not exist.
func (s *Service) EnsureRepertoire(ctx context.Context, name string, color models.Color) (*models.Repertoire, error) {
	rep, err := s.repertoires.GetByName(ctx, name)
	switch {
	case err == nil:
		if color != "" && rep.Color != color {
			return nil, fmt.Errorf("%w: %q is trained with %s", ErrColorMismatch, name, rep.Color)
		}
		return rep, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	if color == "" {
		color = models.White
	}
	rep = &models.Repertoire{Name: name, Color: color}
	if err := s.repertoires.Create(ctx, rep); err != nil {
		return nil, err
	}
	s.log.Info("repertoire created", "name", name, "color", color)
	return rep, nil
}

// DeleteRepertoire removes a repertoire with everything recorded for it.
func (s *Service) DeleteRepertoire(ctx context.Context, id string) error {
	return s.repertoires.Delete(ctx, id)
}

// Chapters returns the chapters of a repertoire in display order.
func (s *Service) Chapters(ctx context.Context, repertoireID string) ([]models.Chapter, error) {
	return s.chapters.GetByRepertoire(ctx, repertoireID)
}

// FindChapter looks a chapter of the repertoire up by id, then by name.
func (s *Service) FindChapter(ctx context.Context, repertoireID, ref string) (*models.Chapter, error) {
	ref = strings.TrimSpace(ref)
	ch, err := s.chapters.GetByID(ctx, ref)
	if err == nil && ch.RepertoireID == repertoireID {
		return ch, nil
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	return s.chapters.GetByName(ctx, repertoireID, ref)
}

// EnsureChapter returns the chapter called name, creating an empty one.
func (s *Service) EnsureChapter(ctx context.Context, repertoireID, name, startFEN string) (*models.Chapter, error) {
	ch, err := s.chapters.GetByName(ctx, repertoireID, name)
	if err == nil || !errors.Is(err, database.ErrNotFound) {
		return ch, err
	}

	data, err := tree.New(s.oracle, startFEN).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode empty tree: %w", err)
	}
	ch = &models.Chapter{RepertoireID: repertoireID, Name: name, TreeJSON: string(data)}
	if err := s.chapters.Create(ctx, ch); err != nil {
		return nil, err
	}
	s.log.Debug("chapter created", "repertoire", repertoireID, "chapter", name)
	return ch, nil
}

// LoadTree decodes the tree of a chapter.
func (s *Service) LoadTree(ch *models.Chapter) (*tree.VariationTree, error) {
	t, err := tree.Unmarshal(s.oracle, []byte(ch.TreeJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter %q: %w", ch.Name, err)
	}
	return t, nil
}

// SaveTree encodes t into the chapter and stores it.
func (s *Service) SaveTree(ctx context.Context, ch *models.Chapter, t *tree.VariationTree) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode chapter %q: %w", ch.Name, err)
	}
	ch.TreeJSON = string(data)
	return s.chapters.Update(ctx, ch)
}

// loadedChapter is a stored chapter with its decoded tree.
type loadedChapter struct {
	chapter models.Chapter
	tree    *tree.VariationTree
}

// loadChapters decodes the trees of every chapter of a repertoire.
func (s *Service) loadChapters(ctx context.Context, repertoireID string) ([]loadedChapter, error) {
	chapters, err := s.chapters.GetByRepertoire(ctx, repertoireID)
	if err != nil {
		return nil, err
	}

	var result = make([]loadedChapter, len(chapters))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range chapters {
		i := i
		g.Go(func() error {
			t, err := s.LoadTree(&chapters[i])
			if err != nil {
				return err
			}
			result[i] = loadedChapter{chapter: chapters[i], tree: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// AddLine plays moves from the start of the chapter and stores the result.
// The comment is attached to the last move. It reports whether the tree
// gained any node.
func (s *Service) AddLine(ctx context.Context, repertoireID, chapterName string, moves []string, comment string) (bool, error) {
	if len(moves) == 0 {
		return false, errors.New("line has no moves")
	}
	ch, err := s.EnsureChapter(ctx, repertoireID, chapterName, "")
	if err != nil {
		return false, err
	}
	t, err := s.LoadTree(ch)
	if err != nil {
		return false, err
	}

	var before = t.NodeCount()
	if played := t.AddMoves(moves...); played != len(moves) {
		return false, fmt.Errorf("move %d %q: %w", played+1, moves[played], rules.ErrIllegalMove)
	}
	if comment != "" {
		t.SetComment(t.Current(), comment)
	}
	t.GoToStart()

	if t.NodeCount() == before && comment == "" {
		return false, nil
	}
	if err := s.SaveTree(ctx, ch, t); err != nil {
		return false, err
	}
	return t.NodeCount() > before, nil
}

// StartTraining opens a session on the stored chapters of the configured
// repertoire with its recorded line statistics.
func (s *Service) StartTraining(ctx context.Context, cfg models.TrainingConfig) (*training.Session, error) {
	rep, chapters, err := s.trainingChapters(ctx, cfg.RepertoireID)
	if err != nil {
		return nil, err
	}
	stats, err := s.lineStats.GetByRepertoire(ctx, rep.ID)
	if err != nil {
		return nil, err
	}

	sess, err := training.Start(cfg, chapters, stats, training.Deps{
		Oracle: s.oracle,
		SM2:    s.sm2,
		Now:    s.now,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("training started",
		"repertoire", rep.Name,
		"mode", sess.Mode(),
		"lines", len(sess.Lines()),
	)
	return sess, nil
}

// SaveRating stores the statistics produced by a successful rating.
func (s *Service) SaveRating(ctx context.Context, res training.RateResult) error {
	if !res.OK {
		return nil
	}
	var stats = res.Stats
	if err := s.lineStats.CreateOrUpdate(ctx, &stats); err != nil {
		return err
	}
	s.log.Debug("line rated",
		"line", res.LineID,
		"quality", int(res.Quality),
		"interval", stats.Interval,
		"next_review", stats.NextReviewDate,
	)
	return nil
}

// StartDrill opens a breadth-first drill on the repertoire of cfg.
func (s *Service) StartDrill(ctx context.Context, cfg models.TrainingConfig) (*training.Drill, error) {
	rep, chapters, err := s.trainingChapters(ctx, cfg.RepertoireID)
	if err != nil {
		return nil, err
	}
	d, err := training.StartDrill(cfg, chapters, training.Deps{
		Oracle: s.oracle,
		SM2:    s.sm2,
		Now:    s.now,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("drill started",
		"repertoire", rep.Name,
		"positions", d.Total(),
	)
	return d, nil
}

// trainingChapters loads the trees of a repertoire as training input.
func (s *Service) trainingChapters(ctx context.Context, repertoireID string) (*models.Repertoire, []training.Chapter, error) {
	rep, err := s.repertoires.GetByID(ctx, repertoireID)
	if err != nil {
		return nil, nil, err
	}
	loaded, err := s.loadChapters(ctx, rep.ID)
	if err != nil {
		return nil, nil, err
	}

	var chapters = make([]training.Chapter, 0, len(loaded))
	for _, lc := range loaded {
		chapters = append(chapters, training.Chapter{
			RepertoireID: rep.ID,
			ChapterID:    lc.chapter.ID,
			Color:        rep.Color,
			Tree:         lc.tree,
		})
	}
	return rep, chapters, nil
}

// FinishSession records the history of a session. A session that is not
// complete is recorded as abandoned now.
func (s *Service) FinishSession(ctx context.Context, sess *training.Session) (*models.SessionResult, error) {
	return s.recordResult(ctx, sess.Summary())
}

// FinishDrill records a breadth-first drill in the session history.
func (s *Service) FinishDrill(ctx context.Context, d *training.Drill) (*models.SessionResult, error) {
	return s.recordResult(ctx, d.Summary())
}

func (s *Service) recordResult(ctx context.Context, result models.SessionResult) (*models.SessionResult, error) {
	if result.FinishedAt.IsZero() {
		result.FinishedAt = s.now()
	}
	if err := s.results.Create(ctx, &result); err != nil {
		return nil, err
	}
	s.log.Info("training finished",
		"repertoire", result.RepertoireID,
		"mode", result.Mode,
		"completed", result.LinesCompleted,
		"total", result.LinesTotal,
		"mistakes", result.Mistakes,
	)
	return &result, nil
}

// Summary aggregates the statistics of a repertoire.
func (s *Service) Summary(ctx context.Context, repertoireID string) (*models.StatsSummary, error) {
	return s.statistics.GetRepertoireSummary(ctx, repertoireID, s.now())
}

// DueCounts returns the number of due lines per repertoire id.
func (s *Service) DueCounts(ctx context.Context) (map[string]int, error) {
	return s.lineStats.CountDue(ctx, s.now())
}

// DueLines returns up to limit due lines of a repertoire, most urgent first.
func (s *Service) DueLines(ctx context.Context, repertoireID string, limit int) ([]models.LineStats, error) {
	var now = s.now()
	due, err := s.lineStats.GetDue(ctx, repertoireID, now)
	if err != nil {
		return nil, err
	}
	return s.sm2.GetDueLines(due, now, limit), nil
}

// RecentSessions returns the latest session records of a repertoire.
func (s *Service) RecentSessions(ctx context.Context, repertoireID string, limit int) ([]models.SessionResult, error) {
	return s.results.GetRecent(ctx, repertoireID, limit)
}

// LineStatuses returns the recorded statistics of the given lines keyed by
// line ID. Lines never rated are absent.
func (s *Service) LineStatuses(ctx context.Context, lineIDs []string) (map[string]models.LineStats, error) {
	rows, err := s.lineStats.GetByLineIDs(ctx, lineIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.LineStats, len(rows))
	for _, st := range rows {
		out[st.LineID] = st
	}
	return out, nil
}

// IsMastered reports whether a line is considered learned.
func (s *Service) IsMastered(stats *models.LineStats) bool {
	return s.sm2.IsLineMastered(stats)
}

// BrowseLines returns a batch generator over the lines of a chapter. An
// empty chapterRef selects the first chapter.
func (s *Service) BrowseLines(ctx context.Context, rep *models.Repertoire, chapterRef string, batchSize int) (*lines.Generator, *models.Chapter, error) {
	var ch *models.Chapter
	if chapterRef != "" {
		found, err := s.FindChapter(ctx, rep.ID, chapterRef)
		if err != nil {
			return nil, nil, err
		}
		ch = found
	} else {
		chapters, err := s.chapters.GetByRepertoire(ctx, rep.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(chapters) == 0 {
			return nil, nil, fmt.Errorf("repertoire %q has no chapters: %w", rep.Name, database.ErrNotFound)
		}
		ch = &chapters[0]
	}

	t, err := s.LoadTree(ch)
	if err != nil {
		return nil, nil, err
	}
	g := lines.NewGenerator(t, lines.Options{
		RepertoireID: rep.ID,
		ChapterID:    ch.ID,
		Color:        rep.Color,
	}, batchSize)
	return g, ch, nil
}
