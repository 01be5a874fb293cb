// Package training drills the lines of a repertoire move by move and feeds
// the user's ratings into the SM-2 scheduler.
//
// A Session moves through three states: drilling (waiting for the user's
// move), awaiting-rating (a line was finished and needs a 0-5 rating) and
// complete. Calls that do not fit the current state are no-ops reported
// through StatusIgnored or RateResult.OK.
package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/rules"
	sr "github.com/example/reptrainer/internal/spaced_repetition"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

var (
	// ErrChapterNotFound is returned when the configured chapter is not among the given chapters.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrInvalidMode is returned for a training mode other than depth-first or width-first.
	ErrInvalidMode = errors.New("invalid training mode")
)

// State is the gate of a session.
type State string

const (
	StateDrilling       State = "drilling"
	StateAwaitingRating State = "awaiting-rating"
	StateComplete       State = "complete"
)

// MoveStatus is the outcome of one move input.
type MoveStatus string

const (
	StatusCorrect   MoveStatus = "correct"
	StatusIncorrect MoveStatus = "incorrect"
	StatusIllegal   MoveStatus = "illegal"
	// StatusIgnored is returned when the session is not drilling.
	StatusIgnored MoveStatus = "ignored"
)

// Chapter is one variation tree a session can draw lines from.
type Chapter struct {
	RepertoireID string
	ChapterID    string
	Color        models.Color
	Tree         *tree.VariationTree
}

// Deps are the collaborators of a session. Zero fields get defaults.
type Deps struct {
	Oracle rules.Oracle
	SM2    *sr.SM2
	Now    func() time.Time
}

// Prompt is the position in which the user has to find the next move.
type Prompt struct {
	LineIndex  int
	LineID     string
	ChapterID  string
	FEN        string
	MoveNumber int
	IsBlack    bool
	Played     []string // moves of the line leading to FEN
	Comment    string   // comment on the last played move
	IsCritical bool     // the expected move is marked critical
}

// MoveResult reports what happened to one move input.
type MoveResult struct {
	Status MoveStatus
	SAN    string // canonical notation of the user's move when legal
	// OpponentSAN and OpponentFEN describe the reply played automatically
	// after a correct move, when the line continues with the opponent.
	OpponentSAN string
	OpponentFEN string
	// NextFEN is the position of the next prompt while drilling continues.
	NextFEN        string
	LineChanged    bool // the next prompt belongs to another line
	AwaitingRating bool
	// Mistakes made so far on the line of this move.
	Mistakes         int
	SuggestedQuality sr.QualityResponse
}

// RateResult reports the scheduling of a finished line.
type RateResult struct {
	OK      bool
	LineID  string
	Quality sr.QualityResponse
	Stats   models.LineStats
	State   State
}

// Session is a training run over a fixed list of lines.
type Session struct {
	cfg    models.TrainingConfig
	oracle rules.Oracle
	sm2    *sr.SM2
	now    func() time.Time

	lines    []lines.Line
	users    [][]int // user move indices per line
	progress []int   // user moves answered per line
	done     []bool
	mistakes map[int]int

	line          int
	depth         int // width-first: user move index being tested
	completed     int
	totalMistakes int
	state         State

	stats      map[string]models.LineStats
	startedAt  time.Time
	finishedAt time.Time
}

// Start extracts the lines of the selected chapters and opens a session on
// them. An empty selection yields a session that is already complete.
func Start(cfg models.TrainingConfig, chapters []Chapter, stats map[string]models.LineStats, deps Deps) (*Session, error) {
	selected, err := selectChapters(cfg, chapters)
	if err != nil {
		return nil, err
	}

	var all []lines.Line
	for _, ch := range selected {
		if ch.Tree == nil {
			continue
		}
		extracted := lines.ExtractLines(ch.Tree, lines.Options{
			RepertoireID: ch.RepertoireID,
			ChapterID:    ch.ChapterID,
			Color:        ch.Color,
			MaxDepth:     cfg.MaxDepth,
		})
		all = append(all, lines.FilterLinesWithUserMoves(extracted)...)
	}

	if cfg.DueOnly {
		now := time.Now
		if deps.Now != nil {
			now = deps.Now
		}
		all = dueLines(all, stats, now())
	}
	return NewSession(cfg, all, stats, deps)
}

// selectChapters keeps the chapters of the configured repertoire and chapter.
func selectChapters(cfg models.TrainingConfig, chapters []Chapter) ([]Chapter, error) {
	var selected []Chapter
	for _, ch := range chapters {
		if cfg.RepertoireID != "" && ch.RepertoireID != "" && ch.RepertoireID != cfg.RepertoireID {
			continue
		}
		if cfg.ChapterID != "" && ch.ChapterID != cfg.ChapterID {
			continue
		}
		selected = append(selected, ch)
	}
	if cfg.ChapterID != "" && len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, cfg.ChapterID)
	}
	return selected, nil
}

// dueLines keeps the lines whose stats are due at now. Lines without stats
// have never been drilled and are not due.
func dueLines(ls []lines.Line, stats map[string]models.LineStats, now time.Time) []lines.Line {
	out := make([]lines.Line, 0, len(ls))
	for _, l := range ls {
		st, ok := stats[l.ID]
		if ok && st.IsDue(now) {
			out = append(out, l)
		}
	}
	return out
}

// NewSession opens a session on already extracted lines. Lines without a
// move of the trained color are dropped.
func NewSession(cfg models.TrainingConfig, ls []lines.Line, stats map[string]models.LineStats, deps Deps) (*Session, error) {
	if cfg.Mode == "" {
		cfg.Mode = models.DepthFirst
	}
	if cfg.Mode != models.DepthFirst && cfg.Mode != models.WidthFirst {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
	if deps.Oracle == nil {
		deps.Oracle = rules.NewOracle()
	}
	if deps.SM2 == nil {
		deps.SM2 = sr.NewSM2()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		cfg:       cfg,
		oracle:    deps.Oracle,
		sm2:       deps.SM2,
		now:       deps.Now,
		mistakes:  make(map[int]int),
		stats:     make(map[string]models.LineStats, len(stats)),
		startedAt: deps.Now(),
	}
	for id, st := range stats {
		s.stats[id] = st
	}
	for _, l := range ls {
		idx := lines.UserMoveIndices(l)
		if len(idx) == 0 {
			continue
		}
		s.lines = append(s.lines, l)
		s.users = append(s.users, idx)
	}
	s.progress = make([]int, len(s.lines))
	s.done = make([]bool, len(s.lines))

	if len(s.lines) == 0 {
		s.state = StateComplete
		s.finishedAt = s.startedAt
	} else {
		s.state = StateDrilling
	}
	return s, nil
}

// ProcessMove checks a move given by origin and target squares.
func (s *Session) ProcessMove(from, to, promotion string) MoveResult {
	if s.state != StateDrilling {
		return MoveResult{Status: StatusIgnored}
	}
	res, err := s.oracle.MoveFromTo(s.promptFEN(), from, to, promotion)
	return s.process(res, err)
}

// ProcessSAN checks a move given in algebraic notation.
func (s *Session) ProcessSAN(san string) MoveResult {
	if s.state != StateDrilling {
		return MoveResult{Status: StatusIgnored}
	}
	res, err := s.oracle.Move(s.promptFEN(), san)
	return s.process(res, err)
}

func (s *Session) process(res rules.Result, err error) MoveResult {
	if err != nil {
		return MoveResult{Status: StatusIllegal, Mistakes: s.mistakes[s.line]}
	}

	i := s.line
	l := &s.lines[i]
	step := s.progress[i]
	expected := l.Moves[s.users[i][step]]

	if !rules.SameMove(res.SAN, expected.SAN) && !rules.SamePosition(res.FEN, expected.FENAfter) {
		s.mistakes[i]++
		s.totalMistakes++
		return MoveResult{Status: StatusIncorrect, SAN: res.SAN, Mistakes: s.mistakes[i]}
	}

	r := MoveResult{Status: StatusCorrect, SAN: expected.SAN, Mistakes: s.mistakes[i]}
	s.progress[i]++

	if next := s.users[i][step] + 1; next < len(l.Moves) && !l.Moves[next].IsUserMove {
		r.OpponentSAN = l.Moves[next].SAN
		r.OpponentFEN = l.Moves[next].FENAfter
	}

	if s.progress[i] == len(s.users[i]) {
		s.state = StateAwaitingRating
		r.AwaitingRating = true
		r.SuggestedQuality = s.sm2.SuggestQuality(s.mistakes[i], len(s.users[i]))
		return r
	}

	if s.cfg.Mode == models.WidthFirst {
		s.advanceWidth(i, step)
		if s.line != i {
			r.LineChanged = true
			r.OpponentSAN, r.OpponentFEN = "", ""
		}
	}
	r.NextFEN = s.promptFEN()
	return r
}

// advanceWidth moves to the next line still untested at depth step, or to
// the first line of the next depth when all of them were tested.
func (s *Session) advanceWidth(from, step int) {
	for j := from + 1; j < len(s.lines); j++ {
		if !s.done[j] && s.progress[j] == step {
			s.line = j
			return
		}
	}
	for d := step + 1; ; d++ {
		var deeper bool
		for j := range s.lines {
			if s.done[j] {
				continue
			}
			if s.progress[j] == d {
				s.line = j
				s.depth = d
				return
			}
			if s.progress[j] > d {
				deeper = true
			}
		}
		if !deeper {
			return
		}
	}
}

// Rate schedules the finished line with quality and moves on to the next
// incomplete line.
func (s *Session) Rate(quality sr.QualityResponse) RateResult {
	return s.Commit(s.PreviewRating(quality))
}

// PreviewRating computes the scheduling a rating would give the finished
// line without applying it, so that it can be stored first.
func (s *Session) PreviewRating(quality sr.QualityResponse) RateResult {
	if s.state != StateAwaitingRating {
		return RateResult{State: s.state}
	}
	now := s.now()
	quality = quality.Clamp()

	l := &s.lines[s.line]
	st, ok := s.stats[l.ID]
	if !ok {
		st = sr.NewLineStats(l.ID, now)
	}
	st.RepertoireID = l.RepertoireID
	st.ChapterID = l.ChapterID
	sr.RecordDrill(&st, s.mistakes[s.line])
	s.sm2.Process(&st, quality, now)
	return RateResult{OK: true, LineID: l.ID, Quality: quality, Stats: st, State: s.state}
}

// Commit applies a rating computed by PreviewRating. It returns OK false
// when the line was rated in the meantime.
func (s *Session) Commit(res RateResult) RateResult {
	if !res.OK || s.state != StateAwaitingRating || s.lines[s.line].ID != res.LineID {
		return RateResult{State: s.state}
	}

	i := s.line
	s.stats[res.LineID] = res.Stats
	s.done[i] = true
	s.completed++
	s.mistakes[i] = 0

	if next := s.nextIncomplete(i); next >= 0 {
		s.line = next
		s.depth = s.progress[next]
		s.state = StateDrilling
	} else {
		s.state = StateComplete
		s.finishedAt = s.now()
	}
	res.State = s.state
	return res
}

// nextIncomplete returns the next line to drill after from, or -1. Width-first
// wraps around to the lines before from.
func (s *Session) nextIncomplete(from int) int {
	n := len(s.lines)
	if s.cfg.Mode == models.WidthFirst {
		for k := 1; k < n; k++ {
			if j := (from + k) % n; !s.done[j] {
				return j
			}
		}
		return -1
	}
	for j := from + 1; j < n; j++ {
		if !s.done[j] {
			return j
		}
	}
	return -1
}

func (s *Session) promptFEN() string {
	l := &s.lines[s.line]
	return l.Moves[s.users[s.line][s.progress[s.line]]].FENBefore
}

// State returns the current gate.
func (s *Session) State() State {
	return s.state
}

// Mode returns the advancement policy.
func (s *Session) Mode() models.TrainingMode {
	return s.cfg.Mode
}

// Depth returns the user move index being tested in width-first mode.
func (s *Session) Depth() int {
	return s.depth
}

// Config returns the configuration the session was started with.
func (s *Session) Config() models.TrainingConfig {
	return s.cfg
}

// Prompt returns the position awaiting the user's move. ok is false unless
// the session is drilling.
func (s *Session) Prompt() (p Prompt, ok bool) {
	if s.state != StateDrilling {
		return Prompt{}, false
	}
	l := &s.lines[s.line]
	idx := s.users[s.line][s.progress[s.line]]
	mv := l.Moves[idx]

	p = Prompt{
		LineIndex:  s.line,
		LineID:     l.ID,
		ChapterID:  l.ChapterID,
		FEN:        mv.FENBefore,
		MoveNumber: mv.MoveNumber,
		IsBlack:    mv.IsBlack,
		IsCritical: mv.IsCritical,
		Played:     make([]string, idx),
	}
	for k := 0; k < idx; k++ {
		p.Played[k] = l.Moves[k].SAN
	}
	if idx > 0 {
		p.Comment = l.Moves[idx-1].Comment
	}
	return p, true
}

// Hint returns the expected move of the current prompt.
func (s *Session) Hint() (string, bool) {
	if s.state != StateDrilling {
		return "", false
	}
	l := &s.lines[s.line]
	return l.Moves[s.users[s.line][s.progress[s.line]]].SAN, true
}

// CurrentLine returns the line being drilled or awaiting a rating.
func (s *Session) CurrentLine() (lines.Line, bool) {
	if s.state == StateComplete {
		return lines.Line{}, false
	}
	return s.lines[s.line], true
}

// Lines returns every line of the session.
func (s *Session) Lines() []lines.Line {
	return s.lines
}

// Completed returns the number of rated lines.
func (s *Session) Completed() int {
	return s.completed
}

// Mistakes returns the mistakes made on the current line since it was last rated.
func (s *Session) Mistakes() int {
	if s.state == StateComplete {
		return 0
	}
	return s.mistakes[s.line]
}

// Stats returns the scheduling records known to the session, updated by Rate.
func (s *Session) Stats() map[string]models.LineStats {
	return s.stats
}

// Summary returns the session history record. FinishedAt stays zero while
// the session is not complete.
func (s *Session) Summary() models.SessionResult {
	return models.SessionResult{
		RepertoireID:   s.cfg.RepertoireID,
		ChapterID:      s.cfg.ChapterID,
		Mode:           s.cfg.Mode,
		LinesTotal:     len(s.lines),
		LinesCompleted: s.completed,
		Mistakes:       s.totalMistakes,
		StartedAt:      s.startedAt,
		FinishedAt:     s.finishedAt,
	}
}
