package training

import (
	"time"

	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/pkg/models"
)

// DrillPrompt is the decision a breadth-first drill waits for.
type DrillPrompt struct {
	lines.QueueItem
	ChapterID string
	Position  int // decisions answered before this one
	Total     int
}

type drillPart struct {
	chapterID string
	trainer   *lines.BreadthFirstTrainer
}

// Drill asks the moves of the trained color one position at a time, every
// chapter level by level. It is the breadth-first counterpart of Session and
// has no rating step.
type Drill struct {
	cfg    models.TrainingConfig
	oracle rules.Oracle
	now    func() time.Time

	parts []drillPart
	part  int

	startedAt  time.Time
	finishedAt time.Time
}

// StartDrill builds the breadth-first queues of the selected chapters.
// DueOnly and MaxDepth do not apply to a drill.
func StartDrill(cfg models.TrainingConfig, chapters []Chapter, deps Deps) (*Drill, error) {
	selected, err := selectChapters(cfg, chapters)
	if err != nil {
		return nil, err
	}
	if deps.Oracle == nil {
		deps.Oracle = rules.NewOracle()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg.Mode = models.BreadthFirst

	d := &Drill{
		cfg:       cfg,
		oracle:    deps.Oracle,
		now:       deps.Now,
		startedAt: deps.Now(),
	}
	for _, ch := range selected {
		if ch.Tree == nil {
			continue
		}
		trainer := lines.NewBreadthFirstTrainer(ch.Tree, ch.Color, deps.Oracle)
		if trainer.Len() == 0 {
			continue
		}
		d.parts = append(d.parts, drillPart{chapterID: ch.ChapterID, trainer: trainer})
	}
	if d.Done() {
		d.finishedAt = d.startedAt
	}
	return d, nil
}

// Done reports whether every decision was answered.
func (d *Drill) Done() bool {
	return d.part >= len(d.parts)
}

// Current returns the decision awaiting an answer.
func (d *Drill) Current() (DrillPrompt, bool) {
	if d.Done() {
		return DrillPrompt{}, false
	}
	p := d.parts[d.part]
	item, ok := p.trainer.Current()
	if !ok {
		return DrillPrompt{}, false
	}
	return DrillPrompt{
		QueueItem: item,
		ChapterID: p.chapterID,
		Position:  d.Completed(),
		Total:     d.Total(),
	}, true
}

// SubmitSAN checks a move given in algebraic notation.
func (d *Drill) SubmitSAN(san string) MoveResult {
	item, ok := d.Current()
	if !ok {
		return MoveResult{Status: StatusIgnored}
	}
	res, err := d.oracle.Move(item.FENBefore, san)
	return d.submit(res, err)
}

// SubmitMove checks a move given by origin and target squares.
func (d *Drill) SubmitMove(from, to, promotion string) MoveResult {
	item, ok := d.Current()
	if !ok {
		return MoveResult{Status: StatusIgnored}
	}
	res, err := d.oracle.MoveFromTo(item.FENBefore, from, to, promotion)
	return d.submit(res, err)
}

// submit feeds a legal move to the current trainer. Illegal input is not
// counted as a mistake.
func (d *Drill) submit(res rules.Result, err error) MoveResult {
	trainer := d.parts[d.part].trainer
	at := trainer.Index()
	if err != nil {
		return MoveResult{Status: StatusIllegal, Mistakes: trainer.MistakesAt(at)}
	}

	item, _ := trainer.Current()
	if !trainer.Submit(res.SAN) {
		return MoveResult{Status: StatusIncorrect, SAN: res.SAN, Mistakes: trainer.MistakesAt(at)}
	}

	r := MoveResult{Status: StatusCorrect, SAN: item.SAN, Mistakes: trainer.MistakesAt(at)}
	if trainer.Done() {
		d.part++
	}
	if next, ok := d.Current(); ok {
		r.NextFEN = next.FENBefore
	} else {
		d.finishedAt = d.now()
	}
	return r
}

// Hint returns the expected move of the current decision.
func (d *Drill) Hint() (string, bool) {
	item, ok := d.Current()
	if !ok {
		return "", false
	}
	return item.SAN, true
}

// Total returns the number of decisions of the drill.
func (d *Drill) Total() int {
	var n int
	for _, p := range d.parts {
		n += p.trainer.Len()
	}
	return n
}

// Completed returns the number of decisions answered correctly.
func (d *Drill) Completed() int {
	var n int
	for _, p := range d.parts {
		n += p.trainer.Index()
	}
	return n
}

// Mistakes returns the wrong answers of the whole drill.
func (d *Drill) Mistakes() int {
	var n int
	for _, p := range d.parts {
		n += p.trainer.Mistakes()
	}
	return n
}

// Summary returns the history record of the drill, counting decisions as
// lines. FinishedAt stays zero while decisions remain.
func (d *Drill) Summary() models.SessionResult {
	return models.SessionResult{
		RepertoireID:   d.cfg.RepertoireID,
		ChapterID:      d.cfg.ChapterID,
		Mode:           models.BreadthFirst,
		LinesTotal:     d.Total(),
		LinesCompleted: d.Completed(),
		Mistakes:       d.Mistakes(),
		StartedAt:      d.startedAt,
		FinishedAt:     d.finishedAt,
	}
}
