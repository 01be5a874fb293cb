package training

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/rules"
	sr "github.com/example/reptrainer/internal/spaced_repetition"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func testDeps() Deps {
	return Deps{
		Oracle: rules.NewOracle(),
		SM2:    sr.NewSM2(),
		Now:    func() time.Time { return now },
	}
}

func buildChapter(t *testing.T, color models.Color, sequences ...[]string) Chapter {
	t.Helper()
	var tr = tree.New(rules.NewOracle(), "")
	for _, seq := range sequences {
		tr.GoToStart()
		if n := tr.AddMoves(seq...); n != len(seq) {
			t.Fatalf("illegal move %d in %v", n, seq)
		}
	}
	return Chapter{RepertoireID: "rep", ChapterID: "ch", Color: color, Tree: tr}
}

func whiteChapter(t *testing.T) Chapter {
	return buildChapter(t, models.White,
		[]string{"e4", "e5", "Nf3", "Nc6"},
		[]string{"e4", "c5", "Nf3", "d6"},
		[]string{"d4", "d5"},
	)
}

func fenAfter(t *testing.T, sans ...string) string {
	t.Helper()
	var oracle = rules.NewOracle()
	var fen = rules.StartFEN
	for _, san := range sans {
		res, err := oracle.Move(fen, san)
		if err != nil {
			t.Fatal(err)
		}
		fen = res.FEN
	}
	return fen
}

func TestDepthFirstSession(t *testing.T) {
	var s, err = Start(models.TrainingConfig{RepertoireID: "rep"}, []Chapter{whiteChapter(t)}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != StateDrilling || len(s.Lines()) != 3 || s.Mode() != models.DepthFirst {
		t.Fatal(s.State(), len(s.Lines()), s.Mode())
	}
	if p, ok := s.Prompt(); !ok || p.FEN != rules.StartFEN || len(p.Played) != 0 {
		t.Fatal("first prompt", p)
	}

	var r = s.ProcessSAN("e4")
	if r.Status != StatusCorrect || r.OpponentSAN != "e5" || r.NextFEN != fenAfter(t, "e4", "e5") {
		t.Fatalf("%+v", r)
	}

	r = s.ProcessSAN("Nc3")
	if r.Status != StatusIncorrect || r.Mistakes != 1 || s.Mistakes() != 1 {
		t.Fatalf("%+v", r)
	}
	if s.Rate(sr.QualityPerfect).OK {
		t.Error("rating accepted while drilling")
	}

	r = s.ProcessMove("g1", "f3", "")
	if r.Status != StatusCorrect || !r.AwaitingRating || r.OpponentSAN != "Nc6" {
		t.Fatalf("%+v", r)
	}
	if r.SuggestedQuality != sr.QualityCorrectHesitation {
		t.Error("suggested quality", r.SuggestedQuality)
	}
	if s.ProcessSAN("Bc4").Status != StatusIgnored {
		t.Error("move accepted while awaiting rating")
	}

	var rate = s.Rate(sr.QualityCorrectHesitation)
	if !rate.OK || rate.State != StateDrilling {
		t.Fatalf("%+v", rate)
	}
	if rate.Stats.Repetitions != 1 || rate.Stats.Interval != 1 || rate.Stats.TotalMistakes != 1 {
		t.Errorf("stats %+v", rate.Stats)
	}
	if rate.Stats.ChapterID != "ch" || rate.Stats.RepertoireID != "rep" {
		t.Errorf("stats owner %+v", rate.Stats)
	}
	if s.Mistakes() != 0 {
		t.Error("mistakes not reset")
	}
	if l, _ := s.CurrentLine(); l.String() != "e4 c5 Nf3 d6" {
		t.Error("second line", l.String())
	}

	for _, san := range []string{"e4", "Nf3"} {
		if st := s.ProcessSAN(san).Status; st != StatusCorrect {
			t.Fatal(san, st)
		}
	}
	s.Rate(sr.QualityPerfect)
	if st := s.ProcessSAN("d4"); !st.AwaitingRating || st.OpponentSAN != "d5" {
		t.Fatalf("%+v", st)
	}
	if rate = s.Rate(sr.QualityPerfect); rate.State != StateComplete {
		t.Fatal(rate.State)
	}

	var sum = s.Summary()
	if sum.LinesTotal != 3 || sum.LinesCompleted != 3 || sum.Mistakes != 1 || !sum.FinishedAt.Equal(now) {
		t.Errorf("%+v", sum)
	}
	if len(s.Stats()) != 3 {
		t.Error("stats", len(s.Stats()))
	}
	if s.Rate(sr.QualityPerfect).OK {
		t.Error("rating accepted after completion")
	}
}

func TestIllegalMoveIsNotAMistake(t *testing.T) {
	var s, _ = Start(models.TrainingConfig{}, []Chapter{whiteChapter(t)}, nil, testDeps())
	if r := s.ProcessSAN("Ke2"); r.Status != StatusIllegal {
		t.Fatal(r.Status)
	}
	if r := s.ProcessMove("e2", "e5", ""); r.Status != StatusIllegal {
		t.Fatal(r.Status)
	}
	if s.Mistakes() != 0 {
		t.Error("mistakes", s.Mistakes())
	}
}

func TestWidthFirstOrder(t *testing.T) {
	var cfg = models.TrainingConfig{Mode: models.WidthFirst}
	var s, err = Start(cfg, []Chapter{whiteChapter(t)}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}

	var steps = []struct {
		line   int
		move   string
		rating bool
	}{
		{0, "e4", false},
		{1, "e4", false},
		{2, "d4", true},
		{0, "Nf3", true},
		{1, "Nf3", true},
	}
	for i, step := range steps {
		var p, ok = s.Prompt()
		if !ok || p.LineIndex != step.line {
			t.Fatalf("step %d: prompt %+v", i, p)
		}
		var r = s.ProcessSAN(step.move)
		if r.Status != StatusCorrect || r.AwaitingRating != step.rating {
			t.Fatalf("step %d: %+v", i, r)
		}
		if step.rating {
			s.Rate(sr.QualityPerfect)
		}
	}
	if s.State() != StateComplete || s.Completed() != 3 {
		t.Error(s.State(), s.Completed())
	}
}

func TestWidthFirstSingleLineKeepsReply(t *testing.T) {
	var ch = buildChapter(t, models.White, []string{"e4", "e5", "Nf3"})
	var s, _ = Start(models.TrainingConfig{Mode: models.WidthFirst}, []Chapter{ch}, nil, testDeps())
	var r = s.ProcessSAN("e4")
	if r.LineChanged || r.OpponentSAN != "e5" || s.Depth() != 1 {
		t.Errorf("%+v depth %d", r, s.Depth())
	}
}

func TestBlackPrompt(t *testing.T) {
	var ch = buildChapter(t, models.Black, []string{"e4", "c5", "Nf3", "d6"})
	var s, _ = Start(models.TrainingConfig{}, []Chapter{ch}, nil, testDeps())
	var p, ok = s.Prompt()
	if !ok || !reflect.DeepEqual(p.Played, []string{"e4"}) || p.FEN != fenAfter(t, "e4") {
		t.Fatalf("%+v", p)
	}
	if hint, _ := s.Hint(); hint != "c5" {
		t.Error("hint", hint)
	}
	if r := s.ProcessSAN("c5"); r.OpponentSAN != "Nf3" || r.NextFEN != fenAfter(t, "e4", "c5", "Nf3") {
		t.Errorf("%+v", r)
	}
}

func TestDueOnly(t *testing.T) {
	var ch = whiteChapter(t)
	var ls = lines.ExtractLines(ch.Tree, lines.Options{RepertoireID: "rep", ChapterID: "ch", Color: models.White})
	var stats = map[string]models.LineStats{
		ls[0].ID: {LineID: ls[0].ID, EaseFactor: 2.5, NextReviewDate: now.Add(-time.Hour)},
		ls[1].ID: {LineID: ls[1].ID, EaseFactor: 2.5, NextReviewDate: now.Add(time.Hour)},
	}

	var s, err = Start(models.TrainingConfig{DueOnly: true}, []Chapter{ch}, stats, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Lines()) != 1 || s.Lines()[0].ID != ls[0].ID {
		t.Fatal(len(s.Lines()))
	}

	s, err = Start(models.TrainingConfig{DueOnly: true}, []Chapter{ch}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != StateComplete {
		t.Error("nothing due must complete immediately", s.State())
	}
	if _, ok := s.Prompt(); ok {
		t.Error("prompt on complete session")
	}
	if s.ProcessSAN("e4").Status != StatusIgnored {
		t.Error("move on complete session")
	}
}

func TestStartErrors(t *testing.T) {
	var ch = whiteChapter(t)
	if _, err := Start(models.TrainingConfig{ChapterID: "missing"}, []Chapter{ch}, nil, testDeps()); !errors.Is(err, ErrChapterNotFound) {
		t.Error(err)
	}
	if _, err := Start(models.TrainingConfig{Mode: "sideways"}, []Chapter{ch}, nil, testDeps()); !errors.Is(err, ErrInvalidMode) {
		t.Error(err)
	}
}

func TestMaxDepth(t *testing.T) {
	var s, err = Start(models.TrainingConfig{MaxDepth: 1}, []Chapter{whiteChapter(t)}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, l := range s.Lines() {
		got = append(got, l.String())
	}
	if !reflect.DeepEqual(got, []string{"e4", "d4"}) {
		t.Error(got)
	}
	if r := s.ProcessSAN("e4"); !r.AwaitingRating || r.OpponentSAN != "" {
		t.Errorf("%+v", r)
	}
}

func TestPreviewRatingDoesNotAdvance(t *testing.T) {
	var s, err = Start(models.TrainingConfig{}, []Chapter{buildChapter(t, models.White, []string{"e4", "e5"})}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if r := s.PreviewRating(sr.QualityPerfect); r.OK {
		t.Fatal("preview while drilling", r)
	}
	if r := s.ProcessSAN("e4"); !r.AwaitingRating {
		t.Fatalf("%+v", r)
	}

	var preview = s.PreviewRating(sr.QualityPerfect)
	if !preview.OK || preview.State != StateAwaitingRating || preview.Stats.Repetitions != 1 {
		t.Fatalf("%+v", preview)
	}
	if s.State() != StateAwaitingRating || s.Completed() != 0 {
		t.Fatal("preview changed the session", s.State(), s.Completed())
	}
	if _, ok := s.Stats()[preview.LineID]; ok {
		t.Fatal("preview stored stats")
	}

	var committed = s.Commit(preview)
	if !committed.OK || committed.State != StateComplete || s.Completed() != 1 {
		t.Fatalf("%+v", committed)
	}
	if got := s.Stats()[preview.LineID]; got.Repetitions != 1 {
		t.Fatalf("%+v", got)
	}
	if again := s.Commit(preview); again.OK {
		t.Fatal("second commit applied", again)
	}
}
