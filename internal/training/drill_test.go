package training

import (
	"errors"
	"testing"

	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/pkg/models"
)

func TestDrillOrder(t *testing.T) {
	var d, err = StartDrill(models.TrainingConfig{RepertoireID: "rep"}, []Chapter{whiteChapter(t)}, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if d.Total() != 4 || d.Done() {
		t.Fatal(d.Total(), d.Done())
	}

	var want = []struct {
		fen string
		san string
	}{
		{rules.StartFEN, "e4"},
		{rules.StartFEN, "d4"},
		{fenAfter(t, "e4", "e5"), "Nf3"},
		{fenAfter(t, "e4", "c5"), "Nf3"},
	}
	for i, w := range want {
		p, ok := d.Current()
		if !ok || p.FENBefore != w.fen || p.SAN != w.san || p.Position != i || p.Total != 4 || p.ChapterID != "ch" {
			t.Fatalf("item %d: %+v", i, p)
		}
		if r := d.SubmitSAN(w.san); r.Status != StatusCorrect {
			t.Fatalf("item %d: %+v", i, r)
		}
	}
	if !d.Done() || d.Completed() != 4 {
		t.Fatal(d.Done(), d.Completed())
	}
	if r := d.SubmitSAN("e4"); r.Status != StatusIgnored {
		t.Fatalf("%+v", r)
	}
}

func TestDrillMistakes(t *testing.T) {
	var d, err = StartDrill(models.TrainingConfig{RepertoireID: "rep"}, []Chapter{whiteChapter(t)}, testDeps())
	if err != nil {
		t.Fatal(err)
	}

	if r := d.SubmitSAN("e4"); r.Status != StatusCorrect || r.NextFEN != rules.StartFEN {
		t.Fatalf("%+v", r)
	}
	if r := d.SubmitSAN("e4"); r.Status != StatusIncorrect || r.SAN != "e4" || r.Mistakes != 1 {
		t.Fatalf("%+v", r)
	}
	if r := d.SubmitSAN("Ke2"); r.Status != StatusIllegal || r.Mistakes != 1 {
		t.Fatalf("%+v", r)
	}
	if hint, ok := d.Hint(); !ok || hint != "d4" {
		t.Fatal(hint, ok)
	}
	if r := d.SubmitMove("d2", "d4", ""); r.Status != StatusCorrect || r.SAN != "d4" || r.NextFEN != fenAfter(t, "e4", "e5") {
		t.Fatalf("%+v", r)
	}
	d.SubmitSAN("Nf3")
	d.SubmitSAN("Nf3")

	var sum = d.Summary()
	if sum.Mode != models.BreadthFirst || sum.LinesTotal != 4 || sum.LinesCompleted != 4 || sum.Mistakes != 1 || !sum.FinishedAt.Equal(now) {
		t.Fatalf("%+v", sum)
	}
}

func TestDrillChapterSelection(t *testing.T) {
	var ch = whiteChapter(t)
	if _, err := StartDrill(models.TrainingConfig{ChapterID: "missing"}, []Chapter{ch}, testDeps()); !errors.Is(err, ErrChapterNotFound) {
		t.Fatal(err)
	}

	var black = buildChapter(t, models.Black, []string{"e4", "c5"})
	d, err := StartDrill(models.TrainingConfig{}, []Chapter{black}, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := d.Current(); !ok || p.SAN != "c5" || !p.IsBlack || d.Total() != 1 {
		t.Fatalf("%+v", p)
	}

	empty, err := StartDrill(models.TrainingConfig{}, nil, testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Done() || !empty.Summary().FinishedAt.Equal(now) {
		t.Fatal("empty drill should be done")
	}
}
