package spaced_repetition

import (
	"math"
	"testing"
	"time"

	"github.com/example/reptrainer/pkg/models"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestProcessIntervals(t *testing.T) {
	var sm = NewSM2()
	var s = NewLineStats("line", now)

	var wantIntervals = []int{1, 6, 16, 45}
	for i, want := range wantIntervals {
		// quality 5 raises EF by 0.1 each time: 2.6, 2.7, 2.8
		sm.Process(&s, QualityPerfect, now)
		if s.Interval != want {
			t.Fatalf("review %d: interval %d, want %d", i, s.Interval, want)
		}
		if s.Repetitions != i+1 {
			t.Fatalf("review %d: repetitions %d", i, s.Repetitions)
		}
	}
	if !s.NextReviewDate.Equal(now.AddDate(0, 0, 45)) {
		t.Error("next review", s.NextReviewDate)
	}
	if s.LastReviewDate == nil || !s.LastReviewDate.Equal(now) {
		t.Error("last review", s.LastReviewDate)
	}
}

func TestProcessMonotonic(t *testing.T) {
	var sm = NewSM2()
	for q := QualityCorrectDifficult; q <= QualityPerfect; q++ {
		var s = NewLineStats("line", now)
		var prev int
		for i := 0; i < 6; i++ {
			sm.Process(&s, q, now)
			if s.Interval < prev {
				t.Fatalf("quality %d: interval shrank from %d to %d", q, prev, s.Interval)
			}
			prev = s.Interval
		}
	}
}

func TestProcessFailureResets(t *testing.T) {
	var sm = NewSM2()
	var s = NewLineStats("line", now)
	for i := 0; i < 3; i++ {
		sm.Process(&s, QualityPerfect, now)
	}
	for _, q := range []QualityResponse{QualityBlackout, QualityIncorrect, QualityIncorrectFamiliar} {
		var c = s
		sm.Process(&c, q, now)
		if c.Repetitions != 0 || c.Interval != 1 {
			t.Errorf("quality %d: reps %d interval %d", q, c.Repetitions, c.Interval)
		}
		if !c.NextReviewDate.Equal(now.AddDate(0, 0, 1)) {
			t.Errorf("quality %d: next review %v", q, c.NextReviewDate)
		}
	}
}

func TestEaseFactorFloor(t *testing.T) {
	var sm = NewSM2()
	var s = NewLineStats("line", now)
	for i := 0; i < 20; i++ {
		sm.Process(&s, QualityBlackout, now)
		if s.EaseFactor < MinEaseFactor {
			t.Fatal("ease factor below floor", s.EaseFactor)
		}
	}
	if math.Abs(s.EaseFactor-MinEaseFactor) > 1e-9 {
		t.Error("ease factor should settle at the floor", s.EaseFactor)
	}
}

func TestEaseFactorUpdate(t *testing.T) {
	var tests = []struct {
		q    QualityResponse
		want float64
	}{
		{QualityPerfect, 2.6},
		{QualityCorrectHesitation, 2.5},
		{QualityCorrectDifficult, 2.36},
		{QualityIncorrectFamiliar, 2.18},
		{QualityIncorrect, 1.96},
		{QualityBlackout, 1.7},
	}
	for _, test := range tests {
		if got := nextEaseFactor(DefaultEaseFactor, test.q); math.Abs(got-test.want) > 1e-9 {
			t.Errorf("quality %d: got %v want %v", test.q, got, test.want)
		}
	}
}

func TestQualityClamp(t *testing.T) {
	var sm = NewSM2()
	var s = NewLineStats("line", now)
	sm.Process(&s, QualityResponse(9), now)
	if s.LastQuality != 5 {
		t.Error("clamped high", s.LastQuality)
	}
	sm.Process(&s, QualityResponse(-3), now)
	if s.LastQuality != 0 || s.Repetitions != 0 {
		t.Error("clamped low", s.LastQuality, s.Repetitions)
	}
}

func TestMaxInterval(t *testing.T) {
	var sm = &SM2{PassThreshold: 3, MaxInterval: 10}
	var s = NewLineStats("line", now)
	for i := 0; i < 5; i++ {
		sm.Process(&s, QualityPerfect, now)
	}
	if s.Interval != 10 {
		t.Error("interval", s.Interval)
	}
}

func TestGetDueLines(t *testing.T) {
	var sm = NewSM2()
	var stats = []models.LineStats{
		{LineID: "future", EaseFactor: 2.5, Repetitions: 2, NextReviewDate: now.Add(time.Hour)},
		{LineID: "hard", EaseFactor: 1.5, Repetitions: 3, NextReviewDate: now.Add(-time.Hour)},
		{LineID: "easy", EaseFactor: 2.8, Repetitions: 3, NextReviewDate: now.Add(-48 * time.Hour)},
		{LineID: "failed", EaseFactor: 2.0, Repetitions: 0, NextReviewDate: now},
	}
	var due = sm.GetDueLines(stats, now, 0)
	var want = []string{"failed", "hard", "easy"}
	if len(due) != len(want) {
		t.Fatal(due)
	}
	for i := range want {
		if due[i].LineID != want[i] {
			t.Errorf("position %d: %s, want %s", i, due[i].LineID, want[i])
		}
	}
	if len(sm.GetDueLines(stats, now, 1)) != 1 {
		t.Error("limit")
	}
}

func TestRecordDrill(t *testing.T) {
	var s = NewLineStats("line", now)
	RecordDrill(&s, 0)
	RecordDrill(&s, 2)
	if s.TotalDrills != 2 || s.TotalMistakes != 2 || s.CorrectFirstTry != 1 {
		t.Error(s.TotalDrills, s.TotalMistakes, s.CorrectFirstTry)
	}
}

func TestSuggestQuality(t *testing.T) {
	var sm = NewSM2()
	var tests = []struct {
		mistakes, userMoves int
		want                QualityResponse
	}{
		{0, 4, QualityPerfect},
		{1, 4, QualityCorrectHesitation},
		{2, 4, QualityCorrectDifficult},
		{4, 4, QualityIncorrectFamiliar},
		{5, 4, QualityBlackout},
		{3, 0, QualityIncorrect},
	}
	for _, test := range tests {
		if got := sm.SuggestQuality(test.mistakes, test.userMoves); got != test.want {
			t.Errorf("%d/%d: got %d want %d", test.mistakes, test.userMoves, got, test.want)
		}
	}
}

func TestIsLineMastered(t *testing.T) {
	var sm = NewSM2()
	var s = NewLineStats("line", now)
	for i := 0; i < 5; i++ {
		sm.Process(&s, QualityPerfect, now)
	}
	if !sm.IsLineMastered(&s) {
		t.Error("expected mastered", s.Repetitions, s.Interval)
	}
	sm.Process(&s, QualityIncorrect, now)
	if sm.IsLineMastered(&s) {
		t.Error("failed line is not mastered")
	}
}
