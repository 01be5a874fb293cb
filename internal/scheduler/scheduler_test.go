package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/reptrainer/pkg/models"
)

type fakeSource struct {
	counts map[string]int
	err    error
}

func (f *fakeSource) DueCounts(ctx context.Context) (map[string]int, error) {
	return f.counts, f.err
}

func (f *fakeSource) Repertoires(ctx context.Context) ([]models.Repertoire, error) {
	return []models.Repertoire{
		{ID: "1", Name: "Caro-Kann"},
		{ID: "2", Name: "London"},
		{ID: "3", Name: "Najdorf"},
	}, nil
}

type fakeNotifier struct {
	chatID int64
	sent   [][]Reminder
}

func (f *fakeNotifier) SendReminders(chatID int64, reminders []Reminder) error {
	f.chatID = chatID
	f.sent = append(f.sent, reminders)
	return nil
}

func newTestScheduler(counts map[string]int, hour int) (*Scheduler, *fakeNotifier) {
	var n = &fakeNotifier{}
	var s = New(Config{ChatID: 42, StartHour: 8, EndHour: 22}, &fakeSource{counts: counts}, n, nil)
	s.now = func() time.Time { return time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC) }
	return s, n
}

func TestRemindersInsideWindow(t *testing.T) {
	var s, n = newTestScheduler(map[string]int{"1": 2, "3": 5, "4": 1}, 9)
	if err := s.checkAndSendReminders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 || n.chatID != 42 {
		t.Fatal(n)
	}
	var want = []Reminder{
		{RepertoireID: "3", Name: "Najdorf", Due: 5},
		{RepertoireID: "1", Name: "Caro-Kann", Due: 2},
	}
	if !reflect.DeepEqual(n.sent[0], want) {
		t.Error(n.sent[0])
	}
}

func TestRemindersSkipped(t *testing.T) {
	var s, n = newTestScheduler(map[string]int{"1": 2}, 23)
	if err := s.checkAndSendReminders(context.Background()); err != nil {
		t.Fatal(err)
	}
	s, n2 := newTestScheduler(map[string]int{}, 12)
	if err := s.checkAndSendReminders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 0 || len(n2.sent) != 0 {
		t.Error("reminders sent", n.sent, n2.sent)
	}
}

func TestManualCheckError(t *testing.T) {
	var boom = errors.New("db down")
	var s = New(Config{}, &fakeSource{err: boom}, &fakeNotifier{}, nil)
	if err := s.RunManualCheck(context.Background()); !errors.Is(err, boom) {
		t.Error(err)
	}
}

func TestWithinHours(t *testing.T) {
	var cases = []struct {
		hour, start, end int
		want             bool
	}{
		{8, 8, 22, true},
		{22, 8, 22, true},
		{7, 8, 22, false},
		{23, 22, 6, true},
		{3, 22, 6, true},
		{12, 22, 6, false},
	}
	for _, c := range cases {
		if got := withinHours(c.hour, c.start, c.end); got != c.want {
			t.Errorf("withinHours(%d, %d, %d) = %v", c.hour, c.start, c.end, got)
		}
	}
}
