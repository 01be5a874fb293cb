package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/reptrainer/internal/logger"
	"github.com/example/reptrainer/pkg/models"
)

// Default reminder window, hours in UTC
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Reminder is the number of due lines of one repertoire
type Reminder struct {
	RepertoireID string
	Name         string
	Due          int
}

// Notifier interface for sending notifications
type Notifier interface {
	SendReminders(chatID int64, reminders []Reminder) error
}

// DueSource reports due lines per repertoire
type DueSource interface {
	DueCounts(ctx context.Context) (map[string]int, error)
	Repertoires(ctx context.Context) ([]models.Repertoire, error)
}

// Config of the reminder job
type Config struct {
	ChatID    int64
	StartHour int
	EndHour   int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	source    DueSource
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, source DueSource, notifier Notifier, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.StartHour == 0 && cfg.EndHour == 0 {
		cfg.StartHour = DefaultNotificationStartHour
		cfg.EndHour = DefaultNotificationEndHour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		source:    source,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		if err := s.checkAndSendReminders(ctx); err != nil {
			s.log.Error("reminder check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "start_hour", s.cfg.StartHour, "end_hour", s.cfg.EndHour)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders reports due lines when the current hour is inside
// the reminder window
func (s *Scheduler) checkAndSendReminders(ctx context.Context) error {
	currentHour := s.now().UTC().Hour()
	if !withinHours(currentHour, s.cfg.StartHour, s.cfg.EndHour) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", currentHour,
			"start_hour", s.cfg.StartHour,
			"end_hour", s.cfg.EndHour,
		)
		return nil
	}
	return s.RunManualCheck(ctx)
}

// RunManualCheck sends a reminder for every repertoire with due lines,
// regardless of the hour
func (s *Scheduler) RunManualCheck(ctx context.Context) error {
	reminders, err := s.collect(ctx)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		return nil
	}
	if err := s.notifier.SendReminders(s.cfg.ChatID, reminders); err != nil {
		return fmt.Errorf("failed to send reminders: %w", err)
	}
	s.log.Info("reminders sent", "chat", s.cfg.ChatID, "repertoires", len(reminders))
	return nil
}

func (s *Scheduler) collect(ctx context.Context) ([]Reminder, error) {
	counts, err := s.source.DueCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count due lines: %w", err)
	}
	if len(counts) == 0 {
		return nil, nil
	}
	repertoires, err := s.source.Repertoires(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get repertoires: %w", err)
	}

	var reminders []Reminder
	for _, rep := range repertoires {
		if n := counts[rep.ID]; n > 0 {
			reminders = append(reminders, Reminder{RepertoireID: rep.ID, Name: rep.Name, Due: n})
		}
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Due > reminders[j].Due
	})
	return reminders, nil
}

// withinHours reports whether hour is in [start, end]. A window with
// start > end wraps past midnight.
func withinHours(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
