package spaced_repetition

import (
	"math"
	"sort"
	"time"

	"github.com/example/reptrainer/pkg/models"
)

const (
	// DefaultEaseFactor is the ease factor of a line that was never reviewed
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor of the ease factor
	MinEaseFactor = 1.3
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Ratings at or above this value count as a successful recall
	PassThreshold int
	// Maximum interval in days, 0 disables the cap
	MaxInterval int
}

// NewSM2 creates a new SM2 with default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: 3,
		MaxInterval:   0,
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Clamp limits q to the 0..5 range
func (q QualityResponse) Clamp() QualityResponse {
	if q < QualityBlackout {
		return QualityBlackout
	}
	if q > QualityPerfect {
		return QualityPerfect
	}
	return q
}

// NewLineStats returns the initial record of a line that was never drilled
func NewLineStats(lineID string, now time.Time) models.LineStats {
	return models.LineStats{
		LineID:         lineID,
		EaseFactor:     DefaultEaseFactor,
		Interval:       0,
		Repetitions:    0,
		NextReviewDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Process applies one review of the given quality to stats
func (sm *SM2) Process(stats *models.LineStats, quality QualityResponse, now time.Time) {
	quality = quality.Clamp()
	if stats.EaseFactor == 0 {
		stats.EaseFactor = DefaultEaseFactor
	}

	if int(quality) >= sm.PassThreshold {
		switch stats.Repetitions {
		case 0:
			stats.Interval = 1
		case 1:
			stats.Interval = 6
		default:
			stats.Interval = int(math.Round(float64(stats.Interval) * stats.EaseFactor))
		}
		if sm.MaxInterval > 0 && stats.Interval > sm.MaxInterval {
			stats.Interval = sm.MaxInterval
		}
		stats.Repetitions++
	} else {
		// Failed recall starts the sequence over
		stats.Repetitions = 0
		stats.Interval = 1
	}

	stats.EaseFactor = nextEaseFactor(stats.EaseFactor, quality)
	stats.LastQuality = int(quality)

	reviewed := now
	stats.LastReviewDate = &reviewed
	stats.NextReviewDate = now.AddDate(0, 0, stats.Interval)
	stats.UpdatedAt = now
}

func nextEaseFactor(ef float64, quality QualityResponse) float64 {
	q := float64(5 - quality)
	ef += 0.1 - q*(0.08+q*0.02)
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	return ef
}

// RecordDrill adds one completed drill with the given mistake count to the totals
func RecordDrill(stats *models.LineStats, mistakes int) {
	stats.TotalDrills++
	stats.TotalMistakes += mistakes
	if mistakes == 0 {
		stats.CorrectFirstTry++
	}
}

// GetDueLines returns up to limit lines due at now, most urgent first
func (sm *SM2) GetDueLines(stats []models.LineStats, now time.Time, limit int) []models.LineStats {
	var due []models.LineStats
	for _, s := range stats {
		if s.IsDue(now) {
			due = append(due, s)
		}
	}

	// Priority:
	// 1. Lines that have never been reviewed successfully
	// 2. Lines with the lowest ease factor
	// 3. Lines that are the most overdue
	sort.SliceStable(due, func(i, j int) bool {
		if (due[i].Repetitions == 0) != (due[j].Repetitions == 0) {
			return due[i].Repetitions == 0
		}
		if due[i].EaseFactor != due[j].EaseFactor {
			return due[i].EaseFactor < due[j].EaseFactor
		}
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsLineMastered determines if a line is considered "mastered"
func (sm *SM2) IsLineMastered(stats *models.LineStats) bool {
	// A line is considered mastered if:
	// 1. It has been recalled at least 5 times in a row
	// 2. The latest quality response was 4 or 5
	// 3. The interval is at least 30 days
	return stats.Repetitions >= 5 &&
		stats.LastQuality >= int(QualityCorrectHesitation) &&
		stats.Interval >= 30
}

// SuggestQuality proposes a rating from the mistakes made while drilling a line
func (sm *SM2) SuggestQuality(mistakes, userMoves int) QualityResponse {
	switch {
	case mistakes == 0:
		return QualityPerfect
	case mistakes == 1:
		return QualityCorrectHesitation
	case userMoves > 0 && mistakes*2 <= userMoves:
		return QualityCorrectDifficult
	case userMoves > 0 && mistakes <= userMoves:
		return QualityIncorrectFamiliar
	case mistakes <= 3:
		return QualityIncorrect
	}
	return QualityBlackout
}
