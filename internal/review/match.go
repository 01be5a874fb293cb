package review

import (
	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/pkg/models"
)

// DeviationType explains why a played move is not in the repertoire.
type DeviationType string

const (
	DeviationNone DeviationType = ""
	// UserMisplay: the trained side left the repertoire.
	UserMisplay DeviationType = "user-misplay"
	// OpponentNovelty: the opponent played a move the repertoire does not cover.
	OpponentNovelty DeviationType = "opponent-novelty"
	// CoverageGap: the repertoire has no data for the position at all.
	CoverageGap DeviationType = "coverage-gap"
)

// MatchResult is the outcome of checking one played move.
type MatchResult struct {
	Matched    bool
	IsUserMove bool
	// SAN is the canonical notation of the played move when it is legal.
	SAN string
	// ExpectedMoves are the repertoire continuations from the position after
	// a matched move; empty when the move ends every line it belongs to.
	ExpectedMoves []string
	// RepertoireMoves are the repertoire moves from the position before the
	// move, filled on a mismatch.
	RepertoireMoves []string
	Deviation       DeviationType
	// PostFEN is empty when the oracle rejected the move.
	PostFEN string
}

// CheckRepertoireMatchFEN checks played, made from preFEN at ply, against m.
func CheckRepertoireMatchFEN(oracle rules.Oracle, preFEN, played string, ply int, isBlackMove bool, color models.Color, m PositionMap) MatchResult {
	r := MatchResult{IsUserMove: (color == models.White) != isBlackMove}

	r.SAN = played
	if res, err := oracle.Move(preFEN, played); err == nil {
		r.SAN = res.SAN
		r.PostFEN = res.FEN
	}

	r.Matched = r.PostFEN != "" && m.Contains(ply, preFEN, r.SAN)
	if r.Matched {
		r.ExpectedMoves, _ = m.Moves(ply+1, r.PostFEN)
		return r
	}

	moves, known := m.Moves(ply, preFEN)
	switch {
	case !known:
		r.Deviation = CoverageGap
	case r.IsUserMove:
		r.Deviation = UserMisplay
	default:
		r.Deviation = OpponentNovelty
	}
	r.RepertoireMoves = moves
	return r
}
