package review

import (
	"fmt"

	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/pkg/models"
)

// PlyReview is the review of one ply of a game.
type PlyReview struct {
	Ply        int
	MoveNumber int
	IsBlack    bool
	SAN        string
	FENBefore  string
	FENAfter   string
	Match      MatchResult
	KeyMove    KeyMove
}

// GameReview is the review of a whole game against a repertoire.
type GameReview struct {
	Plies    []PlyReview
	KeyMoves []int // indices into Plies
	// LastBookPly is the index of the last matched ply, -1 when the game
	// never matched.
	LastBookPly int
}

// Matched returns the number of plies found in the repertoire.
func (g *GameReview) Matched() int {
	var n int
	for i := range g.Plies {
		if g.Plies[i].Match.Matched {
			n++
		}
	}
	return n
}

// ReviewGame replays sans from startFEN and checks every ply against m. It
// stops at the first illegal move and returns the plies reviewed so far
// together with an error wrapping rules.ErrIllegalMove.
func ReviewGame(oracle rules.Oracle, startFEN string, sans []string, color models.Color, m PositionMap) (GameReview, error) {
	if startFEN == "" {
		startFEN = rules.StartFEN
	}
	g := GameReview{LastBookPly: -1}
	tracker := NewKeyMoveTracker()

	fen := startFEN
	for ply, san := range sans {
		isBlack := rules.SideToMoveIsBlack(fen)
		match := CheckRepertoireMatchFEN(oracle, fen, san, ply, isBlack, color, m)
		if match.PostFEN == "" {
			return g, fmt.Errorf("move %d %q: %w", ply+1, san, rules.ErrIllegalMove)
		}

		pr := PlyReview{
			Ply:        ply,
			MoveNumber: rules.FullmoveNumber(fen),
			IsBlack:    isBlack,
			SAN:        match.SAN,
			FENBefore:  fen,
			FENAfter:   match.PostFEN,
			Match:      match,
			KeyMove:    tracker.Next(match.Matched, match.Deviation),
		}
		g.Plies = append(g.Plies, pr)
		if pr.KeyMove.IsKey {
			g.KeyMoves = append(g.KeyMoves, ply)
		}
		if match.Matched {
			g.LastBookPly = ply
		}
		fen = match.PostFEN
	}
	return g, nil
}
