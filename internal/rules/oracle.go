package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

var (
	// ErrIllegalMove is returned when a move cannot be played from a position.
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidFEN is returned when a position string cannot be parsed.
	ErrInvalidFEN = errors.New("invalid FEN")
)

// Result is a validated move: its canonical SAN and the position after it.
type Result struct {
	SAN string
	FEN string
}

// Oracle validates moves against a position.
type Oracle interface {
	// Move plays a move given in short algebraic notation.
	Move(fen, san string) (Result, error)
	// MoveFromTo plays a move given by its origin and target squares.
	// An empty promotion defaults to a queen.
	MoveFromTo(fen, from, to, promotion string) (Result, error)
}

// ChessOracle is the Oracle backed by github.com/notnil/chess.
type ChessOracle struct {
	notation chess.AlgebraicNotation
}

// NewOracle creates a new oracle
func NewOracle() *ChessOracle {
	return &ChessOracle{}
}

func (o *ChessOracle) position(fen string) (pos *chess.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			pos = nil
			err = fmt.Errorf("%w: %s: %v", ErrInvalidFEN, fen, r)
		}
	}()

	opt, err := chess.FEN(completeFEN(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFEN, fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// Move implements Oracle.
func (o *ChessOracle) Move(fen, san string) (Result, error) {
	pos, err := o.position(fen)
	if err != nil {
		return Result{}, err
	}

	want := StripAnnotations(san)
	if want == "" {
		return Result{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	for _, mv := range pos.ValidMoves() {
		encoded := o.notation.Encode(pos, mv)
		if StripAnnotations(encoded) == want {
			return o.play(pos, mv, encoded), nil
		}
	}
	return Result{}, fmt.Errorf("%w: %s in %s", ErrIllegalMove, san, fen)
}

// MoveFromTo implements Oracle.
func (o *ChessOracle) MoveFromTo(fen, from, to, promotion string) (Result, error) {
	pos, err := o.position(fen)
	if err != nil {
		return Result{}, err
	}

	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	promotion = strings.ToLower(strings.TrimSpace(promotion))
	if promotion == "" {
		promotion = "q"
	}

	for _, mv := range pos.ValidMoves() {
		if mv.S1().String() != from || mv.S2().String() != to {
			continue
		}
		if mv.Promo() != chess.NoPieceType && promoLetter(mv.Promo()) != promotion {
			continue
		}
		return o.play(pos, mv, o.notation.Encode(pos, mv)), nil
	}
	return Result{}, fmt.Errorf("%w: %s%s in %s", ErrIllegalMove, from, to, fen)
}

func (o *ChessOracle) play(pos *chess.Position, mv *chess.Move, san string) Result {
	next := pos.Update(mv)
	return Result{
		SAN: san,
		FEN: canonicalFEN(next),
	}
}

// CanonicalFEN rewrites fen the way the oracle reports positions: the
// en-passant target is kept only when the capture is legal. An unreadable
// fen is returned trimmed.
func CanonicalFEN(fen string) string {
	pos, err := NewOracle().position(fen)
	if err != nil {
		return strings.TrimSpace(fen)
	}
	return canonicalFEN(pos)
}

// canonicalFEN clears the en-passant target unless a capture on it is
// actually legal, so that transposing move orders yield equal strings.
func canonicalFEN(pos *chess.Position) string {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 || fields[3] == "-" {
		return strings.Join(fields, " ")
	}
	for _, mv := range pos.ValidMoves() {
		if mv.HasTag(chess.EnPassant) {
			return strings.Join(fields, " ")
		}
	}
	fields[3] = "-"
	return strings.Join(fields, " ")
}

func promoLetter(p chess.PieceType) string {
	switch p {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	}
	return ""
}

// Board renders fen as a text diagram.
func Board(fen string) (string, error) {
	pos, err := NewOracle().position(fen)
	if err != nil {
		return "", err
	}
	return pos.Board().Draw(), nil
}
