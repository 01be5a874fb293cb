// Package rules holds the chess-rules oracle and the position-string helpers
// shared by the tree, the line extractor and the repertoire matcher.
package rules

import (
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// NormalizeFEN keeps the four fields that identify a position (placement,
// side to move, castling rights, en-passant target) and drops the clocks.
func NormalizeFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// SamePosition reports whether two FENs describe the same position.
func SamePosition(a, b string) bool {
	return NormalizeFEN(a) == NormalizeFEN(b)
}

// SideToMoveIsBlack reports whether black is to move in fen.
func SideToMoveIsBlack(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) > 1 && fields[1] == "b"
}

// FullmoveNumber returns the fullmove counter of fen, or 1 when absent.
func FullmoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// completeFEN pads a four or five field FEN with default clocks.
func completeFEN(fen string) string {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 5:
		fields = append(fields, "1")
	}
	return strings.Join(fields, " ")
}

// StripAnnotations removes check, mate and evaluation glyphs from a SAN move.
func StripAnnotations(san string) string {
	san = strings.TrimSpace(san)
	san = strings.TrimRight(san, "+#!?")
	return strings.ReplaceAll(san, "0", "O")
}

// SameMove compares two SAN moves ignoring annotations.
func SameMove(a, b string) bool {
	return StripAnnotations(a) == StripAnnotations(b)
}
