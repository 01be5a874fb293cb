// Package review matches played moves against a repertoire by position, so
// that a game reaching a repertoire position through another move order is
// still recognized, and classifies the key moves of a game.
package review

import (
	"sort"

	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

// PositionMap indexes repertoire moves by ply and normalized position:
// ply -> FEN -> set of SAN.
type PositionMap map[int]map[string]map[string]struct{}

// Source is one chapter contributing to a position map.
type Source struct {
	Color models.Color
	Tree  *tree.VariationTree
}

// BuildRepertoirePositionMap replays every path of every source trained with
// color and records each move under its ply and pre-move position. Subtrees
// behind a move the oracle rejects are skipped.
func BuildRepertoirePositionMap(oracle rules.Oracle, sources []Source, color models.Color) PositionMap {
	type frame struct {
		id  int
		fen string
		ply int
	}

	m := make(PositionMap)
	for _, src := range sources {
		if src.Color != color || src.Tree == nil {
			continue
		}
		t := src.Tree

		var stack []frame
		roots := t.Roots()
		for i := len(roots) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: roots[i], fen: t.StartFEN()})
		}
		for len(stack) != 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n, ok := t.Node(f.id)
			if !ok {
				continue
			}
			res, err := oracle.Move(f.fen, n.SAN)
			if err != nil {
				continue
			}
			m.add(f.ply, f.fen, res.SAN)

			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: n.Children[i], fen: res.FEN, ply: f.ply + 1})
			}
		}
	}
	return m
}

func (m PositionMap) add(ply int, fen, san string) {
	byFEN, ok := m[ply]
	if !ok {
		byFEN = make(map[string]map[string]struct{})
		m[ply] = byFEN
	}
	key := positionKey(fen)
	set, ok := byFEN[key]
	if !ok {
		set = make(map[string]struct{})
		byFEN[key] = set
	}
	set[san] = struct{}{}
}

func (m PositionMap) set(ply int, fen string) (map[string]struct{}, bool) {
	byFEN, ok := m[ply]
	if !ok {
		return nil, false
	}
	set, ok := byFEN[positionKey(fen)]
	return set, ok
}

// positionKey ignores an en-passant target no pawn can capture on.
func positionKey(fen string) string {
	return rules.NormalizeFEN(rules.CanonicalFEN(fen))
}

// Moves returns the sorted repertoire moves from fen at ply.
func (m PositionMap) Moves(ply int, fen string) ([]string, bool) {
	set, ok := m.set(ply, fen)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for san := range set {
		out = append(out, san)
	}
	sort.Strings(out)
	return out, true
}

// HasPosition reports whether the repertoire reaches fen at ply.
func (m PositionMap) HasPosition(ply int, fen string) bool {
	_, ok := m.set(ply, fen)
	return ok
}

// Contains reports whether san is a repertoire move from fen at ply.
func (m PositionMap) Contains(ply int, fen, san string) bool {
	set, ok := m.set(ply, fen)
	if !ok {
		return false
	}
	if _, ok := set[san]; ok {
		return true
	}
	for s := range set {
		if rules.SameMove(s, san) {
			return true
		}
	}
	return false
}

// Positions returns the number of distinct (ply, position) entries.
func (m PositionMap) Positions() int {
	var n int
	for _, byFEN := range m {
		n += len(byFEN)
	}
	return n
}
