package tree

import (
	"strconv"
	"strings"
)

// FlatMove is one entry of the display flattening of a tree.
type FlatMove struct {
	NodeID           int
	SAN              string
	MoveNumber       int
	IsBlack          bool
	IsCritical       bool
	Comment          string
	Depth            int  // variation nesting, 0 for the main line
	IsVariationStart bool // first move of a variation
	ShowMoveNumber   bool // white moves always; black moves when not right after white's same-numbered move
	IsCurrent        bool
}

type flatItem struct {
	emit     bool
	id       int
	siblings []int
	depth    int
	varStart bool
}

// FlatMoves lists every move in reading order: the main line first with
// each variation inlined right after the move it is an alternative to.
func (t *VariationTree) FlatMoves() []FlatMove {
	out := make([]FlatMove, 0, len(t.nodes))
	stack := []flatItem{{siblings: t.roots}}

	for len(stack) != 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.emit {
			n := t.nodes[item.id]
			out = append(out, FlatMove{
				NodeID:           n.ID,
				SAN:              n.SAN,
				MoveNumber:       n.MoveNumber,
				IsBlack:          n.IsBlack,
				IsCritical:       n.IsCritical,
				Comment:          n.Comment,
				Depth:            item.depth,
				IsVariationStart: item.varStart,
				IsCurrent:        n.ID == t.current,
			})
			continue
		}

		if len(item.siblings) == 0 {
			continue
		}
		main := t.nodes[item.siblings[0]]

		// Pushed in reverse of execution order.
		stack = append(stack, flatItem{siblings: main.Children, depth: item.depth})
		for i := len(item.siblings) - 1; i >= 1; i-- {
			v := t.nodes[item.siblings[i]]
			stack = append(stack,
				flatItem{siblings: v.Children, depth: item.depth + 1},
				flatItem{emit: true, id: v.ID, depth: item.depth + 1, varStart: true},
			)
		}
		stack = append(stack, flatItem{emit: true, id: main.ID, depth: item.depth})
	}

	for i := range out {
		out[i].ShowMoveNumber = needsMoveNumber(out, i)
	}
	return out
}

func needsMoveNumber(moves []FlatMove, i int) bool {
	m := moves[i]
	if !m.IsBlack || m.IsVariationStart || i == 0 {
		return true
	}
	prev := moves[i-1]
	return prev.IsBlack || prev.MoveNumber != m.MoveNumber || prev.Depth != m.Depth
}

// MoveText renders the tree as PGN movetext with variations and comments.
func (t *VariationTree) MoveText() string {
	var sb strings.Builder
	write := func(token string) {
		if sb.Len() != 0 && !strings.HasSuffix(sb.String(), "(") {
			sb.WriteString(" ")
		}
		sb.WriteString(token)
	}

	depth := 0
	for _, m := range t.FlatMoves() {
		if m.IsVariationStart {
			for depth >= m.Depth {
				sb.WriteString(")")
				depth--
			}
			write("(")
			depth = m.Depth
		} else {
			for depth > m.Depth {
				sb.WriteString(")")
				depth--
			}
		}

		if m.ShowMoveNumber {
			number := strconv.Itoa(m.MoveNumber)
			if m.IsBlack {
				number += "..."
			} else {
				number += "."
			}
			write(number)
		}
		write(m.SAN)
		if m.Comment != "" {
			write("{" + m.Comment + "}")
		}
	}
	for ; depth > 0; depth-- {
		sb.WriteString(")")
	}
	return sb.String()
}
