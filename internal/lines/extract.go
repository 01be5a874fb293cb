package lines

import (
	"github.com/example/reptrainer/internal/tree"
)

type pathFrame struct {
	id     int
	path   []LineMove
	isMain bool
	branch *int
}

// ExtractLines walks the tree depth-first and returns every line. The first
// child continues the current path; every other child starts a new path
// whose branch point is fixed at the first divergence. Lines are emitted in
// the tree's child order, main line first.
func ExtractLines(t *tree.VariationTree, opts Options) []Line {
	var out []Line

	roots := t.Roots()
	stack := make([]pathFrame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		f := pathFrame{id: roots[i], isMain: i == 0}
		if i > 0 {
			f.branch = intPtr(0)
		}
		stack = append(stack, f)
	}

	for len(stack) != 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := t.Node(f.id)
		if !ok {
			continue
		}
		path := extend(f.path, newLineMove(n, t.FENBefore(n.ID), opts.Color))

		if len(n.Children) == 0 || opts.limitReached(len(path)) {
			out = append(out, newLine(opts, path, f.isMain, f.branch))
			continue
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			child := pathFrame{
				id:     n.Children[i],
				path:   path,
				isMain: f.isMain && i == 0,
				branch: f.branch,
			}
			if i > 0 && child.branch == nil {
				child.branch = intPtr(len(path))
			}
			stack = append(stack, child)
		}
	}
	return out
}

// CountLines returns how many lines ExtractLines would produce without
// building them.
func CountLines(t *tree.VariationTree, maxDepth int) int {
	type item struct {
		id    int
		depth int
	}
	opts := Options{MaxDepth: maxDepth}

	var count int
	var stack []item
	for _, id := range t.Roots() {
		stack = append(stack, item{id: id, depth: 1})
	}
	for len(stack) != 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := t.Children(it.id)
		if len(children) == 0 || opts.limitReached(it.depth) {
			count++
			continue
		}
		for _, c := range children {
			stack = append(stack, item{id: c, depth: it.depth + 1})
		}
	}
	return count
}

// FilterLinesWithUserMoves drops lines in which the trained color never moves.
func FilterLinesWithUserMoves(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if UserMoveCount(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// UserMoveCount returns the number of moves the user has to find in l.
func UserMoveCount(l Line) int {
	var n int
	for i := range l.Moves {
		if l.Moves[i].IsUserMove {
			n++
		}
	}
	return n
}

// UserMoveIndices returns the indices of the user's moves in l.
func UserMoveIndices(l Line) []int {
	var out []int
	for i := range l.Moves {
		if l.Moves[i].IsUserMove {
			out = append(out, i)
		}
	}
	return out
}
