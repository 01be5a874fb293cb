// Package tree implements the variation tree of a repertoire chapter.
//
// Nodes live in an arena keyed by their integer id. Parent links and the
// current-node pointer are ids into that arena, so the tree owns every node
// exactly once and ids double as the serialized representation.
package tree

import (
	"github.com/example/reptrainer/internal/rules"
)

// NoNode is the id of "no node": the parent of a root move, or the current
// pointer when the tree is at its starting position.
const NoNode = 0

// MoveNode is one ply of the tree.
type MoveNode struct {
	ID         int
	SAN        string
	FEN        string // position after the move
	MoveNumber int
	IsBlack    bool // black just moved
	IsCritical bool
	Comment    string
	Parent     int
	Children   []int
}

// VariationTree is an ordered forest of moves rooted at a start position.
// The first child at every level is the main line.
type VariationTree struct {
	oracle   rules.Oracle
	startFEN string
	nodes    map[int]*MoveNode
	roots    []int
	current  int
	counter  int
}

// New creates an empty tree. An empty startFEN means the standard start.
func New(oracle rules.Oracle, startFEN string) *VariationTree {
	if startFEN == "" {
		startFEN = rules.StartFEN
	}
	return &VariationTree{
		oracle:   oracle,
		startFEN: startFEN,
		nodes:    make(map[int]*MoveNode),
	}
}

// StartFEN returns the position before the first move.
func (t *VariationTree) StartFEN() string {
	return t.startFEN
}

// NodeCount returns the number of nodes in the tree.
func (t *VariationTree) NodeCount() int {
	return len(t.nodes)
}

// Node returns a copy of the node with the given id.
func (t *VariationTree) Node(id int) (MoveNode, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return MoveNode{}, false
	}
	cp := *n
	cp.Children = append([]int(nil), n.Children...)
	return cp, true
}

// Roots returns the ids of the alternative first moves.
func (t *VariationTree) Roots() []int {
	return append([]int(nil), t.roots...)
}

// Children returns the child ids of id; NoNode yields the roots.
func (t *VariationTree) Children(id int) []int {
	return append([]int(nil), t.childList(id)...)
}

func (t *VariationTree) childList(id int) []int {
	if id == NoNode {
		return t.roots
	}
	if n, ok := t.nodes[id]; ok {
		return n.Children
	}
	return nil
}

// Current returns the id of the current node, NoNode at the start.
func (t *VariationTree) Current() int {
	return t.current
}

// CurrentFEN returns the position at the current node.
func (t *VariationTree) CurrentFEN() string {
	return t.fenAt(t.current)
}

// FENBefore returns the position from which node id was played.
func (t *VariationTree) FENBefore(id int) string {
	n, ok := t.nodes[id]
	if !ok {
		return ""
	}
	return t.fenAt(n.Parent)
}

func (t *VariationTree) fenAt(id int) string {
	if id == NoNode {
		return t.startFEN
	}
	return t.nodes[id].FEN
}

// IsAtStart reports whether the current pointer is at the start position.
func (t *VariationTree) IsAtStart() bool {
	return t.current == NoNode
}

// IsAtEnd reports whether the current position has no continuation.
func (t *VariationTree) IsAtEnd() bool {
	return len(t.childList(t.current)) == 0
}

// AddMove plays san from the current position. An existing sibling with the
// same move becomes current instead of being duplicated. Returns false and
// leaves the tree untouched when the move is illegal.
func (t *VariationTree) AddMove(san string) bool {
	fen := t.CurrentFEN()
	res, err := t.oracle.Move(fen, san)
	if err != nil {
		return false
	}

	if id, ok := t.FindChild(t.current, res.SAN); ok {
		t.current = id
		return true
	}

	t.counter++
	node := &MoveNode{
		ID:         t.counter,
		SAN:        res.SAN,
		FEN:        res.FEN,
		MoveNumber: rules.FullmoveNumber(fen),
		IsBlack:    rules.SideToMoveIsBlack(fen),
		Parent:     t.current,
	}
	t.nodes[node.ID] = node
	if t.current == NoNode {
		t.roots = append(t.roots, node.ID)
	} else {
		parent := t.nodes[t.current]
		parent.Children = append(parent.Children, node.ID)
	}
	t.current = node.ID
	return true
}

// AddMoves plays a sequence of moves from the current position and stops at
// the first illegal one. It returns the number of moves played.
func (t *VariationTree) AddMoves(sans ...string) int {
	for i, san := range sans {
		if !t.AddMove(san) {
			return i
		}
	}
	return len(sans)
}

// GoBack moves one ply towards the start.
func (t *VariationTree) GoBack() bool {
	if t.current == NoNode {
		return false
	}
	t.current = t.nodes[t.current].Parent
	return true
}

// GoForward follows the main line one ply.
func (t *VariationTree) GoForward() bool {
	children := t.childList(t.current)
	if len(children) == 0 {
		return false
	}
	t.current = children[0]
	return true
}

// GoToStart moves to the start position.
func (t *VariationTree) GoToStart() {
	t.current = NoNode
}

// GoToEnd follows the main line from the current node to its end.
func (t *VariationTree) GoToEnd() {
	for t.GoForward() {
	}
}

// NavigateToNode makes id current. NoNode means the start position.
func (t *VariationTree) NavigateToNode(id int) bool {
	if id == NoNode {
		t.current = NoNode
		return true
	}
	if _, ok := t.nodes[id]; !ok {
		return false
	}
	t.current = id
	return true
}

// PromoteToMainLine swaps id into the first slot among its siblings.
func (t *VariationTree) PromoteToMainLine(id int) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	siblings := t.childList(n.Parent)
	for i, sib := range siblings {
		if sib != id {
			continue
		}
		if i == 0 {
			return false
		}
		siblings[0], siblings[i] = siblings[i], siblings[0]
		return true
	}
	return false
}

// MarkAsCritical sets the critical flag of id.
func (t *VariationTree) MarkAsCritical(id int, critical bool) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	n.IsCritical = critical
	return true
}

// SetComment replaces the comment of id.
func (t *VariationTree) SetComment(id int, comment string) bool {
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	n.Comment = comment
	return true
}

// MainLine returns the moves obtained by always taking the first child.
func (t *VariationTree) MainLine() []string {
	var line []string
	for children := t.roots; len(children) != 0; {
		n := t.nodes[children[0]]
		line = append(line, n.SAN)
		children = n.Children
	}
	return line
}

// PathTo returns the node ids from the root down to id, inclusive.
func (t *VariationTree) PathTo(id int) []int {
	var path []int
	for id != NoNode {
		n, ok := t.nodes[id]
		if !ok {
			return nil
		}
		path = append(path, id)
		id = n.Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CurrentLine returns the moves leading to the current node.
func (t *VariationTree) CurrentLine() []string {
	path := t.PathTo(t.current)
	sans := make([]string, len(path))
	for i, id := range path {
		sans[i] = t.nodes[id].SAN
	}
	return sans
}

// FindChild returns the child of parent that plays san.
func (t *VariationTree) FindChild(parent int, san string) (int, bool) {
	for _, id := range t.childList(parent) {
		if rules.SameMove(t.nodes[id].SAN, san) {
			return id, true
		}
	}
	return NoNode, false
}
