package tree

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/reptrainer/internal/rules"
)

// ErrCorruptTree is returned when a serialized tree cannot be rebuilt.
var ErrCorruptTree = errors.New("corrupt serialized tree")

// SerializedNode is the wire form of a MoveNode.
type SerializedNode struct {
	ID         int              `json:"id"`
	SAN        string           `json:"san"`
	FEN        string           `json:"fen"`
	MoveNumber int              `json:"moveNumber"`
	IsBlack    bool             `json:"isBlack"`
	Children   []SerializedNode `json:"children"`
	IsCritical bool             `json:"isCritical,omitempty"`
	Comment    string           `json:"comment,omitempty"`
}

// Serialized is the wire form of a VariationTree. The current-node pointer is
// not part of it.
type Serialized struct {
	RootMoves     []SerializedNode `json:"rootMoves"`
	StartFEN      string           `json:"startFen"`
	NodeIDCounter int              `json:"nodeIdCounter"`
}

// ToJSON converts the tree into its wire form.
func (t *VariationTree) ToJSON() Serialized {
	// Pre-order ids; walking them backwards visits children before parents.
	var order []int
	stack := make([]int, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, t.roots[i])
	}
	for len(stack) != 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		children := t.nodes[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	built := make(map[int]SerializedNode, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := t.nodes[order[i]]
		children := make([]SerializedNode, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, built[c])
			delete(built, c)
		}
		built[n.ID] = SerializedNode{
			ID:         n.ID,
			SAN:        n.SAN,
			FEN:        n.FEN,
			MoveNumber: n.MoveNumber,
			IsBlack:    n.IsBlack,
			Children:   children,
			IsCritical: n.IsCritical,
			Comment:    n.Comment,
		}
	}

	roots := make([]SerializedNode, 0, len(t.roots))
	for _, id := range t.roots {
		roots = append(roots, built[id])
	}
	return Serialized{
		RootMoves:     roots,
		StartFEN:      t.startFEN,
		NodeIDCounter: t.counter,
	}
}

// FromJSON rebuilds a tree from its wire form. The result is at the start.
func FromJSON(oracle rules.Oracle, s Serialized) (*VariationTree, error) {
	t := New(oracle, s.StartFEN)
	t.counter = s.NodeIDCounter

	type item struct {
		node   *SerializedNode
		parent int
	}
	stack := make([]item, 0, len(s.RootMoves))
	for i := len(s.RootMoves) - 1; i >= 0; i-- {
		stack = append(stack, item{node: &s.RootMoves[i], parent: NoNode})
	}

	for len(stack) != 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sn := it.node

		if sn.ID <= 0 {
			return nil, fmt.Errorf("%w: node %q has invalid id %d", ErrCorruptTree, sn.SAN, sn.ID)
		}
		if _, dup := t.nodes[sn.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrCorruptTree, sn.ID)
		}
		if sn.SAN == "" {
			return nil, fmt.Errorf("%w: node %d has no move", ErrCorruptTree, sn.ID)
		}

		t.nodes[sn.ID] = &MoveNode{
			ID:         sn.ID,
			SAN:        sn.SAN,
			FEN:        sn.FEN,
			MoveNumber: sn.MoveNumber,
			IsBlack:    sn.IsBlack,
			IsCritical: sn.IsCritical,
			Comment:    sn.Comment,
			Parent:     it.parent,
		}
		if it.parent == NoNode {
			t.roots = append(t.roots, sn.ID)
		} else {
			parent := t.nodes[it.parent]
			parent.Children = append(parent.Children, sn.ID)
		}
		if sn.ID > t.counter {
			t.counter = sn.ID
		}

		for i := len(sn.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: &sn.Children[i], parent: sn.ID})
		}
	}
	return t, nil
}

// Marshal encodes the tree as JSON.
func (t *VariationTree) Marshal() ([]byte, error) {
	return json.Marshal(t.ToJSON())
}

// Unmarshal decodes a JSON tree produced by Marshal.
func Unmarshal(oracle rules.Oracle, data []byte) (*VariationTree, error) {
	var s Serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	return FromJSON(oracle, s)
}
