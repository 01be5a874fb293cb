package pgn

import (
	"errors"
	"fmt"

	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/tree"
)

// ErrUnbalanced is returned for movetext with unmatched parentheses.
var ErrUnbalanced = errors.New("unbalanced variation")

// BuildTree replays tokens from startFEN into a new tree.
func BuildTree(oracle rules.Oracle, startFEN string, tokens []Token) (*tree.VariationTree, error) {
	var t = tree.New(oracle, startFEN)
	if err := AddToTree(t, tokens); err != nil {
		return nil, err
	}
	return t, nil
}

// AddToTree merges tokens into t from its start position. Moves already in
// the tree are reused. Comments replace existing ones. The tree is left at
// its start position.
func AddToTree(t *tree.VariationTree, tokens []Token) error {
	t.GoToStart()
	defer t.GoToStart()

	// node to return to when the variation closes
	var stack []int
	// node before the last move of the current line
	var prev = tree.NoNode

	for i, tok := range tokens {
		switch tok.Kind {
		case TokenMove:
			var before = t.Current()
			if !t.AddMove(tok.Value) {
				return fmt.Errorf("token %d %q: %w", i+1, tok.Value, rules.ErrIllegalMove)
			}
			prev = before
			if tok.Comment != "" {
				t.SetComment(t.Current(), tok.Comment)
			}
		case TokenVariationStart:
			stack = append(stack, t.Current())
			// the variation replaces the last move
			t.NavigateToNode(prev)
		case TokenVariationEnd:
			if len(stack) == 0 {
				return fmt.Errorf("token %d: %w", i+1, ErrUnbalanced)
			}
			var back = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t.NavigateToNode(back)
			if n, ok := t.Node(back); ok {
				prev = n.Parent
			} else {
				prev = tree.NoNode
			}
		case TokenResult:
			// results end the game; anything after is ignored
			if len(stack) != 0 {
				return fmt.Errorf("token %d: %w", i+1, ErrUnbalanced)
			}
			return nil
		}
	}
	if len(stack) != 0 {
		return ErrUnbalanced
	}
	return nil
}
