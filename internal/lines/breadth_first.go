package lines

import (
	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

// QueueItem is one decision point of the trained color.
type QueueItem struct {
	Key        string // normalized position before the move + move
	NodeID     int
	SAN        string
	FENBefore  string
	FENAfter   string
	HalfMove   int      // plies played before this move
	Path       []string // moves leading to FENBefore
	MoveNumber int
	IsBlack    bool
	IsCritical bool
	Comment    string
}

// BuildBreadthFirstQueue visits the tree level by level and lists every move
// of the trained color, shallowest first. Moves reached by several move
// orders from the same position are listed once.
func BuildBreadthFirstQueue(t *tree.VariationTree, color models.Color) []QueueItem {
	type entry struct {
		id       int
		path     []string
		halfMove int
	}

	var out []QueueItem
	seen := make(map[string]struct{})

	var queue []entry
	for _, id := range t.Roots() {
		queue = append(queue, entry{id: id})
	}

	for len(queue) != 0 {
		e := queue[0]
		queue = queue[1:]

		n, ok := t.Node(e.id)
		if !ok {
			continue
		}
		fenBefore := t.FENBefore(n.ID)

		if IsUserMove(color, n.IsBlack) {
			key := rules.NormalizeFEN(fenBefore) + " " + n.SAN
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				out = append(out, QueueItem{
					Key:        key,
					NodeID:     n.ID,
					SAN:        n.SAN,
					FENBefore:  fenBefore,
					FENAfter:   n.FEN,
					HalfMove:   e.halfMove,
					Path:       e.path,
					MoveNumber: n.MoveNumber,
					IsBlack:    n.IsBlack,
					IsCritical: n.IsCritical,
					Comment:    n.Comment,
				})
			}
		}

		path := make([]string, len(e.path), len(e.path)+1)
		copy(path, e.path)
		path = append(path, n.SAN)
		for _, c := range n.Children {
			queue = append(queue, entry{id: c, path: path, halfMove: e.halfMove + 1})
		}
	}
	return out
}

// BreadthFirstTrainer drills a breadth-first queue one decision at a time.
type BreadthFirstTrainer struct {
	oracle   rules.Oracle
	queue    []QueueItem
	index    int
	mistakes map[int]int
}

// NewBreadthFirstTrainer builds the queue for color from t.
func NewBreadthFirstTrainer(t *tree.VariationTree, color models.Color, oracle rules.Oracle) *BreadthFirstTrainer {
	return &BreadthFirstTrainer{
		oracle:   oracle,
		queue:    BuildBreadthFirstQueue(t, color),
		mistakes: make(map[int]int),
	}
}

// Queue returns every item of the drill.
func (b *BreadthFirstTrainer) Queue() []QueueItem {
	return b.queue
}

// Len returns the number of items.
func (b *BreadthFirstTrainer) Len() int {
	return len(b.queue)
}

// Index returns the position of the current item.
func (b *BreadthFirstTrainer) Index() int {
	return b.index
}

// Done reports whether every item was answered.
func (b *BreadthFirstTrainer) Done() bool {
	return b.index >= len(b.queue)
}

// Current returns the item awaiting an answer.
func (b *BreadthFirstTrainer) Current() (QueueItem, bool) {
	if b.Done() {
		return QueueItem{}, false
	}
	return b.queue[b.index], true
}

// Submit checks san against the current item and advances on success.
// A wrong or illegal move counts as a mistake on the item.
func (b *BreadthFirstTrainer) Submit(san string) bool {
	item, ok := b.Current()
	if !ok {
		return false
	}
	if b.matches(item, san) {
		b.index++
		return true
	}
	b.mistakes[b.index]++
	return false
}

func (b *BreadthFirstTrainer) matches(item QueueItem, san string) bool {
	if rules.SameMove(item.SAN, san) {
		return true
	}
	res, err := b.oracle.Move(item.FENBefore, san)
	return err == nil && res.SAN == item.SAN
}

// Mistakes returns the total number of wrong answers.
func (b *BreadthFirstTrainer) Mistakes() int {
	var n int
	for _, m := range b.mistakes {
		n += m
	}
	return n
}

// MistakesAt returns the wrong answers given for item i.
func (b *BreadthFirstTrainer) MistakesAt(i int) int {
	return b.mistakes[i]
}

// Reset restarts the drill from the first item.
func (b *BreadthFirstTrainer) Reset() {
	b.index = 0
	b.mistakes = make(map[int]int)
}
