package lines

import (
	"math"

	"github.com/example/reptrainer/internal/tree"
)

// refillRatio is the share of a batch below which MarkCompleted pulls the
// next batch.
const refillRatio = 0.2

// genFrame holds the siblings still to visit at one tree level.
type genFrame struct {
	siblings []int
	next     int
	path     []LineMove // moves before this level
	preFEN   string
	isMain   bool
	branch   *int
	depth    int // len(path)
}

// Generator produces lines in the same order as ExtractLines, one batch at a
// time, without walking already emitted subtrees again. The tree must not
// be modified while a generator is in use.
type Generator struct {
	tree      *tree.VariationTree
	opts      Options
	batchSize int
	stack     []genFrame
	total     int
	loaded    []Line
	completed []bool
	done      int
}

// NewGenerator prepares a generator; no line is produced until LoadNextBatch.
func NewGenerator(t *tree.VariationTree, opts Options, batchSize int) *Generator {
	if batchSize < 1 {
		batchSize = 1
	}
	g := &Generator{
		tree:      t,
		opts:      opts,
		batchSize: batchSize,
		total:     CountLines(t, opts.MaxDepth),
	}
	if roots := t.Roots(); len(roots) != 0 {
		g.stack = append(g.stack, genFrame{
			siblings: roots,
			preFEN:   t.StartFEN(),
			isMain:   true,
		})
	}
	return g
}

// TotalCount is the number of lines the generator will produce in total.
func (g *Generator) TotalCount() int {
	return g.total
}

// HasMore reports whether lines remain to be loaded.
func (g *Generator) HasMore() bool {
	g.prune()
	return len(g.stack) != 0
}

// Loaded returns every line loaded so far.
func (g *Generator) Loaded() []Line {
	return g.loaded
}

// CompletedCount returns how many loaded lines were marked completed.
func (g *Generator) CompletedCount() int {
	return g.done
}

// IsCompleted reports whether the loaded line at index was completed.
func (g *Generator) IsCompleted(index int) bool {
	return index >= 0 && index < len(g.completed) && g.completed[index]
}

// LoadNextBatch produces up to batchSize further lines and appends them to
// the loaded set.
func (g *Generator) LoadNextBatch() []Line {
	batch := make([]Line, 0, g.batchSize)
	for len(batch) < g.batchSize {
		l, ok := g.next()
		if !ok {
			break
		}
		batch = append(batch, l)
	}
	g.loaded = append(g.loaded, batch...)
	g.completed = append(g.completed, make([]bool, len(batch))...)
	return batch
}

// MarkCompleted flags a loaded line as done. When fewer than
// ceil(batchSize*0.2) loaded lines remain open and more exist, the next
// batch is loaded automatically.
func (g *Generator) MarkCompleted(index int) bool {
	if index < 0 || index >= len(g.loaded) || g.completed[index] {
		return false
	}
	g.completed[index] = true
	g.done++

	threshold := int(math.Ceil(float64(g.batchSize) * refillRatio))
	if len(g.loaded)-g.done < threshold && g.HasMore() {
		g.LoadNextBatch()
	}
	return true
}

func (g *Generator) next() (Line, bool) {
	for len(g.stack) != 0 {
		top := len(g.stack) - 1
		f := &g.stack[top]
		if f.next >= len(f.siblings) {
			g.stack = g.stack[:top]
			continue
		}

		i := f.next
		f.next++

		n, ok := g.tree.Node(f.siblings[i])
		if !ok {
			continue
		}
		isMain := f.isMain && i == 0
		branch := f.branch
		if i > 0 && branch == nil {
			branch = intPtr(f.depth)
		}
		path := extend(f.path, newLineMove(n, f.preFEN, g.opts.Color))

		if len(n.Children) == 0 || g.opts.limitReached(len(path)) {
			return newLine(g.opts, path, isMain, branch), true
		}
		g.stack = append(g.stack, genFrame{
			siblings: n.Children,
			path:     path,
			preFEN:   n.FEN,
			isMain:   isMain,
			branch:   branch,
			depth:    len(path),
		})
	}
	return Line{}, false
}

// prune drops exhausted frames so that a non-empty stack always has lines left.
func (g *Generator) prune() {
	for len(g.stack) != 0 {
		f := g.stack[len(g.stack)-1]
		if f.next < len(f.siblings) {
			return
		}
		g.stack = g.stack[:len(g.stack)-1]
	}
}
