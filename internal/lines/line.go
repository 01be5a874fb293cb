// Package lines turns a variation tree into drillable lines: root-to-leaf
// paths extracted eagerly or in batches, and a breadth-first per-move queue.
package lines

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

// LineMove is one ply of a line.
type LineMove struct {
	SAN        string
	FENBefore  string
	FENAfter   string
	IsUserMove bool // played by the trained color
	NodeID     int
	MoveNumber int
	IsBlack    bool
	IsCritical bool
	Comment    string
}

// Line is a root-to-leaf (or root-to-depth-limit) path through a tree.
type Line struct {
	ID           string
	RepertoireID string
	ChapterID    string
	Moves        []LineMove
	Depth        int
	IsMainLine   bool
	BranchPoint  *int // index of the first move off the main line, nil for the main line
}

// Options controls extraction.
type Options struct {
	RepertoireID string
	ChapterID    string
	Color        models.Color // trained color
	MaxDepth     int          // plies; 0 means unlimited
}

func (o Options) limitReached(depth int) bool {
	return o.MaxDepth > 0 && depth >= o.MaxDepth
}

// LineID derives a stable identifier from the chapter and the move sequence.
func LineID(chapterID string, sans []string) string {
	h := xxhash.New()
	_, _ = h.WriteString(chapterID)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(strings.Join(sans, " "))
	return fmt.Sprintf("%016x", h.Sum64())
}

// SANs returns the moves of the line.
func (l *Line) SANs() []string {
	out := make([]string, len(l.Moves))
	for i := range l.Moves {
		out[i] = l.Moves[i].SAN
	}
	return out
}

// String renders the line as space separated SAN.
func (l *Line) String() string {
	return strings.Join(l.SANs(), " ")
}

// IsUserMove reports whether a move made by the given side belongs to color.
func IsUserMove(color models.Color, isBlack bool) bool {
	return (color == models.White) != isBlack
}

func newLineMove(n tree.MoveNode, fenBefore string, color models.Color) LineMove {
	return LineMove{
		SAN:        n.SAN,
		FENBefore:  fenBefore,
		FENAfter:   n.FEN,
		IsUserMove: IsUserMove(color, n.IsBlack),
		NodeID:     n.ID,
		MoveNumber: n.MoveNumber,
		IsBlack:    n.IsBlack,
		IsCritical: n.IsCritical,
		Comment:    n.Comment,
	}
}

func newLine(opts Options, path []LineMove, isMain bool, branch *int) Line {
	l := Line{
		RepertoireID: opts.RepertoireID,
		ChapterID:    opts.ChapterID,
		Moves:        path,
		Depth:        len(path),
		IsMainLine:   isMain,
		BranchPoint:  branch,
	}
	l.ID = LineID(opts.ChapterID, l.SANs())
	return l
}

// extend returns path+mv without sharing storage with path.
func extend(path []LineMove, mv LineMove) []LineMove {
	out := make([]LineMove, len(path), len(path)+1)
	copy(out, path)
	return append(out, mv)
}

func intPtr(v int) *int {
	return &v
}
