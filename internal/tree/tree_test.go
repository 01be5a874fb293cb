package tree

import (
	"reflect"
	"testing"

	"github.com/example/reptrainer/internal/rules"
)

func newTree() *VariationTree {
	return New(rules.NewOracle(), "")
}

func TestAddMoveAndVariation(t *testing.T) {
	var tr = newTree()
	if !tr.AddMove("e4") || !tr.AddMove("e5") {
		t.Fatal("legal moves rejected")
	}
	if !tr.GoBack() {
		t.Fatal("go back failed")
	}
	if !tr.AddMove("c5") {
		t.Fatal("c5 rejected")
	}

	var flat = tr.FlatMoves()
	if len(flat) != 3 {
		t.Fatal("flat moves", flat)
	}
	var c5 = flat[2]
	if c5.SAN != "c5" || !c5.IsVariationStart || c5.Depth <= 0 {
		t.Error("c5 entry", c5)
	}
	if !c5.ShowMoveNumber {
		t.Error("variation black move needs a move number")
	}
	if flat[1].ShowMoveNumber {
		t.Error("e5 directly follows e4")
	}
	if got := tr.MainLine(); !reflect.DeepEqual(got, []string{"e4", "e5"}) {
		t.Error("main line", got)
	}
	if got := tr.MoveText(); got != "1. e4 e5 (1... c5)" {
		t.Error("move text", got)
	}
}

func TestAddMoveIdempotent(t *testing.T) {
	var tr = newTree()
	tr.AddMoves("e4", "e5")
	tr.GoBack()
	var before = len(tr.Children(tr.Current()))
	if !tr.AddMove("e5") {
		t.Fatal("e5 rejected")
	}
	tr.GoBack()
	if after := len(tr.Children(tr.Current())); after != before {
		t.Error("duplicate child created", before, after)
	}
	if tr.NodeCount() != 2 {
		t.Error("node count", tr.NodeCount())
	}
}

func TestAddIllegalMoveLeavesState(t *testing.T) {
	var tr = newTree()
	tr.AddMove("d4")
	var cur = tr.Current()
	if tr.AddMove("d4") {
		t.Error("d4 is illegal for black")
	}
	if tr.Current() != cur || tr.NodeCount() != 1 {
		t.Error("state changed after illegal move")
	}
}

func TestNavigation(t *testing.T) {
	var tr = newTree()
	if tr.GoBack() {
		t.Error("go back at start must fail")
	}
	tr.AddMoves("e4", "e5", "Nf3")
	tr.GoToStart()
	if !tr.IsAtStart() {
		t.Error("expected start")
	}
	tr.AddMove("d4")
	tr.GoToStart()
	if !tr.GoForward() {
		t.Fatal("forward")
	}
	if n, _ := tr.Node(tr.Current()); n.SAN != "e4" {
		t.Error("forward must follow main line, got", n.SAN)
	}
	tr.GoToEnd()
	if !tr.IsAtEnd() {
		t.Error("expected end")
	}
	if n, _ := tr.Node(tr.Current()); n.SAN != "Nf3" {
		t.Error("end of main line", n.SAN)
	}
	if tr.NavigateToNode(999) {
		t.Error("unknown id must fail")
	}
	if n, _ := tr.Node(tr.Current()); n.SAN != "Nf3" {
		t.Error("failed navigation moved the pointer")
	}
	if !tr.NavigateToNode(NoNode) || !tr.IsAtStart() {
		t.Error("navigate to start")
	}
}

func TestPromoteToMainLine(t *testing.T) {
	var tr = newTree()
	tr.AddMoves("e4", "e5")
	tr.GoBack()
	tr.AddMove("c5")
	var c5 = tr.Current()
	tr.AddMove("Nf3")

	if !tr.PromoteToMainLine(c5) {
		t.Fatal("promote failed")
	}
	if got := tr.MainLine(); !reflect.DeepEqual(got, []string{"e4", "c5", "Nf3"}) {
		t.Error("main line after promotion", got)
	}
	if tr.PromoteToMainLine(c5) {
		t.Error("already main line")
	}
	if tr.PromoteToMainLine(12345) {
		t.Error("unknown id")
	}
}

func TestMainLineIgnoresVariations(t *testing.T) {
	var tr = newTree()
	tr.AddMoves("d4", "d5", "c4")
	tr.GoToStart()
	tr.AddMoves("e4", "c5")
	tr.GoToStart()
	tr.AddMoves("d4", "Nf6", "c4", "e6")
	if got := tr.MainLine(); !reflect.DeepEqual(got, []string{"d4", "d5", "c4"}) {
		t.Error("main line", got)
	}
}

func TestPointMutations(t *testing.T) {
	var tr = newTree()
	tr.AddMove("e4")
	var id = tr.Current()
	if !tr.MarkAsCritical(id, true) || !tr.SetComment(id, "best by test") {
		t.Fatal("mutation failed")
	}
	if tr.MarkAsCritical(77, true) || tr.SetComment(77, "x") {
		t.Error("unknown id must fail")
	}
	n, _ := tr.Node(id)
	if !n.IsCritical || n.Comment != "best by test" {
		t.Error("node", n)
	}
}

func TestRoundTrip(t *testing.T) {
	var oracle = rules.NewOracle()
	var tr = New(oracle, "")
	tr.AddMoves("e4", "c5", "Nf3", "d6")
	tr.GoBack()
	tr.AddMoves("Nc6", "d4")
	tr.GoToStart()
	tr.AddMoves("d4", "Nf6")
	tr.MarkAsCritical(2, true)
	tr.SetComment(3, "open sicilian")

	data, err := tr.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Unmarshal(oracle, data)
	if err != nil {
		t.Fatal(err)
	}

	if !restored.IsAtStart() {
		t.Error("restored tree must be at start")
	}
	if !reflect.DeepEqual(tr.MainLine(), restored.MainLine()) {
		t.Error("main line differs")
	}
	if !reflect.DeepEqual(tr.FlatMoves()[0].NodeID, restored.FlatMoves()[0].NodeID) {
		t.Error("ids differ")
	}
	if !reflect.DeepEqual(tr.ToJSON(), restored.ToJSON()) {
		t.Error("serialized form differs")
	}
	if restored.counter != tr.counter {
		t.Error("counter", restored.counter, tr.counter)
	}

	// New ids continue after the restored counter.
	restored.NavigateToNode(NoNode)
	restored.AddMove("c4")
	if restored.Current() != tr.counter+1 {
		t.Error("id reuse", restored.Current())
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	var data = []byte(`{"rootMoves":[{"id":1,"san":"e4","fen":"x","moveNumber":1,"isBlack":false,"children":[],"glyph":"!"}],"startFen":"","nodeIdCounter":1,"version":3}`)
	tr, err := Unmarshal(rules.NewOracle(), data)
	if err != nil {
		t.Fatal(err)
	}
	if got := tr.MainLine(); !reflect.DeepEqual(got, []string{"e4"}) {
		t.Error(got)
	}
	if tr.StartFEN() != rules.StartFEN {
		t.Error("default start fen", tr.StartFEN())
	}
}

func TestUnmarshalRejectsDuplicateIDs(t *testing.T) {
	var data = []byte(`{"rootMoves":[{"id":1,"san":"e4","children":[{"id":1,"san":"e5","children":[]}]}],"nodeIdCounter":1}`)
	if _, err := Unmarshal(rules.NewOracle(), data); err == nil {
		t.Error("expected error")
	}
}
