package review

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/reptrainer/internal/rules"
	"github.com/example/reptrainer/internal/tree"
	"github.com/example/reptrainer/pkg/models"
)

func chapter(t *testing.T, oracle rules.Oracle, lines ...[]string) *tree.VariationTree {
	t.Helper()
	var tr = tree.New(oracle, "")
	for _, line := range lines {
		tr.GoToStart()
		if n := tr.AddMoves(line...); n != len(line) {
			t.Fatalf("illegal move %d in %v", n, line)
		}
	}
	return tr
}

// play returns the position after sans from the start position.
func play(t *testing.T, oracle rules.Oracle, sans ...string) string {
	t.Helper()
	var fen = rules.StartFEN
	for _, san := range sans {
		res, err := oracle.Move(fen, san)
		if err != nil {
			t.Fatal(san, err)
		}
		fen = res.FEN
	}
	return fen
}

func TestKeyMoveSequence(t *testing.T) {
	var matched = []bool{true, true, true, false, false, false, true}
	var tracker = NewKeyMoveTracker()

	var got []KeyMove
	for _, m := range matched {
		var dev = DeviationNone
		if !m {
			dev = OpponentNovelty
		}
		got = append(got, tracker.Next(m, dev))
	}

	for i, km := range got {
		switch i {
		case 3:
			if !km.IsKey || km.Reason != ReasonOpponentNovelty {
				t.Errorf("ply %d: %+v", i+1, km)
			}
		case 6:
			if !km.IsKey || km.Reason != ReasonTransposition {
				t.Errorf("ply %d: %+v", i+1, km)
			}
		default:
			if km.IsKey {
				t.Errorf("ply %d flagged: %+v", i+1, km)
			}
		}
	}
}

func TestIdentifyKeyMove(t *testing.T) {
	var tests = []struct {
		name string
		in   KeyMoveInput
		want KeyMove
	}{
		{"in book", KeyMoveInput{Matched: true, WasInRepertoireLastMove: true}, KeyMove{}},
		{"re-entry", KeyMoveInput{Matched: true, HasAlreadyDeviated: true}, KeyMove{true, ReasonTransposition}},
		{"first deviation", KeyMoveInput{Deviation: UserMisplay, WasInRepertoireLastMove: true}, KeyMove{true, ReasonUserMisplay}},
		{"gap", KeyMoveInput{Deviation: CoverageGap, WasInRepertoireLastMove: true}, KeyMove{true, ReasonCoverageGap}},
		{"still deviating", KeyMoveInput{Deviation: UserMisplay, HasAlreadyDeviated: true}, KeyMove{}},
	}
	for _, test := range tests {
		if got := IdentifyKeyMove(test.in); got != test.want {
			t.Errorf("%s: got %+v want %+v", test.name, got, test.want)
		}
	}
}

func TestTwoChapterTransposition(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.White, Tree: chapter(t, oracle, []string{"d4", "Nf6", "Nc3", "d5"})},
		{Color: models.White, Tree: chapter(t, oracle, []string{"d4", "d5", "Nc3", "Nf6"})},
	}, models.White)

	var res = CheckRepertoireMatchFEN(oracle, play(t, oracle, "d4", "d5"), "Nc3", 2, false, models.White, m)
	if !res.Matched || !res.IsUserMove {
		t.Fatalf("%+v", res)
	}
	if !reflect.DeepEqual(res.ExpectedMoves, []string{"Nf6"}) {
		t.Error("expected moves", res.ExpectedMoves)
	}

	// both chapters end in the same position
	res = CheckRepertoireMatchFEN(oracle, play(t, oracle, "d4", "d5", "Nc3"), "Nf6", 3, true, models.White, m)
	if !res.Matched || res.IsUserMove || len(res.ExpectedMoves) != 0 {
		t.Errorf("leaf: %+v", res)
	}
}

func TestTranspositionMerge(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.White, Tree: chapter(t, oracle, []string{"d4", "Nf6", "c4", "e6", "Nc3"})},
		{Color: models.White, Tree: chapter(t, oracle, []string{"c4", "e6", "d4", "Nf6", "g3"})},
		{Color: models.Black, Tree: chapter(t, oracle, []string{"d4", "Nf6", "c4", "e6", "Nf3"})},
	}, models.White)

	var a, okA = m.Moves(4, play(t, oracle, "d4", "Nf6", "c4", "e6"))
	var b, okB = m.Moves(4, play(t, oracle, "c4", "e6", "d4", "Nf6"))
	if !okA || !okB {
		t.Fatal("shared position missing")
	}
	if !reflect.DeepEqual(a, b) || !reflect.DeepEqual(a, []string{"Nc3", "g3"}) {
		t.Error(a, b)
	}
	if roots, _ := m.Moves(0, rules.StartFEN); !reflect.DeepEqual(roots, []string{"c4", "d4"}) {
		t.Error("roots", roots)
	}
}

func TestDeviationTypes(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.White, Tree: chapter(t, oracle, []string{"d4", "Nf6"}, []string{"d4", "d5"})},
	}, models.White)

	var tests = []struct {
		name    string
		moves   []string
		played  string
		want    DeviationType
		repMove []string
	}{
		{"user misplay", nil, "e4", UserMisplay, []string{"d4"}},
		{"opponent novelty", []string{"d4"}, "e5", OpponentNovelty, []string{"Nf6", "d5"}},
		{"coverage gap", []string{"d4", "d5"}, "c4", CoverageGap, nil},
		{"illegal move", nil, "Ke2", UserMisplay, []string{"d4"}},
	}
	for _, test := range tests {
		var fen = play(t, oracle, test.moves...)
		var res = CheckRepertoireMatchFEN(oracle, fen, test.played, len(test.moves), rules.SideToMoveIsBlack(fen), models.White, m)
		if res.Matched {
			t.Errorf("%s: matched", test.name)
		}
		if res.Deviation != test.want {
			t.Errorf("%s: deviation %q", test.name, res.Deviation)
		}
		if !reflect.DeepEqual(res.RepertoireMoves, test.repMove) {
			t.Errorf("%s: repertoire moves %v", test.name, res.RepertoireMoves)
		}
	}
}

func TestMatchIgnoresAnnotations(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.Black, Tree: chapter(t, oracle, []string{"e4", "c5"})},
	}, models.Black)
	var res = CheckRepertoireMatchFEN(oracle, rules.StartFEN, "e4!", 0, false, models.Black, m)
	if !res.Matched || res.IsUserMove || res.SAN != "e4" {
		t.Errorf("%+v", res)
	}
}

func TestReviewGame(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.White, Tree: chapter(t, oracle, []string{"d4", "Nf6", "c4", "e6", "Nc3"})},
	}, models.White)

	var g, err = ReviewGame(oracle, "", []string{"c4", "e6", "d4", "Nf6", "Nc3", "Bb4"}, models.White, m)
	if err != nil {
		t.Fatal(err)
	}
	// Bb4 leaves the repertoire again after the transposition
	if !reflect.DeepEqual(g.KeyMoves, []int{0, 4, 5}) {
		t.Fatal("key moves", g.KeyMoves)
	}
	if g.Plies[0].KeyMove.Reason != ReasonUserMisplay {
		t.Error("first key move", g.Plies[0].KeyMove)
	}
	if g.Plies[4].KeyMove.Reason != ReasonTransposition {
		t.Error("second key move", g.Plies[4].KeyMove)
	}
	if g.Plies[5].KeyMove.Reason != ReasonCoverageGap {
		t.Error("third key move", g.Plies[5].KeyMove)
	}
	if g.LastBookPly != 4 || g.Matched() != 1 {
		t.Error("book plies", g.LastBookPly, g.Matched())
	}
	if !g.Plies[1].IsBlack || g.Plies[2].MoveNumber != 2 {
		t.Error("ply metadata", g.Plies[1], g.Plies[2])
	}
}

func TestReviewGameIllegalMove(t *testing.T) {
	var oracle = rules.NewOracle()
	var g, err = ReviewGame(oracle, "", []string{"e4", "e5", "Ke3"}, models.White, PositionMap{})
	if !errors.Is(err, rules.ErrIllegalMove) {
		t.Fatal(err)
	}
	if len(g.Plies) != 2 {
		t.Error("plies before the illegal move", len(g.Plies))
	}
}

func TestMatchIgnoresDeadEnPassantTarget(t *testing.T) {
	var oracle = rules.NewOracle()
	var m = BuildRepertoirePositionMap(oracle, []Source{
		{Color: models.Black, Tree: chapter(t, oracle, []string{"e4", "c5", "Nf3"})},
	}, models.Black)

	// written by a tool that always sets the target after a double push
	var fen = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	var res = CheckRepertoireMatchFEN(oracle, fen, "c5", 1, true, models.Black, m)
	if !res.Matched || !res.IsUserMove {
		t.Fatalf("%+v", res)
	}
	if !reflect.DeepEqual(res.ExpectedMoves, []string{"Nf3"}) {
		t.Error("expected moves", res.ExpectedMoves)
	}
	if !m.HasPosition(1, fen) {
		t.Error("position with en-passant target not found")
	}
}
