package board

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/corentings/chess/v2"
)

// Legal move sets are cross-checked against an independent move generator,
// both on fixed positions and along random playouts from them.
func TestLegalMovesMatchReference(t *testing.T) {
	fens := []string{
		StartFEN,
		kiwipeteFEN,
		position3FEN,
		position4FEN,
		position5FEN,
		epPinFEN,
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"8/P7/8/8/8/8/7p/K6k w - - 0 1",
	}
	rng := rand.New(rand.NewSource(42))

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			pos := mustParseFEN(t, fen)
			for ply := 0; ply < 40; ply++ {
				ours := legalMoveStrings(pos)
				theirs := referenceMoveStrings(t, pos.ToFEN())
				if !equalStrings(ours, theirs) {
					t.Fatalf("move sets differ in %s\nours:      %v\nreference: %v", pos.ToFEN(), ours, theirs)
				}
				if len(ours) == 0 {
					return
				}
				m, err := pos.ParseMove(ours[rng.Intn(len(ours))])
				if err != nil {
					t.Fatal(err)
				}
				pos.MakeMove(m)
			}
		})
	}
}

func legalMoveStrings(pos *Position) []string {
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	out := make([]string, 0, ml.Len())
	for _, m := range ml.Slice() {
		out = append(out, m.String())
	}
	sort.Strings(out)
	return out
}

func referenceMoveStrings(t *testing.T, fen string) []string {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("reference FEN(%q): %v", fen, err)
	}
	game := chess.NewGame(opt)
	moves := game.ValidMoves()
	out := make([]string, 0, len(moves))
	for i := range moves {
		out = append(out, chess.UCINotation{}.Encode(game.Position(), &moves[i]))
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
