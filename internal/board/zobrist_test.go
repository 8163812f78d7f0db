package board

import (
	"math/rand"
	"testing"
)

// Along random playouts the incrementally maintained hash and score must
// always equal a from-scratch computation.
func TestIncrementalHashAndScore(t *testing.T) {
	fens := []string{StartFEN, kiwipeteFEN, position3FEN, position4FEN, position5FEN}
	rng := rand.New(rand.NewSource(7))

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			for game := 0; game < 20; game++ {
				pos := mustParseFEN(t, fen)
				for ply := 0; ply < 120; ply++ {
					var ml MoveList
					pos.GenerateLegalMoves(&ml)
					if ml.Len() == 0 {
						break
					}
					m := ml.Get(rng.Intn(ml.Len()))
					pos.MakeMove(m)

					if got, want := pos.Hash, pos.ComputeHash(); got != want {
						t.Fatalf("after %v at ply %d: hash %016x, recomputed %016x", m, ply, got, want)
					}
					if got, want := pos.Score(), pos.ComputeScore(); got != want {
						t.Fatalf("after %v at ply %d: score %d, recomputed %d", m, ply, got, want)
					}
					checkOccupancy(t, pos)
				}
			}
		})
	}
}

func checkOccupancy(t *testing.T, pos *Position) {
	t.Helper()
	var union [2]Bitboard
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			union[c] |= pos.Pieces[c][pt]
		}
	}
	if union != pos.Occupied {
		t.Fatalf("occupancy out of sync:\n%s", pos)
	}
	if pos.Occupied[White]&pos.Occupied[Black] != 0 {
		t.Fatalf("colors overlap:\n%s", pos)
	}
	if pos.AllOccupied != union[White]|union[Black] {
		t.Fatalf("AllOccupied out of sync:\n%s", pos)
	}
}

func TestNullMoveHash(t *testing.T) {
	pos := mustParseFEN(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	pos.MakeNullMove()
	if pos.EnPassant != NoSquare {
		t.Errorf("null move kept en passant square %s", pos.EnPassant)
	}
	if pos.SideToMove != Black {
		t.Errorf("null move did not pass the turn")
	}
	if pos.Hash != pos.ComputeHash() {
		t.Errorf("null move hash %016x, recomputed %016x", pos.Hash, pos.ComputeHash())
	}
}

// Transposing the same moves must reach the same key.
func TestHashTransposition(t *testing.T) {
	play := func(moves ...string) uint64 {
		pos := NewPosition()
		for _, s := range moves {
			m, err := pos.ParseMove(s)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", s, err)
			}
			pos.MakeMove(m)
		}
		return pos.Hash
	}
	a := play("g1f3", "g8f6", "b1c3", "b8c6")
	b := play("b1c3", "b8c6", "g1f3", "g8f6")
	if a != b {
		t.Errorf("transposed hashes differ: %016x != %016x", a, b)
	}
	if a == NewPosition().Hash {
		t.Errorf("hash unchanged after four moves")
	}
}
