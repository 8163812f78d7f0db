package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func TestTTRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(MinHashMB)
	move := board.NewMove(board.E2, board.E4, board.FlagDoublePush, board.White, board.Pawn, board.NoPieceType)
	const hash = 0x1234_5678_9ABC_DEF0

	if _, ok := tt.Probe(hash, 0); ok {
		t.Fatal("probe hit on an empty table")
	}

	tt.Store(hash, 37, 6, move, BoundExact, 0)
	entry, ok := tt.Probe(hash, 0)
	if !ok {
		t.Fatal("probe missed after store")
	}
	if entry.Score != 37 || entry.Depth != 6 || entry.Bound != BoundExact || entry.BestMove != move {
		t.Errorf("entry = %+v", entry)
	}

	// Same slot, different key.
	if _, ok := tt.Probe(hash+uint64(tt.Size()), 0); ok {
		t.Errorf("probe hit with a different key in the same slot")
	}

	tt.Store(hash+uint64(tt.Size()), -12, 2, board.NoMove, BoundUpper, 0)
	if _, ok := tt.Probe(hash, 0); ok {
		t.Errorf("store did not replace the slot")
	}
}

func TestTTMateCorrection(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		storePly  int
		probePly  int
		wantScore int
	}{
		// Mate in 5 plies from the root found at ply 3 is mate in 2 from
		// the node; reached again at ply 1 it is mate in 3 from the root.
		{"winning", MateValue - 5, 3, 1, MateValue - 3},
		{"losing", -MateValue + 4, 2, 6, -MateValue + 8},
		{"ordinary", 250, 3, 9, 250},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTranspositionTable(MinHashMB)
			tt.Store(42, tc.score, 4, board.NoMove, BoundExact, tc.storePly)
			entry, ok := tt.Probe(42, tc.probePly)
			if !ok {
				t.Fatal("probe missed")
			}
			if int(entry.Score) != tc.wantScore {
				t.Errorf("score = %d, want %d", entry.Score, tc.wantScore)
			}
		})
	}
}

func TestTTSetHashMB(t *testing.T) {
	tests := []struct {
		mb   int
		want int
	}{
		{0, MinHashMB},
		{1, MinHashMB},
		{16, 16},
		{MaxHashMB + 1, MaxHashMB},
	}

	for _, tc := range tests {
		tt := NewTranspositionTable(MinHashMB)
		if got := tt.SetHashMB(tc.mb); got != tc.want {
			t.Errorf("SetHashMB(%d) = %d, want %d", tc.mb, got, tc.want)
		}
		if got, want := tt.Size(), tc.want*1_000_000/ttEntrySize; got != want {
			t.Errorf("SetHashMB(%d): %d entries, want %d", tc.mb, got, want)
		}
	}
}

func TestTTResizeAndClear(t *testing.T) {
	tt := NewTranspositionTable(MinHashMB)
	tt.Resize(1000)
	for h := uint64(0); h < 500; h++ {
		tt.Store(h, 0, 1, board.NoMove, BoundLower, 0)
	}
	if got := tt.HashFull(); got != 500 {
		t.Errorf("HashFull() = %d, want 500", got)
	}

	tt.Clear()
	if got := tt.HashFull(); got != 0 {
		t.Errorf("HashFull() after Clear = %d, want 0", got)
	}

	tt.Store(7, 0, 1, board.NoMove, BoundLower, 0)
	tt.Resize(2000)
	if tt.Size() != 2000 {
		t.Errorf("Size() = %d, want 2000", tt.Size())
	}
	if _, ok := tt.Probe(7, 0); ok {
		t.Errorf("entry survived Resize")
	}
}
