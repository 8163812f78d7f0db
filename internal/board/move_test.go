package board

import "testing"

func TestMoveEncoding(t *testing.T) {
	m := NewMove(E7, F8, FlagPromoCaptureQueen, White, Pawn, Rook)
	if m.From() != E7 || m.To() != F8 {
		t.Errorf("squares = %s%s, want e7f8", m.From(), m.To())
	}
	if m.Color() != White || m.Piece() != Pawn || m.Captured() != Rook {
		t.Errorf("color/piece/captured = %v/%v/%v", m.Color(), m.Piece(), m.Captured())
	}
	if !m.IsCapture() || !m.IsPromotion() || m.IsQuiet() {
		t.Errorf("flag predicates wrong for %v", m)
	}
	if m.Promotion() != Queen {
		t.Errorf("Promotion() = %v, want queen", m.Promotion())
	}
	if got := m.String(); got != "e7f8q" {
		t.Errorf("String() = %q, want e7f8q", got)
	}
}

func TestMoveEqual(t *testing.T) {
	base := NewMove(E4, D5, FlagCapture, White, Pawn, Pawn)

	tests := []struct {
		name  string
		other Move
		want  bool
	}{
		{"identical", base, true},
		{"captured differs", NewMove(E4, D5, FlagCapture, White, Pawn, Knight), true},
		{"piece differs", NewMove(E4, D5, FlagCapture, White, Bishop, Pawn), true},
		{"from differs", NewMove(C4, D5, FlagCapture, White, Pawn, Pawn), false},
		{"to differs", NewMove(E4, E5, FlagCapture, White, Pawn, Pawn), false},
		{"flag differs", NewMove(E4, D5, FlagEnPassant, White, Pawn, Pawn), false},
		{"color differs", NewMove(E4, D5, FlagCapture, Black, Pawn, Pawn), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Equal(tc.other); got != tc.want {
				t.Errorf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMoveListContains(t *testing.T) {
	var ml MoveList
	NewPosition().GenerateLegalMoves(&ml)
	if !ml.Contains(NewMove(E2, E4, FlagDoublePush, White, Pawn, NoPieceType)) {
		t.Errorf("start moves lack e2e4")
	}
	if ml.Contains(NewMove(E2, E5, FlagQuiet, White, Pawn, NoPieceType)) {
		t.Errorf("start moves contain e2e5")
	}
	ml.Clear()
	if ml.Len() != 0 {
		t.Errorf("Len after Clear = %d", ml.Len())
	}
}

func TestCaptureGeneration(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want []string
	}{
		{"quiet start", StartFEN, nil},
		{"pawn takes", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", []string{"e4d5"}},
		{"quiet queen promotion", "4k3/P7/8/8/8/8/8/4K3 w - - 0 1", []string{"a7a8q"}},
		{"capture promotions", "1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1",
			[]string{"a7a8q", "a7b8q", "a7b8r", "a7b8b", "a7b8n"}},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2", []string{"e5d6"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParseFEN(t, tc.fen)
			var ml MoveList
			pos.GenerateCaptures(&ml)
			got := map[string]bool{}
			for _, m := range ml.Slice() {
				got[m.String()] = true
			}
			if len(got) != len(tc.want) {
				t.Errorf("captures = %v, want %v", ml.Slice(), tc.want)
			}
			for _, s := range tc.want {
				if !got[s] {
					t.Errorf("missing capture %s in %v", s, ml.Slice())
				}
			}
		})
	}
}
