package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000
	GoodCaptureBase = 1000000
	KillerScore1    = 900000
	KillerScore2    = 800000

	// historyMax keeps history scores below the killer band.
	historyMax = 400000
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Score = victimValue * 10 - attackerValue
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// scoreMoves fills scores with the ordering key of every move in ml: the
// hash move first, then captures and promotions by MVV-LVA, then killers,
// then history.
func (s *Search) scoreMoves(ml *board.MoveList, scores []int, ply int, ttMove board.Move) {
	for i := 0; i < ml.Len(); i++ {
		scores[i] = s.scoreMove(ml.Get(i), ply, ttMove)
	}
}

func (s *Search) scoreMove(m board.Move, ply int, ttMove board.Move) int {
	if ttMove != board.NoMove && m.Equal(ttMove) {
		return TTMoveScore
	}
	if m.IsCapture() {
		score := GoodCaptureBase + mvvLva[m.Captured()][m.Piece()]
		if m.IsPromotion() {
			score += board.PieceValue[m.Promotion()] / 10
		}
		return score
	}
	if m.IsPromotion() {
		return GoodCaptureBase + board.PieceValue[m.Promotion()]/10 - 100
	}
	if ply < MaxPly {
		if m.Equal(s.killers[ply][0]) {
			return KillerScore1
		}
		if m.Equal(s.killers[ply][1]) {
			return KillerScore2
		}
	}
	return s.history[historyIndex(m)][m.To()]
}

// scoreCaptures orders quiescence moves by MVV-LVA alone.
func scoreCaptures(ml *board.MoveList, scores []int) {
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		score := 0
		if m.IsCapture() {
			score = mvvLva[m.Captured()][m.Piece()]
		}
		if m.IsPromotion() {
			score += board.PieceValue[m.Promotion()] / 10
		}
		scores[i] = score
	}
}

// pickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func pickMove(ml *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < ml.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		ml.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

func historyIndex(m board.Move) board.Piece {
	return board.NewPiece(m.Piece(), m.Color())
}

// updateQuiet rewards a quiet move that raised alpha: it becomes the first
// killer at ply and its history score grows with depth.
func (s *Search) updateQuiet(m board.Move, ply, depth int) {
	if ply < MaxPly && !m.Equal(s.killers[ply][0]) {
		s.killers[ply][1] = s.killers[ply][0]
		s.killers[ply][0] = m
	}

	h := &s.history[historyIndex(m)][m.To()]
	*h += depth * depth
	if *h > historyMax {
		for p := range s.history {
			for sq := range s.history[p] {
				s.history[p][sq] /= 2
			}
		}
	}
}
