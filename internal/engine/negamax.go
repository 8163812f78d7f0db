package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// negamax searches pos to depth with a fail-hard alpha-beta window. The
// second result is false when the search was stopped; the score is then
// meaningless and must not be used or stored.
func (s *Search) negamax(pos *board.Position, depth, ply, alpha, beta int, allowNull bool) (int, bool) {
	s.pv.length[ply] = ply
	if s.checkup() {
		return 0, false
	}
	if ply >= MaxPly-1 {
		return pos.Eval(), true
	}
	if ply > 0 && s.isDraw(pos) {
		return 0, true
	}

	inCheck := pos.InCheck()
	if inCheck {
		depth++
	}
	if depth <= 0 {
		return s.quiescence(pos, ply, alpha, beta)
	}

	pvNode := beta-alpha > 1

	ttMove := board.NoMove
	if entry, ok := s.tt.Probe(pos.Hash, ply); ok {
		ttMove = entry.BestMove
		if !pvNode && int(entry.Depth) >= depth {
			score := int(entry.Score)
			switch {
			case entry.Bound == BoundExact:
				return score, true
			case entry.Bound == BoundLower && score >= beta:
				return beta, true
			case entry.Bound == BoundUpper && score <= alpha:
				return alpha, true
			}
		}
	}

	staticEval := pos.Eval()

	if !pvNode && !inCheck && ply > 0 {
		// Reverse futility pruning
		if depth <= rfpMaxDepth && staticEval-rfpMargin*depth*depth >= beta {
			return staticEval, true
		}

		// Null move pruning
		if allowNull && depth >= nullMoveMinDepth && pos.HasNonPawnMaterial() {
			child := *pos
			child.MakeNullMove()
			s.path = append(s.path, pos.Hash)
			score, ok := s.negamax(&child, depth-1-nullMoveReduction, ply+1, -beta, -beta+1, false)
			s.path = s.path[:len(s.path)-1]
			if !ok {
				return 0, false
			}
			if -score >= beta {
				return beta, true
			}
		}
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		if inCheck {
			return -MateValue + ply, true
		}
		return 0, true
	}

	var scores [256]int
	s.scoreMoves(&ml, scores[:], ply, ttMove)

	futile := !pvNode && !inCheck && depth <= futilityMaxDepth &&
		staticEval+futilityMargins[depth] <= alpha

	origAlpha := alpha
	bestMove := board.NoMove
	searched := 0

	for i := 0; i < ml.Len(); i++ {
		pickMove(&ml, scores[:], i)
		m := ml.Get(i)

		child := *pos
		child.MakeMove(m)
		quiet := m.IsQuiet()
		givesCheck := child.InCheck()

		if futile && searched > 0 && quiet && !givesCheck {
			continue
		}

		search := func(d, a, b int) (int, bool) {
			score, ok := s.negamax(&child, d, ply+1, a, b, true)
			return -score, ok
		}

		s.path = append(s.path, pos.Hash)
		var score int
		ok := true
		if searched == 0 {
			score, ok = search(depth-1, -beta, -alpha)
		} else {
			// Late move reduction
			reduction := 0
			if searched >= lmrFullDepthMoves && depth >= lmrMinDepth && quiet && !inCheck && !givesCheck {
				reduction = 1
			}
			score, ok = search(depth-1-reduction, -alpha-1, -alpha)
			if ok && score > alpha && reduction > 0 {
				score, ok = search(depth-1, -alpha-1, -alpha)
			}
			if ok && score > alpha && score < beta {
				score, ok = search(depth-1, -beta, -alpha)
			}
		}
		s.path = s.path[:len(s.path)-1]
		if !ok {
			return 0, false
		}
		searched++

		if score > alpha {
			if quiet {
				s.updateQuiet(m, ply, depth)
			}
			if score >= beta {
				s.tt.Store(pos.Hash, beta, depth, m, BoundLower, ply)
				return beta, true
			}
			alpha = score
			bestMove = m
			s.pv.update(ply, m)
		}
	}

	if alpha > origAlpha {
		s.tt.Store(pos.Hash, alpha, depth, bestMove, BoundExact, ply)
	} else {
		s.tt.Store(pos.Hash, alpha, depth, ttMove, BoundUpper, ply)
	}
	return alpha, true
}

// quiescence resolves captures until the position is quiet so the static
// evaluation is not taken in the middle of an exchange.
func (s *Search) quiescence(pos *board.Position, ply, alpha, beta int) (int, bool) {
	if s.checkup() {
		return 0, false
	}

	standPat := pos.Eval()
	if ply >= MaxPly-1 {
		return standPat, true
	}
	if standPat >= beta {
		return beta, true
	}
	if standPat > alpha {
		alpha = standPat
	}

	var ml board.MoveList
	pos.GenerateCaptures(&ml)

	var scores [256]int
	scoreCaptures(&ml, scores[:])

	for i := 0; i < ml.Len(); i++ {
		pickMove(&ml, scores[:], i)
		child := *pos
		child.MakeMove(ml.Get(i))

		score, ok := s.quiescence(&child, ply+1, -beta, -alpha)
		if !ok {
			return 0, false
		}
		score = -score

		if score >= beta {
			return beta, true
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha, true
}
