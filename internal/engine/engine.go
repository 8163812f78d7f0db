package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Info is reported after every completed iteration.
type Info struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille of the hash table in use
}

// NPS returns nodes per second.
func (i Info) NPS() uint64 {
	ms := i.Time.Milliseconds()
	if ms <= 0 {
		return i.Nodes * 1000
	}
	return i.Nodes * 1000 / uint64(ms)
}

// Limits bounds a search. Zero values mean no limit.
type Limits struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Time      [2]time.Duration // remaining clock by color
	Inc       [2]time.Duration // increment by color
	MovesToGo int
	Infinite  bool
}

// Result is the outcome of BestMove: the deepest completed iteration.
type Result struct {
	Move  board.Move // NoMove when the root has no legal move
	Score int
	Depth int
	Nodes uint64
	Time  time.Duration
	PV    []board.Move
}

// BestMove runs iterative deepening on pos until a limit is hit, the
// context is cancelled, Stop is called or a forced mate is found. Only
// completed iterations contribute to the result; if the first iteration
// is interrupted the first legal move is returned with depth 0.
func (s *Search) BestMove(ctx context.Context, pos *board.Position, limits Limits) Result {
	start := time.Now()
	s.reset(ctx, limits, pos.SideToMove, start)

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		score := 0
		if pos.InCheck() {
			score = -MateValue
		}
		return Result{Move: board.NoMove, Score: score, Time: time.Since(start)}
	}

	result := Result{Move: ml.Get(0)}
	maxDepth := MaxDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxDepth)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		alpha, beta := -Infinity, Infinity
		if depth > 1 {
			alpha, beta = result.Score-AspirationWindow, result.Score+AspirationWindow
		}

		score, ok := s.negamax(pos, depth, 0, alpha, beta, true)
		if ok && (score <= alpha || score >= beta) {
			score, ok = s.negamax(pos, depth, 0, -Infinity, Infinity, true)
		}
		if !ok {
			break
		}

		result.Score = score
		result.Depth = depth
		if s.pv.length[0] > 0 {
			result.PV = s.pv.line()
			result.Move = result.PV[0]
		}

		if s.OnInfo != nil {
			s.OnInfo(Info{
				Depth:    depth,
				Score:    score,
				Nodes:    s.nodes,
				Time:     time.Since(start),
				PV:       result.PV,
				HashFull: s.tt.HashFull(),
			})
		}

		if IsMateScore(score) {
			break
		}

		// Another iteration costs more than all previous ones together, so
		// don't start it past half the budget.
		if !s.deadline.IsZero() && time.Since(start) > s.deadline.Sub(start)/2 {
			break
		}
	}

	result.Nodes = s.nodes
	result.Time = time.Since(start)
	return result
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore || score < -MateScore
}

// MateIn converts a mate score into moves to mate: positive when the side
// to move mates, negative or zero when it is mated.
func MateIn(score int) int {
	if score > 0 {
		return (MateValue - score + 1) / 2
	}
	return -(MateValue + score) / 2
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if n := MateIn(score); n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -MateIn(score))
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
