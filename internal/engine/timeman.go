package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

const (
	// moveOverhead is kept back from every budget for I/O latency.
	moveOverhead     = 50 * time.Millisecond
	defaultMovesToGo = 30
	minBudget        = 10 * time.Millisecond
)

// TimeBudget returns how long a search under limits may run for the side
// us, or zero for no time limit.
//
//	movetime:  movetime - overhead
//	clock:     time/movestogo + inc/2 - overhead, movestogo defaulting to 30
//
// When only the opponent's clock is given, it stands in for the mover's.
// Budgets are floored at 10ms.
func TimeBudget(limits Limits, us board.Color) time.Duration {
	var budget time.Duration
	switch {
	case limits.Infinite:
		return 0
	case limits.MoveTime > 0:
		budget = limits.MoveTime - moveOverhead
	case limits.Time[us] > 0 || limits.Time[us.Other()] > 0:
		clock, inc := limits.Time[us], limits.Inc[us]
		if clock <= 0 {
			// Only the opponent's clock was sent; budget from it.
			clock, inc = limits.Time[us.Other()], limits.Inc[us.Other()]
		}
		mtg := limits.MovesToGo
		if mtg <= 0 {
			mtg = defaultMovesToGo
		}
		budget = clock/time.Duration(mtg) + inc/2 - moveOverhead
	default:
		return 0
	}
	return max(budget, minBudget)
}
