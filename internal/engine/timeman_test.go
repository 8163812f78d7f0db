package engine

import (
	"testing"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

func TestTimeBudget(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name   string
		limits Limits
		us     board.Color
		want   time.Duration
	}{
		{"no limits", Limits{}, board.White, 0},
		{"depth only", Limits{Depth: 8}, board.White, 0},
		{"infinite", Limits{Infinite: true, MoveTime: time.Second}, board.White, 0},
		{"movetime", Limits{MoveTime: time.Second}, board.White, 950 * ms},
		{"tiny movetime", Limits{MoveTime: 20 * ms}, board.White, 10 * ms},
		{"clock default mtg", Limits{Time: [2]time.Duration{60 * time.Second, 0}}, board.White, 1950 * ms},
		{"clock with inc", Limits{Time: [2]time.Duration{0, 30 * time.Second}, Inc: [2]time.Duration{0, 2 * time.Second}}, board.Black, 1950 * ms},
		{"movestogo", Limits{Time: [2]time.Duration{10 * time.Second, 0}, MovesToGo: 5}, board.White, 1950 * ms},
		{"only opponent clock", Limits{Time: [2]time.Duration{0, 30 * time.Second}}, board.White, 950 * ms},
		{"only opponent clock with inc", Limits{Time: [2]time.Duration{60 * time.Second, 0}, Inc: [2]time.Duration{2 * time.Second, 0}}, board.Black, 2950 * ms},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeBudget(tc.limits, tc.us); got != tc.want {
				t.Errorf("TimeBudget = %v, want %v", got, tc.want)
			}
		})
	}
}
