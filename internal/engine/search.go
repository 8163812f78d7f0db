package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Score constants. A mate found at ply p scores MateValue-p for the winner;
// anything beyond MateScore in absolute value is a forced mate.
const (
	Infinity  = 50000
	MateValue = 49000
	MateScore = 48000
	MaxPly    = 128

	// MaxDepth caps iterative deepening so check extensions stay under MaxPly.
	MaxDepth = 64

	AspirationWindow = 50
)

// Pruning constants
const (
	nullMoveReduction = 2
	nullMoveMinDepth  = 3
	rfpMaxDepth       = 5
	rfpMargin         = 20 // multiplied by depth squared
	lmrFullDepthMoves = 4
	lmrMinDepth       = 3
	futilityMaxDepth  = 3

	pollInterval = 2048 // nodes between stop checks, a power of two
)

var futilityMargins = [futilityMaxDepth + 1]int{0, 200, 300, 700}

// pvTable is the triangular principal-variation table.
type pvTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// update makes m followed by the child's line the PV at ply.
func (pv *pvTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	child := pv.length[ply+1]
	copy(pv.moves[ply][ply+1:child], pv.moves[ply+1][ply+1:child])
	pv.length[ply] = max(child, ply+1)
}

// line returns a copy of the root PV.
func (pv *pvTable) line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// Search owns all state of one single-threaded search: the hash table, the
// ordering tables, the PV and the stop machinery. Separate instances never
// share anything, so they may run in parallel.
type Search struct {
	tt *TranspositionTable

	killers [MaxPly][2]board.Move
	history [12][64]int // [piece][to]
	pv      pvTable

	nodes     uint64
	nodeLimit uint64
	deadline  time.Time
	ctx       context.Context
	stop      atomic.Bool
	aborted   bool

	// rootHistory holds the game positions before the root; path extends
	// it with the positions on the current search line.
	rootHistory []uint64
	path        []uint64

	// OnInfo, when set, is called after every completed depth.
	OnInfo func(Info)
}

// NewSearch returns a search with a transposition table of hashMB megabytes.
func NewSearch(hashMB int) *Search {
	return &Search{tt: NewTranspositionTable(hashMB)}
}

// SetHashMB resizes the transposition table and returns the clamped size.
func (s *Search) SetHashMB(mb int) int {
	return s.tt.SetHashMB(mb)
}

// Stop asks a running search to unwind. It is safe to call from another
// goroutine; the search notices within pollInterval nodes.
func (s *Search) Stop() {
	s.stop.Store(true)
}

// Clear forgets everything learned in previous searches.
func (s *Search) Clear() {
	s.tt.Clear()
	s.killers = [MaxPly][2]board.Move{}
	s.history = [12][64]int{}
}

// SetRootHistory records the hashes of the game positions that precede the
// next root, oldest first, for repetition detection.
func (s *Search) SetRootHistory(hashes []uint64) {
	s.rootHistory = append(s.rootHistory[:0], hashes...)
}

func (s *Search) reset(ctx context.Context, limits Limits, us board.Color, start time.Time) {
	s.killers = [MaxPly][2]board.Move{}
	s.history = [12][64]int{}
	s.pv = pvTable{}
	s.nodes = 0
	s.nodeLimit = limits.Nodes
	s.deadline = time.Time{}
	if budget := TimeBudget(limits, us); budget > 0 {
		s.deadline = start.Add(budget)
	}
	s.ctx = ctx
	s.stop.Store(false)
	s.aborted = false
	s.path = append(s.path[:0], s.rootHistory...)
}

// checkup counts a node and reports whether the search must unwind. The
// clock, node limit, context and stop flag are polled every pollInterval
// nodes.
func (s *Search) checkup() bool {
	s.nodes++
	if s.nodes&(pollInterval-1) == 0 {
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			s.stop.Store(true)
		}
		if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
			s.stop.Store(true)
		}
		if s.ctx != nil && s.ctx.Err() != nil {
			s.stop.Store(true)
		}
		s.aborted = s.stop.Load()
	}
	return s.aborted
}

// isDraw reports the fifty-move rule, insufficient material, and a
// repetition of any earlier position since the last irreversible move.
func (s *Search) isDraw(pos *board.Position) bool {
	if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() {
		return true
	}
	n := len(s.path)
	for i := n - 2; i >= 0 && n-i <= pos.HalfMoveClock; i -= 2 {
		if s.path[i] == pos.Hash {
			return true
		}
	}
	return false
}
