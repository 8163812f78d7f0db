package engine

import (
	"unsafe"

	"github.com/hailam/chesscore/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = iota // empty slot
	BoundExact              // alpha < score < beta
	BoundLower              // failed high, score >= beta
	BoundUpper              // failed low, score <= alpha
)

// Hash size limits in megabytes.
const (
	MinHashMB     = 4
	MaxHashMB     = 1024
	DefaultHashMB = 64
)

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key      uint64 // full Zobrist key, checked on probe
	BestMove board.Move
	Score    int32
	Depth    int8
	Bound    Bound
}

const ttEntrySize = int(unsafe.Sizeof(TTEntry{}))

// TranspositionTable is a direct-indexed hash table of search results.
// Store always overwrites the slot. It is not safe for concurrent use; each
// Search owns one.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
}

// NewTranspositionTable creates a table of sizeMB megabytes, clamped to
// [MinHashMB, MaxHashMB].
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.SetHashMB(sizeMB)
	return tt
}

// SetHashMB clamps mb to the allowed range, resizes the table to fit and
// returns the clamped value.
func (tt *TranspositionTable) SetHashMB(mb int) int {
	mb = min(max(mb, MinHashMB), MaxHashMB)
	tt.Resize(mb * 1_000_000 / ttEntrySize)
	return mb
}

// Resize discards every entry and reallocates the table with n slots.
func (tt *TranspositionTable) Resize(n int) {
	if n < 1 {
		n = 1
	}
	tt.entries = make([]TTEntry, n)
	tt.size = uint64(n)
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() int {
	return int(tt.size)
}

// Probe looks up hash. Mate scores come back relative to ply.
func (tt *TranspositionTable) Probe(hash uint64, ply int) (TTEntry, bool) {
	entry := tt.entries[hash%tt.size]
	if entry.Bound == BoundNone || entry.Key != hash {
		return TTEntry{}, false
	}
	entry.Score = int32(scoreFromTT(int(entry.Score), ply))
	return entry, true
}

// Store writes a search result for hash, replacing whatever was there.
// Mate scores are stored relative to the node rather than the root.
func (tt *TranspositionTable) Store(hash uint64, score, depth int, move board.Move, bound Bound, ply int) {
	tt.entries[hash%tt.size] = TTEntry{
		Key:      hash,
		BestMove: move,
		Score:    int32(scoreToTT(score, ply)),
		Depth:    int8(min(depth, 127)),
		Bound:    bound,
	}
}

// Clear empties the table without reallocating.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
}

// HashFull returns the permille of used slots among the first thousand.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].Bound != BoundNone {
			used++
		}
	}
	return used * 1000 / sample
}

func scoreToTT(score, ply int) int {
	switch {
	case score > MateScore:
		return score + ply
	case score < -MateScore:
		return score - ply
	}
	return score
}

func scoreFromTT(score, ply int) int {
	switch {
	case score > MateScore:
		return score - ply
	case score < -MateScore:
		return score + ply
	}
	return score
}
