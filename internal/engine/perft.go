package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Perft counts the leaf nodes of the legal move tree to depth.
func Perft(pos *board.Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		child := *pos
		child.MakeMove(ml.Get(i))
		nodes += Perft(&child, depth-1)
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  board.Move
	Nodes uint64
}

// Divide runs perft separately under each root move.
func Divide(pos *board.Position, depth int) []DivideEntry {
	if depth <= 0 {
		return nil
	}

	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		child := *pos
		child.MakeMove(ml.Get(i))
		out = append(out, DivideEntry{Move: ml.Get(i), Nodes: Perft(&child, depth-1)})
	}
	return out
}
