package board

import "errors"

var (
	// ErrInvalidPosition is wrapped by every FEN parsing failure.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrIllegalMove is returned when a move string does not match any legal
	// move of the position.
	ErrIllegalMove = errors.New("illegal move")
)
