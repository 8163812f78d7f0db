package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses all six FEN fields. Every failure wraps
// ErrInvalidPosition. Besides syntax, the position must have exactly one
// king per side, no pawns on the back ranks, and the side that just moved
// must not be in check. Castling rights whose king or rook is not on its
// home square are dropped.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: need 6 FEN fields, got %d", ErrInvalidPosition, len(parts))
	}

	pos := &Position{EnPassant: NoSquare}

	if err := parsePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidPosition, parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			switch c {
			case 'K':
				pos.CastlingRights |= WhiteKingSide
			case 'Q':
				pos.CastlingRights |= WhiteQueenSide
			case 'k':
				pos.CastlingRights |= BlackKingSide
			case 'q':
				pos.CastlingRights |= BlackQueenSide
			default:
				return nil, fmt.Errorf("%w: castling rights %q", ErrInvalidPosition, parts[2])
			}
		}
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
		}
		want := 5
		if pos.SideToMove == Black {
			want = 2
		}
		if sq.Rank() != want {
			return nil, fmt.Errorf("%w: en passant square %s on wrong rank", ErrInvalidPosition, sq)
		}
		pos.EnPassant = sq
	}

	hmc, err := strconv.Atoi(parts[4])
	if err != nil || hmc < 0 {
		return nil, fmt.Errorf("%w: half-move clock %q", ErrInvalidPosition, parts[4])
	}
	pos.HalfMoveClock = hmc

	fmn, err := strconv.Atoi(parts[5])
	if err != nil || fmn < 1 {
		return nil, fmt.Errorf("%w: full-move number %q", ErrInvalidPosition, parts[5])
	}
	pos.FullMoveNumber = fmn

	pos.sanitizeCastling()
	pos.refresh()

	if err := pos.validate(); err != nil {
		return nil, err
	}
	return pos, nil
}

func parsePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidPosition, len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return fmt.Errorf("%w: unknown piece %q", ErrInvalidPosition, c)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidPosition, rank+1)
			}
			pos.Pieces[piece.Color()][piece.Type()] |= SquareBB(NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidPosition, rank+1, file)
		}
	}
	return nil
}

func (p *Position) sanitizeCastling() {
	home := [4]struct {
		right CastlingRights
		c     Color
		king  Square
		rook  Square
	}{
		{WhiteKingSide, White, E1, H1},
		{WhiteQueenSide, White, E1, A1},
		{BlackKingSide, Black, E8, H8},
		{BlackQueenSide, Black, E8, A8},
	}
	for _, h := range home {
		if !p.Pieces[h.c][King].IsSet(h.king) || !p.Pieces[h.c][Rook].IsSet(h.rook) {
			p.CastlingRights &^= h.right
		}
	}
}

func (p *Position) validate() error {
	for c := White; c <= Black; c++ {
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvalidPosition, c, n)
		}
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawn on back rank", ErrInvalidPosition)
	}
	if p.IsKingAttacked(p.SideToMove.Other()) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidPosition)
	}
	if ep := p.EnPassant; ep != NoSquare {
		// The pawn that just made the double push stands behind the target.
		them := p.SideToMove.Other()
		pushed := ep + 8
		if them == Black {
			pushed = ep - 8
		}
		if !p.Pieces[them][Pawn].IsSet(pushed) {
			return fmt.Errorf("%w: no pawn in front of en passant square %s", ErrInvalidPosition, ep)
		}
		if p.AllOccupied.IsSet(ep) {
			return fmt.Errorf("%w: en passant square %s is occupied", ErrInvalidPosition, ep)
		}
	}
	return nil
}

// ToFEN returns the FEN string of the position.
func (p *Position) ToFEN() string {
	ep := "-"
	if p.EnPassant != NoSquare {
		ep = p.EnPassant.String()
	}
	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s %s %s %d %d",
		p.Placement(), side, p.CastlingRights, ep, p.HalfMoveClock, p.FullMoveNumber)
}

// Placement returns the piece-placement field of the FEN.
func (p *Position) Placement() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
