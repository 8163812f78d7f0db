package board

// Precomputed attack tables for the non-sliding pieces.
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]

	betweenBB [64][64]Bitboard // squares strictly between two aligned squares
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&notFileA | (bb<<15)&notFileH |
			(bb>>17)&notFileH | (bb>>15)&notFileA |
			(bb<<10)&notFileAB | (bb<<6)&notFileGH |
			(bb>>10)&notFileGH | (bb>>6)&notFileAB

		kingAttacks[sq] = bb.north() | bb.south() | bb.east() | bb.west() |
			bb.northEast() | bb.northWest() | bb.southEast() | bb.southWest()

		pawnAttacks[White][sq] = bb.northEast() | bb.northWest()
		pawnAttacks[Black][sq] = bb.southEast() | bb.southWest()
	}

	initMagics()

	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			bbA, bbB := SquareBB(a), SquareBB(b)
			if RookAttacks(a, 0)&bbB != 0 {
				betweenBB[a][b] = RookAttacks(a, bbB) & RookAttacks(b, bbA)
			} else if BishopAttacks(a, 0)&bbB != 0 {
				betweenBB[a][b] = BishopAttacks(a, bbB) & BishopAttacks(b, bbA)
			}
		}
	}
}

// KnightAttacks returns the knight attack set from sq.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack set from sq.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// Between returns the squares strictly between two squares on a common
// rank, file or diagonal, and the empty set otherwise.
func Between(a, b Square) Bitboard {
	return betweenBB[a][b]
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
// Each piece type is tested in reverse: the attack set of that type from sq
// is intersected with the attacker's pieces of that type.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	if pawnAttacks[by.Other()][sq]&p.Pieces[by][Pawn] != 0 {
		return true
	}
	if knightAttacks[sq]&p.Pieces[by][Knight] != 0 {
		return true
	}
	if kingAttacks[sq]&p.Pieces[by][King] != 0 {
		return true
	}
	queens := p.Pieces[by][Queen]
	if BishopAttacks(sq, p.AllOccupied)&(p.Pieces[by][Bishop]|queens) != 0 {
		return true
	}
	return RookAttacks(sq, p.AllOccupied)&(p.Pieces[by][Rook]|queens) != 0
}

// IsKingAttacked reports whether the king of color c is attacked.
// A position without that king is a programming error.
func (p *Position) IsKingAttacked(c Color) bool {
	if p.Pieces[c][King] == 0 {
		panic("board: no " + c.String() + " king on the board")
	}
	return p.IsSquareAttacked(p.KingSquare(c), c.Other())
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.IsKingAttacked(p.SideToMove)
}
