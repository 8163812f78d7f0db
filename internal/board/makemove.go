package board

// MakeMove applies a legal move in place, updating the hash and score
// incrementally. To keep the parent, copy the position first.
func (p *Position) MakeMove(m Move) {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pt := m.Piece()
	flag := m.Flag()

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.Hash ^= zobristCastling[p.CastlingRights]

	p.HalfMoveClock++
	if pt == Pawn {
		p.HalfMoveClock = 0
	}

	switch {
	case flag == FlagEnPassant:
		capSq := to - 8
		if us == Black {
			capSq = to + 8
		}
		p.removePiece(them, Pawn, capSq)
		p.HalfMoveClock = 0
	case m.IsCapture():
		p.removePiece(them, p.pieceTypeAt(them, to), to)
		p.HalfMoveClock = 0
	}

	p.removePiece(us, pt, from)
	if m.IsPromotion() {
		p.putPiece(us, m.Promotion(), to)
	} else {
		p.putPiece(us, pt, to)
	}

	switch flag {
	case FlagDoublePush:
		p.EnPassant = (from + to) / 2
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	case FlagKingCastle:
		p.removePiece(us, Rook, from+3)
		p.putPiece(us, Rook, from+1)
	case FlagQueenCastle:
		p.removePiece(us, Rook, from-4)
		p.putPiece(us, Rook, from-1)
	}

	p.CastlingRights &= castlingMask[from] & castlingMask[to]
	p.Hash ^= zobristCastling[p.CastlingRights]

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = them
	p.Hash ^= zobristSideToMove
}

// MakeNullMove passes the turn, clearing any en passant target.
func (p *Position) MakeNullMove() {
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.HalfMoveClock++
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
}
