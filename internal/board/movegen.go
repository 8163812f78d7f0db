package board

import (
	"fmt"
	"strings"
)

// GenerateLegalMoves fills ml with every legal move of the position.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	var pseudo MoveList
	p.generatePseudoLegal(&pseudo, false)
	p.filterLegal(&pseudo, ml)
}

// GenerateCaptures fills ml with legal captures, capture-promotions, en
// passant captures and quiet queen promotions.
func (p *Position) GenerateCaptures(ml *MoveList) {
	var pseudo MoveList
	p.generatePseudoLegal(&pseudo, true)
	p.filterLegal(&pseudo, ml)
}

// HasLegalMove reports whether the side to move has at least one legal move.
func (p *Position) HasLegalMove() bool {
	var pseudo MoveList
	p.generatePseudoLegal(&pseudo, false)
	us := p.SideToMove
	for i := 0; i < pseudo.Len(); i++ {
		child := *p
		child.MakeMove(pseudo.Get(i))
		if !child.IsKingAttacked(us) {
			return true
		}
	}
	return false
}

// filterLegal keeps the moves that do not leave the mover's king attacked.
func (p *Position) filterLegal(pseudo, ml *MoveList) {
	ml.Clear()
	us := p.SideToMove
	for i := 0; i < pseudo.Len(); i++ {
		m := pseudo.Get(i)
		child := *p
		child.MakeMove(m)
		if !child.IsKingAttacked(us) {
			ml.Add(m)
		}
	}
}

func (p *Position) generatePseudoLegal(ml *MoveList, capturesOnly bool) {
	us := p.SideToMove
	targets := ^p.Occupied[us]
	if capturesOnly {
		targets = p.Occupied[us.Other()]
	}

	p.generatePawnMoves(ml, capturesOnly)

	for pt := Knight; pt <= King; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := pieceAttacks(pt, from, p.AllOccupied) & targets
			for attacks != 0 {
				p.addMove(ml, from, attacks.PopLSB(), pt)
			}
		}
	}

	if !capturesOnly {
		p.generateCastles(ml)
	}
}

func pieceAttacks(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// addMove adds a quiet move or a capture depending on the target square.
func (p *Position) addMove(ml *MoveList, from, to Square, pt PieceType) {
	us := p.SideToMove
	if captured := p.pieceTypeAt(us.Other(), to); captured != NoPieceType {
		ml.Add(NewMove(from, to, FlagCapture, us, pt, captured))
		return
	}
	ml.Add(NewMove(from, to, FlagQuiet, us, pt, NoPieceType))
}

func (p *Position) generatePawnMoves(ml *MoveList, capturesOnly bool) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[them]

	var up Square = 8
	var single, double, capWest, capEast, promoRank Bitboard
	if us == White {
		single = pawns.north() & empty
		double = (single & Rank3).north() & empty
		capWest = pawns.northWest() & enemies
		capEast = pawns.northEast() & enemies
		promoRank = Rank8
	} else {
		single = pawns.south() & empty
		double = (single & Rank6).south() & empty
		capWest = pawns.southWest() & enemies
		capEast = pawns.southEast() & enemies
		promoRank = Rank1
	}
	// from returns the origin of a pawn move given its target and the
	// file step it made.
	from := func(to Square, fileStep int) Square {
		if us == White {
			return Square(int(to) - int(up) - fileStep)
		}
		return Square(int(to) + int(up) - fileStep)
	}

	if !capturesOnly {
		for b := single &^ promoRank; b != 0; {
			to := b.PopLSB()
			ml.Add(NewMove(from(to, 0), to, FlagQuiet, us, Pawn, NoPieceType))
		}
		for b := double; b != 0; {
			to := b.PopLSB()
			orig := from(to, 0)
			orig = from(orig, 0)
			ml.Add(NewMove(orig, to, FlagDoublePush, us, Pawn, NoPieceType))
		}
	}

	for b := single & promoRank; b != 0; {
		to := b.PopLSB()
		if capturesOnly {
			ml.Add(NewMove(from(to, 0), to, FlagPromoQueen, us, Pawn, NoPieceType))
			continue
		}
		addPromotions(ml, from(to, 0), to, us, NoPieceType)
	}

	for _, c := range [2]struct {
		targets Bitboard
		step    int
	}{{capWest, -1}, {capEast, 1}} {
		for b := c.targets; b != 0; {
			to := b.PopLSB()
			orig := from(to, c.step)
			captured := p.pieceTypeAt(them, to)
			if promoRank.IsSet(to) {
				addPromotions(ml, orig, to, us, captured)
				continue
			}
			ml.Add(NewMove(orig, to, FlagCapture, us, Pawn, captured))
		}
	}

	if p.EnPassant != NoSquare {
		for b := pawnAttacks[them][p.EnPassant] & pawns; b != 0; {
			ml.Add(NewMove(b.PopLSB(), p.EnPassant, FlagEnPassant, us, Pawn, Pawn))
		}
	}
}

// addPromotions adds the four promotions, queen first.
func addPromotions(ml *MoveList, from, to Square, c Color, captured PieceType) {
	base := FlagPromoKnight
	if captured != NoPieceType {
		base = FlagPromoCaptureKnight
	}
	for i := MoveFlag(3); ; i-- {
		ml.Add(NewMove(from, to, base+i, c, Pawn, captured))
		if i == 0 {
			return
		}
	}
}

func (p *Position) generateCastles(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	king, kingSide, queenSide := E1, WhiteKingSide, WhiteQueenSide
	if us == Black {
		king, kingSide, queenSide = E8, BlackKingSide, BlackQueenSide
	}
	if p.CastlingRights&(kingSide|queenSide) == 0 || p.IsSquareAttacked(king, them) {
		return
	}
	if p.CastlingRights&kingSide != 0 &&
		p.AllOccupied&Between(king, king+3) == 0 &&
		!p.IsSquareAttacked(king+1, them) && !p.IsSquareAttacked(king+2, them) {
		ml.Add(NewMove(king, king+2, FlagKingCastle, us, King, NoPieceType))
	}
	if p.CastlingRights&queenSide != 0 &&
		p.AllOccupied&Between(king, king-4) == 0 &&
		!p.IsSquareAttacked(king-1, them) && !p.IsSquareAttacked(king-2, them) {
		ml.Add(NewMove(king, king-2, FlagQueenCastle, us, King, NoPieceType))
	}
}

// ParseMove resolves a coordinate-notation move such as "e2e4" or "e7e8q"
// against the legal moves of the position.
func (p *Position) ParseMove(s string) (Move, error) {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	s = strings.ToLower(s)
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, p.ToFEN())
}
