package board

// Move packs a move into 32 bits:
//
//	bits  0-5:  from square
//	bits  6-11: to square
//	bits 12-15: flag
//	bit  16:    color of the mover
//	bits 17-19: moving piece type
//	bits 20-22: captured piece type (NoPieceType when none)
type Move uint32

// MoveFlag classifies a move. Bit 2 marks captures and bit 3 promotions.
type MoveFlag uint8

const (
	FlagQuiet       MoveFlag = 0
	FlagDoublePush  MoveFlag = 1
	FlagKingCastle  MoveFlag = 2
	FlagQueenCastle MoveFlag = 3
	FlagCapture     MoveFlag = 4
	FlagEnPassant   MoveFlag = 5

	FlagPromoKnight MoveFlag = 8
	FlagPromoBishop MoveFlag = 9
	FlagPromoRook   MoveFlag = 10
	FlagPromoQueen  MoveFlag = 11

	FlagPromoCaptureKnight MoveFlag = 12
	FlagPromoCaptureBishop MoveFlag = 13
	FlagPromoCaptureRook   MoveFlag = 14
	FlagPromoCaptureQueen  MoveFlag = 15
)

const (
	moveSquareMask = 0x3F
	moveFlagShift  = 12
	moveColorShift = 16
	movePieceShift = 17
	moveCaptShift  = 20

	// identityMask covers from, to, flag and color.
	identityMask = 0x1FFFF
)

// NoMove is the zero move. It never matches a legal move since from == to.
const NoMove Move = 0

// NewMove packs a move record.
func NewMove(from, to Square, flag MoveFlag, c Color, piece, captured PieceType) Move {
	return Move(from) |
		Move(to)<<6 |
		Move(flag)<<moveFlagShift |
		Move(c)<<moveColorShift |
		Move(piece)<<movePieceShift |
		Move(captured)<<moveCaptShift
}

func (m Move) From() Square { return Square(m & moveSquareMask) }
func (m Move) To() Square { return Square((m >> 6) & moveSquareMask) }
func (m Move) Flag() MoveFlag { return MoveFlag((m >> moveFlagShift) & 0xF) }
func (m Move) Color() Color { return Color((m >> moveColorShift) & 1) }
func (m Move) Piece() PieceType { return PieceType((m >> movePieceShift) & 7) }
func (m Move) Captured() PieceType { return PieceType((m >> moveCaptShift) & 7) }

// Equal compares from, to, flag and color. The piece and captured-piece
// bits do not take part, so a move read back from the hash table matches
// the freshly generated one.
func (m Move) Equal(o Move) bool {
	return m&identityMask == o&identityMask
}

// IsCapture reports captures, capture-promotions and en passant.
func (m Move) IsCapture() bool {
	return m.Flag()&FlagCapture != 0
}

// IsPromotion reports quiet and capturing promotions.
func (m Move) IsPromotion() bool {
	return m.Flag()&8 != 0
}

// Promotion returns the promoted-to piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType(m.Flag()&3)
}

func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }

func (m Move) IsCastle() bool {
	f := m.Flag()
	return f == FlagKingCastle || f == FlagQueenCastle
}

// IsQuiet reports moves that neither capture nor promote.
func (m Move) IsQuiet() bool {
	return m.Flag()&(FlagCapture|8) == 0
}

// String returns coordinate notation, e.g. "e2e4" or "a7a8q".
func (m Move) String() string {
	if m.Equal(NoMove) {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// MoveList is a fixed-capacity move buffer. It is meant to live on the stack
// of the caller and be reused.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int { return ml.count }
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }
func (ml *MoveList) Swap(i, j int) { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear() { ml.count = 0 }
func (ml *MoveList) Slice() []Move { return ml.moves[:ml.count] }

// Contains reports whether an equal move is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i].Equal(m) {
			return true
		}
	}
	return false
}
