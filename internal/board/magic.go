package board

import "math/bits"

// Sliding-piece attacks via fancy magic bitboards. The magic multipliers are
// searched for at init from a fixed seed, so the tables are identical on
// every run.

type magic struct {
	mask   Bitboard // relevant occupancy, board edges excluded
	magic  uint64
	shift  uint8
	offset uint32 // start of this square's slice of the shared table
}

const magicSeed = 0x6A09E667F3BCC909

var (
	bishopMagics [64]magic
	rookMagics   [64]magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

func initMagics() {
	rng := newPRNG(magicSeed)

	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		offset = findMagic(sq, bishopMask(sq), bishopAttacksSlow, &bishopMagics[sq], bishopTable[:], offset, rng)
	}
	offset = 0
	for sq := A1; sq <= H8; sq++ {
		offset = findMagic(sq, rookMask(sq), rookAttacksSlow, &rookMagics[sq], rookTable[:], offset, rng)
	}
}

// findMagic samples sparse candidates until one maps every occupancy subset
// of mask either to a fresh slot or to a slot already holding the same
// attack set. It fills the square's slice of table and returns the offset
// just past it.
func findMagic(sq Square, mask Bitboard, slow func(Square, Bitboard) Bitboard, m *magic, table []Bitboard, offset uint32, rng *prng) uint32 {
	n := mask.PopCount()
	size := 1 << n

	occupancies := make([]Bitboard, size)
	reference := make([]Bitboard, size)
	for i := 0; i < size; i++ {
		occupancies[i] = indexToOccupancy(i, n, mask)
		reference[i] = slow(sq, occupancies[i])
	}

	slots := table[offset : offset+uint32(size)]
	epoch := make([]int, size)
	shift := uint(64 - n)

	for attempt := 1; ; attempt++ {
		candidate := rng.sparse()
		if bits.OnesCount64((uint64(mask)*candidate)&0xFF00000000000000) < 6 {
			continue
		}

		ok := true
		for i := 0; i < size; i++ {
			idx := (uint64(occupancies[i]) * candidate) >> shift
			if epoch[idx] != attempt {
				epoch[idx] = attempt
				slots[idx] = reference[i]
			} else if slots[idx] != reference[i] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		*m = magic{mask: mask, magic: candidate, shift: uint8(shift), offset: offset}
		return offset + uint32(size)
	}
}

func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, 0) &^ edges
}

func rookMask(sq Square) Bitboard {
	file, rank := sq.File(), sq.Rank()
	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != file {
			mask |= SquareBB(NewSquare(f, rank))
		}
	}
	for r := 1; r < 7; r++ {
		if r != rank {
			mask |= SquareBB(NewSquare(file, r))
		}
	}
	return mask
}

// indexToOccupancy maps the bits of index onto the squares of mask.
func indexToOccupancy(index, n int, mask Bitboard) Bitboard {
	var occ Bitboard
	for i := 0; i < n; i++ {
		sq := mask.PopLSB()
		if index&(1<<i) != 0 {
			occ |= SquareBB(sq)
		}
	}
	return occ
}

var (
	bishopDirs = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	rookDirs   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// rayAttacks walks each direction until the edge or the first blocker.
func rayAttacks(sq Square, occupied Bitboard, dirs [4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			bb := SquareBB(NewSquare(f, r))
			attacks |= bb
			if occupied&bb != 0 {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return attacks
}

func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, bishopDirs)
}

func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, rookDirs)
}

// BishopAttacks returns the squares a bishop on sq attacks.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &bishopMagics[sq]
	idx := (uint64(occupied&m.mask) * m.magic) >> m.shift
	return bishopTable[m.offset+uint32(idx)]
}

// RookAttacks returns the squares a rook on sq attacks.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &rookMagics[sq]
	idx := (uint64(occupied&m.mask) * m.magic) >> m.shift
	return rookTable[m.offset+uint32(idx)]
}

// QueenAttacks is the union of bishop and rook attacks.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}
