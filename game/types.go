package game

import (
	"math/bits"
	"strings"
)

type Color int8

const (
	NoColor Color = -1
	Gold    Color = 0
	Silver  Color = 1
)

func (c Color) Opponent() Color {
	return 1 - c
}

func (c Color) String() string {
	switch c {
	case Gold:
		return "gold"
	case Silver:
		return "silver"
	default:
		return "none"
	}
}

// Letter returns the side letter used in game records.
func (c Color) Letter() string {
	if c == Silver {
		return "s"
	}
	return "g"
}

type Piece int8

// AnyPiece indexes the aggregate occupancy mask of a side.
const (
	AnyPiece Piece = iota
	Rabbit
	Cat
	Dog
	Horse
	Camel
	Elephant
)

const pieceLetters = "RCDHME"

func (p Piece) Letter(c Color) byte {
	if p < Rabbit || p > Elephant {
		panic("no letter for piece")
	}
	l := pieceLetters[p-Rabbit]
	if c == Silver {
		l += 'a' - 'A'
	}
	return l
}

// parsePiece maps a record letter to its color and piece.
func parsePiece(l byte) (Color, Piece, bool) {
	if i := strings.IndexByte(pieceLetters, l); i >= 0 {
		return Gold, Piece(i) + Rabbit, true
	}
	if i := strings.IndexByte(strings.ToLower(pieceLetters), l); i >= 0 {
		return Silver, Piece(i) + Rabbit, true
	}
	return NoColor, AnyPiece, false
}

// Square indexes the board from a1 = 0 to h8 = 63.
type Square int8

const NoSquare Square = -1

const (
	North Square = 8
	South Square = -8
	East  Square = 1
	West  Square = -1
)

const (
	C3 Square = 2*8 + 2
	F3 Square = 2*8 + 5
	C6 Square = 5*8 + 2
	F6 Square = 5*8 + 5
)

var Traps = [4]Square{C3, F3, C6, F6}

func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) Bit() Bitboard {
	return Bitboard(1) << uint(s)
}

func (s Square) String() string {
	if s < 0 || s > 63 {
		return "--"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

func parseSquare(str string) (Square, bool) {
	if len(str) != 2 || str[0] < 'a' || str[0] > 'h' || str[1] < '1' || str[1] > '8' {
		return NoSquare, false
	}
	return NewSquare(int(str[0]-'a'), int(str[1]-'1')), true
}

func IsTrap(s Square) bool {
	return s == C3 || s == F3 || s == C6 || s == F6
}

func directionLetter(from, to Square) byte {
	switch to - from {
	case North:
		return 'n'
	case South:
		return 's'
	case East:
		return 'e'
	case West:
		return 'w'
	}
	panic("squares are not adjacent")
}

func parseDirection(from Square, l byte) (Square, bool) {
	var to Square
	switch l {
	case 'n':
		to = from + North
	case 's':
		to = from + South
	case 'e':
		if from.File() == 7 {
			return NoSquare, false
		}
		to = from + East
	case 'w':
		if from.File() == 0 {
			return NoSquare, false
		}
		to = from + West
	default:
		return NoSquare, false
	}
	if to < 0 || to > 63 {
		return NoSquare, false
	}
	return to, true
}

type Bitboard uint64

const (
	notFileA Bitboard = 0xfefefefefefefefe
	notFileH Bitboard = 0x7f7f7f7f7f7f7f7f
	rank1    Bitboard = 0x00000000000000ff
	rank8    Bitboard = 0xff00000000000000
)

// Neighbours returns the squares orthogonally adjacent to any square of b.
func (b Bitboard) Neighbours() Bitboard {
	return b<<8 | b>>8 | (b&notFileH)<<1 | (b&notFileA)>>1
}

func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

func (b Bitboard) Has(s Square) bool {
	return b&s.Bit() != 0
}

// Pop removes and returns the lowest square of b.
func (b *Bitboard) Pop() Square {
	s := Square(bits.TrailingZeros64(uint64(*b)))
	*b &= *b - 1
	return s
}

var neighbours [64]Bitboard

func init() {
	for s := Square(0); s < 64; s++ {
		neighbours[s] = s.Bit().Neighbours()
	}
}

// goalRank is the back rank a rabbit of c has to reach.
func goalRank(c Color) Bitboard {
	if c == Gold {
		return rank8
	}
	return rank1
}

// backward is the square a rabbit of c on s may not step to.
func backward(c Color, s Square) Bitboard {
	if c == Gold {
		return s.Bit() >> 8
	}
	return s.Bit() << 8
}

// forwardRanks returns how many ranks a rabbit of c on s still has to cover.
func forwardRanks(c Color, s Square) int {
	if c == Gold {
		return 7 - s.Rank()
	}
	return s.Rank()
}
