package game

import "golang.org/x/exp/rand"

const zobristSeed = 0x9e3779b97f4a7c15

// zobrist holds one key per (side, piece, square). Index AnyPiece stays zero.
var zobrist [2][7][64]uint64

func init() {
	r := rand.New(rand.NewSource(zobristSeed))
	for c := Gold; c <= Silver; c++ {
		for p := Rabbit; p <= Elephant; p++ {
			for s := 0; s < 64; s++ {
				zobrist[c][p][s] = r.Uint64()
			}
		}
	}
}

// PositionKey identifies a position together with the side to move and the
// number of steps already taken in the current turn.
type PositionKey struct {
	Fingerprint uint64
	ToMove      Color
	Steps       int
}
