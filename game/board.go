package game

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrGameOver = errors.New("game is over")

// Board is a bitboard position. It is a plain value: Clone copies it and
// branches of a search never share one.
type Board struct {
	bitboards   [2][7]Bitboard
	fingerprint uint64
	turnStart   uint64
	steps       int
	turn        int
	toMove      Color
	winner      Color
	lastStep    Step
}

type kill struct {
	piece  Piece
	square Square
}

func NewBoard() *Board {
	return &Board{turn: 1, toMove: Gold, winner: NoColor, lastStep: NewNoStep(Gold)}
}

func (b *Board) Clone() *Board {
	c := *b
	return &c
}

func (b *Board) Fingerprint() uint64          { return b.fingerprint }
func (b *Board) TurnStartFingerprint() uint64 { return b.turnStart }
func (b *Board) StepsTaken() int              { return b.steps }
func (b *Board) TurnNumber() int              { return b.turn }
func (b *Board) ToMove() Color                { return b.toMove }
func (b *Board) Winner() Color                { return b.winner }
func (b *Board) LastStep() Step               { return b.lastStep }

func (b *Board) Key() PositionKey {
	return PositionKey{Fingerprint: b.fingerprint, ToMove: b.toMove, Steps: b.steps}
}

func (b *Board) Pieces(c Color, p Piece) Bitboard {
	return b.bitboards[c][p]
}

func (b *Board) Count(c Color, p Piece) int {
	return b.bitboards[c][p].Count()
}

func (b *Board) Occupied() Bitboard {
	return b.bitboards[Gold][AnyPiece] | b.bitboards[Silver][AnyPiece]
}

// PieceAt returns NoColor for an empty square.
func (b *Board) PieceAt(s Square) (Color, Piece) {
	for c := Gold; c <= Silver; c++ {
		if !b.bitboards[c][AnyPiece].Has(s) {
			continue
		}
		return c, b.pieceOf(c, s)
	}
	return NoColor, AnyPiece
}

func (b *Board) pieceOf(c Color, s Square) Piece {
	for p := Rabbit; p <= Elephant; p++ {
		if b.bitboards[c][p].Has(s) {
			return p
		}
	}
	panic(fmt.Sprintf("no %s piece on %s", c, s))
}

func (b *Board) place(c Color, p Piece, s Square) {
	if b.Occupied().Has(s) {
		panic(fmt.Sprintf("square %s is occupied", s))
	}
	b.bitboards[c][AnyPiece] |= s.Bit()
	b.bitboards[c][p] |= s.Bit()
	b.fingerprint ^= zobrist[c][p][s]
}

func (b *Board) remove(c Color, p Piece, s Square) {
	if !b.bitboards[c][p].Has(s) {
		panic(fmt.Sprintf("no %s %c on %s", c, p.Letter(c), s))
	}
	b.bitboards[c][AnyPiece] &^= s.Bit()
	b.bitboards[c][p] &^= s.Bit()
	b.fingerprint ^= zobrist[c][p][s]
}

func (b *Board) move(c Color, p Piece, from, to Square) {
	b.remove(c, p, from)
	b.place(c, p, to)
}

func (b *Board) stronger(c Color, than Piece) Bitboard {
	var bb Bitboard
	for p := than + 1; p <= Elephant; p++ {
		bb |= b.bitboards[c][p]
	}
	return bb
}

func (b *Board) IsFrozen(s Square) bool {
	c, p := b.PieceAt(s)
	if c == NoColor {
		panic(fmt.Sprintf("no piece on %s", s))
	}
	return b.isFrozen(c, p, s)
}

func (b *Board) isFrozen(c Color, p Piece, s Square) bool {
	if neighbours[s]&b.bitboards[c][AnyPiece] != 0 {
		return false
	}
	return neighbours[s]&b.stronger(c.Opponent(), p) != 0
}

func (b *Board) CanPass() bool {
	return b.steps > 0
}

// EndsTurn reports whether playing s would complete the current turn.
func (b *Board) EndsTurn(s Step) bool {
	return !s.MovesPiece() || b.steps+s.Count() >= 4
}

// GenerateSteps lists the steps of side. Pieces are scanned from rabbit to
// elephant and from a1 to h8; pulls and pushes of a piece come before its
// single steps. A pass is appended when side is to move and may pass.
func (b *Board) GenerateSteps(side Color) []Step {
	steps := make([]Step, 0, 64)
	opp := side.Opponent()
	empty := ^b.Occupied()
	for p := Rabbit; p <= Elephant; p++ {
		pieces := b.bitboards[side][p]
		for pieces != 0 {
			from := pieces.Pop()
			if b.isFrozen(side, p, from) {
				continue
			}
			if b.steps < 3 {
				for v := Rabbit; v < p; v++ {
					victims := neighbours[from] & b.bitboards[opp][v]
					for victims != 0 {
						vs := victims.Pop()
						dests := neighbours[from] & empty
						for dests != 0 {
							steps = append(steps, NewPull(side, p, from, dests.Pop(), v, vs))
						}
						dests = neighbours[vs] & empty
						for dests != 0 {
							steps = append(steps, NewPush(side, p, from, v, vs, dests.Pop()))
						}
					}
				}
			}
			dests := neighbours[from] & empty
			if p == Rabbit {
				dests &^= backward(side, from)
			}
			for dests != 0 {
				steps = append(steps, NewSingle(side, p, from, dests.Pop()))
			}
		}
	}
	if side == b.toMove && b.CanPass() {
		steps = append(steps, NewPass(side))
	}
	return steps
}

// MakeStep applies s and removes unprotected pieces from the traps. The turn
// is not committed.
func (b *Board) MakeStep(s Step) {
	b.applyStep(s)
}

// MakeStepTryCommit applies s and commits the turn once four steps were taken
// or s moves no piece. A no-step at the start of a turn loses the game.
func (b *Board) MakeStepTryCommit(s Step) bool {
	before := b.steps
	b.applyStep(s)
	if b.steps < 4 && s.MovesPiece() {
		return false
	}
	if s.Kind == NoStep && before == 0 && b.winner == NoColor {
		b.winner = b.toMove.Opponent()
	}
	b.commit()
	return true
}

func (b *Board) applyStep(s Step) [2]kill {
	if s.Color != b.toMove {
		panic(fmt.Sprintf("%s step %s while %s is to move", s.Color, s, b.toMove))
	}
	switch s.Kind {
	case Single:
		b.move(s.Color, s.Piece, s.From, s.To)
	case Push:
		b.move(s.Color.Opponent(), s.Victim, s.VictimFrom, s.VictimTo)
		b.move(s.Color, s.Piece, s.From, s.To)
	case Pull:
		b.move(s.Color, s.Piece, s.From, s.To)
		b.move(s.Color.Opponent(), s.Victim, s.VictimFrom, s.VictimTo)
	}
	var kills [2]kill
	if s.MovesPiece() {
		kills = b.resolveTraps()
	}
	b.steps += s.Count()
	if b.steps > 4 {
		panic(fmt.Sprintf("step %s exceeds the turn with %d steps", s, b.steps))
	}
	b.lastStep = s
	return kills
}

// resolveTraps removes every piece standing on a trap without a friendly
// neighbour. Trap neighbourhoods are disjoint, so at most one piece per side dies.
func (b *Board) resolveTraps() [2]kill {
	var kills [2]kill
	for _, t := range Traps {
		for c := Gold; c <= Silver; c++ {
			if !b.bitboards[c][AnyPiece].Has(t) || neighbours[t]&b.bitboards[c][AnyPiece] != 0 {
				continue
			}
			p := b.pieceOf(c, t)
			b.remove(c, p, t)
			kills[c] = kill{piece: p, square: t}
		}
	}
	return kills
}

func (b *Board) commit() {
	b.updateWinner()
	if b.toMove == Silver {
		b.turn++
	}
	b.toMove = b.toMove.Opponent()
	b.steps = 0
	b.turnStart = b.fingerprint
	b.lastStep = NewNoStep(b.toMove)
}

func (b *Board) updateWinner() {
	if b.winner != NoColor {
		return
	}
	mover, opp := b.toMove, b.toMove.Opponent()
	switch {
	case b.bitboards[mover][Rabbit]&goalRank(mover) != 0:
		b.winner = mover
	case b.bitboards[opp][Rabbit]&goalRank(opp) != 0:
		b.winner = opp
	case b.bitboards[opp][Rabbit] == 0:
		b.winner = mover
	case b.bitboards[mover][Rabbit] == 0:
		b.winner = opp
	}
}

// decidedWinner judges a position that was loaded rather than played into, so
// no side gets the priority of the mover: a side wins with a rabbit on its goal
// rank or when the opponent has no rabbits left.
func (b *Board) decidedWinner() (Color, error) {
	winner := NoColor
	for c := Gold; c <= Silver; c++ {
		if b.bitboards[c][Rabbit]&goalRank(c) == 0 && b.bitboards[c.Opponent()][Rabbit] != 0 {
			continue
		}
		if winner != NoColor {
			return NoColor, errors.New("both sides have already won")
		}
		winner = c
	}
	return winner, nil
}

// AfterStepFingerprint computes the fingerprint s would produce, including
// trap captures, without touching the board.
func (b *Board) AfterStepFingerprint(s Step) uint64 {
	if !s.MovesPiece() {
		return b.fingerprint
	}
	fp := b.fingerprint
	all := [2]Bitboard{b.bitboards[Gold][AnyPiece], b.bitboards[Silver][AnyPiece]}
	shift := func(c Color, p Piece, from, to Square) {
		fp ^= zobrist[c][p][from] ^ zobrist[c][p][to]
		all[c] ^= from.Bit() | to.Bit()
	}
	opp := s.Color.Opponent()
	switch s.Kind {
	case Push:
		shift(opp, s.Victim, s.VictimFrom, s.VictimTo)
		shift(s.Color, s.Piece, s.From, s.To)
	case Pull:
		shift(s.Color, s.Piece, s.From, s.To)
		shift(opp, s.Victim, s.VictimFrom, s.VictimTo)
	default:
		shift(s.Color, s.Piece, s.From, s.To)
	}
	for _, t := range Traps {
		for c := Gold; c <= Silver; c++ {
			if !all[c].Has(t) || neighbours[t]&all[c] != 0 {
				continue
			}
			fp ^= zobrist[c][b.pieceAfter(s, c, t)][t]
		}
	}
	return fp
}

// pieceAfter is the piece of c standing on sq once s was played.
func (b *Board) pieceAfter(s Step, c Color, sq Square) Piece {
	switch {
	case c == s.Color && s.To == sq:
		return s.Piece
	case c != s.Color && s.Kind != Single && s.VictimTo == sq:
		return s.Victim
	}
	return b.pieceOf(c, sq)
}

// KeyAfter is the position key reached by playing s.
func (b *Board) KeyAfter(s Step) PositionKey {
	fp := b.AfterStepFingerprint(s)
	if b.EndsTurn(s) {
		return PositionKey{Fingerprint: fp, ToMove: b.toMove.Opponent()}
	}
	return PositionKey{Fingerprint: fp, ToMove: b.toMove, Steps: b.steps + s.Count()}
}

// RecomputeFingerprint hashes the occupancy from scratch.
func (b *Board) RecomputeFingerprint() uint64 {
	var fp uint64
	for c := Gold; c <= Silver; c++ {
		for p := Rabbit; p <= Elephant; p++ {
			pieces := b.bitboards[c][p]
			for pieces != 0 {
				fp ^= zobrist[c][p][pieces.Pop()]
			}
		}
	}
	return fp
}

// Play applies a whole move and commits it. Moves that leave the turn open are
// closed with a pass.
func (b *Board) Play(m Move) {
	for _, s := range m {
		if b.MakeStepTryCommit(s) {
			return
		}
	}
	b.MakeStepTryCommit(NewPass(b.toMove))
}
