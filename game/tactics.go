package game

import (
	"github.com/samber/lo"
)

// asSideToMove returns the board itself when side is to move, otherwise a
// clone where side starts a fresh turn. The latter is used to look for threats.
func (b *Board) asSideToMove(side Color) *Board {
	if side == b.toMove {
		return b
	}
	c := b.Clone()
	c.toMove = side
	c.steps = 0
	c.turnStart = c.fingerprint
	c.lastStep = NewNoStep(side)
	return c
}

func (b *Board) remainingSteps(budget int) int {
	return min(budget, 4-b.steps)
}

// completeMove closes a winning line with a pass when it leaves steps unused.
func completeMove(b *Board, line Move) Move {
	if b.steps+line.Count() < 4 {
		return append(line, NewPass(b.toMove))
	}
	return line
}

// extend appends s to line without sharing the backing array.
func extend(line Move, s Step) Move {
	return append(line[:len(line):len(line)], s)
}

// GoalCheck looks for a rabbit of side that reaches its goal rank within
// budget steps of the current turn. Only rabbit steps are tried. The returned
// move is complete and wins once played.
func (b *Board) GoalCheck(side Color, budget int) (Move, bool) {
	start := b.asSideToMove(side)
	line, ok := start.goalSearch(side, start.remainingSteps(budget), nil)
	if !ok {
		return nil, false
	}
	return completeMove(start, line), true
}

func (b *Board) goalSearch(side Color, budget int, line Move) (Move, bool) {
	if budget <= 0 {
		return nil, false
	}
	empty := ^b.Occupied()
	rabbits := b.bitboards[side][Rabbit]
	for rabbits != 0 {
		from := rabbits.Pop()
		if forwardRanks(side, from) > budget || b.isFrozen(side, Rabbit, from) {
			continue
		}
		dests := neighbours[from] & empty &^ backward(side, from)
		for dests != 0 {
			s := NewSingle(side, Rabbit, from, dests.Pop())
			next := b.Clone()
			next.applyStep(s)
			if next.bitboards[side][Rabbit]&goalRank(side) != 0 {
				return extend(line, s), true
			}
			if found, ok := next.goalSearch(side, budget-1, extend(line, s)); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// trapArea is a trap with every square at distance at most two.
func trapArea(trap Square) Bitboard {
	near := trap.Bit() | neighbours[trap]
	return near | near.Neighbours()
}

func touches(s Step, area Bitboard) bool {
	if area.Has(s.From) || area.Has(s.To) {
		return true
	}
	return s.Kind != Single && (area.Has(s.VictimFrom) || area.Has(s.VictimTo))
}

// TrapKillSearch enumerates moves of side, within budget steps, that capture an
// opposing piece on trap. Only steps around the trap are considered. Every
// returned move is complete.
func (b *Board) TrapKillSearch(side Color, trap Square, budget int) []Move {
	if !IsTrap(trap) {
		panic("trap kill search on a non trap square")
	}
	start := b.asSideToMove(side)
	var found []Move
	start.trapSearch(side, trap, trapArea(trap), start.remainingSteps(budget), nil, &found)
	found = lo.UniqBy(found, func(m Move) string { return m.String() })
	return lo.Map(found, func(m Move, _ int) Move { return completeMove(start, m) })
}

func (b *Board) trapSearch(side Color, trap Square, area Bitboard, budget int, line Move, found *[]Move) {
	if budget <= 0 {
		return
	}
	for _, s := range b.GenerateSteps(side) {
		if !s.MovesPiece() || s.Count() > budget || !touches(s, area) {
			continue
		}
		next := b.Clone()
		kills := next.applyStep(s)
		if k := kills[side.Opponent()]; k.piece != AnyPiece && k.square == trap {
			*found = append(*found, extend(line, s))
			continue
		}
		next.trapSearch(side, trap, area, budget-s.Count(), extend(line, s), found)
	}
}

// TrapCheck runs TrapKillSearch on every trap.
func (b *Board) TrapCheck(side Color, budget int) []Move {
	return lo.FlatMap(Traps[:], func(t Square, _ int) []Move {
		return b.TrapKillSearch(side, t, budget)
	})
}

// Wins reports whether playing m makes its mover win.
func (b *Board) Wins(m Move) bool {
	mover := b.toMove
	next := b.Clone()
	next.Play(m)
	return next.winner == mover
}
