package game

import "golang.org/x/exp/rand"

const randomStepTries = 12

var directions = [4]Square{North, South, East, West}

// RandomStep picks a random single step of the side to move by sampling
// pieces and directions, and falls back to the full step list when sampling
// keeps failing. NoStep is returned when nothing can move.
func (b *Board) RandomStep(r *rand.Rand) Step {
	side := b.toMove
	own := b.bitboards[side][AnyPiece]
	if n := own.Count(); n > 0 {
		empty := ^b.Occupied()
		for i := 0; i < randomStepTries; i++ {
			from := nthSquare(own, r.Intn(n))
			to := from + directions[r.Intn(len(directions))]
			if to < 0 || to > 63 || !neighbours[from].Has(to) || !empty.Has(to) {
				continue
			}
			p := b.pieceOf(side, from)
			if p == Rabbit && backward(side, from).Has(to) {
				continue
			}
			if b.isFrozen(side, p, from) {
				continue
			}
			return NewSingle(side, p, from, to)
		}
	}
	steps := b.GenerateSteps(side)
	if len(steps) == 0 {
		return NewNoStep(side)
	}
	return steps[r.Intn(len(steps))]
}

func nthSquare(bb Bitboard, n int) Square {
	for ; n > 0; n-- {
		bb &= bb - 1
	}
	return bb.Pop()
}

// ChooseStepWithKnowledge runs a tournament between size random steps and
// returns the one EvaluateStep likes most.
func (b *Board) ChooseStepWithKnowledge(r *rand.Rand, size int) Step {
	steps := b.GenerateSteps(b.toMove)
	if len(steps) == 0 {
		return NewNoStep(b.toMove)
	}
	rounds := min(size, len(steps))
	best := steps[r.Intn(len(steps))]
	bestScore := b.EvaluateStep(best)
	for i := 1; i < rounds; i++ {
		s := steps[r.Intn(len(steps))]
		if score := b.EvaluateStep(s); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best
}
