package game

import "math"

// Evaluator scores a position from Gold's point of view.
type Evaluator func(b *Board) int

const (
	WinScore     = 100000
	percentScale = 800.0
)

var pieceValues = [7]int{0, 100, 250, 300, 800, 1100, 1800}

// rabbitBonus raises the value of the remaining rabbits as they get scarce.
var rabbitBonus = [9]int{-WinScore, 600, 450, 300, 200, 120, 60, 20, 0}

// Evaluate combines material, trap control and rabbit advancement.
func Evaluate(b *Board) int {
	switch b.winner {
	case Gold:
		return WinScore
	case Silver:
		return -WinScore
	}
	score := b.sideScore(Gold) - b.sideScore(Silver)
	if b.toMove == Gold {
		score += 20
	} else {
		score -= 20
	}
	return score
}

func (b *Board) sideScore(c Color) int {
	score := 0
	for p := Rabbit; p <= Elephant; p++ {
		score += pieceValues[p] * b.Count(c, p)
	}
	score += rabbitBonus[min(b.Count(c, Rabbit), 8)]

	opp := c.Opponent()
	for _, t := range Traps {
		mine := (neighbours[t] & b.bitboards[c][AnyPiece]).Count()
		theirs := (neighbours[t] & b.bitboards[opp][AnyPiece]).Count()
		if neighbours[t]&b.bitboards[c][Elephant] != 0 {
			mine++
		}
		score += 15 * (mine - theirs)
	}

	rabbits := b.bitboards[c][Rabbit]
	for rabbits != 0 {
		s := rabbits.Pop()
		advance := 7 - forwardRanks(c, s)
		score += advance * advance * 3
		if b.freeFile(c, s) {
			score += 10 * advance
		}
	}
	return score
}

// freeFile reports whether no opposing piece stands in front of a rabbit of c on s.
func (b *Board) freeFile(c Color, s Square) bool {
	opp := b.bitboards[c.Opponent()][AnyPiece]
	for sq := s; ; {
		if c == Gold {
			sq += North
		} else {
			sq += South
		}
		if sq < 0 || sq > 63 {
			return true
		}
		if opp.Has(sq) {
			return false
		}
	}
}

// EvaluateInPercent maps the static evaluation to Gold's winning chance.
func EvaluateInPercent(b *Board) float64 {
	return 1 / (1 + math.Exp(-float64(Evaluate(b))/percentScale))
}

// EvaluateStep is a cheap desirability score of s for the side playing it.
func (b *Board) EvaluateStep(s Step) float64 {
	if s.Kind == Pass {
		return -0.5 * float64(4-b.steps)
	}
	if !s.MovesPiece() {
		return 0
	}
	score := 0.0
	if b.lastStep.Kind == Single && s == b.lastStep.Inverse() {
		score -= 5
	}
	if s.Piece == Elephant {
		score += 0.1
	}
	opp := s.Color.Opponent()
	if s.Kind == Push || s.Kind == Pull {
		score += 0.5
		if s.Victim == Rabbit && forwardRanks(opp, s.VictimTo) < forwardRanks(opp, s.VictimFrom) {
			score -= 10
		}
		if IsTrap(s.VictimTo) {
			score += 3
		}
	}

	next := b.Clone()
	kills := next.applyStep(s)
	if kills[opp].piece != AnyPiece {
		score += 5
	}
	if k := kills[s.Color]; k.piece != AnyPiece {
		if k.piece == Rabbit && forwardRanks(s.Color, k.square) < 4 {
			score--
		} else {
			score -= 5
		}
	}

	if s.Piece == Rabbit && s.Kind == Single {
		if forwardRanks(s.Color, s.To) < forwardRanks(s.Color, s.From) {
			if next.freeFile(s.Color, s.To) {
				score += 5
			}
			score += float64(next.emptyAhead(s.Color, s.To))
		}
		if forwardRanks(s.Color, s.To) > 4 {
			score -= 2
		}
	}
	return score
}

func (b *Board) emptyAhead(c Color, s Square) int {
	empty := ^b.Occupied()
	n := 0
	for sq := s; ; n++ {
		if c == Gold {
			sq += North
		} else {
			sq += South
		}
		if sq < 0 || sq > 63 || !empty.Has(sq) {
			return n
		}
	}
}
