package game

import (
	"strings"

	"github.com/samber/lo"
)

type StepKind int8

const (
	NoStep StepKind = iota
	Single
	Push
	Pull
	Pass
)

// Step is one atomic action. Push and pull carry the victim that is displaced
// together with the mover.
type Step struct {
	Kind       StepKind
	Color      Color
	Piece      Piece
	From       Square
	To         Square
	Victim     Piece
	VictimFrom Square
	VictimTo   Square
}

func NewSingle(c Color, p Piece, from, to Square) Step {
	return Step{Kind: Single, Color: c, Piece: p, From: from, To: to, VictimFrom: NoSquare, VictimTo: NoSquare}
}

func NewPush(c Color, p Piece, from Square, victim Piece, victimFrom, victimTo Square) Step {
	return Step{Kind: Push, Color: c, Piece: p, From: from, To: victimFrom, Victim: victim, VictimFrom: victimFrom, VictimTo: victimTo}
}

func NewPull(c Color, p Piece, from, to Square, victim Piece, victimFrom Square) Step {
	return Step{Kind: Pull, Color: c, Piece: p, From: from, To: to, Victim: victim, VictimFrom: victimFrom, VictimTo: from}
}

func NewPass(c Color) Step {
	return Step{Kind: Pass, Color: c, From: NoSquare, To: NoSquare, VictimFrom: NoSquare, VictimTo: NoSquare}
}

func NewNoStep(c Color) Step {
	return Step{Kind: NoStep, Color: c, From: NoSquare, To: NoSquare, VictimFrom: NoSquare, VictimTo: NoSquare}
}

// Count is the number of the turn's four steps this step consumes.
func (s Step) Count() int {
	switch s.Kind {
	case Single:
		return 1
	case Push, Pull:
		return 2
	default:
		return 0
	}
}

func (s Step) MovesPiece() bool {
	return s.Kind == Single || s.Kind == Push || s.Kind == Pull
}

func (s Step) IsPass() bool {
	return s.Kind == Pass
}

// Inverse returns the step undoing a single step.
func (s Step) Inverse() Step {
	if s.Kind != Single {
		return NewNoStep(s.Color)
	}
	return NewSingle(s.Color, s.Piece, s.To, s.From)
}

func atom(c Color, p Piece, from, to Square) string {
	return string([]byte{p.Letter(c)}) + from.String() + string([]byte{directionLetter(from, to)})
}

// String renders the step in record notation, e.g. "Ra2n" or "rb3e Ra3e" for a push.
func (s Step) String() string {
	switch s.Kind {
	case Single:
		return atom(s.Color, s.Piece, s.From, s.To)
	case Push:
		return atom(s.Color.Opponent(), s.Victim, s.VictimFrom, s.VictimTo) + " " + atom(s.Color, s.Piece, s.From, s.To)
	case Pull:
		return atom(s.Color, s.Piece, s.From, s.To) + " " + atom(s.Color.Opponent(), s.Victim, s.VictimFrom, s.VictimTo)
	case Pass:
		return "pass"
	default:
		return "nostep"
	}
}

// Move is the ordered sequence of steps of a single turn.
type Move []Step

func (m Move) Count() int {
	return lo.SumBy(m, func(s Step) int { return s.Count() })
}

// String renders the piece moving steps; passes are implied by the end of the turn.
func (m Move) String() string {
	atoms := lo.FilterMap(m, func(s Step, _ int) (string, bool) {
		return s.String(), s.MovesPiece()
	})
	return strings.Join(atoms, " ")
}
