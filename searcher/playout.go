package searcher

import (
	"arimaa/game"

	"golang.org/x/exp/rand"
)

type PlayoutStatus int

const (
	PlayoutOK      PlayoutStatus = iota // Decided by a winner
	PlayoutTooLong                      // Ran past twice the maximum length
	PlayoutEval                         // Reached its length, to be evaluated
)

func (s PlayoutStatus) String() string {
	switch s {
	case PlayoutOK:
		return "ok"
	case PlayoutTooLong:
		return "too long"
	default:
		return "eval"
	}
}

// playout plays whole turns on a board it owns. evalAfter of zero plays until
// a winner appears or the playout gets too long.
type playout struct {
	board       *game.Board
	rng         *rand.Rand
	maxLength   int
	evalAfter   int
	knowledge   bool
	tournament  int
	advisorRate float64
	turns       int
}

func (p *playout) run() PlayoutStatus {
	for {
		if p.turns > 2*p.maxLength {
			return PlayoutTooLong
		}
		if p.evalAfter > 0 && p.turns >= p.evalAfter {
			return PlayoutEval
		}
		p.playTurn()
		p.turns++
		if p.board.Winner() != game.NoColor {
			return PlayoutOK
		}
	}
}

func (p *playout) playTurn() {
	if p.board.StepsTaken() == 0 && p.advisorRate > 0 && p.rng.Float64() < p.advisorRate {
		if move, ok := p.advice(); ok {
			p.board.Play(move)
			return
		}
	}
	for !p.board.MakeStepTryCommit(p.chooseStep()) {
	}
}

// advice proposes a goal run for the side to move, or else one of its captures
// around the traps.
func (p *playout) advice() (game.Move, bool) {
	side := p.board.ToMove()
	if move, ok := p.board.GoalCheck(side, GoalBudget); ok {
		return move, true
	}
	kills := p.board.TrapCheck(side, TrapBudget)
	if len(kills) == 0 {
		return nil, false
	}
	return kills[p.rng.Intn(len(kills))], true
}

func (p *playout) chooseStep() game.Step {
	if p.knowledge {
		return p.board.ChooseStepWithKnowledge(p.rng, p.tournament)
	}
	return p.board.RandomStep(p.rng)
}
