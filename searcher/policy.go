package searcher

import "math"

// Hyperparameters for MCTS

const ExploreRate = 0.2 // Exploration constant

const WIN = 1.0   // Gold wins
const LOSS = -WIN // Silver wins

type ucb struct {
	numerator float64
	fpu       float64
}

func newUCB(exploreRate float64, parentVisits int, fpu float64) ucb {
	if parentVisits < 0 {
		panic("parent visits cannot be negative")
	}
	return ucb{numerator: exploreRate * math.Log(float64(max(parentVisits, 1))), fpu: fpu}
}

// urgency is value + sqrt(C*ln(N)/n) + heur/n. Unvisited children get the
// first play urgency, or +Inf when none is configured.
func (u ucb) urgency(value float64, visits int, heur float64) float64 {
	if visits == 0 {
		if u.fpu != 0 {
			return u.fpu
		}
		return math.Inf(1)
	}
	n := float64(visits)
	return value + math.Sqrt(u.numerator/n) + heur/n
}

// perspective turns a Gold relative value into the value for side.
func perspective(value float64, maximizer bool) float64 {
	if maximizer {
		return value
	}
	return -value
}
