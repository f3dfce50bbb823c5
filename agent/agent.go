package agent

import (
	"context"
	"time"

	"arimaa/experiments/metrics"
	"arimaa/game"
	"arimaa/searcher"

	"golang.org/x/exp/rand"
)

type Agent interface {
	// FindMove returns a complete move for the side to move and the metrics of
	// the search behind it, if collected.
	FindMove(ctx context.Context, b *game.Board, rep *game.RepetitionTable) (game.Move, metrics.SearchMetric, error)
}

type searchAgent struct {
	mcts *searcher.MCTS
}

func NewSearchAgent(mcts *searcher.MCTS) Agent {
	return &searchAgent{mcts: mcts}
}

func (a *searchAgent) FindMove(ctx context.Context, b *game.Board, rep *game.RepetitionTable) (game.Move, metrics.SearchMetric, error) {
	result, err := a.mcts.Search(ctx, b, rep)
	if err != nil {
		return nil, metrics.SearchMetric{}, err
	}
	return result.Move, a.mcts.Metrics(), nil
}

// randomAgent plays uniformly random legal steps.
type randomAgent struct {
	rng *rand.Rand
}

func NewRandomAgent(seed uint64) Agent {
	return &randomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *randomAgent) FindMove(_ context.Context, b *game.Board, rep *game.RepetitionTable) (game.Move, metrics.SearchMetric, error) {
	start := time.Now()
	if b.Winner() != game.NoColor {
		return nil, metrics.SearchMetric{}, game.ErrGameOver
	}
	board := b.Clone()
	var move game.Move
	for {
		legal := board.LegalSteps(rep)
		if len(legal) == 0 {
			if len(move) == 0 {
				move = game.Move{game.NewNoStep(board.ToMove())}
				break
			}
			legal = board.GenerateSteps(board.ToMove())
		}
		s := legal[a.rng.Intn(len(legal))]
		move = append(move, s)
		if board.MakeStepTryCommit(s) {
			break
		}
	}
	return move, metrics.SearchMetric{Duration: time.Since(start)}, nil
}
