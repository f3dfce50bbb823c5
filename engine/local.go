package engine

import (
	"context"
	"time"

	"arimaa/agent"
	"arimaa/experiments/metrics"
	"arimaa/game"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const MaxTurns = 500

// LocalGame plays two agents against each other on a session of its own.
type LocalGame struct {
	session  *Session
	agents   [2]agent.Agent
	maxTurns int
}

func NewLocalGame(gold, silver agent.Agent) *LocalGame {
	return &LocalGame{session: NewSession(), agents: [2]agent.Agent{gold, silver}, maxTurns: MaxTurns}
}

// WithMaxTurns caps the number of moves played before the game is abandoned.
func (g *LocalGame) WithMaxTurns(turns int) *LocalGame {
	if turns > 0 {
		g.maxTurns = turns
	}
	return g
}

func (g *LocalGame) Session() *Session {
	return g.session
}

// Run plays until a side wins, the move cap is reached or ctx is done. The
// winner is NoColor for an unfinished game.
func (g *LocalGame) Run(ctx context.Context) (game.Color, metrics.GameMetric, []metrics.MoveMetric, error) {
	b := g.session.Board()
	gameMetric := metrics.GameMetric{StartingPlayer: b.ToMove().String(), StartTime: time.Now()}
	var moveMetrics []metrics.MoveMetric

	log.Info().Msgf("%s is starting", b.ToMove())

	for moves := 0; moves < g.maxTurns; moves++ {
		b = g.session.Board()
		if b.Winner() != game.NoColor || ctx.Err() != nil {
			break
		}
		side := b.ToMove()
		move, searchMetric, err := g.agents[side].FindMove(ctx, b, g.session.Repetitions())
		if err != nil {
			return game.NoColor, gameMetric, moveMetrics, errors.Wrapf(err, "%s failed to find a move", side)
		}
		text := b.MoveString(move)
		if err := g.session.Apply(move); err != nil {
			return game.NoColor, gameMetric, moveMetrics, errors.Wrapf(err, "%s played %q", side, text)
		}
		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Turn:         b.TurnNumber(),
			Player:       side.String(),
			Move:         text,
			SearchMetric: searchMetric,
		})
		log.Debug().Msgf("%d%s %s", b.TurnNumber(), side.Letter(), text)
	}

	winner := g.session.Board().Winner()
	gameMetric.Winner = winner.String()
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(moveMetrics)
	if winner == game.NoColor {
		log.Info().Msgf("stopped after %d moves without a winner", len(moveMetrics))
	} else {
		log.Info().Msgf("%s wins after %d moves", winner, len(moveMetrics))
	}
	return winner, gameMetric, moveMetrics, nil
}
