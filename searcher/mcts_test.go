package searcher

import (
	"context"
	"testing"

	"arimaa/game"

	"github.com/stretchr/testify/require"
)

func TestNewMCTS(t *testing.T) {
	t.Run("without a budget", func(t *testing.T) {
		require.PanicsWithValue(t, "Must specify search playouts or duration", func() {
			NewMCTS()
		})
	})

	t.Run("ignores invalid options", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(10), WithExploreRate(-1), WithMatureLevel(0), WithAdvisor(2))
		require.Equal(t, ExploreRate, m.exploreRate)
		require.Equal(t, MatureLevel, m.matureLevel)
		require.Zero(t, m.advisorRate)
	})
}

// requireLegal replays move step by step and checks that only the last step
// commits the turn.
func requireLegal(t *testing.T, b *game.Board, move game.Move) *game.Board {
	t.Helper()
	board := b.Clone()
	for i, s := range move {
		require.Contains(t, board.GenerateSteps(board.ToMove()), s, "step %d %s", i, s)
		require.Equal(t, i == len(move)-1, board.MakeStepTryCommit(s), "step %d %s", i, s)
	}
	return board
}

func TestSearch(t *testing.T) {
	t.Run("opening move", func(t *testing.T) {
		b := game.NewGame()
		m := NewMCTS(WithPlayouts(20_000), WithSeed(1), WithMetrics())

		result, err := m.Search(context.Background(), b, game.NewRepetitionTable())
		require.NoError(t, err)

		after := requireLegal(t, b, result.Move)
		require.Equal(t, game.Silver, after.ToMove())
		require.Equal(t, after.Key(), result.Key)
		require.GreaterOrEqual(t, result.Move.Count(), 1)
		require.LessOrEqual(t, result.Move.Count(), 4)
		require.GreaterOrEqual(t, result.WinRatio, 0.0)
		require.LessOrEqual(t, result.WinRatio, 1.0)
		require.Equal(t, 20_000, result.Stats.Playouts)
		require.Equal(t, 20_000, m.Metrics().Playouts)
		require.Positive(t, result.Stats.Nodes)
	})

	t.Run("same seed same move", func(t *testing.T) {
		b := game.NewGame()
		first, err := NewMCTS(WithPlayouts(200), WithSeed(7)).Search(context.Background(), b, nil)
		require.NoError(t, err)
		second, err := NewMCTS(WithPlayouts(200), WithSeed(7)).Search(context.Background(), b, nil)
		require.NoError(t, err)
		require.Equal(t, first.Move, second.Move)
	})

	t.Run("gold goal", func(t *testing.T) {
		b := position(t, "w", "Ra7 rh7 eh1")
		result, err := NewMCTS(WithPlayouts(1), WithSeed(1)).Search(context.Background(), b, nil)
		require.NoError(t, err)

		require.True(t, b.Wins(result.Move))
		require.Equal(t, 1.0, result.WinRatio)
		requireLegal(t, b, result.Move)
	})

	t.Run("silver goal", func(t *testing.T) {
		b := position(t, "b", "rh2 Ra5 Eb1")
		result, err := NewMCTS(WithPlayouts(1), WithSeed(1)).Search(context.Background(), b, nil)
		require.NoError(t, err)

		require.True(t, b.Wins(result.Move))
		require.Equal(t, 1.0, result.WinRatio)
	})

	t.Run("last rabbit captured", func(t *testing.T) {
		b := position(t, "w", "Ee3 rd3 Ra1")
		result, err := NewMCTS(WithPlayouts(1), WithSeed(1)).Search(context.Background(), b, nil)
		require.NoError(t, err)

		require.True(t, b.Wins(result.Move))
		require.Equal(t, 1.0, result.WinRatio)
		after := requireLegal(t, b, result.Move)
		require.Zero(t, after.Count(game.Silver, game.Rabbit))
	})

	t.Run("immobilized side", func(t *testing.T) {
		b := position(t, "w", "Ra1 ca2 rh8")
		result, err := NewMCTS(WithPlayouts(3), WithSeed(1)).Search(context.Background(), b, nil)
		require.NoError(t, err)

		require.Equal(t, game.Move{game.NewNoStep(game.Gold)}, result.Move)
		require.Zero(t, result.WinRatio)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := game.NewGame()

		result, err := NewMCTS(WithPlayouts(10), WithSeed(1)).Search(ctx, b, nil)
		require.NoError(t, err)
		require.Zero(t, result.Stats.Playouts)
		require.Len(t, result.Move, 2)
		require.True(t, result.Move[1].IsPass())
		requireLegal(t, b, result.Move)
	})

	t.Run("finished game", func(t *testing.T) {
		b := position(t, "w", "Ra7 rh7 eh1")
		b.Play(game.Move{game.NewSingle(game.Gold, game.Rabbit, game.NewSquare(0, 6), game.NewSquare(0, 7))})
		require.Equal(t, game.Gold, b.Winner())

		_, err := NewMCTS(WithPlayouts(10)).Search(context.Background(), b, nil)
		require.ErrorIs(t, err, game.ErrGameOver)
	})

	t.Run("loaded finished game", func(t *testing.T) {
		for _, pieces := range []string{"Ra8 rh7 eh1", "Ea2 rh7 eh1"} {
			_, err := NewMCTS(WithPlayouts(10)).Search(context.Background(), position(t, "w", pieces), nil)
			require.ErrorIs(t, err, game.ErrGameOver, pieces)
		}
	})
}

func TestMaturity(t *testing.T) {
	b := position(t, "w", "Ra2 rh7")
	m := NewMCTS(WithPlayouts(1), WithSeed(1), WithMatureLevel(2))
	m.tree.Reset(b.ToMove())

	leaves := func() map[NodeID]int {
		found := map[NodeID]int{}
		var walk func(id NodeID)
		walk = func(id NodeID) {
			if m.tree.IsLeaf(id) {
				found[id] = m.tree.Visits(id)
				return
			}
			for _, child := range m.tree.Children(id) {
				walk(child)
			}
		}
		walk(m.tree.Root())
		return found
	}

	expansions := 0
	for i := 0; i < 12; i++ {
		before := leaves()
		m.doPlayout(b, nil)
		for id, visits := range before {
			if id != m.tree.Root() && !m.tree.IsLeaf(id) {
				expansions++
				require.Greater(t, visits, 2, "node %d expanded after %d visits", id, visits)
			}
		}
	}
	require.Positive(t, expansions)
}

func TestPlayout(t *testing.T) {
	t.Run("evaluated after its length", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(1), WithSeed(3))
		p := playout{board: game.NewGame(), rng: m.rng, maxLength: MaxPlayoutLength, evalAfter: 2, tournament: TournamentSize}
		require.Equal(t, PlayoutEval, p.run())
		require.Equal(t, 2, p.turns)
		require.Equal(t, 2, p.board.TurnNumber())
	})

	t.Run("decided by a goal", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(1), WithSeed(3))
		p := playout{board: position(t, "w", "Ra7 rh2 eh1"), rng: m.rng, maxLength: MaxPlayoutLength, advisorRate: 1}
		require.Equal(t, PlayoutOK, p.run())
		require.Equal(t, game.Gold, p.board.Winner())
		require.Equal(t, 1, p.turns)
	})
}

func TestPlayoutAdvice(t *testing.T) {
	t.Run("takes a capture", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(1), WithSeed(3))
		p := playout{board: position(t, "w", "Ee3 rd3 Ra1 rh8"), rng: m.rng, maxLength: MaxPlayoutLength, evalAfter: 1, advisorRate: 1}
		require.Equal(t, PlayoutEval, p.run())
		require.Equal(t, 1, p.board.Count(game.Silver, game.Rabbit))
		require.Equal(t, game.Silver, p.board.ToMove())
	})

	t.Run("prefers a goal run", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(1), WithSeed(3))
		p := playout{board: position(t, "w", "Ra7 Ee3 rd3 rh8"), rng: m.rng}
		move, ok := p.advice()
		require.True(t, ok)
		require.True(t, p.board.Wins(move))
		require.Equal(t, 2, p.board.Count(game.Silver, game.Rabbit))
	})

	t.Run("nothing to advise", func(t *testing.T) {
		m := NewMCTS(WithPlayouts(1), WithSeed(3))
		p := playout{board: game.NewGame(), rng: m.rng}
		_, ok := p.advice()
		require.False(t, ok)
	})
}

func TestNearTrap(t *testing.T) {
	c3 := game.C3
	require.True(t, nearTrap(c3, game.NewSquare(2, 4).Bit()), "c5 is two steps away")
	require.True(t, nearTrap(c3, game.NewSquare(3, 3).Bit()), "d4 is two steps away")
	require.False(t, nearTrap(c3, game.NewSquare(2, 5).Bit()), "c6 is three steps away")
}
