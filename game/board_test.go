package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// boardFrom builds a position from placements such as "Ed4 rh8".
func boardFrom(t *testing.T, side string, pieces string) *Board {
	t.Helper()
	cells := []byte(strings.Repeat(" ", 64))
	for _, token := range strings.Fields(pieces) {
		s, ok := parseSquare(token[1:])
		require.True(t, ok, token)
		cells[(7-s.Rank())*8+s.File()] = token[0]
	}
	b, err := ParseCompact(side + " [" + string(cells) + "]")
	require.NoError(t, err)
	return b
}

func sq(t *testing.T, name string) Square {
	t.Helper()
	s, ok := parseSquare(name)
	require.True(t, ok, name)
	return s
}

func TestGenerateSteps(t *testing.T) {
	t.Run("opening position only allows the second rank forward", func(t *testing.T) {
		b := NewGame()
		steps := b.GenerateSteps(Gold)

		require.Len(t, steps, 8)
		for _, s := range steps {
			require.Equal(t, Single, s.Kind)
			require.Equal(t, 1, s.From.Rank())
			require.Equal(t, North, s.To-s.From)
		}
	})

	t.Run("elephant pushes and pulls a weaker neighbour", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 rd5")
		steps := b.GenerateSteps(Gold)

		kinds := map[StepKind]int{}
		for _, s := range steps {
			kinds[s.Kind]++
		}
		require.Equal(t, 3, kinds[Pull])
		require.Equal(t, 3, kinds[Push])
		require.Equal(t, 3, kinds[Single])
		require.Zero(t, kinds[Pass], "Should not pass before the first step")
	})

	t.Run("no push or pull with a single step left", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 rd5")
		b.steps = 3
		steps := b.GenerateSteps(Gold)

		for _, s := range steps {
			require.NotContains(t, []StepKind{Push, Pull}, s.Kind)
		}
		require.Equal(t, Pass, steps[len(steps)-1].Kind)
	})

	t.Run("frozen piece cannot move", func(t *testing.T) {
		b := boardFrom(t, "w", "Rd4 cd5 Eh1 ra8")
		require.True(t, b.IsFrozen(sq(t, "d4")))
		for _, s := range b.GenerateSteps(Gold) {
			require.NotEqual(t, Rabbit, s.Piece)
		}

		b = boardFrom(t, "w", "Rd4 Rc4 cd5 ra8")
		require.False(t, b.IsFrozen(sq(t, "d4")))
	})

	t.Run("rabbits never step backward", func(t *testing.T) {
		b := boardFrom(t, "w", "Rd4 ra8")
		for _, s := range b.GenerateSteps(Gold) {
			require.NotEqual(t, South, s.To-s.From)
		}
		b = boardFrom(t, "b", "Ra1 rd4")
		for _, s := range b.GenerateSteps(Silver) {
			require.NotEqual(t, North, s.To-s.From)
		}
	})

	t.Run("generation order is deterministic", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 rd5 Rb2 Cg6 rh8")
		require.Equal(t, b.GenerateSteps(Gold), b.Clone().GenerateSteps(Gold))
	})
}

func TestMakeStep(t *testing.T) {
	t.Run("unprotected piece on a trap is captured", func(t *testing.T) {
		b := boardFrom(t, "w", "Dc3 Rc2 rh8")
		step := NewSingle(Gold, Rabbit, sq(t, "c2"), sq(t, "b2"))

		require.Equal(t, "Rc2w Dc3x", b.MoveString(Move{step}))
		expected := b.AfterStepFingerprint(step)
		b.MakeStep(step)

		require.Zero(t, b.Count(Gold, Dog))
		require.Equal(t, expected, b.Fingerprint())
		require.Equal(t, b.RecomputeFingerprint(), b.Fingerprint())
		require.Equal(t, 1, b.StepsTaken())
	})

	t.Run("push into a trap", func(t *testing.T) {
		b := boardFrom(t, "w", "Ee3 rd3 Ra1 rh8")
		step := NewPush(Gold, Elephant, sq(t, "e3"), Rabbit, sq(t, "d3"), C3)

		require.Equal(t, "rd3w Ee3w", step.String())
		expected := b.AfterStepFingerprint(step)
		b.MakeStep(step)

		require.Equal(t, 1, b.Count(Silver, Rabbit))
		require.True(t, b.Pieces(Gold, Elephant).Has(sq(t, "d3")))
		require.Equal(t, expected, b.Fingerprint())
		require.Equal(t, 2, b.StepsTaken())
	})

	t.Run("pull renders mover first", func(t *testing.T) {
		step := NewPull(Gold, Elephant, sq(t, "d4"), sq(t, "d3"), Rabbit, sq(t, "d5"))
		require.Equal(t, "Ed4s rd5s", step.String())
	})

	t.Run("occupied destination panics", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 Rd5 rh8")
		require.Panics(t, func() {
			b.MakeStep(NewSingle(Gold, Elephant, sq(t, "d4"), sq(t, "d5")))
		})
	})

	t.Run("step of the wrong side panics", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 rh8")
		require.Panics(t, func() {
			b.MakeStep(NewSingle(Silver, Rabbit, sq(t, "h8"), sq(t, "g8")))
		})
	})
}

func TestCommit(t *testing.T) {
	t.Run("turn ends after four steps", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 Ra1 rh8")
		path := []string{"d4", "d5", "d6", "c6", "c5"}
		for i := 0; i < 4; i++ {
			committed := b.MakeStepTryCommit(NewSingle(Gold, Elephant, sq(t, path[i]), sq(t, path[i+1])))
			require.Equal(t, i == 3, committed)
		}
		require.Equal(t, Silver, b.ToMove())
		require.Zero(t, b.StepsTaken())
		require.Equal(t, b.Fingerprint(), b.TurnStartFingerprint())
	})

	t.Run("pass ends the turn", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 Ra1 rh8")
		require.False(t, b.MakeStepTryCommit(NewSingle(Gold, Elephant, sq(t, "d4"), sq(t, "d5"))))
		require.True(t, b.MakeStepTryCommit(NewPass(Gold)))
		require.Equal(t, Silver, b.ToMove())
		require.Equal(t, NoColor, b.Winner())
	})

	t.Run("rabbit on the goal rank wins", func(t *testing.T) {
		b := boardFrom(t, "w", "Ra7 rh7 eh1")
		b.MakeStepTryCommit(NewSingle(Gold, Rabbit, sq(t, "a7"), sq(t, "a8")))
		require.Equal(t, NoColor, b.Winner(), "Should only decide at the end of the turn")
		b.MakeStepTryCommit(NewPass(Gold))
		require.Equal(t, Gold, b.Winner())
	})

	t.Run("capturing the last rabbit wins", func(t *testing.T) {
		b := boardFrom(t, "w", "Ee3 rd3 Ra1")
		b.Play(Move{NewPush(Gold, Elephant, sq(t, "e3"), Rabbit, sq(t, "d3"), C3)})
		require.Equal(t, Gold, b.Winner())
	})

	t.Run("no step at the start of a turn loses", func(t *testing.T) {
		b := boardFrom(t, "b", "Ra1 rd4")
		require.True(t, b.MakeStepTryCommit(NewNoStep(Silver)))
		require.Equal(t, Gold, b.Winner())
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("incremental fingerprint matches recomputation", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		b := NewGame()
		for i := 0; i < 400 && b.Winner() == NoColor; i++ {
			steps := b.GenerateSteps(b.ToMove())
			if len(steps) == 0 {
				break
			}
			s := steps[r.Intn(len(steps))]
			expected := b.AfterStepFingerprint(s)
			b.MakeStepTryCommit(s)

			require.Equal(t, expected, b.Fingerprint(), "step %d: %s", i, s)
			require.Equal(t, b.RecomputeFingerprint(), b.Fingerprint(), "step %d: %s", i, s)
		}
	})

	t.Run("clones replay identically", func(t *testing.T) {
		r := rand.New(rand.NewSource(11))
		a := NewGame()
		b := a.Clone()
		for i := 0; i < 200 && a.Winner() == NoColor; i++ {
			s := a.RandomStep(r)
			a.MakeStepTryCommit(s)
			b.MakeStepTryCommit(s)

			require.Equal(t, a.Fingerprint(), b.Fingerprint())
			require.Equal(t, a.bitboards, b.bitboards)
		}
	})

	t.Run("random steps are legal", func(t *testing.T) {
		r := rand.New(rand.NewSource(3))
		b := NewGame()
		for i := 0; i < 200 && b.Winner() == NoColor; i++ {
			s := b.RandomStep(r)
			if s.Kind != NoStep {
				require.Contains(t, b.GenerateSteps(b.ToMove()), s)
			}
			b.MakeStepTryCommit(s)
		}
	})
}

func TestFilterRepetitions(t *testing.T) {
	setup := func(t *testing.T) *Board {
		b := boardFrom(t, "w", "Ed4 Ra1 rh8")
		b.MakeStep(NewSingle(Gold, Elephant, sq(t, "d4"), sq(t, "d5")))
		b.MakeStep(NewSingle(Gold, Elephant, sq(t, "d5"), sq(t, "d6")))
		b.MakeStep(NewSingle(Gold, Elephant, sq(t, "d6"), sq(t, "d5")))
		return b
	}

	t.Run("virtual pass is pruned", func(t *testing.T) {
		b := setup(t)
		back := NewSingle(Gold, Elephant, sq(t, "d5"), sq(t, "d4"))

		require.Contains(t, b.GenerateSteps(Gold), back)
		require.NotContains(t, b.LegalSteps(nil), back)
		require.Contains(t, b.LegalSteps(nil), NewPass(Gold))
	})

	t.Run("third repetition is pruned", func(t *testing.T) {
		b := setup(t)
		pass := NewPass(Gold)
		rep := NewRepetitionTable()

		rep.Record(b.AfterStepFingerprint(pass), Silver)
		require.Contains(t, b.LegalSteps(rep), pass, "Second occurrence is allowed")

		rep.Record(b.AfterStepFingerprint(pass), Silver)
		require.NotContains(t, b.LegalSteps(rep), pass)
	})

	t.Run("steps not ending the turn are kept", func(t *testing.T) {
		b := boardFrom(t, "w", "Ed4 Ra1 rh8")
		rep := NewRepetitionTable()
		for _, s := range b.GenerateSteps(Gold) {
			rep.Record(b.AfterStepFingerprint(s), Silver)
			rep.Record(b.AfterStepFingerprint(s), Silver)
		}
		require.Equal(t, b.GenerateSteps(Gold), b.LegalSteps(rep))
	})

	t.Run("reset forgets positions", func(t *testing.T) {
		rep := NewRepetitionTable()
		rep.Record(42, Gold)
		rep.Record(42, Gold)
		require.True(t, rep.IsThirdRepetition(42, Gold))
		require.False(t, rep.IsThirdRepetition(42, Silver))

		rep.Reset()
		require.Zero(t, rep.Len())
	})
}
