package searcher

import (
	"strings"
	"testing"

	"arimaa/game"

	"github.com/stretchr/testify/require"
)

// position builds a board from placements such as "Ra7 rh8".
func position(t *testing.T, side string, pieces string) *game.Board {
	t.Helper()
	cells := []byte(strings.Repeat(" ", 64))
	for _, token := range strings.Fields(pieces) {
		file, rank := int(token[1]-'a'), int(token[2]-'1')
		cells[(7-rank)*8+file] = token[0]
	}
	b, err := game.ParseCompact(side + " [" + string(cells) + "]")
	require.NoError(t, err)
	return b
}

func expandedTree(t *testing.T, index *TranspositionIndex) (*Tree, *game.Board) {
	t.Helper()
	b := game.NewGame()
	tree := NewTree(ExploreRate, 0, false, index)
	tree.Reset(b.ToMove())
	require.Equal(t, 8, tree.Expand(tree.Root(), b, b.GenerateSteps(game.Gold), nil))
	return tree, b
}

func TestTreeExpand(t *testing.T) {
	t.Run("children keep step order", func(t *testing.T) {
		tree, b := expandedTree(t, nil)
		children := tree.Children(tree.Root())

		require.Equal(t, 9, tree.Nodes())
		for i, s := range b.GenerateSteps(game.Gold) {
			require.Equal(t, s, tree.Step(children[i]))
			require.Equal(t, game.Gold, tree.ToAct(children[i]))
		}
	})

	t.Run("transpositions are pruned", func(t *testing.T) {
		tree, b := expandedTree(t, NewTranspositionIndex())
		children := tree.Children(tree.Root())

		first, second := b.Clone(), b.Clone()
		first.MakeStep(tree.Step(children[0]))
		second.MakeStep(tree.Step(children[1]))

		steps := first.GenerateSteps(game.Gold)
		require.Equal(t, len(steps), tree.Expand(children[0], first, steps, nil))
		require.Zero(t, tree.Pruned())

		steps = second.GenerateSteps(game.Gold)
		added := tree.Expand(children[1], second, steps, nil)
		require.Positive(t, tree.Pruned())
		require.Equal(t, len(steps)-tree.Pruned(), added)
	})

	t.Run("no pruning without an index", func(t *testing.T) {
		tree, b := expandedTree(t, nil)
		for _, c := range tree.Children(tree.Root())[:2] {
			next := b.Clone()
			next.MakeStep(tree.Step(c))
			tree.Expand(c, next, next.GenerateSteps(game.Gold), nil)
		}
		require.Zero(t, tree.Pruned())
	})

	t.Run("expanding twice panics", func(t *testing.T) {
		tree, b := expandedTree(t, nil)
		require.Panics(t, func() {
			tree.Expand(tree.Root(), b, b.GenerateSteps(game.Gold), nil)
		})
	})
}

func TestTreeDescend(t *testing.T) {
	t.Run("unvisited children in traversal order", func(t *testing.T) {
		tree, _ := expandedTree(t, nil)
		children := tree.Children(tree.Root())

		for i := 0; i < 3; i++ {
			require.Equal(t, children[i], tree.Descend())
			require.Equal(t, 1, tree.Depth())
			tree.Backpropagate(0)
			require.Zero(t, tree.Depth())
		}
		require.Equal(t, 3, tree.Visits(tree.Root()))
	})

	t.Run("side to act picks its own best value", func(t *testing.T) {
		tree, _ := expandedTree(t, nil)
		children := tree.Children(tree.Root())
		values := []float64{-0.5, 0.5, 0.0}
		for i, c := range children {
			tree.nodes[c].visits = 10
			if i < len(values) {
				tree.nodes[c].value = values[i]
			}
		}
		tree.nodes[tree.Root()].visits = 80

		require.Equal(t, children[1], tree.selectChild(tree.Root()))

		tree.nodes[tree.Root()].toAct = game.Silver
		require.Equal(t, children[0], tree.selectChild(tree.Root()))
	})

	t.Run("cached selection keeps the best child", func(t *testing.T) {
		tree, _ := expandedTree(t, nil)
		tree.childrenCache = true
		children := tree.Children(tree.Root())
		for i, c := range children {
			tree.nodes[c].visits = 10
			tree.nodes[c].value = float64(i) / 10
		}
		tree.nodes[tree.Root()].visits = 80

		require.Equal(t, children[7], tree.selectChild(tree.Root()))
		require.Len(t, tree.nodes[tree.Root()].cache, cacheSize)
		require.Equal(t, children[7], tree.nodes[tree.Root()].cache[0])
	})

	t.Run("descend from a leaf panics", func(t *testing.T) {
		tree := NewTree(ExploreRate, 0, false, nil)
		require.Panics(t, func() {
			tree.Descend()
		})
	})
}

func TestRemoveCascade(t *testing.T) {
	t.Run("removes the single child chain", func(t *testing.T) {
		index := NewTranspositionIndex()
		tree, b := expandedTree(t, index)
		first := tree.Children(tree.Root())[0]

		board := b.Clone()
		board.MakeStep(tree.Step(first))
		tree.Expand(first, board, board.GenerateSteps(game.Gold)[:1], nil)
		middle := tree.Children(first)[0]

		board.MakeStep(tree.Step(middle))
		tree.Expand(middle, board, board.GenerateSteps(game.Gold)[:1], nil)
		leaf := tree.Children(middle)[0]

		nodes, indexed := tree.Nodes(), index.Len()
		require.Equal(t, 3, tree.RemoveCascade(leaf))
		require.Equal(t, nodes-3, tree.Nodes())
		require.Equal(t, indexed-3, index.Len())
		require.Len(t, tree.Children(tree.Root()), 7)
	})

	t.Run("stops at a branching ancestor", func(t *testing.T) {
		tree, _ := expandedTree(t, nil)
		leaf := tree.Children(tree.Root())[3]

		require.Equal(t, 1, tree.RemoveCascade(leaf))
		require.Equal(t, 8, tree.Nodes())
	})

	t.Run("never removes the root", func(t *testing.T) {
		tree := NewTree(ExploreRate, 0, false, nil)
		require.Zero(t, tree.RemoveCascade(tree.Root()))
		require.Equal(t, 1, tree.Nodes())
	})

	t.Run("arena slots are reused", func(t *testing.T) {
		tree, b := expandedTree(t, nil)
		children := tree.Children(tree.Root())
		tree.RemoveCascade(children[2])

		next := b.Clone()
		next.MakeStep(tree.Step(children[0]))
		tree.Expand(children[0], next, next.GenerateSteps(game.Gold)[:1], nil)
		require.Equal(t, children[2], tree.Children(children[0])[0])
	})
}

func TestBestMove(t *testing.T) {
	tree, b := expandedTree(t, nil)
	children := tree.Children(tree.Root())
	tree.nodes[children[0]].visits = 5
	tree.nodes[children[4]].visits = 20

	board := b.Clone()
	board.MakeStep(tree.Step(children[4]))
	tree.Expand(children[4], board, []game.Step{game.NewPass(game.Gold)}, nil)
	pass := tree.Children(children[4])[0]
	tree.nodes[pass].visits = 19

	require.Equal(t, pass, tree.BestMoveNode())
	require.Equal(t, game.Move{tree.Step(children[4]), game.NewPass(game.Gold)}, tree.BestMove())
	require.Equal(t, game.Silver, tree.ToAct(pass))
}

func TestDump(t *testing.T) {
	tree, _ := expandedTree(t, nil)
	children := tree.Children(tree.Root())
	tree.nodes[tree.Root()].visits = 1000
	tree.nodes[children[1]].visits = 400
	tree.nodes[children[2]].visits = 200

	dump := tree.Dump()
	require.Contains(t, dump, tree.Step(children[1]).String()+" 400")
	require.NotContains(t, dump, tree.Step(children[2]).String())
}
