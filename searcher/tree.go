package searcher

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"arimaa/game"
)

const (
	cacheSize   = 5  // Children considered once the cache is active
	cacheVisits = 50 // Parent visits before the cache is used

	dumpBase     = 300
	dumpFraction = 0.05
	dumpBrothers = 3
)

// Tree is an arena of nodes together with the path of the descent in progress.
type Tree struct {
	nodes []node
	free  []NodeID
	root  NodeID
	path  []NodeID
	index *TranspositionIndex

	exploreRate   float64
	fpu           float64
	childrenCache bool

	live     int
	expanded int
	pruned   int
}

// NewTree returns an empty tree with Gold to act at the root. A nil index
// disables transposition pruning.
func NewTree(exploreRate, fpu float64, childrenCache bool, index *TranspositionIndex) *Tree {
	t := &Tree{
		exploreRate:   exploreRate,
		fpu:           fpu,
		childrenCache: childrenCache,
		index:         index,
	}
	t.Reset(game.Gold)
	return t
}

// Reset discards every node and the transposition index.
func (t *Tree) Reset(toAct game.Color) {
	t.nodes = t.nodes[:0]
	t.free = t.free[:0]
	t.live, t.expanded, t.pruned = 0, 0, 0
	if t.index != nil {
		t.index.Reset()
	}
	t.root = t.alloc(NoNode, game.NewNoStep(toAct.Opponent()), toAct, 0)
	t.path = append(t.path[:0], t.root)
}

func (t *Tree) alloc(parent NodeID, step game.Step, toAct game.Color, heur float64) NodeID {
	n := newNode(parent, step, toAct, heur)
	t.live++
	if len(t.free) > 0 {
		id := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) link(parent NodeID, last *NodeID, child NodeID) {
	if *last == NoNode {
		t.nodes[parent].firstChild = child
	} else {
		t.nodes[*last].sibling = child
	}
	*last = child
	t.nodes[parent].children++
}

func (t *Tree) Root() NodeID    { return t.root }
func (t *Tree) Current() NodeID { return t.path[len(t.path)-1] }
func (t *Tree) Depth() int      { return len(t.path) - 1 }
func (t *Tree) Nodes() int      { return t.live }
func (t *Tree) Expanded() int   { return t.expanded }
func (t *Tree) Pruned() int     { return t.pruned }
func (t *Tree) ResetPath()      { t.path = t.path[:1] }
func (t *Tree) Path() []NodeID  { return slices.Clone(t.path) }

func (t *Tree) IsLeaf(id NodeID) bool { return t.nodes[id].isLeaf() }

func (t *Tree) Step(id NodeID) game.Step   { return t.nodes[id].step }
func (t *Tree) Visits(id NodeID) int       { return t.nodes[id].visits }
func (t *Tree) Value(id NodeID) float64    { return t.nodes[id].value }
func (t *Tree) ToAct(id NodeID) game.Color { return t.nodes[id].toAct }
func (t *Tree) Parent(id NodeID) NodeID    { return t.nodes[id].parent }

func (t *Tree) Children(id NodeID) []NodeID {
	children := make([]NodeID, 0, t.nodes[id].children)
	for c := t.nodes[id].firstChild; c != NoNode; c = t.nodes[c].sibling {
		children = append(children, c)
	}
	return children
}

// Expand attaches one child per step, in order, to a leaf. Steps leading to a
// position already present in the tree are dropped and counted as pruned.
// heurs may be nil. Returns the number of children attached.
func (t *Tree) Expand(id NodeID, b *game.Board, steps []game.Step, heurs []float64) int {
	if !t.nodes[id].isLeaf() {
		panic("node is already expanded")
	}
	if heurs != nil && len(heurs) != len(steps) {
		panic("heuristics do not match steps")
	}
	last, added := NoNode, 0
	for i, s := range steps {
		key := b.KeyAfter(s)
		if t.index != nil {
			if _, ok := t.index.Lookup(key); ok {
				t.pruned++
				continue
			}
		}
		heur := 0.0
		if heurs != nil {
			heur = heurs[i]
		}
		child := t.alloc(id, s, key.ToMove, heur)
		t.register(child, key)
		t.link(id, &last, child)
		added++
	}
	if added > 0 {
		t.expanded++
	}
	return added
}

func (t *Tree) register(id NodeID, key game.PositionKey) {
	t.nodes[id].key = key
	if t.index == nil {
		return
	}
	if _, ok := t.index.Lookup(key); ok {
		return
	}
	t.index.Insert(key, id)
	t.nodes[id].indexed = true
}

// ExpandLine attaches move below a leaf as a chain of single children, ending
// where the move commits the turn.
func (t *Tree) ExpandLine(id NodeID, b *game.Board, move game.Move) {
	if !t.nodes[id].isLeaf() {
		panic("node is already expanded")
	}
	board := b.Clone()
	parent := id
	for _, s := range move {
		key := board.KeyAfter(s)
		child := t.alloc(parent, s, key.ToMove, 0)
		t.register(child, key)
		last := NoNode
		t.link(parent, &last, child)
		if board.MakeStepTryCommit(s) {
			break
		}
		parent = child
	}
	t.expanded++
}

// Descend selects the most urgent child of the current node and appends it to
// the path.
func (t *Tree) Descend() NodeID {
	child := t.selectChild(t.Current())
	t.path = append(t.path, child)
	return child
}

func (t *Tree) score(parent, child NodeID, policy ucb) float64 {
	c := &t.nodes[child]
	return policy.urgency(perspective(c.value, t.nodes[parent].maximizer()), c.visits, c.heur)
}

func (t *Tree) selectChild(parent NodeID) NodeID {
	p := &t.nodes[parent]
	if p.isLeaf() {
		panic("descend from a leaf")
	}
	policy := newUCB(t.exploreRate, p.visits, t.fpu)
	candidates := t.Children(parent)
	if t.childrenCache && p.visits > cacheVisits {
		t.refreshCache(parent, policy, candidates)
		candidates = p.cache
	}
	best, bestScore := NoNode, math.Inf(-1)
	for _, c := range candidates {
		if score := t.score(parent, c, policy); best == NoNode || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// refreshCache keeps the most urgent children. It is rebuilt whenever the
// integer square root of the parent visits grows.
func (t *Tree) refreshCache(parent NodeID, policy ucb, children []NodeID) {
	p := &t.nodes[parent]
	level := int(math.Sqrt(float64(p.visits)))
	if len(p.cache) > 0 && p.cacheLevel == level {
		return
	}
	scores := make(map[NodeID]float64, len(children))
	for _, c := range children {
		scores[c] = t.score(parent, c, policy)
	}
	slices.SortStableFunc(children, func(a, b NodeID) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return 0
	})
	p.cache = append(p.cache[:0], children[:min(cacheSize, len(children))]...)
	p.cacheLevel = level
}

// Backpropagate folds sample into every node of the path, leaf first, and
// rewinds the path to the root.
func (t *Tree) Backpropagate(sample float64) {
	for i := len(t.path) - 1; i >= 0; i-- {
		t.nodes[t.path[i]].update(sample)
	}
	t.ResetPath()
}

// RemoveCascade deletes id and every ancestor left without children, stopping
// below the root. Returns the number of nodes removed.
func (t *Tree) RemoveCascade(id NodeID) int {
	removed := 0
	for id != t.root {
		parent := t.nodes[id].parent
		t.unlink(parent, id)
		removed += t.release(id)
		if t.nodes[parent].children > 0 {
			break
		}
		id = parent
	}
	t.ResetPath()
	return removed
}

func (t *Tree) unlink(parent, child NodeID) {
	p := &t.nodes[parent]
	if p.firstChild == child {
		p.firstChild = t.nodes[child].sibling
	} else {
		for c := p.firstChild; c != NoNode; c = t.nodes[c].sibling {
			if t.nodes[c].sibling == child {
				t.nodes[c].sibling = t.nodes[child].sibling
				break
			}
		}
	}
	p.children--
	p.invalidateCache()
}

func (t *Tree) release(id NodeID) int {
	removed := 1
	for c := t.nodes[id].firstChild; c != NoNode; {
		next := t.nodes[c].sibling
		removed += t.release(c)
		c = next
	}
	n := &t.nodes[id]
	if n.indexed && t.index != nil {
		t.index.Remove(n.key, id)
	}
	t.nodes[id] = newNode(NoNode, game.Step{}, game.NoColor, 0)
	t.free = append(t.free, id)
	t.live--
	return removed
}

func (t *Tree) mostVisited(id NodeID) NodeID {
	best, visits := NoNode, 0
	for c := t.nodes[id].firstChild; c != NoNode; c = t.nodes[c].sibling {
		if t.nodes[c].visits > visits {
			best, visits = c, t.nodes[c].visits
		}
	}
	return best
}

// BestMoveNode follows the most visited children from the root while the side
// of the root is still acting.
func (t *Tree) BestMoveNode() NodeID {
	side := t.nodes[t.root].toAct
	id := t.root
	for t.nodes[id].toAct == side {
		best := t.mostVisited(id)
		if best == NoNode {
			break
		}
		id = best
	}
	return id
}

// Line returns the steps leading from the root to id.
func (t *Tree) Line(id NodeID) game.Move {
	var move game.Move
	for ; id != t.root && id != NoNode; id = t.nodes[id].parent {
		move = append(move, t.nodes[id].step)
	}
	slices.Reverse(move)
	return move
}

func (t *Tree) BestMove() game.Move {
	return t.Line(t.BestMoveNode())
}

// Dump renders the most visited lines. A child is shown when its visits reach
// 300 plus 5% of its parent's, with at most three siblings per node.
func (t *Tree) Dump() string {
	var sb strings.Builder
	t.dump(&sb, t.root, 0)
	return sb.String()
}

func (t *Tree) dump(sb *strings.Builder, id NodeID, depth int) {
	threshold := dumpBase + dumpFraction*float64(t.nodes[id].visits)
	children := t.Children(id)
	slices.SortStableFunc(children, func(a, b NodeID) int {
		return t.nodes[b].visits - t.nodes[a].visits
	})
	for _, c := range children[:min(dumpBrothers, len(children))] {
		n := &t.nodes[c]
		if float64(n.visits) < threshold {
			break
		}
		fmt.Fprintf(sb, "%s%s %d %.3f\n", strings.Repeat("  ", depth), n.step, n.visits, n.value)
		t.dump(sb, c, depth+1)
	}
}
