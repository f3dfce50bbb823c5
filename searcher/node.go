package searcher

import "arimaa/game"

// NodeID addresses a node in the tree arena. Ids of removed nodes are reused.
type NodeID int32

const NoNode NodeID = -1

type node struct {
	step       game.Step // Step leading into this node
	toAct      game.Color
	parent     NodeID
	firstChild NodeID
	sibling    NodeID
	children   int
	visits     int
	value      float64 // Mean outcome from Gold's point of view
	heur       float64
	key        game.PositionKey
	indexed    bool
	cache      []NodeID
	cacheLevel int
}

func newNode(parent NodeID, step game.Step, toAct game.Color, heur float64) node {
	return node{
		step:       step,
		toAct:      toAct,
		parent:     parent,
		firstChild: NoNode,
		sibling:    NoNode,
		heur:       heur,
	}
}

// maximizer reports whether Gold acts at this node.
func (n *node) maximizer() bool {
	return n.toAct == game.Gold
}

func (n *node) isLeaf() bool {
	return n.firstChild == NoNode
}

// update folds a sample into the running mean. A sample that is the best
// possible outcome for the side acting here drops the children cache.
func (n *node) update(sample float64) {
	n.visits++
	n.value += (sample - n.value) / float64(n.visits)
	if sample == perspective(WIN, n.maximizer()) {
		n.invalidateCache()
	}
}

func (n *node) invalidateCache() {
	n.cache = n.cache[:0]
	n.cacheLevel = 0
}
