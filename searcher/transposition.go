package searcher

import "arimaa/game"

// TranspositionIndex maps the positions present in the current tree to their
// node. It lives for a single search.
type TranspositionIndex struct {
	nodes map[game.PositionKey]NodeID
}

func NewTranspositionIndex() *TranspositionIndex {
	return &TranspositionIndex{nodes: make(map[game.PositionKey]NodeID)}
}

func (ti *TranspositionIndex) Lookup(key game.PositionKey) (NodeID, bool) {
	id, ok := ti.nodes[key]
	return id, ok
}

func (ti *TranspositionIndex) Insert(key game.PositionKey, id NodeID) {
	ti.nodes[key] = id
}

// Remove drops key only while it still points at id.
func (ti *TranspositionIndex) Remove(key game.PositionKey, id NodeID) {
	if current, ok := ti.nodes[key]; ok && current == id {
		delete(ti.nodes, key)
	}
}

func (ti *TranspositionIndex) Len() int {
	return len(ti.nodes)
}

func (ti *TranspositionIndex) Reset() {
	clear(ti.nodes)
}
