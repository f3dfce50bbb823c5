package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Duration     time.Duration
	Playouts     int
	FullPlayouts int // Playouts ending with a winner
	Nodes        int
	Expanded     int
	Pruned       int
	WinRatio     float64
}

type MoveMetric struct {
	Turn   int
	Player string
	Move   string
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start()
	AddPlayout()
	AddFullPlayout()
	SetTree(nodes, expanded, pruned int)
	SetWinRatio(ratio float64)
	Complete() SearchMetric
}

type collector struct {
	startTime    time.Time
	playouts     atomic.Int32
	fullPlayouts atomic.Int32
	nodes        int
	expanded     int
	pruned       int
	winRatio     float64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start() {
	m.startTime = time.Now()
	m.playouts.Store(0)
	m.fullPlayouts.Store(0)
	m.nodes, m.expanded, m.pruned, m.winRatio = 0, 0, 0, 0
}

func (m *collector) AddPlayout() {
	m.playouts.Add(1)
}

func (m *collector) AddFullPlayout() {
	m.fullPlayouts.Add(1)
}

func (m *collector) SetTree(nodes, expanded, pruned int) {
	m.nodes, m.expanded, m.pruned = nodes, expanded, pruned
}

func (m *collector) SetWinRatio(ratio float64) {
	m.winRatio = ratio
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Duration:     time.Since(m.startTime),
		Playouts:     int(m.playouts.Load()),
		FullPlayouts: int(m.fullPlayouts.Load()),
		Nodes:        m.nodes,
		Expanded:     m.expanded,
		Pruned:       m.pruned,
		WinRatio:     m.winRatio,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                              {}
func (m *dummyCollector) AddPlayout()                         {}
func (m *dummyCollector) AddFullPlayout()                     {}
func (m *dummyCollector) SetTree(nodes, expanded, pruned int) {}
func (m *dummyCollector) SetWinRatio(ratio float64)           {}
func (m *dummyCollector) Complete() SearchMetric              { return SearchMetric{} }
