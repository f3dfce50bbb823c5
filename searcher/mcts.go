package searcher

import (
	"context"
	"fmt"
	"time"

	"arimaa/experiments/metrics"
	"arimaa/game"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

const (
	MatureLevel      = 5
	PlayoutLength    = 4
	MaxPlayoutLength = 100
	MaxDepth         = 50
	TournamentSize   = 4
	GoalBudget       = 4
	TrapBudget       = 4
)

type Option func(mcts *MCTS)

type MCTS struct {
	exploreRate        float64
	fpu                float64
	matureLevel        int
	playoutLength      int
	maxPlayoutLength   int
	maxDepth           int
	knowledgeInTree    bool
	knowledgeInPlayout bool
	tournamentSize     int
	exactValue         bool
	childrenCache      bool
	transpositions     bool
	advisorRate        float64
	seed               uint64
	playouts           int
	duration           time.Duration
	metrics            metrics.Collector

	rng  *rand.Rand
	tree *Tree
}

// Result is the outcome of one search.
type Result struct {
	Move     game.Move
	Key      game.PositionKey // Position after the move
	WinRatio float64          // For the side to move, in [0, 1]
	Stats    Stats
	Dump     string
}

type Stats struct {
	Playouts          int
	Seconds           float64
	PlayoutsPerSecond float64
	Nodes             int
	Expanded          int
	Pruned            int
	AverageDescends   float64
	BestMove          string
	BestVisits        int
	WinRatio          float64
}

func (s Stats) String() string {
	return fmt.Sprintf("playouts %d in %.2fs (%.0f/s), nodes %d, expanded %d, pruned %d, descends %.2f, best %q visits %d, win %.3f",
		s.Playouts, s.Seconds, s.PlayoutsPerSecond, s.Nodes, s.Expanded, s.Pruned, s.AverageDescends, s.BestMove, s.BestVisits, s.WinRatio)
}

func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

func WithPlayouts(playouts int) Option {
	return func(m *MCTS) {
		if playouts > 0 {
			m.playouts = playouts
		}
	}
}

func WithExploreRate(rate float64) Option {
	return func(m *MCTS) {
		if rate > 0 {
			m.exploreRate = rate
		}
	}
}

// WithFPU replaces the infinite urgency of unvisited children. Zero keeps it infinite.
func WithFPU(fpu float64) Option {
	return func(m *MCTS) {
		m.fpu = fpu
	}
}

func WithMatureLevel(visits int) Option {
	return func(m *MCTS) {
		if visits > 0 {
			m.matureLevel = visits
		}
	}
}

// WithPlayoutLength bounds the random number of turns played before evaluating.
// Zero plays every playout until it is decided or too long.
func WithPlayoutLength(turns int) Option {
	return func(m *MCTS) {
		if turns >= 0 {
			m.playoutLength = turns
		}
	}
}

func WithMaxPlayoutLength(turns int) Option {
	return func(m *MCTS) {
		if turns > 0 {
			m.maxPlayoutLength = turns
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

func WithKnowledge(inTree, inPlayout bool) Option {
	return func(m *MCTS) {
		m.knowledgeInTree = inTree
		m.knowledgeInPlayout = inPlayout
	}
}

func WithTournamentSize(size int) Option {
	return func(m *MCTS) {
		if size > 0 {
			m.tournamentSize = size
		}
	}
}

// WithExactValue backs up 2p-1 instead of sampling a coin with probability p.
func WithExactValue(exact bool) Option {
	return func(m *MCTS) {
		m.exactValue = exact
	}
}

func WithChildrenCache(enabled bool) Option {
	return func(m *MCTS) {
		m.childrenCache = enabled
	}
}

func WithTranspositions(enabled bool) Option {
	return func(m *MCTS) {
		m.transpositions = enabled
	}
}

// WithAdvisor lets playouts take a goal run or a trap capture, when one exists,
// with the given probability.
func WithAdvisor(rate float64) Option {
	return func(m *MCTS) {
		if rate >= 0 && rate <= 1 {
			m.advisorRate = rate
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.seed = seed
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{ // Default values
		exploreRate:        ExploreRate,
		matureLevel:        MatureLevel,
		playoutLength:      PlayoutLength,
		maxPlayoutLength:   MaxPlayoutLength,
		maxDepth:           MaxDepth,
		knowledgeInTree:    true,
		knowledgeInPlayout: true,
		tournamentSize:     TournamentSize,
		childrenCache:      true,
		transpositions:     true,
		seed:               uint64(time.Now().UnixNano()),
		metrics:            metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	if m.playouts <= 0 && m.duration <= 0 {
		panic("Must specify search playouts or duration")
	}
	m.rng = rand.New(rand.NewSource(m.seed))
	var index *TranspositionIndex
	if m.transpositions {
		index = NewTranspositionIndex()
	}
	m.tree = NewTree(m.exploreRate, m.fpu, m.childrenCache, index)
	return m
}

// Search runs playouts from b until the playout cap, the time budget or ctx
// stops it. rep is only read.
func (m *MCTS) Search(ctx context.Context, b *game.Board, rep *game.RepetitionTable) (Result, error) {
	if b.Winner() != game.NoColor {
		return Result{}, game.ErrGameOver
	}
	return m.SearchUntil(NewClock(ctx, m.duration), b, rep), nil
}

// SearchUntil runs playouts until stop fires or the playout cap is reached.
func (m *MCTS) SearchUntil(stop StopCondition, b *game.Board, rep *game.RepetitionTable) Result {
	m.tree.Reset(b.ToMove())
	m.metrics.Start()

	playouts, descends := 0, 0
	for !stop.ShouldStop() && (m.playouts == 0 || playouts < m.playouts) {
		descends += m.doPlayout(b, rep)
		playouts++
		m.metrics.AddPlayout()
	}

	move := m.bestMove(b, rep)
	after := b.Clone()
	after.Play(move)

	best := m.tree.BestMoveNode()
	seconds := stop.SecondsElapsed()
	stats := Stats{
		Playouts:   playouts,
		Seconds:    seconds,
		Nodes:      m.tree.Nodes(),
		Expanded:   m.tree.Expanded(),
		Pruned:     m.tree.Pruned(),
		BestMove:   b.MoveString(move),
		BestVisits: m.tree.Visits(best),
		WinRatio:   m.winRatio(best),
	}
	if seconds > 0 {
		stats.PlayoutsPerSecond = float64(playouts) / seconds
	}
	if playouts > 0 {
		stats.AverageDescends = float64(descends) / float64(playouts)
	}
	m.metrics.SetTree(stats.Nodes, stats.Expanded, stats.Pruned)
	m.metrics.SetWinRatio(stats.WinRatio)

	log.Debug().
		Int("playouts", stats.Playouts).
		Float64("seconds", stats.Seconds).
		Int("nodes", stats.Nodes).
		Int("pruned", stats.Pruned).
		Str("move", stats.BestMove).
		Float64("win", stats.WinRatio).
		Msg("search done")

	return Result{
		Move:     move,
		Key:      after.Key(),
		WinRatio: stats.WinRatio,
		Stats:    stats,
		Dump:     m.tree.Dump(),
	}
}

// Metrics returns the collected metrics of the last search.
func (m *MCTS) Metrics() metrics.SearchMetric {
	return m.metrics.Complete()
}

// Tree exposes the tree of the last search.
func (m *MCTS) Tree() *Tree {
	return m.tree
}

// winRatio converts the Gold relative value of id into the chance of the side
// to move at the root.
func (m *MCTS) winRatio(id NodeID) float64 {
	ratio := (m.tree.Value(id) + 1) / 2
	if m.tree.ToAct(m.tree.Root()) == game.Silver {
		ratio = 1 - ratio
	}
	return ratio
}

// doPlayout runs one descent followed by an expansion, a playout or a decided
// outcome. Returns the number of descents.
func (m *MCTS) doPlayout(root *game.Board, rep *game.RepetitionTable) int {
	t := m.tree
	b := root.Clone()
	t.ResetPath()
	descends := 0
	for {
		id := t.Current()
		if !t.IsLeaf(id) {
			child := t.Descend()
			descends++
			if b.MakeStepTryCommit(t.Step(child)) && b.Winner() != game.NoColor {
				m.metrics.AddFullPlayout()
				t.Backpropagate(outcome(b.Winner()))
				return descends
			}
			continue
		}

		if t.Depth() >= m.maxDepth || (id != t.Root() && t.Visits(id) <= m.matureLevel) {
			m.runPlayout(b, t.ToAct(id) == t.ToAct(t.Root()))
			return descends
		}

		if b.StepsTaken() == 0 {
			if move, ok := m.tactics(b); ok {
				t.ExpandLine(id, b, move)
				continue
			}
		}

		steps := b.GenerateSteps(b.ToMove())
		if len(steps) == 0 && b.StepsTaken() == 0 {
			// Immobilized side to move loses.
			t.Backpropagate(outcome(b.ToMove().Opponent()))
			return descends
		}
		steps = b.FilterRepetitions(steps, rep)
		var heurs []float64
		if m.knowledgeInTree {
			heurs = lo.Map(steps, func(s game.Step, _ int) float64 { return b.EvaluateStep(s) })
		}
		if t.Expand(id, b, steps, heurs) == 0 {
			if id == t.Root() {
				// Nothing is playable from the root, let the caller fall back.
				t.Backpropagate(outcome(b.ToMove().Opponent()))
				return descends
			}
			t.RemoveCascade(id)
			return descends
		}
	}
}

func (m *MCTS) runPlayout(b *game.Board, rootSide bool) {
	length := 0
	if m.playoutLength > 0 {
		length = 1 + m.rng.Intn(m.playoutLength)
		if rootSide {
			length++
		}
	}
	p := playout{
		board:       b,
		rng:         m.rng,
		maxLength:   m.maxPlayoutLength,
		evalAfter:   length,
		knowledge:   m.knowledgeInPlayout,
		tournament:  m.tournamentSize,
		advisorRate: m.advisorRate,
	}
	status := p.run()
	if status == PlayoutOK {
		m.metrics.AddFullPlayout()
	}
	m.tree.Backpropagate(m.decidePlayoutWinner(b, status))
}

// decidePlayoutWinner maps a finished playout to a sample in [-1, 1].
func (m *MCTS) decidePlayoutWinner(b *game.Board, status PlayoutStatus) float64 {
	if status == PlayoutOK {
		return outcome(b.Winner())
	}
	p := game.EvaluateInPercent(b)
	if m.exactValue {
		return 2*p - 1
	}
	if m.rng.Float64() < p {
		return WIN
	}
	return LOSS
}

func outcome(winner game.Color) float64 {
	switch winner {
	case game.Gold:
		return WIN
	case game.Silver:
		return LOSS
	}
	panic("no winner to score")
}

// tactics looks for a forced win at the start of a turn: a goal run, or the
// capture of the opponent's last rabbit.
func (m *MCTS) tactics(b *game.Board) (game.Move, bool) {
	side := b.ToMove()
	if move, ok := b.GoalCheck(side, GoalBudget); ok {
		return move, true
	}
	rabbits := b.Pieces(side.Opponent(), game.Rabbit)
	if rabbits.Count() != 1 {
		return nil, false
	}
	for _, trap := range game.Traps {
		if !nearTrap(trap, rabbits) {
			continue
		}
		for _, move := range b.TrapKillSearch(side, trap, TrapBudget) {
			if b.Wins(move) {
				return move, true
			}
		}
	}
	return nil, false
}

// nearTrap reports whether a piece of bb is within two steps of trap.
func nearTrap(trap game.Square, bb game.Bitboard) bool {
	near := trap.Bit() | trap.Bit().Neighbours()
	return (near|near.Neighbours())&bb != 0
}

// bestMove extracts the best line of the tree and completes it into a legal
// move. Without any usable line the first legal steps are played.
func (m *MCTS) bestMove(b *game.Board, rep *game.RepetitionTable) game.Move {
	move := m.tree.BestMove()
	if len(move) == 0 {
		log.Warn().Msgf("search produced no move after %d nodes, falling back to a legal move", m.tree.Nodes())
	}
	board := b.Clone()
	for i, s := range move {
		if board.MakeStepTryCommit(s) {
			return move[:i+1]
		}
	}
	for {
		legal := board.LegalSteps(rep)
		if len(legal) == 0 {
			if len(move) == 0 {
				return game.Move{game.NewNoStep(b.ToMove())}
			}
			legal = board.GenerateSteps(board.ToMove())
		}
		s := legal[len(legal)-1] // Pass when it is allowed
		move = append(move, s)
		if board.MakeStepTryCommit(s) {
			return move
		}
	}
}
