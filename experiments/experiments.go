package experiments

import (
	"context"

	"arimaa/agent"
	"arimaa/engine"
	"arimaa/experiments/metrics"
	"arimaa/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	NumGames  = 20 // Per match up
	Playouts  = 2000
	MaxTurns  = 200
	OutputDir = "results"
)

// Experiment is a set of match ups between agents.
type Experiment struct {
	Name     string
	Configs  []metrics.AgentConfig
	MatchUps [][2]metrics.AgentConfig // Gold first
	Games    int
	MaxTurns int
}

// Knowledge pairs a plain searcher against one biased by step heuristics,
// alternating colors.
func Knowledge() Experiment {
	plain := metrics.AgentConfig{ID: 1, Playouts: Playouts, ExploreRate: searcher.ExploreRate}
	biased := metrics.AgentConfig{ID: 2, Playouts: Playouts, ExploreRate: searcher.ExploreRate, Knowledge: true}
	return Experiment{
		Name:     "knowledge",
		Configs:  []metrics.AgentConfig{plain, biased},
		MatchUps: [][2]metrics.AgentConfig{{plain, biased}, {biased, plain}},
		Games:    NumGames,
		MaxTurns: MaxTurns,
	}
}

// ExploreRate pairs searchers with different exploration rates against the
// default one.
func ExploreRate() Experiment {
	baseline := metrics.AgentConfig{ID: 0, Playouts: Playouts, ExploreRate: searcher.ExploreRate, Knowledge: true}
	configs := []metrics.AgentConfig{baseline}
	var matchUps [][2]metrics.AgentConfig
	for i, rate := range []float64{0.05, 0.1, 0.4, 0.8} {
		config := metrics.AgentConfig{ID: i + 1, Playouts: Playouts, ExploreRate: rate, Knowledge: true}
		configs = append(configs, config)
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config}, [2]metrics.AgentConfig{config, baseline})
	}
	return Experiment{Name: "explore_rate", Configs: configs, MatchUps: matchUps, Games: NumGames, MaxTurns: MaxTurns}
}

// Baseline checks that the searcher beats random play.
func Baseline() Experiment {
	random := metrics.AgentConfig{ID: 0, Random: true}
	search := metrics.AgentConfig{ID: 1, Playouts: Playouts, ExploreRate: searcher.ExploreRate, Knowledge: true}
	return Experiment{
		Name:     "baseline",
		Configs:  []metrics.AgentConfig{random, search},
		MatchUps: [][2]metrics.AgentConfig{{random, search}, {search, random}},
		Games:    NumGames,
		MaxTurns: MaxTurns,
	}
}

func ByName(name string) (Experiment, bool) {
	switch name {
	case "knowledge":
		return Knowledge(), true
	case "explore_rate":
		return ExploreRate(), true
	case "baseline":
		return Baseline(), true
	case "throughput":
		return Throughput(), true
	}
	return Experiment{}, false
}

// Results of an experiment, ready to be written.
type Results struct {
	Games []metrics.GameRecord
	Moves []metrics.MoveRecord
}

// Run plays every match up Games times. Seeds derive from the game number so
// a run can be repeated.
func (e Experiment) Run(ctx context.Context) (Results, error) {
	var results Results
	count := 0

	log.Info().Msgf("starting %s experiment...", e.Name)

	for mi, matchUp := range e.MatchUps {
		gold, silver := matchUp[0], matchUp[1]
		log.Info().Msgf("starting matchup %d of %d between gold=%+v and silver=%+v...", mi+1, len(e.MatchUps), gold, silver)

		for i := 0; i < e.Games; i++ {
			count++
			seed := uint64(count)
			g := engine.NewLocalGame(createAgent(gold, 2*seed), createAgent(silver, 2*seed+1)).WithMaxTurns(e.MaxTurns)
			winner, gameMetric, moveMetrics, err := g.Run(ctx)
			if err != nil {
				return results, errors.Wrapf(err, "matchup %d game %d", mi+1, i+1)
			}

			results.Games = append(results.Games, metrics.GameRecord{
				ID:         count,
				Agent1:     gold.ID,
				Agent2:     silver.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				results.Moves = append(results.Moves, metrics.MoveRecord{Game: count, MoveMetric: mm})
			}

			log.Info().Msgf("completed matchup %d of %d game %d with winner: %s", mi+1, len(e.MatchUps), i+1, winner)
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
		}
		log.Info().Msgf("completed matchup %d of %d", mi+1, len(e.MatchUps))
	}

	log.Info().Msgf("completed %s experiment", e.Name)
	return results, nil
}

// RunAndStore runs the experiment and writes its CSV files under root.
func (e Experiment) RunAndStore(ctx context.Context, root string) (string, error) {
	results, err := e.Run(ctx)
	if err != nil {
		return "", err
	}

	writer, err := metrics.NewWriter(root, e.Name)
	if err != nil {
		return "", errors.Wrap(err, "failed to create experiment writer")
	}
	if err := writer.WriteAgentConfigs(e.Configs); err != nil {
		return "", errors.Wrap(err, "failed to store agent configs")
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteGameRecords(results.Games); err != nil {
		return "", errors.Wrap(err, "failed to write game records")
	}
	log.Info().Msg("stored game records")

	if err := writer.WriteMoveRecords(results.Moves); err != nil {
		return "", errors.Wrap(err, "failed to write move records")
	}
	log.Info().Msg("stored move records")
	return writer.Dir(), nil
}

func createAgent(config metrics.AgentConfig, seed uint64) agent.Agent {
	if config.Random {
		return agent.NewRandomAgent(seed)
	}
	return agent.NewSearchAgent(createMCTS(config, seed))
}

func createMCTS(config metrics.AgentConfig, seed uint64) *searcher.MCTS {
	options := []searcher.Option{
		searcher.WithKnowledge(config.Knowledge, config.Knowledge),
		searcher.WithSeed(seed),
		searcher.WithMetrics(),
	}
	if config.Playouts > 0 {
		options = append(options, searcher.WithPlayouts(config.Playouts))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.ExploreRate > 0 {
		options = append(options, searcher.WithExploreRate(config.ExploreRate))
	}
	return searcher.NewMCTS(options...)
}
