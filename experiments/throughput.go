package experiments

import (
	"time"

	"arimaa/experiments/metrics"
	"arimaa/searcher"
)

// Throughput plays short self-play games under a fixed time budget to compare
// the playout rate of the search variants.
func Throughput() Experiment {
	const duration = 100 * time.Millisecond
	configs := []metrics.AgentConfig{
		{ID: 1, Duration: duration, ExploreRate: searcher.ExploreRate},
		{ID: 2, Duration: duration, ExploreRate: searcher.ExploreRate, Knowledge: true},
	}
	// Same config for both players for the same playing strength and similar
	// game length.
	var matchUps [][2]metrics.AgentConfig
	for _, config := range configs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{config, config})
	}
	return Experiment{Name: "throughput", Configs: configs, MatchUps: matchUps, Games: 1, MaxTurns: 20}
}
