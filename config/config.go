package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"arimaa/searcher"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the search settings of one player. Zero values keep the
// searcher defaults, except for the knowledge switches which default to on.
type Config struct {
	Duration         time.Duration `yaml:"duration"`
	Playouts         int           `yaml:"playouts"`
	ExploreRate      float64       `yaml:"explore_rate"`
	FPU              float64       `yaml:"fpu"`
	MatureLevel      int           `yaml:"mature_level"`
	PlayoutLength    int           `yaml:"playout_length"`
	MaxPlayoutLength int           `yaml:"max_playout_length"`
	MaxDepth         int           `yaml:"max_depth"`
	KnowledgeTree    bool          `yaml:"knowledge_in_tree"`
	KnowledgePlayout bool          `yaml:"knowledge_in_playout"`
	TournamentSize   int           `yaml:"tournament_size"`
	ExactValue       bool          `yaml:"exact_value"`
	ChildrenCache    bool          `yaml:"children_cache"`
	Transpositions   bool          `yaml:"transpositions"`
	AdvisorRate      float64       `yaml:"advisor_rate"`
	Seed             uint64        `yaml:"seed"` // Zero seeds from the clock
}

func Default() Config {
	return Config{
		Duration:         time.Second,
		ExploreRate:      searcher.ExploreRate,
		MatureLevel:      searcher.MatureLevel,
		PlayoutLength:    searcher.PlayoutLength,
		MaxPlayoutLength: searcher.MaxPlayoutLength,
		MaxDepth:         searcher.MaxDepth,
		KnowledgeTree:    true,
		KnowledgePlayout: true,
		TournamentSize:   searcher.TournamentSize,
		ChildrenCache:    true,
		Transpositions:   true,
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Duration <= 0 && c.Playouts <= 0:
		return errors.New("either duration or playouts must be positive")
	case c.Duration < 0 || c.Playouts < 0:
		return errors.New("duration and playouts cannot be negative")
	case c.ExploreRate <= 0:
		return errors.Errorf("explore rate %v must be positive", c.ExploreRate)
	case c.FPU < 0:
		return errors.Errorf("fpu %v cannot be negative", c.FPU)
	case c.MatureLevel <= 0 || c.MaxPlayoutLength <= 0 || c.MaxDepth <= 0 || c.TournamentSize <= 0:
		return errors.New("mature level, max playout length, max depth and tournament size must be positive")
	case c.PlayoutLength < 0:
		return errors.Errorf("playout length %d cannot be negative", c.PlayoutLength)
	case c.AdvisorRate < 0 || c.AdvisorRate > 1:
		return errors.Errorf("advisor rate %v is not a probability", c.AdvisorRate)
	}
	return nil
}

// SearchOptions maps the settings onto searcher options.
func (c Config) SearchOptions() []searcher.Option {
	options := []searcher.Option{
		searcher.WithDuration(c.Duration),
		searcher.WithPlayouts(c.Playouts),
		searcher.WithExploreRate(c.ExploreRate),
		searcher.WithFPU(c.FPU),
		searcher.WithMatureLevel(c.MatureLevel),
		searcher.WithPlayoutLength(c.PlayoutLength),
		searcher.WithMaxPlayoutLength(c.MaxPlayoutLength),
		searcher.WithMaxDepth(c.MaxDepth),
		searcher.WithKnowledge(c.KnowledgeTree, c.KnowledgePlayout),
		searcher.WithTournamentSize(c.TournamentSize),
		searcher.WithExactValue(c.ExactValue),
		searcher.WithChildrenCache(c.ChildrenCache),
		searcher.WithTranspositions(c.Transpositions),
		searcher.WithAdvisor(c.AdvisorRate),
	}
	if c.Seed != 0 {
		options = append(options, searcher.WithSeed(c.Seed))
	}
	return options
}

func (c Config) NewMCTS(extra ...searcher.Option) *searcher.MCTS {
	return searcher.NewMCTS(append(c.SearchOptions(), extra...)...)
}
