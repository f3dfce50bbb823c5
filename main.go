package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"arimaa/agent"
	"arimaa/config"
	"arimaa/engine"
	"arimaa/experiments"
	"arimaa/searcher"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "YAML file with search settings")
	position := flag.String("position", "", "Position to search, e.g. \"w [rrrrrrrr...]\"")
	record := flag.String("record", "", "Game record file to replay before searching")
	duration := flag.Duration("duration", 0, "Search time per move, overrides the config")
	playouts := flag.Int("playouts", 0, "Playouts per move, overrides the config")
	selfPlay := flag.Int("selfplay", 0, "Play a game against itself for at most this many moves")
	experiment := flag.String("experiment", "", "Run an experiment: knowledge, explore_rate, baseline or throughput")
	out := flag.String("out", experiments.OutputDir, "Folder for experiment results")
	dump := flag.Bool("dump", false, "Print the search tree")
	debug := flag.Bool("debug", false, "Log search statistics")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch {
	case *experiment != "":
		err = runExperiment(ctx, *experiment, *out)
	default:
		var cfg config.Config
		cfg, err = loadConfig(*configPath, *duration, *playouts)
		if err != nil {
			break
		}
		if *selfPlay > 0 {
			err = runSelfPlay(ctx, cfg, *selfPlay)
		} else {
			err = runSearch(ctx, cfg, *position, *record, *dump)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

func loadConfig(path string, duration time.Duration, playouts int) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if duration > 0 {
		cfg.Duration = duration
	}
	if playouts > 0 {
		cfg.Playouts = playouts
	}
	return cfg, cfg.Validate()
}

func runSearch(ctx context.Context, cfg config.Config, position, record string, dump bool) error {
	e := engine.New(cfg.NewMCTS())
	switch {
	case record != "":
		data, err := os.ReadFile(record)
		if err != nil {
			return errors.Wrap(err, "failed to read record")
		}
		if err := e.Session().LoadRecord(string(data)); err != nil {
			return err
		}
	case position != "":
		if err := e.Session().SetPosition(position); err != nil {
			return err
		}
	}
	fmt.Println(e.Session().Board())

	result, err := e.Think(ctx)
	if err != nil {
		return err
	}
	fmt.Println(e.Session().Board().MoveString(result.Move))
	fmt.Println(result.Stats)
	if dump {
		fmt.Print(result.Dump)
	}
	return nil
}

func runSelfPlay(ctx context.Context, cfg config.Config, maxTurns int) error {
	gold := agent.NewSearchAgent(cfg.NewMCTS(searcher.WithMetrics()))
	silver := agent.NewSearchAgent(cfg.NewMCTS(searcher.WithMetrics()))
	g := engine.NewLocalGame(gold, silver).WithMaxTurns(maxTurns)

	winner, gameMetric, moveMetrics, err := g.Run(ctx)
	if err != nil {
		return err
	}
	for _, m := range moveMetrics {
		fmt.Printf("%d%s %s\n", m.Turn, m.Player[:1], m.Move)
	}
	fmt.Println(g.Session().Board())
	log.Info().
		Str("winner", winner.String()).
		Int("moves", gameMetric.TotalMoves).
		Dur("duration", gameMetric.Duration).
		Msg("self-play done")
	return nil
}

func runExperiment(ctx context.Context, name, out string) error {
	e, ok := experiments.ByName(name)
	if !ok {
		return errors.Errorf("unknown experiment %q", name)
	}
	dir, err := e.RunAndStore(ctx, out)
	if err != nil {
		return err
	}
	log.Info().Msgf("results stored in %s", dir)
	return nil
}
