// Command skidqn trains a DQN agent on the slope environment.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	G "gorgonia.org/gorgonia"

	"github.com/alpinerl/skidqn/agent/dqn"
	"github.com/alpinerl/skidqn/config"
	"github.com/alpinerl/skidqn/environment/slope"
	"github.com/alpinerl/skidqn/game"
	"github.com/alpinerl/skidqn/network"
	"github.com/alpinerl/skidqn/preprocess"
	"github.com/alpinerl/skidqn/scorer"
)

func main() {
	configPath := flag.String("config", "",
		"path to a YAML configuration file; defaults apply when empty")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	// log.Fatal exits without running deferred cleanup, so everything
	// that defers lives in run
	if err := run(*configPath, log); err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
}

func run(configPath string, log zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("run: could not load configuration: %v", err)
	}
	if err := cfg.Validate(log); err != nil {
		return fmt.Errorf("run: invalid configuration: %v", err)
	}

	env, err := slope.New(cfg.Environment.Rows, cfg.Environment.Cols,
		cfg.Environment.MaxSteps, uint64(cfg.Seed))
	if err != nil {
		return fmt.Errorf("run: could not create environment: %v", err)
	}
	if cfg.Game.Render {
		env.SetRenderWriter(os.Stdout)
	}

	rows, cols := preprocess.DownsampledSize(cfg.Environment.Rows,
		cfg.Environment.Cols, cfg.Game.DownsampleScale)
	shape := dqn.StateShape{
		Rows:    rows,
		Cols:    cols,
		History: cfg.Game.FrameHistory,
	}

	agent, err := createAgent(cfg, shape, env.ActionSpaceSize(), log)
	if err != nil {
		return fmt.Errorf("run: could not create agent: %v", err)
	}
	defer agent.Close()

	scores, err := scorer.New(scorer.Config{
		InfoIntervalCurrent: cfg.Results.InfoIntervalCurrent,
		InfoIntervalMean:    cfg.Results.InfoIntervalMean,
		ResultsSavePath:     cfg.Results.SavePath,
		ResultsSaveInterval: cfg.Results.SaveInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("run: could not create scorer: %v", err)
	}

	runner, err := game.NewEpisodeRunner(env, agent, game.Config{
		Episodes:          cfg.Game.Episodes,
		StepsPerAction:    cfg.Game.StepsPerAction,
		FrameHistory:      cfg.Game.FrameHistory,
		NoOperationMax:    cfg.Game.NoOperation,
		FitFrequency:      cfg.Game.FitFrequency,
		ObserveSteps:      cfg.Agent.ObserveSteps,
		DownsampleScale:   cfg.Game.DownsampleScale,
		Render:            cfg.Game.Render,
		AgentSavePath:     cfg.Agent.SavePath,
		AgentSaveInterval: cfg.Agent.SaveInterval,
	}, log, cfg.Seed)
	if err != nil {
		return fmt.Errorf("run: could not create episode runner: %v", err)
	}

	log.Info().
		Int("episodes", cfg.Game.Episodes).
		Int("stateFeatures", shape.Features()).
		Int("actions", env.ActionSpaceSize()).
		Msg("training")

	if err := runner.Run(scores.Record); err != nil {
		return fmt.Errorf("run: %v", err)
	}

	if err := agent.Save(cfg.Agent.SavePath); err != nil {
		return fmt.Errorf("run: could not save agent: %v", err)
	}
	if err := scores.Save(cfg.Results.SavePath); err != nil {
		return fmt.Errorf("run: could not save results: %v", err)
	}

	log.Info().
		Int("episodes", scores.Results().Episodes()).
		Str("agent", cfg.Agent.SavePath).
		Str("results", cfg.Results.SavePath).
		Msg("training finished")
	return nil
}

// createAgent builds a fresh agent or resumes one from the checkpoint
// named by the configuration.
func createAgent(cfg config.Config, shape dqn.StateShape,
	numActions int, log zerolog.Logger) (*dqn.DQN, error) {
	activations := make([]*network.Activation, len(cfg.Agent.HiddenSizes))
	biases := make([]bool, len(cfg.Agent.HiddenSizes))
	for i := range cfg.Agent.HiddenSizes {
		activations[i] = network.ReLU()
		biases[i] = true
	}

	agentConfig := dqn.Config{
		HiddenSizes: cfg.Agent.HiddenSizes,
		Biases:      biases,
		Activations: activations,
		InitWFn:     G.GlorotU(1.0),

		Solver:       cfg.Agent.Solver,
		LearningRate: cfg.Agent.LearningRate,

		BatchSize:      cfg.Agent.BatchSize,
		MemoryCapacity: cfg.Agent.MemoryCapacity,

		Gamma:              cfg.Agent.Gamma,
		TargetSyncInterval: cfg.Agent.TargetSyncInterval,

		Epsilon:      cfg.Agent.Epsilon,
		FinalEpsilon: cfg.Agent.FinalEpsilon,
		Decay:        cfg.Agent.EpsilonDecay,
		ObserveSteps: cfg.Agent.ObserveSteps,

		Seed: cfg.Seed,
	}

	if cfg.Agent.File == "" {
		return dqn.New(shape, numActions, agentConfig)
	}

	agent, err := dqn.Load(cfg.Agent.File, shape, numActions, agentConfig)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file", cfg.Agent.File).
		Int("gradientSteps", agent.GradientSteps()).
		Msg("resumed agent from checkpoint")
	return agent, nil
}
