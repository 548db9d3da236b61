// Package config loads, defaults and validates the run configuration.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/alpinerl/skidqn/preprocess"
)

// EnvironmentConfig describes the slope environment.
type EnvironmentConfig struct {
	Rows     int `mapstructure:"rows"`
	Cols     int `mapstructure:"cols"`
	MaxSteps int `mapstructure:"max_steps"`
}

// GameConfig describes the episode loop.
type GameConfig struct {
	Episodes        int  `mapstructure:"episodes"`
	StepsPerAction  int  `mapstructure:"steps_per_action"`
	FrameHistory    int  `mapstructure:"agent_frame_history"`
	NoOperation     int  `mapstructure:"no_operation"`
	FitFrequency    int  `mapstructure:"fit_frequency"`
	DownsampleScale int  `mapstructure:"downsample"`
	Render          bool `mapstructure:"render"`
}

// AgentConfig describes the DQN agent.
type AgentConfig struct {
	HiddenSizes  []int   `mapstructure:"hidden_sizes"`
	Solver       string  `mapstructure:"solver"`
	LearningRate float64 `mapstructure:"learning_rate"`

	BatchSize      int `mapstructure:"batch_size"`
	MemoryCapacity int `mapstructure:"replay_memory_size"`

	Gamma              float64 `mapstructure:"gamma"`
	TargetSyncInterval int     `mapstructure:"target_model_change"`

	Epsilon      float64 `mapstructure:"epsilon"`
	FinalEpsilon float64 `mapstructure:"final_epsilon"`
	EpsilonDecay float64 `mapstructure:"epsilon_decay"`
	ObserveSteps int     `mapstructure:"total_observe_count"`

	// File is an existing checkpoint to resume from; empty starts a
	// fresh agent
	File         string `mapstructure:"file"`
	SavePath     string `mapstructure:"save_path"`
	SaveInterval int    `mapstructure:"save_interval"`
}

// ResultsConfig describes score reporting and persistence.
type ResultsConfig struct {
	InfoIntervalCurrent int    `mapstructure:"info_interval_current"`
	InfoIntervalMean    int    `mapstructure:"info_interval_mean"`
	SavePath            string `mapstructure:"save_path"`
	SaveInterval        int    `mapstructure:"save_interval"`
}

// Config is the full run configuration.
type Config struct {
	Seed        int64             `mapstructure:"seed"`
	Environment EnvironmentConfig `mapstructure:"environment"`
	Game        GameConfig        `mapstructure:"game"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Results     ResultsConfig     `mapstructure:"results"`
}

// setDefaults registers a default for every recognized option.
func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)

	v.SetDefault("environment.rows", 32)
	v.SetDefault("environment.cols", 32)
	v.SetDefault("environment.max_steps", 1000)

	v.SetDefault("game.episodes", 1000)
	v.SetDefault("game.steps_per_action", 3)
	v.SetDefault("game.agent_frame_history", 4)
	v.SetDefault("game.no_operation", 30)
	v.SetDefault("game.fit_frequency", 4)
	v.SetDefault("game.downsample", 2)
	v.SetDefault("game.render", false)

	v.SetDefault("agent.hidden_sizes", []int{128, 128})
	v.SetDefault("agent.solver", "rmsprop")
	v.SetDefault("agent.learning_rate", 0.00025)
	v.SetDefault("agent.batch_size", 32)
	v.SetDefault("agent.replay_memory_size", 20000)
	v.SetDefault("agent.gamma", 0.99)
	v.SetDefault("agent.target_model_change", 1000)
	v.SetDefault("agent.epsilon", 1.0)
	v.SetDefault("agent.final_epsilon", 0.1)
	v.SetDefault("agent.epsilon_decay", 0.0001)
	v.SetDefault("agent.total_observe_count", 1000)
	v.SetDefault("agent.file", "")
	v.SetDefault("agent.save_path", "agent.bin")
	v.SetDefault("agent.save_interval", 100)

	v.SetDefault("results.info_interval_current", 10)
	v.SetDefault("results.info_interval_mean", 100)
	v.SetDefault("results.save_path", "results.bin")
	v.SetDefault("results.save_interval", 100)
}

// Load reads the configuration from the file at path, falling back to
// the defaults for any unset option. An empty path loads the defaults
// only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("load: could not read config "+
				"file: %v", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("load: could not unmarshal config: %v",
			err)
	}
	return c, nil
}

// Validate checks the configuration before any training starts.
// Configurations that cannot run return an error; configurations that
// run but are likely to degrade learning quality are reported through
// log as warnings.
func (c Config) Validate(log zerolog.Logger) error {
	if c.Agent.Epsilon > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1], got %v",
			c.Agent.Epsilon)
	}
	if c.Agent.FinalEpsilon > c.Agent.Epsilon {
		return fmt.Errorf("validate: final epsilon (%v) cannot exceed "+
			"epsilon (%v)", c.Agent.FinalEpsilon, c.Agent.Epsilon)
	}

	if !preprocess.CanPassNet(c.Environment.Rows, c.Environment.Cols,
		c.Game.DownsampleScale) {
		rows, cols := preprocess.DownsampledSize(c.Environment.Rows,
			c.Environment.Cols, c.Game.DownsampleScale)
		return fmt.Errorf("validate: downsample scale %d leaves a %dx%d "+
			"frame, smaller than the %dx%d floor; the largest usable scale "+
			"is %d", c.Game.DownsampleScale, rows, cols,
			preprocess.MinFrameDim, preprocess.MinFrameDim,
			preprocess.MaxScale(c.Environment.Rows, c.Environment.Cols))
	}

	if c.Agent.File != "" {
		if _, err := os.Stat(c.Agent.File); err != nil {
			return fmt.Errorf("validate: agent file %q does not exist",
				c.Agent.File)
		}
	}

	if c.Agent.ObserveSteps < c.Agent.BatchSize {
		return fmt.Errorf("validate: observe count (%d) smaller than "+
			"batch size (%d) trains on an underfilled memory",
			c.Agent.ObserveSteps, c.Agent.BatchSize)
	}

	if c.Agent.TargetSyncInterval < 500 {
		log.Warn().
			Int("targetModelChange", c.Agent.TargetSyncInterval).
			Msg("target network is synchronized very frequently")
	}
	if c.Game.FrameHistory > 10 {
		log.Warn().
			Int("frameHistory", c.Game.FrameHistory).
			Msg("frame history is unusually deep")
	}
	if c.Game.DownsampleScale == 1 {
		log.Warn().Msg("downsample scale 1 keeps full-size frames")
	}
	if c.Agent.EpsilonDecay > c.Agent.Epsilon-c.Agent.FinalEpsilon {
		log.Warn().
			Float64("epsilonDecay", c.Agent.EpsilonDecay).
			Msg("epsilon decay reaches the final epsilon after one step")
	}
	if c.Agent.ObserveSteps < 500 {
		log.Warn().
			Int("totalObserveCount", c.Agent.ObserveSteps).
			Msg("observe phase is very short")
	}
	if c.Results.InfoIntervalMean == 1 {
		log.Warn().Msg("mean info interval 1 averages single episodes")
	}

	return nil
}
