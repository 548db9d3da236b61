package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.NoError(t, c.Validate(zerolog.Nop()))
	assert.Equal(t, 1000, c.Game.Episodes)
	assert.Equal(t, 32, c.Agent.BatchSize)
	assert.Equal(t, "rmsprop", c.Agent.Solver)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
seed: 7
game:
  episodes: 5
  downsample: 4
agent:
  epsilon: 0.5
  final_epsilon: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, 5, c.Game.Episodes)
	assert.Equal(t, 4, c.Game.DownsampleScale)
	assert.Equal(t, 0.5, c.Agent.Epsilon)
	assert.Equal(t, 0.05, c.Agent.FinalEpsilon)

	// Unset options keep their defaults
	assert.Equal(t, 3, c.Game.StepsPerAction)
	assert.Equal(t, 20000, c.Agent.MemoryCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateFatalConfigurations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"epsilon above one", func(c *Config) { c.Agent.Epsilon = 1.5 }},
		{"final epsilon above initial", func(c *Config) {
			c.Agent.Epsilon = 0.1
			c.Agent.FinalEpsilon = 0.5
		}},
		{"downsample too large", func(c *Config) {
			c.Game.DownsampleScale = 16
		}},
		{"missing agent file", func(c *Config) {
			c.Agent.File = "no-such-agent.bin"
		}},
		{"observe below batch", func(c *Config) {
			c.Agent.ObserveSteps = c.Agent.BatchSize - 1
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Load("")
			require.NoError(t, err)
			tc.mutate(&c)
			assert.Error(t, c.Validate(zerolog.Nop()))
		})
	}
}

func TestValidateWarnsWithoutFailing(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	c.Agent.TargetSyncInterval = 10
	c.Game.FrameHistory = 12
	c.Agent.EpsilonDecay = 2.0
	c.Agent.ObserveSteps = 100
	c.Results.InfoIntervalMean = 1

	var buf strings.Builder
	log := zerolog.New(&buf)

	assert.NoError(t, c.Validate(log))
	assert.Equal(t, 5, strings.Count(buf.String(), `"level":"warn"`))
}

func TestValidateAcceptsExistingAgentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c, err := Load("")
	require.NoError(t, err)
	c.Agent.File = path

	assert.NoError(t, c.Validate(zerolog.Nop()))
}
