package scorer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinerl/skidqn/game"
)

func testScorerConfig() Config {
	return Config{
		InfoIntervalCurrent: 1,
		InfoIntervalMean:    2,
	}
}

func TestNewRejectsInvalidIntervals(t *testing.T) {
	_, err := New(Config{InfoIntervalCurrent: 0, InfoIntervalMean: 1},
		zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{InfoIntervalCurrent: 1, InfoIntervalMean: 0},
		zerolog.Nop())
	assert.Error(t, err)
}

func TestRecordAccumulatesResults(t *testing.T) {
	s, err := New(testScorerConfig(), zerolog.Nop())
	require.NoError(t, err)

	s.Record(game.Result{Episode: 0, MaxScore: 9, TotalScore: 14, Loss: 0.5})
	s.Record(game.Result{Episode: 1, MaxScore: 3, TotalScore: 7, Loss: 0.25})

	results := s.Results()
	assert.Equal(t, 2, results.Episodes())
	assert.Equal(t, []float64{9, 3}, results.MaxScores)
	assert.Equal(t, []float64{14, 7}, results.TotalScores)
	assert.Equal(t, []float64{0.5, 0.25}, results.Losses)
}

func TestIntervalReporting(t *testing.T) {
	var buf strings.Builder
	log := zerolog.New(&buf)

	config := Config{InfoIntervalCurrent: 2, InfoIntervalMean: 3}
	s, err := New(config, log)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		s.Record(game.Result{Episode: i, TotalScore: float64(i)})
	}

	logged := buf.String()
	assert.Equal(t, 3, strings.Count(logged, `"message":"episode scores"`))
	assert.Equal(t, 2,
		strings.Count(logged, `"message":"mean episode scores"`))
}

func TestPeriodicPersistenceAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.bin")

	config := testScorerConfig()
	config.ResultsSavePath = path
	config.ResultsSaveInterval = 2
	s, err := New(config, zerolog.Nop())
	require.NoError(t, err)

	s.Record(game.Result{Episode: 0, MaxScore: 1, TotalScore: 2, Loss: 0.5})
	_, err = LoadResults(path)
	assert.Error(t, err, "results persisted before the save interval")

	s.Record(game.Result{Episode: 1, MaxScore: 3, TotalScore: 4, Loss: 0.25})

	loaded, err := LoadResults(path)
	require.NoError(t, err)
	assert.Equal(t, s.Results(), loaded)
}

func TestLoadResultsMissingFile(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
