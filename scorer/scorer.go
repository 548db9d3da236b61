// Package scorer collects per-episode training results, reports them
// at fixed intervals and persists them to disk.
package scorer

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/alpinerl/skidqn/game"
	"github.com/alpinerl/skidqn/utils/floatutils"
)

// Config describes the reporting and persistence schedule of a Scorer.
type Config struct {
	// InfoIntervalCurrent is the number of episodes between reports of
	// a single episode's scores
	InfoIntervalCurrent int

	// InfoIntervalMean is the number of episodes between reports of
	// the scores averaged over that many episodes
	InfoIntervalMean int

	// ResultsSavePath is the file the collected results are persisted
	// to. Persistence is disabled if ResultsSaveInterval < 1.
	ResultsSavePath     string
	ResultsSaveInterval int
}

// Validate returns an error describing why the configuration is
// unusable, or nil if it is.
func (c Config) Validate() error {
	if c.InfoIntervalCurrent < 1 {
		return fmt.Errorf("validate: current info interval must be "+
			"positive, got %d", c.InfoIntervalCurrent)
	}
	if c.InfoIntervalMean < 1 {
		return fmt.Errorf("validate: mean info interval must be "+
			"positive, got %d", c.InfoIntervalMean)
	}
	return nil
}

// Results holds the per-episode records collected over a training run.
type Results struct {
	MaxScores   []float64
	TotalScores []float64
	Losses      []float64
}

// Episodes returns the number of recorded episodes.
func (r Results) Episodes() int {
	return len(r.TotalScores)
}

// Scorer records the Result of every finished episode. Its Record
// method is used as the episode callback of an EpisodeRunner.
type Scorer struct {
	config  Config
	results Results
	log     zerolog.Logger
}

// New creates and returns a new Scorer.
func New(config Config, log zerolog.Logger) (*Scorer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return &Scorer{config: config, log: log}, nil
}

// Record stores the result of a finished episode and emits any
// interval reports that fall due.
func (s *Scorer) Record(result game.Result) {
	s.results.MaxScores = append(s.results.MaxScores, result.MaxScore)
	s.results.TotalScores = append(s.results.TotalScores, result.TotalScore)
	s.results.Losses = append(s.results.Losses, result.Loss)

	episodes := s.results.Episodes()
	if episodes%s.config.InfoIntervalCurrent == 0 {
		s.log.Info().
			Int("episode", result.Episode).
			Float64("maxScore", result.MaxScore).
			Float64("totalScore", result.TotalScore).
			Float64("loss", result.Loss).
			Int("steps", result.Steps).
			Msg("episode scores")
	}

	if episodes%s.config.InfoIntervalMean == 0 {
		n := s.config.InfoIntervalMean
		s.log.Info().
			Int("episodes", n).
			Float64("meanMaxScore",
				floatutils.Mean(s.results.MaxScores[episodes-n:])).
			Float64("meanTotalScore",
				floatutils.Mean(s.results.TotalScores[episodes-n:])).
			Float64("meanLoss",
				floatutils.Mean(s.results.Losses[episodes-n:])).
			Msg("mean episode scores")
	}

	if s.config.ResultsSaveInterval > 0 &&
		episodes%s.config.ResultsSaveInterval == 0 {
		if err := s.Save(s.config.ResultsSavePath); err != nil {
			s.log.Error().Err(err).Msg("could not persist results")
		}
	}
}

// Results returns the records collected so far.
func (s *Scorer) Results() Results {
	return s.results
}

// Save persists the collected results to the file at path, overwriting
// any existing file.
func (s *Scorer) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create results file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(s.results); err != nil {
		return fmt.Errorf("save: could not encode results: %v", err)
	}
	return nil
}

// LoadResults reads results persisted with Save.
func LoadResults(path string) (Results, error) {
	file, err := os.Open(path)
	if err != nil {
		return Results{}, fmt.Errorf("loadresults: could not open results "+
			"file: %v", err)
	}
	defer file.Close()

	var results Results
	if err := gob.NewDecoder(file).Decode(&results); err != nil {
		return Results{}, fmt.Errorf("loadresults: could not decode "+
			"results: %v", err)
	}
	return results, nil
}
