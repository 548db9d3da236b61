// Package game drives training episodes, connecting an environment to
// a learning agent through frame preprocessing, frame stacking and
// action repetition.
package game

import (
	"fmt"
	"math/rand"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/alpinerl/skidqn/environment"
	"github.com/alpinerl/skidqn/preprocess"
	"github.com/alpinerl/skidqn/utils/floatutils"
)

// Agent is the learning algorithm driven by an EpisodeRunner.
type Agent interface {
	// TakeAction selects an action for a stacked state vector
	TakeAction(state *mat.VecDense) (int, error)

	// AppendToMemory records a transition for later training
	AppendToMemory(state *mat.VecDense, action int, reward float64,
		nextState *mat.VecDense, done bool) error

	// Fit performs one training step if enough transitions have been
	// recorded, reporting the loss and whether training occurred
	Fit() (loss float64, fitted bool, err error)

	// Save checkpoints the agent to a file
	Save(path string) error
}

// Result reports the outcome of a single episode.
type Result struct {
	// Episode is the zero-based index of the finished episode
	Episode int

	// MaxScore is the largest reward obtained by a single action
	// during the episode, with rewards summed over repeated steps
	MaxScore float64

	// TotalScore is the sum of all rewards obtained during the episode
	TotalScore float64

	// Loss is the mean training loss over the episode, or 0 if no
	// training step ran
	Loss float64

	// Steps is the number of actions selected during the episode
	Steps int
}

// Callback is invoked with the Result of every finished episode.
type Callback func(Result)

// Config describes the episode loop.
type Config struct {
	// Episodes is the number of episodes to run
	Episodes int

	// StepsPerAction is the number of environment steps each selected
	// action is repeated for
	StepsPerAction int

	// FrameHistory is the number of consecutive frames stacked into
	// one state vector
	FrameHistory int

	// NoOperationMax bounds the random number of no-op steps taken at
	// the start of every episode before the agent takes control
	NoOperationMax int

	// FitFrequency is the number of actions between training steps
	FitFrequency int

	// ObserveSteps is the number of actions across all episodes before
	// the first training step
	ObserveSteps int

	// DownsampleScale is the stride of the frame downsampling
	DownsampleScale int

	// Render draws every frame the agent acts on
	Render bool

	// AgentSavePath is the file the agent is checkpointed to.
	// Checkpointing is disabled if AgentSaveInterval < 1.
	AgentSavePath     string
	AgentSaveInterval int
}

// Validate returns an error describing why the configuration cannot
// drive an episode loop, or nil if it can.
func (c Config) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("validate: episodes must be positive, got %d",
			c.Episodes)
	}
	if c.StepsPerAction < 1 {
		return fmt.Errorf("validate: steps per action must be positive, "+
			"got %d", c.StepsPerAction)
	}
	if c.FrameHistory < 1 {
		return fmt.Errorf("validate: frame history must be positive, "+
			"got %d", c.FrameHistory)
	}
	if c.NoOperationMax < 1 {
		return fmt.Errorf("validate: no-operation maximum must be "+
			"positive, got %d", c.NoOperationMax)
	}
	if c.FitFrequency < 1 {
		return fmt.Errorf("validate: fit frequency must be positive, "+
			"got %d", c.FitFrequency)
	}
	if c.ObserveSteps < 0 {
		return fmt.Errorf("validate: observe steps must be >= 0, got %d",
			c.ObserveSteps)
	}
	if c.DownsampleScale < 1 {
		return fmt.Errorf("validate: downsample scale must be positive, "+
			"got %d", c.DownsampleScale)
	}
	return nil
}

// EpisodeRunner repeatedly runs episodes of an environment, feeding
// stacked preprocessed frames to an agent and training it on a fixed
// schedule.
type EpisodeRunner struct {
	env    environment.Environment
	agent  Agent
	config Config

	// history holds the preprocessed frames of the stacking window,
	// newest frame at the front
	history *deque.Deque[*mat.VecDense]

	frameFeatures int // Size of one preprocessed frame
	actions       int // Total actions selected across all episodes

	rng *rand.Rand
	log zerolog.Logger
}

// NewEpisodeRunner creates and returns a new EpisodeRunner.
func NewEpisodeRunner(env environment.Environment, agent Agent,
	config Config, log zerolog.Logger, seed int64) (*EpisodeRunner,
	error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newepisoderunner: %v", err)
	}

	rows, cols := env.FrameSize()
	downRows, downCols := preprocess.DownsampledSize(rows, cols,
		config.DownsampleScale)

	return &EpisodeRunner{
		env:           env,
		agent:         agent,
		config:        config,
		history:       deque.New[*mat.VecDense](),
		frameFeatures: downRows * downCols,
		rng:           rand.New(rand.NewSource(seed)),
		log:           log,
	}, nil
}

// Run drives config.Episodes episodes, invoking callback with the
// Result of each. A nil callback is allowed.
func (r *EpisodeRunner) Run(callback Callback) error {
	for episode := 0; episode < r.config.Episodes; episode++ {
		result, err := r.runEpisode(episode)
		if err != nil {
			return fmt.Errorf("run: episode %d: %v", episode, err)
		}

		r.log.Debug().
			Int("episode", episode).
			Float64("maxScore", result.MaxScore).
			Float64("totalScore", result.TotalScore).
			Float64("loss", result.Loss).
			Int("steps", result.Steps).
			Msg("episode finished")

		if callback != nil {
			callback(result)
		}

		if r.config.AgentSaveInterval > 0 &&
			(episode+1)%r.config.AgentSaveInterval == 0 {
			if err := r.agent.Save(r.config.AgentSavePath); err != nil {
				return fmt.Errorf("run: could not checkpoint agent: %v", err)
			}
			r.log.Info().
				Int("episode", episode).
				Str("path", r.config.AgentSavePath).
				Msg("agent checkpointed")
		}
	}
	return nil
}

// runEpisode runs a single episode to termination.
func (r *EpisodeRunner) runEpisode(episode int) (Result, error) {
	result := Result{Episode: episode}

	frame := r.env.Reset()

	// Let the environment run on its own for a random number of steps
	// so that episodes do not all start from the same state
	done := false
	noOperations := 1 + r.rng.Intn(r.config.NoOperationMax)
	for i := 0; i < noOperations && !done; i++ {
		frame, _, done = r.env.Step(0)
	}

	if err := r.seedHistory(frame); err != nil {
		return Result{}, err
	}

	var losses []float64
	for !done {
		state := r.stackedState()

		action, err := r.agent.TakeAction(state)
		if err != nil {
			return Result{}, err
		}

		// Repeat the selected action, recording one transition per
		// environment step
		actionScore := 0.0
		for i := 0; i < r.config.StepsPerAction && !done; i++ {
			var reward float64
			frame, reward, done = r.env.Step(action)
			actionScore += reward

			next, err := r.pushFrame(frame)
			if err != nil {
				return Result{}, err
			}
			if err := r.agent.AppendToMemory(state, action, reward, next,
				done); err != nil {
				return Result{}, err
			}
			state = next
		}

		if r.config.Render {
			r.env.Render()
		}

		result.TotalScore += actionScore
		if result.Steps == 0 {
			result.MaxScore = actionScore
		} else {
			result.MaxScore = floatutils.Max(result.MaxScore, actionScore)
		}

		result.Steps++
		r.actions++

		if r.actions > r.config.ObserveSteps &&
			r.actions%r.config.FitFrequency == 0 {
			loss, fitted, err := r.agent.Fit()
			if err != nil {
				return Result{}, err
			}
			if fitted {
				losses = append(losses, loss)
			}
		}
	}

	result.Loss = floatutils.Mean(losses)
	return result, nil
}

// seedHistory fills the stacking window with copies of the first frame
// of an episode.
func (r *EpisodeRunner) seedHistory(frame environment.Frame) error {
	first, err := preprocess.Frame(frame, r.config.DownsampleScale)
	if err != nil {
		return err
	}

	r.history.Clear()
	r.history.PushFront(first)
	for i := 1; i < r.config.FrameHistory; i++ {
		copied := mat.NewVecDense(first.Len(), nil)
		copied.CopyVec(first)
		r.history.PushFront(copied)
	}
	return nil
}

// pushFrame preprocesses a frame into the stacking window, evicting
// the oldest frame, and returns the resulting stacked state.
func (r *EpisodeRunner) pushFrame(frame environment.Frame) (*mat.VecDense,
	error) {
	processed, err := preprocess.Frame(frame, r.config.DownsampleScale)
	if err != nil {
		return nil, err
	}

	r.history.PushFront(processed)
	for r.history.Len() > r.config.FrameHistory {
		r.history.PopBack()
	}
	return r.stackedState(), nil
}

// stackedState concatenates the frames of the stacking window into a
// single state vector, newest frame first.
func (r *EpisodeRunner) stackedState() *mat.VecDense {
	state := mat.NewVecDense(r.frameFeatures*r.config.FrameHistory, nil)
	for i := 0; i < r.history.Len(); i++ {
		frame := r.history.At(i)
		for j := 0; j < frame.Len(); j++ {
			state.SetVec(i*r.frameFeatures+j, frame.AtVec(j))
		}
	}
	return state
}
