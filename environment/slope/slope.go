// Package slope implements a small deterministic skiing environment.
//
// A skier sits near the top of a grid while the slope scrolls upward
// beneath it. Slalom gates appear on the slope as it scrolls; steering
// through a gate is rewarded, missing one is penalised, and colliding
// with a gate post ends the episode. The environment is a lightweight
// stand-in for an Atari emulator: it emits raw RGB frames and consumes
// discrete actions through the environment.Environment interface.
package slope

import (
	"fmt"
	"io"

	"golang.org/x/exp/rand"

	"github.com/alpinerl/skidqn/environment"
)

// Actions available to the skier
const (
	ActionNoop = iota
	ActionLeft
	ActionRight
	NumActions
)

// Reward scheme
const (
	stepReward  = -1.0
	gateReward  = 10.0
	missPenalty = -5.0
	crashReward = -30.0
)

const (
	skierRow     = 1 // grid row the skier occupies
	gateHalfGap  = 1 // skier must be within this many columns of a gate centre
	postOffset   = 2 // gate posts sit this many columns either side of the centre
	gateDensity  = 3 // on average one gate every gateDensity scrolled rows
	noGate       = -1
)

// Slope is a scrolling slalom course on a rows x cols grid.
type Slope struct {
	rows     int
	cols     int
	maxSteps int
	seed     uint64
	rng      *rand.Rand

	skier int   // current skier column
	gates []int // gate centre column per visible row, noGate if none
	steps int
	done  bool

	renderW io.Writer
}

// New returns a new Slope environment. Episodes last at most maxSteps
// environment steps. The same seed always produces the same course.
func New(rows, cols, maxSteps int, seed uint64) (*Slope, error) {
	if rows < skierRow+2 || cols < 2*postOffset+1 {
		return nil, fmt.Errorf("new: grid too small for a slalom course "+
			"(%vx%v)", rows, cols)
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("new: maxSteps must be positive")
	}

	s := &Slope{
		rows:     rows,
		cols:     cols,
		maxSteps: maxSteps,
		seed:     seed,
	}
	s.Reset()
	return s, nil
}

// Reset starts a new episode and returns its first frame. The course
// is regenerated from the environment's seed, so every episode of a
// given Slope runs the same course.
func (s *Slope) Reset() environment.Frame {
	s.rng = rand.New(rand.NewSource(s.seed))
	s.skier = s.cols / 2
	s.steps = 0
	s.done = false

	s.gates = make([]int, s.rows)
	for i := range s.gates {
		s.gates[i] = noGate
	}
	// Populate the visible slope below the skier
	for r := skierRow + 1; r < s.rows; r++ {
		s.gates[r] = s.spawnGate()
	}

	return s.frame()
}

// Step takes a single action, scrolls the slope one row and returns
// the resulting frame, the reward earned and whether the episode has
// ended. Stepping a finished episode returns the final frame again
// with zero reward.
func (s *Slope) Step(action int) (environment.Frame, float64, bool) {
	if s.done {
		return s.frame(), 0, true
	}

	switch action {
	case ActionLeft:
		if s.skier > 0 {
			s.skier--
		}
	case ActionRight:
		if s.skier < s.cols-1 {
			s.skier++
		}
	}

	// Scroll the slope up one row and spawn the next stretch
	copy(s.gates, s.gates[1:])
	s.gates[s.rows-1] = s.spawnGate()

	reward := stepReward
	if centre := s.gates[skierRow]; centre != noGate {
		dist := s.skier - centre
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist <= gateHalfGap:
			reward += gateReward
		case dist == postOffset:
			// Hit a post
			reward += crashReward
			s.done = true
		default:
			reward += missPenalty
		}
	}

	s.steps++
	if s.steps >= s.maxSteps {
		s.done = true
	}

	return s.frame(), reward, s.done
}

// spawnGate decides whether the newly visible row carries a gate and,
// if so, picks a centre column with room for both posts.
func (s *Slope) spawnGate() int {
	if s.rng.Intn(gateDensity) != 0 {
		return noGate
	}
	return postOffset + s.rng.Intn(s.cols-2*postOffset)
}

// ActionSpaceSize returns the number of legal actions.
func (s *Slope) ActionSpaceSize() int { return NumActions }

// FrameSize returns the dimensions of emitted frames.
func (s *Slope) FrameSize() (int, int) { return s.rows, s.cols }

// Steps returns the number of environment steps taken this episode.
func (s *Slope) Steps() int { return s.steps }

// SetRenderWriter directs Render output to w. Rendering stays a no-op
// until a writer is set.
func (s *Slope) SetRenderWriter(w io.Writer) { s.renderW = w }

// Render draws the current course as ASCII art to the configured
// writer, if any.
func (s *Slope) Render() {
	if s.renderW == nil {
		return
	}
	for r := 0; r < s.rows; r++ {
		line := make([]byte, s.cols)
		for c := 0; c < s.cols; c++ {
			line[c] = '.'
		}
		if centre := s.gates[r]; centre != noGate {
			if centre-postOffset >= 0 {
				line[centre-postOffset] = '|'
			}
			if centre+postOffset < s.cols {
				line[centre+postOffset] = '|'
			}
		}
		if r == skierRow {
			line[s.skier] = 'S'
		}
		fmt.Fprintf(s.renderW, "%s\n", line)
	}
	fmt.Fprintln(s.renderW)
}

// Pixel colours for rendered frames
var (
	snowPixel  = [3]uint8{235, 235, 245}
	postPixel  = [3]uint8{20, 20, 200}
	skierPixel = [3]uint8{200, 30, 30}
)

// frame rasterises the course into a raw RGB frame.
func (s *Slope) frame() environment.Frame {
	pixels := make([]uint8, s.rows*s.cols*3)
	set := func(r, c int, p [3]uint8) {
		i := (r*s.cols + c) * 3
		pixels[i], pixels[i+1], pixels[i+2] = p[0], p[1], p[2]
	}

	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			set(r, c, snowPixel)
		}
	}
	for r, centre := range s.gates {
		if centre == noGate {
			continue
		}
		if centre-postOffset >= 0 {
			set(r, centre-postOffset, postPixel)
		}
		if centre+postOffset < s.cols {
			set(r, centre+postOffset, postPixel)
		}
	}
	set(skierRow, s.skier, skierPixel)

	return environment.Frame{Pixels: pixels, Rows: s.rows, Cols: s.cols}
}
