// Package policy implements the epsilon-greedy exploration policy
// with a linearly decaying exploration rate.
package policy

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"

	"github.com/alpinerl/skidqn/utils/floatutils"
)

// EGreedy selects a uniformly random action with probability epsilon
// and the highest-valued action otherwise. Epsilon is held at its
// initial value for an observation phase of observeSteps selections,
// then decremented by decay on every selection until it reaches
// finalEpsilon, where it stays. Ties on the greedy branch break toward
// the lowest action id, so greedy selection is deterministic.
type EGreedy struct {
	epsilon        float64
	initialEpsilon float64
	finalEpsilon   float64
	decay          float64

	observeSteps int
	numActions   int
	steps        int

	rng  *rand.Rand
	seed int64
}

// NewEGreedy creates and returns a new EGreedy policy over numActions
// actions.
func NewEGreedy(epsilon, finalEpsilon, decay float64, observeSteps,
	numActions int, seed int64) (*EGreedy, error) {
	if epsilon > 1 || epsilon < 0 {
		return nil, fmt.Errorf("newegreedy: epsilon must be in [0, 1], "+
			"got %v", epsilon)
	}
	if finalEpsilon > epsilon {
		return nil, fmt.Errorf("newegreedy: final epsilon (%v) cannot "+
			"exceed epsilon (%v)", finalEpsilon, epsilon)
	}
	if finalEpsilon < 0 {
		return nil, fmt.Errorf("newegreedy: final epsilon must be >= 0, "+
			"got %v", finalEpsilon)
	}
	if decay < 0 {
		return nil, fmt.Errorf("newegreedy: decay must be >= 0, got %v",
			decay)
	}
	if observeSteps < 0 {
		return nil, fmt.Errorf("newegreedy: observe steps must be >= 0, "+
			"got %v", observeSteps)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("newegreedy: need at least one action")
	}

	return &EGreedy{
		epsilon:        epsilon,
		initialEpsilon: epsilon,
		finalEpsilon:   finalEpsilon,
		decay:          decay,
		observeSteps:   observeSteps,
		numActions:     numActions,
		rng:            rand.New(rand.NewSource(seed)),
		seed:           seed,
	}, nil
}

// SelectAction returns an action for the given action values and
// advances the exploration schedule by one step.
func (e *EGreedy) SelectAction(actionValues []float64) int {
	defer e.advance()

	if e.rng.Float64() < e.epsilon {
		return e.rng.Intn(e.numActions)
	}
	return floatutils.ArgMax(actionValues)
}

// advance steps the exploration schedule. Epsilon stays fixed during
// the observation phase, then decays linearly to its final value.
func (e *EGreedy) advance() {
	e.steps++
	if e.steps <= e.observeSteps {
		return
	}
	e.epsilon = floatutils.Clip(e.epsilon-e.decay, e.finalEpsilon,
		e.initialEpsilon)
}

// Epsilon returns the current exploration rate.
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}

// Steps returns the number of action selections made so far.
func (e *EGreedy) Steps() int {
	return e.steps
}

// NumActions returns the number of actions the policy chooses between.
func (e *EGreedy) NumActions() int {
	return e.numActions
}

// GobEncode implements the gob.GobEncoder interface
func (e *EGreedy) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	fields := []interface{}{
		e.epsilon, e.initialEpsilon, e.finalEpsilon, e.decay,
		e.observeSteps, e.numActions, e.steps, e.seed,
	}
	for _, field := range fields {
		if err := enc.Encode(field); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode policy: %v",
				err)
		}
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// policy's RNG is reseeded from the persisted seed.
func (e *EGreedy) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	fields := []interface{}{
		&e.epsilon, &e.initialEpsilon, &e.finalEpsilon, &e.decay,
		&e.observeSteps, &e.numActions, &e.steps, &e.seed,
	}
	for _, field := range fields {
		if err := dec.Decode(field); err != nil {
			return fmt.Errorf("gobdecode: could not decode policy: %v", err)
		}
	}

	e.rng = rand.New(rand.NewSource(e.seed))
	return nil
}
