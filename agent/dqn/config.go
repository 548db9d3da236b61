package dqn

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/alpinerl/skidqn/network"
	"github.com/alpinerl/skidqn/solver"
)

// Config describes the hyperparameters of a DQN agent.
type Config struct {
	// Value network architecture. For index i, HiddenSizes[i] is the
	// number of units in hidden layer i, Biases[i] determines whether
	// the layer has a bias unit and Activations[i] is its activation
	// function. A final linear layer mapping to one action value per
	// action is always added.
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation
	InitWFn     G.InitWFn

	// Solver selects the gradient descent algorithm by name, one of
	// "adam", "rmsprop" or "vanilla"
	Solver       string
	LearningRate float64

	BatchSize      int
	MemoryCapacity int

	// Gamma is the discount factor applied to future action values
	Gamma float64

	// TargetSyncInterval is the number of gradient steps between hard
	// copies of the learned weights into the target network
	TargetSyncInterval int

	// Exploration schedule
	Epsilon      float64
	FinalEpsilon float64
	Decay        float64
	ObserveSteps int

	Seed int64
}

// Validate returns an error describing why the configuration cannot
// construct a valid agent, or nil if it can.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, got %d",
			c.BatchSize)
	}
	if c.MemoryCapacity < c.BatchSize {
		return fmt.Errorf("validate: memory capacity (%d) cannot be "+
			"smaller than batch size (%d)", c.MemoryCapacity, c.BatchSize)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v",
			c.Gamma)
	}
	if c.TargetSyncInterval < 1 {
		return fmt.Errorf("validate: target sync interval must be "+
			"positive, got %d", c.TargetSyncInterval)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive, "+
			"got %v", c.LearningRate)
	}
	if _, err := solver.FromName(c.Solver, c.LearningRate,
		c.BatchSize); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initialization scheme")
	}
	if len(c.HiddenSizes) != len(c.Biases) ||
		len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: hidden sizes (%d), biases (%d) and "+
			"activations (%d) must have equal lengths", len(c.HiddenSizes),
			len(c.Biases), len(c.Activations))
	}
	return nil
}
