package dqn

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"github.com/alpinerl/skidqn/network"
	"github.com/alpinerl/skidqn/policy"
)

// ConfigMismatchError describes a disagreement between a saved agent
// and the configuration it is being loaded with.
type ConfigMismatchError struct {
	Field string
	Want  interface{}
	Have  interface{}
}

// Error implements the error interface
func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("saved agent %v (%v) does not match "+
		"configuration (%v)", e.Field, e.Have, e.Want)
}

// IsConfigMismatch returns whether err was caused by loading a saved
// agent with an incompatible configuration.
func IsConfigMismatch(err error) bool {
	var mismatch *ConfigMismatchError
	return errors.As(err, &mismatch)
}

// Save writes the agent's learned weights, exploration schedule and
// gradient step counter to the file at path, overwriting any existing
// file. The replay memory is not persisted.
func (d *DQN) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create agent file: %v", err)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	if err := enc.Encode(d.shape); err != nil {
		return fmt.Errorf("save: could not encode state shape: %v", err)
	}
	if err := enc.Encode(d.numActions); err != nil {
		return fmt.Errorf("save: could not encode number of actions: %v",
			err)
	}
	if err := enc.Encode(&d.trainNet); err != nil {
		return fmt.Errorf("save: could not encode network: %v", err)
	}
	if err := enc.Encode(d.policy); err != nil {
		return fmt.Errorf("save: could not encode policy: %v", err)
	}
	if err := enc.Encode(d.gradientSteps); err != nil {
		return fmt.Errorf("save: could not encode gradient steps: %v", err)
	}

	return nil
}

// Load reads an agent saved with Save and resumes it with the given
// configuration. The saved weights and gradient step counter are
// restored; every hyperparameter, including the exploration schedule,
// is taken from config so that a resumed run can override it. The
// saved agent must have been trained on states of the same shape and
// the same number of actions.
func Load(path string, shape StateShape, numActions int,
	config Config) (*DQN, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: could not open agent file: %v", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)

	var savedShape StateShape
	if err := dec.Decode(&savedShape); err != nil {
		return nil, fmt.Errorf("load: could not decode state shape: %v", err)
	}
	if savedShape != shape {
		return nil, &ConfigMismatchError{
			Field: "state shape",
			Want:  shape,
			Have:  savedShape,
		}
	}

	var savedActions int
	if err := dec.Decode(&savedActions); err != nil {
		return nil, fmt.Errorf("load: could not decode number of "+
			"actions: %v", err)
	}
	if savedActions != numActions {
		return nil, &ConfigMismatchError{
			Field: "number of actions",
			Want:  numActions,
			Have:  savedActions,
		}
	}

	var net network.NeuralNet
	if err := dec.Decode(&net); err != nil {
		return nil, fmt.Errorf("load: could not decode network: %v", err)
	}

	// The stored exploration schedule is decoded to advance the stream
	// but discarded in favour of the one described by config
	if err := dec.Decode(&policy.EGreedy{}); err != nil {
		return nil, fmt.Errorf("load: could not decode policy: %v", err)
	}

	var gradientSteps int
	if err := dec.Decode(&gradientSteps); err != nil {
		return nil, fmt.Errorf("load: could not decode gradient steps: %v",
			err)
	}

	d, err := New(shape, numActions, config)
	if err != nil {
		return nil, fmt.Errorf("load: %v", err)
	}

	for _, target := range []network.NeuralNet{d.trainNet, d.targetNet,
		d.policyNet} {
		if err := target.Set(net); err != nil {
			return nil, fmt.Errorf("load: could not restore weights: %v",
				err)
		}
	}
	d.gradientSteps = gradientSteps

	return d, nil
}
