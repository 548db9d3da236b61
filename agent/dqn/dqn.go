// Package dqn implements the deep Q-learning algorithm with experience
// replay and a periodically synchronized target network.
package dqn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/alpinerl/skidqn/network"
	"github.com/alpinerl/skidqn/policy"
	"github.com/alpinerl/skidqn/replay"
	"github.com/alpinerl/skidqn/solver"
)

// StateShape describes the shape of the preprocessed observations the
// agent consumes: History stacked grayscale frames of Rows x Cols
// pixels each.
type StateShape struct {
	Rows    int
	Cols    int
	History int
}

// Features returns the number of components in the flattened state
// vector.
func (s StateShape) Features() int {
	return s.Rows * s.Cols * s.History
}

// Validate returns an error if the shape has any non-positive
// dimension.
func (s StateShape) Validate() error {
	if s.Rows < 1 || s.Cols < 1 || s.History < 1 {
		return fmt.Errorf("validate: state shape dimensions must be "+
			"positive, got %dx%dx%d", s.Rows, s.Cols, s.History)
	}
	return nil
}

// DQN learns an action-value function with a neural network. Three
// structurally identical networks share one set of learned weights:
// policyNet predicts the action values of single states for action
// selection, trainNet computes the loss and receives the gradient
// updates over sampled minibatches, and targetNet provides the update
// target r + γ * max[Q(s', a')]. After every gradient step the learned
// weights are copied into policyNet; targetNet is synchronized only
// every TargetSyncInterval gradient steps.
type DQN struct {
	shape      StateShape
	numActions int

	policy *policy.EGreedy

	// Action selection network with a batch size of one
	policyNet   network.NeuralNet
	policyNetVM G.VM

	// Network for learning weights over batches of transitions
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     *solver.Solver

	// Network that provides the update target for a batch of
	// transitions
	targetNet   network.NeuralNet
	targetNetVM G.VM

	// nextStateActionValues is the input node in the graph of trainNet
	// holding the action values of the next states, computed by
	// targetNet. selectedActions holds the sampled actions as one-hot
	// rows so that the loss is computed on the selected action values
	// only.
	nextStateActionValues *G.Node
	rewards               *G.Node
	discounts             *G.Node
	selectedActions       *G.Node
	lossVal               G.Value

	memory *replay.Memory

	gamma              float64
	targetSyncInterval int
	gradientSteps      int
	batchSize          int
}

// New creates and returns a new DQN agent for states of the given
// shape and numActions available actions.
func New(shape StateShape, numActions int, config Config) (*DQN, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("new: need at least one action, got %d",
			numActions)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	features := shape.Features()
	batchSize := config.BatchSize

	// Action selection network
	policyNet, err := network.NewMLP(features, 1, numActions, G.NewGraph(),
		config.HiddenSizes, config.Biases, config.InitWFn,
		config.Activations)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %v",
			err)
	}
	policyNetVM := G.NewTapeMachine(policyNet.Graph())

	// Network that provides the update target
	targetNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	targetNetVM := G.NewTapeMachine(targetNet.Graph())

	// Network which learns the weights
	trainNet, err := policyNet.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create learning network: %v",
			err)
	}
	gTrain := trainNet.Graph()

	// Create nodes to compute the update target: r + γ * max[Q(s', a')]
	nextStateActionValues := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("targetActionVals"))
	rewards := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("reward"))
	discounts := G.NewVector(gTrain, tensor.Float64, G.WithShape(batchSize),
		G.WithName("discount"))

	updateTarget := G.Must(G.Max(nextStateActionValues, 1))
	updateTarget = G.Must(G.HadamardProd(updateTarget, discounts))
	updateTarget = G.Must(G.Add(updateTarget, rewards))

	// Actions taken at the sampled states, as one-hot rows. The network
	// outputs one value per action, so the loss is computed on the
	// predicted value of the selected action only.
	selectedActions := G.NewMatrix(gTrain, tensor.Float64,
		G.WithShape(batchSize, numActions), G.WithName("selectedActions"))
	selectedActionValues := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionValues = G.Must(G.Sum(selectedActionValues, 1))

	// Mean squared TD error
	losses := G.Must(G.Sub(updateTarget, selectedActionValues))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	d := &DQN{
		shape:      shape,
		numActions: numActions,

		policyNet:   policyNet,
		policyNetVM: policyNetVM,

		trainNet: trainNet,

		targetNet:   targetNet,
		targetNetVM: targetNetVM,

		nextStateActionValues: nextStateActionValues,
		rewards:               rewards,
		discounts:             discounts,
		selectedActions:       selectedActions,

		gamma:              config.Gamma,
		targetSyncInterval: config.TargetSyncInterval,
		batchSize:          batchSize,
	}
	G.Read(cost, &d.lossVal)

	if _, err := G.Grad(cost, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}
	d.trainNetVM = G.NewTapeMachine(gTrain,
		G.BindDualValues(trainNet.Learnables()...))

	d.solver, err = solver.FromName(config.Solver, config.LearningRate,
		batchSize)
	if err != nil {
		return nil, fmt.Errorf("new: could not create solver: %v", err)
	}

	d.policy, err = policy.NewEGreedy(config.Epsilon, config.FinalEpsilon,
		config.Decay, config.ObserveSteps, numActions, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %v", err)
	}

	d.memory, err = replay.NewMemory(config.MemoryCapacity, features,
		config.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay memory: %v",
			err)
	}

	return d, nil
}

// TakeAction predicts the action values of state with the policy
// network and selects an action with the exploration policy.
func (d *DQN) TakeAction(state *mat.VecDense) (int, error) {
	if state.Len() != d.shape.Features() {
		return 0, fmt.Errorf("takeaction: invalid state size\n\twant(%d)"+
			"\n\thave(%d)", d.shape.Features(), state.Len())
	}

	if err := d.policyNet.SetInput(state.RawVector().Data); err != nil {
		return 0, fmt.Errorf("takeaction: could not set input: %v", err)
	}
	if err := d.policyNetVM.RunAll(); err != nil {
		return 0, fmt.Errorf("takeaction: could not run policy network: %v",
			err)
	}

	// The output backing array is reused by the VM, so it is copied
	// before resetting
	data := d.policyNet.Output().Data().([]float64)
	actionValues := make([]float64, len(data))
	copy(actionValues, data)
	d.policyNetVM.Reset()

	return d.policy.SelectAction(actionValues), nil
}

// AppendToMemory records a transition in the replay memory.
func (d *DQN) AppendToMemory(state *mat.VecDense, action int,
	reward float64, nextState *mat.VecDense, done bool) error {
	if action < 0 || action >= d.numActions {
		return fmt.Errorf("appendtomemory: action %d out of range [0, %d)",
			action, d.numActions)
	}
	if err := d.memory.Append(state, action, reward, nextState,
		done); err != nil {
		return fmt.Errorf("appendtomemory: %v", err)
	}
	return nil
}

// Fit samples a minibatch of transitions from the replay memory and
// performs one gradient step on the learned weights, then synchronizes
// the action selection network and, every TargetSyncInterval gradient
// steps, the target network. If the memory does not yet hold enough
// transitions to fill a minibatch, Fit is a no-op returning fitted ==
// false. Otherwise the loss of the minibatch is returned.
func (d *DQN) Fit() (loss float64, fitted bool, err error) {
	batch, err := d.memory.Sample(d.batchSize)
	if replay.IsInsufficientData(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("fit: %v", err)
	}

	states, actions, rewards, discounts, nextStates := d.tdInputs(batch)

	if err := d.trainNet.SetInput(states); err != nil {
		return 0, false, fmt.Errorf("fit: could not set trainNet input: %v",
			err)
	}
	if err := d.targetNet.SetInput(nextStates); err != nil {
		return 0, false, fmt.Errorf("fit: could not set target net "+
			"input: %v", err)
	}

	// Compute the next state-action values
	if err := d.targetNetVM.RunAll(); err != nil {
		return 0, false, fmt.Errorf("fit: could not run target network: %v",
			err)
	}
	if err := G.Let(d.nextStateActionValues,
		d.targetNet.Output()); err != nil {
		return 0, false, fmt.Errorf("fit: could not set next state-action "+
			"values: %v", err)
	}
	d.targetNetVM.Reset()

	err = G.Let(d.rewards, tensor.New(tensor.WithBacking(rewards),
		tensor.WithShape(d.batchSize)))
	if err != nil {
		return 0, false, fmt.Errorf("fit: could not set rewards: %v", err)
	}
	err = G.Let(d.discounts, tensor.New(tensor.WithBacking(discounts),
		tensor.WithShape(d.batchSize)))
	if err != nil {
		return 0, false, fmt.Errorf("fit: could not set discounts: %v", err)
	}
	err = G.Let(d.selectedActions, tensor.New(tensor.WithBacking(actions),
		tensor.WithShape(d.batchSize, d.numActions)))
	if err != nil {
		return 0, false, fmt.Errorf("fit: could not set selected "+
			"actions: %v", err)
	}

	// Run the learning step
	if err := d.trainNetVM.RunAll(); err != nil {
		return 0, false, fmt.Errorf("fit: could not run learning "+
			"network: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		return 0, false, fmt.Errorf("fit: could not step solver: %v", err)
	}
	loss = d.lossVal.Data().(float64)
	d.trainNetVM.Reset()
	d.gradientSteps++

	// Hard update of the target network with the newly learned weights
	if d.gradientSteps%d.targetSyncInterval == 0 {
		if err := d.targetNet.Set(d.trainNet); err != nil {
			return 0, false, fmt.Errorf("fit: could not synchronize target "+
				"network: %v", err)
		}
	}

	if err := d.policyNet.Set(d.trainNet); err != nil {
		return 0, false, fmt.Errorf("fit: could not synchronize policy "+
			"network: %v", err)
	}

	return loss, true, nil
}

// tdInputs flattens a batch of transitions into the tensors consumed
// by the learning graph. The discount of a terminal transition is 0 so
// that its update target reduces to the reward alone.
func (d *DQN) tdInputs(batch []replay.Transition) (states, actions,
	rewards, discounts, nextStates []float64) {
	features := d.shape.Features()

	states = make([]float64, 0, len(batch)*features)
	actions = make([]float64, len(batch)*d.numActions)
	rewards = make([]float64, len(batch))
	discounts = make([]float64, len(batch))
	nextStates = make([]float64, 0, len(batch)*features)

	for i, t := range batch {
		states = append(states, t.State.RawVector().Data...)
		nextStates = append(nextStates, t.NextState.RawVector().Data...)
		actions[i*d.numActions+t.Action] = 1.0
		rewards[i] = t.Reward
		if !t.Done {
			discounts[i] = d.gamma
		}
	}
	return
}

// Epsilon returns the current exploration rate of the agent.
func (d *DQN) Epsilon() float64 {
	return d.policy.Epsilon()
}

// GradientSteps returns the number of gradient steps taken so far.
func (d *DQN) GradientSteps() int {
	return d.gradientSteps
}

// MemorySize returns the number of transitions currently held in the
// replay memory.
func (d *DQN) MemorySize() int {
	return d.memory.Len()
}

// NumActions returns the number of actions the agent chooses between.
func (d *DQN) NumActions() int {
	return d.numActions
}

// StateShape returns the shape of the observations the agent consumes.
func (d *DQN) StateShape() StateShape {
	return d.shape
}

// Close releases the virtual machines backing the agent's networks.
func (d *DQN) Close() error {
	for _, vm := range []G.VM{d.policyNetVM, d.trainNetVM, d.targetNetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
