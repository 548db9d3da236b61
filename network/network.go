// Package network implements the neural network function approximators
// consumed by the agent as an opaque predict/fit capability.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a feedforward value-function approximator living on a
// Gorgonia computational graph. A NeuralNet only populates the graph;
// an external gorgonia.VM runs it. To predict with a net: set the
// input with SetInput(), run the VM over Graph(), then read the
// predicted values from Output().
type NeuralNet interface {
	// Graph returns the computational graph holding the network
	Graph() *G.ExprGraph

	// Clone clones the network onto a fresh graph, preserving its
	// current weights
	Clone() (NeuralNet, error)

	// CloneWithBatch clones the network onto a fresh graph with a new
	// input batch size, preserving its current weights
	CloneWithBatch(int) (NeuralNet, error)

	// BatchSize returns the number of input rows the network consumes
	// per forward pass
	BatchSize() int

	// Features returns the number of components in a single input
	// observation vector
	Features() int

	// Outputs returns the number of values the network predicts per
	// input row
	Outputs() int

	// SetInput sets the value of the input node before running the
	// forward pass. The input holds BatchSize()*Features() values.
	SetInput([]float64) error

	// Set overwrites the network's weights with those of another,
	// structurally identical network. The weights are copied; no
	// aliasing is introduced between the two networks.
	Set(NeuralNet) error

	// Learnables returns the learnable nodes of the network
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients, as
	// consumed by a gorgonia.Solver
	Model() []G.ValueGrad

	// Output returns the value of the prediction node computed by the
	// last VM run
	Output() G.Value

	// Prediction returns the node of the computational graph that
	// stores the network's output
	Prediction() *G.Node
}
