package network

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

// predict runs a forward pass of net on input and returns the
// predicted values.
func predict(t *testing.T, net NeuralNet, input []float64) []float64 {
	t.Helper()

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	require.NoError(t, net.SetInput(input))
	require.NoError(t, vm.RunAll())
	out := make([]float64, len(net.Output().Data().([]float64)))
	copy(out, net.Output().Data().([]float64))
	vm.Reset()

	return out
}

func TestNewMLPValidatesLayerDescriptions(t *testing.T) {
	g := G.NewGraph()

	_, err := NewMLP(4, 1, 2, g, []int{8, 8}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU(), ReLU()})
	assert.Error(t, err, "bias count mismatch accepted")

	_, err = NewMLP(4, 1, 2, g, []int{8}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU(), ReLU()})
	assert.Error(t, err, "activation count mismatch accepted")
}

func TestMLPOutputShape(t *testing.T) {
	g := G.NewGraph()
	net, err := NewMLP(3, 2, 4, g, []int{5}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU()})
	require.NoError(t, err)

	assert.Equal(t, 3, net.Features())
	assert.Equal(t, 2, net.BatchSize())
	assert.Equal(t, 4, net.Outputs())

	out := predict(t, net, []float64{0, 1, 2, 3, 4, 5})
	assert.Len(t, out, 2*4)
}

func TestSetCopiesWeights(t *testing.T) {
	source, err := NewMLP(3, 1, 2, G.NewGraph(), []int{4}, []bool{true},
		G.GlorotU(1.0), []*Activation{TanH()})
	require.NoError(t, err)

	dest, err := NewMLP(3, 1, 2, G.NewGraph(), []int{4}, []bool{true},
		G.GlorotU(1.0), []*Activation{TanH()})
	require.NoError(t, err)

	require.NoError(t, dest.Set(source))

	input := []float64{0.5, -0.25, 1.0}
	assert.Equal(t, predict(t, source, input), predict(t, dest, input))
}

func TestSetDoesNotAliasWeights(t *testing.T) {
	source, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU()})
	require.NoError(t, err)

	dest, err := NewMLP(2, 1, 2, G.NewGraph(), []int{3}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU()})
	require.NoError(t, err)
	require.NoError(t, dest.Set(source))

	input := []float64{1, -1}
	before := predict(t, dest, input)

	// Mutating the source weights must not change the destination
	sourceWeights := source.Learnables()[0].Value().Data().([]float64)
	for i := range sourceWeights {
		sourceWeights[i] = 100
	}

	assert.Equal(t, before, predict(t, dest, input))
}

func TestCloneWithBatchPreservesWeights(t *testing.T) {
	net, err := NewMLP(2, 1, 3, G.NewGraph(), []int{4}, []bool{true},
		G.GlorotU(1.0), []*Activation{ReLU()})
	require.NoError(t, err)

	clone, err := net.CloneWithBatch(2)
	require.NoError(t, err)
	assert.Equal(t, 2, clone.BatchSize())
	assert.Equal(t, net.Features(), clone.Features())
	assert.Equal(t, net.Outputs(), clone.Outputs())

	input := []float64{0.1, 0.9}
	single := predict(t, net, input)
	batched := predict(t, clone, append(append([]float64{}, input...),
		input...))

	assert.InDeltaSlice(t, single, batched[:3], 1e-12)
	assert.InDeltaSlice(t, single, batched[3:], 1e-12)
}

func TestMLPGobRoundTrip(t *testing.T) {
	net, err := NewMLP(3, 1, 2, G.NewGraph(), []int{4, 4}, []bool{true, true},
		G.GlorotU(1.0), []*Activation{ReLU(), TanH()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(net.(*mlp)))

	decoded := &mlp{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	input := []float64{0.3, -0.7, 0.2}
	want := predict(t, net, input)

	have := predict(t, decoded, input)
	require.NotNil(t, decoded.Output(),
		"decoded network never produced output")
	assert.InDeltaSlice(t, want, have, 1e-12)
}
