package policy

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEGreedyValidation(t *testing.T) {
	cases := []struct {
		name                         string
		epsilon, finalEpsilon, decay float64
		observeSteps, numActions     int
	}{
		{"epsilon above one", 1.5, 0.1, 0.01, 10, 2},
		{"negative epsilon", -0.1, -0.2, 0.01, 10, 2},
		{"final above initial", 0.5, 0.9, 0.01, 10, 2},
		{"negative final", 0.5, -0.1, 0.01, 10, 2},
		{"negative decay", 0.5, 0.1, -0.01, 10, 2},
		{"negative observe", 0.5, 0.1, 0.01, -1, 2},
		{"no actions", 0.5, 0.1, 0.01, 10, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewEGreedy(c.epsilon, c.finalEpsilon, c.decay,
				c.observeSteps, c.numActions, 1)
			assert.Error(t, err)
		})
	}
}

func TestEpsilonConstantDuringObservePhase(t *testing.T) {
	e, err := NewEGreedy(1.0, 0.1, 0.05, 10, 3, 1)
	require.NoError(t, err)

	q := []float64{0, 1, 0}
	for i := 0; i < 10; i++ {
		e.SelectAction(q)
		assert.Equal(t, 1.0, e.Epsilon(), "epsilon moved on step %d", i+1)
	}

	e.SelectAction(q)
	assert.InDelta(t, 0.95, e.Epsilon(), 1e-12)
}

func TestEpsilonStaysInBoundsAndMonotone(t *testing.T) {
	e, err := NewEGreedy(0.9, 0.1, 0.07, 5, 2, 1)
	require.NoError(t, err)

	q := []float64{0, 1}
	prev := e.Epsilon()
	for i := 0; i < 100; i++ {
		e.SelectAction(q)
		eps := e.Epsilon()
		assert.GreaterOrEqual(t, eps, 0.1)
		assert.LessOrEqual(t, eps, 0.9)
		assert.LessOrEqual(t, eps, prev)
		prev = eps
	}
	assert.Equal(t, 0.1, e.Epsilon())
}

func TestGreedySelectionTieBreaksLowestAction(t *testing.T) {
	e, err := NewEGreedy(0.0, 0.0, 0.0, 0, 4, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, e.SelectAction([]float64{0, 1, 5, 3}))
	assert.Equal(t, 1, e.SelectAction([]float64{0, 4, 4, 4}))
	assert.Equal(t, 0, e.SelectAction([]float64{7, 7, 7, 7}))
}

func TestFullyRandomWhenEpsilonIsOne(t *testing.T) {
	e, err := NewEGreedy(1.0, 1.0, 0.0, 0, 3, 14)
	require.NoError(t, err)

	// The greedy action is 0; a pure-epsilon policy must still reach
	// the others.
	q := []float64{10, 0, 0}
	counts := make([]int, 3)
	for i := 0; i < 300; i++ {
		counts[e.SelectAction(q)]++
	}
	for a, n := range counts {
		assert.Greater(t, n, 0, "action %d never selected", a)
	}
}

func TestGobRoundTrip(t *testing.T) {
	e, err := NewEGreedy(0.8, 0.1, 0.05, 3, 4, 42)
	require.NoError(t, err)
	q := []float64{0, 0, 1, 0}
	for i := 0; i < 7; i++ {
		e.SelectAction(q)
	}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(e))

	decoded := &EGreedy{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	assert.Equal(t, e.Epsilon(), decoded.Epsilon())
	assert.Equal(t, e.Steps(), decoded.Steps())
	assert.Equal(t, e.NumActions(), decoded.NumActions())
}
