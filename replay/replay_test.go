package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stateVec builds a one-component state vector tagging a transition
// with its append order, so eviction can be verified by content.
func stateVec(id int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(id)})
}

func appendN(t *testing.T, m *Memory, from, to int) {
	t.Helper()
	for i := from; i < to; i++ {
		err := m.Append(stateVec(i), i%2, float64(i), stateVec(i+1), false)
		require.NoError(t, err)
	}
}

func TestNewMemoryValidation(t *testing.T) {
	_, err := NewMemory(0, 1, 1)
	assert.Error(t, err)
	_, err = NewMemory(10, 0, 1)
	assert.Error(t, err)
}

func TestAppendRejectsWrongFeatureSize(t *testing.T) {
	m, err := NewMemory(4, 2, 1)
	require.NoError(t, err)

	err = m.Append(stateVec(0), 0, 0, stateVec(1), false)
	assert.Error(t, err)
}

func TestFIFOEvictionKeepsNewestByContent(t *testing.T) {
	const capacity = 5
	m, err := NewMemory(capacity, 1, 1)
	require.NoError(t, err)

	appendN(t, m, 0, 12)
	require.Equal(t, capacity, m.Len())

	// Exactly transitions 7..11 must remain
	kept := make(map[float64]bool)
	for _, tr := range m.transitions {
		kept[tr.State.AtVec(0)] = true
	}
	for id := 7; id < 12; id++ {
		assert.True(t, kept[float64(id)], "transition %d evicted too early", id)
	}
	for id := 0; id < 7; id++ {
		assert.False(t, kept[float64(id)], "transition %d should be evicted", id)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	m, err := NewMemory(10, 1, 1)
	require.NoError(t, err)
	appendN(t, m, 0, 8)

	batch, err := m.Sample(8)
	require.NoError(t, err)
	require.Len(t, batch, 8)

	// All sampled transitions are distinct stored entries
	seen := make(map[float64]bool)
	for _, tr := range batch {
		id := tr.State.AtVec(0)
		assert.False(t, seen[id], "transition %v sampled twice", id)
		assert.GreaterOrEqual(t, id, 0.0)
		assert.Less(t, id, 8.0)
		seen[id] = true
	}
}

func TestSampleInsufficientData(t *testing.T) {
	m, err := NewMemory(10, 1, 1)
	require.NoError(t, err)
	appendN(t, m, 0, 3)

	_, err = m.Sample(4)
	require.Error(t, err)
	assert.True(t, IsInsufficientData(err))

	// Unrelated errors are not misclassified
	_, err = m.Sample(0)
	require.Error(t, err)
	assert.False(t, IsInsufficientData(err))
}

func TestSampleDoesNotMutate(t *testing.T) {
	m, err := NewMemory(10, 1, 1)
	require.NoError(t, err)
	appendN(t, m, 0, 6)

	before := make([]Transition, len(m.transitions))
	copy(before, m.transitions)

	_, err = m.Sample(4)
	require.NoError(t, err)

	assert.Equal(t, before, m.transitions)
	assert.Equal(t, 6, m.Len())
}

func TestLenAndCap(t *testing.T) {
	m, err := NewMemory(4, 1, 1)
	require.NoError(t, err)
	assert.Zero(t, m.Len())
	assert.Equal(t, 4, m.Cap())

	appendN(t, m, 0, 4)
	assert.Equal(t, 4, m.Len())

	appendN(t, m, 4, 6)
	assert.Equal(t, 4, m.Len())
}
