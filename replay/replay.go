// Package replay implements the experience replay memory sampled
// during training. Sampling transitions uniformly at random breaks the
// temporal correlation between consecutive environment steps, which
// off-policy learning needs to stay stable; the fixed capacity bounds
// memory and gives the buffer a recency bias through FIFO eviction.
package replay

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single (state, action, reward, next state)
// experience tuple. State and NextState are stacked-frame observation
// vectors. Done marks NextState as terminal, in which case no
// bootstrap term applies to its TD target. Transitions are immutable
// once stored.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
	Done      bool
}

// Memory is a fixed-capacity circular store of Transitions. Once full,
// each Append overwrites the oldest stored transition.
type Memory struct {
	transitions []Transition
	cursor      int
	full        bool

	featureSize int
	rng         *rand.Rand
}

// NewMemory returns a new Memory holding at most capacity transitions
// whose state vectors have featureSize components.
func NewMemory(capacity, featureSize int, seed int64) (*Memory, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newmemory: capacity must be >= 1")
	}
	if featureSize < 1 {
		return nil, fmt.Errorf("newmemory: featureSize must be >= 1")
	}

	return &Memory{
		transitions: make([]Transition, capacity),
		featureSize: featureSize,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Append stores a transition, overwriting the oldest entry when the
// memory is at capacity.
func (m *Memory) Append(state *mat.VecDense, action int, reward float64,
	nextState *mat.VecDense, done bool) error {
	if state.Len() != m.featureSize || nextState.Len() != m.featureSize {
		return fmt.Errorf("append: invalid feature size \n\twant(%v)"+
			"\n\thave(%v, %v)", m.featureSize, state.Len(), nextState.Len())
	}

	m.transitions[m.cursor] = Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Done:      done,
	}

	m.cursor++
	if m.cursor == len(m.transitions) {
		m.cursor = 0
		m.full = true
	}
	return nil
}

// Sample returns batchSize transitions drawn uniformly at random
// without replacement from the stored entries. The memory itself is
// never modified. Sampling more transitions than are stored fails
// with an error satisfying IsInsufficientData.
func (m *Memory) Sample(batchSize int) ([]Transition, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("sample: batch size must be >= 1")
	}
	if m.Len() < batchSize {
		return nil, &MemoryError{Op: "sample", Err: errInsufficientData}
	}

	batch := make([]Transition, batchSize)
	for i, index := range m.rng.Perm(m.Len())[:batchSize] {
		batch[i] = m.transitions[index]
	}
	return batch, nil
}

// Len returns the number of transitions currently stored.
func (m *Memory) Len() int {
	if m.full {
		return len(m.transitions)
	}
	return m.cursor
}

// Cap returns the maximum number of transitions the memory can hold.
func (m *Memory) Cap() int {
	return len(m.transitions)
}
