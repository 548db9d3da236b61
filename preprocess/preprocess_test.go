package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinerl/skidqn/environment"
)

func uniformFrame(rows, cols int, value uint8) environment.Frame {
	pixels := make([]uint8, rows*cols*3)
	for i := range pixels {
		pixels[i] = value
	}
	return environment.Frame{Pixels: pixels, Rows: rows, Cols: cols}
}

func TestDownsampledSize(t *testing.T) {
	r, c := DownsampledSize(210, 160, 2)
	assert.Equal(t, 105, r)
	assert.Equal(t, 80, c)

	// Partial strides still produce an output pixel
	r, c = DownsampledSize(5, 5, 2)
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
}

func TestFrameShapeAndNormalization(t *testing.T) {
	obs, err := Frame(uniformFrame(10, 8, 255), 2)
	require.NoError(t, err)
	require.Equal(t, 5*4, obs.Len())
	for i := 0; i < obs.Len(); i++ {
		assert.InDelta(t, 1.0, obs.AtVec(i), 1e-12)
	}

	obs, err = Frame(uniformFrame(10, 8, 0), 2)
	require.NoError(t, err)
	for i := 0; i < obs.Len(); i++ {
		assert.Zero(t, obs.AtVec(i))
	}
}

func TestFrameGrayscaleAveragesChannels(t *testing.T) {
	f := environment.Frame{Pixels: []uint8{255, 0, 0}, Rows: 1, Cols: 1}
	obs, err := Frame(f, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, obs.AtVec(0), 1e-12)
}

func TestFrameDoesNotMutateInput(t *testing.T) {
	f := uniformFrame(6, 6, 128)
	before := make([]uint8, len(f.Pixels))
	copy(before, f.Pixels)

	_, err := Frame(f, 3)
	require.NoError(t, err)
	assert.Equal(t, before, f.Pixels)
}

func TestFrameRejectsBadInput(t *testing.T) {
	_, err := Frame(uniformFrame(6, 6, 0), 0)
	assert.Error(t, err)

	_, err = Frame(environment.Frame{Pixels: []uint8{1, 2}, Rows: 2, Cols: 2}, 1)
	assert.Error(t, err)
}

func TestCanPassNet(t *testing.T) {
	assert.True(t, CanPassNet(210, 160, 2))
	assert.False(t, CanPassNet(8, 8, 4))
	assert.Equal(t, 2, MaxScale(8, 10))
	assert.Equal(t, 1, MaxScale(4, 4))
}
