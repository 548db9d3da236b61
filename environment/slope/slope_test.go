package slope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsTinyGrids(t *testing.T) {
	_, err := New(2, 3, 10, 1)
	assert.Error(t, err)

	_, err = New(8, 8, 0, 1)
	assert.Error(t, err)
}

func TestFramesHaveRGBLayout(t *testing.T) {
	env, err := New(8, 8, 10, 14)
	require.NoError(t, err)

	frame := env.Reset()
	assert.Equal(t, 8, frame.Rows)
	assert.Equal(t, 8, frame.Cols)
	assert.Len(t, frame.Pixels, 8*8*3)

	r, g, b := frame.At(skierRow, env.skier)
	assert.Equal(t, skierPixel, [3]uint8{r, g, b})
}

func TestEpisodeTerminatesAtMaxSteps(t *testing.T) {
	env, err := New(8, 8, 5, 7)
	require.NoError(t, err)
	env.Reset()

	done := false
	steps := 0
	for !done && steps < 100 {
		_, _, done = env.Step(ActionNoop)
		steps++
	}
	require.True(t, done)
	assert.LessOrEqual(t, steps, 5)

	// Stepping a finished episode is inert
	_, reward, done := env.Step(ActionLeft)
	assert.True(t, done)
	assert.Zero(t, reward)
}

func TestSameSeedSameCourse(t *testing.T) {
	a, err := New(10, 10, 20, 99)
	require.NoError(t, err)
	b, err := New(10, 10, 20, 99)
	require.NoError(t, err)

	a.Reset()
	b.Reset()
	for i := 0; i < 20; i++ {
		fa, ra, da := a.Step(ActionRight)
		fb, rb, db := b.Step(ActionRight)
		require.Equal(t, fa.Pixels, fb.Pixels)
		require.Equal(t, ra, rb)
		require.Equal(t, da, db)
		if da {
			break
		}
	}
}

func TestResetReplaysTheCourse(t *testing.T) {
	env, err := New(10, 10, 20, 3)
	require.NoError(t, err)

	first := env.Reset()
	env.Step(ActionLeft)
	env.Step(ActionLeft)

	again := env.Reset()
	assert.Equal(t, first.Pixels, again.Pixels)
	assert.Zero(t, env.Steps())
}

func TestSkierStaysOnTheSlope(t *testing.T) {
	env, err := New(8, 8, 50, 5)
	require.NoError(t, err)
	env.Reset()

	for i := 0; i < 20; i++ {
		_, _, done := env.Step(ActionLeft)
		require.GreaterOrEqual(t, env.skier, 0)
		if done {
			env.Reset()
		}
	}
}
