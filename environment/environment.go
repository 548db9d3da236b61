// Package environment outlines the interface that simulated game
// environments must implement to be driven by the game loop.
package environment

// Frame is a single raw screen capture from an environment. Pixels
// holds interleaved RGB bytes in row-major order, so its length is
// always Rows*Cols*3.
type Frame struct {
	Pixels []uint8
	Rows   int
	Cols   int
}

// At returns the RGB components of the pixel at row r, column c.
func (f Frame) At(r, c int) (uint8, uint8, uint8) {
	i := (r*f.Cols + c) * 3
	return f.Pixels[i], f.Pixels[i+1], f.Pixels[i+2]
}

// Environment implements a simulated game emitting raw frames. An
// Environment starts ready to use and is reset between episodes.
type Environment interface {
	// Reset starts a new episode and returns its first frame
	Reset() Frame

	// Step takes a single action in the environment, returning the
	// resulting frame, the reward for the action, and whether the
	// episode has ended
	Step(action int) (Frame, float64, bool)

	// Render draws the current frame. Implementations for which
	// rendering is disabled or meaningless treat this as a no-op.
	Render()

	// ActionSpaceSize returns the number of legal actions. Actions
	// are enumerated from 0.
	ActionSpaceSize() int

	// FrameSize returns the dimensions of the raw frames the
	// environment emits
	FrameSize() (rows, cols int)
}
