// Package preprocess converts raw environment frames into the
// normalized observation vectors fed to the Q-network.
package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/alpinerl/skidqn/environment"
)

// MinFrameDim is the smallest downsampled frame dimension the
// Q-network accepts. Downsample scales that shrink either dimension
// below this floor are rejected during configuration validation.
const MinFrameDim = 4

// DownsampledSize returns the dimensions of a rows x cols frame after
// downsampling by scale. Partial strides at the frame edge still
// produce an output pixel, so each dimension is the ceiling of the
// division.
func DownsampledSize(rows, cols, scale int) (int, int) {
	return (rows + scale - 1) / scale, (cols + scale - 1) / scale
}

// CanPassNet reports whether a rows x cols frame downsampled by scale
// is still large enough for the network input floor.
func CanPassNet(rows, cols, scale int) bool {
	r, c := DownsampledSize(rows, cols, scale)
	return r >= MinFrameDim && c >= MinFrameDim
}

// MaxScale returns the largest downsample scale that keeps a
// rows x cols frame above the network input floor.
func MaxScale(rows, cols int) int {
	scale := rows / MinFrameDim
	if c := cols / MinFrameDim; c < scale {
		scale = c
	}
	if scale < 1 {
		scale = 1
	}
	return scale
}

// Frame downsamples a raw RGB frame by scale, converts it to
// grayscale and normalizes intensities to [0, 1]. The result is a
// flat row-major vector of the downsampled dimensions. Frame is a
// pure function: the input frame is never modified.
func Frame(f environment.Frame, scale int) (*mat.VecDense, error) {
	if scale < 1 {
		return nil, fmt.Errorf("frame: scale must be positive, got %v", scale)
	}
	if len(f.Pixels) != f.Rows*f.Cols*3 {
		return nil, fmt.Errorf("frame: malformed frame: %v pixels for "+
			"%vx%v RGB image", len(f.Pixels), f.Rows, f.Cols)
	}

	rows, cols := DownsampledSize(f.Rows, f.Cols, scale)
	data := make([]float64, 0, rows*cols)
	for r := 0; r < f.Rows; r += scale {
		for c := 0; c < f.Cols; c += scale {
			red, green, blue := f.At(r, c)
			gray := (float64(red) + float64(green) + float64(blue)) / 3.0
			data = append(data, gray/255.0)
		}
	}

	return mat.NewVecDense(rows*cols, data), nil
}
