// Package depthmap holds predicted depth maps and the normalizations used to
// turn them into viewable images.
package depthmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stevecastle/depthviz/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when a depth map has no pixels.
var ErrEmpty = errors.New("depthmap: empty depth map")

// DepthMap is a row-major grid of depth values for a single frame.
type DepthMap struct {
	Width  int
	Height int
	Data   []float64
}

// New allocates a zeroed width x height map.
func New(width, height int) *DepthMap {
	return &DepthMap{Width: width, Height: height, Data: make([]float64, width*height)}
}

// FromRows builds a map from equally sized rows.
func FromRows(rows [][]float64) (*DepthMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}
	dm := New(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != dm.Width {
			return nil, fmt.Errorf("depthmap: row %d has %d values, want %d", y, len(row), dm.Width)
		}
		copy(dm.Data[y*dm.Width:], row)
	}
	return dm, nil
}

// FromTensor reads a [H,W] or [1,H,W] tensor.
func FromTensor(t *tensor.Tensor) (*DepthMap, error) {
	shape := t.Shape
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("depthmap: want [H,W] or [1,H,W] tensor, got %v", t.Shape)
	}
	if shape[0] == 0 || shape[1] == 0 {
		return nil, ErrEmpty
	}
	dm := New(shape[1], shape[0])
	for i, v := range t.Data {
		dm.Data[i] = float64(v)
	}
	return dm, nil
}

// At returns the depth at column x, row y.
func (dm *DepthMap) At(x, y int) float64 {
	return dm.Data[y*dm.Width+x]
}

// Set stores the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, v float64) {
	dm.Data[y*dm.Width+x] = v
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	return &DepthMap{Width: dm.Width, Height: dm.Height, Data: append([]float64(nil), dm.Data...)}
}

// Map returns a new map with fn applied to every value.
func (dm *DepthMap) Map(fn func(float64) float64) *DepthMap {
	out := &DepthMap{Width: dm.Width, Height: dm.Height, Data: make([]float64, len(dm.Data))}
	for i, v := range dm.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Stats summarizes a depth map.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// ComputeStats returns min, max, mean and median. For an even number of pixels
// the median is the lower of the two middle values.
func ComputeStats(dm *DepthMap) (Stats, error) {
	if len(dm.Data) == 0 {
		return Stats{}, ErrEmpty
	}
	return Stats{
		Min:    floats.Min(dm.Data),
		Max:    floats.Max(dm.Data),
		Mean:   stat.Mean(dm.Data, nil),
		Median: median(dm.Data),
	}, nil
}

func median(data []float64) float64 {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
