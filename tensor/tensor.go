// Package tensor holds the dense float32 tensors passed between the dataset
// loaders, the depth model and the renderers. Data is stored row-major.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is returned when data does not fit the requested shape.
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is a row-major float32 array with an explicit shape.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, volume(shape))}
}

// FromData wraps data without copying. len(data) must equal the shape volume.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if v := volume(shape); v != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v (want %d)", ErrShape, len(data), shape, v)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dim returns the size of axis i, or 0 when the axis does not exist.
func (t *Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 0
	}
	return t.Shape[i]
}

// Int64Shape returns the shape in the form ONNX Runtime expects.
func (t *Tensor) Int64Shape() []int64 {
	out := make([]int64, len(t.Shape))
	for i, d := range t.Shape {
		out[i] = int64(d)
	}
	return out
}

// Item returns the i-th entry along the leading (batch) axis. The returned
// tensor shares storage with t.
func (t *Tensor) Item(i int) (*Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("%w: cannot index rank %d tensor", ErrShape, len(t.Shape))
	}
	if i < 0 || i >= t.Shape[0] {
		return nil, fmt.Errorf("tensor: batch index %d out of range [0,%d)", i, t.Shape[0])
	}
	stride := volume(t.Shape[1:])
	return &Tensor{
		Shape: append([]int(nil), t.Shape[1:]...),
		Data:  t.Data[i*stride : (i+1)*stride],
	}, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack(items ...*Tensor) (*Tensor, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	base := items[0].Shape
	out := New(append([]int{len(items)}, base...)...)
	stride := volume(base)
	for i, it := range items {
		if !sameShape(it.Shape, base) {
			return nil, fmt.Errorf("%w: item %d has shape %v, want %v", ErrShape, i, it.Shape, base)
		}
		copy(out.Data[i*stride:], it.Data)
	}
	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
