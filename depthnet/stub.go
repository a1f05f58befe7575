//go:build !cgo
// +build !cgo

package depthnet

import (
	"context"

	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/tensor"
)

// ONNX is unavailable without cgo.
type ONNX struct{}

// NewONNX returns an error indicating CGO is required.
func NewONNX(modelPath string, opts Options) (*ONNX, error) {
	return nil, ErrCGORequired
}

func (m *ONNX) Eval() {}

// Forward returns an error indicating CGO is required.
func (m *ONNX) Forward(ctx context.Context, inputs *tensor.Tensor, meta []dataset.Meta) (Result, error) {
	return Result{}, ErrCGORequired
}

func (m *ONNX) Close() error { return nil }
