// Package depthnet wraps the depth estimation network that the visualizer
// runs. The ONNX Runtime implementation needs cgo; non-cgo builds get a stub
// that returns ErrCGORequired.
package depthnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/tensor"
)

// ErrCGORequired is returned when ONNX inference is attempted without cgo support.
var ErrCGORequired = errors.New("depthnet requires CGO support; rebuild with CGO_ENABLED=1")

// Result is everything a forward pass produces. Depth is [B,H,W]; the other
// outputs are nil when the network does not export them.
type Result struct {
	TargetImage        *tensor.Tensor // [B,3,H,W], normalized
	RefImages          []*tensor.Tensor
	Intrinsics         *tensor.Tensor // [3,3]
	IntrinsicsInv      *tensor.Tensor // [3,3]
	Depth              *tensor.Tensor
	ExplainabilityMask *tensor.Tensor
	Pose               *tensor.Tensor
}

// Model is a depth network that can be put into inference mode and run.
type Model interface {
	// Eval switches the model to inference behaviour (no dropout, frozen norms).
	Eval()
	Forward(ctx context.Context, inputs *tensor.Tensor, meta []dataset.Meta) (Result, error)
}

// Options configures the ONNX depth model.
type Options struct {
	// Path to the onnxruntime shared library (.dll/.so/.dylib). If empty, the
	// environment variable ONNXRUNTIME_SHARED_LIBRARY_PATH will be respected.
	ORTSharedLibraryPath string

	InputName string
	// Output tensor names. Depth is required; Pose and Explainability are
	// fetched only when set.
	DepthOutput          string
	PoseOutput           string
	ExplainabilityOutput string

	// CPU disables the CUDA execution provider.
	CPU      bool
	DeviceID int

	// Camera intrinsics, row-major 3x3. Zero means unknown.
	Intrinsics [9]float64
}

// DefaultOptions returns the tensor names used by the exported depth networks.
func DefaultOptions() Options {
	return Options{
		InputName:   "input",
		DepthOutput: "depth",
	}
}

func (o Options) outputNames() []string {
	names := []string{o.DepthOutput}
	if o.PoseOutput != "" {
		names = append(names, o.PoseOutput)
	}
	if o.ExplainabilityOutput != "" {
		names = append(names, o.ExplainabilityOutput)
	}
	return names
}

func (o Options) validate() error {
	if o.InputName == "" || o.DepthOutput == "" {
		return errors.New("input and depth output names must be provided")
	}
	return nil
}

// depthTensor drops the channel axis of a [B,1,H,W] depth output.
func depthTensor(shape []int64, data []float32) (*tensor.Tensor, error) {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	switch {
	case len(dims) == 4 && dims[1] == 1:
		dims = []int{dims[0], dims[2], dims[3]}
	case len(dims) == 3:
	default:
		return nil, fmt.Errorf("unexpected depth output shape %v", shape)
	}
	return tensor.FromData(append([]float32(nil), data...), dims...)
}
