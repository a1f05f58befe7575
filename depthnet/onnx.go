//go:build cgo
// +build cgo

package depthnet

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// ONNX runs an exported depth network with ONNX Runtime.
type ONNX struct {
	opts          Options
	session       *ort.DynamicAdvancedSession
	outputs       []string
	intrinsics    *tensor.Tensor
	intrinsicsInv *tensor.Tensor
	eval          bool
}

// NewONNX loads the model at modelPath. Unless opts.CPU is set the session
// is created with the CUDA execution provider, so inputs are copied to the
// accelerator on every Forward.
func NewONNX(modelPath string, opts Options) (*ONNX, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}

	envMu.Lock()
	if !ort.IsInitialized() {
		if opts.ORTSharedLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.ORTSharedLibraryPath)
		} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envMu.Unlock()
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envMu.Unlock()

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOpts.Destroy()

	if !opts.CPU {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cudaOpts.Destroy()
		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(opts.DeviceID)}); err != nil {
			return nil, fmt.Errorf("failed to configure CUDA device %d: %w", opts.DeviceID, err)
		}
		if err := sessionOpts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("failed to enable CUDA execution provider: %w", err)
		}
	}

	outputs := opts.outputNames()
	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{opts.InputName}, outputs, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	k, kInv := intrinsicsPair(opts.Intrinsics)
	return &ONNX{
		opts:          opts,
		session:       session,
		outputs:       outputs,
		intrinsics:    k,
		intrinsicsInv: kInv,
	}, nil
}

// Eval is a no-op beyond bookkeeping: exported graphs are already frozen in
// inference mode.
func (m *ONNX) Eval() {
	m.eval = true
}

func (m *ONNX) Forward(ctx context.Context, inputs *tensor.Tensor, meta []dataset.Meta) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	in, err := ort.NewTensor(ort.NewShape(inputs.Int64Shape()...), inputs.Data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	// nil outputs are allocated by onnxruntime and must be destroyed here
	outs := make([]ort.Value, len(m.outputs))
	if err := m.session.Run([]ort.Value{in}, outs); err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	res := Result{
		TargetImage:   inputs,
		Intrinsics:    m.intrinsics,
		IntrinsicsInv: m.intrinsicsInv,
	}
	for i, name := range m.outputs {
		t, ok := outs[i].(*ort.Tensor[float32])
		if !ok {
			return Result{}, fmt.Errorf("output %q is not a float32 tensor", name)
		}
		switch name {
		case m.opts.DepthOutput:
			res.Depth, err = depthTensor(t.GetShape(), t.GetData())
			if err != nil {
				return Result{}, err
			}
		case m.opts.PoseOutput:
			res.Pose, err = copyTensor(t)
		case m.opts.ExplainabilityOutput:
			res.ExplainabilityMask, err = copyTensor(t)
		}
		if err != nil {
			return Result{}, fmt.Errorf("output %q: %w", name, err)
		}
	}
	return res, nil
}

func copyTensor(t *ort.Tensor[float32]) (*tensor.Tensor, error) {
	shape := t.GetShape()
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return tensor.FromData(append([]float32(nil), t.GetData()...), dims...)
}

// Close releases the session.
func (m *ONNX) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
