package depthnet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/stevecastle/depthviz/tensor"
	"gonum.org/v1/gonum/mat"
)

// ModelConfig is the JSON file shipped next to an exported depth network.
type ModelConfig struct {
	Architecture string `json:"architecture"`
	InputName    string `json:"input_name"`
	Outputs      struct {
		Depth          string `json:"depth"`
		Pose           string `json:"pose"`
		Explainability string `json:"explainability"`
	} `json:"outputs"`
	// [C,H,W]
	InputSize     []int       `json:"input_size"`
	Interpolation string      `json:"interpolation"`
	Mean          []float32   `json:"mean"`
	Std           []float32   `json:"std"`
	Intrinsics    [][]float64 `json:"intrinsics"`
}

// LoadModelConfig reads and parses a JSON config file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cfg ModelConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyToOptions copies tensor names and intrinsics into opts.
func (mc *ModelConfig) ApplyToOptions(opts *Options) {
	if mc == nil || opts == nil {
		return
	}
	if mc.InputName != "" {
		opts.InputName = mc.InputName
	}
	if mc.Outputs.Depth != "" {
		opts.DepthOutput = mc.Outputs.Depth
	}
	if mc.Outputs.Pose != "" {
		opts.PoseOutput = mc.Outputs.Pose
	}
	if mc.Outputs.Explainability != "" {
		opts.ExplainabilityOutput = mc.Outputs.Explainability
	}
	if len(mc.Intrinsics) == 3 {
		for r, row := range mc.Intrinsics {
			if len(row) != 3 {
				return
			}
			copy(opts.Intrinsics[r*3:], row)
		}
	}
}

// ApplyToImageOptions copies the preprocessing settings into opts.
func (mc *ModelConfig) ApplyToImageOptions(opts *tensor.ImageOptions) {
	if mc == nil || opts == nil {
		return
	}
	if len(mc.InputSize) == 3 {
		opts.Height = mc.InputSize[1]
		opts.Width = mc.InputSize[2]
	}
	if strings.TrimSpace(mc.Interpolation) != "" {
		opts.Interpolation = mc.Interpolation
	}
	if len(mc.Mean) == 3 {
		opts.Mean = [3]float32{mc.Mean[0], mc.Mean[1], mc.Mean[2]}
	}
	if len(mc.Std) == 3 {
		opts.Std = [3]float32{mc.Std[0], mc.Std[1], mc.Std[2]}
	}
}

// intrinsicsPair returns K and K^-1 as [3,3] tensors, or nils when K is unset
// or singular.
func intrinsicsPair(k [9]float64) (*tensor.Tensor, *tensor.Tensor) {
	if k == ([9]float64{}) {
		return nil, nil
	}
	km := mat.NewDense(3, 3, k[:])
	var inv mat.Dense
	if err := inv.Inverse(km); err != nil {
		return toTensor(km), nil
	}
	return toTensor(km), toTensor(&inv)
}

func toTensor(m *mat.Dense) *tensor.Tensor {
	r, c := m.Dims()
	t := tensor.New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.Data[i*c+j] = float32(m.At(i, j))
		}
	}
	return t
}
