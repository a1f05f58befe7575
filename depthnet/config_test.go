package depthnet

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stevecastle/depthviz/tensor"
)

const sampleConfig = `{
  "architecture": "dispnet",
  "input_name": "frames",
  "outputs": {"depth": "depth0", "pose": "pose", "explainability": "exp_mask"},
  "input_size": [3, 128, 416],
  "interpolation": "bicubic",
  "mean": [0.5, 0.5, 0.5],
  "std": [0.2, 0.2, 0.2],
  "intrinsics": [[200, 0, 208], [0, 200, 64], [0, 0, 1]]
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelConfig(t *testing.T) {
	cfg, err := LoadModelConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadModelConfig() error = %v", err)
	}

	opts := DefaultOptions()
	cfg.ApplyToOptions(&opts)
	if opts.InputName != "frames" || opts.DepthOutput != "depth0" {
		t.Errorf("names = %q/%q; want frames/depth0", opts.InputName, opts.DepthOutput)
	}
	if opts.PoseOutput != "pose" || opts.ExplainabilityOutput != "exp_mask" {
		t.Errorf("optional outputs = %q/%q", opts.PoseOutput, opts.ExplainabilityOutput)
	}
	if opts.Intrinsics[2] != 208 || opts.Intrinsics[8] != 1 {
		t.Errorf("intrinsics = %v", opts.Intrinsics)
	}
	if got := opts.outputNames(); len(got) != 3 {
		t.Errorf("outputNames() = %v; want 3 names", got)
	}

	img := tensor.DefaultImageOptions()
	cfg.ApplyToImageOptions(&img)
	if img.Width != 416 || img.Height != 128 {
		t.Errorf("image size = %dx%d; want 416x128", img.Width, img.Height)
	}
	if img.Interpolation != "bicubic" || img.Mean[0] != 0.5 || img.Std[2] != 0.2 {
		t.Errorf("image options = %+v", img)
	}
}

func TestLoadModelConfigInvalid(t *testing.T) {
	if _, err := LoadModelConfig(writeConfig(t, "{not json")); err == nil {
		t.Error("LoadModelConfig() should fail on invalid JSON")
	}
	if _, err := LoadModelConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadModelConfig() should fail on a missing file")
	}
}

func TestDefaultOptionsValidate(t *testing.T) {
	if err := DefaultOptions().validate(); err != nil {
		t.Errorf("DefaultOptions().validate() = %v", err)
	}
	opts := DefaultOptions()
	opts.DepthOutput = ""
	if err := opts.validate(); err == nil {
		t.Error("validate() should require a depth output")
	}
}

func TestDepthTensor(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int64
		want    []int
		wantErr bool
	}{
		{"with channel", []int64{1, 1, 2, 3}, []int{1, 2, 3}, false},
		{"without channel", []int64{2, 2, 3}, []int{2, 2, 3}, false},
		{"multi channel", []int64{1, 2, 2, 3}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := int64(1)
			for _, d := range tt.shape {
				n *= d
			}
			got, err := depthTensor(tt.shape, make([]float32, n))
			if tt.wantErr {
				if err == nil {
					t.Error("depthTensor() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("depthTensor() error = %v", err)
			}
			if len(got.Shape) != len(tt.want) {
				t.Fatalf("shape = %v; want %v", got.Shape, tt.want)
			}
			for i := range tt.want {
				if got.Shape[i] != tt.want[i] {
					t.Errorf("shape = %v; want %v", got.Shape, tt.want)
				}
			}
		})
	}
}

func TestIntrinsicsPair(t *testing.T) {
	k, kInv := intrinsicsPair([9]float64{200, 0, 208, 0, 200, 64, 0, 0, 1})
	if k == nil || kInv == nil {
		t.Fatal("intrinsicsPair() returned nil")
	}
	// K * K^-1 = I
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for n := 0; n < 3; n++ {
				sum += float64(k.Data[i*3+n]) * float64(kInv.Data[n*3+j])
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(sum-want) > 1e-5 {
				t.Errorf("(K*K^-1)[%d][%d] = %v; want %v", i, j, sum, want)
			}
		}
	}

	if k, kInv := intrinsicsPair([9]float64{}); k != nil || kInv != nil {
		t.Error("intrinsicsPair(zero) should return nils")
	}
}
