package depthmap

import (
	"errors"
	"math"
	"testing"

	"github.com/stevecastle/depthviz/tensor"
)

func mustRows(t *testing.T, rows [][]float64) *DepthMap {
	t.Helper()
	dm, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return dm
}

func TestFromTensor(t *testing.T) {
	tt, err := tensor.FromData([]float32{1, 2, 3, 4, 5, 6}, 1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	dm, err := FromTensor(tt)
	if err != nil {
		t.Fatalf("FromTensor() error = %v", err)
	}
	if dm.Width != 3 || dm.Height != 2 {
		t.Fatalf("size = %dx%d; want 3x2", dm.Width, dm.Height)
	}
	if got := dm.At(2, 1); got != 6 {
		t.Errorf("At(2,1) = %v; want 6", got)
	}

	if _, err := FromTensor(tensor.New(2, 2, 2)); err == nil {
		t.Error("FromTensor() should reject a [2,2,2] tensor")
	}
	if _, err := FromTensor(tensor.New(0, 4)); !errors.Is(err, ErrEmpty) {
		t.Errorf("FromTensor() of empty tensor error = %v; want ErrEmpty", err)
	}
}

func TestFromRowsRagged(t *testing.T) {
	if _, err := FromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("FromRows() should reject ragged rows")
	}
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
		want Stats
	}{
		{
			name: "even count uses lower median",
			rows: [][]float64{{1, 2}, {3, 4}},
			want: Stats{Min: 1, Max: 4, Mean: 2.5, Median: 2},
		},
		{
			name: "odd count",
			rows: [][]float64{{5, 1, 3}},
			want: Stats{Min: 1, Max: 5, Mean: 3, Median: 3},
		},
		{
			name: "all zero",
			rows: [][]float64{{0, 0}, {0, 0}},
			want: Stats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeStats(mustRows(t, tt.rows))
			if err != nil {
				t.Fatalf("ComputeStats() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ComputeStats() = %+v; want %+v", got, tt.want)
			}
		})
	}

	if _, err := ComputeStats(&DepthMap{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("ComputeStats(empty) error = %v; want ErrEmpty", err)
	}
}

func TestRawFixedMap(t *testing.T) {
	got := Raw(mustRows(t, [][]float64{{1, 2}, {3, 4}}))
	want := []float64{0.1, 0.2, 0.3, 0.4}
	for i := range want {
		if math.Abs(got.Data[i]-want[i]) > 1e-12 {
			t.Errorf("Raw()[%d] = %v; want %v", i, got.Data[i], want[i])
		}
	}
}

func TestRawClampsFarDepth(t *testing.T) {
	got := Raw(mustRows(t, [][]float64{{25, 10}}))
	if got.Data[0] != 1 || got.Data[1] != 1 {
		t.Errorf("Raw() = %v; want [1 1]", got.Data)
	}
}

func TestVariantsInUnitRange(t *testing.T) {
	maps := map[string][][]float64{
		"ramp":      {{0.5, 1, 2}, {4, 8, 16}},
		"with zero": {{0, 3}, {7, 12}},
		"constant":  {{2, 2}, {2, 2}},
		"single":    {{42}},
	}
	for name, rows := range maps {
		dm := mustRows(t, rows)
		for _, v := range Variants {
			out := v.Fn(dm)
			if out.Width != dm.Width || out.Height != dm.Height {
				t.Errorf("%s/%s: size %dx%d; want %dx%d", name, v.Name, out.Width, out.Height, dm.Width, dm.Height)
			}
			for i, x := range out.Data {
				if math.IsNaN(x) || x < 0 || x > 1 {
					t.Errorf("%s/%s: value[%d] = %v outside [0,1]", name, v.Name, i, x)
				}
			}
		}
	}
}

func TestUniformZeroStaysZero(t *testing.T) {
	dm := New(3, 2)
	for _, v := range Variants {
		for i, x := range v.Fn(dm).Data {
			if x != 0 {
				t.Errorf("%s: value[%d] = %v; want 0", v.Name, i, x)
			}
		}
	}
}

func TestNormedEndpoints(t *testing.T) {
	dm := mustRows(t, [][]float64{{3, 9, 5}, {1, 7, 2}})
	out := Normed(dm)
	if got := out.At(0, 1); got != 0 {
		t.Errorf("Normed at argmin = %v; want 0", got)
	}
	if got := out.At(1, 0); math.Abs(got-1) > 1e-6 {
		t.Errorf("Normed at argmax = %v; want ~1", got)
	}
}

func TestOutputAndMedian(t *testing.T) {
	dm := mustRows(t, [][]float64{{1, 2}, {3, 4}})

	out := Output(dm)
	if math.Abs(out.At(1, 1)-1) > 1e-6 {
		t.Errorf("Output at max = %v; want ~1", out.At(1, 1))
	}
	if math.Abs(out.At(0, 0)-0.25) > 1e-6 {
		t.Errorf("Output(1) = %v; want ~0.25", out.At(0, 0))
	}

	// median is 2, so 2 maps to 0.5 and 4 lands just under 1
	med := Median(dm)
	if math.Abs(med.At(1, 0)-0.5) > 1e-6 {
		t.Errorf("Median(2) = %v; want ~0.5", med.At(1, 0))
	}
	if math.Abs(med.At(1, 1)-1) > 1e-6 {
		t.Errorf("Median(4) = %v; want ~1", med.At(1, 1))
	}

	// past twice the median the value saturates
	far := Median(mustRows(t, [][]float64{{1, 2}, {3, 5}}))
	if far.At(1, 1) != 1 {
		t.Errorf("Median(5) = %v; want 1", far.At(1, 1))
	}
}

func TestDispZeroDepth(t *testing.T) {
	dm := mustRows(t, [][]float64{{0, 1}, {2, 4}})
	out := Disp(dm)
	if out.At(0, 0) != 0 {
		t.Errorf("Disp at zero depth = %v; want 0", out.At(0, 0))
	}
	// nearest valid pixel has the largest disparity
	if math.Abs(out.At(1, 0)-1) > 1e-5 {
		t.Errorf("Disp at depth 1 = %v; want ~1", out.At(1, 0))
	}
	if math.Abs(out.At(1, 1)-0.25) > 1e-5 {
		t.Errorf("Disp at depth 4 = %v; want ~0.25", out.At(1, 1))
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0.3, 0.3},
		{2, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestVariantOrder(t *testing.T) {
	want := []string{"output", "raw", "median", "disp", "normed"}
	if len(Variants) != len(want) {
		t.Fatalf("len(Variants) = %d; want %d", len(Variants), len(want))
	}
	for i, v := range Variants {
		if v.Name != want[i] {
			t.Errorf("Variants[%d] = %q; want %q", i, v.Name, want[i])
		}
	}
}
