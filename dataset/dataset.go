// Package dataset feeds evaluation samples to the visualizer. Loaders are
// looked up by dataset name; the built-in "frames" dataset reads video frames
// listed in a sqlite index.
package dataset

import (
	"context"
	"fmt"

	"github.com/stevecastle/depthviz/tensor"
)

// Meta identifies the frame a batch item came from.
type Meta struct {
	ID   string `json:"id"`
	Time string `json:"time"`
}

// Sample is one batch: inputs [B,3,H,W], one target label and one Meta per item.
type Sample struct {
	Inputs *tensor.Tensor
	Target []int
	Meta   []Meta
}

// Loader gives indexed access to the samples of one split.
type Loader interface {
	Split() string
	Len() int
	Get(ctx context.Context, i int) (Sample, error)
}

// SliceLoader serves samples that are already in memory.
type SliceLoader struct {
	Name    string
	Samples []Sample
}

func (s *SliceLoader) Split() string { return s.Name }

func (s *SliceLoader) Len() int { return len(s.Samples) }

func (s *SliceLoader) Get(ctx context.Context, i int) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if i < 0 || i >= len(s.Samples) {
		return Sample{}, fmt.Errorf("sample %d out of range [0,%d)", i, len(s.Samples))
	}
	return s.Samples[i], nil
}
