package dataset

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/stevecastle/depthviz/tensor"
	_ "golang.org/x/image/webp"
)

// FrameLoader decodes indexed frames into single-item batches.
type FrameLoader struct {
	split  string
	frames []Frame
	image  tensor.ImageOptions
}

// NewFrameLoader serves frames in the given order.
func NewFrameLoader(split string, frames []Frame, opts tensor.ImageOptions) *FrameLoader {
	return &FrameLoader{split: split, frames: frames, image: opts}
}

func openFrames(ctx context.Context, opts Options, split string) (Loader, error) {
	if opts.IndexPath == "" {
		return nil, fmt.Errorf("%w: %q (no frame index configured)", ErrUnknownDataset, opts.Name)
	}
	ix, err := OpenIndex(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	ok, err := ix.HasDataset(ctx, opts.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q (not in %s)", ErrUnknownDataset, opts.Name, opts.IndexPath)
	}
	frames, err := ix.Frames(ctx, opts.Name, split)
	if err != nil {
		return nil, err
	}
	return NewFrameLoader(split, frames, opts.Image), nil
}

func (l *FrameLoader) Split() string { return l.split }

func (l *FrameLoader) Len() int { return len(l.frames) }

func (l *FrameLoader) Get(ctx context.Context, i int) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if i < 0 || i >= len(l.frames) {
		return Sample{}, fmt.Errorf("sample %d out of range [0,%d)", i, len(l.frames))
	}
	fr := l.frames[i]
	img, err := decodeFile(fr.Path)
	if err != nil {
		return Sample{}, fmt.Errorf("frame %s@%s: %w", fr.ClipID, fr.Time, err)
	}
	return Sample{
		Inputs: tensor.FromImage(img, l.image),
		Target: []int{fr.Target},
		Meta:   []Meta{{ID: fr.ClipID, Time: fr.Time}},
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("unsupported image format: %s", path)
		}
		return nil, err
	}
	return img, nil
}
