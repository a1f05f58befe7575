// Package sink stores rendered PNG images, either in a local cache directory
// or in an S3 bucket.
package sink

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Sink receives named images. Names carry no extension; every sink stores PNG.
type Sink interface {
	Put(ctx context.Context, name string, img image.Image) error
	// Location describes where images end up, e.g. a directory or s3:// URL.
	Location() string
}

// Dir writes <Path>/<name>.png.
type Dir struct {
	Path string
}

// NewDir returns a Dir sink, creating path if needed.
func NewDir(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sink: empty cache directory")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", path, err)
	}
	return &Dir{Path: path}, nil
}

func (d *Dir) Put(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(d.Path, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (d *Dir) Location() string {
	return d.Path
}

// Tee forwards every image to all sinks in order and stops at the first error.
type Tee []Sink

func (t Tee) Put(ctx context.Context, name string, img image.Image) error {
	for _, s := range t {
		if err := s.Put(ctx, name, img); err != nil {
			return err
		}
	}
	return nil
}

// Location reports the first sink's location.
func (t Tee) Location() string {
	if len(t) == 0 {
		return ""
	}
	return t[0].Location()
}
