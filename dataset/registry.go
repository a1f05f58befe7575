package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/stevecastle/depthviz/tensor"
)

// ErrUnknownDataset is returned by Get for names nobody registered.
var ErrUnknownDataset = errors.New("unknown dataset")

// Options select and configure a dataset.
type Options struct {
	Name string
	// IndexPath is the sqlite frame index used by the "frames" dataset.
	IndexPath string
	Image     tensor.ImageOptions
}

// Factory opens the loader for one split.
type Factory func(ctx context.Context, opts Options, split string) (Loader, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a dataset available under name, replacing any previous entry.
// Names without a registered factory are looked up in the frame index.
func Register(name string, f Factory) {
	registryMu.Lock()
	registry[name] = f
	registryMu.Unlock()
}

// Names lists registered datasets in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get opens one loader per split, in the order given.
func Get(ctx context.Context, opts Options, splits ...string) ([]Loader, error) {
	registryMu.RLock()
	f, ok := registry[opts.Name]
	registryMu.RUnlock()
	if !ok {
		f = openFrames
	}
	loaders := make([]Loader, 0, len(splits))
	for _, split := range splits {
		l, err := f(ctx, opts, split)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s/%s: %w", opts.Name, split, err)
		}
		loaders = append(loaders, l)
	}
	return loaders, nil
}
