// Package segment provides the segmentation model interface, a trainable
// statistical baseline, and evaluation metrics for per-voxel semantic
// predictions.
package segment

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/lidarseg/internal/voxel"
)

// Segmenter predicts a semantic class for every voxel in a batch. The
// result is parallel to batch.Lidar.Coords; callers scatter it back to
// per-point resolution with voxel.Devoxelize.
type Segmenter interface {
	// Name identifies the model (for run records and checkpoints).
	Name() string

	// Predict returns one semantic class per batched voxel.
	Predict(ctx context.Context, batch *voxel.Batch) ([]uint16, error)
}

// Trainable is implemented by segmenters that can be fit in-process.
type Trainable interface {
	Segmenter

	// Fit trains on labeled batches for the given number of epochs.
	Fit(ctx context.Context, batches []*voxel.Batch, epochs int) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Segmenter{}
)

// Register adds a named segmenter constructor. Registering a duplicate
// name panics; registration happens from package init functions.
func Register(name string, ctor func() Segmenter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("segment: duplicate model registration %q", name))
	}
	registry[name] = ctor
}

// New constructs a registered segmenter by name.
func New(name string) (Segmenter, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("segment: unknown model %q (registered: %v)", name, Models())
	}
	return ctor(), nil
}

// Models lists registered model names, sorted.
func Models() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
