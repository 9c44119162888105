// Package voxel implements voxel quantization of labeled point clouds and
// collation of quantized samples into sparse batches.
//
// Quantization snaps each point to an integer grid at a configurable leaf
// size, deduplicates points sharing a voxel, and records an inverse map so
// per-voxel results can be scattered back to per-point resolution.
package voxel

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/lidarseg/internal/cloud"
)

// DefaultVoxelSize is the default quantization leaf size in meters.
const DefaultVoxelSize = 0.05

// DefaultIgnoreLabel is the conventional "unlabeled" sentinel excluded
// from training and evaluation.
const DefaultIgnoreLabel uint16 = 0

// ErrLengthMismatch indicates a label buffer whose length differs from its
// paired cloud.
var ErrLengthMismatch = errors.New("voxel: point/label length mismatch")

// Options controls quantization.
type Options struct {
	VoxelSize   float64 // Leaf size in meters; must be > 0
	IgnoreLabel uint16  // Semantic class excluded before quantization
}

// DefaultOptions returns the conventional quantization settings.
func DefaultOptions() Options {
	return Options{VoxelSize: DefaultVoxelSize, IgnoreLabel: DefaultIgnoreLabel}
}

// Quantized bundles the deduplicated voxel set, the surviving full-resolution
// points, and the mapping between the two.
type Quantized struct {
	// Deduplicated voxel data, one entry per occupied voxel.
	Coords [][3]int32    // Non-negative integer voxel coordinates
	Feats  [][4]float32  // (x, y, z, intensity) of the representative point
	Labels []uint16      // Semantic label of the representative point; nil when unlabeled

	// Full-resolution data for every non-ignored input point, input order.
	FullFeats  [][4]float32
	FullLabels []uint16 // nil when unlabeled

	// InverseMap[i] is the index into Coords/Feats of the voxel holding
	// full-resolution point i.
	InverseMap []int32
}

// NumVoxels returns the number of occupied voxels.
func (q *Quantized) NumVoxels() int { return len(q.Coords) }

// NumPoints returns the number of surviving full-resolution points.
func (q *Quantized) NumPoints() int { return len(q.FullFeats) }

// Quantize voxelizes a cloud. labels may be nil for unlabeled clouds;
// when present it must be index-parallel to c. Points whose semantic label
// equals opts.IgnoreLabel are dropped before the grid origin is computed,
// so the coordinate shift depends only on the surviving points.
//
// Each voxel keeps its first point (input order) as representative. The
// inverse map has one entry per surviving input point. Quantizing an
// already deduplicated, voxel-aligned set returns the same set.
func Quantize(c cloud.Cloud, labels []uint16, opts Options) (*Quantized, error) {
	if opts.VoxelSize <= 0 {
		return nil, fmt.Errorf("voxel: leaf size must be positive, got %g", opts.VoxelSize)
	}
	if labels != nil && len(labels) != len(c) {
		return nil, fmt.Errorf("%w: %d points, %d labels", ErrLengthMismatch, len(c), len(labels))
	}

	// Pass 1: drop ignored points and compute rounded grid coordinates.
	inv := 1.0 / opts.VoxelSize
	n := len(c)
	coords := make([][3]int32, 0, n)
	feats := make([][4]float32, 0, n)
	var kept []uint16
	if labels != nil {
		kept = make([]uint16, 0, n)
	}
	minC := [3]int32{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	for i, p := range c {
		if labels != nil && labels[i] == opts.IgnoreLabel {
			continue
		}
		gc := [3]int32{
			int32(math.Round(float64(p.X) * inv)),
			int32(math.Round(float64(p.Y) * inv)),
			int32(math.Round(float64(p.Z) * inv)),
		}
		for a := 0; a < 3; a++ {
			if gc[a] < minC[a] {
				minC[a] = gc[a]
			}
		}
		coords = append(coords, gc)
		feats = append(feats, [4]float32{p.X, p.Y, p.Z, p.Intensity})
		if labels != nil {
			kept = append(kept, labels[i])
		}
	}

	q := &Quantized{
		FullFeats:  feats,
		FullLabels: kept,
		InverseMap: make([]int32, len(coords)),
	}
	if len(coords) == 0 {
		return q, nil
	}

	// Pass 2: shift to a non-negative origin and deduplicate, first point
	// per voxel wins.
	seen := make(map[[3]int32]int32, len(coords))
	for i := range coords {
		for a := 0; a < 3; a++ {
			coords[i][a] -= minC[a]
		}
		idx, ok := seen[coords[i]]
		if !ok {
			idx = int32(len(q.Coords))
			seen[coords[i]] = idx
			q.Coords = append(q.Coords, coords[i])
			q.Feats = append(q.Feats, feats[i])
			if kept != nil {
				q.Labels = append(q.Labels, kept[i])
			}
		}
		q.InverseMap[i] = idx
	}
	return q, nil
}

// Devoxelize scatters per-voxel predictions back to per-point order using
// the inverse map. The result has one entry per surviving input point.
func Devoxelize(voxelPreds []uint16, inverseMap []int32) ([]uint16, error) {
	out := make([]uint16, len(inverseMap))
	for i, v := range inverseMap {
		if v < 0 || int(v) >= len(voxelPreds) {
			return nil, fmt.Errorf("voxel: inverse map entry %d out of range [0,%d)", v, len(voxelPreds))
		}
		out[i] = voxelPreds[v]
	}
	return out, nil
}
