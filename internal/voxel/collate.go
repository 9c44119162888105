package voxel

import "fmt"

// SparseTensor pairs occupied coordinates with their feature vectors.
// After collation, coordinate column 0 carries the batch index and
// columns 1-3 the voxel coordinates.
type SparseTensor struct {
	Coords [][4]int32
	Feats  [][4]float32
}

// Len returns the number of occupied coordinates.
func (s *SparseTensor) Len() int { return len(s.Coords) }

// Batch is a collated set of quantized samples. Per-voxel fields are
// concatenated across samples; the inverse maps are offset so they index
// into the concatenated voxel set.
type Batch struct {
	Lidar         SparseTensor // Batched voxel coordinates and features
	Targets       []uint16     // Per-voxel labels; nil for unlabeled batches
	TargetsMapped []uint16     // Per-point labels; nil for unlabeled batches
	Points        [][4]float32 // Full-resolution point features
	InverseMap    []int32      // Per-point index into the batched voxel set
	BatchIndex    []int32      // Per-point sample index, parallel to Points

	// VoxelOffsets[i] is the index of sample i's first voxel in Lidar;
	// a final entry holds the total voxel count.
	VoxelOffsets []int32
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return len(b.VoxelOffsets) - 1 }

// Collate concatenates quantized samples into one batch, appending the
// sample index as coordinate column 0. Samples must be uniformly labeled
// or uniformly unlabeled.
func Collate(samples []*Quantized) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("voxel: collate of empty sample list")
	}
	labeled := samples[0].Labels != nil
	for i, s := range samples {
		if (s.Labels != nil) != labeled {
			return nil, fmt.Errorf("voxel: collate sample %d: mixed labeled and unlabeled samples", i)
		}
	}

	var totalVoxels, totalPoints int
	for _, s := range samples {
		totalVoxels += s.NumVoxels()
		totalPoints += s.NumPoints()
	}

	b := &Batch{
		Lidar: SparseTensor{
			Coords: make([][4]int32, 0, totalVoxels),
			Feats:  make([][4]float32, 0, totalVoxels),
		},
		Points:       make([][4]float32, 0, totalPoints),
		InverseMap:   make([]int32, 0, totalPoints),
		BatchIndex:   make([]int32, 0, totalPoints),
		VoxelOffsets: make([]int32, 1, len(samples)+1),
	}
	if labeled {
		b.Targets = make([]uint16, 0, totalVoxels)
		b.TargetsMapped = make([]uint16, 0, totalPoints)
	}

	for si, s := range samples {
		offset := int32(len(b.Lidar.Coords))
		for vi, c := range s.Coords {
			b.Lidar.Coords = append(b.Lidar.Coords, [4]int32{int32(si), c[0], c[1], c[2]})
			b.Lidar.Feats = append(b.Lidar.Feats, s.Feats[vi])
		}
		if labeled {
			b.Targets = append(b.Targets, s.Labels...)
			b.TargetsMapped = append(b.TargetsMapped, s.FullLabels...)
		}
		b.Points = append(b.Points, s.FullFeats...)
		for _, v := range s.InverseMap {
			b.InverseMap = append(b.InverseMap, v+offset)
			b.BatchIndex = append(b.BatchIndex, int32(si))
		}
		b.VoxelOffsets = append(b.VoxelOffsets, int32(len(b.Lidar.Coords)))
	}
	return b, nil
}

// SampleInverseMap returns sample i's slice of the batched inverse map,
// rebased to the sample's own voxel range.
func (b *Batch) SampleInverseMap(i int) []int32 {
	start, end := b.VoxelOffsets[i], b.VoxelOffsets[i+1]
	out := make([]int32, 0, end-start)
	for j, bi := range b.BatchIndex {
		if bi == int32(i) {
			out = append(out, b.InverseMap[j]-start)
		}
	}
	return out
}
