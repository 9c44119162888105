package segment

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/banshee-data/lidarseg/internal/cloud"
	"github.com/banshee-data/lidarseg/internal/voxel"
)

// syntheticBatch builds a labeled batch with two well-separated clusters:
// class 1 near the origin at low intensity, class 2 at (20,20,5) with high
// intensity.
func syntheticBatch(t *testing.T, seed int64, n int) *voxel.Batch {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var pts cloud.Cloud
	var labels []uint16
	for i := 0; i < n; i++ {
		pts = append(pts, cloud.Point{
			X:         float32(rng.NormFloat64() * 2),
			Y:         float32(rng.NormFloat64() * 2),
			Z:         float32(rng.NormFloat64() * 0.5),
			Intensity: float32(0.1 + rng.Float64()*0.1),
		})
		labels = append(labels, 1)
		pts = append(pts, cloud.Point{
			X:         float32(20 + rng.NormFloat64()*2),
			Y:         float32(20 + rng.NormFloat64()*2),
			Z:         float32(5 + rng.NormFloat64()*0.5),
			Intensity: float32(0.8 + rng.Float64()*0.1),
		})
		labels = append(labels, 2)
	}
	q, err := voxel.Quantize(pts, labels, voxel.Options{VoxelSize: 0.1, IgnoreLabel: 0})
	if err != nil {
		t.Fatalf("quantize failed: %v", err)
	}
	b, err := voxel.Collate([]*voxel.Quantized{q})
	if err != nil {
		t.Fatalf("collate failed: %v", err)
	}
	return b
}

func TestCentroidModel_FitAndPredict(t *testing.T) {
	train := syntheticBatch(t, 1, 200)
	test := syntheticBatch(t, 2, 50)

	m := NewCentroidModel()
	if err := m.Fit(context.Background(), []*voxel.Batch{train}, 3); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(m.Classes) != 2 {
		t.Fatalf("expected 2 fitted classes, got %d", len(m.Classes))
	}

	preds, err := m.Predict(context.Background(), test)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(preds) != test.Lidar.Len() {
		t.Fatalf("got %d predictions for %d voxels", len(preds), test.Lidar.Len())
	}

	correct := 0
	for i, p := range preds {
		if p == test.Targets[i] {
			correct++
		}
	}
	acc := float64(correct) / float64(len(preds))
	if acc < 0.95 {
		t.Errorf("accuracy %.3f on separable clusters, want >= 0.95", acc)
	}
}

func TestCentroidModel_PredictUnfitted(t *testing.T) {
	m := NewCentroidModel()
	if _, err := m.Predict(context.Background(), syntheticBatch(t, 3, 5)); err == nil {
		t.Error("expected error for unfitted model")
	}
}

func TestCentroidModel_FitRequiresLabels(t *testing.T) {
	q, err := voxel.Quantize(cloud.Cloud{{X: 1}}, nil, voxel.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, err := voxel.Collate([]*voxel.Quantized{q})
	if err != nil {
		t.Fatal(err)
	}
	m := NewCentroidModel()
	if err := m.Fit(context.Background(), []*voxel.Batch{b}, 1); err == nil {
		t.Error("expected error for unlabeled batch")
	}
}

func TestCentroidModel_CheckpointRoundTrip(t *testing.T) {
	train := syntheticBatch(t, 4, 100)
	m := NewCentroidModel()
	if err := m.Fit(context.Background(), []*voxel.Batch{train}, 1); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := m.SaveCheckpoint(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := NewCentroidModel()
	if err := loaded.LoadCheckpoint(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Classes) != len(m.Classes) {
		t.Fatalf("loaded %d classes, want %d", len(loaded.Classes), len(m.Classes))
	}
	for i := range m.Classes {
		if loaded.Classes[i] != m.Classes[i] {
			t.Errorf("class %d changed in round trip", i)
		}
	}

	// Predictions must be identical after reload.
	test := syntheticBatch(t, 5, 20)
	p1, err := m.Predict(context.Background(), test)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := loaded.Predict(context.Background(), test)
	if err != nil {
		t.Fatal(err)
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Errorf("prediction %d differs after checkpoint round trip", i)
		}
	}
}

func TestRegistry(t *testing.T) {
	m, err := New(CentroidModelName)
	if err != nil {
		t.Fatalf("registry lookup failed: %v", err)
	}
	if m.Name() != CentroidModelName {
		t.Errorf("name = %s, want %s", m.Name(), CentroidModelName)
	}
	if _, err := New("no-such-model"); err == nil {
		t.Error("expected error for unknown model")
	}
}
