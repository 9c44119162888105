package cloud

import (
	"os"
	"path/filepath"
	"testing"
)

// writeSequence builds a minimal sequence directory with the given frames.
// labeled controls which frames get a .label file.
func writeSequence(t *testing.T, frames map[string]Cloud, labeled map[string][]Label) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "velodyne"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "labels"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, c := range frames {
		if err := WriteBinFile(filepath.Join(root, "velodyne", name+".bin"), c); err != nil {
			t.Fatal(err)
		}
		if labels, ok := labeled[name]; ok {
			if err := WriteLabelsFile(filepath.Join(root, "labels", name+".label"), labels); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func TestOpenDataset_PairsAndSorts(t *testing.T) {
	c := Cloud{{X: 1, Y: 2, Z: 3, Intensity: 0.5}}
	root := writeSequence(t,
		map[string]Cloud{"000002": c, "000000": c, "000001": c},
		map[string][]Label{"000000": {MakeLabel(1, 0)}, "000002": {MakeLabel(2, 0)}},
	)

	ds, err := OpenDataset(root)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(ds.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(ds.Frames))
	}
	for i, want := range []string{"000000", "000001", "000002"} {
		if ds.Frames[i].Name != want {
			t.Errorf("frame %d = %s, want %s", i, ds.Frames[i].Name, want)
		}
	}
	if !ds.Frames[0].HasLabels() || ds.Frames[1].HasLabels() || !ds.Frames[2].HasLabels() {
		t.Errorf("wrong label pairing: %+v", ds.Frames)
	}
	if got := len(ds.Labeled()); got != 2 {
		t.Errorf("expected 2 labeled frames, got %d", got)
	}
}

func TestFrame_Load_LengthMismatch(t *testing.T) {
	root := writeSequence(t,
		map[string]Cloud{"000000": {{X: 1}, {X: 2}}},
		map[string][]Label{"000000": {MakeLabel(1, 0)}},
	)
	ds, err := OpenDataset(root)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, _, err := ds.Frames[0].Load(); err == nil {
		t.Error("expected error for label/point count mismatch")
	}
}

func TestOpenDataset_Empty(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "velodyne"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDataset(root); err == nil {
		t.Error("expected error for empty sequence")
	}
}
