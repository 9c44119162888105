package cloud

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Frame is one dataset entry: a velodyne scan plus, when present, its
// parallel label file.
type Frame struct {
	Name      string // Base name without extension, e.g. "000042"
	BinPath   string
	LabelPath string // Empty when the sequence has no labels
}

// HasLabels reports whether a paired .label file exists for this frame.
func (f Frame) HasLabels() bool { return f.LabelPath != "" }

// Load reads the frame's cloud and labels. Labels are nil for unlabeled
// frames. A labeled frame whose label count does not match the point
// count is an error.
func (f Frame) Load() (Cloud, []Label, error) {
	c, err := ReadBinFile(f.BinPath)
	if err != nil {
		return nil, nil, err
	}
	if !f.HasLabels() {
		return c, nil, nil
	}
	labels, err := ReadLabelsFile(f.LabelPath)
	if err != nil {
		return nil, nil, err
	}
	if len(labels) != len(c) {
		return nil, nil, fmt.Errorf("cloud: frame %s: %d labels for %d points", f.Name, len(labels), len(c))
	}
	return c, labels, nil
}

// Dataset is a sequence directory holding velodyne/*.bin scans and,
// optionally, labels/*.label files with matching base names.
type Dataset struct {
	Root   string
	Frames []Frame
}

// OpenDataset scans a sequence directory. Frames are sorted by name.
// Scans without a matching label file are kept (inference-only use);
// label files without a scan are ignored.
func OpenDataset(root string) (*Dataset, error) {
	binDir := filepath.Join(root, "velodyne")
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil, fmt.Errorf("cloud: read sequence %s: %w", root, err)
	}

	labelDir := filepath.Join(root, "labels")
	ds := &Dataset{Root: root}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".bin")
		frame := Frame{
			Name:    name,
			BinPath: filepath.Join(binDir, e.Name()),
		}
		labelPath := filepath.Join(labelDir, name+".label")
		if _, err := os.Stat(labelPath); err == nil {
			frame.LabelPath = labelPath
		}
		ds.Frames = append(ds.Frames, frame)
	}
	if len(ds.Frames) == 0 {
		return nil, fmt.Errorf("cloud: sequence %s has no .bin scans", root)
	}
	sort.Slice(ds.Frames, func(i, j int) bool { return ds.Frames[i].Name < ds.Frames[j].Name })
	return ds, nil
}

// Labeled returns the subset of frames that carry label files.
func (ds *Dataset) Labeled() []Frame {
	out := make([]Frame, 0, len(ds.Frames))
	for _, f := range ds.Frames {
		if f.HasLabels() {
			out = append(out, f)
		}
	}
	return out
}
