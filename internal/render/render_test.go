package render

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func testPoints(n int) ([][4]float32, []uint16) {
	points := make([][4]float32, n)
	preds := make([]uint16, n)
	for i := range points {
		points[i] = [4]float32{float32(i), float32(-i), float32(i % 5), 0.5}
		preds[i] = uint16(i%3 + 1)
	}
	return points, preds
}

func TestWriteScatterHTML(t *testing.T) {
	points, preds := testPoints(100)
	var buf bytes.Buffer
	err := WriteScatterHTML(&buf, points, preds, ScatterOptions{Title: "test"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "echarts") {
		t.Error("output does not look like an ECharts document")
	}
	if !strings.Contains(out, "test") {
		t.Error("output missing chart title")
	}
}

func TestWriteScatterHTML_Downsamples(t *testing.T) {
	points, preds := testPoints(1000)
	var buf bytes.Buffer
	err := WriteScatterHTML(&buf, points, preds, ScatterOptions{Title: "t", MaxPoints: 100})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	// Rough check: the rendered payload should not carry anywhere near
	// 1000 data rows at stride 10.
	if n := strings.Count(buf.String(), `"value"`); n > 200 {
		t.Errorf("expected downsampled output, found %d data rows", n)
	}
}

func TestWriteScatterHTML_Errors(t *testing.T) {
	points, preds := testPoints(10)
	var buf bytes.Buffer
	if err := WriteScatterHTML(&buf, points, preds[:5], ScatterOptions{}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if err := WriteScatterHTML(&buf, nil, nil, ScatterOptions{}); err == nil {
		t.Error("expected error for empty cloud")
	}
}

func TestSaveProjections(t *testing.T) {
	points, preds := testPoints(50)
	dir := t.TempDir()
	files, err := SaveProjections(dir, "000000", points, preds)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			t.Errorf("missing output %s: %v", f, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("empty output %s", f)
		}
	}
}

func TestSaveProjections_Empty(t *testing.T) {
	if _, err := SaveProjections(t.TempDir(), "x", nil, nil); err == nil {
		t.Error("expected error for empty cloud")
	}
}
