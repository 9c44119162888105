package render

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// classPalette maps class order to plot colors. Classes beyond the
// palette wrap around.
var classPalette = []color.RGBA{
	{R: 0x44, G: 0x01, B: 0x54, A: 255},
	{R: 0x3e, G: 0x49, B: 0x89, A: 255},
	{R: 0x26, G: 0x82, B: 0x8e, A: 255},
	{R: 0x35, G: 0xb7, B: 0x79, A: 255},
	{R: 0xb5, G: 0xde, B: 0x2b, A: 255},
	{R: 0xfd, G: 0xe7, B: 0x25, A: 255},
	{R: 0xe4, G: 0x57, B: 0x56, A: 255},
	{R: 0x6a, G: 0x51, B: 0xa3, A: 255},
}

// SaveProjections writes top-down (X/Y) and side (X/Z) PNG scatter plots of
// a segmented cloud into dir, one scatter series per predicted class.
// Returns the written file paths.
func SaveProjections(dir, name string, points [][4]float32, preds []uint16) ([]string, error) {
	if len(points) != len(preds) {
		return nil, fmt.Errorf("render: %d points but %d predictions", len(points), len(preds))
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("render: empty cloud")
	}

	// Bucket point indices by class so each class gets one colored series.
	byClass := map[uint16][]int{}
	for i, p := range preds {
		byClass[p] = append(byClass[p], i)
	}
	classes := make([]uint16, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	projections := []struct {
		suffix string
		yIdx   int
		yLabel string
	}{
		{"top", 1, "Y (m)"},
		{"side", 2, "Z (m)"},
	}

	var files []string
	for _, proj := range projections {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s (%s)", name, proj.suffix)
		p.X.Label.Text = "X (m)"
		p.Y.Label.Text = proj.yLabel

		for ci, class := range classes {
			idxs := byClass[class]
			pts := make(plotter.XYs, 0, len(idxs))
			for _, i := range idxs {
				pts = append(pts, plotter.XY{X: float64(points[i][0]), Y: float64(points[i][proj.yIdx])})
			}
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, fmt.Errorf("render: scatter for class %d: %w", class, err)
			}
			sc.GlyphStyle.Color = classPalette[ci%len(classPalette)]
			sc.GlyphStyle.Radius = vg.Points(1)
			p.Add(sc)
			p.Legend.Add(fmt.Sprintf("class %d", class), sc)
		}

		file := filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, proj.suffix))
		if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
			return nil, fmt.Errorf("render: save %s: %w", file, err)
		}
		files = append(files, file)
	}
	return files, nil
}
