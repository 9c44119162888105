// Package render draws segmented point clouds: an interactive ECharts HTML
// scatter (top-down projection with a per-class visual map) and static PNG
// projections via gonum/plot.
package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis is the color ramp used for class visual maps.
var viridis = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// ScatterOptions controls HTML scatter rendering.
type ScatterOptions struct {
	Title     string
	Subtitle  string
	MaxPoints int // Stride-downsample above this count; 0 means 8000
}

// WriteScatterHTML renders a top-down (X/Y) scatter of the cloud with each
// point colored by its predicted class. points carries (x, y, z, intensity)
// feature rows; preds is index-parallel.
func WriteScatterHTML(w io.Writer, points [][4]float32, preds []uint16, o ScatterOptions) error {
	if len(points) != len(preds) {
		return fmt.Errorf("render: %d points but %d predictions", len(points), len(preds))
	}
	if len(points) == 0 {
		return fmt.Errorf("render: empty cloud")
	}
	maxPoints := o.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 8000
	}

	stride := 1
	if len(points) > maxPoints {
		stride = int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, len(points)/stride+1)
	maxAbs := 0.0
	maxClass := float64(0)
	for i := 0; i < len(points); i += stride {
		x := float64(points[i][0])
		y := float64(points[i][1])
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		class := float64(preds[i])
		if class > maxClass {
			maxClass = class
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, class}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxClass == 0 {
		maxClass = 1
	}

	// Square plot with symmetric axes so the projection keeps its aspect.
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxClass),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("segmentation", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	return scatter.Render(w)
}
