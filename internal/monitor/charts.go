package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleRunChart renders a bar chart of a run's per-class IoU.
func (ws *WebServer) handleRunChart(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	run, err := ws.runs.Get(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	metrics, err := ws.runs.GetClassMetrics(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(metrics) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "run has no class metrics")
		return
	}

	x := make([]string, 0, len(metrics))
	y := make([]opts.BarData, 0, len(metrics))
	for _, m := range metrics {
		x = append(x, m.ClassName)
		y = append(y, opts.BarData{Value: m.IoU})
	}

	subtitle := fmt.Sprintf("model=%s sequence=%s voxel=%.3fm", run.Model, run.Sequence, run.VoxelSize)
	if run.MeanIoU.Valid {
		subtitle += fmt.Sprintf(" mIoU=%.3f", run.MeanIoU.Float64)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Per-class IoU", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("iou", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
