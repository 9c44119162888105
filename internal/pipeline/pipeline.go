// Package pipeline wires the segmentation stages end to end: dataset
// frames are quantized, collated into batches, run through a segmenter,
// scattered back to point resolution, scored against ground truth, and
// persisted as a run.
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/lidarseg/internal/cloud"
	"github.com/banshee-data/lidarseg/internal/config"
	"github.com/banshee-data/lidarseg/internal/render"
	"github.com/banshee-data/lidarseg/internal/segment"
	"github.com/banshee-data/lidarseg/internal/store"
	"github.com/banshee-data/lidarseg/internal/voxel"
)

// Runner executes segmentation runs over sequence directories.
type Runner struct {
	Config    *config.TuningConfig
	Model     segment.Segmenter
	Runs      *store.RunStore // Optional; runs are not persisted when nil
	RenderDir string          // Optional; no rendering when empty
}

// Result summarizes one completed run.
type Result struct {
	RunID      string
	FrameCount int
	MeanIoU    float64
	Accuracy   float64
	Scored     bool // False when the sequence had no labels
	Rendered   []string
}

// quantizeOpts builds voxel options from tuning config.
func (r *Runner) quantizeOpts() voxel.Options {
	opts := voxel.DefaultOptions()
	if r.Config.VoxelSize != nil {
		opts.VoxelSize = *r.Config.VoxelSize
	}
	if r.Config.IgnoreLabel != nil {
		opts.IgnoreLabel = uint16(*r.Config.IgnoreLabel)
	}
	return opts
}

func (r *Runner) batchSize() int {
	if r.Config.BatchSize != nil && *r.Config.BatchSize > 0 {
		return *r.Config.BatchSize
	}
	return 2
}

// Run segments every frame of the sequence at root. Labeled frames
// contribute to the evaluation; a fully unlabeled sequence produces an
// unscored run.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	ds, err := cloud.OpenDataset(root)
	if err != nil {
		return nil, err
	}
	qopts := r.quantizeOpts()
	eval := segment.NewEvaluation(qopts.IgnoreLabel)

	res := &Result{}
	batchSize := r.batchSize()
	var pending []*voxel.Quantized
	var pendingFrames []cloud.Frame

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batch, err := voxel.Collate(pending)
		if err != nil {
			return err
		}
		preds, err := r.Model.Predict(ctx, batch)
		if err != nil {
			return err
		}
		pointPreds, err := voxel.Devoxelize(preds, batch.InverseMap)
		if err != nil {
			return err
		}
		if batch.TargetsMapped != nil {
			if err := eval.Add(pointPreds, batch.TargetsMapped); err != nil {
				return err
			}
			res.Scored = true
		}
		if r.RenderDir != "" && len(res.Rendered) == 0 {
			files, err := r.renderFirstSample(batch, pointPreds, pendingFrames[0].Name)
			if err != nil {
				// Rendering is best-effort; a failed plot should not sink a run.
				log.Printf("[Pipeline] render failed for %s: %v", pendingFrames[0].Name, err)
			} else {
				res.Rendered = files
			}
		}
		pending = pending[:0]
		pendingFrames = pendingFrames[:0]
		return nil
	}

	for _, frame := range ds.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, rawLabels, err := frame.Load()
		if err != nil {
			return nil, err
		}
		var semantics []uint16
		if rawLabels != nil {
			semantics = cloud.Semantics(rawLabels)
		}
		q, err := voxel.Quantize(c, semantics, qopts)
		if err != nil {
			return nil, fmt.Errorf("pipeline: quantize frame %s: %w", frame.Name, err)
		}
		if q.NumVoxels() == 0 {
			log.Printf("[Pipeline] frame %s has no points after filtering, skipping", frame.Name)
			continue
		}
		// Collate rejects mixed batches, so flush at the label boundary.
		if len(pending) > 0 && (pending[0].Labels != nil) != (q.Labels != nil) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		pending = append(pending, q)
		pendingFrames = append(pendingFrames, frame)
		res.FrameCount++
		if len(pending) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if res.FrameCount == 0 {
		return nil, fmt.Errorf("pipeline: sequence %s produced no frames", root)
	}

	if res.Scored {
		res.MeanIoU = eval.MeanIoU()
		res.Accuracy = eval.Accuracy()
		log.Printf("[Pipeline] %s: %d frames, mIoU=%.4f acc=%.4f",
			filepath.Base(root), res.FrameCount, res.MeanIoU, res.Accuracy)
	} else {
		log.Printf("[Pipeline] %s: %d frames, unlabeled (no scores)",
			filepath.Base(root), res.FrameCount)
	}

	if r.Runs != nil {
		if err := r.persist(root, res, eval, qopts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) persist(root string, res *Result, eval *segment.Evaluation, qopts voxel.Options) error {
	params, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("pipeline: encode run params: %w", err)
	}
	run := &store.Run{
		Sequence:    filepath.Base(root),
		Model:       r.Model.Name(),
		VoxelSize:   qopts.VoxelSize,
		IgnoreLabel: int(qopts.IgnoreLabel),
		FrameCount:  res.FrameCount,
		ParamsJSON:  params,
	}
	if res.Scored {
		run.MeanIoU = sql.NullFloat64{Float64: res.MeanIoU, Valid: true}
		run.Accuracy = sql.NullFloat64{Float64: res.Accuracy, Valid: true}
	}
	if err := r.Runs.Insert(run); err != nil {
		return err
	}
	res.RunID = run.RunID

	if res.Scored {
		results := eval.Results()
		metrics := make([]store.ClassMetric, 0, len(results))
		for _, cr := range results {
			metrics = append(metrics, store.ClassMetric{
				RunID:     run.RunID,
				ClassID:   int(cr.Class),
				ClassName: r.Config.ClassName(cr.Class),
				IoU:       cr.IoU,
				TP:        cr.TP,
				FP:        cr.FP,
				FN:        cr.FN,
			})
		}
		if err := r.Runs.InsertClassMetrics(metrics); err != nil {
			return err
		}
	}
	return nil
}

// renderFirstSample draws sample 0 of a batch as HTML and PNG projections.
func (r *Runner) renderFirstSample(batch *voxel.Batch, pointPreds []uint16, name string) ([]string, error) {
	var points [][4]float32
	var preds []uint16
	for i, bi := range batch.BatchIndex {
		if bi == 0 {
			points = append(points, batch.Points[i])
			preds = append(preds, pointPreds[i])
		}
	}

	if err := os.MkdirAll(r.RenderDir, 0o755); err != nil {
		return nil, err
	}
	maxPoints := 0
	if r.Config.MaxRenderPoints != nil {
		maxPoints = *r.Config.MaxRenderPoints
	}

	htmlPath := filepath.Join(r.RenderDir, name+".html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return nil, err
	}
	err = render.WriteScatterHTML(f, points, preds, render.ScatterOptions{
		Title:     "Semantic segmentation",
		Subtitle:  fmt.Sprintf("frame=%s model=%s points=%d", name, r.Model.Name(), len(points)),
		MaxPoints: maxPoints,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	files, err := render.SaveProjections(r.RenderDir, name, points, preds)
	if err != nil {
		return nil, err
	}
	return append([]string{htmlPath}, files...), nil
}

// CollectBatches quantizes and collates the labeled frames of a sequence
// for training.
func CollectBatches(ctx context.Context, root string, cfg *config.TuningConfig) ([]*voxel.Batch, error) {
	ds, err := cloud.OpenDataset(root)
	if err != nil {
		return nil, err
	}
	labeled := ds.Labeled()
	if len(labeled) == 0 {
		return nil, fmt.Errorf("pipeline: sequence %s has no labeled frames", root)
	}

	r := &Runner{Config: cfg}
	qopts := r.quantizeOpts()
	batchSize := r.batchSize()

	var batches []*voxel.Batch
	var pending []*voxel.Quantized
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		b, err := voxel.Collate(pending)
		if err != nil {
			return err
		}
		batches = append(batches, b)
		pending = pending[:0]
		return nil
	}

	for _, frame := range labeled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, rawLabels, err := frame.Load()
		if err != nil {
			return nil, err
		}
		q, err := voxel.Quantize(c, cloud.Semantics(rawLabels), qopts)
		if err != nil {
			return nil, fmt.Errorf("pipeline: quantize frame %s: %w", frame.Name, err)
		}
		if q.NumVoxels() == 0 {
			continue
		}
		pending = append(pending, q)
		if len(pending) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("pipeline: sequence %s produced no batches", root)
	}
	return batches, nil
}
