package segment

import (
	"fmt"
	"sort"
)

// ClassResult holds per-class evaluation counts and IoU.
type ClassResult struct {
	Class uint16  `json:"class"`
	TP    int64   `json:"tp"`
	FP    int64   `json:"fp"`
	FN    int64   `json:"fn"`
	IoU   float64 `json:"iou"`
}

// Evaluation aggregates segmentation quality over one or more frames.
// Points whose ground truth equals the ignore label are excluded.
type Evaluation struct {
	IgnoreLabel uint16                `json:"ignore_label"`
	Total       int64                 `json:"total"`
	Correct     int64                 `json:"correct"`
	PerClass    map[uint16]*ClassResult `json:"-"`
}

// NewEvaluation returns an empty accumulator.
func NewEvaluation(ignoreLabel uint16) *Evaluation {
	return &Evaluation{
		IgnoreLabel: ignoreLabel,
		PerClass:    map[uint16]*ClassResult{},
	}
}

// Add accumulates one frame of per-point predictions against ground truth.
func (e *Evaluation) Add(preds, truth []uint16) error {
	if len(preds) != len(truth) {
		return fmt.Errorf("segment: evaluate %d predictions against %d labels", len(preds), len(truth))
	}
	for i := range preds {
		t := truth[i]
		if t == e.IgnoreLabel {
			continue
		}
		p := preds[i]
		e.Total++
		if p == t {
			e.Correct++
			e.class(t).TP++
			continue
		}
		e.class(t).FN++
		if p != e.IgnoreLabel {
			e.class(p).FP++
		}
	}
	return nil
}

func (e *Evaluation) class(c uint16) *ClassResult {
	r, ok := e.PerClass[c]
	if !ok {
		r = &ClassResult{Class: c}
		e.PerClass[c] = r
	}
	return r
}

// Accuracy returns overall point accuracy over non-ignored points.
func (e *Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// Results returns per-class results sorted by class ID, with IoU filled in.
func (e *Evaluation) Results() []ClassResult {
	out := make([]ClassResult, 0, len(e.PerClass))
	for _, r := range e.PerClass {
		cr := *r
		denom := cr.TP + cr.FP + cr.FN
		if denom > 0 {
			cr.IoU = float64(cr.TP) / float64(denom)
		}
		out = append(out, cr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// MeanIoU returns the unweighted mean IoU over classes present in the
// ground truth or predictions.
func (e *Evaluation) MeanIoU() float64 {
	results := e.Results()
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.IoU
	}
	return sum / float64(len(results))
}
