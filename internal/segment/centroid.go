package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lidarseg/internal/voxel"
)

// CentroidModelName is the registry name of the Gaussian baseline.
const CentroidModelName = "gaussian-centroid"

// varianceFloor keeps degenerate feature columns (e.g. constant intensity)
// from producing infinite log-likelihoods.
const varianceFloor = 1e-6

func init() {
	Register(CentroidModelName, func() Segmenter { return NewCentroidModel() })
}

// classStats holds the fitted per-class feature distribution.
type classStats struct {
	Class    uint16     `json:"class"`
	Count    int64      `json:"count"`
	LogPrior float64    `json:"log_prior"`
	Mean     [4]float64 `json:"mean"`
	Variance [4]float64 `json:"variance"`
}

// CentroidModel scores each voxel's (x, y, z, intensity) feature vector
// against a per-class Gaussian fitted from labeled batches, predicting the
// class with the highest posterior. It is the in-repo stand-in for an
// external pretrained network: cheap, deterministic, and honest about what
// four features can separate.
type CentroidModel struct {
	Classes []classStats
}

// NewCentroidModel returns an unfitted model.
func NewCentroidModel() *CentroidModel { return &CentroidModel{} }

// Name implements Segmenter.
func (m *CentroidModel) Name() string { return CentroidModelName }

// Fit estimates per-class feature means and variances over the labeled
// batches. Each epoch re-estimates from scratch and logs the mean negative
// log-likelihood under the previous epoch's parameters, so successive
// epochs report the fit quality trend on the training set.
func (m *CentroidModel) Fit(ctx context.Context, batches []*voxel.Batch, epochs int) error {
	if epochs <= 0 {
		epochs = 1
	}
	for _, b := range batches {
		if b.Targets == nil {
			return fmt.Errorf("segment: fit requires labeled batches")
		}
	}

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Gather feature columns per class.
		cols := map[uint16]*[4][]float64{}
		var total int64
		for _, b := range batches {
			for vi, target := range b.Targets {
				c, ok := cols[target]
				if !ok {
					c = &[4][]float64{}
					cols[target] = c
				}
				for a := 0; a < 4; a++ {
					c[a] = append(c[a], float64(b.Lidar.Feats[vi][a]))
				}
				total++
			}
		}
		if total == 0 {
			return fmt.Errorf("segment: fit over empty batches")
		}

		// NLL under the previous parameters, before replacing them.
		if len(m.Classes) > 0 {
			nll := m.trainingNLL(batches)
			log.Printf("[CentroidModel] epoch %d/%d nll=%.4f classes=%d voxels=%d",
				epoch+1, epochs, nll, len(cols), total)
		} else {
			log.Printf("[CentroidModel] epoch %d/%d initial fit classes=%d voxels=%d",
				epoch+1, epochs, len(cols), total)
		}

		classes := make([]classStats, 0, len(cols))
		for class, c := range cols {
			cs := classStats{
				Class:    class,
				Count:    int64(len(c[0])),
				LogPrior: math.Log(float64(len(c[0])) / float64(total)),
			}
			for a := 0; a < 4; a++ {
				mean, variance := stat.MeanVariance(c[a], nil)
				if variance < varianceFloor || math.IsNaN(variance) {
					variance = varianceFloor
				}
				cs.Mean[a] = mean
				cs.Variance[a] = variance
			}
			classes = append(classes, cs)
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i].Class < classes[j].Class })
		m.Classes = classes
	}
	return nil
}

// Predict implements Segmenter. The model must be fitted or loaded first.
func (m *CentroidModel) Predict(ctx context.Context, batch *voxel.Batch) ([]uint16, error) {
	if len(m.Classes) == 0 {
		return nil, fmt.Errorf("segment: predict on unfitted model")
	}
	preds := make([]uint16, batch.Lidar.Len())
	for vi, feat := range batch.Lidar.Feats {
		if vi%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		best := math.Inf(-1)
		for _, cs := range m.Classes {
			score := cs.LogPrior + logLikelihood(feat, &cs)
			if score > best {
				best = score
				preds[vi] = cs.Class
			}
		}
	}
	return preds, nil
}

// trainingNLL computes the mean negative log-likelihood of the labeled
// voxels under the current parameters.
func (m *CentroidModel) trainingNLL(batches []*voxel.Batch) float64 {
	byClass := map[uint16]*classStats{}
	for i := range m.Classes {
		byClass[m.Classes[i].Class] = &m.Classes[i]
	}
	var sum float64
	var n int64
	for _, b := range batches {
		for vi, target := range b.Targets {
			cs, ok := byClass[target]
			if !ok {
				continue
			}
			sum -= cs.LogPrior + logLikelihood(b.Lidar.Feats[vi], cs)
			n++
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}

func logLikelihood(feat [4]float32, cs *classStats) float64 {
	var ll float64
	for a := 0; a < 4; a++ {
		d := float64(feat[a]) - cs.Mean[a]
		ll -= 0.5 * (d*d/cs.Variance[a] + math.Log(2*math.Pi*cs.Variance[a]))
	}
	return ll
}

// SaveCheckpoint writes the fitted parameters as JSON.
func (m *CentroidModel) SaveCheckpoint(path string) error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("segment: checkpoint of unfitted model")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("segment: encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("segment: write checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadCheckpoint replaces the model parameters from a JSON checkpoint.
func (m *CentroidModel) LoadCheckpoint(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("segment: read checkpoint %s: %w", path, err)
	}
	var loaded CentroidModel
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("segment: decode checkpoint %s: %w", path, err)
	}
	if len(loaded.Classes) == 0 {
		return fmt.Errorf("segment: checkpoint %s has no classes", path)
	}
	m.Classes = loaded.Classes
	return nil
}
