package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run represents one segmentation run over a sequence.
type Run struct {
	RunID       string          `json:"run_id"`
	Sequence    string          `json:"sequence"`
	Model       string          `json:"model"`
	VoxelSize   float64         `json:"voxel_size"`
	IgnoreLabel int             `json:"ignore_label"`
	FrameCount  int             `json:"frame_count"`
	MeanIoU     sql.NullFloat64 `json:"mean_iou"`
	Accuracy    sql.NullFloat64 `json:"accuracy"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// ClassMetric is one per-class result row for a run.
type ClassMetric struct {
	RunID     string  `json:"run_id"`
	ClassID   int     `json:"class_id"`
	ClassName string  `json:"class_name"`
	IoU       float64 `json:"iou"`
	TP        int64   `json:"tp"`
	FP        int64   `json:"fp"`
	FN        int64   `json:"fn"`
}

// RunStore provides persistence for segmentation runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a new run. If RunID is empty, a UUID is generated.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO seg_runs (run_id, sequence, model, voxel_size, ignore_label, frame_count, mean_iou, accuracy, params_json, created_unix_nanos)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Sequence, run.Model, run.VoxelSize, run.IgnoreLabel,
			run.FrameCount, run.MeanIoU, run.Accuracy, paramsStr, run.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: insert run: %w", err)
		}
		return nil
	})
}

// Get returns one run by ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, sequence, model, voxel_size, ignore_label, frame_count, mean_iou, accuracy, params_json, created_unix_nanos
		FROM seg_runs WHERE run_id = ?`, runID)

	run := &Run{}
	var params sql.NullString
	err := row.Scan(&run.RunID, &run.Sequence, &run.Model, &run.VoxelSize,
		&run.IgnoreLabel, &run.FrameCount, &run.MeanIoU, &run.Accuracy,
		&params, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run: %w", err)
	}
	if params.Valid {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	return run, nil
}

// List returns runs newest first, up to limit (0 means no limit).
func (s *RunStore) List(limit int) ([]*Run, error) {
	q := `
		SELECT run_id, sequence, model, voxel_size, ignore_label, frame_count, mean_iou, accuracy, params_json, created_unix_nanos
		FROM seg_runs ORDER BY created_unix_nanos DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var params sql.NullString
		if err := rows.Scan(&run.RunID, &run.Sequence, &run.Model, &run.VoxelSize,
			&run.IgnoreLabel, &run.FrameCount, &run.MeanIoU, &run.Accuracy,
			&params, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		if params.Valid {
			run.ParamsJSON = json.RawMessage(params.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertClassMetrics persists the per-class rows for a run.
func (s *RunStore) InsertClassMetrics(metrics []ClassMetric) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin metrics tx: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO seg_run_class_metrics (run_id, class_id, class_name, iou, tp, fp, fn)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare metrics insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range metrics {
			if _, err := stmt.Exec(m.RunID, m.ClassID, m.ClassName, m.IoU, m.TP, m.FP, m.FN); err != nil {
				return fmt.Errorf("store: insert metric class %d: %w", m.ClassID, err)
			}
		}
		return tx.Commit()
	})
}

// GetClassMetrics returns the per-class rows for a run, ordered by class.
func (s *RunStore) GetClassMetrics(runID string) ([]ClassMetric, error) {
	rows, err := s.db.Query(`
		SELECT run_id, class_id, class_name, iou, tp, fp, fn
		FROM seg_run_class_metrics WHERE run_id = ? ORDER BY class_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: get class metrics: %w", err)
	}
	defer rows.Close()

	var metrics []ClassMetric
	for rows.Next() {
		var m ClassMetric
		if err := rows.Scan(&m.RunID, &m.ClassID, &m.ClassName, &m.IoU, &m.TP, &m.FP, &m.FN); err != nil {
			return nil, fmt.Errorf("store: scan class metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
