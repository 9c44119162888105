package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Applies(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)
}

func TestRunStore_InsertAndGet(t *testing.T) {
	db := openTestDB(t)
	s := NewRunStore(db)

	run := &Run{
		Sequence:    "seq00",
		Model:       "gaussian-centroid",
		VoxelSize:   0.05,
		IgnoreLabel: 0,
		FrameCount:  10,
		MeanIoU:     sql.NullFloat64{Float64: 0.42, Valid: true},
		Accuracy:    sql.NullFloat64{Float64: 0.9, Valid: true},
		ParamsJSON:  json.RawMessage(`{"voxel_size":0.05}`),
	}
	require.NoError(t, s.Insert(run))
	require.NotEmpty(t, run.RunID, "insert should assign a run ID")
	require.NotZero(t, run.CreatedAt)

	got, err := s.Get(run.RunID)
	require.NoError(t, err)
	require.Equal(t, run.Sequence, got.Sequence)
	require.Equal(t, run.Model, got.Model)
	require.Equal(t, run.VoxelSize, got.VoxelSize)
	require.Equal(t, run.FrameCount, got.FrameCount)
	require.True(t, got.MeanIoU.Valid)
	require.InDelta(t, 0.42, got.MeanIoU.Float64, 1e-9)
	require.JSONEq(t, `{"voxel_size":0.05}`, string(got.ParamsJSON))
}

func TestRunStore_GetMissing(t *testing.T) {
	db := openTestDB(t)
	s := NewRunStore(db)
	_, err := s.Get("nope")
	require.Error(t, err)
}

func TestRunStore_ListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	s := NewRunStore(db)

	older := &Run{Sequence: "a", Model: "m", VoxelSize: 0.1, CreatedAt: 100}
	newer := &Run{Sequence: "b", Model: "m", VoxelSize: 0.1, CreatedAt: 200}
	require.NoError(t, s.Insert(older))
	require.NoError(t, s.Insert(newer))

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "b", runs[0].Sequence)
	require.Equal(t, "a", runs[1].Sequence)

	limited, err := s.List(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRunStore_ClassMetricsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewRunStore(db)

	run := &Run{Sequence: "seq00", Model: "m", VoxelSize: 0.05}
	require.NoError(t, s.Insert(run))

	metrics := []ClassMetric{
		{RunID: run.RunID, ClassID: 1, ClassName: "car", IoU: 0.8, TP: 80, FP: 10, FN: 10},
		{RunID: run.RunID, ClassID: 2, ClassName: "road", IoU: 0.95, TP: 950, FP: 25, FN: 25},
	}
	require.NoError(t, s.InsertClassMetrics(metrics))

	got, err := s.GetClassMetrics(run.RunID)
	require.NoError(t, err)
	require.Equal(t, metrics, got)
}
