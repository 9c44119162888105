// Package config loads pipeline tuning parameters from JSON files.
// Fields are pointers so a partial config overlays the defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig is the root configuration for the segmentation pipeline.
// The same JSON schema is accepted at startup and by the monitor API.
type TuningConfig struct {
	// Quantization params
	VoxelSize   *float64 `json:"voxel_size,omitempty"`
	IgnoreLabel *int     `json:"ignore_label,omitempty"`

	// Model params
	Model      *string `json:"model,omitempty"`
	Checkpoint *string `json:"checkpoint,omitempty"`
	BatchSize  *int    `json:"batch_size,omitempty"`
	Epochs     *int    `json:"epochs,omitempty"`

	// Class names keyed by decimal semantic ID, for reports and charts.
	ClassNames map[string]string `json:"class_names,omitempty"`

	// Render params
	MaxRenderPoints *int `json:"max_render_points,omitempty"`
}

// Defaults returns the built-in tuning values.
func Defaults() *TuningConfig {
	voxelSize := 0.05
	ignore := 0
	model := "gaussian-centroid"
	batchSize := 2
	epochs := 3
	maxRender := 8000
	return &TuningConfig{
		VoxelSize:       &voxelSize,
		IgnoreLabel:     &ignore,
		Model:           &model,
		BatchSize:       &batchSize,
		Epochs:          &epochs,
		MaxRenderPoints: &maxRender,
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the file
// stay nil, so partial configs are safe to merge over Defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Merge overlays non-nil fields of other onto a copy of c.
func (c *TuningConfig) Merge(other *TuningConfig) *TuningConfig {
	out := *c
	if other == nil {
		return &out
	}
	if other.VoxelSize != nil {
		out.VoxelSize = other.VoxelSize
	}
	if other.IgnoreLabel != nil {
		out.IgnoreLabel = other.IgnoreLabel
	}
	if other.Model != nil {
		out.Model = other.Model
	}
	if other.Checkpoint != nil {
		out.Checkpoint = other.Checkpoint
	}
	if other.BatchSize != nil {
		out.BatchSize = other.BatchSize
	}
	if other.Epochs != nil {
		out.Epochs = other.Epochs
	}
	if other.ClassNames != nil {
		out.ClassNames = other.ClassNames
	}
	if other.MaxRenderPoints != nil {
		out.MaxRenderPoints = other.MaxRenderPoints
	}
	return &out
}

// ClassName resolves a semantic ID to a display name, falling back to the
// decimal ID.
func (c *TuningConfig) ClassName(id uint16) string {
	if c.ClassNames != nil {
		if name, ok := c.ClassNames[fmt.Sprintf("%d", id)]; ok {
			return name
		}
	}
	return fmt.Sprintf("%d", id)
}
