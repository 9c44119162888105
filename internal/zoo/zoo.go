// Package zoo resolves named pretrained model identifiers to checkpoint
// files: it downloads the checkpoint on first use, verifies its digest,
// caches it under the user cache directory, and constructs the matching
// segmenter.
package zoo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/lidarseg/internal/segment"
)

// Entry describes one published pretrained model.
type Entry struct {
	Name   string `json:"name"`   // Zoo identifier, e.g. "centroid-kitti-05"
	Model  string `json:"model"`  // segment registry name of the architecture
	URL    string `json:"url"`    // Checkpoint download URL
	SHA256 string `json:"sha256"` // Hex digest of the checkpoint file
}

// LoadManifest reads a JSON array of entries from path.
func LoadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zoo: read manifest %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("zoo: parse manifest %s: %w", path, err)
	}
	for _, e := range entries {
		if e.Name == "" || e.Model == "" || e.URL == "" || e.SHA256 == "" {
			return nil, fmt.Errorf("zoo: manifest %s: entry %q is missing fields", path, e.Name)
		}
	}
	return entries, nil
}

// Zoo is a set of published models backed by a local cache directory.
type Zoo struct {
	entries  map[string]Entry
	cacheDir string
	client   *http.Client
}

// Option configures a Zoo.
type Option func(*Zoo)

// WithCacheDir overrides the checkpoint cache directory.
func WithCacheDir(dir string) Option {
	return func(z *Zoo) { z.cacheDir = dir }
}

// WithHTTPClient overrides the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(z *Zoo) { z.client = c }
}

// New builds a Zoo from entries. The default cache directory is
// lidarseg/checkpoints under the user cache dir.
func New(entries []Entry, opts ...Option) (*Zoo, error) {
	z := &Zoo{
		entries: make(map[string]Entry, len(entries)),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, e := range entries {
		if _, dup := z.entries[e.Name]; dup {
			return nil, fmt.Errorf("zoo: duplicate entry %q", e.Name)
		}
		z.entries[e.Name] = e
	}
	for _, opt := range opts {
		opt(z)
	}
	if z.cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("zoo: resolve cache dir: %w", err)
		}
		z.cacheDir = filepath.Join(base, "lidarseg", "checkpoints")
	}
	return z, nil
}

// Fetch returns the local path of a named checkpoint, downloading it if
// the cache is empty or stale. A cached file is reused only when its
// digest still matches the entry.
func (z *Zoo) Fetch(ctx context.Context, name string) (string, error) {
	entry, ok := z.entries[name]
	if !ok {
		return "", fmt.Errorf("zoo: unknown model %q", name)
	}

	local := filepath.Join(z.cacheDir, entry.Name+".json")
	if digest, err := fileDigest(local); err == nil {
		if digest == entry.SHA256 {
			return local, nil
		}
		log.Printf("[Zoo] cached checkpoint %s digest mismatch, re-downloading", entry.Name)
	}

	if err := os.MkdirAll(z.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("zoo: create cache dir: %w", err)
	}

	log.Printf("[Zoo] downloading %s from %s", entry.Name, entry.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return "", fmt.Errorf("zoo: build request for %s: %w", entry.Name, err)
	}
	resp, err := z.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoo: download %s: %w", entry.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("zoo: download %s: unexpected status %s", entry.Name, resp.Status)
	}

	// Download to a temp file and rename only after the digest checks out.
	tmp, err := os.CreateTemp(z.cacheDir, entry.Name+".*.partial")
	if err != nil {
		return "", fmt.Errorf("zoo: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("zoo: download %s: %w", entry.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("zoo: close temp file: %w", err)
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if digest != entry.SHA256 {
		return "", fmt.Errorf("zoo: checkpoint %s digest mismatch: got %s want %s", entry.Name, digest, entry.SHA256)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", fmt.Errorf("zoo: install checkpoint: %w", err)
	}
	return local, nil
}

// Load fetches a named checkpoint and constructs its segmenter with the
// parameters loaded.
func (z *Zoo) Load(ctx context.Context, name string) (segment.Segmenter, error) {
	entry, ok := z.entries[name]
	if !ok {
		return nil, fmt.Errorf("zoo: unknown model %q", name)
	}
	path, err := z.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	model, err := segment.New(entry.Model)
	if err != nil {
		return nil, err
	}
	cm, ok := model.(*segment.CentroidModel)
	if !ok {
		return nil, fmt.Errorf("zoo: model %q does not load JSON checkpoints", entry.Model)
	}
	if err := cm.LoadCheckpoint(path); err != nil {
		return nil, err
	}
	return cm, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
