// Command segment runs the semantic segmentation pipeline over a sequence
// directory (velodyne/*.bin plus optional labels/*.label), stores the run
// in the runs database, and optionally renders the first frame.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lidarseg/internal/config"
	"github.com/banshee-data/lidarseg/internal/pipeline"
	"github.com/banshee-data/lidarseg/internal/segment"
	"github.com/banshee-data/lidarseg/internal/store"
	"github.com/banshee-data/lidarseg/internal/zoo"
)

var (
	sequence    = flag.String("sequence", "", "Path to the sequence directory (required)")
	configPath  = flag.String("config", "", "Path to a JSON tuning config")
	checkpoint  = flag.String("checkpoint", "", "Path to a model checkpoint (overrides config)")
	zooManifest = flag.String("zoo-manifest", "", "Path to a JSON manifest of published pretrained models")
	zooModel    = flag.String("zoo-model", "", "Name of a pretrained model from the zoo manifest")
	dbFile      = flag.String("db", "lidarseg.db", "Path to the runs database (empty to skip persistence)")
	renderDir   = flag.String("render-dir", "", "Directory for rendered output (empty to skip rendering)")
)

func main() {
	flag.Parse()
	if *sequence == "" {
		log.Fatal("-sequence is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = cfg.Merge(loaded)
	}
	if *checkpoint != "" {
		cfg.Checkpoint = checkpoint
	}

	var model segment.Segmenter
	if *zooModel != "" {
		if *zooManifest == "" {
			log.Fatal("-zoo-model requires -zoo-manifest")
		}
		entries, err := zoo.LoadManifest(*zooManifest)
		if err != nil {
			log.Fatalf("failed to load zoo manifest: %v", err)
		}
		z, err := zoo.New(entries)
		if err != nil {
			log.Fatalf("failed to build zoo: %v", err)
		}
		model, err = z.Load(ctx, *zooModel)
		if err != nil {
			log.Fatalf("failed to load pretrained model: %v", err)
		}
	} else {
		modelName := segment.CentroidModelName
		if cfg.Model != nil {
			modelName = *cfg.Model
		}
		m, err := segment.New(modelName)
		if err != nil {
			log.Fatalf("failed to create model: %v", err)
		}
		if cfg.Checkpoint != nil && *cfg.Checkpoint != "" {
			cm, ok := m.(*segment.CentroidModel)
			if !ok {
				log.Fatalf("model %s does not load checkpoints", modelName)
			}
			if err := cm.LoadCheckpoint(*cfg.Checkpoint); err != nil {
				log.Fatalf("failed to load checkpoint: %v", err)
			}
		}
		model = m
	}

	runner := &pipeline.Runner{
		Config:    cfg,
		Model:     model,
		RenderDir: *renderDir,
	}
	if *dbFile != "" {
		db, err := store.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open runs database: %v", err)
		}
		defer db.Close()
		runner.Runs = store.NewRunStore(db)
	}

	res, err := runner.Run(ctx, *sequence)
	if err != nil {
		log.Fatalf("segmentation run failed: %v", err)
	}
	if res.RunID != "" {
		log.Printf("run %s stored (%d frames)", res.RunID, res.FrameCount)
	}
	for _, f := range res.Rendered {
		log.Printf("rendered %s", f)
	}
}
