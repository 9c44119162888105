// Command train fits the baseline segmentation model on the labeled
// frames of a sequence and writes a checkpoint.
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
)

var (
	sequence   = flag.String("sequence", "", "Path to the labeled sequence directory (required)")
	configPath = flag.String("config", "", "Path to a JSON tuning config")
	out        = flag.String("out", "checkpoint.json", "Output checkpoint path")
	epochs     = flag.Int("epochs", 0, "Training epochs (overrides config)")
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
	if *epochs > 0 {
		cfg.Epochs = epochs
	}

	batches, err := pipeline.CollectBatches(ctx, *sequence, cfg)
	if err != nil {
		log.Fatalf("failed to collect training batches: %v", err)
	}
	log.Printf("collected %d batches from %s", len(batches), *sequence)

	model := segment.NewCentroidModel()
	nEpochs := 3
	if cfg.Epochs != nil && *cfg.Epochs > 0 {
		nEpochs = *cfg.Epochs
	}
	if err := model.Fit(ctx, batches, nEpochs); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if err := model.SaveCheckpoint(*out); err != nil {
		log.Fatalf("failed to save checkpoint: %v", err)
	}
	log.Printf("checkpoint written to %s (%d classes)", *out, len(model.Classes))
}
