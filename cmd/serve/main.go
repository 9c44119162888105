// Command serve exposes a runs database over HTTP: JSON run listings,
// per-run metrics, and ECharts dashboards.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lidarseg/internal/monitor"
	"github.com/banshee-data/lidarseg/internal/store"
)

var (
	listen = flag.String("listen", ":8080", "HTTP listen address")
	dbFile = flag.String("db", "lidarseg.db", "Path to the runs database")
)

func main() {
	flag.Parse()
	if *listen == "" {
		log.Fatal("listen address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open runs database: %v", err)
	}
	defer db.Close()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		Runs:    store.NewRunStore(db),
	})
	if err := ws.Start(ctx); err != nil {
		log.Fatalf("web server error: %v", err)
	}
}
