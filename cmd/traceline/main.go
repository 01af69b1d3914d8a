package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracekit/traceline/internal/config"
	"github.com/tracekit/traceline/internal/controller"
	"github.com/tracekit/traceline/internal/engine"
	"github.com/tracekit/traceline/internal/ingest"
	"github.com/tracekit/traceline/internal/model"
	"github.com/tracekit/traceline/internal/server"
	"github.com/tracekit/traceline/internal/storage"
)

func main() {
	configPath := flag.String("config", "traceline.yaml", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	tracePath := flag.String("trace", "", "Trace file to load (overrides config)")
	webDir := flag.String("web", "", "Directory for static web files (overrides config)")
	noSnapshot := flag.Bool("no-snapshot", false, "Disable the .tix snapshot cache")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid config %s: %v", *configPath, err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *tracePath != "" {
		cfg.Trace.Path = *tracePath
	}
	if *webDir != "" {
		cfg.Server.WebDir = *webDir
	}
	if *noSnapshot {
		cfg.Trace.Snapshot = false
	}
	if cfg.Trace.Path == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -trace <trace file>\n", os.Args[0])
		os.Exit(2)
	}

	log.Println("traceline starting...")

	// 1. Load the trace (snapshot cache first when fresh)
	started := time.Now()
	events, err := loadTrace(cfg.Trace)
	if err != nil {
		log.Fatalf("Failed to load trace %s: %v", cfg.Trace.Path, err)
	}
	log.Printf("Trace loaded: %d events in %v", len(events), time.Since(started))

	// 2. Build the immutable index
	started = time.Now()
	ix := engine.BuildIndex(events)
	events = nil
	if tr, ok := ix.TimeRange(); ok {
		log.Printf("Index built: %d kinds, time range [%g, %g] in %v",
			len(ix.Kinds()), tr.Start, tr.End, time.Since(started))
	} else {
		log.Printf("Index built: trace is empty")
	}

	sampler := engine.NewSampler(ix)

	// 3. Saved views
	views := controller.NewStore(cfg.Trace.ViewsPath)
	if err := views.Load(); err != nil {
		log.Printf("Warning: failed to load saved views: %v", err)
	}

	// 4. HTTP server
	srv := server.NewViewerServer(ix, sampler, views, cfg)
	go func() {
		log.Printf("Listening on %s", cfg.Server.Addr)
		log.Printf("Viewer available at http://localhost%s", cfg.Server.Addr)
		if err := srv.Start(cfg.Server.Addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("traceline exited gracefully.")
}

// loadTrace reads the trace, preferring the snapshot cache when it is
// newer than the source file. A stale or unreadable snapshot falls back to
// a fresh parse and is rewritten.
func loadTrace(cfg config.TraceConfig) ([]model.Event, error) {
	snapPath := cfg.Path + ".tix"

	if cfg.Snapshot && snapshotFresh(cfg.Path, snapPath) {
		reader, err := storage.NewSnapshotReader()
		if err == nil {
			events, err := reader.ReadSnapshot(snapPath)
			if err == nil {
				log.Printf("Loaded snapshot cache %s", snapPath)
				return events, nil
			}
			log.Printf("Snapshot cache unreadable (%v), re-parsing trace", err)
		}
	}

	events, err := ingest.ReadFile(cfg.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Snapshot {
		writer, err := storage.NewSnapshotWriter()
		if err == nil {
			if err := writer.WriteSnapshot(snapPath, events); err != nil {
				log.Printf("Warning: failed to write snapshot cache: %v", err)
			} else {
				log.Printf("Snapshot cache written: %s", snapPath)
			}
		}
	}

	return events, nil
}

func snapshotFresh(tracePath, snapPath string) bool {
	snapInfo, err := os.Stat(snapPath)
	if err != nil {
		return false
	}
	traceInfo, err := os.Stat(tracePath)
	if err != nil {
		return false
	}
	return snapInfo.ModTime().After(traceInfo.ModTime())
}
