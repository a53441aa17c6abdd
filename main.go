package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"adwatch/ai"
	"adwatch/config"
	"adwatch/httputil"
	"adwatch/labeler"
	"adwatch/logging"
	"adwatch/pipeline"
	"adwatch/scheduler"
	"adwatch/scraper"
	"adwatch/storage"
	"adwatch/summary"
)

var (
	runNow = flag.Bool("run", false, "Run the pipeline once and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("adwatch.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting adwatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Tracking %d brands, window %s..%s",
		len(cfg.Brands),
		cfg.Pipeline.WindowStart.Format("2006-01-02"),
		cfg.Pipeline.WindowEnd.Format("2006-01-02"))

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	log.Printf("Store: %s", cfg.Storage.Driver)

	clients := httputil.NewClients(cfg.Apify.CallTimeout)

	adapter, err := scraper.GetAdapter(cfg.Apify.Actor)
	if err != nil {
		log.Fatalf("Failed to resolve actor adapter: %v", err)
	}
	apify := scraper.NewApifyClient(clients.Scraping, cfg.Apify.APIKey, cfg.Apify.PollTimeout)
	fetcher := scraper.NewFetcher(apify, adapter, cfg.Pipeline)

	var aiClient ai.Client
	if cfg.Pipeline.EnableLabeling || cfg.Pipeline.EnableSummaries {
		gemini, err := ai.NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		aiClient = gemini
	}

	var uploader *storage.S3Uploader
	if cfg.S3.Enabled {
		uploader, err = storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create S3 uploader: %v", err)
		}
		log.Printf("S3 snapshots: bucket %s", cfg.S3.Bucket)
	}

	pipe := pipeline.New(cfg, store, fetcher,
		labeler.New(aiClient, cfg.Pipeline),
		summary.New(aiClient, cfg.Pipeline),
		storage.NewExporter(cfg.Storage.ExportDir),
		uploader)

	if *runNow {
		log.Println("Running pipeline...")
		if err := pipe.Run(ctx); err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}
		log.Println("Pipeline complete!")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg.Scheduler, func() {
		if err := pipe.Run(ctx); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Driver == "postgres" {
		return storage.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
	}
	return storage.NewSQLiteStore(cfg.Storage.DBPath)
}
