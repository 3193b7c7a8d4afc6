package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soildiag/internal/advisory"
	"soildiag/internal/config"
	"soildiag/internal/notify"
	"soildiag/internal/photostore"
	"soildiag/internal/predict"
	"soildiag/internal/record"
	"soildiag/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.LogNotifier{}
	predictor := predict.New(cfg.PredictURL)

	// Advisory is best-effort: when the client cannot be built the adapter
	// degrades every call instead of blocking diagnoses.
	var llm advisory.TextGenerator
	gem, err := advisory.NewGeminiClient(ctx, cfg.Advisory.Model, cfg.Advisory.FallbackModel, cfg.Advisory.RPS, cfg.Advisory.Burst)
	if err != nil {
		log.Printf("advisory client unavailable, running degraded: %v", err)
	} else {
		llm = gem
		defer gem.Close()
	}
	adviser := advisory.NewAdapter(llm, notifier)

	records := record.NewFromEnv(cfg.Record.FilePath)
	defer records.Close()

	var photos *photostore.Store
	if cfg.Photo.Enabled {
		photos, err = photostore.New(photostore.Config{
			Endpoint:  cfg.Photo.Endpoint,
			Region:    cfg.Photo.Region,
			AccessKey: cfg.Photo.AccessKey,
			SecretKey: cfg.Photo.SecretKey,
			Bucket:    cfg.Photo.Bucket,
			UseSSL:    cfg.Photo.UseSSL,
		})
		if err != nil {
			log.Printf("photo store unavailable, uploads kept in memory only: %v", err)
			photos = nil
		}
	}

	app := newApp(cfg, predictor, adviser, records, photos, notifier)
	srv := server.New(cfg.Port, app.routes())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
