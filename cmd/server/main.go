package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"matchengine/internal/api/httpapi"
	"matchengine/internal/broadcaster"
	"matchengine/internal/config"
	"matchengine/internal/engine"
	"matchengine/internal/metrics"
	"matchengine/internal/outbox"
	"matchengine/internal/streaming/kafka"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	box, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		log.Fatalf("outbox open failed: %v", err)
	}
	defer box.Close()

	mx := metrics.New()

	eng := engine.New(
		engine.SystemClock{},
		engine.Config{
			InvertModifySuppression: cfg.Book.InvertModifySuppression,
			ExpirationTickInterval:  time.Duration(cfg.Book.ExpirationTickIntervalMS) * time.Millisecond,
			EpochReclaimInterval:    time.Duration(cfg.Book.EpochReclaimIntervalMS) * time.Millisecond,
		},
		box,
		mx,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Run(ctx)

	bc, err := broadcaster.New(box, cfg.Kafka.Brokers, cfg.Kafka.OutboxTopic, time.Duration(cfg.Outbox.DrainIntervalMS)*time.Millisecond)
	if err != nil {
		log.Fatalf("broadcaster init failed: %v", err)
	}
	go bc.Run(ctx)

	lifecycle := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic)
	defer lifecycle.Close()

	srv := httpapi.New(eng, mx, lifecycle, cfg.Book.TickSize)

	go func() {
		reclaimInterval := time.Duration(cfg.Book.EpochReclaimIntervalMS) * time.Millisecond
		ticker := time.NewTicker(reclaimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				eng.AdvanceEpoch(srv.Reader())
			}
		}
	}()

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown error: %v", err)
		}
	}()

	log.Printf("matchengine listening on %s", cfg.Server.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server exited: %v", err)
	}
}
