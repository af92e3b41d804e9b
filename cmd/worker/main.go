// Command worker classifies files named by messages on a queue subscription.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/kafkapubsub"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/classifier"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/config"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/detector"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/featureflags"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/metrics"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/worker"
)

var configPath = flag.String("config", "", "path to a YAML configuration file")

func serveMetrics(ctx context.Context, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	slog.InfoContext(ctx, "Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.ErrorContext(ctx, "Metrics server failed", "error", err)
	}
}

func messageLoop(ctx context.Context, cfg *config.Config, w *worker.Worker) error {
	sub, err := pubsub.OpenSubscription(ctx, cfg.Worker.Subscription)
	if err != nil {
		return err
	}
	defer sub.Shutdown(context.Background())

	// A nil topic disables notifications.
	if cfg.Worker.NotificationTopic != "" {
		w.Notifications, err = pubsub.OpenTopic(ctx, cfg.Worker.NotificationTopic)
		if err != nil {
			return err
		}
		defer w.Notifications.Shutdown(context.Background())
	}

	w.Uploads, err = blob.OpenBucket(ctx, cfg.Worker.UploadsBucket)
	if err != nil {
		return err
	}
	defer w.Uploads.Close()

	return w.Run(ctx, sub, cfg.Worker.Concurrency)
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.Initialize(cfg.LoggerEnv)
	defer logger.Sync()

	if err := featureflags.Update(cfg.Features); err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(1)
	}
	if cfg.Worker.Subscription == "" || cfg.Worker.UploadsBucket == "" {
		slog.Error("THREATSLEUTH_SUBSCRIPTION and THREATSLEUTH_UPLOADS_BUCKET must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Log the configuration of the worker at startup so we can observe it.
	slog.InfoContext(ctx, "Starting worker", "config", cfg)

	model, err := classifier.Load(ctx, cfg.Model.Bucket, cfg.Model.Path)
	if err != nil {
		slog.WarnContext(ctx, "Model unavailable, using fallback scoring", "error", err)
	}
	reg, collectors := metrics.NewRegistry()
	if cfg.Worker.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Worker.MetricsAddr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	w := &worker.Worker{
		Detector:         detector.New(classifier.Select(model), detector.Metrics(collectors)),
		MaxBytes:         cfg.MaxUploadBytes(),
		ScanTimeout:      cfg.ScanTimeout,
		ExtensionAllowed: cfg.ExtensionAllowed,
		Metrics:          collectors,
	}
	if err := messageLoop(ctx, cfg, w); err != nil {
		slog.ErrorContext(ctx, "Error encountered", "error", err)
		os.Exit(1)
	}
}
