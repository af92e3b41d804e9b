// Command server runs the ThreatSleuth HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/classifier"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/config"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/detector"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/featureflags"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/metrics"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/server"
)

var configPath = flag.String("config", "", "path to a YAML configuration file")

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
	if log.Env(cfg.LoggerEnv) == log.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.NewWriter(context.Background(), slog.Default(), slog.LevelDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Log the configuration at startup so we can observe it.
	slog.InfoContext(ctx, "Starting server", "config", cfg)

	model, err := classifier.Load(ctx, cfg.Model.Bucket, cfg.Model.Path)
	if err != nil {
		slog.WarnContext(ctx, "Model unavailable, using fallback scoring", "error", err)
	}
	reg, collectors := metrics.NewRegistry()
	d := detector.New(classifier.Select(model), detector.Metrics(collectors))

	srv := server.New(cfg, d, server.Metrics(reg, collectors))
	if err := srv.Run(ctx, ":"+cfg.Server.Port); err != nil {
		slog.ErrorContext(ctx, "Server failed", "error", err)
		os.Exit(1)
	}
}
