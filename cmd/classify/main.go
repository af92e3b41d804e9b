// Command classify prints a ThreatSleuth verdict for each file named on the
// command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/classifier"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/config"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/detector"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/featureflags"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
)

var (
	configPath   = flag.String("config", "", "path to a YAML configuration file")
	modelPath    = flag.String("model", "", "path (or bucket key, with -model-bucket) of the model to load")
	modelBucket  = flag.String("model-bucket", "", "bucket URL to load the model from")
	features     = flag.String("features", "", "override features that are enabled/disabled by default")
	listFeatures = flag.Bool("list-features", false, "list available features that can be toggled")
	help         = flag.Bool("help", false, "print help on available options")
)

func printFeatureFlags() {
	fmt.Printf("Feature List\n\n")
	fmt.Printf("%-30s %s\n", "Name", "Default")
	fmt.Printf("----------------------------------------\n")

	state := featureflags.State()

	// print Off/On rather than 'false' and 'true'
	stateStrings := map[bool]string{false: "Off", true: "On"}
	for _, feature := range featureflags.Names() {
		fmt.Printf("%-30s %s\n", feature, stateStrings[state[feature]])
	}

	fmt.Println()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file...\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}
	if *listFeatures {
		printFeatureFlags()
		return
	}

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

	if *features != "" {
		cfg.Features = *features
	}
	if err := featureflags.Update(cfg.Features); err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *modelBucket != "" {
		cfg.Model.Bucket = *modelBucket
	}

	paths := utils.RemoveDuplicates(flag.Args())
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	model, err := classifier.Load(ctx, cfg.Model.Bucket, cfg.Model.Path)
	if err != nil {
		slog.WarnContext(ctx, "Model unavailable, using fallback scoring", "error", err)
	}
	d := detector.New(classifier.Select(model))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, p := range paths {
		scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout)
		result := d.Classify(scanCtx, p)
		cancel()
		if err := enc.Encode(result); err != nil {
			slog.ErrorContext(ctx, "Failed to write result", "path", p, "error", err)
			os.Exit(1)
		}
	}
}
