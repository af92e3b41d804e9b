// Package detector runs the full classification of one file: feature
// extraction, scoring with the configured strategy and explanation.
package detector

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/classifier"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/explain"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/featureflags"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/features"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/indicators"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/metrics"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// Detector classifies files. It holds only read-only state after New and is
// safe for concurrent use.
type Detector struct {
	strategy classifier.Strategy
	metrics  *metrics.Collectors
	now      func() time.Time
}

type Option interface {
	set(*Detector)
}

type option func(*Detector)

func (o option) set(d *Detector) { o(d) }

// Metrics records every classification in c.
func Metrics(c *metrics.Collectors) Option {
	return option(func(d *Detector) {
		d.metrics = c
	})
}

// New returns a Detector that scores with s.
func New(s classifier.Strategy, opts ...Option) *Detector {
	d := &Detector{
		strategy: s,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt.set(d)
	}
	return d
}

// Mode reports which strategy the Detector scores with.
func (d *Detector) Mode() verdict.Mode {
	return d.strategy.Mode()
}

// Classify examines the file at path and returns its verdict. The file is
// only read. Classify always returns a result: unreadable or malformed files
// are classified from whatever features could be measured.
//
// The result's Filename is the base name of path.
func (d *Detector) Classify(ctx context.Context, path string) *verdict.Result {
	start := d.now()
	scanID := uuid.NewString()
	ctx = log.ContextWithAttrs(ctx,
		log.LabelAttr("scan_id", scanID),
		slog.String("filename", filepath.Base(path)))

	ex := features.Extract(ctx, path)
	label, confidence := d.strategy.Classify(ex.Vector)

	lines := explain.Lines(ex.Vector, label, confidence)
	if ex.Sentinel && featureflags.ExplainSentinel.Enabled() {
		lines = explain.WithNote(lines, explain.SentinelNote)
	}

	result := &verdict.Result{
		ScanID:      scanID,
		Filename:    filepath.Base(path),
		FileType:    ex.FileType,
		Label:       label,
		Confidence:  confidence,
		Mode:        d.strategy.Mode(),
		Features:    ex.Vector,
		Explanation: lines,
		Degraded:    ex.DegradedNames(),
		Sentinel:    ex.Sentinel,
		Created:     start.UTC(),
	}

	if !ex.Sentinel {
		if digest, err := utils.SHA256File(path); err != nil {
			slog.WarnContext(ctx, "Unable to hash file", "error", err)
		} else {
			result.SHA256 = digest
		}
		if featureflags.StringIndicators.Enabled() {
			if counts, err := indicators.File(path); err != nil {
				slog.WarnContext(ctx, "Unable to scan for indicators", "error", err)
			} else if len(counts) > 0 {
				result.Indicators = counts
			}
		}
	}

	elapsed := d.now().Sub(start)
	d.metrics.ObserveScan(string(label), string(result.Mode), elapsed, result.Degraded)
	slog.InfoContext(ctx, "File classified",
		"prediction", label,
		"confidence", confidence,
		"mode", result.Mode,
		"file_type", ex.FileType,
		"file_size", ex.Vector.FileSize,
		"entropy", ex.Vector.Entropy,
		"imports_count", ex.Vector.ImportsCount,
		"duration", elapsed)
	return result
}
