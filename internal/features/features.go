// Package features turns a file on disk into the three element feature vector
// consumed by the classifiers.
//
// Extraction never fails. Each stage that cannot complete contributes 0 and
// is recorded in Extraction.Degraded. If the file cannot be examined at all
// the whole vector is the zero sentinel.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/entropy"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/inspect"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/filetype"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// Stage names a step of the extraction pipeline.
type Stage string

const (
	StageSize    Stage = "size"
	StageEntropy Stage = "entropy"
	StageInspect Stage = "inspect"
)

// Extraction is the outcome of running the pipeline over one file.
type Extraction struct {
	Vector   verdict.FeatureVector
	FileType filetype.Type

	// Sentinel is true when the file could not be examined and Vector is the
	// all-zero default.
	Sentinel bool

	// Degraded lists the stages that failed and contributed 0.
	Degraded []Stage
}

// DegradedNames returns Degraded as plain strings.
func (e Extraction) DegradedNames() []string {
	var names []string
	for _, s := range e.Degraded {
		names = append(names, string(s))
	}
	return names
}

func (e *Extraction) degrade(ctx context.Context, stage Stage, err error) {
	slog.WarnContext(ctx, "Feature stage failed, using 0",
		"stage", stage,
		"error", err)
	e.Degraded = append(e.Degraded, stage)
}

func sentinel(t filetype.Type, degraded ...Stage) Extraction {
	return Extraction{
		FileType: t,
		Sentinel: true,
		Degraded: degraded,
	}
}

// Extract computes the feature vector for the file at path. The file type is
// inferred from the name.
//
// Stages run in order: size, entropy, then structural inspection. A cancelled
// or expired ctx degrades any stage that has not started yet.
func Extract(ctx context.Context, path string) Extraction {
	return ExtractAs(ctx, path, filetype.FromPath(path))
}

// ExtractAs is Extract with an explicit file type.
func ExtractAs(ctx context.Context, path string, t filetype.Type) (ex Extraction) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Feature extraction panicked, using sentinel features",
				"path", path,
				"panic", fmt.Sprint(r))
			ex = sentinel(t, StageSize, StageEntropy, StageInspect)
		}
	}()

	info, err := os.Stat(path)
	if err == nil && !info.Mode().IsRegular() {
		err = fmt.Errorf("%s is not a regular file", path)
	}
	if err != nil {
		slog.WarnContext(ctx, "Unable to examine file, using sentinel features",
			"path", path,
			"error", err)
		return sentinel(t, StageSize)
	}

	ex = Extraction{FileType: t}
	ex.Vector.FileSize = info.Size()

	if err := ctx.Err(); err != nil {
		ex.degrade(ctx, StageEntropy, err)
	} else if e, err := entropy.File(path); err != nil {
		ex.degrade(ctx, StageEntropy, err)
	} else {
		ex.Vector.Entropy = e
	}

	if err := ctx.Err(); err != nil {
		ex.degrade(ctx, StageInspect, err)
	} else if n, err := inspect.Inspect(ctx, path, t); err != nil {
		ex.degrade(ctx, StageInspect, err)
	} else {
		ex.Vector.ImportsCount = n
	}
	return ex
}
