// Package inspect derives the third feature of a file, a structural signal
// whose meaning depends on the file's type.
//
// For executables and libraries the signal is the number of imported
// functions. For archives it is a composite score built from the entry list.
// Every other type has a signal of 0.
package inspect

import (
	"context"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/featureflags"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/filetype"
)

// Inspect computes the structural signal for the file at path, treating it as
// type t. Disabled inspections and uninspected types yield 0 with no error. If
// an inspection fails the signal is 0 and the error is returned for reporting.
func Inspect(ctx context.Context, path string, t filetype.Type) (int, error) {
	switch {
	case t.IsExecutable():
		if !featureflags.ExecutableInspection.Enabled() {
			return 0, nil
		}
		return ImportCount(path)
	case t == filetype.Archive:
		if !featureflags.ArchiveInspection.Enabled() {
			return 0, nil
		}
		return ArchiveScore(ctx, path)
	default:
		return 0, nil
	}
}
