// Package fallback scores feature vectors with fixed rules when no trained
// model is available.
//
// Rules, each adding its delta when it holds:
//
//	size < 10000 and entropy < 4.0                   -0.4
//	size > 5 MiB                                     +0.15
//	entropy > 7.5 | > 7.0 | > 6.0 (first match)      +0.5 | +0.3 | +0.1
//	entropy < 3.0 | < 4.0 (first match)              -0.3 | -0.15
//	imports > 100                                    +0.3
//	  else imports == 0 and size > 10000             +0.2
//	  else imports == 0 and size < 10000             -0.1
//
// A score above 0.2 is malicious. Confidence is |score| + 0.5 clamped to
// [0.5, 0.95].
package fallback

import (
	"math"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

const (
	smallFileSize = 10000
	largeFileSize = 5 * 1024 * 1024
	manyImports   = 100

	maliciousThreshold = 0.2
	minConfidence      = 0.5
	maxConfidence      = 0.95
)

// Score classifies v with the fixed rules and returns the label together with
// a confidence in [0.5, 0.95].
func Score(v verdict.FeatureVector) (verdict.Label, float64) {
	s := score(v)
	label := verdict.Benign
	if s > maliciousThreshold {
		label = verdict.Malicious
	}
	return label, math.Min(maxConfidence, math.Max(minConfidence, math.Abs(s)+0.5))
}

func score(v verdict.FeatureVector) float64 {
	s := 0.0

	// Overlaps with the low entropy tiers below; both apply.
	if v.FileSize < smallFileSize && v.Entropy < 4.0 {
		s -= 0.4
	}

	if v.FileSize > largeFileSize {
		s += 0.15
	}

	switch {
	case v.Entropy > 7.5:
		s += 0.5
	case v.Entropy > 7.0:
		s += 0.3
	case v.Entropy > 6.0:
		s += 0.1
	}

	switch {
	case v.Entropy < 3.0:
		s -= 0.3
	case v.Entropy < 4.0:
		s -= 0.15
	}

	switch {
	case v.ImportsCount > manyImports:
		s += 0.3
	case v.ImportsCount == 0 && v.FileSize > smallFileSize:
		s += 0.2
	case v.ImportsCount == 0 && v.FileSize < smallFileSize:
		s -= 0.1
	}

	return s
}

// Scorer adapts Score to the classifier strategy interface.
type Scorer struct{}

// Classify implements classifier.Strategy.
func (Scorer) Classify(v verdict.FeatureVector) (verdict.Label, float64) {
	return Score(v)
}

// Mode implements classifier.Strategy.
func (Scorer) Mode() verdict.Mode {
	return verdict.ModeFallback
}
