// Package classifier defines the trained model abstraction and the strategy
// used to turn a feature vector into a verdict.
//
// A Strategy is chosen once at start-up: ModelStrategy when a model loaded,
// fallback.Scorer otherwise. It is then shared read-only by every request.
package classifier

import (
	"math"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/fallback"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// Probabilities holds the class probabilities for one vector. They sum to 1.
type Probabilities struct {
	Benign    float64
	Malicious float64
}

// Max returns the larger of the two probabilities.
func (p Probabilities) Max() float64 {
	return math.Max(p.Benign, p.Malicious)
}

// Classifier is a trained binary classifier. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Predict(v verdict.FeatureVector) verdict.Label
	PredictProba(v verdict.FeatureVector) Probabilities
}

// Strategy produces a label and confidence for a feature vector.
type Strategy interface {
	Classify(v verdict.FeatureVector) (verdict.Label, float64)
	Mode() verdict.Mode
}

// ModelStrategy classifies with a trained Classifier. The confidence is the
// larger class probability.
type ModelStrategy struct {
	Classifier Classifier
}

// Classify implements Strategy.
func (s ModelStrategy) Classify(v verdict.FeatureVector) (verdict.Label, float64) {
	label := s.Classifier.Predict(v)
	confidence := math.Min(1, math.Max(0, s.Classifier.PredictProba(v).Max()))
	return label, confidence
}

// Mode implements Strategy.
func (ModelStrategy) Mode() verdict.Mode {
	return verdict.ModeModel
}

// Select returns a ModelStrategy for c, or the rule based fallback when c is
// nil.
func Select(c Classifier) Strategy {
	if c == nil {
		return fallback.Scorer{}
	}
	return ModelStrategy{Classifier: c}
}
