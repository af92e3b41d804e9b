package classifier_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/classifier"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

const testModel = `{
  "model_type": "RandomForest",
  "feature_names": ["file_size", "entropy", "imports_count"],
  "trees": [
    {"nodes": [
      {"feature": 1, "threshold": 7.0, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": [40, 2]},
      {"feature": 2, "threshold": 0.5, "left": 3, "right": 4},
      {"left": -1, "right": -1, "value": [1, 9]},
      {"left": -1, "right": -1, "value": [6, 4]}
    ]},
    {"nodes": [
      {"feature": 0, "threshold": 1000, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": [10, 0]},
      {"left": -1, "right": -1, "value": [3, 7]}
    ]}
  ]
}`

func mustDecode(t *testing.T, doc string) *classifier.Forest {
	t.Helper()
	f, err := classifier.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	return f
}

func TestForestPredict(t *testing.T) {
	forest := mustDecode(t, testModel)
	tests := []struct {
		name          string
		v             verdict.FeatureVector
		wantLabel     verdict.Label
		wantMalicious float64
	}{
		{
			name:          "packed without imports",
			v:             verdict.FeatureVector{FileSize: 20000, Entropy: 7.8, ImportsCount: 0},
			wantLabel:     verdict.Malicious,
			wantMalicious: 0.8,
		},
		{
			name:          "packed with imports",
			v:             verdict.FeatureVector{FileSize: 20000, Entropy: 7.8, ImportsCount: 30},
			wantLabel:     verdict.Malicious,
			wantMalicious: 0.55,
		},
		{
			name:          "small plain file",
			v:             verdict.FeatureVector{FileSize: 500, Entropy: 4.0, ImportsCount: 10},
			wantLabel:     verdict.Benign,
			wantMalicious: 1.0 / 42,
		},
		{
			name:          "threshold goes left",
			v:             verdict.FeatureVector{FileSize: 1000, Entropy: 7.0, ImportsCount: 0},
			wantLabel:     verdict.Benign,
			wantMalicious: 1.0 / 42,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := forest.PredictProba(test.v)
			if !utils.FloatEquals(p.Malicious, test.wantMalicious, 1e-9) {
				t.Errorf("PredictProba().Malicious = %v; want %v", p.Malicious, test.wantMalicious)
			}
			if !utils.FloatEquals(p.Benign+p.Malicious, 1, 1e-9) {
				t.Errorf("PredictProba() = %+v; want probabilities summing to 1", p)
			}
			if got := forest.Predict(test.v); got != test.wantLabel {
				t.Errorf("Predict() = %v; want %v", got, test.wantLabel)
			}
		})
	}
}

func TestForestPredict_TieIsBenign(t *testing.T) {
	forest := mustDecode(t, `{"model_type": "RandomForest",
		"feature_names": ["file_size", "entropy", "imports_count"],
		"trees": [{"nodes": [{"left": -1, "right": -1, "value": [5, 5]}]}]}`)
	if got := forest.Predict(verdict.FeatureVector{}); got != verdict.Benign {
		t.Errorf("Predict() = %v; want benign on a tie", got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: "model"},
		{name: "unknown field", doc: `{"model_type": "RandomForest", "weights": []}`},
		{name: "wrong type", doc: `{"model_type": "SVM", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"left": -1, "value": [1, 1]}]}]}`},
		{name: "wrong features", doc: `{"model_type": "RandomForest", "feature_names": ["entropy"], "trees": [{"nodes": [{"left": -1, "value": [1, 1]}]}]}`},
		{name: "no trees", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": []}`},
		{name: "empty tree", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": []}]}`},
		{name: "cycle", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"feature": 0, "threshold": 1, "left": 0, "right": 1}, {"left": -1, "value": [1, 1]}]}]}`},
		{name: "child out of range", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"feature": 0, "threshold": 1, "left": 1, "right": 5}, {"left": -1, "value": [1, 1]}]}]}`},
		{name: "bad feature", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"feature": 3, "threshold": 1, "left": 1, "right": 2}, {"left": -1, "value": [1, 1]}, {"left": -1, "value": [1, 1]}]}]}`},
		{name: "empty leaf", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"left": -1, "value": [0, 0]}]}]}`},
		{name: "short leaf", doc: `{"model_type": "RandomForest", "feature_names": ["file_size", "entropy", "imports_count"], "trees": [{"nodes": [{"left": -1, "value": [3]}]}]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := classifier.Decode(strings.NewReader(test.doc))
			if !errors.Is(err, classifier.ErrInvalidModel) {
				t.Errorf("Decode() = %v; want %v", err, classifier.ErrInvalidModel)
			}
		})
	}
}

func writeModel(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() = %v", err)
	}
	if err := os.WriteFile(path, []byte(testModel), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, "model.json")
	forest, err := classifier.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}
	if len(forest.Trees) != 2 {
		t.Errorf("LoadFile() trees = %d; want 2", len(forest.Trees))
	}

	_, err = classifier.LoadFile(filepath.Join(dir, "missing.json"))
	if !errors.Is(err, classifier.ErrNoModel) {
		t.Errorf("LoadFile(missing) = %v; want %v", err, classifier.ErrNoModel)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	second := writeModel(t, dir, "b/models/"+classifier.DefaultModelName)

	forest, err := classifier.Find(filepath.Join(dir, "a/models/"+classifier.DefaultModelName), second)
	if err != nil {
		t.Fatalf("Find() = %v", err)
	}
	if forest == nil {
		t.Fatal("Find() = nil forest")
	}

	_, err = classifier.Find(filepath.Join(dir, "nope.json"))
	if !errors.Is(err, classifier.ErrNoModel) {
		t.Errorf("Find() = %v; want %v", err, classifier.ErrNoModel)
	}
}

func TestFind_InvalidStopsSearch(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	good := writeModel(t, dir, "good.json")
	_, err := classifier.Find(bad, good)
	if !errors.Is(err, classifier.ErrInvalidModel) {
		t.Errorf("Find() = %v; want %v", err, classifier.ErrInvalidModel)
	}
}

func TestLoadBlob(t *testing.T) {
	ctx := context.Background()
	bkt := memblob.OpenBucket(nil)
	defer bkt.Close()
	if err := bkt.WriteAll(ctx, "models/current.json", []byte(testModel), nil); err != nil {
		t.Fatalf("WriteAll() = %v", err)
	}

	forest, err := classifier.LoadBlob(ctx, bkt, "models/current.json")
	if err != nil {
		t.Fatalf("LoadBlob() = %v", err)
	}
	if got := forest.Predict(verdict.FeatureVector{FileSize: 20000, Entropy: 7.8}); got != verdict.Malicious {
		t.Errorf("Predict() = %v; want malicious", got)
	}

	_, err = classifier.LoadBlob(ctx, bkt, "models/missing.json")
	if !errors.Is(err, classifier.ErrNoModel) {
		t.Errorf("LoadBlob(missing) = %v; want %v", err, classifier.ErrNoModel)
	}
}

func TestLoadFromBucket(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, classifier.DefaultModelName)

	c, err := classifier.Load(context.Background(), "file://"+filepath.ToSlash(dir), "")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if c == nil {
		t.Fatal("Load() = nil classifier")
	}
}

func TestLoad_Missing(t *testing.T) {
	c, err := classifier.Load(context.Background(), "", filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, classifier.ErrNoModel) {
		t.Errorf("Load() = %v; want %v", err, classifier.ErrNoModel)
	}
	if c != nil {
		t.Errorf("Load() = %v; want a nil classifier", c)
	}
	if got := classifier.Select(c).Mode(); got != verdict.ModeFallback {
		t.Errorf("Select(nil).Mode() = %v; want %v", got, verdict.ModeFallback)
	}
}

type fixedClassifier struct {
	label verdict.Label
	proba classifier.Probabilities
}

func (c fixedClassifier) Predict(verdict.FeatureVector) verdict.Label { return c.label }

func (c fixedClassifier) PredictProba(verdict.FeatureVector) classifier.Probabilities {
	return c.proba
}

func TestSelect(t *testing.T) {
	s := classifier.Select(fixedClassifier{
		label: verdict.Malicious,
		proba: classifier.Probabilities{Benign: 0.3, Malicious: 0.7},
	})
	if s.Mode() != verdict.ModeModel {
		t.Errorf("Mode() = %v; want %v", s.Mode(), verdict.ModeModel)
	}
	label, confidence := s.Classify(verdict.FeatureVector{})
	if label != verdict.Malicious || !utils.FloatEquals(confidence, 0.7, 1e-12) {
		t.Errorf("Classify() = (%v, %v); want (malicious, 0.7)", label, confidence)
	}

	fb := classifier.Select(nil)
	label, confidence = fb.Classify(verdict.FeatureVector{FileSize: 50000, Entropy: 4.2, ImportsCount: 15})
	if label != verdict.Benign || confidence != 0.5 {
		t.Errorf("fallback Classify() = (%v, %v); want (benign, 0.5)", label, confidence)
	}
}
