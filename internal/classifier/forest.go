package classifier

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/slices"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// ErrInvalidModel is returned when a model document is malformed.
var ErrInvalidModel = errors.New("invalid model")

const (
	forestModelType = "RandomForest"
	leafIndex       = -1
	numClasses      = 2
	tieTolerance    = 1e-12
)

// Node is a single decision tree node. Leaves have Left set to -1 and carry
// per-class sample counts in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (n *Node) isLeaf() bool {
	return n.Left == leafIndex
}

// Tree is a binary decision tree stored as a flat node array rooted at
// index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) proba(x []float64) Probabilities {
	n := &t.Nodes[0]
	for !n.isLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	sum := n.Value[0] + n.Value[1]
	return Probabilities{Benign: n.Value[0] / sum, Malicious: n.Value[1] / sum}
}

func (t *Tree) validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.isLeaf() {
			if len(n.Value) != numClasses {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), numClasses)
			}
			sum := 0.0
			for _, v := range n.Value {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("leaf %d has invalid value %v", i, v)
				}
				sum += v
			}
			if sum <= 0 {
				return fmt.Errorf("leaf %d has no samples", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= len(verdict.FeatureNames) {
			return fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d has a NaN threshold", i)
		}
		// Children always follow their parent, so traversal terminates.
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has out of order child %d", i, child)
			}
		}
	}
	return nil
}

// Forest is a random forest of decision trees. Class probabilities are the
// mean of the per-tree leaf distributions.
type Forest struct {
	ModelType    string   `json:"model_type"`
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

// Validate checks that f is well formed and can be evaluated without
// panicking. Errors wrap ErrInvalidModel.
func (f *Forest) Validate() error {
	if f.ModelType != forestModelType {
		return fmt.Errorf("%w: unsupported model type %q", ErrInvalidModel, f.ModelType)
	}
	if !slices.Equal(f.FeatureNames, verdict.FeatureNames) {
		return fmt.Errorf("%w: feature names %v, want %v", ErrInvalidModel, f.FeatureNames, verdict.FeatureNames)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(); err != nil {
			return fmt.Errorf("%w: tree %d: %w", ErrInvalidModel, i, err)
		}
	}
	return nil
}

// PredictProba implements Classifier.
func (f *Forest) PredictProba(v verdict.FeatureVector) Probabilities {
	x := v.Slice()
	var p Probabilities
	for i := range f.Trees {
		tp := f.Trees[i].proba(x)
		p.Benign += tp.Benign
		p.Malicious += tp.Malicious
	}
	n := float64(len(f.Trees))
	p.Benign /= n
	p.Malicious /= n
	return p
}

// Predict implements Classifier. Ties, including differences within rounding
// error of the tree average, go to benign.
func (f *Forest) Predict(v verdict.FeatureVector) verdict.Label {
	p := f.PredictProba(v)
	if p.Malicious > p.Benign && !utils.FloatEquals(p.Malicious, p.Benign, tieTolerance) {
		return verdict.Malicious
	}
	return verdict.Benign
}
