// Package verdict defines the classification records produced by ThreatSleuth.
package verdict

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/filetype"
)

// Label is the outcome of classifying a file.
//
// It implements encoding.TextUnmarshaler and encoding.TextMarshaler so it can
// be used in JSON records and with flag.TextVar.
type Label string

const (
	Benign    Label = "benign"
	Malicious Label = "malicious"
)

// ErrUnknownLabel is returned when parsing a label that is not Benign or
// Malicious.
var ErrUnknownLabel = errors.New("unknown label")

// ParseLabel returns the Label named by s, ignoring case.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.ToLower(s)); l {
	case Benign, Malicious:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// LabelFromClass maps a model class index to a Label. Class 1 is malicious,
// anything else is benign.
func LabelFromClass(class int) Label {
	if class == 1 {
		return Malicious
	}
	return Benign
}

// Class returns the model class index for l.
func (l Label) Class() int {
	if l == Malicious {
		return 1
	}
	return 0
}

// Upper returns the label in upper case, as used in explanations.
func (l Label) Upper() string {
	return strings.ToUpper(string(l))
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l), nil
}

// String implements the fmt.Stringer interface.
func (l Label) String() string {
	return string(l)
}

// Mode identifies which scoring strategy produced a Result.
type Mode string

const (
	ModeModel    Mode = "model"
	ModeFallback Mode = "fallback"
)

// FeatureVector is the fixed three-element input to every classifier. The
// element order is significant and matches Slice.
type FeatureVector struct {
	FileSize     int64   `json:"file_size"`
	Entropy      float64 `json:"entropy"`
	ImportsCount int     `json:"imports_count"`
}

// FeatureNames lists the vector elements in Slice order.
var FeatureNames = []string{"file_size", "entropy", "imports_count"}

// Slice returns the vector as [file_size, entropy, imports_count].
func (v FeatureVector) Slice() []float64 {
	return []float64{float64(v.FileSize), v.Entropy, float64(v.ImportsCount)}
}

// IsZero reports whether every element of the vector is zero.
func (v FeatureVector) IsZero() bool {
	return v == FeatureVector{}
}

// Result is the full record of one classification.
type Result struct {
	ScanID      string         `json:"scan_id"`
	Filename    string         `json:"filename"`
	SHA256      string         `json:"sha256,omitempty"`
	FileType    filetype.Type  `json:"file_type"`
	Label       Label          `json:"prediction"`
	Confidence  float64        `json:"confidence"`
	Mode        Mode           `json:"mode"`
	Features    FeatureVector  `json:"features"`
	Explanation []string       `json:"explanation"`
	Indicators  map[string]int `json:"indicators,omitempty"`
	Degraded    []string       `json:"degraded,omitempty"`
	Sentinel    bool           `json:"sentinel,omitempty"`
	Created     time.Time      `json:"created"`
}

// ExplanationText joins the explanation lines with single spaces.
func (r *Result) ExplanationText() string {
	return strings.Join(r.Explanation, " ")
}
