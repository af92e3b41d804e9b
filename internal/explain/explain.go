// Package explain renders a short human readable rationale for a verdict.
package explain

import (
	"fmt"
	"strings"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

const mib = 1024 * 1024

// SentinelNote is inserted before the confidence line when the classified
// features are defaults rather than measurements.
const SentinelNote = "• Features could not be extracted; default values were used"

// Lines returns the explanation for classifying v as label with the given
// confidence. The first line is a header naming the label and the last line
// states the confidence, so the result always has at least two lines. The
// lines in between depend on which feature conditions hold.
func Lines(v verdict.FeatureVector, label verdict.Label, confidence float64) []string {
	lines := []string{fmt.Sprintf("File classified as %s based on:", label.Upper())}

	if label == verdict.Malicious {
		switch {
		case v.Entropy > 7.5:
			lines = append(lines, fmt.Sprintf("• Very high entropy (%.2f) suggests encryption or packing", v.Entropy))
		case v.Entropy > 7.0:
			lines = append(lines, fmt.Sprintf("• High entropy (%.2f) indicates potential obfuscation", v.Entropy))
		}
		switch {
		case v.ImportsCount > 100:
			lines = append(lines, fmt.Sprintf("• Large number of imports (%d) may indicate complex functionality", v.ImportsCount))
		case v.ImportsCount == 0:
			lines = append(lines, "• No imports detected - could be packed or obfuscated")
		}
		if v.FileSize > 5*mib {
			lines = append(lines, fmt.Sprintf("• Large file size (%.1f MB)", float64(v.FileSize)/mib))
		}
	} else {
		if v.Entropy < 6.0 {
			lines = append(lines, fmt.Sprintf("• Normal entropy level (%.2f)", v.Entropy))
		}
		if v.ImportsCount >= 1 && v.ImportsCount <= 50 {
			lines = append(lines, fmt.Sprintf("• Reasonable number of imports (%d)", v.ImportsCount))
		}
		if v.FileSize < mib {
			lines = append(lines, fmt.Sprintf("• Small file size (%d bytes)", v.FileSize))
		}
	}

	return append(lines, fmt.Sprintf("• Confidence: %.1f%%", confidence*100))
}

// WithNote inserts note just before the final confidence line.
func WithNote(lines []string, note string) []string {
	if len(lines) == 0 {
		return []string{note}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:len(lines)-1]...)
	out = append(out, note)
	return append(out, lines[len(lines)-1])
}

// Text joins lines into a single space separated string.
func Text(lines []string) string {
	return strings.Join(lines, " ")
}
