// Package notification defines the messages published when a queued scan
// completes.
package notification

import (
	"encoding/json"
	"fmt"

	"gocloud.dev/pubsub"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// ScanComplete is published after a file taken from the uploads bucket has
// been classified.
type ScanComplete struct {
	ScanID string          `json:"scan_id"`
	Object string          `json:"object"`
	Result *verdict.Result `json:"result"`
}

// ParseJSON decodes a ScanComplete from the body of msg.
func ParseJSON(msg *pubsub.Message) (ScanComplete, error) {
	n := ScanComplete{}
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		return n, fmt.Errorf("error unmarshalling json: %w", err)
	}
	return n, nil
}
