package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/pubsub"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/notification"
)

// PublishScanComplete sends a ScanComplete for result to topic. The scan id
// and prediction are copied into the message metadata so subscribers can
// filter without decoding the body.
func PublishScanComplete(ctx context.Context, topic *pubsub.Topic, object string, result *verdict.Result) error {
	body, err := json.Marshal(notification.ScanComplete{
		ScanID: result.ScanID,
		Object: object,
		Result: result,
	})
	if err != nil {
		return fmt.Errorf("failed to encode scan notification: %w", err)
	}
	err = topic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"scan_id":    result.ScanID,
			"prediction": result.Label.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send scan notification: %w", err)
	}
	return nil
}
