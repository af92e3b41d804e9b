package worker

import (
	"context"
	"log/slog"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/log"
	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/verdict"
)

// These messages are matched by log based metrics and dashboards; change them
// with care.
const (
	gotRequestLogMsg     = "Got scan request"
	scanCompleteLogMsg   = "Scan completed"
	droppedRequestLogMsg = "Scan request dropped"
)

// LogRequest records that a scan request was received.
func LogRequest(ctx context.Context, object, filename string) {
	slog.InfoContext(ctx, gotRequestLogMsg,
		log.LabelAttr("object", object),
		"filename", filename)
}

// LogResult records the outcome of a scan.
func LogResult(ctx context.Context, object string, r *verdict.Result) {
	slog.InfoContext(ctx, scanCompleteLogMsg,
		log.LabelAttr("object", object),
		log.LabelAttr("prediction", r.Label.String()),
		log.LabelAttr("mode", string(r.Mode)),
		"scan_id", r.ScanID,
		"confidence", r.Confidence)
}

// LogDropped records a request that was acknowledged without being scanned.
func LogDropped(ctx context.Context, object, reason string) {
	slog.WarnContext(ctx, droppedRequestLogMsg,
		log.LabelAttr("object", object),
		log.LabelAttr("reason", reason))
}
