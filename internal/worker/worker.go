// Package worker classifies files submitted through a message queue.
//
// Each message names an object in the uploads bucket. The worker copies the
// object into a private scratch directory, classifies it and, if a
// notification topic is configured, publishes the verdict.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gocloud.dev/pubsub"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/detector"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/metrics"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/notification"
	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
)

// Message metadata keys.
const (
	MetadataPath     = "path"
	MetadataFilename = "filename"
)

var errTooLarge = errors.New("object exceeds the upload size limit")

// Worker handles scan requests. Its fields are read-only once constructed and
// HandleMessage may be called concurrently.
type Worker struct {
	Detector *detector.Detector

	// Uploads holds the objects named by messages.
	Uploads *blob.Bucket

	// Notifications receives a ScanComplete per scan. May be nil.
	Notifications *pubsub.Topic

	// MaxBytes is the largest object that will be scanned.
	MaxBytes int64

	// ScanTimeout bounds the classification of a single file.
	ScanTimeout time.Duration

	// ExtensionAllowed reports whether an extension may be scanned. A nil
	// func allows everything.
	ExtensionAllowed func(ext string) bool

	Metrics *metrics.Collectors
}

func (w *Worker) drop(ctx context.Context, msg *pubsub.Message, object, reason string) {
	LogDropped(ctx, object, reason)
	w.Metrics.Rejected(reason)
	msg.Ack()
}

// HandleMessage processes one scan request. Requests that can never succeed
// are acknowledged and dropped. Transient failures are returned without
// acknowledging so the message is redelivered.
func (w *Worker) HandleMessage(ctx context.Context, msg *pubsub.Message) error {
	object := msg.Metadata[MetadataPath]
	if object == "" {
		w.drop(ctx, msg, object, metrics.ReasonMissingFile)
		return nil
	}
	name := msg.Metadata[MetadataFilename]
	if name == "" {
		name = path.Base(object)
	}
	name = utils.SafeFilename(name)
	LogRequest(ctx, object, name)

	if name == "" || (w.ExtensionAllowed != nil && !w.ExtensionAllowed(utils.Extension(name))) {
		w.drop(ctx, msg, object, metrics.ReasonExtension)
		return nil
	}

	dir, err := os.MkdirTemp("", "threatsleuth-scan-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	localPath := filepath.Join(dir, name)
	err = w.download(ctx, object, localPath)
	switch {
	case gcerrors.Code(err) == gcerrors.NotFound:
		w.drop(ctx, msg, object, metrics.ReasonMissingFile)
		return nil
	case errors.Is(err, errTooLarge):
		w.drop(ctx, msg, object, metrics.ReasonSize)
		return nil
	case err != nil:
		return fmt.Errorf("download %s: %w", object, err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, w.ScanTimeout)
	defer cancel()
	result := w.Detector.Classify(scanCtx, localPath)
	LogResult(ctx, object, result)

	if w.Notifications != nil {
		if err := notification.PublishScanComplete(ctx, w.Notifications, object, result); err != nil {
			return err
		}
	}

	msg.Ack()
	return nil
}

func (w *Worker) download(ctx context.Context, object, dst string) error {
	r, err := w.Uploads.NewReader(ctx, object, nil)
	if err != nil {
		return err
	}
	defer r.Close()
	if r.Size() > w.MaxBytes {
		return errTooLarge
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	// Read one byte past the limit so an object that grew after the size
	// check is still caught.
	n, err := io.Copy(f, io.LimitReader(r, w.MaxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > w.MaxBytes {
		return errTooLarge
	}
	return nil
}

// Run receives messages from sub until ctx is done or receiving fails,
// handling up to concurrency messages at once.
func (w *Worker) Run(ctx context.Context, sub *pubsub.Subscription, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	defer func() {
		// Wait for in-flight messages.
		for i := 0; i < cap(sem); i++ {
			sem <- struct{}{}
		}
	}()

	slog.InfoContext(ctx, "Listening for messages to process...")
	for {
		msg, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// All subsequent receive calls will return the same error, so we bail out.
			return fmt.Errorf("error receiving message: %w", err)
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			if msg.Nackable() {
				msg.Nack()
			}
			return nil
		}
		go func() {
			defer func() { <-sem }()
			if err := w.HandleMessage(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to process message", "error", err)
				if msg.Nackable() {
					msg.Nack()
				}
			}
		}()
	}
}
