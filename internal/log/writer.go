package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"unicode"
)

// NewWriter returns an io.WriteCloser that logs each line written to it as a
// separate record at level. Trailing whitespace is trimmed and blank lines are
// dropped.
//
// Close flushes a final unterminated line.
func NewWriter(ctx context.Context, logger *slog.Logger, level slog.Level) io.WriteCloser {
	return &writer{
		ctx:    ctx,
		logger: logger,
		level:  level,
	}
}

type writer struct {
	ctx    context.Context
	logger *slog.Logger
	level  slog.Level
	buffer bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i == -1 {
			n, err := w.buffer.Write(p)
			return written + n, err
		}
		n, err := w.buffer.Write(p[:i])
		written += n
		if err != nil {
			return written, err
		}
		// Account for the newline.
		written++
		p = p[i+1:]
		w.flush()
	}
	return written, nil
}

func (w *writer) flush() {
	line := bytes.TrimRightFunc(w.buffer.Bytes(), unicode.IsSpace)
	if len(line) > 0 {
		w.logger.Log(w.ctx, w.level, string(line))
	}
	w.buffer.Reset()
}

func (w *writer) Close() error {
	w.flush()
	return nil
}
