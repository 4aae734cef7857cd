package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// LineFlusher is implemented by line-oriented writers that hold back an
// unterminated trailing line until its newline arrives.
type LineFlusher interface {
	FlushLine() error
}

// Writer is an io.Writer that forwards engine progress output to slog, one
// record per non-empty line. A line split across writes is logged once, when
// its newline arrives or on FlushLine.
type Writer struct {
	logger *slog.Logger
	msg    string

	mu      sync.Mutex
	pending []byte
}

// NewWriter constructs a Writer bound to the provided logger. Every record is
// logged with msg and a "line" attribute.
func NewWriter(logger *slog.Logger, msg string) *Writer {
	if msg == "" {
		msg = "engine output"
	}
	return &Writer{logger: logger, msg: msg}
}

// Write logs each complete line in p at info level.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger == nil {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.log(string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// FlushLine logs the unterminated trailing line, if any.
func (w *Writer) FlushLine() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.log(string(w.pending))
		w.pending = nil
	}
	return nil
}

func (w *Writer) log(line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	w.logger.Info(w.msg, "line", line)
}
