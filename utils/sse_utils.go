package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pendeploy/compute-deployer/dto"
)

// Event names used on the deployment stream.
const (
	SSEEventMessage = "message"
	SSEEventLog     = "log"
	SSEEventResult  = "result"
	SSEEventError   = "error"
)

// WriteSSEEvent writes a named event whose data is the JSON encoding of v.
func WriteSSEEvent(w io.Writer, event string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

// SSEWriter turns engine progress into one "log" event per line and flushes
// after every write. An unterminated line is held back until its newline
// arrives, FlushLine is called, or another event is written. It is safe for
// concurrent use.
type SSEWriter struct {
	mu      sync.Mutex
	w       io.Writer
	pending []byte
}

func NewSSEWriter(w io.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, p...)
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		line := string(s.pending[:i])
		s.pending = s.pending[i+1:]
		if err := s.writeLine(line); err != nil {
			return 0, err
		}
	}
	s.flush()
	return len(p), nil
}

// FlushLine sends the unterminated trailing line, if any.
func (s *SSEWriter) FlushLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writePending(); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Event writes a named event under the writer's lock and flushes it. A held
// back log line is sent first.
func (s *SSEWriter) Event(event string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writePending(); err != nil {
		return err
	}
	if err := WriteSSEEvent(s.w, event, v); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Message writes a "message" event with a human readable text.
func (s *SSEWriter) Message(message string) error {
	return s.Event(SSEEventMessage, dto.MessageResponse{Message: message})
}

func (s *SSEWriter) writePending() error {
	if len(s.pending) == 0 {
		return nil
	}
	line := string(s.pending)
	s.pending = nil
	return s.writeLine(line)
}

func (s *SSEWriter) writeLine(line string) error {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	return WriteSSEEvent(s.w, SSEEventLog, dto.LogLine{Line: line})
}

func (s *SSEWriter) flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
