// File: internal/handlers/sse.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	chatservice "github.com/iyunix/go-voicechat/internal/services/chat"
)

// eventStreamWriter writes one JSON event per line and flushes each one so
// the client sees partial output immediately.
type eventStreamWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// startEventStream commits the streaming headers and a 200 status.
func startEventStream(w http.ResponseWriter) *eventStreamWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// Streams may outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()
	return &eventStreamWriter{w: w, rc: rc}
}

func (s *eventStreamWriter) WriteEvent(event chatservice.Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	return s.rc.Flush()
}
