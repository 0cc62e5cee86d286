package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Sink receives a stream's events in order. Implementations must be safe for
// use from a single orchestration goroutine; SinkFunc and the WebSocket sink
// additionally tolerate concurrent senders.
type Sink interface {
	Send(ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event) error

func (f SinkFunc) Send(ev Event) error { return f(ev) }

// SSESink serializes events as Server-Sent Events, one flushed
// `data: <json>` record per event.
type SSESink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSESink prepares the response for event streaming and returns the sink.
// The error is non-nil when the writer cannot flush incrementally.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	return &SSESink{w: w, flusher: flusher}, nil
}

func (s *SSESink) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WSSink serializes events as JSON text frames on a WebSocket connection.
// A write mutex guards the connection; gorilla permits one concurrent writer.
type WSSink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
