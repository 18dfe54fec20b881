package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jarvis/config"
)

const (
	streamWriteTimeout     = 10 * time.Second
	streamHandshakeTimeout = 10 * time.Second
)

// TranscriptEvent is one recognition update from the live transcript stream.
type TranscriptEvent struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// TranscriptStream is a live recognition session. Audio goes up as binary
// frames; transcript events come back as JSON text frames.
type TranscriptStream struct {
	conn   *websocket.Conn
	events chan TranscriptEvent

	writeMu sync.Mutex

	mu      sync.Mutex
	readErr error

	closeOnce sync.Once
	done      chan struct{}
}

// OpenTranscriptStream dials {ws(s)://base}/api/transcribe/stream.
func (c *Client) OpenTranscriptStream(ctx context.Context) (*TranscriptStream, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/transcribe/stream"

	dialer := &websocket.Dialer{
		HandshakeTimeout: streamHandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())

	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrAborted
		}
		if resp != nil {
			return nil, &ServerError{Status: resp.StatusCode}
		}
		return nil, &NetworkError{Op: "transcript stream", Err: err}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Transport] transcript stream opened: %s", wsURL.String())
	}

	s := &TranscriptStream{
		conn:   conn,
		events: make(chan TranscriptEvent, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

func (s *TranscriptStream) readLoop() {
	defer close(s.events)

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-s.done:
				default:
					s.setErr(fmt.Errorf("transcript stream: %w", err))
				}
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var ev TranscriptEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Transport] ignoring malformed stream event: %v", err)
			}
			continue
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Events is closed when the server ends the stream or Close is called.
func (s *TranscriptStream) Events() <-chan TranscriptEvent {
	return s.events
}

// Err returns the read error that ended the stream, if any.
func (s *TranscriptStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

func (s *TranscriptStream) setErr(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

func (s *TranscriptStream) write(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return errors.New("transcript stream closed")
	default:
	}

	s.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return s.conn.WriteMessage(msgType, data)
}

// SendAudio streams one encoded audio chunk.
func (s *TranscriptStream) SendAudio(chunk []byte) error {
	return s.write(websocket.BinaryMessage, chunk)
}

// Finish tells the server no more audio follows. Final events may still arrive.
func (s *TranscriptStream) Finish() error {
	return s.write(websocket.TextMessage, []byte(`{"type":"stop"}`))
}

// Close ends the session. Safe to call more than once.
func (s *TranscriptStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		close(s.done)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
