package voicecmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSRecognizer reads final transcripts from a streaming speech
// recognition service over a websocket. The service pushes transcript
// messages as the microphone unit hears speech; Recognize returns the
// next final one.
type WSRecognizer struct {
	url    string
	apiKey string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

var _ Recognizer = (*WSRecognizer)(nil)

// transcriptMsg is the service's wire format.
type transcriptMsg struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"is_final"`
}

// NewWSRecognizer creates a recognizer for the service at url
// (ws:// or wss://).
func NewWSRecognizer(url, apiKey string) *WSRecognizer {
	return &WSRecognizer{url: url, apiKey: apiKey}
}

// Recognize returns the next final transcript. It dials on first use
// and redials after a dropped connection.
func (r *WSRecognizer) Recognize(ctx context.Context) (string, error) {
	conn, err := r.ensureConn(ctx)
	if err != nil {
		return "", err
	}

	// Unblock the read when the caller gives up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	for {
		var msg transcriptMsg
		if err := conn.ReadJSON(&msg); err != nil {
			r.dropConn()
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("voicecmd: read transcript: %w", err)
		}
		if msg.Type == "transcript" && msg.Final && msg.Text != "" {
			return msg.Text, nil
		}
	}
}

// Close shuts the connection down permanently.
func (r *WSRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *WSRecognizer) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrNoTranscript
	}
	if r.conn != nil {
		return r.conn, nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := map[string][]string{}
	if r.apiKey != "" {
		header["Authorization"] = []string{"Bearer " + r.apiKey}
	}

	conn, _, err := dialer.DialContext(ctx, r.url, header)
	if err != nil {
		return nil, fmt.Errorf("voicecmd: dial recognizer: %w", err)
	}

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData),
			time.Now().Add(5*time.Second))
	})

	r.conn = conn
	return conn, nil
}

func (r *WSRecognizer) dropConn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}
