// Package owwws provides a Scorer backed by an openWakeWord-compatible
// scoring server speaking a WebSocket streaming protocol.
//
// The protocol is one long-lived connection: after a JSON hello naming the
// wake phrase model, the client sends each audio frame as a binary message
// and the server answers every frame with a JSON score message. The server
// keeps the model's sliding analysis window between frames, which is why the
// connection persists across the whole stream instead of being per-request.
package owwws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/wakeword"
)

const (
	defaultPhrase = "hey_hearth"

	// defaultTimeout bounds a single frame round trip. The scorer sits in the
	// hot capture loop; a slow server must fail the frame, not stall capture.
	defaultTimeout = 500 * time.Millisecond
)

// Compile-time assertion that Scorer satisfies wakeword.Scorer.
var _ wakeword.Scorer = (*Scorer)(nil)

// Option is a functional option for configuring a Scorer.
type Option func(*Scorer)

// WithPhrase selects the server-side wake phrase model. Defaults to
// "hey_hearth".
func WithPhrase(phrase string) Option {
	return func(s *Scorer) { s.phrase = phrase }
}

// WithTimeout bounds each frame's score round trip. Defaults to 500ms.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// Scorer implements wakeword.Scorer against an openWakeWord-compatible
// WebSocket server.
type Scorer struct {
	conn    *websocket.Conn
	phrase  string
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// helloMessage names the wake phrase model for the connection.
type helloMessage struct {
	Type   string `json:"type"`
	Phrase string `json:"phrase"`
}

// resetMessage asks the server to clear its sliding analysis window.
type resetMessage struct {
	Type string `json:"type"`
}

// scoreMessage is the server's answer to one audio frame.
type scoreMessage struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

// Dial connects to the scoring server at url (e.g.,
// "ws://localhost:10400/score") and binds the connection to a wake phrase
// model.
func Dial(ctx context.Context, url string, opts ...Option) (*Scorer, error) {
	if url == "" {
		return nil, errors.New("owwws: url must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("owwws: dial %q: %w", url, err)
	}

	s := &Scorer{
		conn:    conn,
		phrase:  defaultPhrase,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}

	hello := helloMessage{Type: "hello", Phrase: s.phrase}
	helloBytes, err := json.Marshal(hello)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("owwws: marshal hello: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, helloBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("owwws: send hello: %w", err)
	}
	return s, nil
}

// Score implements wakeword.Scorer. It ships the frame to the server and
// waits for the matching score message.
func (s *Scorer) Score(frame audio.Frame) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("owwws: scorer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.conn.Write(ctx, websocket.MessageBinary, frame.Data); err != nil {
		return 0, fmt.Errorf("owwws: send frame: %w", err)
	}

	for {
		msgType, msg, err := s.conn.Read(ctx)
		if err != nil {
			return 0, fmt.Errorf("owwws: read score: %w", err)
		}
		if msgType != websocket.MessageText {
			continue
		}
		var score scoreMessage
		if err := json.Unmarshal(msg, &score); err != nil {
			return 0, fmt.Errorf("owwws: decode score: %w", err)
		}
		if score.Error != "" {
			return 0, fmt.Errorf("owwws: server error: %s", score.Error)
		}
		return clamp(score.Score), nil
	}
}

// Reset implements wakeword.Scorer. It asks the server to drop its sliding
// window; a failed reset only risks one stale window, so the error is not
// surfaced.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	msg, err := json.Marshal(resetMessage{Type: "reset"})
	if err != nil {
		return
	}
	_ = s.conn.Write(ctx, websocket.MessageText, msg)
}

// Close implements wakeword.Scorer. Safe to call more than once.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close(websocket.StatusNormalClosure, "closing")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
