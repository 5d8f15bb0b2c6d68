// Package piperws provides a Synthesizer backed by a local Piper-compatible
// synthesis server speaking a WebSocket streaming protocol.
//
// The protocol is one connection per synthesis request: the client dials the
// server, sends a single JSON text message describing the request, then reads
// binary messages carrying raw PCM chunks until the server sends a final JSON
// status message and closes the stream. Streaming keeps the first audible
// byte latency low even though the package-level contract is batch.
package piperws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"

	"github.com/hearthd/hearth/pkg/provider/tts"
)

const (
	defaultSampleRate = 22050
	defaultVoice      = "en_US-lessac-medium"
)

// Compile-time assertion that Synthesizer satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithVoice sets the server-side voice model name. Defaults to
// "en_US-lessac-medium".
func WithVoice(voice string) Option {
	return func(s *Synthesizer) { s.voice = voice }
}

// WithSampleRate sets the PCM output sample rate requested from the server.
// Defaults to 22050.
func WithSampleRate(rate int) Option {
	return func(s *Synthesizer) { s.sampleRate = rate }
}

// Synthesizer implements tts.Synthesizer against a Piper-compatible
// WebSocket server. It is safe for concurrent use; each Synthesize call opens
// its own connection.
type Synthesizer struct {
	url        string
	voice      string
	sampleRate int
}

// New creates a Synthesizer that connects to the WebSocket endpoint at url
// (e.g., "ws://localhost:10200/synthesize").
func New(url string, opts ...Option) (*Synthesizer, error) {
	if url == "" {
		return nil, errors.New("piperws: url must not be empty")
	}
	s := &Synthesizer{
		url:        url,
		voice:      defaultVoice,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// synthesizeRequest is the JSON payload sent to the server for each request.
type synthesizeRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// statusMessage is the JSON message the server sends after the last PCM chunk.
type statusMessage struct {
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Synthesize implements tts.Synthesizer. It dials the server, submits the
// request, and accumulates streamed PCM chunks until the server reports
// completion.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, int, error) {
	if text == "" {
		return nil, 0, errors.New("piperws: text must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("piperws: dial %q: %w", s.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	req := synthesizeRequest{Text: text, Voice: s.voice, SampleRate: s.sampleRate}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("piperws: marshal request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, reqBytes); err != nil {
		return nil, 0, fmt.Errorf("piperws: send request: %w", err)
	}

	var pcm []byte
	for {
		msgType, msg, err := conn.Read(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("piperws: read: %w", err)
		}

		switch msgType {
		case websocket.MessageBinary:
			pcm = append(pcm, msg...)

		case websocket.MessageText:
			var status statusMessage
			if err := json.Unmarshal(msg, &status); err != nil {
				return nil, 0, fmt.Errorf("piperws: decode status: %w", err)
			}
			if status.Error != "" {
				return nil, 0, fmt.Errorf("piperws: server error: %s", status.Error)
			}
			if status.Done {
				return pcm, s.sampleRate, nil
			}
		}
	}
}

// Close implements tts.Synthesizer. Connections are per-request, so there is
// nothing to release.
func (s *Synthesizer) Close() error { return nil }
