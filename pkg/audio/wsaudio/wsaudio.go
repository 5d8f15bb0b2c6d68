// Package wsaudio bridges a satellite audio device over a single WebSocket
// connection.
//
// A satellite is a small always-on box (a Pi with a mic array and a speaker)
// that streams its microphone to the assistant and plays back whatever the
// assistant sends. The protocol is one long-lived connection: after the
// client's JSON hello, every inbound binary message is one fixed-duration
// mono PCM frame from the microphone, and playback runs as a JSON header
// followed by one binary PCM message, acknowledged by a JSON status.
//
// Device implements both audio.InputDevice and audio.OutputDevice over that
// one connection, so the same value is handed to the capture loop and the
// speech output path.
package wsaudio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/hearthd/hearth/pkg/audio"
)

const (
	defaultSampleRate  = 16000
	defaultFrameMillis = 30

	// frameBuffer bounds how far the microphone stream may run ahead of the
	// capture loop before the reader blocks.
	frameBuffer = 64
)

// Compile-time assertions that Device serves both sides of the audio path.
var (
	_ audio.InputDevice  = (*Device)(nil)
	_ audio.OutputDevice = (*Device)(nil)
)

// Option is a functional option for configuring a Device.
type Option func(*Device)

// WithSampleRate sets the capture sample rate requested from the satellite.
// Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(d *Device) { d.sampleRate = rate }
}

// WithFrameMillis sets the frame duration requested from the satellite.
// Defaults to 30.
func WithFrameMillis(ms int) Option {
	return func(d *Device) { d.frameMillis = ms }
}

// Device is a satellite audio bridge. ReadFrame and Play may be called from
// the same goroutine; a background reader demultiplexes the connection so a
// pending playback acknowledgement never swallows microphone frames.
type Device struct {
	conn        *websocket.Conn
	sampleRate  int
	frameMillis int

	frames chan audio.Frame
	status chan statusMessage

	cancel  context.CancelFunc
	done    chan struct{}
	readErr error // set once before done is closed

	closeOnce sync.Once
}

// helloMessage is the JSON message sent once after dialing, fixing the
// capture format for the connection.
type helloMessage struct {
	Type        string `json:"type"`
	SampleRate  int    `json:"sample_rate"`
	FrameMillis int    `json:"frame_ms"`
}

// playMessage announces a playback buffer; the next binary message carries
// its PCM.
type playMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sample_rate"`
	Bytes      int    `json:"bytes"`
}

// statusMessage is sent by the satellite after playback completes.
type statusMessage struct {
	Played bool   `json:"played"`
	Error  string `json:"error,omitempty"`
}

// Dial connects to the satellite gateway at url (e.g.,
// "ws://satellite.local:10700/audio") and starts the microphone stream.
func Dial(ctx context.Context, url string, opts ...Option) (*Device, error) {
	if url == "" {
		return nil, errors.New("wsaudio: url must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsaudio: dial %q: %w", url, err)
	}

	d := &Device{
		conn:        conn,
		sampleRate:  defaultSampleRate,
		frameMillis: defaultFrameMillis,
		frames:      make(chan audio.Frame, frameBuffer),
		status:      make(chan statusMessage, 1),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}

	hello := helloMessage{Type: "hello", SampleRate: d.sampleRate, FrameMillis: d.frameMillis}
	helloBytes, err := json.Marshal(hello)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("wsaudio: marshal hello: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, helloBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("wsaudio: send hello: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.readLoop(readCtx)
	return d, nil
}

// readLoop pumps the connection: binary messages become microphone frames,
// text messages become playback statuses. It runs until the connection drops
// or the device is closed.
func (d *Device) readLoop(ctx context.Context) {
	defer close(d.done)

	frameDur := time.Duration(d.frameMillis) * time.Millisecond
	var n int
	for {
		msgType, msg, err := d.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				d.readErr = audio.ErrDeviceClosed
			} else {
				d.readErr = fmt.Errorf("wsaudio: read: %w", err)
			}
			return
		}

		switch msgType {
		case websocket.MessageBinary:
			frame := audio.Frame{
				Data:       msg,
				SampleRate: d.sampleRate,
				Timestamp:  time.Duration(n) * frameDur,
			}
			n++
			select {
			case d.frames <- frame:
			case <-ctx.Done():
				d.readErr = audio.ErrDeviceClosed
				return
			}

		case websocket.MessageText:
			var status statusMessage
			if err := json.Unmarshal(msg, &status); err != nil {
				d.readErr = fmt.Errorf("wsaudio: decode status: %w", err)
				return
			}
			select {
			case d.status <- status:
			default:
				// No playback waiting; stale status, drop it.
			}
		}
	}
}

// ReadFrame implements audio.InputDevice. It blocks until the satellite
// delivers the next microphone frame, ctx is cancelled, or the connection is
// gone.
func (d *Device) ReadFrame(ctx context.Context) (audio.Frame, error) {
	select {
	case f := <-d.frames:
		return f, nil
	case <-d.done:
		// Drain frames that arrived before the connection dropped.
		select {
		case f := <-d.frames:
			return f, nil
		default:
		}
		return audio.Frame{}, d.readErr
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

// Play implements audio.OutputDevice. It ships the buffer to the satellite
// and blocks until the satellite acknowledges playback.
func (d *Device) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}

	header := playMessage{Type: "play", SampleRate: sampleRate, Bytes: len(pcm)}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("wsaudio: marshal play header: %w", err)
	}
	if err := d.conn.Write(ctx, websocket.MessageText, headerBytes); err != nil {
		return fmt.Errorf("wsaudio: send play header: %w", err)
	}
	if err := d.conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		return fmt.Errorf("wsaudio: send pcm: %w", err)
	}

	select {
	case status := <-d.status:
		if status.Error != "" {
			return fmt.Errorf("wsaudio: satellite playback: %s", status.Error)
		}
		if !status.Played {
			return errors.New("wsaudio: satellite did not confirm playback")
		}
		return nil
	case <-d.done:
		return d.readErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements both device interfaces. It tears down the connection and
// unblocks any pending ReadFrame or Play. Safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.cancel()
		d.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return nil
}
