package owwws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/hearthd/hearth/pkg/audio"
)

func testFrame() audio.Frame {
	return audio.Frame{Data: make([]byte, 960), SampleRate: 16000}
}

// scoreServer answers each binary frame with the next scripted score and
// records control messages it receives.
type scoreServer struct {
	scores []float64
	errMsg string

	resets chan struct{}
	hellos chan helloMessage
}

func newScoreServer(scores ...float64) *scoreServer {
	return &scoreServer{
		scores: scores,
		resets: make(chan struct{}, 8),
		hellos: make(chan helloMessage, 1),
	}
}

func (s *scoreServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		ctx := r.Context()

		next := 0
		for {
			msgType, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}

			if msgType == websocket.MessageText {
				var hello helloMessage
				if err := json.Unmarshal(msg, &hello); err == nil && hello.Type == "hello" {
					s.hellos <- hello
					continue
				}
				var reset resetMessage
				if err := json.Unmarshal(msg, &reset); err == nil && reset.Type == "reset" {
					s.resets <- struct{}{}
				}
				continue
			}

			score := scoreMessage{Error: s.errMsg}
			if s.errMsg == "" && next < len(s.scores) {
				score.Score = s.scores[next]
				next++
			}
			out, _ := json.Marshal(score)
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				return
			}
		}
	}
}

func dialScorer(t *testing.T, s *scoreServer, opts ...Option) *Scorer {
	t.Helper()
	srv := httptest.NewServer(s.handler(t))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sc, err := Dial(context.Background(), url, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = sc.Close() })
	return sc
}

func TestDial_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := Dial(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestDial_SendsHelloWithPhrase(t *testing.T) {
	t.Parallel()

	srv := newScoreServer()
	dialScorer(t, srv, WithPhrase("hey_jarvis"))

	select {
	case hello := <-srv.hellos:
		if hello.Phrase != "hey_jarvis" {
			t.Fatalf("hello phrase = %q", hello.Phrase)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received hello")
	}
}

func TestScore_ReturnsServerScores(t *testing.T) {
	t.Parallel()

	sc := dialScorer(t, newScoreServer(0.12, 0.87))

	for i, want := range []float64{0.12, 0.87} {
		got, err := sc.Score(testFrame())
		if err != nil {
			t.Fatalf("Score %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("score %d = %v, want %v", i, got, want)
		}
	}
}

func TestScore_ClampsOutOfRange(t *testing.T) {
	t.Parallel()

	sc := dialScorer(t, newScoreServer(1.4, -0.2))

	if got, err := sc.Score(testFrame()); err != nil || got != 1 {
		t.Fatalf("Score = %v, %v; want 1", got, err)
	}
	if got, err := sc.Score(testFrame()); err != nil || got != 0 {
		t.Fatalf("Score = %v, %v; want 0", got, err)
	}
}

func TestScore_ServerError(t *testing.T) {
	t.Parallel()

	srv := newScoreServer()
	srv.errMsg = "model not loaded"
	sc := dialScorer(t, srv)

	_, err := sc.Score(testFrame())
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("Score returned %v", err)
	}
}

func TestReset_NotifiesServer(t *testing.T) {
	t.Parallel()

	srv := newScoreServer()
	sc := dialScorer(t, srv)

	sc.Reset()

	select {
	case <-srv.resets:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received reset")
	}
}

func TestScore_AfterClose(t *testing.T) {
	t.Parallel()

	sc := dialScorer(t, newScoreServer())
	if err := sc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := sc.Score(testFrame()); err == nil {
		t.Fatal("expected error after Close")
	}
}
