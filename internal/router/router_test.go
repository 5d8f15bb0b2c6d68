package router_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/dialogue"
	"github.com/hearthd/hearth/internal/intent"
	"github.com/hearthd/hearth/internal/router"
	llmmock "github.com/hearthd/hearth/pkg/provider/llm/mock"
)

// fakeResolver scripts the intent tier.
type fakeResolver struct {
	candidate intent.Candidate
	err       error

	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, text string) (intent.Candidate, error) {
	f.calls = append(f.calls, text)
	return f.candidate, f.err
}

// fakeDialogue scripts the dialogue manager.
type fakeDialogue struct {
	bypass bool

	candidates []intent.Candidate
	followups  []string
}

func (f *fakeDialogue) WakeBypass() bool { return f.bypass }

func (f *fakeDialogue) HandleCandidate(_ context.Context, c intent.Candidate) dialogue.Response {
	f.candidates = append(f.candidates, c)
	return dialogue.Response{Speech: "handled candidate", Executed: true}
}

func (f *fakeDialogue) HandleFollowup(_ context.Context, transcript string) dialogue.Response {
	f.followups = append(f.followups, transcript)
	return dialogue.Response{Speech: "handled followup"}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.June, 3, 15, 30, 0, 0, time.UTC)
	}
}

func TestRouteTierPrecedence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("pattern match stops routing", func(t *testing.T) {
		t.Parallel()
		resolver := &fakeResolver{}
		fallback := &llmmock.Provider{DefaultResponse: "chat"}
		r := router.New(router.NewPatternMatcher(router.WithNow(fixedClock())), resolver, &fakeDialogue{}, fallback)

		res := r.Route(ctx, "what time is it")
		if res.Speech != "It's 3:30 PM." {
			t.Fatalf("unexpected reply: %q", res.Speech)
		}
		if len(resolver.calls) != 0 {
			t.Fatal("intent resolver must never run after a pattern match")
		}
		if len(fallback.CompleteCalls) != 0 {
			t.Fatal("fallback must never run after a pattern match")
		}
	})

	t.Run("intent match feeds the dialogue manager", func(t *testing.T) {
		t.Parallel()
		resolver := &fakeResolver{candidate: intent.Candidate{Action: intent.ActionTurnOn, Confidence: 1.0}}
		dlg := &fakeDialogue{}
		fallback := &llmmock.Provider{DefaultResponse: "chat"}
		r := router.New(router.NewPatternMatcher(), resolver, dlg, fallback)

		res := r.Route(ctx, "turn on the tv light")
		if res.Speech != "handled candidate" {
			t.Fatalf("unexpected response: %+v", res)
		}
		if len(dlg.candidates) != 1 {
			t.Fatalf("expected 1 candidate handoff, got %d", len(dlg.candidates))
		}
		if len(fallback.CompleteCalls) != 0 {
			t.Fatal("fallback must never run when the intent tier matched")
		}
	})

	t.Run("no intent match falls through to the llm", func(t *testing.T) {
		t.Parallel()
		resolver := &fakeResolver{err: intent.ErrNoMatch}
		fallback := &llmmock.Provider{DefaultResponse: "Here's a dragon story."}
		r := router.New(router.NewPatternMatcher(), resolver, &fakeDialogue{}, fallback)

		res := r.Route(ctx, "tell me a story about dragons")
		if res.Speech != "Here's a dragon story." {
			t.Fatalf("unexpected response: %+v", res)
		}
		if len(fallback.CompleteCalls) != 1 {
			t.Fatalf("expected 1 fallback call, got %d", len(fallback.CompleteCalls))
		}
	})

	t.Run("resolver failure still ends in speech", func(t *testing.T) {
		t.Parallel()
		resolver := &fakeResolver{err: errors.New("registry unavailable")}
		fallback := &llmmock.Provider{DefaultResponse: "fallback text"}
		r := router.New(router.NewPatternMatcher(), resolver, &fakeDialogue{}, fallback)

		res := r.Route(ctx, "turn on the tv light")
		if res.Speech != "fallback text" {
			t.Fatalf("unexpected response: %+v", res)
		}
	})
}

func TestRouteFollowupBypass(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	dlg := &fakeDialogue{bypass: true}
	fallback := &llmmock.Provider{}
	r := router.New(router.NewPatternMatcher(), resolver, dlg, fallback)

	// Even a transcript that would match tier 1 goes straight to the
	// dialogue manager while a follow-up is pending.
	res := r.Route(context.Background(), "what time is it")
	if res.Speech != "handled followup" {
		t.Fatalf("unexpected response: %+v", res)
	}
	if len(dlg.followups) != 1 || dlg.followups[0] != "what time is it" {
		t.Fatalf("unexpected followup handoff: %v", dlg.followups)
	}
	if len(resolver.calls) != 0 || len(fallback.CompleteCalls) != 0 {
		t.Fatal("tiers 1-2 and fallback must be skipped during follow-ups")
	}
}

func TestRouteFailureSpeech(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty transcript gets an apology", func(t *testing.T) {
		t.Parallel()
		fallback := &llmmock.Provider{DefaultResponse: "unused"}
		r := router.New(router.NewPatternMatcher(), &fakeResolver{err: intent.ErrNoMatch}, &fakeDialogue{}, fallback)

		res := r.Route(ctx, "   ")
		if res.Speech == "" {
			t.Fatal("empty transcript must still produce speech")
		}
		if len(fallback.CompleteCalls) != 0 {
			t.Fatal("no llm call for an empty transcript")
		}
	})

	t.Run("llm failure gets an apology", func(t *testing.T) {
		t.Parallel()
		fallback := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
		r := router.New(router.NewPatternMatcher(), &fakeResolver{err: intent.ErrNoMatch}, &fakeDialogue{}, fallback)

		res := r.Route(ctx, "tell me something")
		if res.Speech == "" || !strings.Contains(res.Speech, "Sorry") {
			t.Fatalf("expected an apology, got %q", res.Speech)
		}
	})
}

func TestPatternMatcher(t *testing.T) {
	t.Parallel()

	m := router.NewPatternMatcher(router.WithNow(fixedClock()))

	cases := map[string]string{
		"what time is it":   "It's 3:30 PM.",
		"What's the time?":  "It's 3:30 PM.",
		"what day is it":    "It's Tuesday, June 3.",
		"hello":             "Hi there.",
		"thank you":         "You're welcome.",
		"are you listening": "I'm here.",
	}
	for in, want := range cases {
		got, ok := m.Match(in)
		if !ok {
			t.Fatalf("expected %q to match", in)
		}
		if got != want {
			t.Fatalf("Match(%q) = %q, want %q", in, got, want)
		}
	}

	if _, ok := m.Match("turn on the tv light"); ok {
		t.Fatal("commands must not match the instant-reply tier")
	}
}
