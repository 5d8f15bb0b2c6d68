package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/intent"
	"github.com/hearthd/hearth/internal/sched"
)

func TestParseSpokenDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
	}{
		{"10 minutes", 10 * time.Minute},
		{"ten minutes", 10 * time.Minute},
		{"twenty five seconds", 25 * time.Second},
		{"an hour", time.Hour},
		{"a minute", time.Minute},
		{"half an hour", 30 * time.Minute},
		{"a minute and a half", 90 * time.Second},
		{"two hours and ten minutes", 2*time.Hour + 10*time.Minute},
		{"90 seconds", 90 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := executor.ParseSpokenDuration(tc.in)
			if err != nil {
				t.Fatalf("ParseSpokenDuration(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseSpokenDuration(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}

	for _, bad := range []string{"", "bananas", "ten", "minutes"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			t.Parallel()
			if _, err := executor.ParseSpokenDuration(bad); err == nil {
				t.Fatalf("expected error for %q", bad)
			}
		})
	}
}

func TestTimerExecute(t *testing.T) {
	t.Parallel()

	t.Run("starts a countdown", func(t *testing.T) {
		t.Parallel()
		s := sched.New()
		defer s.Shutdown(context.Background())

		timer := executor.NewTimer(s)
		res, err := timer.Execute(context.Background(), intent.Candidate{
			Action: intent.ActionSetTimer,
			Slots:  map[string]string{intent.SlotDuration: "an hour"},
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Speech != "Timer set for an hour." {
			t.Fatalf("unexpected speech: %q", res.Speech)
		}
		if s.Active() != 1 {
			t.Fatalf("expected 1 active task, got %d", s.Active())
		}
	})

	t.Run("rejects unparseable durations", func(t *testing.T) {
		t.Parallel()
		s := sched.New()
		defer s.Shutdown(context.Background())

		timer := executor.NewTimer(s)
		_, err := timer.Execute(context.Background(), intent.Candidate{
			Action: intent.ActionSetTimer,
			Slots:  map[string]string{intent.SlotDuration: "a fortnight"},
		})
		if !errors.Is(err, executor.ErrBadDuration) {
			t.Fatalf("expected ErrBadDuration, got %v", err)
		}
		if s.Active() != 0 {
			t.Fatalf("expected no tasks scheduled, got %d", s.Active())
		}
	})
}
