package executor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/intent"
)

func valenciaRules() []executor.SweepRule {
	return []executor.SweepRule{
		{Location: "valencia between 18th and 19th", Side: "north", Weekday: time.Tuesday, Hour: 8},
		{Location: "valencia between 18th and 19th", Side: "south", Weekday: time.Friday, Hour: 8},
	}
}

func TestMemScheduleStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := executor.NewMemScheduleStore(valenciaRules())

	t.Run("sides are narrowed to existing rules", func(t *testing.T) {
		t.Parallel()
		sides, err := store.SidesFor(ctx, "Valencia between 18th and 19th")
		if err != nil {
			t.Fatalf("SidesFor: %v", err)
		}
		if len(sides) != 2 || sides[0] != "north" || sides[1] != "south" {
			t.Fatalf("unexpected sides: %v", sides)
		}
	})

	t.Run("next sweep is the upcoming weekday occurrence", func(t *testing.T) {
		t.Parallel()
		// A Monday noon; the next Tuesday 8 AM is the following morning.
		after := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
		next, err := store.NextSweep(ctx, "valencia between 18th and 19th", "north", after)
		if err != nil {
			t.Fatalf("NextSweep: %v", err)
		}
		want := time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)
		if !next.Equal(want) {
			t.Fatalf("expected %v, got %v", want, next)
		}
	})

	t.Run("same-day past hour rolls a week", func(t *testing.T) {
		t.Parallel()
		// Tuesday 9 AM is already past the 8 AM window.
		after := time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC)
		next, err := store.NextSweep(ctx, "valencia between 18th and 19th", "north", after)
		if err != nil {
			t.Fatalf("NextSweep: %v", err)
		}
		want := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
		if !next.Equal(want) {
			t.Fatalf("expected %v, got %v", want, next)
		}
	})

	t.Run("unknown location returns ErrNoSchedule", func(t *testing.T) {
		t.Parallel()
		_, err := store.NextSweep(ctx, "mission and cesar chavez", "north", time.Now())
		if err != executor.ErrNoSchedule {
			t.Fatalf("expected ErrNoSchedule, got %v", err)
		}
	})
}

func TestParkingExecute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := executor.NewMemScheduleStore(valenciaRules())
	monday := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	p := executor.NewParking(store, executor.WithClock(func() time.Time { return monday }))

	t.Run("answers with the move deadline", func(t *testing.T) {
		t.Parallel()
		res, err := p.Execute(ctx, intent.Candidate{
			Action: intent.ActionParkingCheck,
			Slots: map[string]string{
				intent.SlotLocation: "valencia between 18th and 19th",
				intent.SlotSide:     "north",
			},
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !strings.Contains(res.Speech, "Tuesday at 8:00 AM") {
			t.Fatalf("unexpected speech: %q", res.Speech)
		}
	})

	t.Run("missing schedule is an answer, not an error", func(t *testing.T) {
		t.Parallel()
		res, err := p.Execute(ctx, intent.Candidate{
			Action: intent.ActionParkingCheck,
			Slots: map[string]string{
				intent.SlotLocation: "nowhere street",
				intent.SlotSide:     "east",
			},
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !strings.Contains(res.Speech, "couldn't find") {
			t.Fatalf("unexpected speech: %q", res.Speech)
		}
	})

	t.Run("side choices come from the schedule", func(t *testing.T) {
		t.Parallel()
		c := intent.Candidate{
			Action: intent.ActionParkingCheck,
			Slots:  map[string]string{intent.SlotLocation: "valencia between 18th and 19th"},
		}
		choices := p.ChoicesFor(ctx, c, intent.SlotSide)
		if len(choices) != 2 {
			t.Fatalf("expected the two scheduled sides, got %v", choices)
		}
	})

	t.Run("no choices before the location is known", func(t *testing.T) {
		t.Parallel()
		c := intent.Candidate{Action: intent.ActionParkingCheck, Slots: map[string]string{}}
		if got := p.ChoicesFor(ctx, c, intent.SlotSide); got != nil {
			t.Fatalf("expected nil choices, got %v", got)
		}
	})
}
