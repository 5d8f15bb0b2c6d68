package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/intent"
)

// fakeExecutor records Execute calls and returns scripted results.
type fakeExecutor struct {
	result  executor.Result
	err     error
	choices map[string][]string

	executed []intent.Candidate
}

func (f *fakeExecutor) Execute(_ context.Context, c intent.Candidate) (executor.Result, error) {
	f.executed = append(f.executed, c)
	return f.result, f.err
}

func (f *fakeExecutor) ChoicesFor(_ context.Context, _ intent.Candidate, slot string) []string {
	return f.choices[slot]
}

func TestRegistryExecute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("dispatches by action kind", func(t *testing.T) {
		t.Parallel()
		fake := &fakeExecutor{result: executor.Result{Speech: "done"}}
		reg := executor.NewRegistry()
		reg.Register(fake, intent.ActionTurnOn, intent.ActionTurnOff)

		res, err := reg.Execute(ctx, intent.Candidate{Action: intent.ActionTurnOn})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if res.Speech != "done" {
			t.Fatalf("unexpected result: %+v", res)
		}
		if len(fake.executed) != 1 {
			t.Fatalf("expected 1 Execute call, got %d", len(fake.executed))
		}
	})

	t.Run("refuses incomplete intents", func(t *testing.T) {
		t.Parallel()
		fake := &fakeExecutor{}
		reg := executor.NewRegistry()
		reg.Register(fake, intent.ActionTurnOn)

		_, err := reg.Execute(ctx, intent.Candidate{
			Action:          intent.ActionTurnOn,
			MissingRequired: []string{intent.SlotEntity},
		})
		if !errors.Is(err, executor.ErrIncompleteIntent) {
			t.Fatalf("expected ErrIncompleteIntent, got %v", err)
		}
		if len(fake.executed) != 0 {
			t.Fatal("executor must never run with missing required slots")
		}
	})

	t.Run("unknown action kind", func(t *testing.T) {
		t.Parallel()
		reg := executor.NewRegistry()

		_, err := reg.Execute(ctx, intent.Candidate{Action: intent.ActionSetTimer})
		if !errors.Is(err, executor.ErrUnsupportedAction) {
			t.Fatalf("expected ErrUnsupportedAction, got %v", err)
		}
	})
}

func TestRegistryChoicesFor(t *testing.T) {
	t.Parallel()

	fake := &fakeExecutor{choices: map[string][]string{intent.SlotSide: {"north", "south"}}}
	reg := executor.NewRegistry()
	reg.Register(fake, intent.ActionParkingCheck)

	c := intent.Candidate{Action: intent.ActionParkingCheck}
	got := reg.ChoicesFor(context.Background(), c, intent.SlotSide)
	if len(got) != 2 || got[0] != "north" {
		t.Fatalf("unexpected choices: %v", got)
	}

	if reg.ChoicesFor(context.Background(), intent.Candidate{Action: intent.ActionTurnOn}, intent.SlotSide) != nil {
		t.Fatal("expected nil choices for unregistered action")
	}
}
