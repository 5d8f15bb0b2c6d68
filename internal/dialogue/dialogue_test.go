package dialogue_test

import (
	"context"
	"testing"

	"github.com/hearthd/hearth/internal/dialogue"
	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/intent"
)

// fakeDispatcher records executed intents and serves scripted choices.
type fakeDispatcher struct {
	result    executor.Result
	err       error
	choicesFn func(c intent.Candidate, slot string) []string

	executed []intent.Candidate
}

func (f *fakeDispatcher) Execute(_ context.Context, c intent.Candidate) (executor.Result, error) {
	f.executed = append(f.executed, c)
	return f.result, f.err
}

func (f *fakeDispatcher) ChoicesFor(_ context.Context, c intent.Candidate, slot string) []string {
	if f.choicesFn == nil {
		return nil
	}
	return f.choicesFn(c, slot)
}

// fakeEntities resolves scripted names; everything else is not found.
type fakeEntities struct {
	refs map[string]intent.EntityReference
}

func (f *fakeEntities) Resolve(_ context.Context, spoken string) (intent.EntityReference, error) {
	if ref, ok := f.refs[spoken]; ok {
		return ref, nil
	}
	return intent.EntityReference{}, intent.ErrEntityNotFound
}

func TestHandleCandidateComplete(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{result: executor.Result{Speech: "Okay, turned on the tv light."}}
	m := dialogue.NewManager(disp, &fakeEntities{})

	res := m.HandleCandidate(context.Background(), intent.Candidate{
		Action:     intent.ActionTurnOn,
		Target:     &intent.EntityReference{DeviceID: "d1", Name: "tv light", Confidence: 0.95},
		Confidence: 0.95,
	})

	if !res.Executed || res.Speech != "Okay, turned on the tv light." {
		t.Fatalf("unexpected response: %+v", res)
	}
	if m.Mode() != dialogue.ModeIdle || m.WakeBypass() {
		t.Fatal("manager must stay idle after immediate execution")
	}
	if len(disp.executed) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(disp.executed))
	}
}

func TestFollowupChaining(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	disp := &fakeDispatcher{
		result: executor.Result{Speech: "You need to move your car before Tuesday at 8:00 AM."},
		choicesFn: func(c intent.Candidate, slot string) []string {
			if slot == intent.SlotSide && c.Slots[intent.SlotLocation] != "" {
				return []string{"north", "south"}
			}
			return nil
		},
	}
	m := dialogue.NewManager(disp, &fakeEntities{})

	res := m.HandleCandidate(ctx, intent.Candidate{
		Action:          intent.ActionParkingCheck,
		Slots:           map[string]string{},
		Confidence:      1.0,
		MissingRequired: []string{intent.SlotLocation, intent.SlotSide},
	})
	if !res.Asked || res.Speech != "Where is your car?" {
		t.Fatalf("expected the location question, got %+v", res)
	}
	if !m.WakeBypass() {
		t.Fatal("wake bypass must be active while awaiting a follow-up")
	}
	if len(disp.executed) != 0 {
		t.Fatal("nothing may execute while slots are missing")
	}

	res = m.HandleFollowup(ctx, "Valencia between 18th and 19th")
	if !res.Asked || res.Speech != "North or south?" {
		t.Fatalf("expected the narrowed side question, got %+v", res)
	}
	if len(disp.executed) != 0 {
		t.Fatal("nothing may execute while the side is missing")
	}

	res = m.HandleFollowup(ctx, "north")
	if !res.Executed {
		t.Fatalf("expected execution after the final answer, got %+v", res)
	}
	if m.Mode() != dialogue.ModeIdle || m.WakeBypass() {
		t.Fatal("manager must return to idle after execution")
	}

	if len(disp.executed) != 1 {
		t.Fatalf("expected exactly 1 execution, got %d", len(disp.executed))
	}
	got := disp.executed[0]
	if got.Slots[intent.SlotLocation] != "valencia between 18th and 19th" || got.Slots[intent.SlotSide] != "north" {
		t.Fatalf("executed intent has wrong slots: %v", got.Slots)
	}
	if !got.Resolved() {
		t.Fatalf("executed intent still missing %v", got.MissingRequired)
	}
}

func TestFollowupCancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	disp := &fakeDispatcher{}
	m := dialogue.NewManager(disp, &fakeEntities{})

	m.HandleCandidate(ctx, intent.Candidate{
		Action:          intent.ActionParkingCheck,
		Slots:           map[string]string{},
		MissingRequired: []string{intent.SlotLocation},
	})

	res := m.HandleFollowup(ctx, "never mind.")
	if res.Asked || res.Executed {
		t.Fatalf("cancel must neither ask nor execute: %+v", res)
	}
	if res.Speech == "" {
		t.Fatal("cancel still needs a spoken acknowledgement")
	}
	if m.Mode() != dialogue.ModeIdle {
		t.Fatal("manager must return to idle on cancel")
	}
	if len(disp.executed) != 0 {
		t.Fatal("no executor may run after a cancel")
	}
}

func TestFollowupCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	disp := &fakeDispatcher{}
	m := dialogue.NewManager(disp, &fakeEntities{}, dialogue.WithMaxFollowups(2))

	res := m.HandleCandidate(ctx, intent.Candidate{
		Action:          intent.ActionTurnOn,
		Slots:           map[string]string{intent.SlotEntity: "the blinkenlights"},
		MissingRequired: []string{intent.SlotEntity},
	})
	if !res.Asked {
		t.Fatalf("expected first question, got %+v", res)
	}

	// Two unresolvable answers exhaust the cap.
	res = m.HandleFollowup(ctx, "the whatsit")
	if !res.Asked {
		t.Fatalf("expected second question, got %+v", res)
	}
	res = m.HandleFollowup(ctx, "the thingamajig")
	if res.Asked {
		t.Fatalf("expected abandonment after the cap, got %+v", res)
	}
	if m.Mode() != dialogue.ModeIdle {
		t.Fatal("manager must return to idle after abandoning")
	}
	if len(disp.executed) != 0 {
		t.Fatal("no executor may run for an abandoned session")
	}
	if res.Speech == "" {
		t.Fatal("abandonment needs a spoken explanation")
	}
}

func TestFollowupEntityAnswer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	disp := &fakeDispatcher{result: executor.Result{Speech: "Okay."}}
	entities := &fakeEntities{refs: map[string]intent.EntityReference{
		"the tv light": {DeviceID: "d1", Name: "tv light", Confidence: 1.0},
	}}
	m := dialogue.NewManager(disp, entities)

	m.HandleCandidate(ctx, intent.Candidate{
		Action:          intent.ActionTurnOn,
		Slots:           map[string]string{intent.SlotEntity: "the lamp thing"},
		Confidence:      1.0,
		MissingRequired: []string{intent.SlotEntity},
	})

	res := m.HandleFollowup(ctx, "the tv light")
	if !res.Executed {
		t.Fatalf("expected execution, got %+v", res)
	}
	if len(disp.executed) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(disp.executed))
	}
	if tgt := disp.executed[0].Target; tgt == nil || tgt.DeviceID != "d1" {
		t.Fatalf("expected resolved target, got %+v", tgt)
	}
}

func TestExpire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := dialogue.NewManager(&fakeDispatcher{}, &fakeEntities{})

	if res := m.Expire(); res.Speech != "" {
		t.Fatalf("expected empty response when idle, got %+v", res)
	}

	m.HandleCandidate(ctx, intent.Candidate{
		Action:          intent.ActionParkingCheck,
		Slots:           map[string]string{},
		MissingRequired: []string{intent.SlotLocation},
	})

	res := m.Expire()
	if res.Speech == "" {
		t.Fatal("expected a spoken explanation for the expiry")
	}
	if m.Mode() != dialogue.ModeIdle {
		t.Fatal("manager must return to idle after expiry")
	}
}
