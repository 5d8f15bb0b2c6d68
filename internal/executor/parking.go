package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/intent"
)

// ErrNoSchedule is returned by a [ScheduleStore] when no sweeping rule
// matches the requested location and side.
var ErrNoSchedule = errors.New("executor: no sweeping schedule for location")

// SweepRule is one street-sweeping window: the given side of the given block
// is swept weekly at the given hour.
type SweepRule struct {
	Location string
	Side     string
	Weekday  time.Weekday
	Hour     int
}

// ScheduleStore answers street-sweeping schedule lookups.
type ScheduleStore interface {
	// SidesFor returns the street sides that actually have sweeping rules at
	// the location, so a clarifying question can offer only real options.
	SidesFor(ctx context.Context, location string) ([]string, error)

	// NextSweep returns the next sweeping start after the given instant for
	// the location and side. Returns [ErrNoSchedule] when no rule matches.
	NextSweep(ctx context.Context, location, side string, after time.Time) (time.Time, error)
}

// MemScheduleStore is an in-memory [ScheduleStore] over a fixed rule set,
// loaded from configuration at startup. Location matching is case-insensitive
// and tolerates the spoken phrase containing or being contained by the rule's
// location key.
type MemScheduleStore struct {
	rules []SweepRule
}

var _ ScheduleStore = (*MemScheduleStore)(nil)

// NewMemScheduleStore returns a store over the given rules.
func NewMemScheduleStore(rules []SweepRule) *MemScheduleStore {
	return &MemScheduleStore{rules: rules}
}

// SidesFor implements [ScheduleStore].
func (s *MemScheduleStore) SidesFor(_ context.Context, location string) ([]string, error) {
	var sides []string
	seen := make(map[string]struct{})
	for _, r := range s.rules {
		if !locationMatches(location, r.Location) {
			continue
		}
		if _, ok := seen[r.Side]; ok {
			continue
		}
		seen[r.Side] = struct{}{}
		sides = append(sides, r.Side)
	}
	return sides, nil
}

// NextSweep implements [ScheduleStore].
func (s *MemScheduleStore) NextSweep(_ context.Context, location, side string, after time.Time) (time.Time, error) {
	var best time.Time
	found := false
	for _, r := range s.rules {
		if !locationMatches(location, r.Location) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(side), r.Side) {
			continue
		}
		next := nextOccurrence(after, r.Weekday, r.Hour)
		if !found || next.Before(best) {
			best = next
			found = true
		}
	}
	if !found {
		return time.Time{}, ErrNoSchedule
	}
	return best, nil
}

// locationMatches reports whether the spoken location and the rule's
// location key refer to the same block.
func locationMatches(spoken, key string) bool {
	a := strings.ToLower(strings.TrimSpace(spoken))
	b := strings.ToLower(strings.TrimSpace(key))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// nextOccurrence returns the first instant after `after` that falls on the
// given weekday at the given hour, in after's location.
func nextOccurrence(after time.Time, wd time.Weekday, hour int) time.Time {
	t := time.Date(after.Year(), after.Month(), after.Day(), hour, 0, 0, 0, after.Location())
	days := (int(wd) - int(t.Weekday()) + 7) % 7
	t = t.AddDate(0, 0, days)
	if !t.After(after) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// ParkingOption is a functional option for configuring [Parking].
type ParkingOption func(*Parking)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ParkingOption {
	return func(p *Parking) { p.now = now }
}

// WithParkingLogger sets the logger. Defaults to [slog.Default].
func WithParkingLogger(logger *slog.Logger) ParkingOption {
	return func(p *Parking) { p.logger = logger }
}

// Parking answers "when do I need to move my car" intents from a sweeping
// schedule store.
type Parking struct {
	store  ScheduleStore
	now    func() time.Time
	logger *slog.Logger
}

var _ Executor = (*Parking)(nil)

// NewParking returns a Parking executor over the given schedule store.
func NewParking(store ScheduleStore, opts ...ParkingOption) *Parking {
	p := &Parking{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Execute implements [Executor].
func (p *Parking) Execute(ctx context.Context, c intent.Candidate) (Result, error) {
	location := c.Slots[intent.SlotLocation]
	side := c.Slots[intent.SlotSide]

	next, err := p.store.NextSweep(ctx, location, side, p.now())
	if errors.Is(err, ErrNoSchedule) {
		// A missing schedule is an answer, not a failure.
		return Result{Speech: fmt.Sprintf(
			"I couldn't find a street sweeping schedule for the %s side of %s.", side, location)}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("executor: parking lookup: %w", err)
	}

	p.logger.Info("parking deadline resolved", "location", location, "side", side, "next", next)
	return Result{Speech: fmt.Sprintf(
		"You need to move your car before %s.", next.Format("Monday at 3:04 PM"))}, nil
}

// ChoicesFor implements [Executor]. For the side slot it returns only the
// sides that actually have rules at the already-known location.
func (p *Parking) ChoicesFor(ctx context.Context, c intent.Candidate, slot string) []string {
	if slot != intent.SlotSide {
		return nil
	}
	location, ok := c.Slots[intent.SlotLocation]
	if !ok {
		return nil
	}
	sides, err := p.store.SidesFor(ctx, location)
	if err != nil {
		p.logger.Warn("could not narrow side choices", "location", location, "error", err)
		return nil
	}
	return sides
}
