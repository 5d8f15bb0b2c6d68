package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/intent"
	"github.com/hearthd/hearth/internal/sched"
)

// ErrBadDuration is returned when a timer intent's duration slot cannot be
// parsed as a spoken duration.
var ErrBadDuration = errors.New("executor: unparseable duration")

// Timer starts background countdowns on the task scheduler. The completion
// event arrives on the scheduler's event channel, where the main loop turns
// it into a spoken announcement.
type Timer struct {
	scheduler *sched.Scheduler
	logger    *slog.Logger
}

var _ Executor = (*Timer)(nil)

// NewTimer returns a Timer executor over the given scheduler.
func NewTimer(scheduler *sched.Scheduler, opts ...TimerOption) *Timer {
	t := &Timer{scheduler: scheduler, logger: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TimerOption is a functional option for configuring [Timer].
type TimerOption func(*Timer)

// WithTimerLogger sets the logger. Defaults to [slog.Default].
func WithTimerLogger(logger *slog.Logger) TimerOption {
	return func(t *Timer) { t.logger = logger }
}

// Execute implements [Executor].
func (t *Timer) Execute(_ context.Context, c intent.Candidate) (Result, error) {
	raw := c.Slots[intent.SlotDuration]
	d, err := ParseSpokenDuration(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrBadDuration, raw)
	}

	t.scheduler.After("timer", raw, d)
	t.logger.Info("timer started", "duration", d, "spoken", raw)
	return Result{Speech: fmt.Sprintf("Timer set for %s.", raw)}, nil
}

// ChoicesFor implements [Executor]. Durations are open-ended, so no
// narrowing is offered.
func (t *Timer) ChoicesFor(context.Context, intent.Candidate, string) []string {
	return nil
}

// numberWords maps spoken cardinals to values, enough to cover the durations
// people actually ask a kitchen timer for.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90,
}

// unitDurations maps spoken unit words to their base duration.
var unitDurations = map[string]time.Duration{
	"second": time.Second, "seconds": time.Second,
	"minute": time.Minute, "minutes": time.Minute,
	"hour": time.Hour, "hours": time.Hour,
}

// ParseSpokenDuration parses durations the way they arrive from speech
// recognition: "10 minutes", "ten minutes", "twenty five seconds",
// "an hour", "half an hour", "a minute and a half".
func ParseSpokenDuration(raw string) (time.Duration, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return 0, fmt.Errorf("empty duration")
	}

	// "half an hour" / "half a minute"
	if rest, ok := strings.CutPrefix(text, "half an "); ok {
		return halfOf(rest)
	}
	if rest, ok := strings.CutPrefix(text, "half a "); ok {
		return halfOf(rest)
	}

	words := strings.Fields(text)

	var (
		total    time.Duration
		quantity = 0
		haveQty  = false
	)
	for i := 0; i < len(words); i++ {
		w := strings.Trim(words[i], ".,!?")
		switch {
		case w == "and":
			// "a minute and a half", "two hours and ten minutes"
			if i+2 < len(words) && words[i+1] == "a" && strings.Trim(words[i+2], ".,!?") == "half" {
				if total == 0 {
					return 0, fmt.Errorf("dangling half in %q", raw)
				}
				total += lastUnitHalf(words[:i])
				i += 2
				continue
			}
		case w == "a" || w == "an":
			quantity, haveQty = 1, true
		case isNumberWord(w):
			n, _ := numberValue(w)
			if haveQty {
				quantity += n // "twenty five"
			} else {
				quantity, haveQty = n, true
			}
		case isDigits(w):
			n, _ := strconv.Atoi(w)
			quantity, haveQty = n, true
		default:
			unit, ok := unitDurations[w]
			if !ok {
				return 0, fmt.Errorf("unknown word %q in duration %q", w, raw)
			}
			if !haveQty {
				return 0, fmt.Errorf("unit %q without a quantity in %q", w, raw)
			}
			total += time.Duration(quantity) * unit
			quantity, haveQty = 0, false
		}
	}

	if haveQty {
		return 0, fmt.Errorf("trailing quantity without a unit in %q", raw)
	}
	if total <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", raw)
	}
	return total, nil
}

func halfOf(unitWord string) (time.Duration, error) {
	unit, ok := unitDurations[strings.Trim(unitWord, ".,!?")]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q", unitWord)
	}
	return unit / 2, nil
}

// lastUnitHalf returns half of the most recent unit mentioned in words,
// supporting "a minute and a half".
func lastUnitHalf(words []string) time.Duration {
	for i := len(words) - 1; i >= 0; i-- {
		if unit, ok := unitDurations[strings.Trim(words[i], ".,!?")]; ok {
			return unit / 2
		}
	}
	return 0
}

func isNumberWord(w string) bool {
	_, ok := numberWords[w]
	return ok
}

func numberValue(w string) (int, bool) {
	n, ok := numberWords[w]
	return n, ok
}

func isDigits(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
