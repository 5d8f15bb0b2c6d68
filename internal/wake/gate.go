// Package wake gates the capture pipeline on wake-phrase detection.
//
// The Gate wraps a black-box acoustic frame scorer and turns its per-frame
// scores into discrete wake events, with a frame-cycle cooldown that keeps a
// single spoken wake phrase from triggering multiple times as overlapping
// audio buffers all score above the threshold.
package wake

import (
	"log/slog"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/wakeword"
)

const (
	defaultThreshold      = 0.5
	defaultCooldownFrames = 30
)

// State is the gate's position in its detection cycle.
type State int

const (
	// StateIdle means the gate is scoring frames and may trigger.
	StateIdle State = iota

	// StateCooldown means a trigger just fired and further scores are
	// ignored until the cooldown frame counter reaches zero.
	StateCooldown
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Event is emitted when a frame scores at or above the wake threshold while
// the gate is idle.
type Event struct {
	// Confidence is the acoustic score that triggered the event.
	Confidence float64
}

// Option is a functional option for configuring a [Gate].
type Option func(*Gate)

// WithThreshold sets the minimum score that triggers a wake event.
// Default: 0.5.
func WithThreshold(threshold float64) Option {
	return func(g *Gate) {
		g.threshold = threshold
	}
}

// WithCooldownFrames sets how many frame-cycles are ignored after a trigger.
// The cooldown is counted in frames, not wall-clock time, so it scales with
// the frame rate the device actually delivers. Default: 30.
func WithCooldownFrames(frames int) Option {
	return func(g *Gate) {
		g.cooldown = frames
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// Gate is the wake-phrase state machine. It is not safe for concurrent use;
// the capture loop owns it and feeds frames sequentially.
type Gate struct {
	scorer    wakeword.Scorer
	threshold float64
	cooldown  int
	logger    *slog.Logger

	state     State
	remaining int
}

// NewGate returns a Gate over the given scorer.
func NewGate(scorer wakeword.Scorer, opts ...Option) *Gate {
	g := &Gate{
		scorer:    scorer,
		threshold: defaultThreshold,
		cooldown:  defaultCooldownFrames,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// State returns the gate's current state.
func (g *Gate) State() State {
	return g.state
}

// Feed advances the gate by one frame. It returns a wake event and true when
// the frame's score crosses the threshold while the gate is idle; otherwise
// it returns false.
//
// During cooldown the frame is still consumed (the counter decrements once
// per frame) but its score is ignored. Scorer errors are logged and treated
// as a sub-threshold score, never as fatal.
func (g *Gate) Feed(frame audio.Frame) (Event, bool) {
	if g.state == StateCooldown {
		g.remaining--
		if g.remaining <= 0 {
			g.state = StateIdle
			g.logger.Debug("wake gate cooldown expired")
		}
		return Event{}, false
	}

	score, err := g.scorer.Score(frame)
	if err != nil {
		g.logger.Warn("wake scorer failed, treating frame as sub-threshold", "error", err)
		return Event{}, false
	}

	if score < g.threshold {
		return Event{}, false
	}

	g.state = StateCooldown
	g.remaining = g.cooldown
	g.logger.Info("wake phrase detected", "confidence", score)
	return Event{Confidence: score}, true
}

// Reset returns the gate to idle, clears any pending cooldown, and resets
// the underlying scorer's internal context.
func (g *Gate) Reset() {
	g.state = StateIdle
	g.remaining = 0
	g.scorer.Reset()
}
