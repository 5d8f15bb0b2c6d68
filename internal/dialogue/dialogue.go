// Package dialogue holds the cross-turn conversation state. When an intent
// arrives with missing required slots, the manager asks one clarifying
// question per missing slot and merges each answer into the partial intent,
// chaining follow-ups until the intent is complete, the user cancels, or the
// follow-up cap is reached.
//
// The core rule is the bottleneck pattern: an action is never executed while
// any required slot is missing. Asking one more question always beats
// guessing.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/intent"
)

// Mode is the dialogue state tag.
type Mode int

const (
	// ModeIdle means no conversation is in progress; the next capture cycle
	// requires a wake event.
	ModeIdle Mode = iota

	// ModeAwaitingFollowup means a clarifying question was just spoken and
	// the next capture cycle bypasses the wake gate to listen for the answer.
	ModeAwaitingFollowup
)

// String implements [fmt.Stringer].
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwaitingFollowup:
		return "awaiting_followup"
	default:
		return "unknown"
	}
}

// Response is what the manager wants spoken back to the user after a turn.
type Response struct {
	// Speech is the sentence to synthesize. Never empty: every turn ends in
	// an answer, a question, or an apology.
	Speech string

	// Asked is true when Speech is a clarifying question and the manager is
	// now awaiting the answer.
	Asked bool

	// Executed is true when an action executor ran successfully this turn.
	Executed bool
}

// Dispatcher is the slice of the executor registry the manager needs.
// *executor.Registry satisfies it.
type Dispatcher interface {
	Execute(ctx context.Context, c intent.Candidate) (executor.Result, error)
	ChoicesFor(ctx context.Context, c intent.Candidate, slot string) []string
}

// EntityResolver re-resolves an entity name given as a follow-up answer.
// *intent.EntityIndex satisfies it.
type EntityResolver interface {
	Resolve(ctx context.Context, spoken string) (intent.EntityReference, error)
}

// Option is a functional option for configuring a [Manager].
type Option func(*Manager)

// WithMaxFollowups sets the hard cap on chained clarifying questions per
// session. Default: 5.
func WithMaxFollowups(n int) Option {
	return func(m *Manager) { m.maxFollowups = n }
}

// WithCancelPhrases replaces the phrases that abort a follow-up session.
func WithCancelPhrases(phrases []string) Option {
	return func(m *Manager) { m.cancelPhrases = phrases }
}

// WithAcceptThreshold sets the minimum confidence for an entity answer to be
// accepted during a follow-up. Default: 0.6.
func WithAcceptThreshold(threshold float64) Option {
	return func(m *Manager) { m.threshold = threshold }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func defaultCancelPhrases() []string {
	return []string{"never mind", "nevermind", "cancel", "forget it", "stop"}
}

// Manager is the dialogue state machine. Exactly one exists per process;
// the single-threaded main loop owns it, so no locking is needed.
type Manager struct {
	dispatcher   Dispatcher
	entities     EntityResolver
	maxFollowups int
	threshold    float64

	cancelPhrases []string
	logger        *slog.Logger

	mode        Mode
	pendingSlot string
	partial     intent.Candidate
	questions   int
	sessionID   string
}

// NewManager returns an idle Manager.
func NewManager(dispatcher Dispatcher, entities EntityResolver, opts ...Option) *Manager {
	m := &Manager{
		dispatcher:    dispatcher,
		entities:      entities,
		maxFollowups:  5,
		threshold:     0.6,
		cancelPhrases: defaultCancelPhrases(),
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Mode returns the current dialogue state.
func (m *Manager) Mode() Mode {
	return m.mode
}

// WakeBypass reports whether the next capture cycle should skip wake-phrase
// detection because the manager is waiting for a follow-up answer.
func (m *Manager) WakeBypass() bool {
	return m.mode == ModeAwaitingFollowup
}

// PendingSlot returns the slot the current clarifying question is about, or
// an empty string when idle.
func (m *Manager) PendingSlot() string {
	return m.pendingSlot
}

// HandleCandidate processes a freshly-resolved intent while idle. A complete
// intent executes immediately; an incomplete one opens a follow-up session
// and returns the first clarifying question.
func (m *Manager) HandleCandidate(ctx context.Context, c intent.Candidate) Response {
	if c.Resolved() {
		return m.execute(ctx, c)
	}

	m.sessionID = uuid.NewString()
	m.partial = c
	m.questions = 0
	m.logger.Info("opening follow-up session",
		"session", m.sessionID, "action", string(c.Action), "missing", c.MissingRequired)

	return m.ask(ctx)
}

// HandleFollowup processes the next transcript as the answer to the pending
// clarifying question. It must only be called while awaiting a follow-up.
func (m *Manager) HandleFollowup(ctx context.Context, transcript string) Response {
	if m.mode != ModeAwaitingFollowup {
		return Response{Speech: "Sorry, I lost track of what we were talking about."}
	}

	answer := strings.TrimSpace(transcript)
	if m.isCancel(answer) {
		m.logger.Info("follow-up session cancelled", "session", m.sessionID)
		m.reset()
		return Response{Speech: "Okay, never mind."}
	}

	m.merge(ctx, answer)

	if m.partial.Resolved() {
		c := m.partial
		m.reset()
		return m.execute(ctx, c)
	}
	return m.ask(ctx)
}

// Expire abandons the pending session, used when the follow-up answer never
// arrived (capture timed out).
func (m *Manager) Expire() Response {
	if m.mode != ModeAwaitingFollowup {
		return Response{}
	}
	m.logger.Info("follow-up session expired", "session", m.sessionID)
	m.reset()
	return Response{Speech: "I didn't hear an answer, so I'll leave it for now."}
}

// execute runs a complete intent. Executor failures become an apology; the
// action is not retried, since repeating a physical-world action without
// confirmation is unsafe.
func (m *Manager) execute(ctx context.Context, c intent.Candidate) Response {
	result, err := m.dispatcher.Execute(ctx, c)
	if err != nil {
		m.logger.Error("action execution failed", "action", string(c.Action), "error", err)
		return Response{Speech: "Sorry, I couldn't do that right now."}
	}
	return Response{Speech: result.Speech, Executed: true}
}

// ask emits the clarifying question for the first missing slot, or abandons
// the session once the follow-up cap is reached.
func (m *Manager) ask(ctx context.Context) Response {
	if m.questions >= m.maxFollowups {
		m.logger.Warn("follow-up cap reached, abandoning",
			"session", m.sessionID, "missing", m.partial.MissingRequired)
		m.reset()
		return Response{Speech: "Sorry, I couldn't gather enough information. Let's start over."}
	}

	slot := m.partial.MissingRequired[0]
	choices := m.dispatcher.ChoicesFor(ctx, m.partial, slot)
	question := questionFor(m.partial.Action, slot, choices)

	m.mode = ModeAwaitingFollowup
	m.pendingSlot = slot
	m.questions++
	m.logger.Debug("asking clarifying question",
		"session", m.sessionID, "slot", slot, "question", question)

	return Response{Speech: question, Asked: true}
}

// merge interprets the answer for the pending slot specifically, never as a
// fresh top-level command.
func (m *Manager) merge(ctx context.Context, answer string) {
	slot := m.pendingSlot
	m.pendingSlot = ""
	m.mode = ModeIdle

	if slot != intent.SlotEntity {
		if answer != "" {
			m.partial = m.partial.FillSlot(slot, strings.ToLower(strings.Trim(answer, ".,!?")))
		}
		return
	}

	ref, err := m.entities.Resolve(ctx, answer)
	if err != nil {
		if !errors.Is(err, intent.ErrEntityNotFound) {
			m.logger.Warn("entity resolution failed during follow-up", "error", err)
		}
		return // still missing; the next ask repeats the question
	}
	if ref.Confidence < m.threshold {
		return
	}
	m.partial.Target = &ref
	m.partial.Confidence = min(m.partial.Confidence, ref.Confidence)
	m.partial = m.partial.FillSlot(intent.SlotEntity, ref.Name)
}

func (m *Manager) isCancel(answer string) bool {
	normalized := strings.ToLower(strings.Trim(answer, ".,!? "))
	for _, phrase := range m.cancelPhrases {
		if normalized == phrase || strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

func (m *Manager) reset() {
	m.mode = ModeIdle
	m.pendingSlot = ""
	m.partial = intent.Candidate{}
	m.questions = 0
	m.sessionID = ""
}
