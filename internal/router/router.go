package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/dialogue"
	"github.com/hearthd/hearth/internal/intent"
	"github.com/hearthd/hearth/internal/observe"
	"github.com/hearthd/hearth/pkg/provider/llm"
)

// defaultSystemPrompt frames the language-model fallback tier.
const defaultSystemPrompt = "You are a helpful voice assistant for a smart home. " +
	"Answer in one or two short spoken sentences. Do not use markdown or lists."

// apology is spoken when even the fallback tier fails. Every path must end
// in a spoken sentence, never silence.
const apology = "Sorry, I didn't catch that. Could you try again?"

// Resolver is the intent-resolution tier. *intent.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, text string) (intent.Candidate, error)
}

// Dialogue is the slice of the dialogue manager the router needs.
// *dialogue.Manager satisfies it.
type Dialogue interface {
	WakeBypass() bool
	HandleCandidate(ctx context.Context, c intent.Candidate) dialogue.Response
	HandleFollowup(ctx context.Context, transcript string) dialogue.Response
}

// Option is a functional option for configuring a [Router].
type Option func(*Router)

// WithSystemPrompt replaces the fallback tier's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) { r.systemPrompt = prompt }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithMetrics enables per-tier routing metrics and fallback latency
// recording. When unset, routing is not instrumented.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// Router evaluates the three response tiers for each transcript, exactly
// once per dialogue turn, in strict precedence.
type Router struct {
	patterns *PatternMatcher
	resolver Resolver
	dlg      Dialogue
	fallback llm.Provider

	systemPrompt string
	logger       *slog.Logger
	metrics      *observe.Metrics
}

// recordTier counts one routed transcript against its responding tier.
func (r *Router) recordTier(ctx context.Context, tier string) {
	if r.metrics != nil {
		r.metrics.RecordRoutedTurn(ctx, tier)
	}
}

// New returns a Router over the three tiers and the dialogue manager.
func New(patterns *PatternMatcher, resolver Resolver, dlg Dialogue, fallback llm.Provider, opts ...Option) *Router {
	r := &Router{
		patterns:     patterns,
		resolver:     resolver,
		dlg:          dlg,
		fallback:     fallback,
		systemPrompt: defaultSystemPrompt,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route produces exactly one spoken response for the transcript.
//
// While a follow-up is pending, tiers 1 and 2 are skipped and the transcript
// is handed to the dialogue manager as the answer to the pending question.
// Otherwise the tiers run top-down: pattern matcher, intent resolver,
// language-model fallback. The fallback tier always returns some text, so
// routing never falls back up the chain.
func (r *Router) Route(ctx context.Context, transcript string) dialogue.Response {
	transcript = strings.TrimSpace(transcript)

	if r.dlg.WakeBypass() {
		r.recordTier(ctx, "followup")
		return r.dlg.HandleFollowup(ctx, transcript)
	}

	// An empty transcript means the transcription collaborator produced
	// nothing useful; only the conversational tier can respond to that.
	if transcript == "" {
		return r.converse(ctx, transcript)
	}

	if reply, ok := r.patterns.Match(transcript); ok {
		r.logger.Debug("pattern tier matched", "transcript", transcript)
		r.recordTier(ctx, "pattern")
		return dialogue.Response{Speech: reply}
	}

	c, err := r.resolver.Resolve(ctx, transcript)
	switch {
	case err == nil:
		r.logger.Debug("intent tier matched",
			"transcript", transcript, "action", string(c.Action), "confidence", c.Confidence)
		r.recordTier(ctx, "intent")
		return r.dlg.HandleCandidate(ctx, c)
	case errors.Is(err, intent.ErrNoMatch):
		// Fall through to the conversational tier.
	default:
		// Collaborator errors never propagate upward; the conversational
		// tier is the terminal handler.
		r.logger.Error("intent resolution failed", "error", err)
	}

	return r.converse(ctx, transcript)
}

// converse is the tier of last resort.
func (r *Router) converse(ctx context.Context, transcript string) dialogue.Response {
	if transcript == "" {
		return dialogue.Response{Speech: apology}
	}

	r.recordTier(ctx, "fallback")
	start := time.Now()
	text, err := r.fallback.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: r.systemPrompt},
		{Role: llm.RoleUser, Content: transcript},
	})
	if r.metrics != nil {
		r.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil || strings.TrimSpace(text) == "" {
		r.logger.Error("conversational fallback failed", "error", err)
		if r.metrics != nil && err != nil {
			r.metrics.RecordProviderError(ctx, "llm")
		}
		return dialogue.Response{Speech: apology}
	}
	return dialogue.Response{Speech: strings.TrimSpace(text)}
}
