package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoMatch is returned by [Resolver.Resolve] when no rule pattern matches
// the transcript at all. The router treats this as a signal to fall through
// to the conversational tier.
var ErrNoMatch = errors.New("intent: no action pattern matched")

// defaultAcceptThreshold is the minimum entity confidence below which the
// entity slot is recorded as missing instead of accepted.
const defaultAcceptThreshold = 0.6

// ResolverOption is a functional option for configuring a [Resolver].
type ResolverOption func(*Resolver)

// WithRules replaces the built-in rule table.
func WithRules(rules []Rule) ResolverOption {
	return func(r *Resolver) {
		r.rules = rules
	}
}

// WithAcceptThreshold sets the minimum entity confidence for a resolution to
// be accepted without a clarifying question. Default: 0.6.
func WithAcceptThreshold(threshold float64) ResolverOption {
	return func(r *Resolver) {
		r.threshold = threshold
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver classifies transcripts into [Candidate] intents using an ordered
// rule table and resolves entity references through an [EntityIndex].
type Resolver struct {
	rules     []Rule
	index     *EntityIndex
	threshold float64
	logger    *slog.Logger
}

// NewResolver returns a Resolver over the given entity index, using
// [DefaultRules] unless overridden.
func NewResolver(index *EntityIndex, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		rules:     DefaultRules(),
		index:     index,
		threshold: defaultAcceptThreshold,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve classifies text against the rule table. Rules are tried in
// declaration order and the first matching pattern wins.
//
// The candidate's Confidence is the minimum of the action-classification
// confidence and the entity-resolution confidence; pattern classification is
// deterministic and contributes 1.0, so the entity score dominates.
//
// A low-confidence or unmatched entity never fails the resolution: the
// entity slot is added to MissingRequired so the dialogue layer can ask,
// keeping the best guess and its alternatives on Target for diagnostics.
// Returns [ErrNoMatch] only when no pattern matches at all.
func (r *Resolver) Resolve(ctx context.Context, text string) (Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Candidate{}, ErrNoMatch
	}

	for _, rule := range r.rules {
		for _, p := range rule.Patterns {
			slots := matchSlots(p, text)
			if slots == nil {
				continue
			}
			return r.buildCandidate(ctx, rule, slots)
		}
	}

	r.logger.Debug("no intent rule matched", "text", text)
	return Candidate{}, ErrNoMatch
}

func (r *Resolver) buildCandidate(ctx context.Context, rule Rule, slots map[string]string) (Candidate, error) {
	c := Candidate{
		Action:     rule.Action,
		Slots:      slots,
		Confidence: 1.0,
	}

	if spoken, ok := slots[SlotEntity]; ok {
		ref, err := r.index.Resolve(ctx, spoken)
		switch {
		case errors.Is(err, ErrEntityNotFound):
			r.logger.Debug("entity not found", "action", string(rule.Action), "spoken", spoken)
			c.MissingRequired = append(c.MissingRequired, SlotEntity)
		case err != nil:
			return Candidate{}, fmt.Errorf("intent: resolve entity %q: %w", spoken, err)
		default:
			c.Target = &ref
			c.Confidence = min(c.Confidence, ref.Confidence)
			if ref.Confidence < r.threshold {
				r.logger.Debug("entity resolution below threshold",
					"spoken", spoken, "best", ref.Name, "confidence", ref.Confidence)
				c.MissingRequired = append(c.MissingRequired, SlotEntity)
			}
		}
	}

	for _, req := range rule.Required {
		if _, ok := c.Slots[req]; ok {
			continue
		}
		if !c.Missing(req) {
			c.MissingRequired = append(c.MissingRequired, req)
		}
	}

	return c, nil
}
