// Package executor performs fully-resolved intents against their external
// collaborators: the smart-home control server, the street-sweeping schedule
// store, and the background timer scheduler. One executor handles one action
// domain; the Registry dispatches on the intent's action kind.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hearthd/hearth/internal/intent"
)

// ErrUnsupportedAction is returned when no executor is registered for an
// intent's action kind.
var ErrUnsupportedAction = errors.New("executor: unsupported action")

// ErrIncompleteIntent is returned when an intent still has missing required
// slots. Executors never act on incomplete information; the dialogue layer
// must finish the follow-up flow first.
var ErrIncompleteIntent = errors.New("executor: intent has missing required slots")

// Result is the outcome of an executed action, phrased for speech output.
type Result struct {
	Speech string
}

// Executor performs intents for one action domain.
type Executor interface {
	// Execute performs the fully-resolved intent and returns the spoken
	// result.
	Execute(ctx context.Context, c intent.Candidate) (Result, error)

	// ChoicesFor returns narrowed options for a missing slot, used to phrase
	// clarifying questions ("North or south?" rather than all four compass
	// directions). An empty slice means no narrowing is available.
	ChoicesFor(ctx context.Context, c intent.Candidate, slot string) []string
}

// Registry maps action kinds to their executors. Registration happens at
// startup; dispatch is read-only afterwards, so no locking is needed.
type Registry struct {
	executors map[intent.ActionKind]Executor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[intent.ActionKind]Executor)}
}

// Register binds an executor to one or more action kinds.
func (r *Registry) Register(e Executor, kinds ...intent.ActionKind) {
	for _, k := range kinds {
		r.executors[k] = e
	}
}

// For returns the executor registered for the given action kind.
func (r *Registry) For(kind intent.ActionKind) (Executor, bool) {
	e, ok := r.executors[kind]
	return e, ok
}

// Execute dispatches the intent to its executor. It refuses incomplete
// intents with [ErrIncompleteIntent] and unregistered action kinds with
// [ErrUnsupportedAction].
func (r *Registry) Execute(ctx context.Context, c intent.Candidate) (Result, error) {
	if !c.Resolved() {
		return Result{}, fmt.Errorf("%w: %v", ErrIncompleteIntent, c.MissingRequired)
	}
	e, ok := r.executors[c.Action]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedAction, c.Action)
	}
	return e.Execute(ctx, c)
}

// ChoicesFor asks the intent's executor for narrowed options for a missing
// slot. Returns nil when no executor is registered or it offers none.
func (r *Registry) ChoicesFor(ctx context.Context, c intent.Candidate, slot string) []string {
	e, ok := r.executors[c.Action]
	if !ok {
		return nil
	}
	return e.ChoicesFor(ctx, c, slot)
}
