// Package mock provides a test double for the llm.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/hearthd/hearth/pkg/provider/llm"
)

// CompleteCall records a single invocation of Provider.Complete.
type CompleteCall struct {
	// Messages is the message history passed to Complete.
	Messages []llm.Message
}

// Provider is a scripted implementation of llm.Provider. Complete returns the
// queued Responses in order; once exhausted it returns DefaultResponse.
type Provider struct {
	mu sync.Mutex

	// Responses is the scripted response sequence, consumed front to back.
	Responses []string

	// DefaultResponse is returned once Responses runs out.
	DefaultResponse string

	// CompleteErr, if non-nil, is returned by every Complete call.
	CompleteErr error

	// CompleteCalls records every call to Complete in order.
	CompleteCalls []CompleteCall
}

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, messages []llm.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Messages: msgs})
	if p.CompleteErr != nil {
		return "", p.CompleteErr
	}
	if len(p.Responses) == 0 {
		return p.DefaultResponse, nil
	}
	r := p.Responses[0]
	p.Responses = p.Responses[1:]
	return r, nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error { return nil }

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
