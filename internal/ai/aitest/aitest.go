// Package aitest provides scripted AI backends for tests.
package aitest

import (
	"context"
	"sync"
	"time"

	"google.golang.org/genai"

	"resumescreener/internal/ai"
)

// Backend is an ai.Backend whose replies come from Respond.
// An empty reply text produces a response with no candidates.
type Backend struct {
	Respond func(req ai.Request) (string, error)

	mu    sync.Mutex
	calls []ai.Request
}

var _ ai.Backend = (*Backend)(nil)

// Generate records the request and returns the scripted reply
func (b *Backend) Generate(ctx context.Context, req ai.Request) (*genai.GenerateContentResponse, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := b.Respond(req)
	if err != nil {
		return nil, err
	}
	return ai.TextResponse(text), nil
}

// Calls returns the requests seen so far
func (b *Backend) Calls() []ai.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ai.Request(nil), b.calls...)
}

// CallsFor returns the requests seen for one operation
func (b *Backend) CallsFor(operation string) []ai.Request {
	var out []ai.Request
	for _, c := range b.Calls() {
		if c.Operation == operation {
			out = append(out, c)
		}
	}
	return out
}

// Reply always answers with text
func Reply(text string) *Backend {
	return &Backend{Respond: func(ai.Request) (string, error) { return text, nil }}
}

// Fail always answers with err
func Fail(err error) *Backend {
	return &Backend{Respond: func(ai.Request) (string, error) { return "", err }}
}

// ByOperation answers each operation with a fixed text
func ByOperation(replies map[string]string) *Backend {
	return &Backend{Respond: func(req ai.Request) (string, error) {
		return replies[req.Operation], nil
	}}
}

// Ready wraps b in a ready client
func Ready(b ai.Backend) ai.Client {
	return ai.Ready{Backend: b}
}

// Observer records observer events
type Observer struct {
	mu        sync.Mutex
	calls     map[string]int
	fallbacks map[string][]string
}

// NewObserver creates an empty recording observer
func NewObserver() *Observer {
	return &Observer{calls: map[string]int{}, fallbacks: map[string][]string{}}
}

func (o *Observer) AICall(_ context.Context, operation string, _ time.Duration, _, _ int64, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[operation]++
}

func (o *Observer) Fallback(_ context.Context, operation, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks[operation] = append(o.fallbacks[operation], reason)
}

// Fallbacks returns the fallback reasons recorded for operation
func (o *Observer) Fallbacks(operation string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.fallbacks[operation]...)
}

// Calls returns how many model calls were reported for operation
func (o *Observer) Calls(operation string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[operation]
}
