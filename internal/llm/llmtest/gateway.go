// Package llmtest provides a scripted llm.Gateway for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nikhilbhutani/promptlab/internal/llm"
)

// Gateway answers every call with "reply to <prompt>" and fixed usage,
// except for the call numbers registered with FailOnCall.
type Gateway struct {
	mu       sync.Mutex
	requests []llm.Request
	failOn   map[int]error
}

var _ llm.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{failOn: map[int]error{}}
}

// FailOnCall makes the n-th call (1-based) fail with err.
func (g *Gateway) FailOnCall(n int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOn[n] = err
}

func (g *Gateway) Invoke(_ context.Context, req llm.Request) (*llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if err, ok := g.failOn[len(g.requests)]; ok {
		return nil, err
	}
	return &llm.Result{
		Text:         fmt.Sprintf("reply to %s", req.Prompt),
		InputTokens:  10,
		OutputTokens: 5,
		TotalTokens:  15,
		LatencyMs:    42,
	}, nil
}

// Requests returns the calls received so far.
func (g *Gateway) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}
