package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/llm"
)

// FakeGateway is a scripted service.TextGateway. Replies and errors are
// consumed in order; once exhausted the last entry repeats.
type FakeGateway struct {
	Err      error
	Replies  []string
	Requests []llm.Request
	Timeouts []time.Duration
	Quota    llm.RateLimitStatus
	calls    int
	Disabled bool
	mu       sync.Mutex
}

// NewFakeGateway returns a configured gateway answering with replies.
func NewFakeGateway(replies ...string) *FakeGateway {
	return &FakeGateway{
		Replies: replies,
		Quota:   llm.RateLimitStatus{DailyLimit: 100, ResetsAt: "2099-01-01"},
	}
}

// Classify records the request and returns the next scripted reply.
func (g *FakeGateway) Classify(_ context.Context, req llm.Request, timeout time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Disabled {
		return "", common.ErrNotConfigured
	}
	g.Requests = append(g.Requests, req)
	g.Timeouts = append(g.Timeouts, timeout)
	g.calls++

	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Replies) == 0 {
		return "", nil
	}
	idx := g.calls - 1
	if idx >= len(g.Replies) {
		idx = len(g.Replies) - 1
	}
	g.Quota.DailyUsed++
	return g.Replies[idx], nil
}

// Configured reports false when the gateway is disabled.
func (g *FakeGateway) Configured() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.Disabled
}

// Status returns the scripted quota status.
func (g *FakeGateway) Status() llm.RateLimitStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Quota
}

// Calls returns how many requests reached the gateway.
func (g *FakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// LastRequest returns the most recent request.
func (g *FakeGateway) LastRequest() llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return llm.Request{}
	}
	return g.Requests[len(g.Requests)-1]
}

// DisabledGateway returns a gateway that is not configured.
func DisabledGateway() *FakeGateway {
	g := NewFakeGateway()
	g.Disabled = true
	return g
}
