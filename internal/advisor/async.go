package advisor

import (
	"context"
	"sync"
	"sync/atomic"
)

// Async runs recommendations off the caller's goroutine. Each request gets a
// monotonically increasing token; a newer request or Invalidate cancels the
// previous simulation and its result is dropped.
type Async struct {
	advisor *Advisor
	token   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAsync wraps an Advisor.
func NewAsync(a *Advisor) *Async {
	return &Async{advisor: a}
}

// Advisor returns the wrapped synchronous advisor.
func (a *Async) Advisor() *Advisor { return a.advisor }

// Token is the token of the most recent request or invalidation.
func (a *Async) Token() uint64 { return a.token.Load() }

// Request supersedes any in-flight request and starts a new one. The channel
// yields at most two values, the immediate placeholder and then the final
// recommendation, and is closed afterwards. Trivial hands yield a single value.
// An advisor failure is delivered as an ActionImpossible recommendation whose
// reason carries the error; a cancelled request delivers nothing further.
func (a *Async) Request(ctx context.Context, req Request) (uint64, <-chan Recommendation) {
	out := make(chan Recommendation, 2)

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	token := a.token.Add(1)
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	first, done := Placeholder(req.Player)
	out <- first
	if done {
		cancel()
		close(out)
		return token, out
	}

	go func() {
		defer cancel()
		defer close(out)

		rec, err := a.advisor.Recommend(runCtx, req)
		if err != nil {
			if runCtx.Err() != nil {
				return
			}
			rec = Recommendation{Action: ActionImpossible, Reason: "Advice failed: " + err.Error()}
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.token.Load() != token {
			return
		}
		out <- rec
	}()
	return token, out
}

// Invalidate abandons the in-flight request, if any.
func (a *Async) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.token.Add(1)
}
