package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// ProbeRunner runs every checker concurrently under one timeout. With a
// positive cacheTTL the last outcome is reused until it expires.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker
	now      func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	ready    bool
	results  []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if p == nil || len(p.checkers) == 0 {
		return true, nil
	}
	if p.cacheTTL > 0 {
		p.mu.Lock()
		if !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.cacheTTL {
			ready, results := p.ready, append([]CheckResult(nil), p.results...)
			p.mu.Unlock()
			return ready, results
		}
		p.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range p.checkers {
		g.Go(func() error {
			results[i] = runCheck(gctx, c)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, r := range results {
		if !r.Healthy {
			ready = false
			break
		}
	}

	if p.cacheTTL > 0 {
		p.mu.Lock()
		p.cachedAt = p.now()
		p.ready = ready
		p.results = append([]CheckResult(nil), results...)
		p.mu.Unlock()
	}
	return ready, results
}

// runCheck reports a checker that outlives the deadline as unhealthy instead
// of waiting on it.
func runCheck(ctx context.Context, c Checker) CheckResult {
	done := make(chan CheckResult, 1)
	go func() { done <- c.Check(ctx) }()
	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return CheckResult{Name: checkerName(c), Healthy: false, Error: ctx.Err().Error()}
	}
}

type named interface{ Name() string }

func checkerName(c Checker) string {
	if n, ok := c.(named); ok {
		return n.Name()
	}
	return "unknown"
}
