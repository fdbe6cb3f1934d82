package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
	"github.com/sandeepkv93/secure-session-auth-service/internal/service"

	"golang.org/x/sync/errgroup"
)

const workerPassword = "loadgen-password"

type Config struct {
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        uint64
}

type Result struct {
	TotalRequests int
	Failures      int
	Outcomes      map[string]int
	Operations    map[string]int
	Elapsed       time.Duration
}

var profiles = map[string][]string{
	"mixed":   {"verify", "verify", "verify", "refresh", "login", "logout"},
	"auth":    {"login", "verify"},
	"refresh": {"refresh", "verify"},
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "mixed"
	}
	return p
}

// classifyOutcome buckets an operation result by error kind.
func classifyOutcome(err error) string {
	if err == nil {
		return "success"
	}
	return service.ErrorKind(err)
}

type worker struct {
	auth   service.AuthServiceInterface
	email  string
	userID uuid.UUID
	pair   domain.TokenPair
	rng    *rand.Rand
	ops    []string
}

func (w *worker) step(ctx context.Context) (string, error) {
	op := w.ops[w.rng.IntN(len(w.ops))]
	switch op {
	case "verify":
		_, err := w.auth.VerifyRequest(ctx, w.pair.AccessToken)
		return op, err
	case "refresh":
		pair, err := w.auth.RefreshAccessToken(ctx, w.pair.RefreshToken, "authctl-loadgen", "127.0.0.1")
		if err == nil {
			w.pair = pair
		}
		return op, err
	case "login":
		return op, w.login(ctx)
	case "logout":
		if err := w.auth.RevokeSession(ctx, w.userID, w.pair.AccessToken); err != nil {
			return op, err
		}
		return op, w.login(ctx)
	default:
		return op, fmt.Errorf("unknown operation %q", op)
	}
}

func (w *worker) login(ctx context.Context) error {
	pair, err := w.auth.Authenticate(ctx, w.email, workerPassword, "authctl-loadgen", "127.0.0.1")
	if err == nil {
		w.pair = pair
	}
	return err
}

// Run drives the auth service in-process with Concurrency workers, each owning
// one freshly registered user, at no more than RPS operations per second.
func Run(ctx context.Context, auth service.AuthServiceInterface, cfg Config) (Result, error) {
	profile := normalizeProfile(cfg.Profile)
	ops, ok := profiles[profile]
	if !ok {
		return Result{}, fmt.Errorf("unknown profile %q", cfg.Profile)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}

	workers := make([]*worker, cfg.Concurrency)
	for i := range workers {
		w := &worker{
			auth:  auth,
			email: fmt.Sprintf("loadgen-%d-%d-%s@example.com", cfg.Seed, i, uuid.NewString()[:8]),
			rng:   rand.New(rand.NewPCG(cfg.Seed, uint64(i))),
			ops:   ops,
		}
		u, err := auth.Register(ctx, "loadgen", w.email, workerPassword)
		if err != nil {
			return Result{}, fmt.Errorf("register worker %d: %w", i, err)
		}
		w.userID = u.ID
		if err := w.login(ctx); err != nil {
			return Result{}, fmt.Errorf("login worker %d: %w", i, err)
		}
		workers[i] = w
	}

	res := Result{Outcomes: map[string]int{}, Operations: map[string]int{}}
	var mu sync.Mutex

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	start := time.Now()
	jobs := make(chan struct{})
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer close(jobs)
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				select {
				case jobs <- struct{}{}:
				case <-gctx.Done():
					return nil
				}
			}
		}
	})
	for _, w := range workers {
		g.Go(func() error {
			for range jobs {
				op, err := w.step(gctx)
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return nil
				}
				outcome := classifyOutcome(err)
				mu.Lock()
				res.TotalRequests++
				res.Operations[op]++
				res.Outcomes[outcome]++
				if outcome != "success" {
					res.Failures++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	res.Elapsed = time.Since(start)
	return res, err
}
