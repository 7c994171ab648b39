package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/llm"
)

// Config for the limiter. The zero value is unusable; use NewLimiter's
// defaults instead.
type Config struct {
	MaxPerWindow int           // ceiling at full health
	Window       time.Duration // default 60s
	Adaptive     bool          // lower the ceiling on provider 429s
	Floor        int           // adaptive ceiling never drops below this
	QueueWait    time.Duration // max time a queued request waits for capacity
	Burst        int           // token-bucket burst; default MaxPerWindow/4
	CacheTTL     time.Duration
	BackoffBase  time.Duration // first 429 backoff; doubles per consecutive 429
	BackoffMax   time.Duration
	SuccessRun   int // consecutive successes before the ceiling creeps back up
}

// Request identifies one outbound provider call for accounting and caching.
type Request struct {
	Provider string
	Op       llm.Operation
	Input    string
}

// Limiter wraps every outbound provider call: response cache first, then a
// sliding window of request timestamps with an adaptive ceiling, FIFO
// queueing for excess requests, and exponential backoff after provider
// rate-limit errors. One instance is shared process-wide; it is constructed
// explicitly and passed by handle, never a package global.
type Limiter struct {
	mu           sync.Mutex
	cfg          Config
	ceiling      int
	window       []time.Time
	nextTicket   uint64
	servedTicket uint64
	successRun   int
	backoff      time.Duration
	backoffUntil time.Time

	bucket *rate.Limiter
	cache  *Cache
	logger *slog.Logger
}

func NewLimiter(cfg Config, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Floor <= 0 {
		cfg.Floor = cfg.MaxPerWindow / 8
		if cfg.Floor < 1 {
			cfg.Floor = 1
		}
	}
	if cfg.QueueWait <= 0 {
		cfg.QueueWait = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.MaxPerWindow / 4
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = time.Minute
	}
	if cfg.SuccessRun <= 0 {
		cfg.SuccessRun = 5
	}
	return &Limiter{
		cfg:     cfg,
		ceiling: cfg.MaxPerWindow,
		bucket:  rate.NewLimiter(rate.Limit(float64(cfg.MaxPerWindow)/cfg.Window.Seconds()), cfg.Burst),
		cache:   NewCache(cfg.CacheTTL),
		logger:  logger,
	}
}

// Do runs fn under the limiter. A fresh cached response short-circuits
// without any network call or rate accounting. Otherwise the call is
// admitted through the window (queueing FIFO when at the ceiling) and, on
// success, the response is cached under the request's stable key.
func (l *Limiter) Do(ctx context.Context, req Request, fn func(context.Context) (llm.Response, error)) (llm.Response, error) {
	key := CacheKey(string(req.Op), req.Input)
	if v, ok := l.cache.Get(key); ok {
		l.logger.Info("ratelimit.cache_hit", "provider", req.Provider, "op", string(req.Op))
		return v.(llm.Response), nil
	}

	if err := l.admit(ctx); err != nil {
		return llm.Response{}, err
	}

	resp, err := fn(ctx)
	if err != nil {
		var perr *llm.ProviderError
		if errors.As(err, &perr) && perr.Kind == llm.ErrKindRateLimited {
			l.recordRateLimited(req.Provider)
		} else {
			l.resetSuccessRun()
		}
		return resp, err
	}

	l.recordSuccess()
	l.cache.Set(key, resp)
	return resp, nil
}

// Ceiling returns the current adaptive ceiling.
func (l *Limiter) Ceiling() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ceiling
}

// CacheStats exposes the response cache counters.
func (l *Limiter) CacheStats() (hits, misses int64) {
	return l.cache.Stats()
}

// admit reserves a window slot, queueing FIFO when the window is full.
// Requests still blocked at the queue-wait deadline fail with ErrRateLimited,
// never silently dropped.
func (l *Limiter) admit(ctx context.Context) error {
	deadline := time.Now().Add(l.cfg.QueueWait)

	l.mu.Lock()
	ticket := l.nextTicket
	l.nextTicket++
	l.mu.Unlock()
	defer func() {
		// hand the queue head to the next waiter whether we got in or not
		l.mu.Lock()
		if l.servedTicket <= ticket {
			l.servedTicket = ticket + 1
		}
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		myTurn := ticket == l.servedTicket
		inBackoff := now.Before(l.backoffUntil)
		hasCapacity := len(l.window) < l.ceiling
		if myTurn && !inBackoff && hasCapacity {
			l.window = append(l.window, now)
			l.mu.Unlock()
			// the bucket paces bursts inside the window; waits happen
			// outside the mutex so queued requests keep polling
			if err := l.bucket.Wait(ctx); err != nil {
				return err
			}
			return nil
		}
		l.mu.Unlock()

		if time.Now().After(deadline) {
			l.logger.Warn("ratelimit.queue_timeout")
			return common.NewAppError("RATE_LIMITED", "queue wait exceeded", common.ErrRateLimited)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// prune drops window entries older than the window duration. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	idx := 0
	for idx < len(l.window) && l.window[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		l.window = append(l.window[:0], l.window[idx:]...)
	}
}

func (l *Limiter) recordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = 0
	l.successRun++
	if l.cfg.Adaptive && l.successRun >= l.cfg.SuccessRun && l.ceiling < l.cfg.MaxPerWindow {
		l.ceiling++
		l.successRun = 0
		l.logger.Info("ratelimit.ceiling_raised", "ceiling", l.ceiling, "max", l.cfg.MaxPerWindow)
	}
}

func (l *Limiter) resetSuccessRun() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successRun = 0
}

// recordRateLimited halves the ceiling (with a floor) and opens an
// exponential backoff gate before the next attempt is allowed through.
func (l *Limiter) recordRateLimited(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successRun = 0
	if l.cfg.Adaptive {
		halved := l.ceiling / 2
		if halved < l.cfg.Floor {
			halved = l.cfg.Floor
		}
		l.ceiling = halved
	}
	if l.backoff == 0 {
		l.backoff = l.cfg.BackoffBase
	} else {
		l.backoff *= 2
		if l.backoff > l.cfg.BackoffMax {
			l.backoff = l.cfg.BackoffMax
		}
	}
	l.backoffUntil = time.Now().Add(l.backoff)
	l.logger.Warn("ratelimit.provider_throttled",
		"provider", provider,
		"ceiling", l.ceiling,
		"backoff_ms", l.backoff.Milliseconds(),
	)
}
