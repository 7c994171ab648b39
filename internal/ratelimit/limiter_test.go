package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/llm"
)

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("parse_reservation", "some document text")
	b := CacheKey("parse_reservation", "  some document text  ")
	c := CacheKey("extract_text", "some document text")

	assert.Equal(t, a, b, "key ignores surrounding whitespace")
	assert.NotEqual(t, a, c, "key separates operations")
}

func TestDoCachesIdenticalRequests(t *testing.T) {
	l := NewLimiter(Config{MaxPerWindow: 10, CacheTTL: time.Minute}, nil)
	req := Request{Provider: "openai", Op: llm.OpParseReservation, Input: "doc"}

	var calls int64
	fn := func(context.Context) (llm.Response, error) {
		atomic.AddInt64(&calls, 1)
		return llm.Response{Provider: "openai", Text: "result"}, nil
	}

	first, err := l.Do(context.Background(), req, fn)
	require.NoError(t, err)
	second, err := l.Do(context.Background(), req, fn)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "second call served from cache")
	assert.Equal(t, first, second)
	hits, _ := l.CacheStats()
	assert.Equal(t, int64(1), hits)
}

func TestDoDoesNotCacheFailures(t *testing.T) {
	l := NewLimiter(Config{MaxPerWindow: 10, CacheTTL: time.Minute}, nil)
	req := Request{Provider: "openai", Op: llm.OpParseReservation, Input: "doc"}

	var calls int64
	fn := func(context.Context) (llm.Response, error) {
		atomic.AddInt64(&calls, 1)
		return llm.Response{}, errors.New("transient")
	}

	_, err := l.Do(context.Background(), req, fn)
	require.Error(t, err)
	_, err = l.Do(context.Background(), req, fn)
	require.Error(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestWindowConservation(t *testing.T) {
	const capacity = 3
	l := NewLimiter(Config{
		MaxPerWindow: capacity,
		Window:       time.Minute,
		QueueWait:    150 * time.Millisecond,
		Burst:        capacity, // bucket stays out of the way here
		CacheTTL:     time.Minute,
	}, nil)

	var served, limited int64
	var wg sync.WaitGroup
	for i := 0; i < capacity+5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := Request{Provider: "openai", Op: llm.OpParseReservation, Input: string(rune('a' + n))}
			_, err := l.Do(context.Background(), req, func(context.Context) (llm.Response, error) {
				return llm.Response{Text: "ok"}, nil
			})
			if err == nil {
				atomic.AddInt64(&served, 1)
			} else if errors.Is(err, common.ErrRateLimited) {
				atomic.AddInt64(&limited, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), served, "window admits exactly its capacity")
	assert.Equal(t, int64(5), limited, "excess requests fail rate-limited, never dropped silently")
}

func TestBucketPacesBurstsInsideWindow(t *testing.T) {
	// rate 10/s with burst 1: four back-to-back calls take at least three
	// refill intervals of 100ms
	l := NewLimiter(Config{
		MaxPerWindow: 4,
		Window:       400 * time.Millisecond,
		Burst:        1,
		QueueWait:    5 * time.Second,
		CacheTTL:     time.Minute,
	}, nil)

	ok := func(context.Context) (llm.Response, error) {
		return llm.Response{Text: "ok"}, nil
	}

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := l.Do(context.Background(), Request{Op: llm.OpParseReservation, Input: string(rune('a' + i))}, ok)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestBucketWaitHonorsContext(t *testing.T) {
	l := NewLimiter(Config{
		MaxPerWindow: 4,
		Window:       time.Minute,
		Burst:        1,
		QueueWait:    5 * time.Second,
		CacheTTL:     time.Minute,
	}, nil)

	ok := func(context.Context) (llm.Response, error) {
		return llm.Response{Text: "ok"}, nil
	}
	_, err := l.Do(context.Background(), Request{Op: llm.OpParseReservation, Input: "a"}, ok)
	require.NoError(t, err)

	// the bucket refills one token per 15s here; a short deadline fails fast
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Do(ctx, Request{Op: llm.OpParseReservation, Input: "b"}, ok)
	assert.Error(t, err)
}

func TestAdaptiveCeilingHalvesOn429(t *testing.T) {
	l := NewLimiter(Config{
		MaxPerWindow: 8,
		Window:       50 * time.Millisecond,
		Adaptive:     true,
		Floor:        2,
		BackoffBase:  time.Millisecond,
		BackoffMax:   5 * time.Millisecond,
		CacheTTL:     time.Minute,
	}, nil)

	throttled := func(context.Context) (llm.Response, error) {
		return llm.Response{}, &llm.ProviderError{Provider: "openai", Kind: llm.ErrKindRateLimited, Status: 429}
	}
	req := func(n int) Request {
		return Request{Provider: "openai", Op: llm.OpParseReservation, Input: string(rune('a' + n))}
	}

	_, err := l.Do(context.Background(), req(0), throttled)
	require.Error(t, err)
	assert.Equal(t, 4, l.Ceiling())

	_, err = l.Do(context.Background(), req(1), throttled)
	require.Error(t, err)
	assert.Equal(t, 2, l.Ceiling())

	// floor holds
	_, err = l.Do(context.Background(), req(2), throttled)
	require.Error(t, err)
	assert.Equal(t, 2, l.Ceiling())
}

func TestAdaptiveCeilingRecovers(t *testing.T) {
	l := NewLimiter(Config{
		MaxPerWindow: 4,
		Window:       50 * time.Millisecond,
		Adaptive:     true,
		Floor:        1,
		SuccessRun:   2,
		BackoffBase:  time.Millisecond,
		CacheTTL:     time.Minute,
	}, nil)

	throttled := func(context.Context) (llm.Response, error) {
		return llm.Response{}, &llm.ProviderError{Provider: "openai", Kind: llm.ErrKindRateLimited, Status: 429}
	}
	ok := func(context.Context) (llm.Response, error) {
		return llm.Response{Text: "ok"}, nil
	}

	_, _ = l.Do(context.Background(), Request{Op: llm.OpParseReservation, Input: "x"}, throttled)
	require.Equal(t, 2, l.Ceiling())

	for i := 0; i < 4; i++ {
		_, err := l.Do(context.Background(), Request{Op: llm.OpParseReservation, Input: string(rune('p' + i))}, ok)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, l.Ceiling(), "two success runs of two raise the ceiling back to max")
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(20 * time.Millisecond)
	c.Set("k", "v")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}
