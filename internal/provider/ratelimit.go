package provider

import (
	"context"
	"sync"
	"time"

	"toolrelay/internal/domain"
)

// RateLimiter is a token bucket shared by every call to one model.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
}

// NewRateLimiter allows burst calls at once and ratePerMinute afterwards.
func NewRateLimiter(burst int, ratePerMinute float64) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		tokens:   float64(burst),
		max:      float64(burst),
		rate:     ratePerMinute / 60.0,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens = min(rl.max, rl.tokens+now.Sub(rl.lastTime).Seconds()*rl.rate)
		rl.lastTime = now

		if rl.tokens >= 1.0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := time.Duration((1.0 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Throttled delays Generate calls to stay within a provider's request quota.
type Throttled struct {
	domain.LanguageModel
	limiter *RateLimiter
}

func Throttle(m domain.LanguageModel, limiter *RateLimiter) *Throttled {
	return &Throttled{LanguageModel: m, limiter: limiter}
}

func (t *Throttled) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.Generation, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.LanguageModel.Generate(ctx, req)
}
