// Package ratelimit throttles data-channel writes with a token bucket.
//
// The server wraps the data connection of a RETR in a Writer when a
// bandwidth limit is configured. Waiting honours the transfer context, so
// an aborted transfer does not sit out its remaining delay.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// Limiter is a token bucket refilled at a fixed number of bytes per second.
// The bucket holds one second worth of tokens, which allows short bursts
// while keeping the average rate.
//
// A nil *Limiter does not limit.
type Limiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

// New returns a limiter for bytesPerSecond, or nil when bytesPerSecond is
// not positive.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	rate := float64(bytesPerSecond)
	return &Limiter{
		rate:   rate,
		burst:  rate,
		tokens: rate,
		last:   time.Now(),
	}
}

// Wait reserves n bytes and blocks until the bucket has paid for them, or
// ctx is done. A reservation larger than the bucket is allowed; it leaves
// the bucket in debt and the wait covers it.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil || n <= 0 {
		return ctx.Err()
	}

	delay := l.reserve(float64(n))
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reserve takes n tokens and returns how long until the balance is back to
// zero.
func (l *Limiter) reserve(n float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	l.tokens -= n
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens / l.rate * float64(time.Second))
}

type writer struct {
	ctx     context.Context
	w       io.Writer
	limiter *Limiter
}

// NewWriter returns w throttled by limiter. A nil limiter returns w.
func NewWriter(ctx context.Context, w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{ctx: ctx, w: w, limiter: limiter}
}

func (w *writer) Write(p []byte) (int, error) {
	if err := w.limiter.Wait(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}
