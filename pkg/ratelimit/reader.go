// Package ratelimit throttles copy bandwidth so large transfers leave
// I/O headroom for the rest of the application.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucketSize keeps the token bucket at least one copy buffer deep so
// small limits still transfer smoothly
const minBucketSize = 64 * 1024

// Limiter is a token bucket shared by every reader of one backend, so
// concurrent transfers divide the configured bandwidth between them
type Limiter struct {
	bytesPerSecond int64

	mu         sync.Mutex
	tokens     int64
	lastUpdate time.Time
	bucketSize int64
}

// NewLimiter creates a limiter allowing bytesPerSecond across all its
// readers. A non-positive limit returns nil, which means unlimited.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucketSize := bytesPerSecond
	if bucketSize < minBucketSize {
		bucketSize = minBucketSize
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
		bucketSize:     bucketSize,
	}
}

// Reader throttles reads from an underlying io.Reader against a Limiter
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps reader so its reads draw tokens from limiter. A nil
// limiter returns reader unchanged.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{
		reader:  reader,
		limiter: limiter,
		ctx:     ctx,
	}
}

// Read blocks until the bucket holds enough tokens for the chunk, then
// reads and consumes them
func (r *Reader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	toRead := len(p)
	if toRead > int(r.limiter.bucketSize) {
		toRead = int(r.limiter.bucketSize)
	}

	r.limiter.waitForTokens(int64(toRead))

	n, err := r.reader.Read(p[:toRead])
	if n > 0 {
		r.limiter.consumeTokens(int64(n))
	}

	return n, err
}

// waitForTokens blocks until the bucket holds at least needed tokens
func (l *Limiter) waitForTokens(needed int64) {
	for {
		l.mu.Lock()
		l.refillTokens()

		if l.tokens >= needed {
			l.mu.Unlock()
			return
		}

		deficit := needed - l.tokens
		waitTime := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if waitTime < time.Millisecond {
			waitTime = time.Millisecond
		}
		l.mu.Unlock()

		time.Sleep(waitTime)
	}
}

// refillTokens adds tokens for the time elapsed since the last refill;
// the caller holds the lock
func (l *Limiter) refillTokens() {
	now := time.Now()
	elapsed := now.Sub(l.lastUpdate)

	tokensToAdd := int64(float64(elapsed) / float64(time.Second) * float64(l.bytesPerSecond))
	if tokensToAdd > 0 {
		l.tokens += tokensToAdd
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastUpdate = now
	}
}

func (l *Limiter) consumeTokens(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}
