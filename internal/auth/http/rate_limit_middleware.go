package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/pseudonyms/internal/errors"
	"github.com/allisson/pseudonyms/internal/httputil"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = time.Hour
)

type principalLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// principalLimiters keeps one token bucket per principal.
type principalLimiters struct {
	mu       sync.Mutex
	limiters map[int64]*principalLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func newPrincipalLimiters(rps float64, burst int) *principalLimiters {
	return &principalLimiters{
		limiters: make(map[int64]*principalLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// reserve takes one token for principalID. It returns zero when the request may
// proceed, otherwise how long the caller should wait.
func (p *principalLimiters) reserve(principalID int64) time.Duration {
	p.mu.Lock()
	now := p.now()
	entry, ok := p.limiters[principalID]
	if !ok {
		entry = &principalLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.limiters[principalID] = entry
	}
	entry.lastSeen = now
	p.mu.Unlock()

	r := entry.limiter.ReserveN(now, 1)
	if !r.OK() {
		return limiterIdleTTL
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

// sweep drops limiters idle for longer than idle.
func (p *principalLimiters) sweep(idle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	threshold := p.now().Add(-idle)
	removed := 0
	for id, entry := range p.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(p.limiters, id)
			removed++
		}
	}
	return removed
}

func (p *principalLimiters) sweepUntilDone(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(limiterIdleTTL)
		}
	}
}

// RateLimitMiddleware applies a token bucket per authenticated principal and answers
// 429 with Retry-After once it is empty. It must run after AuthenticationMiddleware.
// Idle buckets are swept until ctx is cancelled.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiters := newPrincipalLimiters(rps, burst)
	go limiters.sweepUntilDone(ctx, limiterSweepInterval)

	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok {
			logger.Error("rate limit middleware: no authenticated principal in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		delay := limiters.reserve(principal.ID)
		if delay == 0 {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(delay.Seconds()))
		logger.Debug("rate limit exceeded",
			slog.Int64("principal_id", principal.ID),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: "Too many requests. Please retry after the specified delay.",
		})
	}
}
