package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// rateLimiterCleanupEvery bounds how often a request pays for a sweep of
	// stale entries.
	rateLimiterCleanupEvery = 5 * time.Minute

	// rateLimiterStaleAfter is how long an IP can go unseen before its
	// limiter is dropped.
	rateLimiterStaleAfter = time.Hour
)

// ipRateLimiterStore holds per-IP rate limiters. Stale entries are swept
// inline from the request path, amortized to at most one sweep per
// rateLimiterCleanupEvery, so the store needs no background goroutine and no
// lifecycle of its own.
type ipRateLimiterStore struct {
	limiters sync.Map // map[string]*ipRateLimiterEntry
	rps      float64
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

type ipRateLimiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// RecoveryRateLimitMiddleware enforces per-IP rate limiting on the recovery
// endpoint. Recovery is unauthenticated and each attempt costs a PBKDF2
// derivation, so unthrottled probing is both a brute-force and a CPU concern.
func RecoveryRateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &ipRateLimiterStore{
		rps:         rps,
		burst:       burst,
		lastCleanup: time.Now(),
	}

	return func(c *gin.Context) {
		limiter := store.getLimiter(c.ClientIP())

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *ipRateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.maybeCleanup()

	if val, ok := s.limiters.Load(ip); ok {
		entry := val.(*ipRateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &ipRateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: time.Now(),
	}
	s.limiters.Store(ip, entry)
	return entry.limiter
}

// maybeCleanup removes limiters not accessed in the last hour to keep memory
// bounded. At most one caller per cleanup interval pays for the sweep.
func (s *ipRateLimiterStore) maybeCleanup() {
	now := time.Now()

	s.mu.Lock()
	if now.Sub(s.lastCleanup) < rateLimiterCleanupEvery {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = now
	s.mu.Unlock()

	threshold := now.Add(-rateLimiterStaleAfter)
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*ipRateLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			s.limiters.Delete(key)
		}
		return true
	})
}
