package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/artfolio/gallery/internal/metrics"
	"github.com/artfolio/gallery/internal/response"
)

const (
	limiterIdleTTL    = 5 * time.Minute
	limiterSweepEvery = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	log   *zap.Logger

	mu       sync.Mutex
	limiters map[string]*limiterEntry
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter starts a limiter allowing rps requests per second with the
// given burst per IP. Idle entries are swept in the background until Stop.
func NewRateLimiter(rps float64, burst int, log *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		log:      log,
		limiters: make(map[string]*limiterEntry),
		stop:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			metrics.RateLimitedTotal.WithLabelValues(routePattern(r)).Inc()
			response.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the background sweeper.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	e, ok := rl.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = e
	}
	e.lastUsed = time.Now()
	rl.mu.Unlock()
	return e.limiter.Allow()
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			removed := 0
			for ip, e := range rl.limiters {
				if time.Since(e.lastUsed) >= limiterIdleTTL {
					delete(rl.limiters, ip)
					removed++
				}
			}
			rl.mu.Unlock()
			if removed > 0 {
				rl.log.Debug("rate limiter swept idle clients", zap.Int("removed", removed))
			}
		}
	}
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
