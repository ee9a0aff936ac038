package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/akuru-app/akuru/pkg/utils"
)

// RateLimit applies a per-IP token bucket, used on the credential
// endpoints to slow down brute forcing.
func RateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
		lastSeen = make(map[string]time.Time)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		// Opportunistic cleanup of idle entries.
		cutoff := time.Now().Add(-10 * time.Minute)
		for addr, seen := range lastSeen {
			if seen.Before(cutoff) {
				delete(limiters, addr)
				delete(lastSeen, addr)
			}
		}

		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(r, burst)
			limiters[ip] = limiter
		}
		lastSeen[ip] = time.Now()
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				ip = req.RemoteAddr
			}

			if !limiterFor(ip).Allow() {
				utils.RespondError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
