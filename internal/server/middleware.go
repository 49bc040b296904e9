package server

import (
	"container/list"
	"context"
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/logging"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// chain applies middlewares so the first one listed runs first
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// SecurityHeadersMiddleware adds security headers to widget and API responses.
// The widget page is meant to be embedded, so framing is limited to the
// configured origins instead of denied.
func SecurityHeadersMiddleware(frameAncestors []string) Middleware {
	ancestors := "'self'"
	if len(frameAncestors) > 0 {
		ancestors = strings.Join(frameAncestors, " ")
	}
	csp := "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data: https:; " +
		"connect-src 'self'; " +
		"frame-ancestors " + ancestors

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers for the configured origins. With no
// origins configured the handler is returned unchanged.
func CORSMiddleware(origins []string, authHeaderName string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}

		allowHeaders := "Content-Type, Authorization, X-API-Key"
		if authHeaderName != "" && authHeaderName != "Authorization" && authHeaderName != "X-API-Key" {
			allowHeaders += ", " + authHeaderName
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowOrigin := matchOrigin(origins, origin); allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin returns the Access-Control-Allow-Origin value, or "" if origin
// is not allowed
func matchOrigin(origins []string, origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range origins {
		switch o {
		case "*":
			return "*"
		case origin:
			return origin
		}
	}
	return ""
}

// ipLimiter is one client's token bucket and its place in the LRU list
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps per-IP token buckets, evicting the least recently seen
// client when maxIPs is reached
type rateLimiter struct {
	rps    rate.Limit
	burst  int
	maxIPs int
	log    *zap.Logger

	mu      sync.Mutex
	clients map[string]*list.Element
	order   *list.List // front = most recent
	evicted int
	lastLog time.Time
}

func (rl *rateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if elem, ok := rl.clients[ip]; ok {
		rl.order.MoveToFront(elem)
		lim := elem.Value.(*ipLimiter)
		lim.lastSeen = now
		return lim.limiter.AllowN(now, 1)
	}

	if rl.order.Len() >= rl.maxIPs {
		if back := rl.order.Back(); back != nil {
			rl.order.Remove(back)
			delete(rl.clients, back.Value.(*ipLimiter).ip)
			rl.evicted++
			if now.Sub(rl.lastLog) >= 30*time.Second {
				rl.log.Warn("evicted least-recent clients", zap.Int("count", rl.evicted), zap.Int("capacity", rl.maxIPs))
				rl.lastLog = now
				rl.evicted = 0
			}
		}
	}

	lim := &ipLimiter{ip: ip, limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	rl.clients[ip] = rl.order.PushFront(lim)
	return lim.limiter.AllowN(now, 1)
}

// sweep drops clients not seen within idle
func (rl *rateLimiter) sweep(now time.Time, idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for e := rl.order.Back(); e != nil; {
		prev := e.Prev()
		lim := e.Value.(*ipLimiter)
		if now.Sub(lim.lastSeen) > idle {
			rl.order.Remove(e)
			delete(rl.clients, lim.ip)
		}
		e = prev
	}
}

// RateLimitMiddleware limits API requests per client IP with a token bucket.
// The sweeper goroutine runs until ctx is cancelled; the returned channel is
// closed when it has exited.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (Middleware, <-chan struct{}) {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	rl := &rateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIPs:  maxIPs,
		log:     logging.Named("ratelimit"),
		clients: make(map[string]*list.Element),
		order:   list.New(),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				rl.sweep(now, 10*time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return mw, done
}

// clientIP returns the client address. Forwarding headers are trusted only
// when the peer is a loopback or private address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peer := net.ParseIP(host)
	if peer != nil && (peer.IsLoopback() || peer.IsPrivate()) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peer != nil {
		return peer.String()
	}
	return host
}

// AuthMiddleware requires the configured API key. Without a key configured
// every request passes.
func AuthMiddleware(authCfg *config.AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		key := authCfg.GetAPIKey()
		if key == "" {
			return next
		}
		header := authCfg.GetHeaderName()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(header)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if header == "Authorization" {
				bearer, ok := strings.CutPrefix(token, "Bearer ")
				if !ok || bearer == "" {
					writeJSONError(w, http.StatusUnauthorized, "invalid authorization format, expected Bearer token")
					return
				}
				token = bearer
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
