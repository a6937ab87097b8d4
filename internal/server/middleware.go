// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/subtle"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"
)

// middleware wraps an http.Handler with cross-cutting behavior.
type middleware func(http.Handler) http.Handler

// chain composes middlewares so the first argument is outermost.
func chain(mws ...middleware) middleware {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// ============================================================================
// BEARER AUTH
// ============================================================================

// AuthConfig enables bearer auth across the whole API surface.
type AuthConfig struct {
	Enabled bool

	// BearerToken is the expected token. Enabled with an empty token
	// rejects every request.
	BearerToken string
}

// requireAuth rejects requests that do not carry the expected bearer token.
func requireAuth(cfg *AuthConfig) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || !validToken(token, cfg.BearerToken) {
				log.Printf("AUTH DENIED | ip=%s path=%s", clientIP(r), r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validToken compares tokens in constant time. An empty token on either side
// never matches.
func validToken(token, expected string) bool {
	if token == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// ============================================================================
// CORS
// ============================================================================

// The API surface is fixed, so the allowed methods and headers are too.
const (
	corsMethods       = "GET, POST, DELETE, OPTIONS"
	corsHeaders       = "Content-Type, Authorization"
	corsDefaultMaxAge = 86400
)

// CORSConfig lists the origins the browser frontend may call from.
type CORSConfig struct {
	AllowedOrigins []string

	// MaxAge is how long browsers may cache the preflight answer, in
	// seconds. Zero means one day.
	MaxAge int
}

func (c *CORSConfig) allows(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// allowCORS stamps allowed origins and answers preflight requests. Unknown
// origins get no CORS headers at all, which makes the browser refuse the
// response.
func allowCORS(cfg *CORSConfig) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); cfg.allows(origin) {
				age := cfg.MaxAge
				if age == 0 {
					age = corsDefaultMaxAge
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", strconv.Itoa(age))
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// RATE LIMITING
// ============================================================================

// RateLimiter counts requests per client IP over a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit requests per IP per window. A background sweep
// drops idle IPs so the map does not grow without bound.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
	go rl.sweep()
	return rl
}

// prune returns the timestamps still inside the window.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Allow records a request for ip and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	kept := prune(rl.seen[ip], now.Add(-rl.window))
	if len(kept) >= rl.limit {
		rl.seen[ip] = kept
		return false
	}
	rl.seen[ip] = append(kept, now)
	return true
}

// Remaining reports how many requests ip has left in the current window.
func (rl *RateLimiter) Remaining(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	left := rl.limit - len(prune(rl.seen[ip], time.Now().Add(-rl.window)))
	if left < 0 {
		left = 0
	}
	return left
}

// sweep periodically drops IPs whose window has fully expired.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for ip, stamps := range rl.seen {
			if kept := prune(stamps, cutoff); len(kept) == 0 {
				delete(rl.seen, ip)
			} else {
				rl.seen[ip] = kept
			}
		}
		rl.mu.Unlock()
	}
}

// limitRequests rejects clients over the per-IP limit with 429 and a
// Retry-After hint.
func limitRequests(l *RateLimiter) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))

			if !l.Allow(ip) {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				log.Printf("RATE LIMITED | ip=%s limit=%d window=%v", ip, l.limit, l.window)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(ip)))
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// REQUEST LOGGING
// ============================================================================

// statusRecorder captures the status code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// logRequests writes one line per request after it completes.
func logRequests() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Printf("REQUEST | method=%s path=%s status=%d duration=%s ip=%s",
				r.Method, r.URL.Path, rec.status,
				time.Since(start).Round(time.Millisecond), clientIP(r))
		})
	}
}

// ============================================================================
// SECURITY HEADERS AND RECOVERY
// ============================================================================

// secureHeaders stamps a conservative header set on every response. The API
// serves JSON only, so framing and caching are disabled outright.
func secureHeaders() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// recoverPanics turns a handler panic into a 500 instead of tearing down the
// connection.
func recoverPanics() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Printf("PANIC | method=%s path=%s error=%v\n%s",
						r.Method, r.URL.Path, v, debug.Stack())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// CLIENT IP
// ============================================================================

// trustedNets are the peers allowed to speak for someone else via
// X-Forwarded-For: localhost (the deployment's reverse proxy) and private
// ranges. Headers from any other peer are ignored so clients cannot spoof
// their way past the rate limiter.
var trustedNets = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.1/32",
		"::1/128",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic("bad trusted proxy CIDR: " + c)
		}
		nets = append(nets, n)
	}
	return nets
}()

func trustedPeer(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range trustedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP resolves the originating client address. X-Forwarded-For is
// honored only when the direct peer is a trusted proxy; its first entry is
// the original client.
func clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !trustedPeer(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return peer
}
