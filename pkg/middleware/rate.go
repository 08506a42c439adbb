// Package middleware holds the HTTP middleware shared by every route group.
package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/billbook/config"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/response"
)

// window counts requests from one client inside a fixed time window.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window request limiter keyed by client IP.
type Limiter struct {
	mu      sync.Mutex
	max     int
	period  time.Duration
	clients map[string]*window
	now     func() time.Time
}

func NewLimiter(max int, period time.Duration) *Limiter {
	return &Limiter{max: max, period: period, clients: map[string]*window{}, now: time.Now}
}

// Allow records one request from key and reports whether it is within the
// limit. Expired windows are pruned as a side effect.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || !now.Before(w.resetAt) {
		if len(l.clients) > 10_000 {
			l.prune(now)
		}
		w = &window{resetAt: now.Add(l.period)}
		l.clients[key] = w
	}

	w.count++
	return w.count <= l.max
}

func (l *Limiter) prune(now time.Time) {
	for k, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, k)
		}
	}
}

// RateLimit limits each client IP to max requests per period. Each call
// builds its own limiter, so route groups are limited independently.
// X-Forwarded-For is only read when the peer is listed in TRUSTED_PROXIES.
func RateLimit(max int, period time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(max, period)
	proxies := ParseProxies(config.TrustedProxies())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(proxies.ClientIP(r)) {
				response.TooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Proxies is the set of reverse proxies whose X-Forwarded-For is believed.
type Proxies []netip.Prefix

// ParseProxies accepts plain addresses and CIDR ranges. Invalid entries are
// logged and skipped.
func ParseProxies(entries []string) Proxies {
	var out Proxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", "entry", e)
			continue
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out
}

func (p Proxies) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the peer address, or, behind a trusted proxy, the right-most
// X-Forwarded-For hop that is not itself a trusted proxy.
func (p Proxies) ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if len(p) == 0 || !p.trusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !p.trusted(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}
