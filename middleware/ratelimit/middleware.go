package ratelimit

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/settings"
)

// Kind is the middleware.Middleware Kind this package registers under.
const Kind = "rate-limit"

// Middleware enforces Config's token-bucket limit per client, the
// client identified by the first X-Forwarded-For entry, falling back
// to X-Real-IP, falling back to "unknown".
type Middleware struct {
	middleware.Base
	config Config
	store  *Store

	// OnRejected, if set, is called once for every request this
	// middleware turns away with 429. cmd/roxy wires it to the
	// rate-limit rejection counter; left nil, rejections are still
	// enforced, just not counted.
	OnRejected func()
}

// New builds a Middleware backed by store. Several middlewares may
// share one Store; a fresh Store is fine too. Idle buckets are removed
// only while RunCleanup runs on the Store; New starts no sweep.
func New(cfg Config, store *Store) *Middleware {
	return &Middleware{config: cfg, store: store}
}

// NewFromSettings builds a Middleware from a settings.MiddlewareConfig,
// backed by a new Store. No RunCleanup sweep is started for that Store,
// so its buckets are never removed. Use New directly to share a Store
// across multiple rate-limit middlewares.
func NewFromSettings(name string, cfg settings.MiddlewareConfig) (*Middleware, error) {
	return New(FromMiddlewareSettings(cfg), NewStore()), nil
}

func (m *Middleware) Kind() string { return Kind }

func clientID(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip, _, _ := strings.Cut(forwarded, ","); strings.TrimSpace(ip) != "" {
			return strings.TrimSpace(ip)
		}
	}
	if realIP := req.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return "unknown"
}

func (m *Middleware) HandleRequest(req *http.Request) (*http.Request, error) {
	key := clientID(req)

	if m.store.CheckRate(key, float64(m.config.Average), float64(m.config.Burst)) {
		return req, nil
	}

	if m.OnRejected != nil {
		m.OnRejected()
	}
	return req, middleware.TooManyRequests(m.limitExceededResponse(key))
}

func (m *Middleware) limitExceededResponse(key string) *http.Response {
	wait, _ := m.store.TimeToNextRequest(key)
	waitSeconds := strconv.FormatInt(int64(wait.Seconds()), 10)

	header := http.Header{}
	header.Set("X-RateLimit-Limit", strconv.FormatUint(uint64(m.config.Average), 10))
	header.Set("X-RateLimit-Reset", waitSeconds)
	header.Set("Retry-After", waitSeconds)

	return &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     header,
		Body:       http.NoBody,
	}
}
