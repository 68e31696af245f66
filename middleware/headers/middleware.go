package headers

import (
	"net/http"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/settings"
)

// Kind is the middleware.Middleware Kind this package registers under.
const Kind = "headers"

// Middleware applies Config's request and response header edits, and a
// fixed set of security headers on every response before the
// configured response edits run.
type Middleware struct {
	middleware.Base
	config Config
}

// New builds a Middleware from cfg.
func New(cfg Config) *Middleware {
	return &Middleware{config: cfg}
}

// NewFromSettings builds a Middleware from a settings.MiddlewareConfig,
// the shape middleware.Factory expects.
func NewFromSettings(name string, cfg settings.MiddlewareConfig) (*Middleware, error) {
	return New(FromMiddlewareSettings(cfg)), nil
}

func (m *Middleware) Kind() string { return Kind }

func (m *Middleware) HandleRequest(req *http.Request) (*http.Request, error) {
	apply(req.Header, m.config.Request)
	return req, nil
}

func (m *Middleware) HandleResponse(resp *http.Response) (*http.Response, error) {
	applySecurityHeaders(resp.Header)
	apply(resp.Header, m.config.Response)
	return resp, nil
}

// applySecurityHeaders sets a baseline of protective response headers.
// A configured Set for the same header (applied afterward by the
// caller) always wins.
func applySecurityHeaders(h http.Header) {
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Strict-Transport-Security", "max-age=31536000")
}

func apply(h http.Header, mod Modification) {
	for name, value := range mod.Add {
		h.Add(name, value)
	}
	for _, name := range mod.Remove {
		h.Del(name)
	}
	for name, value := range mod.Set {
		h.Set(name, value)
	}
}
