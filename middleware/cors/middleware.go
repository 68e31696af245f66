package cors

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/settings"
)

// Kind is the middleware.Middleware Kind this package registers under.
const Kind = "cors"

// Middleware answers CORS preflight requests directly and validates
// every other request's Origin header against Config.AllowOrigins.
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

func (m *Middleware) validateOrigin(origin string) bool {
	for _, allowed := range m.config.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (m *Middleware) setCORSHeaders(h http.Header, origin string) {
	if m.validateOrigin(origin) {
		h.Set("Access-Control-Allow-Origin", origin)
	}
	if m.config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(m.config.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(m.config.ExposeHeaders, ", "))
	}
}

func (m *Middleware) HandleRequest(req *http.Request) (*http.Request, error) {
	if req.Method == http.MethodOptions {
		resp, err := m.preflightResponse(req)
		if err != nil {
			return req, err
		}
		return req, middleware.PreflightResponse(resp)
	}

	if origin := req.Header.Get("Origin"); origin != "" && !m.validateOrigin(origin) {
		return req, middleware.InvalidRequest("origin not allowed")
	}

	return req, nil
}

// HandleResponse sets CORS response headers for the Origin the request
// actually carried. http.Transport populates Response.Request with the
// request it sent, so the origin survives the round trip without the
// middleware needing any shared per-request state.
func (m *Middleware) HandleResponse(resp *http.Response) (*http.Response, error) {
	if resp.Request == nil {
		return resp, nil
	}
	if origin := resp.Request.Header.Get("Origin"); origin != "" {
		m.setCORSHeaders(resp.Header, origin)
	}
	return resp, nil
}

func (m *Middleware) preflightResponse(req *http.Request) (*http.Response, error) {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return nil, middleware.InvalidRequest("missing origin header")
	}
	if !m.validateOrigin(origin) {
		return nil, middleware.InvalidRequest("origin not allowed")
	}

	header := http.Header{}
	m.setCORSHeaders(header, origin)
	header.Set("Access-Control-Allow-Methods", strings.Join(m.config.AllowMethods, ", "))
	if len(m.config.AllowHeaders) > 0 {
		header.Set("Access-Control-Allow-Headers", strings.Join(m.config.AllowHeaders, ", "))
	}
	if m.config.MaxAge != nil {
		header.Set("Access-Control-Max-Age", strconv.Itoa(*m.config.MaxAge))
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       http.NoBody,
	}, nil
}
