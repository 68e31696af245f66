package middleware

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hoogokok/roxy/settings"
)

// Factory builds a concrete Middleware from one enabled MiddlewareConfig
// entry. cmd/roxy supplies the concrete switch over basicauth/headers/
// cors/ratelimit so this package never imports those subpackages (which
// import this one for Middleware/Error).
type Factory func(name string, cfg settings.MiddlewareConfig) (Middleware, error)

// Manager maps router names to their middleware chain. Router names
// correlate with middleware names by convention: a middleware named
// "api-cors" attaches to the router named "api" (the first
// hyphen-separated segment of the qualified middleware name).
type Manager struct {
	chains map[string]*Chain
	log    *logrus.Entry
}

// NewManager builds chains for every enabled entry in configs, grouping
// them by the router name derived from each middleware's name. Disabled
// entries and entries the factory fails to construct are skipped (and
// logged), not fatal — a single bad middleware definition must not take
// down the whole chain rebuild.
func NewManager(configs map[string]settings.MiddlewareConfig, factory Factory, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	m := &Manager{chains: map[string]*Chain{}, log: log}

	for name, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		router := routerNameFor(name)

		mw, err := factory(name, cfg)
		if err != nil {
			log.WithError(err).WithField("middleware", name).Warn("skipping middleware: construction failed")
			continue
		}

		chain, ok := m.chains[router]
		if !ok {
			chain = NewChain(log)
			m.chains[router] = chain
		}
		chain.Add(mw)
	}

	return m
}

// routerNameFor derives a router name from a qualified middleware name's
// first hyphen-separated segment (e.g. "api-cors" -> "api").
func routerNameFor(name string) string {
	if idx := strings.IndexByte(name, '-'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// HandleRequest runs the request-phase chain attached to routerName. A
// request whose backend has no router name bypasses all middleware.
func (m *Manager) HandleRequest(routerName string, req *http.Request) (*http.Request, error) {
	if routerName == "" {
		return req, nil
	}
	chain, ok := m.chains[routerName]
	if !ok {
		return req, nil
	}
	return chain.HandleRequest(req)
}

// HandleResponse runs the response-phase chain attached to routerName.
func (m *Manager) HandleResponse(routerName string, resp *http.Response) (*http.Response, error) {
	if routerName == "" {
		return resp, nil
	}
	chain, ok := m.chains[routerName]
	if !ok {
		return resp, nil
	}
	return chain.HandleResponse(resp)
}

// ChainFor returns the chain attached to routerName, or nil if none.
func (m *Manager) ChainFor(routerName string) *Chain {
	return m.chains[routerName]
}
