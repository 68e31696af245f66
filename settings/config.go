package settings

import (
	"fmt"
	"strings"
)

// MiddlewareConfig is one middleware entry as configured in the "middlewares"
// section of a config document.
type MiddlewareConfig struct {
	Type     string         `json:"type" toml:"type"`
	Enabled  bool           `json:"enabled" toml:"enabled"`
	Order    int            `json:"order" toml:"order"`
	Settings map[string]any `json:"settings" toml:"settings"`
}

// RouterConfig is one router entry: a rule, the service it routes to, and
// a list of middleware names that Validate checks against the declared
// middlewares. The middleware manager does not read that list; it attaches
// middlewares to routers by middleware name.
type RouterConfig struct {
	Rule        string   `json:"rule" toml:"rule"`
	Service     string   `json:"service" toml:"service"`
	Middlewares []string `json:"middlewares,omitempty" toml:"middlewares,omitempty"`
	Priority    int      `json:"priority,omitempty" toml:"priority,omitempty"`
}

// LoadBalancerServer is one server entry under a service's load balancer.
type LoadBalancerServer struct {
	URL    string `json:"url" toml:"url"`
	Weight int    `json:"weight,omitempty" toml:"weight,omitempty"`
}

// LoadBalancerConfig configures a service's set of upstream servers.
type LoadBalancerConfig struct {
	Servers []LoadBalancerServer `json:"servers" toml:"servers"`
}

// ServiceConfig is one service entry: the set of backend servers it load
// balances across.
type ServiceConfig struct {
	LoadBalancer LoadBalancerConfig `json:"loadbalancer" toml:"loadbalancer"`
}

// HealthConfig configures the optional per-backend health check.
type HealthConfig struct {
	Enabled     bool   `json:"enabled,omitempty" toml:"enabled,omitempty"`
	Interval    int    `json:"interval,omitempty" toml:"interval,omitempty"`
	Timeout     int    `json:"timeout,omitempty" toml:"timeout,omitempty"`
	MaxFailures int    `json:"max_failures,omitempty" toml:"max_failures,omitempty"`
	HTTPPath    string `json:"http_path,omitempty" toml:"http_path,omitempty"`
}

// ServerConfig holds listener and discovery retry settings. cmd/roxy does
// not read RetryCount or RetryInterval; discovery always runs with
// docker.DefaultRetryPolicy.
type ServerConfig struct {
	HTTPPort      int  `json:"http_port,omitempty" toml:"http_port,omitempty"`
	HTTPSPort     int  `json:"https_port,omitempty" toml:"https_port,omitempty"`
	HTTPSEnabled  bool `json:"https_enabled,omitempty" toml:"https_enabled,omitempty"`
	RetryCount    int  `json:"retry_count,omitempty" toml:"retry_count,omitempty"`
	RetryInterval int  `json:"retry_interval,omitempty" toml:"retry_interval,omitempty"`
}

// Config is one fully parsed, not-yet-validated configuration document
// (from a JSON/TOML file, or the result of merging file+env+label sources).
type Config struct {
	Version           string                      `json:"version" toml:"version"`
	ID                string                      `json:"id,omitempty" toml:"id,omitempty"`
	Server            ServerConfig                `json:"server,omitempty" toml:"server,omitempty"`
	Middlewares       map[string]MiddlewareConfig `json:"middlewares,omitempty" toml:"middlewares,omitempty"`
	Routers           map[string]RouterConfig     `json:"routers,omitempty" toml:"routers,omitempty"`
	Services          map[string]ServiceConfig    `json:"services,omitempty" toml:"services,omitempty"`
	Health            HealthConfig                `json:"health,omitempty" toml:"health,omitempty"`
	RouterMiddlewares map[string][]string         `json:"router_middlewares,omitempty" toml:"router_middlewares,omitempty"`
}

// Validate checks the cross-entity reference integrity of the config: every
// router's service and middleware names must resolve to a declared entity,
// and every id used as a key must satisfy the id naming rules. A middleware
// key qualified as "{configID}.{name}" (see LoadFile) is checked part by part.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config: version is required")
	}

	for name := range c.Middlewares {
		for _, part := range strings.Split(name, ".") {
			if _, err := NewValidMiddlewareId(part); err != nil {
				return fmt.Errorf("config: middleware %q: %w", name, err)
			}
		}
	}
	for name, svc := range c.Services {
		if _, err := NewValidServiceId(name); err != nil {
			return fmt.Errorf("config: service %q: %w", name, err)
		}
		if len(svc.LoadBalancer.Servers) == 0 {
			return fmt.Errorf("config: service %q has no servers", name)
		}
		for _, s := range svc.LoadBalancer.Servers {
			if _, err := NewValidUrl(s.URL); err != nil {
				return fmt.Errorf("config: service %q server %q: %w", name, s.URL, err)
			}
		}
	}
	for name, r := range c.Routers {
		if _, err := NewValidRouterId(name); err != nil {
			return fmt.Errorf("config: router %q: %w", name, err)
		}
		if _, err := NewValidRule(r.Rule); err != nil {
			return fmt.Errorf("config: router %q rule: %w", name, err)
		}
		if _, ok := c.Services[r.Service]; !ok {
			return fmt.Errorf("config: router %q references unknown service %q", name, r.Service)
		}
		for _, mw := range r.Middlewares {
			if _, ok := c.Middlewares[mw]; !ok {
				return fmt.Errorf("config: router %q references unknown middleware %q", name, mw)
			}
		}
	}
	for router, mws := range c.RouterMiddlewares {
		if _, ok := c.Routers[router]; !ok {
			return fmt.Errorf("config: router_middlewares references unknown router %q", router)
		}
		for _, mw := range mws {
			if _, ok := c.Middlewares[mw]; !ok {
				return fmt.Errorf("config: router_middlewares[%q] references unknown middleware %q", router, mw)
			}
		}
	}

	return nil
}
