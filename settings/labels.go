package settings

import (
	"sort"
	"strconv"
	"strings"
)

// LabelPrefix is the Docker label namespace this proxy reads configuration
// from, mirroring Traefik's "traefik.http.*" convention.
const LabelPrefix = "rproxy.http."

// MergeDockerLabels folds a flat label map of the form
// "rproxy.http.{middlewares|routers|services}.{name}.{field}" into cfg,
// overwriting any entity fields the labels name. Keys use camelCase field
// names (e.g. "allowOrigins"). Router and service fields are matched by a
// per-entity-kind switch; a middleware field other than type, enabled and
// order is stored in MiddlewareConfig.Settings under its snake_case form
// (e.g. "cors.allowOrigins" becomes "cors.allow_origins").
func MergeDockerLabels(cfg *Config, labels map[string]string) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if cfg.Middlewares == nil {
		cfg.Middlewares = map[string]MiddlewareConfig{}
	}
	if cfg.Routers == nil {
		cfg.Routers = map[string]RouterConfig{}
	}
	if cfg.Services == nil {
		cfg.Services = map[string]ServiceConfig{}
	}

	for _, key := range keys {
		value := labels[key]
		rest, ok := strings.CutPrefix(key, LabelPrefix)
		if !ok {
			continue
		}

		parts := strings.SplitN(rest, ".", 3)
		if len(parts) < 3 {
			continue
		}
		kind, name, field := parts[0], parts[1], parts[2]

		switch kind {
		case "middlewares":
			applyMiddlewareLabel(cfg, name, field, value)
		case "routers":
			applyRouterLabel(cfg, name, field, value)
		case "services":
			applyServiceLabel(cfg, name, field, value)
		}
	}
}

func applyMiddlewareLabel(cfg *Config, name, field, value string) {
	mw := cfg.Middlewares[name]
	if mw.Settings == nil {
		mw.Settings = map[string]any{}
	}

	switch field {
	case "type":
		mw.Type = value
	case "enabled":
		mw.Enabled = value == "true" || value == "1"
	case "order":
		if n, err := strconv.Atoi(value); err == nil {
			mw.Order = n
		}
	default:
		mw.Settings[toSnakeCase(field)] = value
	}

	cfg.Middlewares[name] = mw
}

func applyRouterLabel(cfg *Config, name, field, value string) {
	r := cfg.Routers[name]

	switch field {
	case "rule":
		r.Rule = value
	case "service":
		r.Service = value
	case "middlewares":
		r.Middlewares = splitCSV(value)
	case "priority":
		if n, err := strconv.Atoi(value); err == nil {
			r.Priority = n
		}
	}

	cfg.Routers[name] = r
}

func applyServiceLabel(cfg *Config, name, field string, value string) {
	svc := cfg.Services[name]

	if strings.HasPrefix(field, "loadbalancer.server.") {
		subfield := strings.TrimPrefix(field, "loadbalancer.server.")
		if len(svc.LoadBalancer.Servers) == 0 {
			svc.LoadBalancer.Servers = append(svc.LoadBalancer.Servers, LoadBalancerServer{})
		}
		last := len(svc.LoadBalancer.Servers) - 1
		switch subfield {
		case "url":
			svc.LoadBalancer.Servers[last].URL = value
		case "port":
			// A bare port label (no URL) is stored as the URL
			// "http://{port}"; it is not paired with a container address.
			svc.LoadBalancer.Servers[last].URL = "http://" + value
		case "weight":
			if n, err := strconv.Atoi(value); err == nil {
				svc.LoadBalancer.Servers[last].Weight = n
			}
		}
	}

	cfg.Services[name] = svc
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConfigToLabels renders cfg back out as a flat Docker label map, the
// inverse of MergeDockerLabels, used by tests to assert the bridge is
// reversible for the fields it understands.
func ConfigToLabels(cfg *Config) map[string]string {
	labels := map[string]string{}

	for name, mw := range cfg.Middlewares {
		base := LabelPrefix + "middlewares." + name + "."
		labels[base+"type"] = mw.Type
		if mw.Enabled {
			labels[base+"enabled"] = "true"
		}
		for k, v := range mw.Settings {
			if s, ok := v.(string); ok {
				labels[base+toCamelCase(k)] = s
			}
		}
	}

	for name, r := range cfg.Routers {
		base := LabelPrefix + "routers." + name + "."
		labels[base+"rule"] = r.Rule
		labels[base+"service"] = r.Service
		if len(r.Middlewares) > 0 {
			labels[base+"middlewares"] = strings.Join(r.Middlewares, ",")
		}
	}

	for name, svc := range cfg.Services {
		base := LabelPrefix + "services." + name + "."
		for i, s := range svc.LoadBalancer.Servers {
			if i > 0 {
				continue
			}
			labels[base+"loadbalancer.server.url"] = s.URL
			if s.Weight > 0 {
				labels[base+"loadbalancer.server.weight"] = strconv.Itoa(s.Weight)
			}
		}
	}

	return labels
}
