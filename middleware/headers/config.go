// Package headers implements a middleware.Middleware that adds,
// removes, and overwrites request and response headers, applying a
// baseline of security response headers before any configured response
// modification.
package headers

import (
	"strings"

	"github.com/hoogokok/roxy/settings"
)

// Modification is one direction's (request or response) header edits.
// Add and Set both insert a header; Set additionally overwrites any
// value the backend or client already supplied. Remove deletes a
// header outright. All three may name the same header: Remove wins
// over Add, and Set is applied last so it always wins.
type Modification struct {
	Add    map[string]string
	Remove []string
	Set    map[string]string
}

// Config is a headers middleware's full request/response configuration.
type Config struct {
	Request  Modification
	Response Modification
}

// FromMiddlewareSettings reads a Config out of a settings.MiddlewareConfig's
// Settings map. Keys follow "headers.{request|response}.{add|set}.{header}"
// for per-header add/set entries and "headers.{request|response}.remove"
// for a comma-separated remove list.
func FromMiddlewareSettings(mw settings.MiddlewareConfig) Config {
	cfg := Config{
		Request:  Modification{Add: map[string]string{}, Set: map[string]string{}},
		Response: Modification{Add: map[string]string{}, Set: map[string]string{}},
	}

	for key, raw := range mw.Settings {
		value, _ := raw.(string)
		rest, ok := strings.CutPrefix(key, "headers.")
		if !ok {
			continue
		}

		var mod *Modification
		switch {
		case strings.HasPrefix(rest, "request."):
			mod = &cfg.Request
			rest = strings.TrimPrefix(rest, "request.")
		case strings.HasPrefix(rest, "response."):
			mod = &cfg.Response
			rest = strings.TrimPrefix(rest, "response.")
		default:
			continue
		}

		switch {
		case rest == "remove":
			mod.Remove = splitCSV(value)
		case strings.HasPrefix(rest, "add."):
			mod.Add[strings.TrimPrefix(rest, "add.")] = value
		case strings.HasPrefix(rest, "set."):
			mod.Set[strings.TrimPrefix(rest, "set.")] = value
		}
	}

	return cfg
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
