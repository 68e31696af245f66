// Package cors implements cross-origin resource sharing as a
// middleware.Middleware: preflight OPTIONS requests are answered
// directly, and every other request's Origin header is validated
// against an allow-list before the response gets its CORS headers.
package cors

import (
	"strconv"
	"strings"

	"github.com/hoogokok/roxy/settings"
)

// Config is a cors middleware's full configuration.
type Config struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	MaxAge           *int
	AllowCredentials bool
}

func defaultMethods() []string {
	return []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
}

// DefaultConfig returns a Config with no allowed origins (every
// preflight and every request carrying an Origin header is rejected
// until AllowOrigins is set; requests without Origin pass) and the
// common method set preconfigured.
func DefaultConfig() Config {
	return Config{AllowMethods: defaultMethods()}
}

// FromMiddlewareSettings reads a Config out of a settings.MiddlewareConfig's
// Settings map, keyed "cors.{allowOrigins|allowMethods|allowHeaders|
// exposeHeaders|maxAge|allowCredentials}" or by the snake_case form of
// the same field ("cors.allow_origins", ...) that settings.MergeDockerLabels
// stores; the camelCase key wins when both are present.
func FromMiddlewareSettings(mw settings.MiddlewareConfig) Config {
	cfg := DefaultConfig()

	get := func(key, snake string) (string, bool) {
		v, ok := mw.Settings["cors."+key]
		if !ok {
			if v, ok = mw.Settings["cors."+snake]; !ok {
				return "", false
			}
		}
		s, _ := v.(string)
		return s, true
	}

	if v, ok := get("allowOrigins", "allow_origins"); ok {
		cfg.AllowOrigins = splitCSV(v)
	}
	if v, ok := get("allowMethods", "allow_methods"); ok {
		cfg.AllowMethods = splitCSV(v)
	}
	if v, ok := get("allowHeaders", "allow_headers"); ok {
		cfg.AllowHeaders = splitCSV(v)
	}
	if v, ok := get("exposeHeaders", "expose_headers"); ok {
		cfg.ExposeHeaders = splitCSV(v)
	}
	if v, ok := get("maxAge", "max_age"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAge = &n
		}
	}
	if v, ok := get("allowCredentials", "allow_credentials"); ok {
		cfg.AllowCredentials = v == "true" || v == "1"
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
