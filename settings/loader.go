package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// LoadFile parses a JSON or TOML config file by extension and qualifies
// every middleware name that doesn't already contain a "." with the
// file's stem as a config id, so the same middleware name declared in two
// different files does not collide.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("settings: parse json %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("settings: parse toml %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("settings: unsupported config extension %q", ext)
	}

	qualifyMiddlewareNames(cfg, configID(cfg, path))
	return cfg, nil
}

// configID returns the config's declared id, or the file's stem if unset.
func configID(cfg *Config, path string) string {
	if cfg.ID != "" {
		return cfg.ID
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// qualifyMiddlewareNames rewrites middleware keys and every router's
// middleware reference that lacks a "." to be prefixed with "{id}.", and
// renames the map key to match.
func qualifyMiddlewareNames(cfg *Config, id string) {
	if cfg.Middlewares != nil {
		qualified := make(map[string]MiddlewareConfig, len(cfg.Middlewares))
		rename := make(map[string]string, len(cfg.Middlewares))
		for name, mw := range cfg.Middlewares {
			full := name
			if !strings.Contains(name, ".") {
				full = id + "." + name
			}
			qualified[full] = mw
			rename[name] = full
		}
		cfg.Middlewares = qualified

		for name, r := range cfg.Routers {
			for i, mw := range r.Middlewares {
				if full, ok := rename[mw]; ok {
					r.Middlewares[i] = full
				}
			}
			cfg.Routers[name] = r
		}
	}
}

// LoadDirectory loads every *.json and *.toml file directly under dir and
// merges them into a single Config, later files overriding earlier ones on
// key collision, files processed in lexical filename order for
// determinism.
func LoadDirectory(dir string) (*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("settings: read dir %s: %w", dir, err)
	}

	merged := &Config{Version: "1.0"}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".toml" {
			continue
		}

		cfg, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		MergeConfig(merged, cfg)
		loaded++
	}

	logrus.WithField("count", loaded).WithField("dir", dir).Debug("loaded config directory")
	return merged, nil
}

// MergeConfig merges src into dst, src's entries overwriting dst's on key
// collision. dst's Version and ID are preserved unless unset.
func MergeConfig(dst, src *Config) {
	if dst.Version == "" {
		dst.Version = src.Version
	}
	if dst.ID == "" {
		dst.ID = src.ID
	}
	if src.Server != (ServerConfig{}) {
		dst.Server = src.Server
	}
	if src.Health != (HealthConfig{}) {
		dst.Health = src.Health
	}

	if dst.Middlewares == nil {
		dst.Middlewares = map[string]MiddlewareConfig{}
	}
	for k, v := range src.Middlewares {
		dst.Middlewares[k] = v
	}

	if dst.Routers == nil {
		dst.Routers = map[string]RouterConfig{}
	}
	for k, v := range src.Routers {
		dst.Routers[k] = v
	}

	if dst.Services == nil {
		dst.Services = map[string]ServiceConfig{}
	}
	for k, v := range src.Services {
		dst.Services[k] = v
	}

	if dst.RouterMiddlewares == nil {
		dst.RouterMiddlewares = map[string][]string{}
	}
	for k, v := range src.RouterMiddlewares {
		dst.RouterMiddlewares[k] = v
	}
}
