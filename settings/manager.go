package settings

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager owns the proxy's currently active, validated Config and applies
// reloads with validate-then-apply / revert-on-failure semantics: a config
// that fails validation never replaces the last-good one.
type Manager struct {
	mu      sync.RWMutex
	current *Config
	log     *logrus.Entry
}

// NewManager returns a Manager seeded with an empty, valid default config.
func NewManager(log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		current: &Config{Version: "1.0"},
		log:     log,
	}
}

// Current returns the active config. Callers must not mutate the returned
// value.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Apply validates cfg and, on success, installs it as the active config.
// On validation failure the active config is left untouched and the error
// is returned for the caller to log/act on.
func (m *Manager) Apply(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return nil
}

// ReloadFile loads path, validates it, and applies it. On failure it logs
// and keeps serving the last-good config rather than propagating a fatal
// error, matching the request-path error policy: configuration problems
// discovered after startup must not take the proxy down.
func (m *Manager) ReloadFile(path string) error {
	cfg, err := LoadFile(path)
	if err != nil {
		m.log.WithError(err).WithField("path", path).Warn("config reload: keeping last-good config")
		return err
	}

	if err := m.Apply(cfg); err != nil {
		m.log.WithError(err).WithField("path", path).Warn("config reload: validation failed, keeping last-good config")
		return err
	}

	m.log.WithField("path", path).Info("config reloaded")
	return nil
}

// MergeAllSources builds a Config from the file (PROXY_JSON_CONFIG /
// PROXY_CONFIG_DIR), environment, and container-label sources, combining
// them per PROXY_CONFIG_PRIORITY ("json", the default, or "label"):
//
//   - "json": labels are merged first, then file sources overwrite on
//     collision — file configuration wins.
//   - "label": file sources are merged first, then labels overwrite on
//     collision — label configuration wins.
func MergeAllSources(labels map[string]string) (*Config, error) {
	priority := os.Getenv("PROXY_CONFIG_PRIORITY")
	if priority == "" {
		priority = "json"
	}

	merged := &Config{Version: "1.0"}

	loadFileSources := func() error {
		if path := os.Getenv("PROXY_JSON_CONFIG"); path != "" {
			cfg, err := LoadFile(path)
			if err != nil {
				return err
			}
			MergeConfig(merged, cfg)
		}
		if dir := os.Getenv("PROXY_CONFIG_DIR"); dir != "" {
			cfg, err := LoadDirectory(dir)
			if err != nil {
				return err
			}
			MergeConfig(merged, cfg)
		}
		return nil
	}

	if priority == "label" {
		if err := loadFileSources(); err != nil {
			return nil, err
		}
		MergeDockerLabels(merged, labels)
	} else {
		MergeDockerLabels(merged, labels)
		if err := loadFileSources(); err != nil {
			return nil, err
		}
	}

	return merged, nil
}
