// Package basicauth implements HTTP Basic authentication as a
// middleware.Middleware, with credentials sourced from Docker labels
// directly, an htpasswd file, individual environment variables, or
// Docker secret files.
package basicauth

import (
	"strings"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/settings"
)

// AuthSourceKind selects where BasicAuthMiddleware loads its user/hash
// map from.
type AuthSourceKind int

const (
	// SourceLabels reads Users as already populated from Docker labels.
	SourceLabels AuthSourceKind = iota
	// SourceHtpasswdFile reads an apache htpasswd-format file at Path.
	SourceHtpasswdFile
	// SourceEnvVar reads htpasswd-format "user:hash" lines from the
	// environment variable named Path.
	SourceEnvVar
	// SourceDockerSecret reads an htpasswd-format file mounted at Path
	// (typically under /run/secrets).
	SourceDockerSecret
)

// AuthSource identifies where to load credentials from. Path is unused
// for SourceLabels.
type AuthSource struct {
	Kind AuthSourceKind
	Path string
}

func (s AuthSource) String() string {
	switch s.Kind {
	case SourceHtpasswdFile:
		return "htpasswd:" + s.Path
	case SourceEnvVar:
		return "env:" + s.Path
	case SourceDockerSecret:
		return "docker-secret:" + s.Path
	default:
		return "labels"
	}
}

const defaultRealm = "Restricted Area"

// Config is the fully parsed basic-auth middleware configuration.
type Config struct {
	// Users maps username to hashed password. Used only for SourceLabels;
	// for the other kinds CreateAuthenticator loads the credentials from
	// Source when it is called.
	Users map[string]string
	Realm string
	Source AuthSource
}

// FromLabels parses a "rproxy.http.middlewares.{name}.basicAuth." label
// group into a Config. Unlike the reference implementation's EnvVar/
// DockerSecret branches (which only recorded a name and left loading
// unimplemented), CreateAuthenticator here loads both eagerly.
func FromLabels(labels map[string]string, name string) (Config, error) {
	prefix := "rproxy.http.middlewares." + name + ".basicAuth."

	cfg := Config{
		Users: map[string]string{},
		Realm: defaultRealm,
		Source: AuthSource{Kind: SourceLabels},
	}

	if users, ok := labels[prefix+"users"]; ok {
		for _, entry := range strings.Split(users, ",") {
			username, password, found := strings.Cut(strings.TrimSpace(entry), ":")
			if !found {
				continue
			}
			cfg.Users[strings.TrimSpace(username)] = strings.TrimSpace(password)
		}
	}

	if realm, ok := labels[prefix+"realm"]; ok && realm != "" {
		cfg.Realm = realm
	}

	switch strings.ToLower(labels[prefix+"source"]) {
	case "htpasswd":
		if path, ok := labels[prefix+"htpasswd.path"]; ok {
			cfg.Source = AuthSource{Kind: SourceHtpasswdFile, Path: path}
		}
	case "env":
		if name, ok := labels[prefix+"env.name"]; ok {
			cfg.Source = AuthSource{Kind: SourceEnvVar, Path: name}
		}
	case "secret":
		if name, ok := labels[prefix+"secret.name"]; ok {
			cfg.Source = AuthSource{Kind: SourceDockerSecret, Path: name}
		}
	default:
		cfg.Source = AuthSource{Kind: SourceLabels}
	}

	return cfg, nil
}

func configError(message string) *middleware.Error {
	return middleware.ConfigError(message)
}

// fromMiddlewareSettings reads a Config out of a settings.MiddlewareConfig's
// free-form Settings map. Settings keys mirror the Docker label field
// names after settings.MergeDockerLabels's snake_case translation ("basic_auth.users",
// "basic_auth.realm", "basic_auth.source", "basic_auth.htpasswd.path",
// "basic_auth.env.name", "basic_auth.secret.name"), so a config loaded
// from a JSON/TOML file and one merged from labels are read the same way.
func fromMiddlewareSettings(mw settings.MiddlewareConfig) (Config, error) {
	cfg := Config{
		Users:  map[string]string{},
		Realm:  defaultRealm,
		Source: AuthSource{Kind: SourceLabels},
	}

	get := func(key string) string {
		v, ok := mw.Settings["basic_auth."+key]
		if !ok {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	if users := get("users"); users != "" {
		for _, entry := range strings.Split(users, ",") {
			username, password, found := strings.Cut(strings.TrimSpace(entry), ":")
			if !found {
				continue
			}
			cfg.Users[strings.TrimSpace(username)] = strings.TrimSpace(password)
		}
	}

	if realm := get("realm"); realm != "" {
		cfg.Realm = realm
	}

	switch strings.ToLower(get("source")) {
	case "htpasswd":
		cfg.Source = AuthSource{Kind: SourceHtpasswdFile, Path: get("htpasswd.path")}
	case "env":
		cfg.Source = AuthSource{Kind: SourceEnvVar, Path: get("env.name")}
	case "secret":
		cfg.Source = AuthSource{Kind: SourceDockerSecret, Path: get("secret.name")}
	default:
		cfg.Source = AuthSource{Kind: SourceLabels}
	}

	return cfg, nil
}
