package basicauth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	httpauth "github.com/abbot/go-http-auth"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator verifies a username/password pair against a credential
// store. Implementations load their store once at construction time;
// VerifyCredentials never touches disk or the environment itself.
type Authenticator interface {
	VerifyCredentials(username, password string) bool
}

// mapAuthenticator verifies against an in-memory username->hash map,
// supporting both apache htpasswd hash formats (apr1, crypt, SHA) via
// go-http-auth and bcrypt hashes (identified by their $2a$/$2b$/$2y$
// prefix) via golang.org/x/crypto/bcrypt.
type mapAuthenticator struct {
	users map[string]string
}

func (a *mapAuthenticator) VerifyCredentials(username, password string) bool {
	hash, ok := a.users[username]
	if !ok {
		return false
	}
	return verifyPassword(password, hash)
}

func verifyPassword(password, hash string) bool {
	if strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return httpauth.CheckSecret(password, hash)
}

// CreateAuthenticator builds the Authenticator for cfg.Source, loading
// credentials from wherever the source names. Every AuthSourceKind
// spec.md names is implemented, including EnvVar and DockerSecret.
func CreateAuthenticator(cfg Config) (Authenticator, error) {
	switch cfg.Source.Kind {
	case SourceLabels:
		return &mapAuthenticator{users: cfg.Users}, nil

	case SourceHtpasswdFile, SourceDockerSecret:
		users, err := loadHtpasswdFile(cfg.Source.Path)
		if err != nil {
			return nil, configError(fmt.Sprintf("basic auth: loading credential file %q: %v", cfg.Source.Path, err))
		}
		return &mapAuthenticator{users: users}, nil

	case SourceEnvVar:
		raw := os.Getenv(cfg.Source.Path)
		if raw == "" {
			return nil, configError(fmt.Sprintf("basic auth: environment variable %q is empty or unset", cfg.Source.Path))
		}
		users, err := parseHtpasswdLines(strings.NewReader(raw))
		if err != nil {
			return nil, configError(fmt.Sprintf("basic auth: parsing %q: %v", cfg.Source.Path, err))
		}
		return &mapAuthenticator{users: users}, nil

	default:
		return nil, configError("basic auth: unsupported auth source")
	}
}

// loadHtpasswdFile reads an apache-htpasswd-format file: one
// "user:hash" pair per line, '#'-prefixed lines and blank lines
// ignored.
func loadHtpasswdFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseHtpasswdLines(f)
}

func parseHtpasswdLines(r io.Reader) (map[string]string, error) {
	users := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		username, hash, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		users[strings.TrimSpace(username)] = strings.TrimSpace(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
