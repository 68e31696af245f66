// Package settings implements the proxy's typed configuration model: the
// "parse, don't validate" newtypes described for rule/id/version/URL
// strings, the per-entity config structs, cross-entity reference checking,
// and the merge of file, environment, and container-label config sources.
package settings

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidServiceId is a service identifier guaranteed to satisfy the naming
// rules (non-empty, alphanumeric/dash/underscore only).
type ValidServiceId struct{ value string }

// NewValidServiceId validates id and wraps it, or returns an error.
func NewValidServiceId(id string) (ValidServiceId, error) {
	if !idPattern.MatchString(id) {
		return ValidServiceId{}, fmt.Errorf("invalid service id %q", id)
	}
	return ValidServiceId{value: id}, nil
}

func (v ValidServiceId) String() string { return v.value }

// ValidMiddlewareId is a middleware identifier guaranteed to satisfy the
// naming rules.
type ValidMiddlewareId struct{ value string }

// NewValidMiddlewareId validates id and wraps it, or returns an error.
func NewValidMiddlewareId(id string) (ValidMiddlewareId, error) {
	if !idPattern.MatchString(id) {
		return ValidMiddlewareId{}, fmt.Errorf("invalid middleware id %q", id)
	}
	return ValidMiddlewareId{value: id}, nil
}

func (v ValidMiddlewareId) String() string { return v.value }

// ValidRouterId is a router identifier guaranteed to satisfy the naming
// rules.
type ValidRouterId struct{ value string }

// NewValidRouterId validates id and wraps it, or returns an error.
func NewValidRouterId(id string) (ValidRouterId, error) {
	if !idPattern.MatchString(id) {
		return ValidRouterId{}, fmt.Errorf("invalid router id %q", id)
	}
	return ValidRouterId{value: id}, nil
}

func (v ValidRouterId) String() string { return v.value }

// ValidRule is a router matching rule (e.g. "Host(`example.com`) &&
// PathPrefix(`/api`)") guaranteed to have balanced parentheses, balanced
// backticks overall, and at least one matched backtick pair inside every
// parenthesized clause split on "&&"/"||".
type ValidRule struct{ value string }

// NewValidRule validates rule and wraps it, or returns an error.
func NewValidRule(rule string) (ValidRule, error) {
	if rule == "" {
		return ValidRule{}, fmt.Errorf("rule must not be empty")
	}

	depth := 0
	for _, c := range rule {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return ValidRule{}, fmt.Errorf("unbalanced parentheses in rule %q", rule)
			}
		}
	}
	if depth != 0 {
		return ValidRule{}, fmt.Errorf("unbalanced parentheses in rule %q", rule)
	}

	if strings.Count(rule, "`")%2 != 0 {
		return ValidRule{}, fmt.Errorf("unbalanced backticks in rule %q", rule)
	}

	parts := splitClauses(rule)
	for _, part := range parts {
		openIdx := strings.IndexByte(part, '(')
		if openIdx < 0 {
			continue
		}
		closeIdx := strings.LastIndexByte(part, ')')
		if closeIdx <= openIdx {
			return ValidRule{}, fmt.Errorf("unbalanced parentheses in clause %q", part)
		}

		content := part[openIdx+1 : closeIdx]
		if strings.Count(content, "`") < 2 {
			return ValidRule{}, fmt.Errorf("clause %q missing backtick-quoted argument", part)
		}

		inPair := false
		for _, c := range content {
			if c == '`' {
				inPair = !inPair
			}
		}
		if inPair {
			return ValidRule{}, fmt.Errorf("unbalanced backticks in clause %q", part)
		}
	}

	return ValidRule{value: rule}, nil
}

// splitClauses splits a rule on "&&" and "||", trimming whitespace, the way
// the router evaluates top-level boolean combinators.
func splitClauses(rule string) []string {
	var parts []string
	for _, andPart := range strings.Split(rule, "&&") {
		for _, orPart := range strings.Split(andPart, "||") {
			parts = append(parts, strings.TrimSpace(orPart))
		}
	}
	return parts
}

func (v ValidRule) String() string { return v.value }

// Version is a dot-separated 1-3 component non-negative integer version
// string ("1", "1.0", "1.0.0"), rejecting leading zeros (other than a bare
// "0" component), negative numbers, and non-numeric components.
type Version struct{ value string }

// NewVersion validates version and wraps it, or returns an error.
func NewVersion(version string) (Version, error) {
	if version == "" {
		return Version{}, fmt.Errorf("version must not be empty")
	}

	parts := strings.Split(version, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("version %q has more than 3 components", version)
	}

	for _, part := range parts {
		if part == "" {
			return Version{}, fmt.Errorf("version %q has an empty component", version)
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return Version{}, fmt.Errorf("version %q has a non-numeric component", version)
			}
		}
		if len(part) > 1 && part[0] == '0' {
			return Version{}, fmt.Errorf("version %q has a leading zero", version)
		}
	}

	return Version{value: version}, nil
}

func (v Version) String() string { return v.value }

func (v Version) component(n int) uint32 {
	parts := strings.Split(v.value, ".")
	if n >= len(parts) {
		return 0
	}
	val, err := strconv.ParseUint(parts[n], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(val)
}

// Major returns the version's major component, 0 if absent.
func (v Version) Major() uint32 { return v.component(0) }

// Minor returns the version's minor component, 0 if absent.
func (v Version) Minor() uint32 { return v.component(1) }

// Patch returns the version's patch component, 0 if absent.
func (v Version) Patch() uint32 { return v.component(2) }

// ValidUrl is an absolute http/https URL with a non-empty host.
type ValidUrl struct {
	value  string
	parsed *url.URL
}

// NewValidUrl validates raw and wraps it, or returns an error.
func NewValidUrl(raw string) (ValidUrl, error) {
	if raw == "" {
		return ValidUrl{}, fmt.Errorf("url must not be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ValidUrl{}, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidUrl{}, fmt.Errorf("url %q has unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return ValidUrl{}, fmt.Errorf("url %q has no host", raw)
	}

	return ValidUrl{value: raw, parsed: u}, nil
}

func (v ValidUrl) String() string { return v.value }

// Host returns the URL's hostname, without port.
func (v ValidUrl) Host() string { return v.parsed.Hostname() }

// Port returns the URL's port, or "" if not specified.
func (v ValidUrl) Port() string { return v.parsed.Port() }

// Path returns the URL's path component.
func (v ValidUrl) Path() string { return v.parsed.Path }

// ValidPort is a TCP port number in the range 1-65535.
type ValidPort struct{ value int }

// NewValidPort validates port and wraps it, or returns an error.
func NewValidPort(port int) (ValidPort, error) {
	if port < 1 || port > 65535 {
		return ValidPort{}, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return ValidPort{value: port}, nil
}

func (v ValidPort) Int() int { return v.value }
