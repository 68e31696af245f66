package routing

import (
	"regexp"
	"strings"
)

// PathMatcherKind classifies how a PathMatcher's pattern is interpreted.
type PathMatcherKind int

const (
	// Exact requires an identical path.
	Exact PathMatcherKind = iota
	// Prefix matches the pattern itself or the pattern plus a "/..." suffix.
	Prefix
	// Regex matches by a compiled regular expression.
	Regex
)

func (k PathMatcherKind) String() string {
	switch k {
	case Exact:
		return "Exact"
	case Prefix:
		return "Prefix"
	case Regex:
		return "Regex"
	default:
		return "Unknown"
	}
}

// PathMatcher classifies a path pattern as exact, prefix, or regex and
// answers whether a request path satisfies it. Matchers are immutable once
// built. Two regex matchers built from the same pattern hold different
// compiled regexps and so are not == to each other; the routing table keys
// routes on key(), which depends on (kind, pattern) alone.
type PathMatcher struct {
	kind    PathMatcherKind
	pattern string
	re      *regexp.Regexp
}

// NewPathMatcher builds a PathMatcher from a pattern string, classifying it
// by the same precedence the routing table uses when evaluating a request:
// a pattern starting with "^" is a regex, one ending in "*" is a prefix
// (with the trailing "*" stripped), anything else is an exact match.
func NewPathMatcher(pattern string) (PathMatcher, error) {
	if strings.HasPrefix(pattern, "^") {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return PathMatcher{}, &RoutingError{
				Kind:    ErrInvalidPathPattern,
				Pattern: pattern,
				Reason:  err.Error(),
			}
		}
		return PathMatcher{kind: Regex, pattern: pattern, re: re}, nil
	}

	if strings.HasSuffix(pattern, "*") {
		return PathMatcher{kind: Prefix, pattern: strings.TrimSuffix(pattern, "*")}, nil
	}

	return PathMatcher{kind: Exact, pattern: pattern}, nil
}

// MustPathMatcher is NewPathMatcher but panics on an invalid pattern; it is
// meant for constant patterns known at compile time (e.g. the default "/").
func MustPathMatcher(pattern string) PathMatcher {
	m, err := NewPathMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Kind returns the matcher's classification.
func (m PathMatcher) Kind() PathMatcherKind { return m.kind }

// Pattern returns the matcher's literal source pattern (post "*"-stripping
// for Prefix matchers, as originally supplied for Exact/Regex).
func (m PathMatcher) Pattern() string { return m.pattern }

// Matches reports whether path satisfies the matcher. The pattern "/"
// matches any path, regardless of kind.
func (m PathMatcher) Matches(path string) bool {
	if m.pattern == "/" {
		return true
	}

	switch m.kind {
	case Exact:
		return m.pattern == path
	case Prefix:
		pattern := strings.TrimSuffix(m.pattern, "/")
		trimmedPath := strings.TrimSuffix(path, "/")
		return trimmedPath == pattern || strings.HasPrefix(trimmedPath, pattern+"/")
	case Regex:
		if m.re == nil {
			return false
		}
		return m.re.MatchString(path)
	default:
		return false
	}
}

// String renders a debug form used in RoutingError.AvailableRoutes entries.
func (m PathMatcher) String() string {
	return m.kind.String() + "(" + m.pattern + ")"
}

// key is the comparable, hashable form of a PathMatcher usable as (part of)
// a map key. regexp.Regexp is not comparable, so the key is derived from
// kind+pattern alone, which is sufficient since two matchers built from the
// same pattern always classify identically.
type matcherKey struct {
	kind    PathMatcherKind
	pattern string
}

func (m PathMatcher) key() matcherKey {
	return matcherKey{kind: m.kind, pattern: m.pattern}
}
