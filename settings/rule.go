package settings

import (
	"fmt"
	"strings"
)

// ParseRule extracts the host and path pattern a ValidRule's
// "Host(`...`)" and optional "PathPrefix(`...`)"/"Path(`...`)" clauses
// select. Only the first Host clause and first Path-like clause are
// honored: the routing table keys on exactly one host and one path
// pattern per route, unlike a full boolean rule evaluator.
func ParseRule(rule ValidRule) (host, pathPattern string, err error) {
	pathPattern = "/"
	pathSeen := false

	for _, clause := range splitClauses(rule.value) {
		name, arg, ok := parseClause(clause)
		if !ok {
			continue
		}
		switch name {
		case "Host":
			if host == "" {
				host = arg
			}
		case "Path":
			if !pathSeen {
				pathPattern, pathSeen = arg, true
			}
		case "PathPrefix":
			if !pathSeen {
				pathPattern, pathSeen = strings.TrimSuffix(arg, "/")+"*", true
			}
		}
	}

	if host == "" {
		return "", "", fmt.Errorf("rule %q has no Host(...) clause", rule.value)
	}
	return host, pathPattern, nil
}

// parseClause splits one "Name(`arg`)" clause into its name and
// backtick-unquoted argument.
func parseClause(clause string) (name, arg string, ok bool) {
	openIdx := strings.IndexByte(clause, '(')
	if openIdx < 0 {
		return "", "", false
	}
	closeIdx := strings.LastIndexByte(clause, ')')
	if closeIdx <= openIdx {
		return "", "", false
	}
	name = strings.TrimSpace(clause[:openIdx])
	arg = strings.Trim(clause[openIdx+1:closeIdx], "`")
	return name, arg, true
}
