package routing

import (
	"net/http"
	"sync"
)

// routeKey is the comparable map key for one routing table entry: a host
// name paired with the comparable projection of its PathMatcher.
type routeKey struct {
	host    string
	matcher matcherKey
}

// entry pairs a live PathMatcher (for Matches/String, not comparable itself)
// with its backend, so route_request can iterate candidates for a host
// without reconstructing matchers from the key alone.
type entry struct {
	matcher PathMatcher
	backend *BackendService
}

// RoutingTable is the in-memory routing plane: a host+path keyed map to
// backend services, safe for concurrent readers (request handling) and a
// single writer (the discovery consumer). Readers never block each other;
// a writer excludes both readers and other writers for the duration of the
// mutation.
type RoutingTable struct {
	mu      sync.RWMutex
	entries map[routeKey]*entry
	byHost  map[string][]routeKey
}

// NewRoutingTable returns an empty routing table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{
		entries: make(map[routeKey]*entry),
		byHost:  make(map[string][]routeKey),
	}
}

// AddRoute inserts or merges a (host, matcher) -> address mapping. If the
// key already exists, the backend is upgraded to (or kept as) a load
// balancer and the new address is added with weight 1; otherwise a new
// single-address backend is inserted.
func (t *RoutingTable) AddRoute(host string, matcher PathMatcher, addr string) {
	t.AddRouteWithRouter(host, matcher, addr, "")
}

// AddRouteWithRouter is AddRoute, additionally recording the router name
// a newly-created backend belongs to (see docker's RouterName label),
// which the middleware manager uses to select that backend's chain.
func (t *RoutingTable) AddRouteWithRouter(host string, matcher PathMatcher, addr, routerName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addRouteLocked(host, matcher, addr, routerName)
}

func (t *RoutingTable) addRouteLocked(host string, matcher PathMatcher, addr, routerName string) {
	key := routeKey{host: host, matcher: matcher.key()}

	if e, ok := t.entries[key]; ok {
		if e.backend.strategy == none {
			e.backend.EnableLoadBalancer(RoundRobin)
		}
		_ = e.backend.AddAddress(addr, 1)
		if routerName != "" {
			e.backend.RouterName = routerName
		}
		return
	}

	backend := NewBackendService(addr)
	backend.RouterName = routerName
	t.entries[key] = &entry{matcher: matcher, backend: backend}
	t.byHost[host] = append(t.byHost[host], key)
}

// RemoveRoute deletes every entry registered for host.
func (t *RoutingTable) RemoveRoute(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, key := range t.byHost[host] {
		delete(t.entries, key)
	}
	delete(t.byHost, host)
}

// DockerRoute describes one route to install via SyncDockerRoutes.
type DockerRoute struct {
	Host       string
	Matcher    PathMatcher
	Addr       string
	RouterName string
}

// SyncDockerRoutes atomically replaces the entire routing table with the
// given set of routes, built fresh under merge semantics identical to a
// sequence of AddRoute calls. This is the operation the discovery consumer
// uses after a full reconciliation.
func (t *RoutingTable) SyncDockerRoutes(routes []DockerRoute) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[routeKey]*entry)
	t.byHost = make(map[string][]routeKey)

	for _, r := range routes {
		t.addRouteLocked(r.Host, r.Matcher, r.Addr, r.RouterName)
	}
}

// RouteRequest resolves an inbound HTTP request to a backend, returning the
// matched path pattern alongside it for logging/metrics.
func (t *RoutingTable) RouteRequest(req *http.Request) (*BackendService, string, error) {
	hostHeader := req.Host
	if hostHeader == "" {
		hostHeader = req.Header.Get("Host")
	}

	info, err := ParseHostHeader(hostHeader)
	if err != nil {
		return nil, "", err
	}

	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	keys, ok := t.byHost[info.Name]
	if !ok || len(keys) == 0 {
		return nil, "", backendNotFound(info.Name, t.availableRoutesLocked())
	}

	for _, key := range keys {
		e := t.entries[key]
		if e == nil {
			continue
		}
		if !e.matcher.Matches(path) {
			continue
		}
		if info.Port != "" && !e.backend.hasAddressWithPort(info.Port) && len(e.backend.addresses) > 0 {
			// A port was specified on the Host header but no configured
			// address for this route serves it; keep searching other
			// matchers for the same host before giving up.
			continue
		}
		return e.backend, e.matcher.Pattern(), nil
	}

	return nil, "", backendNotFound(info.Name, t.availableRoutesLocked())
}

// availableRoutesLocked renders the current route set for error reporting.
// Caller must hold t.mu (read or write).
func (t *RoutingTable) availableRoutesLocked() []string {
	out := make([]string, 0, len(t.entries))
	for key, e := range t.entries {
		out = append(out, key.host+":"+e.matcher.String())
	}
	return out
}
