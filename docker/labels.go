package docker

import (
	"strconv"

	"github.com/hoogokok/roxy/routing"
)

// DefaultLabelPrefix is the Docker label namespace container-based
// discovery reads from by default: "rproxy.host", "rproxy.port",
// "rproxy.path", "rproxy.router". This is deliberately distinct from
// settings.LabelPrefix ("rproxy.http."), the fixed namespace declarative
// middleware/router/service labels use; the two never collide since one
// ends in "http." and the other doesn't.
const DefaultLabelPrefix = "rproxy."

// ContainerInfo is the pure, immutable result of extracting routing intent
// from one container's labels and network settings.
type ContainerInfo struct {
	Host        string
	Addr        string
	PathMatcher routing.PathMatcher
	RouterName  string
}

// ContainerSummary is the subset of a container-runtime client's container
// record this package needs, kept narrow so the real Docker Engine API
// client can be adapted to it without this package importing it directly.
type ContainerSummary struct {
	ID     string
	Labels map[string]string
	// NetworkIPs maps network name to the container's IP address on that
	// network, mirroring the multiple-network membership a real container
	// can have.
	NetworkIPs map[string]string
}

// LabelExtractor is a pure transform from a container record to routing
// intent: {host, ip:port, path-matcher, router-name}.
type LabelExtractor struct {
	NetworkName string
	LabelPrefix string
}

// NewLabelExtractor returns an extractor reading networkName for container
// IPs and labelPrefix (e.g. DefaultLabelPrefix) for routing labels.
func NewLabelExtractor(networkName, labelPrefix string) *LabelExtractor {
	if labelPrefix == "" {
		labelPrefix = DefaultLabelPrefix
	}
	return &LabelExtractor{NetworkName: networkName, LabelPrefix: labelPrefix}
}

// Extract derives ContainerInfo from one container's labels and network
// settings. It fails if the host label is missing or the container has no
// address on the configured network.
func (e *LabelExtractor) Extract(c ContainerSummary) (ContainerInfo, error) {
	host, ok := c.Labels[e.LabelPrefix+"host"]
	if !ok || host == "" {
		return ContainerInfo{}, containerConfigError(containerID(c.ID), "host label missing")
	}

	port := 80
	if raw, ok := c.Labels[e.LabelPrefix+"port"]; ok {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}

	ip, ok := c.NetworkIPs[e.NetworkName]
	if !ok || ip == "" {
		return ContainerInfo{}, &DockerError{
			Kind:        ErrNetwork,
			ContainerID: containerID(c.ID),
			Network:     e.NetworkName,
			Reason:      "no IP address found on configured network",
		}
	}

	addr := ip + ":" + strconv.Itoa(port)

	matcher, err := e.extractPathMatcher(c.Labels)
	if err != nil {
		return ContainerInfo{}, addressParseError(containerID(c.ID), addr, e.NetworkName, err.Error())
	}

	return ContainerInfo{
		Host:        host,
		Addr:        addr,
		PathMatcher: matcher,
		RouterName:  c.Labels[e.LabelPrefix+"router"],
	}, nil
}

// extractPathMatcher reads {prefix}path / {prefix}path.type, defaulting to
// an exact match, a regex match (prefix "^"), or a prefix match (suffix
// "*") depending on path.type, matching spec.md's label-to-pattern rule.
func (e *LabelExtractor) extractPathMatcher(labels map[string]string) (routing.PathMatcher, error) {
	path, ok := labels[e.LabelPrefix+"path"]
	if !ok {
		return routing.MustPathMatcher("/"), nil
	}

	pattern := path
	switch labels[e.LabelPrefix+"path.type"] {
	case "regex":
		pattern = "^" + path
	case "prefix":
		pattern = path + "*"
	}

	return routing.NewPathMatcher(pattern)
}

func containerID(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
