package routing

import (
	"strconv"
	"strings"
)

// HostInfo is the parsed form of an incoming request's Host header, split
// into the bare host name, an optional port, and (when present in the raw
// header, which some clients fold the request path into) an optional path.
type HostInfo struct {
	Name string
	Port string
	Path string
}

// ParseHostHeader parses the raw value of a request's Host header into a
// HostInfo. It rejects an empty name, a trailing colon with no port, and a
// port outside 1-65535.
func ParseHostHeader(raw string) (HostInfo, error) {
	if raw == "" {
		return HostInfo{}, missingHost()
	}

	host := raw
	var path string
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		path = host[idx:]
		host = host[:idx]
	}

	name := host
	port := ""
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		name = host[:idx]
		port = host[idx+1:]
		if port == "" {
			return HostInfo{}, invalidHost(raw, "trailing colon with no port")
		}
	}

	if name == "" {
		return HostInfo{}, invalidHost(raw, "empty host name")
	}

	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return HostInfo{}, invalidPort(port, "not a number")
		}
		if n < 1 || n > 65535 {
			return HostInfo{}, invalidPort(port, "out of range 1-65535")
		}
	}

	return HostInfo{Name: name, Port: port, Path: path}, nil
}
