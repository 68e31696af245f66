// Package docker implements container-based service discovery: extracting
// routes from container labels, a discovery loop that reconciles the
// routing table against lifecycle events, retrying transient daemon
// errors, and optional per-backend health checks. The container-runtime
// client itself is abstracted behind the Client interface; EngineClient
// adapts it to the Docker Engine API over a Unix socket.
package docker

import (
	"fmt"
	"strings"
)

// DockerErrorKind classifies a DockerError for retry and logging policy.
type DockerErrorKind int

const (
	ErrConnection DockerErrorKind = iota
	ErrListContainers
	ErrContainerConfig
	ErrAddressParse
	ErrNetwork
	ErrBackend
)

// DockerError is the typed error returned by discovery operations.
type DockerError struct {
	Kind        DockerErrorKind
	ContainerID string
	Address     string
	Network     string
	Reason      string
	Context     string
	Cause       error
}

func (e *DockerError) Error() string {
	switch e.Kind {
	case ErrConnection:
		return fmt.Sprintf("docker daemon connection failed (%s): %v", e.Context, e.Cause)
	case ErrListContainers:
		return fmt.Sprintf("list containers failed (%s): %v", e.Context, e.Cause)
	case ErrContainerConfig:
		return fmt.Sprintf("container %s config error: %s", e.ContainerID, e.Reason)
	case ErrAddressParse:
		return fmt.Sprintf("container %s network %s address %q parse failed: %s", e.ContainerID, e.Network, e.Address, e.Reason)
	case ErrNetwork:
		return fmt.Sprintf("container %s network %s error: %s", e.ContainerID, e.Network, e.Reason)
	case ErrBackend:
		return fmt.Sprintf("backend service error (container %s): %s", e.ContainerID, e.Reason)
	default:
		return "unknown docker error"
	}
}

func (e *DockerError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the discovery loop should retry the
// operation that produced this error: connection errors always are;
// network errors are only when the reason text indicates a transient
// condition (timeout, connection refused, service unavailable).
func (e *DockerError) IsRetryable() bool {
	switch e.Kind {
	case ErrConnection:
		return true
	case ErrNetwork:
		reason := strings.ToLower(e.Reason)
		return strings.Contains(reason, "timeout") ||
			strings.Contains(reason, "connection refused") ||
			strings.Contains(reason, "service unavailable")
	default:
		return false
	}
}

func connectionError(context string, cause error) *DockerError {
	return &DockerError{Kind: ErrConnection, Context: context, Cause: cause}
}

func listContainersError(context string, cause error) *DockerError {
	return &DockerError{Kind: ErrListContainers, Context: context, Cause: cause}
}

func containerConfigError(containerID, reason string) *DockerError {
	return &DockerError{Kind: ErrContainerConfig, ContainerID: containerID, Reason: reason}
}

func addressParseError(containerID, address, network, reason string) *DockerError {
	return &DockerError{Kind: ErrAddressParse, ContainerID: containerID, Address: address, Network: network, Reason: reason}
}
