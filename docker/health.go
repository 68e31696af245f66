package docker

import (
	"context"
	"net"
	"net/http"
	"time"
)

// HealthStatus classifies the outcome of one health probe.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Unhealthy
)

func (s HealthStatus) String() string {
	if s == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// HealthCheckResult is the outcome of a single probe.
type HealthCheckResult struct {
	Status    HealthStatus
	Message   string
	Timestamp time.Time
}

// HealthChecker probes a backend address and reports its status. Health
// checks are advisory only: results don't remove a backend from rotation
// in this core, they only feed logging/metrics.
type HealthChecker interface {
	Check(ctx context.Context) (HealthCheckResult, error)
}

// HTTPHealthChecker probes an address with an HTTP request, succeeding
// when the response status matches ExpectedStatus.
type HTTPHealthChecker struct {
	Addr           string
	Path           string
	Method         string
	ExpectedStatus int
	Timeout        time.Duration

	client *http.Client
}

// NewHTTPHealthChecker builds an HTTP health checker for addr.
func NewHTTPHealthChecker(addr, path, method string, expectedStatus int, timeout time.Duration) *HTTPHealthChecker {
	if method == "" {
		method = http.MethodGet
	}
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}
	return &HTTPHealthChecker{
		Addr:           addr,
		Path:           path,
		Method:         method,
		ExpectedStatus: expectedStatus,
		Timeout:        timeout,
		client:         &http.Client{Timeout: timeout},
	}
}

func (h *HTTPHealthChecker) Check(ctx context.Context) (HealthCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	url := "http://" + h.Addr + h.Path
	req, err := http.NewRequestWithContext(ctx, h.Method, url, nil)
	if err != nil {
		return HealthCheckResult{}, containerConfigError("unknown", "invalid health check request: "+err.Error())
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return HealthCheckResult{Status: Unhealthy, Message: err.Error(), Timestamp: time.Now()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != h.ExpectedStatus {
		return HealthCheckResult{
			Status:    Unhealthy,
			Message:   "unexpected status code",
			Timestamp: time.Now(),
		}, nil
	}

	return HealthCheckResult{Status: Healthy, Message: "ok", Timestamp: time.Now()}, nil
}

// TCPHealthChecker probes an address by attempting a bare TCP connection.
type TCPHealthChecker struct {
	Addr    string
	Timeout time.Duration
}

// NewTCPHealthChecker builds a TCP health checker for addr.
func NewTCPHealthChecker(addr string, timeout time.Duration) *TCPHealthChecker {
	return &TCPHealthChecker{Addr: addr, Timeout: timeout}
}

func (t *TCPHealthChecker) Check(ctx context.Context) (HealthCheckResult, error) {
	d := net.Dialer{Timeout: t.Timeout}
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return HealthCheckResult{Status: Unhealthy, Message: err.Error(), Timestamp: time.Now()}, nil
	}
	conn.Close()
	return HealthCheckResult{Status: Healthy, Message: "ok", Timestamp: time.Now()}, nil
}

// BackendHealth tracks the consecutive-failure count for one backend
// address across repeated probes.
type BackendHealth struct {
	Addr                string
	ConsecutiveFailures int
	Last                HealthCheckResult
}

// Record updates the tracker with the outcome of one probe.
func (h *BackendHealth) Record(result HealthCheckResult) {
	h.Last = result
	if result.Status == Healthy {
		h.ConsecutiveFailures = 0
	} else {
		h.ConsecutiveFailures++
	}
}

// Unhealthy reports whether the backend has failed at least maxFailures
// consecutive probes.
func (h *BackendHealth) Unhealthy(maxFailures int) bool {
	return h.ConsecutiveFailures >= maxFailures
}

// RunPeriodic runs checker every interval until ctx is canceled, recording
// each outcome in health and then passing it to onResult.
func RunPeriodic(ctx context.Context, checker HealthChecker, interval time.Duration, health *BackendHealth, onResult func(HealthCheckResult)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := checker.Check(ctx)
			if err != nil {
				result = HealthCheckResult{Status: Unhealthy, Message: err.Error(), Timestamp: time.Now()}
			}
			health.Record(result)
			if onResult != nil {
				onResult(result)
			}
		}
	}
}
