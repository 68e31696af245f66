package docker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHealthCheckerHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewHTTPHealthChecker(srv.Listener.Addr().String(), "/", "", 0, time.Second)
	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Healthy, result.Status)
}

func TestHTTPHealthCheckerUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := NewHTTPHealthChecker(srv.Listener.Addr().String(), "/", "", 0, time.Second)
	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unhealthy, result.Status)
}

func TestTCPHealthCheckerUnreachable(t *testing.T) {
	checker := NewTCPHealthChecker("127.0.0.1:1", 100*time.Millisecond)
	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unhealthy, result.Status)
}

func TestBackendHealthConsecutiveFailures(t *testing.T) {
	h := &BackendHealth{Addr: "10.0.0.1:80"}
	h.Record(HealthCheckResult{Status: Unhealthy})
	h.Record(HealthCheckResult{Status: Unhealthy})
	assert.False(t, h.Unhealthy(3))

	h.Record(HealthCheckResult{Status: Unhealthy})
	assert.True(t, h.Unhealthy(3))

	h.Record(HealthCheckResult{Status: Healthy})
	assert.Equal(t, 0, h.ConsecutiveFailures)
	assert.False(t, h.Unhealthy(1))
}
