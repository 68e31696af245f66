package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoogokok/roxy/metrics"
	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/routing"
	"github.com/hoogokok/roxy/settings"
)

func silentLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func noopManager() *middleware.Manager {
	return middleware.NewManager(nil, nil, silentLog())
}

func newHandlerForTest(t *testing.T, table *routing.RoutingTable, mw *middleware.Manager) *RequestHandler {
	t.Helper()
	return NewRequestHandler(table, mw, NewForwarder(nil), metrics.NewMetrics(prometheus.NewRegistry()), silentLog())
}

func TestServeHTTPRoutesToBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello from upstream"))
	}))
	defer backend.Close()

	table := routing.NewRoutingTable()
	table.AddRoute("example.com", routing.MustPathMatcher("/"), backendAddr(t, backend.URL))

	h := newHandlerForTest(t, table, noopManager())

	req := httptest.NewRequest(http.MethodGet, "http://example.com/anything", nil)
	req.Host = "example.com"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Upstream"))
	assert.Equal(t, "hello from upstream", rec.Body.String())
}

func TestServeHTTPRecordsRequestMetrics(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	table := routing.NewRoutingTable()
	table.AddRouteWithRouter("example.com", routing.MustPathMatcher("/"), backendAddr(t, backend.URL), "api")

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	h := NewRequestHandler(table, noopManager(), NewForwarder(nil), m, silentLog())

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Host = "example.com"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var metric dto.Metric
	require.NoError(t, m.RequestsTotal.WithLabelValues("api", "2xx").Write(&metric))
	assert.Equal(t, float64(1), metric.GetCounter().GetValue())
}

func TestServeHTTPUnknownHostReturns404(t *testing.T) {
	table := routing.NewRoutingTable()
	h := newHandlerForTest(t, table, noopManager())

	req := httptest.NewRequest(http.MethodGet, "http://nowhere.example/", nil)
	req.Host = "nowhere.example"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeHTTPMissingHostReturns400(t *testing.T) {
	table := routing.NewRoutingTable()
	h := newHandlerForTest(t, table, noopManager())

	req := httptest.NewRequest(http.MethodGet, "http://placeholder/", nil)
	req.Host = ""
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPBadGatewayOnUpstreamFailure(t *testing.T) {
	table := routing.NewRoutingTable()
	table.AddRoute("example.com", routing.MustPathMatcher("/"), "127.0.0.1:1")

	h := newHandlerForTest(t, table, noopManager())

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Host = "example.com"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServeHTTPMiddlewareShortCircuitsPreflight(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should never be reached for a preflight short-circuit")
	}))
	defer backend.Close()

	table := routing.NewRoutingTable()
	table.AddRouteWithRouter("example.com", routing.MustPathMatcher("/"), backendAddr(t, backend.URL), "api")

	configs := map[string]settings.MiddlewareConfig{
		"api-cors": {Enabled: true, Settings: map[string]any{
			"cors.allowOrigins": "https://allowed.example",
		}},
	}
	mw := middleware.NewManager(configs, stubCORSFactory, silentLog())

	h := newHandlerForTest(t, table, mw)

	req := httptest.NewRequest(http.MethodOptions, "http://example.com/", nil)
	req.Host = "example.com"
	req.Header.Set("Origin", "https://allowed.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeHTTPMiddlewareRejectsInvalidAuth(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should never be reached when auth fails")
	}))
	defer backend.Close()

	table := routing.NewRoutingTable()
	table.AddRouteWithRouter("example.com", routing.MustPathMatcher("/"), backendAddr(t, backend.URL), "api")

	configs := map[string]settings.MiddlewareConfig{
		"api-basic-auth": {Enabled: true},
	}
	mw := middleware.NewManager(configs, stubRejectingFactory, silentLog())

	h := newHandlerForTest(t, table, mw)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Host = "example.com"
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="stub"`, rec.Header().Get("WWW-Authenticate"))
}

// backendAddr extracts the host:port portion of an httptest.Server URL.
func backendAddr(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Host
}

// stubCORSFactory builds a minimal preflight-only middleware, avoiding a
// dependency from this package on middleware/cors.
func stubCORSFactory(name string, cfg settings.MiddlewareConfig) (middleware.Middleware, error) {
	allowed, _ := cfg.Settings["cors.allowOrigins"].(string)
	return &stubCORS{allowed: allowed}, nil
}

type stubCORS struct {
	middleware.Base
	allowed string
}

func (s *stubCORS) Kind() string { return "cors" }

func (s *stubCORS) HandleRequest(req *http.Request) (*http.Request, error) {
	if req.Method != http.MethodOptions {
		return req, nil
	}
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
	resp.Header.Set("Access-Control-Allow-Origin", s.allowed)
	return req, middleware.PreflightResponse(resp)
}

// stubRejectingFactory builds a middleware that always rejects with a
// pre-built 401, exercising the middleware.Error.Response pass-through path.
func stubRejectingFactory(name string, cfg settings.MiddlewareConfig) (middleware.Middleware, error) {
	return &stubAuth{}, nil
}

type stubAuth struct{ middleware.Base }

func (s *stubAuth) Kind() string { return "basic-auth" }

func (s *stubAuth) HandleRequest(req *http.Request) (*http.Request, error) {
	resp := &http.Response{
		StatusCode: http.StatusUnauthorized,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
	resp.Header.Set("WWW-Authenticate", `Basic realm="stub"`)
	err := middleware.InvalidAuth("missing credentials")
	err.Response = resp
	return req, err
}
