package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDockerLabels(t *testing.T) {
	labels := map[string]string{
		"rproxy.http.middlewares.cors.type":             "cors",
		"rproxy.http.middlewares.cors.enabled":           "true",
		"rproxy.http.routers.api.rule":                   "Host(`test.localhost`)",
		"rproxy.http.routers.api.service":                "api_service",
		"rproxy.http.routers.api.middlewares":            "cors,auth",
		"rproxy.http.services.api_service.loadbalancer.server.url": "http://10.0.0.5:8080",
	}

	cfg := &Config{Version: "1.0"}
	MergeDockerLabels(cfg, labels)

	require.Contains(t, cfg.Middlewares, "cors")
	assert.Equal(t, "cors", cfg.Middlewares["cors"].Type)
	assert.True(t, cfg.Middlewares["cors"].Enabled)

	require.Contains(t, cfg.Routers, "api")
	assert.Equal(t, "Host(`test.localhost`)", cfg.Routers["api"].Rule)
	assert.Equal(t, "api_service", cfg.Routers["api"].Service)
	assert.Equal(t, []string{"cors", "auth"}, cfg.Routers["api"].Middlewares)

	require.Contains(t, cfg.Services, "api_service")
	require.Len(t, cfg.Services["api_service"].LoadBalancer.Servers, 1)
	assert.Equal(t, "http://10.0.0.5:8080", cfg.Services["api_service"].LoadBalancer.Servers[0].URL)
}

func TestConfigToLabelsRoundTrip(t *testing.T) {
	cfg := &Config{
		Version: "1.0",
		Middlewares: map[string]MiddlewareConfig{
			"cors": {Type: "cors", Enabled: true, Settings: map[string]any{}},
		},
		Routers: map[string]RouterConfig{
			"api": {Rule: "Host(`example.com`)", Service: "web", Middlewares: []string{"cors"}},
		},
		Services: map[string]ServiceConfig{
			"web": {LoadBalancer: LoadBalancerConfig{Servers: []LoadBalancerServer{{URL: "http://10.0.0.1:8080"}}}},
		},
	}

	labels := ConfigToLabels(cfg)

	roundTripped := &Config{Version: "1.0"}
	MergeDockerLabels(roundTripped, labels)

	assert.Equal(t, cfg.Middlewares["cors"].Type, roundTripped.Middlewares["cors"].Type)
	assert.Equal(t, cfg.Routers["api"].Rule, roundTripped.Routers["api"].Rule)
	assert.Equal(t, cfg.Services["web"].LoadBalancer.Servers[0].URL, roundTripped.Services["web"].LoadBalancer.Servers[0].URL)
}

func TestToSnakeAndCamelCase(t *testing.T) {
	assert.Equal(t, "basic_auth", toSnakeCase("basicAuth"))
	assert.Equal(t, "allow_origins", toSnakeCase("allowOrigins"))
	assert.Equal(t, "single", toSnakeCase("single"))

	assert.Equal(t, "basicAuth", toCamelCase("basic_auth"))
	assert.Equal(t, "allowOrigins", toCamelCase("allow_origins"))
}
