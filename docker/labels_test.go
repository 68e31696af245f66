package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelExtractorExtract(t *testing.T) {
	extractor := NewLabelExtractor("proxy_net", DefaultLabelPrefix)

	c := ContainerSummary{
		ID: "abc123",
		Labels: map[string]string{
			"rproxy.host":   "example.com",
			"rproxy.port":   "3000",
			"rproxy.router": "api",
		},
		NetworkIPs: map[string]string{"proxy_net": "10.0.0.5"},
	}

	info, err := extractor.Extract(c)
	require.NoError(t, err)
	assert.Equal(t, "example.com", info.Host)
	assert.Equal(t, "10.0.0.5:3000", info.Addr)
	assert.Equal(t, "api", info.RouterName)
}

func TestLabelExtractorDefaultPort(t *testing.T) {
	extractor := NewLabelExtractor("proxy_net", DefaultLabelPrefix)
	c := ContainerSummary{
		Labels:     map[string]string{"rproxy.host": "example.com"},
		NetworkIPs: map[string]string{"proxy_net": "10.0.0.5"},
	}

	info, err := extractor.Extract(c)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:80", info.Addr)
}

func TestLabelExtractorMissingHost(t *testing.T) {
	extractor := NewLabelExtractor("proxy_net", DefaultLabelPrefix)
	c := ContainerSummary{NetworkIPs: map[string]string{"proxy_net": "10.0.0.5"}}

	_, err := extractor.Extract(c)
	require.Error(t, err)

	var de *DockerError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrContainerConfig, de.Kind)
}

func TestLabelExtractorMissingNetwork(t *testing.T) {
	extractor := NewLabelExtractor("proxy_net", DefaultLabelPrefix)
	c := ContainerSummary{Labels: map[string]string{"rproxy.host": "example.com"}}

	_, err := extractor.Extract(c)
	require.Error(t, err)

	var de *DockerError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, ErrNetwork, de.Kind)
}

func TestLabelExtractorPathMatcherTypes(t *testing.T) {
	for _, tt := range []struct {
		name     string
		pathType string
		path     string
		check    string
	}{
		{"exact default", "", "/api", "/api"},
		{"prefix", "prefix", "/api", "/api/users"},
		{"regex", "regex", "/api/v[0-9]+", "/api/v1"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewLabelExtractor("proxy_net", DefaultLabelPrefix)
			labels := map[string]string{
				"rproxy.host": "example.com",
				"rproxy.path": tt.path,
			}
			if tt.pathType != "" {
				labels["rproxy.path.type"] = tt.pathType
			}
			c := ContainerSummary{Labels: labels, NetworkIPs: map[string]string{"proxy_net": "10.0.0.5"}}

			info, err := extractor.Extract(c)
			require.NoError(t, err)
			assert.True(t, info.PathMatcher.Matches(tt.check))
		})
	}
}
