package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleHostOnly(t *testing.T) {
	rule, err := NewValidRule("Host(`example.com`)")
	require.NoError(t, err)

	host, path, err := ParseRule(rule)
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "/", path)
}

func TestParseRuleHostAndPathPrefix(t *testing.T) {
	rule, err := NewValidRule("Host(`api.example.com`) && PathPrefix(`/v1`)")
	require.NoError(t, err)

	host, path, err := ParseRule(rule)
	require.NoError(t, err)
	assert.Equal(t, "api.example.com", host)
	assert.Equal(t, "/v1*", path)
}

func TestParseRuleHostAndExactPath(t *testing.T) {
	rule, err := NewValidRule("Host(`api.example.com`) && Path(`/health`)")
	require.NoError(t, err)

	_, path, err := ParseRule(rule)
	require.NoError(t, err)
	assert.Equal(t, "/health", path)
}

func TestParseRuleMissingHostFails(t *testing.T) {
	rule, err := NewValidRule("PathPrefix(`/v1`)")
	require.NoError(t, err)

	_, _, err = ParseRule(rule)
	assert.Error(t, err)
}
