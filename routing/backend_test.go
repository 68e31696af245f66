package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendServiceSingleAddress(t *testing.T) {
	b := NewBackendService("10.0.0.1:8080")

	for i := 0; i < 3; i++ {
		addr, err := b.GetNextAddress()
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1:8080", addr)
	}
}

func TestBackendServiceAddAddressWithoutStrategyFails(t *testing.T) {
	b := NewBackendService("10.0.0.1:8080")
	err := b.AddAddress("10.0.0.2:8080", 1)
	require.Error(t, err)

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, ErrLoadBalancerNotEnabled, berr.Kind)
}

func TestBackendServiceRoundRobin(t *testing.T) {
	b := NewBackendService("a:1")
	b.EnableLoadBalancer(RoundRobin)
	require.NoError(t, b.AddAddress("b:1", 1))
	require.NoError(t, b.AddAddress("c:1", 1))

	seen := make([]string, 6)
	for i := range seen {
		addr, err := b.GetNextAddress()
		require.NoError(t, err)
		seen[i] = addr
	}

	assert.Equal(t, []string{"a:1", "b:1", "c:1", "a:1", "b:1", "c:1"}, seen)
}

func TestBackendServiceWeighted(t *testing.T) {
	b := NewBackendService("a:1")
	b.EnableLoadBalancer(Weighted)
	require.NoError(t, b.AddAddress("b:1", 3))

	counts := map[string]int{}
	for i := 0; i < 4; i++ {
		addr, err := b.GetNextAddress()
		require.NoError(t, err)
		counts[addr]++
	}

	assert.Equal(t, 1, counts["a:1"])
	assert.Equal(t, 3, counts["b:1"])
}

func TestBackendServiceAddresses(t *testing.T) {
	b := NewBackendService("a:1")
	b.EnableLoadBalancer(RoundRobin)
	require.NoError(t, b.AddAddress("b:1", 1))

	assert.ElementsMatch(t, []string{"a:1", "b:1"}, b.Addresses())
}
