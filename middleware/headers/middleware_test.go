package headers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRequestAppliesAddRemoveSet(t *testing.T) {
	mw := New(Config{
		Request: Modification{
			Add:    map[string]string{"X-Added": "1"},
			Remove: []string{"X-Drop"},
			Set:    map[string]string{"X-Set": "2"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Drop", "gone")

	out, err := mw.HandleRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "1", out.Header.Get("X-Added"))
	assert.Equal(t, "2", out.Header.Get("X-Set"))
	assert.Empty(t, out.Header.Get("X-Drop"))
}

func TestHandleResponseAppliesSecurityHeadersBeforeConfigured(t *testing.T) {
	mw := New(Config{
		Response: Modification{Set: map[string]string{"X-Frame-Options": "SAMEORIGIN"}},
	})

	resp := &http.Response{Header: http.Header{}}
	out, err := mw.HandleResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "SAMEORIGIN", out.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", out.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000", out.Header.Get("Strict-Transport-Security"))
}

func TestHandleResponseDefaultSecurityHeadersSurviveWithNoConfig(t *testing.T) {
	mw := New(Config{})
	resp := &http.Response{Header: http.Header{}}
	out, err := mw.HandleResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "DENY", out.Header.Get("X-Frame-Options"))
}
