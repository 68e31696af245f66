package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoogokok/roxy/middleware"
)

func TestPreflightAllowedOriginShortCircuits(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"https://app.example.com"}, AllowMethods: defaultMethods()})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")

	_, err := mw.HandleRequest(req)
	require.Error(t, err)

	merr, ok := err.(*middleware.Error)
	require.True(t, ok)
	require.NotNil(t, merr.Response)
	assert.Equal(t, http.StatusOK, merr.Response.StatusCode)
	assert.Equal(t, "https://app.example.com", merr.Response.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, merr.Response.Header.Get("Access-Control-Allow-Methods"))
}

func TestPreflightDisallowedOriginErrors(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	_, err := mw.HandleRequest(req)
	require.Error(t, err)
	merr, ok := err.(*middleware.Error)
	require.True(t, ok)
	assert.Nil(t, merr.Response)
}

func TestNonOptionsRequestDisallowedOriginRejected(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	_, err := mw.HandleRequest(req)
	require.Error(t, err)
}

func TestNonOptionsRequestNoOriginPassesThrough(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	out, err := mw.HandleRequest(req)
	require.NoError(t, err)
	assert.Same(t, req, out)
}

func TestHandleResponseSetsHeadersFromRequestOrigin(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"*"}, AllowCredentials: true})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")

	resp := &http.Response{Header: http.Header{}, Request: req}
	out, err := mw.HandleResponse(resp)
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", out.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", out.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHandleResponseNoRequestIsNoop(t *testing.T) {
	mw := New(Config{AllowOrigins: []string{"*"}})
	resp := &http.Response{Header: http.Header{}}
	out, err := mw.HandleResponse(resp)
	require.NoError(t, err)
	assert.Empty(t, out.Header.Get("Access-Control-Allow-Origin"))
}
