package proxy

import (
	"net/http"
)

// Forwarder sends a request upstream to a resolved backend address,
// preserving method, headers, and body unchanged (including streamed
// body frames) the way a transparent proxy must.
type Forwarder struct {
	client *http.Client
}

// NewForwarder builds a Forwarder over client. A nil client uses
// http.DefaultClient's transport settings via a fresh *http.Client, so
// callers that want connection pooling tuned for backend traffic
// should pass their own.
func NewForwarder(client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{}
	}
	return &Forwarder{client: client}
}

// Forward builds the upstream request for addr and sends it. The
// caller is responsible for closing the returned response's body.
func (f *Forwarder) Forward(req *http.Request, addr string) (*http.Response, error) {
	upstreamReq, err := buildUpstreamRequest(req, addr)
	if err != nil {
		return nil, err
	}
	return f.client.Do(upstreamReq)
}

// buildUpstreamRequest rewrites req's URL to target addr directly over
// plain HTTP, keeping method, headers, and body untouched.
func buildUpstreamRequest(req *http.Request, addr string) (*http.Request, error) {
	upstreamReq := req.Clone(req.Context())
	upstreamReq.URL.Scheme = "http"
	upstreamReq.URL.Host = addr
	upstreamReq.Host = addr
	upstreamReq.RequestURI = ""
	return upstreamReq, nil
}
