package middleware

import "net/http"

// Middleware transforms an HTTP request on the way in and the
// corresponding response on the way out.
type Middleware interface {
	// Kind identifies the middleware's type (e.g. "basic-auth", "cors");
	// a chain never holds two middlewares of the same Kind, the later
	// one replacing the earlier.
	Kind() string
	// HandleRequest runs on the way in. Returning an *Error with
	// ErrPreflightResponse or ErrTooManyRequests short-circuits the
	// chain; any other error is translated to a response by the caller.
	HandleRequest(req *http.Request) (*http.Request, error)
	// HandleResponse runs on the way out, in reverse chain order.
	HandleResponse(resp *http.Response) (*http.Response, error)
}

// Base provides no-op HandleResponse/HandleRequest implementations so a
// concrete middleware only needs to override the direction it cares
// about, the way several of the teacher's filters only implement one of
// Request/Response.
type Base struct{}

func (Base) HandleRequest(req *http.Request) (*http.Request, error)     { return req, nil }
func (Base) HandleResponse(resp *http.Response) (*http.Response, error) { return resp, nil }
