package proxy

import (
	"fmt"
	"io"
	"net/http"

	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/routing"
)

// writeRoutingError synthesizes the response for a failed routing
// table lookup: 400 for a malformed request, 404 for an unmatched
// host/path.
func writeRoutingError(w http.ResponseWriter, err error, status *int) {
	code := http.StatusBadRequest

	var rerr *routing.RoutingError
	if asRoutingError(err, &rerr) {
		switch rerr.Kind {
		case routing.ErrBackendNotFound, routing.ErrInvalidPathPattern:
			code = http.StatusNotFound
		default:
			code = http.StatusBadRequest
		}
	}

	*status = code
	http.Error(w, fmt.Sprintf("Error: %s", err), code)
}

func asRoutingError(err error, target **routing.RoutingError) bool {
	if rerr, ok := err.(*routing.RoutingError); ok {
		*target = rerr
		return true
	}
	return false
}

// writeMiddlewareError writes whichever response a middleware.Error
// carries, or a status derived from its Kind when it has none.
func writeMiddlewareError(w http.ResponseWriter, err error, status *int) {
	merr, ok := err.(*middleware.Error)
	if !ok {
		*status = http.StatusInternalServerError
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if merr.Response != nil {
		*status = merr.Response.StatusCode
		writeResponse(w, merr.Response)
		return
	}

	*status = merr.StatusCode()
	http.Error(w, merr.Error(), *status)
}

// writeBadGateway replies 502 with a diagnostic body describing the
// upstream failure.
func writeBadGateway(w http.ResponseWriter, err error) {
	http.Error(w, fmt.Sprintf("Bad Gateway: %s", err), http.StatusBadGateway)
}

// writeResponse copies resp's status, headers, and body to w verbatim.
func writeResponse(w http.ResponseWriter, resp *http.Response) {
	dst := w.Header()
	for key, values := range resp.Header {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		_, _ = io.Copy(w, resp.Body)
	}
}
