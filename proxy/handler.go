// Package proxy implements the per-request pipeline: resolve a backend
// from the routing table, run the router's middleware chain, forward
// the request upstream, run the chain's response phase, and reply.
package proxy

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hoogokok/roxy/metrics"
	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/routing"
)

// RequestHandler is the top-level http.Handler wired into the listener.
// It holds no per-request state; every field is safe for concurrent use
// across goroutines, matching the "handler cloned per task" shape a
// connection-per-goroutine server relies on.
type RequestHandler struct {
	table     *routing.RoutingTable
	mwManager *middleware.Manager
	upstream  *Forwarder
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// NewRequestHandler builds a RequestHandler over table, dispatching
// request/response middleware via mwManager, forwarding upstream via
// upstream, and recording each completed request against m (a nil m
// disables metrics recording, useful in tests that don't care about it).
func NewRequestHandler(table *routing.RoutingTable, mwManager *middleware.Manager, upstream *Forwarder, m *metrics.Metrics, log *logrus.Entry) *RequestHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RequestHandler{table: table, mwManager: mwManager, upstream: upstream, metrics: m, log: log}
}

// ServeHTTP never panics and always writes a response: routing
// failures become 400/404, middleware short-circuits become whatever
// response they carry, and upstream failures become 502.
func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rlog := newRequestLog(uuid.NewString())
	rlog.method = req.Method
	rlog.path = req.URL.Path
	rlog.host = req.Host
	defer rlog.emit(h.log)

	start := time.Now()
	var routerName string
	defer func() {
		if h.metrics == nil {
			return
		}
		h.metrics.ObserveRequest(metricsRouterLabel(routerName), statusClass(rlog.status), time.Since(start).Seconds())
	}()

	backend, _, err := h.table.RouteRequest(req)
	if err != nil {
		rlog.err = err
		writeRoutingError(w, err, &rlog.status)
		return
	}

	routerName = backend.RouterName
	req, err = h.mwManager.HandleRequest(routerName, req)
	if err != nil {
		rlog.err = err
		writeMiddlewareError(w, err, &rlog.status)
		return
	}

	addr, err := backend.GetNextAddress()
	if err != nil {
		rlog.err = err
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		rlog.status = http.StatusBadGateway
		return
	}
	rlog.backend = addr

	resp, err := h.upstream.Forward(req, addr)
	if err != nil {
		rlog.err = err
		writeBadGateway(w, err)
		rlog.status = http.StatusBadGateway
		return
	}
	defer resp.Body.Close()

	resp, err = h.mwManager.HandleResponse(routerName, resp)
	if err != nil {
		rlog.err = err
		writeMiddlewareError(w, err, &rlog.status)
		return
	}

	rlog.status = resp.StatusCode
	writeResponse(w, resp)
}

// statusClass reduces an HTTP status code to its "Nxx" class for the
// requests_total metric, so the label set stays bounded regardless of
// how many distinct status codes backends return.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// metricsRouterLabel substitutes a placeholder for requests that never
// matched a router, so the requests_total metric always carries a
// non-empty router label.
func metricsRouterLabel(routerName string) string {
	if routerName == "" {
		return "unmatched"
	}
	return routerName
}
