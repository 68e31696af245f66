package proxy

import (
	"time"

	"github.com/sirupsen/logrus"
)

// requestLog accumulates the fields one request's lifecycle logs as it
// moves through the handler, emitted as a single structured line once
// the response is ready.
type requestLog struct {
	requestID string
	method    string
	path      string
	host      string
	status    int
	backend   string
	err       error
	start     time.Time
}

func newRequestLog(requestID string) *requestLog {
	return &requestLog{requestID: requestID, start: time.Now()}
}

func (l *requestLog) fields() logrus.Fields {
	fields := logrus.Fields{
		"request_id":  l.requestID,
		"method":      l.method,
		"path":        l.path,
		"host":        l.host,
		"status":      l.status,
		"duration_ms": time.Since(l.start).Milliseconds(),
	}
	if l.backend != "" {
		fields["backend"] = l.backend
	}
	return fields
}

// emit logs the accumulated request at a level derived from its outcome:
// error on a handler failure, warn on a 4xx/5xx status, info otherwise.
func (l *requestLog) emit(log *logrus.Entry) {
	entry := log.WithFields(l.fields())
	switch {
	case l.err != nil:
		entry.WithError(l.err).Error("request failed")
	case l.status >= 400:
		entry.Warn("request completed with error status")
	default:
		entry.Info("request completed")
	}
}
