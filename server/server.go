// Package server runs the HTTP and, optionally, HTTPS listeners that
// front the proxy's request handler, each accepted connection served by
// net/http's own per-connection goroutine, with a bounded grace period
// on shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultShutdownGrace is how long Run waits for in-flight requests to
// finish once its context is canceled before giving up.
const DefaultShutdownGrace = 15 * time.Second

// Server owns one HTTP listener and, if built via NewHTTPSBuilder, a
// second HTTPS listener sharing the same handler. There is no exported
// constructor other than the two builders: a Server with an
// inconsistent HTTPS configuration (enabled but missing a cert) cannot
// be constructed at all.
type Server struct {
	httpAddr  string
	httpsAddr string
	tlsConfig *tls.Config

	handler http.Handler
	log     *logrus.Entry
	grace   time.Duration
}

// HTTPBuilder builds an HTTP-only Server. Its method set has no way to
// configure TLS, the same way ServerSettings<_, HttpsDisabled> carries
// no cert/key fields.
type HTTPBuilder struct {
	httpPort int
	grace    time.Duration
}

// NewHTTPBuilder starts building an HTTP-only server bound to httpPort.
func NewHTTPBuilder(httpPort int) *HTTPBuilder {
	return &HTTPBuilder{httpPort: httpPort, grace: DefaultShutdownGrace}
}

// WithShutdownGrace overrides the default shutdown grace period.
func (b *HTTPBuilder) WithShutdownGrace(d time.Duration) *HTTPBuilder {
	b.grace = d
	return b
}

// Build finalizes the HTTP-only server.
func (b *HTTPBuilder) Build(handler http.Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		httpAddr: fmt.Sprintf(":%d", b.httpPort),
		handler:  handler,
		log:      log,
		grace:    b.grace,
	}
}

// HTTPSBuilder builds a dual HTTP+HTTPS Server. Unlike HTTPBuilder, its
// Build requires a certificate and key to already have been supplied;
// there is no way to reach a runnable *Server with HTTPS half-configured.
type HTTPSBuilder struct {
	httpPort  int
	httpsPort int
	certPath  string
	keyPath   string
	grace     time.Duration
}

// NewHTTPSBuilder starts building a dual-listener server bound to
// httpPort and httpsPort.
func NewHTTPSBuilder(httpPort, httpsPort int) *HTTPSBuilder {
	return &HTTPSBuilder{httpPort: httpPort, httpsPort: httpsPort, grace: DefaultShutdownGrace}
}

// WithTLSCert sets the certificate and private key Build loads the TLS
// listener from.
func (b *HTTPSBuilder) WithTLSCert(certPath, keyPath string) *HTTPSBuilder {
	b.certPath = certPath
	b.keyPath = keyPath
	return b
}

// WithShutdownGrace overrides the default shutdown grace period.
func (b *HTTPSBuilder) WithShutdownGrace(d time.Duration) *HTTPSBuilder {
	b.grace = d
	return b
}

// Build loads the configured certificate and finalizes the dual-listener
// server. It fails if no certificate/key was set, the certificate
// cannot be loaded, or the HTTP and HTTPS ports collide.
func (b *HTTPSBuilder) Build(handler http.Handler, log *logrus.Entry) (*Server, error) {
	if b.certPath == "" || b.keyPath == "" {
		return nil, errors.New("server: HTTPS requires both a certificate and a key path")
	}
	if b.httpPort == b.httpsPort {
		return nil, fmt.Errorf("server: HTTP and HTTPS ports must differ, both are %d", b.httpPort)
	}

	cert, err := tls.LoadX509KeyPair(b.certPath, b.keyPath)
	if err != nil {
		return nil, fmt.Errorf("server: loading TLS certificate: %w", err)
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Server{
		httpAddr:  fmt.Sprintf(":%d", b.httpPort),
		httpsAddr: fmt.Sprintf(":%d", b.httpsPort),
		tlsConfig: &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
		handler:   handler,
		log:       log,
		grace:     b.grace,
	}, nil
}

// HTTPSEnabled reports whether this Server also serves TLS.
func (s *Server) HTTPSEnabled() bool { return s.tlsConfig != nil }

// Run starts every configured listener and blocks until ctx is
// canceled, then gives outstanding requests s.grace to finish before
// forcing every listener closed. It returns the first shutdown error,
// or else the first listener error other than http.ErrServerClosed, or
// nil.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{Addr: s.httpAddr, Handler: s.handler}

	var httpsServer *http.Server
	if s.HTTPSEnabled() {
		httpsServer = &http.Server{
			Addr:      s.httpsAddr,
			Handler:   s.handler,
			TLSConfig: s.tlsConfig,
		}
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.log.WithField("addr", s.httpAddr).Info("http listener starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http listener: %w", err)
			return
		}
		errs <- nil
	}()

	if httpsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.log.WithField("addr", s.httpsAddr).Info("https listener starting")
			if err := httpsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("https listener: %w", err)
				return
			}
			errs <- nil
		}()
	}

	<-ctx.Done()
	s.log.WithField("grace", s.grace).Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()

	var shutdownErr error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("http shutdown: %w", err)
	}
	if httpsServer != nil {
		if err := httpsServer.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = fmt.Errorf("https shutdown: %w", err)
		}
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}
