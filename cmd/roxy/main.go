// Command roxy runs the reverse proxy: it loads configuration from file,
// environment, and container labels, discovers backends over the Docker
// Engine API, and serves HTTP/HTTPS traffic through the routing and
// middleware pipeline until told to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hoogokok/roxy/docker"
	"github.com/hoogokok/roxy/logging"
	"github.com/hoogokok/roxy/metrics"
	"github.com/hoogokok/roxy/middleware"
	"github.com/hoogokok/roxy/middleware/basicauth"
	"github.com/hoogokok/roxy/middleware/cors"
	"github.com/hoogokok/roxy/middleware/headers"
	"github.com/hoogokok/roxy/middleware/ratelimit"
	"github.com/hoogokok/roxy/proxy"
	"github.com/hoogokok/roxy/routing"
	"github.com/hoogokok/roxy/server"
	"github.com/hoogokok/roxy/settings"
)

func main() {
	opts, err := logging.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	logging.Init(opts)
	log := logrus.NewEntry(logrus.StandardLogger())

	if err := run(log); err != nil {
		log.WithError(err).Fatal("roxy exited with error")
	}
}

func run(log *logrus.Entry) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewMetrics(reg)

	labelPrefix := os.Getenv("PROXY_LABEL_PREFIX")
	if labelPrefix == "" {
		labelPrefix = docker.DefaultLabelPrefix
	}

	// dockerClient is declared as the docker.Client interface, not the
	// concrete *docker.EngineClient, so that a failed construction leaves
	// it as a true nil interface rather than a non-nil interface wrapping
	// a nil pointer.
	var dockerClient docker.Client
	if engine, err := docker.NewEngineClient(os.Getenv("PROXY_DOCKER_SOCKET"), os.Getenv("PROXY_DOCKER_API_VERSION")); err != nil {
		log.WithError(err).Warn("docker discovery disabled: engine client init failed")
	} else {
		dockerClient = engine
	}

	cfg, err := settings.MergeAllSources(collectContainerLabels(ctx, dockerClient, log))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	settingsManager := settings.NewManager(log)
	if err := settingsManager.Apply(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	resolved, err := resolveConfiguredRoutes(cfg)
	if err != nil {
		return fmt.Errorf("resolving configured routes: %w", err)
	}

	table := routing.NewRoutingTable()
	for _, r := range resolved {
		table.AddRouteWithRouter(r.Host, r.Matcher, r.Addr, r.RouterName)
	}
	metricsReg.ActiveRoutes.Set(float64(len(cfg.Routers)))

	mwManager := middleware.NewManager(cfg.Middlewares, middlewareFactory(metricsReg), log)

	if dockerClient != nil {
		runDiscovery(ctx, dockerClient, table, metricsReg, labelPrefix, log)
	}

	if cfg.Health.Enabled {
		runHealthChecks(ctx, resolved, cfg.Health, metricsReg, log)
	}

	forwarder := proxy.NewForwarder(nil)
	handler := proxy.NewRequestHandler(table, mwManager, forwarder, metricsReg, log)

	srv, err := buildServer(cfg.Server, handler, log)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	metricsSrv := startMetricsServer(ctx, reg, log)

	serveErr := srv.Run(ctx)
	<-metricsSrv.done
	return serveErr
}

// collectContainerLabels lists every running container through client and
// flattens their labels into one map keyed by raw label name, the shape
// settings.MergeAllSources expects for its container-label configuration
// source. A nil client (discovery disabled) or a listing error yields an
// empty snapshot rather than failing startup: declarative labels are an
// optional source layered on top of file/env configuration.
func collectContainerLabels(ctx context.Context, client docker.Client, log *logrus.Entry) map[string]string {
	if client == nil {
		return nil
	}

	containers, err := client.ListContainers(ctx)
	if err != nil {
		log.WithError(err).Warn("label config source disabled: listing containers failed")
		return nil
	}

	labels := map[string]string{}
	for _, c := range containers {
		for k, v := range c.Labels {
			labels[k] = v
		}
	}
	return labels
}

// resolvedRoute is one router+service+server combination, fully resolved
// to the form both the routing table and the health checker need: a
// host+path match, a dial address, and the router name the match belongs
// to.
type resolvedRoute struct {
	Host       string
	Matcher    routing.PathMatcher
	Addr       string
	RouterName string
}

// resolveConfiguredRoutes translates every router+service pair declared
// in cfg into resolvedRoutes, resolving each router's rule to a host+path
// pattern and each service's load-balanced servers to plain addresses the
// forwarder can dial directly.
func resolveConfiguredRoutes(cfg *settings.Config) ([]resolvedRoute, error) {
	var out []resolvedRoute

	for name, r := range cfg.Routers {
		rule, err := settings.NewValidRule(r.Rule)
		if err != nil {
			return nil, fmt.Errorf("router %q: %w", name, err)
		}

		host, pathPattern, err := settings.ParseRule(rule)
		if err != nil {
			return nil, fmt.Errorf("router %q: %w", name, err)
		}

		matcher, err := routing.NewPathMatcher(pathPattern)
		if err != nil {
			return nil, fmt.Errorf("router %q: %w", name, err)
		}

		svc, ok := cfg.Services[r.Service]
		if !ok {
			return nil, fmt.Errorf("router %q: unknown service %q", name, r.Service)
		}

		for _, s := range svc.LoadBalancer.Servers {
			addr, err := serverAddr(s.URL)
			if err != nil {
				return nil, fmt.Errorf("router %q service %q: %w", name, r.Service, err)
			}
			out = append(out, resolvedRoute{Host: host, Matcher: matcher, Addr: addr, RouterName: name})
		}
	}

	return out, nil
}

// runHealthChecks starts one periodic probe per resolved route's backend
// address, recording each outcome against m.BackendHealth. A non-empty
// cfg.HTTPPath selects an HTTP probe for every route; otherwise a bare
// TCP connect probes each address.
func runHealthChecks(ctx context.Context, routes []resolvedRoute, cfg settings.HealthConfig, m *metrics.Metrics, log *logrus.Entry) {
	interval := time.Duration(cfg.Interval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	for _, r := range routes {
		var checker docker.HealthChecker
		if cfg.HTTPPath != "" {
			checker = docker.NewHTTPHealthChecker(r.Addr, cfg.HTTPPath, "", 0, timeout)
		} else {
			checker = docker.NewTCPHealthChecker(r.Addr, timeout)
		}

		health := &docker.BackendHealth{Addr: r.Addr}
		host, addr := r.Host, r.Addr
		go docker.RunPeriodic(ctx, checker, interval, health, func(result docker.HealthCheckResult) {
			m.SetBackendHealth(host, addr, result.Status == docker.Healthy)
			if result.Status != docker.Healthy {
				log.WithFields(logrus.Fields{"host": host, "addr": addr, "message": result.Message}).Warn("backend health check failed")
			}
		})
	}
}

// serverAddr reduces a load-balancer server URL ("http://host:port") to
// the bare host:port the forwarder dials; it never proxies through the
// configured scheme itself, only plain HTTP upstream.
func serverAddr(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", raw)
	}
	return u.Host, nil
}

// middlewareFactory returns the concrete switch over every middleware
// kind this build supports, closing over m so a constructed rate-limit
// middleware can report its rejections. middleware.Manager never imports
// these subpackages itself, to keep their settings-to-config translation
// out of the dispatch core.
func middlewareFactory(m *metrics.Metrics) middleware.Factory {
	return func(name string, cfg settings.MiddlewareConfig) (middleware.Middleware, error) {
		switch cfg.Type {
		case "basic-auth", "basicauth":
			return basicauth.NewFromSettings(name, cfg)
		case "headers":
			return headers.NewFromSettings(name, cfg)
		case "cors":
			return cors.NewFromSettings(name, cfg)
		case "rate-limit", "ratelimit":
			mw, err := ratelimit.NewFromSettings(name, cfg)
			if err != nil {
				return nil, err
			}
			router := routerNameFor(name)
			mw.OnRejected = func() { m.RateLimitRejected.WithLabelValues(router).Inc() }
			return mw, nil
		default:
			return nil, fmt.Errorf("middleware %q: unknown type %q", name, cfg.Type)
		}
	}
}

// routerNameFor derives a router name from a qualified middleware name's
// first hyphen-separated segment (e.g. "api-ratelimit" -> "api"),
// mirroring middleware.Manager's own (unexported) convention so the
// rate-limit rejection counter is labeled consistently with the chain
// the middleware actually runs under.
func routerNameFor(name string) string {
	if idx := strings.IndexByte(name, '-'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// runDiscovery starts container discovery against client, applying every
// event to table in the background. Discovery is only started once the
// caller has confirmed the engine client could be built, since a daemon
// that can't be reached at startup disables discovery rather than
// failing the whole process: file/label-configured routes alone are a
// valid deployment.
func runDiscovery(ctx context.Context, client docker.Client, table *routing.RoutingTable, m *metrics.Metrics, labelPrefix string, log *logrus.Entry) {
	extractor := docker.NewLabelExtractor(os.Getenv("PROXY_DOCKER_NETWORK"), labelPrefix)
	loop := docker.NewDiscoveryLoop(client, extractor, docker.DefaultRetryPolicy(), log)
	events := loop.Run(ctx)

	go func() {
		for evt := range events {
			if evt.Kind == docker.Error {
				m.DiscoveryErrors.Inc()
				log.WithError(evt.Err).Warn("discovery error")
				continue
			}
			m.DiscoveryEvents.WithLabelValues(discoveryKindLabel(evt.Kind)).Inc()
			docker.ApplyEvent(table, evt)
		}
	}()
}

func discoveryKindLabel(kind docker.EventKind) string {
	switch kind {
	case docker.ContainerStarted:
		return "started"
	case docker.ContainerStopped:
		return "stopped"
	case docker.ContainerUpdated:
		return "updated"
	case docker.RoutesUpdated:
		return "reconciled"
	default:
		return "unknown"
	}
}

// buildServer constructs either an HTTP-only or dual HTTP+HTTPS Server per
// cfg, defaulting to ports 80/443 when unset.
func buildServer(cfg settings.ServerConfig, handler http.Handler, log *logrus.Entry) (*server.Server, error) {
	httpPort := cfg.HTTPPort
	if httpPort == 0 {
		httpPort = 80
	}

	if !cfg.HTTPSEnabled {
		return server.NewHTTPBuilder(httpPort).Build(handler, log), nil
	}

	httpsPort := cfg.HTTPSPort
	if httpsPort == 0 {
		httpsPort = 443
	}

	certPath := os.Getenv("PROXY_TLS_CERT")
	keyPath := os.Getenv("PROXY_TLS_KEY")

	return server.NewHTTPSBuilder(httpPort, httpsPort).
		WithTLSCert(certPath, keyPath).
		Build(handler, log)
}

// metricsServerHandle lets run() wait for the metrics listener's shutdown
// goroutine before returning, the same way it waits on srv.Run itself.
type metricsServerHandle struct {
	done chan struct{}
}

// startMetricsServer serves /metrics on PROXY_METRICS_PORT (default 9090)
// until ctx is canceled.
func startMetricsServer(ctx context.Context, reg *prometheus.Registry, log *logrus.Entry) *metricsServerHandle {
	port := 9090
	if raw := os.Getenv("PROXY_METRICS_PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			port = p
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	handle := &metricsServerHandle{done: make(chan struct{})}

	go func() {
		log.WithField("addr", httpSrv.Addr).Info("metrics listener starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("metrics listener failed")
		}
	}()

	go func() {
		defer close(handle.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	return handle
}
