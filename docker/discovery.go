package docker

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hoogokok/roxy/routing"
)

// EventKind classifies a DiscoveryEvent.
type EventKind int

const (
	ContainerStarted EventKind = iota
	ContainerStopped
	ContainerUpdated
	Error
	RoutesUpdated
)

// DiscoveryEvent is one unit of work the discovery consumer applies to the
// routing table.
type DiscoveryEvent struct {
	Kind        EventKind
	ContainerID string
	Host        string
	OldHost     string
	Addr        string
	PathMatcher routing.PathMatcher
	RouterName  string
	Err         *DockerError
	Routes      []routing.DockerRoute
}

// Client abstracts the container-runtime operations the discovery loop
// needs: listing current containers and subscribing to lifecycle events.
// EngineClient adapts the real Docker Engine API to this interface.
type Client interface {
	ListContainers(ctx context.Context) ([]ContainerSummary, error)
	SubscribeEvents(ctx context.Context) (<-chan ContainerLifecycleEvent, <-chan error)
}

// ContainerLifecycleEvent is one raw lifecycle notification from the
// container runtime, prior to translation into a DiscoveryEvent.
type ContainerLifecycleEvent struct {
	Action    string // "start", "stop", "die", "destroy", "update"
	Container ContainerSummary
}

// eventQueueCapacity bounds the discovery loop's event channel. The
// producer blocks when the queue is full rather than dropping events, so
// discovery never silently loses a container transition.
const eventQueueCapacity = 32

// DiscoveryLoop performs an initial full reconciliation of running
// containers, then translates subsequent lifecycle events into
// DiscoveryEvents delivered over a bounded channel.
type DiscoveryLoop struct {
	client    Client
	extractor *LabelExtractor
	retry     RetryPolicy
	log       *logrus.Entry

	// hosts tracks the last known host each container was routed under,
	// so an "update" event can report OldHost for ApplyEvent to retire
	// alongside installing the new one.
	hosts map[string]string
}

// NewDiscoveryLoop constructs a loop reading container routing intent via
// extractor from client, retrying transient daemon errors per policy.
func NewDiscoveryLoop(client Client, extractor *LabelExtractor, policy RetryPolicy, log *logrus.Entry) *DiscoveryLoop {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DiscoveryLoop{client: client, extractor: extractor, retry: policy, log: log, hosts: map[string]string{}}
}

// Run starts the loop: an initial reconciliation followed by a live event
// stream, both delivered to the returned channel. Run returns at once; the
// work runs in a background goroutine that closes the channel when ctx is
// canceled, the initial reconciliation fails, or the subscription ends.
func (d *DiscoveryLoop) Run(ctx context.Context) <-chan DiscoveryEvent {
	events := make(chan DiscoveryEvent, eventQueueCapacity)

	go func() {
		defer close(events)

		routes, err := d.reconcile(ctx)
		if err != nil {
			d.send(ctx, events, DiscoveryEvent{Kind: Error, Err: asDockerError(err)})
			return
		}
		d.send(ctx, events, DiscoveryEvent{Kind: RoutesUpdated, Routes: routes})

		lifecycle, errs := d.client.SubscribeEvents(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if !ok {
					return
				}
				d.send(ctx, events, DiscoveryEvent{Kind: Error, Err: asDockerError(err)})
			case evt, ok := <-lifecycle:
				if !ok {
					return
				}
				d.send(ctx, events, d.translate(evt))
			}
		}
	}()

	return events
}

// send delivers evt, blocking if the channel is full, honoring ctx
// cancellation so a stuck consumer doesn't leak this goroutine forever.
func (d *DiscoveryLoop) send(ctx context.Context, events chan<- DiscoveryEvent, evt DiscoveryEvent) {
	select {
	case events <- evt:
	case <-ctx.Done():
	}
}

// reconcile lists every running container and extracts its routing intent,
// retrying per d.retry on transient daemon errors.
func (d *DiscoveryLoop) reconcile(ctx context.Context) ([]routing.DockerRoute, error) {
	containers, err := WithRetry(ctx, d.retry, isRetryable, func(ctx context.Context) ([]ContainerSummary, error) {
		list, err := d.client.ListContainers(ctx)
		if err != nil {
			return nil, listContainersError("initial reconciliation", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}

	var routes []routing.DockerRoute
	for _, c := range containers {
		info, err := d.extractor.Extract(c)
		if err != nil {
			d.log.WithError(err).WithField("container", c.ID).Warn("skipping container: label extraction failed")
			continue
		}
		routes = append(routes, routing.DockerRoute{Host: info.Host, Matcher: info.PathMatcher, Addr: info.Addr, RouterName: info.RouterName})
		d.hosts[c.ID] = info.Host
	}
	return routes, nil
}

// translate converts one raw lifecycle event into a DiscoveryEvent,
// extracting routing intent where the action requires it.
func (d *DiscoveryLoop) translate(evt ContainerLifecycleEvent) DiscoveryEvent {
	switch evt.Action {
	case "start":
		info, err := d.extractor.Extract(evt.Container)
		if err != nil {
			return DiscoveryEvent{Kind: Error, Err: asDockerError(err)}
		}
		d.hosts[evt.Container.ID] = info.Host
		return DiscoveryEvent{
			Kind:        ContainerStarted,
			ContainerID: evt.Container.ID,
			Host:        info.Host,
			Addr:        info.Addr,
			PathMatcher: info.PathMatcher,
			RouterName:  info.RouterName,
		}

	case "stop", "die", "destroy":
		host := d.hosts[evt.Container.ID]
		if host == "" {
			host = evt.Container.Labels[d.extractor.LabelPrefix+"host"]
		}
		delete(d.hosts, evt.Container.ID)
		return DiscoveryEvent{Kind: ContainerStopped, ContainerID: evt.Container.ID, Host: host}

	case "update":
		info, err := d.extractor.Extract(evt.Container)
		if err != nil {
			return DiscoveryEvent{Kind: Error, Err: asDockerError(err)}
		}
		oldHost := d.hosts[evt.Container.ID]
		d.hosts[evt.Container.ID] = info.Host
		return DiscoveryEvent{
			Kind:        ContainerUpdated,
			ContainerID: evt.Container.ID,
			Host:        info.Host,
			OldHost:     oldHost,
			Addr:        info.Addr,
			PathMatcher: info.PathMatcher,
			RouterName:  info.RouterName,
		}

	default:
		return DiscoveryEvent{
			Kind: Error,
			Err:  containerConfigError(evt.Container.ID, "unrecognized lifecycle action: "+evt.Action),
		}
	}
}

func isRetryable(err error) bool {
	de := asDockerError(err)
	return de != nil && de.IsRetryable()
}

func asDockerError(err error) *DockerError {
	if de, ok := err.(*DockerError); ok {
		return de
	}
	return connectionError("discovery", err)
}

// ApplyEvent applies a single DiscoveryEvent to table under its write
// lock. This is the discovery consumer's per-event handler.
func ApplyEvent(table *routing.RoutingTable, evt DiscoveryEvent) {
	switch evt.Kind {
	case RoutesUpdated:
		table.SyncDockerRoutes(evt.Routes)
	case ContainerStarted:
		table.AddRouteWithRouter(evt.Host, evt.PathMatcher, evt.Addr, evt.RouterName)
	case ContainerUpdated:
		if evt.OldHost != "" && evt.OldHost != evt.Host {
			table.RemoveRoute(evt.OldHost)
		}
		table.AddRouteWithRouter(evt.Host, evt.PathMatcher, evt.Addr, evt.RouterName)
	case ContainerStopped:
		table.RemoveRoute(evt.Host)
	case Error:
		// Discovery errors never mutate the routing table; the consumer
		// only logs them.
	}
}
