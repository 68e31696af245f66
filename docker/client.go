package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/docker/go-connections/sockets"
)

// DefaultSocketPath is the standard Docker Engine API Unix socket.
const DefaultSocketPath = "/var/run/docker.sock"

// DefaultAPIVersion pins the Engine API version this client speaks.
const DefaultAPIVersion = "v1.43"

// EngineClient implements Client against a real Docker daemon's Engine
// API, reached over a Unix socket the way the Docker CLI itself
// connects when no DOCKER_HOST is set. It uses go-connections' socket
// dialer to configure the underlying transport rather than hand-rolling
// a net.Dial-based RoundTripper.
type EngineClient struct {
	httpClient *http.Client
	apiVersion string
}

// NewEngineClient builds an EngineClient talking to the daemon over the
// Unix socket at socketPath (DefaultSocketPath if empty), using
// apiVersion (DefaultAPIVersion if empty) as the Engine API version
// prefix.
func NewEngineClient(socketPath, apiVersion string) (*EngineClient, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	transport := &http.Transport{}
	if err := sockets.ConfigureTransport(transport, "unix", socketPath); err != nil {
		return nil, connectionError("engine client init", err)
	}

	return &EngineClient{
		httpClient: &http.Client{Transport: transport},
		apiVersion: apiVersion,
	}, nil
}

func (c *EngineClient) endpoint(path string) string {
	return fmt.Sprintf("http://docker/%s%s", c.apiVersion, path)
}

type containerListEntry struct {
	ID     string            `json:"Id"`
	Labels map[string]string `json:"Labels"`
}

type containerInspect struct {
	ID     string `json:"Id"`
	Config struct {
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
	NetworkSettings struct {
		Networks map[string]struct {
			IPAddress string `json:"IPAddress"`
		} `json:"Networks"`
	} `json:"NetworkSettings"`
}

// ListContainers lists every running container and inspects each one to
// recover its per-network IP addresses, which the plain container-list
// endpoint does not return in full.
func (c *EngineClient) ListContainers(ctx context.Context) ([]ContainerSummary, error) {
	var entries []containerListEntry
	if err := c.getJSON(ctx, "/containers/json", &entries); err != nil {
		return nil, listContainersError("list running containers", err)
	}

	out := make([]ContainerSummary, 0, len(entries))
	for _, e := range entries {
		summary, err := c.inspect(ctx, e.ID)
		if err != nil {
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

func (c *EngineClient) inspect(ctx context.Context, id string) (ContainerSummary, error) {
	var detail containerInspect
	if err := c.getJSON(ctx, "/containers/"+id+"/json", &detail); err != nil {
		return ContainerSummary{}, err
	}

	ips := make(map[string]string, len(detail.NetworkSettings.Networks))
	for name, n := range detail.NetworkSettings.Networks {
		ips[name] = n.IPAddress
	}

	return ContainerSummary{ID: detail.ID, Labels: detail.Config.Labels, NetworkIPs: ips}, nil
}

func (c *EngineClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// dockerEvent is the subset of the Engine API's /events payload this
// client needs: the lifecycle action and the container's id plus the
// attributes the daemon attaches to a container-scoped event (which
// includes its labels, but never network addresses).
type dockerEvent struct {
	Action string `json:"Action"`
	Actor  struct {
		ID         string            `json:"ID"`
		Attributes map[string]string `json:"Attributes"`
	} `json:"Actor"`
}

// SubscribeEvents streams the daemon's container lifecycle events.
// "start" and "update" actions are enriched with a follow-up inspect
// call to recover network addresses; "die"/"stop"/"destroy" events
// carry only the container's labels, which is all ApplyEvent needs to
// remove a route by host.
func (c *EngineClient) SubscribeEvents(ctx context.Context) (<-chan ContainerLifecycleEvent, <-chan error) {
	events := make(chan ContainerLifecycleEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		filters := url.QueryEscape(`{"type":["container"]}`)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/events?filters="+filters), nil)
		if err != nil {
			errs <- err
			return
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errs <- connectionError("subscribe events", err)
			return
		}
		defer resp.Body.Close()

		decoder := json.NewDecoder(bufio.NewReader(resp.Body))
		for {
			var evt dockerEvent
			if err := decoder.Decode(&evt); err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case errs <- connectionError("decode event stream", err):
				case <-ctx.Done():
				}
				return
			}

			container := ContainerSummary{ID: evt.Actor.ID, Labels: evt.Actor.Attributes}
			if evt.Action == "start" || evt.Action == "update" {
				if full, err := c.inspect(ctx, evt.Actor.ID); err == nil {
					container = full
				}
			}

			select {
			case events <- ContainerLifecycleEvent{Action: evt.Action, Container: container}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}
