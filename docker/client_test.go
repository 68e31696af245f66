package docker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeDaemon starts an httptest server listening on a Unix socket,
// standing in for the Docker daemon so EngineClient can be exercised
// without a real docker.sock.
func newFakeDaemon(t *testing.T, mux *http.ServeMux) (socketPath string, close func()) {
	t.Helper()

	socketPath = filepath.Join(t.TempDir(), "docker.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	srv := &httptest.Server{Listener: listener, Config: &http.Server{Handler: mux}}
	srv.Start()

	return socketPath, srv.Close
}

func TestListContainers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.43/containers/json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]containerListEntry{{ID: "c1"}})
	})
	mux.HandleFunc("/v1.43/containers/c1/json", func(w http.ResponseWriter, r *http.Request) {
		resp := containerInspect{ID: "c1"}
		resp.Config.Labels = map[string]string{"rproxy.host": "api.example.com"}
		resp.NetworkSettings.Networks = map[string]struct {
			IPAddress string `json:"IPAddress"`
		}{"bridge": {IPAddress: "172.17.0.2"}}
		_ = json.NewEncoder(w).Encode(resp)
	})

	socketPath, closeFn := newFakeDaemon(t, mux)
	defer closeFn()

	client, err := NewEngineClient(socketPath, "")
	require.NoError(t, err)

	containers, err := client.ListContainers(context.Background())
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "c1", containers[0].ID)
	assert.Equal(t, "api.example.com", containers[0].Labels["rproxy.host"])
	assert.Equal(t, "172.17.0.2", containers[0].NetworkIPs["bridge"])
}

func TestSubscribeEventsEnrichesStartAction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.43/containers/c1/json", func(w http.ResponseWriter, r *http.Request) {
		resp := containerInspect{ID: "c1"}
		resp.Config.Labels = map[string]string{"rproxy.host": "api.example.com"}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1.43/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		enc := json.NewEncoder(w)
		evt := dockerEvent{Action: "start"}
		evt.Actor.ID = "c1"
		_ = enc.Encode(evt)
		if flusher != nil {
			flusher.Flush()
		}
		<-r.Context().Done()
	})

	socketPath, closeFn := newFakeDaemon(t, mux)
	defer closeFn()

	client, err := NewEngineClient(socketPath, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, errs := client.SubscribeEvents(ctx)

	select {
	case evt := <-events:
		assert.Equal(t, "start", evt.Action)
		assert.Equal(t, "api.example.com", evt.Container.Labels["rproxy.host"])
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNewEngineClientDefaults(t *testing.T) {
	client, err := NewEngineClient("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIVersion, client.apiVersion)
	assert.True(t, strings.HasPrefix(client.endpoint("/x"), "http://docker/v1.43"))
}
