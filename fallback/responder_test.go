package fallback_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/clubsync/go-club-client/fallback"
)

func newHealthServer(t *testing.T, healthy *atomic.Bool) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestActivateAndProbeLifecycle(t *testing.T) {
	var healthy atomic.Bool
	server := newHealthServer(t, &healthy)
	responder := fallback.NewResponder(server.URL+"/api/v1", time.Second)

	require.False(t, responder.Active())

	responder.Activate()
	require.True(t, responder.Active())

	// A failed probe keeps fallback mode engaged
	require.False(t, responder.Probe(context.Background()))
	require.True(t, responder.Active())

	// Only a successful probe exits fallback mode
	healthy.Store(true)
	require.True(t, responder.Probe(context.Background()))
	require.False(t, responder.Active())
}

func TestModeChangeListeners(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := newHealthServer(t, &healthy)
	responder := fallback.NewResponder(server.URL+"/api/v1", time.Second)

	var changes []bool
	responder.OnModeChange(func(active bool) {
		changes = append(changes, active)
	})

	responder.Activate()
	responder.Activate() // no duplicate notification
	require.True(t, responder.Probe(context.Background()))

	require.Equal(t, []bool{true, false}, changes)
}

func TestRespondListEndpointsKeepCollectionShape(t *testing.T) {
	responder := fallback.NewResponder("http://unreachable/api/v1", time.Second)

	for _, path := range []string{"/teams", "/players", "/games", "/events", "/news"} {
		payload, err := responder.Respond(http.MethodGet, path, nil)
		require.NoError(t, err, path)

		var envelope struct {
			Items []json.RawMessage `json:"items"`
			Total int               `json:"total"`
		}
		require.NoError(t, json.Unmarshal(payload, &envelope), path)
		require.NotEmpty(t, envelope.Items, path)
		require.Equal(t, len(envelope.Items), envelope.Total, path)
	}
}

func TestRespondMutationsEchoPayload(t *testing.T) {
	responder := fallback.NewResponder("http://unreachable/api/v1", time.Second)

	payload, err := responder.Respond(http.MethodPost, "/teams", []byte(`{"name":"U12 gemischt"}`))
	require.NoError(t, err)

	var created map[string]any
	require.NoError(t, json.Unmarshal(payload, &created))
	require.Equal(t, "U12 gemischt", created["name"])
	require.Equal(t, true, created["success"])
	require.NotEmpty(t, created["id"])

	payload, err = responder.Respond(http.MethodDelete, "/teams/1", nil)
	require.NoError(t, err)
	var deleted map[string]any
	require.NoError(t, json.Unmarshal(payload, &deleted))
	require.Equal(t, true, deleted["success"])
}

func TestRespondUnknownResource(t *testing.T) {
	responder := fallback.NewResponder("http://unreachable/api/v1", time.Second)

	payload, err := responder.Respond(http.MethodGet, "/attendance/summary", nil)
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(payload))
}
