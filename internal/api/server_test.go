package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fopsim/internal/api"
	"fopsim/internal/observability"
	"fopsim/internal/runstore"
	"fopsim/internal/simulation"
)

type brokenStore struct {
	*runstore.Store
}

func (brokenStore) Ping(context.Context) error { return errors.New("database is locked") }

func newTestServer(t *testing.T) (*api.Server, *runstore.Store, *prometheus.Registry) {
	t.Helper()
	store, err := runstore.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	_, reg := observability.NewMetricsForTesting()
	srv := api.NewServer(store, api.Options{Addr: ":0", Gatherer: reg, AllowedOrigins: []string{"https://dash.example"}})
	return srv, store, reg
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := get(t, srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenStoreAnswers(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

func TestReadyzReturns503WhenStoreFails(t *testing.T) {
	srv := api.NewServer(brokenStore{}, api.Options{Gatherer: prometheus.NewRegistry()})
	rec := get(t, srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database is locked", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fopsim_run_active")
}

func TestRunsEndpoints(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, runstore.RunSpec{Variant: simulation.Human, Seed: 9, Year: 2023, StartDay: 121, EndDay: 130})
	require.NoError(t, err)

	rec := get(t, srv, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []runstore.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, run.ID, list.Runs[0].ID)

	rec = get(t, srv, "/api/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var got runstore.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "human", got.Variant)
	assert.Equal(t, runstore.StatusRunning, got.Status)

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/runs/nope").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/runs?limit=zero").Code)
}

func TestDaysEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, store.MarkDay(ctx, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), simulation.Lightning))

	rec := get(t, srv, "/api/days?year=2023")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Year int                 `json:"year"`
		Days []runstore.DayState `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Days, 1)
	assert.Equal(t, "2023-06-01", body.Days[0].Date)
	assert.True(t, body.Days[0].LightningCompleted)
	assert.False(t, body.Days[0].HumanCompleted)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/days").Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/runs", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
