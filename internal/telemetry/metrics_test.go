package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keycloak-mcp-go/internal/session"
	"keycloak-mcp-go/internal/tools"
)

type stubCaller struct {
	result string
	err    error
}

func (s stubCaller) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	return s.result, s.err
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Separate registries must not collide.
	m1 := NewMetrics(prometheus.NewRegistry())
	m2 := NewMetrics(prometheus.NewRegistry())
	require.NotNil(t, m1)
	require.NotNil(t, m2)
}

func TestToolCaller_RecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	ok := NewToolCaller(stubCaller{result: "[]"}, m)
	out, err := ok.Call(context.Background(), "get-realm-roles", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	failing := NewToolCaller(stubCaller{err: tools.NewCallError("Failed to get realm roles: demo")}, m)
	_, err = failing.Call(context.Background(), "get-realm-roles", nil)
	require.Error(t, err)

	broken := NewToolCaller(stubCaller{err: errors.New("boom")}, m)
	_, _ = broken.Call(context.Background(), "get-realm-roles", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPToolExecutions.WithLabelValues("get-realm-roles", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPToolExecutions.WithLabelValues("get-realm-roles", "tool_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPToolExecutions.WithLabelValues("get-realm-roles", "error")))
}

func TestRecordKeycloakRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordKeycloakRequest("get_realm_role", "success", 20*time.Millisecond)
	m.RecordKeycloakRequest("get_realm_role", "error", 20*time.Millisecond)
	m.RecordKeycloakRequest("get_realm_role", "success", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.KeycloakRequestsTotal.WithLabelValues("get_realm_role", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.KeycloakRequestsTotal.WithLabelValues("get_realm_role", "error")))
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestSessionManagerWrapper(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	logger := zerolog.Nop()
	store := session.NewMemoryStore(logger)
	defer store.Close()

	manager := NewSessionManagerWrapper(
		session.NewDefaultSessionManager(store, session.ManagerConfig{SessionTimeout: time.Hour}, logger),
		m,
	)

	sess, err := manager.CreateSession(context.Background(), session.ClientInfo{RemoteAddr: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPSessionsActive))

	require.NoError(t, manager.DeleteSession(context.Background(), sess.ID))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MCPSessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPSessionsTotal.WithLabelValues("deleted")))
}

func TestSystemMetricsCollector_Collect(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c := NewSystemMetricsCollector(m, zerolog.Nop(), time.Minute)

	c.Collect()
	assert.Greater(t, testutil.ToFloat64(m.GoRoutines), 0.0)
	assert.Greater(t, testutil.ToFloat64(m.MemoryUsage), 0.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Run(ctx))
}

func TestSessionManagerWrapper_CountsExpiryOnValidate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	logger := zerolog.Nop()
	store := session.NewMemoryStore(logger)
	defer store.Close()

	manager := NewSessionManagerWrapper(
		session.NewDefaultSessionManager(store, session.ManagerConfig{SessionTimeout: time.Millisecond}, logger),
		m,
	)

	sess, err := manager.CreateSession(context.Background(), session.ClientInfo{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, err = manager.ValidateSession(context.Background(), sess.ID)
	require.Error(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MCPSessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPSessionsTotal.WithLabelValues("expired")))
}

func TestSessionManagerWrapper_ConcurrentExpiryCountedOnce(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	logger := zerolog.Nop()
	store := session.NewMemoryStore(logger)
	defer store.Close()

	manager := NewSessionManagerWrapper(
		session.NewDefaultSessionManager(store, session.ManagerConfig{SessionTimeout: time.Millisecond}, logger),
		m,
	)

	sess, err := manager.CreateSession(context.Background(), session.ClientInfo{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = manager.ValidateSession(context.Background(), sess.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.MCPSessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MCPSessionsTotal.WithLabelValues("expired")))
}
