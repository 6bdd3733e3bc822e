package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveHTTP(http.MethodGet, "/api/posts/{id}", http.StatusOK, 20*time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "/api/posts/{id}", http.StatusOK, 30*time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "/api/posts/{id}", http.StatusNotFound, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/posts/{id}", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/posts/{id}", "404")), 0)
}

func TestCollector_ObserveMessage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveMessage("create_post", "ok", time.Millisecond)
	c.ObserveMessage("create_post", "UNAUTHENTICATED", time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(c.messages.WithLabelValues("create_post", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.messages.WithLabelValues("create_post", "UNAUTHENTICATED")), 0)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveMessage("get_user", "ok", time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "rpc_messages_total")
}
