package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncStorageWrites(BackendCookie)
	s.IncStorageWrites(BackendCookie)
	s.IncWritesDropped(BackendCookie)
	s.IncEvictions("history")
	s.AddMigratedKeys(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.StorageWrites.WithLabelValues(BackendCookie)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.WritesDropped.WithLabelValues(BackendCookie)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Evictions.WithLabelValues("history")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.MigratedKeys))
}

func TestService_ActiveBackendIsExclusive(t *testing.T) {
	s := NewService(prometheus.NewRegistry())

	s.SetActiveBackend(BackendSQL)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ActiveBackend.WithLabelValues(BackendSQL)))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.ActiveBackend.WithLabelValues(BackendCookie)))

	s.SetActiveBackend(BackendCookie)
	assert.Equal(t, 0.0, testutil.ToFloat64(s.ActiveBackend.WithLabelValues(BackendSQL)))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)
	s.SetStorageBytes(BackendCookie, 2048)

	rec := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scorekeeper_storage_bytes{backend="cookie"} 2048`)
}
