package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		StorageWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scorekeeper_storage_writes_total",
			Help: "The total number of logical writes accepted by a storage backend.",
		}, []string{"backend"}),
		WritesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scorekeeper_storage_writes_dropped_total",
			Help: "The total number of writes dropped because they did not fit the storage budget.",
		}, []string{"backend"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scorekeeper_storage_evictions_total",
			Help: "The total number of emergency evictions, by what was evicted.",
		}, []string{"kind"}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scorekeeper_storage_decode_failures_total",
			Help: "The total number of stored values that could not be decoded.",
		}),
		DurableWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scorekeeper_storage_durable_write_failures_total",
			Help: "The total number of background database writes that failed.",
		}),
		MigratedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scorekeeper_storage_migrated_keys_total",
			Help: "The total number of keys migrated from cookies into the database.",
		}),
		ActiveBackend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scorekeeper_storage_active_backend",
			Help: "Set to 1 for the storage backend selected at startup.",
		}, []string{"backend"}),
		StorageBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scorekeeper_storage_bytes",
			Help: "Approximate bytes held by a storage backend.",
		}, []string{"backend"}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scorekeeper_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.StorageWrites,
		s.WritesDropped,
		s.Evictions,
		s.DecodeFailures,
		s.DurableWriteFailures,
		s.MigratedKeys,
		s.ActiveBackend,
		s.StorageBytes,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncStorageWrites(backend string) {
	s.StorageWrites.WithLabelValues(backend).Inc()
}

func (s *Service) IncWritesDropped(backend string) {
	s.WritesDropped.WithLabelValues(backend).Inc()
}

func (s *Service) IncEvictions(kind string) {
	s.Evictions.WithLabelValues(kind).Inc()
}

func (s *Service) IncDecodeFailures() {
	s.DecodeFailures.Inc()
}

func (s *Service) IncDurableWriteFailures() {
	s.DurableWriteFailures.Inc()
}

func (s *Service) AddMigratedKeys(n int) {
	s.MigratedKeys.Add(float64(n))
}

func (s *Service) SetActiveBackend(backend string) {
	for _, b := range []string{BackendCookie, BackendSQL} {
		v := 0.0
		if b == backend {
			v = 1
		}
		s.ActiveBackend.WithLabelValues(b).Set(v)
	}
}

func (s *Service) SetStorageBytes(backend string, bytes int) {
	s.StorageBytes.WithLabelValues(backend).Set(float64(bytes))
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
