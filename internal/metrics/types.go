package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	StorageWrites        *prometheus.CounterVec
	WritesDropped        *prometheus.CounterVec
	Evictions            *prometheus.CounterVec
	DecodeFailures       prometheus.Counter
	DurableWriteFailures prometheus.Counter
	MigratedKeys         prometheus.Counter
	ActiveBackend        *prometheus.GaugeVec
	StorageBytes         *prometheus.GaugeVec
	StartupTimeSeconds   prometheus.Gauge
}

// Known backend labels.
const (
	BackendCookie = "cookie"
	BackendSQL    = "sql"
)
