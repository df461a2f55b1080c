package metrics

// Metrics defines the interface for collecting storage metrics.
// This decouples the persistence layer from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncStorageWrites(backend string)
	IncWritesDropped(backend string)
	IncEvictions(kind string)
	IncDecodeFailures()
	IncDurableWriteFailures()
	AddMigratedKeys(n int)
	SetActiveBackend(backend string)
	SetStorageBytes(backend string, bytes int)
	SetStartupTime(duration float64)
}
