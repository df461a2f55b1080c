package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                   sync.Mutex
	storageWrites        map[string]int
	writesDropped        map[string]int
	evictions            map[string]int
	decodeFailures       int
	durableWriteFailures int
	migratedKeys         int
	activeBackend        string
	storageBytes         map[string]int
	startupTime          float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		storageWrites: make(map[string]int),
		writesDropped: make(map[string]int),
		evictions:     make(map[string]int),
		storageBytes:  make(map[string]int),
	}
}

func (m *Mock) IncStorageWrites(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageWrites[backend]++
}

func (m *Mock) IncWritesDropped(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writesDropped[backend]++
}

func (m *Mock) IncEvictions(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions[kind]++
}

func (m *Mock) IncDecodeFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decodeFailures++
}

func (m *Mock) IncDurableWriteFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durableWriteFailures++
}

func (m *Mock) AddMigratedKeys(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migratedKeys += n
}

func (m *Mock) SetActiveBackend(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeBackend = backend
}

func (m *Mock) SetStorageBytes(backend string, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageBytes[backend] = bytes
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// StorageWrites returns how often IncStorageWrites was called for backend.
func (m *Mock) StorageWrites(backend string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storageWrites[backend]
}

// WritesDropped returns how often IncWritesDropped was called for backend.
func (m *Mock) WritesDropped(backend string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writesDropped[backend]
}

// Evictions returns how often IncEvictions was called for kind.
func (m *Mock) Evictions(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions[kind]
}

// DecodeFailures returns the number of times IncDecodeFailures was called.
func (m *Mock) DecodeFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decodeFailures
}

// DurableWriteFailures returns the number of times IncDurableWriteFailures was called.
func (m *Mock) DurableWriteFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durableWriteFailures
}

// MigratedKeys returns the total passed to AddMigratedKeys.
func (m *Mock) MigratedKeys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migratedKeys
}

// ActiveBackend returns the last value passed to SetActiveBackend.
func (m *Mock) ActiveBackend() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeBackend
}

// StorageBytes returns the last value passed to SetStorageBytes for backend.
func (m *Mock) StorageBytes(backend string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storageBytes[backend]
}
