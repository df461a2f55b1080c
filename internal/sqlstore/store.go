package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("sqlstore: closed")

// Store is a write-through cache over the kv table. Reads are served from
// memory only. Writes update the cache synchronously and queue a durable write
// that a single goroutine applies in order. A failed durable write is logged
// and counted; the cache is not rolled back, so at most the writes still
// queued are lost on abrupt termination.
type Store struct {
	db         *sql.DB
	historyCap int
	clock      clockwork.Clock
	metrics    metrics.Metrics

	opMu sync.Mutex

	mu    sync.RWMutex
	cache map[string][]byte

	// writeMu orders cache updates with their queued writes. The queue send
	// happens under writeMu only, so a full queue never blocks readers or
	// the initial load.
	writeMu sync.Mutex
	closed  bool

	writes  chan durableWrite
	ready   chan struct{}
	done    chan struct{}
	loadErr error
}

// Open starts loading every persisted row into the cache and returns
// immediately. Ready is closed once the load has finished; Err reports
// whether it succeeded. ctx bounds the load only.
func Open(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil database")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Store{
		db:         db,
		historyCap: o.historyCap,
		clock:      o.clock,
		metrics:    o.metrics,
		cache:      make(map[string][]byte),
		writes:     make(chan durableWrite, o.queueSize),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.run(ctx)
	return s, nil
}

// Ready is closed when the initial load has completed, successfully or not.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Err returns the load error, if any. It is only meaningful after Ready.
func (s *Store) Err() error {
	select {
	case <-s.ready:
		return s.loadErr
	default:
		return nil
	}
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	s.loadErr = s.load(ctx)
	close(s.ready)
	if s.loadErr != nil {
		log.Error("Failed to load structured store", "error", s.loadErr)
		for w := range s.writes {
			if w.flushed != nil {
				close(w.flushed)
			}
		}
		return
	}

	for w := range s.writes {
		if w.flushed != nil {
			close(w.flushed)
			continue
		}
		if err := s.apply(w); err != nil {
			log.Error("Durable write failed, keeping cached value", "error", err, "key", w.key)
			s.metrics.IncDurableWriteFailures()
		}
	}
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return fmt.Errorf("failed to query kv: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan kv row: %w", err)
		}
		loaded[key] = []byte(value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read kv rows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range loaded {
		if _, ok := s.cache[k]; !ok {
			s.cache[k] = v
		}
	}
	log.Info("Loaded structured store into cache", "keys", len(loaded))
	return nil
}

func (s *Store) apply(w durableWrite) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if w.value == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, w.key)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		w.key, string(w.value), w.at.UnixMilli())
	return err
}

// enqueue queues w. Caller holds s.writeMu.
func (s *Store) enqueue(w durableWrite) {
	if s.closed {
		log.Warn("Store is closed, durable write skipped", "key", w.key)
		s.metrics.IncDurableWriteFailures()
		return
	}
	s.writes <- w
}

// Get decodes the cached value of key into v.
func (s *Store) Get(key string, v any) bool {
	s.mu.RLock()
	raw, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Error("Failed to decode cached value, treating it as absent", "error", err, "key", key)
		s.metrics.IncDecodeFailures()
		return false
	}
	return true
}

// Put stores v under key.
func (s *Store) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.cache[key] = raw
	s.mu.Unlock()
	s.enqueue(durableWrite{key: key, value: raw, at: s.clock.Now()})
	s.metrics.IncStorageWrites(metrics.BackendSQL)
	return nil
}

// set is Put for callers that only log failures.
func (s *Store) set(key string, v any) {
	if err := s.Put(key, v); err != nil {
		log.Error("Failed to store value", "error", err, "key", key)
	}
}

// Delete removes key.
func (s *Store) Delete(key string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	_, ok := s.cache[key]
	delete(s.cache, key)
	s.mu.Unlock()
	if ok {
		s.enqueue(durableWrite{key: key, at: s.clock.Now()})
	}
}

// Keys returns the cached keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the bytes held by the cache.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size := 0
	for k, v := range s.cache {
		size += len(k) + len(v)
	}
	return size
}

// Flush waits until every write queued before the call has been applied.
func (s *Store) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	s.writeMu.Lock()
	if s.closed {
		s.writeMu.Unlock()
		return ErrClosed
	}
	select {
	case s.writes <- durableWrite{flushed: flushed}:
		s.writeMu.Unlock()
	case <-ctx.Done():
		s.writeMu.Unlock()
		return ctx.Err()
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close applies the queued writes and stops the writer. The database is not
// closed.
func (s *Store) Close() error {
	s.writeMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.writes)
	}
	s.writeMu.Unlock()
	<-s.done
	return nil
}
