package sqlstore

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
)

const (
	// DefaultHistoryCap is the number of archived matches kept.
	DefaultHistoryCap = 50
	defaultQueueSize  = 256
	writeTimeout      = 5 * time.Second
)

// Option configures a Store.
type Option func(*options)

type options struct {
	historyCap int
	queueSize  int
	clock      clockwork.Clock
	metrics    metrics.Metrics
}

func defaultOptions() options {
	return options{
		historyCap: DefaultHistoryCap,
		queueSize:  defaultQueueSize,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics.Noop{},
	}
}

// WithHistoryCap bounds the archive; older entries are dropped on insert.
func WithHistoryCap(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyCap = n
		}
	}
}

// WithQueueSize sets how many durable writes may be pending before writers
// block.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithMetrics(m metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// durableWrite is one queued change to the kv table. A nil value deletes the
// key. A write with flushed set carries no change and only signals that every
// earlier write has been applied.
type durableWrite struct {
	key     string
	value   []byte
	at      time.Time
	flushed chan struct{}
}
