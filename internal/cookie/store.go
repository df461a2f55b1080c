package cookie

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/apa-scorekeeper/internal/codec"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
)

const metaSuffix = "_meta"

// Options bound how values are laid out in the jar.
type Options struct {
	// Prefix namespaces every cookie the application writes.
	Prefix string
	// MaxValueSize is the largest encoded value stored as a single cookie.
	MaxValueSize int
	// ChunkSize is the size of each chunk of a larger value.
	ChunkSize int
	// TotalBudget is the size the whole jar must stay under.
	TotalBudget int
}

// DefaultOptions leaves headroom under the 4KB cookie and ~8KB header limits.
func DefaultOptions() Options {
	return Options{
		Prefix:       "apa9_",
		MaxValueSize: 3400,
		ChunkSize:    3000,
		TotalBudget:  8192,
	}
}

// evictFunc frees space so that a value needing need bytes can be written
// under key.
type evictFunc func(key string, need int)

// Store is a key/value store over a cookie jar. Values that do not fit one
// cookie are split into numbered chunks described by a meta cookie. The meta
// cookie is written before the chunks and removed after them, so it is the
// authoritative record of which chunks exist.
//
// Store is not safe for concurrent use; Backend serialises access.
type Store struct {
	jar     Jar
	opts    Options
	metrics metrics.Metrics
	evict   evictFunc
}

func newStore(jar Jar, opts Options, m metrics.Metrics) *Store {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.MaxValueSize <= 0 {
		opts.MaxValueSize = DefaultOptions().MaxValueSize
	}
	return &Store{jar: jar, opts: opts, metrics: m}
}

func (s *Store) name(key string) string {
	return s.opts.Prefix + key
}

func (s *Store) metaName(key string) string {
	return s.opts.Prefix + key + metaSuffix
}

func (s *Store) chunkName(key string, i int) string {
	return s.opts.Prefix + key + "_" + strconv.Itoa(i)
}

// Write encodes v and stores it under key. It reports whether the value was
// persisted; failures are logged and never returned to the caller.
func (s *Store) Write(key string, v any) bool {
	encoded, err := codec.Encode(v)
	if err != nil {
		log.Error("Failed to encode value for cookie storage", "error", err, "key", key)
		s.metrics.IncWritesDropped(metrics.BackendCookie)
		return false
	}
	return s.writeEncoded(key, encoded, true)
}

// Read decodes the value stored under key into v. A missing, incomplete or
// undecodable value reads as absent.
func (s *Store) Read(key string, v any) bool {
	raw, ok := s.readEncoded(key)
	if !ok {
		return false
	}
	if err := codec.Decode(raw, v); err != nil {
		log.Error("Failed to decode cookie value, treating it as absent", "error", err, "key", key)
		s.metrics.IncDecodeFailures()
		return false
	}
	return true
}

// Delete removes every cookie belonging to key.
func (s *Store) Delete(key string) {
	s.jar.Delete(s.name(key))
	if n, _, ok := s.meta(key); ok {
		for i := 0; i < n; i++ {
			s.jar.Delete(s.chunkName(key, i))
		}
	}
	s.jar.Delete(s.metaName(key))
}

// Has reports whether anything is stored under key.
func (s *Store) Has(key string) bool {
	if _, ok := s.jar.Get(s.name(key)); ok {
		return true
	}
	_, ok := s.jar.Get(s.metaName(key))
	return ok
}

// Keys returns the logical keys present in the jar.
func (s *Store) Keys() []string {
	seen := make(map[string]bool)
	for _, name := range s.jar.Names() {
		if !strings.HasPrefix(name, s.opts.Prefix) {
			continue
		}
		key := strings.TrimPrefix(name, s.opts.Prefix)
		switch {
		case strings.HasSuffix(key, metaSuffix):
			seen[strings.TrimSuffix(key, metaSuffix)] = true
		case isChunkName(key):
		default:
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the approximate header size of the whole jar.
func (s *Store) Size() int {
	return SizeOf(s.jar)
}

// Footprint returns the bytes currently used by key.
func (s *Store) Footprint(key string) int {
	size := 0
	if v, ok := s.jar.Get(s.name(key)); ok {
		size += entrySize(s.name(key), v)
	}
	if v, ok := s.jar.Get(s.metaName(key)); ok {
		size += entrySize(s.metaName(key), v)
		if n, _, ok := s.meta(key); ok {
			for i := 0; i < n; i++ {
				if c, ok := s.jar.Get(s.chunkName(key, i)); ok {
					size += entrySize(s.chunkName(key, i), c)
				}
			}
		}
	}
	return size
}

// fits reports whether need bytes can replace what key uses today.
func (s *Store) fits(key string, need int) bool {
	if s.opts.TotalBudget <= 0 {
		return true
	}
	return s.Size()-s.Footprint(key)+need <= s.opts.TotalBudget
}

func (s *Store) writeEncoded(key, encoded string, allowEvict bool) bool {
	need := s.layoutSize(key, encoded)
	if !s.fits(key, need) {
		if allowEvict && s.evict != nil {
			log.Warn("Cookie budget exceeded, running eviction", "key", key, "need", need, "jar_size", s.Size(), "budget", s.opts.TotalBudget)
			s.evict(key, need)
		}
		if !s.fits(key, need) {
			log.Warn("Dropping cookie write that does not fit the budget", "key", key, "need", need, "jar_size", s.Size(), "budget", s.opts.TotalBudget)
			s.metrics.IncWritesDropped(metrics.BackendCookie)
			return false
		}
	}

	s.Delete(key)

	if len(encoded) <= s.opts.MaxValueSize {
		if !s.jar.Set(s.name(key), encoded) {
			s.metrics.IncWritesDropped(metrics.BackendCookie)
			return false
		}
		s.metrics.IncStorageWrites(metrics.BackendCookie)
		return true
	}

	chunks := split(encoded, s.opts.ChunkSize)
	if !s.jar.Set(s.metaName(key), fmt.Sprintf("%d:%d", len(chunks), len(encoded))) {
		s.metrics.IncWritesDropped(metrics.BackendCookie)
		return false
	}
	for i, c := range chunks {
		if !s.jar.Set(s.chunkName(key, i), c) {
			log.Error("Cookie jar refused a chunk, removing partial value", "key", key, "chunk", i)
			s.Delete(key)
			s.metrics.IncWritesDropped(metrics.BackendCookie)
			return false
		}
	}
	log.Debug("Wrote chunked cookie value", "key", key, "chunks", len(chunks), "bytes", len(encoded))
	s.metrics.IncStorageWrites(metrics.BackendCookie)
	return true
}

func (s *Store) readEncoded(key string) (string, bool) {
	if v, ok := s.jar.Get(s.name(key)); ok {
		return v, true
	}
	if _, ok := s.jar.Get(s.metaName(key)); !ok {
		return "", false
	}
	n, total, ok := s.meta(key)
	if !ok {
		log.Warn("Unreadable chunk index, treating value as absent", "key", key)
		return "", false
	}

	var b strings.Builder
	b.Grow(total)
	for i := 0; i < n; i++ {
		c, ok := s.jar.Get(s.chunkName(key, i))
		if !ok {
			log.Warn("Missing cookie chunk, treating value as absent", "key", key, "chunk", i, "chunks", n)
			return "", false
		}
		b.WriteString(c)
	}
	if b.Len() != total {
		log.Warn("Reassembled cookie value has the wrong length", "key", key, "want", total, "got", b.Len())
		return "", false
	}
	return b.String(), true
}

// meta parses the "<count>:<total>" chunk index of key.
func (s *Store) meta(key string) (count, total int, ok bool) {
	v, found := s.jar.Get(s.metaName(key))
	if !found {
		return 0, 0, false
	}
	countStr, totalStr, found := strings.Cut(v, ":")
	if !found {
		return 0, 0, false
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return 0, 0, false
	}
	total, err = strconv.Atoi(totalStr)
	if err != nil || total < 0 {
		return 0, 0, false
	}
	return count, total, true
}

func (s *Store) layoutSize(key, encoded string) int {
	if len(encoded) <= s.opts.MaxValueSize {
		return entrySize(s.name(key), encoded)
	}
	chunks := split(encoded, s.opts.ChunkSize)
	size := entrySize(s.metaName(key), fmt.Sprintf("%d:%d", len(chunks), len(encoded)))
	for i, c := range chunks {
		size += entrySize(s.chunkName(key, i), c)
	}
	return size
}

func split(s string, size int) []string {
	chunks := make([]string, 0, len(s)/size+1)
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return append(chunks, s)
}

// isChunkName reports whether key ends in _<digits>.
func isChunkName(key string) bool {
	i := strings.LastIndexByte(key, '_')
	if i < 0 || i == len(key)-1 {
		return false
	}
	for _, r := range key[i+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
