package cookie

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
)

// MaxCookieBytes is the browser limit for a single name=value pair. Larger
// cookies are silently refused.
const MaxCookieBytes = 4096

// Jar is the raw cookie medium: a flat set of name/value strings.
type Jar interface {
	Get(name string) (string, bool)
	// Set stores a cookie and reports whether the jar accepted it.
	Set(name, value string) bool
	Delete(name string)
	Names() []string
}

// SizeOf approximates the Cookie header the jar would produce.
func SizeOf(j Jar) int {
	size := 0
	for _, name := range j.Names() {
		v, _ := j.Get(name)
		size += entrySize(name, v)
	}
	return size
}

// entrySize is the header cost of one cookie: "name=value; ".
func entrySize(name, value string) int {
	return len(name) + 1 + len(value) + 2
}

// MemoryJar keeps cookies in memory and enforces the per-cookie limit.
// It is safe for concurrent use.
type MemoryJar struct {
	mu      sync.RWMutex
	cookies map[string]string
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{cookies: make(map[string]string)}
}

func (j *MemoryJar) Get(name string) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v, ok := j.cookies[name]
	return v, ok
}

func (j *MemoryJar) Set(name, value string) bool {
	if len(name)+1+len(value) > MaxCookieBytes {
		log.Warn("Cookie exceeds browser limit, refusing it", "name", name, "bytes", len(name)+1+len(value))
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = value
	return true
}

func (j *MemoryJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
}

// Names returns the cookie names in sorted order.
func (j *MemoryJar) Names() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	names := make([]string, 0, len(j.cookies))
	for n := range j.cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the jar.
func (j *MemoryJar) Clone() *MemoryJar {
	j.mu.RLock()
	defer j.mu.RUnlock()
	c := NewMemoryJar()
	for k, v := range j.cookies {
		c.cookies[k] = v
	}
	return c
}

func (j *MemoryJar) snapshot() map[string]string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]string, len(j.cookies))
	for k, v := range j.cookies {
		out[k] = v
	}
	return out
}

// FileJar is a MemoryJar mirrored to a JSON file after every change, so the
// cookie profile survives restarts. Persistence is best effort: failures are
// logged and the in-memory jar stays authoritative.
type FileJar struct {
	*MemoryJar
	path string
	mu   sync.Mutex
}

// OpenFileJar loads the jar stored at path. A missing file yields an empty jar.
func OpenFileJar(path string) (*FileJar, error) {
	j := &FileJar{MemoryJar: NewMemoryJar(), path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info("No cookie jar file found, starting empty", "path", path)
		return j, nil
	}
	if err != nil {
		return nil, err
	}
	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		log.Error("Cookie jar file is corrupt, starting empty", "error", err, "path", path)
		return j, nil
	}
	for k, v := range cookies {
		j.MemoryJar.Set(k, v)
	}
	log.Info("Loaded cookie jar", "path", path, "cookies", len(cookies))
	return j, nil
}

func (j *FileJar) Set(name, value string) bool {
	if !j.MemoryJar.Set(name, value) {
		return false
	}
	j.persist()
	return true
}

func (j *FileJar) Delete(name string) {
	j.MemoryJar.Delete(name)
	j.persist()
}

func (j *FileJar) persist() {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.Marshal(j.snapshot())
	if err != nil {
		log.Error("Failed to encode cookie jar", "error", err)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cookies-*.json")
	if err != nil {
		log.Error("Failed to write cookie jar", "error", err, "path", j.path)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		log.Error("Failed to write cookie jar", "error", err, "path", j.path)
		return
	}
	if err := tmp.Close(); err != nil {
		log.Error("Failed to write cookie jar", "error", err, "path", j.path)
		return
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		log.Error("Failed to replace cookie jar", "error", err, "path", j.path)
	}
}
