package storage

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/apa-scorekeeper/internal/history"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
)

const migrationFlushTimeout = 5 * time.Second

// migrate moves every logical key found in cookies into s and deletes the
// source cookies. The current match and its events in cookies replace what s
// holds; history entries are merged by id. Caller holds a.mu exclusively.
func (a *Adaptive) migrate(ctx context.Context, s *sqlstore.Store) {
	keys := a.cookie.Keys()
	if len(keys) == 0 {
		return
	}
	log.Info("Migrating cookie storage into structured store", "keys", keys)

	var migrated []string
	for _, key := range keys {
		ok := false
		switch key {
		case match.KeyCurrentMatch:
			var m match.Match
			ok = a.migrateValue(s, key, &m)
		case match.KeyCurrentEvents:
			var events []match.Event
			ok = a.migrateValue(s, key, &events)
		case match.KeyMatchHistory:
			ok = a.migrateHistory(s)
		default:
			log.Warn("Leaving unknown cookie key in place", "key", key)
			continue
		}
		if ok {
			migrated = append(migrated, key)
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, migrationFlushTimeout)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		log.Warn("Migrated data not yet durable", "error", err)
	}

	for _, key := range migrated {
		a.cookie.DeleteKey(key)
	}
	a.metrics.AddMigratedKeys(len(migrated))
	log.Info("Cookie migration finished", "migrated", len(migrated))
}

// migrateValue copies key into s. An unreadable cookie value is discarded.
func (a *Adaptive) migrateValue(s *sqlstore.Store, key string, v any) bool {
	if !a.cookie.ReadKey(key, v) {
		log.Warn("Discarding unreadable cookie value", "key", key)
		a.cookie.DeleteKey(key)
		return false
	}
	if err := s.Put(key, v); err != nil {
		log.Error("Failed to migrate cookie value", "error", err, "key", key)
		return false
	}
	return true
}

func (a *Adaptive) migrateHistory(s *sqlstore.Store) bool {
	var fromCookie []match.HistoryEntry
	if !a.cookie.ReadKey(match.KeyMatchHistory, &fromCookie) {
		log.Warn("Discarding unreadable cookie history")
		a.cookie.DeleteKey(match.KeyMatchHistory)
		return false
	}

	merged := s.GetMatchHistory()
	known := make(map[string]bool, len(merged))
	for _, e := range merged {
		known[e.HistoryID] = true
	}
	for _, e := range fromCookie {
		if known[e.HistoryID] {
			continue
		}
		merged = history.Prepend(merged, e, s.HistoryCap())
	}
	if err := s.Put(match.KeyMatchHistory, merged); err != nil {
		log.Error("Failed to migrate cookie history", "error", err)
		return false
	}
	return true
}
