package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/apa-scorekeeper/internal/config"
	"github.com/mauv0809/apa-scorekeeper/internal/cookie"
	"github.com/mauv0809/apa-scorekeeper/internal/database"
	"github.com/mauv0809/apa-scorekeeper/internal/match"
	"github.com/mauv0809/apa-scorekeeper/internal/metrics"
	"github.com/mauv0809/apa-scorekeeper/internal/sqlstore"
	"github.com/mauv0809/apa-scorekeeper/internal/storage"
)

var seedPlayers = []string{"Seeder Player A", "Seeder Player B", "Seeder Player C", "Seeder Player D"}

func main() {
	log.Info("Starting seeder...")
	cfg := config.Load()
	startTime := time.Now()

	seedCookies(cfg)
	if cfg.StructuredStoreEnabled() {
		seedDatabase(cfg)
	} else {
		log.Info("No structured store configured, skipping database backfill")
	}

	log.Info("Seeding finished.", "duration", time.Since(startTime))
}

// seedCookies leaves one archived match and one match in progress in the
// cookie jar, so the next server start with a database migrates them.
func seedCookies(cfg config.Config) {
	jar, err := cookie.OpenFileJar(cfg.Cookie.JarPath)
	if err != nil {
		log.Fatalf("Failed to open cookie jar: %s", err)
	}
	opts := cookie.DefaultOptions()
	opts.TotalBudget = cfg.Cookie.Budget
	clock := clockwork.NewFakeClockAt(time.Now().Add(-2 * time.Hour))
	backend := cookie.NewBackend(jar, opts, metrics.Noop{}, clock)

	if err := seedMatch(backend, clock, true); err != nil {
		log.Fatalf("Failed to seed archived match: %s", err)
	}
	if err := seedMatch(backend, clock, false); err != nil {
		log.Fatalf("Failed to seed match in progress: %s", err)
	}
	log.Info("Seeded cookie jar", "path", cfg.Cookie.JarPath, "bytes", backend.Size(), "keys", len(jar.Names()))
}

// seedDatabase backfills the structured store with a full history.
func seedDatabase(cfg config.Config) {
	db, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer db.Close()

	// Archives are backdated one per day so the history spans several weeks.
	clock := clockwork.NewFakeClockAt(time.Now().Add(-time.Duration(cfg.HistoryCap+1) * 24 * time.Hour))
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, db, sqlstore.WithHistoryCap(cfg.HistoryCap), sqlstore.WithClock(clock))
	if err != nil {
		log.Fatalf("Failed to open store: %s", err)
	}
	<-store.Ready()
	if err := store.Err(); err != nil {
		log.Fatalf("Failed to load store: %s", err)
	}

	numMatches := cfg.HistoryCap
	log.Info("Preparing to archive dummy matches...", "total", numMatches)
	for i := 0; i < numMatches; i++ {
		if err := seedMatch(store, clock, true); err != nil {
			log.Fatalf("Failed to seed match %d: %s", i+1, err)
		}
		clock.Advance(24 * time.Hour)
	}

	flushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := store.Flush(flushCtx); err != nil {
		log.Fatalf("Failed to flush writes: %s", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Failed to close store", "error", err)
	}
	log.Info("Backfilled database history", "stats", store.GetMatchHistoryStats())
}

// seedMatch plays one random match through backend. A finished match is
// archived and cleared; otherwise play stops halfway and the match is left
// in progress.
func seedMatch(backend storage.Backend, clock *clockwork.FakeClock, finish bool) error {
	p := rand.Perm(len(seedPlayers))
	m, err := backend.CreateMatch(match.NewMatchInput{
		Player1Name:       seedPlayers[p[0]],
		Player2Name:       seedPlayers[p[1]],
		Player1SkillLevel: 1 + rand.Intn(9),
		Player2SkillLevel: 1 + rand.Intn(9),
	})
	if err != nil {
		return err
	}

	limit := func(p match.PlayerNum) int {
		if finish {
			return m.Target(p)
		}
		return m.Target(p) / 2
	}

	scores := map[match.PlayerNum]int{}
	game, ball := 1, 1
	for scores[match.Player1] < limit(match.Player1) && scores[match.Player2] < limit(match.Player2) {
		clock.Advance(45 * time.Second)
		shooter := match.Player1
		if rand.Intn(2) == 1 {
			shooter = match.Player2
		}
		scores[shooter] += match.BallPoints(ball)
		backend.AddMatchEvent(match.Event{
			Type:       match.EventBallScored,
			Timestamp:  clock.Now(),
			Player:     shooter,
			PlayerName: m.Name(shooter),
			GameNumber: game,
			BallNumber: ball,
			Points:     match.BallPoints(ball),
			NewScore:   scores[shooter],
		})
		if ball == match.GameBall {
			game, ball = game+1, 1
		} else {
			ball++
		}
	}

	p1, p2 := scores[match.Player1], scores[match.Player2]
	updated := backend.UpdateMatch(m.ID, match.Update{Player1Score: &p1, Player2Score: &p2, CurrentGame: &game})
	if updated == nil {
		return fmt.Errorf("match %s was not saved", m.ID)
	}
	if !finish {
		return nil
	}
	if !updated.IsComplete {
		return fmt.Errorf("match %s did not complete", m.ID)
	}
	if !backend.AddToHistory(updated) {
		return fmt.Errorf("match %s was not archived", m.ID)
	}
	backend.ClearCurrentMatch()
	backend.ClearCurrentMatchEvents()
	return nil
}
