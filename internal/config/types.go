package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Port string
	// DBName is the local SQLite file. Empty disables the structured store.
	DBName string
	Turso  TursoConfig
	Cookie CookieConfig
	// ProbeTimeout bounds opening the structured store at startup.
	ProbeTimeout time.Duration
	HistoryCap   int
	// UsageInterval is how often storage usage is sampled into metrics.
	UsageInterval time.Duration
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type CookieConfig struct {
	JarPath string
	Budget  int
}

// StructuredStoreEnabled reports whether a structured store is configured.
func (c Config) StructuredStoreEnabled() bool {
	return c.DBName != "" || c.Turso.PrimaryURL != ""
}
