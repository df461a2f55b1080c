package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}
	return fromEnv()
}

func fromEnv() Config {
	return Config{
		Port:   getEnv("PORT", "8080"),
		DBName: getEnv("DB_NAME", ""),
		Turso: TursoConfig{
			PrimaryURL: getEnv("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnv("TURSO_AUTH_TOKEN", ""),
		},
		Cookie: CookieConfig{
			JarPath: getEnv("COOKIE_JAR_PATH", "cookies.json"),
			Budget:  getInt("COOKIE_BUDGET", 8192, 0),
		},
		ProbeTimeout:  getDuration("PROBE_TIMEOUT", 5*time.Second),
		HistoryCap:    getInt("HISTORY_CAP", 50, 1),
		UsageInterval: getDuration("USAGE_INTERVAL", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getInt parses key as an integer no smaller than floor.
func getInt(key string, fallback, floor int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < floor {
		log.Warn("Invalid integer in environment, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn("Invalid duration in environment, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}
