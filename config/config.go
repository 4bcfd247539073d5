// Package config reads the tracker settings.
//
// Settings come from a .env file, then the environment, then the command line
// flags, each overriding the previous one.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Remote store backends.
const (
	BackendNone     = "none"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the settings of the tracker.
type Config struct {
	Listen        string        // TRACKER_LISTEN
	Backend       string        // TRACKER_BACKEND: none, postgres or mongo
	DBURL         string        // DB_URL
	MongoURL      string        // MONGO_URL
	MongoDatabase string        // TRACKER_MONGO_DB
	RedisURL      string        // REDIS_URL
	LocalPath     string        // TRACKER_LOCAL, "" keeps the local copy in memory
	Currency      string        // TRACKER_CURRENCY
	SyncInterval  time.Duration // TRACKER_SYNC_INTERVAL
	AdminToken    string        // TRACKER_ADMIN_TOKEN
	GeminiAPIKey  string        // GEMINI_API_KEY
	GeminiModel   string        // TRACKER_GEMINI_MODEL
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Listen:        ":8080",
		Backend:       BackendNone,
		MongoDatabase: "tracker",
		LocalPath:     "tracker.db",
		Currency:      "EUR",
		SyncInterval:  5 * time.Minute,
	}
}

// Load reads the .env files (missing files are ignored) and the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not load %s: %w", f, err)
		}
	}
	c := Default()
	if err := c.FromEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, nil
}

// FromEnv overrides the settings with the variables found by lookup.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TRACKER_LISTEN", &c.Listen)
	str("TRACKER_BACKEND", &c.Backend)
	str("DB_URL", &c.DBURL)
	str("MONGO_URL", &c.MongoURL)
	str("TRACKER_MONGO_DB", &c.MongoDatabase)
	str("REDIS_URL", &c.RedisURL)
	str("TRACKER_CURRENCY", &c.Currency)
	str("TRACKER_ADMIN_TOKEN", &c.AdminToken)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("TRACKER_GEMINI_MODEL", &c.GeminiModel)
	// an empty TRACKER_LOCAL is meaningful
	if v, ok := lookup("TRACKER_LOCAL"); ok {
		c.LocalPath = strings.TrimSpace(v)
	}
	if v, ok := lookup("TRACKER_SYNC_INTERVAL"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("TRACKER_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}
	return c.Validate()
}

// parseDuration accepts Go durations and plain seconds.
func parseDuration(v string) (time.Duration, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// RegisterFlags binds the settings to flags, using the current values as
// defaults.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Backend, "backend", c.Backend, "remote store: none, postgres or mongo")
	f.StringVar(&c.DBURL, "db-url", c.DBURL, "postgres DSN of the remote store")
	f.StringVar(&c.MongoURL, "mongo-url", c.MongoURL, "mongodb URI of the remote store")
	f.StringVar(&c.LocalPath, "local", c.LocalPath, "path of the local SQLite copy, empty to keep it in memory")
	f.StringVar(&c.Currency, "currency", c.Currency, "default currency")
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNone:
	case BackendPostgres:
		if c.DBURL == "" {
			return errors.New("the postgres backend requires DB_URL")
		}
	case BackendMongo:
		if c.MongoURL == "" {
			return errors.New("the mongo backend requires MONGO_URL")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid currency %q", c.Currency)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("invalid sync interval %v", c.SyncInterval)
	}
	return nil
}
