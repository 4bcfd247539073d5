package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		check   func(Config) bool
		wantErr bool
	}{
		{
			name:  "defaults",
			vars:  map[string]string{},
			check: func(c Config) bool { return c == Default() },
		},
		{
			name:  "postgres",
			vars:  map[string]string{"TRACKER_BACKEND": "postgres", "DB_URL": "postgres://h/db"},
			check: func(c Config) bool { return c.Backend == BackendPostgres && c.DBURL == "postgres://h/db" },
		},
		{
			name:  "memory local copy",
			vars:  map[string]string{"TRACKER_LOCAL": ""},
			check: func(c Config) bool { return c.LocalPath == "" },
		},
		{
			name:  "interval in seconds",
			vars:  map[string]string{"TRACKER_SYNC_INTERVAL": "90"},
			check: func(c Config) bool { return c.SyncInterval == 90*time.Second },
		},
		{
			name:  "interval as duration",
			vars:  map[string]string{"TRACKER_SYNC_INTERVAL": "2m"},
			check: func(c Config) bool { return c.SyncInterval == 2*time.Minute },
		},
		{name: "bad interval", vars: map[string]string{"TRACKER_SYNC_INTERVAL": "soon"}, wantErr: true},
		{name: "mongo without url", vars: map[string]string{"TRACKER_BACKEND": "mongo"}, wantErr: true},
		{name: "unknown backend", vars: map[string]string{"TRACKER_BACKEND": "mysql"}, wantErr: true},
		{name: "bad currency", vars: map[string]string{"TRACKER_CURRENCY": "EURO"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			err := c.FromEnv(env(tt.vars))
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !tt.check(c) {
				t.Errorf("FromEnv() = %+v", c)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TRACKER_CURRENCY=USD\nTRACKER_LISTEN=:9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRACKER_CURRENCY", "")
	os.Unsetenv("TRACKER_CURRENCY")
	t.Setenv("TRACKER_LISTEN", ":7070") // the environment wins over the file

	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Currency != "USD" || c.Listen != ":7070" {
		t.Errorf("Load() = %+v", c)
	}
}

func TestRegisterFlags(t *testing.T) {
	c := Default()
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(f)
	if err := f.Parse([]string{"-currency", "CHF", "-local", ""}); err != nil {
		t.Fatal(err)
	}
	if c.Currency != "CHF" || c.LocalPath != "" {
		t.Errorf("flags not applied: %+v", c)
	}
}
