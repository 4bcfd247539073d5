package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests against real servers, skipped unless configured.

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		t.Skip("DB_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p, err := ConnectPostgres(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, err := p.pool.Exec(ctx, `DELETE FROM tracker_documents WHERE collection LIKE 'investors%'`); err != nil {
		t.Fatal(err)
	}
	testStore(t, p)
}

func TestMongo(t *testing.T) {
	uri := os.Getenv("MONGO_URL")
	if uri == "" {
		t.Skip("MONGO_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m, err := ConnectMongo(ctx, uri, "tracker_test")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if err := m.db.Drop(ctx); err != nil {
		t.Fatal(err)
	}
	testStore(t, m)
}

func TestNormalizeDSN(t *testing.T) {
	tests := map[string]string{
		"postgresql+asyncpg://u:p@h/db": "postgresql://u:p@h/db",
		"postgres+pgx://u:p@h/db":       "postgres://u:p@h/db",
		" postgres://u:p@h/db ":         "postgres://u:p@h/db",
	}
	for in, want := range tests {
		if got := normalizeDSN(in); got != want {
			t.Errorf("normalizeDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
