package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testStore runs the contract every Store must satisfy.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, Investors, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		doc := Document{Collection: Investors, ID: "a", Body: []byte(`{"name":"Ada"}`), UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
		if err := s.Put(ctx, doc); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, err := s.Get(ctx, Investors, "a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var v struct{ Name string }
		if err := got.Decode(&v); err != nil || v.Name != "Ada" {
			t.Errorf("Get() body = %s, %v", got.Body, err)
		}
		if !got.UpdatedAt.Equal(doc.UpdatedAt) {
			t.Errorf("Get() updatedAt = %v, want %v", got.UpdatedAt, doc.UpdatedAt)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		if err := s.Put(ctx, Document{Collection: Investors, ID: "a", Body: []byte(`{"name":"Grace"}`)}); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Get(ctx, Investors, "a")
		var v struct{ Name string }
		if err := got.Decode(&v); err != nil || v.Name != "Grace" {
			t.Errorf("Get() after replace = %s, %v", got.Body, err)
		}
	})

	t.Run("list is ordered and scoped", func(t *testing.T) {
		for _, id := range []string{"c", "b"} {
			if err := s.Put(ctx, Document{Collection: Investors, ID: id, Body: []byte(`{}`)}); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Put(ctx, Document{Collection: InvestorPerformance("a"), ID: "x", Body: []byte(`{}`)}); err != nil {
			t.Fatal(err)
		}
		docs, err := s.List(ctx, Investors)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
			t.Errorf("List() ids = %v, want [a b c]", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, Investors, "b"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, Investors, "b"); err != nil {
			t.Errorf("deleting a missing document must succeed, got %v", err)
		}
		if _, err := s.Get(ctx, Investors, "b"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Delete error = %v", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if err := s.Put(ctx, Document{Collection: Investors, ID: "a/b", Body: []byte(`{}`)}); err == nil {
			t.Errorf("Put() with a slash in the id must fail")
		}
	})
}
