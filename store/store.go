// Package store persists the tracker documents.
//
// Documents are JSON bodies grouped in slash separated collections, like
// "investors" or "investors/{id}/performance". Backends:
//
//   - Memory: tests and the default local store.
//   - SQLite: the local backup on disk.
//   - Postgres: remote store on a JSONB table.
//   - Mongo: remote store, one mongo collection per path.
//
// Mirror combines a remote and a local store so that the tracker keeps
// working when the remote is unavailable.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Collections.
const (
	Performance   = "performance"
	Settings      = "settings"
	Investors     = "investors"
	Conversations = "conversations"
)

// InvestorPerformance is the collection of the entries of one investor.
func InvestorPerformance(investorID string) string {
	return Investors + "/" + investorID + "/" + Performance
}

// Messages is the collection of the messages exchanged with one investor.
func Messages(investorID string) string {
	return Conversations + "/" + investorID + "/messages"
}

// Document is a stored JSON body.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewDocument marshals v into a document.
func NewDocument(collection, id string, v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("could not encode %s/%s: %w", collection, id, err)
	}
	return Document{Collection: collection, ID: id, Body: b, UpdatedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Body, v); err != nil {
		return fmt.Errorf("could not decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Store provides persistence for documents.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put creates or replaces the document.
	Put(ctx context.Context, doc Document) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// List returns the documents of a collection, ordered by ID.
	List(ctx context.Context, collection string) ([]Document, error)
	Close() error
}

func validate(collection, id string) error {
	if collection == "" || strings.HasPrefix(collection, "/") || strings.HasSuffix(collection, "/") {
		return fmt.Errorf("invalid collection %q", collection)
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("invalid document id %q in %s", id, collection)
	}
	return nil
}

// Unreachable is a Store whose operations all fail with Err. It stands for a
// remote store that could not be connected, so that a Mirror keeps working on
// its local copy.
type Unreachable struct{ Err error }

func (u Unreachable) Get(context.Context, string, string) (Document, error) { return Document{}, u.Err }
func (u Unreachable) Put(context.Context, Document) error { return u.Err }
func (u Unreachable) Delete(context.Context, string, string) error { return u.Err }
func (u Unreachable) List(context.Context, string) ([]Document, error) { return nil, u.Err }
func (u Unreachable) Close() error { return nil }
