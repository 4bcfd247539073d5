package store

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

// Memory is an in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string]map[string]Document // collection -> id -> doc
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]Document)}
}

var errClosed = errors.New("store is closed")

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validate(collection, id); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Document{}, errClosed
	}
	doc, ok := m.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return clone(doc), nil
}

func (m *Memory) Put(ctx context.Context, doc Document) error {
	if err := validate(doc.Collection, doc.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	c, ok := m.docs[doc.Collection]
	if !ok {
		c = make(map[string]Document)
		m.docs[doc.Collection] = c
	}
	c[doc.ID] = clone(doc)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	c := m.docs[collection]
	res := make([]Document, 0, len(c))
	for _, id := range slices.Sorted(maps.Keys(c)) {
		res = append(res, clone(c[id]))
	}
	return res, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(d Document) Document {
	d.Body = slices.Clone(d.Body)
	return d
}
