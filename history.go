package tracker

import (
	"fmt"
	"iter"
	"slices"

	"github.com/etnz/tracker/date"
)

// History is a list of performance entries.
//
// In a History entries are always in chronological order, and there is at
// most one entry per month.
type History struct {
	entries []Entry
}

// NewHistory creates a history from entries in any order.
func NewHistory(entries ...Entry) (*History, error) {
	h := &History{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		if err := h.Insert(e); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func byMonth(e Entry, m date.Month) int { return e.Month.Compare(m) }

// search returns the position of month m and whether it is present.
func (h *History) search(m date.Month) (int, bool) {
	return slices.BinarySearchFunc(h.entries, m, byMonth)
}

func (h *History) index(id string) int {
	return slices.IndexFunc(h.entries, func(e Entry) bool { return e.ID == id })
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the entries, in chronological order.
func (h *History) Entries() []Entry { return slices.Clone(h.entries) }

// All iterates over entries in chronological order.
func (h *History) All() iter.Seq[Entry] { return slices.Values(h.entries) }

// Clone returns an independent copy of h.
func (h *History) Clone() *History { return &History{entries: slices.Clone(h.entries)} }

// Get returns the entry with this ID.
func (h *History) Get(id string) (Entry, bool) {
	if i := h.index(id); i >= 0 {
		return h.entries[i], true
	}
	return Entry{}, false
}

// At returns the entry of month m.
func (h *History) At(m date.Month) (Entry, bool) {
	if i, ok := h.search(m); ok {
		return h.entries[i], true
	}
	return Entry{}, false
}

// Insert adds a new entry at its chronological position.
func (h *History) Insert(e Entry) error {
	i, found := h.search(e.Month)
	if found {
		return fmt.Errorf("%w: %v", ErrDuplicateMonth, e.Month)
	}
	h.entries = slices.Insert(h.entries, i, e)
	return nil
}

// Upsert replaces the entry of e's month, keeping its ID and creation time,
// or inserts e. It returns the stored entry.
func (h *History) Upsert(e Entry) Entry {
	i, found := h.search(e.Month)
	if !found {
		h.entries = slices.Insert(h.entries, i, e)
		return e
	}
	old := h.entries[i]
	e.ID, e.CreatedAt = old.ID, old.CreatedAt
	h.entries[i] = e
	return e
}

// Update replaces the entry with the same ID. The month may change as long as
// no other entry holds the new month.
func (h *History) Update(e Entry) error {
	i := h.index(e.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, e.ID)
	}
	if j, found := h.search(e.Month); found && j != i {
		return fmt.Errorf("%w: %v", ErrDuplicateMonth, e.Month)
	}
	h.entries[i] = e
	SortEntries(h.entries)
	return nil
}

// Delete removes the entry with this ID and returns it.
func (h *History) Delete(id string) (Entry, error) {
	i := h.index(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrEntryNotFound, id)
	}
	e := h.entries[i]
	h.entries = slices.Delete(h.entries, i, i+1)
	return e, nil
}

// Between returns the entries from month from to month to, both included.
// A zero bound is open.
func (h *History) Between(from, to date.Month) []Entry {
	var res []Entry
	for _, e := range h.entries {
		if !from.IsZero() && e.Month.Before(from) {
			continue
		}
		if !to.IsZero() && e.Month.After(to) {
			break
		}
		res = append(res, e)
	}
	return res
}

// SortEntries sorts entries chronologically, in place.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int { return a.Month.Compare(b.Month) })
}
