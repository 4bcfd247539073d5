// Package legacy migrates the JSON exports of the former dashboard.
//
// An export is a dump of the document database: collections are objects keyed
// by document ID (or arrays of documents), and numbers were often saved as
// strings. The location of every collection and field is a JSONPath
// expression, so that variants of the dump can be read without code changes.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/shopspring/decimal"
)

// Paths locates the data in an export. Collection paths are evaluated on the
// whole export, field paths on each document.
type Paths struct {
	StartingBalance string // a number
	Entries         string // collection of entries
	Investors       string // collection of investors
	// InvestorEntries and Messages are evaluated on each investor.
	InvestorEntries string
	Messages        string

	Year        string
	Month       string // "2025-03", a month number or a month name
	Growth      string
	Deposits    string
	Withdrawals string
	Note        string

	Name     string
	Email    string
	Phone    string
	Balance  string // starting balance of an investor
	JoinedOn string
	Status   string

	Sender    string
	Body      string
	Timestamp string
	Read      string
}

// DefaultPaths matches the export of the former dashboard.
var DefaultPaths = Paths{
	StartingBalance: "$.settings.main.startingBalance",
	Entries:         "$.performance",
	Investors:       "$.investors",
	InvestorEntries: "$.performance",
	Messages:        "$.messages",

	Year:        "$.year",
	Month:       "$.month",
	Growth:      "$.growth",
	Deposits:    "$.deposits",
	Withdrawals: "$.withdrawals",
	Note:        "$.notes",

	Name:     "$.name",
	Email:    "$.email",
	Phone:    "$.phone",
	Balance:  "$.startingBalance",
	JoinedOn: "$.joinDate",
	Status:   "$.status",

	Sender:    "$.sender",
	Body:      "$.text",
	Timestamp: "$.timestamp",
	Read:      "$.read",
}

// Decode reads an export.
func Decode(r io.Reader) (any, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not decode legacy export: %w", err)
	}
	return raw, nil
}

// Import extracts the dataset held by raw, the decoded export. Amounts take
// the currency cur. Documents that cannot be read are reported together.
func Import(raw any, paths Paths, cur string) (*tracker.Dataset, error) {
	im := importer{paths: paths, cur: cur}
	d := &tracker.Dataset{InvestorEntries: make(map[string][]tracker.Entry)}

	if paths.StartingBalance != "" {
		if v, ok := lookup(paths.StartingBalance, raw); ok {
			m, err := im.money(v)
			if err != nil {
				im.fail("settings", "starting balance: %v", err)
			} else {
				if m.Currency() == "" {
					m = m.In(cur)
				}
				d.StartingBalance = &m
			}
		}
	}

	entries := collection(paths.Entries, raw)
	for _, id := range ids(entries) {
		if e, ok := im.entry(id, entries[id]); ok {
			d.Entries = append(d.Entries, e)
		}
	}

	investors := collection(paths.Investors, raw)
	for _, id := range ids(investors) {
		doc := investors[id]
		inv, ok := im.investor(id, doc)
		if !ok {
			continue
		}
		d.Investors = append(d.Investors, inv)
		entries := collection(paths.InvestorEntries, doc)
		for _, eid := range ids(entries) {
			if e, ok := im.entry(eid, entries[eid]); ok {
				d.InvestorEntries[inv.ID] = append(d.InvestorEntries[inv.ID], e)
			}
		}
		msgs := collection(paths.Messages, doc)
		for _, mid := range ids(msgs) {
			if m, ok := im.message(inv.ID, mid, msgs[mid]); ok {
				d.Messages = append(d.Messages, m)
			}
		}
	}

	tracker.SortEntries(d.Entries)
	for _, entries := range d.InvestorEntries {
		tracker.SortEntries(entries)
	}
	tracker.SortMessages(d.Messages)
	return d, errors.Join(im.errs...)
}

type importer struct {
	paths Paths
	cur   string
	errs  []error
}

func (im *importer) fail(doc, format string, args ...any) {
	im.errs = append(im.errs, fmt.Errorf("%w %s: %s", tracker.ErrInvalid, doc, fmt.Sprintf(format, args...)))
}

func (im *importer) entry(id string, doc any) (tracker.Entry, bool) {
	p := im.paths
	e := tracker.Entry{ID: id, Note: im.text(p.Note, doc)}

	m, err := im.month(doc)
	if err != nil {
		im.fail("entry "+id, "%v", err)
		return e, false
	}
	e.Month = m
	for _, f := range []struct {
		path string
		dst  *tracker.Money
	}{
		{p.Growth, &e.Growth},
		{p.Deposits, &e.Deposits},
		{p.Withdrawals, &e.Withdrawals},
	} {
		v, _ := lookup(f.path, doc)
		if *f.dst, err = im.money(v); err != nil {
			im.fail("entry "+id, "%s: %v", f.path, err)
			return e, false
		}
	}
	if err := e.Validate(); err != nil {
		im.errs = append(im.errs, err)
		return e, false
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	return e, true
}

func (im *importer) investor(id string, doc any) (tracker.Investor, bool) {
	p := im.paths
	inv := tracker.Investor{
		ID:     id,
		Name:   im.text(p.Name, doc),
		Email:  im.text(p.Email, doc),
		Phone:  im.text(p.Phone, doc),
		Status: tracker.StatusActive,
	}
	if s := strings.ToLower(im.text(p.Status, doc)); s != "" {
		inv.Status = tracker.Status(s)
	}
	v, _ := lookup(p.Balance, doc)
	m, err := im.money(v)
	if err != nil {
		im.fail("investor "+id, "starting balance: %v", err)
		return inv, false
	}
	inv.StartingBalance = m
	if s := im.text(p.JoinedOn, doc); s != "" {
		t, err := timestamp(s)
		if err != nil {
			im.fail("investor "+id, "join date: %v", err)
			return inv, false
		}
		inv.JoinedOn = date.Of(t)
	}
	if err := inv.Validate(); err != nil {
		im.errs = append(im.errs, err)
		return inv, false
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	return inv, true
}

func (im *importer) message(investorID, id string, doc any) (tracker.Message, bool) {
	p := im.paths
	role, err := tracker.ParseRole(im.text(p.Sender, doc))
	if err != nil {
		im.fail("message "+id, "%v", err)
		return tracker.Message{}, false
	}
	at := time.Unix(0, 0).UTC()
	if s := im.text(p.Timestamp, doc); s != "" {
		if at, err = timestamp(s); err != nil {
			im.fail("message "+id, "timestamp: %v", err)
			return tracker.Message{}, false
		}
	}
	m, err := tracker.NewMessage(investorID, role, im.text(p.Body, doc), at)
	if err != nil {
		im.errs = append(im.errs, err)
		return m, false
	}
	m.ID = id
	if v, ok := lookup(p.Read, doc); ok && truthy(v) {
		m.ReadAt = &at
	}
	return m, true
}

// month reads the month of a document, either as a single "2025-03" field or
// as a year field and a month field.
func (im *importer) month(doc any) (date.Month, error) {
	s := im.text(im.paths.Month, doc)
	if s == "" {
		return date.Month{}, errors.New("month is missing")
	}
	if m, err := date.ParseMonth(s); err == nil {
		return m, nil
	}
	ys := im.text(im.paths.Year, doc)
	year, err := strconv.Atoi(ys)
	if err != nil {
		return date.Month{}, fmt.Errorf("invalid year %q", ys)
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return date.NewMonth(year, time.Month(n)), nil
	}
	for n := time.January; n <= time.December; n++ {
		name := n.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return date.NewMonth(year, n), nil
		}
	}
	return date.Month{}, fmt.Errorf("invalid month %q", s)
}

// money reads an amount stored as a number or as a string. A missing amount
// is zero.
func (im *importer) money(v any) (tracker.Money, error) {
	switch v := v.(type) {
	case nil:
		return tracker.M(0, im.cur), nil
	case float64:
		return tracker.M(v, im.cur), nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return tracker.M(0, im.cur), nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return tracker.Money{}, fmt.Errorf("invalid amount %q", v)
		}
		return tracker.M(d, im.cur), nil
	default:
		return tracker.Money{}, fmt.Errorf("invalid amount %v", v)
	}
}

// text reads a field as a string, "" when missing.
func (im *importer) text(path string, doc any) string {
	v, ok := lookup(path, doc)
	if !ok || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// lookup evaluates path on doc. It returns false when the path matches
// nothing.
func lookup(path string, doc any) (any, bool) {
	if path == "" {
		return nil, false
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, false
	}
	// wildcards and filters return a list, keep the first match
	if list, ok := v.([]any); ok && isQuery(path) {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, true
}

func isQuery(path string) bool { return strings.ContainsAny(path, "*?") || strings.Contains(path, "..") }

// collection returns the documents at path by ID. Objects are keyed by ID,
// arrays use the "id" field of each document or its position.
func collection(path string, doc any) map[string]any {
	v, ok := lookup(path, doc)
	if !ok {
		return nil
	}
	res := make(map[string]any)
	switch v := v.(type) {
	case map[string]any:
		maps.Copy(res, v)
	case []any:
		for i, d := range v {
			id := strconv.Itoa(i)
			if o, ok := d.(map[string]any); ok {
				if s, ok := o["id"].(string); ok && s != "" {
					id = s
				}
			}
			res[id] = d
		}
	default:
		log.Printf("legacy-skip-collection path=%s type=%T", path, v)
	}
	return res
}

// ids returns the keys of a collection in a stable order.
func ids(c map[string]any) []string { return slices.Sorted(maps.Keys(c)) }

// timestamp parses RFC 3339 times, plain dates and Unix milliseconds.
func timestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if d, err := date.Parse(s); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	}
	return false
}
