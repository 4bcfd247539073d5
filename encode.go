package tracker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Kind identifies the record type of a line of a dataset file.
type Kind string

const (
	KindSettings      Kind = "settings"
	KindEntry         Kind = "entry"
	KindInvestor      Kind = "investor"
	KindInvestorEntry Kind = "investor-entry"
	KindMessage       Kind = "message"
)

// Dataset is everything the dashboard tracks.
type Dataset struct {
	StartingBalance *Money // nil when the dataset carries no settings
	Entries         []Entry
	Investors       []Investor
	InvestorEntries map[string][]Entry // by investor ID
	Messages        []Message
}

// EncodeDataset writes d as JSONL, one record per line, in a canonical order:
// settings (when d has a starting balance), entries, then each investor
// followed by its entries, then messages.
func EncodeDataset(w io.Writer, d *Dataset) error {
	bw := bufio.NewWriter(w)
	line := func(kind Kind, investorID string, v any) error {
		var o jsonObjectWriter
		o.Field("kind", kind)
		o.Text("investorId", investorID)
		o.Fields(v)
		b, err := o.MarshalJSON()
		if err != nil {
			return fmt.Errorf("could not encode %s: %w", kind, err)
		}
		bw.Write(b)
		return bw.WriteByte('\n')
	}

	if d.StartingBalance != nil {
		settings := struct {
			StartingBalance Money `json:"startingBalance"`
		}{*d.StartingBalance}
		if err := line(KindSettings, "", settings); err != nil {
			return err
		}
	}

	entries := slices.Clone(d.Entries)
	SortEntries(entries)
	for _, e := range entries {
		if err := line(KindEntry, "", e); err != nil {
			return err
		}
	}

	investors := slices.Clone(d.Investors)
	slices.SortFunc(investors, func(a, b Investor) int { return strings.Compare(a.ID, b.ID) })
	for _, inv := range investors {
		if err := line(KindInvestor, "", inv); err != nil {
			return err
		}
		ie := slices.Clone(d.InvestorEntries[inv.ID])
		SortEntries(ie)
		for _, e := range ie {
			if err := line(KindInvestorEntry, inv.ID, e); err != nil {
				return err
			}
		}
	}

	msgs := slices.Clone(d.Messages)
	SortMessages(msgs)
	for _, m := range msgs {
		if err := line(KindMessage, "", m); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeDataset reads a JSONL dataset written by EncodeDataset.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	d := &Dataset{InvestorEntries: make(map[string][]Entry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Kind       Kind   `json:"kind"`
			InvestorID string `json:"investorId"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify record: %w", n, err)
		}

		var err error
		switch identifier.Kind {
		case KindSettings:
			var s struct {
				StartingBalance Money `json:"startingBalance"`
			}
			err = json.Unmarshal(lineBytes, &s)
			d.StartingBalance = &s.StartingBalance
		case KindEntry:
			var e Entry
			err = json.Unmarshal(lineBytes, &e)
			d.Entries = append(d.Entries, e)
		case KindInvestor:
			var inv Investor
			err = json.Unmarshal(lineBytes, &inv)
			d.Investors = append(d.Investors, inv)
		case KindInvestorEntry:
			if identifier.InvestorID == "" {
				return nil, fmt.Errorf("line %d: investor entry without investorId", n)
			}
			var e Entry
			err = json.Unmarshal(lineBytes, &e)
			d.InvestorEntries[identifier.InvestorID] = append(d.InvestorEntries[identifier.InvestorID], e)
		case KindMessage:
			var m Message
			err = json.Unmarshal(lineBytes, &m)
			d.Messages = append(d.Messages, m)
		default:
			return nil, fmt.Errorf("line %d: unknown record kind %q", n, identifier.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", n, identifier.Kind, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read dataset: %w", err)
	}
	return d, nil
}

// InvestorIDs returns the IDs of the investors having entries, sorted.
func (d *Dataset) InvestorIDs() []string {
	return slices.Sorted(maps.Keys(d.InvestorEntries))
}
