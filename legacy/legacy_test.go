package legacy

import (
	"errors"
	"strings"
	"testing"

	"github.com/etnz/tracker"
)

const export = `{
  "settings": {"main": {"startingBalance": "10,000.50"}},
  "performance": {
    "b": {"year": 2024, "month": "December", "growth": 120, "deposits": "0", "withdrawals": ""},
    "a": {"month": "2025-01", "growth": "-35.5", "deposits": 500, "notes": "fees"}
  },
  "investors": {
    "inv1": {
      "name": "Ada Lovelace",
      "email": "ada@example.com",
      "startingBalance": "2500",
      "joinDate": "2024-11-15",
      "status": "Active",
      "performance": [
        {"id": "e1", "year": "2024", "month": 12, "growth": "25"}
      ],
      "messages": {
        "m2": {"sender": "admin", "text": "Welcome!", "timestamp": "2024-11-16T10:00:00Z", "read": true},
        "m1": {"sender": "investor", "text": "Hello", "timestamp": 1731664800000}
      }
    }
  }
}`

func decode(t *testing.T, s string) any {
	t.Helper()
	raw, err := Decode(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestImport(t *testing.T) {
	d, err := Import(decode(t, export), DefaultPaths, "EUR")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if got, want := d.StartingBalance, tracker.M(10000.5, "EUR"); got == nil || !got.Equal(want) {
		t.Errorf("starting balance = %v, want %v", got, want)
	}

	if len(d.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(d.Entries))
	}
	dec, jan := d.Entries[0], d.Entries[1]
	if dec.ID != "b" || dec.Month.String() != "2024-12" || !dec.Growth.Equal(tracker.M(120, "EUR")) {
		t.Errorf("first entry = %+v", dec)
	}
	if jan.ID != "a" || !jan.Growth.Equal(tracker.M(-35.5, "EUR")) || !jan.Deposits.Equal(tracker.M(500, "EUR")) || jan.Note != "fees" {
		t.Errorf("second entry = %+v", jan)
	}

	if len(d.Investors) != 1 {
		t.Fatalf("got %d investors, want 1", len(d.Investors))
	}
	inv := d.Investors[0]
	if inv.ID != "inv1" || inv.Name != "Ada Lovelace" || inv.Status != tracker.StatusActive || inv.JoinedOn.String() != "2024-11-15" {
		t.Errorf("investor = %+v", inv)
	}
	if e := d.InvestorEntries["inv1"]; len(e) != 1 || e[0].ID != "e1" || e[0].Month.String() != "2024-12" {
		t.Errorf("investor entries = %+v", e)
	}

	if len(d.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(d.Messages))
	}
	if m := d.Messages[0]; m.ID != "m1" || m.Sender != tracker.RoleInvestor || m.ReadAt != nil {
		t.Errorf("first message = %+v", m)
	}
	if m := d.Messages[1]; m.ID != "m2" || m.Body != "Welcome!" || m.ReadAt == nil {
		t.Errorf("second message = %+v", m)
	}
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name    string
		export  string
		entries int
	}{
		{"no month", `{"performance": {"a": {"growth": 1}, "b": {"month": "2025-01"}}}`, 1},
		{"bad amount", `{"performance": {"a": {"month": "2025-01", "growth": "ten"}}}`, 0},
		{"bad month name", `{"performance": {"a": {"year": 2025, "month": "Smarch"}}}`, 0},
		{"negative deposits", `{"performance": {"a": {"month": "2025-01", "deposits": "-5"}}}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Import(decode(t, tt.export), DefaultPaths, "EUR")
			if !errors.Is(err, tracker.ErrInvalid) {
				t.Errorf("Import() error = %v, want ErrInvalid", err)
			}
			if len(d.Entries) != tt.entries {
				t.Errorf("got %d valid entries, want %d", len(d.Entries), tt.entries)
			}
		})
	}
}

func TestImport_CustomPaths(t *testing.T) {
	raw := decode(t, `{"data": {"records": [{"id": "x", "period": "2025-02", "gain": 12}]}}`)
	paths := DefaultPaths
	paths.Entries = "$.data.records"
	paths.Month = "$.period"
	paths.Growth = "$.gain"
	d, err := Import(raw, paths, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Entries) != 1 || d.Entries[0].ID != "x" || !d.Entries[0].Growth.Equal(tracker.M(12, "USD")) {
		t.Errorf("entries = %+v", d.Entries)
	}
	if d.StartingBalance != nil {
		t.Errorf("starting balance = %v, want none for an export without settings", d.StartingBalance)
	}
}
