package tracker

import (
	"errors"
	"testing"

	"github.com/etnz/tracker/date"
)

func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		e       Entry
		wantErr bool
	}{
		{name: "valid", e: entry("a", "2025-01", -10, 5, 3)},
		{name: "negative growth is a loss", e: entry("a", "2025-01", -1000, 0, 0)},
		{name: "missing month", e: Entry{Growth: EUR(1)}, wantErr: true},
		{name: "negative deposits", e: entry("a", "2025-01", 0, -1, 0), wantErr: true},
		{name: "negative withdrawals", e: entry("a", "2025-01", 0, 0, -1), wantErr: true},
		{
			name:    "mixed currencies",
			e:       Entry{Month: date.MustParseMonth("2025-01"), Growth: EUR(1), Deposits: USD(1)},
			wantErr: true,
		},
		{
			name: "unset currency is compatible",
			e:    Entry{Month: date.MustParseMonth("2025-01"), Growth: EUR(1), Deposits: M(1, "")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error %v must wrap ErrInvalid", err)
			}
		})
	}
}

func TestEntry_In(t *testing.T) {
	e := Entry{Month: date.MustParseMonth("2025-01"), Growth: M(3, "")}
	got, err := e.In("EUR")
	if err != nil {
		t.Fatalf("In() error = %v", err)
	}
	if got.Currency() != "EUR" || got.Deposits.Currency() != "EUR" {
		t.Errorf("In() did not set currencies: %+v", got)
	}
	if _, err := entry("a", "2025-01", 1, 0, 0).In("USD"); err == nil {
		t.Errorf("In() must reject a currency change")
	}
}

func TestMoney_JSON(t *testing.T) {
	b, err := EUR(12.345).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"currency":"EUR","amount":"12.35"}`; got != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
	var m Money
	if err := m.UnmarshalJSON([]byte(`{"currency":"USD","amount":10.5}`)); err != nil {
		t.Fatal(err)
	}
	if !m.Equal(USD(10.5)) {
		t.Errorf("UnmarshalJSON() = %v, want 10.5 USD", m)
	}
}

func TestMoney_Ratio(t *testing.T) {
	if got := EUR(5).Ratio(EUR(0)); got != 0 {
		t.Errorf("Ratio over zero = %v, want 0", got)
	}
	if got := EUR(5).Ratio(EUR(-10)); got != 0 {
		t.Errorf("Ratio over negative = %v, want 0", got)
	}
	if got := EUR(5).Ratio(EUR(200)); !got.Equal(2.5) {
		t.Errorf("Ratio = %v, want 2.5", got)
	}
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("1234.50", "EUR")
	if err != nil || !m.Equal(EUR(1234.5)) {
		t.Errorf("ParseMoney() = %v, %v", m, err)
	}
	if _, err := ParseMoney("12,5", "EUR"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseMoney(12,5) error = %v, want ErrInvalid", err)
	}
}
