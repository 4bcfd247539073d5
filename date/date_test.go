package date

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2025-07-01", want: New(2025, time.July, 1)},
		{in: "2025-7-1", want: New(2025, time.July, 1)},
		{in: "2025/07/01", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type holder struct {
		On Date `json:"on"`
	}
	b, err := json.Marshal(holder{On: New(2024, 2, 29)})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"on":"2024-02-29"}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var h holder
	if err := json.Unmarshal([]byte(`{"on":""}`), &h); err != nil {
		t.Fatal(err)
	}
	if !h.On.IsZero() {
		t.Errorf("empty string should decode to zero date, got %v", h.On)
	}
}

func TestNewMonth_Normalizes(t *testing.T) {
	if got, want := NewMonth(2024, 13), NewMonth(2025, time.January); got != want {
		t.Errorf("NewMonth(2024, 13) = %v, want %v", got, want)
	}
	if got, want := NewMonth(2024, 0), NewMonth(2023, time.December); got != want {
		t.Errorf("NewMonth(2024, 0) = %v, want %v", got, want)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2025-03", want: "2025-03"},
		{in: "2025-3", want: "2025-03"},
		{in: " 2025-12 ", want: "2025-12"},
		{in: "2025-13", wantErr: true},
		{in: "2025-00", wantErr: true},
		{in: "25-03", wantErr: true},
		{in: "2025", wantErr: true},
		{in: "2025-03-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("ParseMonth(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMonth_Compare(t *testing.T) {
	jan25 := MustParseMonth("2025-01")
	dec24 := MustParseMonth("2024-12")
	feb25 := MustParseMonth("2025-02")

	if jan25.Compare(dec24) != 1 || dec24.Compare(jan25) != -1 || jan25.Compare(jan25) != 0 {
		t.Errorf("year must dominate month in ordering")
	}
	if !jan25.Before(feb25) || !feb25.After(jan25) {
		t.Errorf("months of the same year must be ordered by month")
	}
	if got := dec24.Next(); got != jan25 {
		t.Errorf("Next() = %v, want %v", got, jan25)
	}
	if got := jan25.Prev(); got != dec24 {
		t.Errorf("Prev() = %v, want %v", got, dec24)
	}
}

func TestMonth_Bounds(t *testing.T) {
	m := MustParseMonth("2024-02")
	if got, want := m.First(), New(2024, 2, 1); got != want {
		t.Errorf("First() = %v, want %v", got, want)
	}
	if got, want := m.Last(), New(2024, 2, 29); got != want {
		t.Errorf("Last() = %v, want %v", got, want)
	}
	if got := MonthOf(New(2024, 2, 17)); got != m {
		t.Errorf("MonthOf() = %v, want %v", got, m)
	}
}

func TestPeriod_Key(t *testing.T) {
	m := MustParseMonth("2025-08")
	tests := []struct {
		p         Period
		wantKey   string
		wantStart string
	}{
		{Monthly, "2025-08", "2025-08"},
		{Quarterly, "2025-Q3", "2025-07"},
		{Yearly, "2025", "2025-01"},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if got := tt.p.Key(m); got != tt.wantKey {
				t.Errorf("Key() = %q, want %q", got, tt.wantKey)
			}
			if got := tt.p.Start(m).String(); got != tt.wantStart {
				t.Errorf("Start() = %q, want %q", got, tt.wantStart)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"month": Monthly, "Quarterly": Quarterly, " year ": Yearly} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParsePeriod("weekly"); err == nil {
		t.Errorf("ParsePeriod(weekly) should fail")
	}
}
