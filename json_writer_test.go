package tracker

import (
	"testing"
)

func TestJsonObjectWriter(t *testing.T) {
	tests := []struct {
		name    string
		build   func(w *jsonObjectWriter)
		want    string
		wantErr bool
	}{
		{
			name:  "empty",
			build: func(w *jsonObjectWriter) {},
			want:  `{}`,
		},
		{
			name: "keys keep their order",
			build: func(w *jsonObjectWriter) {
				w.Field("kind", "entry").Field("month", "2025-03").Field("id", "e1")
			},
			want: `{"kind":"entry","month":"2025-03","id":"e1"}`,
		},
		{
			name: "record tagged with its kind",
			build: func(w *jsonObjectWriter) {
				w.Field("kind", "message").Raw([]byte(` {"id":"m1","sender":"admin"} `)).Field("seq", 2)
			},
			want: `{"kind":"message","id":"m1","sender":"admin","seq":2}`,
		},
		{
			name: "merged empty object",
			build: func(w *jsonObjectWriter) {
				w.Field("kind", "settings").Raw([]byte(`{}`))
			},
			want: `{"kind":"settings"}`,
		},
		{
			name: "merged first",
			build: func(w *jsonObjectWriter) {
				w.Raw([]byte(`{"id":"i1"}`)).Field("kind", "investor")
			},
			want: `{"id":"i1","kind":"investor"}`,
		},
		{
			name: "empty text is skipped",
			build: func(w *jsonObjectWriter) {
				w.Field("deposits", 0).Text("investorId", "").Text("status", "active")
			},
			want: `{"deposits":0,"status":"active"}`,
		},
		{
			name: "fields of a struct",
			build: func(w *jsonObjectWriter) {
				w.Field("kind", "investor").Fields(struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				}{"i1", "Ada"})
			},
			want: `{"kind":"investor","id":"i1","name":"Ada"}`,
		},
		{
			name: "fields of a value that is not an object",
			build: func(w *jsonObjectWriter) {
				w.Field("kind", "entry").Fields([]int{1, 2})
			},
			wantErr: true,
		},
		{
			name: "first error sticks",
			build: func(w *jsonObjectWriter) {
				w.Field("bad", make(chan int)).Field("id", "e1")
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w jsonObjectWriter
			tt.build(&w)
			got, err := w.MarshalJSON()
			if tt.wantErr {
				if err == nil {
					t.Errorf("MarshalJSON() = %s, want an error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("MarshalJSON() unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}
