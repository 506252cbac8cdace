package document

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{
			name: "consistent widths",
			doc: Document{
				ID:     "t1",
				Header: []string{"Alice", "Bob"},
				Body:   []Row{{Label: "Acme", Values: []float64{10, 20}}},
			},
		},
		{
			name: "no header and empty rows",
			doc: Document{
				ID:   "t2",
				Body: []Row{{Label: "Acme"}},
			},
		},
		{
			name:    "missing id",
			doc:     Document{Header: []string{"A"}},
			wantErr: true,
		},
		{
			name: "row wider than header",
			doc: Document{
				ID:     "t3",
				Header: []string{"Alice", "Bob"},
				Body:   []Row{{Label: "Acme", Values: []float64{10, 20, 5}}},
			},
			wantErr: true,
		},
		{
			name: "row narrower than header",
			doc: Document{
				ID:     "t4",
				Header: []string{"Alice", "Bob"},
				Body:   []Row{{Label: "Acme", Values: []float64{10}}},
			},
			wantErr: true,
		},
		{
			name: "units do not match header",
			doc: Document{
				ID:     "t5",
				Header: []string{"Alice", "Bob"},
				Units:  []Unit{UnitPercent},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected error")
				}
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("Validate() error = %v, want wrapping ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestRowMissing(t *testing.T) {
	row := Row{Label: "Acme", Values: []float64{1, math.NaN()}}

	if row.Missing(0) {
		t.Error("Missing(0) = true, want false")
	}
	if !row.Missing(1) {
		t.Error("Missing(1) = false, want true")
	}
	if row.Missing(5) {
		t.Error("Missing(5) = true for out-of-range index")
	}
}

func TestUnitDefaultsToNumber(t *testing.T) {
	doc := Document{Header: []string{"A", "B"}, Units: []Unit{UnitPercent, ""}}

	if got := doc.Unit(0); got != UnitPercent {
		t.Errorf("Unit(0) = %q, want %q", got, UnitPercent)
	}
	if got := doc.Unit(1); got != UnitNumber {
		t.Errorf("Unit(1) = %q, want %q", got, UnitNumber)
	}
	if got := (Document{}).Unit(3); got != UnitNumber {
		t.Errorf("Unit(3) on empty document = %q, want %q", got, UnitNumber)
	}
}

func TestHasFooterMetadata(t *testing.T) {
	created := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)

	if (Document{}).HasFooterMetadata() {
		t.Error("empty document reports footer metadata")
	}
	if !(Document{CreatedAt: &created}).HasFooterMetadata() {
		t.Error("document with creation date reports no footer metadata")
	}
	if !(Document{OriginCountry: "DE"}).HasFooterMetadata() {
		t.Error("document with country reports no footer metadata")
	}
}

func TestColumn(t *testing.T) {
	doc := Document{
		Header: []string{"A", "B"},
		Body: []Row{
			{Label: "x", Values: []float64{1, 2}},
			{Label: "y", Values: []float64{3, 4}},
		},
	}

	got := doc.Column(1)
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("Column(1) = %v, want [2 4]", got)
	}

	short := Document{
		Header: []string{"A", "B"},
		Body: []Row{
			{Label: "x", Values: []float64{1}},
			{Label: "y", Values: []float64{3, 4}},
		},
	}
	got = short.Column(1)
	if len(got) != 2 || !math.IsNaN(got[0]) || got[1] != 4 {
		t.Errorf("Column(1) = %v, want [NaN 4]", got)
	}
}
