package rules

import (
	"sort"
	"testing"

	"github.com/JonMunkholm/discrepancy/internal/document"
)

func TestNamesIncludesBuiltins(t *testing.T) {
	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() not sorted: %v", names)
	}

	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{
		"title_length", "creation_date", "first_row_sum", "footer_metadata", "row_width",
		"percent_range", "missing_values", "column_outlier", "row_total", "duplicate_labels",
	} {
		if !have[want] {
			t.Errorf("Names() missing %s", want)
		}
	}
}

func TestRegisterFactoryDuplicatePanics(t *testing.T) {
	noop := func(Params) (Validator, error) {
		return New(Meta{Name: "catalog_sample"}, func(document.Document, func(Finding)) error { return nil }), nil
	}
	RegisterFactory("catalog_sample", noop)

	defer func() {
		if recover() == nil {
			t.Error("RegisterFactory() did not panic on duplicate")
		}
	}()
	RegisterFactory("catalog_sample", noop)
}

func TestBuild(t *testing.T) {
	if _, err := Build("does_not_exist", nil); err == nil {
		t.Error("Build() unknown rule expected error")
	}
	if _, err := Build("column_outlier", Params{"min_rows": 2}); err == nil {
		t.Error("Build() with invalid params expected error")
	}

	v, err := Build("percent_range", Params{"min": 0, "max": "50"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if v.Meta().Params["max"] != 50.0 {
		t.Errorf("Params = %v, want effective max 50", v.Meta().Params)
	}
}

func TestParamsInt(t *testing.T) {
	p := Params{"whole": 3.0, "frac": 2.5, "text": "7"}

	if n, err := p.Int("whole", 0); err != nil || n != 3 {
		t.Errorf("Int(whole) = %d, %v", n, err)
	}
	if _, err := p.Int("frac", 0); err == nil {
		t.Error("Int(frac) expected error")
	}
	if n, err := p.Int("text", 0); err != nil || n != 7 {
		t.Errorf("Int(text) = %d, %v", n, err)
	}
	if n, err := p.Int("absent", 9); err != nil || n != 9 {
		t.Errorf("Int(absent) = %d, %v", n, err)
	}
}
