package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

func emitting(name string, locs ...discrepancy.Location) Validator {
	return New(Meta{Name: name, Kind: discrepancy.KindOutlier}, func(doc document.Document, emit func(Finding)) error {
		for _, l := range locs {
			emit(Finding{Location: l, Detail: name})
		}
		return nil
	})
}

func TestRegistryIsolatesFailures(t *testing.T) {
	reg := NewRegistry(
		emitting("a", discrepancy.Cell(0, 0)),
		panicking("boom"),
		New(Meta{Name: "refuses"}, func(document.Document, func(Finding)) error {
			return errors.New("not applicable")
		}),
		emitting("b", discrepancy.RowOf(1)),
	)

	res := reg.Run(context.Background(), testDocument())

	if len(res.Discrepancies) != 2 {
		t.Fatalf("got %d discrepancies, want 2", len(res.Discrepancies))
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(res.Diagnostics))
	}
	if res.Diagnostics[0].Rule != "boom" || res.Diagnostics[1].Rule != "refuses" {
		t.Errorf("diagnostics = %+v", res.Diagnostics)
	}
	if !res.Partial() {
		t.Error("Partial() = false with diagnostics")
	}
}

func TestRegistryOrder(t *testing.T) {
	reg := NewRegistry(
		emitting("first", discrepancy.Cell(1, 2), discrepancy.Cell(0, 0)),
		emitting("second", discrepancy.Table()),
	)

	res := reg.Run(context.Background(), testDocument())

	want := []struct {
		rule string
		loc  discrepancy.Location
	}{
		{"first", discrepancy.Cell(1, 2)},
		{"first", discrepancy.Cell(0, 0)},
		{"second", discrepancy.Table()},
	}
	if len(res.Discrepancies) != len(want) {
		t.Fatalf("got %d discrepancies, want %d", len(res.Discrepancies), len(want))
	}
	for i, w := range want {
		got := res.Discrepancies[i]
		if got.Rule != w.rule || got.Location != w.loc {
			t.Errorf("[%d] = %s@%s, want %s@%s", i, got.Rule, got.Location, w.rule, w.loc)
		}
	}
}

func TestRegistryIdempotent(t *testing.T) {
	reg := NewRegistry(DefaultSet()...)
	doc := testDocument()

	a := reg.Run(context.Background(), doc)
	b := reg.Run(context.Background(), doc)

	if len(a.Discrepancies) != len(b.Discrepancies) {
		t.Fatalf("runs differ in size: %d vs %d", len(a.Discrepancies), len(b.Discrepancies))
	}
	for i := range a.Discrepancies {
		if !a.Discrepancies[i].SameFinding(b.Discrepancies[i]) {
			t.Errorf("[%d] differs: %+v vs %+v", i, a.Discrepancies[i], b.Discrepancies[i])
		}
		if a.Discrepancies[i].ID == b.Discrepancies[i].ID {
			t.Errorf("[%d] reused ID across runs", i)
		}
	}
}

func TestRegistryLocationsValid(t *testing.T) {
	names := Names()
	set := make([]Validator, 0, len(names))
	for _, name := range names {
		v, err := Build(name, nil)
		if err != nil {
			t.Fatalf("Build(%s): %v", name, err)
		}
		set = append(set, v)
	}
	reg := NewRegistry(set...)

	doc := testDocument()
	doc.Title = ""
	doc.Body[1].Values[2] = -5

	res := reg.Run(context.Background(), doc)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	for _, rec := range res.Discrepancies {
		if !rec.Location.ValidFor(doc) {
			t.Errorf("%s emitted invalid location %s", rec.Rule, rec.Location)
		}
	}
}

func TestRegistryRules(t *testing.T) {
	reg := NewRegistry(TitleLength(2), RowWidth())
	reg.Register(FooterMetadata())

	got := reg.Rules()
	want := []string{"title_length", "row_width", "footer_metadata"}
	if len(got) != len(want) {
		t.Fatalf("Rules() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Rules()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}

func TestRegistryEmptyDocument(t *testing.T) {
	reg := NewRegistry(DefaultSet()...)

	res := reg.Run(context.Background(), document.Document{ID: "empty"})
	if len(res.Diagnostics) != 0 {
		t.Errorf("diagnostics on empty document: %+v", res.Diagnostics)
	}
}
