package rules

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

func panicking(name string) Validator {
	return New(Meta{Name: name, Kind: discrepancy.KindOutlier}, func(doc document.Document, emit func(Finding)) error {
		_ = doc.Body[len(doc.Body)+3]
		return nil
	})
}

func TestGuardDefaultDiagnostic(t *testing.T) {
	out := Guard(panicking("boom"), nil).Validate(testDocument())

	if out.Status != StatusError {
		t.Fatalf("Status = %s, want error", out.Status)
	}
	if !strings.HasPrefix(out.Diagnostic, "rule boom panicked: ") {
		t.Errorf("Diagnostic = %q", out.Diagnostic)
	}
	if out.Rule != "boom" || out.DocumentID != "t1" {
		t.Errorf("outcome not tagged: %+v", out)
	}
}

func TestGuardFallbackValue(t *testing.T) {
	fb := FallbackValue(Outcome{
		Status:     StatusSuccess,
		Diagnostic: "custom",
		Discrepancies: []discrepancy.Record{
			discrepancy.New("t1", discrepancy.KindOutlier, "boom", discrepancy.Table(), ""),
		},
	})

	out := Guard(panicking("boom"), fb).Validate(testDocument())

	if out.Status != StatusError {
		t.Errorf("Status = %s, want error forced", out.Status)
	}
	if out.Diagnostic != "custom" {
		t.Errorf("Diagnostic = %q, want custom", out.Diagnostic)
	}
	if len(out.Discrepancies) != 0 {
		t.Errorf("fallback records leaked: %d", len(out.Discrepancies))
	}
	if out.Rule != "boom" {
		t.Errorf("Rule = %q, want filled from meta", out.Rule)
	}
}

func TestGuardFallbackFuncIsLazy(t *testing.T) {
	calls := 0
	fb := FallbackFunc(func() Outcome {
		calls++
		return Outcome{}
	})

	ok := Guard(TitleLength(1), fb)
	ok.Validate(testDocument())
	if calls != 0 {
		t.Fatalf("fallback evaluated %d times without a failure", calls)
	}

	out := Guard(panicking("boom"), fb).Validate(testDocument())
	if calls != 1 {
		t.Errorf("fallback evaluated %d times, want 1", calls)
	}
	if out.Diagnostic == "" {
		t.Error("empty fallback left diagnostic empty")
	}
	if out.Status != StatusError {
		t.Errorf("Status = %s, want error", out.Status)
	}
}

func TestGuardPassesThrough(t *testing.T) {
	doc := testDocument()
	doc.Title = ""

	out := Guard(TitleLength(2), nil).Validate(doc)
	if !out.OK() || len(out.Discrepancies) != 1 {
		t.Errorf("Validate() = %+v, want inner outcome", out)
	}
}

func TestGuardDoesNotDoubleWrap(t *testing.T) {
	g := Guard(TitleLength(2), nil)
	if Guard(g, nil) != g {
		t.Error("Guard(Guard(v)) wrapped twice")
	}
}
