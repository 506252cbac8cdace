package rules

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

type finding struct {
	kind discrepancy.Kind
	loc  discrepancy.Location
}

func findings(t *testing.T, v Validator, doc document.Document) []finding {
	t.Helper()
	out := v.Validate(doc)
	if !out.OK() {
		t.Fatalf("%s: unexpected error outcome: %s", v.Meta().Name, out.Diagnostic)
	}
	got := make([]finding, len(out.Discrepancies))
	for i, r := range out.Discrepancies {
		got[i] = finding{r.Kind, r.Location}
	}
	return got
}

func checkFindings(t *testing.T, got, want []finding) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTitleLength(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []finding
	}{
		{"long enough", "Revenue", nil},
		{"exactly min", "Q1", nil},
		{"too short", "R", []finding{{discrepancy.KindTitleTooShort, discrepancy.Table()}}},
		{"missing", "", []finding{{discrepancy.KindMissingMetadata, discrepancy.Table()}}},
		{"whitespace only", "   ", []finding{{discrepancy.KindMissingMetadata, discrepancy.Table()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument()
			doc.Title = tt.title
			checkFindings(t, findings(t, TitleLength(2), doc), tt.want)
		})
	}
}

func TestCreationDate(t *testing.T) {
	maxDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		created *time.Time
		want    []finding
	}{
		{"before", date(2022, 6, 1), nil},
		{"equal", date(2023, 1, 1), nil},
		{"after", date(2023, 1, 2), []finding{{discrepancy.KindDateOutOfRange, discrepancy.Table()}}},
		{"missing", nil, []finding{{discrepancy.KindMissingMetadata, discrepancy.Table()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument()
			doc.CreatedAt = tt.created
			checkFindings(t, findings(t, CreationDate(maxDate), doc), tt.want)
		})
	}
}

func TestFirstRowSum(t *testing.T) {
	tests := []struct {
		name string
		body []document.Row
		want []finding
	}{
		{
			name: "under limit",
			body: []document.Row{{Label: "a", Values: []float64{10, 20, 30}}},
		},
		{
			name: "exceeds at second cell",
			body: []document.Row{{Label: "a", Values: []float64{50, 60, 1}}},
			want: []finding{{discrepancy.KindSumExceeded, discrepancy.Cell(0, 1)}},
		},
		{
			name: "missing cells skipped",
			body: []document.Row{{Label: "a", Values: []float64{math.NaN(), 99, 2}}},
			want: []finding{{discrepancy.KindSumExceeded, discrepancy.Cell(0, 2)}},
		},
		{
			name: "no body",
			want: []finding{{discrepancy.KindEmptyBody, discrepancy.Table()}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.Document{ID: "t1", Header: []string{"A", "B", "C"}, Body: tt.body}
			checkFindings(t, findings(t, FirstRowSum(100), doc), tt.want)
		})
	}
}

func TestFirstRowSumEmptyFirstRow(t *testing.T) {
	doc := document.Document{ID: "t1", Body: []document.Row{{Label: "a"}}}
	checkFindings(t, findings(t, FirstRowSum(100), doc),
		[]finding{{discrepancy.KindEmptyBody, discrepancy.RowOf(0)}})
}

func TestFooterMetadata(t *testing.T) {
	doc := testDocument()
	checkFindings(t, findings(t, FooterMetadata(), doc),
		[]finding{{discrepancy.KindMissingMetadata, discrepancy.Table()}})

	doc.OriginCountry = "Norway"
	checkFindings(t, findings(t, FooterMetadata(), doc), nil)
}

func TestMissingFooterOnlyFlagsTable(t *testing.T) {
	doc := testDocument()
	reg := NewRegistry(FooterMetadata(), RowWidth())

	res := reg.Run(context.Background(), doc)
	if len(res.Discrepancies) != 1 {
		t.Fatalf("got %d discrepancies, want 1", len(res.Discrepancies))
	}
	rec := res.Discrepancies[0]
	if rec.Kind != discrepancy.KindMissingMetadata || rec.Location != discrepancy.Table() {
		t.Errorf("got %s at %s", rec.Kind, rec.Location)
	}
}

func TestRowWidth(t *testing.T) {
	doc := testDocument()
	checkFindings(t, findings(t, RowWidth(), doc), nil)

	doc.Body = append(doc.Body, document.Row{Label: "short", Values: []float64{1}})
	checkFindings(t, findings(t, RowWidth(), doc),
		[]finding{{discrepancy.KindRowWidthMismatch, discrepancy.RowOf(2)}})
}

func TestPercentRange(t *testing.T) {
	doc := document.Document{
		ID:     "t1",
		Header: []string{"Share", "Count"},
		Units:  []document.Unit{document.UnitPercent, document.UnitNumber},
		Body: []document.Row{
			{Label: "a", Values: []float64{50, -3}},
			{Label: "b", Values: []float64{-1, 500}},
			{Label: "c", Values: []float64{101, 2}},
			{Label: "d", Values: []float64{math.NaN(), 2}},
		},
	}

	checkFindings(t, findings(t, PercentRange(0, 100), doc), []finding{
		{discrepancy.KindOutOfRange, discrepancy.Cell(1, 0)},
		{discrepancy.KindOutOfRange, discrepancy.Cell(2, 0)},
	})
}

func TestMissingValues(t *testing.T) {
	doc := testDocument()
	doc.Body[0].Values[1] = math.NaN()
	doc.Body[1].Values[0] = math.NaN()

	checkFindings(t, findings(t, MissingValues(), doc), []finding{
		{discrepancy.KindMissingValue, discrepancy.Cell(0, 1)},
		{discrepancy.KindMissingValue, discrepancy.Cell(1, 0)},
	})
}

func TestColumnOutlier(t *testing.T) {
	doc := document.Document{
		ID:     "t1",
		Header: []string{"A", "B"},
		Body: []document.Row{
			{Label: "r0", Values: []float64{10, 5}},
			{Label: "r1", Values: []float64{11, 5}},
			{Label: "r2", Values: []float64{10, 5}},
			{Label: "r3", Values: []float64{12, 5}},
			{Label: "r4", Values: []float64{500, 5}},
		},
	}

	checkFindings(t, findings(t, ColumnOutlier(3, 4), doc), []finding{
		{discrepancy.KindOutlier, discrepancy.Cell(4, 0)},
	})

	// Too few present values.
	checkFindings(t, findings(t, ColumnOutlier(3, 6), doc), nil)
}

func TestRowTotal(t *testing.T) {
	doc := document.Document{
		ID:     "t1",
		Header: []string{"Alice", "Bob", "Total"},
		Body: []document.Row{
			{Label: "Acme", Values: []float64{10, 20, 30}},
			{Label: "Initech", Values: []float64{1, 2, 4}},
			{Label: "Total", Values: []float64{11, 23, 34}},
		},
	}

	checkFindings(t, findings(t, RowTotal("total", 0.01), doc), []finding{
		{discrepancy.KindTotalMismatch, discrepancy.Cell(1, 2)},
		{discrepancy.KindTotalMismatch, discrepancy.Cell(2, 1)},
	})

	plain := testDocument()
	checkFindings(t, findings(t, RowTotal("Total", 0.01), plain), nil)
}

func TestDuplicateLabels(t *testing.T) {
	doc := testDocument()
	doc.Body = append(doc.Body, document.Row{Label: " acme ", Values: []float64{0, 0, 0}})

	checkFindings(t, findings(t, DuplicateLabels(), doc), []finding{
		{discrepancy.KindDuplicateLabel, discrepancy.RowOf(2)},
	})
}

func TestZScore(t *testing.T) {
	values := []float64{10, 10, 10, 10}
	if _, ok := zScore(values, 0); ok {
		t.Error("zScore() ok for column without spread")
	}

	values = []float64{1, math.NaN(), 3, 100}
	z, ok := zScore(values, 3)
	if !ok {
		t.Fatal("zScore() not ok")
	}
	// Others: mean 2, sample sd sqrt(2).
	want := 98 / math.Sqrt(2)
	if math.Abs(z-want) > 1e-9 {
		t.Errorf("zScore() = %v, want %v", z, want)
	}
}
