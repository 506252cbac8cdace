package rules

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

// Defaults for the built-in rules.
const (
	DefaultMinTitleLength = 2
	DefaultMaxFirstRowSum = 5220.0
	DefaultPercentMin     = 0.0
	DefaultPercentMax     = 100.0
	DefaultMaxZ           = 3.0
	DefaultMinRows        = 4
	DefaultTotalLabel     = "Total"
	DefaultTotalTolerance = 0.01
)

// DefaultMaxDate is the latest creation date accepted by creation_date.
var DefaultMaxDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

func init() {
	RegisterFactory("title_length", func(p Params) (Validator, error) {
		n, err := p.Int("min_length", DefaultMinTitleLength)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("min_length must not be negative, got %d", n)
		}
		return TitleLength(n), nil
	})
	RegisterFactory("creation_date", func(p Params) (Validator, error) {
		maxDate, err := p.Time("max_date", DefaultMaxDate)
		if err != nil {
			return nil, err
		}
		return CreationDate(maxDate), nil
	})
	RegisterFactory("first_row_sum", func(p Params) (Validator, error) {
		maxSum, err := p.Float("max_sum", DefaultMaxFirstRowSum)
		if err != nil {
			return nil, err
		}
		return FirstRowSum(maxSum), nil
	})
	RegisterFactory("footer_metadata", func(Params) (Validator, error) {
		return FooterMetadata(), nil
	})
	RegisterFactory("row_width", func(Params) (Validator, error) {
		return RowWidth(), nil
	})
	RegisterFactory("percent_range", func(p Params) (Validator, error) {
		lo, err := p.Float("min", DefaultPercentMin)
		if err != nil {
			return nil, err
		}
		hi, err := p.Float("max", DefaultPercentMax)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, fmt.Errorf("min %v is greater than max %v", lo, hi)
		}
		return PercentRange(lo, hi), nil
	})
	RegisterFactory("missing_values", func(Params) (Validator, error) {
		return MissingValues(), nil
	})
	RegisterFactory("column_outlier", func(p Params) (Validator, error) {
		z, err := p.Float("max_z", DefaultMaxZ)
		if err != nil {
			return nil, err
		}
		rows, err := p.Int("min_rows", DefaultMinRows)
		if err != nil {
			return nil, err
		}
		if z <= 0 {
			return nil, fmt.Errorf("max_z must be positive, got %v", z)
		}
		if rows < 3 {
			return nil, fmt.Errorf("min_rows must be at least 3, got %d", rows)
		}
		return ColumnOutlier(z, rows), nil
	})
	RegisterFactory("row_total", func(p Params) (Validator, error) {
		label, err := p.String("label", DefaultTotalLabel)
		if err != nil {
			return nil, err
		}
		tol, err := p.Float("tolerance", DefaultTotalTolerance)
		if err != nil {
			return nil, err
		}
		if tol < 0 {
			return nil, fmt.Errorf("tolerance must not be negative, got %v", tol)
		}
		return RowTotal(label, tol), nil
	})
	RegisterFactory("duplicate_labels", func(Params) (Validator, error) {
		return DuplicateLabels(), nil
	})
}

// TitleLength flags a missing title, or one shorter than minLength runes.
func TitleLength(minLength int) Validator {
	meta := Meta{
		Name:   "title_length",
		Kind:   discrepancy.KindTitleTooShort,
		Params: Params{"min_length": minLength},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		title := strings.TrimSpace(doc.Title)
		switch {
		case title == "":
			emit(Finding{
				Kind:     discrepancy.KindMissingMetadata,
				Location: discrepancy.Table(),
				Detail:   "title is missing",
			})
		case utf8.RuneCountInString(title) < minLength:
			emit(Finding{
				Location: discrepancy.Table(),
				Detail:   fmt.Sprintf("title %q is shorter than %d characters", title, minLength),
			})
		}
		return nil
	})
}

// CreationDate flags a missing creation date, or one after maxDate.
func CreationDate(maxDate time.Time) Validator {
	meta := Meta{
		Name:   "creation_date",
		Kind:   discrepancy.KindDateOutOfRange,
		Params: Params{"max_date": maxDate.Format("2006-01-02")},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		switch {
		case doc.CreatedAt == nil:
			emit(Finding{
				Kind:     discrepancy.KindMissingMetadata,
				Location: discrepancy.Table(),
				Detail:   "creation date is missing",
			})
		case doc.CreatedAt.After(maxDate):
			emit(Finding{
				Location: discrepancy.Table(),
				Detail: fmt.Sprintf("created %s, after %s",
					doc.CreatedAt.Format("2006-01-02"), maxDate.Format("2006-01-02")),
			})
		}
		return nil
	})
}

// FirstRowSum flags the first cell of body row 0 at which the running sum
// exceeds maxSum. Missing cells do not contribute to the sum.
func FirstRowSum(maxSum float64) Validator {
	meta := Meta{
		Name:   "first_row_sum",
		Kind:   discrepancy.KindSumExceeded,
		Params: Params{"max_sum": maxSum},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		if len(doc.Body) == 0 {
			emit(Finding{
				Kind:     discrepancy.KindEmptyBody,
				Location: discrepancy.Table(),
				Detail:   "document has no body rows",
			})
			return nil
		}

		first := doc.Body[0]
		if len(first.Values) == 0 {
			emit(Finding{
				Kind:     discrepancy.KindEmptyBody,
				Location: discrepancy.RowOf(0),
				Detail:   "first row has no values",
			})
			return nil
		}

		var sum float64
		for i, v := range first.Values {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			if sum > maxSum {
				emit(Finding{
					Location: discrepancy.Cell(0, i),
					Detail:   fmt.Sprintf("running sum %g of row %q exceeds %g", sum, first.Label, maxSum),
				})
				return nil
			}
		}
		return nil
	})
}

// FooterMetadata flags a document whose footer carried neither a creation
// date nor an origin country.
func FooterMetadata() Validator {
	meta := Meta{Name: "footer_metadata", Kind: discrepancy.KindMissingMetadata}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		if !doc.HasFooterMetadata() {
			emit(Finding{
				Location: discrepancy.Table(),
				Detail:   "footer metadata (creation date, country) is missing",
			})
		}
		return nil
	})
}

// RowWidth flags every body row whose value count differs from the header.
// Ingestion rejects such documents, so this only fires for documents built
// by other means.
func RowWidth() Validator {
	meta := Meta{Name: "row_width", Kind: discrepancy.KindRowWidthMismatch}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		for i, row := range doc.Body {
			if len(row.Values) != len(doc.Header) {
				emit(Finding{
					Location: discrepancy.RowOf(i),
					Detail:   fmt.Sprintf("row %q has %d values, header has %d", row.Label, len(row.Values), len(doc.Header)),
				})
			}
		}
		return nil
	})
}

// PercentRange flags percent-unit cells outside [lo, hi].
func PercentRange(lo, hi float64) Validator {
	meta := Meta{
		Name:   "percent_range",
		Kind:   discrepancy.KindOutOfRange,
		Params: Params{"min": lo, "max": hi},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		for i, row := range doc.Body {
			for j, v := range row.Values {
				if doc.Unit(j) != document.UnitPercent || math.IsNaN(v) {
					continue
				}
				if v < lo || v > hi {
					emit(Finding{
						Location: discrepancy.Cell(i, j),
						Detail:   fmt.Sprintf("%g%% for %s is outside [%g, %g]", v, columnName(doc, j), lo, hi),
					})
				}
			}
		}
		return nil
	})
}

// MissingValues flags every blank intersection.
func MissingValues() Validator {
	meta := Meta{Name: "missing_values", Kind: discrepancy.KindMissingValue}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		for i, row := range doc.Body {
			for j := range row.Values {
				if row.Missing(j) {
					emit(Finding{
						Location: discrepancy.Cell(i, j),
						Detail:   fmt.Sprintf("no value for %s in row %q", columnName(doc, j), row.Label),
					})
				}
			}
		}
		return nil
	})
}

// ColumnOutlier flags cells that lie more than maxZ standard deviations
// from the mean of the other values in their column. Columns with fewer
// than minRows present values are not checked.
func ColumnOutlier(maxZ float64, minRows int) Validator {
	meta := Meta{
		Name:   "column_outlier",
		Kind:   discrepancy.KindOutlier,
		Params: Params{"max_z": maxZ, "min_rows": minRows},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		columns := make([][]float64, doc.Width())
		for j := range columns {
			columns[j] = doc.Column(j)
		}

		for i, row := range doc.Body {
			for j, v := range row.Values {
				if math.IsNaN(v) || j >= len(columns) || present(columns[j]) < minRows {
					continue
				}
				z, ok := zScore(columns[j], i)
				if ok && z > maxZ {
					emit(Finding{
						Location: discrepancy.Cell(i, j),
						Detail:   fmt.Sprintf("%g for %s is %.1f standard deviations from the rest of the column", v, columnName(doc, j), z),
					})
				}
			}
		}
		return nil
	})
}

// RowTotal checks a total column against the sum of the other columns in
// each row, and a total row against the sum of the other rows in each
// column. Documents without a column or row labelled label pass.
func RowTotal(label string, tolerance float64) Validator {
	meta := Meta{
		Name:   "row_total",
		Kind:   discrepancy.KindTotalMismatch,
		Params: Params{"label": label, "tolerance": tolerance},
	}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		totalCol := -1
		for j, h := range doc.Header {
			if sameLabel(h, label) {
				totalCol = j
				break
			}
		}
		totalRow := -1
		for i, row := range doc.Body {
			if sameLabel(row.Label, label) {
				totalRow = i
				break
			}
		}

		if totalCol >= 0 {
			for i, row := range doc.Body {
				if row.Missing(totalCol) || totalCol >= len(row.Values) {
					continue
				}
				var sum float64
				for j, v := range row.Values {
					if j != totalCol && !math.IsNaN(v) {
						sum += v
					}
				}
				if got := row.Values[totalCol]; math.Abs(sum-got) > tolerance {
					emit(Finding{
						Location: discrepancy.Cell(i, totalCol),
						Detail:   fmt.Sprintf("row %q total is %g, values sum to %g", row.Label, got, sum),
					})
				}
			}
		}

		if totalRow >= 0 {
			totals := doc.Body[totalRow]
			for j, got := range totals.Values {
				if math.IsNaN(got) || j == totalCol {
					continue
				}
				var sum float64
				for i, row := range doc.Body {
					if i != totalRow && j < len(row.Values) && !math.IsNaN(row.Values[j]) {
						sum += row.Values[j]
					}
				}
				if math.Abs(sum-got) > tolerance {
					emit(Finding{
						Location: discrepancy.Cell(totalRow, j),
						Detail:   fmt.Sprintf("%s total is %g, rows sum to %g", columnName(doc, j), got, sum),
					})
				}
			}
		}
		return nil
	})
}

// DuplicateLabels flags every row whose label repeats an earlier row.
// Labels are compared case-insensitively, ignoring surrounding space.
func DuplicateLabels() Validator {
	meta := Meta{Name: "duplicate_labels", Kind: discrepancy.KindDuplicateLabel}
	return New(meta, func(doc document.Document, emit func(Finding)) error {
		first := make(map[string]int, len(doc.Body))
		for i, row := range doc.Body {
			key := strings.ToLower(strings.TrimSpace(row.Label))
			if key == "" {
				continue
			}
			if prev, ok := first[key]; ok {
				emit(Finding{
					Location: discrepancy.RowOf(i),
					Detail:   fmt.Sprintf("label %q repeats row %d", row.Label, prev),
				})
				continue
			}
			first[key] = i
		}
		return nil
	})
}

func columnName(doc document.Document, j int) string {
	if j >= 0 && j < len(doc.Header) && doc.Header[j] != "" {
		return fmt.Sprintf("%q", doc.Header[j])
	}
	return fmt.Sprintf("column %d", j)
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// zScore returns how many sample standard deviations values[k] lies from
// the mean of the other present values. It reports false when fewer than
// two other values remain or they have no spread.
func zScore(values []float64, k int) (float64, bool) {
	var n, sum float64
	for i, v := range values {
		if i != k && !math.IsNaN(v) {
			n++
			sum += v
		}
	}
	if n < 2 {
		return 0, false
	}
	mean := sum / n

	var sq float64
	for i, v := range values {
		if i != k && !math.IsNaN(v) {
			sq += (v - mean) * (v - mean)
		}
	}
	sd := math.Sqrt(sq / (n - 1))
	if sd == 0 {
		return 0, false
	}
	return math.Abs(values[k]-mean) / sd, true
}

func present(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
