package web

import (
	"math"
	"time"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

// JSON cannot carry NaN, so missing cells are rendered as null.

type rowView struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

type documentView struct {
	ID            string          `json:"table_id"`
	Title         string          `json:"title"`
	Header        []string        `json:"header"`
	Body          []rowView       `json:"body"`
	Units         []document.Unit `json:"units,omitempty"`
	Footer        string          `json:"footer,omitempty"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
	OriginCountry string          `json:"origin_country,omitempty"`
	Source        string          `json:"source,omitempty"`
}

func newDocumentView(d document.Document) documentView {
	v := documentView{
		ID:            d.ID,
		Title:         d.Title,
		Header:        d.Header,
		Body:          make([]rowView, len(d.Body)),
		Units:         d.Units,
		Footer:        d.Footer,
		CreatedAt:     d.CreatedAt,
		OriginCountry: d.OriginCountry,
		Source:        d.Source,
	}
	for i, row := range d.Body {
		vals := make([]*float64, len(row.Values))
		for j, x := range row.Values {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				continue
			}
			vals[j] = &x
		}
		v.Body[i] = rowView{Label: row.Label, Values: vals}
	}
	return v
}

type discrepancyView struct {
	ID         string            `json:"discrepancy_id"`
	DocumentID string            `json:"document_id"`
	Kind       discrepancy.Kind  `json:"kind"`
	Rule       string            `json:"rule"`
	Scope      discrepancy.Scope `json:"scope"`
	Row        *int              `json:"row"`
	Column     *int              `json:"column"`
	Detail     string            `json:"detail"`
	Params     map[string]any    `json:"params,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func newDiscrepancyView(r discrepancy.Record) discrepancyView {
	return discrepancyView{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Kind:       r.Kind,
		Rule:       r.Rule,
		Scope:      r.Location.Scope(),
		Row:        index(r.Location.Row),
		Column:     index(r.Location.Column),
		Detail:     r.Detail,
		Params:     r.Params,
		CreatedAt:  r.CreatedAt,
	}
}

func index(i int) *int {
	if i == discrepancy.Whole {
		return nil
	}
	return &i
}
