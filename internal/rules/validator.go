// Package rules holds the validator abstraction, the fault boundary around
// it, the composite registry that runs a rule set over one document, and the
// catalog of built-in rules.
//
// A rule is a pure function of a document: it never performs I/O and
// running it twice on the same document yields the same findings.
package rules

import (
	"fmt"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

// Status is the result class of one validator run.
type Status string

const (
	// StatusSuccess means the rule evaluated the document. Zero
	// discrepancies with this status means "ran, found nothing".
	StatusSuccess Status = "success"
	// StatusError means the rule could not evaluate the document.
	StatusError Status = "error"
)

// Outcome is what a validator returns for one document.
type Outcome struct {
	Status        Status
	Rule          string
	Kind          discrepancy.Kind
	DocumentID    string
	Discrepancies []discrepancy.Record
	Diagnostic    string
}

// OK reports whether the rule evaluated the document.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Meta identifies a rule: its name, the kind it emits by default and the
// parameters it was built with.
type Meta struct {
	Name   string
	Kind   discrepancy.Kind
	Params Params
}

// Finding is one anomaly reported by a check. Kind may be left empty to use
// the rule's default kind. The zero Location is the cell at row 0, column 0,
// not the table; table-level findings must use discrepancy.Table(). On a
// document with no body rows a zero Location is out of range and fails the
// outcome.
type Finding struct {
	Kind     discrepancy.Kind
	Location discrepancy.Location
	Detail   string
}

// Succeed builds a success outcome carrying one record per finding, tagged
// with the rule name, kind and parameters. A finding that points outside
// the document turns the outcome into an error.
func (m Meta) Succeed(doc document.Document, findings ...Finding) Outcome {
	out := Outcome{
		Status:     StatusSuccess,
		Rule:       m.Name,
		Kind:       m.Kind,
		DocumentID: doc.ID,
	}
	for _, f := range findings {
		if !f.Location.ValidFor(doc) {
			return m.Fail(doc, fmt.Errorf("finding at %s is outside the %dx%d table",
				f.Location, len(doc.Body), len(doc.Header)))
		}
		kind := f.Kind
		if kind == "" {
			kind = m.Kind
		}
		rec := discrepancy.New(doc.ID, kind, m.Name, f.Location, f.Detail).WithParams(m.Params)
		out.Discrepancies = append(out.Discrepancies, rec)
	}
	return out
}

// Fail builds the error outcome for a rule that could not evaluate doc.
func (m Meta) Fail(doc document.Document, err error) Outcome {
	msg := "rule " + m.Name + " failed"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{
		Status:     StatusError,
		Rule:       m.Name,
		Kind:       m.Kind,
		DocumentID: doc.ID,
		Diagnostic: msg,
	}
}

// Validator is a single independent check over one document.
type Validator interface {
	Meta() Meta
	Validate(doc document.Document) Outcome
}

// CheckFunc is the detection logic of a rule. It reports findings through
// emit and returns an error when it cannot evaluate the document at all.
type CheckFunc func(doc document.Document, emit func(Finding)) error

type rule struct {
	meta  Meta
	check CheckFunc
}

// New builds a Validator from its metadata and check function.
func New(meta Meta, check CheckFunc) Validator {
	return &rule{meta: meta, check: check}
}

func (r *rule) Meta() Meta { return r.meta }

func (r *rule) Validate(doc document.Document) Outcome {
	var findings []Finding
	if err := r.check(doc, func(f Finding) { findings = append(findings, f) }); err != nil {
		return r.meta.Fail(doc, err)
	}
	return r.meta.Succeed(doc, findings...)
}
