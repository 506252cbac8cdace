package rules

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/logging"
)

// Diagnostic records a rule that could not evaluate a document.
type Diagnostic struct {
	Rule       string `json:"rule"`
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("rule %s on %s: %s", d.Rule, d.DocumentID, d.Message)
}

// Result is the aggregated output of every registered rule for one document.
type Result struct {
	Discrepancies []discrepancy.Record
	Diagnostics   []Diagnostic
}

// Partial reports whether at least one rule failed to evaluate.
func (r Result) Partial() bool { return len(r.Diagnostics) > 0 }

// Registry runs an ordered set of rules over one document. Each rule is
// guarded on registration, so a failing rule never prevents the others
// from running.
type Registry struct {
	validators []Validator
}

// NewRegistry returns a registry with the given rules in order.
func NewRegistry(validators ...Validator) *Registry {
	r := &Registry{}
	for _, v := range validators {
		r.Register(v)
	}
	return r
}

// Register appends v to the rule set.
func (r *Registry) Register(v Validator) {
	r.validators = append(r.validators, Guard(v, nil))
}

// Rules returns the registered rule names in registration order.
func (r *Registry) Rules() []string {
	names := make([]string, len(r.validators))
	for i, v := range r.validators {
		names[i] = v.Meta().Name
	}
	return names
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.validators) }

// Run evaluates every rule against doc. Discrepancies are concatenated in
// registration order, then in each rule's emission order. Rules that could
// not evaluate the document become diagnostics.
func (r *Registry) Run(ctx context.Context, doc document.Document) Result {
	logger := logging.WithFields(ctx, "document_id", doc.ID)

	var res Result
	for _, v := range r.validators {
		out := v.Validate(doc)
		if !out.OK() {
			logger.Warn("rule could not evaluate document", "rule", out.Rule, "error", out.Diagnostic)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Rule:       out.Rule,
				DocumentID: doc.ID,
				Message:    out.Diagnostic,
			})
			continue
		}
		if n := len(out.Discrepancies); n > 0 {
			logger.Debug("rule found discrepancies", "rule", out.Rule, "count", n)
		}
		res.Discrepancies = append(res.Discrepancies, out.Discrepancies...)
	}
	return res
}
