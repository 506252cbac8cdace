package rules

import (
	"fmt"

	"github.com/JonMunkholm/discrepancy/internal/document"
)

// Fallback produces the outcome reported when a guarded rule panics.
type Fallback func() Outcome

// FallbackValue returns a Fallback that always yields o.
func FallbackValue(o Outcome) Fallback {
	return func() Outcome { return o }
}

// FallbackFunc returns a Fallback that calls f only when a failure occurs.
func FallbackFunc(f func() Outcome) Fallback {
	return Fallback(f)
}

type guarded struct {
	inner    Validator
	fallback Fallback
}

// Guard wraps v so that a panic during Validate is converted into an error
// outcome instead of propagating. With a nil fallback the outcome carries
// the message "rule <name> panicked: <cause>". Whatever the fallback
// returns, the outcome is forced to StatusError with a non-empty diagnostic.
func Guard(v Validator, fb Fallback) Validator {
	if g, ok := v.(*guarded); ok && fb == nil {
		return g
	}
	return &guarded{inner: v, fallback: fb}
}

func (g *guarded) Meta() Meta { return g.inner.Meta() }

func (g *guarded) Validate(doc document.Document) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = g.recovered(doc, r)
		}
	}()
	return g.inner.Validate(doc)
}

func (g *guarded) recovered(doc document.Document, cause any) Outcome {
	meta := g.inner.Meta()
	err := fmt.Errorf("rule %s panicked: %v", meta.Name, cause)
	if g.fallback == nil {
		return meta.Fail(doc, err)
	}

	out := g.fallback()
	out.Status = StatusError
	out.Discrepancies = nil
	if out.Rule == "" {
		out.Rule = meta.Name
	}
	if out.Kind == "" {
		out.Kind = meta.Kind
	}
	if out.DocumentID == "" {
		out.DocumentID = doc.ID
	}
	if out.Diagnostic == "" {
		out.Diagnostic = err.Error()
	}
	return out
}
