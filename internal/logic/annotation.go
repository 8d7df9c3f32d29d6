package logic

import "strings"

// PastPredicate records a fact that held at some earlier program point and
// must continue to be derivable (a "linearization already happened" marker,
// or a stashed pre-state value used by a two-state postcondition check).
type PastPredicate struct {
	Label string
	Body  Formula
}

// FuturePredicate records a fact an obligation search must eventually
// establish before the interface function returns.
type FuturePredicate struct {
	Label string
	Body  Formula
}

func (p *PastPredicate) String() string   { return "past[" + p.Label + "](" + p.Body.String() + ")" }
func (p *FuturePredicate) String() string { return "future[" + p.Label + "](" + p.Body.String() + ")" }

// Annotation is the full symbolic state tracked at a program point: the
// "now" resource/pure formula (memory held, stack bindings, flow facts,
// obligations), plus whatever past and future predicates are in scope.
type Annotation struct {
	Now    Formula
	Past   []*PastPredicate
	Future []*FuturePredicate
}

// NewAnnotation wraps now with no past/future predicates.
func NewAnnotation(now Formula) *Annotation {
	if now == nil {
		now = Emp()
	}
	return &Annotation{Now: now}
}

func (a *Annotation) String() string {
	var b strings.Builder
	b.WriteString(a.Now.String())
	for _, p := range a.Past {
		b.WriteString(" & " + p.String())
	}
	for _, f := range a.Future {
		b.WriteString(" & " + f.String())
	}
	return b.String()
}

// Copy deep-copies the annotation (Now plus the predicate lists; the
// predicates' bodies are copied too, but their Label strings are shared).
func (a *Annotation) Copy() *Annotation {
	out := &Annotation{Now: Copy(a.Now)}
	for _, p := range a.Past {
		out.Past = append(out.Past, &PastPredicate{Label: p.Label, Body: Copy(p.Body)})
	}
	for _, f := range a.Future {
		out.Future = append(out.Future, &FuturePredicate{Label: f.Label, Body: Copy(f.Body)})
	}
	return out
}

// MemoryAxioms returns every memory resource (local or shared) the
// annotation's Now formula currently holds.
func (a *Annotation) MemoryAxioms() []MemoryAxiom {
	return Collect[MemoryAxiom](a.Now, nil)
}

// Obligations returns every undischarged obligation in Now.
func (a *Annotation) Obligations() []*ObligationAxiom {
	return Collect[*ObligationAxiom](a.Now, nil)
}

// Fulfillments returns every fulfillment witness in Now.
func (a *Annotation) Fulfillments() []*FulfillmentAxiom {
	return Collect[*FulfillmentAxiom](a.Now, nil)
}

// Symbols returns every *Symbol reachable from the annotation's Now formula
// and past/future predicate bodies.
func (a *Annotation) Symbols() []*Symbol {
	var out []*Symbol
	seen := map[*Symbol]bool{}
	add := func(syms []*Symbol) {
		for _, s := range syms {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	add(Collect[*Symbol](a.Now, nil))
	for _, p := range a.Past {
		add(Collect[*Symbol](p.Body, nil))
	}
	for _, f := range a.Future {
		add(Collect[*Symbol](f.Body, nil))
	}
	return out
}

// UndischargedObligation reports the first obligation with no matching
// fulfillment in Now, used to build the WarningUndischargedObligation
// diagnostic at the end of a STABLE verification run.
func (a *Annotation) UndischargedObligation() (*ObligationAxiom, bool) {
	fulfillments := a.Fulfillments()
	for _, ob := range a.Obligations() {
		matched := false
		for _, fl := range fulfillments {
			if fl.Matches(ob) {
				matched = true
				break
			}
		}
		if !matched {
			return ob, true
		}
	}
	return nil, false
}
