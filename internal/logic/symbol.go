// Package logic implements the separation-logic annotation and heap model
// ("heal" logic) the post-image engine and encoder operate on: memory
// resources, pure axioms, obligations/fulfillments, and the past/future
// predicates an Annotation carries at a program point.
package logic

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/segmentio/ksuid"

	"colaheal/internal/ast"
)

// Order distinguishes first-order value symbols (node addresses, field
// values, data) from second-order flow-set symbols.
type Order int

const (
	FirstOrder Order = iota
	SecondOrder
)

func (o Order) String() string {
	if o == SecondOrder {
		return "2nd"
	}
	return "1st"
}

// Symbol is a stably-identified symbolic value. Two Symbols are the same
// symbol iff they are the same pointer: SymbolFactory never hands out two
// *Symbol values that should be considered equal, and Copy never mints new
// ones, so pointer identity is always the right equality test.
type Symbol struct {
	id    string
	base  string
	Type  *ast.Type
	Order Order
}

// SymbolName renders a canonical, SMT-visible identifier: a snake_case base
// name plus a short disambiguating suffix from the minting KSUID.
func (s *Symbol) SymbolName() string {
	return fmt.Sprintf("%s_%s", s.base, s.id[len(s.id)-8:])
}

// SymbolType implements ast.Symbolic so a Symbol can be embedded directly in
// an ast.SymbolicExpr.
func (s *Symbol) SymbolType() *ast.Type { return s.Type }

// ID is the symbol's globally unique minting id, used by the factory to
// guarantee freshness and by the encoder to name SMT constants.
func (s *Symbol) ID() string { return s.id }

func (s *Symbol) String() string { return s.SymbolName() }

// SymbolFactory mints fresh symbols. Every id it hands out (a KSUID) is
// recorded in used, a set that only ever grows, and a factory is never
// shared in a way that would let two post-image calls race on it, since the
// verifier is single-threaded.
type SymbolFactory struct {
	used map[string]bool
}

// NewSymbolFactory creates an empty factory.
func NewSymbolFactory() *SymbolFactory {
	return &SymbolFactory{used: make(map[string]bool)}
}

// Fresh mints a new symbol of the given order and type, guaranteed distinct
// from every symbol this factory has minted or that was reserved via Avoid.
func (f *SymbolFactory) Fresh(baseName string, t *ast.Type, order Order) *Symbol {
	name := strcase.ToSnake(baseName)
	if name == "" {
		name = "sym"
	}
	for {
		id := ksuid.New().String()
		if f.used[id] {
			continue // astronomically unlikely, but honor the freshness contract literally
		}
		f.used[id] = true
		return &Symbol{id: id, base: name, Type: t, Order: order}
	}
}

// Avoid reserves every symbol id already present in objs so a later Fresh
// call (on this or a different factory feeding the same composition) is
// guaranteed not to collide with them. This backs MakeDefaultRenaming's
// disjointness guarantee (invariant I5) when composing two annotations.
func (f *SymbolFactory) Avoid(objs ...Formula) {
	for _, obj := range objs {
		for _, sym := range Collect[*Symbol](obj, nil) {
			f.used[sym.id] = true
		}
	}
}
