package logic

import "colaheal/internal/ast"

// MakeLocalMemory builds a fresh local memory resource for a pointer of type
// addrType: a fresh pointer-sorted address symbol, a fresh second-order flow
// symbol, and one fresh first-order field symbol per declared field,
// satisfying invariant I1 (fresh w.r.t. everything the factory has minted or
// been told to Avoid) and I2 (pointer fields get pointer-sorted symbols).
func MakeLocalMemory(addrType *ast.Type, flowType *ast.Type, factory *SymbolFactory) *LocalMemoryResource {
	return &LocalMemoryResource{
		NodeSym:   factory.Fresh("addr", addrType, FirstOrder),
		FlowSym:   factory.Fresh("flow", flowType, SecondOrder),
		FieldVals: makeFieldSymbols(addrType, factory),
	}
}

// MakeSharedMemory is MakeLocalMemory's shared-ownership counterpart; the
// two differ only in which MemoryAxiom implementation they return, since
// shared-ness additionally governs invariant I3 (not checked at construction
// time, since it is a closure property over the whole annotation rather than
// a single resource).
func MakeSharedMemory(addrType *ast.Type, flowType *ast.Type, factory *SymbolFactory) *SharedMemoryCore {
	return &SharedMemoryCore{
		NodeSym:   factory.Fresh("addr", addrType, FirstOrder),
		FlowSym:   factory.Fresh("flow", flowType, SecondOrder),
		FieldVals: makeFieldSymbols(addrType, factory),
	}
}

func makeFieldSymbols(addrType *ast.Type, factory *SymbolFactory) map[string]*Symbol {
	fields := make(map[string]*Symbol, len(addrType.Fields))
	for name, ft := range addrType.Fields {
		order := FirstOrder
		fields[name] = factory.Fresh(name, ft, order)
	}
	return fields
}

// Renaming maps a declaration (program variable) to the fresh variable
// standing in for it in a renamed copy of an annotation.
type Renaming func(*ast.VarDecl) *ast.VarDecl

// MakeDefaultRenaming returns a Renaming that mints, on first use, a fresh
// declaration of the same name/type/sharing as its input and memoizes the
// result so repeated lookups of the same declaration return the same
// renamed declaration (required for EqualsToAxiom/StackAxiom consistency
// across a single renamed formula).
func MakeDefaultRenaming(factory *SymbolFactory) Renaming {
	memo := map[*ast.VarDecl]*ast.VarDecl{}
	return func(v *ast.VarDecl) *ast.VarDecl {
		if r, ok := memo[v]; ok {
			return r
		}
		r := &ast.VarDecl{Name: v.Name, Type: v.Type, IsShared: v.IsShared}
		memo[v] = r
		return r
	}
}

// SymbolRenaming maps a *Symbol to its counterpart in a renamed formula.
type SymbolRenaming func(*Symbol) *Symbol

// MakeMemoryRenaming returns a SymbolRenaming mapping every symbol of memory
// axiom a to the corresponding symbol of memory axiom b (same node, same
// flow, and each same-named field), and acting as the identity on any symbol
// not belonging to a. Used to unify two post-images of the same command that
// allocated/read the same resource under different symbol identities.
func MakeMemoryRenaming(a, b MemoryAxiom) SymbolRenaming {
	pairs := map[*Symbol]*Symbol{
		a.Node(): b.Node(),
		a.Flow(): b.Flow(),
	}
	for name, sa := range a.Fields() {
		if sb, ok := b.Fields()[name]; ok {
			pairs[sa] = sb
		}
	}
	return func(s *Symbol) *Symbol {
		if r, ok := pairs[s]; ok {
			return r
		}
		return s
	}
}

// ApplyRenaming rewrites f by substituting every symbol through rename; it
// is Replace generalized from a single from/to pair to an arbitrary mapping.
func ApplyRenaming(f Formula, rename SymbolRenaming) Formula {
	for _, sym := range Collect[*Symbol](f, nil) {
		if r := rename(sym); r != sym {
			f = Replace(f, sym, r)
		}
	}
	return f
}

// checkDisjointAddress is I1's per-resource half: a constructed local
// memory resource must not reuse an address symbol already bound in now.
func checkDisjointAddress(now Formula, addr *Symbol) bool {
	for _, m := range Collect[MemoryAxiom](now, nil) {
		if m.Node() == addr {
			return false
		}
	}
	return true
}
