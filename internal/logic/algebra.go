package logic

import "colaheal/internal/ast"

// walk visits f and every Formula it is built from, depth-first, handing
// emit every object of interest along the way: the formula nodes themselves,
// the symbols and variables embedded inside them, and (for StackAxiom) the
// symbols embedded inside its expression operands. Collect filters this
// untyped stream down to a single requested type, so one traversal serves
// every caller (find all symbols, all memory axioms, all variables, ...).
func walk(f Formula, emit func(any)) {
	if f == nil {
		return
	}
	emit(f)
	switch x := f.(type) {
	case *LocalMemoryResource:
		emit(x.NodeSym)
		emit(x.FlowSym)
		for _, v := range x.FieldVals {
			emit(v)
		}
	case *SharedMemoryCore:
		emit(x.NodeSym)
		emit(x.FlowSym)
		for _, v := range x.FieldVals {
			emit(v)
		}
	case *EqualsToAxiom:
		emit(x.Var)
		emit(x.Value)
	case *StackAxiom:
		for _, sym := range exprSymbols(x.Left) {
			emit(sym)
		}
		for _, sym := range exprSymbols(x.Right) {
			emit(sym)
		}
	case *InflowEmptinessAxiom:
		emit(x.Flow)
	case *InflowContainsValueAxiom:
		emit(x.Flow)
		emit(x.Value)
	case *InflowContainsRangeAxiom:
		emit(x.Flow)
		emit(x.Low)
		emit(x.High)
	case *ObligationAxiom:
		emit(x.Arg)
	case *FulfillmentAxiom:
		emit(x.Arg)
		emit(x.Result)
	case *SeparatingConjunction:
		for _, c := range x.Conjuncts {
			walk(c, emit)
		}
	case *SeparatingImplication:
		walk(x.Antecedent, emit)
		walk(x.Consequent, emit)
	case *NegatedAxiom:
		walk(x.Inner, emit)
	}
}

// exprSymbols recovers the *Symbol values embedded (via ast.SymbolicExpr)
// inside an otherwise syntactic expression tree.
func exprSymbols(e ast.Expr) []*Symbol {
	var out []*Symbol
	var rec func(ast.Expr)
	rec = func(e ast.Expr) {
		switch x := e.(type) {
		case *ast.SymbolicExpr:
			if sym, ok := x.Sym.(*Symbol); ok {
				out = append(out, sym)
			}
		case *ast.DerefExpr:
			rec(x.Target)
		case *ast.NegExpr:
			rec(x.Operand)
		case *ast.BinaryExpr:
			rec(x.Left)
			rec(x.Right)
		}
	}
	rec(e)
	return out
}

// Collect gathers every sub-object of f whose runtime type matches T and
// that satisfies filter (a nil filter accepts everything). T ranges freely
// over *Symbol, *ast.VarDecl, MemoryAxiom, *EqualsToAxiom, or Formula itself.
func Collect[T any](f Formula, filter func(T) bool) []T {
	var out []T
	seen := map[any]bool{}
	walk(f, func(v any) {
		if seen[v] {
			return
		}
		t, ok := v.(T)
		if !ok {
			return
		}
		if filter != nil && !filter(t) {
			return
		}
		seen[v] = true
		out = append(out, t)
	})
	return out
}

// SyntacticallyContains reports whether f has a sub-formula structurally
// (not just referentially) equal to target, used by the join/widening step
// to test whether one annotation's conjunct set is already covered by another's.
func SyntacticallyContains(f Formula, target Formula) bool {
	found := false
	walk(f, func(v any) {
		if found {
			return
		}
		if cand, ok := v.(Formula); ok && formulaEqual(cand, target) {
			found = true
		}
	})
	return found
}

func formulaEqual(a, b Formula) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *EqualsToAxiom:
		y, ok := b.(*EqualsToAxiom)
		return ok && x.Var == y.Var && x.Value == y.Value
	case *StackAxiom:
		y, ok := b.(*StackAxiom)
		return ok && x.Op == y.Op && x.Left.String() == y.Left.String() && x.Right.String() == y.Right.String()
	case *InflowEmptinessAxiom:
		y, ok := b.(*InflowEmptinessAxiom)
		return ok && x.Flow == y.Flow && x.Empty == y.Empty
	case *InflowContainsValueAxiom:
		y, ok := b.(*InflowContainsValueAxiom)
		return ok && x.Flow == y.Flow && x.Value == y.Value && x.Negated == y.Negated
	case *InflowContainsRangeAxiom:
		y, ok := b.(*InflowContainsRangeAxiom)
		return ok && x.Flow == y.Flow && x.Low == y.Low && x.High == y.High
	case *ObligationAxiom:
		y, ok := b.(*ObligationAxiom)
		return ok && x.Kind == y.Kind && x.Arg == y.Arg
	case *FulfillmentAxiom:
		y, ok := b.(*FulfillmentAxiom)
		return ok && x.Kind == y.Kind && x.Arg == y.Arg && x.Result == y.Result
	case MemoryAxiom:
		y, ok := b.(MemoryAxiom)
		if !ok || x.Shared() != y.Shared() || x.Node() != y.Node() || x.Flow() != y.Flow() {
			return false
		}
		if len(x.Fields()) != len(y.Fields()) {
			return false
		}
		for name, v := range x.Fields() {
			if y.Fields()[name] != v {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Conjoin flattens zero or more formulas into a single SeparatingConjunction,
// splicing any operand that is itself already a SeparatingConjunction so
// conjunct lists never nest needlessly.
func Conjoin(fs ...Formula) *SeparatingConjunction {
	out := &SeparatingConjunction{}
	for _, f := range fs {
		if f == nil {
			continue
		}
		if sc, ok := f.(*SeparatingConjunction); ok {
			out.Conjuncts = append(out.Conjuncts, sc.Conjuncts...)
			continue
		}
		out.Conjuncts = append(out.Conjuncts, f)
	}
	return out
}

// Copy deep-copies f. Symbols are never duplicated (pointer identity is
// their equality), so Copy only rebuilds the composite/axiom structure
// around the same *Symbol and *ast.VarDecl leaves.
func Copy(f Formula) Formula {
	switch x := f.(type) {
	case nil:
		return nil
	case *LocalMemoryResource:
		return &LocalMemoryResource{NodeSym: x.NodeSym, FlowSym: x.FlowSym, FieldVals: copyFields(x.FieldVals)}
	case *SharedMemoryCore:
		return &SharedMemoryCore{NodeSym: x.NodeSym, FlowSym: x.FlowSym, FieldVals: copyFields(x.FieldVals)}
	case *EqualsToAxiom:
		return &EqualsToAxiom{Var: x.Var, Value: x.Value}
	case *StackAxiom:
		return &StackAxiom{Op: x.Op, Left: x.Left, Right: x.Right}
	case *InflowEmptinessAxiom:
		return &InflowEmptinessAxiom{Flow: x.Flow, Empty: x.Empty}
	case *InflowContainsValueAxiom:
		return &InflowContainsValueAxiom{Flow: x.Flow, Value: x.Value, Negated: x.Negated}
	case *InflowContainsRangeAxiom:
		return &InflowContainsRangeAxiom{Flow: x.Flow, Low: x.Low, High: x.High}
	case *ObligationAxiom:
		return &ObligationAxiom{Kind: x.Kind, Arg: x.Arg}
	case *FulfillmentAxiom:
		return &FulfillmentAxiom{Kind: x.Kind, Arg: x.Arg, Result: x.Result}
	case *SeparatingConjunction:
		cs := make([]Formula, len(x.Conjuncts))
		for i, c := range x.Conjuncts {
			cs[i] = Copy(c)
		}
		return &SeparatingConjunction{Conjuncts: cs}
	case *SeparatingImplication:
		return &SeparatingImplication{Antecedent: Copy(x.Antecedent), Consequent: Copy(x.Consequent)}
	case *NegatedAxiom:
		return &NegatedAxiom{Inner: Copy(x.Inner)}
	default:
		return f
	}
}

func copyFields(m map[string]*Symbol) map[string]*Symbol {
	out := make(map[string]*Symbol, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Replace substitutes every occurrence of from with to throughout f's
// symbol-bearing leaves, used by ApplyRenaming and by config's
// Blueprint.Instantiate to fill a configured blueprint's placeholders.
func Replace(f Formula, from, to *Symbol) Formula {
	sub := func(s *Symbol) *Symbol {
		if s == from {
			return to
		}
		return s
	}
	switch x := f.(type) {
	case nil:
		return nil
	case *LocalMemoryResource:
		return &LocalMemoryResource{NodeSym: sub(x.NodeSym), FlowSym: sub(x.FlowSym), FieldVals: replaceFields(x.FieldVals, from, to)}
	case *SharedMemoryCore:
		return &SharedMemoryCore{NodeSym: sub(x.NodeSym), FlowSym: sub(x.FlowSym), FieldVals: replaceFields(x.FieldVals, from, to)}
	case *EqualsToAxiom:
		return &EqualsToAxiom{Var: x.Var, Value: sub(x.Value)}
	case *StackAxiom:
		return &StackAxiom{Op: x.Op, Left: replaceExpr(x.Left, from, to), Right: replaceExpr(x.Right, from, to)}
	case *InflowEmptinessAxiom:
		return &InflowEmptinessAxiom{Flow: sub(x.Flow), Empty: x.Empty}
	case *InflowContainsValueAxiom:
		return &InflowContainsValueAxiom{Flow: sub(x.Flow), Value: sub(x.Value), Negated: x.Negated}
	case *InflowContainsRangeAxiom:
		return &InflowContainsRangeAxiom{Flow: sub(x.Flow), Low: sub(x.Low), High: sub(x.High)}
	case *ObligationAxiom:
		return &ObligationAxiom{Kind: x.Kind, Arg: sub(x.Arg)}
	case *FulfillmentAxiom:
		return &FulfillmentAxiom{Kind: x.Kind, Arg: sub(x.Arg), Result: sub(x.Result)}
	case *SeparatingConjunction:
		cs := make([]Formula, len(x.Conjuncts))
		for i, c := range x.Conjuncts {
			cs[i] = Replace(c, from, to)
		}
		return &SeparatingConjunction{Conjuncts: cs}
	case *SeparatingImplication:
		return &SeparatingImplication{Antecedent: Replace(x.Antecedent, from, to), Consequent: Replace(x.Consequent, from, to)}
	case *NegatedAxiom:
		return &NegatedAxiom{Inner: Replace(x.Inner, from, to)}
	default:
		return f
	}
}

func replaceFields(m map[string]*Symbol, from, to *Symbol) map[string]*Symbol {
	out := make(map[string]*Symbol, len(m))
	for k, v := range m {
		if v == from {
			out[k] = to
		} else {
			out[k] = v
		}
	}
	return out
}

func replaceExpr(e ast.Expr, from, to *Symbol) ast.Expr {
	switch x := e.(type) {
	case *ast.SymbolicExpr:
		if sym, ok := x.Sym.(*Symbol); ok && sym == from {
			return &ast.SymbolicExpr{Sym: to}
		}
		return x
	case *ast.DerefExpr:
		return &ast.DerefExpr{Target: replaceExpr(x.Target, from, to), Field: x.Field, Type: x.Type}
	case *ast.NegExpr:
		return &ast.NegExpr{Operand: replaceExpr(x.Operand, from, to)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: x.Op, Left: replaceExpr(x.Left, from, to), Right: replaceExpr(x.Right, from, to)}
	default:
		return e
	}
}
