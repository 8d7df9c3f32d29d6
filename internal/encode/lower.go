package encode

import (
	"fmt"

	"github.com/irifrance/gini/z"

	"colaheal/internal/ast"
	"colaheal/internal/logic"
)

// value is the encoder's handle on a single pointer- or data-sorted
// operand: either a solver-minted symbol or one of the three sentinel
// literals (null, MIN, MAX) the source language exposes directly.
type value struct {
	key  string
	sort ast.Sort
}

func symbolValue(s *logic.Symbol) value {
	t := s.Type
	sort := ast.SortData
	if t != nil {
		sort = t.Sort
	}
	return value{key: s.ID(), sort: sort}
}

var (
	nullValue = value{key: keyNull, sort: ast.SortPointer}
	minValue  = value{key: keyMin, sort: ast.SortData}
	maxValue  = value{key: keyMax, sort: ast.SortData}
)

// exprValue resolves an expression that denotes a pointer- or data-sorted
// value (as opposed to a Boolean condition) to its value handle. By the
// point an expression reaches the encoder it has already been evaluated
// against the current annotation by the post-image engine, so the only
// shapes expected here are symbolic references, the three sentinels, and
// the Boolean literals (the right-hand side of a `b == true` constraint);
// a bare VarExpr/DerefExpr reaching this layer means a caller skipped that
// evaluation step.
func (c *Context) exprValue(e ast.Expr) (value, error) {
	switch x := e.(type) {
	case *ast.BoolExpr:
		if x.Value {
			return value{key: "$true", sort: ast.SortBool}, nil
		}
		return value{key: "$false", sort: ast.SortBool}, nil
	case *ast.SymbolicExpr:
		sym, ok := x.Sym.(*logic.Symbol)
		if !ok {
			return value{}, newEncodingError(fmt.Sprintf("non-solver symbolic value %T", x.Sym), e)
		}
		c.registerSymbol(sym)
		return symbolValue(sym), nil
	case *ast.NullExpr:
		return nullValue, nil
	case *ast.MinExpr:
		return minValue, nil
	case *ast.MaxExpr:
		return maxValue, nil
	default:
		return value{}, newEncodingError(fmt.Sprintf("value expression %T not evaluated to a symbol", e), e)
	}
}

// registerSymbol is register plus the key->Symbol bookkeeping axioms that
// later need to walk "every data key seen so far" (range membership,
// EncodeInvariants) require to recover the symbol behind a key.
func (c *Context) registerSymbol(s *logic.Symbol) {
	v := symbolValue(s)
	c.symbolsByKey[v.key] = s
	c.register(v)
}

// register records a value's sort in the appropriate closure set so
// EncodeInvariants / totality maintenance can see every key that has ever
// appeared in the formula.
func (c *Context) register(v value) {
	switch v.sort {
	case ast.SortData, ast.SortBool:
		if !c.dataKeys[v.key] {
			c.dataKeys[v.key] = true
			c.closeDataOrder(v.key)
		}
	case ast.SortPointer:
		c.ptrKeys[v.key] = true
	}
}

// closeDataOrder asserts the bounded ("FAST") extension of the total order
// theory for a newly registered data key k against every data key already
// known: reflexivity is implicit (eq/leq of a key with itself needs no
// atom), MIN/MAX bounds, totality, and transitivity with every previously
// registered key. Because this only runs over the keys actually mentioned
// in the formula so far, the closure stays linear in the live symbol count
// rather than requiring an a-priori domain bound.
func (c *Context) closeDataOrder(k string) {
	if k != keyMin {
		c.assertUnit(c.leqAtom(keyMin, k))
	}
	if k != keyMax {
		c.assertUnit(c.leqAtom(k, keyMax))
	}
	for other := range c.dataKeys {
		if other == k {
			continue
		}
		// totality: k <= other OR other <= k
		c.addClause(c.leqAtom(k, other), c.leqAtom(other, k))
		for third := range c.dataKeys {
			if third == k || third == other {
				continue
			}
			// transitivity, with k first, in the middle, and last in the chain
			c.addClause(c.leqAtom(k, other).Not(), c.leqAtom(other, third).Not(), c.leqAtom(k, third))
			c.addClause(c.leqAtom(other, k).Not(), c.leqAtom(k, third).Not(), c.leqAtom(other, third))
			c.addClause(c.leqAtom(other, third).Not(), c.leqAtom(third, k).Not(), c.leqAtom(other, k))
		}
	}
}

func (c *Context) leqAtom(a, b string) z.Lit {
	if a == b {
		return c.trueLit()
	}
	key := pairKey{a, b}
	if l, ok := c.leqAtoms[key]; ok {
		return l
	}
	l := c.solver.Lit()
	c.leqAtoms[key] = l
	return l
}

func (c *Context) eqAtom(a, b string) z.Lit {
	if a == b {
		return c.trueLit()
	}
	key := canonicalPair(a, b)
	if l, ok := c.eqAtoms[key]; ok {
		return l
	}
	l := c.solver.Lit()
	c.eqAtoms[key] = l
	return l
}

// trueLit returns a literal permanently asserted true, used as the
// reflexive answer to "is x related to itself" without minting an atom.
func (c *Context) trueLit() z.Lit {
	if c.trueLitCache == z.LitNull {
		c.trueLitCache = c.solver.Lit()
		// added without a frame guard, so popping a frame never retracts it
		c.solver.Add(c.trueLitCache)
		c.solver.Add(z.LitNull)
	}
	return c.trueLitCache
}

// compareLits returns the (possibly multi-literal) unit-clause set that
// asserting `op(left, right)` as a StackAxiom premise contributes; data `!=`
// is a single Tseitin literal. A comparison inside a compound Boolean
// expression is lowered by comparisonLit instead.
func (c *Context) compareLits(op ast.BinOp, left, right value) ([]z.Lit, error) {
	if left.sort == ast.SortPointer || right.sort == ast.SortPointer {
		switch op {
		case ast.OpEq:
			return []z.Lit{c.eqAtom(left.key, right.key)}, nil
		case ast.OpNeq:
			return []z.Lit{c.eqAtom(left.key, right.key).Not()}, nil
		default:
			return nil, fmt.Errorf("pointer sort has no order relation for %s", op)
		}
	}
	c.register(left)
	c.register(right)
	switch op {
	case ast.OpEq:
		return []z.Lit{c.leqAtom(left.key, right.key), c.leqAtom(right.key, left.key)}, nil
	case ast.OpNeq:
		return []z.Lit{c.tseitinAnd(c.leqAtom(left.key, right.key), c.leqAtom(right.key, left.key)).Not()}, nil
	case ast.OpLeq:
		return []z.Lit{c.leqAtom(left.key, right.key)}, nil
	case ast.OpGeq:
		return []z.Lit{c.leqAtom(right.key, left.key)}, nil
	case ast.OpLt:
		return []z.Lit{c.leqAtom(left.key, right.key), c.leqAtom(right.key, left.key).Not()}, nil
	case ast.OpGt:
		return []z.Lit{c.leqAtom(right.key, left.key), c.leqAtom(left.key, right.key).Not()}, nil
	default:
		return nil, fmt.Errorf("%s is not a comparison operator", op)
	}
}

// comparisonLit lowers op(left,right) to a single literal (via a fresh
// Tseitin variable when the relation needs more than one unit clause to
// state, e.g. strict `<` or pointer `!=`), for use inside a larger Boolean
// formula rather than as a standalone asserted fact.
func (c *Context) comparisonLit(op ast.BinOp, left, right value) (z.Lit, error) {
	if left.sort == ast.SortPointer || right.sort == ast.SortPointer {
		eq := c.eqAtom(left.key, right.key)
		if op == ast.OpEq {
			return eq, nil
		}
		if op == ast.OpNeq {
			return eq.Not(), nil
		}
		return z.LitNull, fmt.Errorf("pointer sort has no order relation for %s", op)
	}
	c.register(left)
	c.register(right)
	leqLR := c.leqAtom(left.key, right.key)
	leqRL := c.leqAtom(right.key, left.key)
	switch op {
	case ast.OpLeq:
		return leqLR, nil
	case ast.OpGeq:
		return leqRL, nil
	case ast.OpEq:
		return c.tseitinAnd(leqLR, leqRL), nil
	case ast.OpNeq:
		return c.tseitinAnd(leqLR, leqRL).Not(), nil
	case ast.OpLt:
		return c.tseitinAnd(leqLR, leqRL.Not()), nil
	case ast.OpGt:
		return c.tseitinAnd(leqRL, leqLR.Not()), nil
	default:
		return z.LitNull, fmt.Errorf("%s is not a comparison operator", op)
	}
}

// tseitinAnd introduces a fresh literal equivalent to a && b.
func (c *Context) tseitinAnd(a, b z.Lit) z.Lit {
	r := c.solver.Lit()
	c.addClause(r.Not(), a)
	c.addClause(r.Not(), b)
	c.addClause(r, a.Not(), b.Not())
	return r
}

// tseitinOr introduces a fresh literal equivalent to a || b.
func (c *Context) tseitinOr(a, b z.Lit) z.Lit {
	r := c.solver.Lit()
	c.addClause(a.Not(), r)
	c.addClause(b.Not(), r)
	c.addClause(a, b, r.Not())
	return r
}

// exprBool lowers an arbitrary Boolean-valued expression (assume/assert
// conditions, CAS equality guards) to a single literal via Tseitin.
func (c *Context) exprBool(e ast.Expr) (z.Lit, error) {
	switch x := e.(type) {
	case *ast.BoolExpr:
		if x.Value {
			return c.trueLit(), nil
		}
		return c.trueLit().Not(), nil
	case *ast.SymbolicExpr:
		sym, ok := x.Sym.(*logic.Symbol)
		if !ok {
			return z.LitNull, newEncodingError(fmt.Sprintf("non-solver symbolic value %T", x.Sym), e)
		}
		return c.boolAtom(sym), nil
	case *ast.NegExpr:
		l, err := c.exprBool(x.Operand)
		if err != nil {
			return z.LitNull, err
		}
		return l.Not(), nil
	case *ast.BinaryExpr:
		if x.Op.IsComparison() {
			left, err := c.exprValue(x.Left)
			if err != nil {
				return z.LitNull, err
			}
			right, err := c.exprValue(x.Right)
			if err != nil {
				return z.LitNull, err
			}
			lit, err := c.comparisonLit(x.Op, left, right)
			if err != nil {
				return z.LitNull, newEncodingError(err.Error(), e)
			}
			return lit, nil
		}
		left, err := c.exprBool(x.Left)
		if err != nil {
			return z.LitNull, err
		}
		right, err := c.exprBool(x.Right)
		if err != nil {
			return z.LitNull, err
		}
		if x.Op == ast.OpAnd {
			return c.tseitinAnd(left, right), nil
		}
		return c.tseitinOr(left, right), nil
	default:
		return z.LitNull, newEncodingError(fmt.Sprintf("boolean expression %T not evaluated", e), e)
	}
}
