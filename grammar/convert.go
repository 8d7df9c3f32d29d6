package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"

	"colaheal/internal/ast"
	"colaheal/internal/errors"
)

// converter lowers a parsed grammar.Program into an internal/ast.Program. It
// is a single forward pass over struct names (so a field may reference a
// struct declared later, including itself) followed by a pass over globals
// and function bodies, resolving every identifier against a stack of scopes
// threaded through the whole conversion.
type converter struct {
	types   map[string]*ast.Type
	globals map[string]*ast.VarDecl
	scopes  []map[string]*ast.VarDecl
}

// Convert lowers a parsed CoLa-light file into the internal/ast form the
// rest of the verifier operates on.
func Convert(file string, prog *Program) (*ast.Program, error) {
	c := &converter{
		types:   map[string]*ast.Type{"bool": ast.BoolType, "data": ast.DataType, "void": ast.VoidType},
		globals: map[string]*ast.VarDecl{},
	}

	for _, item := range prog.Items {
		if item.Struct != nil {
			if _, dup := c.types[item.Struct.Name]; dup {
				return nil, errors.NewParseError("duplicate struct declaration '"+item.Struct.Name+"'", posOf(file, item.Struct.Pos))
			}
			c.types[item.Struct.Name] = ast.PointerTo(item.Struct.Name, map[string]*ast.Type{})
		}
	}
	for _, item := range prog.Items {
		if item.Struct == nil {
			continue
		}
		t := c.types[item.Struct.Name]
		for _, f := range item.Struct.Fields {
			ft, err := c.resolveType(f.Type, file, f.Pos)
			if err != nil {
				return nil, err
			}
			t.Fields[f.Name] = ft
		}
	}

	out := &ast.Program{Types: c.types}
	for _, item := range prog.Items {
		if item.Shared == nil {
			continue
		}
		if _, dup := c.globals[item.Shared.Name]; dup {
			return nil, errors.NewParseError("duplicate shared declaration '"+item.Shared.Name+"'", posOf(file, item.Shared.Pos))
		}
		st, err := c.resolveType(item.Shared.Type, file, item.Shared.Pos)
		if err != nil {
			return nil, err
		}
		decl := &ast.VarDecl{Name: item.Shared.Name, Type: st, IsShared: true}
		c.globals[item.Shared.Name] = decl
		out.Globals = append(out.Globals, decl)
	}

	for _, item := range prog.Items {
		switch {
		case item.Func != nil:
			fn, err := c.convertFunc(file, item.Func)
			if err != nil {
				return nil, err
			}
			out.Functions = append(out.Functions, fn)
		case item.Init != nil:
			if out.Init != nil {
				return nil, errors.NewParseError("duplicate init block", posOf(file, item.Init.Pos))
			}
			c.pushScope(nil)
			body, err := c.convertBlock(file, item.Init.Body)
			c.popScope()
			if err != nil {
				return nil, err
			}
			out.Init = body
		}
	}
	return out, nil
}

func posOf(file string, p lexer.Position) ast.Position {
	return ast.Position{Filename: file, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func (c *converter) resolveType(name string, file string, p lexer.Position) (*ast.Type, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}
	return nil, errors.NewParseError("undeclared type '"+name+"'", posOf(file, p))
}

func (c *converter) pushScope(params []*ast.VarDecl) {
	scope := map[string]*ast.VarDecl{}
	for _, p := range params {
		scope[p.Name] = p
	}
	c.scopes = append(c.scopes, scope)
}

func (c *converter) popScope() { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *converter) declare(d *ast.VarDecl) {
	c.scopes[len(c.scopes)-1][d.Name] = d
}

func (c *converter) lookup(name string, file string, p lexer.Position) (*ast.VarDecl, error) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if d, ok := c.scopes[i][name]; ok {
			return d, nil
		}
	}
	if d, ok := c.globals[name]; ok {
		return d, nil
	}
	return nil, errors.NewParseError("undeclared variable '"+name+"'", posOf(file, p))
}

func (c *converter) convertFunc(file string, f *FuncDecl) (*ast.Function, error) {
	fn := &ast.Function{Name: f.Name}
	fn.Pos, fn.EndPos = posOf(file, f.Pos), posOf(file, f.EndPos)
	if f.Kind == "macro" {
		fn.Kind = ast.FunctionMacro
	} else {
		fn.Kind = ast.FunctionInterface
	}
	fn.Returns = ast.VoidType
	if f.Return != nil {
		rt, err := c.resolveType(*f.Return, file, f.Pos)
		if err != nil {
			return nil, err
		}
		fn.Returns = rt
	}

	var params []*ast.VarDecl
	for _, p := range f.Params {
		pt, err := c.resolveType(p.Type, file, p.Pos)
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.VarDecl{Name: p.Name, Type: pt})
	}
	fn.Params = params

	c.pushScope(params)
	body, err := c.convertBlock(file, f.Body)
	c.popScope()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (c *converter) convertBlock(file string, b *Block) (ast.Stmt, error) {
	var decls []*ast.VarDecl
	for _, ld := range b.Decls {
		dt, err := c.resolveType(ld.Type, file, ld.Pos)
		if err != nil {
			return nil, err
		}
		d := &ast.VarDecl{Name: ld.Name, Type: dt}
		c.declare(d)
		decls = append(decls, d)
	}

	var stmts []ast.Stmt
	for _, s := range b.Stmts {
		st, err := c.convertStmt(file, s)
		if err != nil {
			return nil, err
		}
		if st != nil {
			stmts = append(stmts, st)
		}
	}
	body := ast.Seq(stmts...)
	scope := &ast.ScopeStmt{Decls: decls, Body: body}
	scope.Pos, scope.EndPos = posOf(file, b.Pos), posOf(file, b.EndPos)
	return scope, nil
}

func (c *converter) convertStmt(file string, s *Stmt) (ast.Stmt, error) {
	pos, end := posOf(file, s.Pos), posOf(file, s.EndPos)
	switch {
	case s.Comment != nil:
		return nil, nil
	case s.Skip != nil:
		return cmd(pos, end, &ast.SkipCmd{}), nil
	case s.Break != nil:
		return cmd(pos, end, &ast.BreakCmd{}), nil
	case s.Continue != nil:
		return cmd(pos, end, &ast.ContinueCmd{}), nil
	case s.Assume != nil:
		e, err := c.convertExpr(file, s.Assume.Cond)
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.AssumeCmd{Cond: e}), nil
	case s.Assert != nil:
		e, err := c.convertExpr(file, s.Assert.Cond)
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.AssertCmd{Cond: e}), nil
	case s.Return != nil:
		var e ast.Expr
		if s.Return.Value != nil {
			var err error
			e, err = c.convertExpr(file, s.Return.Value)
			if err != nil {
				return nil, err
			}
		}
		return cmd(pos, end, &ast.ReturnCmd{Value: e}), nil
	case s.Atomic != nil:
		body, err := c.convertStmtList(file, s.Atomic.Body)
		if err != nil {
			return nil, err
		}
		st := &ast.AtomicStmt{Body: body}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.Choice != nil:
		var branches []ast.Stmt
		for _, br := range s.Choice.Branches {
			b, err := c.convertStmtList(file, br.Stmts)
			if err != nil {
				return nil, err
			}
			branches = append(branches, b)
		}
		st := &ast.ChoiceStmt{Branches: branches}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.Loop != nil:
		body, err := c.convertStmtList(file, s.Loop.Body)
		if err != nil {
			return nil, err
		}
		st := &ast.LoopStmt{Body: body}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.While != nil:
		cond, err := c.convertExpr(file, s.While.Cond)
		if err != nil {
			return nil, err
		}
		body, err := c.convertStmtList(file, s.While.Body)
		if err != nil {
			return nil, err
		}
		st := &ast.WhileStmt{Cond: cond, Body: body}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.DoWhile != nil:
		body, err := c.convertStmtList(file, s.DoWhile.Body)
		if err != nil {
			return nil, err
		}
		cond, err := c.convertExpr(file, s.DoWhile.Cond)
		if err != nil {
			return nil, err
		}
		st := &ast.DoWhileStmt{Body: body, Cond: cond}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.If != nil:
		cond, err := c.convertExpr(file, s.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.convertStmtList(file, s.If.Then)
		if err != nil {
			return nil, err
		}
		var elseStmt ast.Stmt
		if s.If.Else != nil {
			elseStmt, err = c.convertStmtList(file, s.If.Else)
			if err != nil {
				return nil, err
			}
		}
		st := &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt}
		st.Pos, st.EndPos = pos, end
		return st, nil
	case s.Scope != nil:
		c.pushScope(nil)
		st, err := c.convertBlock(file, s.Scope)
		c.popScope()
		return st, err
	case s.Assign != nil:
		return c.convertAssignLike(file, s.Assign)
	default:
		return nil, errors.NewParseError("empty statement", pos)
	}
}

func (c *converter) convertStmtList(file string, stmts []*Stmt) (ast.Stmt, error) {
	var out []ast.Stmt
	for _, s := range stmts {
		st, err := c.convertStmt(file, s)
		if err != nil {
			return nil, err
		}
		if st != nil {
			out = append(out, st)
		}
	}
	return ast.Seq(out...), nil
}

func cmd(pos, end ast.Position, c ast.Command) ast.Stmt {
	st := &ast.CmdStmt{Cmd: c}
	st.Pos, st.EndPos = pos, end
	return st
}

// convertAssignLike disambiguates the one surface production that covers
// seven distinct commands by inspecting the shapes the grammar actually
// produced: a bare "malloc", a CAS tuple, a call suffix, or else a list of
// plain expressions matched one-for-one against Lhs by whether each target
// names a field (-> memory read/write) or a plain local (-> assign/par-assign).
func (c *converter) convertAssignLike(file string, s *AssignLikeStmt) (ast.Stmt, error) {
	pos, end := posOf(file, s.Pos), posOf(file, s.EndPos)

	lhsVars := make([]*ast.VarDecl, 0, len(s.Lhs))
	lhsDerefs := make([]*ast.DerefExpr, 0, len(s.Lhs))
	allPlain, allDeref := true, len(s.Lhs) > 0
	for _, l := range s.Lhs {
		if l.Field == nil {
			allDeref = false
			d, err := c.lookup(l.Name, file, l.Pos)
			if err != nil {
				return nil, err
			}
			lhsVars = append(lhsVars, d)
		} else {
			allPlain = false
			base, err := c.lookup(l.Name, file, l.Pos)
			if err != nil {
				return nil, err
			}
			ft, _ := base.Type.FieldType(*l.Field)
			lhsDerefs = append(lhsDerefs, &ast.DerefExpr{Target: &ast.VarExpr{Decl: base}, Field: *l.Field, Type: ft})
		}
	}

	switch {
	case s.Rhs.Malloc:
		if len(lhsVars) != 1 {
			return nil, errors.NewParseError("malloc requires exactly one plain-variable target", pos)
		}
		return cmd(pos, end, &ast.MallocCmd{Lhs: lhsVars[0]}), nil

	case s.Rhs.Cas != nil:
		dst := make([]*ast.DerefExpr, len(s.Rhs.Cas.Dst))
		for i, dt := range s.Rhs.Cas.Dst {
			base, err := c.lookup(dt.Base, file, dt.Pos)
			if err != nil {
				return nil, err
			}
			ft, _ := base.Type.FieldType(dt.Field)
			dst[i] = &ast.DerefExpr{Target: &ast.VarExpr{Decl: base}, Field: dt.Field, Type: ft}
		}
		cmp, err := c.convertExprList(file, s.Rhs.Cas.Cmp)
		if err != nil {
			return nil, err
		}
		src, err := c.convertExprList(file, s.Rhs.Cas.Src)
		if err != nil {
			return nil, err
		}
		var result *ast.VarDecl
		if len(lhsVars) == 1 {
			result = lhsVars[0]
		}
		return cmd(pos, end, &ast.CASCmd{Dst: dst, Cmp: cmp, Src: src, Result: result}), nil

	case s.Rhs.Call != nil:
		args, err := c.convertExprList(file, s.Rhs.Call.Args)
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.MacroCallCmd{Name: s.Rhs.Call.Name, Args: args, Results: lhsVars}), nil

	case allDeref && len(lhsDerefs) == len(s.Rhs.Exprs):
		rhs, err := c.convertExprList(file, s.Rhs.Exprs)
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.MemWriteCmd{Lhs: lhsDerefs, Rhs: rhs}), nil

	case allPlain && len(s.Rhs.Exprs) == 1 && isAllDeref(s.Rhs.Exprs[0]):
		// a single deref expression read into one or more locals, e.g.
		// x = p.next; or x, y = p.next, p.val (handled by the len>1 branch
		// below); this arm only covers the single-target read.
		d, err := c.convertDerefExpr(file, s.Rhs.Exprs[0])
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.MemReadCmd{Lhs: lhsVars, Rhs: []*ast.DerefExpr{d}}), nil

	case allPlain && len(s.Rhs.Exprs) > 1 && allAreDeref(s.Rhs.Exprs):
		derefs := make([]*ast.DerefExpr, len(s.Rhs.Exprs))
		for i, e := range s.Rhs.Exprs {
			d, err := c.convertDerefExpr(file, e)
			if err != nil {
				return nil, err
			}
			derefs[i] = d
		}
		return cmd(pos, end, &ast.MemReadCmd{Lhs: lhsVars, Rhs: derefs}), nil

	case allPlain && len(lhsVars) == 1 && len(s.Rhs.Exprs) == 1:
		rhs, err := c.convertExpr(file, s.Rhs.Exprs[0])
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.AssignCmd{Lhs: lhsVars[0], Rhs: rhs}), nil

	case allPlain:
		rhs, err := c.convertExprList(file, s.Rhs.Exprs)
		if err != nil {
			return nil, err
		}
		return cmd(pos, end, &ast.ParAssignCmd{Lhs: lhsVars, Rhs: rhs}), nil

	default:
		return nil, errors.NewParseError("unrecognized assignment form", pos)
	}
}

// isAllDeref/allAreDeref report whether the parsed expression is (or every
// expression in a list is) a bare field-access chain with no other
// operators, i.e. eligible to be read as a MemReadCmd source.
func isAllDeref(e *Expr) bool {
	return fieldChainOf(e) != nil
}

func allAreDeref(es []*Expr) bool {
	for _, e := range es {
		if !isAllDeref(e) {
			return false
		}
	}
	return true
}

// fieldChainOf returns the base identifier and non-empty field chain of a
// bare postfix expression like `p.next`, or nil if e is anything else
// (a literal, a binary/unary expression, a bare identifier with no field).
func fieldChainOf(e *Expr) *PostfixExpr {
	if e == nil || len(e.Ops) != 0 {
		return nil
	}
	a := e.Left
	if a == nil || len(a.Ops) != 0 {
		return nil
	}
	cmp := a.Left
	if cmp == nil || cmp.Op != nil {
		return nil
	}
	u := cmp.Left
	if u == nil || u.Not {
		return nil
	}
	pf := u.Value
	if pf == nil || len(pf.Fields) == 0 || pf.Primary.Ident == nil {
		return nil
	}
	return pf
}

func (c *converter) convertDerefExpr(file string, e *Expr) (*ast.DerefExpr, error) {
	pf := fieldChainOf(e)
	if pf == nil {
		return nil, errors.NewParseError("expected a field access expression", posOf(file, e.Pos))
	}
	base, err := c.lookup(*pf.Primary.Ident, file, pf.Pos)
	if err != nil {
		return nil, err
	}
	var target ast.Expr = &ast.VarExpr{Decl: base}
	curType := base.Type
	var field string
	for _, field = range pf.Fields {
		ft, _ := curType.FieldType(field)
		target = &ast.DerefExpr{Target: target, Field: field, Type: ft}
		if ft != nil {
			curType = ft
		}
	}
	return target.(*ast.DerefExpr), nil
}

func (c *converter) convertExprList(file string, es []*Expr) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		v, err := c.convertExpr(file, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *converter) convertExpr(file string, e *Expr) (ast.Expr, error) {
	left, err := c.convertAnd(file, e.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range e.Ops {
		right, err := c.convertAnd(file, op.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (c *converter) convertAnd(file string, e *AndExpr) (ast.Expr, error) {
	left, err := c.convertCmp(file, e.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range e.Ops {
		right, err := c.convertCmp(file, op.Right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var cmpOps = map[string]ast.BinOp{
	"==": ast.OpEq, "!=": ast.OpNeq, "<": ast.OpLt, "<=": ast.OpLeq, ">": ast.OpGt, ">=": ast.OpGeq,
}

func (c *converter) convertCmp(file string, e *CmpExpr) (ast.Expr, error) {
	left, err := c.convertUnary(file, e.Left)
	if err != nil {
		return nil, err
	}
	if e.Rel == nil {
		return left, nil
	}
	right, err := c.convertUnary(file, e.Rel.Right)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Op: cmpOps[e.Rel.Op], Left: left, Right: right}, nil
}

func (c *converter) convertUnary(file string, e *UnaryExpr) (ast.Expr, error) {
	v, err := c.convertPostfix(file, e.Value)
	if err != nil {
		return nil, err
	}
	if e.Not {
		return &ast.NegExpr{Operand: v}, nil
	}
	return v, nil
}

func (c *converter) convertPostfix(file string, e *PostfixExpr) (ast.Expr, error) {
	primary, err := c.convertPrimary(file, e.Primary)
	if err != nil {
		return nil, err
	}
	if len(e.Fields) == 0 {
		return primary, nil
	}
	decl, ok := baseDeclOf(primary)
	if !ok {
		return nil, errors.NewParseError("field access is only valid on a variable", posOf(file, e.Pos))
	}
	curType := decl.Type
	var target ast.Expr = primary
	for _, f := range e.Fields {
		ft, _ := curType.FieldType(f)
		target = &ast.DerefExpr{Target: target, Field: f, Type: ft}
		if ft != nil {
			curType = ft
		}
	}
	return target, nil
}

func baseDeclOf(e ast.Expr) (*ast.VarDecl, bool) {
	if v, ok := e.(*ast.VarExpr); ok {
		return v.Decl, true
	}
	return nil, false
}

func (c *converter) convertPrimary(file string, e *PrimaryExpr) (ast.Expr, error) {
	switch {
	case e.Bool != nil:
		return &ast.BoolExpr{Value: *e.Bool == "true"}, nil
	case e.Null:
		return &ast.NullExpr{}, nil
	case e.Min:
		return &ast.MinExpr{}, nil
	case e.Max:
		return &ast.MaxExpr{}, nil
	case e.Ident != nil:
		d, err := c.lookup(*e.Ident, file, e.Pos)
		if err != nil {
			return nil, err
		}
		return &ast.VarExpr{Decl: d}, nil
	case e.Paren != nil:
		return c.convertExpr(file, e.Paren)
	default:
		return nil, errors.NewParseError("empty expression", posOf(file, e.Pos))
	}
}
