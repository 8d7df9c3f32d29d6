package ast

import "strings"

// Command is a CoLa-light primitive action: the leaves the normalizer's
// desugaring passes reduce every surface construct down to.
type Command interface {
	Node
	isCommand()
}

type SkipCmd struct{ base }
type BreakCmd struct{ base }
type ContinueCmd struct{ base }

type AssumeCmd struct {
	base
	Cond Expr
}

type AssertCmd struct {
	base
	Cond Expr
}

// ReturnCmd returns Value, which is nil for a bare `return;` in a void function.
type ReturnCmd struct {
	base
	Value Expr
}

// MallocCmd allocates a fresh heap cell and binds it to Lhs, which must be a
// non-shared (thread-local) variable.
type MallocCmd struct {
	base
	Lhs *VarDecl
}

// AssignCmd is a scalar local-to-local (or local-to-expression) assignment
// that never touches the heap: `x = e`.
type AssignCmd struct {
	base
	Lhs *VarDecl
	Rhs Expr
}

// ParAssignCmd evaluates every Rhs_i and binds every Lhs_i as a single atomic
// tuple step: `x1, x2 = e1, e2`.
type ParAssignCmd struct {
	base
	Lhs []*VarDecl
	Rhs []Expr
}

// MemReadCmd reads one or more heap fields into local variables:
// `x1, ..., xn = e1.f1, ..., en.fn`.
type MemReadCmd struct {
	base
	Lhs []*VarDecl
	Rhs []*DerefExpr
}

// MemWriteCmd writes one or more local values into heap fields:
// `e1.f1, ..., en.fn = v1, ..., vn`.
type MemWriteCmd struct {
	base
	Lhs []*DerefExpr
	Rhs []Expr
}

// CASCmd is the surface compare-and-swap primitive the remove_cas pass
// desugars into an atomic choice block. Dst/Cmp/Src are parallel tuples of
// equal length; Result, if non-nil, receives the Boolean outcome.
type CASCmd struct {
	base
	Dst    []*DerefExpr
	Cmp    []Expr
	Src    []Expr
	Result *VarDecl
}

// MacroCallCmd invokes a macro function by name; the post-image engine
// inlines the callee's body at the call site during symbolic execution.
type MacroCallCmd struct {
	base
	Name    string
	Args    []Expr
	Results []*VarDecl
}

func (*SkipCmd) isCommand()      {}
func (*BreakCmd) isCommand()     {}
func (*ContinueCmd) isCommand()  {}
func (*AssumeCmd) isCommand()    {}
func (*AssertCmd) isCommand()    {}
func (*ReturnCmd) isCommand()    {}
func (*MallocCmd) isCommand()    {}
func (*AssignCmd) isCommand()    {}
func (*ParAssignCmd) isCommand() {}
func (*MemReadCmd) isCommand()   {}
func (*MemWriteCmd) isCommand()  {}
func (*CASCmd) isCommand()       {}
func (*MacroCallCmd) isCommand() {}

func (*SkipCmd) NodeType() NodeType      { return SKIP_CMD }
func (*BreakCmd) NodeType() NodeType     { return BREAK_CMD }
func (*ContinueCmd) NodeType() NodeType  { return CONTINUE_CMD }
func (*AssumeCmd) NodeType() NodeType    { return ASSUME_CMD }
func (*AssertCmd) NodeType() NodeType    { return ASSERT_CMD }
func (*ReturnCmd) NodeType() NodeType    { return RETURN_CMD }
func (*MallocCmd) NodeType() NodeType    { return MALLOC_CMD }
func (*AssignCmd) NodeType() NodeType    { return ASSIGN_CMD }
func (*ParAssignCmd) NodeType() NodeType { return PAR_ASSIGN_CMD }
func (*MemReadCmd) NodeType() NodeType   { return MEM_READ_CMD }
func (*MemWriteCmd) NodeType() NodeType  { return MEM_WRITE_CMD }
func (*CASCmd) NodeType() NodeType       { return CAS_CMD }
func (*MacroCallCmd) NodeType() NodeType { return MACRO_CALL_CMD }

func (*SkipCmd) String() string     { return "skip" }
func (*BreakCmd) String() string    { return "break" }
func (*ContinueCmd) String() string { return "continue" }
func (c *AssumeCmd) String() string { return "assume(" + c.Cond.String() + ")" }
func (c *AssertCmd) String() string { return "assert(" + c.Cond.String() + ")" }
func (c *ReturnCmd) String() string {
	if c.Value == nil {
		return "return"
	}
	return "return " + c.Value.String()
}
func (c *MallocCmd) String() string { return c.Lhs.Name + " = malloc" }
func (c *AssignCmd) String() string { return c.Lhs.Name + " = " + c.Rhs.String() }
func (c *ParAssignCmd) String() string {
	return declNames(c.Lhs) + " = " + exprStrings(c.Rhs)
}
func (c *MemReadCmd) String() string {
	return declNames(c.Lhs) + " = " + derefStrings(c.Rhs)
}
func (c *MemWriteCmd) String() string {
	return derefStrings(c.Lhs) + " = " + exprStrings(c.Rhs)
}
func (c *CASCmd) String() string {
	s := "CAS(<" + derefStrings(c.Dst) + ">, <" + exprStrings(c.Cmp) + ">, <" + exprStrings(c.Src) + ">)"
	if c.Result != nil {
		return c.Result.Name + " = " + s
	}
	return s
}
func (c *MacroCallCmd) String() string {
	s := c.Name + "(" + exprStrings(c.Args) + ")"
	if len(c.Results) > 0 {
		return declNames(c.Results) + " = " + s
	}
	return s
}

func declNames(decls []*VarDecl) string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}

func exprStrings(es []Expr) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}

func derefStrings(es []*DerefExpr) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}
