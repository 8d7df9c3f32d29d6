package ast

import "strings"

// Function is a top-level declaration: an interface (externally callable,
// subject to linearizability checking), a macro (inlined by the solver at
// each call site),
// or the single __init__ function.
type Function struct {
	base
	Name    string
	Kind    FunctionKind
	Params  []*VarDecl
	Returns *Type
	Body    Stmt
}

func (*Function) NodeType() NodeType { return FUNCTION_NODE }

func (f *Function) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.String()
	}
	ret := ""
	if f.Returns != nil && f.Returns.Sort != SortVoid {
		ret = " : " + f.Returns.String()
	}
	body := "{}"
	if f.Body != nil {
		body = "{\n" + indent(f.Body.String()) + "\n}"
	}
	return f.Kind.String() + " " + f.Name + "(" + strings.Join(names, ", ") + ")" + ret + " " + body
}

// IsInterfaceFunction reports whether f is subject to linearizability checking.
func (f *Function) IsInterfaceFunction() bool { return f.Kind == FunctionInterface }
