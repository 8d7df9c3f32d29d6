package ast

import "strings"

// Stmt is any CoLa statement: a primitive command, or one of the structuring
// forms (sequence, scope, atomic, choice, loop, while/do-while, if-then-else).
// remove_conditional_branching/remove_conditional_loops/remove_cas eliminate
// While/DoWhile/If/the CAS command from a fully normalized program, leaving
// only CmdStmt, SeqStmt, ScopeStmt, AtomicStmt, ChoiceStmt, and LoopStmt.
type Stmt interface {
	Node
	isStmt()
}

// CmdStmt lifts a single Command to statement position.
type CmdStmt struct {
	base
	Cmd Command
}

// SeqStmt is ordinary sequential composition: First; Second.
type SeqStmt struct {
	base
	First, Second Stmt
}

// ScopeStmt introduces a block with its own local declarations; PostEnter
// conjoins a fresh EqualsToAxiom per declaration, PostLeave drops them.
type ScopeStmt struct {
	base
	Decls []*VarDecl
	Body  Stmt
}

// AtomicStmt executes Body as a single step for interference purposes: no
// other thread's heap effects are considered visible partway through it.
type AtomicStmt struct {
	base
	Body Stmt
}

// ChoiceStmt nondeterministically executes exactly one of Branches.
type ChoiceStmt struct {
	base
	Branches []Stmt
}

// LoopStmt repeats Body forever; termination (if any) comes from a `break`
// command reached inside Body, typically introduced by desugaring a While.
type LoopStmt struct {
	base
	Body Stmt
}

// WhileStmt is surface syntax; remove_conditional_loops desugars it away.
type WhileStmt struct {
	base
	Cond Expr
	Body Stmt
}

// DoWhileStmt is surface syntax; remove_conditional_loops desugars it away.
type DoWhileStmt struct {
	base
	Body Stmt
	Cond Expr
}

// IfStmt is surface syntax; remove_conditional_branching desugars it away.
type IfStmt struct {
	base
	Cond       Expr
	Then, Else Stmt
}

func (*CmdStmt) isStmt()     {}
func (*SeqStmt) isStmt()     {}
func (*ScopeStmt) isStmt()   {}
func (*AtomicStmt) isStmt()  {}
func (*ChoiceStmt) isStmt()  {}
func (*LoopStmt) isStmt()    {}
func (*WhileStmt) isStmt()   {}
func (*DoWhileStmt) isStmt() {}
func (*IfStmt) isStmt()      {}

func (*CmdStmt) NodeType() NodeType     { return CMD_STMT }
func (*SeqStmt) NodeType() NodeType     { return SEQ_STMT }
func (*ScopeStmt) NodeType() NodeType   { return SCOPE_STMT }
func (*AtomicStmt) NodeType() NodeType  { return ATOMIC_STMT }
func (*ChoiceStmt) NodeType() NodeType  { return CHOICE_STMT }
func (*LoopStmt) NodeType() NodeType    { return LOOP_STMT }
func (*WhileStmt) NodeType() NodeType   { return WHILE_STMT }
func (*DoWhileStmt) NodeType() NodeType { return DO_WHILE_STMT }
func (*IfStmt) NodeType() NodeType      { return IF_STMT }

func (s *CmdStmt) String() string { return s.Cmd.String() }
func (s *SeqStmt) String() string { return s.First.String() + ";\n" + s.Second.String() }
func (s *ScopeStmt) String() string {
	names := make([]string, len(s.Decls))
	for i, d := range s.Decls {
		names[i] = d.String()
	}
	header := ""
	if len(names) > 0 {
		header = strings.Join(names, "; ") + ";\n"
	}
	return "{\n" + header + indent(s.Body.String()) + "\n}"
}
func (s *AtomicStmt) String() string { return "@{\n" + indent(s.Body.String()) + "\n}" }
func (s *ChoiceStmt) String() string {
	parts := make([]string, len(s.Branches))
	for i, b := range s.Branches {
		parts[i] = indent(b.String())
	}
	return "choice {\n" + strings.Join(parts, "\n| ") + "\n}"
}
func (s *LoopStmt) String() string { return "loop {\n" + indent(s.Body.String()) + "\n}" }
func (s *WhileStmt) String() string {
	return "while (" + s.Cond.String() + ") {\n" + indent(s.Body.String()) + "\n}"
}
func (s *DoWhileStmt) String() string {
	return "do {\n" + indent(s.Body.String()) + "\n} while (" + s.Cond.String() + ")"
}
func (s *IfStmt) String() string {
	str := "if (" + s.Cond.String() + ") {\n" + indent(s.Then.String()) + "\n}"
	if s.Else != nil {
		str += " else {\n" + indent(s.Else.String()) + "\n}"
	}
	return str
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// Seq builds a right-leaning SeqStmt chain from a list of statements,
// dropping nil/skip entries from the chain is left to callers (normalization
// does this explicitly so empty-branch bookkeeping stays visible).
func Seq(stmts ...Stmt) Stmt {
	if len(stmts) == 0 {
		return &CmdStmt{Cmd: &SkipCmd{}}
	}
	result := stmts[len(stmts)-1]
	for i := len(stmts) - 2; i >= 0; i-- {
		result = &SeqStmt{First: stmts[i], Second: result}
	}
	return result
}
