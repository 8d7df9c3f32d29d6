package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// This file is CoLa-light's surface grammar. Every rule attaches a
// Pos/EndPos pair (participle populates these automatically from fields of
// type lexer.Position) so a parsed node can be converted into an
// internal/ast node carrying the same source location.

type Comment struct {
	Pos, EndPos lexer.Position
	Text        string `@Comment`
}

// Program is the whole parsed `.cola` file: struct declarations, shared
// (global) variable declarations, macro/interface function declarations,
// and the single __init__ block, in any order.
type Program struct {
	Pos, EndPos lexer.Position
	Items       []*TopLevelItem `@@*`
}

type TopLevelItem struct {
	Pos, EndPos lexer.Position
	Comment     *Comment    `  @@`
	Struct      *StructDecl `| @@`
	Shared      *SharedDecl `| @@`
	Func        *FuncDecl   `| @@`
	Init        *InitDecl   `| @@`
}

// StructDecl names a heap node layout: `struct Node { next: Node, val: data, }`.
type StructDecl struct {
	Pos, EndPos lexer.Position
	Name        string       `"struct" @Ident "{"`
	Fields      []*FieldDecl `@@* "}"`
}

type FieldDecl struct {
	Pos, EndPos lexer.Position
	Name        string `@Ident ":"`
	Type        string `@Ident ","`
}

// SharedDecl declares a global pointer variable every thread can see:
// `shared head: Node;`.
type SharedDecl struct {
	Pos, EndPos lexer.Position
	Name        string `"shared" @Ident ":"`
	Type        string `@Ident ";"`
}

// FuncDecl is a macro or interface function: `interface fun contains(k:
// data): bool { ... }`. A macro is inlined at each call site by the solver; an interface
// function is checked for linearizability.
type FuncDecl struct {
	Pos, EndPos lexer.Position
	Kind        string        `@("macro" | "interface")`
	Name        string        `"fun" @Ident "("`
	Params      []*ParamDecl  `[ @@ { "," @@ } ] ")"`
	Return      *string       `[ ":" @Ident ]`
	Body        *Block        `@@`
}

type ParamDecl struct {
	Pos, EndPos lexer.Position
	Name        string `@Ident ":"`
	Type        string `@Ident`
}

// InitDecl is the program initializer, run once before any interface
// function may be called: `init { ... }`.
type InitDecl struct {
	Pos, EndPos lexer.Position
	Body        *Block `"init" @@`
}

// Block is a brace-delimited sequence of local declarations followed by
// statements: `{ var x: data; skip; }`. Functions bodies, init, and nested
// scope statements all share this shape.
type Block struct {
	Pos, EndPos lexer.Position
	Decls       []*LocalDecl `"{" @@*`
	Stmts       []*Stmt      `@@* "}"`
}

type LocalDecl struct {
	Pos, EndPos lexer.Position
	Name        string `"var" @Ident ":"`
	Type        string `@Ident ";"`
}

// Stmt is any CoLa-light surface statement.
type Stmt struct {
	Pos, EndPos lexer.Position
	Comment     *Comment        `  @@`
	Skip        *SkipStmt       `| @@`
	Break       *BreakStmt      `| @@`
	Continue    *ContinueStmt   `| @@`
	Assume      *AssumeStmt     `| @@`
	Assert      *AssertStmt     `| @@`
	Return      *ReturnStmt     `| @@`
	Atomic      *AtomicStmt     `| @@`
	Choice      *ChoiceStmt     `| @@`
	Loop        *LoopStmt       `| @@`
	While       *WhileStmt      `| @@`
	DoWhile     *DoWhileStmt    `| @@`
	If          *IfStmt         `| @@`
	Scope       *Block          `| @@`
	Assign      *AssignLikeStmt `| @@`
}

type SkipStmt struct {
	Pos, EndPos lexer.Position
	Kw          string `"skip" ";"`
}

type BreakStmt struct {
	Pos, EndPos lexer.Position
	Kw          string `"break" ";"`
}

type ContinueStmt struct {
	Pos, EndPos lexer.Position
	Kw          string `"continue" ";"`
}

type AssumeStmt struct {
	Pos, EndPos lexer.Position
	Cond        *Expr `"assume" "(" @@ ")" ";"`
}

type AssertStmt struct {
	Pos, EndPos lexer.Position
	Cond        *Expr `"assert" "(" @@ ")" ";"`
}

type ReturnStmt struct {
	Pos, EndPos lexer.Position
	Value       *Expr `"return" [ @@ ] ";"`
}

type AtomicStmt struct {
	Pos, EndPos lexer.Position
	Body        []*Stmt `"atomic" "{" @@* "}"`
}

// ChoiceStmt nondeterministically runs exactly one branch:
// `choice { skip; } | { break; }`.
type ChoiceStmt struct {
	Pos, EndPos lexer.Position
	Branches    []*ChoiceBranch `"choice" @@ { "|" @@ }`
}

type ChoiceBranch struct {
	Pos, EndPos lexer.Position
	Stmts       []*Stmt `"{" @@* "}"`
}

type LoopStmt struct {
	Pos, EndPos lexer.Position
	Body        []*Stmt `"loop" "{" @@* "}"`
}

// WhileStmt/DoWhileStmt/IfStmt are surface sugar; remove_conditional_loops
// and remove_conditional_branching desugar them before the solver ever sees
// a function body.
type WhileStmt struct {
	Pos, EndPos lexer.Position
	Cond        *Expr   `"while" "(" @@ ")" "{"`
	Body        []*Stmt `@@* "}"`
}

type DoWhileStmt struct {
	Pos, EndPos lexer.Position
	Body        []*Stmt `"do" "{" @@* "}"`
	Cond        *Expr   `"while" "(" @@ ")" ";"`
}

type IfStmt struct {
	Pos, EndPos lexer.Position
	Cond        *Expr   `"if" "(" @@ ")" "{"`
	Then        []*Stmt `@@* "}"`
	Else        []*Stmt `[ "else" "{" @@* "}" ]`
}

// LValue is either a plain variable target (`x`) or a heap field target
// (`x.field`); which commands accept which shape is a conversion-time check,
// not a grammar-time one, since both look identical up to the optional
// trailing `.field`.
type LValue struct {
	Pos, EndPos lexer.Position
	Name        string  `@Ident`
	Field       *string `[ "." @Ident ]`
}

// AssignLikeStmt covers every CoLa-light command whose surface form is
// `lhs, lhs, ... = rhs, rhs, ...;`: malloc, plain/parallel assignment,
// memory read, memory write, compare-and-swap, and macro call. Lhs is empty
// for a discarded macro-call or CAS result.
type AssignLikeStmt struct {
	Pos, EndPos lexer.Position
	Lhs         []*LValue  `[ @@ { "," @@ } "=" ]`
	Rhs         *AssignRhs `@@ ";"`
}

// AssignRhs is AssignLikeStmt's right-hand side, factored into its own rule
// so the malloc/CAS/call/expression-list alternation stays a single
// self-contained field rather than spanning several fields of the parent.
type AssignRhs struct {
	Pos, EndPos lexer.Position
	Malloc      bool     `  @"malloc"`
	Cas         *CasRhs  `| @@`
	Call        *CallRhs `| @@`
	Exprs       []*Expr  `| @@ { "," @@ }`
}

// CasRhs is CoLa-light's tuple compare-and-swap surface form:
// `CAS(<p.next>, <cmp>, <src>)`.
type CasRhs struct {
	Pos, EndPos lexer.Position
	Dst         []*DerefTarget `"CAS" "(" "<" @@ { "," @@ } ">" ","`
	Cmp         []*Expr        `"<" @@ { "," @@ } ">" ","`
	Src         []*Expr        `"<" @@ { "," @@ } ">" ")"`
}

type DerefTarget struct {
	Pos, EndPos lexer.Position
	Base        string `@Ident`
	Field       string `"." @Ident`
}

type CallRhs struct {
	Pos, EndPos lexer.Position
	Name        string  `@Ident "("`
	Args        []*Expr `[ @@ { "," @@ } ] ")"`
}

// Expr is the usual precedence cascade: logical or, logical and, a single
// optional comparison, unary not, postfix field access, primary.
type Expr struct {
	Pos, EndPos lexer.Position
	Left        *AndExpr `@@`
	Ops         []*OrOp  `{ @@ }`
}

type OrOp struct {
	Pos, EndPos lexer.Position
	Right       *AndExpr `"||" @@`
}

type AndExpr struct {
	Pos, EndPos lexer.Position
	Left        *CmpExpr `@@`
	Ops         []*AndOp `{ @@ }`
}

type AndOp struct {
	Pos, EndPos lexer.Position
	Right       *CmpExpr `"&&" @@`
}

type CmpExpr struct {
	Pos, EndPos lexer.Position
	Left        *UnaryExpr `@@`
	Rel         *Relation  `[ @@ ]`
}

// Relation is the optional `<relop> rhs` tail of a comparison, split into
// its own rule so the optional bracket in CmpExpr stays self-contained
// within a single field.
type Relation struct {
	Pos, EndPos lexer.Position
	Op          string     `@("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right       *UnaryExpr `@@`
}

type UnaryExpr struct {
	Pos, EndPos lexer.Position
	Not         bool         `[ @"!" ]`
	Value       *PostfixExpr `@@`
}

type PostfixExpr struct {
	Pos, EndPos lexer.Position
	Primary     *PrimaryExpr `@@`
	Fields      []string     `{ "." @Ident }`
}

type PrimaryExpr struct {
	Pos, EndPos lexer.Position
	Bool        *string `  @("true" | "false")`
	Null        bool    `| @"null"`
	Min         bool    `| @"MIN"`
	Max         bool    `| @"MAX"`
	Ident       *string `| @Ident`
	Paren       *Expr   `| "(" @@ ")"`
}
