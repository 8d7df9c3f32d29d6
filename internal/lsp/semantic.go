package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"colaheal/grammar"
)

// SemanticToken is a single LSP semantic token entry. Line and StartChar are
// 0-based; TokenType/TokenModifiers index into SemanticTokenTypes/
// SemanticTokenModifiers.
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens walks the raw (unconverted) parse tree rather than
// internal/ast: the surface grammar carries a Pos/EndPos on every rule, while
// ast.Type has none, and highlighting should keep working on a program that
// fails to convert (an undeclared type mid-edit, say).
func collectSemanticTokens(program *grammar.Program) []SemanticToken {
	var tokens []SemanticToken
	if program == nil {
		return tokens
	}
	for _, item := range program.Items {
		switch {
		case item.Struct != nil:
			tokens = append(tokens, walkStruct(item.Struct)...)
		case item.Shared != nil:
			tokens = append(tokens, walkShared(item.Shared)...)
		case item.Func != nil:
			tokens = append(tokens, walkFunc(item.Func)...)
		case item.Init != nil:
			tokens = append(tokens, walkBlock(item.Init.Body)...)
		case item.Comment != nil:
			tokens = append(tokens, makeToken(item.Comment.Pos, item.Comment.EndPos, "comment", 0))
		}
	}
	return tokens
}

func walkStruct(s *grammar.StructDecl) []SemanticToken {
	var tokens []SemanticToken
	tokens = append(tokens, makeToken(afterKeyword(s.Pos, "struct"), s.Name, "struct", declDecl))
	for _, f := range s.Fields {
		tokens = append(tokens, makeToken(f.Pos, f.Name, "property", declDecl))
		tokens = append(tokens, makeToken(afterField(f.Pos, f.Name), f.Type, "type", 0))
	}
	return tokens
}

func walkShared(s *grammar.SharedDecl) []SemanticToken {
	pos := afterKeyword(s.Pos, "shared")
	tokens := []SemanticToken{
		makeToken(pos, s.Name, "variable", declDecl|declStatic),
		makeToken(afterField(pos, s.Name), s.Type, "type", 0),
	}
	return tokens
}

func walkFunc(f *grammar.FuncDecl) []SemanticToken {
	var tokens []SemanticToken
	// f.Kind ("macro"/"interface") carries no distinct position in the
	// surface grammar (it's a captured literal, not a sub-rule); skipped.
	namePos := afterKeyword(f.Pos, f.Kind+" fun")
	tokens = append(tokens, makeToken(namePos, f.Name, "function", declDecl))
	for _, p := range f.Params {
		tokens = append(tokens, makeToken(p.Pos, p.Name, "parameter", declDecl))
		tokens = append(tokens, makeToken(afterField(p.Pos, p.Name), p.Type, "type", 0))
	}
	if f.Return != nil {
		tokens = append(tokens, makeToken(f.Body.Pos, *f.Return, "type", 0))
	}
	tokens = append(tokens, walkBlock(f.Body)...)
	return tokens
}

func walkBlock(b *grammar.Block) []SemanticToken {
	var tokens []SemanticToken
	if b == nil {
		return tokens
	}
	for _, d := range b.Decls {
		pos := afterKeyword(d.Pos, "var")
		tokens = append(tokens, makeToken(pos, d.Name, "variable", declDecl))
		tokens = append(tokens, makeToken(afterField(pos, d.Name), d.Type, "type", 0))
	}
	for _, s := range b.Stmts {
		tokens = append(tokens, walkStmt(s)...)
	}
	return tokens
}

func walkStmt(s *grammar.Stmt) []SemanticToken {
	var tokens []SemanticToken
	switch {
	case s.Comment != nil:
		tokens = append(tokens, makeToken(s.Comment.Pos, s.Comment.EndPos, "comment", 0))
	case s.Assume != nil:
		tokens = append(tokens, walkExpr(s.Assume.Cond)...)
	case s.Assert != nil:
		tokens = append(tokens, walkExpr(s.Assert.Cond)...)
	case s.Return != nil && s.Return.Value != nil:
		tokens = append(tokens, walkExpr(s.Return.Value)...)
	case s.Atomic != nil:
		for _, inner := range s.Atomic.Body {
			tokens = append(tokens, walkStmt(inner)...)
		}
	case s.Choice != nil:
		for _, branch := range s.Choice.Branches {
			for _, inner := range branch.Stmts {
				tokens = append(tokens, walkStmt(inner)...)
			}
		}
	case s.Loop != nil:
		for _, inner := range s.Loop.Body {
			tokens = append(tokens, walkStmt(inner)...)
		}
	case s.While != nil:
		tokens = append(tokens, walkExpr(s.While.Cond)...)
		for _, inner := range s.While.Body {
			tokens = append(tokens, walkStmt(inner)...)
		}
	case s.DoWhile != nil:
		for _, inner := range s.DoWhile.Body {
			tokens = append(tokens, walkStmt(inner)...)
		}
		tokens = append(tokens, walkExpr(s.DoWhile.Cond)...)
	case s.If != nil:
		tokens = append(tokens, walkExpr(s.If.Cond)...)
		for _, inner := range s.If.Then {
			tokens = append(tokens, walkStmt(inner)...)
		}
		for _, inner := range s.If.Else {
			tokens = append(tokens, walkStmt(inner)...)
		}
	case s.Scope != nil:
		tokens = append(tokens, walkBlock(s.Scope)...)
	case s.Assign != nil:
		tokens = append(tokens, walkAssignLike(s.Assign)...)
	}
	return tokens
}

func walkAssignLike(a *grammar.AssignLikeStmt) []SemanticToken {
	var tokens []SemanticToken
	for _, lv := range a.Lhs {
		tokens = append(tokens, makeToken(lv.Pos, lv.Name, "variable", 0))
		if lv.Field != nil {
			tokens = append(tokens, makeToken(afterField(lv.Pos, lv.Name), *lv.Field, "property", 0))
		}
	}
	rhs := a.Rhs
	switch {
	case rhs.Cas != nil:
		for _, d := range rhs.Cas.Dst {
			tokens = append(tokens, makeToken(d.Pos, d.Base, "variable", 0))
			tokens = append(tokens, makeToken(afterField(d.Pos, d.Base), d.Field, "property", 0))
		}
		for _, e := range rhs.Cas.Cmp {
			tokens = append(tokens, walkExpr(e)...)
		}
		for _, e := range rhs.Cas.Src {
			tokens = append(tokens, walkExpr(e)...)
		}
	case rhs.Call != nil:
		tokens = append(tokens, makeToken(rhs.Call.Pos, rhs.Call.Name, "function", 0))
		for _, e := range rhs.Call.Args {
			tokens = append(tokens, walkExpr(e)...)
		}
	default:
		for _, e := range rhs.Exprs {
			tokens = append(tokens, walkExpr(e)...)
		}
	}
	return tokens
}

func walkExpr(e *grammar.Expr) []SemanticToken {
	if e == nil {
		return nil
	}
	var tokens []SemanticToken
	tokens = append(tokens, walkAnd(e.Left)...)
	for _, op := range e.Ops {
		tokens = append(tokens, walkAnd(op.Right)...)
	}
	return tokens
}

func walkAnd(e *grammar.AndExpr) []SemanticToken {
	if e == nil {
		return nil
	}
	var tokens []SemanticToken
	tokens = append(tokens, walkCmp(e.Left)...)
	for _, op := range e.Ops {
		tokens = append(tokens, walkCmp(op.Right)...)
	}
	return tokens
}

func walkCmp(e *grammar.CmpExpr) []SemanticToken {
	if e == nil {
		return nil
	}
	tokens := walkUnary(e.Left)
	if e.Rel != nil {
		tokens = append(tokens, walkUnary(e.Rel.Right)...)
	}
	return tokens
}

func walkUnary(e *grammar.UnaryExpr) []SemanticToken {
	if e == nil || e.Value == nil {
		return nil
	}
	return walkPostfix(e.Value)
}

func walkPostfix(e *grammar.PostfixExpr) []SemanticToken {
	var tokens []SemanticToken
	p := e.Primary
	switch {
	case p.Ident != nil:
		pos := p.Pos
		tokens = append(tokens, makeToken(pos, *p.Ident, "variable", 0))
		for _, field := range e.Fields {
			pos = afterField(pos, field)
			tokens = append(tokens, makeToken(pos, field, "property", 0))
		}
	case p.Paren != nil:
		tokens = append(tokens, walkExpr(p.Paren)...)
	case p.Bool != nil:
		tokens = append(tokens, makeToken(p.Pos, *p.Bool, "keyword", 0))
	case p.Null || p.Min || p.Max:
		tokens = append(tokens, makeToken(p.Pos, p.Pos, "keyword", 0))
	}
	return tokens
}

const (
	declDecl   = 1 << 0
	declStatic = 1 << 3
)

// makeToken builds a SemanticToken starting at pos. When value is a
// lexer.Position the token spans pos..value; when it is a string the token
// is that string's length, with pos marking its start on the same line.
func makeToken(pos lexer.Position, value any, tokenType string, modifiers int) SemanticToken {
	var length int
	switch v := value.(type) {
	case string:
		length = len(v)
	case lexer.Position:
		length = v.Offset - pos.Offset
	}
	if length <= 0 {
		length = 1
	}
	return SemanticToken{
		Line:           uint32(pos.Line - 1),
		StartChar:      uint32(pos.Column - 1),
		Length:         uint32(length),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: modifiers,
	}
}

// afterKeyword advances pos past a leading keyword and a single separating
// space. The surface grammar doesn't track per-token positions for literal
// keywords, so this assumes conventional single-space formatting.
func afterKeyword(pos lexer.Position, keyword string) lexer.Position {
	advance := len(keyword) + 1
	pos.Offset += advance
	pos.Column += advance
	return pos
}

// afterField advances pos past a just-emitted identifier and the "." that
// follows it, for building a token position for the next field in a chain.
func afterField(pos lexer.Position, prevValue string) lexer.Position {
	advance := len(prevValue) + 1
	pos.Offset += advance
	pos.Column += advance
	return pos
}

func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
