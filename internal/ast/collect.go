package ast

// VarRefs returns every VarDecl referenced (read) by e, in encounter order,
// with duplicates included — callers that need a set should dedupe.
func VarRefs(e Expr) []*VarDecl {
	var out []*VarDecl
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case *VarExpr:
			out = append(out, x.Decl)
		case *DerefExpr:
			walk(x.Target)
		case *NegExpr:
			walk(x.Operand)
		case *BinaryExpr:
			walk(x.Left)
			walk(x.Right)
		case *BoolExpr, *NullExpr, *MinExpr, *MaxExpr, *SymbolicExpr:
			// no sub-expressions
		}
	}
	walk(e)
	return out
}

// StmtVarRefs returns every VarDecl read or written anywhere within s,
// including declarations introduced by nested scopes.
func StmtVarRefs(s Stmt) []*VarDecl {
	var out []*VarDecl
	VisitStmt(s, func(cur Stmt) {
		cmdStmt, ok := cur.(*CmdStmt)
		if !ok {
			return
		}
		switch c := cmdStmt.Cmd.(type) {
		case *AssumeCmd:
			out = append(out, VarRefs(c.Cond)...)
		case *AssertCmd:
			out = append(out, VarRefs(c.Cond)...)
		case *ReturnCmd:
			if c.Value != nil {
				out = append(out, VarRefs(c.Value)...)
			}
		case *MallocCmd:
			out = append(out, c.Lhs)
		case *AssignCmd:
			out = append(out, c.Lhs)
			out = append(out, VarRefs(c.Rhs)...)
		case *ParAssignCmd:
			out = append(out, c.Lhs...)
			for _, e := range c.Rhs {
				out = append(out, VarRefs(e)...)
			}
		case *MemReadCmd:
			out = append(out, c.Lhs...)
			for _, e := range c.Rhs {
				out = append(out, VarRefs(e)...)
			}
		case *MemWriteCmd:
			for _, e := range c.Lhs {
				out = append(out, VarRefs(e)...)
			}
			for _, e := range c.Rhs {
				out = append(out, VarRefs(e)...)
			}
		case *CASCmd:
			for _, e := range c.Dst {
				out = append(out, VarRefs(e)...)
			}
			for _, e := range c.Cmp {
				out = append(out, VarRefs(e)...)
			}
			for _, e := range c.Src {
				out = append(out, VarRefs(e)...)
			}
			if c.Result != nil {
				out = append(out, c.Result)
			}
		case *MacroCallCmd:
			for _, e := range c.Args {
				out = append(out, VarRefs(e)...)
			}
			out = append(out, c.Results...)
		}
	})
	return out
}

// VisitStmt calls visit on s and every statement nested inside it, pre-order.
func VisitStmt(s Stmt, visit func(Stmt)) {
	if s == nil {
		return
	}
	visit(s)
	switch x := s.(type) {
	case *SeqStmt:
		VisitStmt(x.First, visit)
		VisitStmt(x.Second, visit)
	case *ScopeStmt:
		VisitStmt(x.Body, visit)
	case *AtomicStmt:
		VisitStmt(x.Body, visit)
	case *ChoiceStmt:
		for _, b := range x.Branches {
			VisitStmt(b, visit)
		}
	case *LoopStmt:
		VisitStmt(x.Body, visit)
	case *WhileStmt:
		VisitStmt(x.Body, visit)
	case *DoWhileStmt:
		VisitStmt(x.Body, visit)
	case *IfStmt:
		VisitStmt(x.Then, visit)
		VisitStmt(x.Else, visit)
	}
}
