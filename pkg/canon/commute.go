package canon

import (
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// mentionsCall reports whether s contains a Call anywhere in its
// sub-expressions. A Call's effects are unknowable to the canonicalizer,
// so its presence always defeats commuting.
func mentionsCall(s tree.Stmt) bool {
	found := false
	walkStmt(s, func(e tree.Expr) {
		if _, ok := e.(tree.Call); ok {
			found = true
		}
	})
	return found
}

// writesMemory reports whether s contains a Move with a Mem destination.
func writesMemory(s tree.Stmt) bool {
	switch s := s.(type) {
	case nil:
		return false
	case tree.Move:
		_, ok := s.Dst.(tree.Mem)
		return ok
	case tree.SeqStmt:
		return writesMemory(s.First) || writesMemory(s.Second)
	default:
		return false
	}
}

// mentionsMem reports whether e reads memory anywhere in its subtree.
func mentionsMem(e tree.Expr) bool {
	found := false
	walkExpr(e, func(e tree.Expr) {
		if _, ok := e.(tree.Mem); ok {
			found = true
		}
	})
	return found
}

// definedTemps collects every temp directly assigned by a Move(TempExpr,
// _) within s.
func definedTemps(s tree.Stmt) map[temp.Temp]bool {
	out := make(map[temp.Temp]bool)
	var visit func(tree.Stmt)
	visit = func(s tree.Stmt) {
		switch s := s.(type) {
		case nil:
		case tree.Move:
			if t, ok := s.Dst.(tree.TempExpr); ok {
				out[t.Temp] = true
			}
		case tree.SeqStmt:
			visit(s.First)
			visit(s.Second)
		}
	}
	visit(s)
	return out
}

// usedTemps collects every temp read anywhere within e.
func usedTemps(e tree.Expr) map[temp.Temp]bool {
	out := make(map[temp.Temp]bool)
	walkExpr(e, func(e tree.Expr) {
		if t, ok := e.(tree.TempExpr); ok {
			out[t.Temp] = true
		}
	})
	return out
}

// walkExpr calls visit on e and every expression nested within it.
func walkExpr(e tree.Expr, visit func(tree.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch e := e.(type) {
	case tree.Bin:
		walkExpr(e.Left, visit)
		walkExpr(e.Right, visit)
	case tree.Mem:
		walkExpr(e.Addr, visit)
	case tree.Call:
		walkExpr(e.Fn, visit)
		for _, a := range e.Args {
			walkExpr(a, visit)
		}
	case tree.Eseq:
		walkStmt(e.Stmt, visit)
		walkExpr(e.Expr, visit)
	}
}

// walkStmt calls visit on every expression nested within s.
func walkStmt(s tree.Stmt, visit func(tree.Expr)) {
	switch s := s.(type) {
	case nil:
	case tree.Move:
		walkExpr(s.Dst, visit)
		walkExpr(s.Src, visit)
	case tree.ExprStmt:
		walkExpr(s.Expr, visit)
	case tree.Jump:
		walkExpr(s.Target, visit)
	case tree.CJump:
		walkExpr(s.Left, visit)
		walkExpr(s.Right, visit)
	case tree.SeqStmt:
		walkStmt(s.First, visit)
		walkStmt(s.Second, visit)
	}
}
