// Package canon implements canonicalization (spec.md §4.1): eliminating
// every Eseq and hoisting Call to statement position, then linearizing
// the resulting tree into a flat statement list.
//
// The rewrite phase follows the textbook two-pass structure (Appel,
// "Modern Compiler Implementation"): do_stmt/do_expr recurse bottom-up,
// and whenever two expression operands are combined, a commute check
// decides whether the first operand's already-extracted value may safely
// be read after the second operand's statements run, or must instead be
// captured into a fresh temp first. The teacher's closest analog is
// pkg/cminorgen/transform.go, which performs the same kind of
// side-effect-hoisting lowering for its own (C-specific) front-end IR;
// this package generalizes the same technique to the spec's commute rule.
package canon

import (
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Canonize returns the canonical, flat statement list for s: no Eseq
// anywhere, and every Call appears only as Move(Temp, Call) or
// Expr(Call) (spec.md §3.3).
func Canonize(s tree.Stmt, f *temp.Factory) []tree.Stmt {
	c := &canonicalizer{f: f}
	rewritten := c.doStmt(s)
	return linearize(rewritten)
}

type canonicalizer struct{ f *temp.Factory }

// linearize flattens a SeqStmt tree into a flat list, discarding SeqStmt
// wrappers (spec.md §4.1.2).
func linearize(s tree.Stmt) []tree.Stmt {
	if s == nil {
		return nil
	}
	if seq, ok := s.(tree.SeqStmt); ok {
		return append(linearize(seq.First), linearize(seq.Second)...)
	}
	return []tree.Stmt{s}
}

// commute reports whether statement s may be executed, and the value of
// expr e read only afterward, with the same observable effect as reading
// e immediately and running s later. nil statements and Const/Name
// expressions always commute (spec.md §4.1).
func commute(s tree.Stmt, e tree.Expr) bool {
	if s == nil {
		return true
	}
	switch e.(type) {
	case tree.Const, tree.Name:
		return true
	}
	if mentionsCall(s) {
		return false
	}
	if writesMemory(s) && mentionsMem(e) {
		return false
	}
	defined := definedTemps(s)
	if len(defined) == 0 {
		return true
	}
	for t := range usedTemps(e) {
		if defined[t] {
			return false
		}
	}
	return true
}

// doStmt rewrites a statement so every nested Eseq is hoisted and every
// Call lands at statement position.
func (c *canonicalizer) doStmt(s tree.Stmt) tree.Stmt {
	switch s := s.(type) {
	case nil:
		return nil

	case tree.Move:
		return c.doMove(s)

	case tree.ExprStmt:
		if call, ok := s.Expr.(tree.Call); ok {
			return c.doCallStmt(call)
		}
		pre, e := c.doExpr(s.Expr)
		return tree.Seq(pre, tree.ExprStmt{Expr: e})

	case tree.Jump:
		pre, target := c.doExpr(s.Target)
		return tree.Seq(pre, tree.Jump{Target: target, Targets: s.Targets})

	case tree.CJump:
		preL, left := c.doExpr(s.Left)
		preR, right := c.doExpr(s.Right)
		if commute(preR, left) {
			return tree.Seq(preL, preR, tree.CJump{Op: s.Op, Left: left, Right: right, True: s.True, False: s.False})
		}
		t := c.f.NewTemp()
		return tree.Seq(
			preL,
			tree.Move{Dst: tree.TempExpr{Temp: t}, Src: left},
			preR,
			tree.CJump{Op: s.Op, Left: tree.TempExpr{Temp: t}, Right: right, True: s.True, False: s.False},
		)

	case tree.SeqStmt:
		return tree.Seq(c.doStmt(s.First), c.doStmt(s.Second))

	case tree.LabelStmt:
		return s

	default:
		return s
	}
}

func (c *canonicalizer) doMove(mv tree.Move) tree.Stmt {
	switch dst := mv.Dst.(type) {
	case tree.TempExpr:
		if call, ok := mv.Src.(tree.Call); ok {
			preFn, fn := c.doExpr(call.Fn)
			preArgs, args := c.doExprList(call.Args)
			return tree.Seq(preFn, preArgs, tree.Move{Dst: dst, Src: tree.Call{Fn: fn, Args: args}})
		}
		pre, src := c.doExpr(mv.Src)
		return tree.Seq(pre, tree.Move{Dst: dst, Src: src})

	case tree.Mem:
		preAddr, addr := c.doExpr(dst.Addr)
		preSrc, src := c.doExpr(mv.Src)
		if commute(preSrc, addr) {
			return tree.Seq(preAddr, preSrc, tree.Move{Dst: tree.Mem{Addr: addr}, Src: src})
		}
		t := c.f.NewTemp()
		return tree.Seq(
			preAddr,
			tree.Move{Dst: tree.TempExpr{Temp: t}, Src: addr},
			preSrc,
			tree.Move{Dst: tree.Mem{Addr: tree.TempExpr{Temp: t}}, Src: src},
		)

	default:
		pre, src := c.doExpr(mv.Src)
		return tree.Seq(pre, tree.Move{Dst: dst, Src: src})
	}
}

// doCallStmt canonicalizes a Call already at statement position
// (Expr(Call(...))): its result is discarded, but its arguments still
// need reordering.
func (c *canonicalizer) doCallStmt(call tree.Call) tree.Stmt {
	preFn, fn := c.doExpr(call.Fn)
	preArgs, args := c.doExprList(call.Args)
	return tree.Seq(preFn, preArgs, tree.ExprStmt{Expr: tree.Call{Fn: fn, Args: args}})
}

// doExpr rewrites e into a (hoisted statements, Eseq-free residual
// expression) pair. The residual never contains Eseq or a bare Call.
func (c *canonicalizer) doExpr(e tree.Expr) (tree.Stmt, tree.Expr) {
	switch e := e.(type) {
	case nil:
		return nil, nil

	case tree.Const, tree.Name, tree.TempExpr:
		return nil, e

	case tree.Bin:
		preL, left := c.doExpr(e.Left)
		preR, right := c.doExpr(e.Right)
		if commute(preR, left) {
			return tree.Seq(preL, preR), tree.Bin{Op: e.Op, Left: left, Right: right}
		}
		t := c.f.NewTemp()
		return tree.Seq(preL, tree.Move{Dst: tree.TempExpr{Temp: t}, Src: left}, preR),
			tree.Bin{Op: e.Op, Left: tree.TempExpr{Temp: t}, Right: right}

	case tree.Mem:
		pre, addr := c.doExpr(e.Addr)
		return pre, tree.Mem{Addr: addr}

	case tree.Eseq:
		s1 := c.doStmt(e.Stmt)
		s2, val := c.doExpr(e.Expr)
		return tree.Seq(s1, s2), val

	case tree.Call:
		preFn, fn := c.doExpr(e.Fn)
		preArgs, args := c.doExprList(e.Args)
		t := c.f.NewTemp()
		return tree.Seq(preFn, preArgs, tree.Move{Dst: tree.TempExpr{Temp: t}, Src: tree.Call{Fn: fn, Args: args}}),
			tree.TempExpr{Temp: t}

	default:
		return nil, e
	}
}

// doExprList rewrites a left-to-right expression list, preserving
// evaluation order: the first expression's hoisted statements are
// combined with the rest only after confirming the rest commutes with
// the first expression's residual value (spec.md §4.1, Call-argument rule).
func (c *canonicalizer) doExprList(exprs []tree.Expr) (tree.Stmt, []tree.Expr) {
	if len(exprs) == 0 {
		return nil, nil
	}
	preFirst, first := c.doExpr(exprs[0])
	preRest, rest := c.doExprList(exprs[1:])

	if commute(preRest, first) {
		return tree.Seq(preFirst, preRest), append([]tree.Expr{first}, rest...)
	}
	t := c.f.NewTemp()
	combined := tree.Seq(preFirst, tree.Move{Dst: tree.TempExpr{Temp: t}, Src: first}, preRest)
	return combined, append([]tree.Expr{tree.TempExpr{Temp: t}}, rest...)
}
