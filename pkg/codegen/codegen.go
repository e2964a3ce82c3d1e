// Package codegen implements maximal-munch instruction selection
// (spec.md §4.4): each tree Expr/Stmt is matched greedily against the
// largest addressing-mode/operator pattern the target ISA supports,
// emitting abstract assembly instructions (pkg/assem) with fresh temps
// for every intermediate result. Grounded on the teacher's own two-stage
// lowering (pkg/selection's Cminor->CminorSel pattern recognition for
// addressing modes, pkg/rtlgen's Cminorsel->RTL "translate expression
// into a destination register, chaining backward from a successor node"
// technique for evaluation order), collapsed into the single munch pass
// the spec calls for.
package codegen

import (
	"fmt"

	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Generator munches a trace-ordered statement list into a flat list of
// abstract assembly instructions for one procedure.
type Generator struct {
	isa     machine.ISA
	pre     *machine.Precolored
	factory *temp.Factory
	instrs  []assem.Instr
}

// New creates a Generator targeting isa, minting fresh temps from f.
func New(isa machine.ISA, f *temp.Factory) *Generator {
	return &Generator{isa: isa, pre: machine.NewPrecolored(isa), factory: f}
}

// Munch selects instructions for every statement in stmts, in order, and
// returns the accumulated instruction list.
func (g *Generator) Munch(stmts []tree.Stmt) []assem.Instr {
	for _, s := range stmts {
		g.munchStmt(s)
	}
	return g.instrs
}

func (g *Generator) emit(i assem.Instr) { g.instrs = append(g.instrs, i) }

func (g *Generator) munchStmt(s tree.Stmt) {
	switch s := s.(type) {
	case tree.LabelStmt:
		g.emit(assem.Lbl{Template: g.factory.String(s.Label) + ":", Label: s.Label})

	case tree.Move:
		g.munchMove(s)

	case tree.ExprStmt:
		if call, ok := s.Expr.(tree.Call); ok {
			g.munchCall(call)
			return
		}
		g.munchExpr(s.Expr)

	case tree.Jump:
		g.emit(assem.Oper{Template: "b 'j0", JumpTargets: s.Targets})

	case tree.CJump:
		g.munchCJump(s)

	default:
		panic(fmt.Sprintf("codegen: unexpected statement in canonical trace: %#v", s))
	}
}

func (g *Generator) munchMove(mv tree.Move) {
	switch dst := mv.Dst.(type) {
	case tree.Mem:
		g.munchStore(dst, mv.Src)
	case tree.TempExpr:
		if call, ok := mv.Src.(tree.Call); ok {
			result := g.munchCall(call)
			if result != dst.Temp {
				g.emit(assem.Move{Template: "mov 'd0, 's0", Dst: dst.Temp, Src: result})
			}
			return
		}
		src := g.munchExpr(mv.Src)
		if src == dst.Temp {
			return
		}
		g.emit(assem.Move{Template: "mov 'd0, 's0", Dst: dst.Temp, Src: src})
	default:
		panic(fmt.Sprintf("codegen: Move destination must be Mem or TempExpr, got %#v", mv.Dst))
	}
}

// munchStore matches the store addressing mode: Mem(Bin(Plus, base,
// Const disp)) folds the displacement into the instruction; anything
// else munches a plain base-register store.
func (g *Generator) munchStore(dst tree.Mem, src tree.Expr) {
	value := g.munchExpr(src)
	if bin, ok := dst.Addr.(tree.Bin); ok && bin.Op == tree.Plus {
		if c, ok := bin.Right.(tree.Const); ok {
			base := g.munchExpr(bin.Left)
			g.emit(assem.Oper{Template: fmt.Sprintf("str 's0, ['s1, #%d]", c.Value), Src: []temp.Temp{value, base}})
			return
		}
	}
	base := g.munchExpr(dst.Addr)
	g.emit(assem.Oper{Template: "str 's0, ['s1]", Src: []temp.Temp{value, base}})
}

// munchCJump matches the comparison+branch idiom: cmp followed by a
// conditional branch to True. Per the trace scheduler's invariant, False
// is always the physically-next block, so no branch is emitted for it.
func (g *Generator) munchCJump(cj tree.CJump) {
	left := g.munchExpr(cj.Left)
	right := g.munchExpr(cj.Right)
	g.emit(assem.Oper{Template: "cmp 's0, 's1", Src: []temp.Temp{left, right}})
	g.emit(assem.Oper{Template: "b." + condCode(cj.Op) + " 'j0", JumpTargets: []temp.Label{cj.True}, Conditional: true})
}

func condCode(op tree.RelOp) string {
	switch op {
	case tree.Eq:
		return "eq"
	case tree.Ne:
		return "ne"
	case tree.Lt:
		return "lt"
	case tree.Le:
		return "le"
	case tree.Gt:
		return "gt"
	case tree.Ge:
		return "ge"
	case tree.Ult:
		return "lo"
	case tree.Ule:
		return "ls"
	case tree.Ugt:
		return "hi"
	case tree.Uge:
		return "hs"
	default:
		panic(fmt.Sprintf("codegen: unknown RelOp %v", op))
	}
}

// munchCall evaluates fn and every argument, places the arguments into
// the ISA's argument registers in order, emits the call (which clobbers
// every caller-saved register), and returns a fresh temp holding the
// result copied out of RV.
func (g *Generator) munchCall(call tree.Call) temp.Temp {
	argTemps := make([]temp.Temp, len(call.Args))
	for i, a := range call.Args {
		argTemps[i] = g.munchExpr(a)
	}
	for i, t := range argTemps {
		if i >= len(g.isa.ArgRegs) {
			panic("codegen: stack-passed call arguments are not yet supported")
		}
		argReg := g.pre.Temp(g.isa.ArgRegs[i])
		g.emit(assem.Move{Template: "mov 'd0, 's0", Dst: argReg, Src: t})
	}

	target := ""
	if name, ok := call.Fn.(tree.Name); ok {
		target = g.factory.String(name.Label)
	} else {
		panic("codegen: indirect calls are not yet supported")
	}

	clobbers := make([]temp.Temp, 0, len(g.isa.CallerSaved)+1)
	clobbers = append(clobbers, g.pre.Temp(g.isa.RV))
	for _, r := range g.isa.CallerSaved {
		clobbers = append(clobbers, g.pre.Temp(r))
	}
	argRegTemps := make([]temp.Temp, len(argTemps))
	for i := range argTemps {
		argRegTemps[i] = g.pre.Temp(g.isa.ArgRegs[i])
	}
	g.emit(assem.Oper{Template: "bl " + target, Src: argRegTemps, Dst: clobbers, Call: true})

	result := g.factory.NewTemp()
	g.emit(assem.Move{Template: "mov 'd0, 's0", Dst: result, Src: g.pre.Temp(g.isa.RV)})
	return result
}

// munchExpr selects instructions to compute e into a fresh (or reused)
// temp, and returns that temp.
func (g *Generator) munchExpr(e tree.Expr) temp.Temp {
	switch e := e.(type) {
	case tree.Const:
		dst := g.factory.NewTemp()
		g.emit(assem.Oper{Template: fmt.Sprintf("mov 'd0, #%d", e.Value), Dst: []temp.Temp{dst}})
		return dst

	case tree.Name:
		dst := g.factory.NewTemp()
		g.emit(assem.Oper{Template: "adr 'd0, " + g.factory.String(e.Label), Dst: []temp.Temp{dst}})
		return dst

	case tree.TempExpr:
		return e.Temp

	case tree.Mem:
		return g.munchLoad(e)

	case tree.Bin:
		return g.munchBin(e)

	case tree.Call:
		return g.munchCall(e)

	default:
		panic(fmt.Sprintf("codegen: unexpected expression in canonical tree: %#v", e))
	}
}

// munchLoad matches Mem(Bin(Plus, base, Const disp)) as a displacement
// load; anything else falls back to a plain base-register load.
func (g *Generator) munchLoad(m tree.Mem) temp.Temp {
	dst := g.factory.NewTemp()
	if bin, ok := m.Addr.(tree.Bin); ok && bin.Op == tree.Plus {
		if c, ok := bin.Right.(tree.Const); ok {
			base := g.munchExpr(bin.Left)
			g.emit(assem.Oper{Template: fmt.Sprintf("ldr 'd0, ['s0, #%d]", c.Value), Dst: []temp.Temp{dst}, Src: []temp.Temp{base}})
			return dst
		}
	}
	base := g.munchExpr(m.Addr)
	g.emit(assem.Oper{Template: "ldr 'd0, ['s0]", Dst: []temp.Temp{dst}, Src: []temp.Temp{base}})
	return dst
}

// munchBin matches Bin(op, base, Const n) as an immediate-operand form
// when the operator supports one, otherwise munches both operands into
// registers.
func (g *Generator) munchBin(b tree.Bin) temp.Temp {
	dst := g.factory.NewTemp()
	if mnem, ok := immediateMnemonic(b.Op); ok {
		if c, ok := b.Right.(tree.Const); ok {
			base := g.munchExpr(b.Left)
			g.emit(assem.Oper{Template: fmt.Sprintf("%s 'd0, 's0, #%d", mnem, c.Value), Dst: []temp.Temp{dst}, Src: []temp.Temp{base}})
			return dst
		}
	}
	mnem := registerMnemonic(b.Op)
	left := g.munchExpr(b.Left)
	right := g.munchExpr(b.Right)
	g.emit(assem.Oper{Template: fmt.Sprintf("%s 'd0, 's0, 's1", mnem), Dst: []temp.Temp{dst}, Src: []temp.Temp{left, right}})
	return dst
}

func immediateMnemonic(op tree.BinOp) (string, bool) {
	switch op {
	case tree.Plus:
		return "add", true
	case tree.Minus:
		return "sub", true
	case tree.And:
		return "and", true
	case tree.Or:
		return "orr", true
	case tree.Xor:
		return "eor", true
	case tree.Lshift:
		return "lsl", true
	case tree.Rshift:
		return "lsr", true
	case tree.ArShift:
		return "asr", true
	default:
		return "", false
	}
}

func registerMnemonic(op tree.BinOp) string {
	switch op {
	case tree.Plus:
		return "add"
	case tree.Minus:
		return "sub"
	case tree.Mul:
		return "mul"
	case tree.Div:
		return "sdiv"
	case tree.And:
		return "and"
	case tree.Or:
		return "orr"
	case tree.Xor:
		return "eor"
	case tree.Lshift:
		return "lsl"
	case tree.Rshift:
		return "lsr"
	case tree.ArShift:
		return "asr"
	default:
		panic(fmt.Sprintf("codegen: unknown BinOp %v", op))
	}
}
