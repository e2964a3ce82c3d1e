// Package frame implements the activation-record abstraction (spec.md
// §3.6, §4.8): it hides the target's calling convention and stack layout
// behind Access values, so every other pass manipulates temporaries and
// frame-relative offsets without knowing the concrete ABI. Frame layout
// (FP pointing at the saved FP/LR pair; locals, spill slots and
// callee-save slots sharing one area below it, in the order they are
// reserved; incoming stack arguments above the pair) is ported from the teacher's
// pkg/stacking/layout.go (ComputeLayout/FrameLayout), and the view-shift
// and epilogue generation follow pkg/stacking/prolog.go and
// pkg/stacking/calleesave.go.
package frame

import (
	"fmt"

	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Access describes where a formal parameter or local variable lives:
// either a register-resident temporary or a word at a fixed offset from
// the frame pointer.
type Access interface{ accessNode() }

// InReg is a register-resident variable: the allocator is free to color
// it, spill it, or coalesce it like any other temp.
type InReg struct{ Temp temp.Temp }

// InFrame is a variable that lives at Offset bytes from the frame
// pointer (negative: below FP, in this frame's locals; non-negative:
// above FP, in the caller's outgoing-argument area, for a formal passed
// on the stack).
type InFrame struct{ Offset int64 }

func (InReg) accessNode()   {}
func (InFrame) accessNode() {}

const (
	savedFPLRSize  = 16 // saved old-FP (8) + saved LR (8), always present
	pointerSize    = 8
	stackAlignment = 16
)

// Frame holds everything known about one procedure's activation record
// once instruction selection starts: where its formals live, the next
// free local-variable offset, and the ISA it targets.
type Frame struct {
	Label   temp.Label
	Formals []Access

	isa    machine.ISA
	pre    *machine.Precolored
	factory *temp.Factory

	incoming []tree.Expr // per formal, the expr where its value actually arrives

	localSize int64 // bytes of locals allocated so far, grows positively
	// calleeSaveSlots maps a callee-saved register's precolored Temp to
	// the InFrame slot its value is spilled to across the procedure
	// body; populated by ReserveCalleeSave once allocation has run.
	calleeSaveSlots map[temp.Temp]InFrame
}

// New builds a Frame for a procedure named label with the given formal
// escape flags (escapes[i] true means the i'th formal's address is taken
// somewhere in the body, so it cannot live in a register).
func New(label temp.Label, escapes []bool, isa machine.ISA, f *temp.Factory) *Frame {
	pre := machine.NewPrecolored(isa)
	fr := &Frame{
		Label:           label,
		isa:             isa,
		pre:             pre,
		factory:         f,
		calleeSaveSlots: make(map[temp.Temp]InFrame),
	}
	fr.Formals = make([]Access, len(escapes))
	fr.incoming = make([]tree.Expr, len(escapes))

	for i, escape := range escapes {
		var arrival tree.Expr
		if i < len(isa.ArgRegs) {
			arrival = tree.TempExpr{Temp: pre.Temp(isa.ArgRegs[i])}
		} else {
			off := savedFPLRSize + int64(i-len(isa.ArgRegs))*pointerSize
			arrival = tree.Mem{Addr: frameAddr(pre.Temp(isa.FP), off)}
		}
		fr.incoming[i] = arrival

		if escape {
			fr.Formals[i] = fr.allocFrameSlot()
		} else {
			fr.Formals[i] = InReg{Temp: f.NewTemp()}
		}
	}
	return fr
}

// frameAddr builds the address fpTemp + offset (fpTemp itself when
// offset is 0).
func frameAddr(fpTemp temp.Temp, offset int64) tree.Expr {
	fpExpr := tree.TempExpr{Temp: fpTemp}
	if offset == 0 {
		return fpExpr
	}
	return tree.Bin{Op: tree.Plus, Left: fpExpr, Right: tree.Const{Value: offset}}
}

// allocFrameSlot reserves the next local slot and returns its access.
func (fr *Frame) allocFrameSlot() InFrame {
	fr.localSize += pointerSize
	offset := -fr.localSize
	return InFrame{Offset: offset}
}

// AllocLocal reserves storage for a local variable: a fresh register if
// it never escapes, otherwise a new frame slot.
func (fr *Frame) AllocLocal(escape bool) Access {
	if escape {
		return fr.allocFrameSlot()
	}
	return InReg{Temp: fr.factory.NewTemp()}
}

// Exp returns the tree expression that reads/writes access, given an
// expression for the current frame pointer (almost always FP itself;
// the framePtr parameter exists so a static-link chain could thread a
// different frame's pointer through, per spec.md §3.6).
func (fr *Frame) Exp(access Access, framePtr tree.Expr) tree.Expr {
	switch a := access.(type) {
	case InReg:
		return tree.TempExpr{Temp: a.Temp}
	case InFrame:
		if a.Offset == 0 {
			return tree.Mem{Addr: framePtr}
		}
		return tree.Mem{Addr: tree.Bin{Op: tree.Plus, Left: framePtr, Right: tree.Const{Value: a.Offset}}}
	default:
		panic(fmt.Sprintf("frame: unknown access type %T", access))
	}
}

// FP returns an expression for this frame's own frame pointer.
func (fr *Frame) FP() tree.Expr { return tree.TempExpr{Temp: fr.pre.Temp(fr.isa.FP)} }

// RV returns an expression for the return-value register.
func (fr *Frame) RV() tree.Expr { return tree.TempExpr{Temp: fr.pre.Temp(fr.isa.RV)} }

// ISA returns the target machine this frame was built for.
func (fr *Frame) ISA() machine.ISA { return fr.isa }

// ViewShiftPrologue returns the statements that copy every formal's
// incoming value (an argument register, or a word in the caller's
// outgoing-argument area) into the Access the body actually uses.
// Appel's term for this step: the body should never reference an
// incoming argument register directly, so the allocator is free to
// reuse it immediately.
func (fr *Frame) ViewShiftPrologue() []tree.Stmt {
	var stmts []tree.Stmt
	for i, access := range fr.Formals {
		stmts = append(stmts, tree.Move{Dst: fr.Exp(access, fr.FP()), Src: fr.incoming[i]})
	}
	return stmts
}

// MoveResultToRV moves the value of result (a temp holding a function's
// return value) into the ABI's return-value register, ready for the
// epilogue. This is not spec.md §4.8's "Sink" pass (see SinkOper for
// that) — it is the ordinary return-value move a procedure's body emits
// for its own `return` statement.
func (fr *Frame) MoveResultToRV(result temp.Temp) tree.Stmt {
	return tree.Move{Dst: fr.RV(), Src: tree.TempExpr{Temp: result}}
}

// sinkTemplate marks the synthetic instruction SinkOper returns. It is
// never printed: a pipeline strips every sink instruction (DropSinkOper)
// once register allocation, the only pass that needs it, has run.
const sinkTemplate = "<sink>"

// SinkOper returns spec.md §4.8's Sink instruction: a synthetic Oper with
// the marker template sinkTemplate and no destinations, whose Src lists every register that
// must still be considered live at the very end of the procedure body —
// the return-value register, the stack and frame pointers, and every
// callee-saved register the ISA declares (not just the ones this
// procedure actually uses; which ones are actually used is only known
// after allocation, so listing the full callee-saved set here is the
// conservative choice Appel's own procEntryExit2 makes). Appending this
// to the instruction list before liveness analysis runs keeps those
// registers from looking dead before the epilogue that saves and
// restores them actually executes.
func (fr *Frame) SinkOper() assem.Instr {
	src := []temp.Temp{fr.pre.Temp(fr.isa.RV), fr.pre.Temp(fr.isa.SP), fr.pre.Temp(fr.isa.FP)}
	for _, r := range fr.isa.CalleeSaved {
		src = append(src, fr.pre.Temp(r))
	}
	return assem.Oper{Template: sinkTemplate, Src: src}
}

// DropSinkOper removes every instruction SinkOper produced, once
// allocation has consulted the liveness it was inserted to preserve.
func DropSinkOper(instrs []assem.Instr) []assem.Instr {
	out := make([]assem.Instr, 0, len(instrs))
	for _, instr := range instrs {
		if o, ok := instr.(assem.Oper); ok && o.Template == sinkTemplate {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// ReserveCalleeSave records that calleeSavedTemp (a precolored temp for
// one of the ISA's callee-saved registers) is actually colored to by the
// allocator somewhere in this procedure, and so must be saved on entry
// and restored on exit. It is idempotent and returns the slot assigned.
// Called after register allocation, once the set of callee-saved
// registers actually in use is known (spec.md §4.8; teacher's analog is
// pkg/stacking/calleesave.go, which performs the same after-the-fact
// bookkeeping once Mach knows which LTL registers survived allocation).
func (fr *Frame) ReserveCalleeSave(calleeSavedTemp temp.Temp) InFrame {
	if slot, ok := fr.calleeSaveSlots[calleeSavedTemp]; ok {
		return slot
	}
	slot := fr.allocFrameSlot()
	fr.calleeSaveSlots[calleeSavedTemp] = slot
	return slot
}

// CalleeSlot pairs a callee-saved register with the frame offset it is
// spilled to across the procedure body.
type CalleeSlot struct {
	Reg    machine.Reg
	Offset int64
}

// CalleeSavedSlots returns every callee-saved register reserved so far
// via ReserveCalleeSave, ordered by register name for deterministic
// output, paired with its spill offset. Consulted directly by pkg/emit to
// synthesize the raw entry/exit save and restore instructions once
// FrameSize is final — the pipeline never builds a tree-statement form of
// this sequence, since by the time it's known which registers need
// saving, the procedure's tree has already been through codegen and
// allocation and there is no second IR stage left to run it through.
func (fr *Frame) CalleeSavedSlots() []CalleeSlot {
	regs := make([]machine.Reg, 0, len(fr.calleeSaveSlots))
	byReg := make(map[machine.Reg]InFrame, len(fr.calleeSaveSlots))
	for t, slot := range fr.calleeSaveSlots {
		r, ok := fr.pre.Reg(t)
		if !ok {
			continue
		}
		regs = append(regs, r)
		byReg[r] = slot
	}
	sortRegs(regs)

	slots := make([]CalleeSlot, len(regs))
	for i, r := range regs {
		slots[i] = CalleeSlot{Reg: r, Offset: byReg[r].Offset}
	}
	return slots
}

// sortRegs sorts regs lexically in place; small enough (at most a
// handful of callee-saved registers) that a library sort would be
// overkill for the gain.
func sortRegs(regs []machine.Reg) {
	for i := 1; i < len(regs); i++ {
		for j := i; j > 0 && regs[j-1] > regs[j]; j-- {
			regs[j-1], regs[j] = regs[j], regs[j-1]
		}
	}
}

// FrameSize returns the total stack frame size in bytes (saved FP/LR
// plus locals and reserved callee-save slots), rounded up to the ISA's
// required stack alignment.
func (fr *Frame) FrameSize() int64 {
	body := savedFPLRSize + fr.localSize
	return alignUp(body, int64(fr.isa.StackAlign))
}

func alignUp(n, align int64) int64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// RenderStringFragment renders a string literal as assembler data-section
// text: a label definition followed by a length-prefixed byte sequence,
// matching the Tiger runtime's string representation (spec.md §4.8,
// GLOSSARY "string fragment"). A package-level function rather than a
// Frame method since a string literal belongs to no particular
// procedure's frame; pkg/emit's data-section printer calls this
// directly for every fragment.StringFragment it drains.
func RenderStringFragment(factory *temp.Factory, label temp.Label, s string) string {
	return fmt.Sprintf(".align 3\n%s:\n\t.word %d\n\t.ascii %q\n", factory.String(label), len(s), s)
}
