// Package assem defines the abstract-temporary assembly instruction sum
// type instruction selection emits into (spec.md §3.5): OPER, MOVE, and
// LABEL, each carrying a template string with positional src/dst/jump
// placeholders resolved at emit time. Modeled on the teacher's
// pkg/rtl.Instruction tagged-union style, generalized from a CFG-of-nodes
// shape to the spec's flat, label-addressed instruction list.
package assem

import "github.com/tigerback/tigerc/pkg/temp"

// Instr is an abstract assembly instruction.
type Instr interface {
	instrNode()
	// Uses returns the temporaries this instruction reads.
	Uses() []temp.Temp
	// Defs returns the temporaries this instruction writes.
	Defs() []temp.Temp
}

// Oper is a non-move instruction: arithmetic, loads/stores, compares,
// branches, and calls. JumpTargets is nil for straight-line/fall-through
// instructions; otherwise it lists every label the instruction may
// transfer control to (spec.md §3.5).
type Oper struct {
	Template    string
	Dst, Src    []temp.Temp
	JumpTargets []temp.Label
	// Conditional marks a branch that, unlike an unconditional jump,
	// still falls through to the next instruction when untaken — both
	// JumpTargets and the next instruction are possible successors.
	Conditional bool
	// Call marks a function call instruction: the allocator must treat
	// every temp live across it as needing a callee-saved register or a
	// spill slot, since a call clobbers the caller-saved set.
	Call bool
}

// Move is a register-to-register or register-to/from-memory move; unlike
// Oper it has exactly one def and one use, which is what lets the
// allocator recognize it as move-related and attempt coalescing.
type Move struct {
	Template string
	Dst, Src temp.Temp
}

// Lbl marks Label as the address of the following instruction. It has no
// defs or uses.
type Lbl struct {
	Template string
	Label    temp.Label
}

func (Oper) instrNode() {}
func (Move) instrNode() {}
func (Lbl) instrNode()  {}

func (i Oper) Uses() []temp.Temp { return i.Src }
func (i Oper) Defs() []temp.Temp { return i.Dst }

func (i Move) Uses() []temp.Temp { return []temp.Temp{i.Src} }
func (i Move) Defs() []temp.Temp { return []temp.Temp{i.Dst} }

func (Lbl) Uses() []temp.Temp { return nil }
func (Lbl) Defs() []temp.Temp { return nil }

// IsFallThrough reports whether control may reach the next instruction
// in program order: true for an Oper with no jump targets, for any
// Conditional branch (it falls through when untaken), and always for
// Move and Lbl.
func IsFallThrough(i Instr) bool {
	if o, ok := i.(Oper); ok {
		return o.JumpTargets == nil || o.Conditional
	}
	return true
}

// JumpTargets returns the labels i may transfer control to, or nil if i
// always falls through.
func JumpTargets(i Instr) []temp.Label {
	if o, ok := i.(Oper); ok {
		return o.JumpTargets
	}
	return nil
}
