package regalloc

import (
	"fmt"
	"sort"

	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/flow"
	"github.com/tigerback/tigerc/pkg/frame"
	"github.com/tigerback/tigerc/pkg/igraph"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/temp"
)

// Allocate runs iterated register coalescing to a fixed point: build the
// CFG and liveness, build the interference graph, run one allocation
// attempt, and if anything was spilled, rewrite instrs to fetch/store
// those temps from frame slots and try again. Spilling shrinks a
// spilled temp's live range to a single instruction, so each retry
// strictly reduces the remaining work; the loop terminates because there
// are finitely many temps and every retry either colors more of them or
// spills a previously-unspilled one into single-instruction live ranges
// that a register can always be found for. Grounded on the teacher's
// pkg/regalloc/transform.go, which drove the analogous RTL-to-LTL
// allocate-then-rewrite pipeline; rewritten here around assem's flat
// instruction list instead of LTL's per-node blocks, since spilling here
// inserts ordinary instructions rather than producing a new IR.
func Allocate(instrs []assem.Instr, isa machine.ISA, pre *machine.Precolored, factory *temp.Factory, fr *frame.Frame) ([]assem.Instr, *Result) {
	slots := make(map[temp.Temp]frame.InFrame)

	for {
		cfg := flow.Build(instrs)
		info := flow.Analyze(cfg)
		graph := igraph.Build(instrs, info)

		result := New(isa, pre, graph).Allocate()
		if len(result.Spilled) == 0 {
			return RemoveRedundantMoves(instrs, pre, result), result
		}

		instrs = rewriteSpills(instrs, result, slots, factory, pre, isa, fr)
	}
}

// rewriteSpills replaces each occurrence of a spilled temp with a fresh
// temp loaded from (for a use) or stored to (for a def) that temp's
// frame slot, allocating the slot on first sight. The fresh temps are
// live for only the one instruction that used them, so the very next
// allocation attempt is strictly easier than the one that spilled them.
func rewriteSpills(instrs []assem.Instr, result *Result, slots map[temp.Temp]frame.InFrame, factory *temp.Factory, pre *machine.Precolored, isa machine.ISA, fr *frame.Frame) []assem.Instr {
	slotFor := func(t temp.Temp) frame.InFrame {
		if s, ok := slots[t]; ok {
			return s
		}
		s := fr.AllocLocal(true).(frame.InFrame)
		slots[t] = s
		return s
	}

	fp := pre.Temp(isa.FP)
	var out []assem.Instr

	for _, instr := range instrs {
		var loads, stores []assem.Instr
		remapped := remapTemps(instr, func(t temp.Temp, isUse bool) (temp.Temp, bool) {
			if !result.Spilled.Contains(t) {
				return t, false
			}
			fresh := factory.NewTemp()
			slot := slotFor(t)
			if isUse {
				loads = append(loads, loadInstr(fresh, fp, slot.Offset))
			} else {
				stores = append(stores, storeInstr(fresh, fp, slot.Offset))
			}
			return fresh, true
		})

		out = append(out, loads...)
		out = append(out, remapped)
		out = append(out, stores...)
	}
	return out
}

// remapTemps returns a copy of instr with every use/def passed through
// remap; remap reports whether it actually substituted (so a Lbl, which
// carries neither, is returned unchanged).
func remapTemps(instr assem.Instr, remap func(t temp.Temp, isUse bool) (temp.Temp, bool)) assem.Instr {
	switch i := instr.(type) {
	case assem.Oper:
		dst := make([]temp.Temp, len(i.Dst))
		for j, t := range i.Dst {
			dst[j], _ = remap(t, false)
		}
		src := make([]temp.Temp, len(i.Src))
		for j, t := range i.Src {
			src[j], _ = remap(t, true)
		}
		i.Dst, i.Src = dst, src
		return i
	case assem.Move:
		i.Dst, _ = remap(i.Dst, false)
		i.Src, _ = remap(i.Src, true)
		return i
	default:
		return instr
	}
}

func loadInstr(dst, fp temp.Temp, offset int64) assem.Instr {
	return assem.Oper{
		Template: fmt.Sprintf("ldr 'd0, ['s0, #%d]", offset),
		Dst:      []temp.Temp{dst},
		Src:      []temp.Temp{fp},
	}
}

func storeInstr(src, fp temp.Temp, offset int64) assem.Instr {
	return assem.Oper{
		Template: fmt.Sprintf("str 's0, ['s1, #%d]", offset),
		Src:      []temp.Temp{src, fp},
	}
}

// RemoveRedundantMoves drops every Move whose source and destination
// resolve to the same physical register once the final coloring is
// applied: every move whose two sides were coalesced (the allocator
// itself deletes no instruction), and any other move whose two sides
// happen to end up in the same register. Exposed
// as its own function, separate from Allocate, so a caller that wants the
// pre-cleanup instruction list (e.g. to check invariant 4 before invariant
// 5 holds) can assemble its own pipeline and apply this step on its own
// schedule. Ported from the is_redundant_move post-pass referenced by the
// original compile.py pipeline (run after allocation, before assembly
// emission).
func RemoveRedundantMoves(instrs []assem.Instr, pre *machine.Precolored, result *Result) []assem.Instr {
	regOf := func(t temp.Temp) (machine.Reg, bool) {
		if r, ok := pre.Reg(t); ok {
			return r, true
		}
		r, ok := result.Colors[t]
		return r, ok
	}

	out := make([]assem.Instr, 0, len(instrs))
	for _, instr := range instrs {
		mv, ok := instr.(assem.Move)
		if !ok {
			out = append(out, instr)
			continue
		}
		dstReg, dstOk := regOf(mv.Dst)
		srcReg, srcOk := regOf(mv.Src)
		if dstOk && srcOk && dstReg == srcReg {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// SortedTemps returns s's elements in ascending order, for deterministic
// test and debug output.
func SortedTemps(s flow.RegSet) []temp.Temp {
	result := s.Slice()
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
