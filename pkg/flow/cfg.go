package flow

import (
	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/temp"
)

// CFG is the control-flow graph over a flat instruction list, indexed by
// position: Succ[i]/Pred[i] list every instruction index control can
// transfer to/from immediately after/before executing instruction i.
type CFG struct {
	Instrs []assem.Instr
	Succ   [][]int
	Pred   [][]int
}

// Build resolves every Lbl's position and links each instruction to its
// successors: the next instruction for any fall-through (including a
// Conditional branch's untaken path), plus every resolved jump target.
func Build(instrs []assem.Instr) *CFG {
	pos := make(map[temp.Label]int)
	for i, instr := range instrs {
		if l, ok := instr.(assem.Lbl); ok {
			pos[l.Label] = i
		}
	}

	cfg := &CFG{Instrs: instrs, Succ: make([][]int, len(instrs)), Pred: make([][]int, len(instrs))}
	for i, instr := range instrs {
		var succs []int
		if assem.IsFallThrough(instr) && i+1 < len(instrs) {
			succs = append(succs, i+1)
		}
		for _, l := range assem.JumpTargets(instr) {
			if idx, ok := pos[l]; ok {
				succs = append(succs, idx)
			}
		}
		cfg.Succ[i] = succs
	}
	for i, succs := range cfg.Succ {
		for _, s := range succs {
			cfg.Pred[s] = append(cfg.Pred[s], i)
		}
	}
	return cfg
}
