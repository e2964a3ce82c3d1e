package flow

import "github.com/tigerback/tigerc/pkg/assem"

// Info holds per-instruction liveness and def/use sets, indexed the same
// way as the CFG they were computed from.
type Info struct {
	Def, Use        []RegSet
	LiveIn, LiveOut []RegSet
}

// ComputeDefUse returns, for each instruction, the set of temps it
// writes (Def) and the set it reads (Use).
func ComputeDefUse(instrs []assem.Instr) (def, use []RegSet) {
	def = make([]RegSet, len(instrs))
	use = make([]RegSet, len(instrs))
	for i, instr := range instrs {
		d, u := NewRegSet(), NewRegSet()
		for _, t := range instr.Defs() {
			d.Add(t)
		}
		for _, t := range instr.Uses() {
			u.Add(t)
		}
		def[i] = d
		use[i] = u
	}
	return def, use
}

// Analyze computes liveness over cfg by the standard backward dataflow
// fixed point:
//
//	live_out[n] = union of live_in[s] for every successor s of n
//	live_in[n]  = use[n] ∪ (live_out[n] − def[n])
//
// iterated until no LiveIn/LiveOut set changes (spec.md §4.6).
func Analyze(cfg *CFG) *Info {
	def, use := ComputeDefUse(cfg.Instrs)
	n := len(cfg.Instrs)
	info := &Info{
		Def:     def,
		Use:     use,
		LiveIn:  make([]RegSet, n),
		LiveOut: make([]RegSet, n),
	}
	for i := range info.LiveIn {
		info.LiveIn[i] = NewRegSet()
		info.LiveOut[i] = NewRegSet()
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			newOut := NewRegSet()
			for _, s := range cfg.Succ[i] {
				newOut = newOut.Union(info.LiveIn[s])
			}
			newIn := use[i].Union(newOut.Minus(def[i]))

			if !newIn.Equal(info.LiveIn[i]) || !newOut.Equal(info.LiveOut[i]) {
				changed = true
			}
			info.LiveIn[i] = newIn
			info.LiveOut[i] = newOut
		}
	}
	return info
}
