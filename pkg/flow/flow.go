// Package flow builds a control-flow graph over a flat instruction list
// and computes liveness by backward dataflow fixed point (spec.md §4.6).
// The RegSet/def-use/LiveIn-LiveOut API mirrors the contract the
// teacher's own regalloc package exposes for this exact analysis
// (pkg/regalloc's ComputeDefUse/AnalyzeLiveness/RegSet, which the
// teacher's own liveness_test.go exercises), generalized from the
// teacher's Node-keyed rtl.Function CFG to a flat assem.Instr slice
// indexed by position.
package flow

import "github.com/tigerback/tigerc/pkg/temp"

// RegSet is a set of temporaries.
type RegSet map[temp.Temp]struct{}

// NewRegSet returns an empty set.
func NewRegSet() RegSet { return make(RegSet) }

// Add inserts t into s.
func (s RegSet) Add(t temp.Temp) { s[t] = struct{}{} }

// Contains reports whether t is in s.
func (s RegSet) Contains(t temp.Temp) bool {
	_, ok := s[t]
	return ok
}

// Union returns a new set containing every temp in s or o.
func (s RegSet) Union(o RegSet) RegSet {
	u := make(RegSet, len(s)+len(o))
	for t := range s {
		u[t] = struct{}{}
	}
	for t := range o {
		u[t] = struct{}{}
	}
	return u
}

// Minus returns a new set containing every temp in s not in o.
func (s RegSet) Minus(o RegSet) RegSet {
	d := make(RegSet, len(s))
	for t := range s {
		if !o.Contains(t) {
			d[t] = struct{}{}
		}
	}
	return d
}

// Equal reports whether s and o contain exactly the same temps.
func (s RegSet) Equal(o RegSet) bool {
	if len(s) != len(o) {
		return false
	}
	for t := range s {
		if !o.Contains(t) {
			return false
		}
	}
	return true
}

// Copy returns an independent copy of s.
func (s RegSet) Copy() RegSet {
	c := make(RegSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Slice returns s's elements in no particular order.
func (s RegSet) Slice() []temp.Temp {
	out := make([]temp.Temp, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}
