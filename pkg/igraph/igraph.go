// Package igraph builds the register interference graph register
// allocation colors against (spec.md §4.6): two temps interfere if they
// are ever simultaneously live, and move-related temps carry a
// preference edge the allocator tries to coalesce away. Modeled on the
// teacher's pkg/regalloc/interference.go, generalized from rtl.Reg over
// a Node-keyed rtl.Function to temp.Temp over flow's flat instruction
// list and liveness Info.
package igraph

import (
	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/flow"
	"github.com/tigerback/tigerc/pkg/temp"
)

// Graph is the interference graph over a function's temporaries.
type Graph struct {
	Nodes flow.RegSet
	// Edges maps each temp to its interfering neighbors.
	Edges map[temp.Temp]flow.RegSet
	// Preferences maps each temp to temps it was move-copied to/from.
	Preferences map[temp.Temp]flow.RegSet
	// LiveAcrossCalls holds every temp live across a call instruction;
	// these need a callee-saved register or a spill slot.
	LiveAcrossCalls flow.RegSet
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes:           flow.NewRegSet(),
		Edges:           make(map[temp.Temp]flow.RegSet),
		Preferences:     make(map[temp.Temp]flow.RegSet),
		LiveAcrossCalls: flow.NewRegSet(),
	}
}

// AddNode registers t as a node, creating empty edge/preference sets if
// this is its first appearance.
func (g *Graph) AddNode(t temp.Temp) {
	g.Nodes.Add(t)
	if g.Edges[t] == nil {
		g.Edges[t] = flow.NewRegSet()
	}
	if g.Preferences[t] == nil {
		g.Preferences[t] = flow.NewRegSet()
	}
}

// AddEdge records that a and b interfere.
func (g *Graph) AddEdge(a, b temp.Temp) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.Edges[a].Add(b)
	g.Edges[b].Add(a)
}

// AddPreference records that a and b were copied by a Move, so the
// allocator should try to assign them the same register.
func (g *Graph) AddPreference(a, b temp.Temp) {
	if a == b {
		return
	}
	g.AddNode(a)
	g.AddNode(b)
	g.Preferences[a].Add(b)
	g.Preferences[b].Add(a)
}

// HasEdge reports whether a and b interfere.
func (g *Graph) HasEdge(a, b temp.Temp) bool {
	if edges, ok := g.Edges[a]; ok {
		return edges.Contains(b)
	}
	return false
}

// Degree returns t's number of interfering neighbors.
func (g *Graph) Degree(t temp.Temp) int {
	return len(g.Edges[t])
}

// Neighbors returns a copy of t's interfering neighbors.
func (g *Graph) Neighbors(t temp.Temp) flow.RegSet {
	if edges, ok := g.Edges[t]; ok {
		return edges.Copy()
	}
	return flow.NewRegSet()
}

// MoveRelated reports whether t has any preference edges remaining.
func (g *Graph) MoveRelated(t temp.Temp) bool {
	return len(g.Preferences[t]) > 0
}

// RemoveNode deletes t and every edge/preference touching it. The
// allocator in pkg/regalloc does not call it.
func (g *Graph) RemoveNode(t temp.Temp) {
	if edges, ok := g.Edges[t]; ok {
		for neighbor := range edges {
			delete(g.Edges[neighbor], t)
		}
	}
	if prefs, ok := g.Preferences[t]; ok {
		for neighbor := range prefs {
			delete(g.Preferences[neighbor], t)
		}
	}
	delete(g.Nodes, t)
	delete(g.Edges, t)
	delete(g.Preferences, t)
}

// Build constructs the interference graph from a liveness analysis of
// instrs.
//
// A defined temp interferes with every temp live immediately after its
// defining instruction, except for a Move's own source (copying x into
// y does not make x and y interfere, which is precisely what lets the
// allocator later coalesce the move away). Any temp live across a Call
// instruction is recorded in LiveAcrossCalls.
func Build(instrs []assem.Instr, info *flow.Info) *Graph {
	g := New()

	for i := range instrs {
		for t := range info.Def[i] {
			g.AddNode(t)
		}
		for t := range info.Use[i] {
			g.AddNode(t)
		}
	}

	for i, instr := range instrs {
		liveOut := info.LiveOut[i]
		for defTemp := range info.Def[i] {
			for liveTemp := range liveOut {
				if mv, ok := instr.(assem.Move); ok && mv.Src == liveTemp {
					continue
				}
				g.AddEdge(defTemp, liveTemp)
			}
		}

		if o, ok := instr.(assem.Oper); ok && o.Call {
			for t := range liveOut {
				g.LiveAcrossCalls.Add(t)
			}
		}
	}

	for _, instr := range instrs {
		if mv, ok := instr.(assem.Move); ok {
			g.AddPreference(mv.Dst, mv.Src)
		}
	}

	return g
}
