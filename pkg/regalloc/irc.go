// Package regalloc implements iterated register coalescing (spec.md
// §4.7): graph coloring with Briggs-conservative coalescing, freeze, and
// spill, over the interference graph pkg/igraph builds. Structure and
// worklist field names follow the teacher's pkg/regalloc/irc.go
// (Allocator, simplify/coalesce/freeze/selectSpill/assignColors),
// generalized from rtl.Reg-keyed worklists over a single function's
// graph to temp.Temp-keyed worklists over pkg/igraph's Graph, with
// machine registers standing in for the teacher's AllocatableIntRegs.
package regalloc

import (
	"github.com/tigerback/tigerc/pkg/flow"
	"github.com/tigerback/tigerc/pkg/igraph"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/temp"
)

// Allocator runs iterated register coalescing over a single function's
// interference graph.
type Allocator struct {
	graph *igraph.Graph
	pre   *machine.Precolored
	isa   machine.ISA
	k     int

	colors    map[temp.Temp]int
	spillSlot map[temp.Temp]int64

	simplifyWorklist []temp.Temp
	freezeWorklist   []temp.Temp
	spillWorklist    []temp.Temp
	coalescedNodes   flow.RegSet
	coloredNodes     flow.RegSet
	spilledNodes     flow.RegSet
	selectStack      []temp.Temp

	alias map[temp.Temp]temp.Temp

	coalescedMoves   [][2]temp.Temp
	constrainedMoves [][2]temp.Temp
	frozenMoves      [][2]temp.Temp
	worklistMoves    [][2]temp.Temp
	activeMoves      [][2]temp.Temp

	nextSpillSlot int64
}

// Result holds the outcome of one allocation attempt.
type Result struct {
	// Colors maps every successfully colored temp to its assigned
	// register.
	Colors map[temp.Temp]machine.Reg
	// Spilled holds every temp that needs a frame spill slot instead.
	Spilled flow.RegSet
	// SpillSlot gives each spilled temp's slot index (0, 1, 2, ...); the
	// caller is responsible for turning that into a frame offset.
	SpillSlot map[temp.Temp]int64
}

// New builds an allocator for graph, precoloring every temp already
// bound to a machine register by pre.
func New(isa machine.ISA, pre *machine.Precolored, graph *igraph.Graph) *Allocator {
	a := &Allocator{
		graph:          graph,
		pre:            pre,
		isa:            isa,
		k:              isa.K(),
		colors:         make(map[temp.Temp]int),
		spillSlot:      make(map[temp.Temp]int64),
		coalescedNodes: flow.NewRegSet(),
		coloredNodes:   flow.NewRegSet(),
		spilledNodes:   flow.NewRegSet(),
		alias:          make(map[temp.Temp]temp.Temp),
	}

	allocatable := isa.Allocatable()
	for t := range graph.Nodes {
		r, ok := pre.Reg(t)
		if !ok {
			continue
		}
		if idx := colorIndex(allocatable, r); idx >= 0 {
			a.colors[t] = idx
			a.coloredNodes.Add(t)
		}
		// A precolored temp bound to a reserved (non-allocatable)
		// register, e.g. sp or an incoming argument register, never
		// competes for a color: nothing else can ever be assigned that
		// register, so it needs no worklist membership at all.
	}

	return a
}

func colorIndex(allocatable []machine.Reg, r machine.Reg) int {
	for i, c := range allocatable {
		if c == r {
			return i
		}
	}
	return -1
}

func (a *Allocator) isFixed(t temp.Temp) bool {
	_, ok := a.pre.Reg(t)
	return ok
}

// Allocate runs the worklist algorithm to completion and returns the
// resulting coloring and spill set.
func (a *Allocator) Allocate() *Result {
	a.buildWorklists()

	for {
		switch {
		case len(a.simplifyWorklist) > 0:
			a.simplify()
		case len(a.worklistMoves) > 0:
			a.coalesce()
		case len(a.freezeWorklist) > 0:
			a.freeze()
		case len(a.spillWorklist) > 0:
			a.selectSpill()
		default:
			a.assignColors()
			return a.buildResult()
		}
	}
}

func (a *Allocator) buildWorklists() {
	for t := range a.graph.Nodes {
		if a.isFixed(t) {
			continue
		}
		if a.degree(t) >= a.k {
			a.spillWorklist = append(a.spillWorklist, t)
		} else if a.graph.MoveRelated(t) {
			a.freezeWorklist = append(a.freezeWorklist, t)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, t)
		}
	}

	for t, prefs := range a.graph.Preferences {
		for p := range prefs {
			if t < p {
				a.worklistMoves = append(a.worklistMoves, [2]temp.Temp{t, p})
			}
		}
	}
}

// degree treats a fixed (precolored) temp as having infinite degree: it
// can never be simplified away, and any attempt to coalesce with it must
// go through the conservative check rather than assume it simplifies.
func (a *Allocator) degree(t temp.Temp) int {
	if a.isFixed(t) {
		return a.k + len(a.graph.Nodes)
	}
	deg := 0
	for n := range a.graph.Edges[t] {
		if !a.coalescedNodes.Contains(n) {
			deg++
		}
	}
	return deg
}

func (a *Allocator) simplify() {
	n := len(a.simplifyWorklist) - 1
	t := a.simplifyWorklist[n]
	a.simplifyWorklist = a.simplifyWorklist[:n]

	a.selectStack = append(a.selectStack, t)
	for neighbor := range a.graph.Edges[t] {
		a.decrementDegree(neighbor)
	}
}

func (a *Allocator) decrementDegree(t temp.Temp) {
	if a.coalescedNodes.Contains(t) || a.isFixed(t) {
		return
	}
	if a.degree(t) == a.k-1 {
		a.removeFromWorklist(t, &a.spillWorklist)
		if a.graph.MoveRelated(t) {
			a.freezeWorklist = append(a.freezeWorklist, t)
		} else {
			a.simplifyWorklist = append(a.simplifyWorklist, t)
		}
	}
}

func (a *Allocator) removeFromWorklist(t temp.Temp, list *[]temp.Temp) {
	for i, x := range *list {
		if x == t {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (a *Allocator) coalesce() {
	n := len(a.worklistMoves) - 1
	m := a.worklistMoves[n]
	a.worklistMoves = a.worklistMoves[:n]

	x := a.getAlias(m[0])
	y := a.getAlias(m[1])

	var u, v temp.Temp
	switch {
	case a.isFixed(x):
		u, v = x, y
	case a.isFixed(y):
		u, v = y, x
	case x < y:
		u, v = x, y
	default:
		u, v = y, x
	}

	switch {
	case u == v:
		a.coalescedMoves = append(a.coalescedMoves, m)
		a.addToWorklist(u)
	case a.isFixed(v) || a.graph.HasEdge(u, v):
		a.constrainedMoves = append(a.constrainedMoves, m)
		a.addToWorklist(u)
		a.addToWorklist(v)
	case a.canCoalesce(u, v):
		a.coalescedMoves = append(a.coalescedMoves, m)
		a.combine(u, v)
		a.addToWorklist(u)
	default:
		a.activeMoves = append(a.activeMoves, m)
	}
}

func (a *Allocator) getAlias(t temp.Temp) temp.Temp {
	if a.coalescedNodes.Contains(t) {
		return a.getAlias(a.alias[t])
	}
	return t
}

// canCoalesce applies George's rule when one side is fixed (every
// neighbor of the non-fixed side is fixed, low-degree, or already
// interferes with the fixed register) and Briggs's conservative rule
// otherwise (the combined node has fewer than k high-degree neighbors).
func (a *Allocator) canCoalesce(u, v temp.Temp) bool {
	if a.isFixed(u) {
		for n := range a.graph.Edges[v] {
			if a.coalescedNodes.Contains(n) {
				continue
			}
			if !(a.isFixed(n) || a.degree(n) < a.k || a.graph.HasEdge(n, u)) {
				return false
			}
		}
		return true
	}

	highDegree := 0
	neighbors := flow.NewRegSet()
	for n := range a.graph.Edges[u] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) {
			neighbors.Add(n)
		}
	}
	for n := range neighbors {
		if a.degree(n) >= a.k {
			highDegree++
		}
	}
	return highDegree < a.k
}

func (a *Allocator) combine(u, v temp.Temp) {
	a.removeFromWorklist(v, &a.freezeWorklist)
	a.removeFromWorklist(v, &a.spillWorklist)

	a.coalescedNodes.Add(v)
	a.alias[v] = u

	if a.graph.LiveAcrossCalls.Contains(v) {
		a.graph.LiveAcrossCalls.Add(u)
	}

	for n := range a.graph.Edges[v] {
		if !a.coalescedNodes.Contains(n) && n != u {
			a.graph.AddEdge(u, n)
			a.decrementDegree(n)
		}
	}
	for n := range a.graph.Preferences[v] {
		if n != u {
			a.graph.AddPreference(u, n)
		}
	}

	if !a.isFixed(u) && a.degree(u) >= a.k {
		a.removeFromWorklist(u, &a.freezeWorklist)
		a.spillWorklist = append(a.spillWorklist, u)
	}
}

func (a *Allocator) addToWorklist(t temp.Temp) {
	if a.coalescedNodes.Contains(t) || a.isFixed(t) {
		return
	}
	if a.degree(t) < a.k && !a.graph.MoveRelated(t) {
		a.removeFromWorklist(t, &a.freezeWorklist)
		a.simplifyWorklist = append(a.simplifyWorklist, t)
	}
}

func (a *Allocator) freeze() {
	n := len(a.freezeWorklist) - 1
	t := a.freezeWorklist[n]
	a.freezeWorklist = a.freezeWorklist[:n]

	a.simplifyWorklist = append(a.simplifyWorklist, t)
	a.freezeMovesFor(t)
}

func (a *Allocator) freezeMovesFor(t temp.Temp) {
	var remaining [][2]temp.Temp
	for _, m := range a.activeMoves {
		if m[0] == t || m[1] == t {
			a.frozenMoves = append(a.frozenMoves, m)
			other := m[1]
			if m[0] != t {
				other = m[0]
			}
			a.addToWorklist(other)
		} else {
			remaining = append(remaining, m)
		}
	}
	a.activeMoves = remaining
}

// selectSpill picks the highest-degree candidate on the spill worklist
// to optimistically push through the simplify phase rather than spill
// outright; it is only an actual spill if assignColors can't find it a
// color.
func (a *Allocator) selectSpill() {
	maxIdx := -1
	var maxDeg int
	var maxTemp temp.Temp

	for i, t := range a.spillWorklist {
		d := a.degree(t)
		if maxIdx == -1 || d > maxDeg {
			maxDeg = d
			maxTemp = t
			maxIdx = i
		}
	}
	if maxIdx < 0 {
		return
	}
	a.spillWorklist = append(a.spillWorklist[:maxIdx], a.spillWorklist[maxIdx+1:]...)
	a.simplifyWorklist = append(a.simplifyWorklist, maxTemp)
	a.freezeMovesFor(maxTemp)
}

func (a *Allocator) assignColors() {
	for len(a.selectStack) > 0 {
		n := len(a.selectStack) - 1
		t := a.selectStack[n]
		a.selectStack = a.selectStack[:n]

		used := make(map[int]bool)
		for neighbor := range a.graph.Edges[t] {
			alias := a.getAlias(neighbor)
			if a.coloredNodes.Contains(alias) {
				used[a.colors[alias]] = true
			} else if r, ok := a.pre.Reg(alias); ok {
				if idx := colorIndex(a.isa.Allocatable(), r); idx >= 0 {
					used[idx] = true
				}
			}
		}

		start := 0
		if a.graph.LiveAcrossCalls.Contains(t) {
			start = a.isa.FirstCalleeSavedColor()
		}

		color := -1
		for c := start; c < a.k; c++ {
			if !used[c] {
				color = c
				break
			}
		}

		if color >= 0 {
			a.coloredNodes.Add(t)
			a.colors[t] = color
		} else {
			a.spilledNodes.Add(t)
			a.spillSlot[t] = a.nextSpillSlot
			a.nextSpillSlot++
		}
	}

	for t := range a.coalescedNodes {
		alias := a.getAlias(t)
		if a.coloredNodes.Contains(alias) {
			a.colors[t] = a.colors[alias]
			a.coloredNodes.Add(t)
		} else if a.spilledNodes.Contains(alias) {
			a.spilledNodes.Add(t)
			a.spillSlot[t] = a.spillSlot[alias]
		}
	}
}

func (a *Allocator) buildResult() *Result {
	result := &Result{
		Colors:    make(map[temp.Temp]machine.Reg),
		Spilled:   a.spilledNodes.Copy(),
		SpillSlot: a.spillSlot,
	}

	allocatable := a.isa.Allocatable()
	for t := range a.coloredNodes {
		if a.isFixed(t) {
			continue
		}
		result.Colors[t] = allocatable[a.colors[t]]
	}

	// A node George-coalesced into a fixed but non-allocatable register
	// (e.g. the x0 in "mov result, x0") never enters coloredNodes: New
	// only admits a precolored temp there when its register is in
	// Allocatable(), and the coalesced-node loop in assignColors only
	// copies a color from an alias already in coloredNodes/spilledNodes.
	// Resolve those directly against pre instead of leaving them with no
	// entry in Colors at all.
	for t := range a.coalescedNodes {
		if a.isFixed(t) {
			continue
		}
		if _, ok := result.Colors[t]; ok {
			continue
		}
		if r, ok := a.pre.Reg(a.getAlias(t)); ok {
			result.Colors[t] = r
		}
	}
	return result
}
