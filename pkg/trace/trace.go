// Package trace schedules basic blocks into a single linear instruction
// stream (spec.md §4.3): a greedy trace-picking order that tries to make
// every CJump's false branch the physically next block, followed by a
// fixup pass that repairs the CJump false-label-falls-through invariant
// wherever greedy scheduling could not. Grounded on the teacher's
// pkg/linearize/linearize.go (block ordering, done here by greedy trace
// picking rather than reverse postorder) and
// its tunneling.go/cleanup.go companions, which this package's Tunnel
// and RemoveUnreferencedLabels mirror.
package trace

import (
	"github.com/tigerback/tigerc/pkg/block"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Schedule orders bs's blocks into a flat statement list whose every
// CJump satisfies the false-label-falls-through invariant: the label
// physically following a CJump is always its False target.
func Schedule(bs block.Blocks, f *temp.Factory) []tree.Stmt {
	ordered := order(bs)
	fixed := fixupCJumps(ordered, bs.Done, f)

	var out []tree.Stmt
	for _, b := range fixed {
		out = append(out, b...)
	}
	out = append(out, tree.LabelStmt{Label: bs.Done})
	return RemoveUnreferencedLabels(Tunnel(out))
}

// order greedily picks traces: starting an unmarked block, it follows
// Jump targets directly, and for CJump prefers continuing into the
// unmarked False successor (so no fixup is later needed), falling back
// to the True successor with the condition negated.
func order(bs block.Blocks) [][]tree.Stmt {
	byLabel := make(map[temp.Label]int, len(bs.Blocks))
	for i, b := range bs.Blocks {
		byLabel[block.Label(b)] = i
	}
	marked := make([]bool, len(bs.Blocks))
	var out [][]tree.Stmt

	for start := 0; start < len(bs.Blocks); start++ {
		if marked[start] {
			continue
		}
		i := start
		for !marked[i] {
			marked[i] = true
			out = append(out, bs.Blocks[i])
			next, ok := successorToFollow(bs.Blocks[i], byLabel, marked)
			if !ok {
				break
			}
			i = next
		}
	}
	return out
}

// successorToFollow picks the next unmarked block to append to the
// current trace, per the control transfer ending the given block.
func successorToFollow(b []tree.Stmt, byLabel map[temp.Label]int, marked []bool) (int, bool) {
	switch last := b[len(b)-1].(type) {
	case tree.Jump:
		if len(last.Targets) == 1 {
			if idx, ok := byLabel[last.Targets[0]]; ok && !marked[idx] {
				return idx, true
			}
		}
	case tree.CJump:
		if idx, ok := byLabel[last.False]; ok && !marked[idx] {
			return idx, true
		}
		if idx, ok := byLabel[last.True]; ok && !marked[idx] {
			return idx, true
		}
	}
	return 0, false
}

// fixupCJumps repairs the false-label-falls-through invariant for any
// CJump whose physically-next block, after scheduling, is neither its
// True nor False target, and swaps True/False (negating the relation)
// when the next block is True but not False.
func fixupCJumps(ordered [][]tree.Stmt, done temp.Label, f *temp.Factory) [][]tree.Stmt {
	out := make([][]tree.Stmt, 0, len(ordered))
	for i, b := range ordered {
		nextLabel := done
		if i+1 < len(ordered) {
			nextLabel = block.Label(ordered[i+1])
		}

		last := b[len(b)-1]
		cj, ok := last.(tree.CJump)
		if !ok {
			out = append(out, b)
			continue
		}
		switch nextLabel {
		case cj.False:
			out = append(out, b)
		case cj.True:
			negated := tree.CJump{Op: cj.Op.Negate(), Left: cj.Left, Right: cj.Right, True: cj.False, False: cj.True}
			out = append(out, replaceLast(b, negated))
		default:
			synthetic := f.NewLabel()
			replaced := replaceLast(b, tree.CJump{Op: cj.Op, Left: cj.Left, Right: cj.Right, True: cj.True, False: synthetic})
			out = append(out, replaced)
			out = append(out, []tree.Stmt{
				tree.LabelStmt{Label: synthetic},
				tree.Jump{Target: tree.Name{Label: cj.False}, Targets: []temp.Label{cj.False}},
			})
		}
	}
	return out
}

func replaceLast(b []tree.Stmt, s tree.Stmt) []tree.Stmt {
	out := make([]tree.Stmt, len(b))
	copy(out, b)
	out[len(out)-1] = s
	return out
}
