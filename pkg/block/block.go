// Package block splits a canonical statement list into basic blocks
// (spec.md §4.2): maximal straight-line runs that begin with a label and
// end with a jump or conditional jump. Ported directly from the
// reference compiler's three-pass basic_block algorithm
// (original_source/canonical/basic_block.py), reshaped into Go's
// slice-of-slices idiom the way the teacher lays out its own
// block-oriented passes (pkg/linearize).
package block

import (
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Blocks holds the basic blocks produced from a canonical statement list,
// plus the synthetic label marking the end of the procedure. Every block
// starts with a LabelStmt and ends with a Jump or CJump; the last block
// ends with a Jump to Done.
type Blocks struct {
	Blocks [][]tree.Stmt
	Done   temp.Label
}

// Build partitions stmts into basic blocks.
//
// Pass 1 splits on LabelStmt (starts a new block, unless the previous
// block already ended on a jump) and on Jump/CJump (ends the current
// block). Pass 2 ensures every block starts with a label, synthesizing
// one where needed. Pass 3 ensures every non-final block ends with a
// jump, inserting an explicit fall-through Jump to the next block's
// label where one is missing.
func Build(stmts []tree.Stmt, f *temp.Factory) Blocks {
	done := f.NewLabel()

	var lists [][]tree.Stmt
	start := 0
	for i, s := range stmts {
		switch s.(type) {
		case tree.LabelStmt:
			if start < i {
				lists = append(lists, stmts[start:i])
				start = i
			}
		case tree.Jump, tree.CJump:
			lists = append(lists, stmts[start:i+1])
			start = i + 1
		}
	}
	last := append([]tree.Stmt{}, stmts[start:]...)
	last = append(last, tree.Jump{Target: tree.Name{Label: done}, Targets: []temp.Label{done}})
	lists = append(lists, last)

	for i, list := range lists {
		if _, ok := list[0].(tree.LabelStmt); !ok {
			lists[i] = append([]tree.Stmt{tree.LabelStmt{Label: f.NewLabel()}}, list...)
		}
	}

	for i := 0; i < len(lists)-1; i++ {
		list := lists[i]
		switch list[len(list)-1].(type) {
		case tree.Jump, tree.CJump:
			continue
		}
		nextLabel := lists[i+1][0].(tree.LabelStmt).Label
		lists[i] = append(list, tree.Jump{Target: tree.Name{Label: nextLabel}, Targets: []temp.Label{nextLabel}})
	}

	return Blocks{Blocks: lists, Done: done}
}

// Label returns the LabelStmt a block begins with.
func Label(b []tree.Stmt) temp.Label {
	return b[0].(tree.LabelStmt).Label
}
