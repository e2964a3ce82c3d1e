package trace

import (
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// RemoveUnreferencedLabels drops every LabelStmt that no Jump's Targets
// and no CJump's True/False refers to; a Name expression anywhere else
// (e.g. in a Move) is not counted as a reference. The block it used to mark becomes dead code
// reachable by neither fallthrough (its predecessor always ends in an
// unconditional transfer, per the basic-block invariant) nor branch, and
// is left in place as inert, never-executed statements.
func RemoveUnreferencedLabels(stmts []tree.Stmt) []tree.Stmt {
	referenced := referencedLabels(stmts)

	out := make([]tree.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if lbl, ok := s.(tree.LabelStmt); ok && !referenced[lbl.Label] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func referencedLabels(stmts []tree.Stmt) map[temp.Label]bool {
	refs := make(map[temp.Label]bool)
	for _, s := range stmts {
		switch s := s.(type) {
		case tree.Jump:
			for _, l := range s.Targets {
				refs[l] = true
			}
		case tree.CJump:
			refs[s.True] = true
			refs[s.False] = true
		}
	}
	return refs
}
