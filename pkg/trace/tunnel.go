package trace

import (
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Tunnel retargets every Jump/CJump that points at a label whose block is
// nothing but an unconditional jump elsewhere, following such chains
// transitively. This never changes which code actually runs; it only
// removes an extra hop through a trivial relay block. A CJump's False
// target is left as is, since that label must stay physically next.
func Tunnel(stmts []tree.Stmt) []tree.Stmt {
	relay := trivialRelays(stmts)
	if len(relay) == 0 {
		return stmts
	}

	redirect := make(map[temp.Label]temp.Label, len(relay))
	for l := range relay {
		redirect[l] = ultimate(l, relay)
	}

	out := make([]tree.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = retarget(s, redirect)
	}
	return out
}

// trivialRelays finds every label whose entire block is exactly
// [Label(L), Jump(Name(L2))], mapping L to L2.
func trivialRelays(stmts []tree.Stmt) map[temp.Label]temp.Label {
	relay := make(map[temp.Label]temp.Label)
	for i := 0; i+1 < len(stmts); i++ {
		lbl, ok := stmts[i].(tree.LabelStmt)
		if !ok {
			continue
		}
		jmp, ok := stmts[i+1].(tree.Jump)
		if !ok || len(jmp.Targets) != 1 {
			continue
		}
		if i+2 < len(stmts) {
			if _, isLabel := stmts[i+2].(tree.LabelStmt); !isLabel {
				continue
			}
		}
		relay[lbl.Label] = jmp.Targets[0]
	}
	return relay
}

// ultimate follows a relay chain to its end, guarding against cycles
// (a jump-only block that ultimately loops back to itself is left as is).
func ultimate(l temp.Label, relay map[temp.Label]temp.Label) temp.Label {
	seen := map[temp.Label]bool{}
	cur := l
	for {
		next, ok := relay[cur]
		if !ok || next == l || seen[next] {
			return cur
		}
		seen[cur] = true
		cur = next
	}
}

func retarget(s tree.Stmt, redirect map[temp.Label]temp.Label) tree.Stmt {
	switch s := s.(type) {
	case tree.Jump:
		if len(s.Targets) != 1 {
			return s
		}
		if to, ok := redirect[s.Targets[0]]; ok {
			return tree.Jump{Target: tree.Name{Label: to}, Targets: []temp.Label{to}}
		}
		return s
	case tree.CJump:
		newTrue, trueOK := redirect[s.True]
		if !trueOK {
			return s
		}
		return tree.CJump{Op: s.Op, Left: s.Left, Right: s.Right, True: newTrue, False: s.False}
	default:
		return s
	}
}
