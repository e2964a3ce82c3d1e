package trace

import (
	"testing"

	"github.com/tigerback/tigerc/pkg/block"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

func lastCJump(stmts []tree.Stmt) (tree.CJump, int) {
	for i, s := range stmts {
		if cj, ok := s.(tree.CJump); ok {
			return cj, i
		}
	}
	return tree.CJump{}, -1
}

// everyCJumpFallsThroughToFalse checks the core scheduling invariant:
// the label immediately following a CJump is always its False target.
func everyCJumpFallsThroughToFalse(t *testing.T, stmts []tree.Stmt) {
	t.Helper()
	for i, s := range stmts {
		cj, ok := s.(tree.CJump)
		if !ok {
			continue
		}
		if i+1 >= len(stmts) {
			t.Fatalf("CJump at end of statement list with no fallthrough successor: %#v", cj)
		}
		next, ok := stmts[i+1].(tree.LabelStmt)
		if !ok {
			t.Fatalf("statement after CJump is not a label: %#v", stmts[i+1])
		}
		if next.Label != cj.False {
			t.Errorf("CJump fallthrough label = %v, want False = %v", next.Label, cj.False)
		}
	}
}

func TestScheduleFallsThroughWhenFalseAlreadyNext(t *testing.T) {
	f := temp.NewFactory()
	lTrue, lFalse := f.NewLabel(), f.NewLabel()
	stmts := []tree.Stmt{
		tree.CJump{Op: tree.Eq, Left: tree.Const{Value: 1}, Right: tree.Const{Value: 1}, True: lTrue, False: lFalse},
		tree.LabelStmt{Label: lFalse},
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
		tree.LabelStmt{Label: lTrue},
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 2}},
	}
	bs := block.Build(stmts, f)
	out := Schedule(bs, f)
	everyCJumpFallsThroughToFalse(t, out)
}

func TestScheduleMaintainsInvariantAcrossABranchingLoop(t *testing.T) {
	f := temp.NewFactory()
	lA, lB := f.NewLabel(), f.NewLabel()
	stmts := []tree.Stmt{
		tree.LabelStmt{Label: f.NamedLabel("entry")},
		tree.CJump{Op: tree.Lt, Left: tree.Const{Value: 1}, Right: tree.Const{Value: 2}, True: lA, False: lB},
		tree.LabelStmt{Label: lB},
		tree.Jump{Target: tree.Name{Label: lA}, Targets: []temp.Label{lA}},
		tree.LabelStmt{Label: lA},
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
	}
	bs := block.Build(stmts, f)
	out := Schedule(bs, f)
	everyCJumpFallsThroughToFalse(t, out)
}

func TestScheduleEndsWithDoneLabel(t *testing.T) {
	f := temp.NewFactory()
	stmts := []tree.Stmt{
		tree.Move{Dst: tree.TempExpr{Temp: f.NewTemp()}, Src: tree.Const{Value: 1}},
	}
	bs := block.Build(stmts, f)
	out := Schedule(bs, f)
	last, ok := out[len(out)-1].(tree.LabelStmt)
	if !ok || last.Label != bs.Done {
		t.Errorf("last statement = %#v, want Label(%v)", out[len(out)-1], bs.Done)
	}
}

func TestTunnelRetargetsThroughRelayBlock(t *testing.T) {
	lStart, lRelay, lReal := temp.Label(1), temp.Label(2), temp.Label(3)
	stmts := []tree.Stmt{
		tree.LabelStmt{Label: lStart},
		tree.Jump{Target: tree.Name{Label: lRelay}, Targets: []temp.Label{lRelay}},
		tree.LabelStmt{Label: lRelay},
		tree.Jump{Target: tree.Name{Label: lReal}, Targets: []temp.Label{lReal}},
		tree.LabelStmt{Label: lReal},
		tree.Move{Dst: tree.TempExpr{Temp: 10}, Src: tree.Const{Value: 1}},
	}
	out := Tunnel(stmts)
	jmp := out[1].(tree.Jump)
	if jmp.Targets[0] != lReal {
		t.Errorf("Tunnel left jump targeting %v, want direct jump to %v", jmp.Targets[0], lReal)
	}
}

func TestFixupCJumpsNegatesWhenTrueIsNext(t *testing.T) {
	f := temp.NewFactory()
	lA, lB, lDone := f.NewLabel(), f.NewLabel(), f.NewLabel()
	cjBlock := []tree.Stmt{
		tree.LabelStmt{Label: f.NamedLabel("b0")},
		tree.CJump{Op: tree.Lt, Left: tree.Const{Value: 1}, Right: tree.Const{Value: 2}, True: lA, False: lB},
	}
	trueBlock := []tree.Stmt{tree.LabelStmt{Label: lA}, tree.Jump{Target: tree.Name{Label: lDone}, Targets: []temp.Label{lDone}}}

	fixed := fixupCJumps([][]tree.Stmt{cjBlock, trueBlock}, lDone, f)
	cj := fixed[0][len(fixed[0])-1].(tree.CJump)
	if cj.False != lA {
		t.Errorf("negated CJump.False = %v, want %v (the now-adjacent block)", cj.False, lA)
	}
	if cj.Op != tree.Ge {
		t.Errorf("negated CJump.Op = %v, want Ge (negation of Lt)", cj.Op)
	}
}

func TestFixupCJumpsInsertsRelayWhenNeitherTargetIsNext(t *testing.T) {
	f := temp.NewFactory()
	lA, lB, lDone := f.NewLabel(), f.NewLabel(), f.NewLabel()
	cjBlock := []tree.Stmt{
		tree.LabelStmt{Label: f.NamedLabel("b0")},
		tree.CJump{Op: tree.Eq, Left: tree.Const{Value: 1}, Right: tree.Const{Value: 1}, True: lA, False: lB},
	}
	unrelatedBlock := []tree.Stmt{tree.LabelStmt{Label: f.NamedLabel("unrelated")}, tree.Jump{Target: tree.Name{Label: lDone}, Targets: []temp.Label{lDone}}}

	fixed := fixupCJumps([][]tree.Stmt{cjBlock, unrelatedBlock}, lDone, f)
	if len(fixed) != 3 {
		t.Fatalf("expected a synthetic relay block inserted, got %d blocks", len(fixed))
	}
	cj := fixed[0][len(fixed[0])-1].(tree.CJump)
	relayLabel := fixed[1][0].(tree.LabelStmt).Label
	if cj.False != relayLabel {
		t.Errorf("CJump.False = %v, want synthetic relay label %v", cj.False, relayLabel)
	}
	relayJump := fixed[1][1].(tree.Jump)
	if relayJump.Targets[0] != lB {
		t.Errorf("relay block jumps to %v, want original False target %v", relayJump.Targets[0], lB)
	}
}

func TestRemoveUnreferencedLabelsDropsDeadLabels(t *testing.T) {
	stmts := []tree.Stmt{
		tree.LabelStmt{Label: 1},
		tree.Jump{Target: tree.Name{Label: 3}, Targets: []temp.Label{3}},
		tree.LabelStmt{Label: 2}, // never referenced
		tree.Move{Dst: tree.TempExpr{Temp: 10}, Src: tree.Const{Value: 1}},
		tree.LabelStmt{Label: 3},
	}
	out := RemoveUnreferencedLabels(stmts)
	for _, s := range out {
		if lbl, ok := s.(tree.LabelStmt); ok && lbl.Label == 2 {
			t.Error("unreferenced label 2 should have been removed")
		}
	}
}
