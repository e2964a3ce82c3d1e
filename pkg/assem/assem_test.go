package assem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tigerback/tigerc/pkg/temp"
)

func TestOperUsesAndDefs(t *testing.T) {
	i := Oper{Template: "add 'd0, 's0, 's1", Dst: []temp.Temp{1}, Src: []temp.Temp{2, 3}}
	if diff := cmp.Diff([]temp.Temp{2, 3}, i.Uses()); diff != "" {
		t.Errorf("Uses() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]temp.Temp{1}, i.Defs()); diff != "" {
		t.Errorf("Defs() mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveUsesAndDefs(t *testing.T) {
	m := Move{Template: "mov 'd0, 's0", Dst: 1, Src: 2}
	if diff := cmp.Diff([]temp.Temp{2}, m.Uses()); diff != "" {
		t.Errorf("Uses() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]temp.Temp{1}, m.Defs()); diff != "" {
		t.Errorf("Defs() mismatch (-want +got):\n%s", diff)
	}
}

func TestLblHasNoUsesOrDefs(t *testing.T) {
	l := Lbl{Template: "L1:", Label: 1}
	if l.Uses() != nil || l.Defs() != nil {
		t.Errorf("Lbl should have no uses/defs, got uses=%v defs=%v", l.Uses(), l.Defs())
	}
}

func TestIsFallThrough(t *testing.T) {
	fall := Oper{Template: "nop"}
	jump := Oper{Template: "b 'j0", JumpTargets: []temp.Label{1}}
	mv := Move{Template: "mov 'd0, 's0"}

	if !IsFallThrough(fall) {
		t.Error("Oper with nil JumpTargets should be fall-through")
	}
	if IsFallThrough(jump) {
		t.Error("Oper with JumpTargets should not be fall-through")
	}
	if !IsFallThrough(mv) {
		t.Error("Move should always be fall-through")
	}
}

func TestIsFallThroughConditionalBranchFallsThroughToo(t *testing.T) {
	cond := Oper{Template: "b.lt 'j0", JumpTargets: []temp.Label{1}, Conditional: true}
	if !IsFallThrough(cond) {
		t.Error("a conditional branch should still be fall-through when untaken")
	}
	if JumpTargets(cond) == nil {
		t.Error("a conditional branch should still report its jump target")
	}
}

func TestJumpTargets(t *testing.T) {
	jump := Oper{Template: "cbz 's0, 'j0", JumpTargets: []temp.Label{1, 2}}
	if diff := cmp.Diff([]temp.Label{1, 2}, JumpTargets(jump)); diff != "" {
		t.Errorf("JumpTargets mismatch (-want +got):\n%s", diff)
	}
	if got := JumpTargets(Move{}); got != nil {
		t.Errorf("JumpTargets(Move) = %v, want nil", got)
	}
}
