package emit

import (
	"strings"
	"testing"

	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/frame"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/regalloc"
	"github.com/tigerback/tigerc/pkg/temp"
)

func TestSubstituteResolvesAllThreeMarkerKinds(t *testing.T) {
	got := Substitute("add 'd0, 's0, 's1 ; 'j0", []string{"x9", "x10"}, []string{"x11"}, []string{".L3"})
	want := "add x11, x9, x10 ; .L3"
	if got != want {
		t.Errorf("Substitute() = %q, want %q", got, want)
	}
}

func TestSubstitutePassesThroughUnmatchedQuotes(t *testing.T) {
	got := Substitute("it's fine 'd0", nil, []string{"x0"}, nil)
	if got != "it's fine x0" {
		t.Errorf("Substitute() = %q, want literal apostrophe preserved", got)
	}
}

func TestSubstitutePanicsOnOutOfRangeIndex(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for an out-of-range marker index")
		}
	}()
	Substitute("mov 'd0, 's1", []string{"x0"}, []string{"x1"}, nil)
}

func TestTextRendersOperWithResolvedRegisters(t *testing.T) {
	isa := machine.AArch64
	pre := machine.NewPrecolored(isa)
	factory := temp.NewFactory()
	result := &regalloc.Result{Colors: map[temp.Temp]machine.Reg{1: "x9", 2: "x10", 3: "x11"}}

	instr := assem.Oper{Template: "add 'd0, 's0, 's1", Dst: []temp.Temp{3}, Src: []temp.Temp{1, 2}}
	got := Text(instr, result, pre, factory)
	if got != "\tadd x11, x9, x10\n" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTextRendersLabelVerbatim(t *testing.T) {
	factory := temp.NewFactory()
	l := factory.NamedLabel("loop_top")
	got := Text(assem.Lbl{Template: "loop_top:", Label: l}, nil, nil, factory)
	if got != "loop_top:\n" {
		t.Errorf("Text() = %q, want unindented label line", got)
	}
}

func TestPrologueAndEpilogueAreSymmetric(t *testing.T) {
	isa := machine.AArch64
	pre := machine.NewPrecolored(isa)
	factory := temp.NewFactory()
	fr := frame.New(factory.NewLabel(), nil, isa, factory)
	fr.AllocLocal(true)
	fr.ReserveCalleeSave(pre.Temp("x19"))

	pro := Prologue(fr)
	epi := Epilogue(fr)

	if !strings.Contains(pro, "str\tx19") {
		t.Errorf("Prologue() missing callee-save of x19: %q", pro)
	}
	if !strings.Contains(epi, "ldr\tx19") {
		t.Errorf("Epilogue() missing callee-restore of x19: %q", epi)
	}
	if !strings.HasSuffix(epi, "\tret\n") {
		t.Errorf("Epilogue() must end with ret, got %q", epi)
	}
	if !strings.Contains(pro, "sub\tsp, sp") {
		t.Errorf("Prologue() missing stack allocation: %q", pro)
	}
	if !strings.Contains(epi, "add\tsp, sp") {
		t.Errorf("Epilogue() missing stack deallocation: %q", epi)
	}
}

func TestPrintProgramOrdersDataThenCode(t *testing.T) {
	isa := machine.AArch64
	pre := machine.NewPrecolored(isa)
	factory := temp.NewFactory()
	fr := frame.New(factory.NewLabel(), nil, isa, factory)

	strs := []StringUnit{{Label: factory.NamedLabel(".LC0"), Value: "hi"}}
	result := &regalloc.Result{Colors: map[temp.Temp]machine.Reg{1: "x9"}}
	instrs := []assem.Instr{assem.Oper{Template: "mov 'd0, #1", Dst: []temp.Temp{1}}}
	procs := []ProcUnit{{Frame: fr, Instrs: instrs, Result: result}}

	var out strings.Builder
	NewPrinter(&out, pre, factory).PrintProgram(strs, procs)
	text := out.String()

	dataIdx := strings.Index(text, ".data")
	stringIdx := strings.Index(text, ".LC0:")
	textIdx := strings.Index(text, "\t.text")
	procIdx := strings.Index(text, "mov x9, #1")

	if dataIdx < 0 || stringIdx < 0 || textIdx < 0 || procIdx < 0 {
		t.Fatalf("PrintProgram() missing expected section, got:\n%s", text)
	}
	if !(dataIdx < stringIdx && stringIdx < textIdx && textIdx < procIdx) {
		t.Errorf("PrintProgram() sections out of order, got:\n%s", text)
	}
}

func TestPrintProgramOmitsDataSectionWhenNoStrings(t *testing.T) {
	isa := machine.AArch64
	pre := machine.NewPrecolored(isa)
	factory := temp.NewFactory()

	var out strings.Builder
	NewPrinter(&out, pre, factory).PrintProgram(nil, nil)
	if strings.Contains(out.String(), ".data") {
		t.Errorf("PrintProgram() should omit the data header with no string fragments, got:\n%s", out.String())
	}
}
