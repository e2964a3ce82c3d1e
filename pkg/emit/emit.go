// Package emit turns a colored instruction stream into textual
// assembly (spec.md §4.9): it resolves every abstract-temporary
// template's 's'/'d'/'j' positional placeholders against the final
// temp map, synthesizes each procedure's raw entry/exit sequence from
// its now-final frame size, and prints the data and code sections in
// the order spec.md §184 requires. Section ordering and the
// `.align`/`.global`/`.type`/`.size` directive style are ported from the
// teacher's pkg/asm/printer.go PrintProgram/printFunction; that printer's
// Darwin-vs-Linux symbolName split is dropped since this target declares
// one fixed ISA (SPEC_FULL.md §6), not a host-dependent one. The raw
// prologue/epilogue byte sequences are ported from
// pkg/stacking/prolog.go's GeneratePrologue/GenerateEpilogue, collapsed
// straight to text since this pipeline has no separate Mach-level
// instruction IR to build them as.
package emit

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tigerback/tigerc/pkg/assem"
	"github.com/tigerback/tigerc/pkg/frame"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/regalloc"
	"github.com/tigerback/tigerc/pkg/temp"
)

// RegOf resolves the concrete register t is finally bound to: an
// ordinary temp through result's coloring, a fixed-purpose one through
// pre. Every temp reaching this point must resolve to one or the other
// (spec.md §3.7's invariant that every emitted temporary is either
// pre-colored or mapped); a miss is an allocator bug, not a user error.
func RegOf(t temp.Temp, result *regalloc.Result, pre *machine.Precolored) machine.Reg {
	if r, ok := result.Colors[t]; ok {
		return r
	}
	if r, ok := pre.Reg(t); ok {
		return r
	}
	panic(fmt.Sprintf("emit: temp %d has no color and is not pre-colored", t))
}

func regStrings(ts []temp.Temp, result *regalloc.Result, pre *machine.Precolored) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(RegOf(t, result, pre))
	}
	return out
}

func labelStrings(ls []temp.Label, factory *temp.Factory) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = factory.String(l)
	}
	return out
}

// Substitute resolves every 's<N>', 'd<N>', and 'j<N>' positional marker
// in tmpl against uses, defs, and jumps respectively (spec.md §3.5).
func Substitute(tmpl string, uses, defs, jumps []string) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '\'' || i+1 >= len(tmpl) {
			b.WriteByte(c)
			continue
		}
		kind := tmpl[i+1]
		var pool []string
		switch kind {
		case 's':
			pool = uses
		case 'd':
			pool = defs
		case 'j':
			pool = jumps
		default:
			b.WriteByte(c)
			continue
		}
		j := i + 2
		for j < len(tmpl) && tmpl[j] >= '0' && tmpl[j] <= '9' {
			j++
		}
		if j == i+2 {
			b.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(tmpl[i+2 : j])
		if n >= len(pool) {
			panic(fmt.Sprintf("emit: template %q references '%c%d with only %d available", tmpl, kind, n, len(pool)))
		}
		b.WriteString(pool[n])
		i = j - 1
	}
	return b.String()
}

// Text renders one instruction as a line (or lines) of assembly.
func Text(i assem.Instr, result *regalloc.Result, pre *machine.Precolored, factory *temp.Factory) string {
	switch instr := i.(type) {
	case assem.Lbl:
		return instr.Template + "\n"
	case assem.Move:
		uses := []string{string(RegOf(instr.Src, result, pre))}
		defs := []string{string(RegOf(instr.Dst, result, pre))}
		return "\t" + Substitute(instr.Template, uses, defs, nil) + "\n"
	case assem.Oper:
		uses := regStrings(instr.Src, result, pre)
		defs := regStrings(instr.Dst, result, pre)
		jumps := labelStrings(instr.JumpTargets, factory)
		return "\t" + Substitute(instr.Template, uses, defs, jumps) + "\n"
	default:
		panic(fmt.Sprintf("emit: unknown instruction type %T", i))
	}
}

// Prologue synthesizes fr's raw entry sequence directly from its final
// FrameSize: allocate the stack frame, save the caller's FP/LR pair,
// establish this frame's own FP, then save every callee-saved register
// ReserveCalleeSave reserved after allocation.
func Prologue(fr *frame.Frame) string {
	isa := fr.ISA()
	size := fr.FrameSize()
	fpOffset := size - 16

	var b strings.Builder
	if size > 0 {
		fmt.Fprintf(&b, "\tsub\t%s, %s, #%d\n", isa.SP, isa.SP, size)
	}
	fmt.Fprintf(&b, "\tstp\t%s, %s, [%s, #%d]\n", isa.FP, isa.LR, isa.SP, fpOffset)
	fmt.Fprintf(&b, "\tadd\t%s, %s, #%d\n", isa.FP, isa.SP, fpOffset)
	for _, slot := range fr.CalleeSavedSlots() {
		fmt.Fprintf(&b, "\tstr\t%s, [%s, #%d]\n", slot.Reg, isa.FP, slot.Offset)
	}
	return b.String()
}

// Epilogue synthesizes fr's raw exit sequence: restore every
// callee-saved register (in reverse order), restore the caller's FP/LR
// pair, deallocate the stack frame, and return.
func Epilogue(fr *frame.Frame) string {
	isa := fr.ISA()
	size := fr.FrameSize()
	fpOffset := size - 16

	var b strings.Builder
	slots := fr.CalleeSavedSlots()
	for i := len(slots) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\tldr\t%s, [%s, #%d]\n", slots[i].Reg, isa.FP, slots[i].Offset)
	}
	fmt.Fprintf(&b, "\tldp\t%s, %s, [%s, #%d]\n", isa.FP, isa.LR, isa.SP, fpOffset)
	if size > 0 {
		fmt.Fprintf(&b, "\tadd\t%s, %s, #%d\n", isa.SP, isa.SP, size)
	}
	b.WriteString("\tret\n")
	return b.String()
}

// StringUnit is one string-literal fragment ready to print: a label and
// its literal bytes, with no escape interpretation (spec.md §3.7).
type StringUnit struct {
	Label temp.Label
	Value string
}

// ProcUnit is one procedure ready to print: its frame (final FrameSize
// and CalleeSavedSlots already settled) and its fully colored
// instruction stream.
type ProcUnit struct {
	Frame  *frame.Frame
	Instrs []assem.Instr
	Result *regalloc.Result
}

// Printer writes a complete program's assembly text.
type Printer struct {
	w       io.Writer
	pre     *machine.Precolored
	factory *temp.Factory
}

// NewPrinter creates a Printer writing to w; pre and factory resolve
// pre-colored registers and label names respectively, and must be the
// same ones the compiled fragments were built against.
func NewPrinter(w io.Writer, pre *machine.Precolored, factory *temp.Factory) *Printer {
	return &Printer{w: w, pre: pre, factory: factory}
}

// PrintProgram writes the data header, one labeled string literal per
// strs, the code header, and one assembly procedure per procs, in that
// order (spec.md §184).
func (p *Printer) PrintProgram(strs []StringUnit, procs []ProcUnit) {
	if len(strs) > 0 {
		fmt.Fprintln(p.w, "\t.data")
		for _, s := range strs {
			p.printString(s)
		}
	}

	fmt.Fprintln(p.w, "\t.text")
	for _, unit := range procs {
		p.printProcedure(unit)
	}
}

func (p *Printer) printString(s StringUnit) {
	io.WriteString(p.w, frame.RenderStringFragment(p.factory, s.Label, s.Value))
}

func (p *Printer) printProcedure(unit ProcUnit) {
	name := p.factory.String(unit.Frame.Label)
	fmt.Fprintf(p.w, "\t.align\t2\n\t.global\t%s\n\t.type\t%s, %%function\n%s:\n", name, name, name)
	io.WriteString(p.w, Prologue(unit.Frame))
	for _, instr := range unit.Instrs {
		io.WriteString(p.w, Text(instr, unit.Result, p.pre, p.factory))
	}
	io.WriteString(p.w, Epilogue(unit.Frame))
	fmt.Fprintf(p.w, "\t.size\t%s, .-%s\n", name, name)
}
