// Package tigerc is the single pipeline entry point a front-end calls
// once it has finished submitting fragments (spec.md §1, §3.7): drain
// the fragment manager, and for every ProcFragment run
// canonicalization, basic-block building, trace scheduling, maximal-munch
// instruction selection, and iterated-coalescing register allocation to a
// fixed point, then print the whole program's assembly text with every
// StringFragment's data ahead of every procedure's code. Grounded on the
// original compile.py's main(): canonize all -> codegen all ->
// sink+allocate+emit per fragment in order, minus every front-end phase
// (lexing, parsing, semantic analysis, dump flags), which spec.md's
// Non-goals place out of scope.
package tigerc

import (
	"io"
	"log"

	"github.com/tigerback/tigerc/pkg/block"
	"github.com/tigerback/tigerc/pkg/canon"
	"github.com/tigerback/tigerc/pkg/codegen"
	"github.com/tigerback/tigerc/pkg/emit"
	"github.com/tigerback/tigerc/pkg/fragment"
	"github.com/tigerback/tigerc/pkg/frame"
	"github.com/tigerback/tigerc/pkg/machine"
	"github.com/tigerback/tigerc/pkg/regalloc"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/trace"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Compile drains mgr and writes the assembled program to out. factory
// must be the same Factory the front-end minted mgr's temps and labels
// from, so label names and pre-colored register bindings stay
// consistent across every fragment. logger receives two lines per
// procedure compiled; pass log.New(io.Discard, "", 0) to silence it.
func Compile(mgr *fragment.Manager, isa machine.ISA, factory *temp.Factory, out io.Writer, logger *log.Logger) {
	pre := machine.NewPrecolored(isa)

	var strs []emit.StringUnit
	var procs []emit.ProcUnit

	for _, frag := range mgr.Drain() {
		switch f := frag.(type) {
		case fragment.StringFragment:
			strs = append(strs, emit.StringUnit{Label: f.Label, Value: f.Value})

		case fragment.ProcFragment:
			procs = append(procs, compileProc(f, isa, pre, factory, logger))

		default:
			panic("tigerc: unknown fragment type")
		}
	}

	emit.NewPrinter(out, pre, factory).PrintProgram(strs, procs)
}

// compileProc runs one procedure through the full backend pipeline.
func compileProc(f fragment.ProcFragment, isa machine.ISA, pre *machine.Precolored, factory *temp.Factory, logger *log.Logger) emit.ProcUnit {
	name := factory.String(f.Frame.Label)
	logger.Printf("compiling procedure %s", name)

	body := tree.Seq(append(f.Frame.ViewShiftPrologue(), f.Body)...)
	canonical := canon.Canonize(body, factory)
	blocks := block.Build(canonical, factory)
	scheduled := trace.Schedule(blocks, factory)

	instrs := codegen.New(isa, factory).Munch(scheduled)
	instrs = append(instrs, f.Frame.SinkOper())
	colored, result := regalloc.Allocate(instrs, isa, pre, factory, f.Frame)
	colored = frame.DropSinkOper(colored)

	reserveCalleeSaved(f.Frame, isa, pre, result)

	logger.Printf("procedure %s: %d instructions, %d spilled temps", name, len(colored), len(result.Spilled))
	return emit.ProcUnit{Frame: f.Frame, Instrs: colored, Result: result}
}

// reserveCalleeSaved tells fr about every callee-saved register the
// allocator actually colored a temp to, so pkg/emit's Prologue/Epilogue
// save and restore exactly (and only) the registers this procedure
// disturbs.
func reserveCalleeSaved(fr *frame.Frame, isa machine.ISA, pre *machine.Precolored, result *regalloc.Result) {
	for _, r := range result.Colors {
		if isa.IsCalleeSaved(r) {
			fr.ReserveCalleeSave(pre.Temp(r))
		}
	}
}
