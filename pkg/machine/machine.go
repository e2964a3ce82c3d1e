// Package machine declares the fixed ISA and calling convention the
// backend targets (spec.md §6). It is data, not policy: every other
// package consults an *ISA value instead of hard-coding register names.
package machine

import "github.com/tigerback/tigerc/pkg/temp"

// Reg is a concrete machine register name, e.g. "x9" or "sp".
type Reg string

// ISA bundles the ISA/ABI facts the spec requires a backend to declare.
type ISA struct {
	WordSize  int // bytes per word
	StackDown bool // true: stack grows toward lower addresses
	StackAlign int // required stack-pointer alignment, in bytes

	SP Reg // stack pointer
	FP Reg // frame pointer
	LR Reg // return-address / link register
	RV Reg // return-value register

	ArgRegs []Reg // integer argument registers, in order

	CallerSaved []Reg // caller-saved, allocatable
	CalleeSaved []Reg // callee-saved, allocatable
	Reserved    []Reg // fixed-purpose registers never handed to the allocator
}

// Allocatable returns every register the allocator may color a temp with,
// caller-saved first, so a spill-free allocation prefers caller-saved
// registers (spec.md's Briggs/George coalescing builds on this ordering).
func (m ISA) Allocatable() []Reg {
	all := make([]Reg, 0, len(m.CallerSaved)+len(m.CalleeSaved))
	all = append(all, m.CallerSaved...)
	all = append(all, m.CalleeSaved...)
	return all
}

// K is the count of allocatable machine registers (spec.md §6, §4.7).
func (m ISA) K() int { return len(m.CallerSaved) + len(m.CalleeSaved) }

// FirstCalleeSavedColor is the color index (into Allocatable()) at which
// callee-saved registers begin. A temp live across a Call must be colored
// at or past this index, or spilled.
func (m ISA) FirstCalleeSavedColor() int { return len(m.CallerSaved) }

// IsCalleeSaved reports whether r is one of the ISA's callee-saved
// registers.
func (m ISA) IsCalleeSaved(r Reg) bool {
	for _, c := range m.CalleeSaved {
		if c == r {
			return true
		}
	}
	return false
}

// AArch64 is the declared target ISA (SPEC_FULL.md §6): a deliberately
// shrunk AArch64, with fewer callee-saved registers than the real ABI so
// that a modest test fixture can force the allocator's spill path.
var AArch64 = ISA{
	WordSize:   8,
	StackDown:  true,
	StackAlign: 16,

	SP: "sp",
	FP: "x29",
	LR: "x30",
	RV: "x0",

	ArgRegs: []Reg{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"},

	CallerSaved: []Reg{"x9", "x10", "x11", "x12", "x13", "x14", "x15"},
	CalleeSaved: []Reg{"x19", "x20", "x21", "x22", "x23"},
	Reserved:    []Reg{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7", "x16", "x17", "x29", "x30", "sp"},
}

// Precolored binds every register an ISA names to a fixed Temp, so the
// frame and instruction-selection passes can refer to "the SP register"
// or "argument register 2" as an ordinary Temp the way any virtual
// register is referred to, and the register allocator can recognize
// those specific temps as already colored. Precolored temps are negative
// and therefore can never collide with a Factory's (always positive)
// virtual temps.
type Precolored struct {
	toTemp map[Reg]temp.Temp
	toReg  map[temp.Temp]Reg
}

// NewPrecolored builds the Temp<->Reg binding for every register m
// names (SP, FP, LR, RV, ArgRegs, CallerSaved, CalleeSaved, Reserved).
func NewPrecolored(m ISA) *Precolored {
	p := &Precolored{toTemp: make(map[Reg]temp.Temp), toReg: make(map[temp.Temp]Reg)}
	all := []Reg{m.SP, m.FP, m.LR, m.RV}
	all = append(all, m.ArgRegs...)
	all = append(all, m.CallerSaved...)
	all = append(all, m.CalleeSaved...)
	all = append(all, m.Reserved...)
	next := temp.Temp(-1)
	for _, r := range all {
		if _, ok := p.toTemp[r]; ok {
			continue
		}
		p.toTemp[r] = next
		p.toReg[next] = r
		next--
	}
	return p
}

// Temp returns the fixed Temp bound to r.
func (p *Precolored) Temp(r Reg) temp.Temp { return p.toTemp[r] }

// Reg returns the register t is bound to, or "", false if t is not
// precolored.
func (p *Precolored) Reg(t temp.Temp) (Reg, bool) {
	r, ok := p.toReg[t]
	return r, ok
}

// IsPrecolored reports whether t is bound to a fixed machine register.
func (p *Precolored) IsPrecolored(t temp.Temp) bool {
	_, ok := p.toReg[t]
	return ok
}
