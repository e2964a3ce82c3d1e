// Package fragment implements the append-only fragment manager a
// front-end hands its output through (spec.md §3.7, §176): a procedure
// body plus its frame, or a string literal plus its label, accumulated
// in the order the front-end produces them and drained exactly once, in
// that same order, once the front-end has finished. Grounded on the
// original compile.py's FragmentManager.get_fragments() (append during
// translation, drain once at the start of backend proper) and shaped
// like the teacher's pkg/rtl.Program, whose Globals/Functions are
// likewise two parallel slices of translation units collected before a
// single downstream pass consumes them.
package fragment

import (
	"github.com/tigerback/tigerc/pkg/frame"
	"github.com/tigerback/tigerc/pkg/temp"
	"github.com/tigerback/tigerc/pkg/tree"
)

// Fragment is one unit of front-end output: either a procedure body
// (ProcFragment) or a string literal (StringFragment).
type Fragment interface{ fragmentNode() }

// ProcFragment is one procedure's un-canonicalized body, paired with the
// Frame describing its formals, locals, and escapes.
type ProcFragment struct {
	Body  tree.Stmt
	Frame *frame.Frame
}

// StringFragment is a string literal's bytes, to be emitted verbatim
// into the data section under Label; no escape interpretation is
// performed on Value, matching spec.md §3.7.
type StringFragment struct {
	Label temp.Label
	Value string
}

func (ProcFragment) fragmentNode()   {}
func (StringFragment) fragmentNode() {}

// Manager accumulates fragments in submission order and hands them out
// exactly once. A front-end calls AddProc/AddString as it translates
// each declaration; the backend calls Drain a single time once
// translation is complete (spec.md §176: "no interleaving").
type Manager struct {
	fragments []Fragment
	drained   bool
}

// New returns an empty Manager.
func New() *Manager { return &Manager{} }

// AddProc appends a procedure fragment.
func (m *Manager) AddProc(body tree.Stmt, fr *frame.Frame) {
	m.fragments = append(m.fragments, ProcFragment{Body: body, Frame: fr})
}

// AddString appends a string-literal fragment.
func (m *Manager) AddString(label temp.Label, value string) {
	m.fragments = append(m.fragments, StringFragment{Label: label, Value: value})
}

// Drain returns every fragment submitted so far, in submission order,
// and marks the manager drained. Calling Drain a second time panics:
// the fragment log is meant to be read exactly once, after the
// front-end has finished, never interleaved with further submissions.
func (m *Manager) Drain() []Fragment {
	if m.drained {
		panic("fragment: Manager drained twice")
	}
	m.drained = true
	return m.fragments
}
