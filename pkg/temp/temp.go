// Package temp mints fresh temporaries and labels for one compilation.
//
// A Temp is an abstract, infinite-supply register name; a Label is a
// globally unique code-address name that may additionally carry a
// user-given string (entry points of named procedures, string constants).
// Both are produced by a Factory scoped to a single compilation rather
// than a package-level singleton, so that running the backend twice in
// the same process (e.g. from tests) never shares mutable counter state.
package temp

import "fmt"

// Temp is an abstract pre-allocation register name.
type Temp int

// Label is a globally unique code-address name.
type Label int

// Factory mints fresh Temps and Labels and remembers user-given Label
// names for printing. It is not safe for concurrent use; the backend is
// single-threaded (spec.md §5).
type Factory struct {
	nextTemp  Temp
	nextLabel Label
	names     map[Label]string
}

// NewFactory creates a Factory seeded once per compilation.
func NewFactory() *Factory {
	return &Factory{names: make(map[Label]string)}
}

// NewTemp returns a fresh, never-before-returned Temp.
func (f *Factory) NewTemp() Temp {
	f.nextTemp++
	return f.nextTemp
}

// NewLabel returns a fresh Label with no user-given name.
func (f *Factory) NewLabel() Label {
	f.nextLabel++
	return f.nextLabel
}

// NamedLabel returns a fresh Label and records name as its user-visible
// spelling (e.g. a procedure entry point or a string-literal symbol).
func (f *Factory) NamedLabel(name string) Label {
	l := f.NewLabel()
	f.names[l] = name
	return l
}

// String renders a Label the way it should appear in emitted assembly:
// its user-given name if one was recorded, otherwise a synthesized local
// label of the form ".L7".
func (f *Factory) String(l Label) string {
	if name, ok := f.names[l]; ok {
		return name
	}
	return fmt.Sprintf(".L%d", int(l))
}
