// Package resolver runs between parsing and compiling: it classifies every
// identifier use as Global (module-level) or Local (function-level) and
// assigns each a slot, supplying the scope-kind machinery that §4.3's
// DefineGlobal/GetGlobal/SetGlobal/GetLocal/SetLocal opcodes presuppose.
//
// Unlike the teacher's resolver (which additionally tracks Cell/Free scopes
// to support closures capturing enclosing locals, see binding.go in
// mna-nenuphar), R+ functions do not close over their enclosing scope: a
// free identifier inside a function body that is not a parameter or local
// resolves to Global. This keeps the scope model to the two kinds the
// compiler's opcode table actually names.
package resolver

import "fmt"

// Scope indicates where a Binding's storage lives.
type Scope uint8

const (
	Undefined Scope = iota // name is not defined
	Global                 // name is module-level
	Local                  // name is local to the enclosing function
)

var scopeNames = [...]string{
	Undefined: "undefined",
	Global:    "global",
	Local:     "local",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// Binding records where a single identifier declaration lives.
type Binding struct {
	Scope Scope
	Slot  int // index into the owning function's Locals, or the global table
	Name  string
}

// Function collects the locals of a single function body (or the module's
// top-level code, treated as an implicit function with no parameters) during
// resolution.
type Function struct {
	Name   string     // display name, possibly synthetic for lambdas
	Locals []*Binding // parameters first, then declared locals, in slot order
}

// Lookup returns the binding for name among this function's locals, or nil.
func (f *Function) Lookup(name string) *Binding {
	for _, b := range f.Locals {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Declare appends a new Local binding for name, allocating the next slot.
func (f *Function) Declare(name string) *Binding {
	b := &Binding{Scope: Local, Slot: len(f.Locals), Name: name}
	f.Locals = append(f.Locals, b)
	return b
}
