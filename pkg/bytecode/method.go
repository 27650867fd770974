package bytecode

import (
	"crypto/sha256"
	"fmt"
)

// Method is one method body under transformation: a name, the count of
// user-declared local slots, and the linear instruction sequence.
type Method struct {
	Name       string
	LocalCount int // user-declared slots; scratch slots are allocated above this
	Body       InsnList
}

// NewMethod creates a method with an empty body.
func NewMethod(name string, localCount int) *Method {
	return &Method{
		Name:       name,
		LocalCount: localCount,
		Body:       make(InsnList, 0, 32),
	}
}

// MaxSlot returns one past the highest slot index referenced anywhere in the
// body, including scratch slots. Used to size the local frame for execution.
func (m *Method) MaxSlot() int {
	max := m.LocalCount
	for _, in := range m.Body {
		if GetOpcodeInfo(in.Op).HasSlot && in.Slot+1 > max {
			max = in.Slot + 1
		}
	}
	return max
}

// ContentHash returns the sha256 of the method's canonical wire encoding.
// Methods with identical names, slot layouts and instruction sequences hash
// identically, which makes the hash usable as a cache key.
func (m *Method) ContentHash() ([32]byte, error) {
	data, err := MarshalMethod(m)
	if err != nil {
		return [32]byte{}, fmt.Errorf("bytecode: hash method %s: %w", m.Name, err)
	}
	return sha256.Sum256(data), nil
}

// Var is a handle to one pre-allocated local-storage slot, identified by an
// index distinct from all other slots in the same table.
type Var struct {
	Index int
	Name  string // for disassembly only
}

// VarTable allocates scratch variable slots above a method's user-declared
// slots. The instrumenter never allocates slots itself; it is handed Var
// handles acquired from a table owned by the caller.
type VarTable struct {
	next int
	vars []*Var
}

// NewVarTable creates a table whose first scratch slot sits just past the
// method's user-declared slots.
func NewVarTable(m *Method) *VarTable {
	return &VarTable{next: m.LocalCount}
}

// Acquire allocates the next free slot under the given debug name.
func (t *VarTable) Acquire(name string) *Var {
	v := &Var{Index: t.next, Name: name}
	t.next++
	t.vars = append(t.vars, v)
	return v
}

// Acquired returns all handles allocated so far, in allocation order.
func (t *VarTable) Acquired() []*Var {
	out := make([]*Var, len(t.vars))
	copy(out, t.vars)
	return out
}
