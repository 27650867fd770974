package bytecode

import "fmt"

// SearchForOpcodes returns every instruction in the list whose opcode is one
// of the given opcodes, in list order. Every occurrence is returned,
// unreachable code included; the search has no side effects.
func SearchForOpcodes(list InsnList, ops ...Opcode) InsnList {
	want := make(map[Opcode]bool, len(ops))
	for _, op := range ops {
		want[op] = true
	}

	var found InsnList
	for _, in := range list {
		if want[in.Op] {
			found = append(found, in)
		}
	}
	return found
}

// Replace returns a new list in which the instruction node target is replaced
// by the given replacement sequence. The input list is not modified; the
// caller owns the splice. Matching is by node identity.
func Replace(list InsnList, target *Insn, replacement InsnList) (InsnList, error) {
	idx := -1
	for i, in := range list {
		if in == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("bytecode: replace: instruction not in list")
	}

	out := make(InsnList, 0, len(list)+len(replacement)-1)
	out = append(out, list[:idx]...)
	out = append(out, replacement...)
	out = append(out, list[idx+1:]...)
	return out, nil
}

// InsertBefore returns a new list with the fragment spliced in immediately
// before the instruction node at. Matching is by node identity.
func InsertBefore(list InsnList, at *Insn, fragment InsnList) (InsnList, error) {
	idx := -1
	for i, in := range list {
		if in == at {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("bytecode: insert: instruction not in list")
	}

	out := make(InsnList, 0, len(list)+len(fragment))
	out = append(out, list[:idx]...)
	out = append(out, fragment...)
	out = append(out, list[idx:]...)
	return out, nil
}

// Prepend returns a new list with the fragment placed at the head of the
// list. Used to splice entry fragments at the start of a method body.
func Prepend(list InsnList, fragment InsnList) InsnList {
	out := make(InsnList, 0, len(list)+len(fragment))
	out = append(out, fragment...)
	out = append(out, list...)
	return out
}
