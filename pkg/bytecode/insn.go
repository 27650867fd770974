package bytecode

import "fmt"

// Insn is one instruction in a method body. Instructions are identified by
// pointer, not by value: two structurally equal instructions at different
// positions are different instructions. Builders therefore always allocate
// fresh nodes.
type Insn struct {
	Op     Opcode
	Slot   int   // local-slot operand (HasSlot opcodes)
	Val    int64 // integer operand (HasVal opcodes)
	Target *Insn // jump-target operand; must point at an OpLabel node
}

// InsnList is a linear instruction sequence. Lists built by this package's
// helpers own fresh nodes and can be spliced into a method body without
// aliasing concerns.
type InsnList []*Insn

// Merge concatenates instruction lists into one.
func Merge(lists ...InsnList) InsnList {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make(InsnList, 0, total)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Empty returns an empty instruction list.
func Empty() InsnList {
	return InsnList{}
}

// single wraps one fresh node.
func single(in Insn) InsnList {
	n := in
	return InsnList{&n}
}

// Nop returns a single no-op.
func Nop() InsnList { return single(Insn{Op: OpNop}) }

// Pop returns an instruction discarding the top of stack.
func Pop() InsnList { return single(Insn{Op: OpPop}) }

// Dup returns an instruction duplicating the top of stack.
func Dup() InsnList { return single(Insn{Op: OpDup}) }

// Swap returns an instruction swapping the top two stack values.
func Swap() InsnList { return single(Insn{Op: OpSwap}) }

// LoadNull returns an instruction pushing the null reference.
func LoadNull() InsnList { return single(Insn{Op: OpPushNull}) }

// PushInt returns an instruction pushing an integer literal.
func PushInt(v int64) InsnList { return single(Insn{Op: OpPushInt, Val: v}) }

// LoadVar returns an instruction pushing the value of v's slot.
func LoadVar(v *Var) InsnList { return single(Insn{Op: OpLoadVar, Slot: v.Index}) }

// SaveVar returns an instruction popping into v's slot.
func SaveVar(v *Var) InsnList { return single(Insn{Op: OpStoreVar, Slot: v.Index}) }

// IncVar returns an instruction adding one to the integer in v's slot.
func IncVar(v *Var) InsnList { return single(Insn{Op: OpIncVar, Slot: v.Index}) }

// MonitorEnter returns the real monitor-acquire instruction.
func MonitorEnter() InsnList { return single(Insn{Op: OpMonitorEnter}) }

// MonitorExit returns the real monitor-release instruction.
func MonitorExit() InsnList { return single(Insn{Op: OpMonitorExit}) }

// ArrayLen returns an instruction replacing an array with its length.
func ArrayLen() InsnList { return single(Insn{Op: OpArrayLen}) }

// ArrayAt returns an instruction replacing (array, index) with an element.
func ArrayAt() InsnList { return single(Insn{Op: OpArrayAt}) }

// LedgerNew returns the runtime call constructing an empty LockLedger.
func LedgerNew() InsnList { return single(Insn{Op: OpLedgerNew}) }

// LedgerEnter returns the runtime call recording a monitor enter.
// Consumes (ledger, object) from the stack.
func LedgerEnter() InsnList { return single(Insn{Op: OpLedgerEnter}) }

// LedgerExit returns the runtime call recording a monitor exit.
// Consumes (ledger, object) from the stack.
func LedgerExit() InsnList { return single(Insn{Op: OpLedgerExit}) }

// LedgerExport returns the runtime call replacing a ledger with its exported
// hold array.
func LedgerExport() InsnList { return single(Insn{Op: OpLedgerExport}) }

// RecordLedger returns the runtime call replacing a continuation record with
// the ledger it owns.
func RecordLedger() InsnList { return single(Insn{Op: OpRecordLedger}) }

// Return returns an instruction stopping execution of the body.
func Return() InsnList { return single(Insn{Op: OpReturn}) }

// NewLabel allocates a fresh label node for use as a jump target. The label
// must appear in the list that the jumps referencing it appear in.
func NewLabel() *Insn {
	return &Insn{Op: OpLabel}
}

// LabelAt wraps an existing label node as a one-instruction list.
func LabelAt(label *Insn) InsnList {
	return InsnList{label}
}

// Jump returns an unconditional jump to label.
func Jump(label *Insn) InsnList { return single(Insn{Op: OpJump, Target: label}) }

// JumpGE returns a conditional jump to label taken when, for the two popped
// integers (a below b), a >= b.
func JumpGE(label *Insn) InsnList { return single(Insn{Op: OpJumpGE, Target: label}) }

// ForEach builds a loop that runs body once per element of the array produced
// by arrayExpr, in index order. counter and bound are scratch integer slots
// owned by the caller. arrayExpr must push exactly one array; body must
// consume exactly one stack value (the current element) and push nothing.
// The loop leaves the stack as it found it.
func ForEach(counter, bound *Var, arrayExpr, body InsnList) InsnList {
	top := NewLabel()
	done := NewLabel()

	return Merge(
		arrayExpr,        // [arr]
		Dup(),            // [arr, arr]
		ArrayLen(),       // [arr, len]
		SaveVar(bound),   // [arr]
		PushInt(0),       // [arr, 0]
		SaveVar(counter), // [arr]
		LabelAt(top),     // [arr]
		LoadVar(counter), // [arr, i]
		LoadVar(bound),   // [arr, i, len]
		JumpGE(done),     // [arr]
		Dup(),            // [arr, arr]
		LoadVar(counter), // [arr, arr, i]
		ArrayAt(),        // [arr, elem]
		body,             // [arr]
		IncVar(counter),  // [arr]
		Jump(top),        // [arr]
		LabelAt(done),    // [arr]
		Pop(),            // []
	)
}

// NetStackEffect returns the summed stack effect of the list: pushes minus
// pops across every instruction. Control flow is not simulated; the sum is
// only meaningful for straight-line sequences.
func (l InsnList) NetStackEffect() int {
	net := 0
	for _, in := range l {
		info := GetOpcodeInfo(in.Op)
		net += info.StackPush - info.StackPop
	}
	return net
}

// Contains reports whether the list holds the given instruction node.
func (l InsnList) Contains(in *Insn) bool {
	for _, n := range l {
		if n == in {
			return true
		}
	}
	return false
}

// Validate checks structural integrity: every opcode is defined, every jump
// target is an OpLabel present in this list, and slot operands are
// non-negative.
func (l InsnList) Validate() error {
	labels := make(map[*Insn]bool)
	for _, in := range l {
		if in.Op == OpLabel {
			labels[in] = true
		}
	}
	for i, in := range l {
		info := GetOpcodeInfo(in.Op)
		if !in.Op.IsDefined() {
			return fmt.Errorf("bytecode: instruction %d: undefined opcode 0x%02X", i, uint8(in.Op))
		}
		if info.HasSlot && in.Slot < 0 {
			return fmt.Errorf("bytecode: instruction %d (%s): negative slot %d", i, in.Op, in.Slot)
		}
		if info.HasTarget {
			if in.Target == nil {
				return fmt.Errorf("bytecode: instruction %d (%s): nil jump target", i, in.Op)
			}
			if in.Target.Op != OpLabel {
				return fmt.Errorf("bytecode: instruction %d (%s): jump target is %s, not a label", i, in.Op, in.Target.Op)
			}
			if !labels[in.Target] {
				return fmt.Errorf("bytecode: instruction %d (%s): jump target label not in list", i, in.Op)
			}
		}
	}
	return nil
}
