package bytecode

import "fmt"

// Opcode identifies a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode uint8

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Pop top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack elements

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpPushNull Opcode = 0x10 // Push the null reference
	OpPushInt  Opcode = 0x11 // Push integer literal: OpPushInt <val>

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpLoadVar  Opcode = 0x20 // Push local variable: OpLoadVar <slot>
	OpStoreVar Opcode = 0x21 // Pop and store to local: OpStoreVar <slot>
	OpIncVar   Opcode = 0x22 // Add one to integer local: OpIncVar <slot>

	// ========================================================================
	// Control flow (0x30-0x3F)
	// ========================================================================

	OpLabel  Opcode = 0x30 // Jump target marker; executes as a no-op
	OpJump   Opcode = 0x31 // Unconditional jump: OpJump <label>
	OpJumpGE Opcode = 0x32 // Pop b, pop a, jump if a >= b: OpJumpGE <label>

	// ========================================================================
	// Arrays (0x40-0x4F)
	// ========================================================================

	OpArrayLen Opcode = 0x40 // Pop array, push its length
	OpArrayAt  Opcode = 0x41 // Pop index, pop array, push element

	// ========================================================================
	// Monitors (0x50-0x5F)
	// ========================================================================

	OpMonitorEnter Opcode = 0x50 // Pop object, acquire its monitor
	OpMonitorExit  Opcode = 0x51 // Pop object, release its monitor

	// ========================================================================
	// Runtime calls (0x60-0x6F) - statically-resolved coroutine collaborators
	// ========================================================================

	OpLedgerNew    Opcode = 0x60 // Push a fresh empty LockLedger
	OpLedgerEnter  Opcode = 0x61 // Pop object, pop ledger, record an enter
	OpLedgerExit   Opcode = 0x62 // Pop object, pop ledger, record an exit
	OpLedgerExport Opcode = 0x63 // Pop ledger, push its exported hold array
	OpRecordLedger Opcode = 0x64 // Pop continuation record, push its ledger

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Stop execution of the current body
)

// OpcodeInfo provides metadata about each opcode for validation and for
// stack-effect bookkeeping during instrumentation.
type OpcodeInfo struct {
	Name      string // Human-readable name
	StackPop  int    // How many values popped from stack
	StackPush int    // How many values pushed to stack
	HasSlot   bool   // Instruction carries a local-slot operand
	HasVal    bool   // Instruction carries an integer operand
	HasTarget bool   // Instruction carries a jump-target operand
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop:  {Name: "NOP"},
	OpPop:  {Name: "POP", StackPop: 1},
	OpDup:  {Name: "DUP", StackPop: 1, StackPush: 2},
	OpSwap: {Name: "SWAP", StackPop: 2, StackPush: 2},

	// Constants
	OpPushNull: {Name: "PUSH_NULL", StackPush: 1},
	OpPushInt:  {Name: "PUSH_INT", StackPush: 1, HasVal: true},

	// Local variables
	OpLoadVar:  {Name: "LOAD_VAR", StackPush: 1, HasSlot: true},
	OpStoreVar: {Name: "STORE_VAR", StackPop: 1, HasSlot: true},
	OpIncVar:   {Name: "INC_VAR", HasSlot: true},

	// Control flow
	OpLabel:  {Name: "LABEL"},
	OpJump:   {Name: "JUMP", HasTarget: true},
	OpJumpGE: {Name: "JUMP_GE", StackPop: 2, HasTarget: true},

	// Arrays
	OpArrayLen: {Name: "ARRAY_LEN", StackPop: 1, StackPush: 1},
	OpArrayAt:  {Name: "ARRAY_AT", StackPop: 2, StackPush: 1},

	// Monitors
	OpMonitorEnter: {Name: "MONITOR_ENTER", StackPop: 1},
	OpMonitorExit:  {Name: "MONITOR_EXIT", StackPop: 1},

	// Runtime calls
	OpLedgerNew:    {Name: "LEDGER_NEW", StackPush: 1},
	OpLedgerEnter:  {Name: "LEDGER_ENTER", StackPop: 2},
	OpLedgerExit:   {Name: "LEDGER_EXIT", StackPop: 2},
	OpLedgerExport: {Name: "LEDGER_EXPORT", StackPop: 1, StackPush: 1},
	OpRecordLedger: {Name: "RECORD_LEDGER", StackPop: 1, StackPush: 1},

	// Return
	OpReturn: {Name: "RETURN"},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with an UNKNOWN name if the opcode is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", uint8(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsDefined returns true if the opcode has an entry in the metadata table.
func (op Opcode) IsDefined() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsMonitorOp returns true for the two real monitor instructions.
func (op Opcode) IsMonitorOp() bool {
	return op == OpMonitorEnter || op == OpMonitorExit
}

// IsJump returns true if this opcode transfers control to a label.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpGE
}

// IsRuntimeCall returns true for opcodes that dispatch directly onto the
// coroutine collaborator types.
func (op Opcode) IsRuntimeCall() bool {
	return op >= OpLedgerNew && op <= OpRecordLedger
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
