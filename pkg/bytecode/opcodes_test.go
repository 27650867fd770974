package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("opcode 0x%02X has no name", uint8(op))
		}
		if info.StackPop < 0 || info.StackPush < 0 {
			t.Errorf("%s has negative stack effect fields", info.Name)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	if op.IsDefined() {
		t.Error("0xEE reported as defined")
	}
	if !strings.Contains(op.String(), "UNKNOWN") {
		t.Errorf("String() = %q, want UNKNOWN marker", op.String())
	}
}

func TestOpcodeNamesUnique(t *testing.T) {
	seen := make(map[string]Opcode)
	for _, op := range AllOpcodes() {
		name := op.String()
		if prev, ok := seen[name]; ok {
			t.Errorf("opcodes 0x%02X and 0x%02X share name %q", uint8(prev), uint8(op), name)
		}
		seen[name] = op
	}
}

func TestOpcodeClassifiers(t *testing.T) {
	tests := []struct {
		op          Opcode
		monitor     bool
		jump        bool
		runtimeCall bool
	}{
		{OpMonitorEnter, true, false, false},
		{OpMonitorExit, true, false, false},
		{OpJump, false, true, false},
		{OpJumpGE, false, true, false},
		{OpLedgerNew, false, false, true},
		{OpLedgerEnter, false, false, true},
		{OpRecordLedger, false, false, true},
		{OpDup, false, false, false},
		{OpLabel, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.op.IsMonitorOp(); got != tt.monitor {
			t.Errorf("%s.IsMonitorOp() = %v, want %v", tt.op, got, tt.monitor)
		}
		if got := tt.op.IsJump(); got != tt.jump {
			t.Errorf("%s.IsJump() = %v, want %v", tt.op, got, tt.jump)
		}
		if got := tt.op.IsRuntimeCall(); got != tt.runtimeCall {
			t.Errorf("%s.IsRuntimeCall() = %v, want %v", tt.op, got, tt.runtimeCall)
		}
	}
}

func TestMonitorOpStackEffects(t *testing.T) {
	// The two monitor instructions consume exactly the object reference.
	for _, op := range []Opcode{OpMonitorEnter, OpMonitorExit} {
		info := GetOpcodeInfo(op)
		if info.StackPop != 1 || info.StackPush != 0 {
			t.Errorf("%s stack effect = pop %d push %d, want pop 1 push 0", op, info.StackPop, info.StackPush)
		}
	}
}

func TestOperandFlagsExclusive(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		n := 0
		for _, f := range []bool{info.HasSlot, info.HasVal, info.HasTarget} {
			if f {
				n++
			}
		}
		if n > 1 {
			t.Errorf("%s claims multiple operand kinds", info.Name)
		}
	}
}
