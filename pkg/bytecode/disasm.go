package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the instruction list.
func Disassemble(list InsnList) string {
	return DisassembleWithName(list, "")
}

// DisassembleWithName returns a human-readable listing with a name header.
// Labels are named L0, L1, ... in order of appearance.
func DisassembleWithName(list InsnList, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}

	labelNames := labelNames(list)

	for i, in := range list {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", i, formatInsn(in, labelNames)))
	}
	return sb.String()
}

// DisassembleToLines returns the disassembly as a slice of lines, one per
// instruction.
func DisassembleToLines(list InsnList) []string {
	labelNames := labelNames(list)
	lines := make([]string, len(list))
	for i, in := range list {
		lines[i] = fmt.Sprintf("%04d  %s", i, formatInsn(in, labelNames))
	}
	return lines
}

// labelNames assigns L0, L1, ... to labels in order of appearance.
func labelNames(list InsnList) map[*Insn]string {
	names := make(map[*Insn]string)
	n := 0
	for _, in := range list {
		if in.Op == OpLabel {
			names[in] = fmt.Sprintf("L%d", n)
			n++
		}
	}
	return names
}

// formatInsn renders a single instruction with its operands.
func formatInsn(in *Insn, labels map[*Insn]string) string {
	info := GetOpcodeInfo(in.Op)

	switch {
	case in.Op == OpLabel:
		name := labels[in]
		if name == "" {
			name = "L?"
		}
		return name + ":"

	case info.HasSlot:
		return fmt.Sprintf("%s %d", info.Name, in.Slot)

	case info.HasVal:
		return fmt.Sprintf("%s %d", info.Name, in.Val)

	case info.HasTarget:
		name := labels[in.Target]
		if name == "" {
			name = "L?"
		}
		return fmt.Sprintf("%s -> %s", info.Name, name)

	default:
		return info.Name
	}
}
