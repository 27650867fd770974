package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the current wire format version.
// Increment when making incompatible changes to the format.
const WireVersion uint16 = 1

// cborEncMode uses canonical mode for deterministic encoding, which makes
// method content hashes stable.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// WireInsn is the flattened form of one instruction. Jump targets are
// encoded as the target label's index within the same sequence; -1 means no
// target operand.
type WireInsn struct {
	Op     uint8 `cbor:"o"`
	Slot   int   `cbor:"s,omitempty"`
	Val    int64 `cbor:"v,omitempty"`
	Target int   `cbor:"t"`
}

// wireMethod is the serialized form of Method.
type wireMethod struct {
	Version    uint16     `cbor:"ver"`
	Name       string     `cbor:"name"`
	LocalCount int        `cbor:"locals"`
	Body       []WireInsn `cbor:"body"`
}

// FlattenInsns converts an instruction list to wire form, resolving jump
// targets to indices within the list.
func FlattenInsns(list InsnList) ([]WireInsn, error) {
	index := make(map[*Insn]int, len(list))
	for i, in := range list {
		index[in] = i
	}

	out := make([]WireInsn, len(list))
	for i, in := range list {
		w := WireInsn{Op: uint8(in.Op), Slot: in.Slot, Val: in.Val, Target: -1}
		if in.Target != nil {
			t, ok := index[in.Target]
			if !ok {
				return nil, fmt.Errorf("bytecode: flatten: instruction %d (%s) targets a label outside the list", i, in.Op)
			}
			w.Target = t
		}
		out[i] = w
	}
	return out, nil
}

// ExpandInsns converts wire form back to an instruction list, rebuilding jump
// target pointers.
func ExpandInsns(wire []WireInsn) (InsnList, error) {
	list := make(InsnList, len(wire))
	for i, w := range wire {
		list[i] = &Insn{Op: Opcode(w.Op), Slot: w.Slot, Val: w.Val}
	}
	for i, w := range wire {
		if w.Target < 0 {
			continue
		}
		if w.Target >= len(list) {
			return nil, fmt.Errorf("bytecode: expand: instruction %d targets index %d, past end of list", i, w.Target)
		}
		if list[w.Target].Op != OpLabel {
			return nil, fmt.Errorf("bytecode: expand: instruction %d targets a %s, not a label", i, list[w.Target].Op)
		}
		list[i].Target = list[w.Target]
	}
	return list, nil
}

// MarshalMethod serializes a Method to CBOR bytes.
func MarshalMethod(m *Method) ([]byte, error) {
	body, err := FlattenInsns(m.Body)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(&wireMethod{
		Version:    WireVersion,
		Name:       m.Name,
		LocalCount: m.LocalCount,
		Body:       body,
	})
}

// UnmarshalMethod deserializes a Method from CBOR bytes.
func UnmarshalMethod(data []byte) (*Method, error) {
	var w wireMethod
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal method: %w", err)
	}
	if w.Version != WireVersion {
		return nil, fmt.Errorf("bytecode: unsupported wire version %d", w.Version)
	}
	body, err := ExpandInsns(w.Body)
	if err != nil {
		return nil, err
	}
	return &Method{Name: w.Name, LocalCount: w.LocalCount, Body: body}, nil
}

// MarshalCanonical serializes any value with the package's canonical CBOR
// encoder. Shared by callers that store derived artifacts.
func MarshalCanonical(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}
