package instrument

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/qsingleton/coroutines/pkg/bytecode"
)

// BundleVersion is the current bundle wire format version.
const BundleVersion uint16 = 1

// WireReplacement is one replacement in wire form, keyed by the original
// instruction's index in the method body.
type WireReplacement struct {
	Index int                 `cbor:"i"`
	Repl  []bytecode.WireInsn `cbor:"r"`
}

// Bundle is the serializable form of a method's monitor instrumentation:
// the method it was generated from, the replacement map keyed by body index,
// and the five fragments. It is what the build tool writes out for the outer
// pipeline to splice.
type Bundle struct {
	Version      uint16              `cbor:"ver"`
	MethodName   string              `cbor:"name"`
	MethodHash   [32]byte            `cbor:"hash"`
	Replacements []WireReplacement   `cbor:"repl"`
	InitLedger   []bytecode.WireInsn `cbor:"init"`
	LoadSaved    []bytecode.WireInsn `cbor:"load"`
	Export       []bytecode.WireInsn `cbor:"export"`
	AcquireAll   []bytecode.WireInsn `cbor:"acquire"`
	ReleaseAll   []bytecode.WireInsn `cbor:"release"`
}

// NewBundle flattens an instrumentation result for the given method.
func NewBundle(m *bytecode.Method, mi *MonitorInstructions) (*Bundle, error) {
	hash, err := m.ContentHash()
	if err != nil {
		return nil, err
	}

	index := make(map[*bytecode.Insn]int, len(m.Body))
	for i, in := range m.Body {
		index[in] = i
	}

	replacements := make([]WireReplacement, 0, len(mi.Replacements()))
	for _, r := range mi.Replacements() {
		i, ok := index[r.Original]
		if !ok {
			return nil, fmt.Errorf("instrument: bundle: replacement original not in method %s", m.Name)
		}
		repl, err := bytecode.FlattenInsns(r.Repl)
		if err != nil {
			return nil, fmt.Errorf("instrument: bundle: flatten replacement %d: %w", i, err)
		}
		replacements = append(replacements, WireReplacement{Index: i, Repl: repl})
	}

	b := &Bundle{
		Version:      BundleVersion,
		MethodName:   m.Name,
		MethodHash:   hash,
		Replacements: replacements,
	}

	for _, f := range []struct {
		dst  *[]bytecode.WireInsn
		src  bytecode.InsnList
		name string
	}{
		{&b.InitLedger, mi.InitLedger(), "init"},
		{&b.LoadSaved, mi.LoadSavedLedger(), "load-saved"},
		{&b.Export, mi.ExportLedger(), "export"},
		{&b.AcquireAll, mi.AcquireAll(), "acquire-all"},
		{&b.ReleaseAll, mi.ReleaseAll(), "release-all"},
	} {
		flat, err := bytecode.FlattenInsns(f.src)
		if err != nil {
			return nil, fmt.Errorf("instrument: bundle: flatten %s fragment: %w", f.name, err)
		}
		*f.dst = flat
	}

	return b, nil
}

// MarshalBundle serializes a Bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return bytecode.MarshalCanonical(b)
}

// UnmarshalBundle deserializes a Bundle from CBOR bytes.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("instrument: unmarshal bundle: %w", err)
	}
	if b.Version != BundleVersion {
		return nil, fmt.Errorf("instrument: unsupported bundle version %d", b.Version)
	}
	return &b, nil
}

// ApplyReplacements returns a new body with every replacement spliced in
// place of its original instruction. The input body is not modified. This is
// the splice the outer pipeline performs; it lives here as a convenience for
// tools that only need the replacement half of the instrumentation.
func ApplyReplacements(body bytecode.InsnList, mi *MonitorInstructions) (bytecode.InsnList, error) {
	out := body
	var err error
	for _, r := range mi.Replacements() {
		out, err = bytecode.Replace(out, r.Original, r.Repl)
		if err != nil {
			return nil, fmt.Errorf("instrument: apply replacements: %w", err)
		}
	}
	return out, nil
}
