package instrument

import (
	"testing"

	"github.com/qsingleton/coroutines/pkg/bytecode"
)

func TestBundleRoundTrip(t *testing.T) {
	m := syncBlockMethod("m", 0, 1)
	mi, _ := generate(t, m)

	b, err := NewBundle(m, mi)
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}

	if b.MethodName != "m" {
		t.Errorf("MethodName = %q, want %q", b.MethodName, "m")
	}
	wantHash, _ := m.ContentHash()
	if b.MethodHash != wantHash {
		t.Error("MethodHash does not match the method's content hash")
	}
	if len(b.Replacements) != 4 {
		t.Fatalf("bundle has %d replacements, want 4", len(b.Replacements))
	}
	for i, r := range b.Replacements {
		if r.Index < 0 || r.Index >= len(m.Body) {
			t.Errorf("replacement %d index %d out of body range", i, r.Index)
			continue
		}
		if !m.Body[r.Index].Op.IsMonitorOp() {
			t.Errorf("replacement %d keys instruction %s, not a monitor op", i, m.Body[r.Index].Op)
		}
	}

	data, err := MarshalBundle(b)
	if err != nil {
		t.Fatalf("MarshalBundle: %v", err)
	}
	got, err := UnmarshalBundle(data)
	if err != nil {
		t.Fatalf("UnmarshalBundle: %v", err)
	}

	if got.MethodName != b.MethodName || got.MethodHash != b.MethodHash {
		t.Error("method identity changed across the wire")
	}
	if len(got.Replacements) != len(b.Replacements) {
		t.Fatalf("replacement count changed: %d vs %d", len(got.Replacements), len(b.Replacements))
	}

	// Fragments survive flattening: the acquire loop expands back to a valid
	// list with its jumps intact.
	acquire, err := bytecode.ExpandInsns(got.AcquireAll)
	if err != nil {
		t.Fatalf("ExpandInsns(AcquireAll): %v", err)
	}
	if err := acquire.Validate(); err != nil {
		t.Errorf("expanded acquire fragment invalid: %v", err)
	}
	if len(acquire) != len(mi.AcquireAll()) {
		t.Errorf("acquire fragment length changed: %d vs %d", len(acquire), len(mi.AcquireAll()))
	}
}

func TestBundleVersionCheck(t *testing.T) {
	m := syncBlockMethod("m", 0)
	mi, _ := generate(t, m)

	b, err := NewBundle(m, mi)
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}
	b.Version = 99

	data, err := MarshalBundle(b)
	if err != nil {
		t.Fatalf("MarshalBundle: %v", err)
	}
	if _, err := UnmarshalBundle(data); err == nil {
		t.Error("unknown bundle version accepted")
	}
}

func TestApplyReplacements(t *testing.T) {
	m := syncBlockMethod("m", 0)
	mi, _ := generate(t, m)

	originalLen := len(m.Body)
	instrumented, err := ApplyReplacements(m.Body, mi)
	if err != nil {
		t.Fatalf("ApplyReplacements: %v", err)
	}

	// The input body is untouched.
	if len(m.Body) != originalLen {
		t.Error("ApplyReplacements modified the input body")
	}

	// No raw monitor ops survive outside replacement sequences; each
	// replacement contributes exactly one.
	raw := bytecode.SearchForOpcodes(m.Body, bytecode.OpMonitorEnter, bytecode.OpMonitorExit)
	for _, in := range raw {
		if instrumented.Contains(in) {
			t.Error("original monitor instruction still present after splice")
		}
	}

	wantLen := originalLen
	for _, r := range mi.Replacements() {
		wantLen += len(r.Repl) - 1
	}
	if len(instrumented) != wantLen {
		t.Errorf("instrumented body length = %d, want %d", len(instrumented), wantLen)
	}
}
