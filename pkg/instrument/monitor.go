package instrument

import (
	"errors"
	"fmt"

	"github.com/qsingleton/coroutines/pkg/bytecode"
)

// ErrInternalInvariant marks a defect inside the instrumenter itself: an
// instruction that is neither a monitor enter nor a monitor exit reached the
// replacement step. The scanner's output contract makes this unreachable
// through normal input; the branch exists purely as a defensive check.
var ErrInternalInvariant = errors.New("instrument: internal invariant violation")

// MonitorOpKind classifies a scanned monitor instruction. The variant is
// closed: only acquires and releases exist, and nothing else can be scanned.
type MonitorOpKind int

const (
	// MonitorAcquire is a real monitor-enter instruction.
	MonitorAcquire MonitorOpKind = iota

	// MonitorRelease is a real monitor-exit instruction.
	MonitorRelease
)

// String returns a human-readable name for a MonitorOpKind.
func (k MonitorOpKind) String() string {
	switch k {
	case MonitorAcquire:
		return "acquire"
	case MonitorRelease:
		return "release"
	default:
		return fmt.Sprintf("MonitorOpKind(%d)", int(k))
	}
}

// MonitorOp is one monitor instruction found in a method body, classified by
// kind. It carries no payload beyond its position: the object being locked is
// always the top-of-stack value at that instruction, known only at runtime.
type MonitorOp struct {
	Insn *bytecode.Insn
	Kind MonitorOpKind
}

// ScanMonitorOps finds every monitor-acquire and monitor-release instruction
// in the body, in body order. Every occurrence is included, unreachable code
// too: replacement is purely local and costless if never executed. The scan
// has no side effects.
func ScanMonitorOps(body bytecode.InsnList) []MonitorOp {
	found := bytecode.SearchForOpcodes(body, bytecode.OpMonitorEnter, bytecode.OpMonitorExit)

	ops := make([]MonitorOp, 0, len(found))
	for _, in := range found {
		kind := MonitorAcquire
		if in.Op == bytecode.OpMonitorExit {
			kind = MonitorRelease
		}
		ops = append(ops, MonitorOp{Insn: in, Kind: kind})
	}
	return ops
}

// Replacement pairs one original monitor instruction with its drop-in
// replacement sequence.
type Replacement struct {
	Original *bytecode.Insn
	Repl     bytecode.InsnList
}

// Generator builds the monitor instrumentation for one method: per-monitor
// replacement sequences plus the five ledger-management fragments the outer
// pipeline splices at method entry, resume entry and suspend exit points.
type Generator struct {
	method *bytecode.Method
	vars   *MonitorVariables
}

// NewGenerator creates a generator for the given method and scratch slots.
// A nil method or nil/incomplete variable bundle fails fast before any work.
func NewGenerator(method *bytecode.Method, vars *MonitorVariables) (*Generator, error) {
	if method == nil {
		return nil, errors.New("instrument: nil method")
	}
	if vars == nil {
		return nil, errors.New("instrument: nil monitor variables")
	}
	if err := vars.validate(); err != nil {
		return nil, err
	}
	return &Generator{method: method, vars: vars}, nil
}

// Generate scans the method body and builds the full monitor instrumentation.
//
// Synchronized methods (implicit monitors) and non-bytecode locking APIs are
// deliberately untouched; only explicit monitor instructions are virtualized.
// Every one of them must be mirrored into the ledger, because the runtime
// requires each frame's monitor holds to be balanced when the frame is torn
// down: a suspend that unwinds the stack with monitors still held is fatal.
// The replacements keep the real lock operations and mirror them into the
// per-call ledger so the suspend path can release everything the call holds
// and the resume path can take it all back.
func (g *Generator) Generate() (*MonitorInstructions, error) {
	ops := ScanMonitorOps(g.method.Body)

	replacements := make([]Replacement, 0, len(ops))
	for _, op := range ops {
		repl, err := g.replacementFor(op)
		if err != nil {
			return nil, err
		}
		replacements = append(replacements, Replacement{Original: op.Insn, Repl: repl})
	}

	// One upfront decision: a method with no monitor instructions pays no
	// ledger overhead at all, and none of its fragments may reference the
	// ledger slot.
	hasMonitorOps := len(replacements) > 0

	var initLedger, loadSaved, export, acquireAll, releaseAll bytecode.InsnList
	if !hasMonitorOps {
		initLedger = bytecode.Empty()
		loadSaved = bytecode.Empty()
		export = bytecode.LoadNull()
		acquireAll = bytecode.Empty()
		releaseAll = bytecode.Empty()
	} else {
		// Fresh call: construct an empty ledger into the ledger slot.
		initLedger = bytecode.Merge(
			bytecode.LedgerNew(),
			bytecode.SaveVar(g.vars.Ledger),
		)

		// Resumed call: recover the ledger from the continuation record.
		loadSaved = bytecode.Merge(
			bytecode.LoadVar(g.vars.Record),
			bytecode.RecordLedger(),
			bytecode.SaveVar(g.vars.Ledger),
		)

		// Pre-suspend: hand the current ledger to the outer pipeline.
		export = bytecode.LoadVar(g.vars.Ledger)

		// Resume: reacquire every recorded hold before user code runs.
		acquireAll = bytecode.ForEach(g.vars.Counter, g.vars.Bound,
			bytecode.Merge(
				bytecode.LoadVar(g.vars.Ledger),
				bytecode.LedgerExport(),
			),
			bytecode.MonitorEnter(),
		)

		// Suspend: release every recorded hold before the frame unwinds.
		// Both loops walk the exported sequence in ledger order; monitors are
		// independent and reentrant, so only exactly-once per element matters
		// for the balance invariant.
		releaseAll = bytecode.ForEach(g.vars.Counter, g.vars.Bound,
			bytecode.Merge(
				bytecode.LoadVar(g.vars.Ledger),
				bytecode.LedgerExport(),
			),
			bytecode.MonitorExit(),
		)
	}

	return &MonitorInstructions{
		replacements: replacements,
		initLedger:   initLedger,
		loadSaved:    loadSaved,
		export:       export,
		acquireAll:   acquireAll,
		releaseAll:   releaseAll,
	}, nil
}

// replacementFor builds the drop-in sequence for one monitor instruction.
// Net stack effect is identical to the instruction it replaces: the object
// reference is popped, nothing is pushed. The real monitor operation always
// runs before the ledger update, so the ledger never claims a hold that is
// not truly taken, and never keeps claiming one that is already dropped.
func (g *Generator) replacementFor(op MonitorOp) (bytecode.InsnList, error) {
	switch op.Kind {
	case MonitorAcquire:
		return bytecode.Merge( //                  [obj]
			bytecode.Dup(),          //            [obj, obj]
			bytecode.MonitorEnter(), //            [obj]
			bytecode.LoadVar(g.vars.Ledger), //    [obj, ledger]
			bytecode.Swap(),         //            [ledger, obj]
			bytecode.LedgerEnter(),  //            []
		), nil

	case MonitorRelease:
		return bytecode.Merge( //                  [obj]
			bytecode.Dup(),         //             [obj, obj]
			bytecode.MonitorExit(), //             [obj]
			bytecode.LoadVar(g.vars.Ledger), //    [obj, ledger]
			bytecode.Swap(),        //             [ledger, obj]
			bytecode.LedgerExit(),  //             []
		), nil

	default:
		return nil, fmt.Errorf("%w: %s instruction in replacement step", ErrInternalInvariant, op.Insn.Op)
	}
}

// MonitorInstructions is the immutable result of monitor instrumentation:
// one replacement per scanned monitor instruction plus the five fragments.
// The caller performs the actual splicing; this bundle never mutates the
// method body it was generated from.
type MonitorInstructions struct {
	replacements []Replacement
	initLedger   bytecode.InsnList
	loadSaved    bytecode.InsnList
	export       bytecode.InsnList
	acquireAll   bytecode.InsnList
	releaseAll   bytecode.InsnList
}

// Replacements returns the (original instruction, replacement) pairs in body
// order. The returned slice is a copy.
func (m *MonitorInstructions) Replacements() []Replacement {
	out := make([]Replacement, len(m.replacements))
	copy(out, m.replacements)
	return out
}

// ReplacementFor returns the replacement sequence for the given original
// instruction node, if one exists.
func (m *MonitorInstructions) ReplacementFor(in *bytecode.Insn) (bytecode.InsnList, bool) {
	for _, r := range m.replacements {
		if r.Original == in {
			return r.Repl, true
		}
	}
	return nil, false
}

// HasMonitorOps reports whether the method contained any monitor
// instructions at all.
func (m *MonitorInstructions) HasMonitorOps() bool {
	return len(m.replacements) > 0
}

// InitLedger is the method-entry fragment for a fresh call: construct an
// empty ledger and store it into the ledger slot. Empty when the method has
// no monitor instructions.
func (m *MonitorInstructions) InitLedger() bytecode.InsnList {
	return m.initLedger
}

// LoadSavedLedger is the resume-entry fragment: read the ledger out of the
// continuation record and store it into the ledger slot. Used instead of
// InitLedger on a resumed call. Empty when the method has no monitor
// instructions.
func (m *MonitorInstructions) LoadSavedLedger() bytecode.InsnList {
	return m.loadSaved
}

// ExportLedger is the pre-suspend fragment producing the current ledger as a
// stack result for the outer pipeline to store into a continuation record.
// Degrades to a single null push when the method has no monitor
// instructions, so a value is still produced.
func (m *MonitorInstructions) ExportLedger() bytecode.InsnList {
	return m.export
}

// AcquireAll is the resume fragment reacquiring every hold the ledger
// records, one real monitor enter per exported element, before control
// returns to user code. Empty when the method has no monitor instructions.
func (m *MonitorInstructions) AcquireAll() bytecode.InsnList {
	return m.acquireAll
}

// ReleaseAll is the suspend fragment releasing every hold the ledger
// records, one real monitor exit per exported element, immediately before
// the frame unwinds. Empty when the method has no monitor instructions.
func (m *MonitorInstructions) ReleaseAll() bytecode.InsnList {
	return m.releaseAll
}
