// Package bytecode provides the instruction substrate the lock-virtualization
// instrumenter works over: a linear stack-machine instruction model, builders
// for generating instruction sequences, opcode search, caller-side splicing,
// a disassembler, an interpreter, and a CBOR wire format for method chunks.
//
// # Instruction model
//
// A method body is an InsnList, a sequence of *Insn nodes. Instructions are
// identified by pointer: the same opcode at two positions is two distinct
// instructions, which is what lets a replacement map key on the original
// instruction without any positional bookkeeping. Jump targets are OpLabel
// pseudo-instructions referenced by pointer, so generated fragments can be
// spliced anywhere in a body without offset patching.
//
// # Builders
//
// Sequence builders (LoadVar, SaveVar, Dup, Merge, ForEach, the monitor and
// ledger-call constructors) always allocate fresh nodes and compose with
// Merge. ForEach produces a counter/bound-slot-driven loop over an array
// expression; it is the shape used by the bulk monitor acquire and release
// fragments.
//
// # Execution
//
// Exec interprets an InsnList against real collaborator instances from
// pkg/coroutine. Monitor instructions act on a reentrant MonitorTable and
// the ledger-call opcodes dispatch directly onto LockLedger and
// ContinuationRecord, so generated code can be exercised exactly as it would
// run inline in an instrumented method.
//
// # Wire format
//
// Methods serialize to canonical CBOR with jump targets flattened to label
// indices. Canonical encoding keeps ContentHash stable, which makes it
// usable as a content-addressed cache key.
package bytecode
