// Package instrument rewrites explicit monitor instructions in a method body
// so that every acquire and release is mirrored into a per-call LockLedger.
// The ledger is what lets the suspend/resume framework fully release every
// monitor a suspended call holds before its stack is torn down, and
// reacquire exactly those monitors when the call resumes on a fresh stack.
//
// The generator produces, per method:
//
//   - one stack-effect-preserving replacement per monitor instruction
//     (the real monitor operation, then the ledger update), and
//   - five fragments the outer pipeline splices in: ledger init at method
//     entry, ledger recovery at resume entry, ledger export before a
//     suspend, and the bulk reacquire/release loops.
//
// The central invariant: at the instant a call actually suspends, the
// multiset of objects in its ledger equals exactly the multiset of monitors
// the call holds at the runtime level. Leaking a held monitor across a
// suspend risks deadlock; releasing one never held corrupts runtime lock
// state.
//
// A method with no monitor instructions pays nothing: all five fragments
// degrade to no-ops and the ledger slot is never referenced.
package instrument
