// Package coroutine provides the runtime types that instrumented methods link
// against: the per-call LockLedger that mirrors monitor state across a
// suspend/resume boundary, the ContinuationRecord that carries the ledger
// while a call is suspended, and the MonitorTable that models the runtime's
// reentrant per-object monitor counts.
//
// A ledger is created fresh on a first invocation of an instrumented method,
// or recovered from the call's ContinuationRecord on a resumed invocation.
// It is mutated in lock-step with every instrumented acquire and release
// while the method runs, exported immediately before a suspend, and dropped
// when the call returns normally.
//
// None of these types are safe for concurrent use; each instance belongs to
// exactly one in-flight call on one thread.
package coroutine
