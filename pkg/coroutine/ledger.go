package coroutine

import (
	"errors"
	"fmt"
)

// ErrNoMatchingHold indicates a release was recorded for an object the ledger
// has no live hold on. Seeing it means the ledger and the real monitor state
// have diverged upstream of the ledger, since balanced input guarantees every
// exit follows a matching enter.
var ErrNoMatchingHold = errors.New("coroutine: no matching hold in ledger")

// LockLedger records which monitors a tracked call currently holds. It is
// owned by exactly one in-flight call and is never shared across calls, so it
// needs no locking of its own.
//
// The same object may appear more than once: monitors are reentrant, and a
// call that enters the same monitor twice holds it twice.
type LockLedger struct {
	holds []any
}

// NewLockLedger creates an empty ledger.
func NewLockLedger() *LockLedger {
	return &LockLedger{}
}

// RecordEnter appends obj as a new hold.
func (l *LockLedger) RecordEnter(obj any) {
	l.holds = append(l.holds, obj)
}

// RecordExit removes the most recently added hold matching obj (by identity).
// Returns ErrNoMatchingHold if obj has no live hold.
func (l *LockLedger) RecordExit(obj any) error {
	for i := len(l.holds) - 1; i >= 0; i-- {
		if l.holds[i] == obj {
			l.holds = append(l.holds[:i], l.holds[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNoMatchingHold, obj)
}

// Export returns a snapshot of the currently held objects in insertion order.
// The same order is used both to reacquire monitors on resume and to release
// them before a suspend, so callers can rely on it being stable.
func (l *LockLedger) Export() []any {
	out := make([]any, len(l.holds))
	copy(out, l.holds)
	return out
}

// Len returns the number of live holds, counting reentrant holds separately.
func (l *LockLedger) Len() int {
	return len(l.holds)
}
