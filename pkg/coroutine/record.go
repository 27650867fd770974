package coroutine

import "github.com/google/uuid"

// ContinuationRecord is the saved state of one suspended call. It owns exactly
// one LockLedger across the suspend/resume boundary: the ledger is written in
// right before the frame unwinds and read back out when the call resumes on a
// fresh stack.
type ContinuationRecord struct {
	id     string
	ledger *LockLedger
}

// NewContinuationRecord creates a record owning the given ledger.
// A nil ledger is replaced with a fresh empty one.
func NewContinuationRecord(ledger *LockLedger) *ContinuationRecord {
	if ledger == nil {
		ledger = NewLockLedger()
	}
	return &ContinuationRecord{
		id:     uuid.New().String(),
		ledger: ledger,
	}
}

// ID returns the record's unique identifier.
func (r *ContinuationRecord) ID() string {
	return r.id
}

// Ledger returns the ledger this record owns.
func (r *ContinuationRecord) Ledger() *LockLedger {
	return r.ledger
}
