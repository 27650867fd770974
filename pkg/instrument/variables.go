package instrument

import (
	"errors"

	"github.com/qsingleton/coroutines/pkg/bytecode"
)

// MonitorVariables bundles the four pre-allocated scratch slots the monitor
// instrumentation consumes: a loop counter, a loop bound, the ledger slot and
// the continuation-record slot. The slots are allocated by the caller's
// VarTable before instrumentation runs; this package only reads and writes
// through the handles.
type MonitorVariables struct {
	Counter *bytecode.Var // bulk-loop index
	Bound   *bytecode.Var // bulk-loop array length
	Ledger  *bytecode.Var // the call's LockLedger
	Record  *bytecode.Var // the call's ContinuationRecord
}

// NewMonitorVariables acquires the four scratch slots from the given table.
func NewMonitorVariables(t *bytecode.VarTable) *MonitorVariables {
	return &MonitorVariables{
		Counter: t.Acquire("monitorCounter"),
		Bound:   t.Acquire("monitorBound"),
		Ledger:  t.Acquire("lockLedger"),
		Record:  t.Acquire("continuationRecord"),
	}
}

// validate checks that every slot handle is present.
func (v *MonitorVariables) validate() error {
	if v.Counter == nil || v.Bound == nil || v.Ledger == nil || v.Record == nil {
		return errors.New("instrument: monitor variables incomplete")
	}
	return nil
}
