package coroutine

import (
	"errors"
	"fmt"
)

// ErrNullMonitor indicates a monitor operation on a nil object reference.
var ErrNullMonitor = errors.New("coroutine: monitor operation on nil object")

// ErrUnbalancedExit indicates a monitor exit with no matching prior enter.
// In the execution model this mirrors, an unbalanced exit at frame teardown
// is a fatal runtime condition, so it is surfaced rather than ignored.
var ErrUnbalancedExit = errors.New("coroutine: monitor exit without matching enter")

// MonitorTable models the runtime's per-thread monitor state: a reentrant
// hold count per object, keyed by identity. One table stands in for the
// native lock state of the single thread running an instrumented method.
type MonitorTable struct {
	holds map[any]int
}

// NewMonitorTable creates an empty monitor table.
func NewMonitorTable() *MonitorTable {
	return &MonitorTable{holds: make(map[any]int)}
}

// Enter acquires obj's monitor, incrementing its hold count.
func (t *MonitorTable) Enter(obj any) error {
	if obj == nil {
		return ErrNullMonitor
	}
	t.holds[obj]++
	return nil
}

// Exit releases one hold on obj's monitor.
func (t *MonitorTable) Exit(obj any) error {
	if obj == nil {
		return ErrNullMonitor
	}
	n := t.holds[obj]
	if n == 0 {
		return fmt.Errorf("%w: %v", ErrUnbalancedExit, obj)
	}
	if n == 1 {
		delete(t.holds, obj)
	} else {
		t.holds[obj] = n - 1
	}
	return nil
}

// HoldCount returns the current hold count for obj.
func (t *MonitorTable) HoldCount(obj any) int {
	return t.holds[obj]
}

// HeldCount returns the total number of holds across all objects,
// counting reentrant holds separately.
func (t *MonitorTable) HeldCount() int {
	total := 0
	for _, n := range t.holds {
		total += n
	}
	return total
}

// Balanced reports whether no monitors are currently held.
func (t *MonitorTable) Balanced() bool {
	return len(t.holds) == 0
}
