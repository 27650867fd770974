package bytecode

import (
	"fmt"

	"github.com/qsingleton/coroutines/pkg/coroutine"
)

// Exec is a small stack-machine interpreter over InsnList. It exists to run
// generated fragments against real collaborator instances: replacement
// sequences, the ledger-management fragments and the bulk acquire/release
// loops all execute here exactly as they would inline in a method body.
//
// Values on the operand stack and in local slots are untyped references: nil,
// int64, []any, *coroutine.LockLedger, *coroutine.ContinuationRecord, or
// arbitrary monitor objects compared by identity.
type Exec struct {
	Monitors *coroutine.MonitorTable
	Locals   []any
	Trace    bool

	stack []any
}

// NewExec creates an interpreter with the given number of local slots and a
// fresh monitor table.
func NewExec(localCount int) *Exec {
	return &Exec{
		Monitors: coroutine.NewMonitorTable(),
		Locals:   make([]any, localCount),
		stack:    make([]any, 0, 16),
	}
}

// Run executes the list from its first instruction until OpReturn or the end
// of the list. Jump targets are resolved by node identity before execution
// starts, so spliced fragments need no offset fixups.
func (x *Exec) Run(list InsnList) error {
	if err := list.Validate(); err != nil {
		return err
	}

	labelIndex := make(map[*Insn]int)
	for i, in := range list {
		if in.Op == OpLabel {
			labelIndex[in] = i
		}
	}

	ip := 0
	for ip < len(list) {
		in := list[ip]
		ip++

		if x.Trace {
			fmt.Printf("[%04d] %-16s sp=%d\n", ip-1, in.Op.String(), len(x.stack))
		}

		switch in.Op {
		case OpNop, OpLabel:
			// Nothing to do.

		case OpPop:
			if _, err := x.pop(); err != nil {
				return err
			}

		case OpDup:
			v, err := x.peek()
			if err != nil {
				return err
			}
			x.push(v)

		case OpSwap:
			b, err := x.pop()
			if err != nil {
				return err
			}
			a, err := x.pop()
			if err != nil {
				return err
			}
			x.push(b)
			x.push(a)

		case OpPushNull:
			x.push(nil)

		case OpPushInt:
			x.push(in.Val)

		case OpLoadVar:
			if err := x.checkSlot(in.Slot); err != nil {
				return err
			}
			x.push(x.Locals[in.Slot])

		case OpStoreVar:
			if err := x.checkSlot(in.Slot); err != nil {
				return err
			}
			v, err := x.pop()
			if err != nil {
				return err
			}
			x.Locals[in.Slot] = v

		case OpIncVar:
			if err := x.checkSlot(in.Slot); err != nil {
				return err
			}
			n, ok := x.Locals[in.Slot].(int64)
			if !ok {
				return fmt.Errorf("bytecode: INC_VAR slot %d holds %T, not int64", in.Slot, x.Locals[in.Slot])
			}
			x.Locals[in.Slot] = n + 1

		case OpJump:
			ip = labelIndex[in.Target]

		case OpJumpGE:
			b, err := x.popInt()
			if err != nil {
				return err
			}
			a, err := x.popInt()
			if err != nil {
				return err
			}
			if a >= b {
				ip = labelIndex[in.Target]
			}

		case OpArrayLen:
			arr, err := x.popArray()
			if err != nil {
				return err
			}
			x.push(int64(len(arr)))

		case OpArrayAt:
			i, err := x.popInt()
			if err != nil {
				return err
			}
			arr, err := x.popArray()
			if err != nil {
				return err
			}
			if i < 0 || int(i) >= len(arr) {
				return fmt.Errorf("bytecode: ARRAY_AT index %d out of range [0,%d)", i, len(arr))
			}
			x.push(arr[i])

		case OpMonitorEnter:
			obj, err := x.pop()
			if err != nil {
				return err
			}
			if err := x.Monitors.Enter(obj); err != nil {
				return err
			}

		case OpMonitorExit:
			obj, err := x.pop()
			if err != nil {
				return err
			}
			if err := x.Monitors.Exit(obj); err != nil {
				return err
			}

		case OpLedgerNew:
			x.push(coroutine.NewLockLedger())

		case OpLedgerEnter:
			obj, led, err := x.popLedgerCall()
			if err != nil {
				return err
			}
			led.RecordEnter(obj)

		case OpLedgerExit:
			obj, led, err := x.popLedgerCall()
			if err != nil {
				return err
			}
			if err := led.RecordExit(obj); err != nil {
				return err
			}

		case OpLedgerExport:
			led, err := x.popLedger()
			if err != nil {
				return err
			}
			x.push(led.Export())

		case OpRecordLedger:
			v, err := x.pop()
			if err != nil {
				return err
			}
			rec, ok := v.(*coroutine.ContinuationRecord)
			if !ok {
				return fmt.Errorf("bytecode: RECORD_LEDGER on %T, not a continuation record", v)
			}
			x.push(rec.Ledger())

		case OpReturn:
			return nil

		default:
			return fmt.Errorf("bytecode: unimplemented opcode %s", in.Op)
		}
	}
	return nil
}

// StackDepth returns the current operand-stack depth.
func (x *Exec) StackDepth() int {
	return len(x.stack)
}

// Push places a value on the operand stack before a Run, modeling the state
// the surrounding method would have left on entry to a fragment.
func (x *Exec) Push(v any) {
	x.push(v)
}

// Popped removes and returns the top of the operand stack after a Run.
func (x *Exec) Popped() (any, error) {
	return x.pop()
}

func (x *Exec) push(v any) {
	x.stack = append(x.stack, v)
}

func (x *Exec) pop() (any, error) {
	if len(x.stack) == 0 {
		return nil, fmt.Errorf("bytecode: operand stack underflow")
	}
	v := x.stack[len(x.stack)-1]
	x.stack = x.stack[:len(x.stack)-1]
	return v, nil
}

func (x *Exec) peek() (any, error) {
	if len(x.stack) == 0 {
		return nil, fmt.Errorf("bytecode: operand stack underflow")
	}
	return x.stack[len(x.stack)-1], nil
}

func (x *Exec) popInt() (int64, error) {
	v, err := x.pop()
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("bytecode: expected int64 on stack, got %T", v)
	}
	return n, nil
}

func (x *Exec) popArray() ([]any, error) {
	v, err := x.pop()
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("bytecode: expected array on stack, got %T", v)
	}
	return arr, nil
}

func (x *Exec) popLedger() (*coroutine.LockLedger, error) {
	v, err := x.pop()
	if err != nil {
		return nil, err
	}
	led, ok := v.(*coroutine.LockLedger)
	if !ok {
		return nil, fmt.Errorf("bytecode: expected ledger on stack, got %T", v)
	}
	return led, nil
}

// popLedgerCall pops the (ledger, object) pair consumed by LEDGER_ENTER and
// LEDGER_EXIT: object on top, ledger below it.
func (x *Exec) popLedgerCall() (any, *coroutine.LockLedger, error) {
	obj, err := x.pop()
	if err != nil {
		return nil, nil, err
	}
	led, err := x.popLedger()
	if err != nil {
		return nil, nil, err
	}
	return obj, led, nil
}

func (x *Exec) checkSlot(slot int) error {
	if slot < 0 || slot >= len(x.Locals) {
		return fmt.Errorf("bytecode: slot %d out of range [0,%d)", slot, len(x.Locals))
	}
	return nil
}
