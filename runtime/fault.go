package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gtrpe/quollvm/lang/value"
)

func itoa(n int) string { return strconv.Itoa(n) }

// Fault is the single runtime failure channel described in spec.md §7: a
// message plus a snapshot of the whole call stack (function id, name, IP,
// locals, value stack) taken at the moment of failure, since nothing about
// the stack survives once Start/Resume returns.
type Fault struct {
	Message   string
	CallStack []FaultFrame
}

// FaultFrame is one call-stack entry as it stood when a Fault was raised.
type FaultFrame struct {
	FunctionID int32
	Name       string
	IP         int
	Locals     []value.Value
	Stack      []value.Value
}

func (e *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, f := range e.CallStack {
		sb.WriteString(fmt.Sprintf("\n  at %s (function %d, ip %d)", f.Name, f.FunctionID, f.IP))
	}
	return sb.String()
}

// fault builds a Fault from the thread's current call stack, per spec.md
// §7's "the runner prints the message, call stack, frame locals and stacks".
func (t *Thread) fault(message string) *Fault {
	f := &Fault{Message: message}
	for _, fr := range t.callStack {
		name := ""
		if int(fr.FunctionID) < len(t.Game.Functions) {
			fn := t.Game.Functions[fr.FunctionID]
			if fn.NameStringID > 0 {
				name = t.stringText(fn.NameStringID)
			} else {
				name = fn.Name
			}
		}
		f.CallStack = append(f.CallStack, FaultFrame{
			FunctionID: fr.FunctionID,
			Name:       name,
			IP:         fr.IP,
			Locals:     append([]value.Value(nil), fr.Locals...),
			Stack:      append([]value.Value(nil), fr.Stack...),
		})
	}
	return f
}
