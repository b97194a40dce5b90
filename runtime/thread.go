// Package runtime implements the VM described in spec.md §4.6/§4.7/§5/§9: a
// stack machine with one value stack and one locals slice per call frame,
// driven by a single non-recursive execution loop rather than Go-native
// function recursion (see Thread.run). Grounded on
// original_source/runner/runfunction.cpp for per-opcode stack effects and
// original_source/runner/stack.cpp for the pop/popRaw auto-dereference split,
// and on the teacher's lang/machine package for the Thread/Frame/callStack
// vocabulary — but not its recursive Call, which cannot pause mid-call-chain
// and resume later the way spec.md §9's "VM suspension" design note requires.
package runtime

import (
	"strings"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// MaxRuntime is the hard iteration cap per Start/Resume call, matching
// original_source/runner/runfunction.cpp's MAX_RUNTIME.
const MaxRuntime = 1_000_000_000

// OptionType is the kind of input the VM is waiting for, or None while
// running normally. EndOfProgram has no equivalent in
// original_source/runner/gamedata.h's OptionType enum (which only has
// None/Choice/Key/Line); original_source/runner/gameloop.cpp references an
// EndOfProgram case that gamedata.h's enum doesn't declare, and spec.md §4.6
// lists it explicitly as one of the five values, so it's added here.
type OptionType int

const (
	OptionNone OptionType = iota
	OptionChoice
	OptionKey
	OptionLine
	OptionEndOfProgram
)

func (o OptionType) String() string {
	switch o {
	case OptionNone:
		return "None"
	case OptionChoice:
		return "Choice"
	case OptionKey:
		return "Key"
	case OptionLine:
		return "Line"
	case OptionEndOfProgram:
		return "EndOfProgram"
	default:
		return "OptionType(?)"
	}
}

// Option is one entry added by the AddOption opcode.
type Option struct {
	StrID  int32
	Value  value.Value
	Extra  value.Value
	Hotkey int32
}

// Frame is one call-stack entry: a function id, a program counter, the
// locals slice (length ArgCount+LocalCount per spec.md §4.7), and the
// frame's own value stack.
type Frame struct {
	FunctionID int32
	Base       int // the function's CodePosition; Jump targets are relative to it
	IP         int
	Locals     []value.Value
	Stack      []value.Value
}

func (f *Frame) push(v value.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) popRaw() (value.Value, error) {
	if len(f.Stack) == 0 {
		return value.Value{}, errStr("stack underflow")
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, nil
}

// pop removes the top value, auto-dereferencing a LocalVar (a bare local
// variable read, per lang/compiler's evalIdentifier) to the local slot it
// names. popRaw bypasses this and is used for Store's write target, which
// the compiler always emits as a VarRef rather than a LocalVar.
func (f *Frame) pop() (value.Value, error) {
	v, err := f.popRaw()
	if err != nil {
		return v, err
	}
	if v.Tag == value.LocalVar {
		idx := int(v.Payload)
		if idx < 0 || idx >= len(f.Locals) {
			return value.Value{}, errStr("illegal argument number")
		}
		return f.Locals[idx], nil
	}
	return v, nil
}

func (f *Frame) peek(index int) (value.Value, error) {
	if index < 0 {
		return value.Value{}, errStr("tried to peek at negative stack index")
	}
	i := len(f.Stack) - 1 - index
	if i < 0 {
		return value.Value{}, errStr("tried to peek beyond stack size")
	}
	return f.Stack[i], nil
}

// FileStore is the host-side persisted file collaborator spec.md §6.3
// describes; runtime/savestore.DB implements it. It is declared here, not in
// savestore, so this package never imports its own concrete backing store.
type FileStore interface {
	List(gameID string) ([]string, error)
	Get(gameID, name string) ([]int32, error)
	Put(gameID, name string, blob []int32) error
	Delete(gameID, name string) error
}

// Thread is one interpreter instance over a single GameData. Its call stack,
// text buffer and option state are exactly the state spec.md §9's
// "Suspended(kind)" design note requires to survive a host round trip: a
// Thread suspended mid-program is inert data until Resume is called again.
type Thread struct {
	Game  *gamedata.GameData
	Store FileStore

	// GameID scopes FileList/Read/Write/Delete in the persisted file store
	// (spec.md §6.3); the host sets it from the decoded header's GAMEID
	// symbol before the first Start call.
	GameID string

	callStack []*Frame

	TextBuffer strings.Builder
	Options    []Option
	OptionType OptionType
	// OptionFunction is the option-filtering function id recorded by GetOption.
	OptionFunction int32
	InfoText       [4]string
	Settings       map[int32]value.Value

	// suspendDepth is the call-stack depth (as returned by len(callStack) while
	// that frame is still on it) of the frame that last executed GetKey,
	// GetLine or GetOption. Only that frame's own Return triggers a
	// suspension, per spec.md §4.6 ("When Return walks out of the function
	// that set the suspension..."); a 0 value means no pending suspension.
	suspendDepth int

	rng randSource
}

// NewThread constructs a Thread over g. store may be nil; File* opcodes then
// fault instead of silently no-opping, since a game that uses them without a
// host-provided store is a configuration error, not a runtime condition to
// paper over.
func NewThread(g *gamedata.GameData, store FileStore) *Thread {
	return &Thread{
		Game:     g,
		Store:    store,
		Settings: make(map[int32]value.Value),
		rng:      newRandSource(),
	}
}

// Result is what a Start or Resume call hands back to the host.
type Result struct {
	// Ended is true once the call stack has fully unwound; Option is then
	// always OptionEndOfProgram.
	Ended          bool
	Option         OptionType
	OptionFunction int32
	Options        []Option
	Text           string
}

// Start begins running functionID with the given arguments (not including
// the hidden self local, which starts None for a top-level call — see
// original_source/runner/gamedata.cpp's runFunction, which always inserts
// noneValue ahead of the host-supplied argument list).
func (t *Thread) Start(functionID int32, args []value.Value) (Result, error) {
	t.callStack = nil
	full := make([]value.Value, 0, len(args)+1)
	full = append(full, value.NoneValue)
	full = append(full, args...)
	if err := t.pushFrame(functionID, full); err != nil {
		return Result{}, err
	}
	t.beginTurn()
	return t.run()
}

// Resume continues a suspended Thread: v is pushed onto the current (still
// live) frame's stack in place of whatever the suspended call would have
// returned, per spec.md §4.6 ("The host invokes resume(value) to push value
// onto the current frame's stack and continue").
func (t *Thread) Resume(v value.Value) (Result, error) {
	if len(t.callStack) == 0 {
		return Result{}, errStr("resume called with no suspended program")
	}
	top := t.callStack[len(t.callStack)-1]
	top.push(v)
	t.beginTurn()
	return t.run()
}

// beginTurn resets the per-turn accumulators, matching
// original_source/runner/gamedata.cpp's runFunction, which clears
// optionType/options/textBuffer once per host-visible call.
func (t *Thread) beginTurn() {
	t.TextBuffer.Reset()
	t.Options = nil
	t.OptionType = OptionNone
	t.OptionFunction = 0
	t.suspendDepth = 0
}

func (t *Thread) pushFrame(functionID int32, args []value.Value) error {
	if functionID <= 0 || int(functionID) >= len(t.Game.Functions) {
		return errStr("call to undefined function")
	}
	fn := t.Game.Functions[functionID]
	locals := make([]value.Value, fn.ArgCount+fn.LocalCount)
	for i := 0; i < len(args) && i < len(locals); i++ {
		locals[i] = args[i]
	}
	t.callStack = append(t.callStack, &Frame{
		FunctionID: functionID,
		Base:       fn.CodePosition,
		IP:         fn.CodePosition,
		Locals:     locals,
	})
	return nil
}

// run is the single top-level execution loop: it never recurses into itself
// for a Call opcode, instead pushing a Frame and continuing the same loop
// against the new top of callStack. This is what lets a suspension leave the
// whole call chain — not just the innermost frame — parked as plain data.
func (t *Thread) run() (Result, error) {
	iterations := 0
	for {
		if len(t.callStack) == 0 {
			t.OptionType = OptionEndOfProgram
			return t.result(true), nil
		}

		iterations++
		if iterations > MaxRuntime {
			return Result{}, t.fault("exceeded max runtime")
		}

		f := t.callStack[len(t.callStack)-1]
		op, err := t.fetch8(f)
		if err != nil {
			return Result{}, t.fault(err.Error())
		}

		if op == value.Return {
			retVal := value.NoneValue
			if len(f.Stack) > 0 {
				retVal, err = f.pop()
				if err != nil {
					return Result{}, t.fault(err.Error())
				}
			}
			droppedDepth := len(t.callStack)
			t.callStack = t.callStack[:len(t.callStack)-1]

			if len(t.callStack) == 0 {
				t.OptionType = OptionEndOfProgram
				return t.result(true), nil
			}
			if t.OptionType != OptionNone && droppedDepth == t.suspendDepth {
				return t.result(false), nil
			}
			t.callStack[len(t.callStack)-1].push(retVal)
			continue
		}

		if err := t.step(f, op); err != nil {
			return Result{}, t.fault(err.Error())
		}
	}
}

func (t *Thread) result(ended bool) Result {
	return Result{
		Ended:          ended,
		Option:         t.OptionType,
		OptionFunction: t.OptionFunction,
		Options:        t.Options,
		Text:           t.TextBuffer.String(),
	}
}

// say appends v's textual rendering to the turn's text buffer, per
// original_source/runner/gamedata.cpp's GameData::say(const Value&).
func (t *Thread) say(v value.Value) {
	switch v.Tag {
	case value.String:
		t.TextBuffer.WriteString(t.stringText(v.Payload))
	case value.Integer:
		t.TextBuffer.WriteString(itoa(int(v.Payload)))
	default:
		t.TextBuffer.WriteString("<")
		t.TextBuffer.WriteString(v.Tag.String())
		t.TextBuffer.WriteString(": ")
		t.TextBuffer.WriteString(itoa(int(v.Payload)))
		t.TextBuffer.WriteString(">")
	}
}

func (t *Thread) stringText(id int32) string {
	if id < 0 || int(id) >= len(t.Game.Strings) {
		return ""
	}
	return t.Game.Strings[id].Text
}

func (t *Thread) originOf(v value.Value) token.Origin {
	switch v.Tag {
	case value.List:
		if l, err := t.list(v.Payload); err == nil {
			return l.Origin
		}
	case value.Map:
		if m, err := t.mapv(v.Payload); err == nil {
			return m.Origin
		}
	case value.Object:
		if o, err := t.object(v.Payload); err == nil {
			return o.Origin
		}
	case value.Function:
		if fn, err := t.function(v.Payload); err == nil {
			return fn.Origin
		}
	}
	return token.Origin{}
}

type errStr string

func (e errStr) Error() string { return string(e) }
