// Package compiler implements the expression compiler: the pass that turns
// each function's captured body tokens into bytecode appended to its own
// code stream. It is grounded on original_source/src/expression.cpp
// (process_list/process_value and the stmt_* reserved-word handlers) and
// original_source/(src|build)/parse_functions.cpp (parse_asm_function, and
// the tokens-to-List-of-ListValues tree builder parse_list/parse_listvalue),
// following spec.md §4.4 wherever the two original source snapshots disagree
// or leave a detail unsettled.
package compiler

import (
	"fmt"

	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// reservedWords is the statement-introducing keyword set recognized inside a
// function body's list tree (original_source/src/expression.cpp's
// statementTypes table).
var reservedWords = map[string]bool{
	"and": true, "break": true, "continue": true, "do_while": true,
	"if": true, "label": true, "or": true, "print": true,
	"print_uf": true, "proc": true, "while": true,
}

// listValue and exprList mirror original_source's ListValue/List: the tree a
// function body is parsed into before being lowered to bytecode.
type listValue struct {
	Origin token.Origin
	Value  value.Value
	List   *exprList // non-nil iff Value.Tag == value.Expression
}

type exprList struct {
	Items []listValue
}

func (l *exprList) origin() token.Origin {
	if len(l.Items) == 0 {
		return token.Origin{}
	}
	return l.Items[0].Origin
}

// Compile lowers every function's body into its own bytecode stream, per
// spec.md §4.4. Errors are recorded on g.Errors; Compile never panics on bad
// input.
func Compile(g *gamedata.GameData) {
	for _, fn := range g.Functions {
		if fn.GlobalID == 0 {
			continue
		}
		c := &compiler{g: g, fn: fn}
		if fn.IsAsm {
			c.compileAsmFunction()
		} else {
			c.compileStdFunction()
		}
		c.resolvePatches()
	}
}

// compiler carries the per-function state needed while lowering one
// function's body: the backpatch table, the active break/continue label
// stacks, and the generated-label counter.
type compiler struct {
	g  *gamedata.GameData
	fn *gamedata.Function

	patches []backpatch

	breakLabels    []string
	continueLabels []string
	nextLabel      int
}

type backpatch struct {
	Position int
	Name     string
	Origin   token.Origin
}

func diagOrigin(o token.Origin) diag.Origin { return diag.Origin{File: o.File, Line: o.Line} }

func (c *compiler) errorf(origin token.Origin, format string, args ...any) {
	c.g.Errors.Errorf(diagOrigin(origin), format, args...)
}

// genLabel returns a fresh compiler-internal label name, unique within this
// function (original_source's function->nextLabel counter).
func (c *compiler) genLabel() string {
	name := fmt.Sprintf("__label_%d", c.nextLabel)
	c.nextLabel++
	return name
}

// defineLabel binds name to the current code offset within this function.
func (c *compiler) defineLabel(name string, origin token.Origin) {
	if _, exists := c.fn.Labels[name]; exists {
		c.errorf(origin, "symbol %q already defined", name)
		return
	}
	c.fn.Labels[name] = c.fn.Code.Size()
}

// emitLabelRef pushes a JumpTarget value for name: the resolved offset if
// the label is already defined, otherwise a 32-bit placeholder recorded for
// resolvePatches to fill in once the whole body has been walked.
func (c *compiler) emitLabelRef(name string, origin token.Origin) {
	if pos, ok := c.fn.Labels[name]; ok {
		emitPush(c.fn, value.Value{Tag: value.JumpTarget, Payload: int32(pos)})
		return
	}
	c.fn.Code.Add8(uint8(value.Push32))
	c.fn.Code.Add8(uint8(value.JumpTarget))
	c.patches = append(c.patches, backpatch{Position: c.fn.Code.Size(), Name: name, Origin: origin})
	c.fn.Code.Add32(0xFFFFFFFF)
}

func (c *compiler) resolvePatches() {
	for _, p := range c.patches {
		pos, ok := c.fn.Labels[p.Name]
		if !ok {
			c.errorf(p.Origin, "undefined symbol %q in function %s", p.Name, c.fn.Name)
			continue
		}
		c.fn.Code.Overwrite32(p.Position, uint32(pos))
	}
}

func (c *compiler) emitJump(label string, origin token.Origin) {
	c.emitLabelRef(label, origin)
	c.fn.Code.Add8(uint8(value.Jump))
}

func (c *compiler) emitCondJump(op value.Op, label string, origin token.Origin) {
	c.emitLabelRef(label, origin)
	c.fn.Code.Add8(uint8(op))
}

// emitPush appends the Push* instruction that puts v on the stack, picking
// the narrowest encoding available, exactly mirroring original_source's
// bytecode_push_value.
func emitPush(fn *gamedata.Function, v value.Value) {
	code := fn.Code
	switch {
	case v.Tag == value.None:
		code.Add8(uint8(value.PushNone))
	case v.Payload == 0:
		code.Add8(uint8(value.Push0))
		code.Add8(uint8(v.Tag))
	case v.Payload == 1:
		code.Add8(uint8(value.Push1))
		code.Add8(uint8(v.Tag))
	case v.Payload >= -128 && v.Payload <= 127:
		code.Add8(uint8(value.Push8))
		code.Add8(uint8(v.Tag))
		code.Add8(uint8(v.Payload))
	case v.Payload >= -32768 && v.Payload <= 32767:
		code.Add8(uint8(value.Push16))
		code.Add8(uint8(v.Tag))
		code.Add16(uint16(v.Payload))
	default:
		code.Add8(uint8(value.Push32))
		code.Add8(uint8(v.Tag))
		code.Add32(uint32(v.Payload))
	}
}
