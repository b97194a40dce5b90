package compiler

import (
	"github.com/gtrpe/quollvm/lang/value"
)

// compileValue lowers a single ListValue used in a value position, per
// original_source/src/expression.cpp's process_value: a bare Reserved or
// Opcode token, or an unresolved Symbol, is never valid here; an Expression
// recurses; everything else is a literal push.
func (c *compiler) compileValue(lv listValue) {
	switch lv.Value.Tag {
	case value.Reserved, value.Opcode:
		c.errorf(lv.Origin, "invalid expression value of type %s", lv.Value.Tag)
	case value.Symbol:
		c.errorf(lv.Origin, "undefined symbol %q", lv.Value.Text)
	case value.Expression:
		c.compileList(lv.List)
	default:
		emitPush(c.fn, lv.Value)
	}
}

// compileList lowers one statement list, per process_list's dispatch on the
// type of its head ListValue.
func (c *compiler) compileList(list *exprList) {
	if list == nil || len(list.Items) == 0 {
		return
	}
	head := list.Items[0]
	switch head.Value.Tag {
	case value.LocalVar, value.Expression, value.Function:
		c.compileCallStmt(list)
	case value.Opcode:
		c.compileAsmStmt(list)
	case value.String:
		rewritten := &exprList{Items: append([]listValue{
			{Origin: head.Origin, Value: value.Value{Tag: value.Reserved, Text: "print"}},
		}, list.Items...)}
		c.stmtPrint(rewritten)
	case value.Reserved:
		c.compileReservedStmt(list)
	default:
		c.errorf(head.Origin, "expression not permitted to begin with value of type %s", head.Value.Tag)
	}
}

// compileCallStmt lowers an implicit function/local-variable call statement:
// push each argument in reverse order, push argCount, push the callee, emit
// Call (spec.md §4.4; original_source's handle_call_stmt).
func (c *compiler) compileCallStmt(list *exprList) {
	callee := list.Items[0]
	args := list.Items[1:]

	for i := len(args) - 1; i >= 0; i-- {
		c.compileValue(args[i])
	}
	emitPush(c.fn, value.Int(int32(len(args))))
	if callee.Value.Tag == value.Expression {
		c.compileList(callee.List)
	} else {
		emitPush(c.fn, callee.Value)
	}
	c.fn.Code.Add8(uint8(value.Call))
}

// compileAsmStmt lowers a raw-opcode statement embedded in the structured
// path (a list headed by an Opcode value), per original_source's
// handle_asm_stmt: operand count must equal opcode.Inputs+1 (the head
// counts), Call is special-cased to a variable operand count, Store's first
// operand is rewritten from LocalVar to VarRef, and operands are emitted in
// reverse listed order.
func (c *compiler) compileAsmStmt(list *exprList) {
	head := list.Items[0]
	op := head.Value.Opcode
	wanted := op.Inputs + 1

	if op.Code == value.Call {
		const minCallOperands = 3
		if len(list.Items) < minCallOperands {
			c.errorf(head.Origin, "insufficient operands for call opcode (expected at least %d, found %d)", minCallOperands, len(list.Items))
			return
		}
		if list.Items[2].Value.Tag != value.Integer {
			c.errorf(list.Items[2].Origin, "argument count must be integer")
			return
		}
		wanted = minCallOperands + int(list.Items[2].Value.Payload)
	}

	if len(list.Items) != wanted {
		c.errorf(head.Origin, "opcode %s expected %d operands, found %d", op.Name, wanted-1, len(list.Items)-1)
		return
	}

	for i := len(list.Items) - 1; i >= 1; i-- {
		item := list.Items[i]
		if i == 1 && op.Code == value.Store {
			if item.Value.Tag != value.LocalVar {
				c.errorf(item.Origin, "set opcode must reference a local variable")
				continue
			}
			emitPush(c.fn, value.Value{Tag: value.VarRef, Payload: item.Value.Payload})
			continue
		}
		if item.Value.Tag == value.Expression {
			c.compileList(item.List)
		} else {
			emitPush(c.fn, item.Value)
		}
	}
	c.fn.Code.Add8(uint8(op.Code))
	if op.Outputs <= 0 {
		emitPush(c.fn, value.NoneValue)
	}
}

// compileReservedStmt dispatches a reserved-word-headed statement to its
// handler, per original_source's handle_reserved_stmt.
func (c *compiler) compileReservedStmt(list *exprList) {
	head := list.Items[0]
	switch head.Value.Text {
	case "and":
		c.stmtAndOr(list, true)
	case "or":
		c.stmtAndOr(list, false)
	case "break":
		c.stmtBreakContinue(list, true)
	case "continue":
		c.stmtBreakContinue(list, false)
	case "do_while":
		c.stmtDoWhile(list)
	case "if":
		c.stmtIf(list)
	case "label":
		c.stmtLabel(list)
	case "print":
		c.stmtPrint(list)
	case "print_uf":
		c.stmtPrintUF(list)
	case "proc":
		c.stmtProc(list)
	case "while":
		c.stmtWhile(list)
	default:
		c.errorf(head.Origin, "%q is not a valid expression command", head.Value.Text)
	}
}

func checkListSize(list *exprList, min, max int) bool {
	n := len(list.Items)
	return n >= min && n <= max
}

// stmtAndOr lowers (and a b ...) / (or a b ...): short-circuit evaluation
// per spec.md §4.4's control-lowering table.
func (c *compiler) stmtAndOr(list *exprList, isAnd bool) {
	origin := list.origin()
	if len(list.Items) < 3 {
		c.errorf(origin, "%s requires at least two arguments", list.Items[0].Value.Text)
		return
	}

	shortLabel := c.genLabel()
	afterLabel := c.genLabel()
	jumpOp := value.JumpZero
	if !isAnd {
		jumpOp = value.JumpNotZero
	}

	for _, arg := range list.Items[1:] {
		c.compileValue(arg)
		c.emitCondJump(jumpOp, shortLabel, origin)
	}
	if isAnd {
		emitPush(c.fn, value.Int(1))
	} else {
		emitPush(c.fn, value.Int(0))
	}
	c.emitJump(afterLabel, origin)

	c.defineLabel(shortLabel, origin)
	if isAnd {
		emitPush(c.fn, value.Int(0))
	} else {
		emitPush(c.fn, value.Int(1))
	}
	c.defineLabel(afterLabel, origin)
}

func (c *compiler) stmtBreakContinue(list *exprList, isBreak bool) {
	origin := list.origin()
	word := "break"
	if !isBreak {
		word = "continue"
	}
	if !checkListSize(list, 1, 1) {
		c.errorf(origin, "%s statement cannot take arguments", word)
		return
	}
	stack := c.continueLabels
	if isBreak {
		stack = c.breakLabels
	}
	if len(stack) == 0 {
		c.errorf(origin, "%s statement found outside loop", word)
		return
	}
	c.emitJump(stack[len(stack)-1], origin)
}

// stmtWhile lowers (while c body): L_start: emit c; JumpZero L_end; emit
// body; Jump L_start; L_end:
func (c *compiler) stmtWhile(list *exprList) {
	origin := list.origin()
	if len(list.Items) != 3 {
		c.errorf(origin, "while statement must have three expressions")
		return
	}
	startLabel := c.genLabel()
	afterLabel := c.genLabel()
	c.continueLabels = append(c.continueLabels, startLabel)
	c.breakLabels = append(c.breakLabels, afterLabel)

	c.defineLabel(startLabel, origin)
	c.compileValue(list.Items[1])
	c.emitCondJump(value.JumpZero, afterLabel, origin)
	c.compileValue(list.Items[2])
	c.emitJump(startLabel, origin)
	c.defineLabel(afterLabel, origin)

	c.continueLabels = c.continueLabels[:len(c.continueLabels)-1]
	c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]
}

// stmtDoWhile lowers (do_while body c): L_start: emit body; L_continue: emit
// c; JumpZero L_end; Jump L_start; L_end:
func (c *compiler) stmtDoWhile(list *exprList) {
	origin := list.origin()
	if len(list.Items) != 3 {
		c.errorf(origin, "while statement must have three expressions")
		return
	}
	startLabel := c.genLabel()
	condLabel := c.genLabel()
	afterLabel := c.genLabel()
	c.continueLabels = append(c.continueLabels, condLabel)
	c.breakLabels = append(c.breakLabels, afterLabel)

	c.defineLabel(startLabel, origin)
	c.compileValue(list.Items[1])
	c.defineLabel(condLabel, origin)
	c.compileValue(list.Items[2])
	c.emitCondJump(value.JumpZero, afterLabel, origin)
	c.emitJump(startLabel, origin)
	c.defineLabel(afterLabel, origin)

	c.continueLabels = c.continueLabels[:len(c.continueLabels)-1]
	c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]
}

func (c *compiler) stmtLabel(list *exprList) {
	if !checkListSize(list, 2, 2) {
		return
	}
	name := list.Items[1]
	if name.Value.Tag != value.Symbol {
		c.errorf(name.Origin, "label name must be an undefined identifier")
		return
	}
	c.defineLabel(name.Value.Text, name.Origin)
}

// stmtIf lowers (if c t) / (if c t e), per spec.md §4.4.
func (c *compiler) stmtIf(list *exprList) {
	origin := list.origin()
	if len(list.Items) < 3 || len(list.Items) > 4 {
		c.errorf(origin, "if expression must have two or three values")
		return
	}
	afterLabel := c.genLabel()
	elseLabel := c.genLabel()

	c.compileValue(list.Items[1])
	c.emitCondJump(value.JumpZero, elseLabel, origin)
	c.compileValue(list.Items[2])
	c.emitJump(afterLabel, origin)
	c.defineLabel(elseLabel, origin)
	if len(list.Items) == 4 {
		c.compileValue(list.Items[3])
	} else {
		emitPush(c.fn, value.Int(0))
	}
	c.defineLabel(afterLabel, origin)
}

func (c *compiler) stmtPrint(list *exprList) {
	origin := list.origin()
	if len(list.Items) <= 1 {
		c.errorf(origin, "print statement requires arguments")
		return
	}
	for _, arg := range list.Items[1:] {
		c.compileValue(arg)
		c.fn.Code.Add8(uint8(value.Say))
	}
}

func (c *compiler) stmtPrintUF(list *exprList) {
	origin := list.origin()
	if len(list.Items) <= 1 {
		c.errorf(origin, "print statement requires arguments")
		return
	}
	c.compileValue(list.Items[1])
	c.fn.Code.Add8(uint8(value.SayUCFirst))
	for _, arg := range list.Items[2:] {
		c.compileValue(arg)
		c.fn.Code.Add8(uint8(value.Say))
	}
}

func (c *compiler) stmtProc(list *exprList) {
	origin := list.origin()
	if len(list.Items) < 2 {
		c.errorf(origin, "proc statement must contain at least one statement")
		return
	}
	for _, stmt := range list.Items[1:] {
		c.compileValue(stmt)
	}
}
