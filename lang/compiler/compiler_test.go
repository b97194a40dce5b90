package compiler

import (
	"testing"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/lexer"
	"github.com/gtrpe/quollvm/lang/parser"
	"github.com/gtrpe/quollvm/lang/translator"
	"github.com/gtrpe/quollvm/lang/value"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, src string) *gamedata.GameData {
	t.Helper()
	g := gamedata.New()
	translator.SeedDefaults(g)
	toks := lexer.Lex([]lexer.Source{{Name: "t.src", Text: src}}, g, g.Errors)
	parser.Parse(toks, g)
	translator.Translate(g)
	Compile(g)
	return g
}

func mainFunc(t *testing.T, g *gamedata.GameData) *gamedata.Function {
	t.Helper()
	v, ok := g.LookupSymbol("main")
	require.True(t, ok, "main must be declared")
	return g.Functions[v.Payload]
}

// codeBytes dumps a function's code stream for op-sequence assertions.
func codeBytes(fn *gamedata.Function) []byte {
	return fn.Code.Bytes()
}

func containsOp(code []byte, op value.Op) bool {
	for _, b := range code {
		if value.Op(b) == op {
			return true
		}
	}
	return false
}

func TestStdFunctionEndsWithPushZeroAndReturn(t *testing.T) {
	g := build(t, `function main() { (print "hi") }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	code := codeBytes(fn)
	require.Equal(t, uint8(value.Return), code[len(code)-1])
	// the instruction immediately before Return must be a Push0 of an
	// Integer (the trailing "push 0" per spec.md §4.4).
	require.Equal(t, uint8(value.Push0), code[len(code)-3])
	require.Equal(t, uint8(value.Integer), code[len(code)-2])
}

func TestIfTrueBranchEmitsJumpZeroAndJump(t *testing.T) {
	g := build(t, `function main() { (if 1 10 20) }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	code := codeBytes(fn)
	require.True(t, containsOp(code, value.JumpZero))
	require.True(t, containsOp(code, value.Jump))
}

func TestAndShortCircuitEmitsJumpZero(t *testing.T) {
	g := build(t, `function main() { (and 1 0 1) }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	require.True(t, containsOp(codeBytes(fn), value.JumpZero))
}

func TestOrShortCircuitEmitsJumpNotZero(t *testing.T) {
	g := build(t, `function main() { (or 0 0 1) }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	require.True(t, containsOp(codeBytes(fn), value.JumpNotZero))
}

func TestWhileLoopEmitsBackwardJump(t *testing.T) {
	g := build(t, `function main() { (while 1 (print "x")) }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	code := codeBytes(fn)
	require.True(t, containsOp(code, value.JumpZero))
	require.True(t, containsOp(code, value.Jump))
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	g := build(t, `function main() { (break) }`)
	require.True(t, g.Errors.HasErrors())
}

func TestContinueInsideWhileResolves(t *testing.T) {
	g := build(t, `function main() { (while 1 (continue)) }`)
	require.False(t, g.Errors.HasErrors())
}

func TestCallStatementPushesArgCountAndCallee(t *testing.T) {
	g := build(t, `
		function helper() { (print "hi") }
		function main() { (helper) }
	`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	require.True(t, containsOp(codeBytes(fn), value.Call))
}

func TestAsmFunctionEmitsRawOpcodesAndReturn(t *testing.T) {
	g := build(t, `asm_function main() { 1 0 add say return }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	code := codeBytes(fn)
	require.Equal(t, uint8(value.Return), code[len(code)-1])
	require.True(t, containsOp(code, value.Add))
	require.True(t, containsOp(code, value.Say))
}

func TestAsmFunctionForwardLabelIsBackpatched(t *testing.T) {
	g := build(t, `asm_function main() { 1 skip jz 0 say skip: return }`)
	require.False(t, g.Errors.HasErrors())
}

func TestAsmFunctionUndefinedLabelIsError(t *testing.T) {
	g := build(t, `asm_function main() { 1 nowhere jz return }`)
	require.True(t, g.Errors.HasErrors())
}

func TestAsmIndirectionPushesVarRef(t *testing.T) {
	g := build(t, `asm_function main(n) { 1 *n set return }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	require.True(t, containsOp(codeBytes(fn), value.Store))
}

func TestLabelStatementDefinesLocalLabel(t *testing.T) {
	g := build(t, `function main() { (label top) (print "x") }`)
	require.False(t, g.Errors.HasErrors())
	fn := mainFunc(t, g)
	_, ok := fn.Labels["top"]
	require.True(t, ok)
}
