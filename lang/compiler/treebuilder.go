package compiler

import (
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// cursor walks a function's captured body tokens, grounded on
// original_source's ParseState.
type cursor struct {
	toks []token.Token
	pos  int
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.toks) }

func (c *cursor) cur() token.Token {
	if c.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return c.toks[c.pos]
}

func (c *cursor) advance() token.Token {
	t := c.cur()
	c.pos++
	return t
}

// parseBodyLists splits a function's body tokens into its top-level
// statement lists, per original_source/(src|build)/parse_functions.cpp's
// parse_std_function: the body is just a sequence of `(...)` forms read
// until the tokens run out.
func (c *compiler) parseBodyLists() []*exprList {
	cur := &cursor{toks: c.fn.BodyTokens}
	var lists []*exprList
	for !cur.atEnd() {
		l := c.parseList(cur)
		if l == nil {
			return lists
		}
		lists = append(lists, l)
	}
	return lists
}

func (c *compiler) parseList(cur *cursor) *exprList {
	if cur.cur().Kind != token.OPEN_PAREN {
		c.errorf(cur.cur().Origin, "expected '(', found %s", cur.cur().Kind)
		return nil
	}
	cur.advance()

	list := &exprList{}
	for !cur.atEnd() && cur.cur().Kind != token.CLOSE_PAREN {
		list.Items = append(list.Items, c.parseListValue(cur))
	}
	if cur.atEnd() {
		c.errorf(cur.cur().Origin, "unexpected end of function body inside '('")
		return list
	}
	cur.advance() // ')'
	return list
}

// parseListValue resolves one token into a ListValue, per
// original_source/build/parse_functions.cpp's parse_listvalue + evalIdentifier:
// opcode mnemonic -> reserved word -> global symbol -> local name -> else a
// bare Symbol (resolved, or reported undefined, only if it's ever used in a
// value position).
func (c *compiler) parseListValue(cur *cursor) listValue {
	here := cur.cur()
	switch here.Kind {
	case token.INTEGER:
		cur.advance()
		return listValue{Origin: here.Origin, Value: value.Int(here.Int)}
	case token.PROPERTY:
		cur.advance()
		return listValue{Origin: here.Origin, Value: value.Value{Tag: value.Property, Payload: here.Int}}
	case token.STRING:
		cur.advance()
		id := c.g.InternString(here.Text, here.Origin)
		return listValue{Origin: here.Origin, Value: value.Value{Tag: value.String, Payload: id}}
	case token.VOCAB:
		cur.advance()
		idx, ok := c.g.VocabIndex(here.Text)
		if !ok {
			c.errorf(here.Origin, "undefined vocab word %q", here.Text)
			return listValue{Origin: here.Origin, Value: value.NoneValue}
		}
		return listValue{Origin: here.Origin, Value: value.Value{Tag: value.Vocab, Payload: idx}}
	case token.OPEN_PAREN:
		sub := c.parseList(cur)
		return listValue{Origin: here.Origin, Value: value.Value{Tag: value.Expression}, List: sub}
	case token.IDENT:
		cur.advance()
		return listValue{Origin: here.Origin, Value: c.evalIdentifier(here.Text)}
	default:
		cur.advance()
		c.errorf(here.Origin, "unexpected %s in function body", here.Kind)
		return listValue{Origin: here.Origin, Value: value.NoneValue}
	}
}

// evalIdentifier resolves a bare identifier the way
// original_source/build/parse_functions.cpp's evalIdentifier does.
func (c *compiler) evalIdentifier(name string) value.Value {
	if op := value.Lookup(name); op != nil {
		return value.Value{Tag: value.Opcode, Text: name, Opcode: op}
	}
	if reservedWords[name] {
		return value.Value{Tag: value.Reserved, Text: name}
	}
	if sym, ok := c.g.LookupSymbol(name); ok {
		return sym
	}
	if idx, ok := c.fn.LookupLocal(name); ok {
		c.fn.Locals[idx].Reads++
		return value.Value{Tag: value.LocalVar, Payload: int32(idx)}
	}
	return value.Value{Tag: value.Symbol, Text: name}
}

// compileAsmFunction lowers a raw-asm function's body tokens directly to
// bytecode, per spec.md §4.4's raw-asm path and
// original_source/(src|build)/parse_functions.cpp's parse_asm_function.
func (c *compiler) compileAsmFunction() {
	cur := &cursor{toks: c.fn.BodyTokens}
	for !cur.atEnd() {
		here := cur.cur()
		switch here.Kind {
		case token.STRING:
			id := c.g.InternString(here.Text, here.Origin)
			emitPush(c.fn, value.Value{Tag: value.String, Payload: id})
			cur.advance()
		case token.PROPERTY:
			emitPush(c.fn, value.Value{Tag: value.Property, Payload: here.Int})
			cur.advance()
		case token.INTEGER:
			emitPush(c.fn, value.Int(here.Int))
			cur.advance()
		case token.STAR:
			cur.advance()
			if cur.cur().Kind != token.IDENT {
				c.errorf(cur.cur().Origin, "expected local variable name after '*'")
				break
			}
			nameTok := cur.advance()
			idx, ok := c.fn.LookupLocal(nameTok.Text)
			if !ok {
				c.errorf(nameTok.Origin, "%q is not a local variable name", nameTok.Text)
			}
			emitPush(c.fn, value.Value{Tag: value.VarRef, Payload: int32(idx)})
		case token.IDENT:
			if cur.pos+1 < len(cur.toks) && cur.toks[cur.pos+1].Kind == token.COLON {
				c.defineLabel(here.Text, here.Origin)
				cur.advance()
				cur.advance()
				break
			}
			cur.advance()
			result := c.evalIdentifier(here.Text)
			switch result.Tag {
			case value.Opcode:
				c.fn.Code.Add8(uint8(result.Opcode.Code))
			case value.Reserved:
				c.errorf(here.Origin, "unexpected reserved word %q in asm function body", here.Text)
			case value.Symbol:
				c.emitLabelRef(here.Text, here.Origin)
			default:
				emitPush(c.fn, result)
			}
		default:
			cur.advance()
			c.errorf(here.Origin, "unexpected %s in asm function body", here.Kind)
		}
	}
	c.fn.Code.Add8(uint8(value.Return))
}

// compileStdFunction lowers a structured function's body: first into the
// List-of-ListValues tree, then statement by statement, then appends the
// trailing `Push 0; Return` every function needs (spec.md §4.4).
func (c *compiler) compileStdFunction() {
	lists := c.parseBodyLists()
	for _, l := range lists {
		c.compileList(l)
	}
	emitPush(c.fn, value.Int(0))
	c.fn.Code.Add8(uint8(value.Return))
}
