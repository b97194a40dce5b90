// Package parser implements the declaration parser: a recursive-descent
// reader over the token stream produced by lexer.Lex that populates a
// gamedata.GameData with symbolic (pre-translation) objects, lists, maps,
// functions and flagsets.
//
// It follows nenuphar's own parser in overall shape (advance/expect over a
// token cursor, an accumulating error list) but is flat rather than
// grammar-recursive in the AST sense: spec.md §4.2's grammar is a handful of
// top-level directives, not a full expression/statement language, so there
// is no ast package here — parse_value builds gamedata arena entries
// directly, mirroring original_source/builder/parse_main.cpp's design.
package parser

import (
	"github.com/gtrpe/quollvm/internal/diag"
	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

// Parse consumes toks (normally the concatenation of every source file's
// token stream, each terminated by its own EOF per spec.md §4.1) and
// populates g with every top-level directive it finds. Errors are recorded
// on g.Errors; Parse never stops early on a bad directive, it resyncs at the
// next top-level boundary and continues (spec.md §4.2 error policy).
func Parse(toks []token.Token, g *gamedata.GameData) {
	p := &parser{toks: toks, g: g}
	p.run()
}

type parser struct {
	toks []token.Token
	pos  int
	g    *gamedata.GameData

	labelCounter int
}

func (p *parser) run() {
	for !p.atEnd() {
		if p.cur().Kind == token.EOF {
			p.advance()
			continue
		}
		if p.cur().Kind != token.IDENT {
			p.errorf(p.cur().Origin, "unexpected top-level token %s", p.cur().Kind)
			p.advance()
			continue
		}
		switch p.cur().Text {
		case "declare":
			p.parseDeclare()
		case "default":
			p.parseDefault()
		case "extend":
			p.parseExtend()
		case "object":
			origin := p.cur().Origin
			obj := p.parseObject("")
			if obj != nil && obj.NameStringID == 0 {
				p.g.Errors.Warnf(diagOrigin(origin), "anonymous object at top level can never be referenced")
			}
		case "function":
			origin := p.cur().Origin
			fn := p.parseFunction("", false)
			if fn != nil && fn.Name == "" {
				p.g.Errors.Warnf(diagOrigin(origin), "anonymous function at top level can never be referenced")
			}
		case "asm_function":
			p.parseFunction("", true)
		default:
			p.errorf(p.cur().Origin, "unexpected top level directive %q", p.cur().Text)
			p.skipToSemicolon()
		}
	}
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) cur() token.Token {
	if p.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) token.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[idx]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *parser) match(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) matchIdent(text string) bool {
	return p.cur().Kind == token.IDENT && p.cur().Text == text
}

func diagOrigin(o token.Origin) diag.Origin { return diag.Origin{File: o.File, Line: o.Line} }

func (p *parser) errorf(origin token.Origin, format string, args ...any) {
	p.g.Errors.Errorf(diagOrigin(origin), format, args...)
}

func (p *parser) warnf(origin token.Origin, format string, args ...any) {
	p.g.Errors.Warnf(diagOrigin(origin), format, args...)
}

// skipToSemicolon implements the error-resync policy of spec.md §4.2: each
// failed rule reports one error and skips to the next ';'.
func (p *parser) skipToSemicolon() {
	for !p.atEnd() && p.cur().Kind != token.SEMICOLON && p.cur().Kind != token.EOF {
		p.advance()
	}
	if p.match(token.SEMICOLON) {
		p.advance()
	}
}

// parseDeclare handles `declare NAME value;`.
func (p *parser) parseDeclare() {
	origin := p.cur().Origin
	p.advance() // "declare"
	if !p.match(token.IDENT) {
		p.errorf(origin, "expected identifier after declare")
		p.skipToSemicolon()
		return
	}
	name := p.advance().Text
	v := p.parseValue(name)
	if v.Tag == value.Object || v.Tag == value.Function {
		p.errorf(origin, "declaration of %s cannot declare objects or functions", name)
	}
	p.g.DeclareSymbol(name, v)
	if !p.match(token.SEMICOLON) {
		p.errorf(p.cur().Origin, "expected ';' after declare")
		p.skipToSemicolon()
		return
	}
	p.advance()
}

// parseDefault handles `default NAME value;`.
func (p *parser) parseDefault() {
	origin := p.cur().Origin
	p.advance() // "default"
	if !p.match(token.IDENT) {
		p.errorf(origin, "expected identifier after default")
		p.skipToSemicolon()
		return
	}
	name := p.advance().Text
	v := p.parseValue(name)
	if v.Tag == value.Object || v.Tag == value.Function {
		p.warnf(origin, "default value for %s cannot declare objects or functions", name)
	}
	if _, exists := p.g.Defaults[name]; exists {
		p.warnf(origin, "default value for %s already declared", name)
	} else {
		p.g.DeclareDefault(name, v, origin)
	}
	if !p.match(token.SEMICOLON) {
		p.errorf(p.cur().Origin, "expected ';' after default")
		p.skipToSemicolon()
		return
	}
	p.advance()
}

// parseExtend handles `extend NAME …;`, appending to an existing List/Map or
// adding properties to an existing Object (spec.md §4.2).
func (p *parser) parseExtend() {
	origin := p.cur().Origin
	p.advance() // "extend"
	if !p.match(token.IDENT) {
		p.errorf(origin, "expected identifier after extend")
		p.skipToSemicolon()
		return
	}
	name := p.advance().Text
	old, ok := p.g.LookupSymbol(name)
	if !ok {
		p.errorf(origin, "can only extend existing values")
		p.skipToSemicolon()
		return
	}
	switch old.Tag {
	case value.List:
		if !p.match(token.OPEN_SQUARE) {
			p.errorf(origin, "cannot expand %s as list", name)
			p.skipToSemicolon()
			return
		}
		p.advance()
		list := p.g.Lists[old.Payload]
		for !p.match(token.CLOSE_SQUARE) && !p.atEnd() {
			if p.match(token.SEMICOLON) {
				p.errorf(p.cur().Origin, "list values must be terminated with ]")
				p.advance()
				return
			}
			list.Items = append(list.Items, p.parseValue(""))
		}
		p.advance()
	case value.Map:
		if !p.match(token.OPEN_BRACE) {
			p.errorf(origin, "cannot expand %s as map", name)
			p.skipToSemicolon()
			return
		}
		p.advance()
		m := p.g.Maps[old.Payload]
		for !p.match(token.CLOSE_BRACE) && !p.atEnd() {
			if p.match(token.SEMICOLON) {
				p.errorf(p.cur().Origin, "map must be terminated with }")
				p.advance()
				return
			}
			key := p.parseValue("")
			if !p.match(token.COLON) {
				p.errorf(p.cur().Origin, "expected ':' in map row")
			} else {
				p.advance()
			}
			val := p.parseValue("")
			m.Rows = append(m.Rows, gamedata.MapRow{Key: key, Val: val})
		}
		p.advance()
	case value.Object:
		obj := p.g.Objects[old.Payload]
		hadError := false
		for !p.match(token.SEMICOLON) && !p.atEnd() {
			if !p.parseObjectProperty(obj) {
				hadError = true
				break
			}
		}
		if hadError {
			p.skipToSemicolon()
			return
		}
	default:
		p.errorf(origin, "invalid value to extend %s %s", old.Tag, name)
		p.skipToSemicolon()
		return
	}
	if !p.match(token.SEMICOLON) {
		p.errorf(p.cur().Origin, "expected ';' after extend")
		p.skipToSemicolon()
		return
	}
	p.advance()
}

// parseFlags handles `flags(identOrInt …)`.
func (p *parser) parseFlags() value.Value {
	origin := p.cur().Origin
	p.advance() // "flags"
	if !p.match(token.OPEN_PAREN) {
		p.errorf(origin, "expected '(' after flags")
		return value.NoneValue
	}
	p.advance()

	fs := p.g.NewFlagSet(origin)
	for !p.match(token.CLOSE_PAREN) && !p.atEnd() {
		switch p.cur().Kind {
		case token.INTEGER:
			fs.Members = append(fs.Members, value.Int(p.cur().Int))
			p.advance()
		case token.IDENT:
			fs.Members = append(fs.Members, value.Value{Tag: value.Symbol, Text: p.cur().Text})
			p.advance()
		default:
			p.errorf(p.cur().Origin, "invalid token %s in flags", p.cur().Kind)
			p.advance()
		}
	}
	if p.match(token.CLOSE_PAREN) {
		p.advance()
	}
	return value.Value{Tag: value.FlagSet, Payload: fs.GlobalID}
}

// parseList handles `[ … ]`.
func (p *parser) parseList() value.Value {
	origin := p.cur().Origin
	p.advance() // '['
	list := p.g.NewList(origin)
	for !p.match(token.CLOSE_SQUARE) {
		if p.atEnd() {
			p.errorf(origin, "unexpected end of file in list")
			return value.Value{Tag: value.List, Payload: list.GlobalID}
		}
		list.Items = append(list.Items, p.parseValue(""))
	}
	p.advance()
	return value.Value{Tag: value.List, Payload: list.GlobalID}
}

// parseMap handles `{ key : value … }`.
func (p *parser) parseMap() value.Value {
	origin := p.cur().Origin
	m := p.g.NewMap(origin)
	p.advance() // '{'
	for !p.match(token.CLOSE_BRACE) {
		if p.atEnd() {
			p.errorf(origin, "unexpected end of file in map")
			return value.Value{Tag: value.Map, Payload: m.GlobalID}
		}
		k := p.parseValue("")
		var v value.Value
		if !p.match(token.COLON) {
			p.errorf(p.cur().Origin, "expected ':' in map row")
		} else {
			p.advance()
			v = p.parseValue("")
		}
		m.Rows = append(m.Rows, gamedata.MapRow{Key: k, Val: v})
	}
	p.advance()
	return value.Value{Tag: value.Map, Payload: m.GlobalID}
}

// parseObjectProperty parses one `$prop value` pair onto obj. It returns
// false if parsing should abort the enclosing object/extend directive.
func (p *parser) parseObjectProperty(obj *gamedata.Object) bool {
	if p.atEnd() {
		p.errorf(obj.Origin, "unexpected end-of-file while parsing object")
		return false
	}
	if !p.match(token.PROPERTY) {
		p.errorf(p.cur().Origin, "expected property, got %s", p.cur().Kind)
		p.advance()
		return true
	}
	propID := uint32(p.cur().Int)
	propName := p.cur().Text
	p.advance()
	if p.atEnd() {
		p.errorf(obj.Origin, "unexpected end of file in object definition")
		return false
	}
	v := p.parseValue(propName)
	obj.SetProperty(propID, v)
	return true
}

// parseObject handles `object [Name] [: Parent] $prop value … ;`.
func (p *parser) parseObject(defaultName string) *gamedata.Object {
	internalNameID := p.g.InternProperty("internal_name")
	parentID := p.g.InternProperty("parent")

	origin := p.cur().Origin
	p.advance() // "object"

	name := defaultName
	if p.match(token.IDENT) {
		name = p.advance().Text
	}
	var parentName string
	if p.match(token.COLON) {
		p.advance()
		if !p.match(token.IDENT) {
			p.errorf(p.cur().Origin, "expected identifier after ':'")
		} else {
			parentName = p.advance().Text
		}
	}

	obj := p.g.NewObject(origin)
	if name != "" {
		obj.NameStringID = p.g.InternString(name, origin)
		p.g.DeclareSymbol(name, value.Value{Tag: value.Object, Payload: obj.GlobalID})
		obj.SetProperty(internalNameID, value.Value{Tag: value.String, Payload: obj.NameStringID})
	}
	if parentName != "" {
		obj.SetProperty(parentID, value.Value{Tag: value.Symbol, Text: parentName})
	}

	for !p.match(token.SEMICOLON) && !p.atEnd() {
		if !p.parseObjectProperty(obj) {
			p.skipToSemicolon()
			return obj
		}
	}
	p.advance()
	return obj
}

// parseFunction handles both `function` and `asm_function` declarations. The
// structured path captures its body tokens verbatim for the expression
// compiler's later pass; the asm path does the same (the compiler dispatches
// on IsAsm), since either way the body can only be resolved once every
// top-level symbol is known (spec.md §4.2).
func (p *parser) parseFunction(defaultName string, isAsm bool) *gamedata.Function {
	origin := p.cur().Origin
	p.advance() // "function" / "asm_function"

	name := defaultName
	if p.match(token.IDENT) {
		name = p.advance().Text
	}

	if !p.match(token.OPEN_PAREN) {
		p.errorf(origin, "expected '(' after function name")
		p.skipToBrace()
		return nil
	}
	p.advance()

	fn := p.g.NewFunction(origin)
	fn.Name = name
	fn.IsAsm = isAsm
	if name != "" {
		p.g.DeclareSymbol(name, value.Value{Tag: value.Function, Payload: fn.GlobalID})
		fn.NameStringID = p.g.InternString(name, origin)
	}
	fn.ArgCount = 1 // hidden self

	for !p.match(token.CLOSE_PAREN) && !p.atEnd() {
		if !p.match(token.IDENT) {
			p.errorf(p.cur().Origin, "expected identifier in argument list")
			p.advance()
			continue
		}
		argName := p.advance().Text
		declared := value.None
		if p.match(token.COLON) {
			p.advance()
			if !p.match(token.IDENT) {
				p.errorf(p.cur().Origin, "expected type identifier after ':'")
			} else {
				typeName := p.advance().Text
				sym, ok := p.g.LookupSymbol(typeName)
				if !ok || sym.Tag != value.TypeId {
					p.errorf(origin, "%s is not a valid type", typeName)
				} else {
					declared = value.Tag(sym.Payload)
				}
			}
		}
		fn.AddLocal(argName, declared)
		fn.ArgCount++
	}
	if p.match(token.CLOSE_PAREN) {
		p.advance()
	}

	if !p.match(token.OPEN_BRACE) {
		p.errorf(origin, "expected '{' to begin function body")
		p.skipToBrace()
		return fn
	}
	p.advance()

	if p.match(token.OPEN_SQUARE) {
		p.advance()
		for !p.match(token.CLOSE_SQUARE) && !p.atEnd() {
			if !p.match(token.IDENT) {
				p.errorf(p.cur().Origin, "expected identifier in local list")
				p.advance()
				continue
			}
			fn.AddLocal(p.advance().Text, value.None)
			fn.LocalCount++
		}
		if p.match(token.CLOSE_SQUARE) {
			p.advance()
		}
	}

	depth := 1
	for depth > 0 {
		if p.atEnd() {
			p.errorf(origin, "unexpected end of file in function")
			return fn
		}
		if p.match(token.OPEN_BRACE) {
			depth++
		} else if p.match(token.CLOSE_BRACE) {
			depth--
			if depth == 0 {
				p.advance()
				break
			}
		}
		fn.BodyTokens = append(fn.BodyTokens, p.cur())
		p.advance()
	}

	// Vocab words used inside a body are only seen by the compiler, which
	// runs after the translator has already sorted and fixed the vocabulary
	// (spec.md §4.3 step 0 / §4.4). Register them now so SortVocab still
	// sees every word in the program.
	for _, tok := range fn.BodyTokens {
		if tok.Kind == token.VOCAB {
			p.g.InternVocab(tok.Text)
		}
	}
	return fn
}

func (p *parser) skipToBrace() {
	for !p.atEnd() && p.cur().Kind != token.CLOSE_BRACE {
		p.advance()
	}
	if p.match(token.CLOSE_BRACE) {
		p.advance()
	}
}

// parseValue dispatches on the current token, per spec.md §4.2's parse_value
// table.
func (p *parser) parseValue(defaultName string) value.Value {
	origin := p.cur().Origin
	if p.atEnd() {
		p.errorf(origin, "unexpected end of file")
		return value.NoneValue
	}

	switch {
	case p.matchIdent("object"):
		obj := p.parseObject(defaultName)
		if obj == nil {
			return value.NoneValue
		}
		return value.Value{Tag: value.Object, Payload: obj.GlobalID}
	case p.matchIdent("flags"):
		return p.parseFlags()
	case p.matchIdent("function"):
		fn := p.parseFunction(defaultName, false)
		if fn == nil {
			return value.NoneValue
		}
		return value.Value{Tag: value.Function, Payload: fn.GlobalID}
	case p.matchIdent("asm_function"):
		fn := p.parseFunction(defaultName, true)
		if fn == nil {
			return value.NoneValue
		}
		return value.Value{Tag: value.Function, Payload: fn.GlobalID}
	case p.match(token.INTEGER):
		v := value.Int(p.cur().Int)
		p.advance()
		return v
	case p.match(token.PROPERTY):
		v := value.Value{Tag: value.Property, Payload: p.cur().Int}
		p.advance()
		return v
	case p.match(token.STRING):
		id := p.g.InternString(p.cur().Text, origin)
		p.advance()
		return value.Value{Tag: value.String, Payload: id}
	case p.match(token.VOCAB):
		p.g.InternVocab(p.cur().Text)
		v := value.Value{Tag: value.Vocab, Text: p.cur().Text}
		p.advance()
		return v
	case p.match(token.IDENT):
		name := p.cur().Text
		p.advance()
		return value.Value{Tag: value.Symbol, Text: name}
	case p.match(token.OPEN_SQUARE):
		return p.parseList()
	case p.match(token.OPEN_BRACE):
		return p.parseMap()
	default:
		p.errorf(origin, "encountered value of invalid type %s", p.cur().Kind)
		p.advance()
		return value.NoneValue
	}
}
