package runtime

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/value"
)

// The String*/Tokenize/Encode/Decode opcodes have no implementation in
// original_source/runner/runfunction.cpp's retrieved snapshot (its switch
// falls through to "unrecognized opcode" for all of them); spec.md §3's
// "strings created dynamically are appended" is the only textual grounding,
// read here as: a String value's arena slot is a mutable text buffer once
// allocated via New, and strcat/strclr/strlen/strcmp operate on it in place,
// the same relationship Say already has to a read-only gamefile string.

func (t *Thread) stringAppendText(id int32, text string) error {
	if id < 0 || int(id) >= len(t.Game.Strings) {
		return errStr("invalid string reference")
	}
	t.Game.Strings[id].Text += text
	return nil
}

func (t *Thread) stringClear(id int32) error {
	if id < 0 || int(id) >= len(t.Game.Strings) {
		return errStr("invalid string reference")
	}
	t.Game.Strings[id].Text = ""
	return nil
}

// valueText renders v the same way Say does, for strcat's operand (which may
// append a String, an Integer, or anything else worth a readable label).
func (t *Thread) valueText(v value.Value) string {
	switch v.Tag {
	case value.String:
		return t.stringText(v.Payload)
	case value.Integer:
		return strconv.Itoa(int(v.Payload))
	default:
		return "<" + v.Tag.String() + ": " + strconv.Itoa(int(v.Payload)) + ">"
	}
}

func ucFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// tokenize splits a string into whitespace-separated words, interning each
// as its own String arena entry and collecting them into a fresh List — a
// parser-input utility for the player-command style of interaction this
// opcode table otherwise only supports through Say/GetLine.
func (t *Thread) tokenize(id int32) (value.Value, error) {
	if id < 0 || int(id) >= len(t.Game.Strings) {
		return value.Value{}, errStr("invalid string reference")
	}
	words := strings.Fields(t.Game.Strings[id].Text)
	l := t.Game.NewList(t.currentOrigin())
	for _, w := range words {
		wid := t.Game.InternString(w, t.currentOrigin())
		l.Items = append(l.Items, value.Value{Tag: value.String, Payload: wid})
	}
	return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
}

// encodeString converts a String's text into a List of Integer codepoints —
// the representation savestore's blob format (spec.md §6.3) can persist.
func (t *Thread) encodeString(id int32) (value.Value, error) {
	if id < 0 || int(id) >= len(t.Game.Strings) {
		return value.Value{}, errStr("invalid string reference")
	}
	l := t.Game.NewList(t.currentOrigin())
	for _, r := range t.Game.Strings[id].Text {
		l.Items = append(l.Items, value.Int(int32(r)))
	}
	return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
}

// decodeString is encodeString's inverse: a List of Integer codepoints back
// into a freshly allocated String.
func (t *Thread) decodeString(listID int32) (value.Value, error) {
	l, err := t.list(listID)
	if err != nil {
		return value.Value{}, err
	}
	var sb strings.Builder
	for _, item := range l.Items {
		if item.Tag != value.Integer {
			return value.Value{}, errStr("decode_string requires a list of Integer")
		}
		sb.WriteRune(rune(item.Payload))
	}
	id := int32(len(t.Game.Strings))
	t.Game.Strings = append(t.Game.Strings, gamedata.StringEntry{Text: sb.String(), Origin: t.currentOrigin()})
	return value.Value{Tag: value.String, Payload: id}, nil
}
