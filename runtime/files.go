package runtime

import "github.com/gtrpe/quollvm/lang/value"

// The File* opcodes translate 1:1 onto Thread.Store per spec.md §6.3; there
// is no original_source precedent (runfunction.cpp's switch never reaches
// these codes), so the stack shapes below are this port's own, chosen to
// mirror FileWrite needing both a name and the payload it writes, and
// FileRead/FileDelete taking a name plus one more operand each to keep the
// family's arities internally consistent with lang/value/opcode.go's table.

func (t *Thread) fileList() (value.Value, error) {
	if t.Store == nil {
		return value.Value{}, errStr("file_list: no file store configured")
	}
	names, err := t.Store.List(t.GameID)
	if err != nil {
		return value.Value{}, err
	}
	l := t.Game.NewList(t.currentOrigin())
	for _, n := range names {
		id := t.Game.InternString(n, t.currentOrigin())
		l.Items = append(l.Items, value.Value{Tag: value.String, Payload: id})
	}
	return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
}

// fileRead reads the named file, returning its decoded contents as a List of
// Integer, or def (the fallback operand) if the file does not exist.
func (t *Thread) fileRead(name value.Value, def value.Value) (value.Value, error) {
	if t.Store == nil {
		return value.Value{}, errStr("file_read: no file store configured")
	}
	if name.Tag != value.String {
		return value.Value{}, errStr("file_read requires a String name")
	}
	blob, err := t.Store.Get(t.GameID, t.stringText(name.Payload))
	if err != nil {
		return def, nil
	}
	l := t.Game.NewList(t.currentOrigin())
	for _, n := range blob {
		l.Items = append(l.Items, value.Int(n))
	}
	return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
}

func (t *Thread) fileWrite(name, data value.Value) error {
	if t.Store == nil {
		return errStr("file_write: no file store configured")
	}
	if name.Tag != value.String {
		return errStr("file_write requires a String name")
	}
	l, err := t.list(data.Payload)
	if err != nil {
		return errStr("file_write requires a List payload")
	}
	blob := make([]int32, len(l.Items))
	for i, item := range l.Items {
		if item.Tag != value.Integer {
			return errStr("file_write requires a list of Integer")
		}
		blob[i] = item.Payload
	}
	return t.Store.Put(t.GameID, t.stringText(name.Payload), blob)
}

func (t *Thread) fileDelete(name value.Value) error {
	if t.Store == nil {
		return errStr("file_delete: no file store configured")
	}
	if name.Tag != value.String {
		return errStr("file_delete requires a String name")
	}
	return t.Store.Delete(t.GameID, t.stringText(name.Payload))
}
