package runtime

import (
	"sort"
	"strings"

	"github.com/gtrpe/quollvm/lang/gamedata"
	"github.com/gtrpe/quollvm/lang/token"
	"github.com/gtrpe/quollvm/lang/value"
)

func (t *Thread) list(id int32) (*gamedata.List, error) {
	if id <= 0 || int(id) >= len(t.Game.Lists) {
		return nil, errStr("invalid list reference")
	}
	return t.Game.Lists[id], nil
}

func (t *Thread) mapv(id int32) (*gamedata.Map, error) {
	if id <= 0 || int(id) >= len(t.Game.Maps) {
		return nil, errStr("invalid map reference")
	}
	return t.Game.Maps[id], nil
}

func (t *Thread) object(id int32) (*gamedata.Object, error) {
	if id <= 0 || int(id) >= len(t.Game.Objects) {
		return nil, errStr("invalid object reference")
	}
	return t.Game.Objects[id], nil
}

func (t *Thread) function(id int32) (*gamedata.Function, error) {
	if id <= 0 || int(id) >= len(t.Game.Functions) {
		return nil, errStr("invalid function reference")
	}
	return t.Game.Functions[id], nil
}

// getItem implements GetItem. The Object case is grounded directly on
// original_source/runner/gamedata.cpp's ObjectDef::get (including stamping
// the result's SelfObj with the object's own id, so a subsequent Call picks
// up `self`). The List/Map cases generalize the same opcode to the other two
// container tags: original_source/runner/runfunction.cpp's GetItem switch
// only has an Object case (List/Map fall through to its default "get
// requires list, map, or object" error) even though GameData's own ListDef/
// MapDef (gamedata.cpp's MapDef::get/has/set/del) clearly support it; List
// indexing by Integer and Map lookup by Value equality follow that model.
func (t *Thread) getItem(from, index value.Value) (value.Value, error) {
	switch from.Tag {
	case value.Object:
		if index.Tag != value.Property {
			return value.Value{}, errStr("get requires a Property index on an object")
		}
		obj, err := t.object(from.Payload)
		if err != nil {
			return value.Value{}, err
		}
		v, ok := obj.GetProperty(uint32(index.Payload))
		if !ok {
			return value.Int(0), nil
		}
		v.SelfObj = obj.GlobalID
		return v, nil
	case value.List:
		if index.Tag != value.Integer {
			return value.Value{}, errStr("get requires an Integer index on a list")
		}
		l, err := t.list(from.Payload)
		if err != nil {
			return value.Value{}, err
		}
		if index.Payload < 0 || int(index.Payload) >= len(l.Items) {
			return value.Value{}, errStr("list index out of range")
		}
		return l.Items[index.Payload], nil
	case value.Map:
		m, err := t.mapv(from.Payload)
		if err != nil {
			return value.Value{}, err
		}
		for _, row := range m.Rows {
			if value.Equal(row.Key, index) {
				return row.Val, nil
			}
		}
		return value.Int(0), nil
	default:
		return value.Value{}, errStr("get requires list, map, or object")
	}
}

func (t *Thread) hasItem(from, index value.Value) (bool, error) {
	switch from.Tag {
	case value.Object:
		if index.Tag != value.Property {
			return false, errStr("has requires a Property index on an object")
		}
		obj, err := t.object(from.Payload)
		if err != nil {
			return false, err
		}
		_, ok := obj.GetProperty(uint32(index.Payload))
		return ok, nil
	case value.List:
		if index.Tag != value.Integer {
			return false, errStr("has requires an Integer index on a list")
		}
		l, err := t.list(from.Payload)
		if err != nil {
			return false, err
		}
		return index.Payload >= 0 && int(index.Payload) < len(l.Items), nil
	case value.Map:
		m, err := t.mapv(from.Payload)
		if err != nil {
			return false, err
		}
		for _, row := range m.Rows {
			if value.Equal(row.Key, index) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errStr("has requires list, map, or object")
	}
}

func (t *Thread) setItem(from, index, v value.Value) error {
	switch from.Tag {
	case value.Object:
		if index.Tag != value.Property {
			return errStr("setp requires a Property index on an object")
		}
		obj, err := t.object(from.Payload)
		if err != nil {
			return err
		}
		obj.SetProperty(uint32(index.Payload), v)
		return nil
	case value.List:
		if index.Tag != value.Integer {
			return errStr("setp requires an Integer index on a list")
		}
		l, err := t.list(from.Payload)
		if err != nil {
			return err
		}
		if index.Payload < 0 || int(index.Payload) >= len(l.Items) {
			return errStr("list index out of range")
		}
		l.Items[index.Payload] = v
		return nil
	case value.Map:
		m, err := t.mapv(from.Payload)
		if err != nil {
			return err
		}
		for i := range m.Rows {
			if value.Equal(m.Rows[i].Key, index) {
				m.Rows[i].Val = v
				return nil
			}
		}
		m.Rows = append(m.Rows, gamedata.MapRow{Key: index, Val: v})
		return nil
	default:
		return errStr("setp requires list, map, or object")
	}
}

func (t *Thread) delItem(from, index value.Value) error {
	switch from.Tag {
	case value.List:
		l, err := t.list(from.Payload)
		if err != nil {
			return err
		}
		if index.Tag != value.Integer || index.Payload < 0 || int(index.Payload) >= len(l.Items) {
			return errStr("list index out of range")
		}
		l.Items = append(l.Items[:index.Payload], l.Items[index.Payload+1:]...)
		return nil
	case value.Map:
		m, err := t.mapv(from.Payload)
		if err != nil {
			return err
		}
		for i := range m.Rows {
			if value.Equal(m.Rows[i].Key, index) {
				m.Rows = append(m.Rows[:i], m.Rows[i+1:]...)
				return nil
			}
		}
		return nil
	case value.Object:
		obj, err := t.object(from.Payload)
		if err != nil {
			return err
		}
		for i := range obj.Properties {
			if obj.Properties[i].ID == uint32(index.Payload) {
				obj.Properties = append(obj.Properties[:i], obj.Properties[i+1:]...)
				return nil
			}
		}
		return nil
	default:
		return errStr("del_item requires list, map, or object")
	}
}

func (t *Thread) insItem(from, index, v value.Value) error {
	l, err := t.list(from.Payload)
	if err != nil {
		return errStr("ins requires a list")
	}
	if index.Tag != value.Integer || index.Payload < 0 || int(index.Payload) > len(l.Items) {
		return errStr("list index out of range")
	}
	l.Items = append(l.Items, value.Value{})
	copy(l.Items[index.Payload+1:], l.Items[index.Payload:])
	l.Items[index.Payload] = v
	return nil
}

func (t *Thread) indexOf(from, v value.Value) (int32, error) {
	l, err := t.list(from.Payload)
	if err != nil {
		return 0, errStr("index_of requires a list")
	}
	for i, item := range l.Items {
		if value.Equal(item, v) {
			return int32(i), nil
		}
	}
	return -1, nil
}

func (t *Thread) getRandom(from value.Value) (value.Value, error) {
	l, err := t.list(from.Payload)
	if err != nil {
		return value.Value{}, errStr("get_random requires a list")
	}
	if len(l.Items) == 0 {
		return value.Value{}, errStr("get_random on an empty list")
	}
	return l.Items[t.rng.Intn(len(l.Items))], nil
}

// getKeys returns a freshly allocated List: a map's keys, or an object's
// property ids (as Integer). There is no source precedent for this opcode
// (original_source/runner/runfunction.cpp's switch never implements it); the
// shape follows directly from what each container already stores.
func (t *Thread) getKeys(from value.Value) (value.Value, error) {
	switch from.Tag {
	case value.Map:
		m, err := t.mapv(from.Payload)
		if err != nil {
			return value.Value{}, err
		}
		l := t.Game.NewList(m.Origin)
		for _, row := range m.Rows {
			l.Items = append(l.Items, row.Key)
		}
		return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
	case value.Object:
		obj, err := t.object(from.Payload)
		if err != nil {
			return value.Value{}, err
		}
		l := t.Game.NewList(obj.Origin)
		for _, p := range obj.Properties {
			l.Items = append(l.Items, value.Int(int32(p.ID)))
		}
		return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
	default:
		return value.Value{}, errStr("get_keys requires a map or object")
	}
}

func (t *Thread) sortList(from value.Value) error {
	l, err := t.list(from.Payload)
	if err != nil {
		return errStr("sort requires a list")
	}
	sort.SliceStable(l.Items, func(i, j int) bool {
		return t.compareValues(l.Items[i], l.Items[j]) < 0
	})
	return nil
}

// nextObject walks the first-child/next-sibling containment tree spec.md §3
// describes, in classic pre-order "next node" fashion: descend into the
// first child if any, else take the next sibling, else climb ancestors
// looking for one with an unvisited sibling. Returns None once the whole
// tree has been walked.
func (t *Thread) nextObject(from value.Value) (value.Value, error) {
	obj, err := t.object(from.Payload)
	if err != nil {
		return value.Value{}, err
	}
	if obj.ChildID != 0 {
		return value.Value{Tag: value.Object, Payload: obj.ChildID}, nil
	}
	cur := obj
	for cur.ParentID != 0 {
		if cur.SiblingID != 0 {
			return value.Value{Tag: value.Object, Payload: cur.SiblingID}, nil
		}
		parent, err := t.object(cur.ParentID)
		if err != nil {
			return value.NoneValue, nil
		}
		cur = parent
	}
	if cur.SiblingID != 0 {
		return value.Value{Tag: value.Object, Payload: cur.SiblingID}, nil
	}
	return value.NoneValue, nil
}

// isValid reports whether an arena-ref value names a live, in-range entry:
// nonzero payload and within the arena's current length. Grounded on
// spec.md's "index 0 reserved" arena convention; there is no source
// precedent for this opcode.
func (t *Thread) isValid(v value.Value) bool {
	switch v.Tag {
	case value.List:
		return v.Payload > 0 && int(v.Payload) < len(t.Game.Lists)
	case value.Map:
		return v.Payload > 0 && int(v.Payload) < len(t.Game.Maps)
	case value.Object:
		return v.Payload > 0 && int(v.Payload) < len(t.Game.Objects)
	case value.Function:
		return v.Payload > 0 && int(v.Payload) < len(t.Game.Functions)
	case value.String:
		return v.Payload > 0 && int(v.Payload) < len(t.Game.Strings)
	default:
		return false
	}
}

// isStatic reports whether an arena-ref value's index is below the
// persisted boundary recorded at load time (spec.md §9's "Static-ids
// boundary" note).
func (t *Thread) isStatic(v value.Value) bool {
	switch v.Tag {
	case value.List:
		return int(v.Payload) < t.Game.StaticLists
	case value.Map:
		return int(v.Payload) < t.Game.StaticMaps
	case value.Object:
		return int(v.Payload) < t.Game.StaticObjects
	case value.Function:
		return int(v.Payload) < t.Game.StaticFunctions
	case value.String:
		return int(v.Payload) < t.Game.StaticStrings
	default:
		return true
	}
}

// newEntry implements the New opcode: extend the arena named by typeTag and
// return a reference to the fresh (empty) entry, per spec.md §3 ("a New(Type)
// opcode extends an arena and returns the new id").
func (t *Thread) newEntry(typeTag value.Value) (value.Value, error) {
	origin := t.currentOrigin()
	switch value.Tag(typeTag.Payload) {
	case value.List:
		l := t.Game.NewList(origin)
		return value.Value{Tag: value.List, Payload: l.GlobalID}, nil
	case value.Map:
		m := t.Game.NewMap(origin)
		return value.Value{Tag: value.Map, Payload: m.GlobalID}, nil
	case value.Object:
		o := t.Game.NewObject(origin)
		return value.Value{Tag: value.Object, Payload: o.GlobalID}, nil
	case value.String:
		// Deliberately not InternString: that dedupes by text, which would
		// hand back the same index for every dynamically created empty
		// string, defeating StringClear/StringAppend's in-place mutation.
		id := int32(len(t.Game.Strings))
		t.Game.Strings = append(t.Game.Strings, gamedata.StringEntry{Origin: origin})
		return value.Value{Tag: value.String, Payload: id}, nil
	default:
		return value.Value{}, errStr("new requires a List, Map, Object or String type tag")
	}
}

func (t *Thread) currentOrigin() (o token.Origin) {
	if len(t.callStack) == 0 {
		return
	}
	f := t.callStack[len(t.callStack)-1]
	if fn, err := t.function(f.FunctionID); err == nil {
		o = fn.Origin
	}
	return
}

// collectGarbage implements the coarse mark step spec.md §3 describes:
// entries at or beyond each arena's static boundary are reclaimable; a mark
// phase walks every live frame's locals and value stack (the only roots once
// control is back in the interpreter loop) and transitively through
// List/Map/Object fields, then blanks any above-boundary entry that wasn't
// reached. Blanked entries keep their slot (so no other entry's index shifts)
// but read back as an empty/None value, same as original_source's
// "dangling reference reads as 0" convention for other out-of-range access.
func (t *Thread) collectGarbage() {
	markedLists := make(map[int32]bool)
	markedMaps := make(map[int32]bool)
	markedObjects := make(map[int32]bool)

	var mark func(v value.Value)
	mark = func(v value.Value) {
		switch v.Tag {
		case value.List:
			if v.Payload <= 0 || int(v.Payload) >= len(t.Game.Lists) || markedLists[v.Payload] {
				return
			}
			markedLists[v.Payload] = true
			for _, item := range t.Game.Lists[v.Payload].Items {
				mark(item)
			}
		case value.Map:
			if v.Payload <= 0 || int(v.Payload) >= len(t.Game.Maps) || markedMaps[v.Payload] {
				return
			}
			markedMaps[v.Payload] = true
			for _, row := range t.Game.Maps[v.Payload].Rows {
				mark(row.Key)
				mark(row.Val)
			}
		case value.Object:
			if v.Payload <= 0 || int(v.Payload) >= len(t.Game.Objects) || markedObjects[v.Payload] {
				return
			}
			markedObjects[v.Payload] = true
			for _, p := range t.Game.Objects[v.Payload].Properties {
				mark(p.Value)
			}
		}
	}

	for _, f := range t.callStack {
		for _, v := range f.Locals {
			mark(v)
		}
		for _, v := range f.Stack {
			mark(v)
		}
	}

	for i := t.Game.StaticLists; i < len(t.Game.Lists); i++ {
		if !markedLists[int32(i)] {
			t.Game.Lists[i].Items = nil
		}
	}
	for i := t.Game.StaticMaps; i < len(t.Game.Maps); i++ {
		if !markedMaps[int32(i)] {
			t.Game.Maps[i].Rows = nil
		}
	}
	for i := t.Game.StaticObjects; i < len(t.Game.Objects); i++ {
		if !markedObjects[int32(i)] {
			t.Game.Objects[i].Properties = nil
		}
	}
}

// compareValues implements the Value::compare ordering used by the
// comparison opcodes and Sort: Integer compares numerically, String
// compares its text lexicographically, everything else compares by payload
// (original_source/runner/value.cpp's Value::compare has an Integer and a
// default numeric-payload case; the String case is this port's own addition,
// since a sortable vocabulary of strings is otherwise unreachable through
// the opcode table).
func (t *Thread) compareValues(a, b value.Value) int {
	switch {
	case a.Tag == value.Integer && b.Tag == value.Integer:
		switch {
		case a.Payload < b.Payload:
			return -1
		case a.Payload > b.Payload:
			return 1
		default:
			return 0
		}
	case a.Tag == value.String && b.Tag == value.String:
		return strings.Compare(t.stringText(a.Payload), t.stringText(b.Payload))
	default:
		switch {
		case a.Payload < b.Payload:
			return -1
		case a.Payload > b.Payload:
			return 1
		default:
			return 0
		}
	}
}
