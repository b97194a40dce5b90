package runtime

import "github.com/gtrpe/quollvm/lang/value"

// step executes one opcode (every opcode except Return, which run handles
// directly since it may pop a call frame). Operand pop order for each case
// mirrors original_source/runner/runfunction.cpp exactly where that opcode
// is present there; opcodes absent from that snapshot's switch are
// implemented per the arities recorded in lang/value/opcode.go, grounded as
// noted on the individual helpers in arena_ops.go/strings_ops.go/files.go.
func (t *Thread) step(f *Frame, op value.Op) error {
	switch op {
	case value.Push0, value.Push1:
		tb, err := t.rawByte(f)
		if err != nil {
			return err
		}
		n := int32(0)
		if op == value.Push1 {
			n = 1
		}
		f.push(value.Value{Tag: value.Tag(tb), Payload: n})

	case value.PushNone:
		f.push(value.NoneValue)

	case value.Push8:
		tb, err := t.rawByte(f)
		if err != nil {
			return err
		}
		b, err := t.rawByte(f)
		if err != nil {
			return err
		}
		n := int32(int8(b))
		f.push(value.Value{Tag: value.Tag(tb), Payload: n})

	case value.Push16:
		tb, err := t.rawByte(f)
		if err != nil {
			return err
		}
		n, err := t.fetch16(f)
		if err != nil {
			return err
		}
		f.push(value.Value{Tag: value.Tag(tb), Payload: n})

	case value.Push32:
		tb, err := t.rawByte(f)
		if err != nil {
			return err
		}
		n, err := t.fetch32(f)
		if err != nil {
			return err
		}
		f.push(value.Value{Tag: value.Tag(tb), Payload: n})

	case value.Store:
		localID, err := f.popRaw()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		if localID.Tag != value.VarRef {
			return errStr("store requires a VarRef target")
		}
		if localID.Payload < 0 || int(localID.Payload) >= len(f.Locals) {
			return errStr("illegal local number")
		}
		f.Locals[localID.Payload] = v

	case value.SayUCFirst:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag == value.String {
			text := t.stringText(v.Payload)
			if text != "" {
				t.TextBuffer.WriteString(ucFirst(text))
			}
		} else {
			t.say(v)
		}

	case value.Say:
		v, err := f.pop()
		if err != nil {
			return err
		}
		t.say(v)

	case value.SayUnsigned:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.Integer {
			return errStr("say_unsigned requires an Integer")
		}
		t.TextBuffer.WriteString(itoa(int(uint32(v.Payload))))

	case value.SayChar:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.Integer {
			return errStr("say_char requires an Integer")
		}
		t.TextBuffer.WriteRune(rune(v.Payload))

	case value.StackPop:
		if _, err := f.pop(); err != nil {
			return err
		}

	case value.StackDup:
		v, err := f.peek(0)
		if err != nil {
			return err
		}
		f.push(v)

	case value.StackPeek:
		idx, err := f.pop()
		if err != nil {
			return err
		}
		if idx.Tag != value.Integer {
			return errStr("stack_peek requires an Integer index")
		}
		v, err := f.peek(int(idx.Payload))
		if err != nil {
			return err
		}
		f.push(v)

	case value.StackSize:
		f.push(value.Int(int32(len(f.Stack))))

	case value.Call:
		functionID, err := f.pop()
		if err != nil {
			return err
		}
		argCount, err := f.pop()
		if err != nil {
			return err
		}
		if functionID.Tag != value.Function {
			return errStr("call requires a Function value")
		}
		if argCount.Tag != value.Integer {
			return errStr("call requires an Integer arg count")
		}
		self := value.NoneValue
		if functionID.SelfObj > 0 {
			self = value.Value{Tag: value.Object, Payload: functionID.SelfObj}
		}
		args := make([]value.Value, 1, 1+argCount.Payload)
		args[0] = self
		for i := int32(0); i < argCount.Payload; i++ {
			a, err := f.pop()
			if err != nil {
				return err
			}
			args = append(args, a)
		}
		if err := t.pushFrame(functionID.Payload, args); err != nil {
			return err
		}

	case value.IsValid:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.isValid(v)))

	case value.ListPush:
		v, err := f.pop()
		if err != nil {
			return err
		}
		l, err := f.pop()
		if err != nil {
			return err
		}
		lst, err := t.list(l.Payload)
		if err != nil {
			return err
		}
		lst.Items = append(lst.Items, v)

	case value.ListPop:
		l, err := f.pop()
		if err != nil {
			return err
		}
		lst, err := t.list(l.Payload)
		if err != nil {
			return err
		}
		if len(lst.Items) == 0 {
			return errStr("list_pop on an empty list")
		}
		v := lst.Items[len(lst.Items)-1]
		lst.Items = lst.Items[:len(lst.Items)-1]
		f.push(v)

	case value.Sort:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.sortList(v); err != nil {
			return err
		}

	case value.GetItem:
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := f.pop()
		if err != nil {
			return err
		}
		v, err := t.getItem(from, idx)
		if err != nil {
			return err
		}
		f.push(v)

	case value.HasItem:
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := f.pop()
		if err != nil {
			return err
		}
		ok, err := t.hasItem(from, idx)
		if err != nil {
			return err
		}
		f.push(value.Bool(ok))

	case value.GetSize:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.List {
			return errStr("get_size requires a List")
		}
		l, err := t.list(v.Payload)
		if err != nil {
			return err
		}
		f.push(value.Int(int32(len(l.Items))))

	case value.SetItem:
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := f.pop()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.setItem(from, idx, v); err != nil {
			return err
		}

	case value.TypeOf:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Int(int32(v.Tag)))

	case value.DelItem:
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.delItem(from, idx); err != nil {
			return err
		}

	case value.InsItem:
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := f.pop()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.insItem(from, idx, v); err != nil {
			return err
		}

	case value.AsType:
		toType, err := f.pop()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		if toType.Tag != value.Integer {
			return errStr("astype requires an Integer type tag")
		}
		f.push(value.Value{Tag: value.Tag(toType.Payload), Payload: v.Payload})

	case value.Equal:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) == 0))

	case value.NotEqual:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) != 0))

	case value.Jump:
		target, err := f.pop()
		if err != nil {
			return err
		}
		if target.Tag != value.JumpTarget {
			return errStr("jmp requires a JumpTarget")
		}
		f.IP = f.Base + int(target.Payload)

	case value.JumpZero, value.JumpNotZero:
		target, err := f.pop()
		if err != nil {
			return err
		}
		cond, err := f.pop()
		if err != nil {
			return err
		}
		if target.Tag != value.JumpTarget {
			return errStr("conditional jump requires a JumpTarget")
		}
		truth := value.Truth(cond)
		if (op == value.JumpZero && !truth) || (op == value.JumpNotZero && truth) {
			f.IP = f.Base + int(target.Payload)
		}

	case value.LessThan:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) > 0))

	case value.LessThanEqual:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) >= 0))

	case value.GreaterThan:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) < 0))

	case value.GreaterThanEqual:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.compareValues(lhs, rhs) <= 0))

	case value.Not:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(!value.Truth(v)))

	case value.Add, value.Sub, value.Mult, value.Div, value.Mod, value.Pow:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		if lhs.Tag != value.Integer || rhs.Tag != value.Integer {
			return errStr("arithmetic requires Integer operands")
		}
		var result int32
		switch op {
		case value.Add:
			result = rhs.Payload + lhs.Payload
		case value.Sub:
			result = rhs.Payload - lhs.Payload
		case value.Mult:
			result = rhs.Payload * lhs.Payload
		case value.Div:
			if lhs.Payload == 0 {
				return errStr("division by zero")
			}
			result = rhs.Payload / lhs.Payload
		case value.Mod:
			if lhs.Payload == 0 {
				return errStr("division by zero")
			}
			result = rhs.Payload % lhs.Payload
		case value.Pow:
			// Pops like its siblings: rhs (top of stack) is the base and lhs
			// (beneath it) the exponent. A negative exponent multiplies zero
			// times, yielding 1.
			result = 1
			for i := int32(0); i < lhs.Payload; i++ {
				result *= rhs.Payload
			}
		}
		f.push(value.Int(result))

	case value.BitLeft, value.BitRight, value.BitAnd, value.BitOr, value.BitXor:
		v1, err := f.pop()
		if err != nil {
			return err
		}
		v2, err := f.pop()
		if err != nil {
			return err
		}
		if v1.Tag != value.Integer || v2.Tag != value.Integer {
			return errStr("bitwise op requires Integer operands")
		}
		var result int32
		switch op {
		case value.BitLeft:
			result = v1.Payload << uint32(v2.Payload)
		case value.BitRight:
			result = v1.Payload >> uint32(v2.Payload)
		case value.BitAnd:
			result = v1.Payload & v2.Payload
		case value.BitOr:
			result = v1.Payload | v2.Payload
		case value.BitXor:
			result = v1.Payload ^ v2.Payload
		}
		f.push(value.Int(result))

	case value.BitNot:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.Integer {
			return errStr("bit_not requires an Integer operand")
		}
		f.push(value.Int(^v.Payload))

	case value.Random:
		max, err := f.pop()
		if err != nil {
			return err
		}
		min, err := f.pop()
		if err != nil {
			return err
		}
		if min.Tag != value.Integer || max.Tag != value.Integer {
			return errStr("random requires Integer operands")
		}
		if max.Payload <= min.Payload {
			return errStr("random requires max > min")
		}
		f.push(value.Int(min.Payload + int32(t.rng.Intn(int(max.Payload-min.Payload)))))

	case value.NextObject:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.Object {
			return errStr("next_object requires an Object")
		}
		next, err := t.nextObject(v)
		if err != nil {
			return err
		}
		f.push(next)

	case value.IndexOf:
		v, err := f.pop()
		if err != nil {
			return err
		}
		from, err := f.pop()
		if err != nil {
			return err
		}
		idx, err := t.indexOf(from, v)
		if err != nil {
			return err
		}
		f.push(value.Int(idx))

	case value.GetRandom:
		v, err := f.pop()
		if err != nil {
			return err
		}
		result, err := t.getRandom(v)
		if err != nil {
			return err
		}
		f.push(result)

	case value.GetKeys:
		v, err := f.pop()
		if err != nil {
			return err
		}
		result, err := t.getKeys(v)
		if err != nil {
			return err
		}
		f.push(result)

	case value.StackSwap:
		i1, err := f.pop()
		if err != nil {
			return err
		}
		i2, err := f.pop()
		if err != nil {
			return err
		}
		if i1.Tag != value.Integer || i2.Tag != value.Integer {
			return errStr("stack_swap requires Integer indices")
		}
		if int(i1.Payload) < 0 || int(i1.Payload) >= len(f.Stack) ||
			int(i2.Payload) < 0 || int(i2.Payload) >= len(f.Stack) {
			return errStr("stack_swap index out of range")
		}
		f.Stack[i1.Payload], f.Stack[i2.Payload] = f.Stack[i2.Payload], f.Stack[i1.Payload]

	case value.GetSetting:
		id, err := f.pop()
		if err != nil {
			return err
		}
		f.push(t.Settings[id.Payload])

	case value.SetSetting:
		id, err := f.pop()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		t.Settings[id.Payload] = v

	case value.GetKey:
		t.OptionType = OptionKey
		t.suspendDepth = len(t.callStack)

	case value.GetOption:
		functionID, err := f.pop()
		if err != nil {
			return err
		}
		if functionID.Tag != value.Function {
			return errStr("get_option requires a Function value")
		}
		t.OptionType = OptionChoice
		t.OptionFunction = functionID.Payload
		t.suspendDepth = len(t.callStack)

	case value.GetLine:
		t.OptionType = OptionLine
		t.suspendDepth = len(t.callStack)

	case value.AddOption:
		hotkey, err := f.pop()
		if err != nil {
			return err
		}
		extra, err := f.pop()
		if err != nil {
			return err
		}
		v, err := f.pop()
		if err != nil {
			return err
		}
		text, err := f.pop()
		if err != nil {
			return err
		}
		if text.Tag != value.String {
			return errStr("add_option requires a String label")
		}
		if hotkey.Tag != value.Integer && hotkey.Tag != value.None {
			return errStr("add_option requires an Integer or None hotkey")
		}
		key := int32(-1)
		if hotkey.Tag == value.Integer {
			key = hotkey.Payload
		}
		t.Options = append(t.Options, Option{StrID: text.Payload, Value: v, Extra: extra, Hotkey: key})

	case value.StringClear:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.String {
			return errStr("strclr requires a String")
		}
		if err := t.stringClear(v.Payload); err != nil {
			return err
		}

	case value.StringAppend:
		v, err := f.pop()
		if err != nil {
			return err
		}
		s, err := f.pop()
		if err != nil {
			return err
		}
		if s.Tag != value.String {
			return errStr("strcat requires a String destination")
		}
		if err := t.stringAppendText(s.Payload, t.valueText(v)); err != nil {
			return err
		}

	case value.StringLength:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.String {
			return errStr("strlen requires a String")
		}
		f.push(value.Int(int32(len(t.stringText(v.Payload)))))

	case value.StringCompare:
		rhs, err := f.pop()
		if err != nil {
			return err
		}
		lhs, err := f.pop()
		if err != nil {
			return err
		}
		if lhs.Tag != value.String || rhs.Tag != value.String {
			return errStr("strcmp requires two Strings")
		}
		a, b := t.stringText(lhs.Payload), t.stringText(rhs.Payload)
		switch {
		case a < b:
			f.push(value.Int(-1))
		case a > b:
			f.push(value.Int(1))
		default:
			f.push(value.Int(0))
		}

	case value.Error:
		msg, err := f.pop()
		if err != nil {
			return err
		}
		if msg.Tag != value.String {
			return errStr("error requires a String message")
		}
		return errStr(t.stringText(msg.Payload))

	case value.Origin:
		v, err := f.pop()
		if err != nil {
			return err
		}
		o := t.originOf(v)
		id := t.Game.InternString(o.String(), o)
		f.push(value.Value{Tag: value.String, Payload: id})

	case value.New:
		typeTag, err := f.pop()
		if err != nil {
			return err
		}
		v, err := t.newEntry(typeTag)
		if err != nil {
			return err
		}
		f.push(v)

	case value.StringAppendUF:
		v, err := f.pop()
		if err != nil {
			return err
		}
		s, err := f.pop()
		if err != nil {
			return err
		}
		if s.Tag != value.String {
			return errStr("say_uf_append requires a String destination")
		}
		if err := t.stringAppendText(s.Payload, ucFirst(t.valueText(v))); err != nil {
			return err
		}

	case value.IsStatic:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.push(value.Bool(t.isStatic(v)))

	case value.EncodeString:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.String {
			return errStr("encode_string requires a String")
		}
		result, err := t.encodeString(v.Payload)
		if err != nil {
			return err
		}
		f.push(result)

	case value.DecodeString:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.List {
			return errStr("decode_string requires a List")
		}
		result, err := t.decodeString(v.Payload)
		if err != nil {
			return err
		}
		f.push(result)

	case value.FileList:
		if _, err := f.pop(); err != nil { // reserved operand, unused
			return err
		}
		result, err := t.fileList()
		if err != nil {
			return err
		}
		f.push(result)

	case value.FileRead:
		def, err := f.pop()
		if err != nil {
			return err
		}
		name, err := f.pop()
		if err != nil {
			return err
		}
		result, err := t.fileRead(name, def)
		if err != nil {
			return err
		}
		f.push(result)

	case value.FileWrite:
		if _, err := f.pop(); err != nil { // reserved operand, unused
			return err
		}
		data, err := f.pop()
		if err != nil {
			return err
		}
		name, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.fileWrite(name, data); err != nil {
			return err
		}

	case value.FileDelete:
		if _, err := f.pop(); err != nil { // reserved operand, unused
			return err
		}
		name, err := f.pop()
		if err != nil {
			return err
		}
		if err := t.fileDelete(name); err != nil {
			return err
		}

	case value.Tokenize:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Tag != value.String {
			return errStr("tokenize requires a String")
		}
		result, err := t.tokenize(v.Payload)
		if err != nil {
			return err
		}
		f.push(result)

	case value.CollectGarbage:
		t.collectGarbage()

	default:
		return errStr("unrecognized opcode " + itoa(int(op)))
	}
	return nil
}
