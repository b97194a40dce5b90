package value

// Op is a one-byte bytecode opcode. Numeric values are stable: they are
// written into gamefiles and the decoder/VM match on the raw byte, so this
// table must never be renumbered once a gamefile format ships. The taxonomy
// here follows the richer of the two source snapshots retained for this
// language (its "builder/runner" generation), per spec.md §9's open question
// on reserved-word/opcode-set drift between source trees.
type Op uint8

//nolint:revive
const (
	Return Op = 0

	Push0    Op = 1
	Push1    Op = 2
	PushNone Op = 3
	Push8    Op = 4
	Push16   Op = 5
	Push32   Op = 6
	Store    Op = 7

	CollectGarbage Op = 8
	SayUCFirst     Op = 9
	Say            Op = 10
	SayUnsigned    Op = 11
	SayChar        Op = 12

	StackPop  Op = 13
	StackDup  Op = 14
	StackPeek Op = 15
	StackSize Op = 16

	Call Op = 17

	IsValid  Op = 18
	ListPush Op = 19
	ListPop  Op = 20
	Sort     Op = 21
	GetItem  Op = 22
	HasItem  Op = 23
	GetSize  Op = 24
	SetItem  Op = 25
	TypeOf   Op = 26
	DelItem  Op = 27
	InsItem  Op = 28
	AsType   Op = 29

	Equal            Op = 30
	NotEqual         Op = 31
	LessThan         Op = 32
	LessThanEqual    Op = 33
	GreaterThan      Op = 34
	GreaterThanEqual Op = 35

	Jump        Op = 36
	JumpZero    Op = 37
	JumpNotZero Op = 38

	Not    Op = 39
	Add    Op = 40
	Sub    Op = 41
	Mult   Op = 42
	Div    Op = 43
	Mod    Op = 44
	Pow    Op = 45
	BitLeft Op = 46
	BitRight Op = 47
	BitAnd  Op = 48
	BitOr   Op = 49
	BitXor  Op = 50
	BitNot  Op = 51

	Random     Op = 52
	NextObject Op = 53
	IndexOf    Op = 54
	GetRandom  Op = 55
	GetKeys    Op = 56
	StackSwap  Op = 57

	GetSetting Op = 58
	SetSetting Op = 59

	GetKey    Op = 60
	GetOption Op = 61
	GetLine   Op = 62
	AddOption Op = 63

	StringClear   Op = 65
	StringAppend  Op = 66
	StringLength  Op = 67
	StringCompare Op = 68

	Error Op = 69
	Origin Op = 70

	New            Op = 74
	StringAppendUF Op = 75
	IsStatic       Op = 76
	EncodeString   Op = 77
	DecodeString   Op = 78

	FileList   Op = 79
	FileRead   Op = 80
	FileWrite  Op = 81
	FileDelete Op = 82

	Tokenize Op = 83
)

// Opcode describes one entry of the opcode table: its mnemonic (used by the
// raw-asm compiler path), its numeric code, and its
// stack arity (inputs consumed, outputs pushed).
type Opcode struct {
	Name    string
	Code    Op
	Inputs  int
	Outputs int
}

// Opcodes is the full table, indexed by mnemonic for the assembler and by
// code for the decoder/VM. Index count and arities are grounded directly on
// the reference runner's runfunction.cpp dispatch (each case's pop/push
// count) and opcode.cpp's declared {inputs, outputs}.
var Opcodes = []Opcode{
	{"return", Return, 1, 0},
	{"push_0", Push0, 0, 1},
	{"push_1", Push1, 0, 1},
	{"push_none", PushNone, 0, 1},
	{"push_8", Push8, 0, 1},
	{"push_16", Push16, 0, 1},
	{"push_32", Push32, 0, 1},
	{"set", Store, 2, 0},
	{"collect_garbage", CollectGarbage, 0, 0},
	{"say_uf", SayUCFirst, 1, 0},
	{"say", Say, 1, 0},
	{"say_unsigned", SayUnsigned, 1, 0},
	{"say_char", SayChar, 1, 0},
	{"pop", StackPop, 1, 0},
	{"stack_dup", StackDup, 1, 2},
	{"stack_peek", StackPeek, 1, 1},
	{"stack_size", StackSize, 0, 1},
	{"call", Call, 2, 1},
	{"is_valid", IsValid, 1, 1},
	{"list_push", ListPush, 2, 0},
	{"list_pop", ListPop, 1, 1},
	{"sort", Sort, 1, 0},
	{"get", GetItem, 2, 1},
	{"has", HasItem, 2, 1},
	{"get_size", GetSize, 1, 1},
	{"setp", SetItem, 3, 0},
	{"typeof", TypeOf, 1, 1},
	{"del_item", DelItem, 2, 0},
	{"ins", InsItem, 3, 0},
	{"astype", AsType, 2, 1},
	{"eq", Equal, 2, 1},
	{"neq", NotEqual, 2, 1},
	{"lt", LessThan, 2, 1},
	{"lte", LessThanEqual, 2, 1},
	{"gt", GreaterThan, 2, 1},
	{"gte", GreaterThanEqual, 2, 1},
	{"jmp", Jump, 1, 0},
	{"jz", JumpZero, 2, 0},
	{"jnz", JumpNotZero, 2, 0},
	{"not", Not, 1, 1},
	{"add", Add, 2, 1},
	{"sub", Sub, 2, 1},
	{"mult", Mult, 2, 1},
	{"div", Div, 2, 1},
	{"mod", Mod, 2, 1},
	{"pow", Pow, 2, 1},
	{"left_shift", BitLeft, 2, 1},
	{"right_shift", BitRight, 2, 1},
	{"bit_and", BitAnd, 2, 1},
	{"bit_or", BitOr, 2, 1},
	{"bit_xor", BitXor, 2, 1},
	{"bit_not", BitNot, 1, 1},
	{"random", Random, 2, 1},
	{"next_object", NextObject, 1, 1},
	{"index_of", IndexOf, 2, 1},
	{"get_random", GetRandom, 1, 1},
	{"get_keys", GetKeys, 1, 1},
	{"stack_swap", StackSwap, 2, 0},
	{"get_setting", GetSetting, 1, 1},
	{"set_setting", SetSetting, 2, 0},
	{"get_key", GetKey, 0, 0},
	{"get_option", GetOption, 1, 0},
	{"get_line", GetLine, 0, 0},
	{"add_option", AddOption, 4, 0},
	{"strclr", StringClear, 1, 0},
	{"strcat", StringAppend, 2, 0},
	{"strlen", StringLength, 1, 1},
	{"strcmp", StringCompare, 2, 1},
	{"error", Error, 1, 0},
	{"origin", Origin, 1, 1},
	{"new", New, 1, 1},
	{"say_uf_append", StringAppendUF, 2, 0},
	{"is_static", IsStatic, 1, 1},
	{"encode_string", EncodeString, 1, 1},
	{"decode_string", DecodeString, 1, 1},
	{"file_list", FileList, 1, 1},
	{"file_read", FileRead, 2, 1},
	{"file_write", FileWrite, 3, 0},
	{"file_delete", FileDelete, 2, 0},
	{"tokenize", Tokenize, 1, 1},
}

var (
	byName = func() map[string]*Opcode {
		m := make(map[string]*Opcode, len(Opcodes))
		for i := range Opcodes {
			m[Opcodes[i].Name] = &Opcodes[i]
		}
		return m
	}()
	byCode = func() map[Op]*Opcode {
		m := make(map[Op]*Opcode, len(Opcodes))
		for i := range Opcodes {
			m[Opcodes[i].Code] = &Opcodes[i]
		}
		return m
	}()
)

// Lookup returns the opcode with the given mnemonic, or nil if none matches.
func Lookup(name string) *Opcode { return byName[name] }

// LookupCode returns the opcode with the given numeric code, or nil.
func LookupCode(code Op) *Opcode { return byCode[code] }

// HasOperand reports whether the opcode carries an immediate operand
// (type tag for Push0/Push1/Push8/Push16/Push32, byte/16/32 payload
// for Push8/16/32) as opposed to taking all operands from the stack.
func (o Op) HasOperand() bool {
	switch o {
	case Push0, Push1, Push8, Push16, Push32:
		return true
	default:
		return false
	}
}
