package types

import "fmt"

// NotBit marks the logical negation of a base operation.
const NotBit = 0x80

// Operator is the set of operator families sharing the NotBit layout.
type Operator interface {
	~uint8
}

// Positive strips the negation bit.
func Positive[T Operator](op T) T {
	return op &^ NotBit
}

// Opposite flips the negation bit.
func Opposite[T Operator](op T) T {
	return op ^ NotBit
}

// IsNegated reports whether the negation bit is set.
func IsNegated[T Operator](op T) bool {
	return op&NotBit != 0
}

// LogicOperator is a predicate-producing binary operator.
type LogicOperator uint8

const (
	Equal LogicOperator = iota + 1
	GreaterThan
	GreaterThanOrEqual
	Like
	In
	StartsWith
	EndsWith
	Contains
)

// Negated forms. LessThanOrEqual is "not greater than", LessThan is "not greater or equal".
const (
	NotEqual        = Equal | NotBit
	LessThanOrEqual = GreaterThan | NotBit
	LessThan        = GreaterThanOrEqual | NotBit
	NotLike         = Like | NotBit
	NotIn           = In | NotBit
	NotStartsWith   = StartsWith | NotBit
	NotEndsWith     = EndsWith | NotBit
	NotContains     = Contains | NotBit
)

type opInfo struct {
	name   string
	symbol string
}

var logicOperators = map[LogicOperator]opInfo{
	Equal:              {"eq", "="},
	NotEqual:           {"ne", "<>"},
	GreaterThan:        {"gt", ">"},
	LessThanOrEqual:    {"le", "<="},
	GreaterThanOrEqual: {"ge", ">="},
	LessThan:           {"lt", "<"},
	Like:               {"like", "LIKE"},
	NotLike:            {"notlike", "NOT LIKE"},
	In:                 {"in", "IN"},
	NotIn:              {"notin", "NOT IN"},
	StartsWith:         {"startswith", "STARTS WITH"},
	NotStartsWith:      {"notstartswith", "NOT STARTS WITH"},
	EndsWith:           {"endswith", "ENDS WITH"},
	NotEndsWith:        {"notendswith", "NOT ENDS WITH"},
	Contains:           {"contains", "CONTAINS"},
	NotContains:        {"notcontains", "NOT CONTAINS"},
}

// Valid reports whether op is a known logic operator.
func (op LogicOperator) Valid() bool {
	_, ok := logicOperators[op]
	return ok
}

// Name returns the codec name of the operator.
func (op LogicOperator) Name() string {
	if info, ok := logicOperators[op]; ok {
		return info.name
	}
	return fmt.Sprintf("logic(%d)", uint8(op))
}

func (op LogicOperator) String() string {
	if info, ok := logicOperators[op]; ok {
		return info.symbol
	}
	return fmt.Sprintf("LogicOperator(%d)", uint8(op))
}

// IsPattern reports whether op belongs to the LIKE family that builds its own pattern.
func (op LogicOperator) IsPattern() bool {
	switch Positive(op) {
	case StartsWith, EndsWith, Contains:
		return true
	}
	return false
}

// Reversed returns the operator that keeps the comparison true when operands swap.
func (op LogicOperator) Reversed() (LogicOperator, bool) {
	switch op {
	case Equal, NotEqual:
		return op, true
	case GreaterThan:
		return LessThan, true
	case LessThan:
		return GreaterThan, true
	case GreaterThanOrEqual:
		return LessThanOrEqual, true
	case LessThanOrEqual:
		return GreaterThanOrEqual, true
	}
	return op, false
}

// ParseLogicOperator maps a codec name back to its operator.
func ParseLogicOperator(name string) (LogicOperator, bool) {
	for op, info := range logicOperators {
		if info.name == name {
			return op, true
		}
	}
	return 0, false
}

// ValueOperator is a value-producing binary operator.
type ValueOperator uint8

const (
	Add ValueOperator = iota + 1
	Subtract
	Multiply
	Divide
	Modulo
	BitAnd
	BitOr
	BitXor
	Concatenate
)

var valueOperators = map[ValueOperator]opInfo{
	Add:         {"add", "+"},
	Subtract:    {"sub", "-"},
	Multiply:    {"mul", "*"},
	Divide:      {"div", "/"},
	Modulo:      {"mod", "%"},
	BitAnd:      {"band", "&"},
	BitOr:       {"bor", "|"},
	BitXor:      {"bxor", "^"},
	Concatenate: {"concat", "||"},
}

// Valid reports whether op is a known value operator. Negated arithmetic is never valid.
func (op ValueOperator) Valid() bool {
	_, ok := valueOperators[op]
	return ok
}

// Name returns the codec name of the operator.
func (op ValueOperator) Name() string {
	if info, ok := valueOperators[op]; ok {
		return info.name
	}
	return fmt.Sprintf("value(%d)", uint8(op))
}

func (op ValueOperator) String() string {
	if info, ok := valueOperators[op]; ok {
		return info.symbol
	}
	return fmt.Sprintf("ValueOperator(%d)", uint8(op))
}

// ParseValueOperator maps a codec name back to its operator.
func ParseValueOperator(name string) (ValueOperator, bool) {
	for op, info := range valueOperators {
		if info.name == name {
			return op, true
		}
	}
	return 0, false
}

// UnaryOperator applies to a single operand.
type UnaryOperator uint8

const (
	Identity UnaryOperator = iota + 1
	Negate
	BitwiseNot
)

// Not is the logical negation of the identity.
const Not = Identity | NotBit

var unaryOperators = map[UnaryOperator]opInfo{
	Identity:   {"id", ""},
	Not:        {"not", "NOT "},
	Negate:     {"neg", "-"},
	BitwiseNot: {"bnot", "~"},
}

// Valid reports whether op is a known unary operator.
func (op UnaryOperator) Valid() bool {
	_, ok := unaryOperators[op]
	return ok
}

// Name returns the codec name of the operator.
func (op UnaryOperator) Name() string {
	if info, ok := unaryOperators[op]; ok {
		return info.name
	}
	return fmt.Sprintf("unary(%d)", uint8(op))
}

func (op UnaryOperator) String() string {
	if info, ok := unaryOperators[op]; ok {
		return info.symbol
	}
	return fmt.Sprintf("UnaryOperator(%d)", uint8(op))
}

// ParseUnaryOperator maps a codec name back to its operator.
func ParseUnaryOperator(name string) (UnaryOperator, bool) {
	for op, info := range unaryOperators {
		if info.name == name {
			return op, true
		}
	}
	return 0, false
}
