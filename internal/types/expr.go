package types

import (
	"fmt"
	"reflect"
	"strings"
)

// Expr is a node of the expression tree. The set of implementations is closed
// and every node is immutable once constructed.
type Expr interface {
	fmt.Stringer
	node()
}

// Logic is an Expr usable in predicate position.
type Logic interface {
	Expr
	logic()
}

// Value is a literal. Const values are inlined into SQL; all others are bound as parameters.
type Value struct {
	Value any
	Const bool
}

// Null is the shared null literal.
var Null = &Value{Const: true}

// NewValue wraps v as a bound parameter. A nil v yields Null.
func NewValue(v any) *Value {
	if v == nil {
		return Null
	}
	return &Value{Value: v}
}

// NewConst wraps v as an inline literal. Only booleans and numbers qualify.
func NewConst(v any) (*Value, error) {
	if v == nil {
		return Null, nil
	}
	if !IsPrimitive(v) {
		return nil, &ExpressionError{Expr: fmt.Sprintf("%#v", v), Reason: "constant must be a boolean or number"}
	}
	return &Value{Value: v, Const: true}, nil
}

// IsPrimitive reports whether v is a boolean or a number.
func IsPrimitive(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsNull reports whether e is the null literal.
func IsNull(e Expr) bool {
	v, ok := e.(*Value)
	return ok && v.Value == nil
}

// orNull replaces a nil expression with Null.
func orNull(e Expr) Expr {
	if e == nil {
		return Null
	}
	if v, ok := e.(*Value); ok && v == nil {
		return Null
	}
	return e
}

// Property references a member of the current row, or of an aliased scope.
type Property struct {
	Alias string
	Name  string
}

// NewProperty parses "name" or "alias.name". The alias may itself be a dotted path.
func NewProperty(path string) (*Property, error) {
	alias, name := "", path
	i := strings.LastIndexByte(path, '.')
	if i >= 0 {
		alias, name = path[:i], path[i+1:]
	}
	if err := CheckIdentifier("property", name); err != nil {
		return nil, err
	}
	if i >= 0 {
		// Every alias segment must be non-empty, so ".x" and "a..b" fail here.
		for _, part := range strings.Split(alias, ".") {
			if err := CheckIdentifier("alias", part); err != nil {
				return nil, err
			}
		}
	}
	return &Property{Alias: alias, Name: name}, nil
}

// Path returns the dotted form accepted by NewProperty.
func (p *Property) Path() string {
	if p.Alias == "" {
		return p.Name
	}
	return p.Alias + "." + p.Name
}

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOperator
	Operand Expr
}

// NewUnary builds a unary node.
func NewUnary(op UnaryOperator, operand Expr) *Unary {
	return &Unary{Op: op, Operand: orNull(operand)}
}

// LogicBinary compares two operands.
type LogicBinary struct {
	Left  Expr
	Op    LogicOperator
	Right Expr
}

// NewLogicBinary builds a comparison node.
func NewLogicBinary(left Expr, op LogicOperator, right Expr) *LogicBinary {
	return &LogicBinary{Left: orNull(left), Op: op, Right: orNull(right)}
}

// Reverse swaps the operands. Unless keepEquivalent is set the operator is replaced
// with its order-reversed counterpart so the comparison keeps its meaning.
func (b *LogicBinary) Reverse(keepEquivalent bool) (*LogicBinary, error) {
	op := b.Op
	if !keepEquivalent {
		reversed, ok := op.Reversed()
		if !ok {
			return nil, &ReversalError{Op: op}
		}
		op = reversed
	}
	return &LogicBinary{Left: b.Right, Op: op, Right: b.Left}, nil
}

// ValueBinary computes a value from two operands.
type ValueBinary struct {
	Left  Expr
	Op    ValueOperator
	Right Expr
}

// NewValueBinary builds an arithmetic or concatenation node.
func NewValueBinary(left Expr, op ValueOperator, right Expr) *ValueBinary {
	return &ValueBinary{Left: orNull(left), Op: op, Right: orNull(right)}
}

// Function is a scalar SQL function call.
type Function struct {
	Name string
	Args []Expr
}

// NewFunction validates name and normalizes nil arguments.
func NewFunction(name string, args ...Expr) (*Function, error) {
	if err := CheckIdentifier("function", name); err != nil {
		return nil, err
	}
	out := make([]Expr, len(args))
	for i, a := range args {
		out[i] = orNull(a)
	}
	return &Function{Name: name, Args: out}, nil
}

// Aggregate is an aggregate function call. A nil Arg aggregates over all rows.
type Aggregate struct {
	Name     string
	Arg      Expr
	Distinct bool
}

// NewAggregate validates name.
func NewAggregate(name string, arg Expr, distinct bool) (*Aggregate, error) {
	if err := CheckIdentifier("aggregate", name); err != nil {
		return nil, err
	}
	return &Aggregate{Name: name, Arg: arg, Distinct: distinct}, nil
}

// Foreign is a correlated EXISTS subquery over a declared relation.
type Foreign struct {
	Relation  string
	Alias     string
	Inner     Logic
	TableArgs []string
}

// NewForeign validates the relation, alias and table arguments.
func NewForeign(relation, alias string, inner Logic, tableArgs ...string) (*Foreign, error) {
	if err := CheckIdentifier("relation", relation); err != nil {
		return nil, err
	}
	if alias != "" {
		if err := CheckIdentifier("alias", alias); err != nil {
			return nil, err
		}
	}
	for _, arg := range tableArgs {
		if err := CheckIdentifier("table argument", arg); err != nil {
			return nil, err
		}
	}
	var args []string
	if len(tableArgs) > 0 {
		args = append(args, tableArgs...)
	}
	return &Foreign{Relation: relation, Alias: alias, Inner: inner, TableArgs: args}, nil
}

// DynamicSQL is rendered by a registered fragment at compile time.
type DynamicSQL struct {
	Key string
	Arg any
}

// NewDynamicSQL validates key.
func NewDynamicSQL(key string, arg any) (*DynamicSQL, error) {
	if err := CheckIdentifier("fragment", key); err != nil {
		return nil, err
	}
	return &DynamicSQL{Key: key, Arg: arg}, nil
}

func (*Value) node()       {}
func (*Property) node()    {}
func (*Unary) node()       {}
func (*LogicBinary) node() {}
func (*ValueBinary) node() {}
func (*Function) node()    {}
func (*Aggregate) node()   {}
func (*Foreign) node()     {}
func (*DynamicSQL) node()  {}

func (*Value) logic()       {}
func (*Property) logic()    {}
func (*Unary) logic()       {}
func (*LogicBinary) logic() {}
func (*Function) logic()    {}
func (*Foreign) logic()     {}
func (*DynamicSQL) logic()  {}
