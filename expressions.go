package exprql

import (
	"fmt"

	"github.com/zoobzio/exprql/internal/types"
)

// P creates a property reference from "name" or "alias.name".
// Panics if the path contains anything but [A-Za-z0-9_] segments.
func P(path string) *Property {
	p, err := types.NewProperty(path)
	if err != nil {
		panic(fmt.Sprintf("invalid property: %v", err))
	}
	return p
}

// TryP creates a property reference, returning an error for an invalid path.
func TryP(path string) (*Property, error) {
	return types.NewProperty(path)
}

// V creates a bound parameter. A nil v yields Null.
func V(v any) *Value { return types.NewValue(v) }

// Const creates an inline literal. Panics if v is not a boolean or number.
func Const(v any) *Value {
	c, err := types.NewConst(v)
	if err != nil {
		panic(fmt.Sprintf("invalid constant: %v", err))
	}
	return c
}

// TryConst creates an inline literal, returning an error for non-primitive values.
func TryConst(v any) (*Value, error) {
	return types.NewConst(v)
}

// Eq compares the named property with v.
func Eq(name string, v any) *LogicBinary {
	return P(name).Eq(v)
}

// C creates a comparison between arbitrary operands.
func C(left any, op LogicOperator, right any) *LogicBinary {
	return types.NewLogicBinary(types.Operand(left), op, types.Operand(right))
}

// In tests the named property for membership. A single slice, List set or
// query is used as the member source directly.
func In(name string, values ...any) *LogicBinary {
	return P(name).In(values...)
}

// NotIn is the negation of In.
func NotIn(name string, values ...any) *LogicBinary {
	return P(name).NotIn(values...)
}

func exprs[T Expr](items []T) []Expr {
	out := make([]Expr, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// And joins predicates. Nested And sets are flattened.
func And(preds ...Logic) *Set {
	return types.NewSet(types.JoinAnd, exprs(preds)...)
}

// Or joins predicates. Nested Or sets are flattened.
func Or(preds ...Logic) *Set {
	return types.NewSet(types.JoinOr, exprs(preds)...)
}

// Not negates a predicate.
func Not(p Logic) *Unary {
	return types.NewUnary(types.Not, p)
}

// Concat concatenates values through the dialect.
func Concat(parts ...Expr) *Set {
	return types.NewSet(types.JoinConcat, parts...)
}

// List creates a parenthesized value list.
func List(items ...Expr) *Set {
	return types.NewSet(types.JoinList, items...)
}

// Between is e >= lo AND e <= hi.
func Between(e Expr, lo, hi any) *Set {
	return types.Between(e, lo, hi)
}

// Like matches the named property against a raw LIKE pattern.
func Like(name, pattern string) *LogicBinary { return P(name).Like(pattern) }

// NotLike is the negation of Like.
func NotLike(name, pattern string) *LogicBinary { return P(name).NotLike(pattern) }

// Contains matches the named property containing s. Wildcards in s are escaped.
func Contains(name, s string) *LogicBinary { return P(name).Contains(s) }

// StartsWith matches the named property starting with s.
func StartsWith(name, s string) *LogicBinary { return P(name).StartsWith(s) }

// EndsWith matches the named property ending with s.
func EndsWith(name, s string) *LogicBinary { return P(name).EndsWith(s) }

// IsNull tests the named property for NULL.
func IsNull(name string) *LogicBinary { return P(name).IsNull() }

// IsNotNull tests the named property for a value.
func IsNotNull(name string) *LogicBinary { return P(name).IsNotNull() }

// NewSetBuilder accumulates children for an immutable Set.
func NewSetBuilder(kind SetKind) *SetBuilder { return types.NewSetBuilder(kind) }

// Func creates a scalar function call. Panics on an invalid name.
func Func(name string, args ...Expr) *Function {
	f, err := types.NewFunction(name, args...)
	if err != nil {
		panic(fmt.Sprintf("invalid function: %v", err))
	}
	return f
}

// TryFunc creates a scalar function call, returning an error for an invalid name.
func TryFunc(name string, args ...Expr) (*Function, error) {
	return types.NewFunction(name, args...)
}

// Coalesce returns the first non-null argument.
func Coalesce(args ...Expr) *Function { return Func("COALESCE", args...) }

// Upper, Lower and Length are common scalar functions.
func Upper(e Expr) *Function  { return Func("UPPER", e) }
func Lower(e Expr) *Function  { return Func("LOWER", e) }
func Length(e Expr) *Function { return Func("LENGTH", e) }

func aggregate(name string, arg Expr, distinct bool) *Aggregate {
	a, err := types.NewAggregate(name, arg, distinct)
	if err != nil {
		panic(fmt.Sprintf("invalid aggregate: %v", err))
	}
	return a
}

// Helper functions for creating aggregate expressions.

// Count counts non-null values of e.
func Count(e Expr) *Aggregate { return aggregate("COUNT", e, false) }

// CountAll is COUNT(*).
func CountAll() *Aggregate { return aggregate("COUNT", nil, false) }

// CountDistinct counts distinct values of e.
func CountDistinct(e Expr) *Aggregate { return aggregate("COUNT", e, true) }

// Sum creates a SUM aggregate expression.
func Sum(e Expr) *Aggregate { return aggregate("SUM", e, false) }

// Avg creates an AVG aggregate expression.
func Avg(e Expr) *Aggregate { return aggregate("AVG", e, false) }

// Min creates a MIN aggregate expression.
func Min(e Expr) *Aggregate { return aggregate("MIN", e, false) }

// Max creates a MAX aggregate expression.
func Max(e Expr) *Aggregate { return aggregate("MAX", e, false) }

// Asc orders by e ascending.
func Asc(e Expr) OrderKey { return OrderKey{Expr: e, Ascending: true} }

// Desc orders by e descending.
func Desc(e Expr) OrderKey { return OrderKey{Expr: e} }

// As projects e under alias. Panics on an invalid alias.
func As(e Expr, alias string) Projection {
	if err := types.CheckIdentifier("alias", alias); err != nil {
		panic(fmt.Sprintf("invalid projection: %v", err))
	}
	return Projection{Expr: e, Alias: alias}
}

// Col projects e without an alias.
func Col(e Expr) Projection { return Projection{Expr: e} }

// Arithmetic.

func Add(l, r any) *ValueBinary { return valueOp(l, types.Add, r) }
func Sub(l, r any) *ValueBinary { return valueOp(l, types.Subtract, r) }
func Mul(l, r any) *ValueBinary { return valueOp(l, types.Multiply, r) }
func Div(l, r any) *ValueBinary { return valueOp(l, types.Divide, r) }
func Mod(l, r any) *ValueBinary { return valueOp(l, types.Modulo, r) }

func valueOp(l any, op ValueOperator, r any) *ValueBinary {
	return types.NewValueBinary(types.Operand(l), op, types.Operand(r))
}

// Neg negates a numeric value.
func Neg(e Expr) *Unary { return types.NewUnary(types.Negate, e) }

// Exists tests for related rows through a declared relation or related object name.
func Exists(relation string, inner Logic, tableArgs ...string) *Foreign {
	return ExistsAs(relation, "", inner, tableArgs...)
}

// ExistsAs is Exists with an alias naming the related rows inside inner.
func ExistsAs(relation, alias string, inner Logic, tableArgs ...string) *Foreign {
	f, err := types.NewForeign(relation, alias, inner, tableArgs...)
	if err != nil {
		panic(fmt.Sprintf("invalid relation: %v", err))
	}
	return f
}

// TryExists creates an EXISTS node, returning an error on invalid identifiers.
func TryExists(relation, alias string, inner Logic, tableArgs ...string) (*Foreign, error) {
	return types.NewForeign(relation, alias, inner, tableArgs...)
}

// SQL creates a node rendered by the fragment registered under key.
func SQL(key string, arg any) *DynamicSQL {
	d, err := types.NewDynamicSQL(key, arg)
	if err != nil {
		panic(fmt.Sprintf("invalid fragment: %v", err))
	}
	return d
}

// TrySQL creates a fragment node, returning an error for an invalid key.
func TrySQL(key string, arg any) (*DynamicSQL, error) {
	return types.NewDynamicSQL(key, arg)
}
