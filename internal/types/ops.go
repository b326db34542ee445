package types

import "reflect"

// Operand lifts v into an expression. Expressions pass through, nil becomes
// Null and anything else becomes a bound parameter.
func Operand(v any) Expr {
	switch x := v.(type) {
	case nil:
		return Null
	case Expr:
		return orNull(x)
	}
	return NewValue(v)
}

// Members builds the right side of IN. A single expression or slice is used
// as is; several values become one collection parameter.
func Members(values ...any) Expr {
	if len(values) == 1 {
		if e, ok := values[0].(Expr); ok {
			return orNull(e)
		}
		if values[0] != nil {
			kind := reflect.TypeOf(values[0]).Kind()
			if kind == reflect.Slice || kind == reflect.Array {
				return NewValue(values[0])
			}
		}
	}
	out := make([]any, len(values))
	copy(out, values)
	return NewValue(out)
}

func compare(left Expr, op LogicOperator, v any) *LogicBinary {
	return NewLogicBinary(left, op, Operand(v))
}

// Between is left >= lo AND left <= hi.
func Between(left Expr, lo, hi any) *Set {
	return NewSet(JoinAnd, compare(left, GreaterThanOrEqual, lo), compare(left, LessThanOrEqual, hi))
}

func (p *Property) Eq(v any) *LogicBinary { return compare(p, Equal, v) }
func (p *Property) Ne(v any) *LogicBinary { return compare(p, NotEqual, v) }
func (p *Property) Gt(v any) *LogicBinary { return compare(p, GreaterThan, v) }
func (p *Property) Ge(v any) *LogicBinary { return compare(p, GreaterThanOrEqual, v) }
func (p *Property) Lt(v any) *LogicBinary { return compare(p, LessThan, v) }
func (p *Property) Le(v any) *LogicBinary { return compare(p, LessThanOrEqual, v) }

func (p *Property) In(values ...any) *LogicBinary {
	return NewLogicBinary(p, In, Members(values...))
}

func (p *Property) NotIn(values ...any) *LogicBinary {
	return NewLogicBinary(p, NotIn, Members(values...))
}

func (p *Property) Like(pattern any) *LogicBinary    { return compare(p, Like, pattern) }
func (p *Property) NotLike(pattern any) *LogicBinary { return compare(p, NotLike, pattern) }
func (p *Property) Contains(s any) *LogicBinary      { return compare(p, Contains, s) }
func (p *Property) StartsWith(s any) *LogicBinary    { return compare(p, StartsWith, s) }
func (p *Property) EndsWith(s any) *LogicBinary      { return compare(p, EndsWith, s) }
func (p *Property) IsNull() *LogicBinary             { return compare(p, Equal, nil) }
func (p *Property) IsNotNull() *LogicBinary          { return compare(p, NotEqual, nil) }
func (p *Property) Between(lo, hi any) *Set          { return Between(p, lo, hi) }
func (p *Property) Asc() OrderKey                    { return OrderKey{Expr: p, Ascending: true} }
func (p *Property) Desc() OrderKey                   { return OrderKey{Expr: p} }
func (p *Property) As(alias string) Projection       { return Projection{Expr: p, Alias: alias} }
func (p *Property) Plus(v any) *ValueBinary          { return NewValueBinary(p, Add, Operand(v)) }
func (p *Property) Minus(v any) *ValueBinary         { return NewValueBinary(p, Subtract, Operand(v)) }
func (p *Property) Concat(v any) *ValueBinary        { return NewValueBinary(p, Concatenate, Operand(v)) }

func (f *Function) Eq(v any) *LogicBinary { return compare(f, Equal, v) }
func (f *Function) Ne(v any) *LogicBinary { return compare(f, NotEqual, v) }
func (f *Function) Gt(v any) *LogicBinary { return compare(f, GreaterThan, v) }
func (f *Function) Ge(v any) *LogicBinary { return compare(f, GreaterThanOrEqual, v) }
func (f *Function) Lt(v any) *LogicBinary { return compare(f, LessThan, v) }
func (f *Function) Le(v any) *LogicBinary { return compare(f, LessThanOrEqual, v) }

func (a *Aggregate) Eq(v any) *LogicBinary      { return compare(a, Equal, v) }
func (a *Aggregate) Ne(v any) *LogicBinary      { return compare(a, NotEqual, v) }
func (a *Aggregate) Gt(v any) *LogicBinary      { return compare(a, GreaterThan, v) }
func (a *Aggregate) Ge(v any) *LogicBinary      { return compare(a, GreaterThanOrEqual, v) }
func (a *Aggregate) Lt(v any) *LogicBinary      { return compare(a, LessThan, v) }
func (a *Aggregate) Le(v any) *LogicBinary      { return compare(a, LessThanOrEqual, v) }
func (a *Aggregate) As(alias string) Projection { return Projection{Expr: a, Alias: alias} }

func (b *ValueBinary) Eq(v any) *LogicBinary { return compare(b, Equal, v) }
func (b *ValueBinary) Ne(v any) *LogicBinary { return compare(b, NotEqual, v) }
func (b *ValueBinary) Gt(v any) *LogicBinary { return compare(b, GreaterThan, v) }
func (b *ValueBinary) Ge(v any) *LogicBinary { return compare(b, GreaterThanOrEqual, v) }
func (b *ValueBinary) Lt(v any) *LogicBinary { return compare(b, LessThan, v) }
func (b *ValueBinary) Le(v any) *LogicBinary { return compare(b, LessThanOrEqual, v) }

func (u *Unary) Eq(v any) *LogicBinary { return compare(u, Equal, v) }
func (u *Unary) Ne(v any) *LogicBinary { return compare(u, NotEqual, v) }
func (u *Unary) Gt(v any) *LogicBinary { return compare(u, GreaterThan, v) }
func (u *Unary) Ge(v any) *LogicBinary { return compare(u, GreaterThanOrEqual, v) }
func (u *Unary) Lt(v any) *LogicBinary { return compare(u, LessThan, v) }
func (u *Unary) Le(v any) *LogicBinary { return compare(u, LessThanOrEqual, v) }
