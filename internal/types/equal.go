package types

import (
	"encoding/json"
	"math"
	"reflect"
	"slices"
)

// ExprEqual reports structural equality. And/Or sets compare as sets of children;
// every other sequence (List and Concat sets, group keys, order keys,
// projections, arguments) compares in order.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Value:
		y, ok := b.(*Value)
		if !ok {
			return false
		}
		if x.Value == nil || y.Value == nil {
			return x.Value == nil && y.Value == nil
		}
		return x.Const == y.Const && ValuesEqual(x.Value, y.Value)
	case *Property:
		y, ok := b.(*Property)
		return ok && x.Alias == y.Alias && x.Name == y.Name
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && ExprEqual(x.Operand, y.Operand)
	case *LogicBinary:
		y, ok := b.(*LogicBinary)
		return ok && x.Op == y.Op && ExprEqual(x.Left, y.Left) && ExprEqual(x.Right, y.Right)
	case *ValueBinary:
		y, ok := b.(*ValueBinary)
		return ok && x.Op == y.Op && ExprEqual(x.Left, y.Left) && ExprEqual(x.Right, y.Right)
	case *Function:
		y, ok := b.(*Function)
		return ok && x.Name == y.Name && exprsEqual(x.Args, y.Args)
	case *Aggregate:
		y, ok := b.(*Aggregate)
		return ok && x.Name == y.Name && x.Distinct == y.Distinct && ExprEqual(x.Arg, y.Arg)
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Kind != y.Kind {
			return false
		}
		if x.Kind.IsLogical() {
			return sameMembers(x.Children, y.Children)
		}
		return exprsEqual(x.Children, y.Children)
	case *Foreign:
		y, ok := b.(*Foreign)
		return ok && x.Relation == y.Relation && x.Alias == y.Alias &&
			slices.Equal(x.TableArgs, y.TableArgs) && logicEqual(x.Inner, y.Inner)
	case *DynamicSQL:
		y, ok := b.(*DynamicSQL)
		return ok && x.Key == y.Key && ValuesEqual(x.Arg, y.Arg)
	case *From:
		y, ok := b.(*From)
		return ok && x.Object == y.Object
	case *Where:
		y, ok := b.(*Where)
		return ok && queryEqual(x.Source, y.Source) && logicEqual(x.Predicate, y.Predicate)
	case *GroupBy:
		y, ok := b.(*GroupBy)
		return ok && queryEqual(x.Source, y.Source) && exprsEqual(x.Keys, y.Keys)
	case *Having:
		y, ok := b.(*Having)
		return ok && ExprEqual(x.Source, y.Source) && logicEqual(x.Predicate, y.Predicate)
	case *OrderBy:
		y, ok := b.(*OrderBy)
		if !ok || !queryEqual(x.Source, y.Source) || len(x.Keys) != len(y.Keys) {
			return false
		}
		for i := range x.Keys {
			if x.Keys[i].Ascending != y.Keys[i].Ascending || !ExprEqual(x.Keys[i].Expr, y.Keys[i].Expr) {
				return false
			}
		}
		return true
	case *Section:
		y, ok := b.(*Section)
		return ok && x.Offset == y.Offset && x.Limit == y.Limit && queryEqual(x.Source, y.Source)
	case *Select:
		y, ok := b.(*Select)
		if !ok || !queryEqual(x.Source, y.Source) || len(x.Projections) != len(y.Projections) {
			return false
		}
		for i := range x.Projections {
			if x.Projections[i].Alias != y.Projections[i].Alias || !ExprEqual(x.Projections[i].Expr, y.Projections[i].Expr) {
				return false
			}
		}
		return true
	}
	return false
}

func logicEqual(a, b Logic) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ExprEqual(a, b)
}

func queryEqual(a, b Query) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ExprEqual(a, b)
}

func exprsEqual(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ExprEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameMembers compares a and b ignoring order and duplicates.
func sameMembers(a, b []Expr) bool {
	return containsAll(a, b) && containsAll(b, a)
}

func containsAll(set, items []Expr) bool {
	index := make(map[uint64][]Expr, len(set))
	for _, e := range set {
		h := Hash(e)
		index[h] = append(index[h], e)
	}
	for _, e := range items {
		found := false
		for _, candidate := range index[Hash(e)] {
			if ExprEqual(candidate, e) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ValuesEqual compares literal values after NormalizeValue.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(NormalizeValue(a), NormalizeValue(b))
}

// NormalizeValue maps a literal onto a canonical representation: integers and
// integral floats become int64, other floats float64, slices and arrays []any,
// and string-keyed maps map[string]any.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return x.String()
	case []byte:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u)
		}
		return u
	case reflect.Float32, reflect.Float64:
		return normalizeFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = NormalizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = NormalizeValue(iter.Value().Interface())
		}
		return out
	}
	return v
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
