package lambda

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/zoobzio/exprql/internal/types"
	"golang.org/x/tools/go/ast/astutil"
)

// builtinFuncs are the package functions evaluated when their arguments do
// not depend on a parameter.
var builtinFuncs = map[string]any{
	"strings.ToUpper":   strings.ToUpper,
	"strings.ToLower":   strings.ToLower,
	"strings.TrimSpace": strings.TrimSpace,
	"strings.HasPrefix": strings.HasPrefix,
	"strings.HasSuffix": strings.HasSuffix,
	"strings.Contains":  strings.Contains,
	"strings.Compare":   strings.Compare,
	"strings.Repeat":    strings.Repeat,
	"strings.Join":      strings.Join,
	"strconv.Itoa":      strconv.Itoa,
	"fmt.Sprintf":       fmt.Sprintf,
	"fmt.Sprint":        fmt.Sprint,
	"time.Now":          time.Now,
	"time.Unix":         time.Unix,
	"math.Abs":          math.Abs,
	"math.Floor":        math.Floor,
	"math.Ceil":         math.Ceil,
	"math.Round":        math.Round,
	"math.Max":          math.Max,
	"math.Min":          math.Min,
}

// basicTypes are the conversions T(x) understood by the evaluator.
var basicTypes = map[string]reflect.Type{
	"bool":    reflect.TypeFor[bool](),
	"string":  reflect.TypeFor[string](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
	"byte":    reflect.TypeFor[byte](),
	"rune":    reflect.TypeFor[rune](),
	"any":     reflect.TypeFor[any](),
}

var errUndefined = errors.New("undefined")

// result is an evaluated subtree. Constant results came from literals only.
type result struct {
	value    any
	constant bool
}

// fold evaluates an independent subtree into a Value. Literal-only numeric
// and boolean results are inlined; everything else is bound.
func (conv *conversion) fold(e ast.Expr) (types.Expr, error) {
	r, err := conv.eval(e)
	if err != nil {
		conv.log.Debug("lambda folding failed", "expr", conv.text(e), "error", err)
		return nil, &types.EvaluationError{Expr: conv.text(e), Err: err}
	}
	if x, ok := r.value.(types.Expr); ok {
		return x, nil
	}
	if r.value == nil {
		return types.Null, nil
	}
	if r.constant && types.IsPrimitive(r.value) {
		return &types.Value{Value: r.value, Const: true}, nil
	}
	return types.NewValue(r.value), nil
}

// evalValue evaluates e for use as a host value.
func (conv *conversion) evalValue(e ast.Expr) (any, error) {
	r, err := conv.eval(e)
	if err != nil {
		return nil, &types.EvaluationError{Expr: conv.text(e), Err: err}
	}
	return r.value, nil
}

func (conv *conversion) eval(e ast.Expr) (result, error) {
	switch x := astutil.Unparen(e).(type) {
	case *ast.BasicLit:
		v, err := literal(x)
		return result{v, true}, err
	case *ast.Ident:
		return conv.evalIdent(x)
	case *ast.SelectorExpr:
		return conv.evalSelector(x)
	case *ast.CallExpr:
		return conv.evalCall(x)
	case *ast.UnaryExpr:
		return conv.evalUnary(x)
	case *ast.BinaryExpr:
		return conv.evalBinary(x)
	case *ast.IndexExpr:
		return conv.evalIndex(x)
	case *ast.StarExpr:
		r, err := conv.eval(x.X)
		if err != nil {
			return result{}, err
		}
		rv := reflect.ValueOf(r.value)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return result{}, fmt.Errorf("cannot dereference %T", r.value)
		}
		return result{value: rv.Elem().Interface()}, nil
	case *ast.CompositeLit:
		return conv.evalComposite(x)
	}
	return result{}, fmt.Errorf("cannot evaluate %T", e)
}

func literal(lit *ast.BasicLit) (any, error) {
	v := constant.MakeFromLiteral(lit.Value, lit.Kind, 0)
	switch lit.Kind {
	case token.INT:
		if i, ok := constant.Int64Val(v); ok {
			return int(i), nil
		}
		return nil, fmt.Errorf("integer %s overflows", lit.Value)
	case token.FLOAT:
		f, _ := constant.Float64Val(v)
		return f, nil
	case token.CHAR:
		i, _ := constant.Int64Val(v)
		return rune(i), nil
	case token.STRING:
		return constant.StringVal(v), nil
	}
	return nil, fmt.Errorf("unsupported literal %s", lit.Value)
}

func (conv *conversion) evalIdent(id *ast.Ident) (result, error) {
	switch id.Name {
	case "true":
		return result{true, true}, nil
	case "false":
		return result{false, true}, nil
	case "nil":
		return result{nil, true}, nil
	}
	if v, ok := conv.env[id.Name]; ok {
		return result{value: v}, nil
	}
	if fn, ok := conv.funcs[id.Name]; ok {
		return result{value: fn}, nil
	}
	return result{}, fmt.Errorf("%w: %s", errUndefined, id.Name)
}

func (conv *conversion) evalSelector(sel *ast.SelectorExpr) (result, error) {
	if pkg, ok := sel.X.(*ast.Ident); ok {
		if _, bound := conv.env[pkg.Name]; !bound {
			name := pkg.Name + "." + sel.Sel.Name
			if fn, ok := conv.funcs[name]; ok {
				return result{value: fn}, nil
			}
			if fn, ok := builtinFuncs[name]; ok {
				return result{value: fn}, nil
			}
		}
	}
	r, err := conv.eval(sel.X)
	if err != nil {
		return result{}, err
	}
	return member(r.value, sel.Sel.Name)
}

// member reads a field or method value of v.
func member(v any, name string) (result, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return result{}, fmt.Errorf("member %s of nil", name)
	}
	if m := rv.MethodByName(name); m.IsValid() {
		return result{value: m.Interface()}, nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return result{}, fmt.Errorf("member %s of nil %s", name, rv.Type())
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return result{}, fmt.Errorf("%s has no exported member %s", rv.Type(), name)
		}
		return result{value: f.Interface()}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if mv.IsValid() {
				return result{value: mv.Interface()}, nil
			}
		}
	}
	return result{}, fmt.Errorf("%s has no member %s", rv.Type(), name)
}

func (conv *conversion) evalCall(call *ast.CallExpr) (result, error) {
	if id, ok := call.Fun.(*ast.Ident); ok {
		switch id.Name {
		case "len":
			if len(call.Args) != 1 {
				return result{}, errors.New("len takes one argument")
			}
			r, err := conv.eval(call.Args[0])
			if err != nil {
				return result{}, err
			}
			rv := reflect.ValueOf(r.value)
			switch rv.Kind() {
			case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
				return result{rv.Len(), r.constant}, nil
			}
			return result{}, fmt.Errorf("invalid argument for len: %T", r.value)
		}
		if t, ok := basicTypes[id.Name]; ok {
			return conv.convertTo(call, t)
		}
	}
	if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
		if pkg, ok := sel.X.(*ast.Ident); ok {
			name := pkg.Name + "." + sel.Sel.Name
			if name == "cmp.Or" {
				return conv.evalCmpOr(call)
			}
		}
	}

	fr, err := conv.eval(call.Fun)
	if err != nil {
		return result{}, err
	}
	fn := reflect.ValueOf(fr.value)
	if fn.Kind() != reflect.Func {
		return result{}, fmt.Errorf("%s is not a function", conv.text(call.Fun))
	}
	ft := fn.Type()
	if ft.IsVariadic() && len(call.Args) < ft.NumIn()-1 || !ft.IsVariadic() && len(call.Args) != ft.NumIn() {
		return result{}, fmt.Errorf("%s takes %d arguments, got %d", conv.text(call.Fun), ft.NumIn(), len(call.Args))
	}

	args := make([]reflect.Value, len(call.Args))
	for i, a := range call.Args {
		r, err := conv.eval(a)
		if err != nil {
			return result{}, err
		}
		pt := paramType(ft, i)
		if args[i], err = assign(r.value, pt); err != nil {
			return result{}, fmt.Errorf("argument %d of %s: %w", i, conv.text(call.Fun), err)
		}
	}
	out := fn.Call(args)
	if len(out) == 0 {
		return result{}, fmt.Errorf("%s returns no value", conv.text(call.Fun))
	}
	if last := out[len(out)-1]; len(out) > 1 && last.Type().Implements(reflect.TypeFor[error]()) && !last.IsNil() {
		return result{}, last.Interface().(error)
	}
	return result{value: out[0].Interface()}, nil
}

func paramType(ft reflect.Type, i int) reflect.Type {
	if ft.IsVariadic() && i >= ft.NumIn()-1 {
		return ft.In(ft.NumIn() - 1).Elem()
	}
	return ft.In(i)
}

// assign converts v to t the way an untyped constant or an assignment would.
func assign(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) && t.Kind() != reflect.String {
		return rv.Convert(t), nil
	}
	if rv.Kind() == reflect.String && t.Kind() == reflect.String {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}

func (conv *conversion) convertTo(call *ast.CallExpr, t reflect.Type) (result, error) {
	if len(call.Args) != 1 {
		return result{}, fmt.Errorf("conversion to %s takes one argument", t)
	}
	r, err := conv.eval(call.Args[0])
	if err != nil {
		return result{}, err
	}
	if t.Kind() == reflect.Interface {
		return r, nil
	}
	rv := reflect.ValueOf(r.value)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(t) {
		return result{}, fmt.Errorf("cannot convert %T to %s", r.value, t)
	}
	return result{rv.Convert(t).Interface(), r.constant}, nil
}

// evalCmpOr returns the first argument that is not the zero value.
func (conv *conversion) evalCmpOr(call *ast.CallExpr) (result, error) {
	var last result
	for _, a := range call.Args {
		r, err := conv.eval(a)
		if err != nil {
			return result{}, err
		}
		last = r
		if rv := reflect.ValueOf(r.value); rv.IsValid() && !rv.IsZero() {
			return r, nil
		}
	}
	return last, nil
}

func (conv *conversion) evalUnary(u *ast.UnaryExpr) (result, error) {
	r, err := conv.eval(u.X)
	if err != nil {
		return result{}, err
	}
	if u.Op == token.AND {
		rv := reflect.ValueOf(r.value)
		if !rv.IsValid() {
			return result{}, errors.New("cannot take the address of nil")
		}
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return result{value: ptr.Interface()}, nil
	}
	c, kind, ok := toConstant(r.value)
	if !ok {
		return result{}, fmt.Errorf("operator %s not defined on %T", u.Op, r.value)
	}
	if !unaryDefined(u.Op, kind) {
		return result{}, fmt.Errorf("operator %s not defined on %T", u.Op, r.value)
	}
	v, err := fromConstant(constant.UnaryOp(u.Op, c, 0), kind)
	return result{v, r.constant}, err
}

func (conv *conversion) evalBinary(b *ast.BinaryExpr) (result, error) {
	l, err := conv.eval(b.X)
	if err != nil {
		return result{}, err
	}
	// Short-circuit as Go does.
	if lb, ok := l.value.(bool); ok && (b.Op == token.LAND && !lb || b.Op == token.LOR && lb) {
		return l, nil
	}
	r, err := conv.eval(b.Y)
	if err != nil {
		return result{}, err
	}
	isConst := l.constant && r.constant

	switch b.Op {
	case token.EQL, token.NEQ:
		if lt, ok := l.value.(time.Time); ok {
			if rt, ok := r.value.(time.Time); ok {
				return result{lt.Equal(rt) == (b.Op == token.EQL), isConst}, nil
			}
		}
		if _, _, ok := toConstant(l.value); !ok {
			eq := types.ValuesEqual(l.value, r.value)
			return result{eq == (b.Op == token.EQL), isConst}, nil
		}
	}

	lc, lk, ok := toConstant(l.value)
	if !ok {
		return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, l.value)
	}
	rc, rk, ok := toConstant(r.value)
	if !ok {
		return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, r.value)
	}
	if class(lk) != class(rk) {
		return result{}, fmt.Errorf("mismatched types %T and %T", l.value, r.value)
	}
	kind := lk
	if rk == reflect.Float64 {
		kind = rk
	}

	switch b.Op {
	case token.EQL, token.NEQ:
		return result{constant.Compare(lc, b.Op, rc), isConst}, nil
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		if kind == reflect.Bool {
			return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, l.value)
		}
		return result{constant.Compare(lc, b.Op, rc), isConst}, nil
	case token.SHL, token.SHR:
		if kind != reflect.Int {
			return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, l.value)
		}
		n, ok := constant.Uint64Val(rc)
		if !ok {
			return result{}, fmt.Errorf("invalid shift count %s", rc)
		}
		v, err := fromConstant(constant.Shift(lc, b.Op, uint(n)), kind)
		return result{v, isConst}, err
	}

	op := b.Op
	if !binaryDefined(op, kind) {
		return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, l.value)
	}
	if (op == token.QUO || op == token.REM) && constant.Sign(rc) == 0 {
		return result{}, errors.New("division by zero")
	}
	if op == token.QUO && kind == reflect.Int {
		op = token.QUO_ASSIGN
	}
	out := constant.BinaryOp(lc, op, rc)
	if out.Kind() == constant.Unknown {
		return result{}, fmt.Errorf("operator %s not defined on %T", b.Op, l.value)
	}
	v, err := fromConstant(out, kind)
	return result{v, isConst}, err
}

// class groups kinds whose values may be combined.
func class(k reflect.Kind) reflect.Kind {
	if k == reflect.Float64 {
		return reflect.Int
	}
	return k
}

func unaryDefined(op token.Token, kind reflect.Kind) bool {
	switch op {
	case token.NOT:
		return kind == reflect.Bool
	case token.SUB, token.ADD:
		return kind == reflect.Int || kind == reflect.Float64
	case token.XOR:
		return kind == reflect.Int
	}
	return false
}

func binaryDefined(op token.Token, kind reflect.Kind) bool {
	switch op {
	case token.LAND, token.LOR:
		return kind == reflect.Bool
	case token.ADD:
		return kind != reflect.Bool
	case token.SUB, token.MUL, token.QUO:
		return kind == reflect.Int || kind == reflect.Float64
	case token.REM, token.AND, token.OR, token.XOR, token.AND_NOT:
		return kind == reflect.Int
	}
	return false
}

// toConstant lifts a basic host value into go/constant. The kind is the
// representation fromConstant returns.
func toConstant(v any) (constant.Value, reflect.Kind, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return constant.MakeBool(rv.Bool()), reflect.Bool, true
	case reflect.String:
		return constant.MakeString(rv.String()), reflect.String, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return constant.MakeInt64(rv.Int()), reflect.Int, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return constant.MakeUint64(rv.Uint()), reflect.Int, true
	case reflect.Float32, reflect.Float64:
		return constant.MakeFloat64(rv.Float()), reflect.Float64, true
	}
	return constant.MakeUnknown(), reflect.Invalid, false
}

func fromConstant(c constant.Value, kind reflect.Kind) (any, error) {
	switch c.Kind() {
	case constant.Bool:
		return constant.BoolVal(c), nil
	case constant.String:
		return constant.StringVal(c), nil
	case constant.Int:
		if kind == reflect.Float64 {
			f, _ := constant.Float64Val(c)
			return f, nil
		}
		if i, ok := constant.Int64Val(c); ok {
			return int(i), nil
		}
		return nil, fmt.Errorf("integer %s overflows", c)
	case constant.Float:
		f, _ := constant.Float64Val(c)
		if kind == reflect.Int {
			return int(f), nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unrepresentable result %s", c)
}

func (conv *conversion) evalIndex(ix *ast.IndexExpr) (result, error) {
	base, err := conv.eval(ix.X)
	if err != nil {
		return result{}, err
	}
	key, err := conv.eval(ix.Index)
	if err != nil {
		return result{}, err
	}
	rv := reflect.ValueOf(base.value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := key.value.(int)
		if !ok {
			return result{}, fmt.Errorf("index must be an integer, got %T", key.value)
		}
		if i < 0 || i >= rv.Len() {
			return result{}, fmt.Errorf("index %d out of range [0:%d]", i, rv.Len())
		}
		return result{value: rv.Index(i).Interface()}, nil
	case reflect.Map:
		k, err := assign(key.value, rv.Type().Key())
		if err != nil {
			return result{}, err
		}
		v := rv.MapIndex(k)
		if !v.IsValid() {
			return result{value: reflect.Zero(rv.Type().Elem()).Interface()}, nil
		}
		return result{value: v.Interface()}, nil
	}
	return result{}, fmt.Errorf("cannot index %T", base.value)
}

// evalComposite builds slice literals such as []int{1, 2, 3}.
func (conv *conversion) evalComposite(lit *ast.CompositeLit) (result, error) {
	arr, ok := lit.Type.(*ast.ArrayType)
	if !ok {
		return result{}, fmt.Errorf("unsupported composite literal %s", conv.text(lit))
	}
	elem := reflect.TypeFor[any]()
	if id, ok := arr.Elt.(*ast.Ident); ok {
		if t, ok := basicTypes[id.Name]; ok {
			elem = t
		}
	}
	out := reflect.MakeSlice(reflect.SliceOf(elem), len(lit.Elts), len(lit.Elts))
	for i, e := range lit.Elts {
		if _, ok := e.(*ast.KeyValueExpr); ok {
			return result{}, fmt.Errorf("keyed elements are not supported in %s", conv.text(lit))
		}
		r, err := conv.eval(e)
		if err != nil {
			return result{}, err
		}
		v, err := assign(r.value, elem)
		if err != nil {
			return result{}, err
		}
		out.Index(i).Set(v)
	}
	return result{value: out.Interface()}, nil
}
