package lambda

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/zoobzio/exprql/internal/types"
	"golang.org/x/tools/go/ast/astutil"
)

// frame is a lambda parameter in scope.
type frame struct {
	name string
	row  reflect.Type
}

// conversion is the state of one conversion call.
type conversion struct {
	*Converter
	src    string
	frames []*frame
}

func (conv *conversion) frameOf(name string) (int, bool) {
	for i := len(conv.frames) - 1; i >= 0; i-- {
		if conv.frames[i].name == name {
			return i, true
		}
	}
	return -1, false
}

func (conv *conversion) push(f *frame) { conv.frames = append(conv.frames, f) }
func (conv *conversion) pop()          { conv.frames = conv.frames[:len(conv.frames)-1] }

// isPackage reports whether id is a package qualifier rather than a value.
func (conv *conversion) isPackage(id *ast.Ident) bool {
	if _, ok := conv.frameOf(id.Name); ok {
		return false
	}
	_, bound := conv.env[id.Name]
	return !bound
}

func (conv *conversion) isNamespaceCall(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && id.Name == Namespace && conv.isPackage(id)
}

// depends reports whether e references a lambda parameter in scope. Nested
// lambdas and query namespace calls are always converted, never evaluated.
func (conv *conversion) depends(e ast.Expr) bool {
	dep := false
	var walk func(ast.Node) bool
	walk = func(n ast.Node) bool {
		if dep {
			return false
		}
		switch x := n.(type) {
		case *ast.Ident:
			if _, ok := conv.frameOf(x.Name); ok {
				dep = true
			}
		case *ast.SelectorExpr:
			ast.Inspect(x.X, walk)
			return false
		case *ast.KeyValueExpr:
			if _, ok := x.Key.(*ast.Ident); !ok {
				ast.Inspect(x.Key, walk)
			}
			ast.Inspect(x.Value, walk)
			return false
		case *ast.FuncLit:
			dep = true
		case *ast.CallExpr:
			if conv.isNamespaceCall(x) {
				dep = true
			}
		}
		return !dep
	}
	ast.Inspect(e, walk)
	return dep
}

func (conv *conversion) convert(e ast.Expr) (types.Expr, error) {
	e = astutil.Unparen(e)
	if !conv.depends(e) {
		return conv.fold(e)
	}
	switch x := e.(type) {
	case *ast.SelectorExpr:
		return conv.selector(x)
	case *ast.StarExpr:
		return conv.convert(x.X)
	case *ast.UnaryExpr:
		return conv.unary(x)
	case *ast.BinaryExpr:
		return conv.binary(x)
	case *ast.CallExpr:
		return conv.call(x)
	case *ast.CompositeLit:
		items, err := conv.convertAll(x.Elts)
		if err != nil {
			return nil, err
		}
		return types.NewSet(types.JoinList, items...), nil
	case *ast.Ident:
		return nil, conv.unsupported(x, "a row is not a value")
	}
	return nil, conv.unsupported(e, fmt.Sprintf("unsupported syntax %T", e))
}

func (conv *conversion) convertAll(list []ast.Expr) ([]types.Expr, error) {
	out := make([]types.Expr, len(list))
	for i, e := range list {
		if kv, ok := e.(*ast.KeyValueExpr); ok {
			e = kv.Value
		}
		x, err := conv.convert(e)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (conv *conversion) logic(e ast.Expr) (types.Logic, error) {
	x, err := conv.convert(e)
	if err != nil {
		return nil, err
	}
	l, ok := x.(types.Logic)
	if !ok {
		return nil, conv.unsupported(e, "not a predicate")
	}
	return l, nil
}

// chain splits a member chain into the frame of its root parameter and the
// member names.
func (conv *conversion) chain(sel *ast.SelectorExpr) (int, []string, bool) {
	var names []string
	var x ast.Expr = sel
	for {
		switch n := astutil.Unparen(x).(type) {
		case *ast.SelectorExpr:
			names = append(names, n.Sel.Name)
			x = n.X
			continue
		case *ast.StarExpr:
			x = n.X
			continue
		case *ast.Ident:
			fr, ok := conv.frameOf(n.Name)
			if !ok {
				return 0, nil, false
			}
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			return fr, names, true
		}
		return 0, nil, false
	}
}

// property builds a property for path in frame fr. Members of the innermost
// parameter are unqualified; outer parameters qualify with their name.
func (conv *conversion) property(n ast.Node, fr int, path []string) (types.Expr, error) {
	name := strings.Join(path, ".")
	if fr != len(conv.frames)-1 {
		name = conv.frames[fr].name + "." + name
	}
	p, err := types.NewProperty(name)
	if err != nil {
		return nil, &types.ExpressionError{Expr: conv.text(n), Reason: err.Error()}
	}
	return p, nil
}

func (conv *conversion) selector(sel *ast.SelectorExpr) (types.Expr, error) {
	fr, names, ok := conv.chain(sel)
	if !ok {
		return nil, conv.unsupported(sel, "member access on a computed value")
	}
	typ := conv.frames[fr].row
	var path []string
	var expr types.Expr
	var leaf reflect.Type

	for i, name := range names {
		if expr != nil {
			h, ok := conv.member(leaf, name)
			if !ok {
				return nil, conv.unsupported(sel, "no member handler for "+name)
			}
			var err error
			if expr, err = h(expr); err != nil {
				return nil, err
			}
			leaf = nil
			continue
		}

		last := i == len(names)-1
		if typ == nil && i > 0 && last {
			if h, ok := conv.member(nil, name); ok {
				p, err := conv.property(sel, fr, path)
				if err != nil {
					return nil, err
				}
				return h(p)
			}
		}

		fld, ok := lookupField(typ, name)
		if !ok {
			return nil, &types.PropertyError{Object: typeName(typ), Property: name}
		}
		path = append(path, fld.column)
		typ = fld.typ
		if last || isLeaf(typ) {
			p, err := conv.property(sel, fr, path)
			if err != nil {
				return nil, err
			}
			expr, leaf = p, indirect(typ)
		}
	}
	return expr, nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "row"
	}
	return indirect(t).String()
}

func (conv *conversion) member(t reflect.Type, name string) (MemberHandler, bool) {
	if fn, ok := conv.handlers.member(t, name); ok {
		return fn, true
	}
	return DefaultHandlers.member(t, name)
}

func (conv *conversion) method(t reflect.Type, name string) (MethodHandler, bool) {
	if fn, ok := conv.handlers.method(t, name); ok {
		return fn, true
	}
	return DefaultHandlers.method(t, name)
}

// staticType infers the Go type of e where the syntax or the row type tells.
func (conv *conversion) staticType(e ast.Expr) reflect.Type {
	switch x := astutil.Unparen(e).(type) {
	case *ast.BasicLit:
		switch x.Kind {
		case token.STRING:
			return basicTypes["string"]
		case token.INT:
			return basicTypes["int"]
		case token.FLOAT:
			return basicTypes["float64"]
		case token.CHAR:
			return basicTypes["rune"]
		}
	case *ast.Ident:
		if x.Name == "true" || x.Name == "false" {
			return basicTypes["bool"]
		}
		if v, ok := conv.env[x.Name]; ok && v != nil {
			return reflect.TypeOf(v)
		}
	case *ast.SelectorExpr:
		fr, names, ok := conv.chain(x)
		if !ok {
			return nil
		}
		t := conv.frames[fr].row
		for _, name := range names {
			fld, ok := lookupField(t, name)
			if !ok || fld.typ == nil {
				return nil
			}
			t = fld.typ
		}
		return t
	case *ast.StarExpr:
		return indirect(conv.staticType(x.X))
	case *ast.UnaryExpr:
		if x.Op == token.NOT {
			return basicTypes["bool"]
		}
		return conv.staticType(x.X)
	case *ast.BinaryExpr:
		switch x.Op {
		case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ, token.LAND, token.LOR:
			return basicTypes["bool"]
		}
		if t := conv.staticType(x.X); t != nil {
			return t
		}
		return conv.staticType(x.Y)
	case *ast.CallExpr:
		switch fun := x.Fun.(type) {
		case *ast.Ident:
			return basicTypes[fun.Name]
		case *ast.SelectorExpr:
			if pkg, ok := fun.X.(*ast.Ident); ok && pkg.Name == "strings" && conv.isPackage(pkg) {
				switch fun.Sel.Name {
				case "ToUpper", "ToLower", "TrimSpace":
					return basicTypes["string"]
				case "HasPrefix", "HasSuffix", "Contains":
					return basicTypes["bool"]
				}
			}
		}
	}
	return nil
}

func (conv *conversion) isStringy(e ast.Expr, x types.Expr) bool {
	switch v := x.(type) {
	case *types.Value:
		_, ok := v.Value.(string)
		return ok
	case *types.ValueBinary:
		return v.Op == types.Concatenate
	case *types.Set:
		return v.Kind == types.JoinConcat
	}
	return isString(conv.staticType(e))
}

// isPredicate reports whether x is boolean, so & and | combine logically.
func (conv *conversion) isPredicate(e ast.Expr, x types.Expr) bool {
	switch v := x.(type) {
	case *types.LogicBinary, *types.Foreign:
		return true
	case *types.Unary:
		return v.Op == types.Not
	case *types.Set:
		return v.Kind.IsLogical()
	case *types.Value:
		_, ok := v.Value.(bool)
		return ok
	}
	t := indirect(conv.staticType(e))
	return t != nil && t.Kind() == reflect.Bool
}

func (conv *conversion) unary(u *ast.UnaryExpr) (types.Expr, error) {
	switch u.Op {
	case token.NOT:
		operand, err := conv.logic(u.X)
		if err != nil {
			return nil, err
		}
		return types.NewUnary(types.Not, operand), nil
	case token.SUB:
		operand, err := conv.convert(u.X)
		if err != nil {
			return nil, err
		}
		return types.NewUnary(types.Negate, operand), nil
	case token.XOR:
		operand, err := conv.convert(u.X)
		if err != nil {
			return nil, err
		}
		return types.NewUnary(types.BitwiseNot, operand), nil
	case token.ADD:
		return conv.convert(u.X)
	}
	return nil, conv.unsupported(u, "operator "+u.Op.String())
}

var comparisons = map[token.Token]types.LogicOperator{
	token.EQL: types.Equal,
	token.NEQ: types.NotEqual,
	token.LSS: types.LessThan,
	token.LEQ: types.LessThanOrEqual,
	token.GTR: types.GreaterThan,
	token.GEQ: types.GreaterThanOrEqual,
}

var arithmetic = map[token.Token]types.ValueOperator{
	token.ADD: types.Add,
	token.SUB: types.Subtract,
	token.MUL: types.Multiply,
	token.QUO: types.Divide,
	token.REM: types.Modulo,
	token.AND: types.BitAnd,
	token.OR:  types.BitOr,
	token.XOR: types.BitXor,
}

// mirrored is the operator that keeps a comparison true with swapped operands.
var mirrored = map[token.Token]token.Token{
	token.EQL: token.EQL,
	token.NEQ: token.NEQ,
	token.LSS: token.GTR,
	token.LEQ: token.GEQ,
	token.GTR: token.LSS,
	token.GEQ: token.LEQ,
}

func (conv *conversion) binary(b *ast.BinaryExpr) (types.Expr, error) {
	if op, ok := comparisons[b.Op]; ok {
		if x, y, ok := conv.compareCall(b.X); ok && conv.isZero(b.Y) {
			return conv.compare(x, op, y)
		}
		if x, y, ok := conv.compareCall(b.Y); ok && conv.isZero(b.X) {
			return conv.compare(x, comparisons[mirrored[b.Op]], y)
		}
		return conv.compare(b.X, op, b.Y)
	}

	switch b.Op {
	case token.LAND, token.LOR:
		return conv.junction(b.Op == token.LAND, b.X, b.Y)
	}

	left, err := conv.convert(b.X)
	if err != nil {
		return nil, err
	}
	right, err := conv.convert(b.Y)
	if err != nil {
		return nil, err
	}
	if b.Op == token.AND || b.Op == token.OR {
		if conv.isPredicate(b.X, left) && conv.isPredicate(b.Y, right) {
			return conv.junction(b.Op == token.AND, b.X, b.Y)
		}
	}
	if b.Op == token.ADD && (conv.isStringy(b.X, left) || conv.isStringy(b.Y, right)) {
		return types.NewValueBinary(left, types.Concatenate, right), nil
	}
	if op, ok := arithmetic[b.Op]; ok {
		return types.NewValueBinary(left, op, right), nil
	}
	return nil, conv.unsupported(b, "operator "+b.Op.String())
}

func (conv *conversion) compare(x ast.Expr, op types.LogicOperator, y ast.Expr) (types.Expr, error) {
	left, err := conv.convert(x)
	if err != nil {
		return nil, err
	}
	right, err := conv.convert(y)
	if err != nil {
		return nil, err
	}
	return types.NewLogicBinary(left, op, right), nil
}

func (conv *conversion) junction(and bool, x, y ast.Expr) (types.Expr, error) {
	left, err := conv.logic(x)
	if err != nil {
		return nil, err
	}
	right, err := conv.logic(y)
	if err != nil {
		return nil, err
	}
	if and {
		return types.NewSet(types.JoinAnd, left, right), nil
	}
	return types.NewSet(types.JoinOr, left, right), nil
}

// compareCall matches pkg.Compare(a, b) and a.Compare(b).
func (conv *conversion) compareCall(e ast.Expr) (ast.Expr, ast.Expr, bool) {
	call, ok := astutil.Unparen(e).(*ast.CallExpr)
	if !ok {
		return nil, nil, false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Compare" {
		return nil, nil, false
	}
	if pkg, ok := sel.X.(*ast.Ident); ok && conv.isPackage(pkg) {
		if len(call.Args) == 2 {
			return call.Args[0], call.Args[1], true
		}
		return nil, nil, false
	}
	if len(call.Args) == 1 {
		return sel.X, call.Args[0], true
	}
	return nil, nil, false
}

func (conv *conversion) isZero(e ast.Expr) bool {
	if conv.depends(e) {
		return false
	}
	r, err := conv.eval(e)
	if err != nil {
		return false
	}
	c, kind, ok := toConstant(r.value)
	return ok && kind != reflect.Bool && kind != reflect.String && c.String() == "0"
}

func (conv *conversion) call(call *ast.CallExpr) (types.Expr, error) {
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		if _, ok := conv.frameOf(fun.Name); ok {
			return nil, conv.unsupported(call, "a row is not callable")
		}
		if fun.Name == "len" {
			return conv.sqlFunction(call, "LENGTH", 1)
		}
		if _, ok := basicTypes[fun.Name]; ok && len(call.Args) == 1 {
			return conv.convert(call.Args[0])
		}
		return conv.sqlFunction(call, fun.Name, -1)

	case *ast.SelectorExpr:
		if pkg, ok := fun.X.(*ast.Ident); ok && conv.isPackage(pkg) {
			return conv.packageCall(pkg.Name, fun.Sel.Name, call)
		}
		return conv.methodCall(fun, call.Args)
	}
	return nil, conv.unsupported(call, "unsupported call")
}

// sqlFunction converts call into a function over its converted arguments.
// A non-negative arity is enforced.
func (conv *conversion) sqlFunction(call *ast.CallExpr, name string, arity int) (types.Expr, error) {
	if arity >= 0 && len(call.Args) != arity {
		return nil, conv.unsupported(call, fmt.Sprintf("%s takes %d argument(s)", name, arity))
	}
	args, err := conv.convertAll(call.Args)
	if err != nil {
		return nil, err
	}
	fn, err := types.NewFunction(name, args...)
	if err != nil {
		return nil, &types.ExpressionError{Expr: conv.text(call), Reason: err.Error()}
	}
	return fn, nil
}

func (conv *conversion) packageCall(pkg, name string, call *ast.CallExpr) (types.Expr, error) {
	switch pkg + "." + name {
	case "strings.HasPrefix":
		return conv.pattern(call, types.StartsWith)
	case "strings.HasSuffix":
		return conv.pattern(call, types.EndsWith)
	case "strings.Contains":
		return conv.pattern(call, types.Contains)
	case "strings.ToUpper":
		return conv.sqlFunction(call, "UPPER", 1)
	case "strings.ToLower":
		return conv.sqlFunction(call, "LOWER", 1)
	case "strings.TrimSpace":
		return conv.sqlFunction(call, "TRIM", 1)
	case "cmp.Or":
		return conv.sqlFunction(call, "COALESCE", -1)
	case "slices.Contains":
		return conv.sliceContains(call)
	case "slices.ContainsFunc":
		return conv.containsFunc(call)
	}
	if pkg == Namespace {
		return conv.namespaceCall(name, call)
	}
	if name == "Compare" {
		return nil, conv.unsupported(call, "Compare must be compared with 0")
	}
	return conv.sqlFunction(call, name, -1)
}

func (conv *conversion) pattern(call *ast.CallExpr, op types.LogicOperator) (types.Expr, error) {
	if len(call.Args) != 2 {
		return nil, conv.unsupported(call, "expected two arguments")
	}
	return conv.compare(call.Args[0], op, call.Args[1])
}

func (conv *conversion) sliceContains(call *ast.CallExpr) (types.Expr, error) {
	if len(call.Args) != 2 {
		return nil, conv.unsupported(call, "expected two arguments")
	}
	if conv.depends(call.Args[0]) {
		return nil, conv.unsupported(call.Args[0], "use slices.ContainsFunc for relations")
	}
	return conv.compare(call.Args[1], types.In, call.Args[0])
}

// containsFunc converts slices.ContainsFunc(u.Relation, func(r R) bool {...})
// into an EXISTS over the relation, aliased by the nested parameter.
func (conv *conversion) containsFunc(call *ast.CallExpr) (types.Expr, error) {
	if len(call.Args) != 2 {
		return nil, conv.unsupported(call, "expected two arguments")
	}
	sel, ok := astutil.Unparen(call.Args[0]).(*ast.SelectorExpr)
	if !ok {
		return nil, conv.unsupported(call.Args[0], "expected a relation member")
	}
	fr, names, ok := conv.chain(sel)
	if !ok || len(names) != 1 {
		return nil, conv.unsupported(call.Args[0], "expected a relation member")
	}
	if fr != len(conv.frames)-1 {
		return nil, conv.unsupported(call.Args[0], "relations of an outer parameter are not supported")
	}
	relation := names[0]
	var row reflect.Type
	if t := conv.frames[fr].row; t != nil {
		fld, ok := lookupField(t, relation)
		if !ok {
			return nil, &types.PropertyError{Object: typeName(t), Property: relation}
		}
		row = elemType(fld.typ)
	}

	lit, ok := astutil.Unparen(call.Args[1]).(*ast.FuncLit)
	if !ok {
		return nil, conv.unsupported(call.Args[1], "expected a function literal")
	}
	param, body, err := conv.lambda(lit)
	if err != nil {
		return nil, err
	}
	conv.push(&frame{name: param, row: row})
	inner, err := conv.logic(body)
	conv.pop()
	if err != nil {
		return nil, err
	}
	f, err := types.NewForeign(relation, param, inner)
	if err != nil {
		return nil, &types.ExpressionError{Expr: conv.text(call), Reason: err.Error()}
	}
	return f, nil
}

func (conv *conversion) namespaceCall(name string, call *ast.CallExpr) (types.Expr, error) {
	var agg string
	distinct := false
	switch name {
	case "Count":
		agg = "COUNT"
		if len(call.Args) == 0 {
			return conv.aggregate(call, agg, nil, false)
		}
	case "CountDistinct":
		agg, distinct = "COUNT", true
	case "Sum", "Avg", "Min", "Max":
		agg = strings.ToUpper(name)
	case "Like":
		return conv.pattern(call, types.Like)
	default:
		return nil, conv.unsupported(call, "unknown query function "+name)
	}
	if len(call.Args) != 1 {
		return nil, conv.unsupported(call, name+" takes one argument")
	}
	arg, err := conv.convert(call.Args[0])
	if err != nil {
		return nil, err
	}
	return conv.aggregate(call, agg, arg, distinct)
}

func (conv *conversion) aggregate(call *ast.CallExpr, name string, arg types.Expr, distinct bool) (types.Expr, error) {
	a, err := types.NewAggregate(name, arg, distinct)
	if err != nil {
		return nil, &types.ExpressionError{Expr: conv.text(call), Reason: err.Error()}
	}
	return a, nil
}

// methodCall resolves recv.Name(args) through the handlers: by the
// receiver's type, then by name, then as a SQL function with the receiver
// as its first argument.
func (conv *conversion) methodCall(sel *ast.SelectorExpr, args []ast.Expr) (types.Expr, error) {
	recv, err := conv.convert(sel.X)
	if err != nil {
		return nil, err
	}
	var recvType reflect.Type
	if v, ok := recv.(*types.Value); ok && v.Value != nil {
		recvType = reflect.TypeOf(v.Value)
	} else {
		recvType = indirect(conv.staticType(sel.X))
	}
	converted, err := conv.convertAll(args)
	if err != nil {
		return nil, err
	}
	if h, ok := conv.method(recvType, sel.Sel.Name); ok {
		return h(recv, converted)
	}
	fn, err := types.NewFunction(sel.Sel.Name, append([]types.Expr{recv}, converted...)...)
	if err != nil {
		return nil, &types.ExpressionError{Expr: conv.text(sel), Reason: err.Error()}
	}
	return fn, nil
}
