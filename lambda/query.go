package lambda

import (
	"go/ast"
	"go/token"
	"reflect"
	"strconv"

	"github.com/zoobzio/exprql/internal/types"
	"golang.org/x/tools/go/ast/astutil"
)

// query converts a method chain on root, or nested query.Stage(src, ...)
// calls, into a pipeline.
func (conv *conversion) query(root string, e ast.Expr) (types.Query, error) {
	e = astutil.Unparen(e)
	switch x := e.(type) {
	case *ast.Ident:
		if x.Name != root {
			break
		}
		from, err := types.NewFrom(conv.object)
		if err != nil {
			return nil, err
		}
		return from, nil

	case *ast.CallExpr:
		sel, ok := x.Fun.(*ast.SelectorExpr)
		if !ok {
			break
		}
		source, args := sel.X, x.Args
		if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == Namespace && pkg.Name != root {
			if len(args) == 0 {
				return nil, conv.unsupported(x, sel.Sel.Name+" needs a source query")
			}
			source, args = args[0], args[1:]
		}
		src, err := conv.query(root, source)
		if err != nil {
			return nil, err
		}
		return conv.stage(src, sel.Sel.Name, x, args)
	}
	return nil, conv.unsupported(e, "not a query")
}

func (conv *conversion) stage(src types.Query, name string, call *ast.CallExpr, args []ast.Expr) (types.Query, error) {
	misplaced := &types.PipelineError{Stage: name, After: src.Stage()}
	switch name {
	case "Where":
		s, ok := src.(types.Filterable)
		if !ok {
			return nil, misplaced
		}
		p, err := conv.rowPredicate(call, args)
		if err != nil {
			return nil, err
		}
		return s.Where(p), nil

	case "OrderBy", "OrderByDescending":
		s, ok := src.(types.Orderable)
		if !ok {
			return nil, misplaced
		}
		keys, err := conv.orderKeys(call, args, name == "OrderBy")
		if err != nil {
			return nil, err
		}
		return s.OrderBy(keys...), nil

	case "ThenBy", "ThenByDescending":
		o, ok := src.(*types.OrderBy)
		if !ok {
			return nil, misplaced
		}
		keys, err := conv.orderKeys(call, args, name == "ThenBy")
		if err != nil {
			return nil, err
		}
		return o.ThenBy(keys...), nil

	case "Skip", "Take":
		s, ok := src.(types.Sectionable)
		if !ok {
			return nil, misplaced
		}
		if len(args) != 1 {
			return nil, conv.unsupported(call, name+" takes one argument")
		}
		n, err := conv.count(args[0])
		if err != nil {
			return nil, err
		}
		if name == "Skip" {
			return s.Skip(n), nil
		}
		return s.Take(n), nil

	case "GroupBy":
		s, ok := src.(types.Groupable)
		if !ok {
			return nil, misplaced
		}
		var keys []types.Expr
		for _, arg := range args {
			err := conv.bind(arg, func(body ast.Expr) error {
				k, err := conv.keys(body)
				keys = append(keys, k...)
				return err
			})
			if err != nil {
				return nil, err
			}
		}
		if len(keys) == 0 {
			return nil, conv.unsupported(call, "GroupBy needs a key")
		}
		return s.GroupBy(keys...), nil

	case "Having":
		g, ok := src.(*types.GroupBy)
		if !ok {
			return nil, misplaced
		}
		p, err := conv.rowPredicate(call, args)
		if err != nil {
			return nil, err
		}
		return g.Having(p), nil

	case "Select":
		s, ok := src.(types.Projectable)
		if !ok {
			return nil, misplaced
		}
		if len(args) != 1 {
			return nil, conv.unsupported(call, "Select takes one selector")
		}
		var cols []types.Projection
		err := conv.bind(args[0], func(body ast.Expr) error {
			var err error
			cols, err = conv.projections(body)
			return err
		})
		if err != nil {
			return nil, err
		}
		return s.Select(cols...), nil
	}
	return nil, conv.unsupported(call, "unknown query stage "+name)
}

// bind runs fn on the body of the row lambda arg with its parameter in scope.
func (conv *conversion) bind(arg ast.Expr, fn func(body ast.Expr) error) error {
	lit, ok := astutil.Unparen(arg).(*ast.FuncLit)
	if !ok {
		return conv.unsupported(arg, "expected a function literal")
	}
	param, body, err := conv.lambda(lit)
	if err != nil {
		return err
	}
	conv.push(&frame{name: param, row: conv.row})
	defer conv.pop()
	return fn(body)
}

func (conv *conversion) rowPredicate(call *ast.CallExpr, args []ast.Expr) (types.Logic, error) {
	if len(args) != 1 {
		return nil, conv.unsupported(call, "expected one predicate")
	}
	var p types.Logic
	err := conv.bind(args[0], func(body ast.Expr) error {
		var err error
		p, err = conv.logic(body)
		return err
	})
	return p, err
}

func (conv *conversion) orderKeys(call *ast.CallExpr, args []ast.Expr, asc bool) ([]types.OrderKey, error) {
	if len(args) == 0 {
		return nil, conv.unsupported(call, "expected a key selector")
	}
	var out []types.OrderKey
	for _, arg := range args {
		err := conv.bind(arg, func(body ast.Expr) error {
			keys, err := conv.keys(body)
			for _, k := range keys {
				out = append(out, types.OrderKey{Expr: k, Ascending: asc})
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// keys converts a key selector body. A composite literal contributes one key
// per element.
func (conv *conversion) keys(body ast.Expr) ([]types.Expr, error) {
	if lit, ok := astutil.Unparen(body).(*ast.CompositeLit); ok {
		return conv.convertAll(lit.Elts)
	}
	k, err := conv.convert(body)
	if err != nil {
		return nil, err
	}
	return []types.Expr{k}, nil
}

// projections converts a Select body. Keyed composite literal elements are
// aliased by their key.
func (conv *conversion) projections(body ast.Expr) ([]types.Projection, error) {
	lit, ok := astutil.Unparen(body).(*ast.CompositeLit)
	if !ok {
		x, err := conv.convert(body)
		if err != nil {
			return nil, err
		}
		return []types.Projection{{Expr: x}}, nil
	}
	out := make([]types.Projection, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		var alias string
		value := elt
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			value = kv.Value
			name, err := conv.alias(kv.Key)
			if err != nil {
				return nil, err
			}
			alias = name
		}
		x, err := conv.convert(value)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Projection{Expr: x, Alias: alias})
	}
	return out, nil
}

func (conv *conversion) alias(key ast.Expr) (string, error) {
	var name string
	switch k := key.(type) {
	case *ast.Ident:
		name = k.Name
	case *ast.BasicLit:
		if k.Kind != token.STRING {
			return "", conv.unsupported(key, "projection alias must be a name")
		}
		s, err := strconv.Unquote(k.Value)
		if err != nil {
			return "", conv.unsupported(key, err.Error())
		}
		name = s
	default:
		return "", conv.unsupported(key, "projection alias must be a name")
	}
	if err := types.CheckIdentifier("alias", name); err != nil {
		return "", err
	}
	return name, nil
}

// count evaluates a Skip or Take argument.
func (conv *conversion) count(arg ast.Expr) (int64, error) {
	if conv.depends(arg) {
		return 0, conv.unsupported(arg, "row count must not depend on a row")
	}
	v, err := conv.evalValue(arg)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		return int64(rv.Uint()), nil
	}
	return 0, conv.unsupported(arg, "row count must be an integer")
}
