// Package lambda converts Go lambda source into expression trees.
//
// A lambda is a Go function literal with a single row parameter:
//
//	conv := lambda.New[User]()
//	pred, err := conv.Predicate(`func(u User) bool { return u.Age >= 18 && u.Active }`)
//
// or a bare expression over the converter's parameter name (default "x"):
//
//	pred, err := conv.Predicate(`x.Age >= 18`)
//
// Member access on the parameter becomes a property, named by the field's db
// tag when it has one. Subtrees that do not depend on any parameter are
// evaluated at conversion time and bound as parameters; numeric and boolean
// literals are inlined as constants. Method calls are looked up in the
// configured Handlers and otherwise become SQL function calls with the
// receiver as first argument.
//
// Queries are converted from chains on the query root:
//
//	q, err := conv.Query(`func(q Query) Query {
//		return q.Where(func(u User) bool { return u.Age > 18 }).
//			OrderByDescending(func(u User) any { return u.CreatedAt }).
//			Take(10)
//	}`)
//
// The same stages are available as package calls, query.Where(q, ...), and the
// query namespace also provides Count, CountDistinct, Sum, Avg, Min, Max and Like.
package lambda

import (
	"fmt"
	"go/ast"
	"go/parser"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/zoobzio/exprql/internal/types"
	"golang.org/x/tools/go/ast/astutil"
)

// DefaultParam is the parameter name of a bare expression.
const DefaultParam = "x"

// QueryRoot is the query identifier of a bare query expression.
const QueryRoot = "q"

// Namespace is the package identifier of the query functions.
const Namespace = "query"

// Converter turns lambda source into expressions. It is safe for concurrent use.
type Converter struct {
	row      reflect.Type
	object   string
	param    string
	env      map[string]any
	funcs    map[string]any
	handlers *Handlers
	log      *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithEnv adds closure variables visible to the lambda body.
func WithEnv(env map[string]any) Option {
	return func(c *Converter) {
		for k, v := range env {
			c.env[k] = v
		}
	}
}

// WithFunc makes fn callable as name when its arguments do not depend on a
// parameter. Dotted names such as "time.Now" are matched as package calls.
func WithFunc(name string, fn any) Option {
	return func(c *Converter) { c.funcs[name] = fn }
}

// WithHandlers sets method and member handlers consulted before DefaultHandlers.
func WithHandlers(h *Handlers) Option {
	return func(c *Converter) { c.handlers = h }
}

// WithObject sets the object queries are built from. It defaults to the
// row type's name.
func WithObject(object string) Option {
	return func(c *Converter) { c.object = object }
}

// WithParam sets the parameter name of bare expressions.
func WithParam(name string) Option {
	return func(c *Converter) { c.param = name }
}

// WithLogger sets the logger for conversion diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.log = logger }
}

// New returns a converter for lambdas over rows of type T.
func New[T any](opts ...Option) *Converter {
	return NewFor(reflect.TypeFor[T](), opts...)
}

// NewFor returns a converter for lambdas over rows of type row. A nil row
// converts member chains by name without type information.
func NewFor(row reflect.Type, opts ...Option) *Converter {
	for row != nil && row.Kind() == reflect.Pointer {
		row = row.Elem()
	}
	c := &Converter{
		row:   row,
		param: DefaultParam,
		env:   make(map[string]any),
		funcs: make(map[string]any),
	}
	if row != nil {
		c.object = row.Name()
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Object returns the object queries are built from.
func (c *Converter) Object() string { return c.object }

// Expression converts src into an expression.
func (c *Converter) Expression(src string) (types.Expr, error) {
	conv, body, err := c.parse(src, c.param)
	if err != nil {
		return nil, err
	}
	return conv.convert(body)
}

// Predicate converts src into a predicate.
func (c *Converter) Predicate(src string) (types.Logic, error) {
	e, err := c.Expression(src)
	if err != nil {
		return nil, err
	}
	l, ok := e.(types.Logic)
	if !ok {
		return nil, &types.ExpressionError{Expr: e.String(), Reason: "not a predicate"}
	}
	return l, nil
}

// Query converts src into a query pipeline rooted at the converter's object.
func (c *Converter) Query(src string) (types.Query, error) {
	if c.object == "" {
		return nil, &types.ExpressionError{Expr: src, Reason: "converter has no object"}
	}
	conv, body, err := c.parse(src, QueryRoot)
	if err != nil {
		return nil, err
	}
	root := conv.frames[0].name
	conv.frames = nil
	return conv.query(root, body)
}

// parse reads src as a function literal or a bare expression over param.
func (c *Converter) parse(src, param string) (*conversion, ast.Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, nil, &types.ExpressionError{Expr: strings.TrimSpace(src), Reason: err.Error()}
	}
	conv := &conversion{Converter: c, src: src}
	node = astutil.Unparen(node)

	lit, ok := node.(*ast.FuncLit)
	if !ok {
		conv.frames = []*frame{{name: param, row: c.row}}
		return conv, node, nil
	}
	name, body, err := conv.lambda(lit)
	if err != nil {
		return nil, nil, err
	}
	conv.frames = []*frame{{name: name, row: c.row}}
	return conv, body, nil
}

// lambda returns the parameter name and the returned expression of lit.
func (conv *conversion) lambda(lit *ast.FuncLit) (string, ast.Expr, error) {
	params := lit.Type.Params.List
	if len(params) != 1 || len(params[0].Names) != 1 {
		return "", nil, conv.unsupported(lit, "lambda must take exactly one parameter")
	}
	if len(lit.Body.List) != 1 {
		return "", nil, conv.unsupported(lit, "lambda body must be a single return statement")
	}
	ret, ok := lit.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return "", nil, conv.unsupported(lit, "lambda body must return one value")
	}
	return params[0].Names[0].Name, astutil.Unparen(ret.Results[0]), nil
}

func (conv *conversion) unsupported(n ast.Node, reason string) error {
	return &types.ExpressionError{Expr: conv.text(n), Reason: reason}
}

func (conv *conversion) text(n ast.Node) string {
	if n == nil {
		return "<nil>"
	}
	start, end := int(n.Pos())-1, int(n.End())-1
	if start < 0 || end > len(conv.src) || start > end {
		return fmt.Sprintf("%T", n)
	}
	return conv.src[start:end]
}
