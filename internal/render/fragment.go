package render

import (
	"fmt"

	"github.com/zoobzio/exprql/internal/types"
)

// Fragment renders a DynamicSQL node.
type Fragment func(ctx FragmentContext, arg any) (string, error)

// FragmentSource looks up fragments by key.
type FragmentSource interface {
	Lookup(key string) (Fragment, bool)
}

// FragmentContext gives a fragment access to the running compilation.
type FragmentContext interface {
	Dialect() Dialect
	// Bind adds a parameter and returns its placeholder.
	Bind(v any) (string, error)
	Quote(name string) string
	// Column resolves a property path in the current scope.
	Column(path string) (string, error)
	// Compile renders an expression in the current scope.
	Compile(e types.Expr) (string, error)
}

type fragmentContext struct {
	c *compiler
}

func (f fragmentContext) Dialect() Dialect           { return f.c.dialect }
func (f fragmentContext) Bind(v any) (string, error) { return f.c.bind(v) }
func (f fragmentContext) Quote(name string) string   { return f.c.dialect.QuoteIdentifier(name) }

func (f fragmentContext) Column(path string) (string, error) {
	p, err := types.NewProperty(path)
	if err != nil {
		return "", err
	}
	return f.c.property(p)
}

func (f fragmentContext) Compile(e types.Expr) (string, error) {
	return f.c.expr(e)
}

func (c *compiler) fragment(d *types.DynamicSQL) (string, error) {
	for _, src := range c.fragments {
		if src == nil {
			continue
		}
		if fn, ok := src.Lookup(d.Key); ok {
			s, err := fn(fragmentContext{c: c}, d.Arg)
			if err != nil {
				return "", fmt.Errorf("fragment %s: %w", d.Key, err)
			}
			return s, nil
		}
	}
	return "", &types.ExpressionError{Expr: d.String(), Reason: "no fragment registered for " + d.Key}
}
