package exprql

import (
	"database/sql"
	"log/slog"

	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// QueryResult contains the rendered SQL and its bound parameters.
type QueryResult struct {
	SQL    string
	Params []Param
	// Named reports whether the dialect renders parameters by name.
	Named bool
}

// Args returns the parameters as database/sql arguments: sql.Named values
// for named dialects, bare values in output order otherwise.
func (r *QueryResult) Args() []any {
	args := make([]any, len(r.Params))
	for i, p := range r.Params {
		if r.Named {
			args[i] = sql.Named(p.Name, p.Value)
		} else {
			args[i] = p.Value
		}
	}
	return args
}

// ParamMap returns the parameters keyed by name.
func (r *QueryResult) ParamMap() map[string]any {
	m := make(map[string]any, len(r.Params))
	for _, p := range r.Params {
		m[p.Name] = p.Value
	}
	return m
}

// Option configures Compile.
type Option func(*compileOptions)

type compileOptions struct {
	object    string
	alias     string
	fragments []FragmentSource
	logger    *slog.Logger
}

// WithObject sets the row object a bare predicate is compiled against.
func WithObject(object string) Option {
	return func(o *compileOptions) { o.object = object }
}

// WithAlias names the outermost row so nested predicates can reference it
// as alias.Property, as the lambda converter does for correlated members.
func WithAlias(alias string) Option {
	return func(o *compileOptions) { o.alias = alias }
}

// WithFragments adds fragment sources searched before the default registries.
func WithFragments(sources ...FragmentSource) Option {
	return func(o *compileOptions) { o.fragments = append(o.fragments, sources...) }
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *compileOptions) { o.logger = logger }
}

// Compile renders node as SQL for dialect, resolving names through resolver.
// Queries compile to a SELECT statement; any other node compiles to a bare
// condition or value against the WithObject object.
func Compile(node Expr, resolver Resolver, dialect Dialect, opts ...Option) (*QueryResult, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.object != "" {
		if err := types.CheckIdentifier("object", o.object); err != nil {
			return nil, err
		}
	}
	if o.alias != "" {
		if err := types.CheckIdentifier("alias", o.alias); err != nil {
			return nil, err
		}
	}

	sources := append(o.fragments, DefaultFragments, DefaultStrictFragments)
	res, err := render.Compile(node, resolver, dialect, render.Options{
		Object:    o.object,
		Alias:     o.alias,
		Fragments: sources,
		Logger:    o.logger,
	})
	if err != nil {
		return nil, err
	}
	return &QueryResult{
		SQL:    res.SQL,
		Params: res.Params,
		Named:  dialect.Capabilities().NamedParameters,
	}, nil
}

// MustCompile is Compile, panicking on error.
func MustCompile(node Expr, resolver Resolver, dialect Dialect, opts ...Option) *QueryResult {
	res, err := Compile(node, resolver, dialect, opts...)
	if err != nil {
		panic(err)
	}
	return res
}
