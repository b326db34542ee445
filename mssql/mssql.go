// Package mssql provides the SQL Server dialect for exprql.
package mssql

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	mssqldb "github.com/microsoft/go-mssqldb"
	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// Renderer implements the SQL Server dialect.
type Renderer struct {
	escape rune
	strict bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEscapeChar sets the LIKE escape character.
func WithEscapeChar(r rune) Option {
	return func(d *Renderer) { d.escape = r }
}

// WithStrictPaging rejects paging without an ORDER BY instead of ordering by (SELECT NULL).
// The compiler enforces it through Capabilities.RequiresOrderBy.
func WithStrictPaging() Option {
	return func(d *Renderer) { d.strict = true }
}

// New creates a new SQL Server renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{escape: render.DefaultEscapeChar}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string { return "mssql" }

func (r *Renderer) Operator(op types.LogicOperator) (string, bool) {
	kw, ok := render.StandardOperators[op]
	return kw, ok
}

func (r *Renderer) ValueOperator(op types.ValueOperator) (string, bool) {
	kw, ok := render.StandardValueOperators[op]
	return kw, ok
}

func (r *Renderer) UnaryOperator(op types.UnaryOperator) (string, bool) {
	kw, ok := render.StandardUnaryOperators[op]
	return kw, ok
}

// Concat joins operands with +.
func (r *Renderer) Concat(parts ...string) string {
	return strings.Join(parts, " + ")
}

func (r *Renderer) EscapeChar() rune { return r.escape }

// QuoteIdentifier quotes with square brackets.
func (r *Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "]", "]]")
	return "[" + escaped + "]"
}

// Placeholder renders @name, bound through sql.Named.
func (r *Renderer) Placeholder(name string) string { return "@" + name }

// ConvertValue maps uuid.UUID onto the driver's byte-order aware UniqueIdentifier.
func (r *Renderer) ConvertValue(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return mssqldb.UniqueIdentifier(x), nil
	case *uuid.UUID:
		if x == nil {
			return nil, nil
		}
		return mssqldb.UniqueIdentifier(*x), nil
	}
	return v, nil
}

// Literal renders an inline constant. SQL Server has no boolean literals.
func (r *Renderer) Literal(v any) (string, error) {
	return render.FormatLiteral(v, "1", "0")
}

// Paging renders OFFSET/FETCH. SQL Server requires an ORDER BY for either.
func (r *Renderer) Paging(skip, take int64, ordered bool) (string, error) {
	var sql strings.Builder
	if !ordered {
		sql.WriteString("ORDER BY (SELECT NULL) ")
	}
	fmt.Fprintf(&sql, "OFFSET %d ROWS", skip)
	if take != types.NoLimit {
		fmt.Fprintf(&sql, " FETCH NEXT %d ROWS ONLY", take)
	}
	return sql.String(), nil
}

// Capabilities returns the SQL features supported by SQL Server.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		BooleanPredicates: false,
		NamedParameters:   true,
		RequiresOrderBy:   r.strict,
		MaxParameters:     2100,
	}
}
