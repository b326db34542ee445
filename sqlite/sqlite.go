// Package sqlite provides the SQLite dialect for exprql.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// Renderer implements the SQLite dialect.
type Renderer struct {
	escape rune
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEscapeChar sets the LIKE escape character.
func WithEscapeChar(r rune) Option {
	return func(d *Renderer) { d.escape = r }
}

// New creates a new SQLite renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{escape: render.DefaultEscapeChar}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string { return "sqlite" }

func (r *Renderer) Operator(op types.LogicOperator) (string, bool) {
	kw, ok := render.StandardOperators[op]
	return kw, ok
}

// ValueOperator returns the keyword for arithmetic. SQLite has no XOR operator.
func (r *Renderer) ValueOperator(op types.ValueOperator) (string, bool) {
	if op == types.BitXor {
		return "", false
	}
	kw, ok := render.StandardValueOperators[op]
	return kw, ok
}

func (r *Renderer) UnaryOperator(op types.UnaryOperator) (string, bool) {
	kw, ok := render.StandardUnaryOperators[op]
	return kw, ok
}

func (r *Renderer) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

func (r *Renderer) EscapeChar() rune { return r.escape }

// QuoteIdentifier quotes a SQLite identifier with double quotes.
func (r *Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Placeholder renders :name, bound through sql.Named.
func (r *Renderer) Placeholder(name string) string { return ":" + name }

// ConvertValue stores UUIDs in their text form.
func (r *Renderer) ConvertValue(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x.String(), nil
	case *uuid.UUID:
		if x == nil {
			return nil, nil
		}
		return x.String(), nil
	}
	return v, nil
}

// Literal renders an inline constant. Booleans are integers in SQLite.
func (r *Renderer) Literal(v any) (string, error) {
	return render.FormatLiteral(v, "1", "0")
}

// Paging renders LIMIT and OFFSET. SQLite needs LIMIT -1 to offset without a limit.
func (r *Renderer) Paging(skip, take int64, _ bool) (string, error) {
	limit := take
	if limit == types.NoLimit {
		limit = -1
	}
	if skip > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, skip), nil
	}
	return fmt.Sprintf("LIMIT %d", limit), nil
}

// Capabilities returns the SQL features supported by SQLite.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		BooleanPredicates: true,
		NamedParameters:   true,
		MaxParameters:     32766,
	}
}
