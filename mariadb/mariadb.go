// Package mariadb provides the MariaDB and MySQL dialect for exprql.
package mariadb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// maxRows is the documented way to OFFSET without a limit.
const maxRows = "18446744073709551615"

// Renderer implements the MariaDB dialect.
type Renderer struct {
	escape rune
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEscapeChar sets the LIKE escape character.
func WithEscapeChar(r rune) Option {
	return func(d *Renderer) { d.escape = r }
}

// New creates a new MariaDB renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{escape: render.DefaultEscapeChar}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string { return "mariadb" }

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

// Concat uses CONCAT, since || is logical OR unless PIPES_AS_CONCAT is set.
func (r *Renderer) Concat(parts ...string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

func (r *Renderer) EscapeChar() rune { return r.escape }

// QuoteIdentifier quotes with backticks.
func (r *Renderer) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// Placeholder renders a positional ?. Parameters bind in output order.
func (r *Renderer) Placeholder(string) string { return "?" }

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

func (r *Renderer) Literal(v any) (string, error) {
	return render.FormatLiteral(v, "TRUE", "FALSE")
}

// Paging renders LIMIT and OFFSET.
func (r *Renderer) Paging(skip, take int64, _ bool) (string, error) {
	limit := maxRows
	if take != types.NoLimit {
		limit = fmt.Sprint(take)
	}
	if skip > 0 {
		return fmt.Sprintf("LIMIT %s OFFSET %d", limit, skip), nil
	}
	return "LIMIT " + limit, nil
}

// Capabilities returns the SQL features supported by MariaDB.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		BooleanPredicates: true,
		NamedParameters:   false,
		MaxParameters:     65535,
	}
}
