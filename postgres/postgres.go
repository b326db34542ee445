// Package postgres provides the PostgreSQL dialect for exprql.
package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// Renderer implements the PostgreSQL dialect.
type Renderer struct {
	escape rune
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEscapeChar sets the LIKE escape character.
func WithEscapeChar(r rune) Option {
	return func(d *Renderer) { d.escape = r }
}

// New creates a new PostgreSQL renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{escape: render.DefaultEscapeChar}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns "postgres".
func (r *Renderer) Name() string { return "postgres" }

// Operator returns the keyword for a comparison.
func (r *Renderer) Operator(op types.LogicOperator) (string, bool) {
	kw, ok := render.StandardOperators[op]
	return kw, ok
}

// ValueOperator returns the keyword for arithmetic. PostgreSQL spells XOR as #.
func (r *Renderer) ValueOperator(op types.ValueOperator) (string, bool) {
	if op == types.BitXor {
		return "#", true
	}
	kw, ok := render.StandardValueOperators[op]
	return kw, ok
}

// UnaryOperator returns the keyword for a unary operator.
func (r *Renderer) UnaryOperator(op types.UnaryOperator) (string, bool) {
	kw, ok := render.StandardUnaryOperators[op]
	return kw, ok
}

// Concat joins operands with ||.
func (r *Renderer) Concat(parts ...string) string {
	return strings.Join(parts, " || ")
}

// EscapeChar returns the LIKE escape character.
func (r *Renderer) EscapeChar() rune { return r.escape }

// QuoteIdentifier quotes a PostgreSQL identifier to handle reserved words and special characters.
func (r *Renderer) QuoteIdentifier(name string) string {
	// In PostgreSQL, identifiers are quoted with double quotes
	// We need to escape any existing double quotes by doubling them
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`
}

// Placeholder renders @name, the form pgx.NamedArgs rewrites.
func (r *Renderer) Placeholder(name string) string { return "@" + name }

// ConvertValue maps uuid.UUID onto pgtype.UUID. Other values pass through.
func (r *Renderer) ConvertValue(v any) (any, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return pgtype.UUID{Bytes: x, Valid: true}, nil
	case *uuid.UUID:
		if x == nil {
			return pgtype.UUID{}, nil
		}
		return pgtype.UUID{Bytes: *x, Valid: true}, nil
	}
	return v, nil
}

// Literal renders an inline constant.
func (r *Renderer) Literal(v any) (string, error) {
	return render.FormatLiteral(v, "TRUE", "FALSE")
}

// Paging renders LIMIT and OFFSET.
func (r *Renderer) Paging(skip, take int64, _ bool) (string, error) {
	var parts []string
	if take != types.NoLimit {
		parts = append(parts, fmt.Sprintf("LIMIT %d", take))
	}
	if skip > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", skip))
	}
	return strings.Join(parts, " "), nil
}

// Capabilities returns the SQL features supported by PostgreSQL.
func (r *Renderer) Capabilities() render.Capabilities {
	return render.Capabilities{
		BooleanPredicates: true,
		NamedParameters:   true,
		MaxParameters:     65535,
	}
}

// NamedArgs converts bound parameters into pgx.NamedArgs.
func NamedArgs(params []render.Param) pgx.NamedArgs {
	args := make(pgx.NamedArgs, len(params))
	for _, p := range params {
		args[p.Name] = p.Value
	}
	return args
}
