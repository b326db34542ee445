package render

import "github.com/zoobzio/exprql/internal/types"

// Dialect encodes the syntax differences of one SQL engine.
type Dialect interface {
	// Name identifies the dialect in errors and logs.
	Name() string
	// Operator returns the SQL keyword for a comparison, or false when the dialect has none.
	Operator(op types.LogicOperator) (string, bool)
	ValueOperator(op types.ValueOperator) (string, bool)
	UnaryOperator(op types.UnaryOperator) (string, bool)
	// Concat joins already-rendered operands.
	Concat(parts ...string) string
	// EscapeChar is used in LIKE patterns built from StartsWith, EndsWith and Contains.
	EscapeChar() rune
	QuoteIdentifier(name string) string
	// Placeholder renders a bound parameter reference.
	Placeholder(name string) string
	// ConvertValue maps a Go value onto what the driver expects.
	ConvertValue(v any) (any, error)
	// Literal renders an inline constant.
	Literal(v any) (string, error)
	// Paging renders the trailing paging clause. Take is types.NoLimit when unbounded.
	Paging(skip, take int64, ordered bool) (string, error)
	Capabilities() Capabilities
}

// Column is a resolved physical column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// ForeignRelation describes the join behind an EXISTS subquery.
// LocalKeys and ForeignKeys are paired by position.
type ForeignRelation struct {
	Object      string
	Table       string
	LocalKeys   []string
	ForeignKeys []string
}

// Resolver maps logical objects and properties onto the physical schema.
type Resolver interface {
	ResolveTable(object string) (string, error)
	ResolveColumn(object, property string) (Column, error)
	// ResolveForeign resolves a relation name or a related object name declared on object.
	ResolveForeign(object, relation string) (ForeignRelation, error)
}
