package render

// Capabilities describes the SQL features supported by a dialect.
type Capabilities struct {
	BooleanPredicates bool // a boolean column or literal is a valid predicate on its own
	NamedParameters   bool // placeholders carry the parameter name
	RequiresOrderBy   bool // paging without an ORDER BY is rejected
	MaxParameters     int  // upper bound on bound parameters, 0 when unlimited
}
