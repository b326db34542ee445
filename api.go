// Package exprql compiles expression trees into parameterized SQL.
//
// Expressions are immutable trees of predicates, value computations,
// aggregates and query pipelines. They are built with the factory functions
// of this package, converted from Go source by package lambda, or decoded
// from JSON by package codec, and lowered to dialect-specific SQL by Compile.
//
// # Basic Usage
//
//	schema, _ := exprql.NewSchema(project)
//	schema.MustBind("User", "users")
//
//	query := exprql.From("User").
//		Where(exprql.P("Age").Gt(18)).
//		OrderBy(exprql.Asc(exprql.P("Name"))).
//		Take(10)
//
//	result, err := exprql.Compile(query, schema, postgres.New())
//	// result.SQL: SELECT * FROM "users" WHERE "age" > @p0 ORDER BY "name" ASC LIMIT 10
//	// result.Params: [{p0 18}]
//
// # Predicates
//
// A predicate that is not a query compiles to a bare condition against the
// object named with WithObject:
//
//	result, err := exprql.Compile(exprql.P("Status").IsNull(), schema, sqlite.New(),
//		exprql.WithObject("User"))
//	// result.SQL: "status" IS NULL
//
// # Pipelines
//
// Query stages are ordered From, Where, OrderBy and Skip/Take, GroupBy,
// Having, Select. Each stage type only offers the transitions that may follow
// it, so an illegal ordering does not type-check.
//
// # Dialects
//
// Dialects live in their own packages: postgres, sqlite, mssql and mariadb.
// Each quotes identifiers, spells placeholders, concatenates strings and pages
// results the way its engine expects.
package exprql

import (
	"github.com/zoobzio/exprql/internal/render"
	"github.com/zoobzio/exprql/internal/types"
)

// Expr is any node of the expression tree.
type Expr = types.Expr

// Logic is an Expr usable in predicate position.
type Logic = types.Logic

// Node types re-exported for type switches and direct construction.
type (
	Value       = types.Value
	Property    = types.Property
	Unary       = types.Unary
	LogicBinary = types.LogicBinary
	ValueBinary = types.ValueBinary
	Function    = types.Function
	Aggregate   = types.Aggregate
	Set         = types.Set
	SetKind     = types.SetKind
	SetBuilder  = types.SetBuilder
	Foreign     = types.Foreign
	DynamicSQL  = types.DynamicSQL
)

// Pipeline stages and their capability interfaces.
type (
	Query       = types.Query
	FromStage   = types.From
	WhereStage  = types.Where
	GroupBy     = types.GroupBy
	Having      = types.Having
	OrderBy     = types.OrderBy
	Section     = types.Section
	SelectStage = types.Select
	OrderKey    = types.OrderKey
	Projection  = types.Projection
	Filterable  = types.Filterable
	Orderable   = types.Orderable
	Sectionable = types.Sectionable
	Groupable   = types.Groupable
	Projectable = types.Projectable
)

// Compiler collaborators.
type (
	Dialect         = render.Dialect
	Resolver        = render.Resolver
	Column          = render.Column
	ForeignRelation = render.ForeignRelation
	Capabilities    = render.Capabilities
	Param           = render.Param
	Fragment        = render.Fragment
	FragmentSource  = render.FragmentSource
	FragmentContext = render.FragmentContext
)

// Errors.
var (
	ErrUnknownProperty          = types.ErrUnknownProperty
	ErrUnsupportedExpression    = types.ErrUnsupportedExpression
	ErrUnsupportedReversal      = types.ErrUnsupportedReversal
	ErrAmbiguousForeignRelation = types.ErrAmbiguousForeignRelation
	ErrUndefinedForeignRelation = types.ErrUndefinedForeignRelation
	ErrEvaluationFailure        = types.ErrEvaluationFailure
	ErrInvalidPipelineState     = types.ErrInvalidPipelineState
	ErrDecode                   = types.ErrDecode
	ErrInvalidIdentifier        = types.ErrInvalidIdentifier
	ErrDuplicateRegistration    = types.ErrDuplicateRegistration
)

// Typed errors.
type (
	PropertyError           = types.PropertyError
	ExpressionError         = types.ExpressionError
	ReversalError           = types.ReversalError
	RelationError           = types.RelationError
	EvaluationError         = types.EvaluationError
	PipelineError           = types.PipelineError
	DecodeError             = types.DecodeError
	IdentifierError         = types.IdentifierError
	UnsupportedFeatureError = render.UnsupportedFeatureError
)

// NoLimit marks a Section without a row limit.
const NoLimit = types.NoLimit

// Null is the shared null literal.
var Null = types.Null

// Equal reports structural equality. And/Or sets compare as sets.
func Equal(a, b Expr) bool { return types.ExprEqual(a, b) }

// Hash returns a hash consistent with Equal.
func Hash(e Expr) uint64 { return types.Hash(e) }
