package exprql

import "github.com/zoobzio/exprql/internal/types"

// Operator families.
type (
	LogicOperator = types.LogicOperator
	ValueOperator = types.ValueOperator
	UnaryOperator = types.UnaryOperator
)

// NotBit marks the logical negation of a base operation.
const NotBit = types.NotBit

// Re-export operator constants for public API.
const (
	// Comparison operators.
	OpEqual              = types.Equal
	OpNotEqual           = types.NotEqual
	OpGreaterThan        = types.GreaterThan
	OpGreaterThanOrEqual = types.GreaterThanOrEqual
	OpLessThan           = types.LessThan
	OpLessThanOrEqual    = types.LessThanOrEqual

	// Pattern and membership operators.
	OpLike          = types.Like
	OpNotLike       = types.NotLike
	OpIn            = types.In
	OpNotIn         = types.NotIn
	OpStartsWith    = types.StartsWith
	OpNotStartsWith = types.NotStartsWith
	OpEndsWith      = types.EndsWith
	OpNotEndsWith   = types.NotEndsWith
	OpContains      = types.Contains
	OpNotContains   = types.NotContains

	// Value operators.
	OpAdd         = types.Add
	OpSubtract    = types.Subtract
	OpMultiply    = types.Multiply
	OpDivide      = types.Divide
	OpModulo      = types.Modulo
	OpBitAnd      = types.BitAnd
	OpBitOr       = types.BitOr
	OpBitXor      = types.BitXor
	OpConcatenate = types.Concatenate

	// Unary operators.
	OpIdentity   = types.Identity
	OpNot        = types.Not
	OpNegate     = types.Negate
	OpBitwiseNot = types.BitwiseNot

	// Set kinds.
	JoinAnd    = types.JoinAnd
	JoinOr     = types.JoinOr
	JoinList   = types.JoinList
	JoinConcat = types.JoinConcat
)

// PositiveLogic strips the negation bit from a comparison.
func PositiveLogic(op LogicOperator) LogicOperator { return types.Positive(op) }

// OppositeLogic flips the negation bit of a comparison.
func OppositeLogic(op LogicOperator) LogicOperator { return types.Opposite(op) }
