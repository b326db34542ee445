package render

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/zoobzio/exprql/internal/types"
)

// StandardOperators is the ANSI keyword table for comparisons. StartsWith,
// EndsWith and Contains are lowered to LIKE by the compiler and have no entry.
var StandardOperators = map[types.LogicOperator]string{
	types.Equal:              "=",
	types.NotEqual:           "<>",
	types.GreaterThan:        ">",
	types.LessThanOrEqual:    "<=",
	types.GreaterThanOrEqual: ">=",
	types.LessThan:           "<",
	types.Like:               "LIKE",
	types.NotLike:            "NOT LIKE",
	types.In:                 "IN",
	types.NotIn:              "NOT IN",
}

// StandardValueOperators is the common keyword table for arithmetic.
var StandardValueOperators = map[types.ValueOperator]string{
	types.Add:      "+",
	types.Subtract: "-",
	types.Multiply: "*",
	types.Divide:   "/",
	types.Modulo:   "%",
	types.BitAnd:   "&",
	types.BitOr:    "|",
	types.BitXor:   "^",
}

// StandardUnaryOperators is the common keyword table for unary operators.
var StandardUnaryOperators = map[types.UnaryOperator]string{
	types.Not:        "NOT",
	types.Negate:     "-",
	types.BitwiseNot: "~",
}

// FormatLiteral renders a boolean or number inline, spelling booleans as given.
func FormatLiteral(v any, trueLit, falseLit string) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return trueLit, nil
		}
		return falseLit, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	return "", &types.ExpressionError{Expr: fmt.Sprintf("%#v", v), Reason: "literal must be a boolean or number"}
}
