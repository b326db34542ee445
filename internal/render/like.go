package render

import (
	"fmt"
	"strings"

	"github.com/zoobzio/exprql/internal/types"
)

// DefaultEscapeChar is the LIKE escape character used when a dialect is not configured otherwise.
const DefaultEscapeChar = '/'

// likeSpecials are escaped in pattern operands, after the escape character itself.
var likeSpecials = []rune{'%', '_', '['}

// EscapeLike escapes the escape character, %, _ and [ in s.
func EscapeLike(s string, esc rune) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == esc || r == '%' || r == '_' || r == '[' {
			b.WriteRune(esc)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteString renders s as a SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// wrapPattern adds the wildcards implied by a pattern operator.
func wrapPattern(op types.LogicOperator, s string) string {
	switch types.Positive(op) {
	case types.StartsWith:
		return s + "%"
	case types.EndsWith:
		return "%" + s
	default:
		return "%" + s + "%"
	}
}

// pattern renders StartsWith, EndsWith and Contains as LIKE with an ESCAPE clause.
// A literal operand is escaped and bound as one parameter; any other operand is
// escaped in SQL through nested REPLACE calls.
func (c *compiler) pattern(b *types.LogicBinary) (string, error) {
	like := types.Like
	if types.IsNegated(b.Op) {
		like = types.NotLike
	}
	kw, ok := c.dialect.Operator(like)
	if !ok {
		return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator "+like.Name())
	}

	left, err := c.expr(b.Left)
	if err != nil {
		return "", err
	}

	esc := c.dialect.EscapeChar()
	escape := " ESCAPE " + QuoteString(string(esc))

	if v, ok := b.Right.(*types.Value); ok && v.Value != nil && !isCollection(v.Value) {
		s, ok := v.Value.(string)
		if !ok {
			s = fmt.Sprint(v.Value)
		}
		ph, err := c.bind(wrapPattern(b.Op, EscapeLike(s, esc)))
		if err != nil {
			return "", err
		}
		return left + " " + kw + " " + ph + escape, nil
	}

	right, err := c.expr(b.Right)
	if err != nil {
		return "", err
	}
	for _, r := range append([]rune{esc}, likeSpecials...) {
		right = "REPLACE(" + right + ", " + QuoteString(string(r)) + ", " + QuoteString(string(esc)+string(r)) + ")"
	}

	var pattern string
	switch types.Positive(b.Op) {
	case types.StartsWith:
		pattern = c.dialect.Concat(right, "'%'")
	case types.EndsWith:
		pattern = c.dialect.Concat("'%'", right)
	default:
		pattern = c.dialect.Concat("'%'", right, "'%'")
	}
	return left + " " + kw + " " + pattern + escape, nil
}
