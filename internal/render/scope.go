package render

import (
	"strings"

	"github.com/zoobzio/exprql/internal/types"
)

// lookupAlias finds the innermost scope carrying a logical alias.
func (c *compiler) lookupAlias(alias string) *scope {
	for sc := c.scope; sc != nil; sc = sc.parent {
		if sc.alias == alias {
			return sc
		}
	}
	return nil
}

// property resolves p against the scope chain. An alias that names no scope is
// treated as a member path on the current object.
func (c *compiler) property(p *types.Property) (string, error) {
	if p.Alias == "" {
		return c.column(c.scope, p.Name)
	}
	if sc := c.lookupAlias(p.Alias); sc != nil {
		return c.column(sc, p.Name)
	}
	if head, rest, ok := strings.Cut(p.Alias, "."); ok {
		if sc := c.lookupAlias(head); sc != nil {
			return c.column(sc, rest+"."+p.Name)
		}
	}
	return c.column(c.scope, p.Path())
}

// column renders the qualified column of property in sc. Outer-scope references
// are always qualified so correlated subqueries bind to the right table.
func (c *compiler) column(sc *scope, property string) (string, error) {
	if sc.object == "" {
		return "", &types.ExpressionError{Expr: property, Reason: "no object in scope"}
	}
	col, err := c.resolver.ResolveColumn(sc.object, property)
	if err != nil {
		return "", err
	}
	name := c.dialect.QuoteIdentifier(col.Name)
	if sc == c.scope {
		if sc.qualifier == "" {
			return name, nil
		}
		return sc.qualifier + "." + name, nil
	}
	return c.qualifierOf(sc) + "." + name, nil
}

// qualifierOf returns what columns of sc are prefixed with from a nested scope.
func (c *compiler) qualifierOf(sc *scope) string {
	if sc.qualifier != "" {
		return sc.qualifier
	}
	return c.dialect.QuoteIdentifier(sc.table)
}
