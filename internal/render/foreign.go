package render

import (
	"strconv"
	"strings"

	"github.com/zoobzio/exprql/internal/types"
)

// expandTable substitutes {0}, {1}, ... in a templated table name.
func expandTable(table string, args []string) string {
	for i, arg := range args {
		table = strings.ReplaceAll(table, "{"+strconv.Itoa(i)+"}", arg)
	}
	return table
}

// exists renders a correlated EXISTS subquery. The foreign table gets a fresh
// alias, is joined on the declared key pairs, and the inner predicate is
// compiled in a scope for the foreign object.
func (c *compiler) exists(f *types.Foreign) (string, error) {
	outer := c.scope
	if outer.object == "" {
		return "", &types.ExpressionError{Expr: f.String(), Reason: "no object in scope"}
	}
	rel, err := c.resolver.ResolveForeign(outer.object, f.Relation)
	if err != nil {
		return "", err
	}
	if len(rel.LocalKeys) == 0 || len(rel.LocalKeys) != len(rel.ForeignKeys) {
		return "", &types.RelationError{Object: outer.object, Relation: f.Relation}
	}
	for _, arg := range f.TableArgs {
		if !types.IsIdentifier(arg) {
			return "", &types.IdentifierError{Kind: "table argument", Ident: arg}
		}
	}
	table := expandTable(rel.Table, f.TableArgs)

	alias := c.nextAlias()
	inner, err := c.nested(&scope{
		object:    rel.Object,
		table:     table,
		alias:     f.Alias,
		qualifier: alias,
		parent:    outer,
	})
	if err != nil {
		return "", err
	}

	conds := make([]string, 0, len(rel.LocalKeys)+1)
	for i := range rel.LocalKeys {
		conds = append(conds, alias+"."+c.dialect.QuoteIdentifier(rel.ForeignKeys[i])+
			" = "+c.qualifierOf(outer)+"."+c.dialect.QuoteIdentifier(rel.LocalKeys[i]))
	}
	if f.Inner != nil {
		txt, err := inner.predicate(f.Inner)
		if err != nil {
			return "", err
		}
		if txt != "" {
			conds = append(conds, txt)
		}
	}
	c.seq = inner.seq

	return "EXISTS (SELECT 1 FROM " + c.dialect.QuoteIdentifier(table) + " " + alias +
		" WHERE " + strings.Join(conds, " AND ") + ")", nil
}
