package render

import (
	"strings"

	"github.com/zoobzio/exprql/internal/types"
)

// plan is a pipeline folded into the clauses of one SELECT.
type plan struct {
	from        *types.From
	where       []types.Expr
	groupBy     *types.GroupBy
	having      []types.Expr
	orderBy     *types.OrderBy
	section     *types.Section
	projections []types.Projection
}

// fold walks from the outermost stage to From. The outermost OrderBy wins and
// sections compose in application order.
func fold(q types.Query) (*plan, error) {
	p := &plan{}
	for stage := q; stage != nil; stage = stage.Parent() {
		switch s := stage.(type) {
		case *types.Select:
			p.projections = s.Projections
		case *types.Having:
			p.having = append(p.having, s.Predicate)
		case *types.GroupBy:
			if p.groupBy == nil {
				p.groupBy = s
			}
		case *types.OrderBy:
			if p.orderBy == nil {
				p.orderBy = s
			}
		case *types.Section:
			if p.section == nil {
				p.section = s
			} else {
				p.section = s.Skip(p.section.Offset).Take(p.section.Limit)
			}
		case *types.Where:
			p.where = append(p.where, s.Predicate)
		case *types.From:
			p.from = s
		default:
			return nil, &types.ExpressionError{Expr: stage.String(), Reason: "unknown query stage"}
		}
	}
	if p.from == nil {
		return nil, &types.PipelineError{Stage: q.Stage(), After: "nothing"}
	}
	return p, nil
}

// query renders a SELECT statement. A nested query gets its own table alias.
func (c *compiler) query(q types.Query, nested bool) (string, error) {
	p, err := fold(q)
	if err != nil {
		return "", err
	}
	table, err := c.resolver.ResolveTable(p.from.Object)
	if err != nil {
		return "", err
	}

	qc := c
	sc := &scope{object: p.from.Object, table: table, parent: c.scope}
	if nested {
		sc.qualifier = c.nextAlias()
		if qc, err = c.nested(sc); err != nil {
			return "", err
		}
	} else {
		sc.parent = nil
		sc.alias = c.scope.alias
		qc = &compiler{
			resolver:  c.resolver,
			dialect:   c.dialect,
			fragments: c.fragments,
			log:       c.log,
			out:       c.out,
			scope:     sc,
			seq:       c.seq,
			depth:     c.depth,
		}
	}

	sql, err := qc.selectStatement(p, sc)
	if err != nil {
		return "", err
	}
	c.seq = qc.seq
	return sql, nil
}

func (c *compiler) subquery(q types.Query) (string, error) {
	sql, err := c.query(q, true)
	if err != nil {
		return "", err
	}
	return "(" + sql + ")", nil
}

func (c *compiler) selectStatement(p *plan, sc *scope) (string, error) {
	var sql strings.Builder

	cols, err := c.projections(p)
	if err != nil {
		return "", err
	}
	sql.WriteString("SELECT ")
	sql.WriteString(cols)
	sql.WriteString(" FROM ")
	sql.WriteString(c.dialect.QuoteIdentifier(sc.table))
	if sc.qualifier != "" {
		sql.WriteString(" " + sc.qualifier)
	}

	if len(p.where) > 0 {
		where, err := c.predicate(types.NewSet(types.JoinAnd, p.where...))
		if err != nil {
			return "", err
		}
		if where != "" {
			sql.WriteString(" WHERE " + where)
		}
	}

	if p.groupBy != nil && len(p.groupBy.Keys) > 0 {
		keys, err := c.exprs(p.groupBy.Keys)
		if err != nil {
			return "", err
		}
		sql.WriteString(" GROUP BY " + strings.Join(keys, ", "))
	}

	if len(p.having) > 0 {
		having, err := c.predicate(types.NewSet(types.JoinAnd, p.having...))
		if err != nil {
			return "", err
		}
		if having != "" {
			sql.WriteString(" HAVING " + having)
		}
	}

	ordered := false
	if p.orderBy != nil && len(p.orderBy.Keys) > 0 {
		keys := make([]string, len(p.orderBy.Keys))
		for i, k := range p.orderBy.Keys {
			s, err := c.expr(k.Expr)
			if err != nil {
				return "", err
			}
			if k.Ascending {
				keys[i] = s + " ASC"
			} else {
				keys[i] = s + " DESC"
			}
		}
		sql.WriteString(" ORDER BY " + strings.Join(keys, ", "))
		ordered = true
	}

	if p.section != nil && (p.section.Offset > 0 || p.section.Limit != types.NoLimit) {
		if !ordered && c.dialect.Capabilities().RequiresOrderBy {
			return "", NewUnsupportedFeatureError(c.dialect.Name(), "paging without ORDER BY",
				"add an OrderBy stage when using Skip or Take")
		}
		paging, err := c.dialect.Paging(p.section.Offset, p.section.Limit, ordered)
		if err != nil {
			return "", err
		}
		if paging != "" {
			sql.WriteString(" " + paging)
		}
	}

	return sql.String(), nil
}

// projections renders the column list. Without a Select a grouped query
// selects its keys and any other query selects every column.
func (c *compiler) projections(p *plan) (string, error) {
	if len(p.projections) == 0 {
		if p.groupBy != nil && len(p.groupBy.Keys) > 0 {
			keys, err := c.exprs(p.groupBy.Keys)
			if err != nil {
				return "", err
			}
			return strings.Join(keys, ", "), nil
		}
		return "*", nil
	}
	cols := make([]string, len(p.projections))
	for i, proj := range p.projections {
		s, err := c.projection(proj.Expr)
		if err != nil {
			return "", err
		}
		if proj.Alias != "" {
			if !types.IsIdentifier(proj.Alias) {
				return "", &types.IdentifierError{Kind: "alias", Ident: proj.Alias}
			}
			s += " AS " + c.dialect.QuoteIdentifier(proj.Alias)
		}
		cols[i] = s
	}
	return strings.Join(cols, ", "), nil
}

// projection renders a predicate-valued column through CASE where the dialect
// cannot select a boolean expression directly.
func (c *compiler) projection(e types.Expr) (string, error) {
	switch e.(type) {
	case *types.LogicBinary, *types.Foreign:
	case *types.Set:
		if !e.(*types.Set).Kind.IsLogical() {
			return c.expr(e)
		}
	case *types.Unary:
		if e.(*types.Unary).Op != types.Not {
			return c.expr(e)
		}
	default:
		return c.expr(e)
	}
	s, err := c.predicate(e)
	if err != nil {
		return "", err
	}
	if c.dialect.Capabilities().BooleanPredicates {
		return s, nil
	}
	return "CASE WHEN " + s + " THEN " + c.mustLiteral(true) + " ELSE " + c.mustLiteral(false) + " END", nil
}
