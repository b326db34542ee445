package types

import (
	"fmt"
	"strings"
)

func (v *Value) String() string {
	switch {
	case v.Value == nil:
		return "NULL"
	case v.Const:
		return fmt.Sprint(v.Value)
	}
	if s, ok := v.Value.(string); ok {
		return fmt.Sprintf("@%q", s)
	}
	return fmt.Sprintf("@%v", v.Value)
}

func (p *Property) String() string { return p.Path() }

func (u *Unary) String() string {
	if u.Op == Identity {
		return u.Operand.String()
	}
	return u.Op.String() + u.Operand.String()
}

func (b *LogicBinary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (b *ValueBinary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (f *Function) String() string {
	return f.Name + "(" + joinExprs(f.Args, ", ") + ")"
}

func (a *Aggregate) String() string {
	arg := "*"
	if a.Arg != nil {
		arg = a.Arg.String()
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return a.Name + "(" + arg + ")"
}

func (s *Set) String() string {
	var sep string
	switch s.Kind {
	case JoinAnd:
		sep = " AND "
	case JoinOr:
		sep = " OR "
	case JoinConcat:
		sep = " || "
	default:
		sep = ", "
	}
	return "(" + joinExprs(s.Children, sep) + ")"
}

func (f *Foreign) String() string {
	var b strings.Builder
	b.WriteString("EXISTS(")
	b.WriteString(f.Relation)
	if len(f.TableArgs) > 0 {
		b.WriteString("[" + strings.Join(f.TableArgs, ",") + "]")
	}
	if f.Alias != "" {
		b.WriteString(" " + f.Alias)
	}
	if f.Inner != nil {
		b.WriteString(": " + f.Inner.String())
	}
	b.WriteString(")")
	return b.String()
}

func (d *DynamicSQL) String() string {
	if d.Arg == nil {
		return "SQL[" + d.Key + "]"
	}
	return fmt.Sprintf("SQL[%s](%v)", d.Key, d.Arg)
}

func (f *From) String() string { return "From(" + f.Object + ")" }

func (w *Where) String() string {
	return w.Source.String() + ".Where(" + w.Predicate.String() + ")"
}

func (g *GroupBy) String() string {
	return g.Source.String() + ".GroupBy(" + joinExprs(g.Keys, ", ") + ")"
}

func (h *Having) String() string {
	return h.Source.String() + ".Having(" + h.Predicate.String() + ")"
}

func (o *OrderBy) String() string {
	parts := make([]string, len(o.Keys))
	for i, k := range o.Keys {
		dir := "ASC"
		if !k.Ascending {
			dir = "DESC"
		}
		parts[i] = k.Expr.String() + " " + dir
	}
	return o.Source.String() + ".OrderBy(" + strings.Join(parts, ", ") + ")"
}

func (s *Section) String() string {
	if s.Limit == NoLimit {
		return fmt.Sprintf("%s.Skip(%d)", s.Source, s.Offset)
	}
	return fmt.Sprintf("%s.Section(%d, %d)", s.Source, s.Offset, s.Limit)
}

func (s *Select) String() string {
	parts := make([]string, len(s.Projections))
	for i, p := range s.Projections {
		parts[i] = p.Expr.String()
		if p.Alias != "" {
			parts[i] += " AS " + p.Alias
		}
	}
	return s.Source.String() + ".Select(" + strings.Join(parts, ", ") + ")"
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
