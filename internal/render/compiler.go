package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/zoobzio/exprql/internal/types"
)

// MaxSubqueryDepth limits nesting of EXISTS and IN subqueries.
const MaxSubqueryDepth = 32

// Param is a bound parameter in output order.
type Param struct {
	Name  string
	Value any
}

// Result is the output of one compilation.
type Result struct {
	SQL    string
	Params []Param
}

// Options configure a compilation.
type Options struct {
	// Object is the row object of a bare predicate or value expression.
	Object string
	// Alias names the outermost scope so nested scopes can reference it.
	Alias string
	// Fragments are searched in order for DynamicSQL keys.
	Fragments []FragmentSource
	Logger    *slog.Logger
}

// scope is one compile-time frame: the object being filtered and how its columns are qualified.
type scope struct {
	object    string
	table     string
	alias     string // logical alias used by properties
	qualifier string // SQL qualifier, empty for the outermost unaliased table
	parent    *scope
}

// output is shared by a compiler and every nested compiler it creates.
type output struct {
	params []Param
}

type compiler struct {
	resolver  Resolver
	dialect   Dialect
	fragments []FragmentSource
	log       *slog.Logger
	out       *output
	scope     *scope
	seq       int
	depth     int
}

// Compile renders root to SQL. Queries render a full SELECT statement; any other
// expression renders in predicate position against opts.Object.
func Compile(root types.Expr, resolver Resolver, dialect Dialect, opts Options) (*Result, error) {
	if root == nil {
		return nil, &types.ExpressionError{Expr: "<nil>", Reason: "nothing to compile"}
	}
	if resolver == nil || dialect == nil {
		return nil, fmt.Errorf("compile %s: resolver and dialect are required", root)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &compiler{
		resolver:  resolver,
		dialect:   dialect,
		fragments: opts.Fragments,
		log:       log,
		out:       &output{},
		scope:     &scope{alias: opts.Alias},
	}
	if opts.Object != "" {
		table, err := resolver.ResolveTable(opts.Object)
		if err != nil {
			return nil, err
		}
		c.scope = &scope{object: opts.Object, table: table, alias: opts.Alias}
	}

	var sql string
	var err error
	if q, ok := root.(types.Query); ok {
		sql, err = c.query(q, false)
	} else {
		sql, err = c.predicate(root)
	}
	if err != nil {
		log.Debug("compile failed", "dialect", dialect.Name(), "expr", root.String(), "error", err)
		return nil, err
	}

	if limit := dialect.Capabilities().MaxParameters; limit > 0 && len(c.out.params) > limit {
		return nil, NewUnsupportedFeatureError(dialect.Name(), fmt.Sprintf("%d parameters", len(c.out.params)),
			fmt.Sprintf("at most %d parameters may be bound", limit))
	}

	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("compiled expression",
			"dialect", dialect.Name(),
			"root", fmt.Sprintf("%T", root),
			"sql_length", len(sql),
			"params", len(c.out.params),
			"aliases", c.seq,
		)
	}
	return &Result{SQL: sql, Params: c.out.params}, nil
}

// nested creates a compiler for a subquery scope sharing the output parameters.
// The caller copies seq back once the nested compile completes.
func (c *compiler) nested(sc *scope) (*compiler, error) {
	if c.depth >= MaxSubqueryDepth {
		return nil, &types.ExpressionError{Expr: "subquery", Reason: fmt.Sprintf("maximum subquery depth (%d) exceeded", MaxSubqueryDepth)}
	}
	return &compiler{
		resolver:  c.resolver,
		dialect:   c.dialect,
		fragments: c.fragments,
		log:       c.log,
		out:       c.out,
		scope:     sc,
		seq:       c.seq,
		depth:     c.depth + 1,
	}, nil
}

// nextAlias allocates the next table alias of this compilation.
func (c *compiler) nextAlias() string {
	c.seq++
	return fmt.Sprintf("T%d", c.seq)
}

// bind appends a parameter and returns its placeholder.
func (c *compiler) bind(v any) (string, error) {
	converted, err := c.dialect.ConvertValue(v)
	if err != nil {
		return "", fmt.Errorf("convert parameter %v: %w", v, err)
	}
	name := fmt.Sprintf("p%d", len(c.out.params))
	c.out.params = append(c.out.params, Param{Name: name, Value: converted})
	return c.dialect.Placeholder(name), nil
}

// predicate renders e in boolean position.
func (c *compiler) predicate(e types.Expr) (string, error) {
	caps := c.dialect.Capabilities()
	switch x := e.(type) {
	case *types.Value:
		if x.Value == nil {
			return "", nil
		}
		if x.Const {
			if b, ok := x.Value.(bool); ok {
				if b {
					return "1=1", nil
				}
				return "0=1", nil
			}
		}
		s, err := c.value(x)
		if err != nil || caps.BooleanPredicates {
			return s, err
		}
		return s + " = " + c.mustLiteral(true), nil
	case *types.Property, *types.Function:
		s, err := c.expr(x)
		if err != nil || caps.BooleanPredicates {
			return s, err
		}
		return s + " = " + c.mustLiteral(true), nil
	case *types.Unary:
		if x.Op == types.Not {
			kw, ok := c.dialect.UnaryOperator(types.Not)
			if !ok {
				return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator not")
			}
			if s, ok := x.Operand.(*types.Set); ok && s.Kind.IsLogical() {
				parts, err := c.logicParts(s)
				if err != nil {
					return "", err
				}
				if len(parts) == 0 {
					return "0=1", nil
				}
				return kw + " (" + joinLogic(s.Kind, parts) + ")", nil
			}
			inner, err := c.predicate(x.Operand)
			if err != nil {
				return "", err
			}
			// Empty text is an absent condition, so its negation is false.
			if inner == "" {
				return "0=1", nil
			}
			return kw + " (" + inner + ")", nil
		}
		if x.Op == types.Identity {
			return c.predicate(x.Operand)
		}
	case *types.Set:
		if x.Kind.IsLogical() {
			return c.logicSet(x)
		}
	}
	return c.expr(e)
}

// expr renders e in value position. Dispatch is total over the node set.
func (c *compiler) expr(e types.Expr) (string, error) {
	switch x := e.(type) {
	case nil:
		return "NULL", nil
	case *types.Value:
		return c.value(x)
	case *types.Property:
		return c.property(x)
	case *types.Unary:
		return c.unary(x)
	case *types.LogicBinary:
		return c.logicBinary(x)
	case *types.ValueBinary:
		return c.valueBinary(x)
	case *types.Function:
		return c.function(x)
	case *types.Aggregate:
		return c.aggregate(x)
	case *types.Set:
		return c.set(x)
	case *types.Foreign:
		return c.exists(x)
	case *types.DynamicSQL:
		return c.fragment(x)
	case types.Query:
		return c.subquery(x)
	}
	return "", &types.ExpressionError{Expr: fmt.Sprintf("%T", e), Reason: "unknown node"}
}

func (c *compiler) mustLiteral(v any) string {
	s, err := c.dialect.Literal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

func isCollection(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// value renders a literal. Collections bind one parameter per element and
// render empty when they have no elements.
func (c *compiler) value(v *types.Value) (string, error) {
	if v.Value == nil {
		return "NULL", nil
	}
	if v.Const {
		if !types.IsPrimitive(v.Value) {
			return "", &types.ExpressionError{Expr: v.String(), Reason: "constant must be a boolean or number"}
		}
		return c.dialect.Literal(v.Value)
	}
	if isCollection(v.Value) {
		rv := reflect.ValueOf(v.Value)
		if rv.Len() == 0 {
			return "", nil
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			item := rv.Index(i).Interface()
			if item == nil {
				parts[i] = "NULL"
				continue
			}
			ph, err := c.bind(item)
			if err != nil {
				return "", err
			}
			parts[i] = ph
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	}
	return c.bind(v.Value)
}

func (c *compiler) unary(u *types.Unary) (string, error) {
	if !u.Op.Valid() {
		return "", &types.ExpressionError{Expr: u.String(), Reason: "invalid unary operator"}
	}
	switch u.Op {
	case types.Identity:
		return c.expr(u.Operand)
	case types.Not:
		return c.predicate(u)
	}
	kw, ok := c.dialect.UnaryOperator(u.Op)
	if !ok {
		return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator "+u.Op.Name())
	}
	inner, err := c.expr(u.Operand)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(inner, " (") {
		inner = "(" + inner + ")"
	}
	return kw + inner, nil
}

func (c *compiler) logicBinary(b *types.LogicBinary) (string, error) {
	if !b.Op.Valid() {
		return "", &types.ExpressionError{Expr: b.String(), Reason: "invalid logic operator"}
	}
	pos := types.Positive(b.Op)
	negated := types.IsNegated(b.Op)

	if pos == types.Equal && (types.IsNull(b.Left) || types.IsNull(b.Right)) {
		other := b.Left
		if types.IsNull(b.Left) {
			other = b.Right
		}
		s, err := c.expr(other)
		if err != nil {
			return "", err
		}
		if negated {
			return s + " IS NOT NULL", nil
		}
		return s + " IS NULL", nil
	}
	if pos == types.In {
		return c.in(b)
	}
	if b.Op.IsPattern() {
		return c.pattern(b)
	}

	kw, ok := c.dialect.Operator(b.Op)
	if !ok {
		return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator "+b.Op.Name())
	}
	left, err := c.expr(b.Left)
	if err != nil {
		return "", err
	}
	right, err := c.expr(b.Right)
	if err != nil {
		return "", err
	}
	return left + " " + kw + " " + right, nil
}

// in renders IN and NOT IN. An empty right side is always false for IN and
// drops the condition entirely for NOT IN.
func (c *compiler) in(b *types.LogicBinary) (string, error) {
	mark := len(c.out.params)
	left, err := c.expr(b.Left)
	if err != nil {
		return "", err
	}

	var right string
	grouped := true
	switch x := b.Right.(type) {
	case *types.Value:
		right, err = c.value(x)
		grouped = isCollection(x.Value)
	case *types.Set:
		right, err = c.expr(x)
		grouped = x.Kind == types.JoinList
	case types.Query:
		right, err = c.subquery(x)
	default:
		right, err = c.expr(x)
		grouped = false
	}
	if err != nil {
		return "", err
	}

	if right == "" {
		c.out.params = c.out.params[:mark]
		if types.IsNegated(b.Op) {
			return "", nil
		}
		return "0=1", nil
	}
	if !grouped {
		right = "(" + right + ")"
	}
	kw, ok := c.dialect.Operator(b.Op)
	if !ok {
		return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator "+b.Op.Name())
	}
	return left + " " + kw + " " + right, nil
}

func (c *compiler) valueBinary(b *types.ValueBinary) (string, error) {
	if !b.Op.Valid() {
		return "", &types.ExpressionError{Expr: b.String(), Reason: "invalid value operator"}
	}
	left, err := c.expr(b.Left)
	if err != nil {
		return "", err
	}
	right, err := c.expr(b.Right)
	if err != nil {
		return "", err
	}
	if b.Op == types.Concatenate {
		return c.dialect.Concat(left, right), nil
	}
	kw, ok := c.dialect.ValueOperator(b.Op)
	if !ok {
		return "", NewUnsupportedFeatureError(c.dialect.Name(), "operator "+b.Op.Name())
	}
	return "(" + left + " " + kw + " " + right + ")", nil
}

func (c *compiler) function(f *types.Function) (string, error) {
	if !types.IsIdentifier(f.Name) {
		return "", &types.IdentifierError{Kind: "function", Ident: f.Name}
	}
	args, err := c.exprs(f.Args)
	if err != nil {
		return "", err
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")", nil
}

func (c *compiler) aggregate(a *types.Aggregate) (string, error) {
	if !types.IsIdentifier(a.Name) {
		return "", &types.IdentifierError{Kind: "aggregate", Ident: a.Name}
	}
	arg := "*"
	if a.Arg != nil {
		s, err := c.expr(a.Arg)
		if err != nil {
			return "", err
		}
		arg = s
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return a.Name + "(" + arg + ")", nil
}

func (c *compiler) exprs(list []types.Expr) ([]string, error) {
	out := make([]string, len(list))
	for i, e := range list {
		s, err := c.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// logicSet joins the non-empty children of an And or Or set. A single child is
// rendered bare and more than one is parenthesized.
func (c *compiler) logicSet(s *types.Set) (string, error) {
	parts, err := c.logicParts(s)
	if err != nil {
		return "", err
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}
	return "(" + joinLogic(s.Kind, parts) + ")", nil
}

// logicParts renders the children of s. An empty child holds for every row:
// And drops it, and Or becomes empty as a whole.
func (c *compiler) logicParts(s *types.Set) ([]string, error) {
	mark := len(c.out.params)
	parts := make([]string, 0, len(s.Children))
	vacuous := false
	for _, child := range s.Children {
		txt, err := c.predicate(child)
		if err != nil {
			return nil, err
		}
		if txt == "" {
			vacuous = true
			continue
		}
		parts = append(parts, txt)
	}
	if vacuous && s.Kind == types.JoinOr {
		c.out.params = c.out.params[:mark]
		return nil, nil
	}
	return parts, nil
}

func joinLogic(kind types.SetKind, parts []string) string {
	if kind == types.JoinOr {
		return strings.Join(parts, " OR ")
	}
	return strings.Join(parts, " AND ")
}

func (c *compiler) set(s *types.Set) (string, error) {
	switch s.Kind {
	case types.JoinAnd, types.JoinOr:
		return c.logicSet(s)
	case types.JoinList:
		if len(s.Children) == 0 {
			return "", nil
		}
		parts, err := c.exprs(s.Children)
		if err != nil {
			return "", err
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	case types.JoinConcat:
		parts, err := c.exprs(s.Children)
		if err != nil {
			return "", err
		}
		return c.dialect.Concat(parts...), nil
	}
	return "", &types.ExpressionError{Expr: s.String(), Reason: "unknown set kind"}
}
