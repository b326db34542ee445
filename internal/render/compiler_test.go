package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/zoobzio/exprql/internal/types"
)

type testDialect struct {
	booleans bool
	ordered  bool
}

var testOperators = map[types.LogicOperator]string{
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

func (testDialect) Name() string { return "test" }

func (testDialect) Operator(op types.LogicOperator) (string, bool) {
	kw, ok := testOperators[op]
	return kw, ok
}

func (testDialect) ValueOperator(op types.ValueOperator) (string, bool) {
	if op == types.BitXor || !op.Valid() {
		return "", false
	}
	return op.String(), true
}

func (testDialect) UnaryOperator(op types.UnaryOperator) (string, bool) {
	switch op {
	case types.Not:
		return "NOT", true
	case types.Negate:
		return "-", true
	}
	return "", false
}

func (testDialect) Concat(parts ...string) string      { return strings.Join(parts, " || ") }
func (testDialect) EscapeChar() rune                   { return DefaultEscapeChar }
func (testDialect) QuoteIdentifier(name string) string { return `"` + name + `"` }
func (testDialect) Placeholder(name string) string     { return "@" + name }
func (testDialect) ConvertValue(v any) (any, error)    { return v, nil }
func (d testDialect) Capabilities() Capabilities {
	return Capabilities{BooleanPredicates: d.booleans, RequiresOrderBy: d.ordered}
}

func (testDialect) Literal(v any) (string, error) {
	if b, ok := v.(bool); ok {
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil
	}
	return fmt.Sprint(v), nil
}

func (testDialect) Paging(skip, take int64, _ bool) (string, error) {
	var parts []string
	if take != types.NoLimit {
		parts = append(parts, fmt.Sprintf("LIMIT %d", take))
	}
	if skip > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", skip))
	}
	return strings.Join(parts, " "), nil
}

type testResolver struct{}

var testTables = map[string]string{"User": "users", "Order": "orders", "Item": "items"}

var testColumns = map[string]map[string]string{
	"User":  {"Id": "ID", "Age": "AGE", "Status": "STATUS", "Name": "NAME", "Active": "ACTIVE", "Address.City": "ADDRESS_CITY"},
	"Order": {"Id": "ID", "UserId": "USER_ID", "Total": "TOTAL"},
	"Item":  {"OrderId": "ORDER_ID", "Sku": "SKU"},
}

var testRelations = map[string]map[string]ForeignRelation{
	"User": {
		"Orders": {Object: "Order", Table: "orders", LocalKeys: []string{"ID"}, ForeignKeys: []string{"USER_ID"}},
		"Audit":  {Object: "Order", Table: "audit_{0}", LocalKeys: []string{"ID"}, ForeignKeys: []string{"USER_ID"}},
	},
	"Order": {
		"Items": {Object: "Item", Table: "items", LocalKeys: []string{"ID"}, ForeignKeys: []string{"ORDER_ID"}},
	},
}

func (testResolver) ResolveTable(object string) (string, error) {
	if t, ok := testTables[object]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown object %q", object)
}

func (testResolver) ResolveColumn(object, property string) (Column, error) {
	if col, ok := testColumns[object][property]; ok {
		return Column{Name: col}, nil
	}
	return Column{}, &types.PropertyError{Object: object, Property: property}
}

func (testResolver) ResolveForeign(object, relation string) (ForeignRelation, error) {
	if rel, ok := testRelations[object][relation]; ok {
		return rel, nil
	}
	return ForeignRelation{}, &types.RelationError{Object: object, Relation: relation}
}

type fragmentMap map[string]Fragment

func (m fragmentMap) Lookup(key string) (Fragment, bool) {
	fn, ok := m[key]
	return fn, ok
}

func prop(path string) *types.Property {
	p, err := types.NewProperty(path)
	if err != nil {
		panic(err)
	}
	return p
}

func cmp(path string, op types.LogicOperator, v any) *types.LogicBinary {
	return types.NewLogicBinary(prop(path), op, types.NewValue(v))
}

func compileUser(t *testing.T, e types.Expr) *Result {
	t.Helper()
	result, err := Compile(e, testResolver{}, testDialect{booleans: true}, Options{Object: "User"})
	if err != nil {
		t.Fatalf("Compile(%s): %v", e, err)
	}
	return result
}

func assertSQL(t *testing.T, result *Result, want string) {
	t.Helper()
	if result.SQL != want {
		t.Errorf("Expected SQL:\n%s\nGot:\n%s", want, result.SQL)
	}
}

func TestCompile_Comparison(t *testing.T) {
	result := compileUser(t, cmp("Age", types.GreaterThan, 18))
	assertSQL(t, result, `"AGE" > @p0`)
	if len(result.Params) != 1 || result.Params[0].Name != "p0" || result.Params[0].Value != 18 {
		t.Errorf("Params = %+v, want [p0=18]", result.Params)
	}
}

func TestCompile_NullEquality(t *testing.T) {
	result := compileUser(t, types.NewLogicBinary(prop("Status"), types.Equal, types.Null))
	assertSQL(t, result, `"STATUS" IS NULL`)
	if len(result.Params) != 0 {
		t.Errorf("Params = %+v, want none", result.Params)
	}

	result = compileUser(t, types.NewLogicBinary(types.Null, types.NotEqual, prop("Status")))
	assertSQL(t, result, `"STATUS" IS NOT NULL`)
}

func TestCompile_EmptyIn(t *testing.T) {
	result := compileUser(t, cmp("Id", types.In, []int{}))
	assertSQL(t, result, "0=1")

	result = compileUser(t, cmp("Id", types.NotIn, []int{}))
	assertSQL(t, result, "")

	result = compileUser(t, types.NewSet(types.JoinAnd, cmp("Id", types.NotIn, []int{}), cmp("Age", types.GreaterThan, 1)))
	assertSQL(t, result, `"AGE" > @p0`)
}

func TestCompile_EmptyNotInComposes(t *testing.T) {
	empty := cmp("Id", types.NotIn, []int{})

	result := compileUser(t, types.NewSet(types.JoinOr, empty, cmp("Age", types.GreaterThan, 1)))
	assertSQL(t, result, "")
	if len(result.Params) != 0 {
		t.Errorf("Params = %+v, want none", result.Params)
	}

	result = compileUser(t, types.NewUnary(types.Not, empty))
	assertSQL(t, result, "0=1")

	result = compileUser(t, types.NewUnary(types.Not, types.NewSet(types.JoinOr, empty, cmp("Age", types.GreaterThan, 1))))
	assertSQL(t, result, "0=1")

	plus := types.NewValueBinary(prop("Age"), types.Add, types.NewValue(1))
	result = compileUser(t, types.NewSet(types.JoinAnd,
		types.NewLogicBinary(plus, types.NotIn, types.NewValue([]int{})),
		cmp("Name", types.Equal, "x"),
	))
	assertSQL(t, result, `"NAME" = @p0`)
	if len(result.Params) != 1 || result.Params[0].Value != "x" {
		t.Errorf("Params = %+v, want [p0=x]", result.Params)
	}
}

func TestCompile_In(t *testing.T) {
	result := compileUser(t, cmp("Id", types.In, []int{1, 2, 3}))
	assertSQL(t, result, `"ID" IN (@p0, @p1, @p2)`)
	if len(result.Params) != 3 || result.Params[2].Value != 3 {
		t.Errorf("Params = %+v", result.Params)
	}

	result = compileUser(t, types.NewLogicBinary(prop("Id"), types.In, types.NewSet(types.JoinList, types.NewValue(1), prop("Age"))))
	assertSQL(t, result, `"ID" IN (@p0, "AGE")`)

	result = compileUser(t, cmp("Id", types.NotIn, 7))
	assertSQL(t, result, `"ID" NOT IN (@p0)`)
}

func TestCompile_StartsWithLiteral(t *testing.T) {
	result := compileUser(t, cmp("Name", types.StartsWith, "A%_b"))
	assertSQL(t, result, `"NAME" LIKE @p0 ESCAPE '/'`)
	if len(result.Params) != 1 || result.Params[0].Value != "A/%/_b%" {
		t.Errorf("Params = %+v, want [p0=A/%%/_b%%]", result.Params)
	}
}

func TestCompile_PatternWrapping(t *testing.T) {
	tests := []struct {
		op   types.LogicOperator
		sql  string
		want string
	}{
		{types.EndsWith, `"NAME" LIKE @p0 ESCAPE '/'`, "%x"},
		{types.Contains, `"NAME" LIKE @p0 ESCAPE '/'`, "%x%"},
		{types.NotContains, `"NAME" NOT LIKE @p0 ESCAPE '/'`, "%x%"},
	}
	for _, tt := range tests {
		result := compileUser(t, cmp("Name", tt.op, "x"))
		assertSQL(t, result, tt.sql)
		if result.Params[0].Value != tt.want {
			t.Errorf("%s pattern = %v, want %q", tt.op, result.Params[0].Value, tt.want)
		}
	}
}

func TestCompile_PatternExpression(t *testing.T) {
	result := compileUser(t, types.NewLogicBinary(prop("Name"), types.StartsWith, prop("Status")))
	want := `"NAME" LIKE REPLACE(REPLACE(REPLACE(REPLACE("STATUS", '/', '//'), '%', '/%'), '_', '/_'), '[', '/[') || '%' ESCAPE '/'`
	assertSQL(t, result, want)
	if len(result.Params) != 0 {
		t.Errorf("Params = %+v, want none", result.Params)
	}
}

func TestCompile_LogicSets(t *testing.T) {
	a := cmp("Age", types.GreaterThan, 18)
	b := cmp("Name", types.Equal, "x")

	assertSQL(t, compileUser(t, types.NewSet(types.JoinAnd, a)), `"AGE" > @p0`)
	assertSQL(t, compileUser(t, types.NewSet(types.JoinAnd, a, b)), `("AGE" > @p0 AND "NAME" = @p1)`)
	assertSQL(t, compileUser(t, types.NewSet(types.JoinOr, a, types.NewSet(types.JoinAnd, a, b))),
		`("AGE" > @p0 OR ("AGE" > @p1 AND "NAME" = @p2))`)
	assertSQL(t, compileUser(t, types.NewSet(types.JoinAnd)), "")
	assertSQL(t, compileUser(t, types.NewUnary(types.Not, types.NewSet(types.JoinOr, a, b))), `NOT ("AGE" > @p0 OR "NAME" = @p1)`)
}

func TestCompile_ConstantsInline(t *testing.T) {
	c, _ := types.NewConst(5)
	result := compileUser(t, types.NewLogicBinary(prop("Age"), types.GreaterThan, c))
	assertSQL(t, result, `"AGE" > 5`)
	if len(result.Params) != 0 {
		t.Errorf("Params = %+v, want none", result.Params)
	}

	yes, _ := types.NewConst(true)
	assertSQL(t, compileUser(t, yes), "1=1")
}

func TestCompile_BooleanColumn(t *testing.T) {
	result, err := Compile(prop("Active"), testResolver{}, testDialect{booleans: false}, Options{Object: "User"})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `"ACTIVE" = TRUE`)

	assertSQL(t, compileUser(t, prop("Active")), `"ACTIVE"`)
}

func TestCompile_ValueBinary(t *testing.T) {
	sum := types.NewValueBinary(prop("Age"), types.Add, types.NewValue(1))
	result := compileUser(t, types.NewLogicBinary(sum, types.GreaterThan, types.NewValue(30)))
	assertSQL(t, result, `("AGE" + @p0) > @p1`)

	concat := types.NewValueBinary(prop("Name"), types.Concatenate, prop("Status"))
	assertSQL(t, compileUser(t, concat), `"NAME" || "STATUS"`)

	_, err := Compile(types.NewValueBinary(prop("Age"), types.BitXor, prop("Age")), testResolver{}, testDialect{}, Options{Object: "User"})
	if !errors.Is(err, types.ErrUnsupportedExpression) {
		t.Errorf("err = %v, want ErrUnsupportedExpression", err)
	}

	_, err = Compile(types.NewValueBinary(prop("Age"), types.Opposite(types.Add), prop("Age")), testResolver{}, testDialect{}, Options{Object: "User"})
	if !errors.Is(err, types.ErrUnsupportedExpression) {
		t.Errorf("negated arithmetic err = %v, want ErrUnsupportedExpression", err)
	}
}

func TestCompile_FunctionsAndAggregates(t *testing.T) {
	upper, _ := types.NewFunction("UPPER", prop("Name"))
	assertSQL(t, compileUser(t, types.NewLogicBinary(upper, types.Equal, types.NewValue("X"))), `UPPER("NAME") = @p0`)

	count, _ := types.NewAggregate("COUNT", nil, false)
	assertSQL(t, compileUser(t, count), "COUNT(*)")

	distinct, _ := types.NewAggregate("COUNT", prop("Name"), true)
	assertSQL(t, compileUser(t, distinct), `COUNT(DISTINCT "NAME")`)
}

func TestCompile_NestedExistsAliases(t *testing.T) {
	items, _ := types.NewForeign("Items", "", types.NewSet(types.JoinAnd,
		cmp("Sku", types.Equal, "x"),
		types.NewLogicBinary(prop("o.Total"), types.GreaterThan, types.NewValue(5)),
	))
	orders, _ := types.NewForeign("Orders", "o", types.NewSet(types.JoinAnd, cmp("Total", types.GreaterThan, 100), items))
	plain, _ := types.NewForeign("Orders", "", nil)

	result := compileUser(t, types.NewSet(types.JoinOr, orders, plain))
	want := `(EXISTS (SELECT 1 FROM "orders" T1 WHERE T1."USER_ID" = "users"."ID" AND ` +
		`(T1."TOTAL" > @p0 AND EXISTS (SELECT 1 FROM "items" T2 WHERE T2."ORDER_ID" = T1."ID" AND ` +
		`(T2."SKU" = @p1 AND T1."TOTAL" > @p2)))) OR ` +
		`EXISTS (SELECT 1 FROM "orders" T3 WHERE T3."USER_ID" = "users"."ID"))`
	assertSQL(t, result, want)
	if len(result.Params) != 3 {
		t.Errorf("Params = %+v", result.Params)
	}
}

func TestCompile_ExistsTableArgs(t *testing.T) {
	audit, _ := types.NewForeign("Audit", "", nil, "2024")
	assertSQL(t, compileUser(t, audit), `EXISTS (SELECT 1 FROM "audit_2024" T1 WHERE T1."USER_ID" = "users"."ID")`)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr types.Expr
		want error
	}{
		{"unknown property", cmp("Missing", types.Equal, 1), types.ErrUnknownProperty},
		{"undefined relation", &types.Foreign{Relation: "Nope"}, types.ErrUndefinedForeignRelation},
		{"unknown fragment", &types.DynamicSQL{Key: "nope"}, types.ErrUnsupportedExpression},
		{"invalid operator", &types.LogicBinary{Left: prop("Age"), Op: 0x7f, Right: types.Null}, types.ErrUnsupportedExpression},
		{"string constant", &types.Value{Value: "x", Const: true}, types.ErrUnsupportedExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compile(tt.expr, testResolver{}, testDialect{}, Options{Object: "User"})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if result != nil {
				t.Errorf("failed compile returned a result: %+v", result)
			}
		})
	}
}

func TestCompile_Query(t *testing.T) {
	from, _ := types.NewFrom("User")
	q := from.
		Where(cmp("Age", types.GreaterThan, 18)).
		OrderBy(types.OrderKey{Expr: prop("Name"), Ascending: true}).
		Skip(10).
		Take(5).
		Select(types.Projection{Expr: prop("Name"), Alias: "n"})

	result, err := Compile(q, testResolver{}, testDialect{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT "NAME" AS "n" FROM "users" WHERE "AGE" > @p0 ORDER BY "NAME" ASC LIMIT 5 OFFSET 10`)
}

func TestCompile_PagingRequiresOrderBy(t *testing.T) {
	from, _ := types.NewFrom("User")
	dialect := testDialect{ordered: true}

	_, err := Compile(from.Take(5), testResolver{}, dialect, Options{})
	var unsupported UnsupportedFeatureError
	if !errors.As(err, &unsupported) || unsupported.Dialect != "test" {
		t.Fatalf("err = %v, want UnsupportedFeatureError", err)
	}

	result, err := Compile(from.OrderBy(types.OrderKey{Expr: prop("Id")}).Take(5), testResolver{}, dialect, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT * FROM "users" ORDER BY "ID" DESC LIMIT 5`)

	result, err = Compile(from.Where(cmp("Age", types.GreaterThan, 1)), testResolver{}, dialect, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT * FROM "users" WHERE "AGE" > @p0`)
}

func TestCompile_QueryMergesWhere(t *testing.T) {
	from, _ := types.NewFrom("User")
	q := from.Where(cmp("Age", types.GreaterThan, 18)).Where(cmp("Name", types.Equal, "x"))

	result, err := Compile(q, testResolver{}, testDialect{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT * FROM "users" WHERE ("AGE" > @p0 AND "NAME" = @p1)`)
}

func TestCompile_QueryOmitsEmptyWhere(t *testing.T) {
	from, _ := types.NewFrom("User")
	result, err := Compile(from.Where(cmp("Id", types.NotIn, []int{})), testResolver{}, testDialect{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT * FROM "users"`)
}

func TestCompile_GroupByHaving(t *testing.T) {
	from, _ := types.NewFrom("Order")
	count, _ := types.NewAggregate("COUNT", nil, false)
	q := from.GroupBy(prop("UserId")).
		Having(types.NewLogicBinary(count, types.GreaterThan, types.NewValue(2))).
		Select(types.Projection{Expr: prop("UserId")}, types.Projection{Expr: count, Alias: "total"})

	result, err := Compile(q, testResolver{}, testDialect{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `SELECT "USER_ID", COUNT(*) AS "total" FROM "orders" GROUP BY "USER_ID" HAVING COUNT(*) > @p0`)
}

func TestCompile_InSubquery(t *testing.T) {
	from, _ := types.NewFrom("Order")
	sub := from.Where(cmp("Total", types.GreaterThan, 5)).Select(types.Projection{Expr: prop("UserId")})

	result := compileUser(t, types.NewLogicBinary(prop("Id"), types.In, sub))
	assertSQL(t, result, `"ID" IN (SELECT T1."USER_ID" FROM "orders" T1 WHERE T1."TOTAL" > @p0)`)
}

func TestCompile_DynamicSQL(t *testing.T) {
	frags := fragmentMap{
		"recent": func(ctx FragmentContext, arg any) (string, error) {
			col, err := ctx.Column("Age")
			if err != nil {
				return "", err
			}
			ph, err := ctx.Bind(arg)
			if err != nil {
				return "", err
			}
			return col + " < " + ph, nil
		},
	}
	result, err := Compile(&types.DynamicSQL{Key: "recent", Arg: 30}, testResolver{}, testDialect{}, Options{
		Object:    "User",
		Fragments: []FragmentSource{frags},
	})
	if err != nil {
		t.Fatal(err)
	}
	assertSQL(t, result, `"AGE" < @p0`)
	if result.Params[0].Value != 30 {
		t.Errorf("Params = %+v", result.Params)
	}
}

func TestCompile_MemberPath(t *testing.T) {
	assertSQL(t, compileUser(t, cmp("Address.City", types.Equal, "Oslo")), `"ADDRESS_CITY" = @p0`)
}
