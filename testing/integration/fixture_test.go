package integration

import (
	"database/sql"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/dbml"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/lambda"
)

// User mirrors the users table for lambda conversion.
type User struct {
	ID       int64          `db:"id"`
	Username string         `db:"username"`
	Email    sql.NullString `db:"email"`
	Age      int64          `db:"age"`
	Active   bool           `db:"active"`
	Orders   []Order
}

// Order mirrors the orders table.
type Order struct {
	ID     int64   `db:"id"`
	UserID int64   `db:"user_id"`
	Total  float64 `db:"total"`
	Status string  `db:"status"`
}

// ddl holds the dialect-specific column types of the fixture tables.
type ddl struct {
	bigint, text, boolean, decimal string
	yes, no                        string
}

// fixture returns the statements creating and seeding users and orders.
//
//	id username email  age active   orders (user, total, status)
//	1  alice    a@x.io 30  true     (1, 150, shipped) (1, 20, pending)
//	2  bob      NULL   17  true
//	3  carol    c@x.io 45  false    (3, 300, shipped)
//	4  dave     d@x.io 22  true     (4, 50, cancelled)
//	5  erin     NULL   65  false
func fixture(d ddl) []string {
	return []string{
		"DROP TABLE IF EXISTS orders",
		"DROP TABLE IF EXISTS users",
		"CREATE TABLE users (id " + d.bigint + " PRIMARY KEY, username " + d.text + " NOT NULL, email " + d.text +
			", age " + d.bigint + " NOT NULL, active " + d.boolean + " NOT NULL)",
		"CREATE TABLE orders (id " + d.bigint + " PRIMARY KEY, user_id " + d.bigint + " NOT NULL, total " + d.decimal +
			" NOT NULL, status " + d.text + " NOT NULL)",
		"INSERT INTO users (id, username, email, age, active) VALUES " +
			"(1, 'alice', 'a@x.io', 30, " + d.yes + "), " +
			"(2, 'bob', NULL, 17, " + d.yes + "), " +
			"(3, 'carol', 'c@x.io', 45, " + d.no + "), " +
			"(4, 'dave', 'd@x.io', 22, " + d.yes + "), " +
			"(5, 'erin', NULL, 65, " + d.no + ")",
		"INSERT INTO orders (id, user_id, total, status) VALUES " +
			"(1, 1, 150, 'shipped'), (2, 1, 20, 'pending'), (3, 3, 300, 'shipped'), (4, 4, 50, 'cancelled')",
	}
}

func newSchema(t *testing.T) *exprql.Schema {
	t.Helper()

	project := dbml.NewProject("integration")

	users := dbml.NewTable("users")
	users.AddColumn(dbml.NewColumn("id", "bigint"))
	users.AddColumn(dbml.NewColumn("username", "varchar"))
	users.AddColumn(dbml.NewColumn("email", "varchar"))
	users.AddColumn(dbml.NewColumn("age", "bigint"))
	users.AddColumn(dbml.NewColumn("active", "boolean"))
	project.AddTable(users)

	orders := dbml.NewTable("orders")
	orders.AddColumn(dbml.NewColumn("id", "bigint"))
	orders.AddColumn(dbml.NewColumn("user_id", "bigint"))
	orders.AddColumn(dbml.NewColumn("total", "decimal"))
	orders.AddColumn(dbml.NewColumn("status", "varchar"))
	project.AddTable(orders)

	schema, err := exprql.NewSchema(project)
	require.NoError(t, err)
	require.NoError(t, schema.Bind("User", "users"))
	require.NoError(t, schema.Bind("Order", "orders"))
	require.NoError(t, schema.Relate("User", "Orders", "Order", []string{"id"}, []string{"user_id"}))
	return schema
}

// queryCase is a query and the first column it must return.
type queryCase struct {
	name  string
	build func(t *testing.T) exprql.Expr
	want  []int64
	// ordered compares rows in result order instead of sorted.
	ordered bool
}

// users wraps pred in a query returning matching user ids.
func users(pred exprql.Logic) func(*testing.T) exprql.Expr {
	return func(*testing.T) exprql.Expr {
		return exprql.From("User").Where(pred).Select(exprql.Col(exprql.P("ID")))
	}
}

func converted(src string) func(*testing.T) exprql.Expr {
	return func(t *testing.T) exprql.Expr {
		t.Helper()
		conv := lambda.New[User]()
		if q, err := conv.Query(src); err == nil {
			return q
		}
		pred, err := conv.Predicate(src)
		require.NoError(t, err)
		return exprql.From("User").Where(pred).Select(exprql.Col(exprql.P("ID")))
	}
}

func queryCases() []queryCase {
	P := exprql.P
	return []queryCase{
		{name: "comparison", build: users(P("Age").Ge(30)), want: []int64{1, 3, 5}},
		{name: "boolean column", build: users(P("Active")), want: []int64{1, 2, 4}},
		{name: "negated boolean", build: users(exprql.Not(P("Active"))), want: []int64{3, 5}},
		{name: "is null", build: users(P("Email").IsNull()), want: []int64{2, 5}},
		{name: "starts with", build: users(P("Username").StartsWith("c")), want: []int64{3}},
		{name: "contains", build: users(P("Username").Contains("e")), want: []int64{1, 4, 5}},
		{name: "in list", build: users(P("ID").In(2, 4)), want: []int64{2, 4}},
		{name: "between", build: users(P("Age").Between(20, 45)), want: []int64{1, 3, 4}},
		{name: "or", build: users(exprql.Or(P("Age").Lt(18), P("Age").Gt(60))), want: []int64{2, 5}},
		{name: "arithmetic", build: users(P("Age").Plus(10).Gt(50)), want: []int64{3, 5}},
		{name: "function", build: users(exprql.Upper(P("Username")).Eq("BOB")), want: []int64{2}},
		{name: "coalesce", build: users(exprql.Coalesce(P("Email"), exprql.V("none")).Eq("none")), want: []int64{2, 5}},
		{name: "exists", build: users(exprql.Exists("Orders", P("Total").Gt(100))), want: []int64{1, 3}},
		{name: "not exists", build: users(exprql.Not(exprql.Exists("Orders", P("Total").Gt(0)))), want: []int64{2, 5}},
		{
			name: "paging",
			build: func(*testing.T) exprql.Expr {
				return exprql.From("User").OrderBy(exprql.Desc(P("Age"))).Skip(1).Take(2).Select(exprql.Col(P("ID")))
			},
			want:    []int64{3, 1},
			ordered: true,
		},
		{
			name: "group having",
			build: func(*testing.T) exprql.Expr {
				return exprql.From("Order").GroupBy(P("UserID")).Having(exprql.Sum(P("Total")).Gt(100)).Select(exprql.Col(P("UserID")))
			},
			want: []int64{1, 3},
		},
		{
			name: "count",
			build: func(*testing.T) exprql.Expr {
				return exprql.From("Order").Where(P("Status").Eq("shipped")).Select(exprql.As(exprql.CountAll(), "n"))
			},
			want: []int64{2},
		},
		{
			name:  "lambda correlated",
			build: converted(`func(u User) bool { return u.Age > 18 && slices.ContainsFunc(u.Orders, func(o Order) bool { return o.Status == "shipped" }) }`),
			want:  []int64{1, 3},
		},
		{
			name:  "lambda bare expression",
			build: converted(`strings.HasPrefix(x.Username, "d") || x.Age == 17`),
			want:  []int64{2, 4},
		},
		{
			name: "lambda query",
			build: converted(`func(q Query) Query {
				return q.Where(func(u User) bool { return !u.Active }).
					OrderByDescending(func(u User) any { return u.Age }).
					Select(func(u User) any { return u.ID })
			}`),
			want:    []int64{5, 3},
			ordered: true,
		},
	}
}

// runCases compiles every case for dialect and checks the ids fetch returns.
func runCases(t *testing.T, dialect exprql.Dialect, fetch func(t *testing.T, res *exprql.QueryResult) []int64) {
	t.Helper()
	schema := newSchema(t)

	for _, tc := range queryCases() {
		t.Run(tc.name, func(t *testing.T) {
			res, err := exprql.Compile(tc.build(t), schema, dialect)
			require.NoError(t, err)

			got := fetch(t, res)
			if !tc.ordered {
				slices.Sort(got)
			}
			assert.Equal(t, tc.want, got, "SQL: %s", res.SQL)
		})
	}
}

// scanIDs reads the first column of every row.
func scanIDs(t *testing.T, rows *sql.Rows) []int64 {
	t.Helper()
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}
