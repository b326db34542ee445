// Package testing provides test utilities for exprql.
package testing

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/exprql"
)

// TestProject returns the DBML project behind TestSchema.
// Includes users, posts, comments and orders tables.
func TestProject() *dbml.Project {
	project := dbml.NewProject("test")

	// Users table
	users := dbml.NewTable("users")
	users.AddColumn(dbml.NewColumn("id", "bigint"))
	users.AddColumn(dbml.NewColumn("username", "varchar"))
	users.AddColumn(dbml.NewColumn("email", "varchar"))
	users.AddColumn(dbml.NewColumn("age", "int"))
	users.AddColumn(dbml.NewColumn("active", "boolean"))
	users.AddColumn(dbml.NewColumn("created_at", "timestamp"))
	project.AddTable(users)

	// Posts table
	posts := dbml.NewTable("posts")
	posts.AddColumn(dbml.NewColumn("id", "bigint"))
	posts.AddColumn(dbml.NewColumn("user_id", "bigint"))
	posts.AddColumn(dbml.NewColumn("title", "varchar"))
	posts.AddColumn(dbml.NewColumn("body", "text"))
	posts.AddColumn(dbml.NewColumn("published", "boolean"))
	posts.AddColumn(dbml.NewColumn("views", "int"))
	project.AddTable(posts)

	// Comments table
	comments := dbml.NewTable("comments")
	comments.AddColumn(dbml.NewColumn("id", "bigint"))
	comments.AddColumn(dbml.NewColumn("post_id", "bigint"))
	comments.AddColumn(dbml.NewColumn("user_id", "bigint"))
	comments.AddColumn(dbml.NewColumn("body", "text"))
	project.AddTable(comments)

	// Orders table
	orders := dbml.NewTable("orders")
	orders.AddColumn(dbml.NewColumn("id", "bigint"))
	orders.AddColumn(dbml.NewColumn("user_id", "bigint"))
	orders.AddColumn(dbml.NewColumn("total", "numeric"))
	orders.AddColumn(dbml.NewColumn("status", "varchar"))
	project.AddTable(orders)

	return project
}

// TestSchema creates a Schema over TestProject with the User, Post, Comment
// and Order objects bound and related.
func TestSchema(t testing.TB) *exprql.Schema {
	t.Helper()

	schema, err := exprql.NewSchema(TestProject())
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	schema.
		MustBind("User", "users").
		MustBind("Post", "posts").
		MustBind("Comment", "comments").
		MustBind("Order", "orders")

	relations := []struct {
		object, name, target string
		local, remote        string
	}{
		{"User", "Posts", "Post", "id", "user_id"},
		{"User", "Orders", "Order", "id", "user_id"},
		{"Post", "Comments", "Comment", "id", "post_id"},
		{"Comment", "Author", "User", "user_id", "id"},
	}
	for _, r := range relations {
		if err := schema.Relate(r.object, r.name, r.target, []string{r.local}, []string{r.remote}); err != nil {
			t.Fatalf("Failed to relate %s.%s: %v", r.object, r.name, err)
		}
	}
	return schema
}

// GoldenCase is a named expression compiled by every dialect's golden tests.
type GoldenCase struct {
	Name   string
	Expr   exprql.Expr
	Object string
}

// GoldenCases returns the expressions shared by the dialect golden tests.
func GoldenCases() []GoldenCase {
	P := exprql.P
	return []GoldenCase{
		{
			Name: "where_order_page",
			Expr: exprql.From("User").
				Where(exprql.And(P("Age").Ge(18), P("Active"))).
				OrderBy(exprql.Desc(P("CreatedAt"))).
				Skip(20).
				Take(10),
		},
		{
			Name: "contains_escape",
			Expr: exprql.From("Post").Where(P("Title").Contains("50%_off")),
		},
		{
			Name: "starts_with_column",
			Expr: exprql.From("Post").Where(P("Body").StartsWith(P("Title"))),
		},
		{
			Name: "null_and_in",
			Expr: exprql.From("User").Where(exprql.And(
				P("Email").IsNotNull(),
				P("ID").NotIn([]int{}),
				P("Age").In([]int{30, 40}),
				exprql.Const(true),
			)),
		},
		{
			Name: "exists_nested",
			Expr: exprql.From("User").Where(exprql.Exists("Posts",
				exprql.Exists("Comments", P("Body").Contains("spam")))),
		},
		{
			Name: "group_having",
			Expr: exprql.From("Order").
				Where(P("Status").Eq("paid")).
				GroupBy(P("UserID")).
				Having(exprql.Sum(P("Total")).Gt(100)).
				Select(
					exprql.Col(P("UserID")),
					exprql.As(exprql.CountAll(), "orders"),
					exprql.As(exprql.Avg(P("Total")), "average"),
				),
		},
		{
			Name: "concat_projection",
			Expr: exprql.From("User").Select(
				exprql.As(exprql.Concat(P("Username"), exprql.V("<"), P("Email"), exprql.V(">")), "label"),
				exprql.As(P("Age").Gt(65), "senior"),
			),
		},
		{
			Name: "arithmetic_not",
			Expr: exprql.From("Order").Where(exprql.Not(exprql.Or(
				P("Total").Plus(10).Gt(exprql.Mul(P("Total"), exprql.Const(2))),
				P("Status").IsNull(),
			))).Take(5),
		},
		{
			Name: "in_subquery",
			Expr: exprql.From("User").
				Where(P("ID").In(exprql.From("Order").Where(P("Total").Ge(1000)).Select(exprql.Col(P("UserID"))))).
				Select(exprql.Col(P("Username"))),
		},
		{
			Name:   "bare_predicate",
			Object: "Comment",
			Expr:   exprql.Or(P("Body").EndsWith("!"), exprql.Exists("Author", P("Active"))),
		},
	}
}

// FormatResult renders a result as golden file text: the SQL followed by one
// line per bound parameter.
func FormatResult(res *exprql.QueryResult) []byte {
	var b strings.Builder
	b.WriteString(res.SQL)
	b.WriteByte('\n')
	for _, p := range res.Params {
		fmt.Fprintf(&b, "-- %s: %v\n", p.Name, p.Value)
	}
	return []byte(b.String())
}

// NewLogger returns a logger that writes to t.Log at debug level.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct {
	t testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// AssertSQL compares expected and actual SQL, reporting detailed differences.
func AssertSQL(t testing.TB, expected, actual string) {
	t.Helper()
	if expected != actual {
		t.Errorf("SQL mismatch:\nExpected: %s\nActual:   %s", expected, actual)
	}
}

// AssertParams checks bound parameter values in output order.
func AssertParams(t testing.TB, expected []any, actual []exprql.Param) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Param count mismatch: expected %d, got %d\nExpected: %v\nActual: %v",
			len(expected), len(actual), expected, actual)
		return
	}
	for i, p := range actual {
		if want := fmt.Sprintf("p%d", i); p.Name != want {
			t.Errorf("Param %d named %s, want %s", i, p.Name, want)
		}
		if !reflect.DeepEqual(expected[i], p.Value) {
			t.Errorf("Param %s = %#v, want %#v", p.Name, p.Value, expected[i])
		}
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertErrorContains checks that error message contains substr.
func AssertErrorContains(t testing.TB, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error containing %q but got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("Expected error containing %q, got: %v", substr, err)
	}
}

// AssertPanics verifies that a function panics.
func AssertPanics(t testing.TB, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic but function completed normally")
		}
	}()
	fn()
}

// AssertPanicsWithMessage verifies that a function panics with a specific message.
func AssertPanicsWithMessage(t testing.TB, fn func(), substr string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected panic containing %q but function completed normally", substr)
			return
		}
		var msg string
		switch v := r.(type) {
		case error:
			msg = v.Error()
		case string:
			msg = v
		default:
			t.Errorf("Panic value is not string or error: %T", r)
			return
		}
		if !strings.Contains(msg, substr) {
			t.Errorf("Expected panic containing %q, got: %s", substr, msg)
		}
	}()
	fn()
}
