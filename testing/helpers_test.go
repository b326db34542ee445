package testing

import (
	"errors"
	"testing"

	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/postgres"
)

// =============================================================================
// TestSchema Tests
// =============================================================================

func TestTestSchema(t *testing.T) {
	schema := TestSchema(t)
	if schema == nil {
		t.Fatal("Expected non-nil schema")
	}

	for object, table := range map[string]string{
		"User":    "users",
		"Post":    "posts",
		"Comment": "comments",
		"Order":   "orders",
	} {
		got, err := schema.ResolveTable(object)
		if err != nil || got != table {
			t.Errorf("ResolveTable(%s) = %s, %v; want %s", object, got, err, table)
		}
	}

	for _, rel := range [][2]string{{"User", "Posts"}, {"User", "Orders"}, {"Post", "Comments"}, {"Comment", "Author"}} {
		if _, err := schema.ResolveForeign(rel[0], rel[1]); err != nil {
			t.Errorf("ResolveForeign(%s, %s) failed: %v", rel[0], rel[1], err)
		}
	}
}

// =============================================================================
// GoldenCases Tests
// =============================================================================

func TestGoldenCasesCompile(t *testing.T) {
	schema := TestSchema(t)
	seen := make(map[string]bool)
	for _, tc := range GoldenCases() {
		if seen[tc.Name] {
			t.Errorf("Duplicate golden case %s", tc.Name)
		}
		seen[tc.Name] = true

		var opts []exprql.Option
		if tc.Object != "" {
			opts = append(opts, exprql.WithObject(tc.Object))
		}
		if _, err := exprql.Compile(tc.Expr, schema, postgres.New(), opts...); err != nil {
			t.Errorf("Golden case %s does not compile: %v", tc.Name, err)
		}
	}
}

func TestFormatResult(t *testing.T) {
	res := &exprql.QueryResult{
		SQL:    `SELECT * FROM "users" WHERE "age" > @p0`,
		Params: []exprql.Param{{Name: "p0", Value: 18}},
	}
	want := "SELECT * FROM \"users\" WHERE \"age\" > @p0\n-- p0: 18\n"
	if got := string(FormatResult(res)); got != want {
		t.Errorf("FormatResult = %q, want %q", got, want)
	}
}

// =============================================================================
// Assertion Tests
// =============================================================================

func TestAssertSQL_Match(t *testing.T) {
	// This should not cause the test to fail
	AssertSQL(t, "SELECT * FROM users", "SELECT * FROM users")
}

func TestAssertParams_Match(t *testing.T) {
	AssertParams(t, []any{18, "x"}, []exprql.Param{{Name: "p0", Value: 18}, {Name: "p1", Value: "x"}})
}

func TestAssertParams_EmptySlices(t *testing.T) {
	// Both empty should match
	AssertParams(t, nil, nil)
}

func TestAssertNoError_Nil(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertError_NonNil(t *testing.T) {
	AssertError(t, errors.New("test error"))
}

func TestAssertErrorContains_Match(t *testing.T) {
	AssertErrorContains(t, errors.New("unknown property \"x\""), "unknown property")
}

func TestAssertPanics_Panics(t *testing.T) {
	AssertPanics(t, func() { exprql.P("bad path!") })
}

func TestAssertPanicsWithMessage_Error(t *testing.T) {
	AssertPanicsWithMessage(t, func() {
		panic(errors.New("specific error message"))
	}, "specific error")
}

func TestAssertPanicsWithMessage_String(t *testing.T) {
	AssertPanicsWithMessage(t, func() { exprql.P("bad path!") }, "invalid property")
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(t)
	log.Debug("compiled", "sql_length", 10)
}
