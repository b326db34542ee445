package exprql_test

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/mariadb"
	"github.com/zoobzio/exprql/mssql"
	"github.com/zoobzio/exprql/postgres"
	"github.com/zoobzio/exprql/sqlite"
)

func TestCompileQuery(t *testing.T) {
	schema := newTestSchema(t)

	tests := []struct {
		name   string
		query  exprql.Expr
		sql    string
		params int
	}{
		{
			name:   "filter order take",
			query:  exprql.From("User").Where(exprql.P("Age").Gt(18)).OrderBy(exprql.Asc(exprql.P("Name"))).Take(10),
			sql:    `SELECT * FROM "users" WHERE "age" > @p0 ORDER BY "name" ASC LIMIT 10`,
			params: 1,
		},
		{
			name:  "bare from",
			query: exprql.From("Item"),
			sql:   `SELECT * FROM "items"`,
		},
		{
			name:  "skip then take",
			query: exprql.From("User").Skip(5).Take(10),
			sql:   `SELECT * FROM "users" LIMIT 10 OFFSET 5`,
		},
		{
			name:   "member path",
			query:  exprql.From("User").Where(exprql.Eq("Address.City", "Oslo")),
			sql:    `SELECT * FROM "users" WHERE "address_city" = @p0`,
			params: 1,
		},
		{
			name:   "exists through relation",
			query:  exprql.From("User").Where(exprql.Exists("Orders", exprql.P("Total").Gt(100))),
			sql:    `SELECT * FROM "users" WHERE EXISTS (SELECT 1 FROM "orders" T1 WHERE T1."user_id" = "users"."id" AND T1."total" > @p0)`,
			params: 1,
		},
		{
			name:  "exists by target object",
			query: exprql.From("User").Where(exprql.Exists("Order", nil)),
			sql:   `SELECT * FROM "users" WHERE EXISTS (SELECT 1 FROM "orders" T1 WHERE T1."user_id" = "users"."id")`,
		},
		{
			name: "in subquery",
			query: exprql.From("User").Where(exprql.P("ID").In(
				exprql.From("Order").Where(exprql.P("Total").Gt(5)).Select(exprql.Col(exprql.P("UserID"))),
			)),
			sql:    `SELECT * FROM "users" WHERE "id" IN (SELECT T1."user_id" FROM "orders" T1 WHERE T1."total" > @p0)`,
			params: 1,
		},
		{
			name: "group having select",
			query: exprql.From("Order").
				GroupBy(exprql.P("UserID")).
				Having(exprql.Count(exprql.P("ID")).Gt(2)).
				Select(exprql.Col(exprql.P("UserID")), exprql.As(exprql.Sum(exprql.P("Total")), "spent")),
			sql:    `SELECT "user_id", SUM("total") AS "spent" FROM "orders" GROUP BY "user_id" HAVING COUNT("id") > @p0`,
			params: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := exprql.Compile(tt.query, schema, postgres.New())
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			assertSQL(t, tt.sql, result.SQL)
			if len(result.Params) != tt.params {
				t.Errorf("Expected %d params, got %d: %v", tt.params, len(result.Params), result.Params)
			}
		})
	}
}

func TestCompilePredicate(t *testing.T) {
	schema := newTestSchema(t)

	result, err := exprql.Compile(exprql.P("Status").IsNull(), schema, sqlite.New(), exprql.WithObject("User"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	assertSQL(t, `"status" IS NULL`, result.SQL)

	result, err = exprql.Compile(exprql.P("Active"), schema, mssql.New(), exprql.WithObject("User"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	assertSQL(t, `[active] = 1`, result.SQL)

	if _, err := exprql.Compile(exprql.P("Status").IsNull(), schema, sqlite.New(), exprql.WithObject("bad name")); !errors.Is(err, exprql.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestCompileWithAlias(t *testing.T) {
	schema := newTestSchema(t)
	query := exprql.From("User").Where(
		exprql.ExistsAs("Orders", "o", exprql.P("o.Total").Gt(exprql.P("u.Age"))),
	)

	result, err := exprql.Compile(query, schema, postgres.New(), exprql.WithAlias("u"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	assertSQL(t, `SELECT * FROM "users" WHERE EXISTS (SELECT 1 FROM "orders" T1 WHERE T1."user_id" = "users"."id" AND T1."total" > "users"."age")`, result.SQL)

	if _, err := exprql.Compile(query, schema, postgres.New(), exprql.WithAlias("u.v")); !errors.Is(err, exprql.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestCompileErrors(t *testing.T) {
	schema := newTestSchema(t)

	tests := []struct {
		name   string
		query  exprql.Expr
		target error
	}{
		{"unknown property", exprql.From("User").Where(exprql.P("Nope").Eq(1)), exprql.ErrUnknownProperty},
		{"undefined relation", exprql.From("User").Where(exprql.Exists("Items", nil)), exprql.ErrUndefinedForeignRelation},
		{"invalid alias", exprql.From("User").Select(exprql.Projection{Expr: exprql.P("Name"), Alias: "x y"}), exprql.ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := exprql.Compile(tt.query, schema, postgres.New())
			if !errors.Is(err, tt.target) {
				t.Fatalf("Expected %v, got %v", tt.target, err)
			}
			if result != nil {
				t.Errorf("Expected no result on failure, got %+v", result)
			}
		})
	}

	t.Run("ambiguous relation", func(t *testing.T) {
		s := newTestSchema(t)
		if err := s.Relate("User", "Approved", "Order", []string{"id"}, []string{"status"}); err != nil {
			t.Fatalf("Relate failed: %v", err)
		}
		_, err := exprql.Compile(exprql.From("User").Where(exprql.Exists("Order", nil)), s, postgres.New())
		if !errors.Is(err, exprql.ErrAmbiguousForeignRelation) {
			t.Fatalf("Expected ErrAmbiguousForeignRelation, got %v", err)
		}
		var relErr *exprql.RelationError
		if !errors.As(err, &relErr) || len(relErr.Candidates) != 2 {
			t.Errorf("Expected two candidates, got %v", err)
		}
	})

	t.Run("MustCompile panics", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for unknown property")
			}
		}()
		exprql.MustCompile(exprql.From("User").Where(exprql.P("Nope").Eq(1)), schema, postgres.New())
	})
}

func TestQueryResultArgs(t *testing.T) {
	schema := newTestSchema(t)
	query := exprql.From("User").Where(exprql.And(
		exprql.P("Age").Ge(21),
		exprql.StartsWith("Name", "a_b"),
	))

	t.Run("named", func(t *testing.T) {
		result, err := exprql.Compile(query, schema, sqlite.New())
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		assertSQL(t, `SELECT * FROM "users" WHERE ("age" >= :p0 AND "name" LIKE :p1 ESCAPE '/')`, result.SQL)
		want := []any{sql.Named("p0", 21), sql.Named("p1", "a/_b%")}
		if !reflect.DeepEqual(result.Args(), want) {
			t.Errorf("Args mismatch: %v", result.Args())
		}
	})

	t.Run("positional", func(t *testing.T) {
		result, err := exprql.Compile(query, schema, mariadb.New())
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		assertSQL(t, "SELECT * FROM `users` WHERE (`age` >= ? AND `name` LIKE ? ESCAPE '/')", result.SQL)
		want := []any{21, "a/_b%"}
		if !reflect.DeepEqual(result.Args(), want) {
			t.Errorf("Args mismatch: %v", result.Args())
		}
		if m := result.ParamMap(); m["p1"] != "a/_b%" {
			t.Errorf("ParamMap mismatch: %v", m)
		}
	})
}

func TestCompileFragments(t *testing.T) {
	schema := newTestSchema(t)

	active := func(ctx exprql.FragmentContext, _ any) (string, error) {
		col, err := ctx.Column("Active")
		if err != nil {
			return "", err
		}
		return col + " IS TRUE", nil
	}
	if _, err := exprql.RegisterDynamicSQL("compile_test_active", active); err != nil {
		t.Fatalf("RegisterDynamicSQL failed: %v", err)
	}

	result, err := exprql.Compile(exprql.From("User").Where(exprql.SQL("compile_test_active", nil)), schema, postgres.New())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	assertSQL(t, `SELECT * FROM "users" WHERE "active" IS TRUE`, result.SQL)

	t.Run("local sources win", func(t *testing.T) {
		local := exprql.NewFragments(nil)
		if _, err := local.Register("compile_test_override", func(exprql.FragmentContext, any) (string, error) {
			return "1=1", nil
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := exprql.RegisterStrictSQL("compile_test_override", func(exprql.FragmentContext, any) (string, error) {
			return "0=1", nil
		}); err != nil {
			t.Fatal(err)
		}
		result, err := exprql.Compile(exprql.SQL("compile_test_override", nil), schema, postgres.New(),
			exprql.WithObject("User"), exprql.WithFragments(local))
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		assertSQL(t, "1=1", result.SQL)
	})

	t.Run("binds arguments", func(t *testing.T) {
		local := exprql.NewFragments(nil)
		if _, err := local.Register("older_than", func(ctx exprql.FragmentContext, arg any) (string, error) {
			ph, err := ctx.Bind(arg)
			if err != nil {
				return "", err
			}
			col, err := ctx.Column("Age")
			if err != nil {
				return "", err
			}
			return col + " > " + ph, nil
		}); err != nil {
			t.Fatal(err)
		}
		result, err := exprql.Compile(exprql.SQL("older_than", 40), schema, postgres.New(),
			exprql.WithObject("User"), exprql.WithFragments(local))
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		assertSQL(t, `"age" > @p0`, result.SQL)
		if result.Params[0].Value != 40 {
			t.Errorf("Expected bound 40, got %v", result.Params[0].Value)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := exprql.Compile(exprql.SQL("compile_test_missing", nil), schema, postgres.New(), exprql.WithObject("User"))
		if !errors.Is(err, exprql.ErrUnsupportedExpression) {
			t.Errorf("Expected ErrUnsupportedExpression, got %v", err)
		}
	})
}
