package mariadb_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/mariadb"
	exprqltest "github.com/zoobzio/exprql/testing"
)

func TestGolden(t *testing.T) {
	schema := exprqltest.TestSchema(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tc := range exprqltest.GoldenCases() {
		t.Run(tc.Name, func(t *testing.T) {
			var opts []exprql.Option
			if tc.Object != "" {
				opts = append(opts, exprql.WithObject(tc.Object))
			}
			result, err := exprql.Compile(tc.Expr, schema, mariadb.New(), opts...)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			g.Assert(t, tc.Name, exprqltest.FormatResult(result))
		})
	}
}

func TestPaging(t *testing.T) {
	r := mariadb.New()
	tests := []struct {
		skip, take int64
		want       string
	}{
		{0, 10, "LIMIT 10"},
		{5, exprql.NoLimit, "LIMIT 18446744073709551615 OFFSET 5"},
		{5, 10, "LIMIT 10 OFFSET 5"},
	}
	for _, tt := range tests {
		got, err := r.Paging(tt.skip, tt.take, false)
		if err != nil {
			t.Fatalf("Paging(%d, %d) error = %v", tt.skip, tt.take, err)
		}
		if got != tt.want {
			t.Errorf("Paging(%d, %d) = %q, want %q", tt.skip, tt.take, got, tt.want)
		}
	}
}

func TestPositionalArgs(t *testing.T) {
	schema := exprqltest.TestSchema(t)
	result, err := exprql.Compile(exprql.From("User").Where(exprql.And(
		exprql.P("Age").Between(18, 65),
		exprql.P("Username").In("ann", "ben"),
	)), schema, mariadb.New())
	exprqltest.AssertNoError(t, err)
	exprqltest.AssertSQL(t, "SELECT * FROM `users` WHERE (`age` >= ? AND `age` <= ? AND `username` IN (?, ?))", result.SQL)
	if result.Named {
		t.Error("mariadb binds positionally")
	}
	args := result.Args()
	if len(args) != 4 || args[0] != 18 || args[3] != "ben" {
		t.Errorf("Args = %v", args)
	}
}

func TestConcat(t *testing.T) {
	r := mariadb.New()
	if got := r.Concat("a", "b"); got != "CONCAT(a, b)" {
		t.Errorf("Concat = %s", got)
	}
	if got := r.QuoteIdentifier("we`ird"); got != "`we``ird`" {
		t.Errorf("QuoteIdentifier = %s", got)
	}
}

func TestConvertValue(t *testing.T) {
	id := uuid.New()
	v, err := mariadb.New().ConvertValue(id)
	if err != nil {
		t.Fatal(err)
	}
	if v != id.String() {
		t.Errorf("ConvertValue(uuid) = %v", v)
	}
}
