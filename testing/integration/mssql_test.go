package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/mssql"
)

func TestMSSQL(t *testing.T) {
	mc := getMSSQLContainer(t)
	ctx := context.Background()

	for _, stmt := range fixture(ddl{bigint: "BIGINT", text: "NVARCHAR(255)", boolean: "BIT", decimal: "DECIMAL(10,2)", yes: "1", no: "0"}) {
		_, err := mc.db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	runCases(t, mssql.New(mssql.WithStrictPaging()), func(t *testing.T, res *exprql.QueryResult) []int64 {
		rows, err := mc.db.QueryContext(ctx, res.SQL, res.Args()...)
		require.NoError(t, err, res.SQL)
		return scanIDs(t, rows)
	})
}
