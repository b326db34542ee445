package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/mariadb"
)

func TestMariaDB(t *testing.T) {
	mc := getMariaDBContainer(t)
	ctx := context.Background()

	for _, stmt := range fixture(ddl{bigint: "BIGINT", text: "VARCHAR(255)", boolean: "BOOLEAN", decimal: "DECIMAL(10,2)", yes: "TRUE", no: "FALSE"}) {
		_, err := mc.db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	runCases(t, mariadb.New(), func(t *testing.T, res *exprql.QueryResult) []int64 {
		rows, err := mc.db.QueryContext(ctx, res.SQL, res.Args()...)
		require.NoError(t, err, res.SQL)
		return scanIDs(t, rows)
	})
}
