package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zoobzio/exprql"
)

type paramOutput struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type resultOutput struct {
	Expr   json.RawMessage `json:"expr,omitempty"`
	SQL    string          `json:"sql"`
	Params []paramOutput   `json:"params"`
	Named  bool            `json:"named"`
}

func newResultOutput(expr []byte, res *exprql.QueryResult) resultOutput {
	out := resultOutput{
		Expr:   expr,
		SQL:    res.SQL,
		Params: make([]paramOutput, len(res.Params)),
		Named:  res.Named,
	}
	for i, p := range res.Params {
		out.Params[i] = paramOutput{Name: p.Name, Value: p.Value}
	}
	return out
}

// writeResult prints a compilation in the configured format. Text output is
// the expression JSON when present, the SQL, then one "-- name = value" line
// per parameter.
func writeResult(w io.Writer, format string, expr []byte, res *exprql.QueryResult) error {
	out := newResultOutput(expr, res)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(expr) > 0 {
		if _, err := fmt.Fprintf(w, "%s\n", expr); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, out.SQL); err != nil {
		return err
	}
	for i, p := range out.Params {
		name := p.Name
		if !out.Named {
			name = fmt.Sprintf("$%d", i+1)
		}
		if _, err := fmt.Fprintf(w, "-- %s = %#v\n", name, p.Value); err != nil {
			return err
		}
	}
	return nil
}
