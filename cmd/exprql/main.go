// Command exprql compiles expression trees and Go lambdas to SQL.
package main

import (
	"fmt"
	"os"

	"github.com/zoobzio/exprql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
