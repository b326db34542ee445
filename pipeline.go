package exprql

import (
	"fmt"

	"github.com/zoobzio/exprql/internal/types"
)

// From starts a query over object. Panics on an invalid object name.
func From(object string) *FromStage {
	f, err := types.NewFrom(object)
	if err != nil {
		panic(fmt.Sprintf("invalid query root: %v", err))
	}
	return f
}

// TryFrom starts a query over object, returning an error for an invalid name.
func TryFrom(object string) (*FromStage, error) {
	return types.NewFrom(object)
}
