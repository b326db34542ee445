package lambda

import (
	"database/sql/driver"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	timeType   = reflect.TypeFor[time.Time]()
	uuidType   = reflect.TypeFor[uuid.UUID]()
	valuerType = reflect.TypeFor[driver.Valuer]()
)

// field describes a struct member reached from a row parameter.
type field struct {
	column string
	typ    reflect.Type
}

// lookupField finds the exported field name of row. A nil row yields the
// name itself with no type.
func lookupField(row reflect.Type, name string) (field, bool) {
	if row == nil {
		return field{column: name}, true
	}
	row = indirect(row)
	if row.Kind() != reflect.Struct {
		return field{}, false
	}
	sf, ok := row.FieldByName(name)
	if !ok || !sf.IsExported() {
		return field{}, false
	}
	column := sf.Name
	if tag, ok := sf.Tag.Lookup("db"); ok {
		tag, _, _ = strings.Cut(tag, ",")
		if tag == "-" {
			return field{}, false
		}
		if tag != "" {
			column = tag
		}
	}
	return field{column: column, typ: sf.Type}, true
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isLeaf reports whether values of t map to a single column. Nil types are
// unknown and treated as nested structs.
func isLeaf(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return true
	}
	t = indirect(t)
	switch {
	case t == timeType, t == uuidType:
		return true
	case t.Kind() == reflect.Struct:
		return false
	}
	return true
}

// elemType returns the row type of a relation field: the element of a slice
// or array, or the pointed-to struct.
func elemType(t reflect.Type) reflect.Type {
	t = indirect(t)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		return indirect(t.Elem())
	}
	return t
}

func isString(t reflect.Type) bool {
	t = indirect(t)
	return t != nil && t.Kind() == reflect.String
}
