package cli

import (
	"database/sql"
	"fmt"
	"go/token"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/zoobzio/exprql/internal/schemafile"
)

// relationDepth bounds how many relation hops a generated row type carries.
const relationDepth = 2

// rowType builds a struct type for object from f: one exported field per
// column tagged with the column name, and one slice field per relation.
func rowType(f *schemafile.File, object string, depth int) (reflect.Type, error) {
	table, obj, err := f.Table(object)
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool, len(table.Columns)+len(obj.Relations))
	fields := make([]reflect.StructField, 0, len(table.Columns)+len(obj.Relations))
	for _, c := range table.Columns {
		name := fieldName(c.Name)
		for used[name] {
			name += "_"
		}
		used[name] = true
		fields = append(fields, reflect.StructField{
			Name: name,
			Type: columnType(c),
			Tag:  reflect.StructTag(fmt.Sprintf(`db:%q`, c.Name)),
		})
	}

	if depth > 0 {
		for _, r := range obj.Relations {
			if !token.IsExported(r.Name) || used[r.Name] {
				continue
			}
			elem, err := rowType(f, r.Target, depth-1)
			if err != nil {
				return nil, fmt.Errorf("relation %s.%s: %w", object, r.Name, err)
			}
			used[r.Name] = true
			fields = append(fields, reflect.StructField{Name: r.Name, Type: reflect.SliceOf(elem)})
		}
	}
	return reflect.StructOf(fields), nil
}

// fieldName turns a column name into an exported Go identifier:
// user_id becomes UserID.
func fieldName(column string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(column, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if up := strings.ToUpper(part); initialisms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	name := b.String()
	if name == "" || !unicode.IsLetter([]rune(name)[0]) {
		name = "X" + name
	}
	return name
}

var initialisms = map[string]bool{"API": true, "ID": true, "IP": true, "SQL": true, "URL": true, "UUID": true}

var nullTypes = map[reflect.Type]reflect.Type{
	reflect.TypeFor[string]():    reflect.TypeFor[sql.NullString](),
	reflect.TypeFor[int64]():     reflect.TypeFor[sql.NullInt64](),
	reflect.TypeFor[float64]():   reflect.TypeFor[sql.NullFloat64](),
	reflect.TypeFor[bool]():      reflect.TypeFor[sql.NullBool](),
	reflect.TypeFor[time.Time](): reflect.TypeFor[sql.NullTime](),
}

// columnType maps a declared column type to a Go type. Nullable columns use
// the database/sql null wrappers, or a pointer where none exists.
func columnType(c schemafile.Column) reflect.Type {
	t := baseType(strings.ToLower(c.Type))
	if !c.Nullable {
		return t
	}
	if nt, ok := nullTypes[t]; ok {
		return nt
	}
	return reflect.PointerTo(t)
}

func baseType(typ string) reflect.Type {
	switch {
	case strings.HasPrefix(typ, "interval"):
		return reflect.TypeFor[string]()
	case strings.HasPrefix(typ, "int"), strings.HasSuffix(typ, "int"), strings.Contains(typ, "serial"):
		return reflect.TypeFor[int64]()
	case strings.HasPrefix(typ, "numeric"), strings.HasPrefix(typ, "decimal"),
		strings.HasPrefix(typ, "float"), strings.HasPrefix(typ, "double"),
		strings.HasPrefix(typ, "real"), strings.HasPrefix(typ, "money"):
		return reflect.TypeFor[float64]()
	case strings.HasPrefix(typ, "bool"), typ == "bit":
		return reflect.TypeFor[bool]()
	case strings.HasPrefix(typ, "timestamp"), strings.HasPrefix(typ, "date"), strings.HasPrefix(typ, "time"):
		return reflect.TypeFor[time.Time]()
	case typ == "uuid", typ == "uniqueidentifier":
		return reflect.TypeFor[uuid.UUID]()
	}
	return reflect.TypeFor[string]()
}
