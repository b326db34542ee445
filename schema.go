package exprql

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/exprql/internal/types"
)

// Schema resolves logical objects and properties against a DBML project.
// Objects are bound to tables explicitly; properties match columns exactly,
// case-insensitively, or by their snake_case spelling.
type Schema struct {
	project *dbml.Project

	mu        sync.RWMutex
	tables    map[string]*dbml.Table
	columns   map[string]map[string]*column // table -> column -> info
	objects   map[string]string             // object -> table
	relations map[string][]relation         // object -> relations
}

type column struct {
	name     string
	typ      string
	nullable bool
}

type relation struct {
	name   string
	target string
	local  []string
	remote []string
}

// NewSchema indexes the tables and columns of project.
func NewSchema(project *dbml.Project) (*Schema, error) {
	if project == nil {
		return nil, fmt.Errorf("project cannot be nil")
	}

	s := &Schema{
		project:   project,
		tables:    make(map[string]*dbml.Table),
		columns:   make(map[string]map[string]*column),
		objects:   make(map[string]string),
		relations: make(map[string][]relation),
	}

	for _, table := range project.Tables {
		s.tables[table.Name] = table
		s.columns[table.Name] = make(map[string]*column)
		for _, col := range table.Columns {
			s.columns[table.Name][col.Name] = &column{name: col.Name}
		}
	}

	return s, nil
}

// Project returns the underlying DBML project.
func (s *Schema) Project() *dbml.Project { return s.project }

// Bind maps object onto table.
func (s *Schema) Bind(object, table string) error {
	if err := types.CheckIdentifier("object", object); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("table '%s' not found in schema", table)
	}
	s.objects[object] = table
	return nil
}

// MustBind is Bind, panicking on error.
func (s *Schema) MustBind(object, table string) *Schema {
	if err := s.Bind(object, table); err != nil {
		panic(err)
	}
	return s
}

// Describe records the type and nullability of a column.
func (s *Schema) Describe(table, name, typ string, nullable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.columns[table][name]
	if !ok {
		return fmt.Errorf("column '%s.%s' not found in schema", table, name)
	}
	col.typ = typ
	col.nullable = nullable
	return nil
}

// Relate declares a named relation from object to target, joining the local
// columns of object to the columns of target by position.
func (s *Schema) Relate(object, name, target string, local, remote []string) error {
	if err := types.CheckIdentifier("relation", name); err != nil {
		return err
	}
	if len(local) == 0 || len(local) != len(remote) {
		return fmt.Errorf("relation %s.%s: key columns must pair up", object, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.relations[object] {
		if r.name == name {
			return fmt.Errorf("relation %s.%s: %w", object, name, types.ErrDuplicateRegistration)
		}
	}
	s.relations[object] = append(s.relations[object], relation{
		name:   name,
		target: target,
		local:  append([]string(nil), local...),
		remote: append([]string(nil), remote...),
	})
	return nil
}

// Objects lists the bound object names in sorted order.
func (s *Schema) Objects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.objects))
	for o := range s.objects {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// ResolveTable returns the table bound to object.
func (s *Schema) ResolveTable(object string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table(object)
}

func (s *Schema) table(object string) (string, error) {
	if t, ok := s.objects[object]; ok {
		return t, nil
	}
	return "", fmt.Errorf("object '%s' is not bound to a table", object)
}

// ResolveColumn finds the column of property on object. Member paths such as
// Address.City match address_city.
func (s *Schema) ResolveColumn(object, property string) (Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, err := s.table(object)
	if err != nil {
		return Column{}, err
	}
	cols := s.columns[table]

	if col, ok := cols[property]; ok {
		return col.export(), nil
	}
	var found *column
	for _, c := range s.tables[table].Columns {
		if strings.EqualFold(c.Name, property) {
			found = cols[c.Name]
			break
		}
	}
	if found == nil {
		if col, ok := cols[SnakeCase(property)]; ok {
			found = col
		}
	}
	if found == nil {
		return Column{}, &PropertyError{Object: object, Property: property}
	}
	return found.export(), nil
}

func (c *column) export() Column {
	return Column{Name: c.name, Type: c.typ, Nullable: c.nullable}
}

// ResolveForeign finds a relation of object by relation name or by target
// object name.
func (s *Schema) ResolveForeign(object, name string) (ForeignRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []relation
	for _, r := range s.relations[object] {
		if r.name == name {
			matches = []relation{r}
			break
		}
		if r.target == name {
			matches = append(matches, r)
		}
	}
	if len(matches) != 1 {
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.name
		}
		return ForeignRelation{}, &RelationError{Object: object, Relation: name, Candidates: candidates}
	}

	r := matches[0]
	table, err := s.table(r.target)
	if err != nil {
		return ForeignRelation{}, err
	}
	return ForeignRelation{
		Object:      r.target,
		Table:       table,
		LocalKeys:   r.local,
		ForeignKeys: r.remote,
	}, nil
}

// SnakeCase converts a property path to its column spelling:
// Address.City becomes address_city and UserID becomes user_id.
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '.':
			b.WriteByte('_')
			continue
		case unicode.IsUpper(r):
			if i > 0 && runes[i-1] != '.' && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
