// Package schemafile reads YAML schema documents into an exprql.Schema.
//
//	project: shop
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: bigint}
//	      - {name: email, type: varchar, nullable: true}
//	objects:
//	  - name: User
//	    table: users
//	    relations:
//	      - {name: Orders, target: Order, local: [id], remote: [user_id]}
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/exprql"
	"github.com/zoobzio/exprql/internal/types"
	"gopkg.in/yaml.v3"
)

// File is a parsed schema document.
type File struct {
	Project string   `yaml:"project"`
	Tables  []Table  `yaml:"tables"`
	Objects []Object `yaml:"objects"`
}

// Table is a table and its columns in declaration order.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Column describes one table column.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

// Object binds a logical object to a table.
type Object struct {
	Name      string     `yaml:"name"`
	Table     string     `yaml:"table"`
	Relations []Relation `yaml:"relations"`
}

// Relation declares a named relation to another object.
type Relation struct {
	Name   string   `yaml:"name"`
	Target string   `yaml:"target"`
	Local  []string `yaml:"local"`
	Remote []string `yaml:"remote"`
}

// Load reads and parses the schema file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	var errs []error
	tables := make(map[string]bool, len(f.Tables))
	for _, t := range f.Tables {
		if t.Name == "" {
			errs = append(errs, errors.New("table without a name"))
			continue
		}
		if tables[t.Name] {
			errs = append(errs, fmt.Errorf("table %s declared twice", t.Name))
		}
		tables[t.Name] = true
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if c.Name == "" {
				errs = append(errs, fmt.Errorf("table %s: column without a name", t.Name))
				continue
			}
			if seen[c.Name] {
				errs = append(errs, fmt.Errorf("table %s: column %s declared twice", t.Name, c.Name))
			}
			seen[c.Name] = true
		}
	}

	objects := make(map[string]bool, len(f.Objects))
	for _, o := range f.Objects {
		if err := types.CheckIdentifier("object", o.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		if objects[o.Name] {
			errs = append(errs, fmt.Errorf("object %s declared twice", o.Name))
		}
		objects[o.Name] = true
		if !tables[o.Table] {
			errs = append(errs, fmt.Errorf("object %s: unknown table %q", o.Name, o.Table))
		}
	}
	for _, o := range f.Objects {
		for _, r := range o.Relations {
			if !objects[r.Target] {
				errs = append(errs, fmt.Errorf("relation %s.%s: unknown target %q", o.Name, r.Name, r.Target))
			}
		}
	}
	return errors.Join(errs...)
}

// DBML builds the dbml project described by f.
func (f *File) DBML() *dbml.Project {
	name := f.Project
	if name == "" {
		name = "exprql"
	}
	project := dbml.NewProject(name)
	for _, t := range f.Tables {
		table := dbml.NewTable(t.Name)
		for _, c := range t.Columns {
			table.AddColumn(dbml.NewColumn(c.Name, c.Type))
		}
		project.AddTable(table)
	}
	return project
}

// Schema builds a resolver with every table, binding and relation of f.
func (f *File) Schema() (*exprql.Schema, error) {
	s, err := exprql.NewSchema(f.DBML())
	if err != nil {
		return nil, err
	}
	for _, t := range f.Tables {
		for _, c := range t.Columns {
			if err := s.Describe(t.Name, c.Name, c.Type, c.Nullable); err != nil {
				return nil, err
			}
		}
	}
	for _, o := range f.Objects {
		if err := s.Bind(o.Name, o.Table); err != nil {
			return nil, err
		}
	}
	for _, o := range f.Objects {
		for _, r := range o.Relations {
			if err := s.Relate(o.Name, r.Name, r.Target, r.Local, r.Remote); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Table returns the table declaration bound to object.
func (f *File) Table(object string) (*Table, *Object, error) {
	for i := range f.Objects {
		o := &f.Objects[i]
		if o.Name != object {
			continue
		}
		for j := range f.Tables {
			if f.Tables[j].Name == o.Table {
				return &f.Tables[j], o, nil
			}
		}
		return nil, nil, fmt.Errorf("object %s: unknown table %q", object, o.Table)
	}
	return nil, nil, fmt.Errorf("object %q is not declared", object)
}
