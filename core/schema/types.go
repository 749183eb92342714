package schema

import (
	"fmt"
	"strings"
)

// DataType is the logical, product-independent type of a column.
type DataType string

const (
	String     DataType = "STRING"
	Integer    DataType = "INTEGER"
	BigInteger DataType = "BIG_INTEGER"
	Decimal    DataType = "DECIMAL"
	Boolean    DataType = "BOOLEAN"
	Date       DataType = "DATE"
	Clob       DataType = "CLOB"
	Blob       DataType = "BLOB"
)

var dataTypes = []DataType{String, Integer, BigInteger, Decimal, Boolean, Date, Clob, Blob}

// ParseDataType converts a case-insensitive type name into a DataType.
func ParseDataType(s string) (DataType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, dt := range dataTypes {
		if string(dt) == upper {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(text []byte) error {
	dt, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// HasWidth reports whether the width of a column of this type is significant.
func (d DataType) HasWidth() bool {
	return d == String || d == Decimal
}

// Column describes a single table column.
type Column struct {
	// Name is the column name as declared.
	Name string `yaml:"name" json:"name"`
	// Type is the logical data type.
	Type DataType `yaml:"type" json:"type"`
	// Width is the length of a STRING or the precision of a DECIMAL.
	Width int `yaml:"width,omitempty" json:"width,omitempty"`
	// Scale is the number of fractional digits of a DECIMAL.
	Scale int `yaml:"scale,omitempty" json:"scale,omitempty"`
	// Nullable indicates the column accepts NULL.
	Nullable bool `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	// PrimaryKey indicates the column is part of the primary key.
	PrimaryKey bool `yaml:"primaryKey,omitempty" json:"primaryKey,omitempty"`
	// Default is the literal default value, empty for none.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
	// AutoNumber indicates the database generates values for the column.
	AutoNumber bool `yaml:"autoNumber,omitempty" json:"autoNumber,omitempty"`
}

// Index describes a secondary index on a table.
type Index struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// Table is an immutable-by-convention snapshot of a table's structure.
// Use Copy before handing a Table to code that may retain it.
type Table struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []Column `yaml:"columns" json:"columns"`
	Indexes []Index  `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// Copy returns a deep copy of the table.
func (t Table) Copy() Table {
	c := Table{Name: t.Name}
	if t.Columns != nil {
		c.Columns = make([]Column, len(t.Columns))
		copy(c.Columns, t.Columns)
	}
	if t.Indexes != nil {
		c.Indexes = make([]Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			c.Indexes[i] = Index{Name: idx.Name, Unique: idx.Unique, Columns: copyStrings(idx.Columns)}
		}
	}
	return c
}

// PrimaryKey returns the names of the primary key columns in declaration order.
func (t Table) PrimaryKey() []string {
	var pk []string
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk
}

// View is a named query.
type View struct {
	Name string `yaml:"name" json:"name"`
	// Select is the defining query text.
	Select string `yaml:"select" json:"select"`
	// DependsOn names the views this view selects from.
	DependsOn []string `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
}

// Copy returns a deep copy of the view.
func (v View) Copy() View {
	return View{Name: v.Name, Select: v.Select, DependsOn: copyStrings(v.DependsOn)}
}

// Schema is the set of tables and views a database must support.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
	Views  []View  `yaml:"views,omitempty" json:"views,omitempty"`
}

// Copy returns a deep copy of the schema.
func (s Schema) Copy() Schema {
	c := Schema{}
	for _, t := range s.Tables {
		c.Tables = append(c.Tables, t.Copy())
	}
	for _, v := range s.Views {
		c.Views = append(c.Views, v.Copy())
	}
	return c
}

// ValidationError lists the problems found in a Schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid schema: " + strings.Join(e.Problems, "; ")
}

// Validate checks names are present and unique under the given policy.
// Tables and views share one namespace.
func (s Schema) Validate(names NamePolicy) error {
	if names == nil {
		names = UpperCase
	}
	var problems []string
	seen := make(map[string]string)
	claim := func(kind, name string) {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, fmt.Sprintf("%s with empty name", kind))
			return
		}
		key := names.Normalize(name)
		if prev, ok := seen[key]; ok {
			problems = append(problems, fmt.Sprintf("%s %q clashes with %s", kind, name, prev))
			return
		}
		seen[key] = fmt.Sprintf("%s %q", kind, name)
	}

	for _, t := range s.Tables {
		claim("table", t.Name)
		if len(t.Columns) == 0 {
			problems = append(problems, fmt.Sprintf("table %q has no columns", t.Name))
		}
		for _, col := range t.Columns {
			if _, err := ParseDataType(string(col.Type)); err != nil {
				problems = append(problems, fmt.Sprintf("column %s.%s: %v", t.Name, col.Name, err))
			}
		}
	}
	for _, v := range s.Views {
		claim("view", v.Name)
		if strings.TrimSpace(v.Select) == "" {
			problems = append(problems, fmt.Sprintf("view %q has no select", v.Name))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
