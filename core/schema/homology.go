package schema

import (
	"fmt"
	"sort"
	"strings"
)

// DifferenceWriter receives one human-readable message per structural difference.
type DifferenceWriter func(message string)

// Homology decides whether two table descriptions are structurally equal.
type Homology struct {
	names  NamePolicy
	writer DifferenceWriter
	left   string
	right  string
}

// NewHomology creates a comparator. The labels name the two sides in difference messages.
// A nil writer discards differences; a nil policy means UpperCase.
func NewHomology(names NamePolicy, writer DifferenceWriter, left, right string) *Homology {
	if names == nil {
		names = UpperCase
	}
	if writer == nil {
		writer = func(string) {}
	}
	return &Homology{names: names, writer: writer, left: left, right: right}
}

// TablesMatch reports whether the tables have identical columns, types, nullability,
// keys and indexes. Every difference found is sent to the writer.
func (h *Homology) TablesMatch(existing, required Table) bool {
	diffs := h.Differences(existing, required)
	for _, d := range diffs {
		h.writer(d)
	}
	return len(diffs) == 0
}

// Differences returns every difference between the two tables without writing them.
func (h *Homology) Differences(a, b Table) []string {
	var diffs []string
	add := func(format string, args ...any) {
		diffs = append(diffs, fmt.Sprintf(format, args...))
	}

	if h.names.Normalize(a.Name) != h.names.Normalize(b.Name) {
		add("table name: %s=[%s] %s=[%s]", h.left, a.Name, h.right, b.Name)
	}

	if len(a.Columns) != len(b.Columns) {
		add("table [%s] column count: %s=%d %s=%d", b.Name, h.left, len(a.Columns), h.right, len(b.Columns))
	}
	n := len(a.Columns)
	if len(b.Columns) < n {
		n = len(b.Columns)
	}
	for i := 0; i < n; i++ {
		diffs = append(diffs, h.columnDifferences(b.Name, i, a.Columns[i], b.Columns[i])...)
	}
	for i := n; i < len(a.Columns); i++ {
		add("table [%s] column [%s] only in %s", b.Name, a.Columns[i].Name, h.left)
	}
	for i := n; i < len(b.Columns); i++ {
		add("table [%s] column [%s] only in %s", b.Name, b.Columns[i].Name, h.right)
	}

	diffs = append(diffs, h.indexDifferences(b.Name, a.Indexes, b.Indexes)...)
	return diffs
}

func (h *Homology) columnDifferences(table string, pos int, a, b Column) []string {
	var diffs []string
	add := func(field string, av, bv any) {
		diffs = append(diffs, fmt.Sprintf("table [%s] column %d [%s] %s: %s=[%v] %s=[%v]",
			table, pos, b.Name, field, h.left, av, h.right, bv))
	}

	if h.names.Normalize(a.Name) != h.names.Normalize(b.Name) {
		add("name", a.Name, b.Name)
	}
	if a.Type != b.Type {
		add("type", a.Type, b.Type)
	}
	if b.Type.HasWidth() && a.Width != b.Width {
		add("width", a.Width, b.Width)
	}
	if b.Type == Decimal && a.Scale != b.Scale {
		add("scale", a.Scale, b.Scale)
	}
	if a.Nullable != b.Nullable {
		add("nullable", a.Nullable, b.Nullable)
	}
	if a.PrimaryKey != b.PrimaryKey {
		add("primary key", a.PrimaryKey, b.PrimaryKey)
	}
	if a.AutoNumber != b.AutoNumber {
		add("autonumber", a.AutoNumber, b.AutoNumber)
	}
	if a.Default != b.Default {
		add("default", a.Default, b.Default)
	}
	return diffs
}

func (h *Homology) indexDifferences(table string, a, b []Index) []string {
	left := h.indexByName(a)
	right := h.indexByName(b)

	keys := make([]string, 0, len(left)+len(right))
	for k := range left {
		keys = append(keys, k)
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		ai, inLeft := left[k]
		bi, inRight := right[k]
		switch {
		case !inRight:
			diffs = append(diffs, fmt.Sprintf("table [%s] index [%s] only in %s", table, ai.Name, h.left))
		case !inLeft:
			diffs = append(diffs, fmt.Sprintf("table [%s] index [%s] only in %s", table, bi.Name, h.right))
		default:
			if ai.Unique != bi.Unique {
				diffs = append(diffs, fmt.Sprintf("table [%s] index [%s] unique: %s=[%t] %s=[%t]",
					table, bi.Name, h.left, ai.Unique, h.right, bi.Unique))
			}
			if !h.sameNames(ai.Columns, bi.Columns) {
				diffs = append(diffs, fmt.Sprintf("table [%s] index [%s] columns: %s=[%s] %s=[%s]",
					table, bi.Name, h.left, strings.Join(ai.Columns, ","), h.right, strings.Join(bi.Columns, ",")))
			}
		}
	}
	return diffs
}

func (h *Homology) indexByName(indexes []Index) map[string]Index {
	m := make(map[string]Index, len(indexes))
	for _, idx := range indexes {
		m[h.names.Normalize(idx.Name)] = idx
	}
	return m
}

func (h *Homology) sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if h.names.Normalize(a[i]) != h.names.Normalize(b[i]) {
			return false
		}
	}
	return true
}
