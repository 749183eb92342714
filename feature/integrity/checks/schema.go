package checks

import (
	"context"
	"fmt"
	"sort"

	"schema-manager/core/reconcile"
	"schema-manager/core/schema"
)

// Table statuses reported by CheckSchema.
const (
	StatusOK       = "ok"
	StatusMissing  = "missing"
	StatusMismatch = "mismatch"
)

// SchemaReport strictly types the result of a schema integrity check.
type SchemaReport struct {
	Database     string                 `json:"database"`
	Matched      bool                   `json:"matched"`
	Tables       map[string]TableReport `json:"tables"`
	MissingViews []string               `json:"missing_views"`
	ExtraTables  []string               `json:"extra_tables"`
	ExtraViews   []string               `json:"extra_views"`
}

// TableReport describes one required table.
type TableReport struct {
	Status      string   `json:"status"`
	Differences []string `json:"differences"`
}

// CheckSchema compares what the handle sees with the target schema. Nothing is
// changed in the database. Views are compared by name only because catalogs
// rewrite view definitions.
func CheckSchema(ctx context.Context, h reconcile.Handle, names schema.NamePolicy, target schema.Schema) (*SchemaReport, error) {
	if h == nil {
		return nil, fmt.Errorf("introspection handle is nil")
	}
	if names == nil {
		names = schema.UpperCase
	}

	tables, err := h.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	views, err := h.Views(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read views: %w", err)
	}

	report := &SchemaReport{
		Tables:       make(map[string]TableReport, len(target.Tables)),
		Matched:      true,
		MissingViews: []string{},
		ExtraTables:  []string{},
		ExtraViews:   []string{},
	}

	existing := make(map[string]schema.Table, len(tables))
	for _, t := range tables {
		existing[names.Normalize(t.Name)] = t
	}
	homology := schema.NewHomology(names, nil, "database", "schema")

	required := make(map[string]bool, len(target.Tables))
	for _, want := range target.Tables {
		key := names.Normalize(want.Name)
		required[key] = true

		got, ok := existing[key]
		if !ok {
			report.Tables[want.Name] = TableReport{Status: StatusMissing, Differences: []string{}}
			report.Matched = false
			continue
		}
		diffs := homology.Differences(got, want)
		if len(diffs) == 0 {
			report.Tables[want.Name] = TableReport{Status: StatusOK, Differences: []string{}}
			continue
		}
		report.Tables[want.Name] = TableReport{Status: StatusMismatch, Differences: diffs}
		report.Matched = false
	}
	for _, t := range tables {
		if !required[names.Normalize(t.Name)] {
			report.ExtraTables = append(report.ExtraTables, t.Name)
		}
	}

	present := make(map[string]bool, len(views))
	for _, v := range views {
		present[names.Normalize(v.Name)] = true
	}
	wanted := make(map[string]bool, len(target.Views))
	for _, v := range target.Views {
		key := names.Normalize(v.Name)
		wanted[key] = true
		if !present[key] {
			report.MissingViews = append(report.MissingViews, v.Name)
			report.Matched = false
		}
	}
	for _, v := range views {
		if !wanted[names.Normalize(v.Name)] {
			report.ExtraViews = append(report.ExtraViews, v.Name)
		}
	}

	sort.Strings(report.ExtraTables)
	sort.Strings(report.ExtraViews)
	return report, nil
}
