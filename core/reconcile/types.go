package reconcile

import (
	"fmt"
	"strings"
)

// TruncationBehavior controls whether structurally unchanged tables are emptied.
type TruncationBehavior int

const (
	// TruncateOnlyOnTableChange empties an unchanged table only until this
	// context has confirmed it empty once.
	TruncateOnlyOnTableChange TruncationBehavior = iota
	// TruncateAlways empties every required table on every call.
	TruncateAlways
)

// ParseTruncationBehavior accepts "always" and "only_on_table_change" (case-insensitive).
// An empty string yields TruncateOnlyOnTableChange.
func ParseTruncationBehavior(s string) (TruncationBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "only_on_table_change":
		return TruncateOnlyOnTableChange, nil
	case "always":
		return TruncateAlways, nil
	default:
		return 0, fmt.Errorf("unknown truncation behavior %q", s)
	}
}

func (b TruncationBehavior) String() string {
	if b == TruncateAlways {
		return "always"
	}
	return "only_on_table_change"
}

// MarshalText implements encoding.TextMarshaler.
func (b TruncationBehavior) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *TruncationBehavior) UnmarshalText(text []byte) error {
	parsed, err := ParseTruncationBehavior(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Result describes what one MutateToSupportSchema call did.
type Result struct {
	// Statements is the script submitted to the executor, in order.
	// It is empty when the database already supported the schema.
	Statements []string `json:"statements"`

	// TablesDeployed lists tables that were created.
	TablesDeployed []string `json:"tables_deployed"`

	// TablesDropped lists tables that were dropped, including those redeployed
	// after a structural change and those replaced by a view.
	TablesDropped []string `json:"tables_dropped"`

	// TablesTruncated lists tables that were emptied.
	TablesTruncated []string `json:"tables_truncated"`

	// ViewsDropped lists views that were dropped, in execution order.
	ViewsDropped []string `json:"views_dropped"`

	// ViewsDeployed lists views that were created, in execution order.
	ViewsDeployed []string `json:"views_deployed"`
}

// Changed reports whether the call submitted any statement.
func (r *Result) Changed() bool {
	return r != nil && len(r.Statements) > 0
}

func newResult() *Result {
	return &Result{
		Statements:      []string{},
		TablesDeployed:  []string{},
		TablesDropped:   []string{},
		TablesTruncated: []string{},
		ViewsDropped:    []string{},
		ViewsDeployed:   []string{},
	}
}

// Options tunes a Manager.
type Options struct {
	// MaxTableNameLength is the name length above which a warning is logged.
	// Zero disables the check.
	MaxTableNameLength int

	// Observer receives metrics events. Nil discards them.
	Observer Observer
}

// DefaultMaxTableNameLength is the portable identifier limit warned about by default.
const DefaultMaxTableNameLength = 27
