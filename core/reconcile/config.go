package reconcile

import "schema-manager/core/schema"

// Config holds the manager settings loaded from the "manager" section.
type Config struct {
	// MaxTableNameLength is the name length above which a warning is logged.
	MaxTableNameLength int `mapstructure:"max_table_name_length" default:"27"`
	// CaseSensitiveNames switches name identity from upper-cased to verbatim.
	CaseSensitiveNames bool `mapstructure:"case_sensitive_names" default:"false"`
	// DefaultTruncation applies when a caller does not choose (always, only_on_table_change).
	DefaultTruncation string `mapstructure:"default_truncation" default:"only_on_table_change"`
	// TransientRetries is how often a call failing with a transient fault is retried.
	TransientRetries int `mapstructure:"transient_retries" default:"1"`
}

// Names returns the name policy the config selects.
func (c Config) Names() schema.NamePolicy {
	return schema.PolicyFor(c.CaseSensitiveNames)
}

// Truncation parses DefaultTruncation.
func (c Config) Truncation() (TruncationBehavior, error) {
	return ParseTruncationBehavior(c.DefaultTruncation)
}

// Options converts the config into Manager options.
func (c Config) Options(observer Observer) Options {
	return Options{MaxTableNameLength: c.MaxTableNameLength, Observer: observer}
}
