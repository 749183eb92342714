package schema

import "strings"

// NamePolicy maps an object name to its identity key.
type NamePolicy interface {
	Normalize(name string) string
}

type upperCase struct{}

func (upperCase) Normalize(name string) string { return strings.ToUpper(name) }

type caseSensitive struct{}

func (caseSensitive) Normalize(name string) string { return name }

var (
	// UpperCase treats names case-insensitively by upper-casing them.
	UpperCase NamePolicy = upperCase{}
	// CaseSensitive uses names verbatim.
	CaseSensitive NamePolicy = caseSensitive{}
)

// PolicyFor returns CaseSensitive when caseSensitive is set, UpperCase otherwise.
func PolicyFor(caseSensitive bool) NamePolicy {
	if caseSensitive {
		return CaseSensitive
	}
	return UpperCase
}
