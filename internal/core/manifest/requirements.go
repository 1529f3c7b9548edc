// Package manifest contains pure functions for inspecting Python dependency
// manifests (requirements.txt). Part of the functional core: no I/O.
//
// Inspection is informational only. Whether an install happens is gated on
// the manifest file's presence, never on what this package finds inside it.
package manifest

import (
	"strings"
)

// =============================================================================
// Types
// =============================================================================

// Requirement is a single dependency line from a manifest.
type Requirement struct {
	// Name is the distribution name, lowercased, without extras or
	// version specifiers.
	Name string

	// Spec is the version specifier portion, if any (e.g. ">=2.0,<3").
	Spec string

	// Raw is the original line, trimmed.
	Raw string
}

// Summary describes a parsed manifest.
type Summary struct {
	// Requirements are the dependency lines, in file order.
	Requirements []Requirement

	// OptionLines counts pip option lines (-r, --index-url, ...).
	OptionLines int
}

// Count returns the number of dependency lines.
func (s Summary) Count() int {
	return len(s.Requirements)
}

// Names returns the requirement names in file order.
func (s Summary) Names() []string {
	names := make([]string, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		names = append(names, r.Name)
	}
	return names
}

// =============================================================================
// Parsing (Pure Functions)
// =============================================================================

// specifierStarts are the characters that end a distribution name and begin
// a version specifier, extras list or environment marker.
const specifierStarts = "=<>!~ \t[;@"

// Parse inspects raw manifest content. Unparseable lines are kept as
// requirements with an empty Name rather than rejected; pip, not this
// tool, is the authority on manifest validity.
func Parse(content string) Summary {
	var s Summary

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-") {
			s.OptionLines++
			continue
		}

		// Strip trailing comments.
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		s.Requirements = append(s.Requirements, parseLine(line))
	}
	return s
}

// parseLine splits a dependency line into name and specifier.
func parseLine(line string) Requirement {
	req := Requirement{Raw: line}

	cut := len(line)
	for i, ch := range line {
		if strings.ContainsRune(specifierStarts, ch) {
			cut = i
			break
		}
	}

	req.Name = strings.ToLower(strings.TrimSpace(line[:cut]))
	req.Spec = strings.TrimSpace(line[cut:])
	return req
}
