// Package ontology loads the policy ontology: a static mapping from
// semantic column type to required validations and forbidden
// transformations. Loaded once at process start, read-only afterwards.
package ontology

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratadata/steward/errors"
)

//go:embed default.yaml
var defaultDocument []byte

// Entry is the policy for one semantic type.
type Entry struct {
	RequiredValidations []string `yaml:"required_validations"`
	ForbiddenTransforms []string `yaml:"forbidden_transformations"`
}

// Forbids reports whether the entry forbids the given transformation.
func (e Entry) Forbids(transform string) bool {
	for _, f := range e.ForbiddenTransforms {
		if f == transform {
			return true
		}
	}
	return false
}

// Registry holds the loaded ontology, keyed by lowercased semantic type.
type Registry struct {
	entries map[string]Entry
}

// Load reads the ontology from path, or the embedded default document when
// path is empty. A missing or malformed document is a fatal configuration
// error: the agent must not start without its policy baseline.
func Load(path string) (*Registry, error) {
	document := defaultDocument
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigError("ontology file %s unreadable: %v", path, err)
		}
		document = data
	}

	var raw map[string]Entry
	if err := yaml.Unmarshal(document, &raw); err != nil {
		return nil, errors.NewConfigError("malformed ontology document: %v", err)
	}
	if len(raw) == 0 {
		return nil, errors.NewConfigError("ontology document defines no semantic types")
	}

	entries := make(map[string]Entry, len(raw))
	for semanticType, entry := range raw {
		entries[strings.ToLower(semanticType)] = entry
	}
	return &Registry{entries: entries}, nil
}

// Lookup returns the policy entry for a semantic type. A miss means no
// policy applies to that type, which is not an error.
func (r *Registry) Lookup(semanticType string) (Entry, bool) {
	entry, ok := r.entries[strings.ToLower(semanticType)]
	return entry, ok
}

// Types returns the governed semantic types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
