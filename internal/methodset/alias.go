package methodset

import (
	"fmt"
	"sort"
)

// AliasTable maps interface alias names to the method sets they
// abbreviate. An alias is purely a label: resolving it yields exactly
// the underlying Set and has no effect on the lattice.
type AliasTable struct {
	aliases map[string]Set
}

// NewAliasTable returns an empty table.
func NewAliasTable() *AliasTable {
	return &AliasTable{aliases: make(map[string]Set)}
}

// Define binds name to set. Rebinding to a set-equal value is
// idempotent; rebinding to a different set is an error, since silent
// redefinition would change the meaning of every expression using it.
func (t *AliasTable) Define(name string, set Set) error {
	if existing, ok := t.aliases[name]; ok {
		if existing.Equal(set) {
			return nil
		}
		return fmt.Errorf("alias %q already defined as %s", name, existing)
	}
	t.aliases[name] = set
	return nil
}

// Resolve returns the set an alias abbreviates.
func (t *AliasTable) Resolve(name string) (Set, bool) {
	s, ok := t.aliases[name]
	return s, ok
}

// Names returns all defined alias names, sorted.
func (t *AliasTable) Names() []string {
	out := make([]string, 0, len(t.aliases))
	for n := range t.aliases {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
