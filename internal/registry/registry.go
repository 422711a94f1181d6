// Package registry holds the process-wide method declaration table
// for one analysis run. Population happens during the declaration
// pass; Freeze is the barrier after which the table is read-only and
// safe for unlimited concurrent readers.
package registry

import (
	"fmt"

	"methodical/internal/diag"
	"methodical/internal/methodset"
)

// Signature is a declared method signature with parameter and return
// types already resolved to concrete method sets. Immutable once
// declared.
type Signature struct {
	Params  []methodset.Set
	Returns methodset.Set
}

// Equal compares resolved signatures structurally. Idempotent
// redeclaration is judged on this, not on alias spellings.
func (s Signature) Equal(other Signature) bool {
	if len(s.Params) != len(other.Params) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return s.Returns.Equal(other.Returns)
}

type entry struct {
	sig  Signature
	site diag.Site
}

// Registry is the append-only declaration table. Not safe for
// concurrent writes; the declaration pass is single-threaded and
// Freeze publishes the table to the parallel passes.
type Registry struct {
	entries map[string]entry
	order   []string
	frozen  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Declare records a method signature. Redeclaring with an identical
// resolved signature is idempotent; a conflicting redeclaration is a
// DuplicateSignature diagnostic. Declarations are append-only — there
// is no removal for the lifetime of a run.
func (r *Registry) Declare(name string, sig Signature, site diag.Site) error {
	if r.frozen {
		return fmt.Errorf("registry is frozen; cannot declare %q", name)
	}
	if existing, ok := r.entries[name]; ok {
		if existing.sig.Equal(sig) {
			return nil
		}
		return diag.Diagnostic{
			Kind:    diag.DuplicateSignature,
			Site:    site,
			Subject: name,
			Message: fmt.Sprintf("method %q already declared with a different signature at %s", name, existing.site),
		}
	}
	r.entries[name] = entry{sig: sig, site: site}
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the signature declared for name.
func (r *Registry) Lookup(name string) (Signature, error) {
	e, ok := r.entries[name]
	if !ok {
		return Signature{}, diag.Diagnostic{
			Kind:    diag.UnknownMethod,
			Subject: name,
			Message: fmt.Sprintf("method %q is not declared", name),
		}
	}
	return e.sig, nil
}

// Has reports whether name is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Site returns the declaration site for name, if declared.
func (r *Registry) Site(name string) (diag.Site, bool) {
	e, ok := r.entries[name]
	return e.site, ok
}

// Freeze marks the end of the declaration pass. After Freeze the
// registry is immutable and may be read concurrently.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether the declaration barrier has passed.
func (r *Registry) Frozen() bool { return r.frozen }

// Names returns the full declared-name universe as a method set.
func (r *Registry) Names() methodset.Set {
	return methodset.New(r.order...)
}

// Len returns the number of declared methods.
func (r *Registry) Len() int { return len(r.entries) }
