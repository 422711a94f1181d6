// Package infer computes the method-set type of a class: exactly the
// registry-declared names the class provides a body for, directly or
// through imported qualified implementations.
package infer

import (
	"fmt"
	"strings"

	"methodical/internal/diag"
	"methodical/internal/methodset"
	"methodical/internal/program"
	"methodical/internal/registry"
)

// Engine infers per-class method sets against a frozen registry.
// Stateless apart from the registry reference, so one Engine may be
// shared by parallel workers.
type Engine struct {
	reg *registry.Registry
}

// NewEngine returns an engine reading from reg. The registry must be
// frozen before Infer is called: inference needs the complete
// declared-name universe to reject invented methods.
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{reg: reg}
}

// Infer computes the class's method-set type. The returned set is
// only valid when the diagnostic list is empty; any diagnostic means
// the class's type could not be established.
//
// Undeclared method names are fatal (the registry is inconsistent
// with the program); ambiguous import references spoil only this
// class.
func (e *Engine) Infer(class program.ClassDef) (methodset.Set, diag.List) {
	if !e.reg.Frozen() {
		// Caller bug, not a program diagnostic: the declaration barrier
		// has not passed yet.
		panic("infer: registry not frozen")
	}

	site := diag.ParseSite(class.Site)
	var diags diag.List
	var names []string

	// Direct bodies. A class must not implement a name absent from the
	// registry — that would silently widen its type.
	for _, name := range class.Defines {
		if !e.reg.Has(name) {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.UndeclaredMethod,
				Site:    site,
				Subject: class.Name,
				Method:  name,
				Message: fmt.Sprintf("class %q implements undeclared method %q", class.Name, name),
			})
			continue
		}
		names = append(names, name)
	}

	// Imported implementations, indexed by unqualified name.
	byBase := make(map[string][]string, len(class.Imports))
	for _, imp := range class.Imports {
		base := imp[strings.LastIndexByte(imp, '.')+1:]
		byBase[base] = append(byBase[base], imp)
	}

	direct := methodset.New(class.Defines...)

	for _, ref := range class.Uses {
		name, d := e.resolveUse(class, ref, direct, byBase, site)
		if d != nil {
			diags = append(diags, *d)
			continue
		}
		names = append(names, name)
	}

	if len(diags) > 0 {
		return methodset.Set{}, diags
	}
	return methodset.New(names...), nil
}

// resolveUse maps one use reference to a declared method name.
// Resolution prefers unambiguous unqualified lookup: a direct body
// shadows imports, a single matching import resolves, and two or more
// matching imports make an unqualified reference ambiguous.
func (e *Engine) resolveUse(class program.ClassDef, ref string, direct methodset.Set, byBase map[string][]string, site diag.Site) (string, *diag.Diagnostic) {
	name := ref
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		// Qualified reference: must match a listed import exactly.
		found := false
		for _, imp := range class.Imports {
			if imp == ref {
				found = true
				break
			}
		}
		if !found {
			return "", &diag.Diagnostic{
				Kind:    diag.UnknownMethod,
				Site:    site,
				Subject: class.Name,
				Method:  ref,
				Message: fmt.Sprintf("class %q uses %q, which is not among its imports", class.Name, ref),
			}
		}
		name = ref[i+1:]
	} else if !direct.Has(name) {
		candidates := byBase[name]
		switch len(candidates) {
		case 0:
			return "", &diag.Diagnostic{
				Kind:    diag.UnknownMethod,
				Site:    site,
				Subject: class.Name,
				Method:  name,
				Message: fmt.Sprintf("class %q uses %q, but no import provides it", class.Name, name),
			}
		case 1:
			// Unambiguous: resolve to the single import.
		default:
			return "", &diag.Diagnostic{
				Kind:    diag.AmbiguousMethodReference,
				Site:    site,
				Subject: class.Name,
				Method:  name,
				Message: fmt.Sprintf("class %q: reference %q is ambiguous between %s", class.Name, name, strings.Join(candidates, " and ")),
			}
		}
	}

	if !e.reg.Has(name) {
		return "", &diag.Diagnostic{
			Kind:    diag.UndeclaredMethod,
			Site:    site,
			Subject: class.Name,
			Method:  name,
			Message: fmt.Sprintf("class %q implements undeclared method %q", class.Name, name),
		}
	}
	return name, nil
}
