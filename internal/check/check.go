// Package check implements the compatibility checker: every call
// argument, return statement, and typed assignment is verified by set
// inclusion against its required method-set type. A failed check is a
// permanent diagnostic, never a run-time condition.
package check

import (
	"fmt"

	"methodical/internal/diag"
	"methodical/internal/methodset"
	"methodical/internal/program"
)

// Verdict is the terminal state of a single check. Each check moves
// from pending to exactly one verdict in one step; there are no
// retries.
type Verdict int

const (
	Passed Verdict = iota
	Failed
	// Skipped means the check's subject class failed inference; the
	// site cannot be judged against an unknown type and the failure is
	// already reported by the inference pass.
	Skipped
)

func (v Verdict) String() string {
	switch v {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Checker judges check sites against resolved method-set types. It
// only reads; a single Checker is shared by parallel workers.
type Checker struct {
	res    program.Resolver
	failed map[string]bool // classes whose inference failed
}

// NewChecker builds a checker over res. failed names the classes with
// no valid method set; sites mentioning them are skipped.
func NewChecker(res program.Resolver, failed map[string]bool) *Checker {
	return &Checker{res: res, failed: failed}
}

// CheckSite judges one site. A Failed verdict carries the
// type-mismatch diagnostic with the exact missing-name set; a
// resolution failure (unknown alias or class in either expression)
// carries an unknown-method diagnostic.
func (c *Checker) CheckSite(ch program.Check) (Verdict, *diag.Diagnostic) {
	if c.mentionsFailedClass(ch.Given) || c.mentionsFailedClass(ch.Want) {
		return Skipped, nil
	}

	site := diag.ParseSite(ch.Site)

	given, err := ch.Given.Resolve(c.res)
	if err != nil {
		return Failed, &diag.Diagnostic{
			Kind:    diag.UnknownMethod,
			Site:    site,
			Message: err.Error(),
		}
	}
	want, err := ch.Want.Resolve(c.res)
	if err != nil {
		return Failed, &diag.Diagnostic{
			Kind:    diag.UnknownMethod,
			Site:    site,
			Message: err.Error(),
		}
	}

	if given.Satisfies(want) {
		return Passed, nil
	}

	missing := want.Missing(given)
	return Failed, &diag.Diagnostic{
		Kind:    diag.TypeMismatch,
		Site:    site,
		Subject: ch.Given.Class,
		Missing: missing.Names(),
		Message: fmt.Sprintf("%s: value of type %s does not satisfy %s", describe(ch.Kind), given, want),
	}
}

// CheckImplements verifies a class's explicit declared-interface list
// against its inferred method set: every required name must be
// inferred, else IncompleteInterface naming the missing set. Purely a
// compile-time check; it collects one diagnostic per unmet interface
// and never aborts.
func (c *Checker) CheckImplements(class program.ClassDef, inferred methodset.Set) diag.List {
	site := diag.ParseSite(class.Site)
	var diags diag.List
	for _, expr := range class.Implements {
		required, err := expr.Resolve(c.res)
		if err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.UnknownMethod,
				Site:    site,
				Subject: class.Name,
				Message: err.Error(),
			})
			continue
		}
		if inferred.Satisfies(required) {
			continue
		}
		missing := required.Missing(inferred)
		label := expr.Alias
		if label == "" {
			label = required.String()
		}
		diags = append(diags, diag.Diagnostic{
			Kind:    diag.IncompleteInterface,
			Site:    site,
			Subject: class.Name,
			Missing: missing.Names(),
			Message: fmt.Sprintf("class %q declares %s but does not implement it", class.Name, label),
		})
	}
	return diags
}

// mentionsFailedClass walks the expression for references to classes
// whose inference failed.
func (c *Checker) mentionsFailedClass(expr program.TypeExpr) bool {
	if expr.Class != "" && c.failed[expr.Class] {
		return true
	}
	for _, sub := range expr.AllOf {
		if c.mentionsFailedClass(sub) {
			return true
		}
	}
	for _, sub := range expr.AnyOf {
		if c.mentionsFailedClass(sub) {
			return true
		}
	}
	return false
}

func describe(kind program.CheckKind) string {
	switch kind {
	case program.CheckCall:
		return "call argument"
	case program.CheckReturn:
		return "return statement"
	case program.CheckAssign:
		return "assignment"
	}
	return string(kind)
}
