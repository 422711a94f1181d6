// Package analyzer runs the full analysis pipeline over a program:
// declaration pass, inference pass, check pass, with a barrier
// between each. Declaration-consistency failures abort the run before
// the next pass; satisfaction failures are collected program-wide.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"methodical/internal/check"
	"methodical/internal/diag"
	"methodical/internal/infer"
	"methodical/internal/methodset"
	"methodical/internal/program"
	"methodical/internal/registry"
)

// Options controls an analysis run.
type Options struct {
	Workers       int       // parallel workers per pass; <=0 means GOMAXPROCS
	FailFast      bool      // keep only the first diagnostic (after sorting)
	KindFilter    diag.Kind // keep only diagnostics of this kind
	SubjectPrefix string    // keep only diagnostics whose subject has this prefix
}

// Relation records that a class's inferred method set satisfies a
// named interface alias.
type Relation struct {
	Class string `json:"class"`
	Alias string `json:"alias"`
}

// Result is the complete output of one run.
type Result struct {
	RunID       string                   `json:"run_id"`
	Universe    methodset.Set            `json:"-"` // full declared-name universe
	MethodSets  map[string]methodset.Set `json:"-"`
	Aliases     map[string]methodset.Set `json:"-"`
	Relations   []Relation               `json:"relations,omitempty"`
	Diagnostics diag.List                `json:"diagnostics"`
}

// OK reports whether the run produced no diagnostics.
func (r *Result) OK() bool { return len(r.Diagnostics) == 0 }

// resolver binds alias and class names for TypeExpr resolution.
// Classes whose inference failed are absent from sets, so references
// to them resolve as unknown.
type resolver struct {
	aliases *methodset.AliasTable
	sets    map[string]methodset.Set
}

func (r *resolver) ResolveAlias(name string) (methodset.Set, bool) {
	return r.aliases.Resolve(name)
}

func (r *resolver) ResolveClass(name string) (methodset.Set, bool) {
	s, ok := r.sets[name]
	return s, ok
}

// Analyze runs the pipeline. The returned error is reserved for
// cancellation and invariant violations; program-level failures are
// reported through Result.Diagnostics. A run always terminates with
// either an empty or a non-empty diagnostic list — nothing is ever
// raised at a call site during program execution.
func Analyze(ctx context.Context, prog *program.Program, opts Options, logger *slog.Logger) (*Result, error) {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	result := &Result{
		RunID:      runID,
		MethodSets: make(map[string]methodset.Set),
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Pass 1: declarations. Single-threaded — the registry and alias
	// table are being written.
	reg := registry.New()
	aliases := methodset.NewAliasTable()
	res := &resolver{aliases: aliases, sets: result.MethodSets}

	declDiags := declare(prog, reg, aliases, res)
	result.Universe = reg.Names()
	logger.Info("declaration pass complete", "methods", reg.Len(), "aliases", len(aliases.Names()), "errors", len(declDiags))
	if len(declDiags) > 0 {
		// A broken declaration table would make every downstream verdict
		// meaningless; stop here.
		result.Diagnostics = finish(declDiags, opts)
		return result, nil
	}
	reg.Freeze()

	// Pass 2: inference, one class per task. Workers only read the
	// frozen registry and write disjoint slots.
	engine := infer.NewEngine(reg)
	inferDiags := make([]diag.List, len(prog.Classes))
	inferSets := make([]methodset.Set, len(prog.Classes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range prog.Classes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inferSets[i], inferDiags[i] = engine.Infer(prog.Classes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("inference pass: %w", err)
	}

	var collected diag.List
	failed := make(map[string]bool)
	for i, class := range prog.Classes {
		if len(inferDiags[i]) > 0 {
			collected = append(collected, inferDiags[i]...)
			failed[class.Name] = true
			continue
		}
		result.MethodSets[class.Name] = inferSets[i]
	}
	logger.Info("inference pass complete", "classes", len(prog.Classes), "failed", len(failed))

	if collected.HasFatal() {
		// Undeclared method names mean the registry and the program
		// disagree; checking against a known-inconsistent registry would
		// produce noise, not diagnostics.
		result.Diagnostics = finish(collected, opts)
		return result, nil
	}

	// Pass 3: checks. Class method sets are complete (second barrier);
	// each site is judged independently.
	checker := check.NewChecker(res, failed)

	implDiags := make([]diag.List, len(prog.Classes))
	siteDiags := make([]*diag.Diagnostic, len(prog.Checks))
	verdicts := make([]check.Verdict, len(prog.Checks))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range prog.Classes {
		if failed[prog.Classes[i].Name] {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			implDiags[i] = checker.CheckImplements(prog.Classes[i], result.MethodSets[prog.Classes[i].Name])
			return nil
		})
	}
	for i := range prog.Checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i], siteDiags[i] = checker.CheckSite(prog.Checks[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check pass: %w", err)
	}

	for _, l := range implDiags {
		collected = append(collected, l...)
	}
	passed, skipped := 0, 0
	for i := range prog.Checks {
		switch verdicts[i] {
		case check.Passed:
			passed++
		case check.Skipped:
			skipped++
		case check.Failed:
			if siteDiags[i] != nil {
				collected = append(collected, *siteDiags[i])
			}
		}
	}
	logger.Info("check pass complete", "sites", len(prog.Checks), "passed", passed, "skipped", skipped)

	result.Aliases = make(map[string]methodset.Set)
	for _, name := range aliases.Names() {
		set, _ := aliases.Resolve(name)
		result.Aliases[name] = set
	}
	result.Relations = relations(result.MethodSets, aliases)
	result.Diagnostics = finish(collected, opts)
	logger.Info("analysis complete", "diagnostics", len(result.Diagnostics))
	return result, nil
}

// declare populates the registry and alias table. Aliases resolve in
// declaration order, so an alias may build on earlier ones; method
// signatures resolve their parameter and return expressions before
// being declared, making redeclaration idempotence structural rather
// than textual.
func declare(prog *program.Program, reg *registry.Registry, aliases *methodset.AliasTable, res program.Resolver) diag.List {
	var diags diag.List

	for _, a := range prog.Aliases {
		set, err := a.Expr.Resolve(res)
		if err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.UnknownMethod,
				Subject: a.Name,
				Message: fmt.Sprintf("alias %q: %v", a.Name, err),
			})
			continue
		}
		if err := aliases.Define(a.Name, set); err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.DuplicateSignature,
				Subject: a.Name,
				Message: err.Error(),
			})
		}
	}

	for _, m := range prog.Methods {
		site := diag.ParseSite(m.Site)
		sig := registry.Signature{}
		bad := false
		for _, p := range m.Params {
			set, err := p.Resolve(res)
			if err != nil {
				diags = append(diags, diag.Diagnostic{
					Kind:    diag.UnknownMethod,
					Site:    site,
					Subject: m.Name,
					Message: fmt.Sprintf("method %q: %v", m.Name, err),
				})
				bad = true
				break
			}
			sig.Params = append(sig.Params, set)
		}
		if bad {
			continue
		}
		ret, err := m.Returns.Resolve(res)
		if err != nil {
			diags = append(diags, diag.Diagnostic{
				Kind:    diag.UnknownMethod,
				Site:    site,
				Subject: m.Name,
				Message: fmt.Sprintf("method %q: %v", m.Name, err),
			})
			continue
		}
		sig.Returns = ret

		if err := reg.Declare(m.Name, sig, site); err != nil {
			if d, ok := err.(diag.Diagnostic); ok {
				diags = append(diags, d)
			} else {
				diags = append(diags, diag.Diagnostic{
					Kind:    diag.DuplicateSignature,
					Site:    site,
					Subject: m.Name,
					Message: err.Error(),
				})
			}
		}
	}

	return diags
}

// relations computes which classes satisfy which aliases, sorted for
// stable output.
func relations(sets map[string]methodset.Set, aliases *methodset.AliasTable) []Relation {
	var out []Relation
	for _, alias := range aliases.Names() {
		required, _ := aliases.Resolve(alias)
		for class, set := range sets {
			if set.Satisfies(required) {
				out = append(out, Relation{Class: class, Alias: alias})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

// finish sorts for run-to-run determinism, then applies filters.
func finish(diags diag.List, opts Options) diag.List {
	diags.Sort()
	diags = Filter(diags, opts)
	if opts.FailFast && len(diags) > 1 {
		diags = diags[:1]
	}
	return diags
}
