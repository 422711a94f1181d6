package analyzer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"methodical/internal/diag"
	"methodical/internal/program"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// streamProgram builds the isOpen/close/open registry with the
// SingleUseStream and MultiUseStream classes from the stream example.
func streamProgram() *program.Program {
	return &program.Program{
		Methods: []program.MethodDecl{
			{Name: "isOpen"}, {Name: "close"}, {Name: "open"},
		},
		Aliases: []program.AliasDef{
			{Name: "Closeable", Expr: program.TypeExpr{Methods: []string{"close", "isOpen"}}},
		},
		Classes: []program.ClassDef{
			{Name: "SingleUseStream", Defines: []string{"isOpen", "close"}},
			{Name: "MultiUseStream", Defines: []string{"isOpen", "close", "open"}},
		},
	}
}

func analyze(t *testing.T, prog *program.Program, opts Options) *Result {
	t.Helper()
	result, err := Analyze(context.Background(), prog, opts, testLogger())
	require.NoError(t, err)
	return result
}

func TestAnalyze_CleanProgram(t *testing.T) {
	result := analyze(t, streamProgram(), Options{})
	assert.True(t, result.OK())
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, []string{"close", "isOpen"}, result.MethodSets["SingleUseStream"].Names())
	assert.Equal(t, []string{"close", "isOpen", "open"}, result.MethodSets["MultiUseStream"].Names())

	// Both classes satisfy Closeable.
	assert.Equal(t, []Relation{
		{Class: "MultiUseStream", Alias: "Closeable"},
		{Class: "SingleUseStream", Alias: "Closeable"},
	}, result.Relations)
}

func TestAnalyze_CallRequiringMissingMethod(t *testing.T) {
	// A site requiring {isOpen, close, open} against SingleUseStream's
	// inferred {isOpen, close} fails with missing {open}.
	prog := streamProgram()
	prog.Checks = []program.Check{{
		Kind:  program.CheckCall,
		Site:  "main.mt:12:7",
		Given: program.TypeExpr{Class: "SingleUseStream"},
		Want:  program.TypeExpr{Methods: []string{"isOpen", "close", "open"}},
	}}

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 1)
	d := result.Diagnostics[0]
	assert.Equal(t, diag.TypeMismatch, d.Kind)
	assert.Equal(t, []string{"open"}, d.Missing)
	assert.Equal(t, "main.mt", d.Site.File)
}

func TestAnalyze_SupersetAndExactPasses(t *testing.T) {
	prog := streamProgram()
	prog.Checks = []program.Check{
		{
			Kind:  program.CheckCall,
			Site:  "main.mt:20:1",
			Given: program.TypeExpr{Class: "MultiUseStream"},
			Want:  program.TypeExpr{Methods: []string{"isOpen", "close"}},
		},
		{
			Kind:  program.CheckAssign,
			Site:  "main.mt:41:1",
			Given: program.TypeExpr{Class: "SingleUseStream"},
			Want:  program.TypeExpr{Alias: "Closeable"},
		},
	}

	result := analyze(t, prog, Options{})
	assert.True(t, result.OK(), "superset and exact-set checks must pass: %v", result.Diagnostics)
}

func TestAnalyze_UndeclaredMethodAbortsBeforeChecking(t *testing.T) {
	prog := streamProgram()
	prog.Classes = append(prog.Classes, program.ClassDef{
		Name:    "Bird",
		Defines: []string{"fly"},
	})
	// This check would fail, but the run aborts before the check pass.
	prog.Checks = []program.Check{{
		Kind:  program.CheckCall,
		Site:  "main.mt:50:1",
		Given: program.TypeExpr{Class: "SingleUseStream"},
		Want:  program.TypeExpr{Methods: []string{"open"}},
	}}

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, diag.UndeclaredMethod, result.Diagnostics[0].Kind)
	assert.Empty(t, result.Relations, "aborted runs compute no relations")
}

func TestAnalyze_IncompleteInterface(t *testing.T) {
	prog := streamProgram()
	prog.Aliases = append(prog.Aliases, program.AliasDef{
		Name: "Openable",
		Expr: program.TypeExpr{Methods: []string{"isOpen", "close", "open"}},
	})
	prog.Classes[0].Implements = []program.TypeExpr{{Alias: "Openable"}}

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 1)
	d := result.Diagnostics[0]
	assert.Equal(t, diag.IncompleteInterface, d.Kind)
	assert.Equal(t, "SingleUseStream", d.Subject)
	assert.Equal(t, []string{"open"}, d.Missing)
}

func TestAnalyze_DuplicateSignatureAbortsRun(t *testing.T) {
	prog := streamProgram()
	prog.Methods = append(prog.Methods, program.MethodDecl{
		Name:   "close",
		Params: []program.TypeExpr{{Methods: []string{"isOpen"}}},
		Site:   "lib.mt:3:1",
	})

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, diag.DuplicateSignature, result.Diagnostics[0].Kind)
	assert.Empty(t, result.MethodSets, "inference must not run after a declaration failure")
}

func TestAnalyze_IdenticalRedeclarationIsIdempotent(t *testing.T) {
	prog := streamProgram()
	prog.Methods = append(prog.Methods, program.MethodDecl{Name: "close"})

	result := analyze(t, prog, Options{})
	assert.True(t, result.OK())
}

func TestAnalyze_AmbiguityAbortsOnlyAffectedClass(t *testing.T) {
	prog := streamProgram()
	prog.Methods = append(prog.Methods, program.MethodDecl{Name: "write"})
	prog.Classes = append(prog.Classes, program.ClassDef{
		Name:    "TeeStream",
		Imports: []string{"bufio.write", "netio.write"},
		Uses:    []string{"write"},
	})
	prog.Checks = []program.Check{
		{
			// Mentions the failed class: skipped, no extra diagnostic.
			Kind:  program.CheckCall,
			Site:  "main.mt:5:1",
			Given: program.TypeExpr{Class: "TeeStream"},
			Want:  program.TypeExpr{Methods: []string{"write"}},
		},
		{
			// Independent site still gets checked and fails.
			Kind:  program.CheckCall,
			Site:  "main.mt:9:1",
			Given: program.TypeExpr{Class: "SingleUseStream"},
			Want:  program.TypeExpr{Methods: []string{"open"}},
		},
	}

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 2)

	// Sorted by site: the ambiguity carries TeeStream's (empty) class
	// site and sorts before the main.mt:9 mismatch.
	assert.Equal(t, diag.AmbiguousMethodReference, result.Diagnostics[0].Kind)
	assert.Equal(t, "TeeStream", result.Diagnostics[0].Subject)
	assert.Equal(t, diag.TypeMismatch, result.Diagnostics[1].Kind)

	// Healthy classes still inferred.
	assert.Contains(t, result.MethodSets, "SingleUseStream")
	assert.NotContains(t, result.MethodSets, "TeeStream")
}

func TestAnalyze_UnknownAliasInSignatureAborts(t *testing.T) {
	prog := streamProgram()
	prog.Methods[0].Params = []program.TypeExpr{{Alias: "Ghost"}}

	result := analyze(t, prog, Options{})
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, diag.UnknownMethod, result.Diagnostics[0].Kind)
	assert.Empty(t, result.MethodSets)
}

func TestAnalyze_AliasBuildsOnEarlierAlias(t *testing.T) {
	prog := streamProgram()
	prog.Aliases = append(prog.Aliases, program.AliasDef{
		Name: "Openable",
		Expr: program.TypeExpr{AllOf: []program.TypeExpr{
			{Alias: "Closeable"},
			{Methods: []string{"open"}},
		}},
	})
	prog.Checks = []program.Check{{
		Kind:  program.CheckCall,
		Site:  "main.mt:12:7",
		Given: program.TypeExpr{Class: "SingleUseStream"},
		Want:  program.TypeExpr{Alias: "Openable"},
	}}

	result := analyze(t, prog, Options{})
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, []string{"open"}, result.Diagnostics[0].Missing)
}

func TestAnalyze_DeterministicAcrossRuns(t *testing.T) {
	prog := streamProgram()
	// Many failing sites so parallel scheduling could reorder results.
	for i := 0; i < 40; i++ {
		prog.Checks = append(prog.Checks, program.Check{
			Kind:  program.CheckCall,
			Site:  "main.mt:" + string(rune('a'+i%26)) + ":1",
			Given: program.TypeExpr{Class: "SingleUseStream"},
			Want:  program.TypeExpr{Methods: []string{"open"}},
		})
	}

	first := analyze(t, prog, Options{Workers: 8})
	for run := 0; run < 5; run++ {
		again := analyze(t, prog, Options{Workers: 8})
		assert.Equal(t, first.Diagnostics, again.Diagnostics, "verdict set must be identical across runs")
	}
}

func TestAnalyze_FailFast(t *testing.T) {
	prog := streamProgram()
	prog.Checks = []program.Check{
		{
			Kind:  program.CheckCall,
			Site:  "a.mt:1:1",
			Given: program.TypeExpr{Class: "SingleUseStream"},
			Want:  program.TypeExpr{Methods: []string{"open"}},
		},
		{
			Kind:  program.CheckCall,
			Site:  "b.mt:1:1",
			Given: program.TypeExpr{Class: "SingleUseStream"},
			Want:  program.TypeExpr{Methods: []string{"open"}},
		},
	}

	result := analyze(t, prog, Options{FailFast: true})
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "a.mt", result.Diagnostics[0].Site.File)
}

func TestAnalyze_SingleWorkerMatchesParallel(t *testing.T) {
	prog := streamProgram()
	prog.Checks = append(prog.Checks, program.Check{
		Kind:  program.CheckCall,
		Site:  "main.mt:12:7",
		Given: program.TypeExpr{Class: "SingleUseStream"},
		Want:  program.TypeExpr{Methods: []string{"isOpen", "close", "open"}},
	})

	serial := analyze(t, prog, Options{Workers: 1})
	parallel := analyze(t, prog, Options{Workers: 16})
	assert.Equal(t, serial.Diagnostics, parallel.Diagnostics)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, streamProgram(), Options{}, testLogger())
	require.Error(t, err)
}

func TestFilter_ByKind(t *testing.T) {
	diags := diag.List{
		{Kind: diag.TypeMismatch, Subject: "A"},
		{Kind: diag.IncompleteInterface, Subject: "B"},
	}
	got := Filter(diags, Options{KindFilter: diag.TypeMismatch})
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Subject)
}

func TestFilter_BySubjectPrefix(t *testing.T) {
	diags := diag.List{
		{Kind: diag.TypeMismatch, Subject: "StreamA"},
		{Kind: diag.TypeMismatch, Subject: "Socket"},
	}
	got := Filter(diags, Options{SubjectPrefix: "Stream"})
	require.Len(t, got, 1)
	assert.Equal(t, "StreamA", got[0].Subject)
}

func TestFilter_NoOptionsPassthrough(t *testing.T) {
	diags := diag.List{{Kind: diag.TypeMismatch}}
	assert.Equal(t, diags, Filter(diags, Options{}))
}
