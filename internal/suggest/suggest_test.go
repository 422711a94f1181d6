package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"methodical/internal/analyzer"
	"methodical/internal/diag"
	"methodical/internal/methodset"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"close", "close", 0},
		{"close", "clos", 1},
		{"close", "closd", 1},
		{"isOpen", "isOpne", 2},
		{"fly", "close", 4},
		{"", "abc", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestNearestName_AnnotatesTypo(t *testing.T) {
	result := &analyzer.Result{
		Universe: methodset.New("isOpen", "close", "open"),
		Diagnostics: diag.List{{
			Kind:    diag.UndeclaredMethod,
			Subject: "Stream",
			Method:  "clsoe",
			Message: `class "Stream" implements undeclared method "clsoe"`,
		}},
	}

	result = NewNearestName().Enrich(result)
	assert.Equal(t, `did you mean "close"?`, result.Diagnostics[0].Hint)
}

func TestNearestName_NoCloseCandidate(t *testing.T) {
	result := &analyzer.Result{
		Universe: methodset.New("isOpen", "close"),
		Diagnostics: diag.List{{
			Kind:   diag.UndeclaredMethod,
			Method: "teleport",
		}},
	}

	result = NewNearestName().Enrich(result)
	assert.Empty(t, result.Diagnostics[0].Hint)
}

func TestNearestName_SkipsDiagnosticsWithoutMethod(t *testing.T) {
	result := &analyzer.Result{
		Universe: methodset.New("close"),
		Diagnostics: diag.List{{
			Kind:    diag.TypeMismatch,
			Missing: []string{"open"},
		}},
	}

	result = NewNearestName().Enrich(result)
	assert.Empty(t, result.Diagnostics[0].Hint)
}

func TestNearestName_PreservesExistingHint(t *testing.T) {
	result := &analyzer.Result{
		Universe: methodset.New("close"),
		Diagnostics: diag.List{{
			Kind:   diag.UndeclaredMethod,
			Method: "clos",
			Hint:   "already annotated",
		}},
	}

	result = NewNearestName().Enrich(result)
	assert.Equal(t, "already annotated", result.Diagnostics[0].Hint)
}

func TestNearestName_DoesNotChangeVerdictSet(t *testing.T) {
	diags := diag.List{
		{Kind: diag.UndeclaredMethod, Method: "clos"},
		{Kind: diag.TypeMismatch, Missing: []string{"open"}},
	}
	result := &analyzer.Result{
		Universe:    methodset.New("close", "open"),
		Diagnostics: append(diag.List{}, diags...),
	}

	result = NewNearestName().Enrich(result)
	require.Len(t, result.Diagnostics, len(diags))
	for i := range diags {
		assert.Equal(t, diags[i].Kind, result.Diagnostics[i].Kind)
		assert.Equal(t, diags[i].Missing, result.Diagnostics[i].Missing)
	}
}

func TestChain_AppliesInOrder(t *testing.T) {
	result := &analyzer.Result{
		Universe: methodset.New("close"),
		Diagnostics: diag.List{{
			Kind:   diag.UndeclaredMethod,
			Method: "clos",
		}},
	}

	result = Chain(result, NewNearestName())
	assert.NotEmpty(t, result.Diagnostics[0].Hint)
}
