package analyzer

import (
	"strings"

	"methodical/internal/diag"
)

// Filter applies the kind and subject-prefix filters to a diagnostic
// list. An empty option passes everything through.
func Filter(diags diag.List, opts Options) diag.List {
	if opts.KindFilter == "" && opts.SubjectPrefix == "" {
		return diags
	}
	var out diag.List
	for _, d := range diags {
		if opts.KindFilter != "" && d.Kind != opts.KindFilter {
			continue
		}
		if opts.SubjectPrefix != "" && !strings.HasPrefix(d.Subject, opts.SubjectPrefix) {
			continue
		}
		out = append(out, d)
	}
	return out
}
