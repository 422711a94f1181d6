// Package diagram renders an analysis result as a Mermaid
// classDiagram: interface aliases as interface blocks, classes as
// concrete blocks, and satisfaction as realization edges.
package diagram

import (
	"fmt"
	"sort"
	"strings"

	"methodical/internal/analyzer"
)

// Options controls Mermaid diagram generation.
type Options struct {
	MaxMethodsPerBox int  // default 5, 0 means unlimited
	IncludeInit      bool // include %%{init:}%% directive (for standalone .mmd files)
}

// DefaultOptions returns sensible defaults for diagram generation.
func DefaultOptions() Options {
	return Options{MaxMethodsPerBox: 5}
}

// Generate produces a Mermaid classDiagram string from an analysis
// result. Output is fully deterministic: aliases, classes, and edges
// are sorted by name before emission.
func Generate(result *analyzer.Result, opts Options) string {
	var b strings.Builder

	aliasNames := make([]string, 0, len(result.Aliases))
	for name := range result.Aliases {
		aliasNames = append(aliasNames, name)
	}
	sort.Strings(aliasNames)

	classNames := make([]string, 0, len(result.MethodSets))
	for name := range result.MethodSets {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)

	if opts.IncludeInit {
		b.WriteString("%%{init: {'theme': 'base'}}%%\n")
	}
	b.WriteString("classDiagram")
	if len(aliasNames) > 0 || len(classNames) > 0 {
		b.WriteString("\n")
		b.WriteString("    direction LR\n")
		b.WriteString("    classDef aliasStyle fill:#2374ab,stroke:#1a5a8a,color:#fff,stroke-width:2px,font-weight:bold\n")
		b.WriteString("    classDef classStyle fill:#4a9c6d,stroke:#357a50,color:#fff,stroke-width:2px")
	}

	for _, name := range aliasNames {
		b.WriteString("\n")
		writeAliasBlock(&b, name, result.Aliases[name].Names(), opts)
	}

	if len(aliasNames) > 0 && len(classNames) > 0 {
		b.WriteString("\n")
	}
	for _, name := range classNames {
		b.WriteString("\n")
		writeClassBlock(&b, name, result.MethodSets[name].Names(), opts)
	}

	if (len(aliasNames) > 0 || len(classNames) > 0) && len(result.Relations) > 0 {
		b.WriteString("\n")
	}
	for _, rel := range result.Relations {
		b.WriteString(fmt.Sprintf("\n    %s --|> %s", NodeID(rel.Class), NodeID(rel.Alias)))
	}

	if len(aliasNames) > 0 || len(classNames) > 0 {
		b.WriteString("\n")
		for _, name := range aliasNames {
			b.WriteString(fmt.Sprintf("\n    cssClass \"%s\" aliasStyle", NodeID(name)))
		}
		for _, name := range classNames {
			b.WriteString(fmt.Sprintf("\n    cssClass \"%s\" classStyle", NodeID(name)))
		}
	}

	return b.String()
}

// NodeID sanitizes a name for use as a Mermaid node identifier.
func NodeID(name string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_")
	return r.Replace(name)
}

func writeAliasBlock(b *strings.Builder, name string, methods []string, opts Options) {
	b.WriteString(fmt.Sprintf("    class %s {\n", NodeID(name)))
	b.WriteString("        <<interface>>\n")
	writeMethodLines(b, methods, opts)
	b.WriteString("    }")
}

func writeClassBlock(b *strings.Builder, name string, methods []string, opts Options) {
	b.WriteString(fmt.Sprintf("    class %s {\n", NodeID(name)))
	writeMethodLines(b, methods, opts)
	b.WriteString("    }")
}

// writeMethodLines writes method lines with optional truncation.
func writeMethodLines(b *strings.Builder, methods []string, opts Options) {
	limit := len(methods)
	truncated := false
	if opts.MaxMethodsPerBox > 0 && limit > opts.MaxMethodsPerBox {
		limit = opts.MaxMethodsPerBox
		truncated = true
	}
	for i := 0; i < limit; i++ {
		b.WriteString(fmt.Sprintf("        +%s()\n", methods[i]))
	}
	if truncated {
		b.WriteString("        ...\n")
	}
}
