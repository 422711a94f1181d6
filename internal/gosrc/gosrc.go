// Package gosrc maps a real Go module into the methodical program
// model, so the checker can be demonstrated against Go code: exported
// interfaces become aliases plus method declarations, and exported
// named types become classes carrying the declared subset of their
// method sets.
package gosrc

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"

	"methodical/internal/program"
)

// Load loads the Go module containing dir and converts it to a
// program. Every exported interface contributes an alias and a
// declaration per method; every exported non-interface named type
// becomes a class defining the declared names it implements, with an
// implements entry for each interface go/types says it satisfies.
func Load(ctx context.Context, dir string, logger *slog.Logger) (*program.Program, error) {
	root, err := FindModuleRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg := &packages.Config{
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedImports,
		Dir:     root,
		Context: ctx,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	// Log packages with errors but continue.
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			logger.Warn("package load error", "package", pkg.PkgPath, "error", e.Msg)
		}
	}
	logger.Info("packages loaded", "packages_count", len(pkgs))

	prog := &program.Program{Source: root}

	type ifaceDef struct {
		key   string
		iface *types.Interface
	}
	var ifaces []ifaceDef
	declared := make(map[string]bool)
	seen := make(map[string]bool)

	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !token.IsExported(name) {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			iface, ok := named.Underlying().(*types.Interface)
			if !ok || iface.NumMethods() == 0 {
				continue
			}
			key := pkg.Types.Name() + "." + name
			if seen[key] {
				continue
			}
			seen[key] = true

			var methods []string
			for i := 0; i < iface.NumMethods(); i++ {
				m := iface.Method(i)
				methods = append(methods, m.Name())
				if !declared[m.Name()] {
					declared[m.Name()] = true
					prog.Methods = append(prog.Methods, program.MethodDecl{
						Name: m.Name(),
						Site: siteOf(pkg.Fset, tn.Pos(), root),
					})
				}
			}
			sort.Strings(methods)
			prog.Aliases = append(prog.Aliases, program.AliasDef{
				Name: key,
				Expr: program.TypeExpr{Methods: methods},
			})
			ifaces = append(ifaces, ifaceDef{key: key, iface: iface})
			logger.Debug("found interface", "name", key, "methods", iface.NumMethods())
		}
	}

	// Second sweep: named concrete types, now that the declared-name
	// universe is known. Methods outside the universe are dropped —
	// they are real Go methods, but no interface declares them, so
	// they carry no type information here.
	var cache typeutil.MethodSetCache
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !token.IsExported(name) {
				continue
			}
			named, ok := tn.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Interface); ok {
				continue
			}

			// Pointer method set includes value-receiver methods too.
			mset := cache.MethodSet(types.NewPointer(named))
			var defines []string
			for i := 0; i < mset.Len(); i++ {
				mname := mset.At(i).Obj().Name()
				if declared[mname] {
					defines = append(defines, mname)
				}
			}
			if len(defines) == 0 {
				continue
			}
			sort.Strings(defines)

			class := program.ClassDef{
				Name:    pkg.Types.Name() + "." + name,
				Defines: defines,
				Site:    siteOf(pkg.Fset, tn.Pos(), root),
			}
			for _, id := range ifaces {
				if types.Implements(named, id.iface) || types.Implements(types.NewPointer(named), id.iface) {
					class.Implements = append(class.Implements, program.TypeExpr{Alias: id.key})
				}
			}
			prog.Classes = append(prog.Classes, class)
			logger.Debug("found type", "name", class.Name, "methods", len(defines))
		}
	}

	logger.Info("conversion complete",
		"methods", len(prog.Methods),
		"aliases", len(prog.Aliases),
		"classes", len(prog.Classes))

	if len(prog.Methods) == 0 {
		return nil, fmt.Errorf("%s: no exported interfaces found, nothing to analyze", root)
	}
	return prog, nil
}

// FindModuleRoot walks up from dir to the nearest go.mod.
func FindModuleRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	current := abs
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no go.mod found in %s or any parent directory", abs)
		}
		current = parent
	}
}

// siteOf resolves a token position to a file:line:col site string
// relative to moduleRoot.
func siteOf(fset *token.FileSet, pos token.Pos, moduleRoot string) string {
	if fset == nil || !pos.IsValid() {
		return ""
	}
	position := fset.Position(pos)
	if !position.IsValid() || position.Filename == "" {
		return ""
	}
	file := position.Filename
	if rel, err := filepath.Rel(moduleRoot, file); err == nil {
		file = rel
	}
	return fmt.Sprintf("%s:%d:%d", file, position.Line, position.Column)
}
