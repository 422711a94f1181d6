// Package program defines the analysis input model: a fully-parsed
// program handed over by a front-end as method declarations, class
// definitions and check sites, plus the YAML description format the
// CLI and server accept.
package program

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"methodical/internal/methodset"
)

// TypeExpr is a method-set requirement expression. Exactly one field
// is set: a literal name set, an alias reference, an allOf
// (intersection) or anyOf (union) composition, or a class reference
// (the class's inferred method set, only meaningful on the value side
// of a check). The zero TypeExpr denotes the empty set.
type TypeExpr struct {
	Methods []string   `yaml:"methods,omitempty"`
	Alias   string     `yaml:"alias,omitempty"`
	AllOf   []TypeExpr `yaml:"allOf,omitempty"`
	AnyOf   []TypeExpr `yaml:"anyOf,omitempty"`
	Class   string     `yaml:"class,omitempty"`
}

// IsZero reports whether no variant is set.
func (e TypeExpr) IsZero() bool {
	return len(e.Methods) == 0 && e.Alias == "" && len(e.AllOf) == 0 &&
		len(e.AnyOf) == 0 && e.Class == ""
}

func (e TypeExpr) variants() int {
	n := 0
	if len(e.Methods) > 0 {
		n++
	}
	if e.Alias != "" {
		n++
	}
	if len(e.AllOf) > 0 {
		n++
	}
	if len(e.AnyOf) > 0 {
		n++
	}
	if e.Class != "" {
		n++
	}
	return n
}

// UnmarshalYAML accepts either a mapping with exactly one variant key
// or a plain scalar, which is shorthand for an alias reference.
func (e *TypeExpr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		e.Alias = name
		return nil
	}

	type raw TypeExpr // avoid recursing into this method
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*e = TypeExpr(r)
	if e.variants() > 1 {
		return fmt.Errorf("line %d: type expression must set exactly one of methods, alias, allOf, anyOf, class", node.Line)
	}
	return nil
}

// Resolver supplies alias and class bindings for TypeExpr resolution.
type Resolver interface {
	ResolveAlias(name string) (methodset.Set, bool)
	ResolveClass(name string) (methodset.Set, bool)
}

// Resolve evaluates the expression to a concrete method set. AllOf
// folds with Intersect (requirements accumulate); AnyOf folds with
// UnionType (only common names survive).
func (e TypeExpr) Resolve(r Resolver) (methodset.Set, error) {
	switch {
	case len(e.Methods) > 0:
		return methodset.New(e.Methods...), nil
	case e.Alias != "":
		set, ok := r.ResolveAlias(e.Alias)
		if !ok {
			return methodset.Set{}, fmt.Errorf("unknown alias %q", e.Alias)
		}
		return set, nil
	case e.Class != "":
		set, ok := r.ResolveClass(e.Class)
		if !ok {
			return methodset.Set{}, fmt.Errorf("unknown class %q", e.Class)
		}
		return set, nil
	case len(e.AllOf) > 0:
		acc := methodset.Set{}
		for _, sub := range e.AllOf {
			set, err := sub.Resolve(r)
			if err != nil {
				return methodset.Set{}, err
			}
			acc = methodset.Intersect(acc, set)
		}
		return acc, nil
	case len(e.AnyOf) > 0:
		var acc methodset.Set
		for i, sub := range e.AnyOf {
			set, err := sub.Resolve(r)
			if err != nil {
				return methodset.Set{}, err
			}
			if i == 0 {
				acc = set
			} else {
				acc = methodset.UnionType(acc, set)
			}
		}
		return acc, nil
	}
	return methodset.Set{}, nil
}

// MethodDecl declares one registry method. Params and Returns are
// method-set requirement expressions; absent means the empty set.
type MethodDecl struct {
	Name    string     `yaml:"name"`
	Params  []TypeExpr `yaml:"params,omitempty"`
	Returns TypeExpr   `yaml:"returns,omitempty"`
	Site    string     `yaml:"site,omitempty"`
}

// ClassDef is one class body reduced to which method names it
// implements. Defines lists direct in-class bodies. Uses lists
// references that pull in imported implementations: a "module.method"
// entry picks a specific import, an unqualified entry resolves among
// Imports and is ambiguous when two imports share its name. Imports
// lists the externally-qualified implementations available to the
// class.
type ClassDef struct {
	Name       string     `yaml:"name"`
	Defines    []string   `yaml:"defines,omitempty"`
	Uses       []string   `yaml:"uses,omitempty"`
	Imports    []string   `yaml:"imports,omitempty"`
	Implements []TypeExpr `yaml:"implements,omitempty"`
	Site       string     `yaml:"site,omitempty"`
}

// CheckKind distinguishes the three checked site categories.
type CheckKind string

const (
	CheckCall   CheckKind = "call"
	CheckReturn CheckKind = "return"
	CheckAssign CheckKind = "assign"
)

// Check is one call argument, return statement, or typed assignment:
// the Given value type must satisfy the Want requirement.
type Check struct {
	Kind  CheckKind `yaml:"kind"`
	Site  string    `yaml:"site"`
	Given TypeExpr  `yaml:"given"`
	Want  TypeExpr  `yaml:"want"`
}

// AliasDef binds a name to a type expression, in declaration order.
type AliasDef struct {
	Name string
	Expr TypeExpr
}

// Program is a complete analysis input.
type Program struct {
	Methods []MethodDecl `yaml:"methods"`
	Aliases []AliasDef   `yaml:"aliases,omitempty"`
	Classes []ClassDef   `yaml:"classes,omitempty"`
	Checks  []Check      `yaml:"checks,omitempty"`
	Source  string       `yaml:"-"` // where the program was loaded from
}
