package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// aliasMap decodes the YAML "aliases" mapping while preserving
// declaration order, so an alias may reference aliases defined above
// it without a separate topological sort.
type aliasMap []AliasDef

func (m *aliasMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: aliases must be a mapping", node.Line)
	}
	out := make([]AliasDef, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var expr TypeExpr
		if err := node.Content[i+1].Decode(&expr); err != nil {
			return err
		}
		out = append(out, AliasDef{Name: name, Expr: expr})
	}
	*m = out
	return nil
}

type rawProgram struct {
	Methods []MethodDecl `yaml:"methods"`
	Aliases aliasMap     `yaml:"aliases"`
	Classes []ClassDef   `yaml:"classes"`
	Checks  []Check      `yaml:"checks"`
}

// Load decodes a YAML program description. Unknown fields are
// rejected so a typo'd key fails loudly instead of silently dropping
// part of the program.
func Load(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawProgram
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty program description")
		}
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	prog := &Program{
		Methods: raw.Methods,
		Aliases: []AliasDef(raw.Aliases),
		Classes: raw.Classes,
		Checks:  raw.Checks,
	}
	if err := validate(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// LoadFile loads a program description from path.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening program: %w", err)
	}
	defer f.Close()

	prog, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	prog.Source = path
	return prog, nil
}

// validate rejects structurally malformed programs before analysis.
// Semantic problems (undeclared methods, unknown aliases) are the
// analyzer's job and become diagnostics, not load errors.
func validate(p *Program) error {
	if len(p.Methods) == 0 {
		return fmt.Errorf("program declares no methods")
	}
	for i, m := range p.Methods {
		if m.Name == "" {
			return fmt.Errorf("methods[%d]: missing name", i)
		}
	}
	for i, c := range p.Classes {
		if c.Name == "" {
			return fmt.Errorf("classes[%d]: missing name", i)
		}
		for _, imp := range c.Imports {
			if !strings.Contains(imp, ".") {
				return fmt.Errorf("class %s: import %q is not module-qualified", c.Name, imp)
			}
		}
	}
	for i, c := range p.Checks {
		switch c.Kind {
		case CheckCall, CheckReturn, CheckAssign:
		default:
			return fmt.Errorf("checks[%d]: unknown kind %q", i, c.Kind)
		}
		if c.Site == "" {
			return fmt.Errorf("checks[%d]: missing site", i)
		}
	}
	return nil
}
