// Package schema loads the declarative knowledge-graph schema into a
// validated, immutable registry and provides the type-resolution and
// identifier-normalization rules every output backend must share.
//
// The schema file is a YAML mapping from type name to a record declaring how
// the type is represented (node or edge), its input and output labels, the
// legal source/target type sets for edges, declared properties, and optional
// parent types for property inheritance. Lookups of undeclared labels are
// hard errors: an unknown label indicates upstream misconfiguration that
// silent recovery would mask as data loss.
package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rejuve-bio/biograph/errors"
)

// Wildcard is the generic "ontology term" placeholder type. A declared
// source or target of this type is resolved to a concrete type at emission
// time from the identifier's namespace prefix.
const Wildcard = "ontology term"

// NodeType is one declared node type.
type NodeType struct {
	Name           string
	InputLabel     string
	Properties     map[string]string
	IsOntologyTerm bool
	Description    string

	parents           []string
	inheritProperties bool
}

// EdgeType is one declared edge type.
type EdgeType struct {
	Name        string
	InputLabel  string
	OutputLabel string
	Sources     []string
	Targets     []string
	Properties  map[string]string
	Description string
}

// Registry holds the parsed schema. It is built once at startup and never
// mutated afterwards, so it is safe for concurrent readers.
type Registry struct {
	nodes      map[string]NodeType
	nodeLabels map[string]string // input label -> type name, when distinct
	edges      map[string]EdgeType
}

// stringList accepts a YAML scalar or sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := value.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got yaml kind %d", value.Kind)
	}
}

// propertySet accepts either a YAML mapping of name to type or a plain list
// of names (typed as "str").
type propertySet map[string]string

func (p *propertySet) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := value.Decode(&m); err != nil {
			return err
		}
		*p = m
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		m := make(map[string]string, len(names))
		for _, n := range names {
			m[n] = "str"
		}
		*p = m
		return nil
	default:
		return fmt.Errorf("expected mapping or list of property names, got yaml kind %d", value.Kind)
	}
}

type rawEntry struct {
	RepresentedAs     string      `yaml:"represented_as"`
	InputLabel        string      `yaml:"input_label"`
	OutputLabel       string      `yaml:"output_label"`
	Source            stringList  `yaml:"source"`
	Target            stringList  `yaml:"target"`
	Properties        propertySet `yaml:"properties"`
	IsA               stringList  `yaml:"is_a"`
	InheritProperties bool        `yaml:"inherit_properties"`
	IsOntologyTerm    bool        `yaml:"is_ontology_term"`
	Description       string      `yaml:"description"`
}

// Load reads and parses the schema file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "schema", "Load", "read schema file")
	}
	return Parse(data)
}

// Parse builds a Registry from raw schema YAML.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]rawEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "schema", "Parse", "unmarshal schema")
	}

	r := &Registry{
		nodes:      make(map[string]NodeType),
		nodeLabels: make(map[string]string),
		edges:      make(map[string]EdgeType),
	}

	// Deterministic processing order keeps error messages stable.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := raw[name]
		switch entry.RepresentedAs {
		case "node":
			input := entry.InputLabel
			if input == "" {
				input = name
			}
			r.nodes[name] = NodeType{
				Name:              name,
				InputLabel:        input,
				Properties:        entry.Properties,
				IsOntologyTerm:    entry.IsOntologyTerm || input == Wildcard,
				Description:       entry.Description,
				parents:           entry.IsA,
				inheritProperties: entry.InheritProperties,
			}
			if input != name {
				r.nodeLabels[input] = name
			}
		case "edge":
			input := entry.InputLabel
			if input == "" {
				input = name
			}
			output := entry.OutputLabel
			if output == "" {
				output = input
			}
			if len(entry.Source) == 0 || len(entry.Target) == 0 {
				return nil, errors.WrapFatal(errors.ErrInvalidSchema, "schema", "Parse",
					fmt.Sprintf("edge type %q must declare source and target", name))
			}
			r.edges[input] = EdgeType{
				Name:        name,
				InputLabel:  input,
				OutputLabel: output,
				Sources:     entry.Source,
				Targets:     entry.Target,
				Properties:  entry.Properties,
				Description: entry.Description,
			}
		default:
			return nil, errors.WrapFatal(errors.ErrInvalidSchema, "schema", "Parse",
				fmt.Sprintf("type %q: represented_as must be \"node\" or \"edge\", got %q", name, entry.RepresentedAs))
		}
	}

	if err := r.validateReferences(); err != nil {
		return nil, err
	}
	r.resolveInheritance()

	return r, nil
}

// validateReferences checks that every type name referenced by an edge's
// source/target sets exists as a node type or is the wildcard.
func (r *Registry) validateReferences() error {
	labels := make([]string, 0, len(r.edges))
	for label := range r.edges {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		et := r.edges[label]
		for _, ref := range append(append([]string{}, et.Sources...), et.Targets...) {
			if ref == Wildcard {
				continue
			}
			if _, ok := r.nodes[ref]; !ok {
				return errors.WrapFatal(errors.ErrInvalidSchema, "schema", "validateReferences",
					fmt.Sprintf("edge type %q references undeclared node type %q", et.Name, ref))
			}
		}
	}
	return nil
}

// resolveInheritance unions inherited properties into each node type that
// declares inherit_properties, walking parent chains recursively. A visited
// set makes the walk safe against mutually referencing parents.
func (r *Registry) resolveInheritance() {
	for name, nt := range r.nodes {
		if !nt.inheritProperties || len(nt.parents) == 0 {
			continue
		}
		props := make(map[string]string, len(nt.Properties))
		visited := map[string]bool{name: true}
		r.collectInherited(nt.parents, visited, props)
		// Own declarations win over inherited ones.
		for k, v := range nt.Properties {
			props[k] = v
		}
		nt.Properties = props
		r.nodes[name] = nt
	}
}

func (r *Registry) collectInherited(parents []string, visited map[string]bool, props map[string]string) {
	for _, parent := range parents {
		if visited[parent] {
			continue
		}
		visited[parent] = true
		pt, ok := r.nodes[parent]
		if !ok {
			continue
		}
		for k, v := range pt.Properties {
			if _, exists := props[k]; !exists {
				props[k] = v
			}
		}
		r.collectInherited(pt.parents, visited, props)
	}
}

// NodeType returns the declared node type for label, which may be either
// the type name or its input label. Undeclared labels are hard errors.
func (r *Registry) NodeType(label string) (NodeType, error) {
	nt, ok := r.nodes[label]
	if !ok {
		if name, aliased := r.nodeLabels[label]; aliased {
			return r.nodes[name], nil
		}
		return NodeType{}, errors.WrapFatal(errors.ErrUnknownLabel, "schema", "NodeType",
			fmt.Sprintf("node label %q", label))
	}
	return nt, nil
}

// EdgeType returns the declared edge type for the given input label.
// Undeclared labels are hard errors.
func (r *Registry) EdgeType(label string) (EdgeType, error) {
	et, ok := r.edges[label]
	if !ok {
		return EdgeType{}, errors.WrapFatal(errors.ErrUnknownLabel, "schema", "EdgeType",
			fmt.Sprintf("edge label %q", label))
	}
	return et, nil
}

// NodeLabels returns the declared node type names, sorted.
func (r *Registry) NodeLabels() []string {
	labels := make([]string, 0, len(r.nodes))
	for l := range r.nodes {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// EdgeLabels returns the declared edge input labels, sorted.
func (r *Registry) EdgeLabels() []string {
	labels := make([]string, 0, len(r.edges))
	for l := range r.edges {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// legalSet formats a declared type set for error messages.
func legalSet(types []string) string {
	return "[" + strings.Join(types, ", ") + "]"
}
