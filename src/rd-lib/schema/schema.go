// Package schema describes the model graph exchanged between the two processes of a protocol pair.
//
// A schema snapshot is the single source of truth from which both the owning ("asis") and the
// consuming ("reversed") stubs are generated. Identifiers are stable: once shipped, a node or member
// id keeps its meaning forever and evolution is append-only (see CheckCompatible).
package schema

import (
	"bytes"
	"fmt"
	"go/token"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// MemberKind identifies the kind of a member declared on a Node.
type MemberKind int

const (
	// MemberProperty is a two-way replicated value.
	MemberProperty MemberKind = iota
	// MemberRequest is a call with a response.
	MemberRequest
	// MemberSignal is a fire-and-forget event.
	MemberSignal
)

// String returns the wire name of the member kind.
func (k MemberKind) String() string {
	switch k {
	case MemberProperty:
		return "property"
	case MemberRequest:
		return "request"
	case MemberSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Schema is a versioned snapshot of one root model.
type Schema struct {
	Name            string     `yaml:"name"`
	Package         string     `yaml:"package"`
	Version         int32      `yaml:"version"`
	CompatibleSince int32      `yaml:"compatibleSince"`
	Root            *Node      `yaml:"root"`
	Types           []TypeDecl `yaml:"types"`

	source []byte
	nodes  map[int32]*Node
	paths  map[int32]string
	types  map[string]*TypeDecl
}

// Node is a named, addressable unit of the model tree.
type Node struct {
	ID         int32      `yaml:"id"`
	Name       string     `yaml:"name"`
	Properties []Property `yaml:"properties"`
	Requests   []Request  `yaml:"requests"`
	Signals    []Signal   `yaml:"signals"`
	Children   []*Node    `yaml:"children"`
}

// Property declares a replicated value on a node.
type Property struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Request declares a call with a response on a node.
type Request struct {
	ID       int32  `yaml:"id"`
	Name     string `yaml:"name"`
	Request  string `yaml:"request"`
	Response string `yaml:"response"`
}

// Signal declares a fire-and-forget event on a node.
type Signal struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// TypeDecl declares a structured payload type.
type TypeDecl struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

// Field is a single typed field of a TypeDecl.
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
}

// Load reads and validates a schema snapshot from disk.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %q: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", path, err)
	}
	return s, nil
}

// MustParse is Parse for snapshots embedded in generated code.
func MustParse(text string) *Schema {
	s, err := Parse([]byte(text))
	if err != nil {
		panic(err)
	}
	return s
}

// Parse decodes and validates a schema snapshot.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	if s.Package == "" {
		s.Package = strings.ToLower(s.Name)
	}
	if s.CompatibleSince == 0 {
		s.CompatibleSince = 1
	}
	s.source = append([]byte(nil), data...)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Source returns the snapshot text the schema was parsed from.
func (s *Schema) Source() []byte {
	return s.source
}

// Node returns the node with the given id.
func (s *Schema) Node(id int32) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Path returns the dotted model path of a node, e.g. "IdeModel.Documents".
func (s *Schema) Path(id int32) string {
	return s.paths[id]
}

// Type returns the declared type with the given name.
func (s *Schema) Type(name string) (*TypeDecl, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Nodes returns every node in depth-first declaration order.
func (s *Schema) Nodes() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	if s.Root != nil {
		walk(s.Root)
	}
	return out
}

// Validate checks structural invariants of the snapshot and indexes it for lookups.
func (s *Schema) Validate() error {
	var err error
	if !token.IsIdentifier(s.Name) {
		err = multierr.Append(err, fmt.Errorf("schema name %q is not an identifier", s.Name))
	}
	if !token.IsIdentifier(s.Package) {
		err = multierr.Append(err, fmt.Errorf("package %q is not an identifier", s.Package))
	}
	if s.Version < 1 {
		err = multierr.Append(err, fmt.Errorf("version must be positive, got %d", s.Version))
	}
	if s.CompatibleSince < 1 || s.CompatibleSince > s.Version {
		err = multierr.Append(err, fmt.Errorf("compatibleSince %d must be within [1, %d]", s.CompatibleSince, s.Version))
	}
	if bytes.IndexByte(s.source, '`') >= 0 {
		err = multierr.Append(err, fmt.Errorf("snapshot text must not contain a backquote"))
	}

	s.types = make(map[string]*TypeDecl, len(s.Types))
	for i := range s.Types {
		t := &s.Types[i]
		if !token.IsExported(t.Name) || !token.IsIdentifier(t.Name) {
			err = multierr.Append(err, fmt.Errorf("type %q must be an exported identifier", t.Name))
		}
		if _, dup := s.types[t.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("type %q declared twice", t.Name))
		}
		s.types[t.Name] = t
	}
	for _, t := range s.Types {
		seen := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if !token.IsExported(f.Name) || !token.IsIdentifier(f.Name) {
				err = multierr.Append(err, fmt.Errorf("field %s.%s must be an exported identifier", t.Name, f.Name))
			}
			if _, dup := seen[f.Name]; dup {
				err = multierr.Append(err, fmt.Errorf("field %s.%s declared twice", t.Name, f.Name))
			}
			seen[f.Name] = struct{}{}
			err = multierr.Append(err, s.checkRef(f.Type, false, "field "+t.Name+"."+f.Name))
		}
	}

	s.nodes = make(map[int32]*Node)
	s.paths = make(map[int32]string)
	if s.Root == nil {
		return multierr.Append(err, fmt.Errorf("schema %q has no root node", s.Name))
	}
	return multierr.Append(err, s.indexNode(s.Root, ""))
}

func (s *Schema) indexNode(n *Node, parent string) error {
	var err error
	if n.ID < 1 {
		err = multierr.Append(err, fmt.Errorf("node %q: id must be positive", n.Name))
	}
	if !token.IsExported(n.Name) || !token.IsIdentifier(n.Name) {
		err = multierr.Append(err, fmt.Errorf("node %q must be an exported identifier", n.Name))
	}
	if prev, dup := s.nodes[n.ID]; dup {
		err = multierr.Append(err, fmt.Errorf("node id %d used by both %q and %q", n.ID, prev.Name, n.Name))
	}
	path := n.Name
	if parent != "" {
		path = parent + "." + n.Name
	}
	s.nodes[n.ID] = n
	s.paths[n.ID] = path

	ids := make(map[int32]string)
	names := make(map[string]struct{})
	member := func(id int32, name string) {
		if id < 1 {
			err = multierr.Append(err, fmt.Errorf("%s.%s: member id must be positive", path, name))
		}
		if prev, dup := ids[id]; dup {
			err = multierr.Append(err, fmt.Errorf("%s: member id %d used by both %q and %q", path, id, prev, name))
		}
		if _, dup := names[name]; dup {
			err = multierr.Append(err, fmt.Errorf("%s: member %q declared twice", path, name))
		}
		if !token.IsExported(name) || !token.IsIdentifier(name) {
			err = multierr.Append(err, fmt.Errorf("%s: member %q must be an exported identifier", path, name))
		}
		ids[id] = name
		names[name] = struct{}{}
	}

	for _, p := range n.Properties {
		member(p.ID, p.Name)
		err = multierr.Append(err, s.checkRef(p.Type, false, path+"."+p.Name))
	}
	for _, r := range n.Requests {
		member(r.ID, r.Name)
		err = multierr.Append(err, s.checkRef(r.Request, true, path+"."+r.Name+" request"))
		err = multierr.Append(err, s.checkRef(r.Response, true, path+"."+r.Name+" response"))
	}
	for _, sig := range n.Signals {
		member(sig.ID, sig.Name)
		err = multierr.Append(err, s.checkRef(sig.Type, false, path+"."+sig.Name))
	}
	for _, c := range n.Children {
		err = multierr.Append(err, s.indexNode(c, path))
	}
	return err
}

func (s *Schema) checkRef(ref string, allowVoid bool, where string) error {
	t, err := ParseTypeRef(ref)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if t.Kind == KindVoid && !allowVoid {
		return fmt.Errorf("%s: void is only allowed for requests and responses", where)
	}
	for t.Kind == KindList {
		t = *t.Elem
	}
	if t.Kind == KindNamed {
		if _, ok := s.types[t.Name]; !ok {
			return fmt.Errorf("%s: undeclared type %q", where, t.Name)
		}
	}
	return nil
}
