// Package codegen turns a schema snapshot into stub sources for one side of a protocol pair.
//
// Generation runs in two steps. NewPlan lowers a schema into a language-neutral Plan; an Emitter
// renders the plan for one target language. Supporting another language only needs a new Emitter.
// Output is a pure function of the snapshot and role, so checked-in stubs can be diffed in CI.
package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

// Role selects which side of the model the stubs are generated for.
type Role string

const (
	// RoleAsis generates the owning side: endpoints to implement, owned properties.
	RoleAsis Role = "asis"
	// RoleReversed generates the consuming side: typed calls, replicated properties.
	RoleReversed Role = "reversed"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAsis, RoleReversed:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q, want %q or %q", s, RoleAsis, RoleReversed)
	}
}

// Plan is the language-neutral description of one generated stub file.
type Plan struct {
	Model   string
	Package string
	Role    Role
	Version int32
	Source  string
	Types   []TypePlan
	Root    *NodePlan
	Nodes   []*NodePlan
}

// TypePlan is a payload type.
type TypePlan struct {
	Name   string
	Fields []FieldPlan
}

// FieldPlan is one field of a payload type.
type FieldPlan struct {
	Name     string
	WireName string
	Type     schema.TypeRef
	Optional bool
}

// NodePlan is one model node and its members.
type NodePlan struct {
	ID         int32
	Name       string
	Path       string
	IsRoot     bool
	Properties []MemberPlan
	Requests   []RequestPlan
	Signals    []MemberPlan
	Children   []*NodePlan
}

// MemberPlan is a property or signal.
type MemberPlan struct {
	ID   int32
	Name string
	Type schema.TypeRef
}

// RequestPlan is a request with its payload types.
type RequestPlan struct {
	ID       int32
	Name     string
	Request  schema.TypeRef
	Response schema.TypeRef
}

// NewPlan lowers a validated schema for the given role.
func NewPlan(s *schema.Schema, role Role) (*Plan, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	p := &Plan{
		Model:   s.Name,
		Package: s.Package,
		Role:    role,
		Version: s.Version,
		Source:  string(s.Source()),
	}
	if role == RoleReversed {
		p.Package = s.Package + "client"
	}

	for _, t := range s.Types {
		tp := TypePlan{Name: t.Name}
		for _, f := range t.Fields {
			ref, err := schema.ParseTypeRef(f.Type)
			if err != nil {
				return nil, err
			}
			tp.Fields = append(tp.Fields, FieldPlan{
				Name:     f.Name,
				WireName: WireName(f.Name),
				Type:     ref,
				Optional: f.Optional,
			})
		}
		p.Types = append(p.Types, tp)
	}

	names := make(map[string]string)
	for _, t := range s.Types {
		names[t.Name] = "type"
	}
	var lower func(n *schema.Node) (*NodePlan, error)
	lower = func(n *schema.Node) (*NodePlan, error) {
		if prev, dup := names[n.Name]; dup {
			return nil, fmt.Errorf("node %s clashes with a %s of the same name", s.Path(n.ID), prev)
		}
		names[n.Name] = "node"

		np := &NodePlan{ID: n.ID, Name: n.Name, Path: s.Path(n.ID), IsRoot: n == s.Root}
		for _, prop := range n.Properties {
			ref, err := schema.ParseTypeRef(prop.Type)
			if err != nil {
				return nil, err
			}
			np.Properties = append(np.Properties, MemberPlan{ID: prop.ID, Name: prop.Name, Type: ref})
		}
		for _, r := range n.Requests {
			req, err := schema.ParseTypeRef(r.Request)
			if err != nil {
				return nil, err
			}
			resp, err := schema.ParseTypeRef(r.Response)
			if err != nil {
				return nil, err
			}
			np.Requests = append(np.Requests, RequestPlan{ID: r.ID, Name: r.Name, Request: req, Response: resp})
		}
		for _, sig := range n.Signals {
			ref, err := schema.ParseTypeRef(sig.Type)
			if err != nil {
				return nil, err
			}
			np.Signals = append(np.Signals, MemberPlan{ID: sig.ID, Name: sig.Name, Type: ref})
		}

		p.Nodes = append(p.Nodes, np)
		for _, c := range n.Children {
			child, err := lower(c)
			if err != nil {
				return nil, err
			}
			np.Children = append(np.Children, child)
		}
		return np, nil
	}

	root, err := lower(s.Root)
	if err != nil {
		return nil, err
	}
	p.Root = root
	return p, nil
}

// HasRequests reports whether any node declares a request.
func (p *Plan) HasRequests() bool {
	for _, n := range p.Nodes {
		if len(n.Requests) > 0 {
			return true
		}
	}
	return false
}

// WireName converts an exported field name to its lowerCamelCase wire name, e.g. URI -> uri,
// LineText -> lineText, XMLDoc -> xmlDoc.
func WireName(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(runes):
		return strings.ToLower(string(runes[:n])) + string(runes[n:])
	default:
		return strings.ToLower(string(runes[:n-1])) + string(runes[n-1:])
	}
}
