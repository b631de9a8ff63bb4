package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"

	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

type goEmitter struct {
	tmpl *template.Template
}

// NewGoEmitter returns the Go emitter.
func NewGoEmitter() Emitter {
	funcs := template.FuncMap{
		"goType":    goType,
		"fieldType": func(f FieldPlan) string {
			if f.Optional && f.Type.Kind == schema.KindNamed {
				return "*" + goType(f.Type)
			}
			return goType(f.Type)
		},
		"jsonTag": func(f FieldPlan) string {
			if f.Optional {
				return fmt.Sprintf("`json:\"%s,omitempty\"`", f.WireName)
			}
			return fmt.Sprintf("`json:\"%s\"`", f.WireName)
		},
		"raw": func(s string) string { return "`" + s + "`" },
	}
	return &goEmitter{
		tmpl: template.Must(template.New("go").Funcs(funcs).Parse(_goTemplate)),
	}
}

func (*goEmitter) Language() string { return "go" }

func (*goEmitter) FileExtension() string { return "go" }

func (e *goEmitter) Emit(p *Plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering %s (%s): %w", p.Model, p.Role, err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting %s (%s): %w", p.Model, p.Role, err)
	}
	return out, nil
}

func goType(t schema.TypeRef) string {
	switch t.Kind {
	case schema.KindVoid:
		return "protocol.Void"
	case schema.KindList:
		return "[]" + goType(*t.Elem)
	case schema.KindPrimitive:
		if t.Name == schema.TypeDouble {
			return "float64"
		}
		return t.Name
	default:
		return t.Name
	}
}

const _goTemplate = `// Code generated by rdgen from {{.Model}} version {{.Version}} ({{.Role}}). DO NOT EDIT.

// Package {{.Package}} is the {{.Role}} side of {{.Model}}.
package {{.Package}}

import (
{{- if eq .Role "asis"}}
	"fmt"
	"strings"
{{- else}}
	"context"
{{- end}}

	"github.com/uber/rd-bridge/src/rd-lib/protocol"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

// Snapshot is the schema snapshot both sides of {{.Model}} are generated from.
var Snapshot = schema.MustParse({{raw .Source}})
{{range .Types}}
// {{.Name}} is a payload of {{$.Model}}.
type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{fieldType .}} {{jsonTag .}}
{{- end}}
}
{{end}}
{{- if eq .Role "asis"}}
{{- range .Nodes}}
// {{.Name}} is the owning side of node {{.Path}}.
type {{.Name}} struct {
{{- range .Properties}}
	{{.Name}} *protocol.Property[{{goType .Type}}]
{{- end}}
{{- range .Requests}}
	{{.Name}} *protocol.Endpoint[{{goType .Request}}, {{goType .Response}}]
{{- end}}
{{- range .Signals}}
	{{.Name}} *protocol.Signal[{{goType .Type}}]
{{- end}}
{{- range .Children}}
	{{.Name}} *{{.Name}}
{{- end}}
}

func new{{.Name}}(conn *protocol.Connection) *{{.Name}} {
	return &{{.Name}}{
{{- $node := .}}
{{- range .Properties}}
		{{.Name}}: protocol.NewProperty[{{goType .Type}}](conn, protocol.PropertyTag({{$node.ID}}, {{.ID}})),
{{- end}}
{{- range .Requests}}
		{{.Name}}: protocol.NewEndpoint[{{goType .Request}}, {{goType .Response}}](conn, protocol.RequestTag({{$node.ID}}, {{.ID}})),
{{- end}}
{{- range .Signals}}
		{{.Name}}: protocol.NewSignal[{{goType .Type}}](conn, protocol.SignalTag({{$node.ID}}, {{.ID}})),
{{- end}}
{{- range .Children}}
		{{.Name}}: new{{.Name}}(conn),
{{- end}}
	}
}

func (n *{{.Name}}) unbound(dst []string) []string {
{{- range .Requests}}
	if !n.{{.Name}}.IsSet() {
		dst = append(dst, "{{$node.Path}}.{{.Name}}")
	}
{{- end}}
{{- range .Children}}
	dst = n.{{.Name}}.unbound(dst)
{{- end}}
	return dst
}
{{end}}
// Server is the owning side of {{.Model}}.
type Server struct {
	*{{.Root.Name}}
	conn *protocol.Connection
}

// NewServer registers every member of {{.Model}} on conn.
func NewServer(conn *protocol.Connection) *Server {
	return &Server{ {{- .Root.Name}}: new{{.Root.Name}}(conn), conn: conn}
}

// Conn returns the underlying connection.
func (s *Server) Conn() *protocol.Connection {
	return s.conn
}

// Unbound lists the requests that have no implementation yet.
func (s *Server) Unbound() []string {
	return s.{{.Root.Name}}.unbound(nil)
}

// Start begins serving once every request has an implementation.
func (s *Server) Start() error {
	if unbound := s.Unbound(); len(unbound) > 0 {
		return fmt.Errorf("{{.Model}}: no implementation for %s", strings.Join(unbound, ", "))
	}
	s.conn.Start()
	return nil
}
{{- else}}
{{- range .Nodes}}
// {{.Name}} is the consuming side of node {{.Path}}.
type {{.Name}} struct {
	conn *protocol.Connection
{{- range .Properties}}
	{{.Name}} *protocol.Property[{{goType .Type}}]
{{- end}}
{{- range .Signals}}
	{{.Name}} *protocol.Signal[{{goType .Type}}]
{{- end}}
{{- range .Children}}
	{{.Name}} *{{.Name}}
{{- end}}
}

func new{{.Name}}(conn *protocol.Connection) *{{.Name}} {
	return &{{.Name}}{
		conn: conn,
{{- $node := .}}
{{- range .Properties}}
		{{.Name}}: protocol.NewProperty[{{goType .Type}}](conn, protocol.PropertyTag({{$node.ID}}, {{.ID}})),
{{- end}}
{{- range .Signals}}
		{{.Name}}: protocol.NewSignal[{{goType .Type}}](conn, protocol.SignalTag({{$node.ID}}, {{.ID}})),
{{- end}}
{{- range .Children}}
		{{.Name}}: new{{.Name}}(conn),
{{- end}}
	}
}
{{range .Requests}}
// {{.Name}} calls {{$node.Path}}.{{.Name}} on the owning side.
func (n *{{$node.Name}}) {{.Name}}(ctx context.Context, req {{goType .Request}}) ({{goType .Response}}, error) {
	return protocol.Call[{{goType .Request}}, {{goType .Response}}](ctx, n.conn, protocol.RequestTag({{$node.ID}}, {{.ID}}), req)
}
{{end}}
{{- end}}
// Client is the consuming side of {{.Model}}.
type Client struct {
	*{{.Root.Name}}
	conn *protocol.Connection
}

// NewClient registers every member of {{.Model}} on conn.
func NewClient(conn *protocol.Connection) *Client {
	return &Client{ {{- .Root.Name}}: new{{.Root.Name}}(conn), conn: conn}
}

// Conn returns the underlying connection.
func (c *Client) Conn() *protocol.Connection {
	return c.conn
}

// Connect starts the connection and negotiates the protocol version.
func (c *Client) Connect(ctx context.Context) error {
	c.conn.Start()
	return c.conn.Handshake(ctx)
}
{{- end}}
`
