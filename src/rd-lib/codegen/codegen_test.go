package codegen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

const _sample = `name: SampleModel
package: sample
version: 2
root:
  id: 1
  name: SampleModel
  properties:
    - {id: 1, name: State, type: string}
  requests:
    - {id: 2, name: Echo, request: EchoArgs, response: EchoResult}
  signals:
    - {id: 3, name: Changed, type: list<string>}
  children:
    - id: 2
      name: Child
      requests:
        - {id: 1, name: Ping, request: void, response: bool}
types:
  - name: EchoArgs
    fields:
      - {name: Text, type: string}
      - {name: Nested, type: EchoResult, optional: true}
  - name: EchoResult
    fields:
      - {name: Text, type: string}
      - {name: Score, type: double, optional: true}
`

func mustGenerate(t *testing.T, role Role) []byte {
	t.Helper()
	e, err := Lookup("go")
	require.NoError(t, err)
	out, err := Generate(schema.MustParse(_sample), role, e)
	require.NoError(t, err)
	return out
}

func snapshotOf(t *testing.T, src []byte) *schema.Schema {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "stub.go", src, parser.ParseComments)
	require.NoError(t, err)

	var text string
	ast.Inspect(f, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok || spec.Names[0].Name != "Snapshot" {
			return true
		}
		lit := spec.Values[0].(*ast.CallExpr).Args[0].(*ast.BasicLit)
		text, err = strconv.Unquote(lit.Value)
		require.NoError(t, err)
		return false
	})
	s, err := schema.Parse([]byte(text))
	require.NoError(t, err)
	return s
}

func TestGenerateAsis(t *testing.T) {
	out := mustGenerate(t, RoleAsis)
	src := string(out)

	assert.True(t, strings.HasPrefix(src, "// Code generated by rdgen from SampleModel version 2 (asis). DO NOT EDIT.\n"))
	assert.Contains(t, src, "package sample\n")
	assert.Contains(t, src, "type Server struct {")
	assert.Contains(t, src, "protocol.NewEndpoint[EchoArgs, EchoResult](conn, protocol.RequestTag(1, 2))")
	assert.Contains(t, src, "protocol.NewEndpoint[protocol.Void, bool](conn, protocol.RequestTag(2, 1))")
	assert.Contains(t, src, "protocol.NewSignal[[]string](conn, protocol.SignalTag(1, 3))")
	assert.Contains(t, src, "protocol.NewProperty[string](conn, protocol.PropertyTag(1, 1))")
	assert.Contains(t, src, `dst = append(dst, "SampleModel.Child.Ping")`)
	assert.Contains(t, src, "Nested *EchoResult `json:\"nested,omitempty\"`")
	assert.Contains(t, src, "float64 `json:\"score,omitempty\"`")
	assert.NotContains(t, src, "func (n *SampleModel) Echo(")
}

func TestGenerateReversed(t *testing.T) {
	out := mustGenerate(t, RoleReversed)
	src := string(out)

	assert.Contains(t, src, "package sampleclient\n")
	assert.Contains(t, src, "type Client struct {")
	assert.Contains(t, src, "func (n *SampleModel) Echo(ctx context.Context, req EchoArgs) (EchoResult, error) {")
	assert.Contains(t, src, "func (n *Child) Ping(ctx context.Context, req protocol.Void) (bool, error) {")
	assert.NotContains(t, src, "protocol.NewEndpoint")
}

func TestGenerateIsDeterministic(t *testing.T) {
	for _, role := range []Role{RoleAsis, RoleReversed} {
		t.Run(string(role), func(t *testing.T) {
			assert.Equal(t, mustGenerate(t, role), mustGenerate(t, role))
		})
	}
}

func TestPairCarriesIdenticalSnapshot(t *testing.T) {
	asis := snapshotOf(t, mustGenerate(t, RoleAsis))
	reversed := snapshotOf(t, mustGenerate(t, RoleReversed))

	want := schema.MustParse(_sample).Fingerprint()
	assert.Equal(t, want, asis.Fingerprint())
	assert.Equal(t, want, reversed.Fingerprint())
}

func TestNewPlan(t *testing.T) {
	p, err := NewPlan(schema.MustParse(_sample), RoleAsis)
	require.NoError(t, err)

	assert.Equal(t, "SampleModel", p.Root.Name)
	assert.True(t, p.Root.IsRoot)
	require.Len(t, p.Nodes, 2)
	assert.Equal(t, "SampleModel.Child", p.Nodes[1].Path)
	assert.True(t, p.HasRequests())
	assert.Equal(t, "nested", p.Types[0].Fields[1].WireName)

	t.Run("node name clashes with a type", func(t *testing.T) {
		clash := strings.Replace(_sample, "name: Child", "name: EchoArgs", 1)
		_, err := NewPlan(schema.MustParse(clash), RoleAsis)
		assert.ErrorContains(t, err, "clashes")
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := NewPlan(schema.MustParse(_sample), Role("sideways"))
		assert.Error(t, err)
	})
}

func TestWireName(t *testing.T) {
	tests := map[string]string{
		"URI":      "uri",
		"LineText": "lineText",
		"XMLDoc":   "xmlDoc",
		"PID":      "pid",
		"Text":     "text",
		"already":  "already",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, WireName(in))
		})
	}
}

func TestLookup(t *testing.T) {
	e, err := Lookup("go")
	require.NoError(t, err)
	assert.Equal(t, "go", e.FileExtension())
	assert.Contains(t, Languages(), "go")

	_, err = Lookup("kotlin")
	assert.Error(t, err)
	assert.Panics(t, func() { Register(NewGoEmitter()) })
}

func TestCheck(t *testing.T) {
	fresh := mustGenerate(t, RoleAsis)
	assert.Empty(t, Check(fresh, fresh))

	stale := strings.Replace(string(fresh), "version 2", "version 1", 1)
	diff := Check([]byte(stale), fresh)
	assert.Contains(t, diff, "-// Code generated by rdgen from SampleModel version 1 (asis). DO NOT EDIT.\n")
	assert.Contains(t, diff, "+// Code generated by rdgen from SampleModel version 2 (asis). DO NOT EDIT.\n")
	assert.Equal(t, 2, strings.Count(diff, "\n"))
}
