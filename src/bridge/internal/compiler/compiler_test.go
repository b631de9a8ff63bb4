package compiler

import (
	"context"
	"fmt"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/factory"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

const _file = "/src/main.go"

const _source = `package main

import "example.com/greet"

// Answer is the answer.
const Answer = 42

// Point is a point in the plane.
type Point struct {
	// X is the abscissa.
	X int
	Y int // Y is the ordinate.
}

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}

func main() {
	p := Point{X: Answer}
	_ = Add(p.X, p.Y)
	_ = greet.Hello("x")
}
`

type fakeImporter map[string]*types.Package

func (f fakeImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := f[path]; ok {
		return pkg, nil
	}
	return nil, fmt.Errorf("package %q not found", path)
}

func greetPackage() *types.Package {
	pkg := types.NewPackage("example.com/greet", "greet")
	sig := types.NewSignatureType(nil, nil, nil,
		types.NewTuple(types.NewVar(token.NoPos, pkg, "name", types.Typ[types.String])),
		types.NewTuple(types.NewVar(token.NoPos, pkg, "", types.Typ[types.String])),
		false)
	pkg.Scope().Insert(types.NewFunc(token.NoPos, pkg, "Hello", sig))
	pkg.MarkComplete()
	return pkg
}

func newTestService(t *testing.T) *service {
	s := newService(Params{Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope}, token.NewFileSet(),
		fakeImporter{"example.com/greet": greetPackage()})
	require.NoError(t, s.Refresh(context.Background(), uri.File(_file), 1, _source))
	return s
}

func TestToolTip(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name     string
		query    entity.ToolTipQuery
		wantDesc string
		wantDoc  entity.XmlDoc
	}{
		{
			name:     "function use",
			query:    factory.ToolTipQuery(_file, 21, 8, "Add"),
			wantDesc: "func Add(a int, b int) int",
			wantDoc:  entity.XmlDocTextOf("Add returns the sum of a and b."),
		},
		{
			name:     "type definition",
			query:    factory.ToolTipQuery(_file, 8, 10, "Point"),
			wantDesc: "type Point struct{X int; Y int}",
			wantDoc:  entity.XmlDocTextOf("Point is a point in the plane."),
		},
		{
			name:     "field with doc comment",
			query:    factory.ToolTipQuery(_file, 21, 12, "p", "X"),
			wantDesc: "field X int",
			wantDoc:  entity.XmlDocTextOf("X is the abscissa."),
		},
		{
			name:     "field with line comment",
			query:    factory.ToolTipQuery(_file, 21, 17, "p", "Y"),
			wantDesc: "field Y int",
			wantDoc:  entity.XmlDocTextOf("Y is the ordinate."),
		},
		{
			name:     "local variable",
			query:    factory.ToolTipQuery(_file, 21, 10, "p"),
			wantDesc: "var p Point",
			wantDoc:  entity.NoXmlDoc(),
		},
		{
			name:     "imported function",
			query:    factory.ToolTipQuery(_file, 22, 16, "greet", "Hello"),
			wantDesc: "func example.com/greet.Hello(name string) string",
			wantDoc:  entity.NoXmlDoc(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ToolTip(context.Background(), tt.query)
			require.NoError(t, err)
			require.Len(t, got, 1)
			require.Equal(t, entity.ToolTipGroup, got[0].Kind)
			require.Len(t, got[0].Overloads, 1)
			assert.Equal(t, tt.wantDesc, got[0].Overloads[0].MainDescription)
			assert.Equal(t, tt.wantDoc, got[0].Overloads[0].XmlDoc)
		})
	}
}

func TestToolTipConstant(t *testing.T) {
	s := newTestService(t)

	got, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 20, 21, "Answer"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Overloads[0].MainDescription, "const Answer")
	assert.Equal(t, entity.XmlDocTextOf("Answer is the answer."), got[0].Overloads[0].XmlDoc)
}

func TestToolTipImportPath(t *testing.T) {
	s := newTestService(t)

	q := factory.ToolTipQuery(_file, 2, 26)
	q.TokenKind = entity.TokenString
	got, err := s.ToolTip(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "package example.com/greet", got[0].Overloads[0].MainDescription)
}

func TestToolTipWithoutSymbol(t *testing.T) {
	s := newTestService(t)

	t.Run("keyword", func(t *testing.T) {
		q := factory.ToolTipQuery(_file, 15, 4, "func")
		q.TokenKind = entity.TokenKeyword
		got, err := s.ToolTip(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("blank line", func(t *testing.T) {
		got, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 13, 0))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("name mismatch", func(t *testing.T) {
		got, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 21, 8, "Sub"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, entity.ToolTipCompositionError, got[0].Kind)
		assert.Contains(t, got[0].Error, `found "Add"`)
	})
}

func TestToolTipErrors(t *testing.T) {
	s := newTestService(t)

	t.Run("unknown document", func(t *testing.T) {
		_, err := s.ToolTip(context.Background(), factory.ToolTipQuery("/src/other.go", 0, 0))
		var nf *errors.DocumentNotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.ToolTip(ctx, factory.ToolTipQuery(_file, 21, 8, "Add"))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("position outside the document", func(t *testing.T) {
		_, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 400, 0))
		assert.Error(t, err)
	})
}

func TestRefresh(t *testing.T) {
	s := newTestService(t)
	u := uri.File(_file)

	t.Run("older versions are ignored", func(t *testing.T) {
		require.NoError(t, s.Refresh(context.Background(), u, 3, "package main\n\nvar Renamed = 1\n"))
		require.NoError(t, s.Refresh(context.Background(), u, 2, _source))

		got, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 2, 11, "Renamed"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "var Renamed int", got[0].Overloads[0].MainDescription)
	})

	t.Run("syntax errors keep a partial analysis", func(t *testing.T) {
		assert.NoError(t, s.Refresh(context.Background(), uri.File("/src/broken.go"), 1, "package main\n\nfunc broken( {\n"))
	})

	t.Run("missing package clause", func(t *testing.T) {
		assert.ErrorContains(t, s.Refresh(context.Background(), uri.File("/src/nopkg.go"), 1, "func x() {}\n"), "missing package clause")
		_, err := s.ToolTip(context.Background(), factory.ToolTipQuery("/src/nopkg.go", 0, 6, "x"))
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, s.Refresh(ctx, uri.File("/src/new.go"), 1, "package main\n"), context.Canceled)
	})

	t.Run("forget", func(t *testing.T) {
		s.Forget(u)
		_, err := s.ToolTip(context.Background(), factory.ToolTipQuery(_file, 2, 11, "Renamed"))
		assert.Error(t, err)
	})
}

func TestRefreshReleasesFiles(t *testing.T) {
	s := newTestService(t)
	u := uri.File(_file)
	files := func() int {
		n := 0
		s.fset.Iterate(func(*token.File) bool {
			n++
			return true
		})
		return n
	}
	require.Equal(t, 1, files())

	for v := int32(2); v <= 5; v++ {
		require.NoError(t, s.Refresh(context.Background(), u, v, _source))
	}
	assert.Equal(t, 1, files())

	assert.Error(t, s.Refresh(context.Background(), uri.File("/src/nopkg.go"), 1, "func x() {}\n"))
	assert.Equal(t, 1, files())

	s.Forget(u)
	assert.Equal(t, 0, files())
}

func TestNew(t *testing.T) {
	s := New(Params{Logger: zap.NewNop().Sugar(), Stats: tally.NoopScope})
	require.NoError(t, s.Refresh(context.Background(), uri.File("/src/lib.go"), 1, "package lib\n\n// Two is two.\nconst Two = 2\n"))

	got, err := s.ToolTip(context.Background(), factory.ToolTipQuery("/src/lib.go", 3, 9, "Two"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.XmlDocTextOf("Two is two."), got[0].Overloads[0].XmlDoc)
}
