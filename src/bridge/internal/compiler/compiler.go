// Package compiler is the in-process analysis service the tooltip provider consults. It keeps one
// type-checked snapshot per open document and answers symbol queries from it.
package compiler

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/rd-lib/textedit"
	"go.lsp.dev/uri"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the compiler Service.
var Module = fx.Provide(New)

//go:generate mockgen -destination=compilermock/compiler_mock.go -package=compilermock github.com/uber/rd-bridge/src/bridge/internal/compiler Service

// Service answers symbol queries about open documents.
type Service interface {
	// Refresh re-analyses a document. Versions older than the cached one are ignored.
	Refresh(ctx context.Context, u uri.URI, version int32, text string) error
	// Forget drops the analysis of a closed document.
	Forget(u uri.URI)
	// ToolTip describes the symbol at the query position. It honours ctx cancellation.
	ToolTip(ctx context.Context, q entity.ToolTipQuery) ([]entity.ToolTipElement, error)
}

// Params are the dependencies of the Service.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type analysis struct {
	version int32
	mapper  *textedit.Mapper
	tokFile *token.File
	file    *ast.File
	pkg     *types.Package
	info    *types.Info
	docs    map[token.Pos]string
}

type service struct {
	logger *zap.SugaredLogger
	stats  tally.Scope

	fset *token.FileSet
	// checkMu serialises type checking: the source importer is not safe for concurrent use.
	checkMu  sync.Mutex
	importer types.Importer

	mu    sync.RWMutex
	cache map[uri.URI]*analysis
}

// New creates a Service that type checks with imports resolved from source.
func New(p Params) Service {
	fset := token.NewFileSet()
	return newService(p, fset, importer.ForCompiler(fset, "source", nil))
}

func newService(p Params, fset *token.FileSet, imp types.Importer) *service {
	return &service{
		logger:   p.Logger.With("component", "compiler"),
		stats:    p.Stats.SubScope("compiler"),
		fset:     fset,
		importer: imp,
		cache:    make(map[uri.URI]*analysis),
	}
}

func (s *service) Refresh(ctx context.Context, u uri.URI, version int32, text string) error {
	s.mu.RLock()
	cached, ok := s.cache[u]
	s.mu.RUnlock()
	if ok && cached.version >= version {
		return nil
	}

	a, err := s.analyse(ctx, u, version, text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[u]; ok {
		if cached.version >= version {
			s.release(a)
			return nil
		}
		s.release(cached)
	}
	s.cache[u] = a
	s.stats.Gauge("documents").Update(float64(len(s.cache)))
	return nil
}

// release drops the analysis' file from the shared file set, which otherwise grows with every edit.
func (s *service) release(a *analysis) {
	if a.tokFile != nil {
		s.fset.RemoveFile(a.tokFile)
	}
}

func (s *service) analyse(ctx context.Context, u uri.URI, version int32, text string) (*analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sw := s.stats.Timer("refresh").Start()
	defer sw.Stop()

	filename := u.Filename()
	file, err := parser.ParseFile(s.fset, filename, text, parser.ParseComments|parser.AllErrors)
	if file == nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	tokFile := s.fset.File(file.FileStart)
	if file.Package == token.NoPos {
		if tokFile != nil {
			s.fset.RemoveFile(tokFile)
		}
		return nil, fmt.Errorf("parsing %s: missing package clause", filename)
	}
	if err != nil {
		s.logger.Debugw("analysing a document with syntax errors", "uri", u, zap.Error(err))
	}

	info := &types.Info{
		Defs:      make(map[*ast.Ident]types.Object),
		Uses:      make(map[*ast.Ident]types.Object),
		Implicits: make(map[ast.Node]types.Object),
	}
	var typeErrors int
	conf := types.Config{
		Importer: s.importer,
		Error:    func(error) { typeErrors++ },
	}

	s.checkMu.Lock()
	pkg, _ := conf.Check(file.Name.Name, s.fset, []*ast.File{file}, info)
	s.checkMu.Unlock()

	if err := ctx.Err(); err != nil {
		s.fset.RemoveFile(tokFile)
		return nil, err
	}
	if typeErrors > 0 {
		s.logger.Debugw("type errors", "uri", u, "count", typeErrors)
	}

	return &analysis{
		version: version,
		mapper:  textedit.NewMapper([]byte(text)),
		tokFile: tokFile,
		file:    file,
		pkg:     pkg,
		info:    info,
		docs:    collectDocs(file),
	}, nil
}

func (s *service) Forget(u uri.URI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.cache[u]; ok {
		s.release(a)
	}
	delete(s.cache, u)
	s.stats.Gauge("documents").Update(float64(len(s.cache)))
}

func (s *service) ToolTip(ctx context.Context, q entity.ToolTipQuery) ([]entity.ToolTipElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	a, ok := s.cache[q.Document.URI]
	s.mu.RUnlock()
	if !ok {
		return nil, &errors.DocumentNotFoundError{URI: q.Document.URI}
	}

	offset, err := a.mapper.Offset(q.Position)
	if err != nil {
		return nil, err
	}
	// The query points at the end of the token.
	if offset > 0 {
		offset--
	}
	if offset >= a.tokFile.Size() {
		return nil, nil
	}
	pos := a.tokFile.Pos(offset)

	switch q.TokenKind {
	case entity.TokenKeyword:
		return nil, nil
	case entity.TokenString:
		return a.importToolTip(pos), nil
	}

	id := identAt(a.file, pos)
	if id == nil {
		return nil, nil
	}
	if want := q.Identifier(); want != "" && want != id.Name {
		return []entity.ToolTipElement{entity.ToolTipErrorOf(fmt.Sprintf("expected %q at the cursor, found %q", want, id.Name))}, nil
	}

	obj := a.info.Defs[id]
	if obj == nil {
		obj = a.info.Uses[id]
	}
	if obj == nil {
		return []entity.ToolTipElement{entity.NoToolTip()}, nil
	}

	overload := entity.Overload{
		MainDescription: types.ObjectString(obj, types.RelativeTo(a.pkg)),
		XmlDoc:          entity.NoXmlDoc(),
	}
	if doc := a.docs[obj.Pos()]; doc != "" {
		overload.XmlDoc = entity.XmlDocTextOf(doc)
	}
	return []entity.ToolTipElement{entity.ToolTipGroupOf(overload)}, nil
}

func (a *analysis) importToolTip(pos token.Pos) []entity.ToolTipElement {
	for _, spec := range a.file.Imports {
		if spec.Path.Pos() > pos || pos >= spec.Path.End() {
			continue
		}
		var obj types.Object
		if spec.Name != nil {
			obj = a.info.Defs[spec.Name]
		} else {
			obj = a.info.Implicits[spec]
		}
		if pkgName, ok := obj.(*types.PkgName); ok {
			return []entity.ToolTipElement{entity.ToolTipGroupOf(entity.Overload{
				MainDescription: "package " + pkgName.Imported().Path(),
				XmlDoc:          entity.NoXmlDoc(),
			})}
		}
		return []entity.ToolTipElement{entity.ToolTipErrorOf("unresolved import " + spec.Path.Value)}
	}
	return nil
}

func identAt(file *ast.File, pos token.Pos) *ast.Ident {
	var found *ast.Ident
	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil || found != nil {
			return false
		}
		if pos < n.Pos() || pos >= n.End() {
			return false
		}
		if id, ok := n.(*ast.Ident); ok {
			found = id
			return false
		}
		return true
	})
	return found
}

// collectDocs maps the position of every declared name to its doc comment.
func collectDocs(file *ast.File) map[token.Pos]string {
	docs := make(map[token.Pos]string)
	add := func(names []*ast.Ident, groups ...*ast.CommentGroup) {
		for _, g := range groups {
			if text := strings.TrimSpace(g.Text()); text != "" {
				for _, n := range names {
					docs[n.Pos()] = text
				}
				return
			}
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			add([]*ast.Ident{n.Name}, n.Doc)
		case *ast.GenDecl:
			for _, spec := range n.Specs {
				var groupDoc *ast.CommentGroup
				if len(n.Specs) == 1 {
					groupDoc = n.Doc
				}
				switch spec := spec.(type) {
				case *ast.TypeSpec:
					add([]*ast.Ident{spec.Name}, spec.Doc, groupDoc, spec.Comment)
				case *ast.ValueSpec:
					add(spec.Names, spec.Doc, groupDoc, spec.Comment)
				}
			}
		case *ast.Field:
			add(n.Names, n.Doc, n.Comment)
		}
		return true
	})
	return docs
}
