// Package documents tracks the documents open in each session and whether the analysis data for
// them has caught up with the latest edit.
package documents

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/compiler"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/repository/session"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey        = "documents"
	_maxFileSizeKey = "documents.maxFileSizeBytes"
)

//go:generate mockgen -destination=documentsmock/documents_mock.go -package=documentsmock github.com/uber/rd-bridge/src/bridge/controller/documents Controller

// Controller defines the interface for the document tracker.
type Controller interface {
	// StartSession adds an empty document set for the session in ctx.
	StartSession(ctx context.Context) error
	// EndSession drops every document of a session.
	EndSession(ctx context.Context, id uuid.UUID) error

	// Open starts tracking a document. It stays dirty until its first analysis completes.
	Open(ctx context.Context, u uri.URI, version int32, text string) error
	// Change replaces the text of an open document and marks it dirty.
	Change(ctx context.Context, u uri.URI, version int32, text string) error
	// Close stops tracking a document.
	Close(ctx context.Context, u uri.URI) error

	// Get returns the tracked state of a document.
	Get(ctx context.Context, u uri.URI) (entity.Document, error)
	// AllCommitted reports whether every document of the session in ctx has been analysed at its
	// latest version. Unknown sessions are never committed.
	AllCommitted(ctx context.Context) bool
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Sessions  session.Repository
	Compiler  compiler.Service
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Config    config.Provider
	Lifecycle fx.Lifecycle
}

type documentStore map[uuid.UUID]map[uri.URI]*entity.Document

type controller struct {
	sessions         session.Repository
	compiler         compiler.Service
	logger           *zap.SugaredLogger
	stats            tally.Scope
	maxFileSizeBytes int64

	documents   documentStore
	documentsMu sync.RWMutex

	// ctx bounds the background refreshes; it is cancelled on stop.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new document tracker.
func New(p Params) (Controller, error) {
	var maxFileSizeBytes int64
	if err := p.Config.Get(_maxFileSizeKey).Populate(&maxFileSizeBytes); err != nil || maxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("unable to get maximum file size from config: %v", err)
	}

	c := newController(p.Sessions, p.Compiler, p.Logger, p.Stats, maxFileSizeBytes)
	p.Lifecycle.Append(fx.StopHook(c.stop))
	return c, nil
}

func newController(sessions session.Repository, svc compiler.Service, logger *zap.SugaredLogger, stats tally.Scope, maxFileSizeBytes int64) *controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &controller{
		sessions:         sessions,
		compiler:         svc,
		logger:           logger.With("plugin", _nameKey),
		stats:            stats.SubScope(_nameKey),
		maxFileSizeBytes: maxFileSizeBytes,
		documents:        make(documentStore),
		ctx:              ctx,
		cancel:           cancel,
	}
}

func (c *controller) stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *controller) StartSession(ctx context.Context) error {
	defer c.updateMetrics()
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return err
	}

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	c.documents[s.UUID] = make(map[uri.URI]*entity.Document)
	return nil
}

func (c *controller) EndSession(ctx context.Context, id uuid.UUID) error {
	defer c.updateMetrics()

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	docs := c.documents[id]
	delete(c.documents, id)
	for u := range docs {
		c.forgetIfUnused(u)
	}
	return nil
}

func (c *controller) Open(ctx context.Context, u uri.URI, version int32, text string) error {
	defer c.updateMetrics()
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return err
	}

	if err := c.validateSize(text); err != nil {
		// Oversized documents are expected occasionally; tooltips on them will simply be empty.
		c.logger.Warnw("unable to track open document", "uri", u, zap.Error(err))
		return nil
	}

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	docs, ok := c.documents[s.UUID]
	if !ok {
		return &errors.UUIDNotFoundError{UUID: s.UUID}
	}

	doc := &entity.Document{URI: u, Version: version, Text: text, Committed: version - 1}
	docs[u] = doc
	c.schedule(s.UUID, *doc)
	return nil
}

func (c *controller) Change(ctx context.Context, u uri.URI, version int32, text string) error {
	defer c.updateMetrics()
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return err
	}

	if err := c.validateSize(text); err != nil {
		return fmt.Errorf("unable to add changes to document %q: %w", u, err)
	}

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	doc, err := c.lookup(s.UUID, u)
	if err != nil {
		return err
	}
	if version <= doc.Version {
		return &errors.DocumentOutdatedError{URI: u, Current: doc.Version, Update: version}
	}

	doc.Version = version
	doc.Text = text
	c.schedule(s.UUID, *doc)
	return nil
}

func (c *controller) Close(ctx context.Context, u uri.URI) error {
	defer c.updateMetrics()
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return err
	}

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	if _, ok := c.documents[s.UUID][u]; !ok {
		return nil
	}
	delete(c.documents[s.UUID], u)
	c.forgetIfUnused(u)
	return nil
}

func (c *controller) Get(ctx context.Context, u uri.URI) (entity.Document, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return entity.Document{}, err
	}

	c.documentsMu.RLock()
	defer c.documentsMu.RUnlock()
	doc, err := c.lookup(s.UUID, u)
	if err != nil {
		return entity.Document{}, err
	}
	return *doc, nil
}

func (c *controller) AllCommitted(ctx context.Context) bool {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return false
	}

	c.documentsMu.RLock()
	defer c.documentsMu.RUnlock()
	docs, ok := c.documents[s.UUID]
	if !ok {
		return false
	}
	for _, doc := range docs {
		if doc.Dirty() {
			return false
		}
	}
	return true
}

// lookup must be called with documentsMu held.
func (c *controller) lookup(id uuid.UUID, u uri.URI) (*entity.Document, error) {
	docs, ok := c.documents[id]
	if !ok {
		return nil, &errors.UUIDNotFoundError{UUID: id}
	}
	doc, ok := docs[u]
	if !ok {
		return nil, &errors.DocumentNotFoundError{URI: u}
	}
	return doc, nil
}

// schedule refreshes the analysis of doc in the background and commits it if no newer edit
// arrived meanwhile. Must be called with documentsMu held.
func (c *controller) schedule(id uuid.UUID, doc entity.Document) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.compiler.Refresh(c.ctx, doc.URI, doc.Version, doc.Text)
		if err != nil {
			c.stats.Counter("refresh_failures").Inc(1)
			c.logger.Warnw("refreshing analysis", "uri", doc.URI, "version", doc.Version, zap.Error(err))
		}
		c.commit(id, doc.URI, doc.Version, err)
	}()
}

func (c *controller) commit(id uuid.UUID, u uri.URI, version int32, refreshErr error) {
	defer c.updateMetrics()

	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	doc, ok := c.documents[id][u]
	if !ok || doc.Version != version {
		return
	}
	if refreshErr != nil {
		// Without an analysis for this version there is nothing to answer from, so drop the stale one.
		c.compiler.Forget(u)
	}
	doc.Committed = version
}

// forgetIfUnused must be called with documentsMu held.
func (c *controller) forgetIfUnused(u uri.URI) {
	for _, docs := range c.documents {
		if _, ok := docs[u]; ok {
			return
		}
	}
	c.compiler.Forget(u)
}

func (c *controller) validateSize(text string) error {
	size := int64(len(text))
	if size > c.maxFileSizeBytes {
		return &errors.DocumentSizeLimitError{Size: size}
	}
	return nil
}

func (c *controller) updateMetrics() {
	c.documentsMu.RLock()
	defer c.documentsMu.RUnlock()

	openDocs, openBytes, dirtyDocs := 0, 0, 0
	for _, sessionDocs := range c.documents {
		openDocs += len(sessionDocs)
		for _, doc := range sessionDocs {
			openBytes += len(doc.Text)
			if doc.Dirty() {
				dirtyDocs++
			}
		}
	}
	c.stats.Gauge("open_docs").Update(float64(openDocs))
	c.stats.Gauge("open_bytes").Update(float64(openBytes))
	c.stats.Gauge("dirty_docs").Update(float64(dirtyDocs))
}
