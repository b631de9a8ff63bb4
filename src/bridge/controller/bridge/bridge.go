// Package bridge implements the top-level business logic of the daemon: sessions, the IDE model
// and the features it serves.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/controller/documents"
	"github.com/uber/rd-bridge/src/bridge/controller/hostmanager"
	"github.com/uber/rd-bridge/src/bridge/controller/tooltip"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/clock"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/mapper"
	"github.com/uber/rd-bridge/src/bridge/repository/session"
	"github.com/uber/rd-bridge/src/rd-lib/model/formatterclient"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_nameKey              = "bridge"
	_formattingTimeoutKey = "formatting.timeoutMillis"
)

//go:generate mockgen -destination=bridgemock/bridge_mock.go -package=bridgemock github.com/uber/rd-bridge/src/bridge/controller/bridge Controller

// Controller orchestrates the business logic for each IDE connection.
type Controller interface {
	// InitSession creates the session serving an IDE model.
	InitSession(ctx context.Context, server *ide.Server) (uuid.UUID, error)
	// EndSession drops a session and everything it tracked.
	EndSession(ctx context.Context, id uuid.UUID) error

	// Document signals.
	DocumentOpened(ctx context.Context, doc ide.DocumentText) error
	DocumentChanged(ctx context.Context, doc ide.DocumentText) error
	DocumentClosed(ctx context.Context, doc ide.DocumentRef) error

	// Feature requests.
	GetTooltip(ctx context.Context, q ide.ToolTipQuery) (ide.ToolTipResult, error)
	GetXmlDocText(ctx context.Context, doc ide.XmlDoc) (ide.XmlDocText, error)
	FormatDocument(ctx context.Context, req ide.FormatRequest) (ide.FormatResult, error)
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Sessions  session.Repository
	Documents documents.Controller
	Tooltip   tooltip.Controller
	Hosts     hostmanager.Manager
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Config    config.Provider
	Lifecycle fx.Lifecycle
}

type controller struct {
	sessions          session.Repository
	documents         documents.Controller
	tooltip           tooltip.Controller
	hosts             hostmanager.Manager
	clock             clock.Clock
	logger            *zap.SugaredLogger
	stats             tally.Scope
	formattingTimeout time.Duration
}

// New constructs a new top-level controller for the service.
func New(p Params) (Controller, error) {
	var timeoutMillis int64
	if err := p.Config.Get(_formattingTimeoutKey).Populate(&timeoutMillis); err != nil || timeoutMillis <= 0 {
		return nil, fmt.Errorf("unable to get formatting timeout from config: %v", err)
	}

	c := &controller{
		sessions:          p.Sessions,
		documents:         p.Documents,
		tooltip:           p.Tooltip,
		hosts:             p.Hosts,
		clock:             p.Clock,
		logger:            p.Logger.With("plugin", _nameKey),
		stats:             p.Stats.SubScope(_nameKey),
		formattingTimeout: time.Duration(timeoutMillis) * time.Millisecond,
	}
	p.Lifecycle.Append(fx.StopHook(p.Hosts.Observe(c.hostStateChanged)))
	return c, nil
}

func (c *controller) InitSession(ctx context.Context, server *ide.Server) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating session id: %w", err)
	}
	s := &entity.Session{
		UUID:      id,
		Server:    server,
		CreatedAt: c.clock.Now(),
	}
	if err := c.sessions.Set(ctx, s); err != nil {
		return uuid.Nil, fmt.Errorf("saving session: %w", err)
	}

	ctx = mapper.SessionUUIDToContext(ctx, id)
	if err := c.documents.StartSession(ctx); err != nil {
		return uuid.Nil, multierr.Append(fmt.Errorf("starting document tracking: %w", err), c.sessions.Delete(ctx, id))
	}
	if err := server.TypeProvidersHostState.Set(c.hosts.State(hostmanager.TypeProviders).String()); err != nil {
		c.logger.Debugw("unable to publish host state", zap.Error(err))
	}

	c.stats.Counter("sessions_started").Inc(1)
	c.logger.Infow("session started", "session", id.String())
	return id, nil
}

func (c *controller) EndSession(ctx context.Context, id uuid.UUID) error {
	ctx = mapper.SessionUUIDToContext(ctx, id)
	err := multierr.Combine(
		c.documents.EndSession(ctx, id),
		c.sessions.Delete(ctx, id),
	)
	c.stats.Counter("sessions_ended").Inc(1)
	c.logger.Infow("session ended", "session", id.String(), zap.Error(err))
	return err
}

func (c *controller) DocumentOpened(ctx context.Context, doc ide.DocumentText) error {
	u, err := mapper.IdeDocumentURI(doc.URI)
	if err != nil {
		return err
	}
	return c.documents.Open(ctx, u, doc.Version, doc.Text)
}

func (c *controller) DocumentChanged(ctx context.Context, doc ide.DocumentText) error {
	u, err := mapper.IdeDocumentURI(doc.URI)
	if err != nil {
		return err
	}
	return c.documents.Change(ctx, u, doc.Version, doc.Text)
}

func (c *controller) DocumentClosed(ctx context.Context, doc ide.DocumentRef) error {
	u, err := mapper.IdeDocumentURI(doc.URI)
	if err != nil {
		return err
	}
	return c.documents.Close(ctx, u)
}

func (c *controller) GetTooltip(ctx context.Context, q ide.ToolTipQuery) (ide.ToolTipResult, error) {
	query, err := mapper.IdeToolTipQueryToEntity(q)
	if err != nil {
		return ide.ToolTipResult{}, err
	}
	return ide.ToolTipResult{Text: c.tooltip.GetTooltip(ctx, query)}, nil
}

func (c *controller) GetXmlDocText(ctx context.Context, doc ide.XmlDoc) (ide.XmlDocText, error) {
	d, err := mapper.IdeXmlDocToEntity(doc)
	if err != nil {
		return ide.XmlDocText{}, err
	}
	text, ok := c.tooltip.GetXmlDocText(d)
	return ide.XmlDocText{Text: text, Found: ok}, nil
}

// FormatDocument runs the formatter host. When it cannot, the text comes back unchanged.
func (c *controller) FormatDocument(ctx context.Context, req ide.FormatRequest) (ide.FormatResult, error) {
	u, err := mapper.IdeDocumentURI(req.URI)
	if err != nil {
		return ide.FormatResult{}, err
	}
	unchanged := ide.FormatResult{Text: req.Text}

	ctx, cancel := context.WithTimeout(ctx, c.formattingTimeout)
	defer cancel()

	client, err := c.hosts.Formatter(ctx)
	if err != nil {
		c.formattingFailed(u.Filename(), err)
		return unchanged, nil
	}
	out, err := client.FormatDocument(ctx, formatterclient.FormatArgs{
		FileName: u.Filename(),
		Text:     req.Text,
	})
	if err != nil {
		c.formattingFailed(u.Filename(), err)
		return unchanged, nil
	}

	c.stats.Counter("formatted").Inc(1)
	return ide.FormatResult{
		Text:      out.Text,
		Formatted: true,
		Edits:     mapper.FormatterEditsToIde(out.Edits),
	}, nil
}

func (c *controller) formattingFailed(file string, err error) {
	if errors.IsCapabilityUnavailable(err) {
		c.stats.Counter("formatter_unavailable").Inc(1)
		c.logger.Debugw("formatter unavailable", "file", file, zap.Error(err))
		return
	}
	c.stats.Counter("formatting_failures").Inc(1)
	c.logger.Warnw("formatting failed", "file", file, zap.Error(err))
}

// hostStateChanged replicates the state of the type-provider host into every IDE model. It runs
// while the host is locked.
func (c *controller) hostStateChanged(capability hostmanager.Capability, state hostmanager.State) {
	if capability != hostmanager.TypeProviders {
		return
	}
	sessions, err := c.sessions.GetAll(context.Background())
	if err != nil {
		c.logger.Warnw("unable to list sessions", zap.Error(err))
		return
	}
	for _, s := range sessions {
		if s.Server == nil {
			continue
		}
		if err := s.Server.TypeProvidersHostState.Set(state.String()); err != nil {
			c.logger.Debugw("unable to publish host state", "session", s.UUID.String(), zap.Error(err))
		}
	}
}
