// Package tooltip builds the hover tooltips of the IDE from the in-process compiler and the
// type-provider host.
package tooltip

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/rd-bridge/src/bridge/controller/documents"
	"github.com/uber/rd-bridge/src/bridge/controller/hostmanager"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/compiler"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/internal/fs"
	"github.com/uber/rd-bridge/src/bridge/internal/syncsafe"
	"github.com/uber/rd-bridge/src/bridge/repository/session"
	"github.com/uber/rd-bridge/src/rd-lib/model/typeprovidersclient"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	_nameKey                 = "tooltip"
	_separatorKey            = "tooltip.separator"
	_typeProvidersTimeoutKey = "typeProviders.timeoutMillis"

	_label = "Getting tooltip"
)

//go:generate mockgen -destination=tooltipmock/tooltip_mock.go -package=tooltipmock github.com/uber/rd-bridge/src/bridge/controller/tooltip Controller

// Controller answers hover requests.
type Controller interface {
	// GetTooltip returns the text to show for q, or an empty string when there is nothing to show or
	// the analysis data of the session in ctx is not committed yet.
	GetTooltip(ctx context.Context, q entity.ToolTipQuery) string
	// GetXmlDocText returns the text of a documentation reference.
	GetXmlDocText(doc entity.XmlDoc) (string, bool)
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Sessions  session.Repository
	Documents documents.Controller
	Compiler  compiler.Service
	Hosts     hostmanager.Manager
	Adapter   *syncsafe.Adapter
	FS        fs.BridgeFS
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Config    config.Provider
}

// Settings tune how a tooltip is built.
type Settings struct {
	Budget               time.Duration
	Separator            string
	TypeProvidersTimeout time.Duration
}

type controller struct {
	sessions  session.Repository
	documents documents.Controller
	compiler  compiler.Service
	hosts     hostmanager.Manager
	adapter   *syncsafe.Adapter
	fs        fs.BridgeFS
	logger    *zap.SugaredLogger
	stats     tally.Scope
	settings  Settings

	xmlDocsMu sync.Mutex
	xmlDocs   map[string]map[string]string
}

// New creates a new tooltip controller.
func New(p Params) (Controller, error) {
	var cfg struct {
		BudgetMillis int    `yaml:"budgetMillis"`
		Separator    string `yaml:"separator"`
	}
	if err := p.Config.Get(_nameKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("reading %s: %w", _nameKey, err)
	}
	if cfg.Separator == "" {
		return nil, fmt.Errorf("%s must not be empty", _separatorKey)
	}
	var providersTimeoutMillis int
	if err := p.Config.Get(_typeProvidersTimeoutKey).Populate(&providersTimeoutMillis); err != nil {
		return nil, fmt.Errorf("reading %s: %w", _typeProvidersTimeoutKey, err)
	}

	return newController(p, Settings{
		Budget:               time.Duration(cfg.BudgetMillis) * time.Millisecond,
		Separator:            cfg.Separator,
		TypeProvidersTimeout: time.Duration(providersTimeoutMillis) * time.Millisecond,
	}), nil
}

func newController(p Params, settings Settings) *controller {
	if settings.TypeProvidersTimeout <= 0 {
		settings.TypeProvidersTimeout = syncsafe.DefaultBudget
	}
	return &controller{
		sessions:  p.Sessions,
		documents: p.Documents,
		compiler:  p.Compiler,
		hosts:     p.Hosts,
		adapter:   p.Adapter,
		fs:        p.FS,
		logger:    p.Logger.With("plugin", _nameKey),
		stats:     p.Stats.SubScope(_nameKey),
		settings:  settings,
		xmlDocs:   make(map[string]map[string]string),
	}
}

func (c *controller) GetTooltip(ctx context.Context, q entity.ToolTipQuery) string {
	c.stats.Counter("requests").Inc(1)
	ready := func() bool { return c.documents.AllCommitted(ctx) }
	if !ready() {
		c.stats.Counter("not_ready").Inc(1)
		return ""
	}

	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		c.logger.Warnw("tooltip without a session", zap.Error(err))
		return ""
	}

	// The compiler section always comes first.
	var (
		sections [2]string
		g        errgroup.Group
	)
	g.Go(func() error {
		text, _ := syncsafe.RunWhen(c.adapter, ctx, ready, func(ctx context.Context) (string, error) {
			elements, err := c.compiler.ToolTip(ctx, q)
			if err != nil {
				return "", err
			}
			return c.render(elements), nil
		}, c.settings.Budget, _label)
		sections[0] = text
		return nil
	})
	if s.UsesTypeProviders() && q.TokenKind == entity.TokenIdentifier {
		g.Go(func() error {
			sections[1] = c.providerDoc(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	texts := make([]string, 0, len(sections))
	for _, text := range sections {
		if text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		c.stats.Counter("empty").Inc(1)
	}
	return strings.Join(texts, c.settings.Separator)
}

// render joins the overloads of every group element.
func (c *controller) render(elements []entity.ToolTipElement) string {
	var overloads []string
	for _, el := range elements {
		switch el.Kind {
		case entity.ToolTipNone:
		case entity.ToolTipGroup:
			for _, o := range el.Overloads {
				overloads = append(overloads, c.overloadText(o))
			}
		case entity.ToolTipCompositionError:
			c.logger.Debugw("compiler could not compose a tooltip", "reason", el.Error)
		default:
			c.logger.Warnw("unknown tooltip element", "kind", el.Kind.String())
		}
	}
	return strings.Join(overloads, c.settings.Separator)
}

func (c *controller) overloadText(o entity.Overload) string {
	doc, ok := c.GetXmlDocText(o.XmlDoc)
	if !ok || doc == "" {
		return o.MainDescription
	}
	return o.MainDescription + "\n" + doc
}

// providerDoc asks the type-provider host about the name under the cursor. Any failure reads as
// no documentation.
func (c *controller) providerDoc(ctx context.Context, q entity.ToolTipQuery) string {
	ctx, cancel := context.WithTimeout(ctx, c.settings.TypeProvidersTimeout)
	defer cancel()

	client, err := c.hosts.TypeProviders(ctx)
	if err != nil {
		if errors.IsCapabilityUnavailable(err) {
			c.stats.Counter("providers_unavailable").Inc(1)
			c.logger.Debugw("type providers unavailable", zap.Error(err))
		} else {
			c.stats.Counter("provider_failures").Inc(1)
			c.logger.Warnw("unable to reach the type provider host", zap.Error(err))
		}
		return ""
	}

	var qualifiers []string
	if len(q.Names) > 1 {
		qualifiers = q.Names[:len(q.Names)-1]
	}
	res, err := client.ResolveDoc(ctx, typeprovidersclient.ResolveDocRequest{
		Names:      qualifiers,
		Identifier: q.Identifier(),
	})
	if err != nil {
		c.stats.Counter("provider_failures").Inc(1)
		c.logger.Warnw("resolving provider doc failed", "identifier", q.Identifier(), zap.Error(err))
		return ""
	}
	if !res.Found {
		return ""
	}
	return res.Text
}

func (c *controller) GetXmlDocText(doc entity.XmlDoc) (string, bool) {
	switch doc.Kind {
	case entity.XmlDocNone:
		return "", false
	case entity.XmlDocText:
		return strings.TrimSpace(doc.Text), true
	case entity.XmlDocFileSignature:
		members, err := c.xmlDocFile(doc.File)
		if err != nil {
			c.logger.Warnw("unable to read xml doc file", "file", doc.File, zap.Error(err))
			return "", false
		}
		text, ok := members[doc.Signature]
		return text, ok
	default:
		return "", false
	}
}

// xmlDocFile returns the parsed members of a documentation file. Files are read once.
func (c *controller) xmlDocFile(file string) (map[string]string, error) {
	c.xmlDocsMu.Lock()
	defer c.xmlDocsMu.Unlock()
	if members, ok := c.xmlDocs[file]; ok {
		return members, nil
	}

	data, err := c.fs.ReadFile(file)
	if err != nil {
		return nil, err
	}
	members, err := parseXmlDocFile(data)
	if err != nil {
		return nil, err
	}
	c.xmlDocs[file] = members
	return members, nil
}
