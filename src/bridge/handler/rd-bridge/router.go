package rdbridge

import (
	"context"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	controller "github.com/uber/rd-bridge/src/bridge/controller/bridge"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/mapper"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"go.uber.org/zap"
)

// jsonRPCRouter routes the requests and signals of one IDE connection to the controller, scoped to
// its session.
type jsonRPCRouter struct {
	bridge controller.Controller
	uuid   uuid.UUID
	logger *zap.SugaredLogger
	stats  tally.Scope
}

// UUID returns the session served by this router.
func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}

func (r *jsonRPCRouter) bind(server *ide.Server) {
	server.Documents.DocumentOpened.Advise(r.signal("documentOpened", r.DocumentOpened))
	server.Documents.DocumentChanged.Advise(r.signal("documentChanged", r.DocumentChanged))
	server.Documents.DocumentClosed.Advise(func(doc ide.DocumentRef) {
		r.count("documentClosed", r.DocumentClosed(r.context(context.Background()), doc))
	})

	server.Features.GetTooltip.Set(r.GetTooltip)
	server.Features.GetXmlDocText.Set(r.GetXmlDocText)
	server.Features.FormatDocument.Set(r.FormatDocument)
}

func (r *jsonRPCRouter) signal(method string, fn func(context.Context, ide.DocumentText) error) func(ide.DocumentText) {
	return func(doc ide.DocumentText) {
		r.count(method, fn(r.context(context.Background()), doc))
	}
}

// context scopes ctx to the session of this router.
func (r *jsonRPCRouter) context(ctx context.Context) context.Context {
	return mapper.SessionUUIDToContext(ctx, r.uuid)
}

func (r *jsonRPCRouter) count(method string, err error) {
	scope := r.stats.Tagged(map[string]string{"method": method})
	scope.Counter("calls").Inc(1)
	switch {
	case err == nil:
	case errors.IsBadRequest(err):
		scope.Counter("bad_requests").Inc(1)
		r.logger.Infow("bad request", "method", method, zap.Error(err))
	default:
		scope.Counter("errors").Inc(1)
		r.logger.Warnw("request failed", "method", method, zap.Error(err))
	}
}
