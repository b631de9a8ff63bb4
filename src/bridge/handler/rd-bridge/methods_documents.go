package rdbridge

import (
	"context"

	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
)

func (r *jsonRPCRouter) DocumentOpened(ctx context.Context, doc ide.DocumentText) error {
	return r.bridge.DocumentOpened(ctx, doc)
}

func (r *jsonRPCRouter) DocumentChanged(ctx context.Context, doc ide.DocumentText) error {
	return r.bridge.DocumentChanged(ctx, doc)
}

func (r *jsonRPCRouter) DocumentClosed(ctx context.Context, doc ide.DocumentRef) error {
	return r.bridge.DocumentClosed(ctx, doc)
}
