package rdbridge

import (
	"context"

	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
)

func (r *jsonRPCRouter) GetTooltip(ctx context.Context, q ide.ToolTipQuery) (ide.ToolTipResult, error) {
	res, err := r.bridge.GetTooltip(r.context(ctx), q)
	r.count("getTooltip", err)
	return res, err
}

func (r *jsonRPCRouter) GetXmlDocText(ctx context.Context, doc ide.XmlDoc) (ide.XmlDocText, error) {
	res, err := r.bridge.GetXmlDocText(r.context(ctx), doc)
	r.count("getXmlDocText", err)
	return res, err
}

func (r *jsonRPCRouter) FormatDocument(ctx context.Context, req ide.FormatRequest) (ide.FormatResult, error) {
	res, err := r.bridge.FormatDocument(r.context(ctx), req)
	r.count("formatDocument", err)
	return res, err
}
