package mapper

import (
	"fmt"
	"strings"

	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/rd-lib/model/formatterclient"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

var _tokenKinds = map[string]entity.TokenKind{
	"":                              entity.TokenIdentifier,
	entity.TokenIdentifier.String(): entity.TokenIdentifier,
	entity.TokenString.String():     entity.TokenString,
	entity.TokenKeyword.String():    entity.TokenKeyword,
}

// IdeToolTipQueryToEntity maps a hover request received from the IDE.
func IdeToolTipQueryToEntity(q ide.ToolTipQuery) (entity.ToolTipQuery, error) {
	u, err := IdeDocumentURI(q.URI)
	if err != nil {
		return entity.ToolTipQuery{}, fmt.Errorf("tooltip query: %w", err)
	}
	if q.Line < 0 || q.Column < 0 {
		return entity.ToolTipQuery{}, errors.BadRequestf("invalid tooltip position %d:%d", q.Line, q.Column)
	}
	kind, ok := _tokenKinds[q.TokenKind]
	if !ok {
		return entity.ToolTipQuery{}, errors.BadRequestf("unknown token kind %q", q.TokenKind)
	}
	return entity.ToolTipQuery{
		Document:  protocol.TextDocumentIdentifier{URI: u},
		Position:  protocol.Position{Line: uint32(q.Line), Character: uint32(q.Column)},
		LineText:  q.LineText,
		Names:     q.Names,
		TokenKind: kind,
	}, nil
}

// IdeXmlDocToEntity maps a documentation reference received from the IDE.
func IdeXmlDocToEntity(d ide.XmlDoc) (entity.XmlDoc, error) {
	kind, ok := entity.ParseXmlDocKind(d.Kind)
	if !ok {
		return entity.XmlDoc{}, errors.BadRequestf("unknown xml doc kind %q", d.Kind)
	}
	switch kind {
	case entity.XmlDocText:
		return entity.XmlDocTextOf(d.Text), nil
	case entity.XmlDocFileSignature:
		return entity.XmlDocFileSignatureOf(d.File, d.Signature), nil
	default:
		return entity.NoXmlDoc(), nil
	}
}

// FormatterEditsToIde maps the edits of the formatter host to the IDE model.
func FormatterEditsToIde(edits []formatterclient.TextEdit) []ide.TextEdit {
	if len(edits) == 0 {
		return nil
	}
	out := make([]ide.TextEdit, 0, len(edits))
	for _, e := range edits {
		out = append(out, ide.TextEdit{
			StartLine:   e.StartLine,
			StartColumn: e.StartColumn,
			EndLine:     e.EndLine,
			EndColumn:   e.EndColumn,
			NewText:     e.NewText,
		})
	}
	return out
}

// IdeDocumentURI validates a document uri received from the IDE. Only files can be analysed.
func IdeDocumentURI(raw string) (uri.URI, error) {
	if raw == "" {
		return "", errors.BadRequestf("empty document uri")
	}
	if !strings.HasPrefix(raw, uri.FileScheme+"://") {
		return "", errors.BadRequestf("unsupported document uri %q", raw)
	}
	return uri.URI(raw), nil
}
