// Package factory builds test fixtures.
package factory

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// Session is a factory for a Session without a live connection.
func Session() *entity.Session {
	return &entity.Session{
		UUID:      UUID(),
		CreatedAt: time.Now(),
	}
}

// ToolTipQuery is a factory for a hover on the last name of names in the given file.
func ToolTipQuery(file string, line, character uint32, names ...string) entity.ToolTipQuery {
	return entity.ToolTipQuery{
		Document:  protocol.TextDocumentIdentifier{URI: uri.File(file)},
		Position:  protocol.Position{Line: line, Character: character},
		Names:     names,
		TokenKind: entity.TokenIdentifier,
	}
}

// Overload is a factory for an overload documented inline.
func Overload(description, doc string) entity.Overload {
	xmlDoc := entity.NoXmlDoc()
	if doc != "" {
		xmlDoc = entity.XmlDocTextOf(doc)
	}
	return entity.Overload{MainDescription: description, XmlDoc: xmlDoc}
}
