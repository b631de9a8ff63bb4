// Package entity contains the domain types of the plugin backend.
package entity

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session UUID in the context.
const SessionContextKey keyType = "SessionUUID"

// Session entity representing a single IDE connection.
type Session struct {
	UUID      uuid.UUID   `json:"uuid" zap:"uuid"`
	Server    *ide.Server `json:"-" zap:"-"`
	CreatedAt time.Time   `json:"createdAt" zap:"createdAt"`
}

// UsesTypeProviders reports whether the IDE declared that the solution references type providers.
func (s *Session) UsesTypeProviders() bool {
	if s == nil || s.Server == nil {
		return false
	}
	return s.Server.SolutionUsesTypeProviders.Value()
}
