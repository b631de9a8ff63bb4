// Package model contains the repository layer models of the plugin backend.
package model

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber/rd-bridge/src/rd-lib/model/ide"
)

// Session is the repository layer model for an individual IDE session.
type Session struct {
	UUID      uuid.UUID
	Server    *ide.Server
	CreatedAt time.Time
}
