package mapper

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/uber/rd-bridge/src/bridge/entity"
	"github.com/uber/rd-bridge/src/bridge/internal/errors"
	"github.com/uber/rd-bridge/src/bridge/model"
)

// SessionToModel maps a Session entity to its model equivalent.
func SessionToModel(f *entity.Session) *model.Session {
	return &model.Session{
		UUID:      f.UUID,
		Server:    f.Server,
		CreatedAt: f.CreatedAt,
	}
}

// ModelToSession maps a model Session to its entity equivalent.
func ModelToSession(f *model.Session) (*entity.Session, error) {
	return &entity.Session{
		UUID:      f.UUID,
		Server:    f.Server,
		CreatedAt: f.CreatedAt,
	}, nil
}

// ContextToSessionUUID extracts the UUID from a context
func ContextToSessionUUID(c context.Context) (uuid.UUID, error) {
	s, ok := c.Value(entity.SessionContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, &errors.NoSessionFoundError{}
	}
	return s, nil
}

// SessionUUIDToContext returns a context scoped to the given session.
func SessionUUIDToContext(c context.Context, id uuid.UUID) context.Context {
	return context.WithValue(c, entity.SessionContextKey, id)
}
