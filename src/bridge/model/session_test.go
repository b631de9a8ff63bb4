package model

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSession(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	model := Session{UUID: id}
	assert.Equal(t, id, model.UUID)
	assert.Nil(t, model.Server)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
