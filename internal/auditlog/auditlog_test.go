package auditlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryValidate(t *testing.T) {
	require.ErrorIs(t, Entry{Action: ActionLogin}.validate(), ErrInvalidEntry)
	require.ErrorIs(t, Entry{Category: CategoryAdministrator}.validate(), ErrInvalidEntry)
	require.NoError(t, Entry{Category: CategoryAdministrator, Action: ActionLogin}.validate())
}

func TestRecordRequiresPool(t *testing.T) {
	var l *Logger
	require.Error(t, l.Record(context.Background(), Entry{Category: CategoryAdministrator, Action: ActionLogin}))
}

func TestRemoteAddr(t *testing.T) {
	ctx := WithRemoteAddr(context.Background(), "10.0.0.1")
	assert.Equal(t, "10.0.0.1", RemoteAddr(ctx))
	assert.Empty(t, RemoteAddr(context.Background()))
}

func TestEntryIsLog(t *testing.T) {
	e := &Entry{Category: CategoryAdministrator, Action: ActionLoginFailed}
	assert.Equal(t, "Administrator", e.GetCategory())
	assert.Equal(t, "LoginFailed", e.GetAction())
}
