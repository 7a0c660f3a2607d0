package services

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/resumai-be/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService(t *testing.T) {
	db := dbtest.NewSQLite(t)
	svc := NewEventService(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, typ := range []string{"auth.signup", "auth.login", "auth.logout"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		require.NoError(t, svc.CreateEvent(ctx, typ, "info", typ, &alice.ID))
	}
	require.NoError(t, svc.CreateEvent(ctx, "auth.login", "info", "bob", &bob.ID))
	require.NoError(t, svc.CreateEvent(ctx, "auth.session.fault", "error", "system", nil))

	events, err := svc.GetRecentEvents(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "auth.logout", events[0].Type)
	assert.Equal(t, "auth.login", events[1].Type)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, alice.ID, *events[0].UserID)

	none, err := svc.GetRecentEvents(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}
