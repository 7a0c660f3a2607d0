package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/resumai-be/internal/database/dbtest"
	"github.com/isdelr/resumai-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeService(t *testing.T) {
	db := dbtest.NewSQLite(t)
	svc := NewResumeService(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.Create(ctx, models.Resume{UserID: alice.ID, ResumePath: "users/a/1.pdf", CompanyName: "Acme", JobTitle: "SRE"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Nil(t, first.Feedback)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	second, err := svc.Create(ctx, models.Resume{UserID: alice.ID, ResumePath: "users/a/2.pdf", ImagePath: "users/a/2.png", JobTitle: "Backend"})
	require.NoError(t, err)

	fb := json.RawMessage(`{"overallScore":81}`)
	require.NoError(t, svc.UpdateFeedback(ctx, second.ID, fb))
	assert.ErrorIs(t, svc.UpdateFeedback(ctx, "missing", fb), ErrResumeNotFound)

	got, err := svc.GetByID(ctx, alice.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "users/a/2.png", got.ImagePath)
	assert.JSONEq(t, string(fb), string(got.Feedback))

	// Another user cannot read it.
	_, err = svc.GetByID(ctx, bob.ID, second.ID)
	assert.ErrorIs(t, err, ErrResumeNotFound)

	list, err := svc.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Nil(t, list[1].Feedback)

	empty, err := svc.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
