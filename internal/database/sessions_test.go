package database

import (
	"context"
	"testing"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(trainerID string, start time.Time, status models.SessionStatus) *models.TrainingSession {
	return &models.TrainingSession{
		TrainerID:       trainerID,
		ClientID:        "client-1",
		Start:           start,
		DurationMinutes: 60,
		Status:          status,
		SessionType:     "personal training",
	}
}

func TestSessions_CreateGetSave(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	moscow := time.FixedZone("MSK", 3*60*60)
	s := newSession("trainer-1", time.Date(2025, 3, 10, 13, 0, 0, 0, moscow), models.StatusScheduled)
	s.Notes = "bring shoes"
	require.NoError(t, db.CreateSession(ctx, s))
	require.NotEmpty(t, s.ID)

	got, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(s.Start))
	assert.Equal(t, time.UTC, got.Start.Location())
	assert.Equal(t, "bring shoes", got.Notes)
	assert.Empty(t, got.ExternalEventID)
	assert.Nil(t, got.LastSyncedAt)

	synced := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	got.ExternalEventID = "evt-1"
	got.LastSyncedAt = &synced
	require.NoError(t, db.SaveSession(ctx, got))

	again, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", again.ExternalEventID)
	require.NotNil(t, again.LastSyncedAt)
	assert.True(t, again.LastSyncedAt.Equal(synced))

	// clearing the id stores NULL again
	again.ExternalEventID = ""
	require.NoError(t, db.SaveSession(ctx, again))
	cleared, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.ExternalEventID)
}

func TestSessions_SaveSyncStateKeepsOtherColumns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := newSession("trainer-1", time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), models.StatusScheduled)
	require.NoError(t, db.CreateSession(ctx, s))

	// a stale copy, as loaded before the edits below
	stale, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)

	edited, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	edited.Status = models.StatusCancelled
	edited.Notes = "client ill"
	require.NoError(t, db.SaveSession(ctx, edited))
	reminded := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.MarkReminderSent(ctx, s.ID, reminded))

	synced := time.Date(2025, 3, 9, 11, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveSyncState(ctx, stale.ID, "evt-9", &synced))

	got, err := db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-9", got.ExternalEventID)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, got.LastSyncedAt.Equal(synced))
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, "client ill", got.Notes)
	require.NotNil(t, got.ReminderSentAt)
	assert.True(t, got.ReminderSentAt.Equal(reminded))

	require.NoError(t, db.SaveSyncState(ctx, s.ID, "", nil))
	got, err = db.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ExternalEventID)
	assert.Nil(t, got.LastSyncedAt)
	assert.Equal(t, models.StatusCancelled, got.Status)

	assert.ErrorIs(t, db.SaveSyncState(ctx, "missing", "evt", nil), domain.ErrNotFound)
}

func TestSessions_Errors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = db.SaveSession(ctx, &models.TrainingSession{ID: "missing", DurationMinutes: 60})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	short := newSession("trainer-1", time.Now(), models.StatusScheduled)
	short.DurationMinutes = 10
	assert.ErrorIs(t, db.CreateSession(ctx, short), domain.ErrInvalidSession)
}

func TestSessions_ListSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	fixtures := []*models.TrainingSession{
		newSession("trainer-1", base.Add(2*time.Hour), models.StatusConfirmed),
		newSession("trainer-1", base, models.StatusScheduled),
		newSession("trainer-1", base.Add(time.Hour), models.StatusCancelled),
		newSession("trainer-1", base.AddDate(0, 0, 10), models.StatusScheduled),
		newSession("trainer-2", base, models.StatusScheduled),
	}
	for _, s := range fixtures {
		require.NoError(t, db.CreateSession(ctx, s))
	}

	got, err := db.ListSessions(ctx, "trainer-1", base, base.Add(24*time.Hour), models.SyncableStatuses)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fixtures[1].ID, got[0].ID)
	assert.Equal(t, fixtures[0].ID, got[1].ID)

	all, err := db.ListSessions(ctx, "trainer-1", base, base.Add(24*time.Hour), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := db.ListSessions(ctx, "trainer-3", base, base.Add(24*time.Hour), nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSessions_Reminders(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	due := newSession("trainer-1", now.Add(3*time.Hour), models.StatusScheduled)
	tooLate := newSession("trainer-1", now.Add(30*time.Hour), models.StatusScheduled)
	cancelled := newSession("trainer-1", now.Add(2*time.Hour), models.StatusCancelled)
	for _, s := range []*models.TrainingSession{due, tooLate, cancelled} {
		require.NoError(t, db.CreateSession(ctx, s))
	}

	pending, err := db.ListSessionsNeedingReminder(ctx, now, now.Add(models.ReminderLeadTime))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, due.ID, pending[0].ID)

	require.NoError(t, db.MarkReminderSent(ctx, due.ID, now))

	pending, err = db.ListSessionsNeedingReminder(ctx, now, now.Add(models.ReminderLeadTime))
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := db.GetSession(ctx, due.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReminderSentAt)
	assert.True(t, got.ReminderSentAt.Equal(now))
}

func TestSessions_Delete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := newSession("trainer-1", time.Now(), models.StatusScheduled)
	require.NoError(t, db.CreateSession(ctx, s))
	require.NoError(t, db.DeleteSession(ctx, s.ID))

	_, err := db.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
