package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingSessionInterval(t *testing.T) {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	s := &TrainingSession{Start: start, DurationMinutes: 60}
	iv, err := s.Interval()
	require.NoError(t, err)
	assert.Equal(t, start, iv.Start)
	assert.Equal(t, start.Add(time.Hour), iv.End)
	assert.Equal(t, iv.End, s.End())

	s.DurationMinutes = 10
	_, err = s.Interval()
	assert.ErrorIs(t, err, ErrDurationTooShort)
}

func TestSessionStatus(t *testing.T) {
	assert.True(t, StatusScheduled.IsSyncable())
	assert.True(t, StatusConfirmed.IsSyncable())
	assert.False(t, StatusCancelled.IsSyncable())
	assert.False(t, StatusCompleted.IsSyncable())
	assert.False(t, StatusNoShow.IsSyncable())

	assert.True(t, StatusNoShow.Valid())
	assert.False(t, SessionStatus("pending").Valid())
}

func TestCalendarOrDefault(t *testing.T) {
	var nilCfg *CalendarSyncConfig
	assert.Equal(t, DefaultCalendarID, nilCfg.CalendarOrDefault())
	assert.Equal(t, DefaultCalendarID, (&CalendarSyncConfig{}).CalendarOrDefault())
	assert.Equal(t, "team@example.com", (&CalendarSyncConfig{CalendarID: "team@example.com"}).CalendarOrDefault())
}
