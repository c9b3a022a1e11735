package models

import (
	"errors"
	"fmt"
	"time"

	"coachsync/internal/interval"
)

// ErrDurationTooShort is returned when a session is shorter than MinSessionMinutes.
var ErrDurationTooShort = errors.New("session duration too short")

type TrainingSession struct {
	ID              string        `json:"id"`
	TrainerID       string        `json:"trainer_id"`
	ClientID        string        `json:"client_id"`
	Start           time.Time     `json:"start"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	SessionType     string        `json:"session_type"`
	ExternalEventID string        `json:"external_event_id,omitempty"` // empty until pushed to the remote calendar
	Location        string        `json:"location,omitempty"`
	MeetingLink     string        `json:"meeting_link,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	LastSyncedAt    *time.Time    `json:"last_synced_at,omitempty"`
	ReminderSentAt  *time.Time    `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Interval returns the session's [start, end) range.
func (s *TrainingSession) Interval() (interval.Interval, error) {
	if s.DurationMinutes < MinSessionMinutes {
		return interval.Interval{}, fmt.Errorf("%w: %d minutes (min %d)", ErrDurationTooShort, s.DurationMinutes, MinSessionMinutes)
	}
	return interval.FromMinutes(s.Start, s.DurationMinutes)
}

// End returns the instant the session finishes.
func (s *TrainingSession) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Synced reports whether the session has been pushed to the remote calendar.
func (s *TrainingSession) Synced() bool {
	return s.ExternalEventID != ""
}
