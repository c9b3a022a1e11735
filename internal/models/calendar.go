package models

import "time"

// CalendarSyncConfig holds a trainer's calendar synchronization settings.
// The credential is not part of the record; it is resolved per trainer by a
// credential provider.
type CalendarSyncConfig struct {
	TrainerID   string     `json:"trainer_id"`
	CalendarID  string     `json:"calendar_id"`
	OwnerEmail  string     `json:"owner_email"`
	SyncEnabled bool       `json:"sync_enabled"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

// CalendarOrDefault returns the configured calendar or the trainer's primary one.
func (c *CalendarSyncConfig) CalendarOrDefault() string {
	if c == nil || c.CalendarID == "" {
		return DefaultCalendarID
	}
	return c.CalendarID
}

// SyncConfigUpdate carries the fields UpdateSyncConfig may change. Nil fields are left untouched.
type SyncConfigUpdate struct {
	CalendarID  *string
	SyncEnabled *bool
	LastSyncAt  *time.Time
}

// EventDraft is the provider-neutral description of a remote calendar event.
type EventDraft struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// RemoteEvent is the slice of a remote event conflict detection needs.
type RemoteEvent struct {
	ID    string
	Start time.Time
	End   time.Time
}
