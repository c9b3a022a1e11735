package models

import "time"

// SessionStatus is the lifecycle state of a training session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusConfirmed SessionStatus = "confirmed"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
	StatusNoShow    SessionStatus = "no_show"
)

const (
	// MinSessionMinutes минимальная длительность тренировки
	MinSessionMinutes = 15

	// DefaultCalendarID календарь по умолчанию у тренера
	DefaultCalendarID = "primary"

	// ResyncLookBack насколько далеко в прошлое смотрит массовая синхронизация
	ResyncLookBack = 30 * 24 * time.Hour

	// ResyncLookAhead насколько далеко в будущее смотрит массовая синхронизация
	ResyncLookAhead = 90 * 24 * time.Hour

	// NotificationRetention прочитанные уведомления старше этого срока удаляются
	NotificationRetention = 30 * 24 * time.Hour

	// ReminderInterval период задачи напоминаний
	ReminderInterval = 15 * time.Minute

	// ReminderLeadTime за сколько до начала тренировки отправлять напоминание
	ReminderLeadTime = 24 * time.Hour

	// CleanupTime время ежедневной очистки уведомлений
	CleanupTime = "02:00"

	// DefaultBackupTime время ежедневного бэкапа
	DefaultBackupTime = "03:00"

	// JobHistorySize сколько последних запусков хранить на задачу
	JobHistorySize = 50
)

const (
	JobSessionReminders    = "sessionReminders"
	JobNotificationCleanup = "notificationCleanup"
	JobCalendarResync      = "calendarResync"
	JobDatabaseBackup      = "databaseBackup"
)

const NotificationKindSessionReminder = "session_reminder"

// SyncableStatuses are the statuses bulk resync pushes to the remote calendar.
var SyncableStatuses = []SessionStatus{StatusScheduled, StatusConfirmed}

// IsSyncable reports whether bulk resync should push a session with this status.
func (s SessionStatus) IsSyncable() bool {
	for _, st := range SyncableStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}
