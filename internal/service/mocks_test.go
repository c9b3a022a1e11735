package service

import (
	"context"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetSession(ctx context.Context, id string) (*models.TrainingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrainingSession), args.Error(1)
}
func (m *mockStore) SaveSyncState(ctx context.Context, sessionID, externalEventID string, lastSyncedAt *time.Time) error {
	return m.Called(ctx, sessionID, externalEventID, lastSyncedAt).Error(0)
}
func (m *mockStore) ListSessions(ctx context.Context, trainerID string, from, to time.Time, statuses []models.SessionStatus) ([]*models.TrainingSession, error) {
	args := m.Called(ctx, trainerID, from, to, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrainingSession), args.Error(1)
}
func (m *mockStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}
func (m *mockStore) GetSyncConfig(ctx context.Context, trainerID string) (*models.CalendarSyncConfig, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarSyncConfig), args.Error(1)
}
func (m *mockStore) UpdateSyncConfig(ctx context.Context, trainerID string, u models.SyncConfigUpdate) error {
	return m.Called(ctx, trainerID, u).Error(0)
}
func (m *mockStore) DeleteOldReadNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) CreateEvent(ctx context.Context, target domain.CalendarTarget, draft models.EventDraft) (string, error) {
	args := m.Called(ctx, target, draft)
	return args.String(0), args.Error(1)
}
func (m *mockCalendar) UpdateEvent(ctx context.Context, target domain.CalendarTarget, eventID string, draft models.EventDraft) error {
	return m.Called(ctx, target, eventID, draft).Error(0)
}
func (m *mockCalendar) DeleteEvent(ctx context.Context, target domain.CalendarTarget, eventID string) error {
	return m.Called(ctx, target, eventID).Error(0)
}
func (m *mockCalendar) ListEvents(ctx context.Context, target domain.CalendarTarget, from, to time.Time) ([]models.RemoteEvent, error) {
	args := m.Called(ctx, target, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RemoteEvent), args.Error(1)
}

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) CredentialFor(ctx context.Context, cfg *models.CalendarSyncConfig) (oauth2.TokenSource, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(oauth2.TokenSource), args.Error(1)
}

var testToken = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"})
