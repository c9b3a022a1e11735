package api

import (
	"context"
	"time"

	"coachsync/internal/models"

	"github.com/stretchr/testify/mock"
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

func (m *mockStore) GetSyncConfig(ctx context.Context, trainerID string) (*models.CalendarSyncConfig, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarSyncConfig), args.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncOne(ctx context.Context, session *models.TrainingSession, cfg *models.CalendarSyncConfig) (string, error) {
	args := m.Called(ctx, session, cfg)
	return args.String(0), args.Error(1)
}

func (m *mockSyncer) RemoveOne(ctx context.Context, session *models.TrainingSession) {
	m.Called(ctx, session)
}

func (m *mockSyncer) ResyncTrainer(ctx context.Context, trainerID string) (int, error) {
	args := m.Called(ctx, trainerID)
	return args.Int(0), args.Error(1)
}

func (m *mockSyncer) CheckConflict(ctx context.Context, trainerID string, start time.Time, durationMinutes int, excludeEventID string) (bool, error) {
	args := m.Called(ctx, trainerID, start, durationMinutes, excludeEventID)
	return args.Bool(0), args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }
