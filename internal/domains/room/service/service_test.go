package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"motel/config"
	kafkaMocks "motel/infras/kafka/mocks"
	otelMocks "motel/infras/otel/mocks"
	postgresMocks "motel/infras/postgres/mocks"
	roomMocks "motel/internal/domains/room/mocks"
	"motel/internal/domains/room/model"
	"motel/internal/domains/room/model/dto"
	"motel/internal/domains/room/service"
	cacheMocks "motel/shared/cache/mocks"
	"motel/shared/clock"
	gDto "motel/shared/dto"
)

type roomFixture struct {
	repo  *roomMocks.MockRoom
	cache *cacheMocks.MockRedisCache
	db    *postgresMocks.MockTxRunner
	kafka *kafkaMocks.MockProducer
	clock *clock.Fixed
	svc   service.Room
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &roomFixture{
		repo:  roomMocks.NewMockRoom(ctrl),
		cache: cacheMocks.NewMockRedisCache(ctrl),
		db:    postgresMocks.NewMockTxRunner(ctrl),
		kafka: kafkaMocks.NewMockProducer(ctrl),
		clock: &clock.Fixed{T: time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)},
	}

	cfg := &config.Config{}
	cfg.Pricing.ReleaseDelaySeconds = 60
	cfg.Kafka.Topic = "motel.lifecycle"

	// Cache invalidation and event publishing run in the background, so
	// their expectations stay loose.
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(f.repo, cfg, f.cache, otelMocks.NewOtel(), f.db, f.kafka, f.clock)

	return f
}

func (f *roomFixture) expectTransaction() {
	f.db.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*sqlx.Tx) error) error {
			return fn(nil)
		})
}

func waitForAsync() {
	time.Sleep(20 * time.Millisecond)
}

func TestRoomService_Create(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.CreateRoomRequest
		setupMock func(f *roomFixture)
		wantErr   bool
	}{
		{
			name: "creates a new room",
			req:  dto.CreateRoomRequest{Number: "H01", Type: "normal"},
			setupMock: func(f *roomFixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)
				f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "rejects a duplicate room number",
			req:  dto.CreateRoomRequest{Number: "H01", Type: "normal"},
			setupMock: func(f *roomFixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
			},
			wantErr: true,
		},
		{
			name: "propagates uniqueness check failures",
			req:  dto.CreateRoomRequest{Number: "H01", Type: "normal"},
			setupMock: func(f *roomFixture) {
				f.repo.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)
			tt.setupMock(f)

			err := f.svc.Create(context.Background(), tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			waitForAsync()
		})
	}
}

func TestRoomService_Board(t *testing.T) {
	f := newRoomFixture(t)

	rooms := []model.Room{
		{ID: "room-1", Number: "H01", Type: model.TypeNormal, State: model.StateAvailable},
		{ID: "room-2", Number: "H02", Type: model.TypeNormal, State: model.StateOccupied},
		{ID: "room-3", Number: "J09", Type: model.TypeJacuzzi, State: model.StateCleaning},
		{ID: "room-4", Number: "J10", Type: model.TypeJacuzzi, State: model.StateMaintenance},
	}

	cutoff := f.clock.T.Add(-60 * time.Second)

	f.repo.EXPECT().ReleaseCleaned(gomock.Any(), cutoff).Return(nil, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(rooms, nil)

	res, err := f.svc.Board(context.Background())

	assert.NoError(t, err)
	assert.Len(t, res.Rooms, 4)
	assert.Equal(t, 1, res.Available)
	assert.Equal(t, 1, res.Occupied)
	assert.Equal(t, 1, res.Cleaning)
	assert.Equal(t, 1, res.Maintenance)
}

func TestRoomService_Board_ReleasesDueRooms(t *testing.T) {
	f := newRoomFixture(t)

	f.repo.EXPECT().ReleaseCleaned(gomock.Any(), gomock.Any()).Return([]string{"room-3"}, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Room{}, nil)

	_, err := f.svc.Board(context.Background())

	assert.NoError(t, err)
	waitForAsync()
}

func TestRoomService_Board_ReleaseFailureDoesNotBlock(t *testing.T) {
	f := newRoomFixture(t)

	f.repo.EXPECT().ReleaseCleaned(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Room{}, nil)

	_, err := f.svc.Board(context.Background())

	assert.NoError(t, err)
}

func TestRoomService_MarkCleaningComplete(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(f *roomFixture)
		wantErr   bool
	}{
		{
			name: "releases a cleaning room",
			setupMock: func(f *roomFixture) {
				f.expectTransaction()
				f.repo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.Room{ID: "room-1", Number: "H01", State: model.StateCleaning}, nil)
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, model.StateAvailable, req[model.FieldState])

						return nil
					})
			},
			wantErr: false,
		},
		{
			name: "rejects a room that is not cleaning",
			setupMock: func(f *roomFixture) {
				f.expectTransaction()
				f.repo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.Room{ID: "room-1", Number: "H01", State: model.StateOccupied}, nil)
			},
			wantErr: true,
		},
		{
			name: "rejects a maintenance room",
			setupMock: func(f *roomFixture) {
				f.expectTransaction()
				f.repo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.Room{ID: "room-1", Number: "H01", State: model.StateMaintenance}, nil)
			},
			wantErr: true,
		},
		{
			name: "rejects an unknown room",
			setupMock: func(f *roomFixture) {
				f.expectTransaction()
				f.repo.EXPECT().
					GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(model.Room{}, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)
			tt.setupMock(f)

			err := f.svc.MarkCleaningComplete(context.Background(), "room-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			waitForAsync()
		})
	}
}

func TestRoomService_SetMaintenance(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		room      model.Room
		wantState model.RoomState
		wantErr   bool
		noUpdate  bool
	}{
		{
			name:      "moves an available room into maintenance",
			enabled:   true,
			room:      model.Room{ID: "room-1", Number: "H01", State: model.StateAvailable},
			wantState: model.StateMaintenance,
		},
		{
			name:      "returns a maintenance room to the pool",
			enabled:   false,
			room:      model.Room{ID: "room-1", Number: "H01", State: model.StateMaintenance},
			wantState: model.StateAvailable,
		},
		{
			name:     "is idempotent when already in the target state",
			enabled:  true,
			room:     model.Room{ID: "room-1", Number: "H01", State: model.StateMaintenance},
			noUpdate: true,
		},
		{
			name:    "rejects maintenance on an occupied room",
			enabled: true,
			room:    model.Room{ID: "room-1", Number: "H01", State: model.StateOccupied},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)

			f.expectTransaction()
			f.repo.EXPECT().
				GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tt.room, nil)

			if !tt.wantErr && !tt.noUpdate {
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, tt.wantState, req[model.FieldState])

						return nil
					})
			}

			err := f.svc.SetMaintenance(context.Background(), "room-1", tt.enabled)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			waitForAsync()
		})
	}
}

func TestRoomService_Get(t *testing.T) {
	t.Run("returns the room on cache miss", func(t *testing.T) {
		f := newRoomFixture(t)

		f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Room{ID: "room-1", Number: "H01", Type: model.TypeNormal, State: model.StateAvailable}, nil)

		res, err := f.svc.Get(context.Background(), "room-1")

		assert.NoError(t, err)
		assert.Equal(t, "H01", res.Number)

		waitForAsync()
	})

	t.Run("reports an unknown room", func(t *testing.T) {
		f := newRoomFixture(t)

		f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Room{}, nil)

		_, err := f.svc.Get(context.Background(), "missing")

		assert.Error(t, err)
	})
}
