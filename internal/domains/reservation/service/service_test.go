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
	"motel/internal/domains/rental/billing"
	rentalMocks "motel/internal/domains/rental/mocks"
	rentalModel "motel/internal/domains/rental/model"
	reservationMocks "motel/internal/domains/reservation/mocks"
	"motel/internal/domains/reservation/model"
	"motel/internal/domains/reservation/model/dto"
	"motel/internal/domains/reservation/service"
	roomMocks "motel/internal/domains/room/mocks"
	roomModel "motel/internal/domains/room/model"
	cacheMocks "motel/shared/cache/mocks"
	"motel/shared/clock"
	gDto "motel/shared/dto"
)

type reservationFixture struct {
	repo       *reservationMocks.MockReservation
	roomRepo   *roomMocks.MockRoom
	rentalRepo *rentalMocks.MockRental
	cache      *cacheMocks.MockRedisCache
	db         *postgresMocks.MockTxRunner
	kafka      *kafkaMocks.MockProducer
	clock      *clock.Fixed
	svc        service.Reservation
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &reservationFixture{
		repo:       reservationMocks.NewMockReservation(ctrl),
		roomRepo:   roomMocks.NewMockRoom(ctrl),
		rentalRepo: rentalMocks.NewMockRental(ctrl),
		cache:      cacheMocks.NewMockRedisCache(ctrl),
		db:         postgresMocks.NewMockTxRunner(ctrl),
		kafka:      kafkaMocks.NewMockProducer(ctrl),
		clock:      &clock.Fixed{T: time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)},
	}

	cfg := &config.Config{}
	cfg.Pricing.NormalHourlyRate = 100
	cfg.Pricing.JacuzziHourlyRate = 150
	cfg.Kafka.Topic = "motel.lifecycle"

	// Event publishing and cache invalidation run in the background, so
	// their expectations stay loose.
	f.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.kafka.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = service.New(
		f.repo,
		f.roomRepo,
		f.rentalRepo,
		cfg,
		f.cache,
		otelMocks.NewOtel(),
		f.db,
		f.kafka,
		f.clock,
		billing.NewTariff(cfg),
	)

	return f
}

func (f *reservationFixture) expectTransaction() {
	f.db.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*sqlx.Tx) error) error {
			return fn(nil)
		})
}

func waitForAsync() {
	time.Sleep(20 * time.Millisecond)
}

func TestReservationService_Create(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.CreateReservationRequest
		setupMock func(f *reservationFixture)
		wantErr   bool
	}{
		{
			name: "creates a pending reservation with the estimated price",
			req: dto.CreateReservationRequest{
				RoomID:         "room-1",
				ClientName:     "Booked Guest",
				Phone:          "555-0101",
				ScheduledEntry: "2026-03-15T18:00:00Z",
				ReservedHours:  3,
			},
			setupMock: func(f *reservationFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(roomModel.Room{ID: "room-1", Number: "H01", Type: roomModel.TypeNormal, State: roomModel.StateAvailable}, nil)
				f.repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, reservation model.Reservation) error {
						assert.Equal(t, model.StatusPending, reservation.Status)
						assert.Equal(t, "555-0101", reservation.Phone)
						assert.InDelta(t, 300.0, reservation.EstimatedPrice, 0.001)

						return nil
					})
			},
			wantErr: false,
		},
		{
			name: "rejects an unknown room",
			req: dto.CreateReservationRequest{
				RoomID:         "missing",
				ClientName:     "Booked Guest",
				Phone:          "555-0101",
				ScheduledEntry: "2026-03-15T18:00:00Z",
				ReservedHours:  3,
			},
			setupMock: func(f *reservationFixture) {
				f.roomRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil)
			},
			wantErr: true,
		},
		{
			name: "rejects a malformed scheduled entry",
			req: dto.CreateReservationRequest{
				RoomID:         "room-1",
				ClientName:     "Booked Guest",
				Phone:          "555-0101",
				ScheduledEntry: "tomorrow evening",
				ReservedHours:  3,
			},
			setupMock: func(f *reservationFixture) {
				f.roomRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(roomModel.Room{ID: "room-1", Number: "H01", Type: roomModel.TypeNormal, State: roomModel.StateAvailable}, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReservationFixture(t)
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

func TestReservationService_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		current    model.ReservationStatus
		transition func(svc service.Reservation) error
		wantStatus model.ReservationStatus
		wantErr    bool
	}{
		{
			name:       "confirms a pending reservation",
			current:    model.StatusPending,
			transition: func(svc service.Reservation) error { return svc.Confirm(context.Background(), "res-1") },
			wantStatus: model.StatusConfirmed,
		},
		{
			name:       "rejects confirming a cancelled reservation",
			current:    model.StatusCancelled,
			transition: func(svc service.Reservation) error { return svc.Confirm(context.Background(), "res-1") },
			wantErr:    true,
		},
		{
			name:       "cancels a pending reservation",
			current:    model.StatusPending,
			transition: func(svc service.Reservation) error { return svc.Cancel(context.Background(), "res-1") },
			wantStatus: model.StatusCancelled,
		},
		{
			name:       "cancels a confirmed reservation",
			current:    model.StatusConfirmed,
			transition: func(svc service.Reservation) error { return svc.Cancel(context.Background(), "res-1") },
			wantStatus: model.StatusCancelled,
		},
		{
			name:       "cancelling twice is an idempotent re-stamp",
			current:    model.StatusCancelled,
			transition: func(svc service.Reservation) error { return svc.Cancel(context.Background(), "res-1") },
			wantStatus: model.StatusCancelled,
		},
		{
			name:       "rejects cancelling a completed reservation",
			current:    model.StatusCompleted,
			transition: func(svc service.Reservation) error { return svc.Cancel(context.Background(), "res-1") },
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReservationFixture(t)

			f.expectTransaction()
			f.repo.EXPECT().
				GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(model.Reservation{ID: "res-1", RoomID: "room-1", Status: tt.current}, nil)

			if !tt.wantErr {
				f.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, tt.wantStatus, update[model.FieldStatus])

						return nil
					})
			}

			err := tt.transition(f.svc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			waitForAsync()
		})
	}
}

func TestReservationService_Convert(t *testing.T) {
	confirmed := model.Reservation{
		ID:            "res-1",
		RoomID:        "room-1",
		ClientName:    "Booked Guest",
		ReservedHours: 3,
		Status:        model.StatusConfirmed,
	}

	t.Run("converts a confirmed reservation into a rental", func(t *testing.T) {
		f := newReservationFixture(t)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(confirmed, nil)
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "H01", Type: roomModel.TypeNormal, State: roomModel.StateAvailable}, nil)

		f.rentalRepo.EXPECT().
			InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, rental rentalModel.Rental) error {
				assert.Equal(t, rentalModel.StatusActive, rental.Status)
				assert.Equal(t, "Booked Guest", rental.ClientName)
				assert.InDelta(t, 300.0, rental.InitialPayment, 0.001)
				assert.Equal(t, f.clock.T.Add(3*time.Hour), rental.EstimatedExit)

				return nil
			})

		f.rentalRepo.EXPECT().
			InsertAccessTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, record rentalModel.AccessRecord) error {
				assert.Equal(t, "room-1", record.RoomID)
				assert.Equal(t, rentalModel.EntryModeOnFoot, record.Mode)
				assert.Empty(t, record.Plate)

				return nil
			})

		f.roomRepo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, roomModel.StateOccupied, update[roomModel.FieldState])

				return nil
			})

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, model.StatusCompleted, update[model.FieldStatus])

				return nil
			})

		res, err := f.svc.Convert(context.Background(), "res-1")

		assert.NoError(t, err)
		assert.Equal(t, "H01", res.RoomNumber)
		assert.InDelta(t, 300.0, res.InitialPayment, 0.001)

		waitForAsync()
	})

	t.Run("rejects converting a pending reservation", func(t *testing.T) {
		f := newReservationFixture(t)

		pending := confirmed
		pending.Status = model.StatusPending

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pending, nil)

		_, err := f.svc.Convert(context.Background(), "res-1")

		assert.Error(t, err)
	})

	t.Run("fails when a walk-in took the room first", func(t *testing.T) {
		f := newReservationFixture(t)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(confirmed, nil)
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "H01", State: roomModel.StateOccupied}, nil)

		_, err := f.svc.Convert(context.Background(), "res-1")

		assert.Error(t, err)
	})

	t.Run("rejects an unknown reservation", func(t *testing.T) {
		f := newReservationFixture(t)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(model.Reservation{}, nil)

		_, err := f.svc.Convert(context.Background(), "res-1")

		assert.Error(t, err)
	})
}

func TestReservationService_Get(t *testing.T) {
	f := newReservationFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
	f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Reservation{}, nil)

	_, err := f.svc.Get(context.Background(), "missing")

	assert.Error(t, err)
}
