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
	"motel/internal/domains/rental/model"
	"motel/internal/domains/rental/model/dto"
	"motel/internal/domains/rental/service"
	roomMocks "motel/internal/domains/room/mocks"
	roomModel "motel/internal/domains/room/model"
	cacheMocks "motel/shared/cache/mocks"
	"motel/shared/clock"
	gDto "motel/shared/dto"
)

type rentalFixture struct {
	repo     *rentalMocks.MockRental
	roomRepo *roomMocks.MockRoom
	cache    *cacheMocks.MockRedisCache
	db       *postgresMocks.MockTxRunner
	kafka    *kafkaMocks.MockProducer
	clock    *clock.Fixed
	svc      service.Rental
}

func newRentalFixture(t *testing.T) *rentalFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &rentalFixture{
		repo:     rentalMocks.NewMockRental(ctrl),
		roomRepo: roomMocks.NewMockRoom(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		db:       postgresMocks.NewMockTxRunner(ctrl),
		kafka:    kafkaMocks.NewMockProducer(ctrl),
		clock:    &clock.Fixed{T: time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)},
	}

	cfg := &config.Config{}
	cfg.Pricing.NormalHourlyRate = 100
	cfg.Pricing.JacuzziHourlyRate = 150
	cfg.Pricing.ReleaseDelaySeconds = 60
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

func (f *rentalFixture) expectTransaction() {
	f.db.EXPECT().
		WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(*sqlx.Tx) error) error {
			return fn(nil)
		})
}

func waitForAsync() {
	time.Sleep(20 * time.Millisecond)
}

func TestRentalService_CheckIn(t *testing.T) {
	req := dto.CheckInRequest{
		RoomID:        "room-1",
		ClientName:    "Walk In",
		ReservedHours: 2,
		EntryMode:     "vehicle",
		Plate:         "abc123",
	}

	t.Run("opens a stay on an available jacuzzi room", func(t *testing.T) {
		f := newRentalFixture(t)

		f.expectTransaction()
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "J09", Type: roomModel.TypeJacuzzi, State: roomModel.StateAvailable}, nil)

		f.repo.EXPECT().
			InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, rental model.Rental) error {
				assert.Equal(t, model.StatusActive, rental.Status)
				assert.InDelta(t, 150.0, rental.HourlyRate, 0.001)
				assert.InDelta(t, 300.0, rental.InitialPayment, 0.001)
				assert.Equal(t, f.clock.T.Add(2*time.Hour), rental.EstimatedExit)

				return nil
			})

		f.repo.EXPECT().
			InsertAccessTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, record model.AccessRecord) error {
				assert.Equal(t, "room-1", record.RoomID)
				assert.Equal(t, model.EntryModeVehicle, record.Mode)
				assert.Equal(t, "ABC123", record.Plate)

				return nil
			})

		f.roomRepo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, roomModel.StateOccupied, update[roomModel.FieldState])

				return nil
			})

		res, err := f.svc.CheckIn(context.Background(), req)

		assert.NoError(t, err)
		assert.Equal(t, "J09", res.RoomNumber)
		assert.InDelta(t, 300.0, res.InitialPayment, 0.001)

		waitForAsync()
	})

	t.Run("rejects an unknown room", func(t *testing.T) {
		f := newRentalFixture(t)

		f.expectTransaction()
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{}, nil)

		_, err := f.svc.CheckIn(context.Background(), req)

		assert.Error(t, err)
	})

	t.Run("rejects a room that is not available", func(t *testing.T) {
		f := newRentalFixture(t)

		f.expectTransaction()
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "H01", State: roomModel.StateCleaning}, nil)

		_, err := f.svc.CheckIn(context.Background(), req)

		assert.Error(t, err)
	})
}

func TestRentalService_CheckOut(t *testing.T) {
	entry := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	activeRental := model.Rental{
		ID:             "rental-1",
		RoomID:         "room-1",
		ClientName:     "Walk In",
		EntryTime:      entry,
		ReservedHours:  2,
		HourlyRate:     150,
		InitialPayment: 300,
		EstimatedExit:  entry.Add(2 * time.Hour),
		Status:         model.StatusActive,
	}

	t.Run("settles overtime per started hour", func(t *testing.T) {
		f := newRentalFixture(t)
		// 45 minutes past the estimated exit.
		f.clock.T = activeRental.EstimatedExit.Add(45 * time.Minute)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(activeRental, nil)
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "J09", State: roomModel.StateOccupied}, nil)

		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, model.StatusClosed, update[model.FieldStatus])
				assert.Equal(t, 1, update[model.FieldOvertimeHours])
				assert.InDelta(t, 450.0, update[model.FieldFinalPayment].(float64), 0.001)

				return nil
			})

		f.repo.EXPECT().
			StampAccessExitTx(gomock.Any(), gomock.Any(), "rental-1", gomock.Any(), f.clock.T).
			Return(nil)

		f.roomRepo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, update map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, roomModel.StateCleaning, update[roomModel.FieldState])

				return nil
			})

		res, err := f.svc.CheckOut(context.Background(), "rental-1")

		assert.NoError(t, err)
		assert.Equal(t, 1, res.OvertimeHours)
		assert.InDelta(t, 150.0, res.OvertimePayment, 0.001)
		assert.InDelta(t, 450.0, res.FinalPayment, 0.001)
		assert.Equal(t, string(roomModel.StateCleaning), res.RoomState)

		waitForAsync()
	})

	t.Run("charges nothing extra for an on-time exit", func(t *testing.T) {
		f := newRentalFixture(t)
		f.clock.T = activeRental.EstimatedExit.Add(-10 * time.Minute)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(activeRental, nil)
		f.roomRepo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(roomModel.Room{ID: "room-1", Number: "J09", State: roomModel.StateOccupied}, nil)
		f.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)
		f.repo.EXPECT().
			StampAccessExitTx(gomock.Any(), gomock.Any(), "rental-1", gomock.Any(), gomock.Any()).
			Return(nil)
		f.roomRepo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil)

		res, err := f.svc.CheckOut(context.Background(), "rental-1")

		assert.NoError(t, err)
		assert.Equal(t, 0, res.OvertimeHours)
		assert.InDelta(t, 300.0, res.FinalPayment, 0.001)

		waitForAsync()
	})

	t.Run("rejects a rental that is already closed", func(t *testing.T) {
		f := newRentalFixture(t)

		closed := activeRental
		closed.Status = model.StatusClosed

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(closed, nil)

		_, err := f.svc.CheckOut(context.Background(), "rental-1")

		assert.Error(t, err)
	})

	t.Run("rejects an unknown rental", func(t *testing.T) {
		f := newRentalFixture(t)

		f.expectTransaction()
		f.repo.EXPECT().
			GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(model.Rental{}, nil)

		_, err := f.svc.CheckOut(context.Background(), "rental-1")

		assert.Error(t, err)
	})
}

func TestRentalService_GetActive(t *testing.T) {
	f := newRentalFixture(t)

	rows := []model.ActiveRentalRow{
		{
			Rental: model.Rental{
				ID:            "rental-1",
				RoomID:        "room-1",
				ClientName:    "Walk In",
				EntryTime:     f.clock.T.Add(-time.Hour),
				EstimatedExit: f.clock.T.Add(30 * time.Minute),
			},
			RoomNumber: "H01",
			RoomType:   "normal",
		},
		{
			Rental: model.Rental{
				ID:            "rental-2",
				RoomID:        "room-2",
				ClientName:    "Late Guest",
				EntryTime:     f.clock.T.Add(-3 * time.Hour),
				EstimatedExit: f.clock.T.Add(-20 * time.Minute),
			},
			RoomNumber: "J09",
			RoomType:   "jacuzzi",
		},
	}

	f.roomRepo.EXPECT().ReleaseCleaned(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.repo.EXPECT().ListActive(gomock.Any()).Return(rows, nil)

	res, err := f.svc.GetActive(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 30, res.Rentals[0].RemainingMinutes)
	assert.False(t, res.Rentals[0].Overdue)
	assert.Equal(t, -20, res.Rentals[1].RemainingMinutes)
	assert.True(t, res.Rentals[1].Overdue)
}

func TestRentalService_DailySummary(t *testing.T) {
	t.Run("aggregates the day on cache miss", func(t *testing.T) {
		f := newRentalFixture(t)

		f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().
			SummaryByRange(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, from, to time.Time) (model.DailySummaryRow, error) {
				assert.Equal(t, 24*time.Hour, to.Sub(from))

				return model.DailySummaryRow{ClientCount: 5, InitialRevenue: 1250, HoursSold: 12}, nil
			})
		f.roomRepo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(3, nil)
		f.roomRepo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(7, nil)

		res, err := f.svc.DailySummary(context.Background(), "2026-03-14")

		assert.NoError(t, err)
		assert.Equal(t, 5, res.ClientCount)
		assert.InDelta(t, 1250.0, res.InitialRevenue, 0.001)
		assert.Equal(t, 12, res.HoursSold)
		assert.Equal(t, 3, res.OccupiedRooms)
		assert.Equal(t, 7, res.AvailableRooms)

		waitForAsync()
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		f := newRentalFixture(t)

		_, err := f.svc.DailySummary(context.Background(), "14-03-2026")

		assert.Error(t, err)
	})
}
