package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"motel/config"
	"motel/infras/kafka"
	"motel/infras/otel"
	"motel/infras/postgres"
	"motel/internal/domains/rental/billing"
	"motel/internal/domains/rental/model"
	"motel/internal/domains/rental/model/dto"
	"motel/internal/domains/rental/repository"
	roomModel "motel/internal/domains/room/model"
	roomDto "motel/internal/domains/room/model/dto"
	roomRepo "motel/internal/domains/room/repository"
	"motel/shared"
	"motel/shared/cache"
	"motel/shared/clock"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/failure"
	"motel/shared/timezone"
)

const (
	cacheGetAllRoom   = "room:gets"
	cacheCountRoom    = "room:count"
	cacheGetRoom      = "room:get"
	cacheDailySummary = "rental:summary"

	EventRentalCheckedIn  = "rental.checked_in"
	EventRentalCheckedOut = "rental.checked_out"
	EventRoomReleased     = "room.released"
)

type Rental interface {
	CheckIn(ctx context.Context, req dto.CheckInRequest) (dto.CheckInResponse, error)
	CheckOut(ctx context.Context, rentalID string) (dto.CheckOutResponse, error)
	GetActive(ctx context.Context) (dto.GetActiveRentalsResponse, error)
	DailySummary(ctx context.Context, date string) (dto.DailySummaryResponse, error)
}

type serviceImpl struct {
	repo     repository.Rental
	roomRepo roomRepo.Room
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	db       postgres.TxRunner
	kafka    kafka.Producer
	clock    clock.Clock
	tariff   billing.Tariff
}

func New(repo repository.Rental, roomRepository roomRepo.Room, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, db postgres.TxRunner, producer kafka.Producer, clk clock.Clock, tariff billing.Tariff) Rental {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepository,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		db:       db,
		kafka:    producer,
		clock:    clk,
		tariff:   tariff,
	}
}

// CheckIn opens a stay: the room is locked, verified available, the quote is
// snapshotted onto the rental, and the room plus the access log move in the
// same transaction.
func (s *serviceImpl) CheckIn(ctx context.Context, req dto.CheckInRequest) (res dto.CheckInResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckIn")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)

	var rental model.Rental

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		room, err := s.roomRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(req.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room") // nolint:wrapcheck
		}

		if room.State != roomModel.StateAvailable {
			return failure.InvalidState(fmt.Sprintf("room %s is %s", room.Number, room.State)) // nolint:wrapcheck
		}

		now := s.clock.Now()
		rate := s.tariff.RateFor(room)

		rental = req.ToModel(user, now, rate, billing.Quote(rate, req.ReservedHours))

		if err = s.repo.InsertTx(ctx, tx, rental); err != nil {
			return err
		}

		if err = s.repo.InsertAccessTx(ctx, tx, req.ToAccessRecord(rental.ID, user, now)); err != nil {
			return err
		}

		if err = s.roomRepo.UpdateTx(ctx, tx, map[string]any{
			roomModel.FieldState:     roomModel.StateOccupied,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(room.ID, roomModel.FieldID, roomModel.TableName)); err != nil {
			return err
		}

		res.FromModel(rental, room.Number)

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", req.RoomID).Msg("failed to check in")

		return res, err
	}

	s.publish(ctx, rental.RoomID, dto.RentalCheckedInEvent{
		EventType:      EventRentalCheckedIn,
		RentalID:       rental.ID,
		RoomID:         rental.RoomID,
		EntryTime:      rental.EntryTime,
		InitialPayment: rental.InitialPayment,
	})
	s.invalidateCaches(ctx, rental.RoomID)

	return res, nil
}

// CheckOut settles a stay: overtime is billed per started hour at the
// snapshotted rate, the access log is stamped, and the room always moves to
// cleaning.
func (s *serviceImpl) CheckOut(ctx context.Context, rentalID string) (res dto.CheckOutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckOut")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)

	var roomID string

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		rental, err := s.repo.GetForUpdateTx(ctx, tx, shared.FilterByID(rentalID, model.FieldID, model.TableName))
		if err != nil {
			return fmt.Errorf("failed to get rental: %w", err)
		}

		if rental.ID == constant.Empty {
			return failure.NotFound("rental") // nolint:wrapcheck
		}

		if rental.Status != model.StatusActive {
			return failure.InvalidState(fmt.Sprintf("rental %s is already %s", rental.ID, rental.Status)) // nolint:wrapcheck
		}

		room, err := s.roomRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(rental.RoomID, roomModel.FieldID, roomModel.TableName))
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		now := s.clock.Now()
		settlement := billing.Settle(rental.InitialPayment, rental.HourlyRate, rental.EstimatedExit, now)

		if err = s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldActualExit:    now,
			model.FieldOvertimeHours: settlement.OvertimeHours,
			model.FieldOvertimePay:   settlement.OvertimeCharge,
			model.FieldFinalPayment:  settlement.FinalAmount,
			model.FieldStatus:        model.StatusClosed,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(rental.ID, model.FieldID, model.TableName)); err != nil {
			return err
		}

		if err = s.repo.StampAccessExitTx(ctx, tx, rental.ID, user, now); err != nil {
			return err
		}

		if room.State != roomModel.StateOccupied {
			log.Warn().Str("roomID", room.ID).Str("state", string(room.State)).Msg("room was not occupied at check-out")
		}

		if err = s.roomRepo.UpdateTx(ctx, tx, map[string]any{
			roomModel.FieldState:     roomModel.StateCleaning,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(room.ID, roomModel.FieldID, roomModel.TableName)); err != nil {
			return err
		}

		roomID = room.ID

		res = dto.CheckOutResponse{
			RentalID:        rental.ID,
			RoomID:          room.ID,
			ActualExit:      now,
			OvertimeHours:   settlement.OvertimeHours,
			OvertimePayment: settlement.OvertimeCharge,
			InitialPayment:  rental.InitialPayment,
			FinalPayment:    settlement.FinalAmount,
			RoomState:       string(roomModel.StateCleaning),
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("rentalID", rentalID).Msg("failed to check out")

		return res, err
	}

	s.publish(ctx, roomID, dto.RentalCheckedOutEvent{
		EventType:    EventRentalCheckedOut,
		RentalID:     res.RentalID,
		RoomID:       roomID,
		ActualExit:   res.ActualExit,
		FinalPayment: res.FinalPayment,
	})
	s.invalidateCaches(ctx, roomID)

	return res, nil
}

// GetActive lists running stays with their remaining time. Due cleaned rooms
// are released first and the result is never cached, so the listing always
// reflects "now".
func (s *serviceImpl) GetActive(ctx context.Context) (res dto.GetActiveRentalsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetActive")
	defer scope.End()
	defer scope.TraceIfError(err)

	s.releaseDue(ctx)

	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active rentals")

		return res, fmt.Errorf("failed to list active rentals: %w", err)
	}

	res.FromRows(rows, s.clock.Now())

	return res, nil
}

func (s *serviceImpl) DailySummary(ctx context.Context, date string) (res dto.DailySummaryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".DailySummary")
	defer scope.End()
	defer scope.TraceIfError(err)

	day, err := time.ParseInLocation(constant.DateOnlyFormat, date, timezone.GetLocation())
	if err != nil {
		return res, failure.BadRequestFromString("date must be formatted as YYYY-MM-DD") // nolint:wrapcheck
	}

	cacheKey := shared.BuildCacheKey(cacheDailySummary, date)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for daily summary")

		return res, nil
	}

	row, err := s.repo.SummaryByRange(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		log.Error().Err(err).Msg("failed to get rental summary")

		return res, fmt.Errorf("failed to get rental summary: %w", err)
	}

	occupied, err := s.roomRepo.Count(ctx, filterByState(roomModel.StateOccupied))
	if err != nil {
		log.Error().Err(err).Msg("failed to count occupied rooms")

		return res, fmt.Errorf("failed to count occupied rooms: %w", err)
	}

	available, err := s.roomRepo.Count(ctx, filterByState(roomModel.StateAvailable))
	if err != nil {
		log.Error().Err(err).Msg("failed to count available rooms")

		return res, fmt.Errorf("failed to count available rooms: %w", err)
	}

	res = dto.DailySummaryResponse{
		Date:           date,
		ClientCount:    row.ClientCount,
		InitialRevenue: row.InitialRevenue,
		HoursSold:      row.HoursSold,
		OccupiedRooms:  occupied,
		AvailableRooms: available,
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save daily summary to cache")
		}
	}()

	return res, nil
}

func filterByState(state roomModel.RoomState) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    roomModel.FieldState,
				Operator: gDto.FilterOperatorEq,
				Value:    state,
				Table:    roomModel.TableName,
			},
		},
	}
}

// releaseDue runs the lazy auto-release before an active listing. Errors are
// logged and swallowed so a failed release never blocks the read.
func (s *serviceImpl) releaseDue(ctx context.Context) {
	cutoff := s.clock.Now().Add(-time.Duration(s.cfg.Pricing.ReleaseDelaySeconds) * time.Second)

	released, err := s.roomRepo.ReleaseCleaned(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to auto-release cleaned rooms")

		return
	}

	if len(released) == 0 {
		return
	}

	log.Info().Int("count", len(released)).Msg("auto-released cleaned rooms")

	for _, id := range released {
		s.publish(ctx, id, roomDto.RoomReleasedEvent{
			EventType:  EventRoomReleased,
			RoomID:     id,
			ReleasedAt: s.clock.Now(),
		})
		s.invalidateCaches(ctx, id)
	}
}

func (s *serviceImpl) publish(ctx context.Context, key string, event any) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, s.cfg.Kafka.Topic, kafka.Message{Key: key, Value: event}); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to publish lifecycle event")
		}
	}()
}

func (s *serviceImpl) invalidateCaches(ctx context.Context, roomID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetRoom, roomID)); err != nil {
			log.Error().Err(err).Msg("failed to delete room cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
		shared.InvalidateCaches(c, s.cache, cacheCountRoom)
		shared.InvalidateCaches(c, s.cache, cacheDailySummary)
	}()
}
