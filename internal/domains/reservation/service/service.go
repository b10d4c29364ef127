package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"motel/config"
	"motel/infras/kafka"
	"motel/infras/otel"
	"motel/infras/postgres"
	"motel/internal/domains/rental/billing"
	rentalModel "motel/internal/domains/rental/model"
	rentalDto "motel/internal/domains/rental/model/dto"
	rentalRepo "motel/internal/domains/rental/repository"
	"motel/internal/domains/reservation/model"
	"motel/internal/domains/reservation/model/dto"
	"motel/internal/domains/reservation/repository"
	roomModel "motel/internal/domains/room/model"
	roomRepo "motel/internal/domains/room/repository"
	"motel/shared"
	"motel/shared/cache"
	"motel/shared/clock"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/failure"
	gModel "motel/shared/model"
)

const (
	cacheGetReservation    = "reservation:get"
	cacheGetAllReservation = "reservation:gets"
	cacheCountReservation  = "reservation:count"

	EventReservationConverted = "reservation.converted"
)

type Reservation interface {
	Create(ctx context.Context, req dto.CreateReservationRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.ReservationResponse, error)
	Confirm(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Convert(ctx context.Context, id string) (rentalDto.CheckInResponse, error)
}

type serviceImpl struct {
	repo       repository.Reservation
	roomRepo   roomRepo.Room
	rentalRepo rentalRepo.Rental
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	db         postgres.TxRunner
	kafka      kafka.Producer
	clock      clock.Clock
	tariff     billing.Tariff
}

func New(repo repository.Reservation, roomRepository roomRepo.Room, rentalRepository rentalRepo.Rental, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, db postgres.TxRunner, producer kafka.Producer, clk clock.Clock, tariff billing.Tariff) Reservation {
	return &serviceImpl{
		repo:       repo,
		roomRepo:   roomRepository,
		rentalRepo: rentalRepository,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		db:         db,
		kafka:      producer,
		clock:      clk,
		tariff:     tariff,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateReservationRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)

	room, err := s.roomRepo.Get(ctx, shared.FilterByID(req.RoomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return failure.BadRequestFromString("room does not exist") // nolint:wrapcheck
	}

	// The estimate uses today's tariff; the definitive rate is snapshotted
	// again when the reservation converts.
	estimate := billing.Quote(s.tariff.RateFor(room), req.ReservedHours)

	reservation, err := req.ToModel(user, estimate)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse reservation request")

		return failure.BadRequestFromString(fmt.Sprintf("invalid date/time format: %v", err)) // nolint:wrapcheck
	}

	if err = s.repo.Insert(ctx, reservation); err != nil {
		log.Error().Err(err).Msg("failed to create reservation")

		return fmt.Errorf("failed to create reservation: %w", err)
	}

	s.invalidateListCaches(ctx)

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllReservation, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservations")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservations")

		return res, fmt.Errorf("failed to get reservations: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservations to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountReservation, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetReservation, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation")

		return res, nil
	}

	reservation, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get reservation")

		return res, fmt.Errorf("failed to get reservation: %w", err)
	}

	if reservation.ID == constant.Empty {
		return res, failure.NotFound("reservation") // nolint:wrapcheck
	}

	res.FromModel(reservation)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save reservation to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Confirm(ctx context.Context, id string) error {
	return s.transition(ctx, id, "Confirm", model.StatusConfirmed, model.StatusPending)
}

// Cancel is legal for any reservation that has not been completed;
// cancelling twice is an idempotent re-stamp.
func (s *serviceImpl) Cancel(ctx context.Context, id string) error {
	return s.transition(ctx, id, "Cancel", model.StatusCancelled, model.StatusPending, model.StatusConfirmed, model.StatusCancelled)
}

func (s *serviceImpl) transition(ctx context.Context, id, op string, target model.ReservationStatus, from ...model.ReservationStatus) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+"."+op)
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get reservation: %w", err)
		}

		if reservation.ID == constant.Empty {
			return failure.NotFound("reservation") // nolint:wrapcheck
		}

		allowed := false
		for _, status := range from {
			if reservation.Status == status {
				allowed = true

				break
			}
		}

		if !allowed {
			return failure.InvalidState(fmt.Sprintf("reservation %s is %s", reservation.ID, reservation.Status)) // nolint:wrapcheck
		}

		return s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldStatus:        target,
			constant.FieldModifiedAt: s.clock.Now(),
			constant.FieldModifiedBy: user,
		}, filter)
	})
	if err != nil {
		log.Error().Err(err).Str("reservationID", id).Msg("failed to transition reservation")

		return err
	}

	s.invalidateReservationCaches(ctx, id)

	return nil
}

// Convert turns a confirmed reservation into a running rental. The room is
// re-verified available under lock, so a walk-in who took the room first
// wins and the conversion fails with a conflict.
func (s *serviceImpl) Convert(ctx context.Context, id string) (res rentalDto.CheckInResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Convert")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var (
		rental        rentalModel.Rental
		reservationID string
	)

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get reservation: %w", err)
		}

		if reservation.ID == constant.Empty {
			return failure.NotFound("reservation") // nolint:wrapcheck
		}

		if reservation.Status != model.StatusConfirmed {
			return failure.InvalidState(fmt.Sprintf("reservation %s is %s, not confirmed", reservation.ID, reservation.Status)) // nolint:wrapcheck
		}

		room, err := s.roomRepo.GetForUpdateTx(ctx, tx, shared.FilterByID(reservation.RoomID, roomModel.FieldID, roomModel.TableName))
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

		rental = rentalModel.Rental{
			ID:             uuid.NewString(),
			RoomID:         room.ID,
			ClientName:     reservation.ClientName,
			EntryTime:      now,
			ReservedHours:  reservation.ReservedHours,
			EstimatedExit:  now.Add(time.Duration(reservation.ReservedHours) * time.Hour),
			HourlyRate:     rate,
			InitialPayment: billing.Quote(rate, reservation.ReservedHours),
			Status:         rentalModel.StatusActive,
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  user,
				ModifiedBy: user,
			},
		}

		if err = s.rentalRepo.InsertTx(ctx, tx, rental); err != nil {
			return err
		}

		// Conversions walk in without a vehicle record.
		if err = s.rentalRepo.InsertAccessTx(ctx, tx, rentalModel.AccessRecord{
			ID:        uuid.NewString(),
			RentalID:  rental.ID,
			RoomID:    room.ID,
			Mode:      rentalModel.EntryModeOnFoot,
			EntryTime: now,
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  user,
				ModifiedBy: user,
			},
		}); err != nil {
			return err
		}

		if err = s.roomRepo.UpdateTx(ctx, tx, map[string]any{
			roomModel.FieldState:     roomModel.StateOccupied,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, shared.FilterByID(room.ID, roomModel.FieldID, roomModel.TableName)); err != nil {
			return err
		}

		if err = s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldStatus:        model.StatusCompleted,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}, filter); err != nil {
			return err
		}

		reservationID = reservation.ID
		res.FromModel(rental, room.Number)

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("reservationID", id).Msg("failed to convert reservation")

		return res, err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		event := dto.ReservationConvertedEvent{
			EventType:     EventReservationConverted,
			ReservationID: reservationID,
			RentalID:      rental.ID,
			RoomID:        rental.RoomID,
			ConvertedAt:   rental.EntryTime,
		}

		if err := s.kafka.SendMessages(c, s.cfg.Kafka.Topic, kafka.Message{Key: rental.RoomID, Value: event}); err != nil {
			log.Error().Err(err).Str("reservationID", reservationID).Msg("failed to publish reservation converted event")
		}
	}()

	s.invalidateReservationCaches(ctx, id)

	return res, nil
}

func (s *serviceImpl) invalidateListCaches(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
		shared.InvalidateCaches(c, s.cache, cacheCountReservation)
	}()
}

func (s *serviceImpl) invalidateReservationCaches(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetReservation, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete reservation cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
		shared.InvalidateCaches(c, s.cache, cacheCountReservation)
	}()
}
