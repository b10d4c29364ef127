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
	"motel/internal/domains/room/model"
	"motel/internal/domains/room/model/dto"
	"motel/internal/domains/room/repository"
	"motel/shared"
	"motel/shared/cache"
	"motel/shared/clock"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/failure"
)

const (
	cacheGetRoom    = "room:get"
	cacheGetAllRoom = "room:gets"
	cacheCountRoom  = "room:count"

	EventRoomReleased = "room.released"
)

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) error
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.RoomResponse, error)
	Board(ctx context.Context) (dto.BoardResponse, error)
	MarkCleaningComplete(ctx context.Context, id string) error
	SetMaintenance(ctx context.Context, id string, enabled bool) error
}

type serviceImpl struct {
	repo  repository.Room
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
	db    postgres.TxRunner
	kafka kafka.Producer
	clock clock.Clock
}

func New(repo repository.Room, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, db postgres.TxRunner, producer kafka.Producer, clk clock.Clock) Room {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
		db:    db,
		kafka: producer,
		clock: clk,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)

	exist, err := s.repo.Exist(ctx, gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldNumber,
				Operator: gDto.FilterOperatorEq,
				Value:    req.Number,
				Table:    model.TableName,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to check room number uniqueness")

		return fmt.Errorf("failed to check room number uniqueness: %w", err)
	}

	if exist {
		return failure.BadRequestFromString("room number is already registered") // nolint:wrapcheck
	}

	if err = s.repo.Insert(ctx, req.ToModel(user)); err != nil {
		return err
	}

	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
		shared.InvalidateCaches(c, s.cache, cacheCountRoom)
	}()

	return nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetRoom, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	room, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, failure.NotFound("room") // nolint:wrapcheck
	}

	res.FromModel(room)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room to cache")
		}
	}()

	return res, nil
}

// Board returns the live occupancy board. Due cleaned rooms are released
// first so the board always reflects "now"; the result is never cached for
// the same reason.
func (s *serviceImpl) Board(ctx context.Context) (res dto.BoardResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Board")
	defer scope.End()
	defer scope.TraceIfError(err)

	s.releaseDue(ctx)

	models, err := s.repo.GetAll(ctx, gDto.QueryParams{SortBy: model.FieldNumber, SortDir: gDto.SortDirAsc}, gDto.FilterGroup{})
	if err != nil {
		log.Error().Err(err).Msg("failed to get room board")

		return res, fmt.Errorf("failed to get room board: %w", err)
	}

	res.FromModels(models)

	return res, nil
}

func (s *serviceImpl) MarkCleaningComplete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkCleaningComplete")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		room, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room") // nolint:wrapcheck
		}

		if room.State != model.StateCleaning {
			return failure.InvalidState(fmt.Sprintf("room %s is %s, not cleaning", room.Number, room.State)) // nolint:wrapcheck
		}

		return s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldState:         model.StateAvailable,
			constant.FieldModifiedAt: s.clock.Now(),
			constant.FieldModifiedBy: user,
		}, filter)
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", id).Msg("failed to mark cleaning complete")

		return err
	}

	s.publishReleased(ctx, id)
	s.invalidateRoomCaches(ctx, id)

	return nil
}

func (s *serviceImpl) SetMaintenance(ctx context.Context, id string, enabled bool) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SetMaintenance")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	target := model.StateMaintenance
	if !enabled {
		target = model.StateAvailable
	}

	err = s.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		room, err := s.repo.GetForUpdateTx(ctx, tx, filter)
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		if room.ID == constant.Empty {
			return failure.NotFound("room") // nolint:wrapcheck
		}

		if room.State == target {
			return nil
		}

		if !room.State.CanTransitionTo(target) {
			return failure.InvalidState(fmt.Sprintf("room %s cannot move from %s to %s", room.Number, room.State, target)) // nolint:wrapcheck
		}

		return s.repo.UpdateTx(ctx, tx, map[string]any{
			model.FieldState:         target,
			constant.FieldModifiedAt: s.clock.Now(),
			constant.FieldModifiedBy: user,
		}, filter)
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", id).Msg("failed to set maintenance")

		return err
	}

	s.invalidateRoomCaches(ctx, id)

	return nil
}

// releaseDue runs the lazy auto-release. Errors are logged and swallowed so
// a failed release never blocks the read it piggybacks on.
func (s *serviceImpl) releaseDue(ctx context.Context) {
	cutoff := s.clock.Now().Add(-time.Duration(s.cfg.Pricing.ReleaseDelaySeconds) * time.Second)

	released, err := s.repo.ReleaseCleaned(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to auto-release cleaned rooms")

		return
	}

	if len(released) == 0 {
		return
	}

	log.Info().Int("count", len(released)).Msg("auto-released cleaned rooms")

	for _, id := range released {
		s.publishReleased(ctx, id)
		s.invalidateRoomCaches(ctx, id)
	}
}

func (s *serviceImpl) publishReleased(ctx context.Context, roomID string) {
	event := dto.RoomReleasedEvent{
		EventType:  EventRoomReleased,
		RoomID:     roomID,
		ReleasedAt: s.clock.Now(),
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, s.cfg.Kafka.Topic, kafka.Message{Key: roomID, Value: event}); err != nil {
			log.Error().Err(err).Str("roomID", roomID).Msg("failed to publish room released event")
		}
	}()
}

func (s *serviceImpl) invalidateRoomCaches(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetRoom, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete room cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllRoom)
		shared.InvalidateCaches(c, s.cache, cacheCountRoom)
	}()
}
