//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"motel/config"
	"motel/infras/jwt"
	"motel/infras/kafka"
	"motel/infras/otel"
	"motel/infras/postgres"
	"motel/infras/redis"
	"motel/internal/domains/rental/billing"
	"motel/shared/cache"
	"motel/shared/clock"
	"motel/transport/http"
	"motel/transport/http/middleware"
	"motel/transport/http/router"

	rentalRepository "motel/internal/domains/rental/repository"
	rentalService "motel/internal/domains/rental/service"
	reservationRepository "motel/internal/domains/reservation/repository"
	reservationService "motel/internal/domains/reservation/service"
	roomRepository "motel/internal/domains/room/repository"
	roomService "motel/internal/domains/room/service"

	rentalHandler "motel/internal/handlers/rental"
	reservationHandler "motel/internal/handlers/reservation"
	roomHandler "motel/internal/handlers/room"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	wire.Bind(new(postgres.TxRunner), new(*postgres.Connection)),
	otel.New,
	redis.New,
	kafka.New,
	jwt.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	clock.New,
	billing.NewTariff,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var rentalDomain = wire.NewSet(
	rentalRepository.New,
	rentalService.New,
)

var reservationDomain = wire.NewSet(
	reservationRepository.New,
	reservationService.New,
)

var domains = wire.NewSet(
	roomDomain,
	rentalDomain,
	reservationDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	rentalHandler.New,
	reservationHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
