package router

import (
	"github.com/go-chi/chi/v5"

	"motel/internal/handlers/rental"
	"motel/internal/handlers/reservation"
	"motel/internal/handlers/room"
	"motel/transport/http/middleware"
)

type DomainHandlers struct {
	Room        room.Handler
	Rental      rental.Handler
	Reservation reservation.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	Auth           middleware.Auth
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		routerGroup.Use(r.Auth.Auth)

		r.DomainHandlers.Room.Router(routerGroup)
		r.DomainHandlers.Rental.Router(routerGroup)
		r.DomainHandlers.Reservation.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers, auth middleware.Auth) Router {
	return Router{
		DomainHandlers: domainHandlers,
		Auth:           auth,
	}
}
