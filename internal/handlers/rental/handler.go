package rental

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"motel/infras/otel"
	"motel/internal/domains/rental/model/dto"
	"motel/internal/domains/rental/service"
	"motel/shared/constant"
	"motel/shared/validator"
	"motel/transport/http/response"
)

type Handler struct {
	service service.Rental
	otel    otel.Otel
}

func New(service service.Rental, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rentals", func(routerGroup chi.Router) {
		routerGroup.Post("/check-in", handler.CheckIn)
		routerGroup.Post("/{id}/check-out", handler.CheckOut)
		routerGroup.Get("/active", handler.GetActive)
		routerGroup.Get("/summary", handler.DailySummary)
	})
}

// CheckIn opens a stay on an available room and returns the quote.
func (handler *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckIn")
	defer scope.End()

	var req dto.CheckInRequest
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.CheckIn(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check in")

		response.WithError(w, err)

		return
	}

	operator, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	scope.AddEvent("Rental checked in by operator " + operator)

	response.WithJSON(w, http.StatusCreated, res)
}

// CheckOut settles the stay and returns the final bill.
func (handler *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckOut")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.CheckOut(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check out")

		response.WithError(w, err)

		return
	}

	operator, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	scope.AddEvent("Rental checked out by operator " + operator)

	response.WithJSON(w, http.StatusOK, res)
}

// GetActive lists running stays with their remaining time.
func (handler *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetActive")
	defer scope.End()

	res, err := handler.service.GetActive(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list active rentals")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// DailySummary reports the revenue and occupancy for one day.
func (handler *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DailySummary")
	defer scope.End()

	date := r.URL.Query().Get(constant.RequestParamDate)

	res, err := handler.service.DailySummary(ctx, date)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get daily summary")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}
