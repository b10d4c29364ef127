package room

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"motel/infras/otel"
	"motel/internal/domains/room/model"
	"motel/internal/domains/room/model/dto"
	"motel/internal/domains/room/service"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	"motel/shared/validator"
	"motel/transport/http/response"
)

type Handler struct {
	service service.Room
	otel    otel.Otel
}

func New(service service.Room, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/board", handler.GetBoard)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Post("/{id}/cleaning-complete", handler.MarkCleaningComplete)
		routerGroup.Patch("/{id}/maintenance", handler.SetMaintenance)
	})
}

// CreateRoom registers a new room into the catalog.
func (handler *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	var req dto.CreateRoomRequest
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Create(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(w, err)

		return
	}

	operator, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	scope.AddEvent("Room created by operator " + operator)

	response.WithMessage(w, http.StatusCreated, "Room created successfully")
}

// GetRooms retrieves the room catalog with optional state/type filters.
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd}

	if state := r.URL.Query().Get(model.FieldState); state != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldState,
			Operator: gDto.FilterOperatorEq,
			Value:    state,
			Table:    model.TableName,
		})
	}

	if roomType := r.URL.Query().Get(model.FieldType); roomType != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldType,
			Operator: gDto.FilterOperatorEq,
			Value:    roomType,
			Table:    model.TableName,
		})
	}

	rooms, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetBoard returns the live occupancy board.
func (handler *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBoard")
	defer scope.End()

	board, err := handler.service.Board(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room board")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, board)
}

// GetRoomByID retrieves a room by its ID.
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, room)
}

// MarkCleaningComplete releases a cleaned room back to the available pool.
func (handler *Handler) MarkCleaningComplete(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkCleaningComplete")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.MarkCleaningComplete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to mark cleaning complete")

		response.WithError(w, err)

		return
	}

	operator, _ := ctx.Value(constant.ContextKeyOperatorID).(string)
	scope.AddEvent("Room cleaning completed by operator " + operator)

	response.WithMessage(w, http.StatusOK, "Room is available again")
}

// SetMaintenance toggles a room in or out of maintenance.
func (handler *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SetMaintenance")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	var req dto.SetMaintenanceRequest
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	if err := handler.service.SetMaintenance(ctx, id, *req.Enabled); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to set maintenance")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Room maintenance updated")
}
