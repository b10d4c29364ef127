package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"motel/internal/domains/reservation/model"
	"motel/shared"
	"motel/shared/constant"
	gDto "motel/shared/dto"
	gModel "motel/shared/model"
	"motel/shared/timezone"
)

type CreateReservationRequest struct {
	RoomID         string `json:"room_id"         validate:"required,uuid4"`
	ClientName     string `json:"client_name"     validate:"required,max=100"`
	Phone          string `json:"phone"           validate:"required,max=20"`
	ScheduledEntry string `json:"scheduled_entry" validate:"required"`
	ReservedHours  int    `json:"reserved_hours"  validate:"required,min=1,max=24"`
}

func (c *CreateReservationRequest) ToModel(user string, estimatedPrice float64) (model.Reservation, error) {
	entry, err := time.ParseInLocation(constant.DateFormat, c.ScheduledEntry, timezone.GetLocation())
	if err != nil {
		return model.Reservation{}, fmt.Errorf("parsing scheduled entry: %w", err)
	}

	return model.Reservation{
		ID:             uuid.NewString(),
		RoomID:         c.RoomID,
		ClientName:     c.ClientName,
		Phone:          c.Phone,
		ScheduledEntry: entry,
		ReservedHours:  c.ReservedHours,
		EstimatedPrice: estimatedPrice,
		Status:         model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}, nil
}

type ReservationResponse struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	ClientName     string    `json:"client_name"`
	Phone          string    `json:"phone"`
	ScheduledEntry time.Time `json:"scheduled_entry"`
	ReservedHours  int       `json:"reserved_hours"`
	EstimatedPrice float64   `json:"estimated_price"`
	Status         string    `json:"status"`
	gDto.Metadata
}

func (r *ReservationResponse) FromModel(model model.Reservation) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.ClientName = model.ClientName
	r.Phone = model.Phone
	r.ScheduledEntry = model.ScheduledEntry
	r.ReservedHours = model.ReservedHours
	r.EstimatedPrice = model.EstimatedPrice
	r.Status = string(model.Status)
	r.Metadata.FromModel(model.Metadata)
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Reservations = make([]ReservationResponse, len(models))
	for i, mod := range models {
		r.Reservations[i].FromModel(mod)
	}
}

type ReservationConvertedEvent struct {
	EventType     string    `json:"event_type"`
	ReservationID string    `json:"reservation_id"`
	RentalID      string    `json:"rental_id"`
	RoomID        string    `json:"room_id"`
	ConvertedAt   time.Time `json:"converted_at"`
}
