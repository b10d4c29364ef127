package dto

import (
	"time"

	"github.com/google/uuid"

	"motel/internal/domains/room/model"
	"motel/shared"
	gDto "motel/shared/dto"
	gModel "motel/shared/model"
	"motel/shared/timezone"
)

type CreateRoomRequest struct {
	Number    string   `json:"number"     validate:"required,max=10"`
	Type      string   `json:"type"       validate:"required,oneof=normal jacuzzi"`
	BasePrice *float64 `json:"base_price" validate:"omitempty,gt=0"`
}

func (c *CreateRoomRequest) ToModel(user string) model.Room {
	return model.Room{
		ID:        uuid.NewString(),
		Number:    c.Number,
		Type:      model.RoomType(c.Type),
		State:     model.StateAvailable,
		BasePrice: c.BasePrice,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type SetMaintenanceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type RoomResponse struct {
	ID        string   `json:"id"`
	Number    string   `json:"number"`
	Type      string   `json:"type"`
	State     string   `json:"state"`
	BasePrice *float64 `json:"base_price,omitempty"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Number = model.Number
	r.Type = string(model.Type)
	r.State = string(model.State)
	r.BasePrice = model.BasePrice
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}

// BoardResponse is the live occupancy board: every room with its current
// state plus per-state counts.
type BoardResponse struct {
	Rooms       []RoomResponse `json:"rooms"`
	Available   int            `json:"available"`
	Occupied    int            `json:"occupied"`
	Cleaning    int            `json:"cleaning"`
	Maintenance int            `json:"maintenance"`
}

func (b *BoardResponse) FromModels(models []model.Room) {
	b.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		b.Rooms[i].FromModel(mod)

		switch mod.State {
		case model.StateAvailable:
			b.Available++
		case model.StateOccupied:
			b.Occupied++
		case model.StateCleaning:
			b.Cleaning++
		case model.StateMaintenance:
			b.Maintenance++
		}
	}
}

type RoomReleasedEvent struct {
	EventType  string    `json:"event_type"`
	RoomID     string    `json:"room_id"`
	ReleasedAt time.Time `json:"released_at"`
}
