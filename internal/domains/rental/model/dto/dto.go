package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"motel/internal/domains/rental/model"
	gModel "motel/shared/model"
)

type CheckInRequest struct {
	RoomID        string `json:"room_id"        validate:"required,uuid4"`
	ClientName    string `json:"client_name"    validate:"required,max=100"`
	ReservedHours int    `json:"reserved_hours" validate:"required,min=1,max=24"`
	EntryMode     string `json:"entry_mode"     validate:"required,oneof=vehicle camera on_foot"`
	Plate         string `json:"plate"          validate:"required_if=EntryMode vehicle,omitempty,max=12"`
}

// ToModel builds the rental with its rate and quote snapshotted at entry.
func (c *CheckInRequest) ToModel(user string, entry time.Time, rate, initialPayment float64) model.Rental {
	return model.Rental{
		ID:             uuid.NewString(),
		RoomID:         c.RoomID,
		ClientName:     c.ClientName,
		EntryTime:      entry,
		ReservedHours:  c.ReservedHours,
		EstimatedExit:  entry.Add(time.Duration(c.ReservedHours) * time.Hour),
		HourlyRate:     rate,
		InitialPayment: initialPayment,
		Status:         model.StatusActive,
		Metadata: gModel.Metadata{
			CreatedAt:  entry,
			ModifiedAt: entry,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

// ToAccessRecord derives the entry log row. The plate survives only for
// vehicle entries and is normalized to upper case.
func (c *CheckInRequest) ToAccessRecord(rentalID, user string, entry time.Time) model.AccessRecord {
	plate := ""
	if model.EntryMode(c.EntryMode) == model.EntryModeVehicle {
		plate = strings.ToUpper(strings.TrimSpace(c.Plate))
	}

	return model.AccessRecord{
		ID:        uuid.NewString(),
		RentalID:  rentalID,
		RoomID:    c.RoomID,
		Mode:      model.EntryMode(c.EntryMode),
		Plate:     plate,
		EntryTime: entry,
		Metadata: gModel.Metadata{
			CreatedAt:  entry,
			ModifiedAt: entry,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type CheckInResponse struct {
	RentalID       string    `json:"rental_id"`
	RoomID         string    `json:"room_id"`
	RoomNumber     string    `json:"room_number"`
	ClientName     string    `json:"client_name"`
	EntryTime      time.Time `json:"entry_time"`
	EstimatedExit  time.Time `json:"estimated_exit"`
	HourlyRate     float64   `json:"hourly_rate"`
	InitialPayment float64   `json:"initial_payment"`
}

func (r *CheckInResponse) FromModel(rental model.Rental, roomNumber string) {
	r.RentalID = rental.ID
	r.RoomID = rental.RoomID
	r.RoomNumber = roomNumber
	r.ClientName = rental.ClientName
	r.EntryTime = rental.EntryTime
	r.EstimatedExit = rental.EstimatedExit
	r.HourlyRate = rental.HourlyRate
	r.InitialPayment = rental.InitialPayment
}

type CheckOutResponse struct {
	RentalID        string    `json:"rental_id"`
	RoomID          string    `json:"room_id"`
	ActualExit      time.Time `json:"actual_exit"`
	OvertimeHours   int       `json:"overtime_hours"`
	OvertimePayment float64   `json:"overtime_payment"`
	InitialPayment  float64   `json:"initial_payment"`
	FinalPayment    float64   `json:"final_payment"`
	RoomState       string    `json:"room_state"`
}

type ActiveRentalResponse struct {
	RentalID         string    `json:"rental_id"`
	RoomID           string    `json:"room_id"`
	RoomNumber       string    `json:"room_number"`
	RoomType         string    `json:"room_type"`
	ClientName       string    `json:"client_name"`
	EntryTime        time.Time `json:"entry_time"`
	EstimatedExit    time.Time `json:"estimated_exit"`
	InitialPayment   float64   `json:"initial_payment"`
	RemainingMinutes int       `json:"remaining_minutes"`
	Overdue          bool      `json:"overdue"`
}

func (r *ActiveRentalResponse) FromRow(row model.ActiveRentalRow, now time.Time) {
	r.RentalID = row.ID
	r.RoomID = row.RoomID
	r.RoomNumber = row.RoomNumber
	r.RoomType = row.RoomType
	r.ClientName = row.ClientName
	r.EntryTime = row.EntryTime
	r.EstimatedExit = row.EstimatedExit
	r.InitialPayment = row.InitialPayment

	remaining := row.EstimatedExit.Sub(now)
	r.RemainingMinutes = int(remaining.Minutes())
	r.Overdue = remaining < 0
}

type GetActiveRentalsResponse struct {
	Rentals   []ActiveRentalResponse `json:"rentals"`
	TotalData int                    `json:"total_data"`
}

func (r *GetActiveRentalsResponse) FromRows(rows []model.ActiveRentalRow, now time.Time) {
	r.TotalData = len(rows)

	r.Rentals = make([]ActiveRentalResponse, len(rows))
	for i, row := range rows {
		r.Rentals[i].FromRow(row, now)
	}
}

type DailySummaryResponse struct {
	Date           string  `json:"date"`
	ClientCount    int     `json:"client_count"`
	InitialRevenue float64 `json:"initial_revenue"`
	HoursSold      int     `json:"hours_sold"`
	OccupiedRooms  int     `json:"occupied_rooms"`
	AvailableRooms int     `json:"available_rooms"`
}

type RentalCheckedInEvent struct {
	EventType      string    `json:"event_type"`
	RentalID       string    `json:"rental_id"`
	RoomID         string    `json:"room_id"`
	EntryTime      time.Time `json:"entry_time"`
	InitialPayment float64   `json:"initial_payment"`
}

type RentalCheckedOutEvent struct {
	EventType    string    `json:"event_type"`
	RentalID     string    `json:"rental_id"`
	RoomID       string    `json:"room_id"`
	ActualExit   time.Time `json:"actual_exit"`
	FinalPayment float64   `json:"final_payment"`
}
