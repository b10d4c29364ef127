package model

import (
	"time"

	"motel/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID             = "id"
	FieldRoomID         = "room_id"
	FieldStatus         = "status"
	FieldScheduledEntry = "scheduled_entry"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Reservation holds the client contact details and the price estimated at
// creation time; the definitive rate is snapshotted again at conversion.
type Reservation struct {
	ID             string            `db:"id"`
	RoomID         string            `db:"room_id"`
	ClientName     string            `db:"client_name"`
	Phone          string            `db:"phone"`
	ScheduledEntry time.Time         `db:"scheduled_entry"`
	ReservedHours  int               `db:"reserved_hours"`
	EstimatedPrice float64           `db:"estimated_price"`
	Status         ReservationStatus `db:"status"`
	model.Metadata
}
