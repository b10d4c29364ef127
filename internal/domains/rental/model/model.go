package model

import (
	"time"

	"motel/shared/model"
)

const (
	TableName  = "rentals"
	EntityName = "rental"

	FieldID            = "id"
	FieldRoomID        = "room_id"
	FieldStatus        = "status"
	FieldEntryTime     = "entry_time"
	FieldActualExit    = "actual_exit"
	FieldOvertimeHours = "overtime_hours"
	FieldOvertimePay   = "overtime_payment"
	FieldFinalPayment  = "final_payment"
)

const (
	AccessTableName  = "access_records"
	AccessEntityName = "access_record"

	AccessFieldRentalID = "rental_id"
	AccessFieldExitTime = "exit_time"
)

type RentalStatus string

const (
	StatusActive RentalStatus = "active"
	StatusClosed RentalStatus = "closed"
)

type EntryMode string

const (
	EntryModeVehicle EntryMode = "vehicle"
	EntryModeCamera  EntryMode = "camera"
	EntryModeOnFoot  EntryMode = "on_foot"
)

// Rental is one stay. The hourly rate is snapshotted at check-in so later
// tariff changes never alter a running stay's bill.
type Rental struct {
	ID              string       `db:"id"`
	RoomID          string       `db:"room_id"`
	ClientName      string       `db:"client_name"`
	EntryTime       time.Time    `db:"entry_time"`
	ReservedHours   int          `db:"reserved_hours"`
	EstimatedExit   time.Time    `db:"estimated_exit"`
	HourlyRate      float64      `db:"hourly_rate"`
	InitialPayment  float64      `db:"initial_payment"`
	OvertimeHours   int          `db:"overtime_hours"`
	OvertimePayment float64      `db:"overtime_payment"`
	FinalPayment    float64      `db:"final_payment"`
	ActualExit      *time.Time   `db:"actual_exit"`
	Status          RentalStatus `db:"status"`
	model.Metadata
}

// AccessRecord logs how the client entered. The plate is stored upper-cased
// and only for vehicle entries.
type AccessRecord struct {
	ID        string     `db:"id"`
	RentalID  string     `db:"rental_id"`
	RoomID    string     `db:"room_id"`
	Mode      EntryMode  `db:"mode"`
	Plate     string     `db:"plate"`
	EntryTime time.Time  `db:"entry_time"`
	ExitTime  *time.Time `db:"exit_time"`
	model.Metadata
}

// ActiveRentalRow is the active-listing join of a rental with its room.
type ActiveRentalRow struct {
	Rental
	RoomNumber string `db:"room_number"`
	RoomType   string `db:"room_type"`
}

// DailySummaryRow aggregates the rentals that started on a given day.
type DailySummaryRow struct {
	ClientCount    int     `db:"client_count"`
	InitialRevenue float64 `db:"initial_revenue"`
	HoursSold      int     `db:"hours_sold"`
}
