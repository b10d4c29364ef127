package model

import "motel/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID        = "id"
	FieldNumber    = "number"
	FieldType      = "type"
	FieldState     = "state"
	FieldBasePrice = "base_price"
)

type RoomType string

const (
	TypeNormal  RoomType = "normal"
	TypeJacuzzi RoomType = "jacuzzi"
)

type RoomState string

const (
	StateAvailable   RoomState = "available"
	StateOccupied    RoomState = "occupied"
	StateCleaning    RoomState = "cleaning"
	StateMaintenance RoomState = "maintenance"
)

// transitions holds the legal lifecycle moves. Anything absent here is
// rejected with a conflict.
var transitions = map[RoomState][]RoomState{
	StateAvailable:   {StateOccupied, StateMaintenance},
	StateOccupied:    {StateCleaning},
	StateCleaning:    {StateAvailable},
	StateMaintenance: {StateAvailable},
}

func (s RoomState) CanTransitionTo(target RoomState) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}

	return false
}

type Room struct {
	ID        string    `db:"id"`
	Number    string    `db:"number"`
	Type      RoomType  `db:"type"`
	State     RoomState `db:"state"`
	BasePrice *float64  `db:"base_price"`
	model.Metadata
}
